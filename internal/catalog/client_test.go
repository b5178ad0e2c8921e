package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/pkg/httpclient"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	hc := httpclient.New(httpclient.TightConfig())
	return NewClient(server.URL, hc, testLogger()), server
}

func decodeQuery(t *testing.T, r *http.Request) Query {
	t.Helper()
	var q Query
	require.NoError(t, json.NewDecoder(r.Body).Decode(&q))
	return q
}

func writePage(t *testing.T, w http.ResponseWriter, data any, count int) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	err = json.NewEncoder(w).Encode(queryResponse{Data: raw, Count: count})
	require.NoError(t, err)
}

func TestListProducts_ProjectsAndPaginates(t *testing.T) {
	var got Query
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/query", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		got = decodeQuery(t, r)
		writePage(t, w, []domain.Product{
			{ID: "prod_1", Title: "Runner", Status: domain.ProductStatusPublished},
			{ID: "prod_2", Title: "Walker", Status: domain.ProductStatusDraft},
		}, 42)
	})

	products, count, err := client.ListProducts(context.Background(), ListOptions{Limit: 2, Offset: 4})
	require.NoError(t, err)

	assert.Equal(t, "product", got.Entity)
	assert.Contains(t, got.Fields, "variants")
	assert.Contains(t, got.Fields, "brand_id")
	assert.Equal(t, 2, got.Limit)
	assert.Equal(t, 4, got.Offset)
	assert.Nil(t, got.Filters)

	assert.Equal(t, 42, count)
	require.Len(t, products, 2)
	assert.Equal(t, "prod_1", products[0].ID)
}

func TestListProducts_IDFilter(t *testing.T) {
	var got Query
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeQuery(t, r)
		writePage(t, w, []domain.Product{{ID: "prod_9"}}, 1)
	})

	_, _, err := client.ListProducts(context.Background(), ListOptions{IDs: []string{"prod_9"}, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, []any{"prod_9"}, got.Filters["id"])
}

func TestGetProduct_Absent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writePage(t, w, []domain.Product{}, 0)
	})

	p, err := client.GetProduct(context.Background(), "prod_missing")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestGetBrand_Found(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := decodeQuery(t, r)
		assert.Equal(t, "brand", q.Entity)
		writePage(t, w, []domain.Brand{{ID: "brand_1", Name: "Acme"}}, 1)
	})

	b, err := client.GetBrand(context.Background(), "brand_1")
	require.NoError(t, err)
	require.NotNil(t, b)
	assert.Equal(t, "Acme", b.Name)
}

func TestListAllCategories_WalksPages(t *testing.T) {
	total := 150
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := decodeQuery(t, r)
		assert.Equal(t, "product_category", q.Entity)
		page := make([]domain.Category, 0, q.Limit)
		for i := q.Offset; i < total && i < q.Offset+q.Limit; i++ {
			page = append(page, domain.Category{ID: "cat_" + string(rune('a'+i%26))})
		}
		writePage(t, w, page, total)
	})

	categories, err := client.ListAllCategories(context.Background())
	require.NoError(t, err)
	assert.Len(t, categories, total)
}

func TestListRegions(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := decodeQuery(t, r)
		assert.Equal(t, "region", q.Entity)
		assert.Equal(t, []string{"id", "currency_code"}, q.Fields)
		assert.Equal(t, true, q.Filters["is_active"])
		writePage(t, w, []domain.Region{
			{ID: "reg_us", CurrencyCode: "usd"},
			{ID: "reg_au", CurrencyCode: "aud"},
		}, 2)
	})

	regions, err := client.ListRegions(context.Background())
	require.NoError(t, err)
	require.Len(t, regions, 2)
	assert.Equal(t, "aud", regions[1].CurrencyCode)
}

func TestOptionTitles(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := decodeQuery(t, r)
		assert.Equal(t, "product_option", q.Entity)
		assert.Equal(t, true, q.Filters["is_active"])
		writePage(t, w, []map[string]string{
			{"id": "opt_1", "title": "Color"},
			{"id": "opt_2", "title": "Shoe Size"},
		}, 2)
	})

	titles, err := client.OptionTitles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"opt_1": "Color", "opt_2": "Shoe Size"}, titles)
}

func TestCountProductsByBrand_PublishedOnly(t *testing.T) {
	var got Query
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeQuery(t, r)
		writePage(t, w, []map[string]string{{"id": "prod_1"}}, 7)
	})

	count, err := client.CountProductsByBrand(context.Background(), "brand_1")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.Equal(t, "brand_1", got.Filters["brand_id"])
	assert.Equal(t, domain.ProductStatusPublished, got.Filters["status"])
}

func TestQuery_UpstreamError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"code":"INTERNAL","message":"boom"}}`, http.StatusInternalServerError)
	})

	_, _, err := client.ListProducts(context.Background(), ListOptions{Limit: 1})
	require.Error(t, err)
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health/live", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, client.Ping(context.Background()))
}
