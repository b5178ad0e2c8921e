package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primecart/search-sync/internal/catalog"
	"github.com/primecart/search-sync/internal/content"
	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/engine"
	"github.com/primecart/search-sync/internal/engine/memory"
	"github.com/primecart/search-sync/pkg/httpclient"
	"github.com/primecart/search-sync/pkg/kafka"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeCatalog serves the catalog query API from in-memory fixtures.
type fakeCatalog struct {
	products   []domain.Product
	brands     []domain.Brand
	categories []domain.Category
	regions    []domain.Region
	options    []map[string]string
	failAll    bool
}

func (f *fakeCatalog) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health/live" {
			w.WriteHeader(http.StatusOK)
			return
		}
		if f.failAll {
			http.Error(w, `{"error":{"code":"INTERNAL","message":"catalog down"}}`, http.StatusInternalServerError)
			return
		}

		var q catalog.Query
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		switch q.Entity {
		case "product":
			f.respond(w, q, productsToAny(f.products))
		case "brand":
			f.respond(w, q, brandsToAny(f.brands))
		case "product_category":
			f.respond(w, q, categoriesToAny(f.categories))
		case "region":
			f.respond(w, q, regionsToAny(f.regions))
		case "product_option":
			f.respond(w, q, optionsToAny(f.options))
		default:
			http.Error(w, "unknown entity", http.StatusBadRequest)
		}
	}
}

func (f *fakeCatalog) respond(w http.ResponseWriter, q catalog.Query, all []any) {
	filtered := all
	if ids, ok := q.Filters["id"].([]any); ok {
		want := make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id.(string)] = true
		}
		filtered = nil
		for _, item := range all {
			if want[entityID(item)] {
				filtered = append(filtered, item)
			}
		}
	}
	if brandID, ok := q.Filters["brand_id"].(string); ok {
		var narrowed []any
		for _, item := range filtered {
			p := item.(domain.Product)
			if p.BrandID != nil && *p.BrandID == brandID && p.Status == domain.ProductStatusPublished {
				narrowed = append(narrowed, item)
			}
		}
		filtered = narrowed
	}

	count := len(filtered)
	start := q.Offset
	if start > count {
		start = count
	}
	end := count
	if q.Limit > 0 && start+q.Limit < count {
		end = start + q.Limit
	}

	raw, _ := json.Marshal(filtered[start:end])
	resp := map[string]any{"data": json.RawMessage(raw), "count": count, "limit": q.Limit, "offset": q.Offset}
	_ = json.NewEncoder(w).Encode(resp)
}

func entityID(item any) string {
	switch v := item.(type) {
	case domain.Product:
		return v.ID
	case domain.Brand:
		return v.ID
	case domain.Category:
		return v.ID
	case domain.Region:
		return v.ID
	case map[string]string:
		return v["id"]
	}
	return ""
}

func productsToAny(in []domain.Product) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func brandsToAny(in []domain.Brand) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func categoriesToAny(in []domain.Category) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func regionsToAny(in []domain.Region) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

func optionsToAny(in []map[string]string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}

// fakeCMS serves enrichment entries keyed by "<kind>/<ownerID>".
type fakeCMS struct {
	entries map[string]domain.Enrichment
	deleted []string
	down    bool
}

func (f *fakeCMS) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if f.down {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		key := strings.TrimPrefix(r.URL.Path, "/entries/")
		switch r.Method {
		case http.MethodGet:
			entry, ok := f.entries[key]
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			_ = json.NewEncoder(w).Encode(entry)
		case http.MethodPut:
			var entry domain.Enrichment
			if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			f.entries[key] = entry
			w.WriteHeader(http.StatusOK)
		case http.MethodDelete:
			f.deleted = append(f.deleted, key)
			delete(f.entries, key)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}
}

type capturedEvent struct {
	topic string
	event *kafka.Event
}

type fakeProducer struct {
	published []capturedEvent
}

func (f *fakeProducer) Publish(_ context.Context, topic string, event *kafka.Event) error {
	f.published = append(f.published, capturedEvent{topic: topic, event: event})
	return nil
}

type syncFixture struct {
	service  *SyncService
	products *memory.Engine
	brands   *memory.Engine
	cats     *memory.Engine
	cms      *fakeCMS
	producer *fakeProducer
}

func newSyncFixture(t *testing.T, cat *fakeCatalog, cms *fakeCMS, pageSize int) *syncFixture {
	t.Helper()

	catServer := httptest.NewServer(cat.handler())
	t.Cleanup(catServer.Close)
	cmsServer := httptest.NewServer(cms.handler())
	t.Cleanup(cmsServer.Close)

	logger := testLogger()
	catClient := catalog.NewClient(catServer.URL, httpclient.New(httpclient.TightConfig()), logger)
	cmsCfg := httpclient.Config{Timeout: time.Second, MaxRetries: 0, MaxConnsPerHost: 10}
	cmsClient := content.NewClient(cmsServer.URL, "test-key", httpclient.New(cmsCfg), logger)
	enricher := content.NewEnricher(cmsClient, 4, logger)

	fix := &syncFixture{
		products: memory.New(),
		brands:   memory.New(),
		cats:     memory.New(),
		cms:      cms,
		producer: &fakeProducer{},
	}
	fix.service = NewSyncService(catClient, enricher, cmsClient, Engines{
		Products:   fix.products,
		Brands:     fix.brands,
		Categories: fix.cats,
	}, fix.producer, pageSize, logger)
	return fix
}

func publishedProduct(id, title string, amount int64) domain.Product {
	return domain.Product{
		ID:     id,
		Title:  title,
		Handle: strings.ToLower(title),
		Status: domain.ProductStatusPublished,
		Variants: []domain.Variant{{
			ID:                id + "_v1",
			InventoryQuantity: 3,
			Prices:            []domain.Price{{Amount: amount, CurrencyCode: "usd"}},
		}},
	}
}

func standardCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: []domain.Product{
			publishedProduct("prod_1", "Runner", 1000),
			publishedProduct("prod_2", "Walker", 2500),
			publishedProduct("prod_3", "Hiker", 4000),
			{ID: "prod_4", Title: "Prototype", Status: domain.ProductStatusDraft},
		},
		regions: []domain.Region{{ID: "reg_us", CurrencyCode: "usd"}},
		options: []map[string]string{{"id": "opt_color", "title": "Color"}},
	}
}

func TestSyncProducts_FullRun(t *testing.T) {
	cms := &fakeCMS{entries: map[string]domain.Enrichment{
		"product/prod_1": {
			OwnerID:     "prod_1",
			OwnerKind:   domain.KindProduct,
			Description: "Editorial runner copy",
		},
	}}
	fix := newSyncFixture(t, standardCatalog(), cms, 10)

	result, err := fix.service.SyncProducts(context.Background(), SyncOptions{})
	require.NoError(t, err)

	assert.Equal(t, 3, result.Indexed)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, fix.products.Len())

	doc, ok := fix.products.Document("prod_1")
	require.True(t, ok)
	assert.Equal(t, "Editorial runner copy", doc["description"])
	assert.Equal(t, float64(1000), doc["price_usd"])
	assert.Equal(t, true, doc["in_stock"])

	_, draftPresent := fix.products.Document("prod_4")
	assert.False(t, draftPresent)

	// Settings sync runs at the start of every batch run.
	require.NotNil(t, fix.products.Settings())
	assert.Contains(t, fix.products.Settings().FilterableAttributes, "price_usd")

	require.Len(t, fix.producer.published, 1)
	assert.Equal(t, TopicSyncCompleted, fix.producer.published[0].topic)
}

func TestSyncProducts_WalksAllPages(t *testing.T) {
	cat := &fakeCatalog{
		regions: []domain.Region{{ID: "reg_us", CurrencyCode: "usd"}},
	}
	for i := 0; i < 23; i++ {
		cat.products = append(cat.products, publishedProduct(fmt.Sprintf("prod_%02d", i), fmt.Sprintf("Item %d", i), 100))
	}
	fix := newSyncFixture(t, cat, &fakeCMS{}, 5)

	result, err := fix.service.SyncProducts(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 23, result.Indexed)
	assert.Equal(t, 23, fix.products.Len())
}

func TestSyncProducts_SinglePageWithLimit(t *testing.T) {
	fix := newSyncFixture(t, standardCatalog(), &fakeCMS{}, 10)

	result, err := fix.service.SyncProducts(context.Background(), SyncOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Indexed)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, fix.products.Len())
}

func TestSyncProducts_CatalogOutageIsFatal(t *testing.T) {
	cat := standardCatalog()
	cat.failAll = true
	fix := newSyncFixture(t, cat, &fakeCMS{}, 10)

	_, err := fix.service.SyncProducts(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.Equal(t, 0, fix.products.Len())
	assert.Empty(t, fix.producer.published)
}

func TestSyncProducts_CMSOutageDegrades(t *testing.T) {
	cat := &fakeCatalog{
		regions: []domain.Region{{ID: "reg_us", CurrencyCode: "usd"}},
	}
	for i := 0; i < 50; i++ {
		cat.products = append(cat.products, publishedProduct(fmt.Sprintf("prod_%02d", i), fmt.Sprintf("Item %d", i), 100))
	}
	fix := newSyncFixture(t, cat, &fakeCMS{down: true}, 10)

	result, err := fix.service.SyncProducts(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 50, result.Indexed)
	assert.Equal(t, 50, fix.products.Len())

	doc, ok := fix.products.Document("prod_01")
	require.True(t, ok)
	assert.Equal(t, "", doc["description"])
}

// failingEngine rejects upserts after an optional number of successes.
type failingEngine struct {
	*memory.Engine
	failUpserts  bool
	allowUpserts int
}

func (f *failingEngine) UpsertDocuments(ctx context.Context, docs []engine.Document) error {
	if !f.failUpserts {
		return f.Engine.UpsertDocuments(ctx, docs)
	}
	if f.allowUpserts > 0 {
		f.allowUpserts--
		return f.Engine.UpsertDocuments(ctx, docs)
	}
	return errors.New("engine unavailable")
}

func TestSyncProducts_IndexFailurePropagates(t *testing.T) {
	fix := newSyncFixture(t, standardCatalog(), &fakeCMS{}, 10)
	failing := &failingEngine{Engine: fix.products, failUpserts: true}
	fix.service.engines.Products = failing

	_, err := fix.service.SyncProducts(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.Equal(t, 0, fix.products.Len())
	assert.Empty(t, fix.producer.published)
}

func TestSyncProducts_LaterPageFailureRollsBackEarlierPages(t *testing.T) {
	cat := &fakeCatalog{
		regions: []domain.Region{{ID: "reg_us", CurrencyCode: "usd"}},
	}
	for i := 0; i < 8; i++ {
		cat.products = append(cat.products, publishedProduct(fmt.Sprintf("prod_%d", i), fmt.Sprintf("Item %d", i), 100))
	}
	fix := newSyncFixture(t, cat, &fakeCMS{}, 5)
	// First page writes fine, the second page's upsert fails.
	fix.service.engines.Products = &failingEngine{Engine: fix.products, failUpserts: true, allowUpserts: 1}

	_, err := fix.service.SyncProducts(context.Background(), SyncOptions{})
	require.Error(t, err)
	assert.Equal(t, 0, fix.products.Len(), "documents from the first page must be compensated away")
	assert.Empty(t, fix.producer.published)
}

func TestSyncProducts_IDSetLargerThanPageSize(t *testing.T) {
	cat := &fakeCatalog{
		regions: []domain.Region{{ID: "reg_us", CurrencyCode: "usd"}},
	}
	var ids []string
	for i := 0; i < 8; i++ {
		id := fmt.Sprintf("prod_%d", i)
		ids = append(ids, id)
		cat.products = append(cat.products, publishedProduct(id, fmt.Sprintf("Item %d", i), 100))
	}
	fix := newSyncFixture(t, cat, &fakeCMS{}, 5)

	result, err := fix.service.SyncProducts(context.Background(), SyncOptions{IDs: ids})
	require.NoError(t, err)
	assert.Equal(t, 8, result.Indexed)
	assert.Equal(t, 8, fix.products.Len())
}

func TestSyncBrands(t *testing.T) {
	brandID := "brand_1"
	cat := standardCatalog()
	cat.brands = []domain.Brand{{ID: brandID, Name: "Acme", Handle: "acme"}}
	cat.products[0].BrandID = &brandID
	cat.products[1].BrandID = &brandID
	cat.products[3].BrandID = &brandID // draft, must not count

	cms := &fakeCMS{entries: map[string]domain.Enrichment{
		"brand/brand_1": {
			OwnerID:   brandID,
			OwnerKind: domain.KindBrand,
			Keywords:  []string{"sports", "running"},
		},
	}}
	fix := newSyncFixture(t, cat, cms, 10)

	result, err := fix.service.SyncBrands(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)

	doc, ok := fix.brands.Document("brand_1")
	require.True(t, ok)
	assert.Equal(t, float64(2), doc["product_count"])
	assert.Equal(t, []any{"sports", "running"}, doc["keywords"])
}

func TestSyncCategories(t *testing.T) {
	men, clothing := "cat_men", "cat_clothing"
	cat := standardCatalog()
	cat.categories = []domain.Category{
		{ID: men, Name: "Men", Handle: "men", IsActive: true},
		{ID: clothing, Name: "Clothing", Handle: "clothing", ParentID: &men, IsActive: true},
		{ID: "cat_shoes", Name: "Shoes", Handle: "shoes", ParentID: &clothing, IsActive: true},
		{ID: "cat_old", Name: "Retired", Handle: "retired", IsActive: false},
	}
	cat.products[0].Categories = []domain.CategoryRef{{ID: "cat_shoes", Name: "Shoes"}}
	fix := newSyncFixture(t, cat, &fakeCMS{}, 10)

	result, err := fix.service.SyncCategories(context.Background(), SyncOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Indexed)
	assert.Equal(t, 1, result.Deleted)

	shoes, ok := fix.cats.Document("cat_shoes")
	require.True(t, ok)
	assert.Equal(t, "Men > Clothing", shoes["display_path"])

	menDoc, ok := fix.cats.Document(men)
	require.True(t, ok)
	_, hasPath := menDoc["display_path"]
	assert.False(t, hasPath, "root category has no display path")

	_, retired := fix.cats.Document("cat_old")
	assert.False(t, retired)
}

func TestSyncProduct_AbsentIsDeleted(t *testing.T) {
	fix := newSyncFixture(t, standardCatalog(), &fakeCMS{}, 10)
	require.NoError(t, fix.products.UpsertDocuments(context.Background(), []engine.Document{
		{"id": "prod_gone", "title": "Ghost"},
	}))

	result, err := fix.service.SyncProduct(context.Background(), "prod_gone")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)
	assert.Equal(t, 0, result.Indexed)

	_, present := fix.products.Document("prod_gone")
	assert.False(t, present)
	assert.Empty(t, fix.cms.deleted, "index removal must not write to the content system")
}

func TestSyncProduct_UnpublishedIsDeleted(t *testing.T) {
	fix := newSyncFixture(t, standardCatalog(), &fakeCMS{}, 10)
	require.NoError(t, fix.products.UpsertDocuments(context.Background(), []engine.Document{
		{"id": "prod_4", "title": "Prototype"},
	}))

	result, err := fix.service.SyncProduct(context.Background(), "prod_4")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	_, present := fix.products.Document("prod_4")
	assert.False(t, present)
}

func TestSyncProduct_UnpublishedKeepsEnrichment(t *testing.T) {
	cms := &fakeCMS{entries: map[string]domain.Enrichment{
		"product/prod_4": {
			OwnerID:     "prod_4",
			OwnerKind:   domain.KindProduct,
			Description: "Draft editorial copy",
			Status:      domain.SyncStatusSynced,
		},
	}}
	fix := newSyncFixture(t, standardCatalog(), cms, 10)

	_, err := fix.service.SyncProduct(context.Background(), "prod_4")
	require.NoError(t, err)

	// Editors keep their copy for a later re-publish; it is only flagged.
	assert.Empty(t, cms.deleted)
	entry, ok := cms.entries["product/prod_4"]
	require.True(t, ok)
	assert.Equal(t, "Draft editorial copy", entry.Description)
	assert.Equal(t, domain.SyncStatusOutdated, entry.Status)
}

func TestSyncProduct_Reindexes(t *testing.T) {
	fix := newSyncFixture(t, standardCatalog(), &fakeCMS{}, 10)

	result, err := fix.service.SyncProduct(context.Background(), "prod_2")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Indexed)

	doc, ok := fix.products.Document("prod_2")
	require.True(t, ok)
	assert.Equal(t, "Walker", doc["title"])
	assert.Equal(t, float64(2500), doc["price_usd"])
}

func TestSyncCategory_InactiveIsDeleted(t *testing.T) {
	cat := standardCatalog()
	cat.categories = []domain.Category{{ID: "cat_old", Name: "Retired", IsActive: false}}
	fix := newSyncFixture(t, cat, &fakeCMS{}, 10)
	require.NoError(t, fix.cats.UpsertDocuments(context.Background(), []engine.Document{
		{"id": "cat_old", "name": "Retired"},
	}))

	result, err := fix.service.SyncCategory(context.Background(), "cat_old")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Deleted)

	_, present := fix.cats.Document("cat_old")
	assert.False(t, present)
}

func TestSyncSettings_AppliesAllThree(t *testing.T) {
	fix := newSyncFixture(t, standardCatalog(), &fakeCMS{}, 10)

	require.NoError(t, fix.service.SyncSettings(context.Background()))

	prod := fix.products.Settings()
	require.NotNil(t, prod)
	assert.Contains(t, prod.FilterableAttributes, "opt_color")
	assert.Contains(t, prod.FilterableAttributes, "price_usd")
	assert.NotNil(t, fix.brands.Settings())
	assert.NotNil(t, fix.cats.Settings())
}
