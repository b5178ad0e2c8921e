package event

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/primecart/search-sync/internal/catalog"
	"github.com/primecart/search-sync/internal/content"
	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/engine"
	"github.com/primecart/search-sync/internal/engine/memory"
	"github.com/primecart/search-sync/internal/service"
	"github.com/primecart/search-sync/pkg/httpclient"
	pkgkafka "github.com/primecart/search-sync/pkg/kafka"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// catalogFixture answers the query API with a single published product and
// one brand; everything else is empty.
func catalogFixture(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var q catalog.Query
		require.NoError(t, json.NewDecoder(r.Body).Decode(&q))

		var data any
		count := 0
		switch q.Entity {
		case "product":
			if ids, ok := q.Filters["id"].([]any); ok && len(ids) == 1 && ids[0] == "prod_1" {
				data = []domain.Product{{
					ID:     "prod_1",
					Title:  "Runner",
					Status: domain.ProductStatusPublished,
					Variants: []domain.Variant{{
						ID:                "var_1",
						InventoryQuantity: 1,
						Prices:            []domain.Price{{Amount: 900, CurrencyCode: "usd"}},
					}},
				}}
				count = 1
			} else {
				data = []domain.Product{}
			}
		case "brand":
			if ids, ok := q.Filters["id"].([]any); ok && len(ids) == 1 && ids[0] == "brand_1" {
				data = []domain.Brand{{ID: "brand_1", Name: "Acme", Handle: "acme"}}
				count = 1
			} else {
				data = []domain.Brand{}
			}
		case "region":
			data = []domain.Region{{ID: "reg_us", CurrencyCode: "usd"}}
			count = 1
		default:
			data = []any{}
		}

		raw, err := json.Marshal(data)
		require.NoError(t, err)
		err = json.NewEncoder(w).Encode(map[string]any{"data": json.RawMessage(raw), "count": count})
		require.NoError(t, err)
	}))
	t.Cleanup(server.Close)
	return server
}

func newTestConsumer(t *testing.T) (*Consumer, *memory.Engine, *memory.Engine) {
	t.Helper()

	catServer := catalogFixture(t)
	cmsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(cmsServer.Close)

	logger := testLogger()
	catClient := catalog.NewClient(catServer.URL, httpclient.New(httpclient.TightConfig()), logger)
	cmsCfg := httpclient.Config{Timeout: time.Second, MaxRetries: 0, MaxConnsPerHost: 10}
	cmsClient := content.NewClient(cmsServer.URL, "", httpclient.New(cmsCfg), logger)
	enricher := content.NewEnricher(cmsClient, 2, logger)

	products := memory.New()
	brands := memory.New()
	syncService := service.NewSyncService(catClient, enricher, cmsClient, service.Engines{
		Products:   products,
		Brands:     brands,
		Categories: memory.New(),
	}, nil, 10, logger)

	return NewConsumer(syncService, logger), products, brands
}

func makeEvent(t *testing.T, eventType string, data any) *pkgkafka.Event {
	t.Helper()
	event, err := pkgkafka.NewEvent(eventType, "agg", "test", "test", data)
	require.NoError(t, err)
	return event
}

func TestHandle_ProductUpdated_Reindexes(t *testing.T) {
	consumer, products, _ := newTestConsumer(t)

	event := makeEvent(t, TopicProductUpdated, ProductEventData{ID: "prod_1"})
	require.NoError(t, consumer.Handle(context.Background(), event))

	doc, ok := products.Document("prod_1")
	require.True(t, ok)
	assert.Equal(t, "Runner", doc["title"])
}

func TestHandle_ProductDeleted_RemovesAbsentProduct(t *testing.T) {
	consumer, products, _ := newTestConsumer(t)
	require.NoError(t, products.UpsertDocuments(context.Background(), []engine.Document{
		{"id": "prod_gone", "title": "Ghost"},
	}))

	event := makeEvent(t, TopicProductDeleted, ProductEventData{ID: "prod_gone"})
	require.NoError(t, consumer.Handle(context.Background(), event))

	_, present := products.Document("prod_gone")
	assert.False(t, present)
}

func TestHandle_ContentEvent_ResyncsBrandOwner(t *testing.T) {
	consumer, _, brands := newTestConsumer(t)

	event := makeEvent(t, TopicContentUpdated, ContentEventData{OwnerID: "brand_1", OwnerKind: "brand"})
	require.NoError(t, consumer.Handle(context.Background(), event))

	doc, ok := brands.Document("brand_1")
	require.True(t, ok)
	assert.Equal(t, "Acme", doc["name"])
}

func TestHandle_ContentEvent_InvalidKind(t *testing.T) {
	consumer, _, _ := newTestConsumer(t)

	event := makeEvent(t, TopicContentCreated, ContentEventData{OwnerID: "x_1", OwnerKind: "warehouse"})
	assert.Error(t, consumer.Handle(context.Background(), event))
}

func TestHandle_ProductEvent_MissingID(t *testing.T) {
	consumer, _, _ := newTestConsumer(t)

	event := makeEvent(t, TopicProductCreated, ProductEventData{})
	assert.Error(t, consumer.Handle(context.Background(), event))
}

func TestHandle_UnknownEventType_Dropped(t *testing.T) {
	consumer, _, _ := newTestConsumer(t)

	event := makeEvent(t, "commerce.order.created", map[string]string{"id": "ord_1"})
	assert.NoError(t, consumer.Handle(context.Background(), event))
}

func TestTopics_CoverProductAndContent(t *testing.T) {
	topics := Topics()
	assert.Len(t, topics, 6)
	assert.Contains(t, topics, TopicProductDeleted)
	assert.Contains(t, topics, TopicContentDeleted)
}
