package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/service"
	pkgkafka "github.com/primecart/search-sync/pkg/kafka"
)

// Kafka topics the synchronizer reacts to: catalog product lifecycle and
// content entry lifecycle. Both trigger a targeted resync, which re-reads
// the authoritative state instead of trusting the event payload.
const (
	TopicProductCreated = "commerce.product.created"
	TopicProductUpdated = "commerce.product.updated"
	TopicProductDeleted = "commerce.product.deleted"

	TopicContentCreated = "commerce.content.created"
	TopicContentUpdated = "commerce.content.updated"
	TopicContentDeleted = "commerce.content.deleted"
)

// Topics lists every topic the consumer subscribes to.
func Topics() []string {
	return []string{
		TopicProductCreated, TopicProductUpdated, TopicProductDeleted,
		TopicContentCreated, TopicContentUpdated, TopicContentDeleted,
	}
}

// ProductEventData is the product lifecycle payload. Only the id is used;
// the resync fetches the current product from the catalog.
type ProductEventData struct {
	ID string `json:"id"`
}

// ContentEventData is the content entry lifecycle payload: which catalog
// entity the changed entry belongs to.
type ContentEventData struct {
	OwnerID   string `json:"owner_id"`
	OwnerKind string `json:"owner_kind"`
}

// Consumer dispatches domain events to targeted resyncs.
type Consumer struct {
	sync   *service.SyncService
	logger *slog.Logger
}

// NewConsumer creates the event consumer.
func NewConsumer(sync *service.SyncService, logger *slog.Logger) *Consumer {
	return &Consumer{
		sync:   sync,
		logger: logger,
	}
}

// Handle processes one event by type. Unknown types are logged and dropped,
// not failed: failing would send them through retries into the DLQ.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductCreated, TopicProductUpdated, TopicProductDeleted:
		return c.handleProductEvent(ctx, event)
	case TopicContentCreated, TopicContentUpdated, TopicContentDeleted:
		return c.handleContentEvent(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

// handleProductEvent resyncs one product. Create, update and delete all
// converge on the same operation: the catalog is re-read and the index
// reflects whatever it says now, so stale or reordered events are harmless.
func (c *Consumer) handleProductEvent(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if data.ID == "" {
		return fmt.Errorf("%s: missing product id", event.EventType)
	}

	result, err := c.sync.SyncProduct(ctx, data.ID)
	if err != nil {
		return fmt.Errorf("resync product from %s: %w", event.EventType, err)
	}

	c.logger.InfoContext(ctx, "product resynced from event",
		slog.String("event_type", event.EventType),
		slog.String("product_id", data.ID),
		slog.Int("indexed", result.Indexed),
		slog.Int("deleted", result.Deleted),
	)
	return nil
}

// handleContentEvent resyncs the entity owning a changed content entry.
func (c *Consumer) handleContentEvent(ctx context.Context, event *pkgkafka.Event) error {
	var data ContentEventData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal %s data: %w", event.EventType, err)
	}
	if data.OwnerID == "" {
		return fmt.Errorf("%s: missing owner id", event.EventType)
	}
	if !domain.IsValidKind(data.OwnerKind) {
		return fmt.Errorf("%s: invalid owner kind %q", event.EventType, data.OwnerKind)
	}

	var (
		result *domain.SyncResult
		err    error
	)
	switch domain.EntityKind(data.OwnerKind) {
	case domain.KindProduct:
		result, err = c.sync.SyncProduct(ctx, data.OwnerID)
	case domain.KindBrand:
		result, err = c.sync.SyncBrand(ctx, data.OwnerID)
	case domain.KindCategory:
		result, err = c.sync.SyncCategory(ctx, data.OwnerID)
	}
	if err != nil {
		return fmt.Errorf("resync %s from %s: %w", data.OwnerKind, event.EventType, err)
	}

	c.logger.InfoContext(ctx, "owner resynced from content event",
		slog.String("event_type", event.EventType),
		slog.String("owner_kind", data.OwnerKind),
		slog.String("owner_id", data.OwnerID),
		slog.Int("indexed", result.Indexed),
	)
	return nil
}
