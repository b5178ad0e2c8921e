// Package service orchestrates the catalog→index synchronization pipeline:
// fetch, enrich, transform, aggregate, and transactional index writes.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/primecart/search-sync/internal/catalog"
	"github.com/primecart/search-sync/internal/content"
	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/engine"
	"github.com/primecart/search-sync/internal/hierarchy"
	"github.com/primecart/search-sync/internal/indexer"
	"github.com/primecart/search-sync/internal/transform"
	"github.com/primecart/search-sync/pkg/kafka"
	"github.com/primecart/search-sync/pkg/tracing"
)

// TopicSyncCompleted carries the result of each finished sync run.
const TopicSyncCompleted = "search.sync.completed"

const defaultPageSize = 50

// EventPublisher publishes pipeline events. Satisfied by *kafka.Producer.
type EventPublisher interface {
	Publish(ctx context.Context, topic string, event *kafka.Event) error
}

// Engines groups the three indexes the pipeline maintains.
type Engines struct {
	Products   engine.Engine
	Brands     engine.Engine
	Categories engine.Engine
}

// SyncOptions narrows a batch run to a page or an explicit id set. The zero
// value means "everything": the run walks all pages at the default size.
type SyncOptions struct {
	IDs    []string `json:"ids,omitempty"`
	Limit  int      `json:"limit,omitempty"`
	Offset int      `json:"offset,omitempty"`
}

// SyncService drives the synchronization pipeline end to end.
type SyncService struct {
	catalog  *catalog.Client
	enricher *content.Enricher
	content  *content.Client
	engines  Engines
	producer EventPublisher
	pageSize int
	tracer   trace.Tracer
	logger   *slog.Logger
}

// NewSyncService wires the pipeline. producer may be nil; completion events
// are then skipped. pageSize <= 0 selects the default.
func NewSyncService(
	cat *catalog.Client,
	enricher *content.Enricher,
	contentClient *content.Client,
	engines Engines,
	producer EventPublisher,
	pageSize int,
	logger *slog.Logger,
) *SyncService {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	return &SyncService{
		catalog:  cat,
		enricher: enricher,
		content:  contentClient,
		engines:  engines,
		producer: producer,
		pageSize: pageSize,
		tracer:   tracing.Tracer("search-sync"),
		logger:   logger,
	}
}

// toDocument flattens a typed document into the engine's map form through
// its JSON encoding, so dynamic price_* and opt_* fields materialize.
func toDocument(v any) (engine.Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var doc engine.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("flatten document: %w", err)
	}
	return doc, nil
}

// run wraps one batch run with a span, run metrics and the completion event.
func (s *SyncService) run(ctx context.Context, kind domain.EntityKind, fn func(context.Context) (*domain.SyncResult, error)) (*domain.SyncResult, error) {
	ctx, span := s.tracer.Start(ctx, "sync."+string(kind),
		trace.WithAttributes(attribute.String("sync.kind", string(kind))),
	)
	defer span.End()

	start := time.Now()
	result, err := fn(ctx)
	s.observeRun(ctx, kind, start, result, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("sync.indexed", result.Indexed),
		attribute.Int("sync.deleted", result.Deleted),
	)
	s.publishCompleted(ctx, kind, result)
	return result, nil
}

// observeRun records run metrics and logs the outcome.
func (s *SyncService) observeRun(ctx context.Context, kind domain.EntityKind, start time.Time, result *domain.SyncResult, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	syncRunsTotal.WithLabelValues(string(kind), status).Inc()
	syncDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	if err != nil {
		s.logger.ErrorContext(ctx, "sync run failed",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return
	}

	syncDocumentsTotal.WithLabelValues(string(kind), "indexed").Add(float64(result.Indexed))
	syncDocumentsTotal.WithLabelValues(string(kind), "deleted").Add(float64(result.Deleted))
	s.logger.InfoContext(ctx, "sync run completed",
		slog.String("kind", string(kind)),
		slog.Int("indexed", result.Indexed),
		slog.Int("deleted", result.Deleted),
		slog.Int("total", result.Total),
		slog.Duration("took", time.Since(start)),
	)
}

// publishCompleted emits the completion event. Best-effort: a publish
// failure never fails the run that produced the result.
func (s *SyncService) publishCompleted(ctx context.Context, kind domain.EntityKind, result *domain.SyncResult) {
	if s.producer == nil {
		return
	}
	event, err := kafka.NewEvent(TopicSyncCompleted, string(kind), string(kind), "search-sync", result)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build sync completion event", slog.String("error", err.Error()))
		return
	}
	if err := s.producer.Publish(ctx, TopicSyncCompleted, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish sync completion event",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}

// rollback compensates a failed transaction and wraps the original error.
func (s *SyncService) rollback(ctx context.Context, txn *indexer.Txn, kind domain.EntityKind, cause error) error {
	syncRollbacksTotal.WithLabelValues(string(kind)).Inc()
	if rbErr := txn.Rollback(ctx); rbErr != nil {
		s.logger.ErrorContext(ctx, "rollback incomplete after index failure",
			slog.String("kind", string(kind)),
			slog.String("rollback_error", rbErr.Error()),
		)
		return fmt.Errorf("index %s batch: %w (rollback: %v)", kind, cause, rbErr)
	}
	s.logger.WarnContext(ctx, "index batch rolled back",
		slog.String("kind", string(kind)),
		slog.String("error", cause.Error()),
	)
	return fmt.Errorf("index %s batch: %w", kind, cause)
}

// pricingContext is the per-run product transformation context.
type pricingContext struct {
	regions      []domain.Region
	optionTitles map[string]string
}

func (s *SyncService) loadPricingContext(ctx context.Context) (*pricingContext, error) {
	regions, err := s.catalog.ListRegions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load regions: %w", err)
	}
	titles, err := s.catalog.OptionTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load option titles: %w", err)
	}
	return &pricingContext{regions: regions, optionTitles: titles}, nil
}

// SyncProducts synchronizes products into the product index. With zero
// options it walks the whole catalog page by page; with a limit or id set it
// processes exactly that slice.
func (s *SyncService) SyncProducts(ctx context.Context, opts SyncOptions) (*domain.SyncResult, error) {
	return s.run(ctx, domain.KindProduct, func(ctx context.Context) (*domain.SyncResult, error) {
		return s.syncProducts(ctx, opts)
	})
}

func (s *SyncService) syncProducts(ctx context.Context, opts SyncOptions) (*domain.SyncResult, error) {
	s.applySettings(ctx)

	pctx, err := s.loadPricingContext(ctx)
	if err != nil {
		return nil, err
	}

	total := &domain.SyncResult{Offset: opts.Offset, Limit: opts.Limit}
	singlePage, limit := pageBounds(opts, s.pageSize)

	// One transaction spans the whole run: a failure on any page compensates
	// every page written before it.
	txn := indexer.Begin(s.engines.Products, s.logger)
	for offset := opts.Offset; ; offset += limit {
		products, count, err := s.catalog.ListProducts(ctx, catalog.ListOptions{
			IDs:    opts.IDs,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return nil, s.rollback(ctx, txn, domain.KindProduct, fmt.Errorf("fetch products: %w", err))
		}
		total.Total = count

		page, err := s.indexProductPage(ctx, txn, products, pctx)
		if err != nil {
			return nil, s.rollback(ctx, txn, domain.KindProduct, err)
		}
		total.Merge(page)

		if singlePage || offset+len(products) >= count || len(products) == 0 {
			break
		}
	}
	txn.Commit()

	return total, nil
}

// pageBounds derives the fetch page size from the options. An explicit id
// set is fetched whole, never truncated to the default page size.
func pageBounds(opts SyncOptions, pageSize int) (singlePage bool, limit int) {
	singlePage = opts.Limit > 0 || len(opts.IDs) > 0
	switch {
	case opts.Limit > 0:
		limit = opts.Limit
	case len(opts.IDs) > 0:
		limit = len(opts.IDs)
	default:
		limit = pageSize
	}
	return singlePage, limit
}

// indexProductPage enriches, transforms and writes one fetched page into the
// run's transaction. Non-published products in the page are removed from the
// index.
func (s *SyncService) indexProductPage(ctx context.Context, txn *indexer.Txn, products []domain.Product, pctx *pricingContext) (*domain.SyncResult, error) {
	published := make([]domain.Product, 0, len(products))
	var removeIDs []string
	for _, p := range products {
		if p.Status == domain.ProductStatusPublished {
			published = append(published, p)
		} else {
			removeIDs = append(removeIDs, p.ID)
		}
	}

	ownerIDs := make([]string, len(published))
	for i, p := range published {
		ownerIDs[i] = p.ID
	}
	enrichments := s.enricher.Fetch(ctx, domain.KindProduct, ownerIDs)

	docs := make([]engine.Document, 0, len(published))
	for i, p := range published {
		pd := transform.Product(&p, enrichments[i].Content, pctx.regions, pctx.optionTitles)
		doc, err := toDocument(pd)
		if err != nil {
			return nil, fmt.Errorf("transform product %s: %w", p.ID, err)
		}
		docs = append(docs, doc)
	}

	if err := txn.Write(ctx, docs); err != nil {
		return nil, err
	}
	if err := txn.Delete(ctx, removeIDs); err != nil {
		return nil, err
	}

	return &domain.SyncResult{Indexed: len(docs), Deleted: len(removeIDs)}, nil
}

// SyncBrands synchronizes brands into the brand index.
func (s *SyncService) SyncBrands(ctx context.Context, opts SyncOptions) (*domain.SyncResult, error) {
	return s.run(ctx, domain.KindBrand, func(ctx context.Context) (*domain.SyncResult, error) {
		return s.syncBrands(ctx, opts)
	})
}

func (s *SyncService) syncBrands(ctx context.Context, opts SyncOptions) (*domain.SyncResult, error) {
	s.applySettings(ctx)

	total := &domain.SyncResult{Offset: opts.Offset, Limit: opts.Limit}
	singlePage, limit := pageBounds(opts, s.pageSize)

	txn := indexer.Begin(s.engines.Brands, s.logger)
	for offset := opts.Offset; ; offset += limit {
		brands, count, err := s.catalog.ListBrands(ctx, catalog.ListOptions{
			IDs:    opts.IDs,
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			return nil, s.rollback(ctx, txn, domain.KindBrand, fmt.Errorf("fetch brands: %w", err))
		}
		total.Total = count

		indexed, err := s.indexBrandPage(ctx, txn, brands)
		if err != nil {
			return nil, s.rollback(ctx, txn, domain.KindBrand, err)
		}
		total.Indexed += indexed

		if singlePage || offset+len(brands) >= count || len(brands) == 0 {
			break
		}
	}
	txn.Commit()

	return total, nil
}

func (s *SyncService) indexBrandPage(ctx context.Context, txn *indexer.Txn, brands []domain.Brand) (int, error) {
	ownerIDs := make([]string, len(brands))
	for i, b := range brands {
		ownerIDs[i] = b.ID
	}
	enrichments := s.enricher.Fetch(ctx, domain.KindBrand, ownerIDs)

	docs := make([]engine.Document, 0, len(brands))
	for i, b := range brands {
		count, err := s.catalog.CountProductsByBrand(ctx, b.ID)
		if err != nil {
			return 0, err
		}
		bd := transform.Brand(&b, enrichments[i].Content, count)
		doc, err := toDocument(bd)
		if err != nil {
			return 0, fmt.Errorf("transform brand %s: %w", b.ID, err)
		}
		docs = append(docs, doc)
	}

	if err := txn.Write(ctx, docs); err != nil {
		return 0, err
	}

	return len(docs), nil
}

// SyncCategories synchronizes categories into the category index. The whole
// tree and all product-category assignments are loaded regardless of the
// requested page: breadcrumbs and rolled-up counts need them.
func (s *SyncService) SyncCategories(ctx context.Context, opts SyncOptions) (*domain.SyncResult, error) {
	return s.run(ctx, domain.KindCategory, func(ctx context.Context) (*domain.SyncResult, error) {
		return s.syncCategories(ctx, opts)
	})
}

func (s *SyncService) syncCategories(ctx context.Context, opts SyncOptions) (*domain.SyncResult, error) {
	s.applySettings(ctx)

	tree, err := s.catalog.ListAllCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch category tree: %w", err)
	}
	refs, err := s.catalog.ListProductCategoryRefs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch product category refs: %w", err)
	}

	byID := hierarchy.ByID(tree)
	counts, err := hierarchy.Aggregate(tree, hierarchy.DirectCounts(refs))
	if err != nil {
		return nil, fmt.Errorf("aggregate category counts: %w", err)
	}

	selected := selectCategories(tree, opts)
	total := &domain.SyncResult{Total: len(tree), Offset: opts.Offset, Limit: opts.Limit}

	docs := make([]engine.Document, 0, len(selected))
	var removeIDs []string
	for _, c := range selected {
		if !c.IsActive {
			removeIDs = append(removeIDs, c.ID)
			continue
		}
		breadcrumb, err := hierarchy.Ancestors(c.ID, byID)
		if err != nil {
			return nil, fmt.Errorf("breadcrumb for category %s: %w", c.ID, err)
		}
		cd := transform.Category(&c, breadcrumb, counts[c.ID])
		doc, err := toDocument(cd)
		if err != nil {
			return nil, fmt.Errorf("transform category %s: %w", c.ID, err)
		}
		docs = append(docs, doc)
	}

	txn := indexer.Begin(s.engines.Categories, s.logger)
	if err := txn.Write(ctx, docs); err != nil {
		return nil, s.rollback(ctx, txn, domain.KindCategory, err)
	}
	if err := txn.Delete(ctx, removeIDs); err != nil {
		return nil, s.rollback(ctx, txn, domain.KindCategory, err)
	}
	txn.Commit()

	total.Indexed = len(docs)
	total.Deleted = len(removeIDs)
	return total, nil
}

// selectCategories applies opts to the already-loaded tree. Categories are
// few relative to products, so paging happens in memory.
func selectCategories(tree []domain.Category, opts SyncOptions) []domain.Category {
	if len(opts.IDs) > 0 {
		want := make(map[string]bool, len(opts.IDs))
		for _, id := range opts.IDs {
			want[id] = true
		}
		selected := make([]domain.Category, 0, len(opts.IDs))
		for _, c := range tree {
			if want[c.ID] {
				selected = append(selected, c)
			}
		}
		return selected
	}
	if opts.Limit <= 0 {
		return tree
	}
	if opts.Offset >= len(tree) {
		return nil
	}
	end := opts.Offset + opts.Limit
	if end > len(tree) {
		end = len(tree)
	}
	return tree[opts.Offset:end]
}
