package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/engine"
	"github.com/primecart/search-sync/internal/hierarchy"
	"github.com/primecart/search-sync/internal/indexer"
	"github.com/primecart/search-sync/internal/transform"
)

// SyncProduct resynchronizes one product. A product that no longer exists in
// the catalog, or is no longer published, is removed from the index.
func (s *SyncService) SyncProduct(ctx context.Context, id string) (*domain.SyncResult, error) {
	start := time.Now()
	result, err := s.syncProduct(ctx, id)
	s.observeRun(ctx, domain.KindProduct, start, result, err)
	return result, err
}

func (s *SyncService) syncProduct(ctx context.Context, id string) (*domain.SyncResult, error) {
	product, err := s.catalog.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch product %s: %w", id, err)
	}

	if product == nil || product.Status != domain.ProductStatusPublished {
		return s.removeFromIndex(ctx, s.engines.Products, domain.KindProduct, id)
	}

	pctx, err := s.loadPricingContext(ctx)
	if err != nil {
		return nil, err
	}

	enrichments := s.enricher.Fetch(ctx, domain.KindProduct, []string{id})
	pd := transform.Product(product, enrichments[0].Content, pctx.regions, pctx.optionTitles)
	return s.writeOne(ctx, s.engines.Products, domain.KindProduct, pd)
}

// SyncBrand resynchronizes one brand, removing it when absent.
func (s *SyncService) SyncBrand(ctx context.Context, id string) (*domain.SyncResult, error) {
	start := time.Now()
	result, err := s.syncBrand(ctx, id)
	s.observeRun(ctx, domain.KindBrand, start, result, err)
	return result, err
}

func (s *SyncService) syncBrand(ctx context.Context, id string) (*domain.SyncResult, error) {
	brand, err := s.catalog.GetBrand(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch brand %s: %w", id, err)
	}
	if brand == nil {
		return s.removeFromIndex(ctx, s.engines.Brands, domain.KindBrand, id)
	}

	count, err := s.catalog.CountProductsByBrand(ctx, id)
	if err != nil {
		return nil, err
	}
	enrichments := s.enricher.Fetch(ctx, domain.KindBrand, []string{id})
	bd := transform.Brand(brand, enrichments[0].Content, count)
	return s.writeOne(ctx, s.engines.Brands, domain.KindBrand, bd)
}

// SyncCategory resynchronizes one category, removing it when absent or
// inactive. The full tree is loaded for ancestry and counts.
func (s *SyncService) SyncCategory(ctx context.Context, id string) (*domain.SyncResult, error) {
	start := time.Now()
	result, err := s.syncCategory(ctx, id)
	s.observeRun(ctx, domain.KindCategory, start, result, err)
	return result, err
}

func (s *SyncService) syncCategory(ctx context.Context, id string) (*domain.SyncResult, error) {
	category, err := s.catalog.GetCategory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch category %s: %w", id, err)
	}
	if category == nil || !category.IsActive {
		return s.removeFromIndex(ctx, s.engines.Categories, domain.KindCategory, id)
	}

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
	breadcrumb, err := hierarchy.Ancestors(id, byID)
	if err != nil {
		return nil, fmt.Errorf("breadcrumb for category %s: %w", id, err)
	}

	cd := transform.Category(category, breadcrumb, counts[id])
	return s.writeOne(ctx, s.engines.Categories, domain.KindCategory, cd)
}

// writeOne indexes a single document transactionally.
func (s *SyncService) writeOne(ctx context.Context, eng engine.Engine, kind domain.EntityKind, v any) (*domain.SyncResult, error) {
	doc, err := toDocument(v)
	if err != nil {
		return nil, fmt.Errorf("transform %s: %w", kind, err)
	}

	txn := indexer.Begin(eng, s.logger)
	if err := txn.Write(ctx, []engine.Document{doc}); err != nil {
		return nil, s.rollback(ctx, txn, kind, err)
	}
	txn.Commit()

	return &domain.SyncResult{Indexed: 1, Total: 1}, nil
}

// removeFromIndex deletes one entity's document. The enrichment entry stays
// in the content system (editors keep their copy for a later re-publish); it
// is only flagged outdated, best-effort.
func (s *SyncService) removeFromIndex(ctx context.Context, eng engine.Engine, kind domain.EntityKind, id string) (*domain.SyncResult, error) {
	txn := indexer.Begin(eng, s.logger)
	if err := txn.Delete(ctx, []string{id}); err != nil {
		return nil, s.rollback(ctx, txn, kind, err)
	}
	txn.Commit()

	if s.content != nil {
		if err := s.content.MarkOutdated(ctx, kind, id); err != nil {
			s.logger.WarnContext(ctx, "failed to flag enrichment entry outdated",
				slog.String("kind", string(kind)),
				slog.String("owner_id", id),
				slog.String("error", err.Error()),
			)
		}
	}

	return &domain.SyncResult{Deleted: 1, Total: 1}, nil
}
