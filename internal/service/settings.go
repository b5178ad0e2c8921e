package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/primecart/search-sync/internal/engine"
	"github.com/primecart/search-sync/internal/schema"
)

// SyncSettings recomputes and applies the schemas of all three indexes.
// Idempotent: applying an unchanged schema is a no-op on the engine side.
func (s *SyncService) SyncSettings(ctx context.Context) error {
	titles, err := s.catalog.OptionTitles(ctx)
	if err != nil {
		return fmt.Errorf("load option titles: %w", err)
	}
	regions, err := s.catalog.ListRegions(ctx)
	if err != nil {
		return fmt.Errorf("load regions: %w", err)
	}

	distinctTitles := make([]string, 0, len(titles))
	seen := make(map[string]bool, len(titles))
	for _, t := range titles {
		if !seen[t] {
			seen[t] = true
			distinctTitles = append(distinctTitles, t)
		}
	}
	sort.Strings(distinctTitles)

	currencies := make([]string, 0, len(regions))
	seenCur := make(map[string]bool, len(regions))
	for _, r := range regions {
		if !seenCur[r.CurrencyCode] {
			seenCur[r.CurrencyCode] = true
			currencies = append(currencies, r.CurrencyCode)
		}
	}
	sort.Strings(currencies)

	targets := []struct {
		name     string
		eng      engine.Engine
		settings *engine.Settings
	}{
		{"products", s.engines.Products, schema.Products(distinctTitles, currencies)},
		{"brands", s.engines.Brands, schema.Brands()},
		{"categories", s.engines.Categories, schema.Categories()},
	}

	for _, t := range targets {
		if err := t.eng.UpdateSettings(ctx, t.settings); err != nil {
			return fmt.Errorf("apply %s settings: %w", t.name, err)
		}
		s.logger.InfoContext(ctx, "index settings applied", slog.String("index", t.name))
	}
	return nil
}

// applySettings runs SyncSettings at the start of a batch run. Failures are
// logged and swallowed: a stale schema degrades facets but never blocks
// document indexing.
func (s *SyncService) applySettings(ctx context.Context) {
	if err := s.SyncSettings(ctx); err != nil {
		s.logger.WarnContext(ctx, "settings sync failed, continuing with current schema",
			slog.String("error", err.Error()),
		)
	}
}
