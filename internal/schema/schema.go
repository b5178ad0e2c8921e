// Package schema derives the desired search-index configuration from live
// catalog metadata. Computation is pure: the same option titles and
// currencies always produce the same Settings, so applying the result is
// idempotent and unit-testable without an index connection.
package schema

import (
	"sort"

	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/internal/engine"
)

// Ranking rule order shared by all indexes.
var rankingRules = []string{"words", "typo", "proximity", "attribute", "sort", "exactness"}

func defaultTypoTolerance() engine.TypoTolerance {
	return engine.TypoTolerance{Enabled: true, OneTypo: 5, TwoTypos: 9}
}

const (
	maxValuesPerFacet = 100
	maxTotalHits      = 10000
)

// Products computes the product-index schema from the current set of active
// option titles and active region currencies. Dynamic facet fields
// (opt_<name>, price_<currency>) are derived with the same normalization
// the transformer uses, so schema and documents always agree.
func Products(optionTitles []string, currencies []string) *engine.Settings {
	optionFields := normalizeAll(optionTitles, domain.OptionField)
	priceFields := normalizeAll(currencies, domain.PriceField)

	filterable := []string{
		"brand_id", "category_ids", "category_names", "collection_id",
		"tag_values", "status", "in_stock", "on_sale",
	}
	filterable = append(filterable, optionFields...)
	filterable = append(filterable, priceFields...)

	sortable := []string{"created_at_ms", "updated_at_ms"}
	sortable = append(sortable, priceFields...)

	return &engine.Settings{
		SearchableAttributes: []string{"title", "description", "category_names", "collection_title", "tag_values"},
		FilterableAttributes: filterable,
		SortableAttributes:   sortable,
		DisplayedAttributes:  []string{"*"},
		RankingRules:         rankingRules,
		TypoTolerance:        defaultTypoTolerance(),
		MaxValuesPerFacet:    maxValuesPerFacet,
		MaxTotalHits:         maxTotalHits,
	}
}

// Brands computes the brand-index schema. It is static: brand documents
// carry no runtime-discovered fields.
func Brands() *engine.Settings {
	return &engine.Settings{
		SearchableAttributes: []string{"name", "description", "keywords"},
		FilterableAttributes: []string{"id", "handle"},
		SortableAttributes:   []string{"name", "product_count", "created_at_ms"},
		DisplayedAttributes:  []string{"*"},
		RankingRules:         rankingRules,
		TypoTolerance:        defaultTypoTolerance(),
		MaxValuesPerFacet:    maxValuesPerFacet,
		MaxTotalHits:         maxTotalHits,
	}
}

// Categories computes the category-index schema.
func Categories() *engine.Settings {
	return &engine.Settings{
		SearchableAttributes: []string{"name", "display_path"},
		FilterableAttributes: []string{"id", "parent_id", "handle"},
		SortableAttributes:   []string{"name", "rank", "product_count", "created_at_ms"},
		DisplayedAttributes:  []string{"*"},
		RankingRules:         rankingRules,
		TypoTolerance:        defaultTypoTolerance(),
		MaxValuesPerFacet:    maxValuesPerFacet,
		MaxTotalHits:         maxTotalHits,
	}
}

// normalizeAll maps raw values through the field-name derivation,
// deduplicates, drops empties, and sorts for stable output.
func normalizeAll(values []string, field func(string) string) []string {
	seen := make(map[string]bool, len(values))
	var fields []string
	for _, v := range values {
		f := field(v)
		if f == field("") || seen[f] {
			continue
		}
		seen[f] = true
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}
