// Package transform maps catalog entities, together with optional
// enrichment content and pricing context, into flat search documents. All
// functions are pure and side-effect free; the document id always equals
// the source entity id.
package transform

import (
	"sort"

	"github.com/primecart/search-sync/internal/domain"
	"github.com/primecart/search-sync/pkg/slug"
)

// Product builds the search document for a product.
//
// Per active region, the lowest variant price matching that region is
// exposed under the region's currency code: a price rule carrying the
// region's id matches first; rules without a region id match by currency
// code. Regions with no matching variant price produce no field. When two
// regions share a currency, the lower of their results wins.
//
// optionTitles resolves option ids to display titles for variants whose
// option values carry only an id; unresolved ids produce no facet.
func Product(p *domain.Product, enrichment *domain.Enrichment, regions []domain.Region, optionTitles map[string]string) *domain.ProductDocument {
	doc := &domain.ProductDocument{
		ID:          p.ID,
		Title:       p.Title,
		Handle:      p.Handle,
		Description: p.Description,
		Thumbnail:   p.Thumbnail,
		Status:      p.Status,
		CreatedAtMs: p.CreatedAt.UnixMilli(),
		UpdatedAtMs: p.UpdatedAt.UnixMilli(),

		// Relation arrays are meaningful facets: empty stays [], never absent.
		CategoryIDs:   make([]string, 0, len(p.Categories)),
		CategoryNames: make([]string, 0, len(p.Categories)),
		TagIDs:        make([]string, 0, len(p.Tags)),
		TagValues:     make([]string, 0, len(p.Tags)),
		Prices:        make(map[string]int64),
		Options:       make(map[string][]string),
	}

	if p.BrandID != nil {
		doc.BrandID = *p.BrandID
	}
	if p.Collection != nil {
		doc.CollectionID = p.Collection.ID
		doc.CollectionTitle = p.Collection.Title
	}
	for _, c := range p.Categories {
		doc.CategoryIDs = append(doc.CategoryIDs, c.ID)
		doc.CategoryNames = append(doc.CategoryNames, c.Name)
	}
	for _, t := range p.Tags {
		doc.TagIDs = append(doc.TagIDs, t.ID)
		doc.TagValues = append(doc.TagValues, t.Value)
	}

	if enrichment != nil && enrichment.Description != "" {
		doc.Description = enrichment.Description
	}

	var totalInventory int64
	for _, v := range p.Variants {
		totalInventory += v.InventoryQuantity
		for _, price := range v.Prices {
			if price.OriginalAmount > 0 && price.Amount < price.OriginalAmount {
				doc.OnSale = true
			}
		}
	}
	doc.InStock = totalInventory > 0

	for _, region := range regions {
		if amount, ok := lowestRegionPrice(p.Variants, region); ok {
			key := normalizeCurrency(region.CurrencyCode)
			if existing, seen := doc.Prices[key]; !seen || amount < existing {
				doc.Prices[key] = amount
			}
		}
	}

	doc.Options = flattenOptions(p.Variants, optionTitles)

	return doc
}

// lowestRegionPrice finds the minimum variant price applicable to a region.
// Region-specific rules beat currency-code fallback rules within each
// variant; the minimum is taken across all variants.
func lowestRegionPrice(variants []domain.Variant, region domain.Region) (int64, bool) {
	var best int64
	found := false

	for _, v := range variants {
		amount, ok := variantRegionPrice(v, region)
		if !ok {
			continue
		}
		if !found || amount < best {
			best = amount
			found = true
		}
	}

	return best, found
}

func variantRegionPrice(v domain.Variant, region domain.Region) (int64, bool) {
	var fallback int64
	haveFallback := false

	for _, p := range v.Prices {
		if p.RegionID != nil {
			if *p.RegionID == region.ID {
				return p.Amount, true
			}
			continue
		}
		if normalizeCurrency(p.CurrencyCode) != normalizeCurrency(region.CurrencyCode) {
			continue
		}
		if !haveFallback || p.Amount < fallback {
			fallback = p.Amount
			haveFallback = true
		}
	}

	return fallback, haveFallback
}

// flattenOptions collects the deduplicated set of observed values per
// option, keyed by the normalized option title. Option values that carry
// neither a title nor a resolvable option id are dropped.
func flattenOptions(variants []domain.Variant, optionTitles map[string]string) map[string][]string {
	sets := make(map[string]map[string]bool)

	for _, v := range variants {
		for _, opt := range v.Options {
			title := opt.Title
			if title == "" {
				title = optionTitles[opt.OptionID]
			}
			if title == "" || opt.Value == "" {
				continue
			}

			key := slug.Field(title)
			if key == "" {
				continue
			}
			if sets[key] == nil {
				sets[key] = make(map[string]bool)
			}
			sets[key][opt.Value] = true
		}
	}

	flattened := make(map[string][]string, len(sets))
	for key, values := range sets {
		list := make([]string, 0, len(values))
		for value := range values {
			list = append(list, value)
		}
		sort.Strings(list)
		flattened[key] = list
	}
	return flattened
}

func normalizeCurrency(code string) string {
	return slug.Field(code)
}
