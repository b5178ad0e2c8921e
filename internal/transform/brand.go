package transform

import (
	"github.com/primecart/search-sync/internal/domain"
)

// Brand builds the search document for a brand. The product count is
// computed externally (a relation-count query against the catalog) and
// passed in. Enrichment supplies description, logo URLs and keywords;
// empty enrichment arrays normalize to absent fields so the index can
// distinguish "no data" from "explicitly empty".
func Brand(b *domain.Brand, enrichment *domain.Enrichment, productCount int) *domain.BrandDocument {
	doc := &domain.BrandDocument{
		ID:           b.ID,
		Name:         b.Name,
		Handle:       b.Handle,
		ProductCount: productCount,
		CreatedAtMs:  b.CreatedAt.UnixMilli(),
	}

	if enrichment == nil {
		return doc
	}

	doc.Description = enrichment.Description
	if len(enrichment.Media) > 0 {
		urls := make([]string, 0, len(enrichment.Media))
		for _, m := range enrichment.Media {
			if m.URL != "" {
				urls = append(urls, m.URL)
			}
		}
		if len(urls) > 0 {
			doc.LogoURLs = urls
		}
	}
	if len(enrichment.Keywords) > 0 {
		doc.Keywords = enrichment.Keywords
	}

	return doc
}
