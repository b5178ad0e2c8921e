package transform

import (
	"strings"

	"github.com/primecart/search-sync/internal/domain"
)

// Category builds the search document for a category from the entity, its
// precomputed breadcrumb (root-to-parent ancestors, empty for roots) and
// its precomputed aggregated product count. The display path joins the
// ancestor names; a root category gets no breadcrumb and no display path.
func Category(c *domain.Category, breadcrumb domain.Breadcrumb, productCount int) *domain.CategoryDocument {
	doc := &domain.CategoryDocument{
		ID:           c.ID,
		Name:         c.Name,
		Handle:       c.Handle,
		ProductCount: productCount,
		Rank:         c.Rank,
		CreatedAtMs:  c.CreatedAt.UnixMilli(),
	}

	if c.ParentID != nil {
		doc.ParentID = *c.ParentID
	}

	if len(breadcrumb) > 0 {
		doc.Breadcrumb = breadcrumb
		names := make([]string, len(breadcrumb))
		for i, crumb := range breadcrumb {
			names[i] = crumb.Name
		}
		doc.DisplayPath = strings.Join(names, domain.PathSeparator)
	}

	return doc
}
