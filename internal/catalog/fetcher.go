package catalog

import (
	"context"
	"fmt"

	"github.com/primecart/search-sync/internal/domain"
)

// refPageSize bounds the internally paginated reads that walk a whole
// entity set (category tree, product-category refs).
const refPageSize = 100

// Field projections per entity. Requesting only what the transformer reads
// keeps catalog responses small; adding a document field starts here.
var (
	productFields = []string{
		"id", "title", "handle", "description", "thumbnail", "status",
		"brand_id", "collection", "categories", "tags", "variants",
		"created_at", "updated_at",
	}
	brandFields = []string{
		"id", "name", "handle", "logo_url", "created_at",
	}
	categoryFields = []string{
		"id", "name", "handle", "parent_id", "is_active", "rank",
		"created_at", "updated_at",
	}
)

// ListOptions selects a page of entities, optionally narrowed to a set of IDs.
type ListOptions struct {
	IDs    []string
	Limit  int
	Offset int
}

func (o ListOptions) filters() map[string]any {
	if len(o.IDs) == 0 {
		return nil
	}
	return map[string]any{"id": o.IDs}
}

// ListProducts returns one page of products and the total count.
func (c *Client) ListProducts(ctx context.Context, opts ListOptions) ([]domain.Product, int, error) {
	var products []domain.Product
	count, err := c.query(ctx, Query{
		Entity:  "product",
		Fields:  productFields,
		Filters: opts.filters(),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}, &products)
	if err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

// GetProduct fetches a single product. A missing or deleted product returns
// (nil, nil); the caller treats absence as a removal signal.
func (c *Client) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	products, _, err := c.ListProducts(ctx, ListOptions{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, nil
	}
	return &products[0], nil
}

// ListBrands returns one page of brands and the total count.
func (c *Client) ListBrands(ctx context.Context, opts ListOptions) ([]domain.Brand, int, error) {
	var brands []domain.Brand
	count, err := c.query(ctx, Query{
		Entity:  "brand",
		Fields:  brandFields,
		Filters: opts.filters(),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}, &brands)
	if err != nil {
		return nil, 0, err
	}
	return brands, count, nil
}

// GetBrand fetches a single brand, returning (nil, nil) when absent.
func (c *Client) GetBrand(ctx context.Context, id string) (*domain.Brand, error) {
	brands, _, err := c.ListBrands(ctx, ListOptions{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(brands) == 0 {
		return nil, nil
	}
	return &brands[0], nil
}

// ListCategories returns one page of categories and the total count.
func (c *Client) ListCategories(ctx context.Context, opts ListOptions) ([]domain.Category, int, error) {
	var categories []domain.Category
	count, err := c.query(ctx, Query{
		Entity:  "product_category",
		Fields:  categoryFields,
		Filters: opts.filters(),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	}, &categories)
	if err != nil {
		return nil, 0, err
	}
	return categories, count, nil
}

// ListAllCategories walks every page of the category tree. Breadcrumbs and
// ancestry need the full tree regardless of which page is being indexed.
func (c *Client) ListAllCategories(ctx context.Context) ([]domain.Category, error) {
	var all []domain.Category
	for offset := 0; ; offset += refPageSize {
		page, count, err := c.ListCategories(ctx, ListOptions{Limit: refPageSize, Offset: offset})
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if offset+len(page) >= count || len(page) == 0 {
			break
		}
	}
	return all, nil
}

// GetCategory fetches a single category, returning (nil, nil) when absent.
func (c *Client) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	categories, _, err := c.ListCategories(ctx, ListOptions{IDs: []string{id}, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, nil
	}
	return &categories[0], nil
}

// ListRegions returns every active selling region with its currency.
// Retired regions must not contribute price fields to the schema.
func (c *Client) ListRegions(ctx context.Context) ([]domain.Region, error) {
	var regions []domain.Region
	if _, err := c.query(ctx, Query{
		Entity:  "region",
		Fields:  []string{"id", "currency_code"},
		Filters: map[string]any{"is_active": true},
		Limit:   refPageSize,
	}, &regions); err != nil {
		return nil, err
	}
	return regions, nil
}

// OptionTitles returns the option id → title lookup used to resolve variant
// option values into named document fields.
func (c *Client) OptionTitles(ctx context.Context) (map[string]string, error) {
	type option struct {
		ID    string `json:"id"`
		Title string `json:"title"`
	}

	titles := make(map[string]string)
	for offset := 0; ; offset += refPageSize {
		var page []option
		count, err := c.query(ctx, Query{
			Entity:  "product_option",
			Fields:  []string{"id", "title"},
			Filters: map[string]any{"is_active": true},
			Limit:   refPageSize,
			Offset:  offset,
		}, &page)
		if err != nil {
			return nil, err
		}
		for _, o := range page {
			titles[o.ID] = o.Title
		}
		if offset+len(page) >= count || len(page) == 0 {
			break
		}
	}
	return titles, nil
}

// ListProductCategoryRefs returns the category assignments of every product,
// paginating internally. Only id, status and category ids are projected: this
// feeds hierarchy counting, not document building.
func (c *Client) ListProductCategoryRefs(ctx context.Context) ([]domain.ProductCategoryRef, error) {
	var all []domain.ProductCategoryRef
	for offset := 0; ; offset += refPageSize {
		var page []domain.ProductCategoryRef
		count, err := c.query(ctx, Query{
			Entity: "product",
			Fields: []string{"id", "status", "category_ids"},
			Limit:  refPageSize,
			Offset: offset,
		}, &page)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if offset+len(page) >= count || len(page) == 0 {
			break
		}
	}
	return all, nil
}

// CountProductsByBrand returns how many published products carry the brand.
// A count-only query: one row is requested purely to get the total back.
func (c *Client) CountProductsByBrand(ctx context.Context, brandID string) (int, error) {
	count, err := c.query(ctx, Query{
		Entity: "product",
		Fields: []string{"id"},
		Filters: map[string]any{
			"brand_id": brandID,
			"status":   domain.ProductStatusPublished,
		},
		Limit: 1,
	}, nil)
	if err != nil {
		return 0, fmt.Errorf("count products for brand %s: %w", brandID, err)
	}
	return count, nil
}
