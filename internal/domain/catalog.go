package domain

import (
	"time"
)

// EntityKind identifies the catalog entity types this service synchronizes.
type EntityKind string

const (
	KindProduct  EntityKind = "product"
	KindBrand    EntityKind = "brand"
	KindCategory EntityKind = "category"
)

// ValidKinds returns the entity kinds the pipeline knows how to sync.
func ValidKinds() []EntityKind {
	return []EntityKind{KindProduct, KindBrand, KindCategory}
}

// IsValidKind checks whether the given string names a syncable entity kind.
func IsValidKind(s string) bool {
	for _, k := range ValidKinds() {
		if string(k) == s {
			return true
		}
	}
	return false
}

// Product lifecycle states as reported by the catalog.
const (
	ProductStatusDraft     = "draft"
	ProductStatusProposed  = "proposed"
	ProductStatusPublished = "published"
	ProductStatusRejected  = "rejected"
)

// Product is an immutable snapshot of a catalog product, fetched per sync run.
type Product struct {
	ID           string       `json:"id"`
	Title        string       `json:"title"`
	Handle       string       `json:"handle"`
	Description  string       `json:"description"`
	Thumbnail    string       `json:"thumbnail"`
	Status       string       `json:"status"`
	BrandID      *string      `json:"brand_id,omitempty"`
	Collection   *Collection  `json:"collection,omitempty"`
	Categories   []CategoryRef `json:"categories"`
	Tags         []Tag        `json:"tags"`
	Variants     []Variant    `json:"variants"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// Collection is the product collection relation projected by the fetcher.
type Collection struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// CategoryRef is the category relation as embedded on a product.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Tag is a product tag relation.
type Tag struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Variant is a purchasable product variant with its option values and prices.
type Variant struct {
	ID                string        `json:"id"`
	Title             string        `json:"title"`
	SKU               string        `json:"sku"`
	InventoryQuantity int64         `json:"inventory_quantity"`
	Options           []OptionValue `json:"options"`
	Prices            []Price       `json:"prices"`
}

// OptionValue is a single option assignment on a variant ("Color" → "Red").
// Title may be empty when the catalog projection only carries the option id;
// the transformer resolves it through a caller-supplied id→title map.
type OptionValue struct {
	OptionID string `json:"option_id"`
	Title    string `json:"title,omitempty"`
	Value    string `json:"value"`
}

// Price is a variant price rule. RegionID is set for region-specific rules;
// rules without a region match by currency code only. OriginalAmount is the
// pre-discount amount; zero means no discount applies.
type Price struct {
	Amount         int64   `json:"amount"`
	OriginalAmount int64   `json:"original_amount,omitempty"`
	CurrencyCode   string  `json:"currency_code"`
	RegionID       *string `json:"region_id,omitempty"`
}

// Brand is an immutable snapshot of a catalog brand.
type Brand struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	LogoURL   *string   `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Category is an immutable snapshot of a catalog category. The hierarchy is
// a single-parent chain: ParentID is nil for roots.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Handle    string    `json:"handle"`
	ParentID  *string   `json:"parent_id,omitempty"`
	IsActive  bool      `json:"is_active"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Region is one entry of the region pricing context: products are priced per
// region in that region's currency. Recomputed every run, never persisted.
type Region struct {
	ID           string `json:"id"`
	CurrencyCode string `json:"currency_code"`
}

// ProductCategoryRef is the minimal product projection used for category
// product-count aggregation: the product's status and its direct category
// assignments.
type ProductCategoryRef struct {
	ID          string   `json:"id"`
	Status      string   `json:"status"`
	CategoryIDs []string `json:"category_ids"`
}
