package domain

import (
	"encoding/json"
	"strings"

	"github.com/primecart/search-sync/pkg/slug"
)

// Dynamic facet field prefixes. Per-currency prices surface as price_usd,
// price_aud, ...; flattened variant options as opt_color, opt_size, ...
const (
	PriceFieldPrefix  = "price_"
	OptionFieldPrefix = "opt_"
)

// PriceField returns the document field name for a currency code.
func PriceField(currencyCode string) string {
	return PriceFieldPrefix + strings.ToLower(currencyCode)
}

// OptionField returns the document field name for an option title,
// normalized to lower-case with spaces replaced by underscores.
func OptionField(title string) string {
	return OptionFieldPrefix + slug.Field(title)
}

// PathSeparator joins ancestor names into a human-readable category path.
const PathSeparator = " > "

// Crumb is one ancestor entry of a category breadcrumb.
type Crumb struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Breadcrumb is the ordered ancestor list of a category, root first. It
// excludes the category itself; a root category has an empty breadcrumb.
type Breadcrumb []Crumb

// ProductDocument is the flat, denormalized search record for a product.
// Relation arrays are always present (empty arrays are meaningful facets and
// must round-trip as []); Prices and Options are flattened into dynamically
// named top-level fields by MarshalJSON.
type ProductDocument struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Handle          string   `json:"handle"`
	Description     string   `json:"description"`
	Thumbnail       string   `json:"thumbnail"`
	Status          string   `json:"status"`
	BrandID         string   `json:"brand_id,omitempty"`
	CollectionID    string   `json:"collection_id,omitempty"`
	CollectionTitle string   `json:"collection_title,omitempty"`
	CategoryIDs     []string `json:"category_ids"`
	CategoryNames   []string `json:"category_names"`
	TagIDs          []string `json:"tag_ids"`
	TagValues       []string `json:"tag_values"`
	InStock         bool     `json:"in_stock"`
	OnSale          bool     `json:"on_sale"`
	CreatedAtMs     int64    `json:"created_at_ms"`
	UpdatedAtMs     int64    `json:"updated_at_ms"`

	// Prices maps currency code (lower-case) → lowest matching variant
	// amount. Options maps normalized option title → deduplicated observed
	// values. Both are flattened to price_<currency> / opt_<name> fields.
	Prices  map[string]int64    `json:"-"`
	Options map[string][]string `json:"-"`
}

// MarshalJSON flattens the dynamic price and option fields into the
// top-level document object.
func (d ProductDocument) MarshalJSON() ([]byte, error) {
	type alias ProductDocument

	base, err := json.Marshal(alias(d))
	if err != nil {
		return nil, err
	}

	var flat map[string]json.RawMessage
	if err := json.Unmarshal(base, &flat); err != nil {
		return nil, err
	}

	for code, amount := range d.Prices {
		raw, err := json.Marshal(amount)
		if err != nil {
			return nil, err
		}
		flat[PriceField(code)] = raw
	}
	for name, values := range d.Options {
		raw, err := json.Marshal(values)
		if err != nil {
			return nil, err
		}
		flat[OptionFieldPrefix+name] = raw
	}

	return json.Marshal(flat)
}

// BrandDocument is the flat search record for a brand. Optional enrichment
// arrays normalize empty→absent so the index can distinguish "no data" from
// "explicitly empty".
type BrandDocument struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Handle       string   `json:"handle"`
	Description  string   `json:"description,omitempty"`
	LogoURLs     []string `json:"logo_urls,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	ProductCount int      `json:"product_count"`
	CreatedAtMs  int64    `json:"created_at_ms"`
}

// CategoryDocument is the flat search record for a category. Breadcrumb and
// DisplayPath are absent for root categories.
type CategoryDocument struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Handle       string     `json:"handle"`
	ParentID     string     `json:"parent_id,omitempty"`
	Breadcrumb   Breadcrumb `json:"breadcrumb,omitempty"`
	DisplayPath  string     `json:"display_path,omitempty"`
	ProductCount int        `json:"product_count"`
	Rank         int        `json:"rank"`
	CreatedAtMs  int64      `json:"created_at_ms"`
}
