// Package adapters maps the raw JSON records of each supported storefront
// API shape onto the canonical Product and Collection types. One mapper per
// (platform, shape) pair; new shapes are added as registry entries, not new
// call sites.
package adapters

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"storefront-harvester/internal/types"
	"storefront-harvester/pricing"
)

// Shape identifies which API variant a raw record came from.
type Shape string

const (
	ShapeWooStore  Shape = "woocommerce-store-v1"
	ShapeWooV3     Shape = "woocommerce-rest-v3"
	ShapeWordPress Shape = "woocommerce-wp-fallback"
	ShapeShopify   Shape = "shopify"
)

// Mapper converts one raw JSON record into a canonical record. Mappers are
// pure: the same raw input always produces the same output.
type Mapper interface {
	// Shape returns the shape this mapper handles.
	Shape() Shape

	// MapProduct maps one raw product record. origin is the storefront
	// origin, used to absolutize permalinks and image URLs.
	MapProduct(raw json.RawMessage, origin string) (*types.Product, error)

	// MapCollection maps one raw category/collection record.
	MapCollection(raw json.RawMessage, origin string) (*types.Collection, error)
}

// Registry dispatches raw records to the mapper for the committed shape.
type Registry struct {
	mappers map[Shape]Mapper
}

// NewRegistry builds the registry with every known shape wired in.
func NewRegistry(prices *pricing.Normalizer) *Registry {
	r := &Registry{mappers: make(map[Shape]Mapper)}
	for _, m := range []Mapper{
		&wooStoreMapper{prices: prices},
		&wooV3Mapper{prices: prices},
		&wordPressMapper{},
		&shopifyMapper{prices: prices},
	} {
		r.mappers[m.Shape()] = m
	}
	return r
}

// ForShape returns the mapper for the given shape.
func (r *Registry) ForShape(shape Shape) (Mapper, error) {
	m, ok := r.mappers[shape]
	if !ok {
		return nil, fmt.Errorf("no mapper registered for shape %q", shape)
	}
	return m, nil
}

var (
	htmlTags   = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// StripHTML removes tags in a single pass, collapses whitespace runs to one
// space, and trims.
func StripHTML(s string) string {
	s = htmlTags.ReplaceAllString(s, " ")
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// uniqueStrings deduplicates preserving first-seen order, dropping empties.
func uniqueStrings(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// absoluteURL resolves href against the origin when it is not already
// absolute. Unparseable inputs are returned unchanged.
func absoluteURL(origin, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	base, err := url.Parse(origin)
	if err != nil {
		return href
	}
	return base.ResolveReference(u).String()
}

// flexID decodes JSON ids that arrive as either numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id is neither string nor number: %s", string(data))
	}
	*f = flexID(n.String())
	return nil
}

func (f flexID) String() string { return string(f) }

// namedRef is the common {id, name, ...} element of WooCommerce category,
// tag and image arrays.
type namedRef struct {
	ID   flexID `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Src  string `json:"src"`
}

func refNames(refs []namedRef) []string {
	names := make([]string, 0, len(refs))
	for _, r := range refs {
		names = append(names, r.Name)
	}
	return uniqueStrings(names)
}

func refImages(origin string, refs []namedRef) []string {
	srcs := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.Src == "" {
			continue
		}
		srcs = append(srcs, absoluteURL(origin, r.Src))
	}
	return uniqueStrings(srcs)
}

func boolStock(available bool) types.StockStatus {
	if available {
		return types.StockInStock
	}
	return types.StockOutOfStock
}
