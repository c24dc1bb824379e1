package adapters

import (
	"encoding/json"
	"fmt"
	"strings"

	"storefront-harvester/internal/types"
	"storefront-harvester/pricing"
)

// shopifyMapper handles Shopify's public products.json/collections.json
// surface. Availability comes from the first variant, the permalink is
// derived from the handle, and product_type doubles as the category.
type shopifyMapper struct {
	prices *pricing.Normalizer
}

func (m *shopifyMapper) Shape() Shape { return ShapeShopify }

// shopifyTags decodes the tags field, which Shopify ships either as an
// array of strings or a single comma-separated string depending on the
// endpoint variant.
type shopifyTags []string

func (t *shopifyTags) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(data, &joined); err != nil {
		return fmt.Errorf("tags is neither array nor string: %s", string(data))
	}
	parts := strings.Split(joined, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	*t = out
	return nil
}

type shopifyVariant struct {
	Price          interface{} `json:"price"`
	CompareAtPrice interface{} `json:"compare_at_price"`
	SKU            string      `json:"sku"`
	Available      bool        `json:"available"`
}

type shopifyProduct struct {
	ID          flexID           `json:"id"`
	Title       string           `json:"title"`
	Handle      string           `json:"handle"`
	BodyHTML    string           `json:"body_html"`
	ProductType string           `json:"product_type"`
	Tags        shopifyTags      `json:"tags"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at"`
	Variants    []shopifyVariant `json:"variants"`
	Images      []namedRef       `json:"images"`
	Options     []struct {
		Name   string   `json:"name"`
		Values []string `json:"values"`
	} `json:"options"`
}

func (m *shopifyMapper) MapProduct(raw json.RawMessage, origin string) (*types.Product, error) {
	var p shopifyProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("shopify product: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("shopify product: missing id")
	}

	product := &types.Product{
		ID:             p.ID.String(),
		Name:           StripHTML(p.Title),
		Description:    StripHTML(p.BodyHTML),
		StockStatus:    types.StockUnknown,
		Categories:     []string{},
		Tags:           uniqueStrings(p.Tags),
		Images:         refImages(origin, p.Images),
		Attributes:     []types.Attribute{},
		VariationCount: len(p.Variants),
		DateCreated:    p.CreatedAt,
		DateModified:   p.UpdatedAt,
	}

	if p.ProductType != "" {
		product.Categories = []string{p.ProductType}
	}
	if p.Handle != "" {
		product.URL = absoluteURL(origin, "/products/"+p.Handle)
	}
	for _, o := range p.Options {
		product.Attributes = append(product.Attributes, types.Attribute{
			Name:    o.Name,
			Options: uniqueStrings(o.Values),
		})
	}
	if len(p.Variants) > 0 {
		first := p.Variants[0]
		product.SKU = first.SKU
		product.Price = m.prices.Normalize(first.Price)
		product.RegularPrice = m.prices.Normalize(first.CompareAtPrice)
		if product.RegularPrice == nil {
			product.RegularPrice = product.Price
		}
		product.StockStatus = boolStock(first.Available)
	}

	return product, nil
}

type shopifyCollection struct {
	ID            flexID    `json:"id"`
	Title         string    `json:"title"`
	Handle        string    `json:"handle"`
	Description   string    `json:"description"`
	BodyHTML      string    `json:"body_html"`
	ProductsCount int       `json:"products_count"`
	Image         *namedRef `json:"image"`
}

func (m *shopifyMapper) MapCollection(raw json.RawMessage, origin string) (*types.Collection, error) {
	var c shopifyCollection
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("shopify collection: %w", err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("shopify collection: missing id")
	}

	description := c.Description
	if description == "" {
		description = c.BodyHTML
	}

	col := &types.Collection{
		ID:           c.ID.String(),
		Name:         StripHTML(c.Title),
		Slug:         c.Handle,
		Description:  StripHTML(description),
		ProductCount: c.ProductsCount,
	}
	if c.Image != nil && c.Image.Src != "" {
		col.ImageURL = absoluteURL(origin, c.Image.Src)
	}
	return col, nil
}
