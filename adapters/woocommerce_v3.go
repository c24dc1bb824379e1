package adapters

import (
	"encoding/json"
	"fmt"

	"storefront-harvester/internal/types"
	"storefront-harvester/pricing"
)

// wooV3Mapper handles the WooCommerce REST API v3 (wc/v3). Prices are
// major-unit decimal strings; stock_status is exposed directly.
type wooV3Mapper struct {
	prices *pricing.Normalizer
}

func (m *wooV3Mapper) Shape() Shape { return ShapeWooV3 }

type wooV3Product struct {
	ID               flexID      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description"`
	SKU              string      `json:"sku"`
	Permalink        string      `json:"permalink"`
	Price            interface{} `json:"price"`
	RegularPrice     interface{} `json:"regular_price"`
	SalePrice        interface{} `json:"sale_price"`
	StockStatus      string      `json:"stock_status"`
	StockQuantity    *int        `json:"stock_quantity"`
	Categories       []namedRef  `json:"categories"`
	Tags             []namedRef  `json:"tags"`
	Images           []namedRef  `json:"images"`
	Variations       []json.RawMessage `json:"variations"`
	DateCreated      string      `json:"date_created"`
	DateModified     string      `json:"date_modified"`
	Attributes       []struct {
		Name    string   `json:"name"`
		Options []string `json:"options"`
	} `json:"attributes"`
}

func (m *wooV3Mapper) MapProduct(raw json.RawMessage, origin string) (*types.Product, error) {
	var p wooV3Product
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("rest v3 product: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("rest v3 product: missing id")
	}

	attrs := make([]types.Attribute, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		attrs = append(attrs, types.Attribute{
			Name:    a.Name,
			Options: uniqueStrings(a.Options),
		})
	}

	return &types.Product{
		ID:               p.ID.String(),
		Name:             StripHTML(p.Name),
		Description:      StripHTML(p.Description),
		ShortDescription: StripHTML(p.ShortDescription),
		SKU:              p.SKU,
		Price:            m.prices.Normalize(p.Price),
		RegularPrice:     m.prices.Normalize(p.RegularPrice),
		SalePrice:        m.prices.Normalize(p.SalePrice),
		StockStatus:      v3Stock(p.StockStatus),
		StockQuantity:    nonNegative(p.StockQuantity),
		Categories:       refNames(p.Categories),
		Tags:             refNames(p.Tags),
		Images:           refImages(origin, p.Images),
		Attributes:       attrs,
		VariationCount:   len(p.Variations),
		URL:              absoluteURL(origin, p.Permalink),
		DateCreated:      p.DateCreated,
		DateModified:     p.DateModified,
	}, nil
}

type wooV3Category struct {
	ID          flexID    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
	Parent      *flexID   `json:"parent"`
	Image       *namedRef `json:"image"`
}

func (m *wooV3Mapper) MapCollection(raw json.RawMessage, origin string) (*types.Collection, error) {
	var c wooV3Category
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("rest v3 category: %w", err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("rest v3 category: missing id")
	}

	col := &types.Collection{
		ID:           c.ID.String(),
		Name:         StripHTML(c.Name),
		Slug:         c.Slug,
		Description:  StripHTML(c.Description),
		ProductCount: c.Count,
	}
	if c.Parent != nil && c.Parent.String() != "0" && c.Parent.String() != "" {
		col.ParentID = c.Parent.String()
	}
	if c.Image != nil && c.Image.Src != "" {
		col.ImageURL = absoluteURL(origin, c.Image.Src)
	}
	return col, nil
}

// v3Stock maps wc/v3 stock_status values ("instock", "outofstock",
// "onbackorder") onto the canonical enum.
func v3Stock(s string) types.StockStatus {
	switch s {
	case "instock":
		return types.StockInStock
	case "outofstock", "onbackorder":
		return types.StockOutOfStock
	default:
		return types.StockUnknown
	}
}

func nonNegative(n *int) *int {
	if n == nil || *n < 0 {
		return nil
	}
	return n
}
