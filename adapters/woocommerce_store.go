package adapters

import (
	"encoding/json"
	"fmt"

	"storefront-harvester/internal/types"
	"storefront-harvester/pricing"
)

// wooStoreMapper handles the WooCommerce Store API (wc/store/v1), the
// unauthenticated storefront surface. Prices arrive as minor-unit strings
// inside a nested prices object; availability is the is_in_stock boolean.
type wooStoreMapper struct {
	prices *pricing.Normalizer
}

func (m *wooStoreMapper) Shape() Shape { return ShapeWooStore }

type wooStoreProduct struct {
	ID               flexID     `json:"id"`
	Name             string     `json:"name"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"short_description"`
	SKU              string     `json:"sku"`
	Permalink        string     `json:"permalink"`
	IsInStock        bool       `json:"is_in_stock"`
	LowStockRemain   *int       `json:"low_stock_remaining"`
	Images           []namedRef `json:"images"`
	Categories       []namedRef `json:"categories"`
	Tags             []namedRef `json:"tags"`
	Variations       []json.RawMessage `json:"variations"`
	Prices           struct {
		Price        interface{} `json:"price"`
		RegularPrice interface{} `json:"regular_price"`
		SalePrice    interface{} `json:"sale_price"`
	} `json:"prices"`
	Attributes []struct {
		Name  string     `json:"name"`
		Terms []namedRef `json:"terms"`
	} `json:"attributes"`
}

func (m *wooStoreMapper) MapProduct(raw json.RawMessage, origin string) (*types.Product, error) {
	var p wooStoreProduct
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("store api product: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("store api product: missing id")
	}

	attrs := make([]types.Attribute, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		attrs = append(attrs, types.Attribute{
			Name:    a.Name,
			Options: refNames(a.Terms),
		})
	}

	return &types.Product{
		ID:               p.ID.String(),
		Name:             StripHTML(p.Name),
		Description:      StripHTML(p.Description),
		ShortDescription: StripHTML(p.ShortDescription),
		SKU:              p.SKU,
		Price:            m.prices.Normalize(p.Prices.Price),
		RegularPrice:     m.prices.Normalize(p.Prices.RegularPrice),
		SalePrice:        m.prices.Normalize(p.Prices.SalePrice),
		StockStatus:      boolStock(p.IsInStock),
		StockQuantity:    p.LowStockRemain,
		Categories:       refNames(p.Categories),
		Tags:             refNames(p.Tags),
		Images:           refImages(origin, p.Images),
		Attributes:       attrs,
		VariationCount:   len(p.Variations),
		URL:              absoluteURL(origin, p.Permalink),
	}, nil
}

type wooStoreCategory struct {
	ID          flexID `json:"id"`
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
	Count       int    `json:"count"`
	Parent      *flexID `json:"parent"`
	Image       *namedRef `json:"image"`
}

func (m *wooStoreMapper) MapCollection(raw json.RawMessage, origin string) (*types.Collection, error) {
	var c wooStoreCategory
	if err := json.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("store api category: %w", err)
	}
	if c.ID == "" {
		return nil, fmt.Errorf("store api category: missing id")
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
