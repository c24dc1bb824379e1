package adapters

import (
	"encoding/json"
	"fmt"

	"storefront-harvester/internal/types"
)

// wordPressMapper handles the generic WordPress REST API (wp/v2) fallback,
// reached when both WooCommerce APIs are locked down. The product custom
// post type carries no commerce fields, so prices stay nil and stock is
// unknown.
type wordPressMapper struct{}

func (m *wordPressMapper) Shape() Shape { return ShapeWordPress }

type rendered struct {
	Rendered string `json:"rendered"`
}

type wpPost struct {
	ID       flexID   `json:"id"`
	Date     string   `json:"date"`
	Modified string   `json:"modified"`
	Slug     string   `json:"slug"`
	Link     string   `json:"link"`
	Title    rendered `json:"title"`
	Content  rendered `json:"content"`
	Excerpt  rendered `json:"excerpt"`
	Embedded struct {
		FeaturedMedia []struct {
			SourceURL string `json:"source_url"`
		} `json:"wp:featuredmedia"`
	} `json:"_embedded"`
}

func (m *wordPressMapper) MapProduct(raw json.RawMessage, origin string) (*types.Product, error) {
	var p wpPost
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("wp fallback product: %w", err)
	}
	if p.ID == "" {
		return nil, fmt.Errorf("wp fallback product: missing id")
	}

	images := []string{}
	for _, media := range p.Embedded.FeaturedMedia {
		if media.SourceURL != "" {
			images = append(images, absoluteURL(origin, media.SourceURL))
		}
	}

	return &types.Product{
		ID:               p.ID.String(),
		Name:             StripHTML(p.Title.Rendered),
		Description:      StripHTML(p.Content.Rendered),
		ShortDescription: StripHTML(p.Excerpt.Rendered),
		StockStatus:      types.StockUnknown,
		Categories:       []string{},
		Tags:             []string{},
		Images:           uniqueStrings(images),
		Attributes:       []types.Attribute{},
		URL:              absoluteURL(origin, p.Link),
		DateCreated:      p.Date,
		DateModified:     p.Modified,
	}, nil
}

type wpTerm struct {
	ID          flexID  `json:"id"`
	Name        string  `json:"name"`
	Slug        string  `json:"slug"`
	Description string  `json:"description"`
	Count       int     `json:"count"`
	Parent      *flexID `json:"parent"`
}

func (m *wordPressMapper) MapCollection(raw json.RawMessage, origin string) (*types.Collection, error) {
	var t wpTerm
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("wp fallback term: %w", err)
	}
	if t.ID == "" {
		return nil, fmt.Errorf("wp fallback term: missing id")
	}

	col := &types.Collection{
		ID:           t.ID.String(),
		Name:         StripHTML(t.Name),
		Slug:         t.Slug,
		Description:  StripHTML(t.Description),
		ProductCount: t.Count,
	}
	if t.Parent != nil && t.Parent.String() != "0" && t.Parent.String() != "" {
		col.ParentID = t.Parent.String()
	}
	return col, nil
}
