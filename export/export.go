// Package export serializes harvest results to CSV and JSON. Column names
// match the canonical record fields; multi-value fields are joined into a
// single cell with "; ".
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"storefront-harvester/internal/types"
)

var productColumns = []string{
	"id", "name", "description", "short_description", "sku",
	"price", "regular_price", "sale_price", "stock_status", "stock_quantity",
	"categories", "tags", "images", "attributes", "variation_count",
	"url", "date_created", "date_modified",
}

var collectionColumns = []string{
	"id", "name", "slug", "description", "product_count", "parent_id", "image_url",
}

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, result *types.HarvestResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// WriteCSV writes one row per record. Quoting follows standard CSV rules;
// nil prices and quantities become empty cells, never zeroes.
func WriteCSV(w io.Writer, result *types.HarvestResult) error {
	cw := csv.NewWriter(w)

	if result.Kind == types.KindCollections {
		if err := cw.Write(collectionColumns); err != nil {
			return err
		}
		for i := range result.Collections {
			if err := cw.Write(collectionRow(&result.Collections[i])); err != nil {
				return err
			}
		}
	} else {
		if err := cw.Write(productColumns); err != nil {
			return err
		}
		for i := range result.Products {
			if err := cw.Write(productRow(&result.Products[i])); err != nil {
				return err
			}
		}
	}

	cw.Flush()
	return cw.Error()
}

func productRow(p *types.Product) []string {
	attrs := make([]string, 0, len(p.Attributes))
	for _, a := range p.Attributes {
		attrs = append(attrs, fmt.Sprintf("%s: %s", a.Name, strings.Join(a.Options, ", ")))
	}

	return []string{
		p.ID,
		p.Name,
		p.Description,
		p.ShortDescription,
		p.SKU,
		decimal(p.Price),
		decimal(p.RegularPrice),
		decimal(p.SalePrice),
		string(p.StockStatus),
		quantity(p.StockQuantity),
		strings.Join(p.Categories, "; "),
		strings.Join(p.Tags, "; "),
		strings.Join(p.Images, "; "),
		strings.Join(attrs, "; "),
		strconv.Itoa(p.VariationCount),
		p.URL,
		p.DateCreated,
		p.DateModified,
	}
}

func collectionRow(c *types.Collection) []string {
	return []string{
		c.ID,
		c.Name,
		c.Slug,
		c.Description,
		strconv.Itoa(c.ProductCount),
		c.ParentID,
		c.ImageURL,
	}
}

func decimal(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func quantity(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}
