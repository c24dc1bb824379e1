package types

import "time"

// Platform identifies the commerce backend powering a storefront.
// It is a property of one origin during one harvest session, not a global.
type Platform string

const (
	PlatformWooCommerce Platform = "woocommerce"
	PlatformShopify     Platform = "shopify"
	PlatformUnknown     Platform = "unknown"
)

// Kind selects what a harvest collects.
type Kind string

const (
	KindProducts    Kind = "products"
	KindCollections Kind = "collections"
)

// StockStatus is the canonical availability value.
type StockStatus string

const (
	StockInStock    StockStatus = "in_stock"
	StockOutOfStock StockStatus = "out_of_stock"
	StockUnknown    StockStatus = "unknown"
)

// Attribute is a named option list on a product (e.g. Size: S, M, L).
type Attribute struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// Product is the canonical product record, independent of which API shape
// it was mapped from. Prices are decimal amounts in major currency units;
// nil means the source had no usable price. Categories, tags and images are
// never nil, absence is the empty slice.
type Product struct {
	ID               string      `json:"id"`
	Name             string      `json:"name"`
	Description      string      `json:"description"`
	ShortDescription string      `json:"short_description"`
	SKU              string      `json:"sku"`
	Price            *float64    `json:"price"`
	RegularPrice     *float64    `json:"regular_price"`
	SalePrice        *float64    `json:"sale_price"`
	StockStatus      StockStatus `json:"stock_status"`
	StockQuantity    *int        `json:"stock_quantity"`
	Categories       []string    `json:"categories"`
	Tags             []string    `json:"tags"`
	Images           []string    `json:"images"`
	Attributes       []Attribute `json:"attributes"`
	VariationCount   int         `json:"variation_count"`
	URL              string      `json:"url"`
	DateCreated      string      `json:"date_created,omitempty"`
	DateModified     string      `json:"date_modified,omitempty"`
}

// Collection is the canonical category record.
type Collection struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ProductCount int    `json:"product_count"`
	ParentID     string `json:"parent_id,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

// PageError records a non-fatal failure on one page of a committed endpoint.
type PageError struct {
	Page     int    `json:"page"`
	Endpoint string `json:"endpoint"`
	Reason   string `json:"reason"`
}

// HarvestResult is the immutable outcome of one harvest run. A subsequent
// harvest builds a new result, it never mutates a previous one.
type HarvestResult struct {
	Origin           string       `json:"origin"`
	Platform         Platform     `json:"platform"`
	Kind             Kind         `json:"kind"`
	Endpoint         string       `json:"endpoint"`
	Products         []Product    `json:"products,omitempty"`
	Collections      []Collection `json:"collections,omitempty"`
	PagesFetched     int          `json:"pages_fetched"`
	FallbackAttempts int          `json:"fallback_attempts"`
	SkippedRecords   int          `json:"skipped_records"`
	Errors           []PageError  `json:"errors,omitempty"`
	Cancelled        bool         `json:"cancelled"`
	HarvestedAt      time.Time    `json:"harvested_at"`
}

// Len returns the number of records in the result regardless of kind.
func (r *HarvestResult) Len() int {
	if r.Kind == KindCollections {
		return len(r.Collections)
	}
	return len(r.Products)
}

// ProgressFunc is invoked after each fetched page with the accumulated
// record count. total is -1 when the upstream API exposes no total.
type ProgressFunc func(current, total int)

// Config holds the tunable settings for a harvester.
type Config struct {
	PageSize           int
	RequestDelay       time.Duration
	Timeout            time.Duration
	ProbeTimeout       time.Duration
	MinorUnitThreshold float64
	BearerToken        string
	EnableHTMLFallback bool
	UseHeadlessBrowser bool
	UserAgent          string
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PageSize:           100,
		RequestDelay:       750 * time.Millisecond,
		Timeout:            20 * time.Second,
		ProbeTimeout:       8 * time.Second,
		MinorUnitThreshold: 1000,
		EnableHTMLFallback: false,
		UseHeadlessBrowser: false,
		UserAgent:          "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	}
}

// Logger defines the logging interface.
type Logger interface {
	Debug(args ...interface{})
	Info(args ...interface{})
	Warn(args ...interface{})
	Error(args ...interface{})
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}
