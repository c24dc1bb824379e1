package harvester

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"storefront-harvester/internal/types"
)

func testConfig() *types.Config {
	cfg := types.DefaultConfig()
	cfg.RequestDelay = time.Millisecond
	cfg.Timeout = 5 * time.Second
	cfg.ProbeTimeout = 5 * time.Second
	return cfg
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// storeProduct builds a minimal Store API product record.
func storeProduct(id int, name, category string) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"name":        name,
		"is_in_stock": true,
		"prices":      map[string]interface{}{"price": "1999"},
		"categories":  []map[string]interface{}{{"id": 1, "name": category}},
	}
}

func storeProducts(start, n int, category string) []interface{} {
	items := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		id := start + i
		items = append(items, storeProduct(id, "Product "+strconv.Itoa(id), category))
	}
	return items
}

// pagedJSON serves items sliced by the page and size query parameters,
// optionally wrapped in an envelope key the way Shopify does.
func pagedJSON(items []interface{}, sizeParam, envelope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		size, _ := strconv.Atoi(r.URL.Query().Get(sizeParam))
		if size < 1 {
			size = len(items)
		}
		lo := (page - 1) * size
		hi := lo + size
		if lo > len(items) {
			lo = len(items)
		}
		if hi > len(items) {
			hi = len(items)
		}
		slice := items[lo:hi]

		var payload interface{} = slice
		if envelope != "" {
			payload = map[string]interface{}{envelope: slice}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(payload)
	}
}

func TestHarvest_AccumulatesAllPages(t *testing.T) {
	items := storeProducts(1, 250, "Shoes")
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", pagedJSON(items, "per_page", ""))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(testConfig(), testLogger())
	result, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{})
	require.NoError(t, err)

	assert.Len(t, result.Products, 250)
	assert.Equal(t, 3, result.PagesFetched)
	assert.Equal(t, 1, result.FallbackAttempts)
	assert.Equal(t, types.PlatformWooCommerce, result.Platform)
	assert.Equal(t, srv.URL+"/wp-json/wc/store/v1/products", result.Endpoint)
	assert.Empty(t, result.Errors)
	assert.False(t, result.Cancelled)

	// Every record keeps a unique id.
	seen := make(map[string]struct{})
	for _, p := range result.Products {
		_, dup := seen[p.ID]
		assert.False(t, dup, "duplicate id %s", p.ID)
		seen[p.ID] = struct{}{}
	}
}

func TestHarvest_DedupFirstWins(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 2

	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var items []interface{}
		switch page {
		case 1:
			items = []interface{}{storeProduct(1, "First", "Shoes"), storeProduct(2, "Original", "Shoes")}
		case 2:
			items = []interface{}{storeProduct(2, "Duplicate", "Shoes")}
		}
		json.NewEncoder(w).Encode(items)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(cfg, testLogger())
	result, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{})
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "Original", result.Products[1].Name)
}

func TestHarvest_CategoryFilterCaseInsensitive(t *testing.T) {
	items := []interface{}{
		storeProduct(1, "Sneaker", "Shoes"),
		storeProduct(2, "Beanie", "Hats"),
		storeProduct(3, "Loafer", "Shoes"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", pagedJSON(items, "per_page", ""))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(testConfig(), testLogger())
	result, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{
		CategoryFilter: []string{"shoes"},
	})
	require.NoError(t, err)

	require.Len(t, result.Products, 2)
	assert.Equal(t, "Sneaker", result.Products[0].Name)
	assert.Equal(t, "Loafer", result.Products[1].Name)
}

func TestHarvest_SkipsMalformedRecords(t *testing.T) {
	items := []interface{}{
		storeProduct(1, "Good", "Shoes"),
		map[string]interface{}{"name": "no id here"},
		storeProduct(3, "Also Good", "Shoes"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", pagedJSON(items, "per_page", ""))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(testConfig(), testLogger())
	result, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{})
	require.NoError(t, err)

	assert.Len(t, result.Products, 2)
	assert.Equal(t, 1, result.SkippedRecords)
}

func TestHarvest_PartialFailureKeepsEarlierPages(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 2

	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page >= 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		start := (page-1)*2 + 1
		if page < 1 {
			start = 1
		}
		json.NewEncoder(w).Encode(storeProducts(start, 2, "Shoes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(cfg, testLogger())
	result, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{})
	require.NoError(t, err)

	assert.Len(t, result.Products, 4)
	assert.Equal(t, 2, result.PagesFetched)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Page)
	assert.Contains(t, result.Errors[0].Reason, "http_status")
}

func TestHarvest_UnsupportedPlatform(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	h := New(testConfig(), testLogger())
	_, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{})

	var unsupported *types.UnsupportedPlatformError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, srv.URL, unsupported.Origin)
}

func TestHarvest_InvalidOrigin(t *testing.T) {
	h := New(testConfig(), testLogger())

	_, err := h.Harvest(context.Background(), "ftp://example.com", types.KindProducts, Options{})
	assert.Error(t, err)

	_, err = h.Harvest(context.Background(), "not a url", types.KindProducts, Options{})
	assert.Error(t, err)
}

func TestHarvest_CancellationReturnsPartialResult(t *testing.T) {
	cfg := testConfig()
	cfg.PageSize = 2

	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		if page < 1 {
			page = 1
		}
		// Endless catalog: every page is full.
		json.NewEncoder(w).Encode(storeProducts((page-1)*2+1, 2, "Shoes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := New(cfg, testLogger())
	result, err := h.Harvest(ctx, srv.URL, types.KindProducts, Options{
		Progress: func(current, total int) {
			if current >= 2 {
				cancel()
			}
		},
	})
	require.NoError(t, err)

	assert.True(t, result.Cancelled)
	assert.NotEmpty(t, result.Products)
}

func TestHarvest_ShopifyCollections(t *testing.T) {
	collections := []interface{}{
		map[string]interface{}{"id": 10, "title": "Summer", "handle": "summer", "products_count": 4},
		map[string]interface{}{"id": 11, "title": "Winter", "handle": "winter", "products_count": 7},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/products.json", pagedJSON(nil, "limit", "products"))
	mux.HandleFunc("/collections.json", pagedJSON(collections, "limit", "collections"))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(testConfig(), testLogger())
	result, err := h.Harvest(context.Background(), srv.URL, types.KindCollections, Options{})
	require.NoError(t, err)

	assert.Equal(t, types.PlatformShopify, result.Platform)
	require.Len(t, result.Collections, 2)
	assert.Equal(t, "Summer", result.Collections[0].Name)
	assert.Equal(t, "winter", result.Collections[1].Slug)
}

func TestHarvestCollectionProducts_FiltersBySlug(t *testing.T) {
	items := []interface{}{
		storeProduct(1, "Sneaker", "summer-shoes"),
		storeProduct(2, "Beanie", "Hats"),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", pagedJSON(items, "per_page", ""))
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(testConfig(), testLogger())
	col := types.Collection{ID: "5", Name: "Summer Shoes", Slug: "summer-shoes"}
	result, err := h.HarvestCollectionProducts(context.Background(), srv.URL, col, Options{})
	require.NoError(t, err)

	require.Len(t, result.Products, 1)
	assert.Equal(t, "Sneaker", result.Products[0].Name)
}

func TestPlatform_CachedPerSession(t *testing.T) {
	probes := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", func(w http.ResponseWriter, r *http.Request) {
		// Detection probes carry no query string; paginated fetches do.
		if r.URL.RawQuery == "" {
			probes++
		}
		json.NewEncoder(w).Encode(storeProducts(1, 1, "Shoes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	h := New(testConfig(), testLogger())
	_, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{})
	require.NoError(t, err)
	_, err = h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, probes)
}

func TestNormalizeOrigin(t *testing.T) {
	got, err := normalizeOrigin("https://shop.example.com/some/path?x=1")
	require.NoError(t, err)
	assert.Equal(t, "https://shop.example.com", got)

	got, err = normalizeOrigin("  http://shop.example.com:8080  ")
	require.NoError(t, err)
	assert.Equal(t, "http://shop.example.com:8080", got)

	_, err = normalizeOrigin("https://")
	assert.Error(t, err)
}

func TestProgressReportsRunningTotal(t *testing.T) {
	items := storeProducts(1, 5, "Shoes")
	cfg := testConfig()
	cfg.PageSize = 2

	mux := http.NewServeMux()
	mux.HandleFunc("/wp-json/wc/store/v1/products", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-WP-TotalPages", "3")
		w.Header().Set("X-WP-Total", "5")
		pagedJSON(items, "per_page", "")(w, r)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var counts []int
	var lastTotal int
	h := New(cfg, testLogger())
	_, err := h.Harvest(context.Background(), srv.URL, types.KindProducts, Options{
		Progress: func(current, total int) {
			counts = append(counts, current)
			lastTotal = total
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []int{2, 4, 5}, counts)
	assert.Equal(t, 5, lastTotal)
}
