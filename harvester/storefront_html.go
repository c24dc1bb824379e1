package harvester

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"storefront-harvester/adapters"
	"storefront-harvester/internal/types"
	"storefront-harvester/utils"
)

// maxHTMLPages bounds the HTML fallback, which has no total-pages header to
// terminate on.
const maxHTMLPages = 50

var categoryCount = regexp.MustCompile(`\((\d+)\)`)

// harvestHTML scrapes the WooCommerce storefront theme markup directly,
// the last resort when every JSON API of the origin is locked down. Page
// content comes from the headless browser when configured, since some
// themes render the product grid with JavaScript.
func (h *Harvester) harvestHTML(ctx context.Context, origin string, kind types.Kind, opts Options) (*types.HarvestResult, error) {
	result := &types.HarvestResult{
		Origin:   origin,
		Platform: types.PlatformWooCommerce,
		Kind:     kind,
		Endpoint: origin + "/shop/",
	}

	var err error
	if kind == types.KindCollections {
		err = h.scrapeCategoryPages(ctx, origin, opts, result)
	} else {
		err = h.scrapeProductPages(ctx, origin, opts, result)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result.Cancelled = true
		} else if result.PagesFetched == 0 {
			return nil, err
		} else {
			result.Errors = append(result.Errors, types.PageError{
				Page:     result.PagesFetched + 1,
				Endpoint: result.Endpoint,
				Reason:   err.Error(),
			})
		}
	}

	result.HarvestedAt = time.Now().UTC()
	h.logger.Infof("html fallback harvested %d %s from %s (%d pages)",
		result.Len(), kind, origin, result.PagesFetched)
	return result, nil
}

func (h *Harvester) scrapeCategoryPages(ctx context.Context, origin string, opts Options, result *types.HarvestResult) error {
	doc, err := h.fetchDocument(ctx, origin+"/shop/")
	if err != nil {
		return err
	}
	result.PagesFetched = 1

	seen := make(map[string]struct{})
	add := func(name string) {
		count := 0
		if m := categoryCount.FindStringSubmatch(name); m != nil {
			count, _ = strconv.Atoi(m[1])
		}
		name = adapters.StripHTML(categoryCount.ReplaceAllString(name, ""))
		if name == "" {
			return
		}
		slug := strings.ToLower(strings.Join(strings.Fields(name), "-"))
		if _, dup := seen[slug]; dup {
			return
		}
		col := &types.Collection{
			ID:           slug,
			Name:         name,
			Slug:         slug,
			ProductCount: count,
		}
		if !collectionMatches(col, opts.CategoryFilter) {
			return
		}
		seen[slug] = struct{}{}
		result.Collections = append(result.Collections, *col)
	}

	doc.Find(".product-category h2.woocommerce-loop-category__title").Each(func(_ int, s *goquery.Selection) {
		add(s.Text())
	})
	if len(result.Collections) == 0 {
		// Block-theme markup uses a different list structure.
		doc.Find(".wc-block-product-categories-list-item").Each(func(_ int, s *goquery.Selection) {
			add(s.Text())
		})
	}

	if opts.Progress != nil {
		opts.Progress(result.Len(), -1)
	}
	if len(result.Collections) == 0 {
		return fmt.Errorf("no categories found in storefront markup at %s", origin)
	}
	return nil
}

func (h *Harvester) scrapeProductPages(ctx context.Context, origin string, opts Options, result *types.HarvestResult) error {
	seen := make(map[string]struct{})

	for page := 1; page <= maxHTMLPages; page++ {
		pageURL := origin + "/shop/"
		if page > 1 {
			pageURL = fmt.Sprintf("%s/shop/page/%d/", origin, page)
		}

		doc, err := h.fetchDocument(ctx, pageURL)
		if err != nil {
			if page == 1 {
				return err
			}
			// Themes 404 past the last page; anything on the first page
			// already harvested is kept.
			h.logger.Debugf("html page %d ended pagination: %v", page, err)
			return nil
		}

		items := doc.Find("li.product, .product")
		if items.Length() == 0 {
			return nil
		}
		result.PagesFetched = page

		items.Each(func(_ int, s *goquery.Selection) {
			product := h.productFromMarkup(s, origin)
			if product == nil || product.ID == "" {
				result.SkippedRecords++
				return
			}
			if !productMatches(product, opts.CategoryFilter) {
				return
			}
			if _, dup := seen[product.ID]; dup {
				return
			}
			seen[product.ID] = struct{}{}
			result.Products = append(result.Products, *product)
		})

		if opts.Progress != nil {
			opts.Progress(result.Len(), -1)
		}
	}
	return nil
}

// productFromMarkup builds a canonical record from one product card. The
// permalink slug serves as the id; themes without product links yield no
// stable identity and the card is skipped.
func (h *Harvester) productFromMarkup(s *goquery.Selection, origin string) *types.Product {
	name := adapters.StripHTML(s.Find(".woocommerce-loop-product__title, h2").First().Text())
	link, _ := s.Find("a[href*='/product/']").First().Attr("href")
	if link == "" {
		link, _ = s.Find("a").First().Attr("href")
	}
	if name == "" || link == "" {
		return nil
	}

	id := strings.Trim(link, "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}

	product := &types.Product{
		ID:          id,
		Name:        name,
		Price:       h.prices.Normalize(s.Find(".price").First().Text()),
		StockStatus: types.StockUnknown,
		Categories:  []string{},
		Tags:        []string{},
		Images:      []string{},
		Attributes:  []types.Attribute{},
		URL:         link,
	}
	if src, ok := s.Find("img").First().Attr("src"); ok && src != "" {
		product.Images = []string{src}
	}
	return product
}

func (h *Harvester) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	html, err := h.pageContent(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", url, err)
	}
	return doc, nil
}

func (h *Harvester) pageContent(ctx context.Context, url string) (string, error) {
	if h.config.UseHeadlessBrowser {
		h.mu.Lock()
		if h.browser == nil {
			h.browser = utils.NewBrowserClient(h.config, h.logger)
		}
		browser := h.browser
		h.mu.Unlock()

		// The browser bypasses the HTTP client's limiter, so the
		// politeness delay is applied here instead.
		select {
		case <-time.After(h.config.RequestDelay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return browser.GetPageContent(ctx, url)
	}

	resp, err := h.client.Get(ctx, url)
	if err != nil {
		return "", err
	}
	if !resp.OK() {
		return "", fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}
	return string(resp.Body), nil
}
