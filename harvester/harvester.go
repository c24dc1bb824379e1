// Package harvester implements the end-to-end harvest pipeline: platform
// detection, endpoint fallback, paginated fetching, field mapping and
// deduplication for WooCommerce and Shopify storefronts.
package harvester

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"storefront-harvester/adapters"
	"storefront-harvester/internal/types"
	"storefront-harvester/pricing"
	"storefront-harvester/utils"
)

// Options tunes a single harvest call.
type Options struct {
	// CategoryFilter keeps only records whose category names match one of
	// these values, case-insensitively. Empty means no filtering.
	CategoryFilter []string

	// Progress, when set, is invoked after each fetched page.
	Progress types.ProgressFunc
}

// Harvester runs harvests against storefront origins. One Harvester is one
// session: platform detection results are cached per origin for its
// lifetime and nowhere else. Harvests of distinct origins may run
// concurrently on the same Harvester.
type Harvester struct {
	config   *types.Config
	logger   types.Logger
	client   *utils.HTTPClient
	registry *adapters.Registry
	prices   *pricing.Normalizer

	mu        sync.Mutex
	platforms map[string]types.Platform
	browser   *utils.BrowserClient
}

// New creates a harvester session with the given configuration.
func New(config *types.Config, logger types.Logger) *Harvester {
	prices := pricing.NewNormalizer(config, logger)
	return &Harvester{
		config:    config,
		logger:    logger,
		client:    utils.NewHTTPClient(config, logger),
		registry:  adapters.NewRegistry(prices),
		prices:    prices,
		platforms: make(map[string]types.Platform),
	}
}

// Platform returns the detected platform for origin, probing on first use
// and serving the session cache afterwards.
func (h *Harvester) Platform(ctx context.Context, origin string) types.Platform {
	h.mu.Lock()
	cached, ok := h.platforms[origin]
	h.mu.Unlock()
	if ok {
		return cached
	}

	platform := DetectPlatform(ctx, h.client, h.logger, origin)
	if platform != types.PlatformUnknown || ctx.Err() == nil {
		h.mu.Lock()
		h.platforms[origin] = platform
		h.mu.Unlock()
	}
	return platform
}

// Harvest runs one detect -> fallback -> paginate -> map -> dedup pass and
// returns the accumulated result. Detection and endpoint-exhaustion failures
// return typed errors; page failures after commitment and malformed records
// are recorded on the result instead. Context cancellation aborts the
// in-progress fetch and returns the partial result with Cancelled set.
func (h *Harvester) Harvest(ctx context.Context, origin string, kind types.Kind, opts Options) (*types.HarvestResult, error) {
	origin, err := normalizeOrigin(origin)
	if err != nil {
		return nil, err
	}

	platform := h.Platform(ctx, origin)
	if platform == types.PlatformUnknown {
		if ctx.Err() != nil {
			return h.cancelledResult(origin, platform, kind), nil
		}
		return nil, &types.UnsupportedPlatformError{Origin: origin}
	}

	h.logger.Infof("harvesting %s from %s (%s)", kind, origin, platform)

	source, err := openSource(ctx, h.client, h.logger, h.config, origin, platform, kind)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return h.cancelledResult(origin, platform, kind), nil
		}
		var exhausted *types.EndpointExhaustedError
		if errors.As(err, &exhausted) && platform == types.PlatformWooCommerce && h.config.EnableHTMLFallback {
			h.logger.Warnf("all %s endpoints exhausted, falling back to HTML storefront scraping", kind)
			return h.harvestHTML(ctx, origin, kind, opts)
		}
		return nil, err
	}

	mapper, err := h.registry.ForShape(source.Shape)
	if err != nil {
		return nil, err
	}

	result := &types.HarvestResult{
		Origin:   origin,
		Platform: platform,
		Kind:     kind,
		Endpoint: source.Endpoint,
	}
	seen := make(map[string]struct{})

	for {
		page, err := source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Cancelled = true
				break
			}
			return nil, err
		}
		if page == nil {
			break
		}

		for _, raw := range page.Records {
			if kind == types.KindCollections {
				col, err := mapper.MapCollection(raw, origin)
				if err != nil {
					h.logger.Warnf("skipping malformed record on page %d: %v", page.Number, err)
					result.SkippedRecords++
					continue
				}
				if !collectionMatches(col, opts.CategoryFilter) {
					continue
				}
				if _, dup := seen[col.ID]; dup || col.ID == "" {
					continue
				}
				seen[col.ID] = struct{}{}
				result.Collections = append(result.Collections, *col)
			} else {
				product, err := mapper.MapProduct(raw, origin)
				if err != nil {
					h.logger.Warnf("skipping malformed record on page %d: %v", page.Number, err)
					result.SkippedRecords++
					continue
				}
				if !productMatches(product, opts.CategoryFilter) {
					continue
				}
				if _, dup := seen[product.ID]; dup || product.ID == "" {
					continue
				}
				seen[product.ID] = struct{}{}
				result.Products = append(result.Products, *product)
			}
		}

		if opts.Progress != nil {
			opts.Progress(result.Len(), source.Total())
		}
	}

	result.PagesFetched = source.Pages()
	result.FallbackAttempts = source.Attempts
	result.Errors = source.Errors()
	result.HarvestedAt = time.Now().UTC()

	h.logger.Infof("harvested %d %s from %s (%d pages, %d skipped, %d page errors)",
		result.Len(), kind, origin, result.PagesFetched, result.SkippedRecords, len(result.Errors))

	return result, nil
}

// HarvestCollectionProducts harvests the member products of one collection.
// This is an explicit second call, never triggered automatically by a
// collections harvest, so the request cost stays predictable.
func (h *Harvester) HarvestCollectionProducts(ctx context.Context, origin string, col types.Collection, opts Options) (*types.HarvestResult, error) {
	filter := []string{col.Name}
	if col.Slug != "" {
		filter = append(filter, col.Slug)
	}
	opts.CategoryFilter = filter
	return h.Harvest(ctx, origin, types.KindProducts, opts)
}

func (h *Harvester) cancelledResult(origin string, platform types.Platform, kind types.Kind) *types.HarvestResult {
	return &types.HarvestResult{
		Origin:      origin,
		Platform:    platform,
		Kind:        kind,
		Cancelled:   true,
		HarvestedAt: time.Now().UTC(),
	}
}

// normalizeOrigin validates the origin and strips any path, keeping
// scheme://host[:port].
func normalizeOrigin(origin string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil {
		return "", fmt.Errorf("invalid origin %q: %w", origin, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid origin %q: scheme must be http or https", origin)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid origin %q: missing host", origin)
	}
	return u.Scheme + "://" + u.Host, nil
}

func productMatches(p *types.Product, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		for _, have := range p.Categories {
			if strings.EqualFold(want, have) {
				return true
			}
		}
	}
	return false
}

func collectionMatches(c *types.Collection, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, want := range filter {
		if strings.EqualFold(want, c.Name) || strings.EqualFold(want, c.Slug) {
			return true
		}
	}
	return false
}
