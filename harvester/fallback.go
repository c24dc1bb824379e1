package harvester

import (
	"context"
	"errors"
	"fmt"

	"storefront-harvester/adapters"
	"storefront-harvester/internal/types"
	"storefront-harvester/utils"
)

// candidate is one endpoint in a fallback chain.
type candidate struct {
	shape       adapters.Shape
	path        string
	sizeParam   string // per_page for WordPress-family, limit for Shopify
	envelope    string // JSON key wrapping the record array, if any
	totalHeader string
}

func wpCandidate(shape adapters.Shape, path string) candidate {
	return candidate{shape: shape, path: path, sizeParam: "per_page", totalHeader: "X-WP-TotalPages"}
}

// Candidate chains in priority order. The chain commits to the first
// endpoint whose first page succeeds and never switches mid-pagination.
var fallbackChains = map[types.Platform]map[types.Kind][]candidate{
	types.PlatformWooCommerce: {
		types.KindProducts: {
			wpCandidate(adapters.ShapeWooStore, "/wp-json/wc/store/v1/products"),
			wpCandidate(adapters.ShapeWooStore, "/wp-json/wc/store/products"),
			wpCandidate(adapters.ShapeWooV3, "/wp-json/wc/v3/products"),
			wpCandidate(adapters.ShapeWordPress, "/wp-json/wp/v2/product"),
		},
		types.KindCollections: {
			wpCandidate(adapters.ShapeWooStore, "/wp-json/wc/store/v1/products/categories"),
			wpCandidate(adapters.ShapeWooStore, "/wp-json/wc/store/products/categories"),
			wpCandidate(adapters.ShapeWooV3, "/wp-json/wc/v3/products/categories"),
			wpCandidate(adapters.ShapeWordPress, "/wp-json/wp/v2/product_cat"),
		},
	},
	types.PlatformShopify: {
		// Shopify's one stable public surface; no fallback needed.
		types.KindProducts: {
			{shape: adapters.ShapeShopify, path: "/products.json", sizeParam: "limit", envelope: "products"},
		},
		types.KindCollections: {
			{shape: adapters.ShapeShopify, path: "/collections.json", sizeParam: "limit", envelope: "collections"},
		},
	},
}

// Source is a committed endpoint: the shape to map with, the first page
// (already fetched while probing), and the paginator for the rest.
type Source struct {
	Shape    adapters.Shape
	Endpoint string
	Attempts int

	first *Page
	pager *Paginator
}

// Next returns the buffered first page on the first call, then pulls from
// the underlying paginator.
func (s *Source) Next(ctx context.Context) (*Page, error) {
	if s.first != nil {
		page := s.first
		s.first = nil
		return page, nil
	}
	return s.pager.Next(ctx)
}

// Total returns the upstream record total, or -1 when unknown.
func (s *Source) Total() int { return s.pager.Total() }

// Errors returns partial-failure notes collected during pagination.
func (s *Source) Errors() []types.PageError { return s.pager.Errors() }

// Pages returns how many pages were fetched.
func (s *Source) Pages() int { return s.pager.Pages() }

// openSource walks the candidate chain for (platform, kind), committing to
// the first endpoint usable on its first page. A 401 falls straight through
// to the next candidate; it means "not authorized for this API", not a
// transient error worth retrying. When every candidate fails it returns an
// *EndpointExhaustedError naming each attempt.
func openSource(ctx context.Context, client *utils.HTTPClient, logger types.Logger, cfg *types.Config, origin string, platform types.Platform, kind types.Kind) (*Source, error) {
	chain, ok := fallbackChains[platform][kind]
	if !ok {
		return nil, fmt.Errorf("no endpoint chain for platform %q kind %q", platform, kind)
	}

	var attempts []types.EndpointAttempt
	for _, c := range chain {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		pager := newPaginator(client, logger, c, origin, cfg.PageSize)
		page, err := pager.Next(ctx)
		if err != nil {
			if errors.Is(err, types.ErrEndpointUnusable) {
				var unusable *types.UnusableError
				errors.As(err, &unusable)
				logger.Infof("endpoint %s unusable (%s), trying next candidate", unusable.Endpoint, unusable.Reason)
				attempts = append(attempts, types.EndpointAttempt{
					Endpoint: unusable.Endpoint,
					Reason:   unusable.Reason,
					Detail:   unusable.Detail,
				})
				continue
			}
			return nil, err
		}
		logger.Infof("committed to %s (%s)", origin+c.path, c.shape)
		return &Source{
			Shape:    c.shape,
			Endpoint: origin + c.path,
			Attempts: len(attempts) + 1,
			first:    page,
			pager:    pager,
		}, nil
	}

	return nil, &types.EndpointExhaustedError{
		Platform: platform,
		Kind:     kind,
		Attempts: attempts,
	}
}
