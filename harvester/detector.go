package harvester

import (
	"context"

	"storefront-harvester/internal/types"
	"storefront-harvester/utils"
)

// Probe order matters: the WooCommerce Store API is tried before the REST
// v3 API because it is the unauthenticated surface; Shopify is last because
// /products.json is a catch-all path some WordPress sites also answer with
// an error page rather than a 404.
var detectionProbes = []struct {
	path     string
	platform types.Platform
}{
	{"/wp-json/wc/store/v1/products", types.PlatformWooCommerce},
	{"/wp-json/wc/v3/products", types.PlatformWooCommerce},
	{"/products.json", types.PlatformShopify},
}

// DetectPlatform probes the well-known storefront endpoints of an origin and
// returns the first platform that answers with a 2xx. Each probe uses the
// short probe timeout and is not retried. Returns PlatformUnknown when every
// probe fails or errors.
func DetectPlatform(ctx context.Context, client *utils.HTTPClient, logger types.Logger, origin string) types.Platform {
	for _, probe := range detectionProbes {
		if ctx.Err() != nil {
			return types.PlatformUnknown
		}
		resp, err := client.Probe(ctx, origin+probe.path)
		if err != nil {
			logger.Debugf("probe %s failed: %v", probe.path, err)
			continue
		}
		if resp.OK() {
			logger.Infof("detected %s platform at %s via %s", probe.platform, origin, probe.path)
			return probe.platform
		}
		logger.Debugf("probe %s answered %d", probe.path, resp.StatusCode)
	}
	logger.Warnf("no known platform detected at %s", origin)
	return types.PlatformUnknown
}
