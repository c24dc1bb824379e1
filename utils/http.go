package utils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	"storefront-harvester/internal/types"
)

// Response is the outcome of a completed GET. Non-2xx statuses are returned
// here rather than as errors so callers can classify them (a 401 means "fall
// through to the next endpoint", not "retry").
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// HTTPClient issues rate-limited GET requests against storefront APIs.
// The limiter enforces the politeness delay between consecutive requests,
// one in-flight request at a time; this pacing is a deliberate policy to
// avoid tripping upstream anti-bot defenses.
type HTTPClient struct {
	client  *http.Client
	probing *http.Client
	config  *types.Config
	logger  types.Logger
	limiter *rate.Limiter
}

// NewHTTPClient creates a new HTTP client with the given configuration.
func NewHTTPClient(config *types.Config, logger types.Logger) *HTTPClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
		},
		probing: &http.Client{
			Timeout:   config.ProbeTimeout,
			Transport: transport,
		},
		config:  config,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Every(config.RequestDelay), 1),
	}
}

// Get performs a rate-limited GET and returns the response regardless of
// status code. The returned error is non-nil only for request construction
// and network-level failures (including timeouts).
func (h *HTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return h.do(ctx, h.client, url)
}

// Probe performs a GET with the short probe timeout and no rate limiting.
// Used by platform detection, which runs at most three requests per session.
func (h *HTTPClient) Probe(ctx context.Context, url string) (*Response, error) {
	return h.do(ctx, h.probing, url)
}

func (h *HTTPClient) do(ctx context.Context, client *http.Client, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", h.config.UserAgent)
	req.Header.Set("Accept", "application/json, text/html;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	if h.config.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+h.config.BearerToken)
	}

	h.logger.Debugf("GET %s", url)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	h.logger.Debugf("GET %s -> %d (%d bytes)", url, resp.StatusCode, len(body))

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}
