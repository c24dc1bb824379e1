package harvester

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"storefront-harvester/internal/types"
	"storefront-harvester/utils"
)

// Page is one fetched page of raw records.
type Page struct {
	Number  int
	Records []json.RawMessage
}

// Paginator lazily pulls pages from one endpoint. It is forward-only and
// non-restartable: the caller drives consumption one page per Next call, and
// the shared HTTP client's limiter sleeps the politeness delay before every
// request.
//
// A failure on the first page surfaces as an ErrEndpointUnusable so the
// fallback chain can move on; a failure on any later page ends the sequence
// with a recorded partial-failure note instead, keeping whatever was already
// fetched.
type Paginator struct {
	client      *utils.HTTPClient
	logger      types.Logger
	endpoint    string
	pageParam   string
	sizeParam   string
	envelope    string
	totalHeader string
	pageSize    int

	page       int
	totalPages int
	total      int
	done       bool
	errs       []types.PageError
}

func newPaginator(client *utils.HTTPClient, logger types.Logger, c candidate, origin string, pageSize int) *Paginator {
	return &Paginator{
		client:      client,
		logger:      logger,
		endpoint:    origin + c.path,
		pageParam:   "page",
		sizeParam:   c.sizeParam,
		envelope:    c.envelope,
		totalHeader: c.totalHeader,
		pageSize:    pageSize,
		page:        1,
		total:       -1,
	}
}

// Next fetches the next page. It returns (nil, nil) when the sequence has
// ended, and a non-nil error only for a first-page failure (wrapped in
// ErrEndpointUnusable) or context cancellation.
func (p *Paginator) Next(ctx context.Context) (*Page, error) {
	if p.done {
		return nil, nil
	}

	resp, err := p.client.Get(ctx, p.pageURL(p.page))
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, p.fail(types.ReasonNetwork, err.Error())
	}
	if !resp.OK() {
		reason := types.ReasonHTTPStatus
		switch resp.StatusCode {
		case 401, 403:
			reason = types.ReasonUnauthorized
		case 404:
			reason = types.ReasonNotFound
		}
		return nil, p.fail(reason, fmt.Sprintf("status %d", resp.StatusCode))
	}

	records, err := p.decode(resp.Body)
	if err != nil {
		return nil, p.fail(types.ReasonMalformed, err.Error())
	}

	if p.totalHeader != "" {
		if v, err := strconv.Atoi(resp.Header.Get(p.totalHeader)); err == nil && v > 0 {
			p.totalPages = v
		}
		if v, err := strconv.Atoi(resp.Header.Get("X-WP-Total")); err == nil && v > 0 {
			p.total = v
		}
	}

	if len(records) == 0 {
		p.done = true
		return nil, nil
	}

	page := &Page{Number: p.page, Records: records}
	p.logger.Debugf("page %d of %s: %d records", p.page, p.endpoint, len(records))

	if len(records) < p.pageSize {
		p.done = true
	}
	if p.totalPages > 0 && p.page >= p.totalPages {
		p.done = true
	}
	p.page++

	return page, nil
}

// Total returns the upstream record total, or -1 when unknown.
func (p *Paginator) Total() int { return p.total }

// Errors returns the partial-failure notes recorded so far.
func (p *Paginator) Errors() []types.PageError { return p.errs }

// Pages returns how many pages were fetched successfully.
func (p *Paginator) Pages() int { return p.page - 1 }

func (p *Paginator) pageURL(page int) string {
	q := url.Values{}
	q.Set(p.pageParam, strconv.Itoa(page))
	q.Set(p.sizeParam, strconv.Itoa(p.pageSize))
	return p.endpoint + "?" + q.Encode()
}

// fail ends the sequence. On the first page it reports the endpoint as
// unusable; afterwards it records a partial failure and returns nil.
func (p *Paginator) fail(reason types.FailureReason, detail string) error {
	p.done = true
	if p.page == 1 {
		return &types.UnusableError{Endpoint: p.endpoint, Reason: reason, Detail: detail}
	}
	p.logger.Warnf("page %d of %s failed (%s): %s", p.page, p.endpoint, reason, detail)
	p.errs = append(p.errs, types.PageError{
		Page:     p.page,
		Endpoint: p.endpoint,
		Reason:   fmt.Sprintf("%s: %s", reason, detail),
	})
	return nil
}

// decode unwraps the optional envelope and parses the record array. A body
// that is not an array (after unwrapping) is malformed.
func (p *Paginator) decode(body []byte) ([]json.RawMessage, error) {
	payload := json.RawMessage(body)
	if p.envelope != "" {
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, fmt.Errorf("body is not a JSON object: %w", err)
		}
		inner, ok := wrapper[p.envelope]
		if !ok {
			return nil, fmt.Errorf("body has no %q key", p.envelope)
		}
		payload = inner
	}
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, fmt.Errorf("body is not a JSON array: %w", err)
	}
	return records, nil
}
