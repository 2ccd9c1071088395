package overpass

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/time/rate"

	"github.com/terradrive/modgen/pkg/fetch"
	"github.com/terradrive/modgen/pkg/geo"
	"github.com/terradrive/modgen/pkg/monitoring"
)

// DefaultBaseURL is the public Overpass API endpoint.
const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

// Client fetches Overpass data with rate limiting and retries.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     fetch.RetryOptions
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the Overpass endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit overrides the request rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient returns a Client with pooled transport and a 1 rps limiter,
// matching the public Overpass instance's usage policy.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: fetch.DefaultUserAgent,
		http:      fetch.DefaultClient,
		limiter:   rate.NewLimiter(rate.Limit(1), 1),
		retry:     fetch.DefaultRetryOptions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Query POSTs an Overpass QL query and returns the raw response body.
func (c *Client) Query(ctx context.Context, query string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"data": []string{query}}
	factory := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL,
			strings.NewReader(form.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	}

	resp, err := fetch.WithRetryFactory(ctx, factory, c.http, c.retry)
	if err != nil {
		monitoring.RecordOverpassRequest(false)
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		monitoring.RecordOverpassRequest(false)
		return nil, fmt.Errorf("overpass request: server returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		monitoring.RecordOverpassRequest(false)
		return nil, fmt.Errorf("overpass request: reading body: %w", err)
	}

	monitoring.RecordOverpassRequest(true)
	return body, nil
}

// FetchElements runs the fixed generation query for bbox and parses the result.
func (c *Client) FetchElements(ctx context.Context, bbox geo.BoundingBox) ([]Element, error) {
	body, err := c.Query(ctx, GenerationQuery(bbox))
	if err != nil {
		return nil, err
	}
	elements, err := ParseElements(body)
	if err != nil {
		return nil, err
	}
	monitoring.ElementsParsed.Add(float64(len(elements)))
	return elements, nil
}
