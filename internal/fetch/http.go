package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// Getter retrieves a document by URL.
// Implemented by *Client and by *Cached.
type Getter interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Client defaults.
const (
	DefaultRetries     = 5
	DefaultRetryWait   = 200 * time.Millisecond
	DefaultMaxWait     = 10 * time.Second
	DefaultRequestRate = 2.0 // requests per second
	maxBodyBytes       = 32 << 20
)

// StatusError is returned for a non-2xx response that was not retried
// away.
type StatusError struct {
	URL  string // redacted
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Code)
}

// Client is a paced, retrying HTTP GET client.
//
// Retries (with exponential backoff) are handled by go-retryablehttp.
// Pacing uses a token bucket so that a run over many entities does not hit
// the upstream API in a burst.
type Client struct {
	http      *retryablehttp.Client
	limiter   *rate.Limiter
	userAgent string
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetries sets the maximum number of retries per request.
func WithRetries(n int) ClientOption {
	return func(c *Client) {
		c.http.RetryMax = n
	}
}

// WithRetryWait sets the minimum and maximum backoff between retries.
func WithRetryWait(minWait, maxWait time.Duration) ClientOption {
	return func(c *Client) {
		c.http.RetryWaitMin = minWait
		c.http.RetryWaitMax = maxWait
	}
}

// WithRateLimit sets the request rate (per second) and burst.
// A non-positive rate disables pacing.
func WithRateLimit(perSecond float64, burst int) ClientOption {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), max(burst, 1))
	}
}

// WithHTTPClient sets the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.http.HTTPClient = hc
		}
	}
}

// WithClientLogger routes retry diagnostics to l, with URLs redacted.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.http.Logger = redactingLogger{l: l}
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// NewClient creates a Client with 5 retries, 200ms base backoff and a
// 2 req/s pace.
func NewClient(opts ...ClientOption) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = DefaultRetries
	rc.RetryWaitMin = DefaultRetryWait
	rc.RetryWaitMax = DefaultMaxWait
	rc.Logger = nil

	c := &Client{
		http:      rc,
		limiter:   rate.NewLimiter(rate.Limit(DefaultRequestRate), 1),
		userAgent: "climatevalue/1.0",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url and returns the response body. Credentials in the URL's
// query are redacted from returned errors.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	r := newRedactor(url)
	safe := r.string(url)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("GET %s: %w", safe, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, r.error(fmt.Errorf("GET %s: %w", safe, err))
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, r.error(fmt.Errorf("GET %s: %w", safe, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: safe, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, r.error(fmt.Errorf("GET %s: read body: %w", safe, err))
	}
	return body, nil
}
