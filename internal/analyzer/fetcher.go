package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/yungdaddii/growth-copilot-prod-sub002/infrastructure/retry"
)

const (
	defaultUserAgent      = "Mozilla/5.0 (compatible; GrowthCopilot/1.0; +https://growthcopilot.ai/bot)"
	defaultRequestTimeout = 15 * time.Second
	defaultMaxAttempts    = 2
	maxResponseBodyBytes  = 5 * 1024 * 1024
)

// FetcherConfig configures PageFetcher.
type FetcherConfig struct {
	UserAgent      string        `yaml:"user_agent"      env:"FETCHER_USER_AGENT"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"FETCHER_REQUEST_TIMEOUT"`
	MaxAttempts    int           `yaml:"max_attempts"    env:"FETCHER_MAX_ATTEMPTS"`
	RetryDelay     time.Duration `yaml:"retry_delay"     env:"FETCHER_RETRY_DELAY"`
}

// WithDefaults returns a copy with zero fields defaulted.
func (c FetcherConfig) WithDefaults() FetcherConfig {
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = defaultRequestTimeout
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaultMaxAttempts
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 250 * time.Millisecond
	}
	return c
}

// Page is one fetched document.
type Page struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Compressed bool
	TTFB       time.Duration
	Duration   time.Duration
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Code)
}

// PageFetcher performs GET requests with retry on transient failures.
type PageFetcher struct {
	client *http.Client
	cfg    FetcherConfig
	urlFor func(host, path string) string
}

// FetcherOption configures a PageFetcher.
type FetcherOption func(*PageFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *PageFetcher) {
		f.client = c
	}
}

// WithURLResolver replaces the https://host/path mapping, for tests that
// point hosts at local servers.
func WithURLResolver(fn func(host, path string) string) FetcherOption {
	return func(f *PageFetcher) {
		f.urlFor = fn
	}
}

// NewPageFetcher creates a fetcher.
func NewPageFetcher(cfg FetcherConfig, opts ...FetcherOption) *PageFetcher {
	cfg = cfg.WithDefaults()
	f := &PageFetcher{
		client: &http.Client{Timeout: cfg.RequestTimeout},
		cfg:    cfg,
		urlFor: func(host, path string) string { return "https://" + host + path },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URLFor resolves a host and path to the URL that will be fetched.
func (f *PageFetcher) URLFor(host, path string) string {
	return f.urlFor(host, path)
}

// Fetch GETs rawURL. 5xx, 429 and network errors are retried; retries never
// outlive ctx.
func (f *PageFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	var page *Page
	err := retry.Retry(ctx, retry.Config{
		MaxAttempts:  f.cfg.MaxAttempts,
		InitialDelay: f.cfg.RetryDelay,
		MaxDelay:     4 * f.cfg.RetryDelay,
		IsRetryable:  isRetryableFetch,
	}, func() error {
		p, err := f.fetchOnce(ctx, rawURL)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (f *PageFetcher) fetchOnce(ctx context.Context, rawURL string) (*Page, error) {
	var firstByte time.Time
	trace := &httptrace.ClientTrace{
		GotFirstResponseByte: func() { firstByte = time.Now() },
	}

	req, err := http.NewRequestWithContext(httptrace.WithClientTrace(ctx, trace), http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,*/*;q=0.8")

	start := time.Now()
	resp, err := f.client.Do(req) //nolint:gosec // URL is the analysis target
	if err != nil {
		return nil, fmt.Errorf("http fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}

	page := &Page{
		URL:        resp.Request.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
		Compressed: resp.Uncompressed || resp.Header.Get("Content-Encoding") != "",
		Duration:   time.Since(start),
	}
	if !firstByte.IsZero() {
		page.TTFB = firstByte.Sub(start)
	}
	return page, nil
}

func isRetryableFetch(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= http.StatusInternalServerError || se.Code == http.StatusTooManyRequests
	}
	return retry.IsTransient(err)
}
