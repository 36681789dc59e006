package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL          = "https://query1.finance.yahoo.com"
	defaultSummaryURL       = "https://query2.finance.yahoo.com"
	defaultUserAgent        = "Mozilla/5.0 (compatible; tickerlens/1.0)"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 2
	defaultRetryBackoffBase = 200 * time.Millisecond
)

// ErrNotFound indicates Yahoo has no data for the requested symbol.
var ErrNotFound = errors.New("yahoo: symbol not found")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("yahoo: http status %d: %s", e.StatusCode, e.Body)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client wraps the public chart and quoteSummary endpoints.
type Client struct {
	baseURL    string
	summaryURL string
	userAgent  string
	httpClient *http.Client
	maxRetries int
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the chart endpoint host.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithSummaryURL overrides the quoteSummary endpoint host.
func WithSummaryURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.summaryURL = strings.TrimRight(u, "/")
		}
	}
}

// WithUserAgent sets the User-Agent header; Yahoo rejects empty agents.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// NewClient constructs a Yahoo Finance client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		summaryURL: defaultSummaryURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// ChartRequest selects the window returned by Chart.
type ChartRequest struct {
	Range    string
	Interval string
	PrePost  bool
}

// Chart fetches the v8 chart for symbol.
func (c *Client) Chart(ctx context.Context, symbol string, req ChartRequest) (*ChartResult, error) {
	q := url.Values{}
	q.Set("range", req.Range)
	q.Set("interval", req.Interval)
	q.Set("includePrePost", strconv.FormatBool(req.PrePost))
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	var payload chartResponse
	if err := c.doRequest(ctx, endpoint, &payload); err != nil {
		return nil, notFound(symbol, err)
	}
	if payload.Chart.Error != nil {
		if strings.EqualFold(payload.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
		}
		return nil, fmt.Errorf("yahoo: chart %s: %s", symbol, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	return &payload.Chart.Result[0], nil
}

// QuoteSummary fetches the requested quoteSummary modules for symbol.
func (c *Client) QuoteSummary(ctx context.Context, symbol string, modules ...string) (*SummaryResult, error) {
	q := url.Values{}
	q.Set("modules", strings.Join(modules, ","))
	endpoint := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?%s", c.summaryURL, url.PathEscape(symbol), q.Encode())

	var payload summaryResponse
	if err := c.doRequest(ctx, endpoint, &payload); err != nil {
		return nil, notFound(symbol, err)
	}
	if payload.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo: quoteSummary %s: %s", symbol, payload.QuoteSummary.Error.Description)
	}
	if len(payload.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	return &payload.QuoteSummary.Result[0], nil
}

// doRequest issues a GET and decodes the JSON response into result.
func (c *Client) doRequest(ctx context.Context, endpoint string, result interface{}) error {
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("yahoo: build request: %w", err)
		}
		httpReq.Header.Set("User-Agent", c.userAgent)
		httpReq.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("yahoo: read response: %w", readErr)
			case resp.StatusCode < 200 || resp.StatusCode >= 300:
				statusErr := &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
				if !statusErr.retryable() {
					return statusErr
				}
				lastErr = statusErr
			default:
				if err := json.Unmarshal(body, result); err != nil {
					return fmt.Errorf("yahoo: decode response: %w", err)
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("yahoo: request failed without error detail")
}

func notFound(symbol string, err error) error {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, symbol)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
