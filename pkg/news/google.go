package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"tickerlens-api/pkg/market"
)

const (
	defaultGoogleURL   = "https://news.google.com/rss/search"
	defaultUserAgent   = "Mozilla/5.0 (compatible; tickerlens/1.0)"
	defaultHTTPTimeout = 10 * time.Second
)

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
	Source  string `xml:"source"`
}

// GoogleSource reads the Google News RSS search feed.
type GoogleSource struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// GoogleOption configures a GoogleSource.
type GoogleOption func(*GoogleSource)

// WithGoogleURL overrides the RSS search endpoint.
func WithGoogleURL(u string) GoogleOption {
	return func(s *GoogleSource) {
		if u != "" {
			s.baseURL = u
		}
	}
}

// WithGoogleHTTPClient injects a custom http.Client.
func WithGoogleHTTPClient(hc *http.Client) GoogleOption {
	return func(s *GoogleSource) {
		if hc != nil {
			s.httpClient = hc
		}
	}
}

// WithGoogleUserAgent sets the User-Agent header.
func WithGoogleUserAgent(ua string) GoogleOption {
	return func(s *GoogleSource) {
		if ua != "" {
			s.userAgent = ua
		}
	}
}

// NewGoogleSource constructs a Google News RSS source.
func NewGoogleSource(opts ...GoogleOption) *GoogleSource {
	s := &GoogleSource{
		baseURL:    defaultGoogleURL,
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *GoogleSource) Name() string { return "google" }

// Fetch implements Source. The feed ignores the window, so items are
// filtered locally.
func (s *GoogleSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]market.NewsItem, error) {
	q := url.Values{}
	q.Set("q", ticker+" stock")
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("news: build request: %w", err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("news: google: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("news: google: status %d: %s", resp.StatusCode, string(body))
	}

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, fmt.Errorf("news: google decode: %w", err)
	}

	items := make([]market.NewsItem, 0, len(rss.Channel.Items))
	for _, it := range rss.Channel.Items {
		published, ok := parsePubDate(it.PubDate)
		if !ok || !within(published, start, end) {
			continue
		}
		headline := it.Title
		source := strings.TrimSpace(it.Source)
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			if source == "" {
				source = strings.TrimSpace(headline[idx+3:])
			}
			headline = headline[:idx]
		}
		items = append(items, market.NewsItem{
			Headline:    strings.TrimSpace(headline),
			Summary:     StripHTML(it.Desc),
			URL:         strings.TrimSpace(it.Link),
			Source:      source,
			PublishedAt: published.UTC(),
		})
	}
	return items, nil
}

func parsePubDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.RFC1123Z, time.RFC1123, "Mon, 02 Jan 2006 15:04 MST"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
