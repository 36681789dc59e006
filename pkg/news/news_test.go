package news

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerlens-api/pkg/market"
)

var now = time.Date(2025, 3, 14, 18, 0, 0, 0, time.UTC)

type stubSource struct {
	mu      sync.Mutex
	windows []time.Duration
	items   []market.NewsItem
	err     error
	errFrom int
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(_ context.Context, _ string, start, end time.Time) ([]market.NewsItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.windows = append(s.windows, end.Sub(start))
	if s.err != nil && len(s.windows) >= s.errFrom {
		return nil, s.err
	}
	var out []market.NewsItem
	for _, it := range s.items {
		if within(it.PublishedAt, start, end) {
			out = append(out, it)
		}
	}
	return out, nil
}

func TestFetcherExpandsUntilItemsFound(t *testing.T) {
	src := &stubSource{items: []market.NewsItem{
		{Headline: "older", PublishedAt: now.AddDate(0, 0, -6)},
		{Headline: "newer", PublishedAt: now.AddDate(0, 0, -5)},
	}}
	f := NewFetcher(src, WithClock(func() time.Time { return now }))

	items, err := f.Recent(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "newer", items[0].Headline)
	assert.Len(t, src.windows, 3, "1d, 3d, 7d")
}

func TestFetcherEmptyEverywhere(t *testing.T) {
	src := &stubSource{}
	f := NewFetcher(src, WithClock(func() time.Time { return now }), WithWindows([]int{1, 2}))

	items, err := f.Recent(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Len(t, src.windows, 2)
}

func TestFetcherStopsOnError(t *testing.T) {
	boom := errors.New("upstream down")
	src := &stubSource{err: boom, errFrom: 2}
	f := NewFetcher(src, WithClock(func() time.Time { return now }))

	_, err := f.Recent(context.Background(), "AAPL")
	require.ErrorIs(t, err, boom)
	assert.Len(t, src.windows, 2)
}

func TestFetcherLimit(t *testing.T) {
	var items []market.NewsItem
	for i := 0; i < 5; i++ {
		items = append(items, market.NewsItem{Headline: "h", PublishedAt: now.Add(-time.Duration(i) * time.Hour)})
	}
	f := NewFetcher(&stubSource{items: items}, WithClock(func() time.Time { return now }), WithLimit(3))
	got, err := f.Recent(context.Background(), "AAPL")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

const rssBody = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<item><title>Apple beats estimates - Reuters</title><link>https://example.com/a</link>
<pubDate>Fri, 14 Mar 2025 12:00:00 GMT</pubDate><description>&lt;a href="x"&gt;Apple&lt;/a&gt; beats</description><source url="https://reuters.com">Reuters</source></item>
<item><title>Old news - Blog</title><link>https://example.com/b</link><pubDate>Mon, 01 Jan 2024 12:00:00 GMT</pubDate></item>
<item><title>Bad date</title><pubDate>yesterday</pubDate></item>
</channel></rss>`

func TestGoogleSourceParsesFeed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AAPL stock", r.URL.Query().Get("q"))
		_, _ = w.Write([]byte(rssBody))
	}))
	defer server.Close()

	src := NewGoogleSource(WithGoogleURL(server.URL), WithGoogleHTTPClient(server.Client()))
	items, err := src.Fetch(context.Background(), "AAPL", now.AddDate(0, 0, -7), now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Apple beats estimates", items[0].Headline)
	assert.Equal(t, "Reuters", items[0].Source)
	assert.Equal(t, "Apple beats", items[0].Summary)
	assert.Equal(t, "https://example.com/a", items[0].URL)
}

func TestGoogleSourceStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	src := NewGoogleSource(WithGoogleURL(server.URL))
	_, err := src.Fetch(context.Background(), "AAPL", now.AddDate(0, 0, -1), now)
	require.ErrorContains(t, err, "status 503")
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_NEWS_UA", "agent/1")
	cfg, err := LoadConfigFromReader(strings.NewReader(`
source: google
user_agent: ${TEST_NEWS_UA}
http_timeout: 5s
lookback_days: [1, 7, 30]
limit: 8
`))
	require.NoError(t, err)
	assert.Equal(t, "agent/1", cfg.UserAgent)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, []int{1, 7, 30}, cfg.LookbackDays)
	assert.NotNil(t, cfg.Build())

	_, err = LoadConfigFromReader(strings.NewReader("source: alpaca\n"))
	require.ErrorContains(t, err, "api_key")

	_, err = LoadConfigFromReader(strings.NewReader("lookback_days: [7, 1]\n"))
	require.ErrorContains(t, err, "ascending")
}

func TestAlpacaItem(t *testing.T) {
	item := alpacaItem(marketdata.News{
		Author:    "Benzinga Newsdesk",
		Headline:  "Apple beats",
		Summary:   "<p>Record   quarter</p>",
		URL:       "https://example.com/a",
		CreatedAt: now.In(time.FixedZone("EST", -5*3600)),
	})
	assert.Equal(t, "Apple beats", item.Headline)
	assert.Equal(t, "Record quarter", item.Summary)
	assert.Equal(t, "alpaca", item.Source)
	assert.Equal(t, now, item.PublishedAt)
	assert.Equal(t, time.UTC, item.PublishedAt.Location())
}
