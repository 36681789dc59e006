package news

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/pkg/market"
)

// DefaultWindows are the lookback windows in days, tried in order.
var DefaultWindows = []int{1, 3, 7, 14, 30, 90, 180, 365, 730, 1825}

const defaultLimit = 10

// Fetcher widens the lookback window until the source returns items.
// An empty window moves on to the next one; an error stops the search so
// outages are not reported as "no news".
type Fetcher struct {
	source  Source
	windows []int
	limit   int
	now     func() time.Time
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithWindows overrides the lookback windows.
func WithWindows(days []int) FetcherOption {
	return func(f *Fetcher) {
		if len(days) > 0 {
			f.windows = append([]int(nil), days...)
		}
	}
}

// WithLimit caps the number of returned items.
func WithLimit(n int) FetcherOption {
	return func(f *Fetcher) {
		if n > 0 {
			f.limit = n
		}
	}
}

// WithClock injects the time source.
func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) {
		if now != nil {
			f.now = now
		}
	}
}

// NewFetcher constructs a Fetcher around source.
func NewFetcher(source Source, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		source:  source,
		windows: DefaultWindows,
		limit:   defaultLimit,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Recent returns up to limit items, newest first. It returns an empty slice
// when every window is empty.
func (f *Fetcher) Recent(ctx context.Context, ticker string) ([]market.NewsItem, error) {
	end := f.now()
	for _, days := range f.windows {
		items, err := f.window(ctx, ticker, end.AddDate(0, 0, -days), end)
		if errors.Is(err, ErrNoNews) {
			continue
		}
		if err != nil {
			return nil, err
		}
		logx.WithContext(ctx).Debugf("news: ticker=%s source=%s window=%dd items=%d", ticker, f.source.Name(), days, len(items))
		return items, nil
	}
	return []market.NewsItem{}, nil
}

func (f *Fetcher) window(ctx context.Context, ticker string, start, end time.Time) ([]market.NewsItem, error) {
	items, err := f.source.Fetch(ctx, ticker, start, end)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNoNews
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if len(items) > f.limit {
		items = items[:f.limit]
	}
	return items, nil
}
