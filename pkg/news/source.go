// Package news fetches recent headlines for a ticker and widens the lookback
// window until something is found.
package news

import (
	"context"
	"errors"
	"html"
	"regexp"
	"strings"
	"time"

	"tickerlens-api/pkg/market"
)

// ErrNoNews marks an empty window; Fetcher uses it to decide to widen.
var ErrNoNews = errors.New("news: no items in window")

// Source returns the items published for ticker within [start, end].
type Source interface {
	Name() string
	Fetch(ctx context.Context, ticker string, start, end time.Time) ([]market.NewsItem, error)
}

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// StripHTML removes markup and collapses whitespace.
func StripHTML(s string) string {
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.TrimSpace(spacePattern.ReplaceAllString(s, " "))
}

func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
