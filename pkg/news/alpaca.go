package news

import (
	"context"
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tickerlens-api/pkg/market"
)

const (
	alpacaNewsLimit  = 50
	alpacaSourceName = "alpaca"
)

// AlpacaSource reads the Alpaca news endpoint.
type AlpacaSource struct {
	client *marketdata.Client
}

// NewAlpacaSource constructs an Alpaca news source.
func NewAlpacaSource(opts marketdata.ClientOpts) *AlpacaSource {
	return &AlpacaSource{client: marketdata.NewClient(opts)}
}

func (s *AlpacaSource) Name() string { return alpacaSourceName }

// Fetch implements Source.
func (s *AlpacaSource) Fetch(ctx context.Context, ticker string, start, end time.Time) ([]market.NewsItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := s.client.GetNews(marketdata.GetNewsRequest{
		Symbols:    []string{ticker},
		Start:      start,
		End:        end,
		TotalLimit: alpacaNewsLimit,
		Sort:       marketdata.SortDesc,
	})
	if err != nil {
		return nil, fmt.Errorf("news: alpaca: %w", err)
	}
	items := make([]market.NewsItem, 0, len(raw))
	for _, n := range raw {
		items = append(items, alpacaItem(n))
	}
	return items, nil
}

// alpacaItem converts one Alpaca article. The feed carries no publisher, so
// the source is the feed name.
func alpacaItem(n marketdata.News) market.NewsItem {
	return market.NewsItem{
		Headline:    n.Headline,
		Summary:     StripHTML(n.Summary),
		URL:         n.URL,
		Source:      alpacaSourceName,
		PublishedAt: n.CreatedAt.UTC(),
	}
}
