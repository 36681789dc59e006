// Package alpaca adapts the Alpaca market-data API to market.Provider.
package alpaca

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/pkg/market"
)

const (
	providerType = "alpaca"
	defaultFeed  = "iex"
)

// Provider serves quotes and bars from Alpaca. Alpaca bars carry no session
// flag, so intraday points are classified by the exchange clock.
type Provider struct {
	client     *marketdata.Client
	feed       marketdata.Feed
	loc        *time.Location
	providerID string
	now        func() time.Time
}

// Option customises the Alpaca provider.
type Option func(*Provider)

// WithFeed selects the data feed ("iex" or "sip").
func WithFeed(feed string) Option {
	return func(p *Provider) {
		if feed != "" {
			p.feed = marketdata.Feed(feed)
		}
	}
}

// WithLocation overrides the exchange timezone used for classification.
func WithLocation(loc *time.Location) Option {
	return func(p *Provider) {
		if loc != nil {
			p.loc = loc
		}
	}
}

// NewProvider constructs an Alpaca market provider.
func NewProvider(opts marketdata.ClientOpts, options ...Option) *Provider {
	p := &Provider{
		client: marketdata.NewClient(opts),
		feed:   marketdata.Feed(defaultFeed),
		loc:    market.ExchangeLocation(),
		now:    time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func init() {
	market.RegisterProvider(providerType, func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		if cfg.APIKey == "" || cfg.APISecret == "" {
			return nil, fmt.Errorf("alpaca: api_key and api_secret are required")
		}
		opts := clientOpts(cfg)
		options := []Option{WithFeed(cfg.Feed)}
		if cfg.Timezone != "" {
			loc, err := time.LoadLocation(cfg.Timezone)
			if err != nil {
				return nil, fmt.Errorf("alpaca: timezone %q: %w", cfg.Timezone, err)
			}
			options = append(options, WithLocation(loc))
		}
		provider := NewProvider(opts, options...)
		provider.providerID = name
		return provider, nil
	})
}

// clientOpts maps provider config onto the Alpaca client options.
func clientOpts(cfg *market.ProviderConfig) marketdata.ClientOpts {
	opts := marketdata.ClientOpts{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
	}
	if cfg.BaseURL != "" {
		opts.BaseURL = cfg.BaseURL
	}
	if cfg.MaxRetries > 0 {
		opts.RetryLimit = cfg.MaxRetries
	}
	if cfg.HTTPTimeout > 0 {
		opts.HTTPClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	return opts
}

// Quote implements market.Provider from the symbol snapshot.
func (p *Provider) Quote(ctx context.Context, ticker string) (market.Quote, error) {
	if err := ctx.Err(); err != nil {
		return market.Quote{}, err
	}
	snap, err := p.client.GetSnapshot(ticker, marketdata.GetSnapshotRequest{Feed: p.feed})
	if err != nil {
		return market.Quote{}, fmt.Errorf("%s: snapshot %s: %w", p.name(), ticker, err)
	}
	if snap == nil {
		return market.Quote{}, fmt.Errorf("%w: %s", market.ErrInvalidTicker, ticker)
	}
	return quoteFromSnapshot(ticker, snap), nil
}

// Series implements market.Provider.
func (p *Provider) Series(ctx context.Context, ticker string, rng market.Range) (market.Series, error) {
	if err := ctx.Err(); err != nil {
		return market.Series{}, err
	}
	if !rng.Valid() {
		rng = market.DefaultRange
	}
	now := p.now()
	bars, err := p.client.GetBars(ticker, marketdata.GetBarsRequest{
		TimeFrame: timeFrame(rng),
		Start:     windowStart(rng, now, p.loc),
		End:       now,
		Feed:      p.feed,
	})
	if err != nil {
		return market.Series{}, fmt.Errorf("%s: bars %s: %w", p.name(), ticker, err)
	}
	series := market.Series{
		Ticker:   strings.ToUpper(ticker),
		Range:    rng,
		Interval: rng.Interval(),
		Points:   toPoints(bars, rng, p.loc),
	}
	logx.WithContext(ctx).Debugf("alpaca: series ticker=%s range=%s bars=%d points=%d", ticker, rng, len(bars), len(series.Points))
	return series, nil
}

// Metadata is not served by the Alpaca market-data API.
func (p *Provider) Metadata(context.Context, string) (market.Metadata, error) {
	return market.Metadata{}, market.ErrUnsupported
}

// AnalystRatings is not served by the Alpaca market-data API.
func (p *Provider) AnalystRatings(context.Context, string) (market.AnalystRatings, error) {
	return market.AnalystRatings{}, market.ErrUnsupported
}

func quoteFromSnapshot(ticker string, snap *marketdata.Snapshot) market.Quote {
	quote := market.Quote{Symbol: strings.ToUpper(ticker), Currency: "USD"}
	if snap.LatestTrade != nil {
		quote.Price = snap.LatestTrade.Price
		quote.Timestamp = snap.LatestTrade.Timestamp.UTC()
	}
	if snap.DailyBar != nil {
		quote.Open = snap.DailyBar.Open
		quote.High = snap.DailyBar.High
		quote.Low = snap.DailyBar.Low
		if quote.Price == 0 {
			quote.Price = snap.DailyBar.Close
			quote.Timestamp = snap.DailyBar.Timestamp.UTC()
		}
	}
	if snap.PrevDailyBar != nil {
		quote.PreviousClose = snap.PrevDailyBar.Close
	}
	return quote
}

func timeFrame(rng market.Range) marketdata.TimeFrame {
	switch rng {
	case market.Range1D:
		return marketdata.NewTimeFrame(5, marketdata.Min)
	case market.Range5D:
		return marketdata.NewTimeFrame(15, marketdata.Min)
	case market.Range5Y:
		return marketdata.NewTimeFrame(1, marketdata.Week)
	case market.RangeMax:
		return marketdata.NewTimeFrame(1, marketdata.Month)
	default:
		return marketdata.OneDay
	}
}

func windowStart(rng market.Range, now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	switch rng {
	case market.Range1D:
		// Covers weekends; toPoints keeps only the latest session date.
		return now.AddDate(0, 0, -4)
	case market.Range5D:
		return now.AddDate(0, 0, -7)
	case market.Range1M:
		return now.AddDate(0, -1, 0)
	case market.Range3M:
		return now.AddDate(0, -3, 0)
	case market.Range6M:
		return now.AddDate(0, -6, 0)
	case market.RangeYTD:
		return time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)
	case market.Range1Y:
		return now.AddDate(-1, 0, 0)
	case market.Range5Y:
		return now.AddDate(-5, 0, 0)
	default:
		return now.AddDate(-20, 0, 0)
	}
}

// toPoints converts bars into points. For 1d only the latest exchange date is
// kept and every bar is classified; 5d keeps regular bars only; longer ranges
// are daily or coarser and therefore regular.
func toPoints(bars []marketdata.Bar, rng market.Range, loc *time.Location) []market.PricePoint {
	if len(bars) == 0 {
		return nil
	}
	lastDay := bars[len(bars)-1].Timestamp.In(loc).Format(time.DateOnly)
	points := make([]market.PricePoint, 0, len(bars))
	for _, bar := range bars {
		if bar.Close <= 0 {
			continue
		}
		regular := true
		switch rng {
		case market.Range1D:
			if bar.Timestamp.In(loc).Format(time.DateOnly) != lastDay {
				continue
			}
			regular = market.InRegularHours(bar.Timestamp, loc)
		case market.Range5D:
			if !market.InRegularHours(bar.Timestamp, loc) {
				continue
			}
		}
		points = append(points, market.PricePoint{
			Timestamp:        bar.Timestamp.UTC(),
			Price:            bar.Close,
			IsRegularSession: regular,
		})
	}
	return points
}

func (p *Provider) name() string {
	if strings.TrimSpace(p.providerID) != "" {
		return p.providerID
	}
	return providerType
}
