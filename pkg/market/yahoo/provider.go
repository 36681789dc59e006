package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/pkg/market"
)

const (
	defaultProviderTimeout = 8 * time.Second
	providerType           = "yahoo"
)

// Provider serves quotes, series, metadata and analyst ratings from Yahoo.
type Provider struct {
	client     *Client
	timeout    time.Duration
	providerID string
}

type providerConfig struct {
	timeout      time.Duration
	clientConfig []Option
}

// ProviderOption customises the Yahoo provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithClientOptions passes options to the underlying client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientConfig = append(cfg.clientConfig, options...)
	}
}

// NewProvider constructs a Yahoo market provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{timeout: defaultProviderTimeout}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		client:  NewClient(cfg.clientConfig...),
		timeout: cfg.timeout,
	}
}

func init() {
	market.RegisterProvider(providerType, func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{
			WithBaseURL(cfg.BaseURL),
			WithSummaryURL(cfg.SummaryURL),
			WithUserAgent(cfg.UserAgent),
		}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		opts = append(opts, WithClientOptions(clientOptions...))
		provider := NewProvider(opts...)
		provider.providerID = name
		return provider, nil
	})
}

// Quote implements market.Provider using the meta block of a one-day chart.
func (p *Provider) Quote(ctx context.Context, ticker string) (market.Quote, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	chart, err := p.client.Chart(ctx, ticker, ChartRequest{Range: string(market.Range1D), Interval: market.Range1D.Interval()})
	if err != nil {
		return market.Quote{}, p.wrap(err)
	}
	meta := chart.Meta
	quote := market.Quote{
		Symbol:        strings.ToUpper(firstNonEmpty(meta.Symbol, ticker)),
		Price:         meta.RegularMarketPrice,
		High:          meta.RegularMarketDayHigh,
		Low:           meta.RegularMarketDayLow,
		PreviousClose: meta.PreviousClose,
		Currency:      meta.Currency,
		Timestamp:     meta.marketTime(),
	}
	if quote.PreviousClose == 0 {
		quote.PreviousClose = meta.ChartPreviousClose
	}
	if open, ok := firstRegularOpen(chart); ok {
		quote.Open = open
	}
	return quote, nil
}

// Series implements market.Provider. Pre and post market bars are requested
// for the intraday range only; every other range consists of regular bars.
func (p *Provider) Series(ctx context.Context, ticker string, rng market.Range) (market.Series, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	if !rng.Valid() {
		rng = market.DefaultRange
	}
	req := ChartRequest{Range: string(rng), Interval: rng.Interval(), PrePost: rng.Intraday()}
	chart, err := p.client.Chart(ctx, ticker, req)
	if err != nil {
		return market.Series{}, p.wrap(err)
	}
	series := market.Series{
		Ticker:   strings.ToUpper(ticker),
		Range:    rng,
		Interval: req.Interval,
		Points:   toPoints(chart, rng.Intraday()),
	}
	if len(series.Points) == 0 {
		logx.WithContext(ctx).Debugf("yahoo: empty series ticker=%s range=%s provider=%s", ticker, rng, p.name())
	}
	return series, nil
}

// Metadata implements market.Provider.
func (p *Provider) Metadata(ctx context.Context, ticker string) (market.Metadata, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	summary, err := p.client.QuoteSummary(ctx, ticker, "price", "assetProfile")
	if err != nil {
		return market.Metadata{}, p.wrap(err)
	}
	var meta market.Metadata
	if summary.Price != nil {
		meta.Name = firstNonEmpty(summary.Price.LongName, summary.Price.ShortName)
		meta.Exchange = summary.Price.ExchangeName
	}
	if summary.AssetProfile != nil {
		meta.Description = summary.AssetProfile.LongBusinessSummary
		meta.Sector = summary.AssetProfile.Sector
		meta.Industry = summary.AssetProfile.Industry
	}
	if meta.Name == "" {
		meta.Name = strings.ToUpper(ticker)
	}
	return meta, nil
}

// AnalystRatings implements market.Provider.
func (p *Provider) AnalystRatings(ctx context.Context, ticker string) (market.AnalystRatings, error) {
	ctx, cancel := p.withTimeout(ctx)
	defer cancel()
	summary, err := p.client.QuoteSummary(ctx, ticker, "financialData", "recommendationTrend")
	if err != nil {
		return market.AnalystRatings{}, p.wrap(err)
	}
	var ratings market.AnalystRatings
	if fd := summary.FinancialData; fd != nil {
		ratings.RecommendationMean = fd.RecommendationMean.Raw
		ratings.Consensus = fd.RecommendationKey
		ratings.AnalystCount = int(fd.NumberOfAnalystOpinions.Raw)
		ratings.PriceTargets = market.PriceTargets{
			Low:    fd.TargetLowPrice.Raw,
			Mean:   fd.TargetMeanPrice.Raw,
			Median: fd.TargetMedianPrice.Raw,
			High:   fd.TargetHighPrice.Raw,
		}
	}
	if rt := summary.RecommendationTrend; rt != nil {
		for _, tr := range rt.Trend {
			if tr.Period == "0m" {
				ratings.Trend = &market.RatingTrend{
					StrongBuy:  tr.StrongBuy,
					Buy:        tr.Buy,
					Hold:       tr.Hold,
					Sell:       tr.Sell,
					StrongSell: tr.StrongSell,
				}
				break
			}
		}
	}
	return ratings, nil
}

func toPoints(chart *ChartResult, classify bool) []market.PricePoint {
	if len(chart.Indicators.Quote) == 0 {
		return nil
	}
	closes := chart.Indicators.Quote[0].Close
	var regular []TradingPeriod
	if classify {
		regular = chart.Meta.regularPeriods()
	}
	points := make([]market.PricePoint, 0, len(chart.Timestamp))
	var lastTS int64
	for i, ts := range chart.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		if len(points) > 0 && ts <= lastTS {
			continue
		}
		points = append(points, market.PricePoint{
			Timestamp:        time.Unix(ts, 0).UTC(),
			Price:            *closes[i],
			IsRegularSession: !classify || inPeriods(regular, ts),
		})
		lastTS = ts
	}
	return points
}

func firstRegularOpen(chart *ChartResult) (float64, bool) {
	if len(chart.Indicators.Quote) == 0 {
		return 0, false
	}
	opens := chart.Indicators.Quote[0].Open
	regular := chart.Meta.regularPeriods()
	for i, ts := range chart.Timestamp {
		if i >= len(opens) || opens[i] == nil {
			continue
		}
		if len(regular) == 0 || inPeriods(regular, ts) {
			return *opens[i], true
		}
	}
	return 0, false
}

func inPeriods(periods []TradingPeriod, ts int64) bool {
	for _, p := range periods {
		if p.contains(ts) {
			return true
		}
	}
	return false
}

func (p *Provider) wrap(err error) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %v", market.ErrInvalidTicker, err)
	}
	return fmt.Errorf("%s: %w", p.name(), err)
}

func (p *Provider) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Provider) name() string {
	if strings.TrimSpace(p.providerID) != "" {
		return p.providerID
	}
	return providerType
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
