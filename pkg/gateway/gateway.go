// Package gateway composes the market, news and language-model collaborators
// behind the single request/response surface used by the lookup orchestrator.
package gateway

import (
	"context"
	"errors"
	"fmt"

	"tickerlens-api/pkg/enrich"
	"tickerlens-api/pkg/market"
)

// Gateway exposes every upstream call as an independent request.
type Gateway interface {
	Quote(ctx context.Context, ticker string) (market.Quote, error)
	Metadata(ctx context.Context, ticker string) (market.Metadata, error)
	Series(ctx context.Context, ticker string, rng market.Range) (market.Series, error)
	News(ctx context.Context, ticker string) ([]market.NewsItem, error)
	Narrative(ctx context.Context, prompt string) (string, error)
	Peers(ctx context.Context, ticker, companyName string) ([]string, error)
	AnalystRatings(ctx context.Context, ticker string) (market.AnalystRatings, error)
}

// NewsSource returns recent items for a ticker.
type NewsSource interface {
	Recent(ctx context.Context, ticker string) ([]market.NewsItem, error)
}

// Enricher produces narrative and peer data.
type Enricher interface {
	Narrative(ctx context.Context, prompt string) (string, error)
	Peers(ctx context.Context, ticker, companyName string) ([]string, error)
}

// Composite routes each call to the configured collaborator. Calls the
// primary provider does not support fall through to the fallback provider.
type Composite struct {
	primary  market.Provider
	fallback market.Provider
	news     NewsSource
	enricher Enricher
}

// Option configures a Composite.
type Option func(*Composite)

// WithFallback sets the provider used when the primary returns market.ErrUnsupported.
func WithFallback(p market.Provider) Option {
	return func(c *Composite) { c.fallback = p }
}

// WithNews sets the news source.
func WithNews(n NewsSource) Option {
	return func(c *Composite) { c.news = n }
}

// WithEnricher sets the narrative and peer collaborator.
func WithEnricher(e Enricher) Option {
	return func(c *Composite) { c.enricher = e }
}

// New constructs a Composite around the primary market provider.
func New(primary market.Provider, opts ...Option) (*Composite, error) {
	if primary == nil {
		return nil, errors.New("gateway: primary market provider is required")
	}
	c := &Composite{primary: primary}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Composite) Quote(ctx context.Context, ticker string) (market.Quote, error) {
	q, err := c.primary.Quote(ctx, ticker)
	if c.useFallback(err) {
		return c.fallback.Quote(ctx, ticker)
	}
	return q, err
}

func (c *Composite) Metadata(ctx context.Context, ticker string) (market.Metadata, error) {
	m, err := c.primary.Metadata(ctx, ticker)
	if c.useFallback(err) {
		return c.fallback.Metadata(ctx, ticker)
	}
	return m, err
}

func (c *Composite) Series(ctx context.Context, ticker string, rng market.Range) (market.Series, error) {
	s, err := c.primary.Series(ctx, ticker, rng)
	if c.useFallback(err) {
		return c.fallback.Series(ctx, ticker, rng)
	}
	return s, err
}

func (c *Composite) AnalystRatings(ctx context.Context, ticker string) (market.AnalystRatings, error) {
	r, err := c.primary.AnalystRatings(ctx, ticker)
	if c.useFallback(err) {
		return c.fallback.AnalystRatings(ctx, ticker)
	}
	return r, err
}

func (c *Composite) News(ctx context.Context, ticker string) ([]market.NewsItem, error) {
	if c.news == nil {
		return nil, fmt.Errorf("gateway: news: %w", market.ErrUnsupported)
	}
	return c.news.Recent(ctx, ticker)
}

// Narrative returns enrich.NarrativeUnavailable alongside any error.
func (c *Composite) Narrative(ctx context.Context, prompt string) (string, error) {
	if c.enricher == nil {
		return enrich.NarrativeUnavailable, fmt.Errorf("gateway: narrative: %w", market.ErrUnsupported)
	}
	return c.enricher.Narrative(ctx, prompt)
}

func (c *Composite) Peers(ctx context.Context, ticker, companyName string) ([]string, error) {
	if c.enricher == nil {
		return nil, fmt.Errorf("gateway: peers: %w", market.ErrUnsupported)
	}
	return c.enricher.Peers(ctx, ticker, companyName)
}

func (c *Composite) useFallback(err error) bool {
	return c.fallback != nil && errors.Is(err, market.ErrUnsupported)
}
