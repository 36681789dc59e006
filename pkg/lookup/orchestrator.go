// Package lookup runs the staged fetch for a ticker view. Stage 1 gathers the
// primary quote, series, metadata and news and blocks the caller; narrative,
// peers and analyst ratings then resolve independently into the view store.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/mr"

	"tickerlens-api/pkg/gateway"
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/market/session"
	"tickerlens-api/pkg/prompt"
	"tickerlens-api/pkg/viewstate"
)

// ErrNotReady is returned when an operation needs a resolved view.
var ErrNotReady = errors.New("lookup: no ready view")

// Cache persists resolved views across sessions.
type Cache interface {
	Save(ctx context.Context, ticker string, view viewstate.ViewState) error
	// Load returns nil when nothing fresh is stored. An empty ticker reads the
	// most recently saved view.
	Load(ctx context.Context, ticker string) (*viewstate.Entry, error)
}

// PromptBuilder renders the narrative prompt for a ticker.
type PromptBuilder func(ticker string, meta market.Metadata, news []market.NewsItem) (string, error)

// Orchestrator drives lookups against a gateway and publishes into a store.
type Orchestrator struct {
	gw           gateway.Gateway
	store        *viewstate.Store
	cache        Cache
	buildPrompt  PromptBuilder
	defaultRange market.Range
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithStore shares an existing store.
func WithStore(s *viewstate.Store) Option {
	return func(o *Orchestrator) {
		if s != nil {
			o.store = s
		}
	}
}

// WithCache enables persistence of resolved views.
func WithCache(c Cache) Option {
	return func(o *Orchestrator) { o.cache = c }
}

// WithPromptBuilder replaces the narrative prompt renderer.
func WithPromptBuilder(b PromptBuilder) Option {
	return func(o *Orchestrator) {
		if b != nil {
			o.buildPrompt = b
		}
	}
}

// WithDefaultRange sets the range used before the caller selects one.
func WithDefaultRange(r market.Range) Option {
	return func(o *Orchestrator) {
		if r.Valid() {
			o.defaultRange = r
		}
	}
}

// New constructs an Orchestrator.
func New(gw gateway.Gateway, opts ...Option) (*Orchestrator, error) {
	if gw == nil {
		return nil, errors.New("lookup: gateway is required")
	}
	o := &Orchestrator{
		gw:           gw,
		defaultRange: market.DefaultRange,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.store == nil {
		o.store = viewstate.NewStore()
	}
	if o.buildPrompt == nil {
		tpl, err := prompt.Builtin(prompt.NarrativeTemplate)
		if err != nil {
			return nil, fmt.Errorf("lookup: narrative template: %w", err)
		}
		o.buildPrompt = TemplatePrompt(tpl)
	}
	return o, nil
}

// TemplatePrompt adapts a prompt template into a PromptBuilder.
func TemplatePrompt(tpl *prompt.Template) PromptBuilder {
	return func(ticker string, meta market.Metadata, news []market.NewsItem) (string, error) {
		return tpl.Render(prompt.NarrativeData{Ticker: ticker, Name: meta.Name, News: news})
	}
}

// Store exposes the backing view store.
func (o *Orchestrator) Store() *viewstate.Store { return o.store }

// Snapshot returns a read-only copy of the active view.
func (o *Orchestrator) Snapshot() viewstate.ViewState { return o.store.Snapshot() }

// Hover records the hovered point; nil clears it.
func (o *Orchestrator) Hover(point *market.PricePoint) bool {
	return o.store.SetHover(point)
}

type primaryResult struct {
	quote     market.Quote
	quoteErr  error
	meta      market.Metadata
	metaErr   error
	news      []market.NewsItem
	newsErr   error
	series    market.Series
	seriesErr error
}

// Lookup resolves Stage 1 for ticker at the default range and returns once
// the primary view is ready or failed. Enrichment continues after return on a detached context.
func (o *Orchestrator) Lookup(ctx context.Context, raw string) error {
	ticker, err := market.NormalizeTicker(raw)
	if err != nil {
		return err
	}
	rng := o.defaultRange
	tag := o.store.Begin(ticker, rng)
	logger := logx.WithContext(ctx)

	res := o.fetchPrimary(ctx, ticker, rng)
	if res.quoteErr == nil && !res.quote.Tradable() {
		res.quoteErr = fmt.Errorf("no tradable price: %w", market.ErrInvalidTicker)
	}
	if res.quoteErr != nil {
		o.store.Fail(tag, res.quoteErr)
		logger.Infof("lookup: %s failed: %v", ticker, res.quoteErr)
		return fmt.Errorf("lookup %s: %w", ticker, res.quoteErr)
	}

	p := viewstate.Primary{Quote: res.quote, Metadata: res.meta, News: res.news, Series: res.series}
	if res.metaErr != nil {
		logger.Infof("lookup: %s metadata unavailable: %v", ticker, res.metaErr)
	}
	if strings.TrimSpace(p.Metadata.Name) == "" {
		p.Metadata.Name = ticker
	}
	if res.newsErr != nil {
		logger.Infof("lookup: %s news unavailable: %v", ticker, res.newsErr)
		p.News = nil
	}
	if res.seriesErr != nil {
		logger.Errorf("lookup: %s series %s unavailable: %v", ticker, rng, res.seriesErr)
		p.Series = market.Series{Ticker: ticker, Range: rng, Interval: rng.Interval()}
		p.RefreshErr = res.seriesErr.Error()
	}
	if rng.Intraday() {
		p.Series = session.Stitch(p.Series, p.Quote)
	}
	if !o.store.Resolve(tag, p) {
		// superseded by a newer lookup
		return nil
	}
	o.save(ctx, tag, resolvedSymbol(ticker, res.quote))

	bg := context.WithoutCancel(ctx)
	o.launchNarrative(bg, tag, ticker, p.Metadata, p.News)
	o.launchPeers(bg, tag, ticker, p.Metadata.Name)
	o.launchRatings(bg, tag, ticker)
	return nil
}

func (o *Orchestrator) fetchPrimary(ctx context.Context, ticker string, rng market.Range) primaryResult {
	var res primaryResult
	// every call reports through res so that all four always complete
	_ = mr.Finish(func() error {
		res.quote, res.quoteErr = o.gw.Quote(ctx, ticker)
		return nil
	}, func() error {
		res.meta, res.metaErr = o.gw.Metadata(ctx, ticker)
		return nil
	}, func() error {
		res.news, res.newsErr = o.gw.News(ctx, ticker)
		return nil
	}, func() error {
		res.series, res.seriesErr = o.gw.Series(ctx, ticker, rng)
		return nil
	})
	return res
}

// SetRange refreshes quote and series for rng on the active view. Narrative,
// peers and ratings are kept; peer series are refetched for the new range.
func (o *Orchestrator) SetRange(ctx context.Context, rng market.Range) error {
	if !rng.Valid() {
		return fmt.Errorf("lookup: %w %q", market.ErrInvalidRange, rng)
	}
	rtag, err := o.store.BeginRefresh(rng)
	if err != nil {
		return ErrNotReady
	}
	ticker := rtag.Ticker

	var (
		quote               market.Quote
		series              market.Series
		quoteErr, seriesErr error
	)
	_ = mr.Finish(func() error {
		quote, quoteErr = o.gw.Quote(ctx, ticker)
		return nil
	}, func() error {
		series, seriesErr = o.gw.Series(ctx, ticker, rng)
		return nil
	})
	if quoteErr == nil && !quote.Tradable() {
		quoteErr = fmt.Errorf("no tradable price: %w", market.ErrInvalidTicker)
	}
	if cause := errors.Join(quoteErr, seriesErr); cause != nil {
		o.store.FailRefresh(rtag, cause)
		return fmt.Errorf("lookup %s: refresh %s: %w", ticker, rng, cause)
	}
	if rng.Intraday() {
		series = session.Stitch(series, quote)
	}
	tag, ok := o.store.ResolveRefresh(rtag, quote, series)
	if !ok {
		return nil
	}
	o.save(ctx, tag, resolvedSymbol(ticker, quote))

	snap, ok := o.store.SnapshotFor(tag)
	if !ok {
		return nil
	}
	o.refreshPeerSeries(context.WithoutCancel(ctx), tag, snap.Peers)
	return nil
}

// Restore installs a cached view without touching the network. An empty
// ticker restores the most recently saved view. Slices that were pending when
// the view was saved are fetched again.
func (o *Orchestrator) Restore(ctx context.Context, raw string) (bool, error) {
	if o.cache == nil {
		return false, nil
	}
	ticker := ""
	if strings.TrimSpace(raw) != "" {
		t, err := market.NormalizeTicker(raw)
		if err != nil {
			return false, err
		}
		ticker = t
	}
	entry, err := o.cache.Load(ctx, ticker)
	if err != nil {
		return false, fmt.Errorf("lookup: restore %q: %w", ticker, err)
	}
	if entry == nil {
		return false, nil
	}
	view := entry.View
	if view.Ticker == "" {
		view.Ticker = entry.Ticker
	}
	if !view.Range.Valid() {
		view.Range = o.defaultRange
	}
	tag := o.store.Install(view)
	logx.WithContext(ctx).Infof("lookup: restored %s (%s) written at %s", view.Ticker, view.Range, entry.WrittenAt)

	bg := context.WithoutCancel(ctx)
	if !view.Narrative.Settled() {
		o.launchNarrative(bg, tag, view.Ticker, view.Metadata, view.News)
	}
	if !view.Ratings.Settled() {
		o.launchRatings(bg, tag, view.Ticker)
	}
	switch {
	case !view.Peers.Settled():
		o.store.ResetPeerSeries(tag)
		o.launchPeers(bg, tag, view.Ticker, view.Metadata.Name)
	case !view.PeerSeries.Settled():
		o.relaunchPeerSeries(bg, tag, view.Peers)
	}
	return true, nil
}

func (o *Orchestrator) save(ctx context.Context, tag viewstate.Tag, symbol string) {
	if o.cache == nil {
		return
	}
	snap, ok := o.store.SnapshotFor(tag)
	if !ok {
		return
	}
	if err := o.cache.Save(ctx, symbol, snap); err != nil {
		logx.WithContext(ctx).Errorf("lookup: cache save %s: %v", symbol, err)
	}
}

func resolvedSymbol(ticker string, q market.Quote) string {
	if sym, err := market.NormalizeTicker(q.Symbol); err == nil {
		return sym
	}
	return ticker
}
