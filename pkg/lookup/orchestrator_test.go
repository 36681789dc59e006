package lookup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerlens-api/pkg/enrich"
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/viewstate"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)

var base = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

// fakeGateway serves canned data. Enrichment calls for a ticker block on its
// gate until the gate is closed.
type fakeGateway struct {
	mu          sync.Mutex
	quotes      map[string]market.Quote
	news        map[string][]market.NewsItem
	peers       map[string][]string
	gates       map[string]chan struct{}
	metaErr     error
	seriesErr   error
	narrErr     error
	peersErr    error
	quoteCalls  atomic.Int32
	narrCalls   atomic.Int32
	released    atomic.Int32
	seriesCalls map[string][]market.Range
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		quotes: map[string]market.Quote{
			"AAPL": {Symbol: "AAPL", Price: 190, PreviousClose: 188},
			"MSFT": {Symbol: "MSFT", Price: 410, PreviousClose: 405},
			"ZZZZ": {Symbol: "ZZZZ"},
		},
		news: map[string][]market.NewsItem{
			"AAPL": {{Headline: "Apple ships", PublishedAt: base}},
			"MSFT": {{Headline: "Microsoft ships", PublishedAt: base}},
		},
		peers: map[string][]string{
			"AAPL": {"GOOG", "AMZN"},
			"MSFT": {"ORCL", "CRM"},
		},
		gates:       map[string]chan struct{}{},
		seriesCalls: map[string][]market.Range{},
	}
}

func (f *fakeGateway) gate(ticker string) {
	f.mu.Lock()
	g := f.gates[ticker]
	f.mu.Unlock()
	if g != nil {
		<-g
		f.released.Add(1)
	}
}

func (f *fakeGateway) Quote(_ context.Context, ticker string) (market.Quote, error) {
	f.quoteCalls.Add(1)
	q, ok := f.quotes[ticker]
	if !ok {
		return market.Quote{}, market.ErrInvalidTicker
	}
	return q, nil
}

func (f *fakeGateway) Metadata(_ context.Context, ticker string) (market.Metadata, error) {
	if f.metaErr != nil {
		return market.Metadata{}, f.metaErr
	}
	return market.Metadata{Name: ticker + " Corp"}, nil
}

func (f *fakeGateway) Series(_ context.Context, ticker string, rng market.Range) (market.Series, error) {
	f.mu.Lock()
	f.seriesCalls[ticker] = append(f.seriesCalls[ticker], rng)
	seriesErr := f.seriesErr
	f.mu.Unlock()
	if seriesErr != nil {
		return market.Series{}, seriesErr
	}
	return market.Series{
		Ticker:   ticker,
		Range:    rng,
		Interval: rng.Interval(),
		Points: []market.PricePoint{
			{Timestamp: base, Price: 100, IsRegularSession: true},
			{Timestamp: base.Add(5 * time.Minute), Price: 101, IsRegularSession: true},
		},
	}, nil
}

func (f *fakeGateway) News(_ context.Context, ticker string) ([]market.NewsItem, error) {
	return f.news[ticker], nil
}

// Narrative receives the ticker as prompt; see tickerPrompt.
func (f *fakeGateway) Narrative(_ context.Context, prompt string) (string, error) {
	f.narrCalls.Add(1)
	f.gate(prompt)
	if f.narrErr != nil {
		return enrich.NarrativeUnavailable, f.narrErr
	}
	return prompt + " story", nil
}

func (f *fakeGateway) Peers(_ context.Context, ticker, _ string) ([]string, error) {
	f.gate(ticker)
	if f.peersErr != nil {
		return nil, f.peersErr
	}
	return f.peers[ticker], nil
}

func (f *fakeGateway) AnalystRatings(_ context.Context, ticker string) (market.AnalystRatings, error) {
	f.gate(ticker)
	return market.AnalystRatings{Consensus: ticker + " buy"}, nil
}

func (f *fakeGateway) seriesRanges(ticker string) []market.Range {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]market.Range(nil), f.seriesCalls[ticker]...)
}

type memCache struct {
	mu      sync.Mutex
	entries map[string]viewstate.Entry
	last    string
	saves   int
}

func newMemCache() *memCache { return &memCache{entries: map[string]viewstate.Entry{}} }

func (c *memCache) Save(_ context.Context, ticker string, view viewstate.ViewState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[ticker] = viewstate.Entry{Ticker: ticker, View: view, WrittenAt: time.Now()}
	c.last = ticker
	c.saves++
	return nil
}

func (c *memCache) Load(_ context.Context, ticker string) (*viewstate.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ticker == "" {
		ticker = c.last
	}
	e, ok := c.entries[ticker]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (c *memCache) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

func tickerPrompt(ticker string, _ market.Metadata, _ []market.NewsItem) (string, error) {
	return ticker, nil
}

func newOrchestrator(t *testing.T, gw *fakeGateway, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithPromptBuilder(tickerPrompt)}, opts...)
	o, err := New(gw, opts...)
	require.NoError(t, err)
	return o
}

func complete(o *Orchestrator) func() bool {
	return func() bool { return o.Snapshot().Complete() }
}

func TestLookupResolvesStages(t *testing.T) {
	gw := newFakeGateway()
	cache := newMemCache()
	o := newOrchestrator(t, gw, WithCache(cache))

	require.NoError(t, o.Lookup(context.Background(), " aapl "))
	snap := o.Snapshot()
	assert.Equal(t, "AAPL", snap.Ticker)
	assert.Equal(t, viewstate.PhaseReady, snap.Phase)
	assert.Equal(t, market.Range1D, snap.Range)
	assert.Equal(t, "AAPL Corp", snap.Metadata.Name)
	// intraday series ends at the live price
	assert.Equal(t, 190.0, snap.Series.Points[len(snap.Series.Points)-1].Price)
	assert.Equal(t, 1, cache.saveCount())

	require.Eventually(t, complete(o), waitFor, tick)
	snap = o.Snapshot()
	assert.Equal(t, "AAPL story", snap.Narrative.Value)
	assert.Equal(t, []string{"GOOG", "AMZN"}, snap.Peers.Value)
	assert.Equal(t, "AAPL buy", snap.Ratings.Value.Consensus)
	assert.Len(t, snap.PeerSeries.Value.Series, 2)
}

func TestLookupStaleEnrichmentDropped(t *testing.T) {
	gw := newFakeGateway()
	gate := make(chan struct{})
	gw.gates["AAPL"] = gate
	o := newOrchestrator(t, gw)
	ctx := context.Background()

	require.NoError(t, o.Lookup(ctx, "AAPL"))
	require.NoError(t, o.Lookup(ctx, "MSFT"))
	require.Eventually(t, complete(o), waitFor, tick)

	close(gate)
	require.Eventually(t, func() bool { return gw.released.Load() == 3 }, waitFor, tick)
	require.Never(t, func() bool {
		snap := o.Snapshot()
		return snap.Narrative.Value != "MSFT story" ||
			snap.Ratings.Value.Consensus != "MSFT buy" ||
			len(snap.Peers.Value) != 2 || snap.Peers.Value[0] != "ORCL"
	}, 100*time.Millisecond, tick)

	snap := o.Snapshot()
	assert.Equal(t, "MSFT", snap.Ticker)
	assert.NotContains(t, snap.PeerSeries.Value.Series, "GOOG")
	assert.NotContains(t, snap.PeerSeries.Value.Series, "AMZN")
	assert.Empty(t, gw.seriesRanges("GOOG"))
}

func TestLookupWithoutPriceFails(t *testing.T) {
	gw := newFakeGateway()
	cache := newMemCache()
	o := newOrchestrator(t, gw, WithCache(cache))

	err := o.Lookup(context.Background(), "ZZZZ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, market.ErrInvalidTicker))

	snap := o.Snapshot()
	assert.Equal(t, viewstate.PhaseFailed, snap.Phase)
	assert.NotEmpty(t, snap.Err)
	assert.Zero(t, cache.saveCount())
	assert.Never(t, func() bool { return gw.narrCalls.Load() > 0 }, 50*time.Millisecond, tick)
}

func TestLookupRejectsMalformedTicker(t *testing.T) {
	gw := newFakeGateway()
	o := newOrchestrator(t, gw)

	err := o.Lookup(context.Background(), "AA..PL")
	assert.ErrorIs(t, err, market.ErrInvalidTicker)
	assert.Zero(t, gw.quoteCalls.Load())
	assert.Equal(t, viewstate.PhaseIdle, o.Snapshot().Phase)
}

func TestNarrativeSkippedWithoutNews(t *testing.T) {
	gw := newFakeGateway()
	gw.news["AAPL"] = nil
	o := newOrchestrator(t, gw)

	require.NoError(t, o.Lookup(context.Background(), "AAPL"))
	require.Eventually(t, complete(o), waitFor, tick)

	snap := o.Snapshot()
	assert.Equal(t, viewstate.StatusReady, snap.Narrative.Status)
	assert.Equal(t, enrich.NarrativeUnavailable, snap.Narrative.Value)
	assert.Zero(t, gw.narrCalls.Load())
}

func TestEnrichmentFailuresStayLocal(t *testing.T) {
	gw := newFakeGateway()
	gw.narrErr = errors.New("model overloaded")
	gw.peersErr = errors.New("bad reply")
	o := newOrchestrator(t, gw)

	require.NoError(t, o.Lookup(context.Background(), "AAPL"))
	require.Eventually(t, complete(o), waitFor, tick)

	snap := o.Snapshot()
	assert.Equal(t, viewstate.StatusFailed, snap.Narrative.Status)
	assert.Equal(t, "model overloaded", snap.Narrative.Err)
	assert.Equal(t, enrich.NarrativeUnavailable, snap.Narrative.Value)
	assert.Equal(t, viewstate.StatusFailed, snap.Peers.Status)
	assert.Equal(t, viewstate.StatusFailed, snap.PeerSeries.Status)
	assert.Equal(t, viewstate.StatusReady, snap.Ratings.Status)
	assert.Equal(t, int32(1), gw.narrCalls.Load())
}

func TestLookupToleratesSecondaryFailures(t *testing.T) {
	gw := newFakeGateway()
	gw.metaErr = errors.New("summary down")
	gw.seriesErr = errors.New("chart down")
	o := newOrchestrator(t, gw)

	require.NoError(t, o.Lookup(context.Background(), "AAPL"))
	snap := o.Snapshot()
	assert.Equal(t, viewstate.PhaseReady, snap.Phase)
	assert.Equal(t, "AAPL", snap.Metadata.Name)
	assert.Empty(t, snap.Series.Points)
	assert.Equal(t, "chart down", snap.RefreshErr)
}

func TestSetRangeKeepsEnrichment(t *testing.T) {
	gw := newFakeGateway()
	cache := newMemCache()
	o := newOrchestrator(t, gw, WithCache(cache))
	ctx := context.Background()

	assert.ErrorIs(t, o.SetRange(ctx, market.Range1Y), ErrNotReady)

	require.NoError(t, o.Lookup(ctx, "AAPL"))
	require.Eventually(t, complete(o), waitFor, tick)

	require.NoError(t, o.SetRange(ctx, market.Range1Y))
	snap := o.Snapshot()
	assert.Equal(t, market.Range1Y, snap.Range)
	assert.Equal(t, market.Range1Y, snap.Series.Range)
	assert.Equal(t, "AAPL story", snap.Narrative.Value)
	assert.Equal(t, 2, cache.saveCount())

	// the 1d peer series stay displayed until the 1y fetch replaces them
	assert.Equal(t, viewstate.StatusReady, snap.PeerSeries.Status)

	require.Eventually(t, func() bool {
		return o.Snapshot().PeerSeries.Value.Range == market.Range1Y
	}, waitFor, tick)
	snap = o.Snapshot()
	assert.True(t, snap.Complete())
	assert.Equal(t, viewstate.StatusReady, snap.PeerSeries.Status)
	assert.Equal(t, int32(1), gw.narrCalls.Load())
	assert.Equal(t, []market.Range{market.Range1D, market.Range1Y}, gw.seriesRanges("GOOG"))
	require.Len(t, snap.PeerSeries.Value.Series, 2)
	for _, s := range snap.PeerSeries.Value.Series {
		assert.Equal(t, market.Range1Y, s.Range)
	}
}

func TestSetRangeNeverReopensPeerSeries(t *testing.T) {
	gw := newFakeGateway()
	o := newOrchestrator(t, gw)
	ctx := context.Background()

	require.NoError(t, o.Lookup(ctx, "AAPL"))
	require.Eventually(t, complete(o), waitFor, tick)

	var mu sync.Mutex
	var statuses []viewstate.Status
	o.Store().OnChange(func(v viewstate.ViewState) {
		mu.Lock()
		statuses = append(statuses, v.PeerSeries.Status)
		mu.Unlock()
	})

	require.NoError(t, o.SetRange(ctx, market.Range5Y))
	require.Eventually(t, func() bool {
		return o.Snapshot().PeerSeries.Value.Range == market.Range5Y
	}, waitFor, tick)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, statuses)
	for _, st := range statuses {
		assert.Equal(t, viewstate.StatusReady, st)
	}
}

func TestSetRangeFailureKeepsView(t *testing.T) {
	gw := newFakeGateway()
	o := newOrchestrator(t, gw)
	ctx := context.Background()

	require.NoError(t, o.Lookup(ctx, "AAPL"))
	gw.mu.Lock()
	gw.seriesErr = errors.New("chart down")
	gw.mu.Unlock()

	require.Error(t, o.SetRange(ctx, market.Range5Y))
	snap := o.Snapshot()
	assert.Equal(t, viewstate.PhaseReady, snap.Phase)
	assert.Equal(t, market.Range1D, snap.Range)
	assert.Contains(t, snap.RefreshErr, "chart down")
}

func TestHover(t *testing.T) {
	gw := newFakeGateway()
	o := newOrchestrator(t, gw)
	assert.False(t, o.Hover(&market.PricePoint{Price: 1}))

	require.NoError(t, o.Lookup(context.Background(), "AAPL"))
	require.True(t, o.Hover(&market.PricePoint{Timestamp: base, Price: 100}))
	assert.Equal(t, 100.0, o.Snapshot().Hover.Price)
	require.True(t, o.Hover(nil))
	assert.Nil(t, o.Snapshot().Hover)
}

func TestRestoreRelaunchesPendingSlices(t *testing.T) {
	gw := newFakeGateway()
	cache := newMemCache()
	ctx := context.Background()

	first := newOrchestrator(t, gw, WithCache(cache))
	require.NoError(t, first.Lookup(ctx, "AAPL"))
	require.Eventually(t, complete(first), waitFor, tick)

	second := newOrchestrator(t, gw, WithCache(cache))
	quotes := gw.quoteCalls.Load()
	ok, err := second.Restore(ctx, "")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, quotes, gw.quoteCalls.Load())

	snap := second.Snapshot()
	assert.Equal(t, "AAPL", snap.Ticker)
	assert.Equal(t, viewstate.PhaseReady, snap.Phase)

	// the saved view was taken before enrichment settled
	require.Eventually(t, complete(second), waitFor, tick)
	assert.Equal(t, "AAPL story", second.Snapshot().Narrative.Value)
}

func TestRestoreMissing(t *testing.T) {
	o := newOrchestrator(t, newFakeGateway(), WithCache(newMemCache()))
	ok, err := o.Restore(context.Background(), "MSFT")
	require.NoError(t, err)
	assert.False(t, ok)

	noCache := newOrchestrator(t, newFakeGateway())
	ok, err = noCache.Restore(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDefaultPromptBuilder(t *testing.T) {
	o, err := New(newFakeGateway())
	require.NoError(t, err)
	text, err := o.buildPrompt("AAPL", market.Metadata{Name: "Apple"}, []market.NewsItem{{Headline: "Apple ships", PublishedAt: base}})
	require.NoError(t, err)
	assert.Contains(t, text, "Apple ships")
	assert.Contains(t, text, "AAPL")
}

func TestLookupStartsAtDefaultRange(t *testing.T) {
	gw := newFakeGateway()
	o := newOrchestrator(t, gw)
	ctx := context.Background()

	require.NoError(t, o.Lookup(ctx, "AAPL"))
	require.NoError(t, o.SetRange(ctx, market.Range5Y))
	require.Equal(t, market.Range5Y, o.Snapshot().Range)

	require.NoError(t, o.Lookup(ctx, "MSFT"))
	assert.Equal(t, []market.Range{market.Range1D}, gw.seriesRanges("MSFT"))
	assert.Equal(t, market.Range1D, o.Snapshot().Range)
}
