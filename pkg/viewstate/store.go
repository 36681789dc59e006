package viewstate

import (
	"errors"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/pkg/market"
)

// Tag identifies which view a write was produced for. Epoch changes on every
// lookup or restore; RangeSeq changes whenever a refresh lands a new range.
// Refresh identifies one refresh attempt.
type Tag struct {
	Ticker   string
	Epoch    uint64
	RangeSeq uint64
	Range    market.Range
	Refresh  uint64
}

type scope int

const (
	// scopeView writes survive range changes.
	scopeView scope = iota
	// scopeRange writes are bound to the range that was active when issued.
	scopeRange
	// scopeRefresh writes belong to the latest refresh attempt.
	scopeRefresh
)

// Store owns the active ViewState. Every mutation replaces whole field values
// under the mutex and bumps Version.
type Store struct {
	mu        sync.Mutex
	state     ViewState
	tag       Tag
	refresh   uint64
	listeners []func(ViewState)
	now       func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStore returns an idle store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		state: ViewState{Phase: PhaseIdle},
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers a listener that receives a snapshot after every applied
// mutation. Listeners run outside the lock and may observe snapshots out of
// order under concurrent writers; compare Version when ordering matters.
func (s *Store) OnChange(fn func(ViewState)) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current view.
func (s *Store) Snapshot() ViewState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Version returns the number of applied mutations.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Version
}

// Tag returns the tag of the active view.
func (s *Store) Tag() Tag {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tag
}

// SnapshotFor returns a copy of the view only while tag still addresses it.
func (s *Store) SnapshotFor(tag Tag) (ViewState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.matchesLocked(tag, scopeView) {
		return ViewState{}, false
	}
	return s.state.Clone(), true
}

// Begin replaces the view with a fresh loading view for ticker.
func (s *Store) Begin(ticker string, rng market.Range) Tag {
	s.mu.Lock()
	s.tag = Tag{Ticker: ticker, Epoch: s.tag.Epoch + 1, Range: rng}
	tag := s.tag
	next := ViewState{
		Ticker:     ticker,
		Range:      rng,
		Phase:      PhaseLoading,
		Narrative:  Pending[string](),
		Peers:      Pending[[]string](),
		PeerSeries: Pending[PeerSeries](),
		Ratings:    Pending[market.AnalystRatings](),
		Version:    s.state.Version,
	}
	snap, listeners := s.commitLocked(next)
	s.mu.Unlock()
	notify(listeners, snap)
	return tag
}

// Fail moves a loading view to failed. Failed is terminal until the next Begin.
func (s *Store) Fail(tag Tag, cause error) bool {
	return s.apply("fail", tag, scopeView, func(v *ViewState) bool {
		if v.Phase != PhaseLoading {
			return false
		}
		v.Phase = PhaseFailed
		v.Err = errString(cause)
		return true
	})
}

// Resolve installs the Stage 1 result and marks the view ready with every
// enrichment slice pending.
func (s *Store) Resolve(tag Tag, p Primary) bool {
	return s.apply("resolve", tag, scopeView, func(v *ViewState) bool {
		if v.Phase != PhaseLoading {
			return false
		}
		v.Phase = PhaseReady
		v.Err = ""
		v.Quote = p.Quote
		v.Series = p.Series.Clone()
		v.Metadata = p.Metadata
		v.News = append([]market.NewsItem{}, p.News...)
		v.RefreshErr = p.RefreshErr
		v.Narrative = Pending[string]()
		v.Peers = Pending[[]string]()
		v.PeerSeries = Pending[PeerSeries]()
		v.Ratings = Pending[market.AnalystRatings]()
		v.Hover = nil
		return true
	})
}

// ErrNotReady is returned by BeginRefresh when no resolved view exists.
var ErrNotReady = errors.New("viewstate: view is not ready")

// BeginRefresh enters the scoped refresh of quote and series for rng.
// Enrichment slices are left untouched. A newer refresh supersedes any
// refresh still in flight.
func (s *Store) BeginRefresh(rng market.Range) (Tag, error) {
	s.mu.Lock()
	if !s.state.Displayable() {
		s.mu.Unlock()
		return Tag{}, ErrNotReady
	}
	s.refresh++
	tag := s.tag
	tag.Range = rng
	tag.Refresh = s.refresh
	next := s.state
	next.Phase = PhaseRefreshing
	snap, listeners := s.commitLocked(next)
	s.mu.Unlock()
	notify(listeners, snap)
	return tag, nil
}

// ResolveRefresh merges the refreshed quote and series, switches the view to
// the refresh range and returns to ready. Enrichment slices are untouched;
// in-flight peer series writes for the previous range become stale. The
// returned tag addresses the new range.
func (s *Store) ResolveRefresh(tag Tag, quote market.Quote, series market.Series) (Tag, bool) {
	var out Tag
	ok := s.apply("resolve refresh", tag, scopeRefresh, func(v *ViewState) bool {
		if v.Phase != PhaseRefreshing {
			return false
		}
		v.Phase = PhaseReady
		v.Range = tag.Range
		v.Quote = quote
		v.Series = series.Clone()
		v.RefreshErr = ""
		v.Hover = nil
		s.tag.RangeSeq++
		s.tag.Range = tag.Range
		out = s.tag
		return true
	})
	return out, ok
}

// FailRefresh returns to ready keeping the previous quote, series and range.
func (s *Store) FailRefresh(tag Tag, cause error) bool {
	return s.apply("fail refresh", tag, scopeRefresh, func(v *ViewState) bool {
		if v.Phase != PhaseRefreshing {
			return false
		}
		v.Phase = PhaseReady
		v.RefreshErr = errString(cause)
		return true
	})
}

// SetNarrative settles the narrative slice. text is kept even on failure so
// the placeholder can be displayed.
func (s *Store) SetNarrative(tag Tag, text string, cause error) bool {
	return s.applySlice("narrative", tag, scopeView, func(v *ViewState) bool {
		next, ok := settle(v.Narrative, text, cause)
		v.Narrative = next
		return ok
	})
}

// SetPeers settles the peer list slice.
func (s *Store) SetPeers(tag Tag, peers []string, cause error) bool {
	return s.applySlice("peers", tag, scopeView, func(v *ViewState) bool {
		next, ok := settle(v.Peers, append([]string(nil), peers...), cause)
		v.Peers = next
		return ok
	})
}

// SetRatings settles the analyst ratings slice.
func (s *Store) SetRatings(tag Tag, ratings market.AnalystRatings, cause error) bool {
	return s.applySlice("ratings", tag, scopeView, func(v *ViewState) bool {
		next, ok := settle(v.Ratings, ratings, cause)
		v.Ratings = next
		return ok
	})
}

// MergePeerSeries adds one peer's result to the pending peer series map.
// Partial maps are valid while the slice is pending.
func (s *Store) MergePeerSeries(tag Tag, peer string, series market.Series, cause error) bool {
	return s.applySlice("peer series", tag, scopeRange, func(v *ViewState) bool {
		if v.PeerSeries.Settled() {
			return false
		}
		merged := v.PeerSeries.Value.clone()
		merged.Range = tag.Range
		if cause != nil {
			if merged.Errors == nil {
				merged.Errors = make(map[string]string)
			}
			merged.Errors[peer] = cause.Error()
			delete(merged.Series, peer)
		} else {
			merged.Series[peer] = series.Clone()
			delete(merged.Errors, peer)
		}
		v.PeerSeries = Slice[PeerSeries]{Status: StatusPending, Value: merged}
		return true
	})
}

// SettlePeerSeries closes the peer series fan-out. The slice fails when cause
// is set or when every peer failed; otherwise it becomes ready.
func (s *Store) SettlePeerSeries(tag Tag, cause error) bool {
	return s.applySlice("settle peer series", tag, scopeRange, func(v *ViewState) bool {
		value := v.PeerSeries.Value.clone()
		value.Range = tag.Range
		next, ok := settle(v.PeerSeries, value, peerSeriesCause(value, cause))
		v.PeerSeries = next
		return ok
	})
}

// ReplacePeerSeries swaps in a complete peer series map fetched for the range
// addressed by tag. The previous slice stays visible until this write lands
// and is replaced whole, settled the same way SettlePeerSeries would.
func (s *Store) ReplacePeerSeries(tag Tag, value PeerSeries, cause error) bool {
	return s.applySlice("replace peer series", tag, scopeRange, func(v *ViewState) bool {
		value = value.clone()
		value.Range = tag.Range
		v.PeerSeries, _ = settle(Pending[PeerSeries](), value, peerSeriesCause(value, cause))
		return true
	})
}

func peerSeriesCause(value PeerSeries, cause error) error {
	if cause == nil && len(value.Series) == 0 && len(value.Errors) > 0 {
		return errors.New("viewstate: every peer series failed")
	}
	return cause
}

// ResetPeerSeries reopens the peer series slice and discards partial results.
func (s *Store) ResetPeerSeries(tag Tag) bool {
	return s.applySlice("reset peer series", tag, scopeRange, func(v *ViewState) bool {
		v.PeerSeries = Pending[PeerSeries]()
		return true
	})
}

// SetHover records the hovered point; nil clears it. Ignored unless the view
// is displayable.
func (s *Store) SetHover(point *market.PricePoint) bool {
	s.mu.Lock()
	if !s.state.Displayable() {
		s.mu.Unlock()
		return false
	}
	next := s.state
	if point != nil {
		p := *point
		next.Hover = &p
	} else {
		next.Hover = nil
	}
	snap, listeners := s.commitLocked(next)
	s.mu.Unlock()
	notify(listeners, snap)
	return true
}

// Install replaces the view with a previously saved snapshot marked ready.
func (s *Store) Install(view ViewState) Tag {
	s.mu.Lock()
	s.tag = Tag{Ticker: view.Ticker, Epoch: s.tag.Epoch + 1, Range: view.Range}
	tag := s.tag
	next := view.Clone()
	next.Phase = PhaseReady
	next.Err = ""
	next.Hover = nil
	next.Version = s.state.Version
	snap, listeners := s.commitLocked(next)
	s.mu.Unlock()
	notify(listeners, snap)
	return tag
}

func (s *Store) apply(op string, tag Tag, sc scope, fn func(v *ViewState) bool) bool {
	s.mu.Lock()
	if !s.matchesLocked(tag, sc) {
		s.mu.Unlock()
		logx.Debugf("viewstate: dropped stale %s write for %s (epoch=%d range=%d)", op, tag.Ticker, tag.Epoch, tag.RangeSeq)
		return false
	}
	next := s.state
	if !fn(&next) {
		s.mu.Unlock()
		return false
	}
	snap, listeners := s.commitLocked(next)
	s.mu.Unlock()
	notify(listeners, snap)
	return true
}

// applySlice is apply restricted to displayable views.
func (s *Store) applySlice(op string, tag Tag, sc scope, fn func(v *ViewState) bool) bool {
	return s.apply(op, tag, sc, func(v *ViewState) bool {
		return v.Displayable() && fn(v)
	})
}

func (s *Store) matchesLocked(tag Tag, sc scope) bool {
	if tag.Ticker != s.tag.Ticker || tag.Epoch != s.tag.Epoch {
		return false
	}
	switch sc {
	case scopeRange:
		return tag.RangeSeq == s.tag.RangeSeq
	case scopeRefresh:
		return tag.Refresh == s.refresh
	}
	return true
}

func (s *Store) commitLocked(next ViewState) (ViewState, []func(ViewState)) {
	next.Version = s.state.Version + 1
	next.UpdatedAt = s.now()
	s.state = next
	if len(s.listeners) == 0 {
		return ViewState{}, nil
	}
	listeners := make([]func(ViewState), len(s.listeners))
	copy(listeners, s.listeners)
	return next.Clone(), listeners
}

func notify(listeners []func(ViewState), snap ViewState) {
	for _, fn := range listeners {
		fn(snap)
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
