// Package viewstate holds the single active ticker view and the named
// transitions that are allowed to change it.
package viewstate

import (
	"time"

	"tickerlens-api/pkg/market"
)

// Phase is the lifecycle position of the active view.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading"
	PhaseReady      Phase = "ready"
	PhaseRefreshing Phase = "refreshing"
	PhaseFailed     Phase = "failed"
)

// Status is the lifecycle of one enrichment slice.
type Status string

const (
	StatusPending Status = "pending"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Slice is an independently resolving piece of enrichment data.
type Slice[T any] struct {
	Status Status `json:"status"`
	Value  T      `json:"value"`
	Err    string `json:"error,omitempty"`
}

// Pending returns an unsettled slice.
func Pending[T any]() Slice[T] {
	return Slice[T]{Status: StatusPending}
}

// Settled reports whether the slice reached ready or failed.
func (s Slice[T]) Settled() bool {
	return s.Status == StatusReady || s.Status == StatusFailed
}

// settle moves a pending slice to ready or failed. Settled slices never change.
func settle[T any](cur Slice[T], v T, err error) (Slice[T], bool) {
	if cur.Settled() {
		return cur, false
	}
	if err != nil {
		return Slice[T]{Status: StatusFailed, Value: v, Err: err.Error()}, true
	}
	return Slice[T]{Status: StatusReady, Value: v}, true
}

// PeerSeries maps peer tickers to their series at Range. Range lags the view
// range while a range change is refetching peers. Errors keeps the cause for
// each peer whose fetch failed.
type PeerSeries struct {
	Range  market.Range             `json:"range,omitempty"`
	Series map[string]market.Series `json:"series"`
	Errors map[string]string        `json:"errors,omitempty"`
}

func (p PeerSeries) clone() PeerSeries {
	out := PeerSeries{Range: p.Range, Series: make(map[string]market.Series, len(p.Series))}
	for k, v := range p.Series {
		out.Series[k] = v.Clone()
	}
	if len(p.Errors) > 0 {
		out.Errors = make(map[string]string, len(p.Errors))
		for k, v := range p.Errors {
			out.Errors[k] = v
		}
	}
	return out
}

// ViewState is the aggregate rendered for the active ticker.
type ViewState struct {
	Ticker     string                       `json:"ticker"`
	Range      market.Range                 `json:"range"`
	Phase      Phase                        `json:"phase"`
	Err        string                       `json:"error,omitempty"`
	Quote      market.Quote                 `json:"quote"`
	Series     market.Series                `json:"series"`
	Metadata   market.Metadata              `json:"metadata"`
	News       []market.NewsItem            `json:"news"`
	Narrative  Slice[string]                `json:"narrative"`
	Peers      Slice[[]string]              `json:"peers"`
	PeerSeries Slice[PeerSeries]            `json:"peerSeries"`
	Ratings    Slice[market.AnalystRatings] `json:"ratings"`
	Hover      *market.PricePoint           `json:"hover,omitempty"`
	RefreshErr string                       `json:"refreshError,omitempty"`
	Version    uint64                       `json:"version"`
	UpdatedAt  time.Time                    `json:"updatedAt"`
}

// Complete reports full enrichment: the view is ready and every slice settled.
func (v ViewState) Complete() bool {
	return v.Phase == PhaseReady &&
		v.Narrative.Settled() &&
		v.Peers.Settled() &&
		v.PeerSeries.Settled() &&
		v.Ratings.Settled()
}

// Displayable reports whether primary quote and series data may be shown.
func (v ViewState) Displayable() bool {
	return v.Phase == PhaseReady || v.Phase == PhaseRefreshing
}

// PeerSeriesAligned reports whether the peer series were fetched for the
// view's current range.
func (v ViewState) PeerSeriesAligned() bool {
	r := v.PeerSeries.Value.Range
	return r == "" || r == v.Range
}

// Clone returns a deep copy sharing no mutable memory with v.
func (v ViewState) Clone() ViewState {
	out := v
	out.Series = v.Series.Clone()
	if v.News != nil {
		out.News = append([]market.NewsItem(nil), v.News...)
	}
	if v.Peers.Value != nil {
		out.Peers.Value = append([]string(nil), v.Peers.Value...)
	}
	if v.PeerSeries.Value.Series != nil || v.PeerSeries.Value.Errors != nil {
		out.PeerSeries.Value = v.PeerSeries.Value.clone()
	}
	if v.Ratings.Value.Trend != nil {
		trend := *v.Ratings.Value.Trend
		out.Ratings.Value.Trend = &trend
	}
	if v.Hover != nil {
		hover := *v.Hover
		out.Hover = &hover
	}
	return out
}

// Primary is the consolidated Stage 1 result.
type Primary struct {
	Quote      market.Quote
	Series     market.Series
	Metadata   market.Metadata
	News       []market.NewsItem
	RefreshErr string
}
