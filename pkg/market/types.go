package market

import (
	"math"
	"time"
)

// Quote is the latest trading snapshot for a symbol.
type Quote struct {
	Symbol        string    `json:"symbol"`
	Price         float64   `json:"price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	PreviousClose float64   `json:"previousClose"`
	Currency      string    `json:"currency,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// Tradable reports whether the quote carries a usable price.
func (q Quote) Tradable() bool {
	return q.Price > 0 && !math.IsNaN(q.Price) && !math.IsInf(q.Price, 0)
}

// PricePoint is a single observation in a series. IsRegularSession is set by
// the upstream source, never inferred by consumers.
type PricePoint struct {
	Timestamp        time.Time `json:"timestamp"`
	Price            float64   `json:"price"`
	IsRegularSession bool      `json:"isRegularSession"`
}

// Series is an ordered (oldest → newest) price series for one ticker and range.
type Series struct {
	Ticker   string       `json:"ticker"`
	Range    Range        `json:"range"`
	Interval string       `json:"interval"`
	Points   []PricePoint `json:"points"`
}

// Len returns the number of points.
func (s Series) Len() int { return len(s.Points) }

// Clone returns a copy whose points can be modified without touching s.
func (s Series) Clone() Series {
	cp := s
	if s.Points != nil {
		cp.Points = make([]PricePoint, len(s.Points))
		copy(cp.Points, s.Points)
	}
	return cp
}

// Metadata describes the company behind a ticker.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Sector      string `json:"sector,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Exchange    string `json:"exchange,omitempty"`
}

// NewsItem is a single headline about a ticker.
type NewsItem struct {
	Headline    string    `json:"headline"`
	Summary     string    `json:"summary,omitempty"`
	URL         string    `json:"url,omitempty"`
	Source      string    `json:"source,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
}

// PriceTargets holds analyst price targets.
type PriceTargets struct {
	Low    float64 `json:"low,omitempty"`
	Mean   float64 `json:"mean,omitempty"`
	Median float64 `json:"median,omitempty"`
	High   float64 `json:"high,omitempty"`
}

// RatingTrend counts the latest analyst recommendations by bucket.
type RatingTrend struct {
	StrongBuy  int `json:"strongBuy"`
	Buy        int `json:"buy"`
	Hold       int `json:"hold"`
	Sell       int `json:"sell"`
	StrongSell int `json:"strongSell"`
}

// AnalystRatings summarises the sell-side view of a ticker.
type AnalystRatings struct {
	// RecommendationMean is on the 1 (strong buy) to 5 (strong sell) scale.
	RecommendationMean float64      `json:"recommendationMean,omitempty"`
	Consensus          string       `json:"consensus,omitempty"`
	AnalystCount       int          `json:"analystCount,omitempty"`
	PriceTargets       PriceTargets `json:"priceTargets"`
	Trend              *RatingTrend `json:"trend,omitempty"`
}
