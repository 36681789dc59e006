// Package session splits an intraday price series into pre-market, regular and
// after-hours spans and derives the baseline used for change calculations.
package session

import (
	"tickerlens-api/pkg/market"
)

// PreMarket describes the span before the first regular-session point.
type PreMarket struct {
	Price       float64 `json:"price"`
	Change      float64 `json:"change"`
	Percent     float64 `json:"percent"`
	SplitOffset float64 `json:"splitOffset"`
	EndIndex    int     `json:"endIndex"`
}

// AfterHours describes the span after the last regular-session point.
type AfterHours struct {
	RegularClosePrice float64 `json:"regularClosePrice"`
	Price             float64 `json:"price"`
	Change            float64 `json:"change"`
	Percent           float64 `json:"percent"`
	SplitOffset       float64 `json:"splitOffset"`
	CloseIndex        int     `json:"closeIndex"`
}

// Result is the derived view of one series.
type Result struct {
	// OpenIndex and CloseIndex are -1 when the series has no regular-session point.
	OpenIndex      int                 `json:"openIndex"`
	CloseIndex     int                 `json:"closeIndex"`
	PreMarket      *PreMarket          `json:"preMarket,omitempty"`
	AfterHours     *AfterHours         `json:"afterHours,omitempty"`
	VisibleSeries  []market.PricePoint `json:"visibleSeries"`
	ReferencePrice float64             `json:"referencePrice"`
}

// Segment classifies the points of series using their IsRegularSession flag.
// For the intraday range the live quote price is stitched onto the last point
// before anything is derived. The input series is not modified.
func Segment(series market.Series, quote market.Quote) Result {
	if series.Range.Intraday() {
		series = Stitch(series, quote)
	}
	points := series.Points
	res := Result{
		OpenIndex:     openIndex(points),
		CloseIndex:    closeIndex(points),
		VisibleSeries: points,
	}

	last := len(points) - 1
	if res.OpenIndex > 0 {
		pre := points[res.OpenIndex-1].Price
		change, percent := ChangeFrom(quote.PreviousClose, pre)
		res.PreMarket = &PreMarket{
			Price:       pre,
			Change:      change,
			Percent:     percent,
			SplitOffset: offset(res.OpenIndex, last),
			EndIndex:    res.OpenIndex,
		}
	}
	if res.CloseIndex >= 0 && res.CloseIndex < last {
		regularClose := points[res.CloseIndex].Price
		latest := points[last].Price
		change, percent := ChangeFrom(regularClose, latest)
		res.AfterHours = &AfterHours{
			RegularClosePrice: regularClose,
			Price:             latest,
			Change:            change,
			Percent:           percent,
			SplitOffset:       offset(res.CloseIndex, last),
			CloseIndex:        res.CloseIndex,
		}
		if res.OpenIndex > 0 {
			res.VisibleSeries = points[res.OpenIndex:]
		}
	}

	switch {
	case series.Range.Intraday():
		res.ReferencePrice = quote.PreviousClose
	case len(res.VisibleSeries) > 0:
		res.ReferencePrice = res.VisibleSeries[0].Price
	}
	return res
}

// Stitch returns a copy of series whose last point carries the live quote
// price. Series without points and quotes without a tradable price are
// returned unchanged.
func Stitch(series market.Series, quote market.Quote) market.Series {
	if len(series.Points) == 0 || !quote.Tradable() {
		return series
	}
	out := series.Clone()
	out.Points[len(out.Points)-1].Price = quote.Price
	return out
}

// ChangeFrom returns the absolute and percentage change of price against
// reference. A zero reference yields a zero percentage.
func ChangeFrom(reference, price float64) (change, percent float64) {
	change = price - reference
	if reference == 0 {
		return change, 0
	}
	return change, change / reference * 100
}

func openIndex(points []market.PricePoint) int {
	for i, p := range points {
		if p.IsRegularSession {
			return i
		}
	}
	return -1
}

func closeIndex(points []market.PricePoint) int {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].IsRegularSession {
			return i
		}
	}
	return -1
}

func offset(index, last int) float64 {
	if last <= 0 {
		return 0
	}
	return float64(index) / float64(last)
}
