package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickerlens-api/pkg/market"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func scenarioSeries() market.Series {
	return market.Series{
		Ticker:   "AAPL",
		Range:    market.Range1D,
		Interval: "5m",
		Points: []market.PricePoint{
			{Timestamp: at(9, 0), Price: 100},
			{Timestamp: at(9, 30), Price: 101, IsRegularSession: true},
			{Timestamp: at(16, 0), Price: 102, IsRegularSession: true},
			{Timestamp: at(16, 30), Price: 101.5},
		},
	}
}

func TestSegmentScenario(t *testing.T) {
	series := scenarioSeries()
	quote := market.Quote{Symbol: "AAPL", Price: 101.5, PreviousClose: 99}

	res := Segment(series, quote)

	require.NotNil(t, res.PreMarket)
	assert.Equal(t, 100.0, res.PreMarket.Price)
	assert.InDelta(t, 1.0, res.PreMarket.Change, 1e-9)
	assert.InDelta(t, 1.01, res.PreMarket.Percent, 0.01)
	assert.InDelta(t, 0.333, res.PreMarket.SplitOffset, 0.001)
	assert.Equal(t, 1, res.PreMarket.EndIndex)

	require.NotNil(t, res.AfterHours)
	assert.Equal(t, 102.0, res.AfterHours.RegularClosePrice)
	assert.Equal(t, 101.5, res.AfterHours.Price)
	assert.InDelta(t, -0.5, res.AfterHours.Change, 1e-9)
	assert.InDelta(t, -0.49, res.AfterHours.Percent, 0.01)
	assert.InDelta(t, 0.667, res.AfterHours.SplitOffset, 0.001)
	assert.Equal(t, 2, res.AfterHours.CloseIndex)

	require.Len(t, res.VisibleSeries, 3)
	assert.Equal(t, series.Points[1:], res.VisibleSeries)
	assert.Equal(t, 99.0, res.ReferencePrice)
}

func TestSegmentNoRegularPoints(t *testing.T) {
	series := scenarioSeries()
	for i := range series.Points {
		series.Points[i].IsRegularSession = false
	}
	series.Range = market.Range1M

	res := Segment(series, market.Quote{Price: 1, PreviousClose: 99})

	assert.Nil(t, res.PreMarket)
	assert.Nil(t, res.AfterHours)
	assert.Equal(t, -1, res.OpenIndex)
	assert.Equal(t, -1, res.CloseIndex)
	assert.Equal(t, series.Points, res.VisibleSeries)
	assert.Equal(t, 100.0, res.ReferencePrice)
}

func TestSegmentAllRegular(t *testing.T) {
	series := scenarioSeries()
	for i := range series.Points {
		series.Points[i].IsRegularSession = true
	}

	res := Segment(series, market.Quote{Price: 101.5, PreviousClose: 99})

	assert.Nil(t, res.PreMarket)
	assert.Nil(t, res.AfterHours)
	assert.Len(t, res.VisibleSeries, len(series.Points))
}

func TestSegmentPreMarketOnlyKeepsPrefix(t *testing.T) {
	series := scenarioSeries()
	series.Points = series.Points[:3]

	res := Segment(series, market.Quote{Price: 102.4, PreviousClose: 99})

	require.NotNil(t, res.PreMarket)
	assert.Nil(t, res.AfterHours)
	assert.Len(t, res.VisibleSeries, 3)
	assert.Equal(t, 102.4, res.VisibleSeries[2].Price)
}

func TestSegmentStitchesLivePrice(t *testing.T) {
	series := scenarioSeries()
	res := Segment(series, market.Quote{Price: 103.25, PreviousClose: 99})

	require.NotNil(t, res.AfterHours)
	assert.Equal(t, 103.25, res.AfterHours.Price)
	assert.Equal(t, 101.5, series.Points[3].Price, "input series must not be modified")
}

func TestSegmentLongRangeUsesWindowStart(t *testing.T) {
	series := scenarioSeries()
	series.Range = market.Range5D

	res := Segment(series, market.Quote{Price: 250, PreviousClose: 99})

	assert.Equal(t, 101.0, res.ReferencePrice, "first visible point after the pre-market prefix is dropped")
	assert.Equal(t, 101.5, res.AfterHours.Price, "no stitching outside the intraday range")
}

func TestSegmentZeroPreviousClose(t *testing.T) {
	res := Segment(scenarioSeries(), market.Quote{Price: 101.5})
	require.NotNil(t, res.PreMarket)
	assert.Equal(t, 0.0, res.PreMarket.Percent)
}

func TestSegmentEmpty(t *testing.T) {
	res := Segment(market.Series{Range: market.Range1D}, market.Quote{Price: 5, PreviousClose: 4})
	assert.Nil(t, res.PreMarket)
	assert.Nil(t, res.AfterHours)
	assert.Empty(t, res.VisibleSeries)
	assert.Equal(t, 4.0, res.ReferencePrice)
}

func TestSegmentSinglePoint(t *testing.T) {
	series := market.Series{Range: market.Range1D, Points: []market.PricePoint{{Timestamp: at(10, 0), Price: 7, IsRegularSession: true}}}
	res := Segment(series, market.Quote{Price: 8, PreviousClose: 7})
	assert.Nil(t, res.PreMarket)
	assert.Nil(t, res.AfterHours)
	assert.Equal(t, 8.0, res.VisibleSeries[0].Price)
}

func TestChangeFrom(t *testing.T) {
	change, pct := ChangeFrom(200, 210)
	assert.Equal(t, 10.0, change)
	assert.InDelta(t, 5.0, pct, 1e-9)

	change, pct = ChangeFrom(0, 3)
	assert.Equal(t, 3.0, change)
	assert.Equal(t, 0.0, pct)
}
