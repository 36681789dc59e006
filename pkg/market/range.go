package market

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRange is returned for windows outside Ranges().
var ErrInvalidRange = errors.New("market: unsupported range")

// Range is a display window such as "1d" or "1y".
type Range string

const (
	Range1D  Range = "1d"
	Range5D  Range = "5d"
	Range1M  Range = "1mo"
	Range3M  Range = "3mo"
	Range6M  Range = "6mo"
	RangeYTD Range = "ytd"
	Range1Y  Range = "1y"
	Range5Y  Range = "5y"
	RangeMax Range = "max"
)

// DefaultRange is used when a lookup does not ask for a specific window.
const DefaultRange = Range1D

var rangeIntervals = map[Range]string{
	Range1D:  "5m",
	Range5D:  "15m",
	Range1M:  "1d",
	Range3M:  "1d",
	Range6M:  "1d",
	RangeYTD: "1d",
	Range1Y:  "1d",
	Range5Y:  "1wk",
	RangeMax: "1mo",
}

// Ranges lists the supported windows from shortest to longest.
func Ranges() []Range {
	return []Range{Range1D, Range5D, Range1M, Range3M, Range6M, RangeYTD, Range1Y, Range5Y, RangeMax}
}

// ParseRange normalises user input into a supported Range.
func ParseRange(raw string) (Range, error) {
	r := Range(strings.ToLower(strings.TrimSpace(raw)))
	if r == "" {
		return DefaultRange, nil
	}
	if _, ok := rangeIntervals[r]; !ok {
		return "", fmt.Errorf("%w %q", ErrInvalidRange, raw)
	}
	return r, nil
}

// Interval returns the bar interval paired with the range.
func (r Range) Interval() string {
	if iv, ok := rangeIntervals[r]; ok {
		return iv
	}
	return rangeIntervals[DefaultRange]
}

// Intraday reports whether the range is the single-session granularity.
func (r Range) Intraday() bool {
	return r == Range1D
}

// Valid reports whether r is a supported range.
func (r Range) Valid() bool {
	_, ok := rangeIntervals[r]
	return ok
}

func (r Range) String() string { return string(r) }
