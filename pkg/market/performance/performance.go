// Package performance rescales price series to percent change from the start
// of the window so several tickers can share one axis.
package performance

import (
	"time"

	"tickerlens-api/pkg/market"
)

// Row is one timestamp of the primary series with every series' percent
// change. A nil value means the series has no point at that exact timestamp.
type Row struct {
	Timestamp time.Time           `json:"timestamp"`
	Primary   *float64            `json:"primary"`
	Peers     map[string]*float64 `json:"peers"`
}

// Normalize emits one row per primary point, in primary order. Each series is
// measured against its own first price. Peer values are looked up by exact
// timestamp; missing peers are nil and never interpolated.
func Normalize(primary market.Series, peers map[string]market.Series) []Row {
	rows := make([]Row, 0, len(primary.Points))
	if len(primary.Points) == 0 {
		return rows
	}

	lookups := make(map[string]map[int64]float64, len(peers))
	bases := make(map[string]float64, len(peers))
	for ticker, s := range peers {
		if len(s.Points) == 0 {
			lookups[ticker] = nil
			continue
		}
		bases[ticker] = s.Points[0].Price
		idx := make(map[int64]float64, len(s.Points))
		for _, p := range s.Points {
			idx[p.Timestamp.UnixNano()] = p.Price
		}
		lookups[ticker] = idx
	}

	base := primary.Points[0].Price
	for _, p := range primary.Points {
		row := Row{
			Timestamp: p.Timestamp,
			Primary:   percent(base, p.Price),
			Peers:     make(map[string]*float64, len(lookups)),
		}
		key := p.Timestamp.UnixNano()
		for ticker, idx := range lookups {
			price, ok := idx[key]
			if !ok {
				row.Peers[ticker] = nil
				continue
			}
			row.Peers[ticker] = percent(bases[ticker], price)
		}
		rows = append(rows, row)
	}
	return rows
}

func percent(base, price float64) *float64 {
	if base == 0 {
		return nil
	}
	v := (price - base) / base * 100
	return &v
}
