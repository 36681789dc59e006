// Code scaffolded by goctl. Safe to edit.
// goctl 1.9.2

package types

import (
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/market/performance"
	"tickerlens-api/pkg/market/session"
	"tickerlens-api/pkg/viewstate"
)

type LookupRequest struct {
	Ticker      string `json:"ticker"`
	PreferCache bool   `json:"preferCache,optional"`
}

type RangeRequest struct {
	Range string `json:"range"`
}

type HoverRequest struct {
	Timestamp        int64   `json:"timestamp,optional"` // unix milliseconds
	Price            float64 `json:"price,optional"`
	IsRegularSession bool    `json:"isRegularSession,optional"`
	Clear            bool    `json:"clear,optional"`
}

type RestoreRequest struct {
	Ticker string `json:"ticker,optional"`
}

// Change is a price move against the view's baseline.
type Change struct {
	Reference float64 `json:"reference"`
	Price     float64 `json:"price"`
	Change    float64 `json:"change"`
	Percent   float64 `json:"percent"`
}

type ViewResponse struct {
	View     viewstate.ViewState `json:"view"`
	Complete bool                `json:"complete"`
	Latest   *Change             `json:"latest,omitempty"`
	Hovered  *Change             `json:"hovered,omitempty"`
}

type LookupResponse struct {
	FromCache bool `json:"fromCache"`
	ViewResponse
}

type RestoreResponse struct {
	Restored bool `json:"restored"`
	ViewResponse
}

type HoverResponse struct {
	Applied bool    `json:"applied"`
	Hovered *Change `json:"hovered,omitempty"`
}

type SegmentsResponse struct {
	Ticker string       `json:"ticker"`
	Range  market.Range `json:"range"`
	session.Result
}

type PerformanceResponse struct {
	Ticker  string            `json:"ticker"`
	Range   market.Range      `json:"range"`
	Peers   []string          `json:"peers"`
	Pending bool              `json:"pending"`
	Rows    []performance.Row `json:"rows"`
}
