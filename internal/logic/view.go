package logic

import (
	"tickerlens-api/internal/types"
	"tickerlens-api/pkg/market/session"
	"tickerlens-api/pkg/viewstate"
)

// buildView attaches the latest and hovered change against the view baseline.
func buildView(snap viewstate.ViewState) types.ViewResponse {
	resp := types.ViewResponse{View: snap, Complete: snap.Complete()}
	if !snap.Displayable() {
		return resp
	}
	ref := session.Segment(snap.Series, snap.Quote).ReferencePrice
	if snap.Quote.Tradable() {
		resp.Latest = changeOf(ref, snap.Quote.Price)
	}
	if snap.Hover != nil {
		resp.Hovered = changeOf(ref, snap.Hover.Price)
	}
	return resp
}

func changeOf(reference, price float64) *types.Change {
	change, percent := session.ChangeFrom(reference, price)
	return &types.Change{Reference: reference, Price: price, Change: change, Percent: percent}
}
