package logic

import (
	"context"
	"sort"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
	"tickerlens-api/pkg/lookup"
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/market/performance"
	"tickerlens-api/pkg/viewstate"
)

type PerformanceLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewPerformanceLogic(ctx context.Context, svcCtx *svc.ServiceContext) *PerformanceLogic {
	return &PerformanceLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Performance normalises the primary series against whichever peer series
// have arrived so far. Peer series still held from a previous range are left
// out and reported as pending.
func (l *PerformanceLogic) Performance() (resp *types.PerformanceResponse, err error) {
	snap := l.svcCtx.Orchestrator.Snapshot()
	if !snap.Displayable() {
		return nil, lookup.ErrNotReady
	}
	aligned := snap.PeerSeriesAligned()
	var peers map[string]market.Series
	if aligned {
		peers = snap.PeerSeries.Value.Series
	}
	names := make([]string, 0, len(peers))
	for name := range peers {
		names = append(names, name)
	}
	sort.Strings(names)
	return &types.PerformanceResponse{
		Ticker:  snap.Ticker,
		Range:   snap.Range,
		Peers:   names,
		Pending: !aligned || snap.PeerSeries.Status == viewstate.StatusPending,
		Rows:    performance.Normalize(snap.Series, peers),
	}, nil
}
