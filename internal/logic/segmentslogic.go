package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
	"tickerlens-api/pkg/lookup"
	"tickerlens-api/pkg/market/session"
)

type SegmentsLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSegmentsLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SegmentsLogic {
	return &SegmentsLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SegmentsLogic) Segments() (resp *types.SegmentsResponse, err error) {
	snap := l.svcCtx.Orchestrator.Snapshot()
	if !snap.Displayable() {
		return nil, lookup.ErrNotReady
	}
	return &types.SegmentsResponse{
		Ticker: snap.Ticker,
		Range:  snap.Range,
		Result: session.Segment(snap.Series, snap.Quote),
	}, nil
}
