package logic

import (
	"context"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
	"tickerlens-api/pkg/market"
)

type HoverLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewHoverLogic(ctx context.Context, svcCtx *svc.ServiceContext) *HoverLogic {
	return &HoverLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *HoverLogic) Hover(req *types.HoverRequest) (resp *types.HoverResponse, err error) {
	var point *market.PricePoint
	if !req.Clear {
		point = &market.PricePoint{
			Timestamp:        time.UnixMilli(req.Timestamp).UTC(),
			Price:            req.Price,
			IsRegularSession: req.IsRegularSession,
		}
	}
	orch := l.svcCtx.Orchestrator
	applied := orch.Hover(point)
	view := buildView(orch.Snapshot())
	return &types.HoverResponse{Applied: applied, Hovered: view.Hovered}, nil
}
