package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
	"tickerlens-api/pkg/market"
)

type SetRangeLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewSetRangeLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SetRangeLogic {
	return &SetRangeLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *SetRangeLogic) SetRange(req *types.RangeRequest) (resp *types.ViewResponse, err error) {
	rng, err := market.ParseRange(req.Range)
	if err != nil {
		return nil, err
	}
	orch := l.svcCtx.Orchestrator
	if err := orch.SetRange(l.ctx, rng); err != nil {
		return nil, err
	}
	view := buildView(orch.Snapshot())
	return &view, nil
}
