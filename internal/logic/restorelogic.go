package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
)

type RestoreLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewRestoreLogic(ctx context.Context, svcCtx *svc.ServiceContext) *RestoreLogic {
	return &RestoreLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *RestoreLogic) Restore(req *types.RestoreRequest) (resp *types.RestoreResponse, err error) {
	orch := l.svcCtx.Orchestrator
	restored, err := orch.Restore(l.ctx, req.Ticker)
	if err != nil {
		return nil, err
	}
	return &types.RestoreResponse{Restored: restored, ViewResponse: buildView(orch.Snapshot())}, nil
}
