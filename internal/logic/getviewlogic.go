package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
)

type GetViewLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewGetViewLogic(ctx context.Context, svcCtx *svc.ServiceContext) *GetViewLogic {
	return &GetViewLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

func (l *GetViewLogic) GetView() (resp *types.ViewResponse, err error) {
	view := buildView(l.svcCtx.Orchestrator.Snapshot())
	return &view, nil
}
