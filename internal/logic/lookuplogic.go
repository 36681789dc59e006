package logic

import (
	"context"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/svc"
	"tickerlens-api/internal/types"
)

type LookupLogic struct {
	logx.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

func NewLookupLogic(ctx context.Context, svcCtx *svc.ServiceContext) *LookupLogic {
	return &LookupLogic{
		Logger: logx.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// Lookup resolves the primary view for a ticker. With PreferCache a fresh
// cached view is installed instead of hitting the network.
func (l *LookupLogic) Lookup(req *types.LookupRequest) (resp *types.LookupResponse, err error) {
	orch := l.svcCtx.Orchestrator
	if req.PreferCache {
		restored, err := orch.Restore(l.ctx, req.Ticker)
		if err != nil {
			l.Errorf("restore %s from cache: %v", req.Ticker, err)
		}
		if restored {
			return &types.LookupResponse{FromCache: true, ViewResponse: buildView(orch.Snapshot())}, nil
		}
	}
	if err := orch.Lookup(l.ctx, req.Ticker); err != nil {
		return nil, err
	}
	return &types.LookupResponse{ViewResponse: buildView(orch.Snapshot())}, nil
}
