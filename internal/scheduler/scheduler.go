// Package scheduler re-triggers a range refresh of the active view on a cron
// schedule so a long-lived session keeps its quote and series current.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/config"
	"tickerlens-api/pkg/lookup"
	"tickerlens-api/pkg/market"
	"tickerlens-api/pkg/viewstate"
)

// Refresher is the part of the orchestrator the scheduler drives.
type Refresher interface {
	Snapshot() viewstate.ViewState
	SetRange(ctx context.Context, rng market.Range) error
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	target Refresher
	ctx    context.Context
}

// New registers the refresh job described by cfg.
func New(ctx context.Context, target Refresher, cfg config.RefreshConf) (*Scheduler, error) {
	if target == nil {
		return nil, errors.New("scheduler: refresh target is required")
	}
	loc := time.UTC
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("scheduler: timezone %q: %w", tz, err)
		}
		loc = l
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithLocation(loc)),
		target: target,
		ctx:    ctx,
	}
	if _, err := s.cron.AddFunc(cfg.Spec, s.RefreshNow); err != nil {
		return nil, fmt.Errorf("scheduler: register refresh %q: %w", cfg.Spec, err)
	}
	return s, nil
}

// Start runs the cron loop in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	logx.Info("scheduler: started")
}

// Stop halts the cron loop and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logx.Info("scheduler: stopped")
}

// RefreshNow refreshes the active view at its current range. Views that are
// not displayable are skipped.
func (s *Scheduler) RefreshNow() {
	logger := logx.WithContext(s.ctx)
	snap := s.target.Snapshot()
	if !snap.Displayable() {
		logger.Debugf("scheduler: no active view to refresh (phase=%s)", snap.Phase)
		return
	}
	err := s.target.SetRange(s.ctx, snap.Range)
	switch {
	case errors.Is(err, lookup.ErrNotReady):
		logger.Debugf("scheduler: %s no longer ready", snap.Ticker)
	case err != nil:
		logger.Errorf("scheduler: refresh %s %s: %v", snap.Ticker, snap.Range, err)
	default:
		logger.Infof("scheduler: refreshed %s %s", snap.Ticker, snap.Range)
	}
}
