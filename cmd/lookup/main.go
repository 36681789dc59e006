package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"tickerlens-api/internal/config"
	"tickerlens-api/internal/svc"
	"tickerlens-api/pkg/lookup"
	marketpkg "tickerlens-api/pkg/market"
	"tickerlens-api/pkg/viewstate"
)

const pollInterval = 100 * time.Millisecond

func fatalf(format string, args ...interface{}) {
	logx.Errorf(format, args...)
	os.Exit(1)
}

// waitComplete polls until every enrichment slice settled or ctx ends.
func waitComplete(ctx context.Context, orch *lookup.Orchestrator) viewstate.ViewState {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		snap := orch.Snapshot()
		if snap.Complete() {
			return snap
		}
		select {
		case <-ctx.Done():
			return orch.Snapshot()
		case <-ticker.C:
		}
	}
}

func main() {
	var (
		configPath  = flag.String("f", "etc/tickerlens.yaml", "the config file")
		symbol      = flag.String("ticker", "", "ticker to look up; empty restores the last saved view")
		rangeRaw    = flag.String("range", "", "display range, e.g. 1d, 5d, 1mo, 1y")
		preferCache = flag.Bool("cached", false, "serve a fresh cached view when one exists")
		wait        = flag.Duration("wait", 30*time.Second, "how long to wait for enrichment to settle")
	)
	flag.Parse()
	logx.MustSetup(logx.LogConf{Mode: "console", Encoding: "plain"})
	logx.DisableStat()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatalf("load config: %v", err)
	}
	// fall back to the project etc/ files when the main config omits a section
	if !cfg.Market.Loaded() {
		cfg.Market.Value = config.MustLoadMarket()
	}
	if !cfg.News.Loaded() {
		cfg.News.Value = config.MustLoadNews()
	}
	var rng marketpkg.Range
	if *rangeRaw != "" {
		if rng, err = marketpkg.ParseRange(*rangeRaw); err != nil {
			fatalf("%v", err)
		}
		cfg.DefaultRange = string(rng)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcCtx, err := svc.New(ctx, *cfg)
	if err != nil {
		fatalf("build service context: %v", err)
	}
	orch := svcCtx.Orchestrator

	restored := false
	if *symbol == "" || *preferCache {
		if restored, err = orch.Restore(ctx, *symbol); err != nil {
			logx.Errorf("restore %q: %v", *symbol, err)
		}
	}
	switch {
	case restored:
		logx.Infof("restored %s from cache", orch.Snapshot().Ticker)
		if rng != "" && rng != orch.Snapshot().Range {
			if err := orch.SetRange(ctx, rng); err != nil {
				logx.Errorf("set range %s: %v", rng, err)
			}
		}
	case *symbol == "":
		fatalf("no cached view to restore; use -ticker to look one up")
	default:
		if err := orch.Lookup(ctx, *symbol); err != nil {
			fatalf("%v", err)
		}
	}

	waitCtx, cancel := context.WithTimeout(ctx, *wait)
	defer cancel()
	snap := waitComplete(waitCtx, orch)
	if !snap.Complete() {
		logx.Infof("enrichment still pending after %s", *wait)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		fatalf("encode view: %v", err)
	}
}
