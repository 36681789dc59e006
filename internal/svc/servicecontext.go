package svc

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/zeromicro/go-zero/core/stores/redis"

	"tickerlens-api/internal/config"
	"tickerlens-api/internal/persistence/viewcache"
	"tickerlens-api/internal/scheduler"
	"tickerlens-api/pkg/enrich"
	"tickerlens-api/pkg/gateway"
	llmpkg "tickerlens-api/pkg/llm"
	"tickerlens-api/pkg/lookup"
	marketpkg "tickerlens-api/pkg/market"
	_ "tickerlens-api/pkg/market/alpaca"
	_ "tickerlens-api/pkg/market/yahoo"
)

// TestModelAlias names the llm.yaml model used when Env is test.
const TestModelAlias = "test"

type ServiceContext struct {
	Config config.Config

	MarketProviders map[string]marketpkg.Provider
	DefaultMarket   marketpkg.Provider
	FallbackMarket  marketpkg.Provider
	LLMConfig       *llmpkg.Config
	LLMClient       llmpkg.LLMClient

	Gateway      gateway.Gateway
	ViewCache    *viewcache.Cache
	Orchestrator *lookup.Orchestrator
	Scheduler    *scheduler.Scheduler
}

func NewServiceContext(c config.Config) *ServiceContext {
	svc, err := New(context.Background(), c)
	if err != nil {
		log.Fatalf("failed to build service context: %v", err)
	}
	return svc
}

// New wires every collaborator described by c.
func New(ctx context.Context, c config.Config) (*ServiceContext, error) {
	svc := &ServiceContext{Config: c}

	marketCfg, err := c.Market.Require("market")
	if err != nil {
		return nil, err
	}
	providers, err := marketCfg.BuildProviders()
	if err != nil {
		return nil, fmt.Errorf("build market providers: %w", err)
	}
	svc.MarketProviders = providers
	if svc.DefaultMarket, err = marketCfg.DefaultProvider(providers); err != nil {
		return nil, err
	}
	if svc.FallbackMarket, err = marketCfg.FallbackProvider(providers); err != nil {
		return nil, err
	}

	opts := []gateway.Option{}
	if svc.FallbackMarket != nil {
		opts = append(opts, gateway.WithFallback(svc.FallbackMarket))
	}
	if c.News.Loaded() {
		opts = append(opts, gateway.WithNews(c.News.Value.Build()))
	}
	if c.LLM.Loaded() {
		llmCfg := c.LLM.Value.Clone()
		// Apply test environment defaults: route to the cheap alias when configured
		if c.IsTestEnv() {
			if _, ok := llmCfg.Models[TestModelAlias]; ok {
				llmCfg.DefaultModel = TestModelAlias
			}
		}
		client, err := llmpkg.NewClient(llmCfg)
		if err != nil {
			return nil, fmt.Errorf("build llm client: %w", err)
		}
		enricher, err := enrich.New(client, enrich.WithModel(llmCfg.DefaultModel))
		if err != nil {
			return nil, err
		}
		svc.LLMConfig = llmCfg
		svc.LLMClient = client
		opts = append(opts, gateway.WithEnricher(enricher))
	}
	gw, err := gateway.New(svc.DefaultMarket, opts...)
	if err != nil {
		return nil, err
	}
	svc.Gateway = gw

	deps := viewcache.Deps{
		PostgresDSN:     c.Postgres.DSN,
		PostgresMaxOpen: c.Postgres.MaxOpen,
		PostgresMaxIdle: c.Postgres.MaxIdle,
	}
	if strings.TrimSpace(c.Redis.Host) != "" {
		deps.Redis = redis.MustNewRedis(c.Redis)
	}
	store, err := viewcache.NewStore(ctx, c.ViewCache, deps)
	if err != nil {
		return nil, err
	}
	if svc.ViewCache, err = viewcache.New(store, viewcache.WithTTL(c.ViewCache.TTL)); err != nil {
		return nil, err
	}

	orch, err := lookup.New(gw,
		lookup.WithCache(svc.ViewCache),
		lookup.WithDefaultRange(c.Range()),
	)
	if err != nil {
		return nil, err
	}
	svc.Orchestrator = orch

	if c.Refresh.Enabled {
		if svc.Scheduler, err = scheduler.New(ctx, orch, c.Refresh); err != nil {
			return nil, err
		}
	}
	return svc, nil
}
