package main

import (
	"time"

	"github.com/riptide-engine/riptide/internal/browserpool"
	"github.com/riptide-engine/riptide/internal/budget"
	"github.com/riptide-engine/riptide/internal/cache"
	"github.com/riptide-engine/riptide/internal/cachewarm"
	"github.com/riptide-engine/riptide/internal/config"
	"github.com/riptide-engine/riptide/internal/fetch"
	"github.com/riptide-engine/riptide/internal/health"
	"github.com/riptide-engine/riptide/internal/pipeline"
	"github.com/riptide-engine/riptide/pkg/ratelimit"
)

// runtime bundles the long-lived components a serve/crawl/spider run
// shares, so main's subcommands wire them identically instead of each
// reimplementing pool/orchestrator construction.
type runtime struct {
	monitor      *health.ResourceMonitor
	browsers     *browserpool.Pool
	budgetMgr    *budget.Manager
	cache        *cache.Cache
	fetcher      *fetch.Client
	limiter      *ratelimit.HostLimiter
	warmTracker  *cachewarm.Tracker
	orchestrator *pipeline.Orchestrator
}

// buildRuntime wires the pools, budget manager, cache, and orchestrator
// from loaded config. The WASM pool is left unwired: no concrete
// SandboxRuntime implementation exists in the module (see
// internal/wasmpool's documented interface seam), so the orchestrator runs
// its headless chain without a sandboxed extractor ahead of the fallback.
func buildRuntime(cfg *config.Config) *runtime {
	monitor := health.NewResourceMonitor(health.ResourceMonitorConfig{
		SafetyReserveBytes:  int64(cfg.Resource.SafetyReserveMemoryMB) << 20,
		SafetyThreshold:     int64(cfg.Resource.SafetyThresholdMB) << 20,
		CPULoadThresholdPct: cfg.Resource.CPULoadThresholdPct,
		MaxInstancesLimit:   cfg.Browser.MaxInstances,
		PerInstanceMemory:   int64(cfg.Browser.MemoryThresholdMB) << 20,
	})

	browserCfg := browserpool.DefaultConfig()
	browserCfg.MinInstances = cfg.Browser.MinInstances
	browserCfg.MaxInstances = cfg.Browser.MaxInstances
	browserCfg.CheckoutTimeout = time.Duration(cfg.Browser.CheckoutTimeoutMs) * time.Millisecond
	browserCfg.MaxLifetime = time.Duration(cfg.Browser.MaxLifetimeSecs) * time.Second
	browserCfg.MemoryThresholdBytes = int64(cfg.Browser.MemoryThresholdMB) << 20
	browserCfg.HybridMode = cfg.Browser.HybridMode
	browserCfg.Headless = cfg.Browser.Headless
	browserCfg.ChromeFlags = cfg.Browser.ChromeFlags
	browsers := browserpool.NewPool(browserCfg, monitor)

	budgetMgr := budget.NewManager(budget.DefaultConfig())

	c := cache.New(cache.NewMemoryBackend(), cache.JSONCodec{}, time.Hour)

	fetcher := fetch.NewClient(fetch.DefaultConfig())

	rps := cfg.Spider.RequestsPerSecond
	if rps <= 0 {
		rps = 2.0
	}
	limiter := ratelimit.NewHostLimiter(rps, 4)

	orchestrator := pipeline.NewOrchestrator(fetcher, c, browsers, nil, limiter)

	warmCfg := cachewarm.Config{
		Enabled:             cfg.CacheWarm.Enabled,
		WarmPoolSize:        cfg.CacheWarm.WarmPoolSize,
		MinWarmInstances:    cfg.CacheWarm.MinWarmInstances,
		MaxWarmInstances:    cfg.CacheWarm.MaxWarmInstances,
		WarmingIntervalSecs: cfg.CacheWarm.WarmingIntervalSecs,
		CacheHitTarget:      cfg.CacheWarm.CacheHitTarget,
		EnablePrefetching:   cfg.CacheWarm.EnablePrefetching,
		MaxWarmAge:          time.Hour,
	}
	warmTracker := cachewarm.NewTracker(warmCfg, browsers)
	orchestrator.Warmer = warmTracker

	return &runtime{
		monitor:      monitor,
		browsers:     browsers,
		budgetMgr:    budgetMgr,
		cache:        c,
		fetcher:      fetcher,
		limiter:      limiter,
		warmTracker:  warmTracker,
		orchestrator: orchestrator,
	}
}
