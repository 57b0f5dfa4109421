// Package cachewarm implements the predictive cache-warming tracker
// ported from the original cache_warming.rs pattern: it observes
// orchestrator completions, groups URLs into host-level patterns, and
// keeps warm instances in the browser pool (SPEC_FULL.md §4 supplemented
// feature 5). No WASM pool is warmed.
package cachewarm

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/riptide-engine/riptide/internal/browserpool"
	"github.com/riptide-engine/riptide/internal/logging"
)

// Config carries internal/config.CacheWarmConfig's fields under the same
// names, plus MaxWarmAge, which has no config key; callers copy the values
// across (see cmd/riptide/wiring.go).
type Config struct {
	Enabled             bool
	WarmPoolSize        int
	MinWarmInstances    int
	MaxWarmInstances    int
	WarmingIntervalSecs int
	CacheHitTarget      float64
	EnablePrefetching   bool
	MaxWarmAge          time.Duration
}

func DefaultConfig() Config {
	return Config{
		Enabled:             true,
		WarmPoolSize:        4,
		MinWarmInstances:    2,
		MaxWarmInstances:    8,
		WarmingIntervalSecs: 30,
		CacheHitTarget:      0.85,
		EnablePrefetching:   true,
		MaxWarmAge:          30 * time.Minute,
	}
}

// urlPattern tracks one host-level pattern's usage (ported from the
// original's UrlPattern: frequency, hit count, average processing time).
type urlPattern struct {
	pattern       string
	frequency     int
	cacheHits     int
	avgProcessing float64
	lastSeen      time.Time
}

// Stats summarizes warming activity (ported from CacheWarmingStats).
type Stats struct {
	WarmInstancesCreated int
	WarmInstancesUsed    int
	CacheHitRatio        float64
	PrefetchAttempts     int
	PrefetchSuccesses    int
}

// Tracker observes completions and maintains the warm pool. It depends
// only on browserpool.Pool directly; a WASM-pool equivalent can be wired
// the same way once a concrete sandbox runtime is chosen (see
// internal/wasmpool's DESIGN.md entry).
type Tracker struct {
	cfg  Config
	pool *browserpool.Pool

	mu       sync.Mutex
	patterns map[string]*urlPattern
	stats    Stats

	cancel context.CancelFunc
}

func NewTracker(cfg Config, pool *browserpool.Pool) *Tracker {
	return &Tracker{cfg: cfg, pool: pool, patterns: make(map[string]*urlPattern)}
}

// Start launches the periodic warming loop. A no-op when warming is
// disabled via config (the RIPTIDE_CACHE_WARMING_ENABLED family).
func (t *Tracker) Start(ctx context.Context) {
	if !t.cfg.Enabled {
		logging.Debug("cachewarm: disabled, tracker not started")
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel

	interval := time.Duration(t.cfg.WarmingIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}

	go t.loop(runCtx, interval)
	t.performInitialWarming(runCtx)
}

// Stop halts the background loop.
func (t *Tracker) Stop() {
	if t.cancel != nil {
		t.cancel()
	}
}

func (t *Tracker) loop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.maintainWarmPool(ctx)
			t.cleanupOldPatterns()
		}
	}
}

// performInitialWarming brings the pool up to MinWarmInstances on
// startup, mirroring the original's perform_initial_warming.
func (t *Tracker) performInitialWarming(ctx context.Context) {
	if t.pool == nil {
		return
	}
	stats := t.pool.Stats()
	var handles []*browserpool.Handle
	for i := stats.Idle + stats.InUse; i < t.cfg.MinWarmInstances; i++ {
		handle, err := t.pool.Checkout(ctx)
		if err != nil {
			logging.Warnf("cachewarm: initial warming checkout failed: %v", err)
			break
		}
		handles = append(handles, handle)
		t.mu.Lock()
		t.stats.WarmInstancesCreated++
		t.mu.Unlock()
	}
	for _, handle := range handles {
		handle.Release()
	}
}

// maintainWarmPool keeps the pool at its adaptive target size, computed
// from current utilization the way the original's
// calculate_adaptive_target_size does.
func (t *Tracker) maintainWarmPool(ctx context.Context) {
	if t.pool == nil {
		return
	}
	target := t.adaptiveTargetSize()
	stats := t.pool.Stats()
	current := stats.Idle + stats.InUse

	var handles []*browserpool.Handle
	for current < target && current < t.cfg.MaxWarmInstances {
		handle, err := t.pool.Checkout(ctx)
		if err != nil {
			break
		}
		handles = append(handles, handle)
		current++
		t.mu.Lock()
		t.stats.WarmInstancesCreated++
		t.mu.Unlock()
	}
	for _, handle := range handles {
		handle.Release()
	}
}

func (t *Tracker) adaptiveTargetSize() int {
	t.mu.Lock()
	hitRatio := t.stats.CacheHitRatio
	t.mu.Unlock()

	target := t.cfg.WarmPoolSize
	if hitRatio > 0 && hitRatio < t.cfg.CacheHitTarget {
		target = t.cfg.MaxWarmInstances
	}
	if target < t.cfg.MinWarmInstances {
		target = t.cfg.MinWarmInstances
	}
	if target > t.cfg.MaxWarmInstances {
		target = t.cfg.MaxWarmInstances
	}
	return target
}

// RecordCompletion observes one orchestrator completion, updating the
// host-level pattern's frequency/hit-rate/average-processing-time and the
// tracker's overall cache-hit ratio (ported from record_url_pattern).
func (t *Tracker) RecordCompletion(rawURL string, processingMs float64, cacheHit bool) {
	pattern := extractPattern(rawURL)

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, ok := t.patterns[pattern]
	if !ok {
		entry = &urlPattern{pattern: pattern}
		t.patterns[pattern] = entry
	}
	entry.frequency++
	entry.lastSeen = time.Now()
	if cacheHit {
		entry.cacheHits++
	}
	entry.avgProcessing = (entry.avgProcessing*float64(entry.frequency-1) + processingMs) / float64(entry.frequency)

	var totalFreq, totalHits int
	for _, p := range t.patterns {
		totalFreq += p.frequency
		totalHits += p.cacheHits
	}
	if totalFreq > 0 {
		t.stats.CacheHitRatio = float64(totalHits) / float64(totalFreq)
	}
}

// cleanupOldWarmInstances-equivalent: drops patterns unseen for
// MaxWarmAge so the tracker's memory doesn't grow unbounded across a long
// run (ported from cleanup_old_warm_instances, applied to patterns rather
// than live instances since this package doesn't itself own instance
// lifetimes beyond checkout/release).
func (t *Tracker) cleanupOldPatterns() {
	if t.cfg.MaxWarmAge <= 0 {
		return
	}
	cutoff := time.Now().Add(-t.cfg.MaxWarmAge)
	t.mu.Lock()
	defer t.mu.Unlock()
	for k, p := range t.patterns {
		if p.lastSeen.Before(cutoff) {
			delete(t.patterns, k)
		}
	}
}

// TopPatterns returns the n most frequently seen host patterns, the
// candidates intelligent pre-fetching would warm next (ported from
// perform_intelligent_prefetch's pattern selection, without issuing actual
// prefetch requests here — that's the caller's job via the pipeline
// orchestrator).
func (t *Tracker) TopPatterns(n int) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	type scored struct {
		pattern string
		freq    int
	}
	list := make([]scored, 0, len(t.patterns))
	for _, p := range t.patterns {
		list = append(list, scored{p.pattern, p.frequency})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].freq > list[j].freq })

	if n > len(list) {
		n = len(list)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = list[i].pattern
	}
	return out
}

// Stats returns a snapshot of warming activity.
func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// extractPattern groups a URL by scheme+host, discarding path/query, the
// same grouping the original's extract_url_pattern performs.
func extractPattern(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	return parsed.Scheme + "://" + parsed.Host + "/"
}
