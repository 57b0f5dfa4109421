package wasmpool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riptide-engine/riptide/internal/logging"
	"github.com/riptide-engine/riptide/internal/models"
)

// SandboxRuntime is the pluggable WASM host capability. A real
// wasmtime/wazero-backed implementation is left out of core scope (spec's
// Open Questions never name a concrete WASM runtime choice; DESIGN.md
// records this as a deliberate interface seam rather than a guess).
type SandboxRuntime interface {
	Extract(ctx context.Context, html []byte, url string, mode string) (models.ExtractedDocument, error)
	MemoryPages() (current, peak int)
}

// NativeFallback is the pure-Go readability-style extractor invoked when
// the sandbox is unavailable or its circuit has tripped (spec §4.3).
type NativeFallback interface {
	Extract(ctx context.Context, html []byte, url string) (models.ExtractedDocument, error)
}

// instance wraps one sandboxed extractor with its own circuit breaker and
// counters; never shared concurrently (spec §3 invariant).
type instance struct {
	id           int
	runtime      SandboxRuntime
	breaker      *CircuitBreaker
	extractions  int64
	successes    int64
	failures     int64
	growFailures int64
	peakPages    int64
}

// Metrics aggregates pool-wide counters (spec §4.3 get_metrics()).
type Metrics struct {
	Extractions    int64
	Successes      int64
	Failures       int64
	Fallbacks      int64
	PeakMemoryPages int64
	GrowFailures   int64
	CircuitTrips   int64
	AvgWaitMs      float64
}

// Config parameterizes the pool.
type Config struct {
	Capacity            int
	MemoryLimitPages    int
	CircuitFailureThreshold int
	CircuitCooldown     time.Duration
}

func DefaultConfig() Config {
	return Config{Capacity: 4, MemoryLimitPages: 4096, CircuitFailureThreshold: 5, CircuitCooldown: 30 * time.Second}
}

// Pool is a fixed-capacity, semaphore-gated set of sandboxed extractors
// with a native fallback path (spec §4.3).
type Pool struct {
	cfg      Config
	sem      chan struct{}
	fallback NativeFallback

	mu        sync.Mutex
	instances []*instance

	waitCount int64
	waitTotal int64 // nanoseconds, accumulated for AvgWaitMs
	fallbacks int64
}

// NewPool constructs a pool with cfg.Capacity sandbox instances, each
// produced by newRuntime.
func NewPool(cfg Config, newRuntime func(id int) SandboxRuntime, fallback NativeFallback) *Pool {
	if cfg.Capacity < 1 {
		cfg.Capacity = 1
	}
	p := &Pool{cfg: cfg, sem: make(chan struct{}, cfg.Capacity), fallback: fallback}
	for i := 0; i < cfg.Capacity; i++ {
		p.instances = append(p.instances, &instance{
			id:      i,
			runtime: newRuntime(i),
			breaker: NewCircuitBreaker(cfg.CircuitFailureThreshold, cfg.CircuitCooldown),
		})
	}
	return p
}

// Extract acquires a semaphore permit, selects an available instance, and
// invokes the sandbox. On failure it retries once against a second
// instance; if that also fails it falls back to the native extractor
// (spec §4.3 failure semantics).
func (p *Pool) Extract(ctx context.Context, html []byte, url, mode string) (models.ExtractedDocument, error) {
	start := time.Now()
	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return models.ExtractedDocument{}, models.Wrapf(models.KindPoolExhausted, ctx.Err(), "wasmpool: semaphore wait cancelled")
	}
	defer func() { <-p.sem }()
	atomic.AddInt64(&p.waitTotal, int64(time.Since(start)))
	atomic.AddInt64(&p.waitCount, 1)

	inst := p.pickInstance(-1)
	if inst == nil {
		return p.runFallback(ctx, html, url, "circuit_open")
	}

	doc, err := p.tryInstance(ctx, inst, html, url, mode)
	if err == nil {
		return doc, nil
	}

	second := p.pickInstance(inst.id)
	if second != nil {
		doc, err2 := p.tryInstance(ctx, second, html, url, mode)
		if err2 == nil {
			return doc, nil
		}
		err = err2
	}

	logging.Warnf("wasmpool: extraction failed on all sandbox instances for %s, falling back: %v", url, err)
	return p.runFallback(ctx, html, url, "extraction_failed")
}

func (p *Pool) pickInstance(excludeID int) *instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, inst := range p.instances {
		if inst.id == excludeID {
			continue
		}
		if inst.breaker.Allow() {
			return inst
		}
	}
	return nil
}

func (p *Pool) tryInstance(ctx context.Context, inst *instance, html []byte, url, mode string) (models.ExtractedDocument, error) {
	before, _ := inst.runtime.MemoryPages()
	doc, err := inst.runtime.Extract(ctx, html, url, mode)
	after, peak := inst.runtime.MemoryPages()

	atomic.AddInt64(&inst.extractions, 1)
	if int64(peak) > atomic.LoadInt64(&inst.peakPages) {
		atomic.StoreInt64(&inst.peakPages, int64(peak))
	}
	if after < before {
		atomic.AddInt64(&inst.growFailures, 1)
	}
	if after > p.cfg.MemoryLimitPages {
		logging.Warnf("wasmpool: instance %d exceeded memory_limit_pages (%d > %d); it stays in service until ClearHighMemoryInstances replaces it", inst.id, after, p.cfg.MemoryLimitPages)
	}

	if err != nil {
		atomic.AddInt64(&inst.failures, 1)
		inst.breaker.RecordFailure()
		return models.ExtractedDocument{}, err
	}
	atomic.AddInt64(&inst.successes, 1)
	inst.breaker.RecordSuccess()
	return doc, nil
}

func (p *Pool) runFallback(ctx context.Context, html []byte, url, reason string) (models.ExtractedDocument, error) {
	atomic.AddInt64(&p.fallbacks, 1)
	if p.fallback == nil {
		return models.ExtractedDocument{}, models.NewError(models.KindExtraction,
			fmt.Sprintf("extraction_failed (%s) and no native fallback configured", reason), nil)
	}
	doc, err := p.fallback.Extract(ctx, html, url)
	if err != nil {
		return models.ExtractedDocument{}, models.Wrapf(models.KindExtraction, err, "native fallback also failed (%s)", reason)
	}
	doc.Strategy = "fallback"
	return doc, nil
}

// GetPoolStatus reports (available, active, max) per spec §4.3.
func (p *Pool) GetPoolStatus() (available, active, max int) {
	inUse := len(p.sem)
	return p.cfg.Capacity - inUse, inUse, p.cfg.Capacity
}

// GetMetrics aggregates the pool's counters.
func (p *Pool) GetMetrics() Metrics {
	p.mu.Lock()
	defer p.mu.Unlock()

	var m Metrics
	for _, inst := range p.instances {
		m.Extractions += atomic.LoadInt64(&inst.extractions)
		m.Successes += atomic.LoadInt64(&inst.successes)
		m.Failures += atomic.LoadInt64(&inst.failures)
		m.GrowFailures += atomic.LoadInt64(&inst.growFailures)
		if atomic.LoadInt64(&inst.peakPages) > m.PeakMemoryPages {
			m.PeakMemoryPages = atomic.LoadInt64(&inst.peakPages)
		}
		m.CircuitTrips += inst.breaker.Trips()
	}
	m.Fallbacks = atomic.LoadInt64(&p.fallbacks)
	if count := atomic.LoadInt64(&p.waitCount); count > 0 {
		m.AvgWaitMs = float64(atomic.LoadInt64(&p.waitTotal)) / float64(count) / float64(time.Millisecond)
	}
	return m
}

// CreateInstance appends a fresh sandbox instance up to no particular cap;
// exposed as a maintenance hook (spec §4.3). No other package in the module
// calls it.
func (p *Pool) CreateInstance(newRuntime func(id int) SandboxRuntime) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := len(p.instances)
	p.instances = append(p.instances, &instance{
		id:      id,
		runtime: newRuntime(id),
		breaker: NewCircuitBreaker(p.cfg.CircuitFailureThreshold, p.cfg.CircuitCooldown),
	})
}

// ClearHighMemoryInstances replaces instances whose peak memory exceeds the
// configured limit with fresh ones (spec §4.3 maintenance hook).
func (p *Pool) ClearHighMemoryInstances(newRuntime func(id int) SandboxRuntime) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cleared := 0
	for i, inst := range p.instances {
		if atomic.LoadInt64(&inst.peakPages) > int64(p.cfg.MemoryLimitPages) {
			p.instances[i] = &instance{
				id:      inst.id,
				runtime: newRuntime(inst.id),
				breaker: NewCircuitBreaker(p.cfg.CircuitFailureThreshold, p.cfg.CircuitCooldown),
			}
			cleared++
		}
	}
	return cleared
}

// ClearSomeInstances replaces up to n instances, oldest-id first, as a
// maintenance hook (spec §4.3). No other package in the module calls it.
func (p *Pool) ClearSomeInstances(n int, newRuntime func(id int) SandboxRuntime) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	cleared := 0
	for i := 0; i < len(p.instances) && cleared < n; i++ {
		p.instances[i] = &instance{
			id:      p.instances[i].id,
			runtime: newRuntime(p.instances[i].id),
			breaker: NewCircuitBreaker(p.cfg.CircuitFailureThreshold, p.cfg.CircuitCooldown),
		}
		cleared++
	}
	return cleared
}

// TriggerMemoryCleanup is a no-op hint that only writes a debug log line;
// kept as a maintenance hook (spec §4.12). No other package in the module
// calls it.
func (p *Pool) TriggerMemoryCleanup() {
	logging.Debug("wasmpool: memory cleanup triggered")
}
