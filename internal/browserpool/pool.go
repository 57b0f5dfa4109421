package browserpool

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/riptide-engine/riptide/internal/health"
	"github.com/riptide-engine/riptide/internal/logging"
	"github.com/riptide-engine/riptide/internal/models"
)

// Config parameterizes the pool (spec §4.2).
type Config struct {
	MinInstances        int
	MaxInstances         int
	CheckoutTimeout      time.Duration
	MaxLifetime          time.Duration
	MemoryThresholdBytes int64
	HighWaterBytes       int64
	HealthProbeTimeout   time.Duration
	MaxConsecutiveFailures int
	HybridMode           bool
	Headless             bool
	ChromeFlags          []string
}

func DefaultConfig() Config {
	return Config{
		MinInstances:           1,
		MaxInstances:           8,
		CheckoutTimeout:        5 * time.Second,
		MaxLifetime:            30 * time.Minute,
		MemoryThresholdBytes:   512 << 20,
		HighWaterBytes:         4 << 30,
		HealthProbeTimeout:     2 * time.Second,
		MaxConsecutiveFailures: 3,
		Headless:               true,
	}
}

// Stats is the snapshot returned by Pool.Stats.
type Stats struct {
	Idle         int
	InUse        int
	Quarantined  int
	Total        int
	MemoryBytes  int64
	MemoryPressure health.MemoryPressure
}

// Pool owns a fleet of Instances. It never shares ownership with the
// Instance itself: instances hold no reference back to the pool, which
// probes their health on return.
type Pool struct {
	cfg     Config
	monitor *health.ResourceMonitor

	mu        sync.Mutex
	instances []*Instance
	waiters   chan struct{}

	hybridBrowser *Instance
}

func NewPool(cfg Config, monitor *health.ResourceMonitor) *Pool {
	return &Pool{cfg: cfg, monitor: monitor, waiters: make(chan struct{}, 1)}
}

// Handle is the scoped checkout handle spec §4.2/§9 require: its Release
// method must be safe to call from a defer on every exit path, including
// panic, and returns the instance to the pool exactly once.
type Handle struct {
	pool     *Pool
	instance *Instance
	once     sync.Once
}

func (h *Handle) Browser() *rod.Browser { return h.instance.Browser }
func (h *Handle) InstanceID() string    { return h.instance.ID }

// Release returns the instance to the pool, probing its health first. Safe
// to call multiple times or deferred unconditionally.
func (h *Handle) Release() {
	h.once.Do(func() { h.pool.returnInstance(h.instance) })
}

// Checkout hands out a healthy idle instance, creating one if under max, or
// blocks until one returns (spec §4.2 checkout policy).
func (p *Pool) Checkout(ctx context.Context) (*Handle, error) {
	deadline := time.Now().Add(p.cfg.CheckoutTimeout)
	for {
		if p.cfg.HybridMode {
			inst, err := p.hybridInstance()
			if err != nil {
				return nil, err
			}
			return &Handle{pool: p, instance: inst}, nil
		}

		if inst := p.tryAcquireIdle(); inst != nil {
			return &Handle{pool: p, instance: inst}, nil
		}

		if p.currentCount() < p.cfg.MaxInstances {
			if ok, reason := p.monitor.CheckAvailability(); !ok {
				logging.Warnf("browserpool: delaying instance creation: %s", reason)
			} else {
				inst, err := p.createInstance()
				if err == nil {
					inst.mu.Lock()
					inst.State = models.StateInUse
					inst.LastUsed = time.Now()
					inst.mu.Unlock()
					return &Handle{pool: p, instance: inst}, nil
				}
				logging.Error(err, "browserpool: instance creation failed")
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, models.NewError(models.KindPoolExhausted, "pool checkout timed out", nil)
		}
		select {
		case <-ctx.Done():
			return nil, models.Wrapf(models.KindPoolExhausted, ctx.Err(), "checkout cancelled")
		case <-time.After(minDuration(remaining, 50*time.Millisecond)):
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func (p *Pool) hybridInstance() (*Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hybridBrowser != nil && p.hybridBrowser.State != models.StateTerminated {
		return p.hybridBrowser, nil
	}
	inst, err := launch(p.cfg.Headless, p.cfg.ChromeFlags)
	if err != nil {
		return nil, models.Wrapf(models.KindBrowserUnavailable, err, "launching hybrid browser")
	}
	inst.State = models.StateInUse
	p.hybridBrowser = inst
	p.instances = append(p.instances, inst)
	return inst, nil
}

func (p *Pool) tryAcquireIdle() *Instance {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, inst := range p.instances {
		inst.mu.Lock()
		if inst.State == models.StateIdle && inst.MemoryBytesEst < p.cfg.MemoryThresholdBytes {
			inst.State = models.StateInUse
			inst.LastUsed = time.Now()
			inst.mu.Unlock()
			return inst
		}
		inst.mu.Unlock()
	}
	return nil
}

func (p *Pool) currentCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.instances)
}

func (p *Pool) createInstance() (*Instance, error) {
	inst, err := launch(p.cfg.Headless, p.cfg.ChromeFlags)
	if err != nil {
		return nil, err
	}
	if err := inst.probe(p.cfg.HealthProbeTimeout); err != nil {
		inst.terminate()
		return nil, models.Wrapf(models.KindBrowserUnavailable, err, "initial health probe failed")
	}
	p.mu.Lock()
	p.instances = append(p.instances, inst)
	p.mu.Unlock()
	return inst, nil
}

// returnInstance implements the InUse->Idle (post-probe) or Any->Quarantined
// transitions spec §4.2 specifies.
func (p *Pool) returnInstance(inst *Instance) {
	if p.cfg.HybridMode {
		return // hybrid handles are lightweight: the shared browser never returns to an idle slot
	}

	err := inst.probe(p.cfg.HealthProbeTimeout)
	inst.mu.Lock()
	if err != nil {
		inst.failureCount++
		if inst.failureCount >= p.cfg.MaxConsecutiveFailures {
			inst.State = models.StateQuarantined
		}
	} else {
		inst.failureCount = 0
	}
	if inst.MemoryBytesEst >= p.cfg.MemoryThresholdBytes {
		inst.State = models.StateQuarantined
	}
	if inst.State != models.StateQuarantined {
		inst.State = models.StateIdle
	}
	quarantined := inst.State == models.StateQuarantined
	inst.mu.Unlock()

	if quarantined {
		p.reap(inst)
	}
}

// reap terminates a quarantined instance immediately (spec §4.2:
// "Quarantined→Terminated: after reaper pass (immediate)").
func (p *Pool) reap(inst *Instance) {
	inst.terminate()
	p.mu.Lock()
	for i, c := range p.instances {
		if c == inst {
			p.instances = append(p.instances[:i], p.instances[i+1:]...)
			break
		}
	}
	p.mu.Unlock()
}

// Stats returns a utilization/memory snapshot (spec §4.2 stats()).
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s Stats
	for _, inst := range p.instances {
		inst.mu.Lock()
		s.MemoryBytes += inst.MemoryBytesEst
		switch inst.State {
		case models.StateIdle:
			s.Idle++
		case models.StateInUse:
			s.InUse++
		case models.StateQuarantined:
			s.Quarantined++
		}
		inst.mu.Unlock()
	}
	s.Total = len(p.instances)
	s.MemoryPressure = p.monitor.Status().Pressure
	return s
}

// Shutdown drains and terminates every instance, removing profile dirs
// (spec §4.2 shutdown()).
func (p *Pool) Shutdown() {
	p.mu.Lock()
	instances := append([]*Instance(nil), p.instances...)
	p.instances = nil
	p.mu.Unlock()

	for _, inst := range instances {
		inst.terminate()
	}
}

// ReapExpired terminates idle instances that have exceeded MaxLifetime,
// called by the health monitor's periodic maintenance tick.
func (p *Pool) ReapExpired() {
	p.mu.Lock()
	var expired []*Instance
	kept := p.instances[:0:0]
	for _, inst := range p.instances {
		inst.mu.Lock()
		isExpired := inst.State != models.StateInUse && time.Since(inst.CreatedAt) > p.cfg.MaxLifetime
		inst.mu.Unlock()
		if isExpired {
			expired = append(expired, inst)
		} else {
			kept = append(kept, inst)
		}
	}
	p.instances = kept
	p.mu.Unlock()

	for _, inst := range expired {
		inst.terminate()
	}
}
