// Package budget implements the global/per-host/per-session quota engine
// (spec §4.9), ported from the original Rust budget manager's limit shape
// and enforcement strategies.
package budget

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/riptide-engine/riptide/internal/logging"
	"github.com/riptide-engine/riptide/internal/models"
)

// EnforcementMode selects how a denied request is handled.
type EnforcementMode string

const (
	Strict   EnforcementMode = "strict"
	Soft     EnforcementMode = "soft"
	Adaptive EnforcementMode = "adaptive"
)

// GlobalLimits bounds the whole crawl/session.
type GlobalLimits struct {
	MaxDepth      int
	MaxPages      int64
	MaxDuration   time.Duration
	MaxBandwidth  int64
	MaxMemory     int64
	MaxConcurrent int64
}

// PerHostLimits scopes the same class of limits to a single host.
type PerHostLimits struct {
	MaxDepth      int
	MaxPages      int64
	MaxBandwidth  int64
	MaxConcurrent int64
}

// PerSessionLimits scopes pages/duration/bandwidth to one crawl session.
type PerSessionLimits struct {
	MaxPages     int64
	MaxDuration  time.Duration
	MaxBandwidth int64
}

// AdaptiveParams configures the Adaptive enforcement mode (spec §4.9).
type AdaptiveParams struct {
	SlowdownThreshold float64 // utilization fraction, e.g. 0.8
	ReductionFactor   float64 // delay multiplier per unit overshoot
	MaxDelay          time.Duration
}

// Config bundles every limit and the chosen enforcement mode.
type Config struct {
	Mode            EnforcementMode
	Global          GlobalLimits
	Host            PerHostLimits
	Session         PerSessionLimits
	Adaptive        AdaptiveParams
	WarningThreshold float64 // fraction of limit that triggers a warning
}

func DefaultConfig() Config {
	return Config{
		Mode: Strict,
		Global: GlobalLimits{
			MaxDepth: 10, MaxPages: 100000, MaxDuration: time.Hour,
			MaxBandwidth: 10 << 30, MaxMemory: 4 << 30, MaxConcurrent: 64,
		},
		Host: PerHostLimits{MaxDepth: 10, MaxPages: 5000, MaxBandwidth: 1 << 30, MaxConcurrent: 8},
		Session: PerSessionLimits{MaxPages: 10000, MaxDuration: 30 * time.Minute, MaxBandwidth: 2 << 30},
		Adaptive: AdaptiveParams{SlowdownThreshold: 0.8, ReductionFactor: 2.0, MaxDelay: 5 * time.Second},
		WarningThreshold: 0.8,
	}
}

// hostCounters is the mutable usage state for one host.
type hostCounters struct {
	mu                 sync.Mutex
	pagesCrawled       int64
	depthHighWater     int
	lastActivity       time.Time
	bandwidthBytes     int64
	concurrentRequests int64
}

// Manager tracks usage and answers can_make_request / start_request /
// complete_request (spec §4.9's exposed operations).
type Manager struct {
	cfg       Config
	startedAt time.Time

	globalPages       int64
	globalBandwidth   int64
	globalConcurrent  int64

	mu    sync.Mutex
	hosts map[string]*hostCounters

	warnMu   sync.Mutex
	warnedAt map[string]time.Time
	warnWindow time.Duration
}

func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg:        cfg,
		startedAt:  time.Now(),
		hosts:      make(map[string]*hostCounters),
		warnedAt:   make(map[string]time.Time),
		warnWindow: time.Minute,
	}
}

func (m *Manager) hostFor(host string) *hostCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	hc, ok := m.hosts[host]
	if !ok {
		hc = &hostCounters{lastActivity: time.Now()}
		m.hosts[host] = hc
	}
	return hc
}

// Decision is the result of a can_make_request check.
type Decision struct {
	Allowed     bool
	Reason      string
	SleepFor    time.Duration // non-zero only under Adaptive
}

// CanMakeRequest reports whether a request at the given host/depth is
// permitted under the configured enforcement mode.
func (m *Manager) CanMakeRequest(host string, depth int) Decision {
	hc := m.hostFor(host)
	hc.mu.Lock()
	defer hc.mu.Unlock()

	violated, reason := m.checkLimits(hc, depth)
	if !violated {
		if m.cfg.Mode == Adaptive {
			return Decision{Allowed: true, SleepFor: m.adaptiveDelay(hc)}
		}
		return Decision{Allowed: true}
	}

	switch m.cfg.Mode {
	case Strict:
		return Decision{Allowed: false, Reason: reason}
	case Soft:
		return Decision{Allowed: true, Reason: reason}
	case Adaptive:
		return Decision{Allowed: true, Reason: reason, SleepFor: m.adaptiveDelay(hc)}
	default:
		return Decision{Allowed: false, Reason: reason}
	}
}

func (m *Manager) checkLimits(hc *hostCounters, depth int) (bool, string) {
	if m.cfg.Host.MaxDepth > 0 && depth > m.cfg.Host.MaxDepth {
		return true, "host max depth exceeded"
	}
	if m.cfg.Host.MaxPages > 0 && hc.pagesCrawled >= m.cfg.Host.MaxPages {
		return true, "host max pages exceeded"
	}
	if m.cfg.Host.MaxBandwidth > 0 && hc.bandwidthBytes >= m.cfg.Host.MaxBandwidth {
		return true, "host max bandwidth exceeded"
	}
	if m.cfg.Host.MaxConcurrent > 0 && hc.concurrentRequests >= m.cfg.Host.MaxConcurrent {
		return true, "host max concurrency exceeded"
	}
	if violated, reason := m.checkGlobalLimits(); violated {
		return true, reason
	}
	return false, ""
}

// checkGlobalLimits compares global atomic counters against global limits.
func (m *Manager) checkGlobalLimits() (bool, string) {
	g := m.cfg.Global
	if g.MaxPages > 0 && atomic.LoadInt64(&m.globalPages) >= g.MaxPages {
		return true, "global max pages exceeded"
	}
	if g.MaxBandwidth > 0 && atomic.LoadInt64(&m.globalBandwidth) >= g.MaxBandwidth {
		return true, "global max bandwidth exceeded"
	}
	if g.MaxConcurrent > 0 && atomic.LoadInt64(&m.globalConcurrent) >= g.MaxConcurrent {
		return true, "global max concurrency exceeded"
	}
	if g.MaxDuration > 0 && time.Since(m.startedAt) >= g.MaxDuration {
		return true, "global max duration exceeded"
	}
	return false, ""
}

// adaptiveDelay computes an extra sleep proportional to overshoot past the
// slowdown threshold, capped at MaxDelay (spec §4.9 Adaptive mode).
func (m *Manager) adaptiveDelay(hc *hostCounters) time.Duration {
	if m.cfg.Host.MaxPages <= 0 {
		return 0
	}
	utilization := float64(hc.pagesCrawled) / float64(m.cfg.Host.MaxPages)
	if utilization < m.cfg.Adaptive.SlowdownThreshold {
		return 0
	}
	overshoot := utilization - m.cfg.Adaptive.SlowdownThreshold
	delay := time.Duration(overshoot * m.cfg.Adaptive.ReductionFactor * float64(time.Second))
	if delay > m.cfg.Adaptive.MaxDelay {
		delay = m.cfg.Adaptive.MaxDelay
	}
	return delay
}

// StartRequest records the start of an in-flight request against host.
func (m *Manager) StartRequest(host string) {
	atomic.AddInt64(&m.globalConcurrent, 1)
	hc := m.hostFor(host)
	hc.mu.Lock()
	hc.concurrentRequests++
	hc.lastActivity = time.Now()
	hc.mu.Unlock()
}

// CompleteRequest records completion, content size and success/failure,
// and emits a de-duplicated warning if usage crosses WarningThreshold.
func (m *Manager) CompleteRequest(host string, contentSize int64, success bool) {
	atomic.AddInt64(&m.globalConcurrent, -1)
	atomic.AddInt64(&m.globalBandwidth, contentSize)

	hc := m.hostFor(host)
	hc.mu.Lock()
	hc.concurrentRequests--
	if success {
		hc.pagesCrawled++
		atomic.AddInt64(&m.globalPages, 1)
	}
	hc.bandwidthBytes += contentSize
	hc.mu.Unlock()

	m.maybeWarn(host, hc)
}

func (m *Manager) maybeWarn(host string, hc *hostCounters) {
	if m.cfg.Host.MaxPages <= 0 {
		return
	}
	hc.mu.Lock()
	pages := hc.pagesCrawled
	hc.mu.Unlock()

	if float64(pages) < float64(m.cfg.Host.MaxPages)*m.cfg.WarningThreshold {
		return
	}
	m.warnMu.Lock()
	defer m.warnMu.Unlock()
	if last, ok := m.warnedAt[host]; ok && time.Since(last) < m.warnWindow {
		return
	}
	m.warnedAt[host] = time.Now()
	logging.Warnf("budget: host %s has crawled %d of %d pages", host, pages, m.cfg.Host.MaxPages)
}

// GlobalSnapshot returns the current global usage.
func (m *Manager) GlobalSnapshot() models.GlobalBudgetSnapshot {
	return models.GlobalBudgetSnapshot{
		Pages:              atomic.LoadInt64(&m.globalPages),
		Duration:           time.Since(m.startedAt),
		BandwidthBytes:     atomic.LoadInt64(&m.globalBandwidth),
		ConcurrentRequests: atomic.LoadInt64(&m.globalConcurrent),
	}
}

// HostSnapshot returns the current usage for a single host.
func (m *Manager) HostSnapshot(host string) models.HostBudgetSnapshot {
	hc := m.hostFor(host)
	hc.mu.Lock()
	defer hc.mu.Unlock()
	return models.HostBudgetSnapshot{
		Host:               host,
		PagesCrawled:       hc.pagesCrawled,
		DepthHighWater:     hc.depthHighWater,
		LastActivity:       hc.lastActivity,
		BandwidthBytes:     hc.bandwidthBytes,
		ConcurrentRequests: hc.concurrentRequests,
	}
}
