// Package cdppool amortizes Chrome DevTools Protocol session setup cost by
// reusing sessions per browser and batching commands (spec §4.6), ported
// from the original engine's CDP connection pool.
package cdppool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/riptide-engine/riptide/internal/logging"
	"github.com/riptide-engine/riptide/internal/models"
)

// Health is the connection health classification.
type Health string

const (
	HealthHealthy   Health = "healthy"
	HealthUnhealthy Health = "unhealthy"
	HealthTimeout   Health = "timeout"
	HealthClosed    Health = "closed"
)

// Config mirrors CdpPoolConfig from the original engine.
type Config struct {
	MaxConnectionsPerBrowser int
	ConnectionIdleTimeout    time.Duration
	MaxConnectionLifetime    time.Duration
	EnableHealthChecks       bool
	HealthCheckInterval      time.Duration
	EnableBatching           bool
	BatchTimeout             time.Duration
	MaxBatchSize             int
}

func DefaultConfig() Config {
	return Config{
		MaxConnectionsPerBrowser: 10,
		ConnectionIdleTimeout:    30 * time.Second,
		MaxConnectionLifetime:    5 * time.Minute,
		EnableHealthChecks:       true,
		HealthCheckInterval:      10 * time.Second,
		EnableBatching:           true,
		BatchTimeout:             50 * time.Millisecond,
		MaxBatchSize:             10,
	}
}

// Stats counts command volume on one connection.
type Stats struct {
	TotalCommands   uint64
	BatchedCommands uint64
	FailedCommands  uint64
	LastUsed        time.Time
	CreatedAt       time.Time
}

// Session is the minimal capability a pooled CDP connection needs from its
// underlying transport: executing a single devtools command, reading the
// current URL, and closing. No concrete implementation lives in this
// module; tests supply a fake.
type Session interface {
	Execute(ctx context.Context, method string, params, res interface{}) error
	CurrentURL(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// PooledConnection is one reusable CDP session against a specific browser.
type PooledConnection struct {
	SessionID target.SessionID
	Session   Session
	CreatedAt time.Time
	LastUsed  time.Time
	Stats     Stats
	Health    Health
	InUse     bool

	mu    sync.Mutex
	batch []batchedCommand
}

func (c *PooledConnection) isExpired(maxLifetime time.Duration) bool {
	return time.Since(c.CreatedAt) > maxLifetime
}

func (c *PooledConnection) isIdle(idleTimeout time.Duration) bool {
	return !c.InUse && time.Since(c.LastUsed) > idleTimeout
}

// HealthCheck probes the connection by reading its current URL.
func (c *PooledConnection) HealthCheck(ctx context.Context) Health {
	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if _, err := c.Session.CurrentURL(checkCtx); err != nil {
		if checkCtx.Err() != nil {
			c.Health = HealthTimeout
		} else {
			c.Health = HealthUnhealthy
		}
		return c.Health
	}
	c.Health = HealthHealthy
	return c.Health
}

// Pool owns the per-browser connection sets. Invariant (spec §4.6): a
// session is never handed to two consumers simultaneously; release is
// idempotent; batch queues are per browser.
type Pool struct {
	cfg Config

	mu    sync.Mutex
	byBrowser map[string][]*PooledConnection
	factory   func(ctx context.Context, browserID, url string) (Session, error)
}

// NewPool constructs a pool. factory opens a new CDP session against
// browserID and navigates it to url — callers wire this to their browser
// pool's page-creation path (internal/browserpool).
func NewPool(cfg Config, factory func(ctx context.Context, browserID, url string) (Session, error)) *Pool {
	return &Pool{cfg: cfg, byBrowser: make(map[string][]*PooledConnection), factory: factory}
}

// GetConnection returns a reused idle session if available, else creates a
// new one bounded by MaxConnectionsPerBrowser (spec §4.6).
func (p *Pool) GetConnection(ctx context.Context, browserID, url string) (*PooledConnection, error) {
	p.mu.Lock()
	conns := p.byBrowser[browserID]
	for _, c := range conns {
		if !c.InUse && c.Health == HealthHealthy {
			c.InUse = true
			c.LastUsed = time.Now()
			p.mu.Unlock()
			return c, nil
		}
	}
	if len(conns) >= p.cfg.MaxConnectionsPerBrowser {
		p.mu.Unlock()
		return nil, models.NewError(models.KindPoolExhausted,
			fmt.Sprintf("cdp pool exhausted for browser %s (max %d)", browserID, p.cfg.MaxConnectionsPerBrowser), nil)
	}
	p.mu.Unlock()

	session, err := p.factory(ctx, browserID, url)
	if err != nil {
		return nil, models.Wrapf(models.KindBrowserUnavailable, err, "creating cdp session for browser %s", browserID)
	}
	now := time.Now()
	conn := &PooledConnection{
		SessionID: target.SessionID(fmt.Sprintf("%s-%d", browserID, now.UnixNano())),
		Session:   session,
		CreatedAt: now,
		LastUsed:  now,
		Health:    HealthHealthy,
		InUse:     true,
		Stats:     Stats{CreatedAt: now},
	}

	p.mu.Lock()
	p.byBrowser[browserID] = append(p.byBrowser[browserID], conn)
	p.mu.Unlock()
	return conn, nil
}

// ReleaseConnection returns a session to the available set. Idempotent.
func (p *Pool) ReleaseConnection(browserID string, sessionID target.SessionID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, c := range p.byBrowser[browserID] {
		if c.SessionID == sessionID {
			c.InUse = false
			c.LastUsed = time.Now()
			return
		}
	}
}

// HealthCheckAll removes expired, idle, or unhealthy connections across
// every browser (spec §4.6 health_check_all).
func (p *Pool) HealthCheckAll(ctx context.Context) {
	p.mu.Lock()
	browsers := make([]string, 0, len(p.byBrowser))
	for id := range p.byBrowser {
		browsers = append(browsers, id)
	}
	p.mu.Unlock()

	for _, browserID := range browsers {
		p.sweepBrowser(ctx, browserID)
	}
}

func (p *Pool) sweepBrowser(ctx context.Context, browserID string) {
	p.mu.Lock()
	conns := p.byBrowser[browserID]
	p.mu.Unlock()

	kept := make([]*PooledConnection, 0, len(conns))
	for _, c := range conns {
		switch {
		case c.InUse:
			kept = append(kept, c)
		case c.isExpired(p.cfg.MaxConnectionLifetime):
			_ = c.Session.Close(ctx)
			logging.Debugf("cdppool: closed expired connection %s/%s", browserID, c.SessionID)
		case c.isIdle(p.cfg.ConnectionIdleTimeout):
			_ = c.Session.Close(ctx)
			logging.Debugf("cdppool: closed idle connection %s/%s", browserID, c.SessionID)
		case p.cfg.EnableHealthChecks && c.HealthCheck(ctx) != HealthHealthy:
			_ = c.Session.Close(ctx)
			logging.Debugf("cdppool: closed unhealthy connection %s/%s", browserID, c.SessionID)
		default:
			kept = append(kept, c)
		}
	}

	p.mu.Lock()
	p.byBrowser[browserID] = kept
	p.mu.Unlock()
}
