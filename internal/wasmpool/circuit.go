// Package wasmpool hosts a fixed-capacity pool of sandboxed extractor
// instances with circuit breaking, memory accounting, and a native-fallback
// failure path (spec §4.3).
package wasmpool

import (
	"sync"
	"time"

	"github.com/riptide-engine/riptide/internal/models"
)

// CircuitBreaker implements the three-state breaker from spec §4.3:
// Closed → Open → HalfOpen → Closed.
type CircuitBreaker struct {
	mu                  sync.Mutex
	state               models.CircuitState
	consecutiveFailures int
	failureThreshold    int
	cooldown            time.Duration
	baseCooldown        time.Duration
	maxCooldown         time.Duration
	openedAt            time.Time
	trips               int64
}

func NewCircuitBreaker(failureThreshold int, cooldown time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &CircuitBreaker{
		state:            models.CircuitClosed,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		baseCooldown:     cooldown,
		maxCooldown:      cooldown * 8,
	}
}

// Allow reports whether a call may proceed, transitioning Open->HalfOpen
// once the cooldown has elapsed.
func (c *CircuitBreaker) Allow() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case models.CircuitClosed:
		return true
	case models.CircuitOpen:
		if time.Since(c.openedAt) >= c.cooldown {
			c.state = models.CircuitHalfOpen
			return true
		}
		return false
	case models.CircuitHalfOpen:
		return true
	default:
		return true
	}
}

// RecordSuccess closes the breaker (from Closed or HalfOpen) and resets the
// cooldown back to its base duration.
func (c *CircuitBreaker) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.consecutiveFailures = 0
	c.state = models.CircuitClosed
	c.cooldown = c.baseCooldown
}

// RecordFailure trips the breaker open when the failure threshold is
// reached from Closed, or immediately re-opens with a longer cooldown when
// a call made while HalfOpen fails (spec §4.3).
func (c *CircuitBreaker) RecordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == models.CircuitHalfOpen {
		c.openCircuit()
		c.cooldown = minDuration(c.cooldown*2, c.maxCooldown)
		return
	}

	c.consecutiveFailures++
	if c.consecutiveFailures >= c.failureThreshold {
		c.openCircuit()
	}
}

func (c *CircuitBreaker) openCircuit() {
	c.state = models.CircuitOpen
	c.openedAt = time.Now()
	c.trips++
}

func (c *CircuitBreaker) State() models.CircuitState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *CircuitBreaker) Trips() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.trips
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
