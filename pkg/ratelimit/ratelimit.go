// Package ratelimit implements per-host politeness throttling for the
// spider scheduler using a token-bucket limiter per host (spec §4.4).
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostLimiter hands out a token-bucket rate.Limiter per host, lazily
// created on first use, with an optional per-host crawl-delay override that
// takes precedence when it implies a slower rate (spec §4.4: "a per-host
// crawl-delay overrides rate limiter if larger").
type HostLimiter struct {
	mu          sync.Mutex
	limiters    map[string]*rate.Limiter
	defaultRPS  float64
	burst       int
	crawlDelays map[string]time.Duration
}

// NewHostLimiter creates a limiter bank with the given default requests-per-
// second and burst size applied to any host without an explicit override.
func NewHostLimiter(defaultRPS float64, burst int) *HostLimiter {
	if burst < 1 {
		burst = 1
	}
	return &HostLimiter{
		limiters:    make(map[string]*rate.Limiter),
		defaultRPS:  defaultRPS,
		burst:       burst,
		crawlDelays: make(map[string]time.Duration),
	}
}

// SetCrawlDelay records a robots.txt-advertised crawl-delay for host.
func (h *HostLimiter) SetCrawlDelay(host string, delay time.Duration) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.crawlDelays[host] = delay
	if existing, ok := h.limiters[host]; ok {
		if rps := ratePerSecondFromDelay(delay); rps < float64(existing.Limit()) {
			existing.SetLimit(rate.Limit(rps))
		}
	}
}

func ratePerSecondFromDelay(delay time.Duration) float64 {
	if delay <= 0 {
		return 0
	}
	return 1.0 / delay.Seconds()
}

func (h *HostLimiter) limiterFor(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	if l, ok := h.limiters[host]; ok {
		return l
	}
	limit := rate.Limit(h.defaultRPS)
	if delay, ok := h.crawlDelays[host]; ok {
		if rps := ratePerSecondFromDelay(delay); rps < float64(limit) {
			limit = rate.Limit(rps)
		}
	}
	l := rate.NewLimiter(limit, h.burst)
	h.limiters[host] = l
	return l
}

// Wait blocks until a token for host is available or ctx is cancelled.
func (h *HostLimiter) Wait(ctx context.Context, host string) error {
	return h.limiterFor(host).Wait(ctx)
}

// Allow is a non-blocking check that takes a token for host when one is
// available and reports whether it did.
func (h *HostLimiter) Allow(host string) bool {
	return h.limiterFor(host).Allow()
}
