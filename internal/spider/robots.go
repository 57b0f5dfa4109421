package spider

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// RobotsCache fetches and caches robots.txt per host with a TTL, the way
// spec §4.4 requires ("robots.txt fetched once per host with a TTL and
// consulted before enqueue/fetch").
type RobotsCache struct {
	mu         sync.Mutex
	entries    map[string]robotsEntry
	ttl        time.Duration
	userAgent  string
	httpClient *http.Client
}

type robotsEntry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
}

func NewRobotsCache(userAgent string, ttl time.Duration) *RobotsCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RobotsCache{
		entries:    make(map[string]robotsEntry),
		ttl:        ttl,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Allowed reports whether path on host may be fetched, refreshing the
// cached robots.txt if its TTL has expired. A fetch failure is treated as
// permissive (no robots.txt found means everything is allowed).
func (c *RobotsCache) Allowed(ctx context.Context, host, path string) bool {
	data := c.get(ctx, host)
	if data == nil {
		return true
	}
	group := data.FindGroup(c.userAgent)
	if group == nil {
		return true
	}
	return group.Test(path)
}

// CrawlDelay returns the host's robots.txt crawl-delay directive, or zero
// if none is set (spec §4.4: "a per-host crawl-delay overrides rate
// limiter if larger").
func (c *RobotsCache) CrawlDelay(ctx context.Context, host string) time.Duration {
	data := c.get(ctx, host)
	if data == nil {
		return 0
	}
	group := data.FindGroup(c.userAgent)
	if group == nil {
		return 0
	}
	return group.CrawlDelay
}

func (c *RobotsCache) get(ctx context.Context, host string) *robotstxt.RobotsData {
	c.mu.Lock()
	entry, ok := c.entries[host]
	c.mu.Unlock()
	if ok && time.Since(entry.fetchedAt) < c.ttl {
		return entry.data
	}

	data := c.fetch(ctx, host)
	c.mu.Lock()
	c.entries[host] = robotsEntry{data: data, fetchedAt: time.Now()}
	c.mu.Unlock()
	return data
}

func (c *RobotsCache) fetch(ctx context.Context, host string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil
	}

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil
	}
	return data
}
