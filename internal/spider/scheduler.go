package spider

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riptide-engine/riptide/internal/budget"
	"github.com/riptide-engine/riptide/internal/logging"
	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/pipeline"
	"github.com/riptide-engine/riptide/pkg/ratelimit"
	"github.com/riptide-engine/riptide/pkg/urlnorm"
)

// Config parameterizes a spider run (spec §4.4).
type Config struct {
	Strategy           models.SpiderStrategy
	MaxDepth           int
	MaxPages           int
	MaxDuration        time.Duration
	Workers            int
	SameDomainOnly     bool
	AllowPatterns      []string
	DenyPatterns       []string
	Keywords           []string
	UserAgent          string
	RobotsTTL          time.Duration
	DefaultRPS         float64
	Burst              int
	CrawlOptions       models.CrawlOptions
}

func DefaultConfig() Config {
	return Config{
		Strategy:     models.StrategyBreadthFirst,
		MaxDepth:     3,
		MaxPages:     1000,
		MaxDuration:  10 * time.Minute,
		Workers:      4,
		UserAgent:    "riptide/1.0",
		RobotsTTL:    time.Hour,
		DefaultRPS:   1.0,
		Burst:        2,
		CrawlOptions: models.DefaultCrawlOptions(),
	}
}

// Spider drives a multi-host crawl: frontier + politeness + budget +
// worker pool invoking the pipeline orchestrator per dequeued URL (spec
// §4.4).
type Spider struct {
	cfg          Config
	frontier     *Frontier
	robots       *RobotsCache
	limiter      *ratelimit.HostLimiter
	budgetMgr    *budget.Manager
	orchestrator *pipeline.Orchestrator
	weights      ScoreWeights

	mu           sync.Mutex
	domains      map[string]int
	pagesCrawled int64
	pagesFailed  int64
	activeWorkers int64
}

func New(cfg Config, orchestrator *pipeline.Orchestrator, budgetMgr *budget.Manager) *Spider {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Spider{
		cfg:          cfg,
		frontier:     NewFrontier(cfg.Strategy),
		robots:       NewRobotsCache(cfg.UserAgent, cfg.RobotsTTL),
		limiter:      ratelimit.NewHostLimiter(cfg.DefaultRPS, cfg.Burst),
		budgetMgr:    budgetMgr,
		orchestrator: orchestrator,
		weights:      DefaultScoreWeights(),
		domains:      make(map[string]int),
	}
}

// AddURL enqueues url into the frontier at the given depth with parent as
// its discovering page (spec §4.4 add_url).
func (s *Spider) AddURL(raw string, depth int, parent string) bool {
	canonical, err := urlnorm.Canonicalize(raw, urlnorm.DefaultOptions())
	if err != nil {
		return false
	}
	return s.frontier.Add(models.URLRecord{URL: canonical, Depth: depth, ParentURL: parent, DiscoveredAt: timeNow()})
}

// Metrics reports the current frontier size, the number of workers
// processing a URL, and the pages crawled so far (spec §4.4 metrics()).
func (s *Spider) Metrics() (frontierSize int, activeWorkers int64, pagesCrawled int64) {
	return s.frontier.Len(), atomic.LoadInt64(&s.activeWorkers), atomic.LoadInt64(&s.pagesCrawled)
}

// Crawl drives seeds through the frontier/worker pipeline until one of the
// termination conditions in spec §4.4 fires, returning a summary with a
// distinct stop reason per case.
func (s *Spider) Crawl(ctx context.Context, seeds []string) models.SpiderSummary {
	for _, seed := range seeds {
		s.AddURL(seed, 0, "")
	}

	deadline := time.Now().Add(s.cfg.MaxDuration)
	stopReason := make(chan string, 1)
	var stopOnce sync.Once
	reportStop := func(reason string) {
		stopOnce.Do(func() { stopReason <- reason })
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < s.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(runCtx, deadline, reportStop)
		}()
	}

	go func() {
		wg.Wait()
		reportStop("frontier_drained")
	}()

	go func() {
		select {
		case <-ctx.Done():
			reportStop("cancelled")
			cancel()
		case <-runCtx.Done():
		}
	}()

	reason := <-stopReason
	cancel()
	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	return models.SpiderSummary{
		PagesCrawled: int(atomic.LoadInt64(&s.pagesCrawled)),
		PagesFailed:  int(atomic.LoadInt64(&s.pagesFailed)),
		Domains:      copyDomains(s.domains),
		StopReason:   reason,
	}
}

func (s *Spider) worker(ctx context.Context, deadline time.Time, reportStop func(string)) {
	idleRounds := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if time.Now().After(deadline) {
			reportStop("max_duration")
			return
		}
		if s.cfg.MaxPages > 0 && atomic.LoadInt64(&s.pagesCrawled) >= int64(s.cfg.MaxPages) {
			reportStop("max_pages")
			return
		}

		entry, ok := s.frontier.Pop()
		if !ok {
			idleRounds++
			if idleRounds > 3 && atomic.LoadInt64(&s.activeWorkers) == 0 {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}
		idleRounds = 0

		atomic.AddInt64(&s.activeWorkers, 1)
		s.processEntry(ctx, entry)
		atomic.AddInt64(&s.activeWorkers, -1)
	}
}

func (s *Spider) processEntry(ctx context.Context, entry models.URLRecord) {
	parsed, err := url.Parse(entry.URL)
	if err != nil {
		atomic.AddInt64(&s.pagesFailed, 1)
		return
	}
	host := parsed.Host

	if !s.robots.Allowed(ctx, host, parsed.Path) {
		logging.Debugf("spider: robots.txt disallows %s", entry.URL)
		return
	}
	if delay := s.robots.CrawlDelay(ctx, host); delay > 0 {
		s.limiter.SetCrawlDelay(host, delay)
	}

	if s.budgetMgr != nil {
		decision := s.budgetMgr.CanMakeRequest(host, entry.Depth)
		if !decision.Allowed {
			logging.Debugf("spider: budget denied %s: %s", entry.URL, decision.Reason)
			atomic.AddInt64(&s.pagesFailed, 1)
			return
		}
		if decision.SleepFor > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(decision.SleepFor):
			}
		}
		s.budgetMgr.StartRequest(host)
	}

	if err := s.limiter.Wait(ctx, host); err != nil {
		return
	}

	results, _ := s.orchestrator.ExecuteBatch(ctx, []string{entry.URL}, s.cfg.CrawlOptions)
	var result models.CrawlResult
	if len(results) > 0 {
		result = results[0]
	}

	success := result.Error == nil
	var contentSize int64
	if result.Document != nil {
		contentSize = int64(len(result.Document.Markdown))
	}
	if s.budgetMgr != nil {
		s.budgetMgr.CompleteRequest(host, contentSize, success)
	}

	s.mu.Lock()
	s.domains[host]++
	s.mu.Unlock()

	if success {
		atomic.AddInt64(&s.pagesCrawled, 1)
		if result.Document != nil && entry.Depth < s.cfg.MaxDepth {
			s.enqueueLinks(result.Document.Links, entry, host)
		}
	} else {
		atomic.AddInt64(&s.pagesFailed, 1)
	}
}

// enqueueLinks filters outbound links per spec §4.4 ("same-registrable-domain
// optional, depth-limited, URL-pattern allow/deny list") and re-enqueues
// survivors with best-first scoring when configured.
func (s *Spider) enqueueLinks(links []models.Link, parent models.URLRecord, parentHost string) {
	parentURL, _ := url.Parse(parent.URL)

	for _, link := range links {
		linkURL, err := url.Parse(link.URL)
		if err != nil {
			continue
		}
		if s.cfg.SameDomainOnly && parentURL != nil && !urlnorm.SameRegistrableDomain(parentURL, linkURL) {
			continue
		}
		if !matchesPatterns(link.URL, s.cfg.AllowPatterns, s.cfg.DenyPatterns) {
			continue
		}

		priority := 0.0
		if s.cfg.Strategy == models.StrategyBestFirst {
			priority = s.weights.Score(
				models.URLRecord{URL: link.URL, Depth: parent.Depth + 1},
				link.Text, parentHost, linkURL.Host, s.cfg.Keywords,
			)
		}

		canonical, err := urlnorm.Canonicalize(link.URL, urlnorm.DefaultOptions())
		if err != nil {
			continue
		}
		s.frontier.Add(models.URLRecord{
			URL: canonical, Depth: parent.Depth + 1, ParentURL: parent.URL,
			Priority: priority, DiscoveredAt: timeNow(),
		})
	}
}

// matchesPatterns applies an allow-list then a deny-list; an empty
// allow-list means "allow everything not denied".
func matchesPatterns(u string, allow, deny []string) bool {
	for _, pattern := range deny {
		if pattern != "" && strings.Contains(u, pattern) {
			return false
		}
	}
	if len(allow) == 0 {
		return true
	}
	for _, pattern := range allow {
		if pattern != "" && strings.Contains(u, pattern) {
			return true
		}
	}
	return false
}

func copyDomains(src map[string]int) map[string]int {
	dst := make(map[string]int, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// timeNow is a thin seam so scheduling tests can stub the clock.
var timeNow = time.Now
