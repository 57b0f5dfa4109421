// Package pipeline implements the orchestrator described in spec §4.1:
// given a list of URLs and CrawlOptions, it produces index-aligned
// CrawlResults and aggregate BatchStatistics, running fetch, gate,
// extract, and cache in sequence for each URL.
package pipeline

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/riptide-engine/riptide/internal/browserpool"
	"github.com/riptide-engine/riptide/internal/cache"
	"github.com/riptide-engine/riptide/internal/extract"
	"github.com/riptide-engine/riptide/internal/fetch"
	"github.com/riptide-engine/riptide/internal/gate"
	"github.com/riptide-engine/riptide/internal/logging"
	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/wasmpool"
	"github.com/riptide-engine/riptide/pkg/ratelimit"
	"github.com/riptide-engine/riptide/pkg/urlnorm"
)

// ProbesFirstThreshold is the confidence floor below which a probes_first
// gate decision escalates to headless rendering (spec §4.1 step 6).
const ProbesFirstThreshold = 0.5

// Warmer observes completed fetches so a cache-warming tracker can learn
// which hosts are worth pre-warming. Kept as a narrow interface rather
// than a direct internal/cachewarm dependency so the orchestrator stays
// usable without warming wired in (spec §9's capability-interface idiom).
type Warmer interface {
	RecordCompletion(url string, processingMs float64, cacheHit bool)
}

// Orchestrator wires the fetch/gate/extract/cache stages together. It owns
// no pool; browser and WASM pools are injected so the orchestrator stays
// testable with fakes for either.
type Orchestrator struct {
	Fetcher        *fetch.Client
	Cache          *cache.Cache
	GateThresholds gate.Thresholds
	RawChain       *extract.Chain
	HeadlessChain  *extract.Chain
	Browsers       *browserpool.Pool
	Limiter        *ratelimit.HostLimiter
	Warmer         Warmer
}

// NewOrchestrator builds the default chains: raw/probes path runs
// CSS→regex→fallback; when a WASM pool is given, the headless path runs
// CSS→WASM→fallback over the rendered DOM, since headless pages are the
// ones expensive enough to justify sandboxed extraction (spec §4.3, §4.5).
// Without a WASM pool the headless path reuses the raw chain.
func NewOrchestrator(fetcher *fetch.Client, c *cache.Cache, browsers *browserpool.Pool, wasm *wasmpool.Pool, limiter *ratelimit.HostLimiter) *Orchestrator {
	rawChain := extract.NewChain(extract.NewCSSStrategy(nil), extract.NewRegexStrategy(nil), extract.NewFallbackStrategy())

	var headlessChain *extract.Chain
	if wasm != nil {
		headlessChain = extract.NewChain(extract.NewCSSStrategy(nil), newWASMStrategy(wasm, "article"), extract.NewFallbackStrategy())
	} else {
		headlessChain = rawChain
	}

	return &Orchestrator{
		Fetcher:        fetcher,
		Cache:          c,
		GateThresholds: gate.DefaultThresholds(),
		RawChain:       rawChain,
		HeadlessChain:  headlessChain,
		Browsers:       browsers,
		Limiter:        limiter,
	}
}

// ExecuteBatch runs spec §4.1's nine-step algorithm over urls, preserving
// input order in the returned results regardless of per-URL completion
// order (spec §5's ordering guarantee).
func (o *Orchestrator) ExecuteBatch(ctx context.Context, urls []string, opts models.CrawlOptions) ([]models.CrawlResult, models.BatchStatistics) {
	if opts.Concurrency <= 0 {
		opts = models.DefaultCrawlOptions()
	}

	results := make([]models.CrawlResult, len(urls))
	sem := make(chan struct{}, opts.Concurrency)
	finishCh := make(chan struct{}, len(urls))

	for i, raw := range urls {
		i, raw := i, raw
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; finishCh <- struct{}{} }()
			results[i] = o.processOne(ctx, i, raw, opts)
		}()
	}

	for range urls {
		<-finishCh
	}

	return results, aggregate(results)
}

// ExecuteStream runs the same per-URL pipeline as ExecuteBatch but invokes
// onResult as soon as each URL finishes, in completion order rather than
// input order — the shape internal/streamapi needs for incremental
// NDJSON/SSE delivery (spec §4.7, §5's "streams emit in completion order,
// each item carries its input index").
func (o *Orchestrator) ExecuteStream(ctx context.Context, urls []string, opts models.CrawlOptions, onResult func(models.CrawlResult)) models.BatchStatistics {
	if opts.Concurrency <= 0 {
		opts = models.DefaultCrawlOptions()
	}

	resultCh := make(chan models.CrawlResult, len(urls))
	sem := make(chan struct{}, opts.Concurrency)
	var wg sync.WaitGroup

	for i, raw := range urls {
		i, raw := i, raw
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() { <-sem; wg.Done() }()
			resultCh <- o.processOne(ctx, i, raw, opts)
		}()
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	all := make([]models.CrawlResult, 0, len(urls))
	for result := range resultCh {
		all = append(all, result)
		onResult(result)
	}

	return aggregate(all)
}

// processOne runs the full fetch→gate→extract→cache pipeline for a single
// URL, returning a populated CrawlResult regardless of outcome — per-URL
// failure is never a short batch (spec §4.1).
func (o *Orchestrator) processOne(ctx context.Context, index int, raw string, opts models.CrawlOptions) models.CrawlResult {
	start := time.Now()
	result := models.CrawlResult{URL: raw, Index: index}

	canonical, err := urlnorm.Canonicalize(raw, urlnorm.DefaultOptions())
	if err != nil {
		return withError(result, models.NewError(models.KindValidation, "invalid url: "+raw, err), start)
	}
	result.URL = canonical

	if o.Warmer != nil {
		defer func() { o.Warmer.RecordCompletion(canonical, float64(result.ProcessingTimeMs), result.FromCache) }()
	}

	fingerprint := cache.Fingerprint(canonical, opts.ExtractionMode, nil, opts.CacheMode)
	result.CacheKey = fingerprint

	if o.Limiter != nil {
		if parsed, err := url.Parse(canonical); err == nil {
			if waitErr := o.Limiter.Wait(ctx, parsed.Host); waitErr != nil {
				return withError(result, models.Wrapf(models.KindTimeout, waitErr, "rate limiter wait cancelled"), start)
			}
		}
	}

	build := func(ctx context.Context) (models.CacheEntry, error) {
		return o.build(ctx, canonical, opts)
	}

	switch opts.CacheMode {
	case models.CacheBypass:
		entry, err := build(ctx)
		if err != nil {
			return withError(result, err, start)
		}
		return fillFromEntry(result, entry, false, start)
	case models.CacheWriteThrough:
		entry, err := build(ctx)
		if err != nil {
			return withError(result, err, start)
		}
		if o.Cache != nil {
			_, _ = o.Cache.GetOrBuild(ctx, fingerprint, entry.TTL, func(context.Context) (models.CacheEntry, error) { return entry, nil })
		}
		return fillFromEntry(result, entry, false, start)
	default: // read_through
		if o.Cache == nil {
			entry, err := build(ctx)
			if err != nil {
				return withError(result, err, start)
			}
			return fillFromEntry(result, entry, false, start)
		}
		entry, fromCache, err := o.Cache.GetOrBuild(ctx, fingerprint, 0, build)
		if err != nil {
			return withError(result, err, start)
		}
		return fillFromEntry(result, entry, fromCache, start)
	}
}

// build performs the actual fetch/gate/extract work for a cache miss.
func (o *Orchestrator) build(ctx context.Context, canonical string, opts models.CrawlOptions) (models.CacheEntry, error) {
	fetched, err := o.Fetcher.Get(ctx, canonical, nil)
	if err != nil {
		return models.CacheEntry{}, err
	}

	if fetch.IsPDF(fetched.ContentType) {
		doc, pdfErr := fetch.ExtractPDFText(fetched.Body, canonical)
		if pdfErr != nil {
			return models.CacheEntry{}, pdfErr
		}
		return models.CacheEntry{Document: doc, HTTPStatus: fetched.Status, GateDecision: models.GateRaw, QualityScore: 1.0}, nil
	}

	decision, score := gate.Classify(fetched.Body, o.GateThresholds)

	var doc models.ExtractedDocument
	switch decision {
	case models.GateRaw:
		doc, err = o.RawChain.Run(ctx, fetched.Body, canonical)
	case models.GateProbesFirst:
		doc, err = o.RawChain.Run(ctx, fetched.Body, canonical)
		if err != nil || doc.Confidence < ProbesFirstThreshold {
			logging.Debugf("pipeline: %s escalating probes_first -> headless (confidence %.2f)", canonical, doc.Confidence)
			doc, err = o.extractHeadless(ctx, canonical)
			decision = models.GateHeadless
		}
	case models.GateHeadless:
		doc, err = o.extractHeadless(ctx, canonical)
	}
	if err != nil {
		return models.CacheEntry{}, err
	}

	return models.CacheEntry{
		Document:     doc,
		HTTPStatus:   fetched.Status,
		GateDecision: decision,
		QualityScore: score,
	}, nil
}

// extractHeadless acquires a browser, navigates to url, collects the
// rendered HTML, and runs the headless extraction chain (spec §4.1 step 6,
// §4.2).
func (o *Orchestrator) extractHeadless(ctx context.Context, canonical string) (models.ExtractedDocument, error) {
	if o.Browsers == nil {
		return models.ExtractedDocument{}, models.NewError(models.KindBrowserUnavailable, "pipeline: headless rendering requested but no browser pool configured", nil)
	}

	session, err := o.Browsers.WithPage(ctx, canonical, browserpool.DefaultStealth)
	if err != nil {
		return models.ExtractedDocument{}, err
	}
	defer session.Close()

	if err := session.Page.WaitLoad(); err != nil {
		logging.Warnf("pipeline: %s page load wait failed, proceeding with current DOM: %v", canonical, err)
	}

	html, err := session.Page.HTML()
	if err != nil {
		return models.ExtractedDocument{}, models.Wrapf(models.KindBrowserUnavailable, err, "collecting rendered html for %s", canonical)
	}

	return o.HeadlessChain.Run(ctx, []byte(html), canonical)
}

func withError(result models.CrawlResult, err error, start time.Time) models.CrawlResult {
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	result.GateDecision = models.GateFailed
	var riptideErr *models.RiptideError
	if re, ok := err.(*models.RiptideError); ok {
		riptideErr = re
	} else {
		riptideErr = models.NewError(models.KindInternal, err.Error(), err)
	}
	env := riptideErr.Envelope()
	result.Error = &env
	result.Status = riptideErr.Status()
	return result
}

func fillFromEntry(result models.CrawlResult, entry models.CacheEntry, fromCache bool, start time.Time) models.CrawlResult {
	result.FromCache = fromCache
	result.GateDecision = entry.GateDecision
	result.QualityScore = entry.QualityScore
	result.Status = entry.HTTPStatus
	if result.Status == 0 {
		result.Status = 200
	}
	doc := entry.Document
	result.Document = &doc
	result.ProcessingTimeMs = time.Since(start).Milliseconds()
	return result
}

// aggregate computes per-gate counts, cache hit rate, success/failure
// counts, and mean processing time across a completed batch (spec §4.1
// step 9).
func aggregate(results []models.CrawlResult) models.BatchStatistics {
	stats := models.BatchStatistics{GateCounts: make(map[models.GateDecision]int)}
	if len(results) == 0 {
		return stats
	}

	var totalMs int64
	var cacheHits int
	for _, r := range results {
		stats.GateCounts[r.GateDecision]++
		if r.FromCache {
			cacheHits++
		}
		if r.Error != nil {
			stats.FailureCount++
		} else {
			stats.SuccessCount++
		}
		totalMs += r.ProcessingTimeMs
	}
	stats.CacheHitRate = float64(cacheHits) / float64(len(results))
	stats.MeanProcessingMs = float64(totalMs) / float64(len(results))
	return stats
}
