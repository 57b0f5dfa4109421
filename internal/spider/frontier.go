// Package spider implements the multi-host crawl scheduler (spec §4.4):
// frontier, politeness, budget consultation, and worker pool, composing
// the pipeline orchestrator for each dequeued URL.
package spider

import (
	"container/heap"
	"strings"
	"sync"

	"github.com/riptide-engine/riptide/internal/models"
)

// ScoreWeights parameterizes the best-first scoring function (spec §4.4:
// "combines URL depth penalty, domain affinity, keyword match on parent
// anchor text, and path-segment heuristics").
type ScoreWeights struct {
	DepthPenalty       float64
	DomainAffinity     float64
	AnchorKeywordBonus float64
	PathSegmentBonus   float64
}

func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{DepthPenalty: 0.1, DomainAffinity: 0.3, AnchorKeywordBonus: 0.4, PathSegmentBonus: 0.2}
}

// Score combines entry and anchor text into a single priority value for
// the best-first strategy; higher scores are dequeued first.
func (w ScoreWeights) Score(entry models.URLRecord, anchorText string, seedDomain, entryDomain string, keywords []string) float64 {
	score := entry.Priority
	score -= w.DepthPenalty * float64(entry.Depth)
	if entryDomain != "" && entryDomain == seedDomain {
		score += w.DomainAffinity
	}
	lowerAnchor := strings.ToLower(anchorText)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lowerAnchor, strings.ToLower(kw)) {
			score += w.AnchorKeywordBonus
			break
		}
	}
	segments := strings.Count(strings.Trim(entry.URL, "/"), "/")
	if segments <= 2 {
		score += w.PathSegmentBonus
	}
	return score
}

// heapFrontier is a container/heap.Interface implementation used by the
// best-first strategy; entries with a higher NegPriority*-1 (i.e. lower
// NegPriority) pop first, ties broken by insertion order (spec §4.4).
type heapFrontier []models.FrontierEntry

func (h heapFrontier) Len() int { return len(h) }
func (h heapFrontier) Less(i, j int) bool {
	if h[i].NegPriority != h[j].NegPriority {
		return h[i].NegPriority < h[j].NegPriority
	}
	return h[i].InsertOrder < h[j].InsertOrder
}
func (h heapFrontier) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *heapFrontier) Push(x interface{}) { *h = append(*h, x.(models.FrontierEntry)) }
func (h *heapFrontier) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Frontier holds discovered-but-not-yet-crawled URLs, deduplicated by
// normalized URL, ordered per the configured SpiderStrategy (spec §4.4).
type Frontier struct {
	mu       sync.Mutex
	strategy models.SpiderStrategy

	fifo []models.FrontierEntry // breadth_first
	lifo []models.FrontierEntry // depth_first
	heap heapFrontier           // best_first

	seen        map[string]bool
	insertCount int64
}

func NewFrontier(strategy models.SpiderStrategy) *Frontier {
	f := &Frontier{strategy: strategy, seen: make(map[string]bool)}
	heap.Init(&f.heap)
	return f
}

// Add enqueues entry unless its normalized URL has already been seen;
// re-adding a seen URL is a no-op (spec §4.4 dedup invariant).
func (f *Frontier) Add(entry models.URLRecord) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen[entry.URL] {
		return false
	}
	f.seen[entry.URL] = true

	fe := models.FrontierEntry{Record: entry, InsertOrder: f.insertCount, NegDepth: -entry.Depth, NegPriority: -entry.Priority}
	f.insertCount++

	switch f.strategy {
	case models.StrategyDepthFirst:
		f.lifo = append(f.lifo, fe)
	case models.StrategyBestFirst:
		heap.Push(&f.heap, fe)
	default:
		f.fifo = append(f.fifo, fe)
	}
	return true
}

// Pop removes and returns the next entry per the configured strategy.
func (f *Frontier) Pop() (models.URLRecord, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.strategy {
	case models.StrategyDepthFirst:
		n := len(f.lifo)
		if n == 0 {
			return models.URLRecord{}, false
		}
		entry := f.lifo[n-1]
		f.lifo = f.lifo[:n-1]
		return entry.Record, true
	case models.StrategyBestFirst:
		if f.heap.Len() == 0 {
			return models.URLRecord{}, false
		}
		entry := heap.Pop(&f.heap).(models.FrontierEntry)
		return entry.Record, true
	default:
		if len(f.fifo) == 0 {
			return models.URLRecord{}, false
		}
		entry := f.fifo[0]
		f.fifo = f.fifo[1:]
		return entry.Record, true
	}
}

// Len reports the current frontier size across whichever internal
// structure backs the configured strategy.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch f.strategy {
	case models.StrategyDepthFirst:
		return len(f.lifo)
	case models.StrategyBestFirst:
		return f.heap.Len()
	default:
		return len(f.fifo)
	}
}

// Seen reports whether url has already been inserted into the frontier.
func (f *Frontier) Seen(url string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.seen[url]
}
