// Package models holds the data model shared across riptide's packages:
// URL records, fetch results, gate decisions, extracted documents, cache
// entries, pool instance descriptors, frontier entries and budget counters.
package models

import "time"

// GateDecision is produced by the quality gate classifier for a single URL.
type GateDecision string

const (
	GateRaw         GateDecision = "raw"
	GateProbesFirst GateDecision = "probes_first"
	GateHeadless    GateDecision = "headless"
	GateCached      GateDecision = "cached"
	GateFailed      GateDecision = "failed"
)

// CacheMode controls how the orchestrator consults the cache for a URL.
type CacheMode string

const (
	CacheReadThrough  CacheMode = "read_through"
	CacheWriteThrough CacheMode = "write_through"
	CacheBypass       CacheMode = "bypass"
)

// SpiderStrategy selects the frontier ordering used by the spider scheduler.
type SpiderStrategy string

const (
	StrategyBreadthFirst SpiderStrategy = "breadth_first"
	StrategyDepthFirst   SpiderStrategy = "depth_first"
	StrategyBestFirst    SpiderStrategy = "best_first"
)

// URLRecord is an immutable description of a URL as it enters the pipeline.
type URLRecord struct {
	URL          string
	Depth        int
	ParentURL    string
	Priority     float64
	DiscoveredAt time.Time
}

// FetchResult is the outcome of the HTTP fetch stage.
type FetchResult struct {
	Status      int
	FinalURL    string
	ContentType string
	Body        []byte
	Size        int64
	Duration    time.Duration
}

// Link is an outbound link discovered during extraction.
type Link struct {
	URL      string `json:"url"`
	Text     string `json:"text,omitempty"`
	Rel      string `json:"rel,omitempty"`
	HrefLang string `json:"hreflang,omitempty"`
}

// MediaKind tags the type of a resolved media asset.
type MediaKind string

const (
	MediaImage   MediaKind = "image"
	MediaVideo   MediaKind = "video"
	MediaAudio   MediaKind = "audio"
	MediaOGImage MediaKind = "og:image"
	MediaIcon    MediaKind = "icon"
)

// Media is a resolved media asset reference.
type Media struct {
	URL  string    `json:"url"`
	Kind MediaKind `json:"kind"`
	Rel  string    `json:"rel,omitempty"`
}

// ExtractedDocument is the structured result of the extraction strategy chain.
type ExtractedDocument struct {
	URL          string    `json:"url"`
	Title        string    `json:"title,omitempty"`
	Byline       string    `json:"byline,omitempty"`
	PublishedISO string    `json:"published,omitempty"`
	Markdown     string    `json:"markdown,omitempty"`
	Text         string    `json:"text,omitempty"`
	Links        []Link    `json:"links,omitempty"`
	Media        []Media   `json:"media,omitempty"`
	Language     string    `json:"language,omitempty"`
	Categories   []string  `json:"categories,omitempty"`
	Confidence   float64   `json:"confidence"`
	Strategy     string    `json:"strategy_used"`
}

// CrawlResult is the per-URL response shape returned from /crawl.
type CrawlResult struct {
	URL             string              `json:"url"`
	Index           int                 `json:"index"`
	Status          int                 `json:"status"`
	FromCache       bool                `json:"from_cache"`
	GateDecision    GateDecision        `json:"gate_decision"`
	QualityScore    float64             `json:"quality_score"`
	ProcessingTimeMs int64              `json:"processing_time_ms"`
	Document        *ExtractedDocument  `json:"document,omitempty"`
	Error           *ErrorEnvelope      `json:"error,omitempty"`
	CacheKey        string              `json:"cache_key"`
	Cancelled       bool                `json:"cancelled,omitempty"`
}

// ErrorEnvelope is the wire shape for any error surfaced by the HTTP API.
type ErrorEnvelope struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
	Status    int    `json:"status"`
}

// BatchStatistics aggregates a completed execute_batch call.
type BatchStatistics struct {
	GateCounts        map[GateDecision]int `json:"gate_counts"`
	CacheHitRate      float64              `json:"cache_hit_rate"`
	SuccessCount      int                  `json:"success_count"`
	FailureCount      int                  `json:"failure_count"`
	MeanProcessingMs  float64              `json:"mean_processing_time_ms"`
}

// CrawlOptions is the per-request configuration accepted by /crawl and
// execute_batch.
type CrawlOptions struct {
	CacheMode       CacheMode      `json:"cache_mode,omitempty" jsonschema:"default=read_through"`
	Concurrency     int            `json:"concurrency,omitempty" jsonschema:"default=8"`
	ExtractionMode  string         `json:"extraction_mode,omitempty" jsonschema:"default=article"`
	UseSpider       bool           `json:"use_spider,omitempty"`
	SpiderMaxDepth  int            `json:"spider_max_depth,omitempty"`
	SpiderStrategy  SpiderStrategy `json:"spider_strategy,omitempty" jsonschema:"default=breadth_first"`
}

// DefaultCrawlOptions fills unset fields the way the validation layer expects
// every recognized option to have a typed default (spec §9 "Dynamic config").
func DefaultCrawlOptions() CrawlOptions {
	return CrawlOptions{
		CacheMode:      CacheReadThrough,
		Concurrency:    8,
		ExtractionMode: "article",
		SpiderStrategy: StrategyBreadthFirst,
	}
}

// CacheEntry is the value stored for a fingerprint.
type CacheEntry struct {
	Fingerprint  string
	Document     ExtractedDocument
	HTTPStatus   int
	GateDecision GateDecision
	QualityScore float64
	Timestamp    time.Time
	TTL          time.Duration
}

// InstanceState is the pooled-resource lifecycle shared by the browser pool
// and, conceptually, the CDP pool's underlying browser targets.
type InstanceState string

const (
	StateCreating    InstanceState = "creating"
	StateIdle        InstanceState = "idle"
	StateInUse       InstanceState = "in_use"
	StateQuarantined InstanceState = "quarantined"
	StateTerminated  InstanceState = "terminated"
)

// CircuitState is the three-state breaker used by the WASM extractor pool.
type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// FrontierEntry is a URL record plus strategy-specific ordering key.
type FrontierEntry struct {
	Record      URLRecord
	InsertOrder int64
	NegDepth    int
	NegPriority float64
}

// HostBudgetSnapshot reports current per-host usage for the budget engine.
type HostBudgetSnapshot struct {
	Host              string
	PagesCrawled      int64
	DepthHighWater    int
	LastActivity      time.Time
	BandwidthBytes    int64
	ConcurrentRequests int64
}

// GlobalBudgetSnapshot reports current global usage for the budget engine.
type GlobalBudgetSnapshot struct {
	Pages             int64
	Duration          time.Duration
	BandwidthBytes    int64
	MemoryBytes       int64
	ConcurrentRequests int64
}

// TraceSpan is one span inside a Trace.
type TraceSpan struct {
	SpanID    string            `json:"span_id"`
	Name      string            `json:"name"`
	StartedAt time.Time         `json:"started_at"`
	EndedAt   time.Time         `json:"ended_at,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Trace is audit/telemetry data, tenant-scoped per spec §3.
type Trace struct {
	TraceID     string            `json:"trace_id"`
	TenantID    string            `json:"tenant_id"`
	ServiceName string            `json:"service_name"`
	RootSpan    TraceSpan         `json:"root_span"`
	ChildSpans  []TraceSpan       `json:"child_spans,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// SpiderSummary is returned by crawl(seeds).
type SpiderSummary struct {
	PagesCrawled int            `json:"pages_crawled"`
	PagesFailed  int            `json:"pages_failed"`
	Domains      map[string]int `json:"domains"`
	StopReason   string         `json:"stop_reason"`
}

// SearchResult is one hit returned from /deepsearch.
type SearchResult struct {
	URL     string             `json:"url"`
	Title   string             `json:"title,omitempty"`
	Snippet string             `json:"snippet,omitempty"`
	Content *ExtractedDocument `json:"content,omitempty"`
}
