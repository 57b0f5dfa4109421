package cachewarm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPattern(t *testing.T) {
	assert.Equal(t, "https://example.com/", extractPattern("https://example.com/article/42?x=1"))
	assert.Equal(t, "http://example.com/", extractPattern("http://example.com/"))
	assert.Equal(t, "unknown", extractPattern("://not a url"))
}

func TestRecordCompletion_TracksFrequencyAndHitRatio(t *testing.T) {
	tr := NewTracker(DefaultConfig(), nil)

	tr.RecordCompletion("https://a.example.com/1", 100, true)
	tr.RecordCompletion("https://a.example.com/2", 200, false)
	tr.RecordCompletion("https://b.example.com/1", 50, true)

	stats := tr.Stats()
	assert.InDelta(t, 2.0/3.0, stats.CacheHitRatio, 1e-9)

	top := tr.TopPatterns(2)
	assert.Len(t, top, 2)
	assert.Contains(t, top, "https://a.example.com/")
	assert.Contains(t, top, "https://b.example.com/")
}

func TestRecordCompletion_AveragesProcessingTimePerPattern(t *testing.T) {
	tr := NewTracker(DefaultConfig(), nil)
	tr.RecordCompletion("https://a.example.com/1", 100, false)
	tr.RecordCompletion("https://a.example.com/2", 300, false)

	tr.mu.Lock()
	avg := tr.patterns["https://a.example.com/"].avgProcessing
	freq := tr.patterns["https://a.example.com/"].frequency
	tr.mu.Unlock()

	assert.Equal(t, 2, freq)
	assert.InDelta(t, 200.0, avg, 1e-9)
}

func TestAdaptiveTargetSize_ClampsToConfiguredBounds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WarmPoolSize = 1
	cfg.MinWarmInstances = 2
	cfg.MaxWarmInstances = 8
	tr := NewTracker(cfg, nil)

	// Below MinWarmInstances: clamped up.
	assert.Equal(t, 2, tr.adaptiveTargetSize())

	// Poor hit ratio escalates toward MaxWarmInstances.
	tr.stats.CacheHitRatio = 0.1
	assert.Equal(t, cfg.MaxWarmInstances, tr.adaptiveTargetSize())
}

func TestStart_NoopWhenDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	tr := NewTracker(cfg, nil)

	tr.Start(nil) // must not panic or launch a goroutine needing a real context
	tr.Stop()      // must not panic even though Start never assigned cancel
}

func TestCleanupOldPatterns_NoopWhenMaxWarmAgeUnset(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxWarmAge = 0
	tr := NewTracker(cfg, nil)
	tr.RecordCompletion("https://a.example.com/", 1, true)

	tr.cleanupOldPatterns()

	assert.Len(t, tr.TopPatterns(10), 1)
}
