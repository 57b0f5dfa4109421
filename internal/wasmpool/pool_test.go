package wasmpool

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-engine/riptide/internal/models"
)

type fakeRuntime struct {
	extractFn func(ctx context.Context, html []byte, url, mode string) (models.ExtractedDocument, error)
	pages     int
	peak      int
}

func (f *fakeRuntime) Extract(ctx context.Context, html []byte, url, mode string) (models.ExtractedDocument, error) {
	return f.extractFn(ctx, html, url, mode)
}

func (f *fakeRuntime) MemoryPages() (int, int) { return f.pages, f.peak }

type fakeFallback struct {
	calledWith string
	err        error
}

func (f *fakeFallback) Extract(ctx context.Context, html []byte, url string) (models.ExtractedDocument, error) {
	f.calledWith = url
	if f.err != nil {
		return models.ExtractedDocument{}, f.err
	}
	return models.ExtractedDocument{Title: "fallback doc"}, nil
}

func alwaysSucceeds(id int) SandboxRuntime {
	return &fakeRuntime{extractFn: func(ctx context.Context, html []byte, url, mode string) (models.ExtractedDocument, error) {
		return models.ExtractedDocument{Title: "ok"}, nil
	}}
}

func alwaysFails(id int) SandboxRuntime {
	return &fakeRuntime{extractFn: func(ctx context.Context, html []byte, url, mode string) (models.ExtractedDocument, error) {
		return models.ExtractedDocument{}, errors.New("sandbox crashed")
	}}
}

func TestExtract_ReturnsSandboxResultOnSuccess(t *testing.T) {
	p := NewPool(Config{Capacity: 2, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysSucceeds, nil)
	doc, err := p.Extract(context.Background(), []byte("<html></html>"), "https://example.com", "article")
	require.NoError(t, err)
	assert.Equal(t, "ok", doc.Title)
}

func TestExtract_FallsBackToNativeWhenAllSandboxesFail(t *testing.T) {
	fb := &fakeFallback{}
	p := NewPool(Config{Capacity: 2, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysFails, fb)

	doc, err := p.Extract(context.Background(), []byte("<html></html>"), "https://example.com", "article")
	require.NoError(t, err)
	assert.Equal(t, "fallback doc", doc.Title)
	assert.Equal(t, "fallback", doc.Strategy)
	assert.Equal(t, "https://example.com", fb.calledWith)
}

func TestExtract_ErrorsWhenNoFallbackConfigured(t *testing.T) {
	p := NewPool(Config{Capacity: 1, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysFails, nil)

	_, err := p.Extract(context.Background(), []byte("<html></html>"), "https://example.com", "article")
	require.Error(t, err)
	var riptideErr *models.RiptideError
	require.ErrorAs(t, err, &riptideErr)
	assert.Equal(t, models.KindExtraction, riptideErr.Kind)
}

func TestExtract_ContextCancelledWhilePoolFull(t *testing.T) {
	p := NewPool(Config{Capacity: 1, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysSucceeds, nil)
	p.sem <- struct{}{} // occupy the only slot

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := p.Extract(ctx, []byte("<html></html>"), "https://example.com", "article")
	require.Error(t, err)
	var riptideErr *models.RiptideError
	require.ErrorAs(t, err, &riptideErr)
	assert.Equal(t, models.KindPoolExhausted, riptideErr.Kind)
}

func TestGetPoolStatus_ReportsAvailableActiveMax(t *testing.T) {
	p := NewPool(Config{Capacity: 3, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysSucceeds, nil)
	available, active, max := p.GetPoolStatus()
	assert.Equal(t, 3, available)
	assert.Equal(t, 0, active)
	assert.Equal(t, 3, max)
}

func TestGetMetrics_AggregatesAcrossInstances(t *testing.T) {
	p := NewPool(Config{Capacity: 1, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysSucceeds, nil)
	_, err := p.Extract(context.Background(), []byte("<html></html>"), "https://example.com", "article")
	require.NoError(t, err)

	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.Extractions)
	assert.Equal(t, int64(1), m.Successes)
}

func TestGetMetrics_CountsFallbacksWhenSandboxesFail(t *testing.T) {
	fb := &fakeFallback{}
	p := NewPool(Config{Capacity: 2, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysFails, fb)

	_, err := p.Extract(context.Background(), []byte("<html></html>"), "https://example.com", "article")
	require.NoError(t, err)

	m := p.GetMetrics()
	assert.Equal(t, int64(1), m.Fallbacks)
}

func TestCreateInstance_AppendsANewInstance(t *testing.T) {
	p := NewPool(Config{Capacity: 1, CircuitFailureThreshold: 5, CircuitCooldown: time.Minute}, alwaysSucceeds, nil)
	p.CreateInstance(alwaysSucceeds)
	assert.Len(t, p.instances, 2)
}

func TestNewPool_ClampsNonPositiveCapacityToOne(t *testing.T) {
	p := NewPool(Config{Capacity: 0}, alwaysSucceeds, nil)
	assert.Equal(t, 1, p.cfg.Capacity)
	assert.Len(t, p.instances, 1)
}
