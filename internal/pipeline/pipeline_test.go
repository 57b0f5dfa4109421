package pipeline

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-engine/riptide/internal/cache"
	"github.com/riptide-engine/riptide/internal/fetch"
	"github.com/riptide-engine/riptide/internal/models"
)

const orchestratorArticleHTML = `<html><head><title>Piped Article</title></head><body>
	<article><p>` + `This is a reasonably long article body used to drive gate scoring during pipeline tests. ` + `</p></article>
</body></html>`

func TestExecuteBatch_PreservesInputOrderRegardlessOfCompletionOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(orchestratorArticleHTML))
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	urls := []string{srv.URL + "/a", srv.URL + "/b", srv.URL + "/c"}
	opts := models.DefaultCrawlOptions()
	opts.CacheMode = models.CacheBypass

	results, stats := o.ExecuteBatch(context.Background(), urls, opts)
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
	}
	assert.Equal(t, 3, stats.SuccessCount)
}

func TestExecuteBatch_InvalidURLProducesFailedResultWithoutAbortingBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(orchestratorArticleHTML))
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	urls := []string{"://not-a-url", srv.URL + "/ok"}
	opts := models.DefaultCrawlOptions()
	opts.CacheMode = models.CacheBypass

	results, stats := o.ExecuteBatch(context.Background(), urls, opts)
	require.Len(t, results, 2)
	assert.Equal(t, models.GateFailed, results[0].GateDecision)
	require.NotNil(t, results[0].Error)
	assert.Equal(t, 1, stats.FailureCount)
	assert.Equal(t, 1, stats.SuccessCount)
}

func TestExecuteBatch_DefaultsConcurrencyWhenOptionsZero(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(orchestratorArticleHTML))
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	results, _ := o.ExecuteBatch(context.Background(), []string{srv.URL}, models.CrawlOptions{})
	require.Len(t, results, 1)
}

func TestExecuteStream_InvokesCallbackForEveryURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(orchestratorArticleHTML))
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	urls := []string{srv.URL + "/1", srv.URL + "/2"}
	opts := models.DefaultCrawlOptions()
	opts.CacheMode = models.CacheBypass

	var seen []string
	stats := o.ExecuteStream(context.Background(), urls, opts, func(r models.CrawlResult) {
		seen = append(seen, r.URL)
	})
	assert.Len(t, seen, 2)
	assert.Equal(t, 2, stats.SuccessCount)
}

func TestProcessOne_UpstreamServerErrorYieldsDependencyFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	opts := models.DefaultCrawlOptions()
	opts.CacheMode = models.CacheBypass

	result := o.processOne(context.Background(), 0, srv.URL, opts)
	assert.Equal(t, models.GateFailed, result.GateDecision)
	require.NotNil(t, result.Error)
	assert.Equal(t, string(models.KindDependency), result.Error.Type)
	assert.True(t, result.Error.Retryable)
	assert.Equal(t, 503, result.Status)
}

func TestProcessOne_UpstreamForbiddenSurfacesPermissionDeniedNotExtraction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("<html><body>Access Denied</body></html>"))
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	opts := models.DefaultCrawlOptions()
	opts.CacheMode = models.CacheBypass

	result := o.processOne(context.Background(), 0, srv.URL, opts)
	assert.Equal(t, models.GateFailed, result.GateDecision)
	require.NotNil(t, result.Error)
	assert.Equal(t, string(models.KindPermissionDenied), result.Error.Type)
	assert.False(t, result.Error.Retryable)
	assert.Equal(t, 403, result.Status)
	assert.Nil(t, result.Document)
}

func TestProcessOne_HeadlessGateWithoutBrowserPoolFails(t *testing.T) {
	jsShell := `<html><head></head><body><noscript>enable javascript to view this site</noscript><div id="root"></div></body></html>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(jsShell))
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	opts := models.DefaultCrawlOptions()
	opts.CacheMode = models.CacheBypass

	result := o.processOne(context.Background(), 0, srv.URL, opts)
	require.Equal(t, models.GateFailed, result.GateDecision)
	require.NotNil(t, result.Error)
	assert.Contains(t, result.Error.Message, "headless")
}

func TestProcessOne_ReadThroughUsesCacheOnSecondCall(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(orchestratorArticleHTML))
	}))
	defer srv.Close()

	c := cache.New(cache.NewMemoryBackend(), cache.JSONCodec{}, 0)
	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), c, nil, nil, nil)
	opts := models.DefaultCrawlOptions()

	first := o.processOne(context.Background(), 0, srv.URL, opts)
	second := o.processOne(context.Background(), 0, srv.URL, opts)

	assert.False(t, first.FromCache)
	assert.True(t, second.FromCache)
	assert.Equal(t, 1, hits)
}

func TestProcessOne_PDFContentTypeBypassesHTMLGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 not a real pdf"))
	}))
	defer srv.Close()

	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	opts := models.DefaultCrawlOptions()
	opts.CacheMode = models.CacheBypass

	result := o.processOne(context.Background(), 0, srv.URL, opts)
	// malformed PDF bytes fail to parse, but the path taken is the PDF
	// branch, not HTML gate classification — confirmed by the extraction
	// failure kind rather than a gate decision.
	require.NotNil(t, result.Error)
	assert.Equal(t, string(models.KindExtraction), result.Error.Type)
}

func TestNewOrchestrator_UsesRawChainForHeadlessWhenNoWASMPool(t *testing.T) {
	o := NewOrchestrator(fetch.NewClient(fetch.DefaultConfig()), nil, nil, nil, nil)
	assert.Same(t, o.RawChain, o.HeadlessChain)
}
