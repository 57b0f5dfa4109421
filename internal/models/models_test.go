package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCrawlOptions(t *testing.T) {
	opts := DefaultCrawlOptions()
	assert.Equal(t, CacheReadThrough, opts.CacheMode)
	assert.Equal(t, 8, opts.Concurrency)
	assert.Equal(t, "article", opts.ExtractionMode)
	assert.Equal(t, StrategyBreadthFirst, opts.SpiderStrategy)
}

func TestRiptideError_Envelope(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := NewError(KindTimeout, "fetch timed out", cause)

	assert.True(t, err.Retryable())
	assert.Equal(t, 408, err.Status())
	assert.ErrorIs(t, err, cause)

	env := err.Envelope()
	assert.Equal(t, string(KindTimeout), env.Type)
	assert.True(t, env.Retryable)
	assert.Equal(t, 408, env.Status)
	assert.Contains(t, env.Message, "fetch timed out")
	assert.Contains(t, env.Message, "connection refused")
}

func TestRiptideError_NonRetryableKindsDefaultStatus(t *testing.T) {
	err := NewError(ErrorKind("unmapped_kind"), "mystery failure", nil)
	assert.False(t, err.Retryable())
	assert.Equal(t, 500, err.Status())
	assert.Equal(t, "mystery failure", err.Error())
}

func TestWrapf(t *testing.T) {
	cause := errors.New("boom")
	err := Wrapf(KindExtraction, cause, "extracting %s", "https://example.com")
	assert.Equal(t, KindExtraction, err.Kind)
	assert.Contains(t, err.Error(), "extracting https://example.com")
	assert.Contains(t, err.Error(), "boom")
	assert.False(t, err.Retryable())
	assert.Equal(t, 500, err.Status())
}

func TestRetryableKindsMatchSpecPropagationPolicy(t *testing.T) {
	retryable := []ErrorKind{
		KindTimeout, KindRateLimited, KindDependency,
		KindPoolExhausted, KindBrowserUnavailable, KindCircuitOpen,
		KindServiceUnavailable,
	}
	for _, kind := range retryable {
		err := NewError(kind, "x", nil)
		assert.Truef(t, err.Retryable(), "%s should be retryable", kind)
	}

	permanent := []ErrorKind{KindValidation, KindNotFound, KindAuthentication, KindPermissionDenied}
	for _, kind := range permanent {
		err := NewError(kind, "x", nil)
		assert.Falsef(t, err.Retryable(), "%s should not be retryable", kind)
	}
}
