package security

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFacade_ExecuteRunsOpAndPublishesOnSuccess(t *testing.T) {
	var published string
	var payload interface{}
	f := NewFacade(nil, func(event string, p interface{}) { published = event; payload = p })

	ctx := &AuthContext{TenantID: "t1", Permissions: map[string]bool{"crawl": true}}
	action := Action{Name: "crawl", TenantID: "t1", RequiredPerm: "crawl"}

	out, err := f.Execute(ctx, action, "target-1", "trace.submitted", func() (interface{}, error) {
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", out)
	assert.Equal(t, "trace.submitted", published)
	assert.Equal(t, "done", payload)
}

func TestFacade_ExecuteDeniesUnauthorizedActionWithoutRunningOp(t *testing.T) {
	var ran bool
	f := NewFacade(nil, nil)

	ctx := &AuthContext{TenantID: "t1"}
	action := Action{Name: "crawl", TenantID: "t2"}

	_, err := f.Execute(ctx, action, "target-1", "trace.submitted", func() (interface{}, error) {
		ran = true
		return nil, nil
	})
	require.Error(t, err)
	assert.False(t, ran)
}

func TestFacade_ExecuteReturnsCachedOutcomeForDuplicateCall(t *testing.T) {
	var calls int
	f := NewFacade(nil, nil)
	ctx := &AuthContext{TenantID: "t1"}
	action := Action{Name: "crawl", TenantID: "t1"}

	op := func() (interface{}, error) {
		calls++
		return calls, nil
	}

	first, err := f.Execute(ctx, action, "target-1", "", op)
	require.NoError(t, err)
	second, err := f.Execute(ctx, action, "target-1", "", op)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestFacade_ExecuteDoesNotPublishOnOpFailure(t *testing.T) {
	var published bool
	f := NewFacade(nil, func(string, interface{}) { published = true })
	ctx := &AuthContext{TenantID: "t1"}
	action := Action{Name: "crawl", TenantID: "t1"}

	_, err := f.Execute(ctx, action, "target-1", "trace.submitted", func() (interface{}, error) {
		return nil, errors.New("op failed")
	})
	require.Error(t, err)
	assert.False(t, published)
}

func TestFacade_ExecuteSkipsPublishWhenEventNameEmpty(t *testing.T) {
	var published bool
	f := NewFacade(nil, func(string, interface{}) { published = true })
	ctx := &AuthContext{TenantID: "t1"}
	action := Action{Name: "crawl", TenantID: "t1"}

	_, err := f.Execute(ctx, action, "target-1", "", func() (interface{}, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	assert.False(t, published)
}

func TestNewIdempotencyKey_PrefixesWithGivenString(t *testing.T) {
	key := NewIdempotencyKey("trace")
	assert.Contains(t, key, "trace-")
}
