package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/security"
)

func newFacade() *Facade {
	return NewFacade(NewMemoryStore(), security.NewIdempotencyStore(time.Minute))
}

func sampleTrace(traceID, tenantID string) models.Trace {
	return models.Trace{
		TraceID:     traceID,
		TenantID:    tenantID,
		ServiceName: "riptide",
		RootSpan:    models.TraceSpan{SpanID: "root", Name: "crawl"},
	}
}

func TestSubmitAndGetTrace(t *testing.T) {
	f := newFacade()
	ctx := &security.AuthContext{TenantID: "tenant-a"}

	id, err := f.SubmitTrace(ctx, sampleTrace("t1", "tenant-a"))
	require.NoError(t, err)
	assert.Equal(t, "t1", id)

	got, err := f.GetTrace(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got.TenantID)
}

func TestSubmitTrace_RejectsCrossTenant(t *testing.T) {
	f := newFacade()
	ctx := &security.AuthContext{TenantID: "tenant-a"}

	_, err := f.SubmitTrace(ctx, sampleTrace("t1", "tenant-b"))
	require.Error(t, err)

	var riptideErr *models.RiptideError
	require.ErrorAs(t, err, &riptideErr)
	assert.Equal(t, models.KindPermissionDenied, riptideErr.Kind)
}

func TestSubmitTrace_DuplicateCollapsesToCachedOutcome(t *testing.T) {
	f := newFacade()
	ctx := &security.AuthContext{TenantID: "tenant-a"}

	id1, err := f.SubmitTrace(ctx, sampleTrace("t1", "tenant-a"))
	require.NoError(t, err)
	id2, err := f.SubmitTrace(ctx, sampleTrace("t1", "tenant-a"))
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
}

func TestGetTrace_NotFound(t *testing.T) {
	f := newFacade()
	ctx := &security.AuthContext{TenantID: "tenant-a"}

	_, err := f.GetTrace(ctx, "missing")
	require.Error(t, err)
	var riptideErr *models.RiptideError
	require.ErrorAs(t, err, &riptideErr)
	assert.Equal(t, models.KindNotFound, riptideErr.Kind)
}

func TestListSpans_FlattensRootAndChildren(t *testing.T) {
	f := newFacade()
	ctx := &security.AuthContext{TenantID: "tenant-a"}

	tr := sampleTrace("t1", "tenant-a")
	tr.ChildSpans = []models.TraceSpan{{SpanID: "child-1", Name: "fetch"}}
	_, err := f.SubmitTrace(ctx, tr)
	require.NoError(t, err)

	spans, err := f.ListSpans(ctx)
	require.NoError(t, err)
	assert.Len(t, spans, 2)
}

func TestDeleteTrace_RemovesFromStore(t *testing.T) {
	f := newFacade()
	ctx := &security.AuthContext{TenantID: "tenant-a"}

	_, err := f.SubmitTrace(ctx, sampleTrace("t1", "tenant-a"))
	require.NoError(t, err)

	require.NoError(t, f.DeleteTrace(ctx, "t1"))

	_, err = f.GetTrace(ctx, "t1")
	require.Error(t, err)
}
