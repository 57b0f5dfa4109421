// Package telemetry implements the trace facade: tenant-scoped, idempotent
// submission and retrieval of distributed traces (SPEC_FULL.md §4
// supplemented feature 4, ported from the trace facade's submit_trace/
// get_trace/list_spans workflow).
package telemetry

import (
	"github.com/riptide-engine/riptide/internal/models"
	"github.com/riptide-engine/riptide/internal/security"
)

// Store is the minimal persistence port a Facade needs; an in-memory
// implementation is provided, matching the facade's original
// "depends only on port traits" architecture.
type Store interface {
	Put(trace models.Trace)
	Get(traceID string) (models.Trace, bool)
	List(tenantID string) []models.Trace
	Delete(traceID string)
}

// memoryStore is the default Store, grounded on the original's in-memory
// mock backend used for its own tests.
type memoryStore struct {
	traces map[string]models.Trace
}

func NewMemoryStore() Store {
	return &memoryStore{traces: make(map[string]models.Trace)}
}

func (m *memoryStore) Put(trace models.Trace) { m.traces[trace.TraceID] = trace }

func (m *memoryStore) Get(traceID string) (models.Trace, bool) {
	t, ok := m.traces[traceID]
	return t, ok
}

func (m *memoryStore) List(tenantID string) []models.Trace {
	out := make([]models.Trace, 0)
	for _, t := range m.traces {
		if t.TenantID == tenantID {
			out = append(out, t)
		}
	}
	return out
}

func (m *memoryStore) Delete(traceID string) { delete(m.traces, traceID) }

// Facade orchestrates trace submission and retrieval with tenant
// authorization and idempotency, mirroring TraceFacade's
// authorize→idempotency-check→store→(event) workflow, minus the
// event-bus/transaction-manager machinery the original's generic port
// traits provide — this facade calls the store directly since riptide has
// no separate transaction coordinator.
type Facade struct {
	store       Store
	idempotency *security.IdempotencyStore
	policies    []security.Policy
}

func NewFacade(store Store, idempotency *security.IdempotencyStore) *Facade {
	return &Facade{store: store, idempotency: idempotency, policies: security.DefaultPolicies()}
}

// SubmitTrace stores trace_data, enforcing tenant scoping and collapsing
// duplicate submissions of the same trace_id to a single stored write
// (ported from submit_trace's authorize→idempotency-check→store steps).
func (f *Facade) SubmitTrace(ctx *security.AuthContext, trace models.Trace) (string, error) {
	action := security.Action{Name: "trace.submit", TenantID: trace.TenantID}
	if err := security.Authorize(ctx, action, f.policies); err != nil {
		return "", err
	}

	if cached, _, acquired := f.idempotency.Acquire("trace:submit", trace.TraceID); !acquired {
		if id, ok := cached.(string); ok {
			return id, nil
		}
	}

	f.store.Put(trace)
	f.idempotency.Release("trace:submit", trace.TraceID, trace.TraceID, nil)
	return trace.TraceID, nil
}

// GetTrace retrieves a trace by id, scoped to the caller's tenant.
func (f *Facade) GetTrace(ctx *security.AuthContext, traceID string) (models.Trace, error) {
	trace, ok := f.store.Get(traceID)
	if !ok {
		return models.Trace{}, models.NewError(models.KindNotFound, "telemetry: trace "+traceID+" not found", nil)
	}

	action := security.Action{Name: "trace.read", TenantID: trace.TenantID}
	if err := security.Authorize(ctx, action, f.policies); err != nil {
		return models.Trace{}, err
	}
	return trace, nil
}

// ListSpans returns every span (root + children) across the caller's
// tenant's traces, flattened, mirroring list_traces/get_trace's combined
// read path in a single call.
func (f *Facade) ListSpans(ctx *security.AuthContext) ([]models.TraceSpan, error) {
	action := security.Action{Name: "trace.list", TenantID: ctx.TenantID}
	if err := security.Authorize(ctx, action, f.policies); err != nil {
		return nil, err
	}

	spans := make([]models.TraceSpan, 0)
	for _, trace := range f.store.List(ctx.TenantID) {
		spans = append(spans, trace.RootSpan)
		spans = append(spans, trace.ChildSpans...)
	}
	return spans, nil
}

// DeleteTrace removes a trace, scoped to the caller's tenant.
func (f *Facade) DeleteTrace(ctx *security.AuthContext, traceID string) error {
	trace, ok := f.store.Get(traceID)
	if !ok {
		return models.NewError(models.KindNotFound, "telemetry: trace "+traceID+" not found", nil)
	}

	action := security.Action{Name: "trace.delete", TenantID: trace.TenantID}
	if err := security.Authorize(ctx, action, f.policies); err != nil {
		return err
	}
	f.store.Delete(traceID)
	return nil
}
