// Package security implements the security/audit facade (spec §4.10): an
// authorization + idempotency + audit wrapper run around every
// externally-originated action, plus the tenant directory and header/PII
// redaction helpers it shares with the rest of riptide.
package security

import (
	"fmt"

	"github.com/google/uuid"
)

// EventPublisher publishes a domain event on successful completion of an
// action (spec §4.10 step 4: "trace.submitted", "trace.deleted", etc).
type EventPublisher func(eventName string, payload interface{})

// Facade wraps authorization, idempotency and audit emission around a
// caller-supplied operation.
type Facade struct {
	Policies    []Policy
	Idempotency *IdempotencyStore
	Audit       *AuditLog
	Publish     EventPublisher
}

func NewFacade(audit *AuditLog, publish EventPublisher) *Facade {
	return &Facade{
		Policies:    DefaultPolicies(),
		Idempotency: NewIdempotencyStore(0),
		Audit:       audit,
		Publish:     publish,
	}
}

// Execute runs the 5-step flow of spec §4.10 around op: authorize, acquire
// idempotency token, run op, publish event + release token on success,
// audit either way. targetID scopes both the idempotency key and the audit
// entry; eventName is published only on success.
func (f *Facade) Execute(ctx *AuthContext, action Action, targetID, eventName string, op func() (interface{}, error)) (interface{}, error) {
	if err := Authorize(ctx, action, f.Policies); err != nil {
		f.audit(action, OutcomeFailure, err.Error())
		return nil, err
	}

	cached, cachedErr, acquired := f.Idempotency.Acquire(action.Name, targetID)
	if !acquired {
		return cached, cachedErr
	}

	outcome, err := op()
	f.Idempotency.Release(action.Name, targetID, outcome, err)

	if err != nil {
		f.audit(action, OutcomeFailure, err.Error())
		return outcome, err
	}

	f.audit(action, OutcomeSuccess, "")
	if f.Publish != nil && eventName != "" {
		f.Publish(eventName, outcome)
	}
	return outcome, nil
}

func (f *Facade) audit(action Action, outcome AuditOutcome, detail string) {
	if f.Audit == nil {
		return
	}
	f.Audit.Write(AuditEntry{TenantID: action.TenantID, Action: action.Name, Outcome: outcome, Detail: detail})
}

// NewIdempotencyKey derives a fresh unique id suitable as the target id for
// operations without a natural caller-supplied key.
func NewIdempotencyKey(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}
