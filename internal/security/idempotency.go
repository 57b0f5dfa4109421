package security

import (
	"sync"
	"time"
)

// idempotencyEntry records the cached outcome of a previously executed
// operation, keyed by operation name + target id.
type idempotencyEntry struct {
	outcome   interface{}
	err       error
	expiresAt time.Time
}

// IdempotencyStore grants short-lived tokens keyed on (operation, target)
// so a duplicate externally-originated call short-circuits to the cached
// outcome instead of re-executing (spec §4.10 step 2).
type IdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]*idempotencyEntry
	ttl     time.Duration
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &IdempotencyStore{entries: make(map[string]*idempotencyEntry), ttl: ttl}
}

func key(operation, targetID string) string { return operation + ":" + targetID }

// Acquire attempts to take the idempotency token for (operation, targetID).
// If a prior outcome is cached and unexpired, it is returned immediately
// with acquired=false. Otherwise the caller now holds the token and must
// call Release with the outcome once the operation completes.
func (s *IdempotencyStore) Acquire(operation, targetID string) (outcome interface{}, err error, acquired bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := key(operation, targetID)
	if e, ok := s.entries[k]; ok && time.Now().Before(e.expiresAt) {
		return e.outcome, e.err, false
	}
	return nil, nil, true
}

// Release records the outcome and makes it visible to subsequent duplicate
// calls for the remainder of the TTL window.
func (s *IdempotencyStore) Release(operation, targetID string, outcome interface{}, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key(operation, targetID)] = &idempotencyEntry{
		outcome:   outcome,
		err:       err,
		expiresAt: time.Now().Add(s.ttl),
	}
}
