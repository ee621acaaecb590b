// attestation/registry.go

// Nullifier registry abstraction
// Features:
// - At-most-one accepted attestation per nullifier, atomic at the
//   registry regardless of caller races
// - HasAttested pre-check for fast feedback; Accept is the real guard
// - In-memory implementation for tests and dev mode

package attestation

import (
	"context"
	"sync"
	"time"
)

// Registry is the sole source of truth for duplicate detection.
// Callers must not cache a "not yet attested" answer across the
// check-then-act gap: the gap is not atomic, only Accept is.
type Registry interface {
	HasAttested(nullifier Nullifier) (bool, error)
	Accept(ctx context.Context, att *Attestation) (*Receipt, error)
}

// MemoryRegistry keeps accepted attestations in memory. Accept holds
// the write lock across check-and-insert, so concurrent racers on the
// same nullifier see exactly one acceptance.
type MemoryRegistry struct {
	mu       sync.RWMutex
	accepted map[Nullifier]*Attestation
}

var _ Registry = (*MemoryRegistry)(nil)

// NewMemoryRegistry creates an empty in-memory registry
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		accepted: make(map[Nullifier]*Attestation),
	}
}

// HasAttested reports whether the nullifier has been accepted
func (r *MemoryRegistry) HasAttested(nullifier Nullifier) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.accepted[nullifier]
	return exists, nil
}

// Accept stores the attestation unless its nullifier is already used
func (r *MemoryRegistry) Accept(ctx context.Context, att *Attestation) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accepted[att.Nullifier]; exists {
		return nil, ErrDuplicateNullifier
	}

	stored := *att
	if stored.AcceptedAt == 0 {
		stored.AcceptedAt = time.Now().Unix()
	}
	r.accepted[att.Nullifier] = &stored

	return &Receipt{
		TxID:       stored.Nullifier.Hex(),
		AcceptedAt: stored.AcceptedAt,
	}, nil
}

// Get returns a copy of the stored attestation, if any
func (r *MemoryRegistry) Get(nullifier Nullifier) (*Attestation, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	att, exists := r.accepted[nullifier]
	if !exists {
		return nil, false
	}
	attCopy := *att
	return &attCopy, true
}

// Count returns the number of accepted attestations
func (r *MemoryRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.accepted)
}
