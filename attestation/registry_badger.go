// attestation/registry_badger.go

// Durable nullifier registry backed by BadgerDB
// Features:
// - Check-and-insert inside a single storage transaction; the losing
//   racer on a nullifier observes ErrDuplicateNullifier
// - CBOR-encoded attestation records alongside the nullifier marker
// - Storage errors surface as wrapped transport failures, never as
//   silent success

package attestation

import (
	"context"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/stakeguard-labs/go-stakeguard/storage"
)

// BadgerRegistry persists attestations through the storage layer
type BadgerRegistry struct {
	store storage.Storage
}

var _ Registry = (*BadgerRegistry)(nil)

// NewBadgerRegistry creates a registry over an open storage instance.
// The registry does not own the storage; the caller closes it.
func NewBadgerRegistry(store storage.Storage) *BadgerRegistry {
	return &BadgerRegistry{store: store}
}

// HasAttested reports whether the nullifier has been accepted
func (r *BadgerRegistry) HasAttested(nullifier Nullifier) (bool, error) {
	exists, err := r.store.Has(storage.NullifierKey(nullifier.Hex()))
	if err != nil {
		return false, fmt.Errorf("registry lookup failed: %w", err)
	}
	return exists, nil
}

// Accept durably stores the attestation unless its nullifier is
// already used. The duplicate check and both writes happen in one
// storage transaction, which makes Accept atomic per nullifier.
func (r *BadgerRegistry) Accept(ctx context.Context, att *Attestation) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored := *att
	if stored.AcceptedAt == 0 {
		stored.AcceptedAt = time.Now().Unix()
	}

	data, err := cbor.Marshal(&stored)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attestation: %w", err)
	}

	nullifierHex := stored.Nullifier.Hex()

	err = r.store.Update(func(txn storage.Transaction) error {
		exists, err := txn.Has(storage.NullifierKey(nullifierHex))
		if err != nil {
			return fmt.Errorf("nullifier check failed: %w", err)
		}
		if exists {
			return ErrDuplicateNullifier
		}

		if err := txn.Set(storage.NullifierKey(nullifierHex), []byte{1}); err != nil {
			return fmt.Errorf("failed to mark nullifier: %w", err)
		}
		return txn.Set(storage.AttestationKey(nullifierHex), data)
	})
	if err != nil {
		return nil, err
	}

	return &Receipt{
		TxID:       nullifierHex,
		AcceptedAt: stored.AcceptedAt,
	}, nil
}

// Get loads the stored attestation for a nullifier
func (r *BadgerRegistry) Get(nullifier Nullifier) (*Attestation, error) {
	data, err := r.store.Get(storage.AttestationKey(nullifier.Hex()))
	if err != nil {
		if err == storage.ErrKeyNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load attestation: %w", err)
	}

	var att Attestation
	if err := cbor.Unmarshal(data, &att); err != nil {
		return nil, fmt.Errorf("failed to decode attestation: %w", err)
	}
	return &att, nil
}
