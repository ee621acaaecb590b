// attestation/nullifier.go

// Nullifier derivation for replay-resistant anonymous reporting.
//
// A nullifier is a one-way, deterministic value derived from the
// reporter's secret and an event identifier. The registry persists
// only the nullifier, never the secret, so stored records cannot be
// linked to a reporter while duplicates are still detectable.
//
// This hash-based scheme prevents trivial replay, not cryptographically
// strong anonymity: a registry operator with a candidate list of
// reporter secrets could brute-force them against known event IDs.
// True unlinkability needs an anonymous-credential or commitment
// scheme on top of this derivation.

package attestation

import (
	"encoding/hex"
	"fmt"

	"github.com/stakeguard-labs/go-stakeguard/crypto/hash"
)

// NullifierSize is the byte length of a nullifier
const NullifierSize = hash.HashSize

// Nullifier is the dedup key for one (reporter, incident) pair
type Nullifier [NullifierSize]byte

// EventID deterministically identifies an incident as
// blake2b(operatorId, incidentKind). Both inputs are length-prefixed
// inside the hash so concatenation cannot be ambiguous.
func EventID(operatorID, incidentKind string) []byte {
	return hash.NewHashParts([]byte(operatorID), []byte(incidentKind))
}

// NewNullifier derives the nullifier for a reporter secret and event.
// Same secret and event always produce the same nullifier; changing
// either changes it with overwhelming probability.
func NewNullifier(reporterSecret, eventID []byte) Nullifier {
	var n Nullifier
	copy(n[:], hash.NewHashParts(reporterSecret, eventID))
	return n
}

// NullifierFromHex parses a hex-encoded nullifier
func NullifierFromHex(s string) (Nullifier, error) {
	var n Nullifier
	raw, err := hex.DecodeString(s)
	if err != nil {
		return n, err
	}
	if len(raw) != NullifierSize {
		return n, fmt.Errorf("invalid nullifier length: got %d, want %d", len(raw), NullifierSize)
	}
	copy(n[:], raw)
	return n, nil
}

// Hex returns the lowercase hex encoding
func (n Nullifier) Hex() string {
	return hex.EncodeToString(n[:])
}

// String implements fmt.Stringer
func (n Nullifier) String() string {
	return n.Hex()
}
