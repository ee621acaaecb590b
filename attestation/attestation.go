// attestation/attestation.go

// Anonymous incident attestations
// Features:
// - Write-once attestation records keyed by nullifier
// - Severity to score-impact mapping with a safe default
// - Error taxonomy separating expected rejections from transport
//   failures so callers retry only what is retryable

package attestation

import (
	"errors"
)

// Severity categorizes incident reports
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Score impact per severity. Unknown severities recover to
// DefaultImpactDelta rather than failing the submission.
const (
	LowImpactDelta      = -5
	MediumImpactDelta   = -15
	HighImpactDelta     = -25
	CriticalImpactDelta = -40
	DefaultImpactDelta  = -10
)

// ImpactDelta maps a severity to its score delta
func ImpactDelta(severity Severity) int {
	switch severity {
	case SeverityLow:
		return LowImpactDelta
	case SeverityMedium:
		return MediumImpactDelta
	case SeverityHigh:
		return HighImpactDelta
	case SeverityCritical:
		return CriticalImpactDelta
	default:
		return DefaultImpactDelta
	}
}

// Attestation is an accepted incident report. Immutable once stored:
// the registry exposes no update or delete path.
type Attestation struct {
	Nullifier   Nullifier `json:"nullifier" cbor:"1,keyasint"`
	OperatorID  string    `json:"operator_id" cbor:"2,keyasint"`
	ImpactDelta int       `json:"impact_delta" cbor:"3,keyasint"`
	Reason      string    `json:"reason" cbor:"4,keyasint"`
	AcceptedAt  int64     `json:"accepted_at" cbor:"5,keyasint"`
}

// Receipt identifies one accepted attestation
type Receipt struct {
	TxID       string `json:"tx_id"`
	AcceptedAt int64  `json:"accepted_at"`
}

// Expected rejections. Surfaced to the caller as normal outcomes,
// never retried automatically.
var (
	ErrDuplicateNullifier = errors.New("nullifier already attested")
	ErrAlreadyReported    = errors.New("incident already reported by this reporter")
	ErrNotAuthenticated   = errors.New("no reporter signing capability available")
)

// ErrSubmissionFailed marks transport failures, distinct from duplicate
// rejection so the caller can decide to retry only the former.
var ErrSubmissionFailed = errors.New("attestation submission failed")
