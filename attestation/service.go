// attestation/service.go

// Incident report submission service
// Features:
// - Derives eventId and nullifier from the reporter's signing key
// - Maps severity to score impact with a safe default
// - Pre-checks the registry for fast duplicate feedback; relies on the
//   registry's atomic Accept as the real guard
// - Retries transport failures per the configured policy, never
//   duplicates
// - Notifies score consumers on success so cached scores recompute

package attestation

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"

	"github.com/stakeguard-labs/go-stakeguard/crypto"
)

var log = logging.Logger("attestation")

// ScoreSink receives the score impact of accepted attestations.
// The scoring tracker implements this.
type ScoreSink interface {
	ApplyDelta(operatorID, reason string, delta int)
}

// Service orchestrates report submission against a Registry
type Service struct {
	registry Registry
	scores   ScoreSink
	retry    RetryPolicy
}

// NewService creates an attestation service. scores may be nil when no
// score consumer is wired (the registry is still authoritative).
func NewService(registry Registry, scores ScoreSink, retry RetryPolicy) *Service {
	if retry.MaxAttempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Service{
		registry: registry,
		scores:   scores,
		retry:    retry,
	}
}

// SubmitReport submits one anonymous incident report.
//
// The reporter key doubles as the nullifier secret: the registry never
// sees the key, only blake2b(secret, eventId). Duplicate submissions
// from the same reporter for the same incident return
// ErrAlreadyReported; transport failures exhaust the retry policy and
// return ErrSubmissionFailed wrapping the cause.
func (s *Service) SubmitReport(
	ctx context.Context,
	reporterKey crypto.PrivateKey,
	operatorID string,
	incidentKind string,
	severity Severity,
	description string,
) (*Receipt, error) {
	if reporterKey == nil || len(reporterKey.Bytes()) == 0 {
		return nil, ErrNotAuthenticated
	}
	if operatorID == "" {
		return nil, fmt.Errorf("operator id is required")
	}
	if incidentKind == "" {
		return nil, fmt.Errorf("incident kind is required")
	}

	eventID := EventID(operatorID, incidentKind)
	nullifier := NewNullifier(reporterKey.Bytes(), eventID)
	delta := ImpactDelta(severity)

	// Pre-check is an optimization for fast user feedback only; the
	// registry's Accept owns duplicate detection.
	attested, err := s.registry.HasAttested(nullifier)
	if err != nil {
		log.Debugw("pre-check failed, deferring to accept", "err", err)
	} else if attested {
		return nil, ErrAlreadyReported
	}

	att := &Attestation{
		Nullifier:   nullifier,
		OperatorID:  operatorID,
		ImpactDelta: delta,
		Reason:      reason(incidentKind, description),
		AcceptedAt:  time.Now().Unix(),
	}

	receipt, err := s.acceptWithRetry(ctx, att)
	if err != nil {
		if errors.Is(err, ErrDuplicateNullifier) {
			return nil, ErrAlreadyReported
		}
		return nil, err
	}

	if s.scores != nil {
		s.scores.ApplyDelta(operatorID, att.Reason, delta)
	}

	log.Infow("attestation accepted",
		"operator", operatorID,
		"kind", incidentKind,
		"severity", severity,
		"delta", delta,
	)

	return receipt, nil
}

// acceptWithRetry drives the registry Accept through the retry policy.
// Only transport failures retry; duplicate rejection and context
// cancellation end the loop immediately.
func (s *Service) acceptWithRetry(ctx context.Context, att *Attestation) (*Receipt, error) {
	var lastErr error

	for attempt := 1; attempt <= s.retry.MaxAttempts; attempt++ {
		receipt, err := s.registry.Accept(ctx, att)
		if err == nil {
			return receipt, nil
		}
		if errors.Is(err, ErrDuplicateNullifier) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		lastErr = err
		log.Warnw("attestation submit attempt failed",
			"attempt", attempt,
			"max", s.retry.MaxAttempts,
			"err", err,
		)

		if attempt < s.retry.MaxAttempts {
			if err := s.retry.wait(ctx, attempt); err != nil {
				return nil, err
			}
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrSubmissionFailed, lastErr)
}

func reason(incidentKind, description string) string {
	if description == "" {
		return "incident:" + incidentKind
	}
	return fmt.Sprintf("incident:%s (%s)", incidentKind, description)
}
