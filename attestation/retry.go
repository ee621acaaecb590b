// attestation/retry.go

// Explicit retry policy for transport failures.
//
// Retrying is safe by construction: resubmission with the same
// nullifier is idempotent-rejected as a duplicate, never double
// applied. Expected rejections are therefore excluded from retry;
// only transport failures qualify.

package attestation

import (
	"context"
	"time"
)

// RetryPolicy bounds retry behavior for registry submissions
type RetryPolicy struct {
	MaxAttempts    int           `json:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff"`
	MaxBackoff     time.Duration `json:"max_backoff"`
	Multiplier     float64       `json:"multiplier"`
}

// DefaultRetryPolicy returns the policy used when none is configured
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		Multiplier:     2.0,
	}
}

// backoff returns the delay before the given 1-based retry attempt
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.InitialBackoff
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if d >= p.MaxBackoff {
			return p.MaxBackoff
		}
	}
	if d > p.MaxBackoff {
		return p.MaxBackoff
	}
	return d
}

// wait sleeps for the attempt's backoff or until the context is
// cancelled. A cancelled context means the caller abandoned the
// submission; it must re-query HasAttested before resubmitting.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(p.backoff(attempt))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
