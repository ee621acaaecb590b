package attestation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stakeguard-labs/go-stakeguard/crypto"
)

func testKey(t *testing.T, tag byte) crypto.PrivateKey {
	t.Helper()
	seed := bytes.Repeat([]byte{tag}, 32)
	key, err := crypto.NewPrivateKeyFromSeed(seed)
	require.NoError(t, err)
	return key
}

type deltaRecorder struct {
	mu     sync.Mutex
	deltas []int
	ops    []string
}

func (d *deltaRecorder) ApplyDelta(operatorID, reason string, delta int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.deltas = append(d.deltas, delta)
	d.ops = append(d.ops, operatorID)
}

// flakyRegistry fails Accept with a transport error until failures runs out
type flakyRegistry struct {
	inner    *MemoryRegistry
	failures int
	attempts int
}

func (f *flakyRegistry) HasAttested(n Nullifier) (bool, error) {
	return f.inner.HasAttested(n)
}

func (f *flakyRegistry) Accept(ctx context.Context, att *Attestation) (*Receipt, error) {
	f.attempts++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("connection reset by peer")
	}
	return f.inner.Accept(ctx, att)
}

func fastRetry(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    attempts,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestSubmitReportAcceptsAndScores(t *testing.T) {
	registry := NewMemoryRegistry()
	scores := &deltaRecorder{}
	service := NewService(registry, scores, fastRetry(3))

	receipt, err := service.SubmitReport(
		context.Background(),
		testKey(t, 0x01),
		"0xoperator",
		"double_sign",
		SeverityCritical,
		"equivocation at height 42",
	)
	require.NoError(t, err)
	require.NotNil(t, receipt)
	require.NotEmpty(t, receipt.TxID)
	require.NotZero(t, receipt.AcceptedAt)

	require.Equal(t, 1, registry.Count())
	require.Equal(t, []int{CriticalImpactDelta}, scores.deltas)
	require.Equal(t, []string{"0xoperator"}, scores.ops)

	nullifier := NewNullifier(testKey(t, 0x01).Bytes(), EventID("0xoperator", "double_sign"))
	att, ok := registry.Get(nullifier)
	require.True(t, ok)
	require.Equal(t, "incident:double_sign (equivocation at height 42)", att.Reason)
}

func TestSubmitReportDuplicateSameReporter(t *testing.T) {
	registry := NewMemoryRegistry()
	scores := &deltaRecorder{}
	service := NewService(registry, scores, fastRetry(3))
	key := testKey(t, 0x02)

	_, err := service.SubmitReport(context.Background(), key, "0xoperator", "downtime", SeverityMedium, "")
	require.NoError(t, err)

	_, err = service.SubmitReport(context.Background(), key, "0xoperator", "downtime", SeverityMedium, "")
	require.ErrorIs(t, err, ErrAlreadyReported)

	// Only the first report moved the score
	require.Equal(t, 1, registry.Count())
	require.Len(t, scores.deltas, 1)
}

func TestSubmitReportDistinctReporters(t *testing.T) {
	registry := NewMemoryRegistry()
	service := NewService(registry, nil, fastRetry(3))

	_, err := service.SubmitReport(context.Background(), testKey(t, 0x03), "0xoperator", "downtime", SeverityLow, "")
	require.NoError(t, err)

	_, err = service.SubmitReport(context.Background(), testKey(t, 0x04), "0xoperator", "downtime", SeverityLow, "")
	require.NoError(t, err)

	require.Equal(t, 2, registry.Count())
}

func TestSubmitReportSameReporterDifferentIncidents(t *testing.T) {
	registry := NewMemoryRegistry()
	service := NewService(registry, nil, fastRetry(3))
	key := testKey(t, 0x05)

	_, err := service.SubmitReport(context.Background(), key, "0xoperator", "downtime", SeverityLow, "")
	require.NoError(t, err)

	_, err = service.SubmitReport(context.Background(), key, "0xoperator", "double_sign", SeverityCritical, "")
	require.NoError(t, err)

	_, err = service.SubmitReport(context.Background(), key, "0xother", "downtime", SeverityLow, "")
	require.NoError(t, err)

	require.Equal(t, 3, registry.Count())
}

func TestSubmitReportNotAuthenticated(t *testing.T) {
	service := NewService(NewMemoryRegistry(), nil, fastRetry(3))

	_, err := service.SubmitReport(context.Background(), nil, "0xoperator", "downtime", SeverityLow, "")
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestSubmitReportValidation(t *testing.T) {
	service := NewService(NewMemoryRegistry(), nil, fastRetry(3))
	key := testKey(t, 0x06)

	_, err := service.SubmitReport(context.Background(), key, "", "downtime", SeverityLow, "")
	require.Error(t, err)

	_, err = service.SubmitReport(context.Background(), key, "0xoperator", "", SeverityLow, "")
	require.Error(t, err)
}

func TestSubmitReportRetriesTransportFailures(t *testing.T) {
	flaky := &flakyRegistry{inner: NewMemoryRegistry(), failures: 2}
	scores := &deltaRecorder{}
	service := NewService(flaky, scores, fastRetry(3))

	_, err := service.SubmitReport(context.Background(), testKey(t, 0x07), "0xoperator", "downtime", SeverityHigh, "")
	require.NoError(t, err)
	require.Equal(t, 3, flaky.attempts)
	require.Equal(t, 1, flaky.inner.Count())
	require.Len(t, scores.deltas, 1)
}

func TestSubmitReportExhaustsRetries(t *testing.T) {
	flaky := &flakyRegistry{inner: NewMemoryRegistry(), failures: 10}
	scores := &deltaRecorder{}
	service := NewService(flaky, scores, fastRetry(3))

	_, err := service.SubmitReport(context.Background(), testKey(t, 0x08), "0xoperator", "downtime", SeverityHigh, "")
	require.ErrorIs(t, err, ErrSubmissionFailed)
	require.Equal(t, 3, flaky.attempts)
	require.Empty(t, scores.deltas)
}

func TestSubmitReportNoRetryOnDuplicate(t *testing.T) {
	registry := NewMemoryRegistry()
	key := testKey(t, 0x09)

	// Seed the registry directly so the service pre-check misses nothing
	nullifier := NewNullifier(key.Bytes(), EventID("0xoperator", "downtime"))
	_, err := registry.Accept(context.Background(), &Attestation{
		Nullifier:  nullifier,
		OperatorID: "0xoperator",
	})
	require.NoError(t, err)

	counting := &flakyRegistry{inner: registry}
	service := NewService(counting, nil, fastRetry(5))

	_, err = service.SubmitReport(context.Background(), key, "0xoperator", "downtime", SeverityLow, "")
	require.ErrorIs(t, err, ErrAlreadyReported)
	// Pre-check catches it, Accept is never driven through the retry loop
	require.Equal(t, 0, counting.attempts)
}

func TestSubmitReportContextCancelled(t *testing.T) {
	flaky := &flakyRegistry{inner: NewMemoryRegistry(), failures: 10}
	service := NewService(flaky, nil, fastRetry(5))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := service.SubmitReport(ctx, testKey(t, 0x0a), "0xoperator", "downtime", SeverityLow, "")
	require.Error(t, err)
	require.True(t, errors.Is(err, context.Canceled))
}

func TestConcurrentSubmitSingleAcceptance(t *testing.T) {
	registry := NewMemoryRegistry()
	scores := &deltaRecorder{}
	service := NewService(registry, scores, fastRetry(3))
	key := testKey(t, 0x0b)

	const racers = 16
	var wg sync.WaitGroup
	results := make(chan error, racers)

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := service.SubmitReport(context.Background(), key, "0xoperator", "double_sign", SeverityCritical, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	accepted := 0
	duplicates := 0
	for err := range results {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrAlreadyReported):
			duplicates++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	require.Equal(t, 1, accepted)
	require.Equal(t, racers-1, duplicates)
	require.Equal(t, 1, registry.Count())
	require.Len(t, scores.deltas, 1)
}

func TestRetryPolicyBackoffGrowth(t *testing.T) {
	policy := RetryPolicy{
		MaxAttempts:    5,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     time.Second,
		Multiplier:     2.0,
	}

	require.Equal(t, 100*time.Millisecond, policy.backoff(1))
	require.Equal(t, 200*time.Millisecond, policy.backoff(2))
	require.Equal(t, 400*time.Millisecond, policy.backoff(3))
	require.Equal(t, 800*time.Millisecond, policy.backoff(4))
	require.Equal(t, time.Second, policy.backoff(5))
}
