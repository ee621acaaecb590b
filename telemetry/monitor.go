// telemetry/monitor.go

// Fixed-interval telemetry polling with staleness tracking
// Features:
// - Polls the configured Provider on a fixed interval (default 60s)
// - Marks the snapshot stale past the staleness threshold (default 30s
//   beyond the poll interval) instead of failing the read path
// - Falls back to the built-in sample dataset until the first
//   successful fetch, so consumers never observe an empty view

package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	logging "github.com/ipfs/go-log/v2"
)

var log = logging.Logger("telemetry")

const (
	DefaultPollInterval       = 60 * time.Second
	DefaultStalenessThreshold = 30 * time.Second
)

// Sink receives refreshed telemetry records. The score tracker
// implements this.
type Sink interface {
	UpdateTelemetry(records []ValidatorTelemetry)
}

// Monitor drives periodic telemetry refreshes into a Sink
type Monitor struct {
	provider  Provider
	sink      Sink
	interval  time.Duration
	staleness time.Duration

	mu          sync.RWMutex
	lastRefresh time.Time
	lastErr     error
	fetchedOnce bool

	cancel context.CancelFunc
	done   chan struct{}

	isRunning bool
}

// NewMonitor creates a telemetry monitor. Zero interval or staleness
// fall back to the defaults.
func NewMonitor(provider Provider, sink Sink, interval, staleness time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if staleness <= 0 {
		staleness = DefaultStalenessThreshold
	}
	return &Monitor{
		provider:  provider,
		sink:      sink,
		interval:  interval,
		staleness: staleness,
	}
}

// Start seeds the sink and begins the polling loop
func (m *Monitor) Start() error {
	m.mu.Lock()
	if m.isRunning {
		m.mu.Unlock()
		return fmt.Errorf("telemetry monitor is already running")
	}
	m.isRunning = true

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.done = make(chan struct{})
	m.mu.Unlock()

	// Seed with the sample dataset so the first reads have a view,
	// then attempt a real fetch immediately.
	m.sink.UpdateTelemetry(SampleDataset())
	m.Refresh(ctx)

	go m.pollLoop(ctx)

	return nil
}

// Stop halts the polling loop
func (m *Monitor) Stop() error {
	m.mu.Lock()
	if !m.isRunning {
		m.mu.Unlock()
		return nil
	}
	m.isRunning = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	return nil
}

func (m *Monitor) pollLoop(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh(ctx)
		}
	}
}

// Refresh performs one fetch cycle. On failure the previous snapshot
// is kept and only the staleness clock suffers; the read path never
// breaks because a fetch failed.
func (m *Monitor) Refresh(ctx context.Context) {
	records, err := m.provider.Fetch(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.lastErr = err
		log.Warnw("telemetry fetch failed, keeping previous snapshot", "err", err)
		return
	}

	m.lastErr = nil
	m.fetchedOnce = true
	m.lastRefresh = time.Now()
	m.sink.UpdateTelemetry(records)
}

// IsStale reports whether the snapshot is older than the poll interval
// plus the staleness threshold. Before the first successful fetch the
// sample dataset is serving, which is always considered stale.
func (m *Monitor) IsStale() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.fetchedOnce {
		return true
	}
	return time.Since(m.lastRefresh) > m.interval+m.staleness
}

// LastError returns the most recent fetch error, nil after a success
func (m *Monitor) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

// LastRefresh returns the time of the last successful fetch
func (m *Monitor) LastRefresh() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastRefresh
}
