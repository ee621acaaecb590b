// scoring/tracker.go

// Score tracking across telemetry refreshes and attestation impacts
// Features:
// - Per-operator telemetry snapshot with recompute-on-read scoring
// - Accumulated attestation impact deltas on top of the telemetry score
// - Ordered per-operator event ledger {reason, delta, timestamp}
// - Durable event log and telemetry snapshot through the storage
//   layer, replayed at startup so accepted impacts survive restarts

package scoring

import (
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	logging "github.com/ipfs/go-log/v2"

	"github.com/stakeguard-labs/go-stakeguard/storage"
	"github.com/stakeguard-labs/go-stakeguard/telemetry"
)

var log = logging.Logger("scoring")

// Event is one score mutation applied to an operator
type Event struct {
	Reason    string `json:"reason" cbor:"1,keyasint"`
	Delta     int    `json:"delta" cbor:"2,keyasint"`
	Timestamp int64  `json:"timestamp" cbor:"3,keyasint"`
}

// Tracker owns the read path for scores. The telemetry snapshot is the
// source of truth; scores are recomputed on every read, never persisted.
// Attestation deltas accumulate separately and are folded in at read
// time, so a telemetry refresh never erases accepted incident impacts.
type Tracker struct {
	mu sync.RWMutex

	snapshot map[string]telemetry.ValidatorTelemetry
	deltas   map[string]int
	events   map[string][]Event
	seq      uint64

	// Optional durable event log. Nil means in-memory only.
	store storage.Storage
}

// NewTracker creates a score tracker. store may be nil for in-memory
// operation (tests, dev mode).
func NewTracker(store storage.Storage) *Tracker {
	return &Tracker{
		snapshot: make(map[string]telemetry.ValidatorTelemetry),
		deltas:   make(map[string]int),
		events:   make(map[string][]Event),
		store:    store,
	}
}

// LoadFromStorage rebuilds the telemetry snapshot and the score ledger
// from durable records. Called once at startup before the tracker is
// shared. Without the replay an accepted attestation would keep its
// duplicate suppression across a restart while silently losing its
// score impact.
func (t *Tracker) LoadFromStorage() error {
	if t.store == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	iter := t.store.Iterator([]byte(storage.TelemetryPrefix))
	for iter.Next() {
		var rec telemetry.ValidatorTelemetry
		if err := cbor.Unmarshal(iter.Value(), &rec); err != nil {
			iter.Close()
			return fmt.Errorf("failed to decode telemetry record %q: %v", iter.Key(), err)
		}
		if rec.OperatorID == "" {
			continue
		}
		t.snapshot[rec.OperatorID] = rec
	}
	iter.Close()

	count := 0
	iter = t.store.Iterator([]byte(storage.EventPrefix))
	defer iter.Close()
	for iter.Next() {
		operatorID, seq, err := storage.ParseEventKey(iter.Key())
		if err != nil {
			return fmt.Errorf("failed to parse event key: %v", err)
		}

		var event Event
		if err := cbor.Unmarshal(iter.Value(), &event); err != nil {
			return fmt.Errorf("failed to decode score event %q: %v", iter.Key(), err)
		}

		t.deltas[operatorID] += event.Delta
		t.events[operatorID] = append(t.events[operatorID], event)
		if seq > t.seq {
			t.seq = seq
		}
		count++
	}

	if count > 0 {
		log.Infow("restored score events from storage", "count", count)
	}
	return nil
}

// UpdateTelemetry replaces the telemetry records for the given
// operators and persists the snapshot when storage is attached. Safe
// to call from the refresh loop while readers score concurrently.
func (t *Tracker) UpdateTelemetry(records []telemetry.ValidatorTelemetry) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var ops []storage.BatchOperation
	for _, rec := range records {
		if rec.OperatorID == "" {
			continue
		}
		t.snapshot[rec.OperatorID] = rec

		if t.store != nil {
			data, err := cbor.Marshal(rec)
			if err != nil {
				log.Errorw("failed to encode telemetry record", "operator", rec.OperatorID, "err", err)
				continue
			}
			ops = append(ops, storage.BatchOperation{
				Type:  storage.BatchSet,
				Key:   storage.TelemetryKey(rec.OperatorID),
				Value: data,
			})
		}
	}

	if len(ops) > 0 {
		if err := t.store.Batch(ops); err != nil {
			log.Errorw("failed to persist telemetry snapshot", "err", err)
		}
	}
}

// ApplyDelta records a score mutation for an operator, typically the
// impact of an accepted attestation.
func (t *Tracker) ApplyDelta(operatorID, reason string, delta int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	event := Event{
		Reason:    reason,
		Delta:     delta,
		Timestamp: time.Now().Unix(),
	}

	t.deltas[operatorID] += delta
	t.events[operatorID] = append(t.events[operatorID], event)
	t.seq++

	if t.store != nil {
		data, err := cbor.Marshal(event)
		if err != nil {
			log.Errorw("failed to encode score event", "operator", operatorID, "err", err)
			return
		}
		if err := t.store.Set(storage.EventKey(operatorID, t.seq), data); err != nil {
			log.Errorw("failed to persist score event", "operator", operatorID, "err", err)
		}
	}
}

// GetScore returns the current bounded score for an operator. Unknown
// operators score against an all-default telemetry record.
func (t *Tracker) GetScore(operatorID string) int {
	return t.GetRisk(operatorID).Value
}

// GetRisk returns the score with its classification
func (t *Tracker) GetRisk(operatorID string) RiskScore {
	t.mu.RLock()
	defer t.mu.RUnlock()

	base := Score(t.snapshot[operatorID])
	value := Clamp(base.Value + t.deltas[operatorID])

	return RiskScore{
		Value:          value,
		Classification: Classify(value),
	}
}

// GetEvents returns the ordered score events for an operator
func (t *Tracker) GetEvents(operatorID string) []Event {
	t.mu.RLock()
	defer t.mu.RUnlock()

	events := t.events[operatorID]
	eventsCopy := make([]Event, len(events))
	copy(eventsCopy, events)
	return eventsCopy
}

// Telemetry returns the current record for an operator
func (t *Tracker) Telemetry(operatorID string) (telemetry.ValidatorTelemetry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec, ok := t.snapshot[operatorID]
	return rec, ok
}

// Operators returns all operator IDs with a telemetry record
func (t *Tracker) Operators() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.snapshot))
	for id := range t.snapshot {
		ids = append(ids, id)
	}
	return ids
}
