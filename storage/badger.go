// Package storage provides the data persistence layer for StakeGuard
//
// This package implements a two-tier storage architecture for the
// attestation and scoring subsystem:
//
// Architecture Overview:
// ┌──────────────────┐    ┌──────────────────┐
// │ NullifierRegistry│───▶│   RecordStore    │  (Attestations, Messages, Events)
// │  SecureChannel   │───▶│                  │
// └──────────────────┘    └─────────┬────────┘
//                                   │
//                         ┌─────────▼────────┐
//                         │  BadgerStorage   │  (Low-level KV store)
//                         └──────────────────┘
//
// Components:
// • BadgerStorage: Key-value store using BadgerDB v3 with transaction
//   support; the registry's duplicate check and write happen inside a
//   single badger transaction, which is what makes Accept atomic per
//   nullifier
//
// • RecordStore: CBOR-encoded typed records (attestations, encrypted
//   messages, score events, telemetry snapshots) on top of the raw KV
//   layer
//
// Key Features:
// - Thread-safe operations with read/write locks
// - Atomic batch operations for consistent updates
// - Support for iterators and prefix-based queries
// - Proper resource management and graceful shutdown

package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
)

// BadgerStorage implements durable storage using BadgerDB v3
type BadgerStorage struct {
	db *badger.DB
	mu sync.RWMutex
}

// NewBadgerStorage creates a new BadgerDB v3 storage instance
func NewBadgerStorage(dataDir string) (*BadgerStorage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %v", err)
	}

	opts := badger.DefaultOptions(dataDir).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithSyncWrites(true) // accepted attestations must be durable

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB: %v", err)
	}

	return &BadgerStorage{db: db}, nil
}

// Close releases the underlying database
func (bs *BadgerStorage) Close() error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	if bs.db != nil {
		err := bs.db.Close()
		bs.db = nil
		return err
	}
	return nil
}

// Get retrieves a value by key
func (bs *BadgerStorage) Get(key []byte) ([]byte, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	var value []byte
	err := bs.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}

		// ValueCopy is safe to use outside the transaction
		value, err = item.ValueCopy(nil)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return nil, ErrKeyNotFound
	}

	return value, err
}

// Set stores a key-value pair
func (bs *BadgerStorage) Set(key, value []byte) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// Has checks if a key exists
func (bs *BadgerStorage) Has(key []byte) (bool, error) {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	err := bs.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})

	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Batch executes multiple operations atomically
func (bs *BadgerStorage) Batch(operations []BatchOperation) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		for _, op := range operations {
			switch op.Type {
			case BatchSet:
				if err := txn.Set(op.Key, op.Value); err != nil {
					return err
				}
			case BatchDelete:
				if err := txn.Delete(op.Key); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// Update executes a function within a write transaction
func (bs *BadgerStorage) Update(fn func(txn Transaction) error) error {
	bs.mu.Lock()
	defer bs.mu.Unlock()

	return bs.db.Update(func(txn *badger.Txn) error {
		return fn(&BadgerTransaction{txn: txn})
	})
}

// View executes a function within a read transaction
func (bs *BadgerStorage) View(fn func(txn Transaction) error) error {
	bs.mu.RLock()
	defer bs.mu.RUnlock()

	return bs.db.View(func(txn *badger.Txn) error {
		return fn(&BadgerTransaction{txn: txn})
	})
}

// Iterator returns an iterator over keys with the given prefix
func (bs *BadgerStorage) Iterator(prefix []byte) Iterator {
	return &BadgerIterator{
		db:     bs.db,
		prefix: prefix,
	}
}

// Transaction interface for atomic operations
type Transaction interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Has(key []byte) (bool, error)
}

// BadgerTransaction wraps badger.Txn to implement Transaction interface
type BadgerTransaction struct {
	txn *badger.Txn
}

func (bt *BadgerTransaction) Get(key []byte) ([]byte, error) {
	item, err := bt.txn.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, ErrKeyNotFound
		}
		return nil, err
	}
	return item.ValueCopy(nil)
}

func (bt *BadgerTransaction) Set(key, value []byte) error {
	return bt.txn.Set(key, value)
}

func (bt *BadgerTransaction) Has(key []byte) (bool, error) {
	_, err := bt.txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BatchOperation represents a batch operation
type BatchOperation struct {
	Type  BatchOperationType
	Key   []byte
	Value []byte
}

type BatchOperationType int

const (
	BatchSet BatchOperationType = iota
	BatchDelete
)

// Custom errors
var (
	ErrKeyNotFound = fmt.Errorf("key not found")
)

// Iterator interface for database iteration
type Iterator interface {
	Next() bool
	Key() []byte
	Value() []byte
	Error() error
	Close()
}

// BadgerIterator implements Iterator for BadgerDB v3
type BadgerIterator struct {
	db     *badger.DB
	prefix []byte
	txn    *badger.Txn
	iter   *badger.Iterator
	closed bool
}

func (bi *BadgerIterator) Next() bool {
	if bi.closed {
		return false
	}

	if bi.txn == nil {
		bi.txn = bi.db.NewTransaction(false)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchSize = 100
		opts.PrefetchValues = false // Only prefetch keys for better performance
		bi.iter = bi.txn.NewIterator(opts)
		bi.iter.Seek(bi.prefix)
	} else {
		bi.iter.Next()
	}

	return bi.iter.ValidForPrefix(bi.prefix)
}

func (bi *BadgerIterator) Key() []byte {
	if bi.iter != nil {
		return bi.iter.Item().KeyCopy(nil)
	}
	return nil
}

func (bi *BadgerIterator) Value() []byte {
	if bi.iter != nil {
		val, _ := bi.iter.Item().ValueCopy(nil)
		return val
	}
	return nil
}

func (bi *BadgerIterator) Error() error {
	// BadgerDB iterator doesn't return errors during iteration
	return nil
}

func (bi *BadgerIterator) Close() {
	if !bi.closed {
		if bi.iter != nil {
			bi.iter.Close()
		}
		if bi.txn != nil {
			bi.txn.Discard()
		}
		bi.closed = true
	}
}

// Storage interface that BadgerStorage implements
type Storage interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
	Has(key []byte) (bool, error)
	Batch(operations []BatchOperation) error
	Update(fn func(txn Transaction) error) error
	View(fn func(txn Transaction) error) error
	Iterator(prefix []byte) Iterator
	Close() error
}

// Key prefixes for different data types
const (
	NullifierPrefix   = "nul:"
	AttestationPrefix = "att:"
	MessagePrefix     = "msg:"
	EventPrefix       = "evt:"
	TelemetryPrefix   = "tel:"
)

// Helper functions for key construction
func NullifierKey(nullifierHex string) []byte {
	return []byte(NullifierPrefix + nullifierHex)
}

func AttestationKey(nullifierHex string) []byte {
	return []byte(AttestationPrefix + nullifierHex)
}

func MessageKey(index int) []byte {
	return []byte(fmt.Sprintf("%s%012d", MessagePrefix, index))
}

func EventKey(operatorID string, seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%s:%012d", EventPrefix, operatorID, seq))
}

// ParseEventKey splits an event key into its operator id and sequence.
// Inverse of EventKey; used to replay the durable event log at startup.
func ParseEventKey(key []byte) (string, uint64, error) {
	s := string(key)
	if !strings.HasPrefix(s, EventPrefix) {
		return "", 0, fmt.Errorf("not an event key: %q", s)
	}

	rest := s[len(EventPrefix):]
	sep := strings.LastIndex(rest, ":")
	if sep <= 0 {
		return "", 0, fmt.Errorf("malformed event key: %q", s)
	}

	seq, err := strconv.ParseUint(rest[sep+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("malformed event sequence in %q: %v", s, err)
	}
	return rest[:sep], seq, nil
}

func TelemetryKey(operatorID string) []byte {
	return []byte(TelemetryPrefix + operatorID)
}
