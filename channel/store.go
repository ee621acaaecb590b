// channel/store.go

// Append-only encrypted message store
// Features:
// - Insertion-ordered, index-addressable message sequence
// - Posted → Revealed is the only transition; reveal is exactly-once
// - Optional durable persistence through the storage layer

package channel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	logging "github.com/ipfs/go-log/v2"

	"github.com/stakeguard-labs/go-stakeguard/storage"
)

var log = logging.Logger("channel")

// Expected rejections on the reveal path
var (
	ErrInvalidIndex    = errors.New("message index out of range")
	ErrAlreadyRevealed = errors.New("message already revealed")
)

// EncryptedMessage is one posted group message. Created in
// ciphertext-only state; transitions at most once to Revealed with
// plaintext populated, never back.
type EncryptedMessage struct {
	SenderID   string `json:"sender_id" cbor:"1,keyasint"`
	Ciphertext string `json:"ciphertext" cbor:"2,keyasint"`
	Signature  []byte `json:"signature" cbor:"3,keyasint"`
	PostedAt   int64  `json:"posted_at" cbor:"4,keyasint"`
	Revealed   bool   `json:"revealed" cbor:"5,keyasint"`
	Plaintext  string `json:"plaintext,omitempty" cbor:"6,keyasint,omitempty"`
}

// Store holds the append-only message sequence. store may be nil for
// in-memory operation; with storage attached every post and reveal is
// persisted under its index key.
type Store struct {
	mu       sync.RWMutex
	messages []*EncryptedMessage
	store    storage.Storage
}

// NewStore creates a message store. Pass nil for in-memory only.
func NewStore(store storage.Storage) *Store {
	return &Store{store: store}
}

// LoadFromStorage restores persisted messages in index order. Called
// once at startup before the store is shared.
func (s *Store) LoadFromStorage() error {
	if s.store == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; ; i++ {
		data, err := s.store.Get(storage.MessageKey(i))
		if err == storage.ErrKeyNotFound {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to load message %d: %w", i, err)
		}

		var msg EncryptedMessage
		if err := cbor.Unmarshal(data, &msg); err != nil {
			return fmt.Errorf("failed to decode message %d: %w", i, err)
		}
		s.messages = append(s.messages, &msg)
	}

	if len(s.messages) > 0 {
		log.Infow("restored messages from storage", "count", len(s.messages))
	}
	return nil
}

// PostMessage appends a ciphertext-only message and returns its index
func (s *Store) PostMessage(senderID, ciphertext string, signature []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := &EncryptedMessage{
		SenderID:   senderID,
		Ciphertext: ciphertext,
		Signature:  signature,
		PostedAt:   time.Now().Unix(),
	}

	index := len(s.messages)
	if err := s.persist(index, msg); err != nil {
		return 0, err
	}

	s.messages = append(s.messages, msg)
	return index, nil
}

// RevealMessage transitions a message to Revealed exactly once.
// A second reveal on the same index fails with ErrAlreadyRevealed; an
// out-of-range index fails with ErrInvalidIndex.
func (s *Store) RevealMessage(index int, plaintext string) (*EncryptedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.messages) {
		return nil, ErrInvalidIndex
	}

	msg := s.messages[index]
	if msg.Revealed {
		return nil, ErrAlreadyRevealed
	}

	revealed := *msg
	revealed.Revealed = true
	revealed.Plaintext = plaintext

	if err := s.persist(index, &revealed); err != nil {
		return nil, err
	}

	s.messages[index] = &revealed

	msgCopy := revealed
	return &msgCopy, nil
}

// GetMessages returns copies of all messages in insertion order
func (s *Store) GetMessages() []EncryptedMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]EncryptedMessage, len(s.messages))
	for i, msg := range s.messages {
		out[i] = *msg
	}
	return out
}

// GetMessage returns a copy of one message by index
func (s *Store) GetMessage(index int) (*EncryptedMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.messages) {
		return nil, ErrInvalidIndex
	}

	msgCopy := *s.messages[index]
	return &msgCopy, nil
}

// Count returns the number of posted messages
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// persist writes the message under its index key when storage is
// attached. Called with the write lock held.
func (s *Store) persist(index int, msg *EncryptedMessage) error {
	if s.store == nil {
		return nil
	}

	data, err := cbor.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	if err := s.store.Set(storage.MessageKey(index), data); err != nil {
		return fmt.Errorf("failed to persist message: %w", err)
	}
	return nil
}
