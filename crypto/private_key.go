// privateKey.go
package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

// --- Exported PrivateKey Implementation Struct ---
type PrivateKeyImpl struct {
	// Ed25519 private key (64 bytes: 32 bytes seed + 32 bytes public key)
	PrivKey ed25519.PrivateKey
}

var _ PrivateKey = (*PrivateKeyImpl)(nil)

// --- Functions ---

func NewPrivateKey() (PrivateKey, error) {
	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	// Make a copy to ensure immutability
	privKeyCopy := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(privKeyCopy, privKey)

	return &PrivateKeyImpl{
		PrivKey: privKeyCopy,
	}, nil
}

// NewPrivateKeyFromSeed derives a key deterministically from a 32-byte seed.
// Used for reporter identities so the same seed always maps to the same
// nullifier secret.
func NewPrivateKeyFromSeed(seed []byte) (PrivateKey, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("invalid seed size: got %d, want %d", len(seed), ed25519.SeedSize)
	}
	return &PrivateKeyImpl{
		PrivKey: ed25519.NewKeyFromSeed(seed),
	}, nil
}

func NewPrivateKeyFromBytes(keyData []byte) (PrivateKey, error) {
	priv := &PrivateKeyImpl{}
	err := priv.Unmarshal(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal private key data: %w", err)
	}
	if len(priv.PrivKey) == 0 {
		return nil, errors.New("unmarshaling resulted in a nil or empty underlying key")
	}
	return priv, nil
}

// --- Methods ---

func (p *PrivateKeyImpl) Bytes() []byte {
	if len(p.PrivKey) == 0 {
		return nil
	}
	// Return a copy to ensure immutability
	result := make([]byte, len(p.PrivKey))
	copy(result, p.PrivKey)
	return result
}

func (p *PrivateKeyImpl) String() string {
	if len(p.PrivKey) == 0 {
		return "PrivateKey(nil)"
	}
	return fmt.Sprintf("PrivateKey(len:%d)", len(p.PrivKey))
}

func (p *PrivateKeyImpl) Sign(data []byte) Signature {
	if len(p.PrivKey) == 0 {
		return nil
	}
	return NewSignature(ed25519.Sign(p.PrivKey, data))
}

func (p *PrivateKeyImpl) PublicKey() PublicKey {
	if len(p.PrivKey) == 0 {
		return nil
	}

	// Ed25519 private key contains the public key
	pubKey := p.PrivKey.Public().(ed25519.PublicKey)

	pubKeyCopy := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pubKeyCopy, pubKey)

	return &publicKey{pubKey: pubKeyCopy}
}

func (p *PrivateKeyImpl) Marshal() ([]byte, error) {
	if len(p.PrivKey) == 0 {
		return nil, errors.New("cannot marshal nil or empty private key")
	}
	return p.Bytes(), nil
}

// Unmarshal populates the private key from its raw binary representation.
func (p *PrivateKeyImpl) Unmarshal(data []byte) error {
	if len(data) == 0 {
		return errors.New("input key data is empty")
	}
	if len(data) != ed25519.PrivateKeySize {
		return fmt.Errorf("invalid private key size: got %d, want %d", len(data), ed25519.PrivateKeySize)
	}

	p.PrivKey = make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(p.PrivKey, data)
	return nil
}

func (p *PrivateKeyImpl) Equal(other PrivateKey) bool {
	if other == nil {
		return len(p.PrivKey) == 0
	}
	return bytes.Equal(p.Bytes(), other.Bytes())
}
