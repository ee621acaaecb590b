// publicKey.go
package crypto

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
)

type publicKey struct {
	pubKey ed25519.PublicKey
}

var _ PublicKey = (*publicKey)(nil) // Interface assertion

func NewPublicKey(key ed25519.PublicKey) PublicKey {
	if len(key) == 0 {
		return nil
	}
	// Make a copy to ensure immutability
	keyCopy := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(keyCopy, key)
	return &publicKey{pubKey: keyCopy}
}

func NewPublicKeyFromBytes(keyData []byte) (PublicKey, error) {
	pub := &publicKey{}
	err := pub.Unmarshal(keyData)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal public key data: %w", err)
	}
	if len(pub.pubKey) == 0 {
		return nil, errors.New("unmarshaling resulted in a nil or empty underlying key")
	}
	return pub, nil
}

func (p *publicKey) Bytes() []byte {
	if len(p.pubKey) == 0 {
		return nil
	}
	// Return a copy to ensure immutability
	result := make([]byte, len(p.pubKey))
	copy(result, p.pubKey)
	return result
}

// String returns a hex-encoded representation.
func (p *publicKey) String() string {
	if len(p.pubKey) == 0 {
		return "PubKey(nil)"
	}
	return fmt.Sprintf("PubKeyHex:%x", p.Bytes())
}

// Verify checks the signature against the message using the public key.
// Returns nil error on success.
func (p *publicKey) Verify(data []byte, sig Signature) error {
	if sig == nil {
		return errors.New("signature cannot be nil")
	}
	if len(p.pubKey) == 0 {
		return errors.New("cannot verify with nil or empty public key")
	}

	sigBytes := sig.Bytes()
	if len(sigBytes) != ed25519.SignatureSize {
		return fmt.Errorf("invalid signature size: got %d, want %d", len(sigBytes), ed25519.SignatureSize)
	}

	if !ed25519.Verify(p.pubKey, data, sigBytes) {
		return errors.New("invalid signature: ed25519 verification failed")
	}
	return nil
}

func (p *publicKey) Marshal() ([]byte, error) {
	if len(p.pubKey) == 0 {
		return nil, errors.New("cannot marshal nil or empty public key")
	}
	return p.Bytes(), nil
}

func (p *publicKey) Unmarshal(data []byte) error {
	if len(data) == 0 {
		return errors.New("input key data is empty")
	}
	if len(data) != ed25519.PublicKeySize {
		return fmt.Errorf("invalid public key size: got %d, want %d", len(data), ed25519.PublicKeySize)
	}

	p.pubKey = make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(p.pubKey, data)
	return nil
}

func (p *publicKey) Equal(other PublicKey) bool {
	if other == nil {
		return len(p.pubKey) == 0
	}
	return bytes.Equal(p.Bytes(), other.Bytes())
}
