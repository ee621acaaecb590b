// channel/channel.go

// Encrypted validator group messaging
// Features:
// - AES-256-GCM authenticated encryption with a versioned format tag
// - Ed25519 signing and verification of posted ciphertexts
// - Decryption fails loudly on missing or malformed framing

package channel

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/stakeguard-labs/go-stakeguard/crypto"
)

// CiphertextPrefix tags the wire format so malformed input is
// distinguishable from a wrong key.
const CiphertextPrefix = "sgv1:"

// KeySize is the AES-256 key length
const KeySize = 32

var (
	ErrMalformedCiphertext = errors.New("malformed ciphertext: missing or invalid format tag")
	ErrInvalidKeySize      = fmt.Errorf("channel key must be exactly %d bytes", KeySize)
)

// SecureChannel encrypts and decrypts group messages under a shared
// symmetric key
type SecureChannel struct {
	aead cipher.AEAD
}

// NewSecureChannel creates a channel from a 32-byte shared key
func NewSecureChannel(key []byte) (*SecureChannel, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM: %w", err)
	}

	return &SecureChannel{aead: aead}, nil
}

// Encrypt seals plaintext with a random nonce and returns the tagged
// base64 ciphertext
func (c *SecureChannel) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return CiphertextPrefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a tagged ciphertext. Input without the format tag or
// with broken framing fails with ErrMalformedCiphertext; an
// authentication failure surfaces as its own error.
func (c *SecureChannel) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, CiphertextPrefix) {
		return "", ErrMalformedCiphertext
	}

	sealed, err := base64.StdEncoding.DecodeString(ciphertext[len(CiphertextPrefix):])
	if err != nil {
		return "", ErrMalformedCiphertext
	}

	nonceSize := c.aead.NonceSize()
	if len(sealed) < nonceSize+c.aead.Overhead() {
		return "", ErrMalformedCiphertext
	}

	plaintext, err := c.aead.Open(nil, sealed[:nonceSize], sealed[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	return string(plaintext), nil
}

// Sign produces a detached signature over the message
func Sign(message string, identity crypto.PrivateKey) (crypto.Signature, error) {
	if identity == nil {
		return nil, errors.New("signing identity cannot be nil")
	}
	sig := identity.Sign([]byte(message))
	if sig == nil {
		return nil, errors.New("signing failed")
	}
	return sig, nil
}

// Verify checks a detached signature against the claimed identity
func Verify(message string, sig crypto.Signature, claimed crypto.PublicKey) bool {
	if sig == nil || claimed == nil {
		return false
	}
	return claimed.Verify([]byte(message), sig) == nil
}
