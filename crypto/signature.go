// signature.go
package crypto

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
)

type signature struct {
	sig []byte
}

var _ Signature = (*signature)(nil) // Interface assertion

// NewSignature wraps raw ed25519 signature bytes. Returns nil if the
// input is not a valid signature length.
func NewSignature(sigBytes []byte) Signature {
	if len(sigBytes) != ed25519.SignatureSize {
		return nil
	}
	// Make a copy to ensure immutability
	sigCopy := make([]byte, ed25519.SignatureSize)
	copy(sigCopy, sigBytes)
	return &signature{sig: sigCopy}
}

func (s *signature) Bytes() []byte {
	if len(s.sig) == 0 {
		return nil
	}
	result := make([]byte, len(s.sig))
	copy(result, s.sig)
	return result
}

func (s *signature) String() string {
	if len(s.sig) == 0 {
		return "Signature(nil)"
	}
	return fmt.Sprintf("SigHex:%x", s.sig)
}

func (s *signature) Equal(other Signature) bool {
	if other == nil {
		return len(s.sig) == 0
	}
	return bytes.Equal(s.Bytes(), other.Bytes())
}
