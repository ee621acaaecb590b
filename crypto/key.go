// key.go
package crypto

// Key interfaces for reporter and channel identities.
//
// Reporter keys serve two purposes: signing group messages and acting as
// the secret input for nullifier derivation. The raw key bytes never
// leave the process; only derived values (signatures, nullifiers) are
// shared.

// PrivateKey is a signing key held by a reporter or channel member.
type PrivateKey interface {
	Bytes() []byte
	String() string
	Sign(data []byte) Signature
	PublicKey() PublicKey
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	Equal(other PrivateKey) bool
}

// PublicKey verifies signatures produced by the matching PrivateKey.
type PublicKey interface {
	Bytes() []byte
	String() string
	Verify(data []byte, sig Signature) error
	Marshal() ([]byte, error)
	Unmarshal(data []byte) error
	Equal(other PublicKey) bool
}

// Signature is an opaque detached signature.
type Signature interface {
	Bytes() []byte
	String() string
	Equal(other Signature) bool
}
