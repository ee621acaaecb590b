// crypto/address/address.go

// Operator addresses for validator identification
// Features:
// - 20-byte 0x-prefixed addresses derived from ML-DSA operator keys
// - Blake2b-256 key hashing (last 20 bytes, Ethereum-style)
// - Hex parsing and validation helpers for address-shaped inputs
// - CBOR and JSON codecs for storage and API payloads

package address

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"

	mldsa "github.com/cloudflare/circl/sign/mldsa/mldsa44"
	"github.com/fxamacker/cbor/v2"

	"github.com/stakeguard-labs/go-stakeguard/crypto/hash"
)

const (
	// Address format constants
	AddressPrefix     = "0x"
	AddressLength     = 42 // "0x" + 40 hex characters
	AddressByteLength = 20 // 20 bytes = 40 hex characters
)

// Address represents a 20-byte operator address
type Address [AddressByteLength]byte

// New creates an Address from an ML-DSA public key using Blake2b hash
func New(pubKey *mldsa.PublicKey) (*Address, error) {
	if pubKey == nil {
		return nil, fmt.Errorf("public key cannot be nil")
	}
	return FromPublicKeyBytes(pubKey.Bytes())
}

// FromPublicKeyBytes derives an Address from raw public key bytes.
// Works for any key scheme; the address is the last 20 bytes of the
// Blake2b-256 digest of the key.
func FromPublicKeyBytes(pubKeyBytes []byte) (*Address, error) {
	if len(pubKeyBytes) == 0 {
		return nil, fmt.Errorf("public key bytes cannot be empty")
	}

	hashBytes := hash.NewHash(pubKeyBytes)

	var addr Address
	copy(addr[:], hashBytes[len(hashBytes)-AddressByteLength:])
	return &addr, nil
}

// FromString converts a 0x address string to an Address
func FromString(addr string) (*Address, error) {
	if err := Validate(addr); err != nil {
		return nil, fmt.Errorf("invalid address format: %v", err)
	}

	raw, err := hex.DecodeString(addr[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex in address: %v", err)
	}

	var address Address
	copy(address[:], raw)
	return &address, nil
}

// FromBytes creates an Address from raw bytes
func FromBytes(addressBytes []byte) (*Address, error) {
	if len(addressBytes) != AddressByteLength {
		return nil, fmt.Errorf("address bytes must be exactly %d bytes, got %d",
			AddressByteLength, len(addressBytes))
	}

	var address Address
	copy(address[:], addressBytes)
	return &address, nil
}

// Validate checks if a string is a valid 0x address
func Validate(addr string) error {
	if len(addr) != AddressLength {
		return fmt.Errorf("address must be exactly %d characters long, got %d",
			AddressLength, len(addr))
	}

	if !strings.HasPrefix(addr, AddressPrefix) {
		return fmt.Errorf("address must start with '%s', got '%s'", AddressPrefix, addr[:2])
	}

	for i, char := range addr[2:] {
		if !isHexChar(char) {
			return fmt.Errorf("address contains invalid hex character '%c' at position %d", char, i+2)
		}
	}

	return nil
}

// IsValid is a convenience function for address validation
func IsValid(addr string) bool {
	return Validate(addr) == nil
}

func isHexChar(char rune) bool {
	return (char >= '0' && char <= '9') ||
		(char >= 'a' && char <= 'f') ||
		(char >= 'A' && char <= 'F')
}

// Bytes returns the raw 20-byte address
func (a *Address) Bytes() []byte {
	if a == nil {
		return nil
	}
	return a[:]
}

// String returns the 0x-prefixed hex string representation
func (a *Address) String() string {
	if a == nil {
		return "0x0000000000000000000000000000000000000000"
	}
	return fmt.Sprintf("%s%x", AddressPrefix, a[:])
}

// IsZero checks if the address is all zeros
func (a *Address) IsZero() bool {
	if a == nil {
		return true
	}
	for _, b := range a {
		if b != 0 {
			return false
		}
	}
	return true
}

// Equal checks if two addresses are identical
func (a *Address) Equal(other *Address) bool {
	if a == nil && other == nil {
		return true
	}
	if a == nil || other == nil {
		return false
	}
	return bytes.Equal(a[:], other[:])
}

// Marshal encodes the Address using CBOR
func (a *Address) Marshal() ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("cannot marshal nil address")
	}
	return cbor.Marshal(a[:])
}

// Unmarshal decodes CBOR data into the Address
func (a *Address) Unmarshal(data []byte) error {
	if a == nil {
		return fmt.Errorf("cannot unmarshal into nil address")
	}

	var slice []byte
	if err := cbor.Unmarshal(data, &slice); err != nil {
		return fmt.Errorf("failed to unmarshal CBOR data: %v", err)
	}

	if len(slice) != AddressByteLength {
		return fmt.Errorf("unmarshaled data has incorrect length: expected %d, got %d",
			AddressByteLength, len(slice))
	}

	copy(a[:], slice)
	return nil
}

// MarshalJSON implements json.Marshaler interface
func (a *Address) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf(`"%s"`, a.String())), nil
}

// UnmarshalJSON implements json.Unmarshaler interface
func (a *Address) UnmarshalJSON(data []byte) error {
	if len(data) < 2 {
		return fmt.Errorf("invalid JSON data for address")
	}

	addrStr := string(data[1 : len(data)-1])

	addr, err := FromString(addrStr)
	if err != nil {
		return fmt.Errorf("failed to parse address from JSON: %v", err)
	}

	copy(a[:], addr[:])
	return nil
}
