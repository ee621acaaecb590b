// crypto/hash/hash.go

// Blake2b-256 hashing used for event identifiers, nullifiers and
// message digests. Blake2b is keyed-capable and fast in software;
// all derived identifiers in the system go through this package so
// the hash choice never drifts between call sites.

package hash

import (
	"golang.org/x/crypto/blake2b"
)

// HashSize is the byte length of all digests produced here.
const HashSize = blake2b.Size256

// NewHash returns the Blake2b-256 digest of data.
func NewHash(data []byte) []byte {
	h := blake2b.Sum256(data)
	return h[:]
}

// NewHashParts hashes a sequence of length-prefixed parts. The length
// prefix prevents ambiguity between ("ab","c") and ("a","bc"), which
// matters for nullifier derivation.
func NewHashParts(parts ...[]byte) []byte {
	h, _ := blake2b.New256(nil)
	var lenBuf [8]byte
	for _, part := range parts {
		n := uint64(len(part))
		for i := 0; i < 8; i++ {
			lenBuf[i] = byte(n >> (8 * i))
		}
		h.Write(lenBuf[:])
		h.Write(part)
	}
	return h.Sum(nil)
}
