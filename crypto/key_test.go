package crypto

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignAndVerify(t *testing.T) {
	key, err := NewPrivateKey()
	require.NoError(t, err)

	msg := []byte("attestation payload")
	sig := key.Sign(msg)
	require.NotNil(t, sig)

	require.NoError(t, key.PublicKey().Verify(msg, sig))
	require.Error(t, key.PublicKey().Verify([]byte("other payload"), sig))

	other, err := NewPrivateKey()
	require.NoError(t, err)
	require.Error(t, other.PublicKey().Verify(msg, sig))
}

func TestPrivateKeyFromSeedDeterministic(t *testing.T) {
	seed := bytes.Repeat([]byte{0x07}, ed25519.SeedSize)

	k1, err := NewPrivateKeyFromSeed(seed)
	require.NoError(t, err)
	k2, err := NewPrivateKeyFromSeed(seed)
	require.NoError(t, err)

	require.True(t, k1.Equal(k2))
	require.Equal(t, k1.Bytes(), k2.Bytes())

	otherSeed := bytes.Repeat([]byte{0x08}, ed25519.SeedSize)
	k3, err := NewPrivateKeyFromSeed(otherSeed)
	require.NoError(t, err)
	require.False(t, k1.Equal(k3))
}

func TestPrivateKeyFromSeedInvalidSize(t *testing.T) {
	_, err := NewPrivateKeyFromSeed([]byte("too short"))
	require.Error(t, err)
}

func TestPrivateKeyMarshalRoundTrip(t *testing.T) {
	key, err := NewPrivateKey()
	require.NoError(t, err)

	data, err := key.Marshal()
	require.NoError(t, err)

	restored, err := NewPrivateKeyFromBytes(data)
	require.NoError(t, err)
	require.True(t, key.Equal(restored))

	// The restored key signs identically
	msg := []byte("payload")
	require.True(t, key.Sign(msg).Equal(restored.Sign(msg)))
}

func TestPublicKeyRoundTrip(t *testing.T) {
	key, err := NewPrivateKey()
	require.NoError(t, err)
	pub := key.PublicKey()

	restored, err := NewPublicKeyFromBytes(pub.Bytes())
	require.NoError(t, err)
	require.True(t, pub.Equal(restored))
}

func TestBytesReturnsCopy(t *testing.T) {
	key, err := NewPrivateKey()
	require.NoError(t, err)

	raw := key.Bytes()
	raw[0] ^= 0xFF

	require.NotEqual(t, raw[0], key.Bytes()[0])
}

func TestNewSignatureRejectsBadLength(t *testing.T) {
	require.Nil(t, NewSignature([]byte("short")))
	require.Nil(t, NewSignature(nil))
	require.NotNil(t, NewSignature(make([]byte, ed25519.SignatureSize)))
}
