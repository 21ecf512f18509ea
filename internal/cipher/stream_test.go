package cipher

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStreamSymmetry(t *testing.T) {
	secret := make([]byte, 16)
	_, err := rand.Read(secret)
	require.NoError(t, err)

	enc, err := New(secret)
	require.NoError(t, err)
	dec, err := New(secret)
	require.NoError(t, err)

	for _, size := range []int{0, 1, 15, 16, 17, 1000, 65536} {
		plaintext := make([]byte, size)
		_, err := rand.Read(plaintext)
		require.NoError(t, err)

		buf := make([]byte, size)
		copy(buf, plaintext)
		enc.EncryptInPlace(buf)
		dec.DecryptInPlace(buf)
		require.Equal(t, plaintext, buf, "size=%d", size)
	}
}

func TestNewRejectsBadSecretLength(t *testing.T) {
	_, err := New(make([]byte, 15))
	require.ErrorIs(t, err, ErrBadSecretLength)
}
