package auth

import (
	"crypto/sha1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func sha1sum(s string) []byte {
	h := sha1.Sum([]byte(s))
	return h[:]
}

func TestFormatSignedHexKnownVectors(t *testing.T) {
	// Notch's well-known test vectors for the Minecraft join-hash formula.
	require.Equal(t, "4ed1f46bbe04bc756bcb17c0c7ce3e4632f06a48", formatSignedHex(sha1sum("Notch")))
	require.Equal(t, "-7c9d5b0044c130109a5d7b5fb5c317c02b4e28c1", formatSignedHex(sha1sum("jeb_")))
	require.Equal(t, "88e16a1019277b15d58faf0541e11910eb756f6", formatSignedHex(sha1sum("simon")))
}

func TestFormatSignedHexLeadingZeroNoPadding(t *testing.T) {
	// A digest whose magnitude begins with a zero nibble must not be
	// zero-padded back out to the full byte width.
	small := big.NewInt(0x0F)
	digest := make([]byte, 20)
	small.FillBytes(digest)
	require.Equal(t, "f", formatSignedHex(digest))
}
