// Package randutil provides cryptographically secure randomness for the
// per-login verify token. The RSA key pair in internal/rsakeys reads
// crypto/rand directly and does not go through this package. Adapted from the teacher's
// randpool package (gosuda-portal/portal/utils/randpool), which fills
// caller buffers from crypto/rand and panics on a broken entropy source
// rather than silently returning zeroed bytes.
package randutil

import (
	"crypto/rand"
	"fmt"
	"io"
)

// Fill overwrites dst with cryptographically secure random bytes.
func Fill(dst []byte) {
	if len(dst) == 0 {
		return
	}
	if _, err := io.ReadFull(rand.Reader, dst); err != nil {
		panic(fmt.Errorf("randutil: failed to read crypto randomness: %w", err))
	}
}

// VerifyToken returns a fresh token of n bytes (spec.md: 4-32 bytes).
func VerifyToken(n int) []byte {
	if n < 4 {
		n = 4
	}
	if n > 32 {
		n = 32
	}
	b := make([]byte, n)
	Fill(b)
	return b
}
