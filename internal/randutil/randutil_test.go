package randutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestVerifyTokenBounds(t *testing.T) {
	require.Len(t, VerifyToken(2), 4)
	require.Len(t, VerifyToken(16), 16)
	require.Len(t, VerifyToken(64), 32)
}

func TestFillChangesBuffer(t *testing.T) {
	buf := make([]byte, 32)
	Fill(buf)
	other := make([]byte, 32)
	Fill(other)
	require.NotEqual(t, buf, other)
}
