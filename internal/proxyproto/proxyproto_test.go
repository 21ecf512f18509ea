package proxyproto

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseV1(t *testing.T) {
	line := "PROXY TCP4 203.0.113.9 198.51.100.1 54321 25565\r\n"
	r := bufio.NewReader(bytes.NewBufferString(line + "rest"))
	res, err := Detect(r)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "203.0.113.9:54321", res.Source.String())

	rest, _ := r.ReadString(0)
	require.Equal(t, "rest", rest)
}

func TestParseV2(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(v2Signature[:])
	buf.WriteByte(0x21) // version 2, command PROXY
	buf.WriteByte(0x11) // AF_INET, STREAM
	buf.Write([]byte{0x00, 0x0C})
	buf.Write([]byte{203, 0, 113, 9})   // src ip
	buf.Write([]byte{198, 51, 100, 1})  // dst ip
	buf.Write([]byte{0xD4, 0x31})       // src port 54321
	buf.Write([]byte{0x63, 0xDD})       // dst port 25565
	buf.WriteString("rest")

	r := bufio.NewReader(&buf)
	res, err := Detect(r)
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, "203.0.113.9:54321", res.Source.String())

	rest := make([]byte, 4)
	_, err = r.Read(rest)
	require.NoError(t, err)
	require.Equal(t, "rest", string(rest))
}

func TestDetectNoPreamble(t *testing.T) {
	r := bufio.NewReader(bytes.NewBuffer([]byte{0x10, 0x00, 0x01}))
	res, err := Detect(r)
	require.NoError(t, err)
	require.Nil(t, res)
}

func TestParseV1Malformed(t *testing.T) {
	r := bufio.NewReader(bytes.NewBufferString("PROXY TCP4 bad-ip x y z\r\n"))
	_, err := Detect(r)
	require.Error(t, err)
}
