package session

import (
	"bufio"
	"net"
	"time"

	"github.com/gosuda/passage/internal/cipher"
)

// frameConn wraps the accepted TCP connection with an optional cipher
// stream, installed partway through Login (spec.md §4.10 step 5: "All
// subsequent bytes in both directions are encrypted"). Reads go through a
// *bufio.Reader so proxy-protocol detection and packet framing can share
// one buffered view of the socket without double-buffering.
type frameConn struct {
	conn   net.Conn
	br     *bufio.Reader
	stream *cipher.Stream
}

// newFrameConn wraps conn for framing. br, if non-nil, is a buffered
// reader that may already have consumed a proxy-protocol preamble; when
// nil, a fresh buffered reader over conn is created.
func newFrameConn(conn net.Conn, br *bufio.Reader) *frameConn {
	if br == nil {
		br = bufio.NewReaderSize(conn, 4096)
	}
	return &frameConn{conn: conn, br: br}
}

// installCipher switches both directions to AES-128-CFB8 from this point
// forward; it must only be called once, immediately after the Encryption
// Response is verified (spec.md §4.3, §4.10 step 5).
func (c *frameConn) installCipher(stream *cipher.Stream) {
	c.stream = stream
}

func (c *frameConn) ReadByte() (byte, error) {
	b, err := c.br.ReadByte()
	if err != nil {
		return 0, err
	}
	if c.stream != nil {
		buf := [1]byte{b}
		c.stream.DecryptInPlace(buf[:])
		b = buf[0]
	}
	return b, nil
}

func (c *frameConn) Read(p []byte) (int, error) {
	n, err := c.br.Read(p)
	if n > 0 && c.stream != nil {
		c.stream.DecryptInPlace(p[:n])
	}
	return n, err
}

func (c *frameConn) Write(p []byte) (int, error) {
	if c.stream == nil {
		return c.conn.Write(p)
	}
	buf := make([]byte, len(p))
	copy(buf, p)
	c.stream.EncryptInPlace(buf)
	return c.conn.Write(buf)
}

func (c *frameConn) SetDeadline(t time.Time) error { return c.conn.SetDeadline(t) }

func (c *frameConn) Close() error { return c.conn.Close() }

func (c *frameConn) RemoteAddr() net.Addr { return c.conn.RemoteAddr() }
