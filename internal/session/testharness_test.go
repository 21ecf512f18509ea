package session

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/passage/internal/adapter/resourcepack"
	"github.com/gosuda/passage/internal/cipher"
	"github.com/gosuda/passage/internal/cookie"
	"github.com/gosuda/passage/internal/errorsink"
	"github.com/gosuda/passage/internal/localization"
	"github.com/gosuda/passage/internal/metrics"
	"github.com/gosuda/passage/internal/protocol"
	"github.com/gosuda/passage/internal/rsakeys"
)

// testSessionDeps builds a minimal Deps a caller customizes per scenario
// (Discovery, Strategy, AuthClient), mirroring internal/server's testDeps.
func testSessionDeps(t *testing.T) *Deps {
	t.Helper()
	keyPair, err := rsakeys.Generate()
	require.NoError(t, err)

	return &Deps{
		KeyPair:      keyPair,
		CookieSigner: cookie.NewSigner([]byte("session-test-secret"), time.Hour),
		Localization: localization.New(nil, ""),
		ResourcePack: resourcepack.None{},
		Metrics:      metrics.New(),
		ErrorSink:    errorsink.Noop{},
		Logger:       zerolog.Nop(),
		Timeout:      5 * time.Second,
		MaxFrameSize: protocol.DefaultMaxFrameSize,
	}
}

// fakeClient drives the client half of conn over a net.Pipe, reusing the
// package's own frameConn so the cipher-install dance matches the server
// side byte for byte.
type fakeClient struct {
	t  *testing.T
	fc *frameConn
}

func newFakeClient(t *testing.T, conn net.Conn) *fakeClient {
	t.Helper()
	return &fakeClient{t: t, fc: newFrameConn(conn, nil)}
}

func (f *fakeClient) send(packetID int32, encode func(w *protocol.Writer) error) {
	f.t.Helper()
	w := protocol.AcquireWriter()
	defer w.Release()
	require.NoError(f.t, encode(w))
	require.NoError(f.t, protocol.WritePacketFrame(f.fc, packetID, w.Bytes()))
}

func (f *fakeClient) sendEmpty(packetID int32) {
	f.t.Helper()
	require.NoError(f.t, protocol.WritePacketFrame(f.fc, packetID, nil))
}

func (f *fakeClient) read() protocol.Frame {
	f.t.Helper()
	frame, err := protocol.ReadPacketFrame(f.fc, protocol.DefaultMaxFrameSize)
	require.NoError(f.t, err)
	return frame
}

func (f *fakeClient) readExpect(packetID int32) protocol.Frame {
	f.t.Helper()
	frame := f.read()
	require.Equal(f.t, packetID, frame.PacketID)
	return frame
}

// answerCookieRequest reads a pending CookieRequest for expectKey and
// answers it, used for both the Login and Configuration cookie exchanges
// (only the packet IDs differ between the two states).
func (f *fakeClient) answerCookieRequest(expectKey protocol.CookieKey, responseID int32, present bool, payload []byte) {
	f.t.Helper()
	frame := f.read()
	req, err := protocol.DecodeCookieRequest(protocol.NewReader(frame.Payload))
	require.NoError(f.t, err)
	require.Equal(f.t, expectKey, req.Key)
	f.send(responseID, func(w *protocol.Writer) error {
		return protocol.CookieResponse{Key: expectKey, Present: present, Payload: payload}.Encode(w)
	})
}

// performEncryption reads the server's EncryptionRequest, answers with a
// freshly generated shared secret RSA-encrypted under the server's public
// key, and installs a client-side cipher stream symmetric with the
// server's (see internal/cipher's two-independent-Stream test pattern).
func (f *fakeClient) performEncryption() []byte {
	f.t.Helper()
	frame := f.readExpect(protocol.IDEncryptionRequest)
	encReq, err := protocol.DecodeEncryptionRequest(protocol.NewReader(frame.Payload))
	require.NoError(f.t, err)

	pub, err := x509.ParsePKIXPublicKey(encReq.PublicKeyDER)
	require.NoError(f.t, err)
	rsaPub, ok := pub.(*rsa.PublicKey)
	require.True(f.t, ok)

	sharedSecret := make([]byte, 16)
	_, err = rand.Read(sharedSecret)
	require.NoError(f.t, err)

	encSecret, err := rsa.EncryptPKCS1v15(rand.Reader, rsaPub, sharedSecret)
	require.NoError(f.t, err)
	encToken, err := rsa.EncryptPKCS1v15(rand.Reader, rsaPub, encReq.VerifyToken)
	require.NoError(f.t, err)

	f.send(protocol.IDEncryptionResponse, func(w *protocol.Writer) error {
		return protocol.EncryptionResponse{EncryptedSharedSecret: encSecret, EncryptedVerifyToken: encToken}.Encode(w)
	})

	stream, err := cipher.New(sharedSecret)
	require.NoError(f.t, err)
	f.fc.installCipher(stream)
	return sharedSecret
}
