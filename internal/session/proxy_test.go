package session

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/passage/internal/adapter"
	"github.com/gosuda/passage/internal/adapter/discovery"
	"github.com/gosuda/passage/internal/adapter/strategy"
	"github.com/gosuda/passage/internal/auth"
	"github.com/gosuda/passage/internal/protocol"
)

// TestProxyRecoveredAddressPropagatesToIdentityProviderAndCookie covers the
// wiring from Handle's proxyRecovered/peerAddr parameters (spec.md §4.6,
// §8 scenario 6) through to the identity-provider "ip" query parameter and
// the reissued authentication cookie's ClientAddr — proxy-protocol preamble
// parsing itself is covered separately in internal/proxyproto.
func TestProxyRecoveredAddressPropagatesToIdentityProviderAndCookie(t *testing.T) {
	serverConn, clientConn := net.Pipe()
	defer clientConn.Close()

	playerUUID := uuid.New()
	var rawUUID [16]byte
	copy(rawUUID[:], playerUUID[:])

	var gotIP string
	identity := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotIP = r.URL.Query().Get("ip")
		_, _ = w.Write([]byte(`{"id":"` + hexUUID(rawUUID) + `","name":"Alex","properties":[]}`))
	}))
	defer identity.Close()

	target := adapter.Target{ID: "lobby-3", Host: "backend3.example.com", Port: 25568}

	deps := testSessionDeps(t)
	deps.AuthClient = &auth.Client{BaseURL: identity.URL, HTTPClient: identity.Client(), MaxRetries: 0}
	deps.Discovery = discovery.NewFixed([]adapter.Target{target})
	deps.Strategy = strategy.Any{}

	const recoveredPeer = "198.51.100.55:12345"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	go Handle(ctx, deps, serverConn, recoveredPeer, true, nil)

	client := newFakeClient(t, clientConn)

	client.send(protocol.IDHandshake, func(w *protocol.Writer) error {
		return protocol.Handshake{
			ProtocolVersion: 769,
			ServerAddress:   "play.example.com",
			ServerPort:      25565,
			NextState:       protocol.NextStateLogin,
		}.Encode(w)
	})
	client.send(protocol.IDLoginStart, func(w *protocol.Writer) error {
		return protocol.LoginStart{Name: "Alex", PlayerUUID: rawUUID}.Encode(w)
	})
	client.answerCookieRequest(protocol.CookieAuthentication, protocol.IDLoginCookieResponse, false, nil)
	client.performEncryption()
	client.readExpect(protocol.IDLoginSuccess)
	client.sendEmpty(protocol.IDLoginAcknowledged)

	client.send(protocol.IDClientInformation, func(w *protocol.Writer) error {
		return protocol.ClientInformation{Locale: "en_US"}.Encode(w)
	})
	client.answerCookieRequest(protocol.CookieSession, protocol.IDConfigCookieResponse, false, nil)

	authCookieFrame := client.readExpect(protocol.IDConfigStoreCookie)
	authStore, err := protocol.DecodeStoreCookie(protocol.NewReader(authCookieFrame.Payload))
	require.NoError(t, err)
	client.readExpect(protocol.IDConfigStoreCookie)
	client.readExpect(protocol.IDTransfer)

	require.Equal(t, "198.51.100.55", gotIP, "the proxy-recovered address must reach the identity provider's ip= parameter")

	sealed, err := deps.CookieSigner.Verify(authStore.Payload, recoveredPeer, time.Now())
	require.NoError(t, err)
	require.Equal(t, recoveredPeer, sealed.ClientAddr, "the reissued cookie must bind to the proxy-recovered address")
}

func hexUUID(id [16]byte) string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 32)
	for i, b := range id {
		out[2*i] = hexdigits[b>>4]
		out[2*i+1] = hexdigits[b&0x0f]
	}
	return string(out)
}
