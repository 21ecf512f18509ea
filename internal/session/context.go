package session

import (
	"time"

	"github.com/gosuda/passage/internal/adapter"
	"github.com/gosuda/passage/internal/protocol"
)

// connContext accumulates the facts a connection learns as it progresses
// through the state machine (spec.md §4.10). It is owned by exactly one
// goroutine for the connection's lifetime.
type connContext struct {
	clientAddr     string
	proxyRecovered bool

	inConfiguration bool

	protocolVersion int32
	serverAddress   string
	serverPort      uint16
	nextState       protocol.NextState

	locale string

	username string
	userID   [16]byte

	verifyToken []byte

	profile       protocol.Profile
	profileSealed bool // profile came from a short-circuited cookie, not the identity provider

	// cookieExtra carries a verified authentication cookie's Extra extension
	// map forward so reissueCookies can preserve it verbatim on re-seal
	// (spec.md P9). Nil when no cookie was presented or it failed to verify.
	cookieExtra map[string]string

	target *adapter.Target

	deadline time.Time
}

func (c *connContext) clientContext() adapter.ClientContext {
	return adapter.ClientContext{
		ClientAddr:      c.clientAddr,
		ServerAddr:      c.serverAddress,
		ServerPort:      c.serverPort,
		ProtocolVersion: c.protocolVersion,
		Username:        c.username,
		UserID:          c.userID,
	}
}
