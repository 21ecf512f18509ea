// Package session drives one accepted connection through the protocol
// state machine (spec.md §4.10): Handshake → Status|Login → Configuration
// → {Transfer|Disconnect}. Grounded on the teacher's per-connection
// handler pattern (gosuda-portal/portal/sni/router.go handleConnection),
// generalized from a single SNI lookup to the full multi-state login
// pipeline.
package session

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/passage/internal/localization"
	"github.com/gosuda/passage/internal/protocol"
)

var ErrUnsupportedNextState = errors.New("session: unsupported next_state")

// Handle drives conn to completion: Transfer, a localized Disconnect, or a
// silent close on error. It never returns an error to the caller — every
// failure is logged and optionally reported through deps.ErrorSink, per
// spec.md §4.10 "Failure policy". peerAddr is the address to attribute to
// the connection: the proxy-protocol-recovered source if Detect matched,
// otherwise conn.RemoteAddr().String(). proxyRecovered records whether that
// recovery happened, since the identity-provider call only forwards an
// `ip=` parameter when it did (spec.md §4.6).
func Handle(ctx context.Context, deps *Deps, conn net.Conn, peerAddr string, proxyRecovered bool, br *bufio.Reader) {
	deadline := time.Now().Add(deps.Timeout)
	conn.SetDeadline(deadline)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	fc := newFrameConn(conn, br)
	defer fc.Close()

	cc := &connContext{clientAddr: peerAddr, proxyRecovered: proxyRecovered, deadline: deadline}
	logger := deps.Logger.With().Str("peer", peerAddr).Logger()

	deps.Metrics.ConnectionsTotal.Inc()
	deps.Metrics.ActiveConnections.Inc()
	defer deps.Metrics.ActiveConnections.Dec()

	start := time.Now()
	defer func() { deps.Metrics.LoginDuration.Observe(time.Since(start).Seconds()) }()

	err := handleConnection(ctx, deps, fc, cc, logger)
	if err == nil {
		return
	}

	if isTimeout(err) {
		sendBestEffortTimeoutDisconnect(deps, fc, cc)
	}

	logger = logger.With().Str("state", cc.nextState.String()).Logger()
	if isRejectedByAdapter(err) {
		logger.Debug().Msg("connection rejected by adapter")
		return
	}
	if errors.Is(err, io.EOF) || isClosedByPeer(err) {
		logger.Debug().Err(err).Msg("connection closed")
		return
	}

	logger.Warn().Err(err).Msg("connection ended with error")
	deps.ErrorSink.Report(ctx, err, map[string]string{
		"peer":  peerAddr,
		"state": cc.nextState.String(),
	})
}

func handleConnection(ctx context.Context, deps *Deps, fc *frameConn, cc *connContext, logger zerolog.Logger) error {
	first, err := fc.br.Peek(1)
	if err != nil {
		return err
	}
	if first[0] == protocol.LegacyPingMagic {
		if _, err := fc.ReadByte(); err != nil {
			return err
		}
		return writeLegacyKick(fc, "Passage")
	}

	hsFrame, err := protocol.ReadPacketFrame(fc, deps.MaxFrameSize)
	if err != nil {
		return fmt.Errorf("session: read handshake: %w", err)
	}
	if hsFrame.PacketID != protocol.IDHandshake {
		return fmt.Errorf("session: unexpected packet id %d in handshake", hsFrame.PacketID)
	}
	hs, err := protocol.DecodeHandshake(protocol.NewReader(hsFrame.Payload))
	if err != nil {
		return fmt.Errorf("session: decode handshake: %w", err)
	}

	cc.protocolVersion = hs.ProtocolVersion
	cc.serverAddress = hs.ServerAddress
	cc.serverPort = hs.ServerPort
	cc.nextState = hs.NextState

	switch hs.NextState {
	case protocol.NextStateStatus:
		return handleStatus(ctx, deps, fc, cc)
	case protocol.NextStateLogin, protocol.NextStateTransfer:
		return handleLogin(ctx, deps, fc, cc, logger)
	default:
		return fmt.Errorf("%w: %d", ErrUnsupportedNextState, hs.NextState)
	}
}

// sendFrame encodes one outbound packet into a pooled Writer and frames it
// onto fc in a single call.
func sendFrame(fc *frameConn, packetID int32, encode func(w *protocol.Writer) error) error {
	w := protocol.AcquireWriter()
	defer w.Release()
	if err := encode(w); err != nil {
		return err
	}
	return protocol.WritePacketFrame(fc, packetID, w.Bytes())
}

func localizedDisconnect(deps *Deps, cc *connContext, key localization.MessageKey, extra map[string]string) string {
	template := deps.Localization.Resolve(cc.locale, key)
	fields := map[string]string{"player": cc.username, "server": cc.serverAddress}
	for k, v := range extra {
		fields[k] = v
	}
	return localization.Render(template, fields)
}

// sendBestEffortTimeoutDisconnect tries to deliver a localized
// disconnect_timeout message on the wire before the connection is torn
// down (spec.md §4.10 "Keep-alive / timeouts"). Errors are ignored: the
// connection is already being abandoned.
func sendBestEffortTimeoutDisconnect(deps *Deps, fc *frameConn, cc *connContext) {
	if cc.nextState != protocol.NextStateLogin && cc.nextState != protocol.NextStateTransfer {
		return
	}
	msg := localizedDisconnect(deps, cc, localization.KeyDisconnectTimeout, nil)
	packetID := protocol.IDLoginDisconnect
	if cc.inConfiguration {
		packetID = protocol.IDConfigDisconnect
	}
	_ = sendFrame(fc, packetID, func(w *protocol.Writer) error {
		return protocol.Disconnect{ReasonJSON: msg}.Encode(w)
	})
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isClosedByPeer(err error) bool {
	return errors.Is(err, net.ErrClosed)
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
