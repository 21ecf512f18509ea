package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/passage/internal/adapter/status"
	"github.com/gosuda/passage/internal/cookie"
	"github.com/gosuda/passage/internal/errorsink"
	"github.com/gosuda/passage/internal/localization"
	"github.com/gosuda/passage/internal/metrics"
	"github.com/gosuda/passage/internal/protocol"
	"github.com/gosuda/passage/internal/ratelimit"
	"github.com/gosuda/passage/internal/rsakeys"
	"github.com/gosuda/passage/internal/session"
)

func testDeps(t *testing.T) *session.Deps {
	t.Helper()
	keyPair, err := rsakeys.Generate()
	require.NoError(t, err)

	return &session.Deps{
		KeyPair:      keyPair,
		CookieSigner: cookie.NewSigner([]byte("test-secret"), time.Hour),
		Localization: localization.New(nil, ""),
		Status: status.NewFixed(status.Output{
			Version:    status.Version{Name: "Passage", Protocol: 769},
			Players:    status.Players{Online: 3, Max: 20},
			MinVersion: 0,
			MaxVersion: 1000,
		}),
		Metrics:      metrics.New(),
		ErrorSink:    errorsink.Noop{},
		Logger:       zerolog.Nop(),
		Timeout:      2 * time.Second,
		MaxFrameSize: protocol.DefaultMaxFrameSize,
	}
}

func writeStatusHandshake(t *testing.T, conn net.Conn) {
	t.Helper()
	w := protocol.AcquireWriter()
	defer w.Release()
	require.NoError(t, (protocol.Handshake{
		ProtocolVersion: 769,
		ServerAddress:   "play.example.com",
		ServerPort:      25565,
		NextState:       protocol.NextStateStatus,
	}).Encode(w))
	require.NoError(t, protocol.WritePacketFrame(conn, protocol.IDHandshake, w.Bytes()))
}

func TestServerRespondsToStatusRequest(t *testing.T) {
	deps := testDeps(t)
	limiter := ratelimit.New(ratelimit.Config{Enabled: false})

	srv := New(Config{Addr: "127.0.0.1:0", ShutdownGrace: time.Second}, deps, limiter, zerolog.Nop())
	require.NoError(t, srv.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	addr := srv.listener.Addr().String()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	writeStatusHandshake(t, conn)

	w := protocol.AcquireWriter()
	require.NoError(t, protocol.WritePacketFrame(conn, protocol.IDStatusRequest, w.Bytes()))
	w.Release()

	br := protocol.BufferedByteReader(conn)
	frame, err := protocol.ReadPacketFrame(br, protocol.DefaultMaxFrameSize)
	require.NoError(t, err)
	require.Equal(t, protocol.IDStatusResponse, frame.PacketID)

	resp, err := protocol.DecodeStatusResponse(protocol.NewReader(frame.Payload))
	require.NoError(t, err)
	require.Contains(t, resp.JSON, "Passage")
}

func TestServerRejectsRateLimitedConnection(t *testing.T) {
	deps := testDeps(t)
	limiter := ratelimit.New(ratelimit.Config{Enabled: true, Duration: time.Minute, Size: 0})

	srv := New(Config{Addr: "127.0.0.1:0", ShutdownGrace: time.Second}, deps, limiter, zerolog.Nop())
	require.NoError(t, srv.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Stop(ctx)
	}()

	addr := srv.listener.Addr().String()
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(time.Second))
	buf := make([]byte, 1)
	_, err = conn.Read(buf)
	require.Error(t, err, "rate-limited connection must be closed without any protocol response")
}
