// Package server owns the TCP listener and per-connection supervision loop
// (spec.md §4.1, §5). Grounded on the teacher's SNI router lifecycle
// (gosuda-portal/portal/sni/router.go Start/Stop/acceptLoop/handleConnection
// and its stopCh+sync.Once+sync.WaitGroup shutdown coordination),
// generalized from SNI-based TCP forwarding to the full entry-point
// protocol handled by the session package.
package server

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/gosuda/passage/internal/proxyproto"
	"github.com/gosuda/passage/internal/ratelimit"
	"github.com/gosuda/passage/internal/session"
)

var ErrServerClosed = errors.New("server: closed")

// Server accepts connections on one TCP address, applies proxy-protocol
// recovery and rate-limit admission ahead of any protocol I/O (invariant
// I5), then hands the connection to session.Handle.
type Server struct {
	addr    string
	deps    *session.Deps
	limiter *ratelimit.Limiter
	logger  zerolog.Logger

	proxyProtocolEnabled bool
	shutdownGrace        time.Duration

	mu       sync.RWMutex
	listener net.Listener

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Config bundles the construction-time knobs a Server needs beyond its
// dependency bundle.
type Config struct {
	Addr                 string
	ProxyProtocolEnabled bool
	ShutdownGrace        time.Duration
}

func New(cfg Config, deps *session.Deps, limiter *ratelimit.Limiter, logger zerolog.Logger) *Server {
	return &Server{
		addr:                 cfg.Addr,
		deps:                 deps,
		limiter:              limiter,
		logger:               logger,
		proxyProtocolEnabled: cfg.ProxyProtocolEnabled,
		shutdownGrace:        cfg.ShutdownGrace,
		stopCh:               make(chan struct{}),
	}
}

// Start opens the listener and begins accepting. It returns once the
// listener is bound; the accept loop runs in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info().Str("addr", listener.Addr().String()).Msg("server listening")

	s.wg.Add(1)
	go s.acceptLoop(listener)

	return nil
}

// Stop closes the listener and waits for in-flight connections to finish on
// their own, for at most the configured grace period (when positive) and
// never past ctx. If every handler goroutine has exited it returns nil;
// otherwise it returns the context error and leaves the remaining
// connections running (each is still bounded by deps.Timeout); Stop does
// not force-close them.
func (s *Server) Stop(ctx context.Context) error {
	if s.shutdownGrace > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.shutdownGrace)
		defer cancel()
	}

	s.stopOnce.Do(func() {
		close(s.stopCh)

		s.mu.Lock()
		if s.listener != nil {
			s.listener.Close()
		}
		s.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("server stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn().Msg("server stop deadline exceeded, abandoning in-flight connections")
		return ctx.Err()
	}
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.stopCh:
				return
			default:
				s.logger.Error().Err(err).Msg("accept error")
				continue
			}
		}

		s.wg.Add(1)
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()

	peerAddr := conn.RemoteAddr().String()
	br := bufio.NewReaderSize(conn, 4096)
	proxyRecovered := false

	if s.proxyProtocolEnabled {
		result, err := proxyproto.Detect(br)
		if err != nil {
			s.logger.Debug().Err(err).Str("remote", peerAddr).Msg("proxy protocol detection failed")
			conn.Close()
			return
		}
		if result != nil {
			peerAddr = result.Source.String()
			proxyRecovered = true
		}
	}

	if !s.limiter.Allow(hostOnly(peerAddr)) {
		s.deps.Metrics.RateLimitedTotal.Inc()
		conn.Close()
		return
	}

	session.Handle(context.Background(), s.deps, conn, peerAddr, proxyRecovered, br)
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
