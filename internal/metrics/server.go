package metrics

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is the tiny internal HTTP mux exposing /metrics, mirroring the
// teacher's use of chi as a small internal router (spec.md DOMAIN STACK:
// go-chi/chi/v5).
type Server struct {
	httpServer *http.Server
}

func NewServer(addr string, reg *Registry) *Server {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg.Gatherer(), promhttp.HandlerOpts{}))
	return &Server{httpServer: &http.Server{Addr: addr, Handler: r}}
}

func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
