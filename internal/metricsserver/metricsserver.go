// Package metricsserver runs the optional loopback metrics/health HTTP
// listener both daemons may bind: /metrics (promhttp) and /healthz,
// routed with chi and rate-limited with httprate against local
// overload, mirroring the teacher's api middleware stack scaled down
// to one unauthenticated, loopback-only listener.
package metricsserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/andrewbalitaan/twitchtool/internal/health"
	"github.com/andrewbalitaan/twitchtool/internal/log"
	"github.com/andrewbalitaan/twitchtool/internal/version"
)

// Server is an optional HTTP listener exposing Prometheus metrics and
// a liveness probe. A zero-value Addr disables it.
type Server struct {
	Addr string

	httpServer *http.Server
	listener   net.Listener
}

// Start binds s.Addr and begins serving in the background. It is a
// no-op returning (nil, nil) when Addr is empty. Any checkers passed
// are registered against the readiness route only; the liveness
// route stays a pure process-alive signal regardless.
func Start(addr string, checkers ...health.Checker) (*Server, error) {
	if addr == "" {
		return nil, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	manager := health.NewManager(version.Version)
	for _, c := range checkers {
		manager.RegisterChecker(c)
	}

	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(20, time.Second))
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", manager.ServeHealth)
	r.Get("/readyz", manager.ServeReady)

	httpServer := &http.Server{Handler: r}

	s := &Server{Addr: addr, httpServer: httpServer, listener: ln}

	go func() {
		if err := httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger := log.WithComponent("metricsserver")
			logger.Warn().Err(err).Msg("metrics listener stopped")
		}
	}()

	return s, nil
}

// Stop gracefully shuts the listener down.
func (s *Server) Stop(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
