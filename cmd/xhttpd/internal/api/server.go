package api

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"
)

// ServerStatus is the view of the connection server the endpoints report.
type ServerStatus interface {
	Running() bool
	Pending() int
}

type HealthServer struct {
	server  *http.Server
	addr    net.Addr
	status  ServerStatus
	mode    core.Mode
	workers int
}

func NewHealthServer(addr string, status ServerStatus, mode core.Mode, workers int) *HealthServer {
	mux := http.NewServeMux()
	hs := &HealthServer{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		status:  status,
		mode:    mode,
		workers: workers,
	}

	mux.HandleFunc("/health", hs.handleHealth)
	mux.HandleFunc("/ready", hs.handleReady)
	mux.HandleFunc("/stats", hs.handleStats)

	return hs
}

// Handler exposes the endpoint mux, mainly for tests.
func (s *HealthServer) Handler() http.Handler {
	return s.server.Handler
}

// Start binds the listening socket and serves in the background.
func (s *HealthServer) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("health server: %w", err)
	}
	s.addr = ln.Addr()

	go func() {
		logger.Info("Health server listening", "addr", s.addr.String())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server error", "error", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (s *HealthServer) Addr() net.Addr {
	return s.addr
}

func (s *HealthServer) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *HealthServer) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.status.Running() {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready"))
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("not ready"))
	}
}

func (s *HealthServer) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "mode=%s workers=%d pending=%d\n", s.mode, s.workers, s.status.Pending())
}
