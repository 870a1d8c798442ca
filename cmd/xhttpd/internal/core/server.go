package core

import (
	"errors"
	"net"
	"sync/atomic"
	"time"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Server owns the listening socket, the work queue and the worker pool.
// It depends only on ConnectionHandler, not on concrete handlers.
type Server struct {
	Listener          net.Listener
	ConnectionHandler ConnectionHandler

	// Workers is the pool size. Zero means every connection is handled
	// synchronously on the accept loop.
	Workers int

	// Queue is created by Serve when nil.
	Queue *WorkQueue

	running atomic.Bool
}

// Serve accepts connections until the listener is closed, then returns nil.
// Other accept errors are logged and the loop keeps going.
func (s *Server) Serve() error {
	if s.Queue == nil {
		s.Queue = NewWorkQueue()
	}
	if s.Workers > 0 {
		StartWorkers(s.Workers, s.Queue, s.ConnectionHandler)
	}

	s.running.Store(true)
	defer s.running.Store(false)

	var backoff time.Duration
	for {
		conn, err := s.Listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				logger.Info("Listener closed, accept loop stopped")
				return nil
			}

			if backoff == 0 {
				backoff = minAcceptBackoff
			} else if backoff *= 2; backoff > maxAcceptBackoff {
				backoff = maxAcceptBackoff
			}
			logger.Error("Accept failed", "error", err, "retry_in", backoff)
			time.Sleep(backoff)
			continue
		}
		backoff = 0

		s.dispatch(NewConn(conn))
	}
}

func (s *Server) dispatch(conn *Conn) {
	logger.Debug("Accepted connection", "remote_addr", conn.RemoteAddr(), "conn_id", conn.ID())

	if s.Workers == 0 {
		serveConn(s.ConnectionHandler, conn, "worker", "inline")
		return
	}
	s.Queue.Push(conn)
}

// Running reports whether the accept loop is active.
func (s *Server) Running() bool {
	return s.running.Load()
}

// Pending returns the number of connections waiting for a worker.
func (s *Server) Pending() int {
	if s.Queue == nil {
		return 0
	}
	return s.Queue.Len()
}
