package core

import (
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Conn is an accepted connection handle. Whichever component owns it last
// closes it; the underlying socket is released exactly once no matter how
// many times Close is called.
type Conn struct {
	net.Conn

	id       string
	once     sync.Once
	closed   atomic.Bool
	closeErr error
}

// NewConn wraps an accepted connection and assigns it a fresh ID.
func NewConn(c net.Conn) *Conn {
	return &Conn{Conn: c, id: uuid.NewString()}
}

// ID returns the connection identifier used in log lines.
func (c *Conn) ID() string {
	return c.id
}

func (c *Conn) Close() error {
	c.once.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.Conn.Close()
	})
	return c.closeErr
}

// Closed reports whether Close has been called.
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// CloseWrite shuts down the sending side when the transport supports it
// and is a no-op otherwise.
func (c *Conn) CloseWrite() error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	if cw, ok := c.Conn.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}

// CloseRead shuts down the receiving side. Transports without half-close
// support are closed outright.
func (c *Conn) CloseRead() error {
	if c.closed.Load() {
		return net.ErrClosed
	}
	if cr, ok := c.Conn.(interface{ CloseRead() error }); ok {
		return cr.CloseRead()
	}
	return c.Close()
}

// ReadFrom hands r to the socket's own ReadFrom, which uses sendfile(2)
// for *os.File sources on TCP connections.
func (c *Conn) ReadFrom(r io.Reader) (int64, error) {
	if rf, ok := c.Conn.(io.ReaderFrom); ok {
		return rf.ReadFrom(r)
	}
	return io.Copy(c.Conn, r)
}

// connID returns the ID of a tracked connection, or "" for a bare net.Conn.
func connID(conn net.Conn) string {
	if c, ok := conn.(*Conn); ok {
		return c.id
	}
	return ""
}

// ConnLogArgs returns the attributes handlers attach to per-connection logs.
func ConnLogArgs(conn net.Conn) []any {
	args := []any{"remote_addr", conn.RemoteAddr()}
	if id := connID(conn); id != "" {
		args = append(args, "conn_id", id)
	}
	return args
}
