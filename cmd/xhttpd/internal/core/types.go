package core

import (
	"context"
	"net"
)

// ConnectionHandler serves exactly one request on an accepted connection.
// It takes ownership of the connection and must close it on every path.
type ConnectionHandler interface {
	HandleConnection(conn net.Conn)
}

// HandlerFunc adapts a plain function to ConnectionHandler.
type HandlerFunc func(conn net.Conn)

func (f HandlerFunc) HandleConnection(conn net.Conn) {
	f(conn)
}

// UpstreamResolver returns the "host:port" address proxied connections are
// relayed to. It is purely a lookup mechanism and never dials.
type UpstreamResolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Mode is the kind of request handler the server runs.
type Mode string

const (
	ModeFiles Mode = "files"
	ModeProxy Mode = "proxy"
)
