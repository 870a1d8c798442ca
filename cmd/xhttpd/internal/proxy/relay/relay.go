package relay

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/httpwire"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"
)

const (
	chunkSize      = 4096
	resolveTimeout = 5 * time.Second
)

// Proxy relays every accepted connection to the upstream returned by
// Resolver. Bytes are forwarded untouched in both directions.
type Proxy struct {
	Resolver core.UpstreamResolver
	Dialer   net.Dialer
}

// HandleConnection implements core.ConnectionHandler.
// It takes full ownership of the connection lifecycle.
func (p *Proxy) HandleConnection(clientConn net.Conn) {
	defer clientConn.Close()

	log := logger.With(core.ConnLogArgs(clientConn)...)

	upstreamConn, upstreamAddr, err := p.connect()
	if err != nil {
		log.Error("Upstream unavailable", "error", err)
		p.sendBadGateway(clientConn, log)
		return
	}
	defer upstreamConn.Close()

	log = log.With("upstream_addr", upstreamAddr)
	log.Debug("Relaying connection")

	var wg sync.WaitGroup
	var sent, received int64
	wg.Add(2)

	go func() {
		defer wg.Done()
		sent = pipe(upstreamConn, clientConn)
	}()

	go func() {
		defer wg.Done()
		received = pipe(clientConn, upstreamConn)
	}()

	wg.Wait()
	log.Info("Relay finished", "bytes_to_upstream", sent, "bytes_to_client", received)
}

func (p *Proxy) connect() (net.Conn, string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), resolveTimeout)
	defer cancel()

	addr, err := p.Resolver.Resolve(ctx)
	if err != nil {
		return nil, "", err
	}

	conn, err := p.Dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, addr, err
	}
	return core.NewConn(conn), addr, nil
}

// sendBadGateway consumes one request so the client sees a normal exchange,
// then answers 502.
func (p *Proxy) sendBadGateway(conn net.Conn, log *slog.Logger) {
	if _, err := httpwire.ReadRequest(conn); err != nil {
		log.Debug("Discarded request was malformed", "error", err)
	}
	if err := httpwire.NewResponseWriter(conn).SendError(http.StatusBadGateway); err != nil {
		log.Debug("Failed to send 502 response", "error", err)
	}
}

// pipe copies src to dst in fixed-size chunks until src ends or either side
// fails. It then closes the reading side of src and the writing side of dst,
// so the peer on the far side sees end-of-stream as well. Full closes happen
// in HandleConnection once both directions are done.
func pipe(dst, src net.Conn) int64 {
	defer closeWrite(dst)
	defer closeRead(src)

	buf := make([]byte, chunkSize)
	var total int64
	for {
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total
			}
			total += int64(n)
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) && !errors.Is(rerr, net.ErrClosed) {
				logger.Debug("Relay read ended", "error", rerr)
			}
			return total
		}
	}
}

func closeRead(conn net.Conn) {
	if cr, ok := conn.(interface{ CloseRead() error }); ok {
		_ = cr.CloseRead()
		return
	}
	_ = conn.Close()
}

func closeWrite(conn net.Conn) {
	if cw, ok := conn.(interface{ CloseWrite() error }); ok {
		_ = cw.CloseWrite()
	}
}

var _ core.ConnectionHandler = (*Proxy)(nil)
