package relay

import (
	"bufio"
	"context"
	"errors"
	"io"
	"math/rand"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/core"
	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/discovery/memory"
)

type failingResolver struct{}

func (failingResolver) Resolve(ctx context.Context) (string, error) {
	return "", errors.New("no such host")
}

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	return ln
}

// tcpPair returns both ends of a loopback TCP connection; the first one is
// the accepted side, wrapped the way the acceptor wraps it.
func tcpPair(t *testing.T) (*core.Conn, *net.TCPConn) {
	t.Helper()
	ln := listen(t)

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			accepted <- conn
		}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case server := <-accepted:
		return core.NewConn(server), client.(*net.TCPConn)
	case <-time.After(2 * time.Second):
		t.Fatal("accept timed out")
		return nil, nil
	}
}

func newProxy(t *testing.T, upstreamAddr string) *Proxy {
	t.Helper()
	resolver, err := memory.NewResolver(upstreamAddr)
	require.NoError(t, err)
	return &Proxy{Resolver: resolver}
}

func startHandler(p *Proxy, conn net.Conn) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.HandleConnection(conn)
	}()
	return done
}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("handler did not return after both relay directions ended")
	}
}

func payload(seed int64, size int) []byte {
	b := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(b)
	return b
}

func TestRelayCopiesBothDirections(t *testing.T) {
	upstreamLn := listen(t)
	serverSide, client := tcpPair(t)

	toUpstream := payload(1, 64*1024)
	toClient := payload(2, 48*1024+17)

	upstreamGot := make(chan []byte, 1)
	go func() {
		up, err := upstreamLn.Accept()
		if err != nil {
			return
		}
		defer up.Close()
		buf := make([]byte, len(toUpstream))
		if _, err := io.ReadFull(up, buf); err != nil {
			return
		}
		upstreamGot <- buf
		up.Write(toClient)
	}()

	done := startHandler(newProxy(t, upstreamLn.Addr().String()), serverSide)

	_, err := client.Write(toUpstream)
	require.NoError(t, err)

	// The upstream closing its side must surface as EOF at the client.
	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	got, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Equal(t, toClient, got)

	select {
	case b := <-upstreamGot:
		assert.Equal(t, toUpstream, b)
	case <-time.After(time.Second):
		t.Fatal("upstream did not receive the client payload")
	}

	require.NoError(t, client.Close())
	waitDone(t, done)
	assert.True(t, serverSide.Closed())
}

func TestRelayPropagatesClientEOF(t *testing.T) {
	upstreamLn := listen(t)
	serverSide, client := tcpPair(t)

	toUpstream := payload(3, 10000)

	upstreamGot := make(chan []byte, 1)
	go func() {
		up, err := upstreamLn.Accept()
		if err != nil {
			return
		}
		defer up.Close()
		up.SetReadDeadline(time.Now().Add(3 * time.Second))
		b, _ := io.ReadAll(up)
		upstreamGot <- b
	}()

	done := startHandler(newProxy(t, upstreamLn.Addr().String()), serverSide)

	_, err := client.Write(toUpstream)
	require.NoError(t, err)
	require.NoError(t, client.CloseWrite())

	select {
	case b := <-upstreamGot:
		assert.Equal(t, toUpstream, b)
	case <-time.After(3 * time.Second):
		t.Fatal("upstream never saw end-of-stream")
	}

	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	rest, err := io.ReadAll(client)
	require.NoError(t, err)
	assert.Empty(t, rest)

	waitDone(t, done)
}

func TestBadGatewayWhenUpstreamRefuses(t *testing.T) {
	closed := listen(t)
	addr := closed.Addr().String()
	require.NoError(t, closed.Close())

	serverSide, client := tcpPair(t)
	done := startHandler(newProxy(t, addr), serverSide)

	_, err := client.Write([]byte("GET / HTTP/1.0\r\nHost: localhost\r\n\r\n"))
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(client), nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, "text/html", resp.Header.Get("Content-Type"))
	assert.Equal(t, "<center><h1>502 Bad Gateway</h1><hr></center>", string(body))

	waitDone(t, done)
	assert.True(t, serverSide.Closed())
}

func TestBadGatewayWhenResolveFails(t *testing.T) {
	serverSide, client := tcpPair(t)
	done := startHandler(&Proxy{Resolver: failingResolver{}}, serverSide)

	_, err := client.Write([]byte("GET /x HTTP/1.0\r\n\r\n"))
	require.NoError(t, err)

	client.SetReadDeadline(time.Now().Add(3 * time.Second))
	resp, err := http.ReadResponse(bufio.NewReader(client), nil)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	waitDone(t, done)
}
