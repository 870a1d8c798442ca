// Package httpwire reads HTTP/1.0 style requests from a connection and writes
// responses to it one piece at a time: status line, headers, then raw body
// bytes.
package httpwire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/http"
)

var ErrBadRequest = errors.New("httpwire: bad request")

// Request is the parsed request line plus headers. Path is the decoded URL
// path exactly as the client sent it; no cleaning is applied.
type Request struct {
	Method string
	Path   string
	Proto  string
	Header http.Header
}

// ReadRequest parses one request head from r. The body, if any, is left
// unread.
func ReadRequest(r io.Reader) (*Request, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	req, err := http.ReadRequest(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	return &Request{
		Method: req.Method,
		Path:   req.URL.Path,
		Proto:  req.Proto,
		Header: req.Header,
	}, nil
}
