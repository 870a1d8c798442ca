package memory

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is used when the upstream target names no port.
const DefaultPort = 80

// Resolver always returns the same fixed upstream. Name resolution of the
// host is left to the dialer.
type Resolver struct {
	host string
	port int
}

// NewResolver parses a "host[:port]" target.
// Example: "example.com", "127.0.0.1:9000"
func NewResolver(target string) (*Resolver, error) {
	host, port, err := SplitTarget(target)
	if err != nil {
		return nil, err
	}
	if port == 0 {
		port = DefaultPort
	}
	return &Resolver{host: host, port: port}, nil
}

func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	return net.JoinHostPort(r.host, strconv.Itoa(r.port)), nil
}

// SplitTarget splits "host[:port]". A missing port is reported as 0.
func SplitTarget(target string) (string, int, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return "", 0, fmt.Errorf("empty upstream target")
	}

	host, portStr, err := net.SplitHostPort(target)
	if err != nil {
		// No port given; a bare host (or bracketed IPv6 literal) is fine.
		if strings.Contains(strings.Trim(target, "[]"), ":") && !strings.HasPrefix(target, "[") {
			return "", 0, fmt.Errorf("invalid upstream target %q: %w", target, err)
		}
		return strings.Trim(target, "[]"), 0, nil
	}
	if host == "" {
		return "", 0, fmt.Errorf("invalid upstream target %q: missing host", target)
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return "", 0, fmt.Errorf("invalid upstream port %q", portStr)
	}
	return host, port, nil
}
