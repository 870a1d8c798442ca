package core

import (
	"context"
	"fmt"
	"net"
	"strconv"
)

// Listen opens the server socket on all interfaces. Address reuse is enabled
// so a restarted server can bind while old connections sit in TIME_WAIT.
func Listen(ctx context.Context, port int) (net.Listener, error) {
	lc := net.ListenConfig{Control: reuseAddrControl}
	ln, err := lc.Listen(ctx, "tcp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return nil, fmt.Errorf("failed to listen on port %d: %w", port, err)
	}
	return ln, nil
}
