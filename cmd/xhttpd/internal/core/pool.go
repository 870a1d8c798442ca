package core

import (
	"net"
	"runtime/debug"

	"github.com/hasirciogluhq/xhttpd/cmd/xhttpd/internal/logger"
)

// StartWorkers spawns n long-lived workers. Each one pops a connection,
// hands it to handler and closes it afterwards, forever.
func StartWorkers(n int, queue *WorkQueue, handler ConnectionHandler) {
	for i := 0; i < n; i++ {
		go worker(i, queue, handler)
	}
}

func worker(id int, queue *WorkQueue, handler ConnectionHandler) {
	logger.Debug("Worker started", "worker", id)
	for {
		conn := queue.Pop()
		serveConn(handler, conn, "worker", id)
	}
}

// serveConn runs the handler and closes the connection afterwards. A panic
// in the handler is logged and never escapes to the worker or acceptor.
func serveConn(handler ConnectionHandler, conn net.Conn, args ...any) {
	defer conn.Close()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Handler panicked",
				append(append(args, ConnLogArgs(conn)...), "panic", r, "stack", string(debug.Stack()))...)
		}
	}()

	handler.HandleConnection(conn)
}
