package core

import (
	"net"
	"sync"
)

// WorkQueue is an unbounded FIFO of accepted connections waiting for a
// worker. Push never blocks beyond lock contention; Pop blocks until an item
// is available.
type WorkQueue struct {
	mu    sync.Mutex
	ready *sync.Cond
	items []net.Conn
	size  int
}

func NewWorkQueue() *WorkQueue {
	q := &WorkQueue{}
	q.ready = sync.NewCond(&q.mu)
	return q
}

// Reset drops all pending items. It must not race with an in-flight Pop.
func (q *WorkQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = nil
	q.size = 0
}

// Push appends conn and wakes one waiting consumer.
func (q *WorkQueue) Push(conn net.Conn) {
	q.mu.Lock()
	q.items = append(q.items, conn)
	q.size++
	q.mu.Unlock()
	q.ready.Signal()
}

// Pop removes and returns the oldest item, blocking while the queue is empty.
func (q *WorkQueue) Pop() net.Conn {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.size == 0 {
		q.ready.Wait()
	}

	conn := q.items[0]
	q.items[0] = nil
	q.items = q.items[1:]
	q.size--
	return conn
}

// Len reports the number of pending items.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}
