package wirekeep

import "sync"

// sendQueue buffers outbound payloads, in insertion order, until the
// transport can take them. The queue is unbounded.
type sendQueue struct {
	mu    sync.Mutex
	items []any
}

// enqueue appends payload to the tail.
func (q *sendQueue) enqueue(payload any) {
	q.mu.Lock()
	q.items = append(q.items, payload)
	q.mu.Unlock()
}

// drain invokes send for every queued payload in FIFO order and empties
// the queue. A failed send does not halt the drain; the flush is best
// effort. Returns the number of payloads handed to send.
func (q *sendQueue) drain(send func(payload any) error) int {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.mu.Unlock()

	for _, payload := range items {
		_ = send(payload)
	}
	return len(items)
}

// len returns the number of queued payloads.
func (q *sendQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// clear discards every queued payload.
func (q *sendQueue) clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}
