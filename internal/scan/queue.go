package scan

import "sync"

// codeQueue is a thread-safe FIFO of decoded codes between the camera's
// decode callback and the session's drain goroutine.
//
// The queue is unbounded so the decode callback never blocks the camera's
// capture loop. The signal channel lets the drain loop wait with select
// alongside context cancellation.
type codeQueue struct {
	mu     sync.Mutex
	codes  []string
	closed bool
	signal chan struct{} // buffered, size 1
}

func newCodeQueue() *codeQueue {
	return &codeQueue{
		codes:  make([]string, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a code to the back of the queue.
// Returns false if the queue is closed.
func (q *codeQueue) Enqueue(code string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.codes = append(q.codes, code)

	// Non-blocking; the size-1 buffer coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front code without blocking.
func (q *codeQueue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.codes) == 0 {
		return "", false
	}
	code := q.codes[0]
	if len(q.codes) == 1 {
		q.codes = q.codes[:0]
	} else {
		q.codes = q.codes[1:]
	}
	return code, true
}

// Drained reports whether the queue is closed and empty.
func (q *codeQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.codes) == 0
}

// Wait returns a channel that signals when codes may be available.
// It is closed once the queue is closed.
func (q *codeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *codeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.codes)
}

// Close stops further enqueues and wakes the drain loop.
func (q *codeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
