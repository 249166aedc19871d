package controller

import (
	"sync"
	"time"
)

// fifo is an unbounded thread-safe FIFO with a timed pop. Push never
// blocks; pop waits up to the given timeout for an item to arrive.
type fifo[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{signal: make(chan struct{}, 1)}
}

func (q *fifo[T]) push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()

	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// pop removes the oldest item, waiting up to timeout. The second return
// is false when the timeout expired with the queue still empty.
func (q *fifo[T]) pop(timeout time.Duration) (T, bool) {
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			v := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return v, true
		}
		q.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			var zero T
			return zero, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-q.signal:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func (q *fifo[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
