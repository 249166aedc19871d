package controller

import "time"

// Future resolves once with a boolean outcome. Returned by the
// connection-management operations so callers can fire and forget or
// wait with a bound.
type Future struct {
	ch chan bool
}

func newFuture() *Future {
	return &Future{ch: make(chan bool, 1)}
}

func (f *Future) resolve(ok bool) {
	f.ch <- ok
}

// Done returns a channel that receives the outcome once.
func (f *Future) Done() <-chan bool {
	return f.ch
}

// Wait blocks until the operation completes or the timeout expires.
func (f *Future) Wait(timeout time.Duration) (bool, error) {
	select {
	case ok := <-f.ch:
		return ok, nil
	case <-time.After(timeout):
		return false, ErrTimeout
	}
}
