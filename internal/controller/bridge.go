package controller

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sirius3/lednode/internal/events"
)

// Result is the completion handle for a unit of work submitted to the
// Bridge. It resolves exactly once with the unit's error (nil on
// success).
type Result struct {
	ch chan error
}

func newResult() *Result {
	return &Result{ch: make(chan error, 1)}
}

func (r *Result) resolve(err error) {
	r.ch <- err
}

// Done returns a channel that receives the unit's outcome once.
func (r *Result) Done() <-chan error {
	return r.ch
}

// Wait blocks until the unit completes or the timeout expires. On
// timeout it returns ErrTimeout; the unit itself keeps running on the
// bridge worker.
func (r *Result) Wait(timeout time.Duration) error {
	select {
	case err := <-r.ch:
		return err
	case <-time.After(timeout):
		return ErrTimeout
	}
}

type unit struct {
	fn  func(context.Context) error
	res *Result
}

// Bridge owns the single goroutine on which every transport operation
// executes. Callers submit deferred operations from any goroutine and
// get a Result back immediately; units run one at a time, in submission
// order. Concurrency within a unit (the fan-out case) is the unit's own
// business.
type Bridge struct {
	units  *fifo[unit]
	stop   chan struct{}
	done   chan struct{}
	logger *slog.Logger
	bus    *events.Bus
}

// NewBridge creates a bridge. Start must be called before Execute
// resolves anything.
func NewBridge(logger *slog.Logger, bus *events.Bus) *Bridge {
	return &Bridge{
		units:  newFIFO[unit](),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
		bus:    bus,
	}
}

// Start launches the bridge worker.
func (b *Bridge) Start() {
	go b.run()
}

// Execute queues a unit of work and returns its completion handle. It
// never blocks beyond queue insertion.
func (b *Bridge) Execute(fn func(context.Context) error) *Result {
	res := newResult()
	select {
	case <-b.stop:
		res.resolve(ErrStopped)
		return res
	default:
	}
	b.units.push(unit{fn: fn, res: res})
	return res
}

// Stop signals the worker to exit and waits for it with a bounded join.
// Units still queued after the join window are abandoned.
func (b *Bridge) Stop() {
	close(b.stop)
	select {
	case <-b.done:
	case <-time.After(2 * time.Second):
		b.logger.Warn("bridge worker did not exit within join window")
	}
}

func (b *Bridge) run() {
	defer close(b.done)
	for {
		select {
		case <-b.stop:
			return
		default:
		}

		u, ok := b.units.pop(100 * time.Millisecond)
		if !ok {
			continue
		}
		u.res.resolve(b.runUnit(u))
	}
}

// runUnit executes one unit, converting panics into errors so a single
// bad unit cannot take the worker down.
func (b *Bridge) runUnit(u unit) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unit of work panicked: %v", r)
			b.logger.Error("recovered panic in bridge unit", "panic", r)
			b.bus.Publish(events.FatalErrorEvent{Message: err.Error(), Timestamp: events.Now()})
		}
	}()
	return u.fn(context.Background())
}
