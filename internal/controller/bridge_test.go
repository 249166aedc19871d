package controller

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirius3/lednode/internal/events"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBridgeExecutesInOrder(t *testing.T) {
	b := NewBridge(discardLogger(), events.New())
	b.Start()
	defer b.Stop()

	var mu sync.Mutex
	var order []int
	var results []*Result
	for i := 0; i < 5; i++ {
		i := i
		results = append(results, b.Execute(func(ctx context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	for _, res := range results {
		if err := res.Wait(time.Second); err != nil {
			t.Fatalf("unit error: %v", err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for i, got := range order {
		if got != i {
			t.Fatalf("execution order %v, want ascending", order)
		}
	}
}

func TestBridgeWaitTimeout(t *testing.T) {
	b := NewBridge(discardLogger(), events.New())
	b.Start()
	defer b.Stop()

	res := b.Execute(func(ctx context.Context) error {
		time.Sleep(300 * time.Millisecond)
		return nil
	})
	if err := res.Wait(50 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait = %v, want ErrTimeout", err)
	}
}

func TestBridgeRecoversPanic(t *testing.T) {
	b := NewBridge(discardLogger(), events.New())
	b.Start()
	defer b.Stop()

	res := b.Execute(func(ctx context.Context) error {
		panic("boom")
	})
	err := res.Wait(time.Second)
	if err == nil {
		t.Fatal("panicking unit resolved without error")
	}

	// The worker must survive the panic.
	res = b.Execute(func(ctx context.Context) error { return nil })
	if err := res.Wait(time.Second); err != nil {
		t.Fatalf("unit after panic: %v", err)
	}
}

func TestBridgePanicPublishesFatalError(t *testing.T) {
	bus := events.New()
	b := NewBridge(discardLogger(), bus)
	b.Start()
	defer b.Stop()

	got := make(chan events.FatalErrorEvent, 1)
	unsub := bus.Subscribe(func(e events.FatalErrorEvent) {
		select {
		case got <- e:
		default:
		}
	})
	defer unsub()

	res := b.Execute(func(ctx context.Context) error {
		panic("att stack gone")
	})
	if err := res.Wait(time.Second); err == nil {
		t.Fatal("panicking unit resolved without error")
	}

	select {
	case e := <-got:
		if !strings.Contains(e.Message, "att stack gone") {
			t.Fatalf("fatal event message = %q", e.Message)
		}
	case <-time.After(time.Second):
		t.Fatal("no fatal event after recovered panic")
	}
}

func TestBridgeRejectsAfterStop(t *testing.T) {
	b := NewBridge(discardLogger(), events.New())
	b.Start()
	b.Stop()

	res := b.Execute(func(ctx context.Context) error { return nil })
	if err := res.Wait(time.Second); !errors.Is(err, ErrStopped) {
		t.Fatalf("Wait = %v, want ErrStopped", err)
	}
}
