package controller

import (
	"testing"
	"time"
)

func TestFIFOOrder(t *testing.T) {
	q := newFIFO[int]()
	for i := 1; i <= 3; i++ {
		q.push(i)
	}
	for want := 1; want <= 3; want++ {
		got, ok := q.pop(time.Second)
		if !ok || got != want {
			t.Fatalf("pop = %d, %v; want %d, true", got, ok, want)
		}
	}
	if q.len() != 0 {
		t.Fatalf("len = %d after draining", q.len())
	}
}

func TestFIFOPopTimeout(t *testing.T) {
	q := newFIFO[string]()
	start := time.Now()
	_, ok := q.pop(50 * time.Millisecond)
	if ok {
		t.Fatal("pop on empty queue returned an item")
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("pop returned after %v, expected it to wait out the timeout", elapsed)
	}
}

func TestFIFOPushWakesWaiter(t *testing.T) {
	q := newFIFO[string]()
	done := make(chan string, 1)
	go func() {
		v, ok := q.pop(2 * time.Second)
		if !ok {
			done <- ""
			return
		}
		done <- v
	}()

	time.Sleep(20 * time.Millisecond)
	q.push("hello")

	select {
	case v := <-done:
		if v != "hello" {
			t.Fatalf("pop = %q, want %q", v, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter was not woken by push")
	}
}
