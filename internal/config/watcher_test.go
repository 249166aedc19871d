package config

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func watcherLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWatcherDeliversReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.toml")
	if err := os.WriteFile(path, []byte("[colors]\nturn = \"255,191,0\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	loads := make(chan string, 4)
	w := NewWatcher(path, func(p string) (string, error) {
		data, err := os.ReadFile(p)
		return string(data), err
	}, watcherLogger(), WithDebounce[string](50*time.Millisecond))
	w.OnReload(func(content string) { loads <- content })

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	updated := "[colors]\nturn = \"1,2,3\"\n"
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-loads:
		if got != updated {
			t.Fatalf("handler got %q, want the fresh file content", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("handler never called after file write")
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := NewWatcher(path, func(p string) (string, error) {
		return "", nil
	}, watcherLogger(), WithDebounce[string](100*time.Millisecond))
	w.OnReload(func(string) { calls.Add(1) })

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte("burst"), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	time.Sleep(400 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("handler called %d times for one burst, want 1", n)
	}
}

func TestWatcherErrorHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	loadErr := errors.New("bad palette")
	errs := make(chan error, 1)
	w := NewWatcher(path, func(p string) (string, error) {
		return "", loadErr
	}, watcherLogger(),
		WithDebounce[string](50*time.Millisecond),
		WithErrorHandler[string](func(err error) { errs <- err }))
	w.OnReload(func(string) { t.Error("handler called despite load error") })

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-errs:
		if !errors.Is(err, loadErr) {
			t.Fatalf("error handler got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("error handler never called")
	}
}

func TestWatcherUnsubscribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "colors.toml")
	if err := os.WriteFile(path, []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}

	var calls atomic.Int32
	w := NewWatcher(path, func(p string) (string, error) {
		return "", nil
	}, watcherLogger(), WithDebounce[string](50*time.Millisecond))
	unsub := w.OnReload(func(string) { calls.Add(1) })
	unsub()

	if err := w.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	time.Sleep(300 * time.Millisecond)
	if calls.Load() != 0 {
		t.Fatal("unsubscribed handler was called")
	}
}
