package logging

import (
	"context"
	"log/slog"
	"testing"
	"time"
)

func resetState() {
	mu.Lock()
	moduleLoggers = make(map[string]*slog.Logger)
	moduleLevels = make(map[string]*slog.LevelVar)
	initialized = false
	logBuffer = NewRingBuffer(defaultBufferSize)
	mu.Unlock()
}

func TestModuleLevelOverride(t *testing.T) {
	resetState()

	Initialize(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"dispatch":  "debug",
			"transport": "warn",
		},
	})

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"dispatch", true, true, true},
		{"transport", false, false, true},
		{"animation", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestGetLoggerBeforeInitialize(t *testing.T) {
	resetState()

	early := GetLogger("dispatch")
	if early == nil {
		t.Fatal("GetLogger returned nil before Initialize")
	}
	if !early.Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("pre-init logger should default to info level")
	}

	// Initialize must retune the already-created logger.
	Initialize(Config{Level: "info", Modules: map[string]string{"dispatch": "error"}})
	if GetLogger("dispatch").Handler().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("dispatch logger should be at error level after Initialize")
	}
}

func TestSetModuleLevel(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info"})

	logger := GetLogger("api")
	if logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("api logger unexpectedly at debug")
	}
	SetModuleLevel("api", "debug")
	if !logger.Handler().Enabled(context.Background(), slog.LevelDebug) {
		t.Error("SetModuleLevel did not lower the level")
	}
}

func TestRingBuffer(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Write(LogEntry{Timestamp: time.Now(), Message: string(rune('a' + i))})
	}
	if rb.Count() != 3 {
		t.Fatalf("Count() = %d, want 3", rb.Count())
	}
	got := rb.ReadAll()
	if len(got) != 3 {
		t.Fatalf("ReadAll() returned %d entries, want 3", len(got))
	}
	// Oldest two entries were overwritten.
	if got[0].Message != "c" || got[2].Message != "e" {
		t.Errorf("ReadAll() order = [%s %s %s], want [c d e]", got[0].Message, got[1].Message, got[2].Message)
	}
}

func TestBufferHandlerCapturesEntries(t *testing.T) {
	resetState()
	Initialize(Config{Level: "info", Format: "text"})

	GetLogger("dispatch").Info("command sent", "device", "LEFT")

	entries := Buffer().ReadAll()
	if len(entries) == 0 {
		t.Fatal("ring buffer is empty after logging")
	}
	last := entries[len(entries)-1]
	if last.Module != "dispatch" {
		t.Errorf("entry module = %q, want dispatch", last.Module)
	}
	if last.Message != "command sent" {
		t.Errorf("entry message = %q", last.Message)
	}
	if last.Attributes["device"] != "LEFT" {
		t.Errorf("entry attributes = %v, want device=LEFT", last.Attributes)
	}
}
