// Package logging provides structured logging with per-module log levels.
//
// Loggers are obtained by module name and write to stdout (text or json),
// to the systemd journal when running under journald, and into an
// in-memory ring buffer served over the HTTP API. Module levels can be
// overridden individually via configuration:
//
//	[logging]
//	level = "info"
//
//	[logging.modules]
//	dispatch = "debug"
//	transport = "warn"
package logging

import (
	"log/slog"
	"os"
	"strings"
	"sync"
)

const defaultBufferSize = 1000

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`
}

var (
	mu             sync.RWMutex
	moduleLoggers  = make(map[string]*slog.Logger)
	moduleLevels   = make(map[string]*slog.LevelVar)
	globalConfig   Config
	globalLevelVar = &slog.LevelVar{}
	initialized    bool
	logBuffer      = NewRingBuffer(defaultBufferSize)
)

// Initialize sets up the logging system. Loggers created before
// Initialize are recreated so they pick up configured levels and the
// full handler chain.
func Initialize(config Config) {
	mu.Lock()
	defer mu.Unlock()

	globalConfig = config
	initialized = true

	globalLevel := parseLevel(config.Level, slog.LevelInfo)
	globalLevelVar.Set(globalLevel)

	for module, levelVar := range moduleLevels {
		moduleLevel := globalLevel
		if s, ok := config.Modules[module]; ok {
			moduleLevel = parseLevel(s, moduleLevel)
		}
		levelVar.Set(moduleLevel)
		moduleLoggers[module] = slog.New(newHandler(config.Format, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(newHandler(config.Format, globalLevelVar)))
}

// GetLogger returns the logger for a module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mu.RLock()
	if logger, ok := moduleLoggers[module]; ok {
		mu.RUnlock()
		return logger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if logger, ok := moduleLoggers[module]; ok {
		return logger
	}

	levelVar := &slog.LevelVar{}
	format := "text"
	level := slog.LevelInfo
	if initialized {
		format = globalConfig.Format
		level = parseLevel(globalConfig.Level, slog.LevelInfo)
		if s, ok := globalConfig.Modules[module]; ok {
			level = parseLevel(s, level)
		}
	}
	levelVar.Set(level)

	logger := slog.New(newHandler(format, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevels[module] = levelVar
	return logger
}

// SetModuleLevel changes a module's level at runtime.
func SetModuleLevel(module, level string) {
	mu.Lock()
	defer mu.Unlock()
	if levelVar, ok := moduleLevels[module]; ok {
		levelVar.Set(parseLevel(level, levelVar.Level()))
	}
}

// Buffer returns the ring buffer holding recent log entries.
func Buffer() *RingBuffer {
	return logBuffer
}

// newHandler builds the handler chain for a logger: stdout, journal when
// available, and the ring buffer.
func newHandler(format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	var stdout slog.Handler
	if format == "json" {
		stdout = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		stdout = slog.NewTextHandler(os.Stdout, opts)
	}

	handlers := []slog.Handler{stdout}
	if journalAvailable() {
		handlers = append(handlers, newJournalHandler(level))
	}
	handlers = append(handlers, newBufferHandler(logBuffer, level))

	if len(handlers) == 1 {
		return handlers[0]
	}
	return multiHandler(handlers)
}

// parseLevel converts a level name to a slog.Level, falling back to def
// for unknown names.
func parseLevel(level string, def slog.Level) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return def
	}
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warn"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}
