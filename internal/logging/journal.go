package logging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/coreos/go-systemd/v22/journal"
)

const syslogIdentifier = "lednode"

// journalHandler is a slog.Handler that sends records to the systemd
// journal with structured fields.
type journalHandler struct {
	level slog.Leveler
	attrs []slog.Attr
}

func newJournalHandler(level slog.Leveler) *journalHandler {
	return &journalHandler{level: level}
}

func journalAvailable() bool {
	return journal.Enabled()
}

func (h *journalHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *journalHandler) Handle(_ context.Context, r slog.Record) error {
	priority := journalPriority(r.Level)

	fields := map[string]string{
		"SYSLOG_IDENTIFIER": syslogIdentifier,
	}
	for _, a := range h.attrs {
		addField(fields, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		addField(fields, a)
		return true
	})

	return journal.Send(r.Message, priority, fields)
}

func (h *journalHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &journalHandler{level: h.level, attrs: merged}
}

func (h *journalHandler) WithGroup(name string) slog.Handler {
	// Journal fields are flat; group names are dropped.
	return h
}

func journalPriority(level slog.Level) journal.Priority {
	switch {
	case level >= slog.LevelError:
		return journal.PriErr
	case level >= slog.LevelWarn:
		return journal.PriWarning
	case level >= slog.LevelInfo:
		return journal.PriInfo
	default:
		return journal.PriDebug
	}
}

// addField stores one attribute as an uppercase journal field.
// Journal field names must match [A-Z0-9_].
func addField(fields map[string]string, a slog.Attr) {
	if a.Equal(slog.Attr{}) {
		return
	}
	key := strings.ToUpper(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, a.Key))
	fields[key] = fmt.Sprint(a.Value.Any())
}
