package device

import (
	"fmt"
	"time"
)

// Kind selects the command verb of the peripheral line protocol.
type Kind byte

const (
	// KindMode switches between fixed color (0) and automatic hue cycling (1).
	KindMode Kind = 'M'
	// KindColor sets a fixed RGB color.
	KindColor Kind = 'C'
	// KindHue sets the hue used by automatic cycling.
	KindHue Kind = 'H'
	// KindTransition fades to an RGB color over a duration.
	KindTransition Kind = 'T'
)

// Command is a single serialized instruction destined for one peripheral.
// It is immutable once constructed; the OnComplete callback, when set, is
// invoked exactly once with the outcome of the send.
type Command struct {
	Device     ID
	Kind       Kind
	Mode       bool          // KindMode: true enables automatic hue cycling
	Color      RGB           // KindColor and KindTransition
	Hue        uint8         // KindHue
	Duration   time.Duration // KindTransition fade time
	EnqueuedAt time.Time
	OnComplete func(ok bool)
}

// NewMode builds a mode-switch command.
func NewMode(id ID, auto bool) Command {
	return Command{Device: id, Kind: KindMode, Mode: auto, EnqueuedAt: time.Now()}
}

// NewColor builds a fixed-color command.
func NewColor(id ID, c RGB) Command {
	return Command{Device: id, Kind: KindColor, Color: c, EnqueuedAt: time.Now()}
}

// NewHue builds a hue command.
func NewHue(id ID, hue uint8) Command {
	return Command{Device: id, Kind: KindHue, Hue: hue, EnqueuedAt: time.Now()}
}

// NewTransition builds a timed fade command.
func NewTransition(id ID, c RGB, d time.Duration) Command {
	return Command{Device: id, Kind: KindTransition, Color: c, Duration: d, EnqueuedAt: time.Now()}
}

// Encode renders the command as the ASCII line understood by the
// peripheral firmware, e.g. "C:255,0,0" or "T:0,255,0,1000".
func (c Command) Encode() string {
	switch c.Kind {
	case KindMode:
		if c.Mode {
			return "M:1"
		}
		return "M:0"
	case KindColor:
		return fmt.Sprintf("C:%d,%d,%d", c.Color.R, c.Color.G, c.Color.B)
	case KindHue:
		return fmt.Sprintf("H:%d", c.Hue)
	case KindTransition:
		return fmt.Sprintf("T:%d,%d,%d,%d", c.Color.R, c.Color.G, c.Color.B, c.Duration.Milliseconds())
	default:
		return ""
	}
}

func (c Command) String() string {
	return fmt.Sprintf("%s %s", c.Device, c.Encode())
}

// Complete invokes the completion callback if one was provided.
func (c Command) Complete(ok bool) {
	if c.OnComplete != nil {
		c.OnComplete(ok)
	}
}
