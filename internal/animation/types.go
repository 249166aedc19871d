// Package animation runs the LED choreographies: turn signals, lane
// changes, hazard and courtesy flashes, the emergency strobe, and the
// forward/reverse breathing patterns. One session runs at a time; a new
// start preempts the old session and waits for it to wind down.
package animation

import (
	"errors"
	"time"

	"github.com/sirius3/lednode/internal/device"
)

// Type identifies a choreography. The set is closed; anything else is
// rejected with ErrUnknownType.
type Type string

const (
	LeftTurn        Type = "left_turn"
	RightTurn       Type = "right_turn"
	LaneChangeLeft  Type = "lane_change_left"
	LaneChangeRight Type = "lane_change_right"
	Hazard          Type = "hazard"
	ThankYou        Type = "thank_you"
	Emergency       Type = "emergency"
	Forward         Type = "forward"
	Reverse         Type = "reverse"
)

// ErrUnknownType is returned by Start for a type outside the closed set.
// The running session, if any, is left untouched.
var ErrUnknownType = errors.New("unknown animation type")

// All returns every known choreography type.
func All() []Type {
	return []Type{
		LeftTurn, RightTurn,
		LaneChangeLeft, LaneChangeRight,
		Hazard, ThankYou,
		Emergency,
		Forward, Reverse,
	}
}

// Valid reports whether t is in the closed set.
func (t Type) Valid() bool {
	switch t {
	case LeftTurn, RightTurn, LaneChangeLeft, LaneChangeRight,
		Hazard, ThankYou, Emergency, Forward, Reverse:
		return true
	}
	return false
}

// Palette holds the color assigned to each choreography family. Loaded
// from colors.toml and hot-reloadable.
type Palette struct {
	Turn      device.RGB `toml:"turn" json:"turn"`
	Hazard    device.RGB `toml:"hazard" json:"hazard"`
	Emergency device.RGB `toml:"emergency" json:"emergency"`
	Forward   device.RGB `toml:"forward" json:"forward"`
	Reverse   device.RGB `toml:"reverse" json:"reverse"`
}

// DefaultPalette returns the stock color assignments.
func DefaultPalette() Palette {
	return Palette{
		Turn:      device.Amber,
		Hazard:    device.Amber,
		Emergency: device.Red,
		Forward:   device.Blue,
		Reverse:   device.White,
	}
}

func (p Palette) colorFor(t Type) device.RGB {
	switch t {
	case LeftTurn, RightTurn, LaneChangeLeft, LaneChangeRight:
		return p.Turn
	case Hazard, ThankYou:
		return p.Hazard
	case Emergency:
		return p.Emergency
	case Forward:
		return p.Forward
	default:
		return p.Reverse
	}
}

// Options overrides the per-type timing defaults. Zero fields keep the
// defaults.
type Options struct {
	Cycles     int           `json:"cycles,omitempty"`
	Interval   time.Duration `json:"interval,omitempty"`
	Transition time.Duration `json:"transition,omitempty"`
}

// params is the fully resolved timing for one session. cycles == 0 means
// run until stopped.
type params struct {
	cycles     int
	interval   time.Duration
	transition time.Duration
}

func defaultsFor(t Type) params {
	switch t {
	case LeftTurn, RightTurn, Hazard:
		return params{cycles: 6, interval: 500 * time.Millisecond, transition: 300 * time.Millisecond}
	case LaneChangeLeft, LaneChangeRight, ThankYou:
		return params{cycles: 3, interval: 500 * time.Millisecond, transition: 300 * time.Millisecond}
	case Emergency:
		// The strobe fades in half the hold time to keep the flash crisp.
		return params{cycles: 12, interval: 250 * time.Millisecond, transition: 125 * time.Millisecond}
	default:
		// Forward and Reverse are a single fade-in/fade-out, no cycling.
		return params{interval: 800 * time.Millisecond, transition: 300 * time.Millisecond}
	}
}

func resolve(t Type, opts Options) params {
	p := defaultsFor(t)
	if opts.Cycles > 0 {
		p.cycles = opts.Cycles
	}
	if opts.Interval > 0 {
		p.interval = opts.Interval
	}
	if opts.Transition > 0 {
		p.transition = opts.Transition
	}
	return p
}

// signalSide maps a directional choreography to the peripheral that
// blinks.
func signalSide(t Type) device.ID {
	switch t {
	case LeftTurn, LaneChangeLeft:
		return device.Left
	default:
		return device.Right
	}
}
