// Package device defines the two LED peripherals and the line protocol
// spoken to them.
package device

// ID identifies one of the two addressable LED peripherals.
type ID string

const (
	Left  ID = "LEFT"
	Right ID = "RIGHT"
)

// All returns the closed set of peripheral identifiers.
func All() []ID {
	return []ID{Left, Right}
}

// Valid reports whether id names a known peripheral.
func (id ID) Valid() bool {
	return id == Left || id == Right
}

// Opposite returns the other side of the pair.
func (id ID) Opposite() ID {
	if id == Left {
		return Right
	}
	return Left
}

// RGB is an 8-bit-per-channel color.
type RGB struct {
	R uint8 `json:"r" toml:"r"`
	G uint8 `json:"g" toml:"g"`
	B uint8 `json:"b" toml:"b"`
}

// NearOff is written whenever a peripheral should go dark. The firmware
// treats exact black (0,0,0) as a special value, so "off" is expressed
// as the darkest visible color instead.
var NearOff = RGB{R: 1, G: 1, B: 1}

// Built-in colors used as animation defaults.
var (
	Amber = RGB{R: 255, G: 191, B: 0}
	Red   = RGB{R: 255, G: 0, B: 0}
	White = RGB{R: 255, G: 255, B: 255}
	Blue  = RGB{R: 0, G: 0, B: 255}
)

// Settings is the user-facing device configuration applied via
// ApplySettings: either automatic hue cycling or a fixed color.
type Settings struct {
	Auto  bool
	Color RGB
	Hue   uint8
}
