package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/sirius3/lednode/internal/animation"
	"github.com/sirius3/lednode/internal/device"
)

// LoadColors reads the animation color table. Colors use the same
// "r,g,b" triplet form as the wire protocol:
//
//	[colors]
//	turn = "255,191,0"
//	emergency = "255,0,0"
//
// Missing keys keep their defaults; a missing file yields the default
// palette.
func LoadColors(path string) (animation.Palette, error) {
	palette := animation.DefaultPalette()
	if path == "" {
		return palette, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return palette, nil
		}
		return palette, fmt.Errorf("read %s: %w", path, err)
	}

	var raw struct {
		Colors map[string]string `toml:"colors"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return palette, fmt.Errorf("parse %s: %w", path, err)
	}

	for key, value := range raw.Colors {
		color, err := ParseRGB(value)
		if err != nil {
			return palette, fmt.Errorf("color %q: %w", key, err)
		}
		switch key {
		case "turn":
			palette.Turn = color
		case "hazard":
			palette.Hazard = color
		case "emergency":
			palette.Emergency = color
		case "forward":
			palette.Forward = color
		case "reverse":
			palette.Reverse = color
		default:
			return palette, fmt.Errorf("unknown color key %q", key)
		}
	}
	return palette, nil
}

// ParseRGB parses an "r,g,b" triplet with each channel in 0..255.
func ParseRGB(s string) (device.RGB, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return device.RGB{}, fmt.Errorf("want r,g,b, got %q", s)
	}
	var channels [3]uint8
	for i, part := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(part), 10, 8)
		if err != nil {
			return device.RGB{}, fmt.Errorf("channel %d of %q: %w", i, s, err)
		}
		channels[i] = uint8(n)
	}
	return device.RGB{R: channels[0], G: channels[1], B: channels[2]}, nil
}
