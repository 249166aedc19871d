package animation

import (
	"testing"

	"github.com/sirius3/lednode/internal/device"
)

func TestTypeValid(t *testing.T) {
	for _, typ := range All() {
		if !typ.Valid() {
			t.Errorf("%s not valid", typ)
		}
	}
	for _, bad := range []Type{"", "disco", "LEFT_TURN", "left turn"} {
		if bad.Valid() {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestPaletteColorFor(t *testing.T) {
	p := DefaultPalette()
	cases := map[Type]device.RGB{
		LeftTurn:        device.Amber,
		LaneChangeRight: device.Amber,
		Hazard:          device.Amber,
		ThankYou:        device.Amber,
		Emergency:       device.Red,
		Forward:         device.Blue,
		Reverse:         device.White,
	}
	for typ, want := range cases {
		if got := p.colorFor(typ); got != want {
			t.Errorf("colorFor(%s) = %v, want %v", typ, got, want)
		}
	}
}

func TestSignalSide(t *testing.T) {
	if signalSide(LeftTurn) != device.Left || signalSide(LaneChangeLeft) != device.Left {
		t.Error("left choreographies must target the left side")
	}
	if signalSide(RightTurn) != device.Right || signalSide(LaneChangeRight) != device.Right {
		t.Error("right choreographies must target the right side")
	}
}

func TestResolveOverrides(t *testing.T) {
	p := resolve(Emergency, Options{})
	if p.cycles != 12 || p.interval != 250e6 || p.transition != 125e6 {
		t.Fatalf("emergency defaults = %+v", p)
	}

	p = resolve(Hazard, Options{Cycles: 2, Interval: 1e9})
	if p.cycles != 2 || p.interval != 1e9 {
		t.Fatalf("overrides not applied: %+v", p)
	}
	if p.transition != 300e6 {
		t.Fatalf("unset override clobbered default: %+v", p)
	}
}
