package animation

import (
	"time"

	"github.com/sirius3/lednode/internal/device"
)

// runTurnSignal blinks one side through the paced queue while dimming
// the opposite side so the signal reads unambiguously.
func (e *Engine) runTurnSignal(s *session, p params, side device.ID, color device.RGB) {
	opposite := side.Opposite()
	e.cmd.Enqueue(device.NewTransition(opposite, device.NearOff, p.transition))

	for i := 0; p.cycles == 0 || i < p.cycles; i++ {
		if s.cancelled() {
			return
		}
		e.cmd.Enqueue(device.NewTransition(side, color, p.transition))
		if !s.wait(p.interval) {
			return
		}
		e.cmd.Enqueue(device.NewTransition(side, device.NearOff, p.transition))
		if !s.wait(p.interval) {
			return
		}
	}
}

// runFlash blinks both sides in lockstep via the fan-out path. Used for
// hazard, courtesy, and emergency sessions; only the timing differs.
func (e *Engine) runFlash(s *session, p params, color device.RGB) {
	for i := 0; p.cycles == 0 || i < p.cycles; i++ {
		if s.cancelled() {
			return
		}
		e.fanoutTransition(color, p.transition)
		if !s.wait(p.interval) {
			return
		}
		e.fanoutTransition(device.NearOff, p.transition)
		if !s.wait(p.interval) {
			return
		}
	}
}

// runBreathe runs the forward/reverse pattern once: a slow fade up, a
// long hold, then a slower fade back down. Not cyclic.
func (e *Engine) runBreathe(s *session, p params, color device.RGB) {
	if s.cancelled() {
		return
	}
	e.fanoutTransition(color, 2*p.transition)
	if !s.wait(2 * p.interval) {
		return
	}
	e.fanoutTransition(device.NearOff, 3*p.transition)
	s.wait(3 * p.interval)
}

// fanoutTransition sends the same fade to every connected peripheral at
// once.
func (e *Engine) fanoutTransition(color device.RGB, d time.Duration) {
	connected := e.cmd.ConnectedDevices()
	if len(connected) == 0 {
		return
	}
	batch := make([]device.Command, 0, len(connected))
	for _, id := range connected {
		batch = append(batch, device.NewTransition(id, color, d))
	}
	e.cmd.SendSimultaneously(batch, nil)
}
