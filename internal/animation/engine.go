package animation

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sirius3/lednode/internal/device"
	"github.com/sirius3/lednode/internal/events"
	"github.com/sirius3/lednode/internal/metrics"
)

// stopWait bounds how long a new session waits for the old one to wind
// down before force-clearing it.
const stopWait = 750 * time.Millisecond

// Commander is the slice of the controller the engine drives. Kept
// small so tests can substitute a recorder.
type Commander interface {
	Enqueue(cmd device.Command)
	SendSimultaneously(cmds []device.Command, onComplete func(bool))
	SetAmbientMode(enabled bool)
	ConnectedDevices() []device.ID
}

// Config tunes the engine's resting behavior once a session ends.
type Config struct {
	// RestingColor is applied to both peripherals after every session.
	// Nil means near-off.
	RestingColor *device.RGB
	// RestingAuto re-enables hue cycling after the resting color lands.
	RestingAuto bool
	// RestingDelay separates the resting color from the mode switch.
	RestingDelay time.Duration
	// Palette is the initial color table.
	Palette Palette
}

const defaultRestingDelay = 150 * time.Millisecond

// Engine owns the single choreography session slot.
type Engine struct {
	cmd    Commander
	bus    *events.Bus
	logger *slog.Logger

	// startMu serializes Start and Stop so preemption is well ordered.
	startMu sync.Mutex

	mu           sync.Mutex
	palette      Palette
	restingColor *device.RGB
	restingAuto  bool
	restingDelay time.Duration
	current      *session
}

// session is one running choreography.
type session struct {
	typ        Type
	cancel     chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
	finishOnce sync.Once
}

func newSession(typ Type) *session {
	return &session{
		typ:    typ,
		cancel: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *session) stop() {
	s.cancelOnce.Do(func() { close(s.cancel) })
}

func (s *session) cancelled() bool {
	select {
	case <-s.cancel:
		return true
	default:
		return false
	}
}

// wait sleeps for d, returning false early when the session is
// cancelled.
func (s *session) wait(d time.Duration) bool {
	select {
	case <-s.cancel:
		return false
	case <-time.After(d):
		return true
	}
}

// NewEngine creates an engine over the given commander.
func NewEngine(cmd Commander, bus *events.Bus, logger *slog.Logger, cfg Config) *Engine {
	palette := cfg.Palette
	if (palette == Palette{}) {
		palette = DefaultPalette()
	}
	delay := cfg.RestingDelay
	if delay <= 0 {
		delay = defaultRestingDelay
	}
	return &Engine{
		cmd:          cmd,
		bus:          bus,
		logger:       logger,
		palette:      palette,
		restingColor: cfg.RestingColor,
		restingAuto:  cfg.RestingAuto,
		restingDelay: delay,
	}
}

// SetPalette replaces the color table. Takes effect for the next
// session; the running one keeps the colors it resolved at start.
func (e *Engine) SetPalette(p Palette) {
	e.mu.Lock()
	e.palette = p
	e.mu.Unlock()
	e.logger.Info("animation palette updated")
}

// CurrentPalette returns the active color table.
func (e *Engine) CurrentPalette() Palette {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.palette
}

// Current returns the running choreography type, if any.
func (e *Engine) Current() (Type, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.current == nil {
		return "", false
	}
	return e.current.typ, true
}

// Start launches a choreography, preempting any running session first.
// An unknown type is rejected without touching the running session.
// Starting a session disables ambient color mode.
func (e *Engine) Start(typ Type, opts Options) error {
	if !typ.Valid() {
		return ErrUnknownType
	}

	e.startMu.Lock()
	defer e.startMu.Unlock()

	e.mu.Lock()
	prev := e.current
	palette := e.palette
	e.mu.Unlock()
	if prev != nil {
		e.preempt(prev)
	}

	e.cmd.SetAmbientMode(false)

	s := newSession(typ)
	e.mu.Lock()
	e.current = s
	e.mu.Unlock()

	p := resolve(typ, opts)
	metrics.AnimationStarted(string(typ))
	e.logger.Info("animation started", "type", typ,
		"cycles", p.cycles, "interval", p.interval, "transition", p.transition)
	e.bus.Publish(events.AnimationStateEvent{Animation: string(typ), State: events.AnimationStarted, Timestamp: events.Now()})

	go e.run(s, p, palette.colorFor(typ))
	return nil
}

// Stop cancels the running session and waits for it to wind down.
// Reports whether there was one.
func (e *Engine) Stop() bool {
	e.startMu.Lock()
	defer e.startMu.Unlock()

	e.mu.Lock()
	s := e.current
	e.mu.Unlock()
	if s == nil {
		return false
	}
	e.preempt(s)
	return true
}

// preempt cancels a session and waits for its wind-down with a bound.
// A session that overstays is force-cleared so the slot frees up either
// way.
func (e *Engine) preempt(s *session) {
	s.stop()
	select {
	case <-s.done:
	case <-time.After(stopWait):
		e.logger.Warn("animation did not wind down in time, clearing session", "type", s.typ)
		e.mu.Lock()
		if e.current == s {
			e.current = nil
		}
		e.mu.Unlock()
	}
}

func (e *Engine) run(s *session, p params, color device.RGB) {
	switch s.typ {
	case LeftTurn, RightTurn, LaneChangeLeft, LaneChangeRight:
		e.runTurnSignal(s, p, signalSide(s.typ), color)
	case Hazard, ThankYou, Emergency:
		e.runFlash(s, p, color)
	default:
		e.runBreathe(s, p, color)
	}
	e.finish(s)
}

// finish applies the resting policy and releases the session slot.
// Runs at most once per session, whether the session completed or was
// cancelled.
func (e *Engine) finish(s *session) {
	s.finishOnce.Do(func() {
		e.applyResting()

		e.mu.Lock()
		if e.current == s {
			e.current = nil
		}
		e.mu.Unlock()

		e.logger.Info("animation finished", "type", s.typ)
		e.bus.Publish(events.AnimationStateEvent{Animation: string(s.typ), State: events.AnimationStopped, Timestamp: events.Now()})
		close(s.done)
	})
}

// applyResting restores both peripherals after a session: the resting
// color first, then the mode switch when hue cycling should resume.
func (e *Engine) applyResting() {
	e.mu.Lock()
	restingColor := e.restingColor
	restingAuto := e.restingAuto
	delay := e.restingDelay
	e.mu.Unlock()

	color := device.NearOff
	if restingColor != nil {
		color = *restingColor
	}

	connected := e.cmd.ConnectedDevices()
	if len(connected) == 0 {
		return
	}
	batch := make([]device.Command, 0, len(connected))
	for _, id := range connected {
		batch = append(batch, device.NewColor(id, color))
	}
	e.cmd.SendSimultaneously(batch, nil)

	if !restingAuto {
		return
	}
	time.Sleep(delay)
	batch = batch[:0]
	for _, id := range connected {
		batch = append(batch, device.NewMode(id, true))
	}
	e.cmd.SendSimultaneously(batch, nil)
}
