// Package controller implements the command dispatch core: the per-device
// command queue and its pacing worker, the bridge that serializes all
// transport operations onto one goroutine, the simultaneous fan-out path,
// and connection-state bookkeeping for the LEFT/RIGHT peripheral pair.
package controller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirius3/lednode/internal/device"
	"github.com/sirius3/lednode/internal/events"
	"github.com/sirius3/lednode/internal/metrics"
	"github.com/sirius3/lednode/internal/transport"
)

// Config carries the controller's tuning parameters. Zero values are
// replaced with the defaults below; they are tuning parameters, not
// protocol requirements.
type Config struct {
	// CommandTimeout bounds a single transport write.
	CommandTimeout time.Duration
	// CommandInterval is the pacing sleep between dispatched commands,
	// keeping the link from being flooded.
	CommandInterval time.Duration
	// DiscoverTimeout bounds one discovery scan.
	DiscoverTimeout time.Duration
	// ConnectTimeout bounds connection establishment.
	ConnectTimeout time.Duration
	// CheckInterval is the period of the background connection probe.
	// Zero disables it.
	CheckInterval time.Duration
	// AmbientTransition is the fade duration used for ambient color
	// updates.
	AmbientTransition time.Duration
	// DeviceNames maps each peripheral to its advertised name.
	DeviceNames map[device.ID]string
}

const (
	defaultCommandTimeout    = 5 * time.Second
	defaultCommandInterval   = 100 * time.Millisecond
	defaultDiscoverTimeout   = 5 * time.Second
	defaultConnectTimeout    = 10 * time.Second
	defaultAmbientTransition = 200 * time.Millisecond

	// popTimeout keeps the dispatcher responsive to its stop signal.
	popTimeout = 500 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.CommandTimeout <= 0 {
		c.CommandTimeout = defaultCommandTimeout
	}
	if c.CommandInterval <= 0 {
		c.CommandInterval = defaultCommandInterval
	}
	if c.DiscoverTimeout <= 0 {
		c.DiscoverTimeout = defaultDiscoverTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.AmbientTransition <= 0 {
		c.AmbientTransition = defaultAmbientTransition
	}
	if c.DeviceNames == nil {
		c.DeviceNames = map[device.ID]string{
			device.Left:  "Sirius3_LEFT_EAR",
			device.Right: "Sirius3_RIGHT_EAR",
		}
	}
	return c
}

// connState tracks one peripheral's link. connected is true exactly when
// handle is non-nil.
type connState struct {
	address   string
	connected bool
	handle    transport.Handle
}

// Status is a read-only snapshot of one peripheral's connection state.
type Status struct {
	Address   string `json:"address,omitempty"`
	Connected bool   `json:"connected"`
}

// Controller owns all mutable connection and queue state. Lifecycle is
// explicit: New, Start, Stop.
type Controller struct {
	cfg       Config
	transport transport.Transport
	bridge    *Bridge
	bus       *events.Bus
	logger    *slog.Logger

	mu     sync.Mutex
	states map[device.ID]*connState

	pending      *fifo[device.Command]
	dispatching  atomic.Bool
	stop         chan struct{}
	dispatchDone chan struct{}
	checkDone    chan struct{}

	ambient atomic.Bool
}

// New creates a controller over the given transport. The bus receives
// connection, command, and status notifications.
func New(tr transport.Transport, bus *events.Bus, logger *slog.Logger, cfg Config) *Controller {
	c := &Controller{
		cfg:          cfg.withDefaults(),
		transport:    tr,
		bridge:       NewBridge(logger, bus),
		bus:          bus,
		logger:       logger,
		states:       make(map[device.ID]*connState),
		pending:      newFIFO[device.Command](),
		stop:         make(chan struct{}),
		dispatchDone: make(chan struct{}),
		checkDone:    make(chan struct{}),
	}
	for _, id := range device.All() {
		c.states[id] = &connState{}
	}
	return c
}

// Start launches the bridge worker, the dispatcher, and the periodic
// connection checker when configured.
func (c *Controller) Start() {
	c.bridge.Start()
	c.startDispatcher()
	if c.cfg.CheckInterval > 0 {
		go c.checkLoop()
	} else {
		close(c.checkDone)
	}
}

// Stop shuts the workers down. Queued commands are discarded; in-flight
// transport calls may be abandoned after a bounded join.
func (c *Controller) Stop() {
	close(c.stop)
	if c.dispatching.Load() {
		select {
		case <-c.dispatchDone:
		case <-time.After(2 * popTimeout):
			c.logger.Warn("dispatcher did not exit within join window")
		}
	}
	select {
	case <-c.checkDone:
	case <-time.After(time.Second):
	}
	c.bridge.Stop()
}

// Connected reports whether the peripheral has a live connection.
func (c *Controller) Connected(id device.ID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id].connected
}

// ConnectedDevices returns the peripherals with live connections, in
// the fixed LEFT, RIGHT order.
func (c *Controller) ConnectedDevices() []device.ID {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []device.ID
	for _, id := range device.All() {
		if c.states[id].connected {
			out = append(out, id)
		}
	}
	return out
}

// StatusOf returns a snapshot of one peripheral's connection state.
func (c *Controller) StatusOf(id device.ID) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[id]
	return Status{Address: st.address, Connected: st.connected}
}

// setState installs a live handle for a peripheral and publishes the
// connection change.
func (c *Controller) setState(id device.ID, address string, handle transport.Handle) {
	c.mu.Lock()
	st := c.states[id]
	st.address = address
	st.handle = handle
	st.connected = true
	c.mu.Unlock()

	metrics.SetConnected(string(id), true)
	c.bus.Publish(events.ConnectionStatusEvent{Device: string(id), Connected: true, Timestamp: events.Now()})
}

// markDisconnected clears a peripheral's handle. The stored address is
// kept for reconnection. Publishes only on an actual state change.
func (c *Controller) markDisconnected(id device.ID) {
	c.mu.Lock()
	st := c.states[id]
	changed := st.connected || st.handle != nil
	st.handle = nil
	st.connected = false
	c.mu.Unlock()

	if changed {
		metrics.SetConnected(string(id), false)
		c.bus.Publish(events.ConnectionStatusEvent{Device: string(id), Connected: false, Timestamp: events.Now()})
	}
}

// liveHandle snapshots the handle for a peripheral, nil when
// disconnected.
func (c *Controller) liveHandle(id device.ID) transport.Handle {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.states[id]
	if !st.connected {
		return nil
	}
	return st.handle
}

// ScanAndConnect discovers the peripheral by its advertised name,
// connects, and records the live handle. The returned future resolves
// true once the device is connected. An already-connected device
// resolves immediately; its live handle is kept, not replaced.
func (c *Controller) ScanAndConnect(id device.ID) *Future {
	fut := newFuture()
	if c.liveHandle(id) != nil {
		c.logger.Info("device already connected", "device", id)
		fut.resolve(true)
		return fut
	}
	name := c.cfg.DeviceNames[id]
	if name == "" {
		c.logger.Error("no advertised name configured", "device", id)
		fut.resolve(false)
		return fut
	}

	c.logger.Info("scanning for device", "device", id, "name", name)
	c.bus.Publish(events.StatusMessageEvent{Message: fmt.Sprintf("scanning for %s (%s)", id, name), Timestamp: events.Now()})

	res := c.bridge.Execute(func(ctx context.Context) error {
		found, err := c.transport.Discover(ctx, c.cfg.DiscoverTimeout)
		if err != nil {
			return fmt.Errorf("discover: %w", err)
		}
		var address string
		for _, d := range found {
			if d.Name == name {
				c.logger.Info("device found", "device", id, "name", d.Name, "address", d.Address)
				address = d.Address
				break
			}
		}
		if address == "" {
			return fmt.Errorf("%s (%s): no advertisement seen", id, name)
		}
		handle, err := c.transport.Connect(ctx, address, c.cfg.ConnectTimeout)
		if err != nil {
			return fmt.Errorf("connect %s: %w", address, err)
		}
		c.setState(id, address, handle)
		return nil
	})

	go func() {
		if err := <-res.Done(); err != nil {
			c.logger.Warn("connection attempt failed", "device", id, "error", err)
			c.markDisconnected(id)
			fut.resolve(false)
			return
		}
		c.logger.Info("device connected", "device", id)
		fut.resolve(true)
	}()
	return fut
}

// Disconnect tears down the peripheral's connection. The connection
// state is reset even when the transport disconnect fails.
func (c *Controller) Disconnect(id device.ID) *Future {
	fut := newFuture()
	handle := c.liveHandle(id)
	if handle == nil {
		c.logger.Warn("disconnect requested for unconnected device", "device", id)
		fut.resolve(false)
		return fut
	}

	res := c.bridge.Execute(func(ctx context.Context) error {
		return handle.Disconnect()
	})
	go func() {
		err := <-res.Done()
		c.markDisconnected(id)
		if err != nil {
			c.logger.Warn("disconnect error", "device", id, "error", err)
			fut.resolve(false)
			return
		}
		c.logger.Info("device disconnected", "device", id)
		fut.resolve(true)
	}()
	return fut
}

// CheckConnection probes the peripheral's link on the bridge and updates
// the connection state to match reality.
func (c *Controller) CheckConnection(id device.ID) *Future {
	fut := newFuture()
	handle := c.liveHandle(id)
	if handle == nil {
		c.markDisconnected(id)
		fut.resolve(false)
		return fut
	}

	res := c.bridge.Execute(func(ctx context.Context) error {
		if !handle.IsConnected() {
			return ErrNotConnected
		}
		return nil
	})
	go func() {
		if err := <-res.Done(); err != nil {
			c.logger.Debug("connection probe negative", "device", id, "error", err)
			c.markDisconnected(id)
			fut.resolve(false)
			return
		}
		fut.resolve(true)
	}()
	return fut
}

// checkLoop periodically verifies every tracked connection.
func (c *Controller) checkLoop() {
	defer close(c.checkDone)
	ticker := time.NewTicker(c.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			for _, id := range device.All() {
				if c.liveHandle(id) != nil {
					c.CheckConnection(id)
				}
			}
		}
	}
}

// Enqueue appends a command to the dispatch queue. Never blocks; the
// dispatcher is started on first use.
func (c *Controller) Enqueue(cmd device.Command) {
	c.logger.Debug("command queued", "device", cmd.Device, "command", cmd.Encode())
	c.pending.push(cmd)
	metrics.SetQueueDepth(c.pending.len())
	c.startDispatcher()
}

// SetRGBColor queues a fixed-color command.
func (c *Controller) SetRGBColor(id device.ID, color device.RGB, onComplete func(bool)) {
	cmd := device.NewColor(id, color)
	cmd.OnComplete = onComplete
	c.Enqueue(cmd)
}

// SetMode queues a mode-switch command (true enables hue cycling).
func (c *Controller) SetMode(id device.ID, auto bool, onComplete func(bool)) {
	cmd := device.NewMode(id, auto)
	cmd.OnComplete = onComplete
	c.Enqueue(cmd)
}

// SetHue queues a hue command.
func (c *Controller) SetHue(id device.ID, hue uint8, onComplete func(bool)) {
	cmd := device.NewHue(id, hue)
	cmd.OnComplete = onComplete
	c.Enqueue(cmd)
}

// SetTransitionColor queues a timed fade command.
func (c *Controller) SetTransitionColor(id device.ID, color device.RGB, d time.Duration, onComplete func(bool)) {
	cmd := device.NewTransition(id, color, d)
	cmd.OnComplete = onComplete
	c.Enqueue(cmd)
}

// ApplySettings applies user settings to one peripheral: auto mode sends
// only the mode switch, fixed mode sends only the color.
func (c *Controller) ApplySettings(id device.ID, s device.Settings, onComplete func(bool)) {
	if s.Auto {
		c.SetMode(id, true, onComplete)
		return
	}
	c.SetRGBColor(id, s.Color, onComplete)
}

// ApplySettingsToBoth applies user settings to every connected
// peripheral at the same instant via the fan-out path.
func (c *Controller) ApplySettingsToBoth(s device.Settings, onComplete func(bool)) {
	connected := c.ConnectedDevices()
	if len(connected) == 0 {
		c.logger.Warn("no connected devices to apply settings to")
		if onComplete != nil {
			onComplete(false)
		}
		return
	}

	batch := make([]device.Command, 0, len(connected))
	for _, id := range connected {
		if s.Auto {
			batch = append(batch, device.NewMode(id, true))
		} else {
			batch = append(batch, device.NewColor(id, s.Color))
		}
	}
	c.SendSimultaneously(batch, onComplete)
}

// SetAmbientMode enables or disables the ambient color producer's
// ownership of color. While enabled, queued COLOR commands are
// suppressed.
func (c *Controller) SetAmbientMode(enabled bool) {
	if c.ambient.Swap(enabled) == enabled {
		return
	}
	if enabled {
		c.logger.Info("ambient color mode enabled")
		c.bus.Publish(events.StatusMessageEvent{Message: "ambient color mode enabled", Timestamp: events.Now()})
	} else {
		c.logger.Info("ambient color mode disabled")
		c.bus.Publish(events.StatusMessageEvent{Message: "ambient color mode disabled", Timestamp: events.Now()})
	}
}

// AmbientMode reports whether the ambient producer owns color.
func (c *Controller) AmbientMode() bool {
	return c.ambient.Load()
}

// UpdateAmbientColor pushes one ambient color frame to every connected
// peripheral as a short fade. No-op unless ambient mode is enabled.
func (c *Controller) UpdateAmbientColor(color device.RGB) {
	if !c.ambient.Load() {
		return
	}
	connected := c.ConnectedDevices()
	if len(connected) == 0 {
		return
	}
	batch := make([]device.Command, 0, len(connected))
	for _, id := range connected {
		batch = append(batch, device.NewTransition(id, color, c.cfg.AmbientTransition))
	}
	c.SendSimultaneously(batch, nil)
}
