package controller

import (
	"context"
	"errors"
	"time"

	"github.com/sirius3/lednode/internal/device"
	"github.com/sirius3/lednode/internal/events"
	"github.com/sirius3/lednode/internal/metrics"
)

// startDispatcher launches the queue worker once.
func (c *Controller) startDispatcher() {
	if !c.dispatching.CompareAndSwap(false, true) {
		return
	}
	go c.dispatchLoop()
}

// dispatchLoop drains the command queue one command at a time, pacing
// between sends. Commands for disconnected devices are dropped with a
// failed callback rather than held back.
func (c *Controller) dispatchLoop() {
	defer close(c.dispatchDone)
	c.logger.Info("command dispatcher started")
	for {
		select {
		case <-c.stop:
			c.logger.Info("command dispatcher stopped")
			return
		default:
		}

		cmd, ok := c.pending.pop(popTimeout)
		if !ok {
			continue
		}
		metrics.SetQueueDepth(c.pending.len())
		c.dispatchOne(cmd)
	}
}

func (c *Controller) dispatchOne(cmd device.Command) {
	if !c.Connected(cmd.Device) {
		c.logger.Warn("dropping command for disconnected device",
			"device", cmd.Device, "command", cmd.Encode())
		metrics.CommandResult(string(cmd.Device), metrics.ResultDropped)
		c.bus.Publish(events.CommandStatusEvent{
			Device:    string(cmd.Device),
			Success:   false,
			Message:   "not connected: " + cmd.Encode(),
			Timestamp: events.Now(),
		})
		cmd.Complete(false)
		return
	}

	// While the ambient producer owns color, fixed color commands are
	// stale by the time they reach the front of the queue.
	if c.ambient.Load() && cmd.Kind == device.KindColor {
		c.logger.Debug("suppressing color command in ambient mode",
			"device", cmd.Device, "command", cmd.Encode())
		metrics.CommandResult(string(cmd.Device), metrics.ResultDropped)
		return
	}

	cmd.Complete(c.sendOne(cmd))

	select {
	case <-c.stop:
	case <-time.After(c.cfg.CommandInterval):
	}
}

// sendOne writes a single command on the bridge and waits for the
// outcome with the command timeout. A timeout marks the device
// disconnected so the reconnection flow can take over.
func (c *Controller) sendOne(cmd device.Command) bool {
	handle := c.liveHandle(cmd.Device)
	if handle == nil {
		metrics.CommandResult(string(cmd.Device), metrics.ResultDropped)
		return false
	}

	line := cmd.Encode()
	res := c.bridge.Execute(func(ctx context.Context) error {
		return handle.Write(ctx, []byte(line))
	})

	err := res.Wait(c.cfg.CommandTimeout)
	switch {
	case err == nil:
		c.logger.Info("command sent", "device", cmd.Device, "command", line)
		metrics.CommandResult(string(cmd.Device), metrics.ResultSent)
		c.bus.Publish(events.CommandStatusEvent{
			Device:    string(cmd.Device),
			Success:   true,
			Message:   line,
			Timestamp: events.Now(),
		})
		return true
	case errors.Is(err, ErrTimeout):
		c.logger.Error("command timed out", "device", cmd.Device, "command", line,
			"timeout", c.cfg.CommandTimeout)
		metrics.CommandResult(string(cmd.Device), metrics.ResultTimeout)
		c.markDisconnected(cmd.Device)
		c.bus.Publish(events.CommandStatusEvent{
			Device:    string(cmd.Device),
			Success:   false,
			Message:   "timeout: " + line,
			Timestamp: events.Now(),
		})
		return false
	default:
		c.logger.Error("command failed", "device", cmd.Device, "command", line, "error", err)
		metrics.CommandResult(string(cmd.Device), metrics.ResultFailed)
		c.bus.Publish(events.CommandStatusEvent{
			Device:    string(cmd.Device),
			Success:   false,
			Message:   err.Error() + ": " + line,
			Timestamp: events.Now(),
		})
		return false
	}
}
