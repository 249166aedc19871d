package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirius3/lednode/internal/device"
	"github.com/sirius3/lednode/internal/events"
	"github.com/sirius3/lednode/internal/metrics"
	"github.com/sirius3/lednode/internal/transport"
)

// SendSimultaneously writes one command per peripheral at the same
// instant, bypassing the paced queue. Commands for disconnected devices
// are skipped; a batch that is empty after filtering succeeds
// trivially. The whole batch runs as a single bridge unit so nothing
// interleaves between the writes, and within the unit each write runs
// on its own goroutine.
func (c *Controller) SendSimultaneously(cmds []device.Command, onComplete func(bool)) {
	type item struct {
		cmd    device.Command
		handle transport.Handle
	}
	var batch []item
	for _, cmd := range cmds {
		handle := c.liveHandle(cmd.Device)
		if handle == nil {
			c.logger.Warn("skipping simultaneous command for disconnected device",
				"device", cmd.Device, "command", cmd.Encode())
			metrics.CommandResult(string(cmd.Device), metrics.ResultDropped)
			continue
		}
		batch = append(batch, item{cmd: cmd, handle: handle})
	}

	if len(batch) == 0 {
		if onComplete != nil {
			onComplete(true)
		}
		return
	}

	// Per-entry outcome tracking: errs[i] is published before done[i]
	// flips, so a batch timeout can tell the stragglers from the writes
	// that already landed.
	errs := make([]error, len(batch))
	done := make([]atomic.Bool, len(batch))
	res := c.bridge.Execute(func(ctx context.Context) error {
		var wg sync.WaitGroup
		for i, it := range batch {
			wg.Add(1)
			go func(i int, it item) {
				defer wg.Done()
				if err := it.handle.Write(ctx, []byte(it.cmd.Encode())); err != nil {
					errs[i] = fmt.Errorf("%s: %w", it.cmd.Device, err)
				}
				done[i].Store(true)
			}(i, it)
		}
		wg.Wait()
		return errors.Join(errs...)
	})

	go func() {
		err := res.Wait(c.cfg.CommandTimeout)
		ok := err == nil
		if ok {
			for _, it := range batch {
				c.logger.Info("command sent", "device", it.cmd.Device, "command", it.cmd.Encode())
				metrics.CommandResult(string(it.cmd.Device), metrics.ResultSent)
			}
		} else {
			c.logger.Error("simultaneous send failed", "error", err)
			if errors.Is(err, ErrTimeout) {
				// Only the entries still in flight are considered dead;
				// a peer whose write finished keeps its connection.
				for i, it := range batch {
					if done[i].Load() {
						if errs[i] == nil {
							metrics.CommandResult(string(it.cmd.Device), metrics.ResultSent)
						} else {
							metrics.CommandResult(string(it.cmd.Device), metrics.ResultFailed)
						}
						continue
					}
					metrics.CommandResult(string(it.cmd.Device), metrics.ResultTimeout)
					c.markDisconnected(it.cmd.Device)
				}
			}
		}
		metrics.FanoutBatch(ok)
		c.bus.Publish(events.CommandStatusEvent{
			Device:    "BOTH",
			Success:   ok,
			Message:   fmt.Sprintf("simultaneous batch of %d", len(batch)),
			Timestamp: events.Now(),
		})
		if onComplete != nil {
			onComplete(ok)
		}
	}()
}
