package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Loopback is a Transport with no hardware behind it. Discovery returns
// a configured set of fake peripherals and writes are only logged. Used
// for development on machines without a Bluetooth adapter.
type Loopback struct {
	devices []DeviceInfo
	logger  *slog.Logger
}

// NewLoopback creates a loopback transport advertising the given devices.
func NewLoopback(devices []DeviceInfo, logger *slog.Logger) *Loopback {
	return &Loopback{devices: devices, logger: logger}
}

func (l *Loopback) Discover(ctx context.Context, timeout time.Duration) ([]DeviceInfo, error) {
	out := make([]DeviceInfo, len(l.devices))
	copy(out, l.devices)
	return out, nil
}

func (l *Loopback) Connect(ctx context.Context, address string, timeout time.Duration) (Handle, error) {
	l.logger.Info("loopback connect", "address", address)
	return &loopbackHandle{address: address, logger: l.logger, connected: true}, nil
}

type loopbackHandle struct {
	mu        sync.Mutex
	address   string
	connected bool
	logger    *slog.Logger
}

func (h *loopbackHandle) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *loopbackHandle) Write(ctx context.Context, data []byte) error {
	h.logger.Debug("loopback write", "address", h.address, "command", string(data))
	return nil
}

func (h *loopbackHandle) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = false
	return nil
}
