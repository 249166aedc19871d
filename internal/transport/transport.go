// Package transport abstracts the wireless link to the LED peripherals.
//
// The controller only ever talks to the Transport and Handle interfaces;
// the BlueZ implementation is the production driver, and Loopback serves
// development and tests.
package transport

import (
	"context"
	"time"
)

// DeviceInfo describes one advertised peripheral found during discovery.
type DeviceInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// Handle is a live connection to a single peripheral.
type Handle interface {
	// IsConnected probes the link state.
	IsConnected() bool
	// Write sends one raw command line to the peripheral.
	Write(ctx context.Context, data []byte) error
	// Disconnect tears the connection down. Safe to call more than once.
	Disconnect() error
}

// Transport is the wireless driver consumed by the controller.
type Transport interface {
	// Discover scans for advertised peripherals for up to timeout.
	Discover(ctx context.Context, timeout time.Duration) ([]DeviceInfo, error)
	// Connect establishes a connection to the peripheral at address.
	Connect(ctx context.Context, address string, timeout time.Duration) (Handle, error)
}
