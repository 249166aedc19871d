package transport

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	busName         = "org.bluez"
	adapterPath     = "/org/bluez/hci0"
	adapterIface    = "org.bluez.Adapter1"
	deviceIface     = "org.bluez.Device1"
	charIface       = "org.bluez.GattCharacteristic1"
	propsIface      = "org.freedesktop.DBus.Properties"
	objManagerIface = "org.freedesktop.DBus.ObjectManager"
)

// GATT profile exposed by the peripheral firmware. Commands are written
// to the single writable characteristic.
const (
	ServiceUUID        = "4fafc201-1fb5-459e-8fcc-c5c9c331914b"
	CharacteristicUUID = "beb5483e-36e1-4688-b7f5-ea07361b26a8"
)

// BlueZ is the production Transport talking to the peripherals through
// the BlueZ daemon on the system D-Bus.
type BlueZ struct {
	conn   *dbus.Conn
	logger *slog.Logger
}

// NewBlueZ connects to the system bus and verifies BlueZ is present.
func NewBlueZ(logger *slog.Logger) (*BlueZ, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("connect to system bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("list bus names: %w", err)
	}
	found := false
	for _, n := range names {
		if n == busName {
			found = true
			break
		}
	}
	if !found {
		conn.Close()
		return nil, fmt.Errorf("org.bluez not found on system bus, is bluetooth.service running?")
	}
	return &BlueZ{conn: conn, logger: logger}, nil
}

// Close releases the bus connection.
func (b *BlueZ) Close() {
	b.conn.Close()
}

// Discover scans for advertised peripherals for up to timeout and
// returns every named device BlueZ knows about afterwards.
func (b *BlueZ) Discover(ctx context.Context, timeout time.Duration) ([]DeviceInfo, error) {
	adapter := b.conn.Object(busName, adapterPath)
	if call := adapter.CallWithContext(ctx, adapterIface+".StartDiscovery", 0); call.Err != nil {
		return nil, fmt.Errorf("start discovery: %w", call.Err)
	}
	defer adapter.Call(adapterIface+".StopDiscovery", 0)

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
	}

	objects, err := b.managedObjects(ctx)
	if err != nil {
		return nil, err
	}

	var devices []DeviceInfo
	for _, ifaces := range objects {
		props, ok := ifaces[deviceIface]
		if !ok {
			continue
		}
		name, _ := props["Name"].Value().(string)
		address, _ := props["Address"].Value().(string)
		if name == "" || address == "" {
			continue
		}
		devices = append(devices, DeviceInfo{Name: name, Address: address})
	}
	return devices, nil
}

// Connect establishes a connection to the device at address and resolves
// the command characteristic. It waits up to timeout for BlueZ to finish
// service discovery.
func (b *BlueZ) Connect(ctx context.Context, address string, timeout time.Duration) (Handle, error) {
	devPath := deviceObjectPath(address)
	dev := b.conn.Object(busName, devPath)

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if call := dev.CallWithContext(ctx, deviceIface+".Connect", 0); call.Err != nil {
		return nil, fmt.Errorf("connect %s: %w", address, call.Err)
	}

	// WriteValue is only usable once GATT discovery has populated the
	// characteristic objects; poll until the command characteristic shows up.
	var charPath dbus.ObjectPath
	for {
		var err error
		charPath, err = b.findCharacteristic(ctx, devPath, CharacteristicUUID)
		if err == nil {
			break
		}
		select {
		case <-ctx.Done():
			dev.Call(deviceIface+".Disconnect", 0)
			return nil, fmt.Errorf("resolve characteristic on %s: %w", address, err)
		case <-time.After(200 * time.Millisecond):
		}
	}

	b.logger.Debug("connected", "address", address, "characteristic", string(charPath))
	return &bluezHandle{conn: b.conn, devPath: devPath, charPath: charPath}, nil
}

// managedObjects fetches the full BlueZ object tree.
func (b *BlueZ) managedObjects(ctx context.Context) (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := b.conn.Object(busName, "/")
	if err := root.CallWithContext(ctx, objManagerIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return nil, fmt.Errorf("get managed objects: %w", err)
	}
	return objects, nil
}

// findCharacteristic locates a GATT characteristic by UUID under the
// given device object path.
func (b *BlueZ) findCharacteristic(ctx context.Context, devPath dbus.ObjectPath, uuid string) (dbus.ObjectPath, error) {
	objects, err := b.managedObjects(ctx)
	if err != nil {
		return "", err
	}
	for path, ifaces := range objects {
		if !strings.HasPrefix(string(path), string(devPath)+"/") {
			continue
		}
		props, ok := ifaces[charIface]
		if !ok {
			continue
		}
		if u, _ := props["UUID"].Value().(string); strings.EqualFold(u, uuid) {
			return path, nil
		}
	}
	return "", fmt.Errorf("characteristic %s not found under %s", uuid, devPath)
}

// deviceObjectPath converts a MAC address like "AA:BB:CC:DD:EE:FF" to
// "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF".
func deviceObjectPath(addr string) dbus.ObjectPath {
	return dbus.ObjectPath(adapterPath + "/dev_" + strings.ReplaceAll(addr, ":", "_"))
}

// bluezHandle is a Handle bound to one connected device's command
// characteristic.
type bluezHandle struct {
	conn     *dbus.Conn
	devPath  dbus.ObjectPath
	charPath dbus.ObjectPath
}

func (h *bluezHandle) IsConnected() bool {
	var v dbus.Variant
	obj := h.conn.Object(busName, h.devPath)
	if err := obj.Call(propsIface+".Get", 0, deviceIface, "Connected").Store(&v); err != nil {
		return false
	}
	connected, _ := v.Value().(bool)
	return connected
}

func (h *bluezHandle) Write(ctx context.Context, data []byte) error {
	obj := h.conn.Object(busName, h.charPath)
	call := obj.CallWithContext(ctx, charIface+".WriteValue", 0, data, map[string]dbus.Variant{})
	if call.Err != nil {
		return fmt.Errorf("write %q: %w", data, call.Err)
	}
	return nil
}

func (h *bluezHandle) Disconnect() error {
	obj := h.conn.Object(busName, h.devPath)
	if call := obj.Call(deviceIface+".Disconnect", 0); call.Err != nil {
		return fmt.Errorf("disconnect: %w", call.Err)
	}
	return nil
}
