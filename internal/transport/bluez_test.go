package transport

import "testing"

func TestDeviceObjectPath(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"AA:BB:CC:DD:EE:FF", "/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF"},
		{"00:11:22:33:44:55", "/org/bluez/hci0/dev_00_11_22_33_44_55"},
	}
	for _, tt := range tests {
		if got := string(deviceObjectPath(tt.addr)); got != tt.want {
			t.Errorf("deviceObjectPath(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
