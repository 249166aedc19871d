package controller

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirius3/lednode/internal/device"
	"github.com/sirius3/lednode/internal/events"
	"github.com/sirius3/lednode/internal/transport"
)

type fakeHandle struct {
	mu         sync.Mutex
	writes     []string
	writeTimes []time.Time
	connected  bool
	writeErr   error
	writeDelay time.Duration
}

func (h *fakeHandle) IsConnected() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.connected
}

func (h *fakeHandle) Write(ctx context.Context, data []byte) error {
	h.mu.Lock()
	delay := h.writeDelay
	h.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.writeErr != nil {
		return h.writeErr
	}
	h.writes = append(h.writes, string(data))
	h.writeTimes = append(h.writeTimes, time.Now())
	return nil
}

func (h *fakeHandle) Disconnect() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connected = false
	return nil
}

func (h *fakeHandle) recorded() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.writes...)
}

type fakeTransport struct {
	mu       sync.Mutex
	found    []transport.DeviceInfo
	handles  map[string]*fakeHandle
	connects int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		found: []transport.DeviceInfo{
			{Name: "Sirius3_LEFT_EAR", Address: "AA:BB:CC:DD:EE:01"},
			{Name: "Sirius3_RIGHT_EAR", Address: "AA:BB:CC:DD:EE:02"},
		},
		handles: make(map[string]*fakeHandle),
	}
}

func (f *fakeTransport) Discover(ctx context.Context, timeout time.Duration) ([]transport.DeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transport.DeviceInfo(nil), f.found...), nil
}

func (f *fakeTransport) Connect(ctx context.Context, address string, timeout time.Duration) (transport.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	h := &fakeHandle{connected: true}
	f.handles[address] = h
	return h, nil
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func (f *fakeTransport) handleFor(address string) *fakeHandle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handles[address]
}

func newTestController(t *testing.T, cfg Config) (*Controller, *fakeTransport) {
	t.Helper()
	tr := newFakeTransport()
	c := New(tr, events.New(), discardLogger(), cfg)
	c.Start()
	t.Cleanup(c.Stop)
	return c, tr
}

func connect(t *testing.T, c *Controller, id device.ID) {
	t.Helper()
	ok, err := c.ScanAndConnect(id).Wait(2 * time.Second)
	if err != nil || !ok {
		t.Fatalf("ScanAndConnect(%s) = %v, %v", id, ok, err)
	}
}

func waitCallback(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case ok := <-ch:
		return ok
	case <-time.After(2 * time.Second):
		t.Fatal("callback was not invoked")
		return false
	}
}

func TestDispatchOrderAndPacing(t *testing.T) {
	c, tr := newTestController(t, Config{CommandInterval: 30 * time.Millisecond})
	connect(t, c, device.Left)
	h := tr.handleFor("AA:BB:CC:DD:EE:01")

	done := make(chan bool, 3)
	c.SetRGBColor(device.Left, device.Red, func(ok bool) { done <- ok })
	c.SetHue(device.Left, 128, func(ok bool) { done <- ok })
	c.SetMode(device.Left, true, func(ok bool) { done <- ok })
	for i := 0; i < 3; i++ {
		if !waitCallback(t, done) {
			t.Fatalf("command %d failed", i)
		}
	}

	want := []string{"C:255,0,0", "H:128", "M:1"}
	got := h.recorded()
	if len(got) != len(want) {
		t.Fatalf("writes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("writes = %v, want %v", got, want)
		}
	}

	h.mu.Lock()
	times := append([]time.Time(nil), h.writeTimes...)
	h.mu.Unlock()
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < 25*time.Millisecond {
			t.Fatalf("gap between writes %d and %d was %v, want at least the pacing interval", i-1, i, gap)
		}
	}
}

func TestDispatchDropsDisconnected(t *testing.T) {
	c, tr := newTestController(t, Config{})

	done := make(chan bool, 1)
	c.SetRGBColor(device.Left, device.Red, func(ok bool) { done <- ok })
	if waitCallback(t, done) {
		t.Fatal("command for disconnected device reported success")
	}
	if h := tr.handleFor("AA:BB:CC:DD:EE:01"); h != nil && len(h.recorded()) != 0 {
		t.Fatalf("unexpected writes: %v", h.recorded())
	}
}

func TestAmbientModeSuppressesColor(t *testing.T) {
	c, tr := newTestController(t, Config{CommandInterval: 10 * time.Millisecond})
	connect(t, c, device.Left)
	h := tr.handleFor("AA:BB:CC:DD:EE:01")

	c.SetAmbientMode(true)
	c.SetRGBColor(device.Left, device.Red, nil)

	done := make(chan bool, 1)
	c.SetHue(device.Left, 42, func(ok bool) { done <- ok })
	if !waitCallback(t, done) {
		t.Fatal("hue command failed")
	}

	got := h.recorded()
	if len(got) != 1 || got[0] != "H:42" {
		t.Fatalf("writes = %v, want only the hue command", got)
	}
}

func TestTimeoutMarksDisconnected(t *testing.T) {
	c, tr := newTestController(t, Config{
		CommandTimeout:  50 * time.Millisecond,
		CommandInterval: 10 * time.Millisecond,
	})
	connect(t, c, device.Left)
	h := tr.handleFor("AA:BB:CC:DD:EE:01")
	h.mu.Lock()
	h.writeDelay = 300 * time.Millisecond
	h.mu.Unlock()

	done := make(chan bool, 1)
	c.SetRGBColor(device.Left, device.Red, func(ok bool) { done <- ok })
	if waitCallback(t, done) {
		t.Fatal("timed-out command reported success")
	}
	if c.Connected(device.Left) {
		t.Fatal("device still marked connected after command timeout")
	}
}

func TestWriteErrorReportsFailure(t *testing.T) {
	c, tr := newTestController(t, Config{CommandInterval: 10 * time.Millisecond})
	connect(t, c, device.Left)
	h := tr.handleFor("AA:BB:CC:DD:EE:01")
	h.mu.Lock()
	h.writeErr = errors.New("att write rejected")
	h.mu.Unlock()

	done := make(chan bool, 1)
	c.SetRGBColor(device.Left, device.Red, func(ok bool) { done <- ok })
	if waitCallback(t, done) {
		t.Fatal("failed write reported success")
	}
	// A plain write error does not force a disconnect.
	if !c.Connected(device.Left) {
		t.Fatal("device marked disconnected after non-timeout write error")
	}
}

func TestSendSimultaneously(t *testing.T) {
	c, tr := newTestController(t, Config{})
	connect(t, c, device.Left)
	connect(t, c, device.Right)

	done := make(chan bool, 1)
	c.SendSimultaneously([]device.Command{
		device.NewTransition(device.Left, device.Amber, 300*time.Millisecond),
		device.NewTransition(device.Right, device.NearOff, 300*time.Millisecond),
	}, func(ok bool) { done <- ok })

	if !waitCallback(t, done) {
		t.Fatal("simultaneous batch failed")
	}

	left := tr.handleFor("AA:BB:CC:DD:EE:01").recorded()
	right := tr.handleFor("AA:BB:CC:DD:EE:02").recorded()
	if len(left) != 1 || left[0] != "T:255,191,0,300" {
		t.Fatalf("left writes = %v", left)
	}
	if len(right) != 1 || right[0] != "T:1,1,1,300" {
		t.Fatalf("right writes = %v", right)
	}
}

func TestSendSimultaneouslySkipsDisconnected(t *testing.T) {
	c, tr := newTestController(t, Config{})
	connect(t, c, device.Left)

	done := make(chan bool, 1)
	c.SendSimultaneously([]device.Command{
		device.NewColor(device.Left, device.Blue),
		device.NewColor(device.Right, device.Blue),
	}, func(ok bool) { done <- ok })

	if !waitCallback(t, done) {
		t.Fatal("batch with one connected device failed")
	}
	left := tr.handleFor("AA:BB:CC:DD:EE:01").recorded()
	if len(left) != 1 || left[0] != "C:0,0,255" {
		t.Fatalf("left writes = %v", left)
	}
}

func TestSendSimultaneouslyTimeoutKeepsHealthyPeer(t *testing.T) {
	c, tr := newTestController(t, Config{CommandTimeout: 80 * time.Millisecond})
	connect(t, c, device.Left)
	connect(t, c, device.Right)
	right := tr.handleFor("AA:BB:CC:DD:EE:02")
	right.mu.Lock()
	right.writeDelay = 400 * time.Millisecond
	right.mu.Unlock()

	done := make(chan bool, 1)
	c.SendSimultaneously([]device.Command{
		device.NewColor(device.Left, device.Red),
		device.NewColor(device.Right, device.Red),
	}, func(ok bool) { done <- ok })

	if waitCallback(t, done) {
		t.Fatal("batch with a hung peripheral reported success")
	}
	// The left write landed well before the batch timed out, so only
	// the straggler loses its connection.
	if !c.Connected(device.Left) {
		t.Fatal("healthy peer disconnected by the straggler's timeout")
	}
	if c.Connected(device.Right) {
		t.Fatal("hung peripheral still marked connected")
	}
	left := tr.handleFor("AA:BB:CC:DD:EE:01").recorded()
	if len(left) != 1 || left[0] != "C:255,0,0" {
		t.Fatalf("left writes = %v", left)
	}
}

func TestSendSimultaneouslyEmptyBatch(t *testing.T) {
	c, _ := newTestController(t, Config{})

	done := make(chan bool, 1)
	c.SendSimultaneously([]device.Command{
		device.NewColor(device.Left, device.Blue),
	}, func(ok bool) { done <- ok })

	// Nothing connected, so the filtered batch is empty and succeeds
	// trivially.
	if !waitCallback(t, done) {
		t.Fatal("empty batch reported failure")
	}
}

func TestApplySettings(t *testing.T) {
	c, tr := newTestController(t, Config{CommandInterval: 10 * time.Millisecond})
	connect(t, c, device.Left)
	h := tr.handleFor("AA:BB:CC:DD:EE:01")

	done := make(chan bool, 1)
	c.ApplySettings(device.Left, device.Settings{Auto: true}, func(ok bool) { done <- ok })
	waitCallback(t, done)
	c.ApplySettings(device.Left, device.Settings{Color: device.Red}, func(ok bool) { done <- ok })
	waitCallback(t, done)

	got := h.recorded()
	if len(got) != 2 || got[0] != "M:1" || got[1] != "C:255,0,0" {
		t.Fatalf("writes = %v, want [M:1 C:255,0,0]", got)
	}
}

func TestApplySettingsToBothNothingConnected(t *testing.T) {
	c, _ := newTestController(t, Config{})

	done := make(chan bool, 1)
	c.ApplySettingsToBoth(device.Settings{Auto: true}, func(ok bool) { done <- ok })
	if waitCallback(t, done) {
		t.Fatal("apply with nothing connected reported success")
	}
}

func TestScanAndConnectUnknownName(t *testing.T) {
	tr := newFakeTransport()
	tr.found = nil
	c := New(tr, events.New(), discardLogger(), Config{})
	c.Start()
	t.Cleanup(c.Stop)

	ok, err := c.ScanAndConnect(device.Left).Wait(2 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ok {
		t.Fatal("connect succeeded with no advertisement")
	}
	if c.Connected(device.Left) {
		t.Fatal("device marked connected after failed scan")
	}
}

func TestScanAndConnectAlreadyConnected(t *testing.T) {
	c, tr := newTestController(t, Config{})
	connect(t, c, device.Left)

	ok, err := c.ScanAndConnect(device.Left).Wait(2 * time.Second)
	if err != nil || !ok {
		t.Fatalf("repeat ScanAndConnect = %v, %v", ok, err)
	}
	// The live handle is kept, so the transport sees no second connect.
	if n := tr.connectCount(); n != 1 {
		t.Fatalf("transport Connect called %d times, want 1", n)
	}
	if !c.Connected(device.Left) {
		t.Fatal("device no longer connected after repeat call")
	}
}

func TestDisconnect(t *testing.T) {
	c, _ := newTestController(t, Config{})
	connect(t, c, device.Left)

	ok, err := c.Disconnect(device.Left).Wait(2 * time.Second)
	if err != nil || !ok {
		t.Fatalf("Disconnect = %v, %v", ok, err)
	}
	if c.Connected(device.Left) {
		t.Fatal("device still connected after disconnect")
	}

	ok, _ = c.Disconnect(device.Left).Wait(time.Second)
	if ok {
		t.Fatal("second disconnect reported success")
	}
}

func TestCheckConnectionDetectsLoss(t *testing.T) {
	c, tr := newTestController(t, Config{})
	connect(t, c, device.Left)

	ok, err := c.CheckConnection(device.Left).Wait(2 * time.Second)
	if err != nil || !ok {
		t.Fatalf("CheckConnection on live link = %v, %v", ok, err)
	}

	h := tr.handleFor("AA:BB:CC:DD:EE:01")
	h.mu.Lock()
	h.connected = false
	h.mu.Unlock()

	ok, err = c.CheckConnection(device.Left).Wait(2 * time.Second)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if ok {
		t.Fatal("probe reported a dead link as alive")
	}
	if c.Connected(device.Left) {
		t.Fatal("device still marked connected after negative probe")
	}
}

func TestUpdateAmbientColor(t *testing.T) {
	c, tr := newTestController(t, Config{AmbientTransition: 150 * time.Millisecond})
	connect(t, c, device.Left)
	connect(t, c, device.Right)
	h := tr.handleFor("AA:BB:CC:DD:EE:01")

	// Ignored while ambient mode is off.
	c.UpdateAmbientColor(device.Red)
	time.Sleep(50 * time.Millisecond)
	if writes := h.recorded(); len(writes) != 0 {
		t.Fatalf("ambient frame sent while disabled: %v", writes)
	}

	c.SetAmbientMode(true)
	c.UpdateAmbientColor(device.RGB{R: 10, G: 20, B: 30})

	deadline := time.Now().Add(2 * time.Second)
	for {
		writes := h.recorded()
		if len(writes) == 1 {
			if writes[0] != "T:10,20,30,150" {
				t.Fatalf("ambient frame = %q", writes[0])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ambient frame never arrived, writes = %v", writes)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
