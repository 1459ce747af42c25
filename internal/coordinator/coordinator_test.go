package coordinator

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyhid/internal/bluetooth"
	"easyhid/internal/config"
	"easyhid/internal/hidreport"
	"easyhid/internal/model"
	"easyhid/internal/sysutil"
)

func TestMain(m *testing.M) {
	sysutil.InitLogger()
	m.Run()
}

// callLog 记录跨组件调用顺序, 校验 teardown 次序用
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, s)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeCapturer struct {
	log      *callLog
	events   chan model.RawInputEvent
	chord    chan struct{}
	errs     chan error
	startErr error
}

func newFakeCapturer(log *callLog) *fakeCapturer {
	return &fakeCapturer{
		log:    log,
		events: make(chan model.RawInputEvent, 16),
		chord:  make(chan struct{}, 1),
		errs:   make(chan error, 1),
	}
}

func (f *fakeCapturer) Start() (<-chan model.RawInputEvent, error) {
	f.log.add("capture.start")
	if f.startErr != nil {
		return nil, f.startErr
	}
	return f.events, nil
}

func (f *fakeCapturer) Chord() <-chan struct{} { return f.chord }
func (f *fakeCapturer) Errors() <-chan error   { return f.errs }

func (f *fakeCapturer) Devices() []model.DeviceInfo {
	return []model.DeviceInfo{{Path: "/dev/input/event3", Name: "kbd", Class: model.ClassKeyboard}}
}

func (f *fakeCapturer) Stop() { f.log.add("capture.stop") }

type fakeTransport struct {
	log    *callLog
	mu     sync.Mutex
	sent   []hidreport.Report
	regErr error
	states chan bluetooth.State
}

func newFakeTransport(log *callLog) *fakeTransport {
	return &fakeTransport{log: log, states: make(chan bluetooth.State, 8)}
}

func (f *fakeTransport) Register() error {
	f.log.add("transport.register")
	return f.regErr
}

func (f *fakeTransport) Send(r hidreport.Report) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, r)
}

func (f *fakeTransport) sentFrames() []hidreport.Report {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]hidreport.Report(nil), f.sent...)
}

func (f *fakeTransport) States() <-chan bluetooth.State { return f.states }
func (f *fakeTransport) State() bluetooth.State         { return bluetooth.StateUnregistered }
func (f *fakeTransport) Unregister()                    { f.log.add("transport.unregister") }

func newTestCoordinator(t *testing.T) (*Coordinator, *fakeCapturer, *fakeTransport, *callLog) {
	t.Helper()
	log := &callLog{}
	cap := newFakeCapturer(log)
	tr := newFakeTransport(log)
	cfg := config.Default()
	cfg.Encoder.FlushIntervalMs = 2
	return New(cap, tr, cfg), cap, tr, log
}

func TestShareReachesSharing(t *testing.T) {
	c, _, _, log := newTestCoordinator(t)

	require.NoError(t, c.Share())
	assert.Equal(t, model.PhaseSharing, c.Phase())
	assert.ElementsMatch(t, []string{"capture.start", "transport.register"}, log.snapshot())

	// 共享中再次 Share 被拒
	err := c.Share()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sharing")

	c.Stop()
}

func TestCaptureFailureRollsBackRegistration(t *testing.T) {
	c, cap, _, log := newTestCoordinator(t)
	cap.startErr = model.ErrGrabDenied

	err := c.Share()
	require.ErrorIs(t, err, model.ErrGrabDenied)
	assert.Equal(t, model.PhaseIdle, c.Phase())
	assert.Contains(t, log.snapshot(), "transport.unregister")
	assert.NotContains(t, log.snapshot(), "capture.stop")
}

func TestRegisterFailureReleasesGrabs(t *testing.T) {
	c, _, tr, log := newTestCoordinator(t)
	tr.regErr = &model.ProfileConflictError{DBusName: "org.bluez.Error.NotPermitted"}

	err := c.Share()
	require.ErrorIs(t, err, model.ErrProfileConflict)
	assert.Equal(t, model.PhaseIdle, c.Phase())
	assert.Contains(t, log.snapshot(), "capture.stop")
	assert.NotContains(t, log.snapshot(), "transport.unregister")
}

func TestStopTeardownOrder(t *testing.T) {
	c, _, _, log := newTestCoordinator(t)
	require.NoError(t, c.Share())

	c.Stop()
	assert.Equal(t, model.PhaseIdle, c.Phase())

	calls := log.snapshot()
	stopIdx, unregIdx := -1, -1
	for i, call := range calls {
		switch call {
		case "capture.stop":
			stopIdx = i
		case "transport.unregister":
			unregIdx = i
		}
	}
	require.GreaterOrEqual(t, stopIdx, 0)
	require.GreaterOrEqual(t, unregIdx, 0)
	assert.Less(t, stopIdx, unregIdx, "grabs must be released before profile teardown")

	// 重复 Stop 是 no-op
	before := len(log.snapshot())
	c.Stop()
	assert.Len(t, log.snapshot(), before)
}

func TestShareStopShareCycle(t *testing.T) {
	c, cap, tr, log := newTestCoordinator(t)

	require.NoError(t, c.Share())
	c.Stop()
	require.Equal(t, model.PhaseIdle, c.Phase())

	// 同一套 wiring 上的第二个会话必须完整可用
	require.NoError(t, c.Share())
	assert.Equal(t, model.PhaseSharing, c.Phase())

	cap.events <- model.RawInputEvent{Kind: model.KindKeyDown, Code: model.KeyA}
	require.Eventually(t, func() bool {
		return len(tr.sentFrames()) >= 1
	}, time.Second, 5*time.Millisecond, "second session must still deliver events")

	c.Stop()
	assert.Equal(t, model.PhaseIdle, c.Phase())

	// 两次 Stop 各释放一次设备
	releases := 0
	for _, call := range log.snapshot() {
		if call == "capture.stop" {
			releases++
		}
	}
	assert.Equal(t, 2, releases)
}

func TestEventsFlowToTransport(t *testing.T) {
	c, cap, tr, _ := newTestCoordinator(t)
	require.NoError(t, c.Share())
	defer c.Stop()

	cap.events <- model.RawInputEvent{Kind: model.KindKeyDown, Code: model.KeyA}

	require.Eventually(t, func() bool {
		return len(tr.sentFrames()) >= 1
	}, time.Second, 5*time.Millisecond)

	frames := tr.sentFrames()
	assert.Equal(t, hidreport.FrameKeyboard, frames[0].Kind)
	assert.Equal(t, byte(0x04), frames[0].Data[2])
}

func TestMotionFlushedOnTick(t *testing.T) {
	c, cap, tr, _ := newTestCoordinator(t)
	require.NoError(t, c.Share())
	defer c.Stop()

	cap.events <- model.RawInputEvent{Kind: model.KindRelMove, Code: model.RelX, Value: 5}
	cap.events <- model.RawInputEvent{Kind: model.KindRelMove, Code: model.RelX, Value: 3}

	require.Eventually(t, func() bool {
		return len(tr.sentFrames()) >= 1
	}, time.Second, 5*time.Millisecond)

	frames := tr.sentFrames()
	assert.Equal(t, hidreport.FrameMouse, frames[0].Kind)
}

func TestChordStopsSharing(t *testing.T) {
	c, cap, _, log := newTestCoordinator(t)
	require.NoError(t, c.Share())

	cap.chord <- struct{}{}

	require.Eventually(t, func() bool {
		return c.Phase() == model.PhaseIdle
	}, time.Second, 5*time.Millisecond)
	assert.Contains(t, log.snapshot(), "capture.stop")
	assert.Contains(t, log.snapshot(), "transport.unregister")
}

func TestDeviceLossStopsWithError(t *testing.T) {
	c, cap, _, _ := newTestCoordinator(t)
	require.NoError(t, c.Share())

	lost := errors.New("event3 went away")
	cap.errs <- lost

	require.Eventually(t, func() bool {
		return c.Phase() == model.PhaseIdle
	}, time.Second, 5*time.Millisecond)
}

func TestStateChangesPublished(t *testing.T) {
	c, _, _, _ := newTestCoordinator(t)

	require.NoError(t, c.Share())
	c.Stop()

	var phases []model.SharePhase
	for {
		select {
		case ch := <-c.Changes():
			phases = append(phases, ch.Phase)
			continue
		default:
		}
		break
	}
	assert.Equal(t, []model.SharePhase{
		model.PhaseStarting, model.PhaseSharing, model.PhaseStopping, model.PhaseIdle,
	}, phases)
}
