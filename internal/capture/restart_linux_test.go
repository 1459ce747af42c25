//go:build linux

package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"easyhid/internal/config"
	"easyhid/internal/model"
	"easyhid/internal/sysutil"
)

func TestMain(m *testing.M) {
	sysutil.InitLogger()
	m.Run()
}

// pipeDevice 用管道读端冒充一个已抓取的设备 fd
func pipeDevice(t *testing.T, path string) *grabbedDevice {
	t.Helper()
	var p [2]int
	require.NoError(t, unix.Pipe(p[:]))
	t.Cleanup(func() { unix.Close(p[1]) })
	return &grabbedDevice{
		info: model.DeviceInfo{Path: path, Name: "fake", Class: model.ClassKeyboard},
		fd:   p[0],
	}
}

func fdOpen(fd int) bool {
	_, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	return err == nil
}

func TestStopReleasesEachSessionsDevices(t *testing.T) {
	c := newCapturer(config.CaptureConfig{EventBuffer: 4}).(*linuxCapturer)

	d1 := pipeDevice(t, "/dev/input/event91")
	s1 := newCaptureSession(4)
	s1.devices = []*grabbedDevice{d1}
	c.session = s1

	c.Stop()
	assert.False(t, fdOpen(d1.fd), "first session must release its device")

	// 第二个会话: Stop 必须释放它自己的设备, 不受第一次 Stop 影响
	d2 := pipeDevice(t, "/dev/input/event92")
	s2 := newCaptureSession(4)
	s2.devices = []*grabbedDevice{d2}
	c.session = s2
	assert.False(t, s2.stopped())

	c.Stop()
	assert.False(t, fdOpen(d2.fd), "second session must release its device")
	assert.True(t, s2.stopped())

	// 重复 Stop 仍是 no-op
	c.Stop()
}

func TestDispatchAfterRestartDeliversEvents(t *testing.T) {
	d := pipeDevice(t, "/dev/input/event93")

	s1 := newCaptureSession(4)
	s1.shutdown()

	// 新会话的停止信号与通道都是全新的, 不继承上一个会话
	s2 := newCaptureSession(4)
	require.True(t, s1.stopped())
	require.False(t, s2.stopped())

	ok := s2.dispatch(d, model.EvKey, model.KeyA, model.KeyValueDown)
	assert.True(t, ok)

	select {
	case ev := <-s2.events:
		assert.Equal(t, model.KindKeyDown, ev.Kind)
		assert.Equal(t, model.KeyA, ev.Code)
	default:
		t.Fatal("event was not delivered to the new session")
	}
}
