//go:build linux

package capture

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"
	"unsafe"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"easyhid/internal/config"
	"easyhid/internal/model"
	"easyhid/internal/sysutil"
)

// evdev ioctl 编号 (linux/input.h)
const (
	evioGrab = 0x40044590 // EVIOCGRAB
	evioName = 0x81004506 // EVIOCGNAME(256)

	keyBitsLen = 96 // KEY_MAX/8+1, 覆盖全部键位
	relBitsLen = 8
)

// EVIOCGBIT(ev, len): _IOC(READ, 'E', 0x20+ev, len)
func evioBits(ev uint16, length int) uint {
	return 0x80000000 | uint(length)<<16 | 0x45<<8 | uint(0x20+ev)
}

type grabbedDevice struct {
	info model.DeviceInfo
	fd   int
	once sync.Once // grab 释放一次, 幂等
}

// release 先还回 grab 再关 fd; 重复调用是 no-op
func (d *grabbedDevice) release() {
	d.once.Do(func() {
		_ = unix.IoctlSetInt(d.fd, evioGrab, 0)
		_ = unix.Close(d.fd)
		sysutil.Log.Info("released device",
			zap.String("path", d.info.Path),
			zap.String("name", d.info.Name))
	})
}

// captureSession 一次共享会话的全部运行态: 通道、停止信号、抓取的设备
// Start 每次新建, 旧会话的缓冲和停止状态不会漏进新会话
type captureSession struct {
	events   chan model.RawInputEvent
	chord    chan struct{}
	errs     chan error
	stop     chan struct{}
	stopOnce sync.Once

	devices []*grabbedDevice
	tracker *chordTracker // 只被键盘 reader goroutine 访问
	hotplug *hotplugWatcher
}

func newCaptureSession(buffer int) *captureSession {
	return &captureSession{
		events:  make(chan model.RawInputEvent, buffer),
		chord:   make(chan struct{}, 1),
		errs:    make(chan error, 4),
		stop:    make(chan struct{}),
		tracker: newChordTracker(),
	}
}

func (s *captureSession) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// shutdown 释放本会话的全部 grab 并停掉 reader; 幂等
func (s *captureSession) shutdown() {
	s.stopOnce.Do(func() {
		close(s.stop)
		for _, d := range s.devices {
			d.release()
		}
		if s.hotplug != nil {
			s.hotplug.stop()
		}
	})
}

type linuxCapturer struct {
	cfg config.CaptureConfig

	mu      sync.Mutex
	session *captureSession
}

func newCapturer(cfg config.CaptureConfig) Capturer {
	return &linuxCapturer{cfg: cfg}
}

func (c *linuxCapturer) Start() (<-chan model.RawInputEvent, error) {
	c.mu.Lock()
	if c.session != nil && !c.session.stopped() {
		c.mu.Unlock()
		return nil, errors.New("capture already running")
	}
	c.mu.Unlock()

	infos, err := c.selectDevices()
	if err != nil {
		return nil, err
	}

	s := newCaptureSession(c.cfg.EventBuffer)

	// 全有或全无: 任何一个 grab 失败就释放已抓到的
	for _, info := range infos {
		d, err := openAndGrab(info)
		if err != nil {
			for _, g := range s.devices {
				g.release()
			}
			return nil, err
		}
		s.devices = append(s.devices, d)
		sysutil.Log.Info("🔒 grabbed device",
			zap.String("path", info.Path),
			zap.String("name", info.Name),
			zap.String("class", info.Class.String()))
	}

	// udev 热插拔监听: 抓取中的设备被拔出属于会话级致命错误
	paths := make(map[string]bool, len(s.devices))
	for _, d := range s.devices {
		paths[d.info.Path] = true
	}
	hw, err := startHotplug(paths, func(devName string) {
		select {
		case s.errs <- fmt.Errorf("%w: %s removed while grabbed", model.ErrDeviceUnavailable, devName):
		default:
		}
	})
	if err != nil {
		// 热插拔监听是增强, 拿不到 netlink 不影响会话
		sysutil.LogSugar.Warnf("hotplug watch unavailable: %v", err)
	} else {
		s.hotplug = hw
	}

	c.mu.Lock()
	c.session = s
	c.mu.Unlock()

	for _, d := range s.devices {
		go s.readLoop(d)
	}
	return s.events, nil
}

func (c *linuxCapturer) Chord() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.chord
}

func (c *linuxCapturer) Errors() <-chan error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	return c.session.errs
}

func (c *linuxCapturer) Devices() []model.DeviceInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	out := make([]model.DeviceInfo, 0, len(c.session.devices))
	for _, d := range c.session.devices {
		out = append(out, d.info)
	}
	return out
}

// Stop 释放当前会话的全部 grab; 宿主机必须在任何其他清理动作之前拿回输入
// 只作用于当前会话, 不妨碍之后再 Start 一个新会话
func (c *linuxCapturer) Stop() {
	c.mu.Lock()
	s := c.session
	c.mu.Unlock()
	if s != nil {
		s.shutdown()
	}
}

// selectDevices 枚举候选并过滤出一个键盘 + 最多一个指针设备
// 键盘是硬性要求; 没有独立指针设备时走键盘单设备模式 (触控板内置场景)
func (c *linuxCapturer) selectDevices() ([]model.DeviceInfo, error) {
	paths := c.cfg.Devices
	if len(paths) == 0 {
		var err error
		paths, err = filepath.Glob("/dev/input/event*")
		if err != nil || len(paths) == 0 {
			return nil, fmt.Errorf("%w: no /dev/input/event* nodes", model.ErrDeviceUnavailable)
		}
	}

	var keyboard, pointer *model.DeviceInfo
	for _, path := range paths {
		info, err := probeDevice(path)
		if err != nil {
			// 显式指定的设备探测失败是致命的; 自动枚举时跳过
			if len(c.cfg.Devices) > 0 {
				return nil, fmt.Errorf("%w: %s: %v", model.ErrDeviceUnavailable, path, err)
			}
			continue
		}

		switch {
		case info.Class == model.ClassKeyboard && keyboard == nil:
			keyboard = info
		case info.Class == model.ClassPointer && pointer == nil:
			pointer = info
		}
		if keyboard != nil && pointer != nil {
			break
		}
	}

	if keyboard == nil {
		return nil, fmt.Errorf("%w: no keyboard-capable device found", model.ErrDeviceUnavailable)
	}

	out := []model.DeviceInfo{*keyboard}
	if pointer != nil {
		out = append(out, *pointer)
	} else {
		sysutil.Log.Warn("no dedicated pointer device, sharing keyboard only")
	}
	return out, nil
}

// probeDevice 打开节点读取名称和能力位图, 分类后立刻关闭
func probeDevice(path string) (*model.DeviceInfo, error) {
	fd, err := unix.Open(path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer unix.Close(fd)

	name := deviceName(fd)

	var keyBits [keyBitsLen]byte
	var relBits [relBitsLen]byte
	_ = ioctlBytes(fd, evioBits(model.EvKey, keyBitsLen), keyBits[:])
	_ = ioctlBytes(fd, evioBits(model.EvRel, relBitsLen), relBits[:])

	caps := model.Capabilities{
		Keys:    hasBit(keyBits[:], model.KeyA) && hasBit(keyBits[:], model.KeyEnter),
		Buttons: hasBit(keyBits[:], model.BtnLeft),
		RelAxes: hasBit(relBits[:], model.RelX) && hasBit(relBits[:], model.RelY),
	}

	info := &model.DeviceInfo{Path: path, Name: name, Caps: caps}
	switch {
	case caps.Keys && !caps.Buttons:
		info.Class = model.ClassKeyboard
	case caps.Buttons || caps.RelAxes:
		info.Class = model.ClassPointer
	default:
		return nil, fmt.Errorf("no keyboard or pointer capability")
	}
	return info, nil
}

func openAndGrab(info model.DeviceInfo) (*grabbedDevice, error) {
	fd, err := unix.Open(info.Path, unix.O_RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", model.ErrDeviceUnavailable, info.Path, err)
	}
	if err := unix.IoctlSetInt(fd, evioGrab, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: EVIOCGRAB %s: %v", model.ErrGrabDenied, info.Path, err)
	}
	return &grabbedDevice{info: info, fd: fd}, nil
}

// readLoop 每个设备一个阻塞 reader, 解码 input_event 后 fan-in 到共享通道
// 单设备事件序保持不变; 跨设备按到达顺序交织, 不做全局重排
func (s *captureSession) readLoop(d *grabbedDevice) {
	buf := make([]byte, model.InputEventSize*64)
	for {
		n, err := unix.Read(d.fd, buf)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			select {
			case <-s.stop:
				// shutdown 关掉了 fd, 正常退出
			default:
				select {
				case s.errs <- fmt.Errorf("%w: read %s: %v", model.ErrDeviceUnavailable, d.info.Path, err):
				default:
				}
			}
			return
		}
		for off := 0; off+model.InputEventSize <= n; off += model.InputEventSize {
			typ := binary.LittleEndian.Uint16(buf[off+16:])
			code := binary.LittleEndian.Uint16(buf[off+18:])
			value := int32(binary.LittleEndian.Uint32(buf[off+20:]))
			if !s.dispatch(d, typ, code, value) {
				return
			}
		}
	}
}

// dispatch 返回 false 表示会话已停止, reader 应退出
func (s *captureSession) dispatch(d *grabbedDevice, typ, code uint16, value int32) bool {
	ev := model.RawInputEvent{Device: d.info.Path, Code: code, Value: value, TimeStamp: time.Now()}

	switch typ {
	case model.EvKey:
		if isButton(code) {
			if value == model.KeyValueHold {
				return true
			}
			if value == model.KeyValueDown {
				ev.Kind = model.KindButtonDown
			} else {
				ev.Kind = model.KindButtonUp
			}
		} else {
			// 组合键检测走旁路信号, 触发事件本身不再转发
			if d.info.Class == model.ClassKeyboard && s.tracker.update(code, value) {
				sysutil.Log.Info("🛑 emergency chord detected")
				select {
				case s.chord <- struct{}{}:
				default:
				}
				return true
			}
			switch value {
			case model.KeyValueDown:
				ev.Kind = model.KindKeyDown
			case model.KeyValueUp:
				ev.Kind = model.KindKeyUp
			default:
				ev.Kind = model.KindKeyHold
			}
		}
	case model.EvRel:
		switch code {
		case model.RelX, model.RelY:
			ev.Kind = model.KindRelMove
		case model.RelWheel:
			ev.Kind = model.KindWheel
		default:
			return true
		}
	default:
		return true
	}

	select {
	case s.events <- ev:
		return true
	case <-s.stop:
		return false
	}
}

func isButton(code uint16) bool {
	return code >= model.BtnLeft && code <= model.BtnMiddle
}

func hasBit(bits []byte, code uint16) bool {
	idx := int(code) / 8
	if idx >= len(bits) {
		return false
	}
	return bits[idx]&(1<<(code%8)) != 0
}

func deviceName(fd int) string {
	var name [256]byte
	if err := ioctlBytes(fd, evioName, name[:]); err != nil {
		return "unknown"
	}
	for i, b := range name {
		if b == 0 {
			return string(name[:i])
		}
	}
	return string(name[:])
}

func ioctlBytes(fd int, req uint, buf []byte) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL,
		uintptr(fd),
		uintptr(req),
		uintptr(unsafe.Pointer(&buf[0])),
	)
	if errno != 0 {
		return fmt.Errorf("ioctl error: %d", errno)
	}
	return nil
}
