//go:build linux

package bluetooth

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"

	"easyhid/internal/auditlog"
	"easyhid/internal/config"
	"easyhid/internal/hidreport"
	"easyhid/internal/model"
	"easyhid/internal/sysutil"
)

// BlueZ D-Bus constants
const (
	bluezService        = "org.bluez"
	bluezRootPath       = "/org/bluez"
	profileManagerIface = "org.bluez.ProfileManager1"
	profileIface        = "org.bluez.Profile1"
	adapterIface        = "org.bluez.Adapter1"
	objectManagerIface  = "org.freedesktop.DBus.ObjectManager"
	propertiesIface     = "org.freedesktop.DBus.Properties"

	dbusErrNotPermitted = "org.bluez.Error.NotPermitted"
)

type linuxTransport struct {
	cfg config.BluetoothConfig

	mu          sync.Mutex
	conn        *dbus.Conn
	adapterPath dbus.ObjectPath
	registered  bool
	state       State
	session     *HIDSession
	queue       *sendQueue

	states chan State
}

func newTransport(cfg config.BluetoothConfig) Transport {
	return &linuxTransport{
		cfg:    cfg,
		state:  StateUnregistered,
		states: make(chan State, 8),
	}
}

// profileHandler 导出为 org.bluez.Profile1 对象, bluezd 回调入口
type profileHandler struct {
	t *linuxTransport
}

func (t *linuxTransport) Register() error {
	t.mu.Lock()
	if t.registered {
		t.mu.Unlock()
		return nil
	}
	t.setStateLocked(StateRegistering)
	t.mu.Unlock()

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		t.failRegister()
		return fmt.Errorf("connect system bus: %w", err)
	}

	adapterPath, err := findAdapter(conn, t.cfg.Adapter)
	if err != nil {
		conn.Close()
		t.failRegister()
		return err
	}

	if err := conn.Export(&profileHandler{t: t}, profileObjectPath, profileIface); err != nil {
		conn.Close()
		t.failRegister()
		return fmt.Errorf("export profile object: %w", err)
	}

	opts := map[string]dbus.Variant{
		"Name":                  dbus.MakeVariant("EasyHID"),
		"Role":                  dbus.MakeVariant("server"),
		"ServiceRecord":         dbus.MakeVariant(sdpRecord(t.cfg.DeviceName)),
		"RequireAuthentication": dbus.MakeVariant(false),
		"RequireAuthorization":  dbus.MakeVariant(false),
	}
	manager := conn.Object(bluezService, bluezRootPath)
	call := manager.Call(profileManagerIface+".RegisterProfile", 0,
		dbus.ObjectPath(profileObjectPath), hidProfileUUID, opts)
	if call.Err != nil {
		conn.Close()
		t.failRegister()
		err := classifyRegisterError(call.Err)
		if errors.Is(err, model.ErrProfileConflict) {
			sysutil.LogSugar.Errorw("HID profile registration rejected", "error", err)
			sysutil.LogSugar.Error(model.RemediationHint)
		}
		return err
	}

	if err := setAdapterVisible(conn, adapterPath, t.cfg.DeviceName, true); err != nil {
		// profile 已注册, 回滚后报错
		_ = manager.Call(profileManagerIface+".UnregisterProfile", 0,
			dbus.ObjectPath(profileObjectPath)).Err
		conn.Close()
		t.failRegister()
		return err
	}

	t.mu.Lock()
	t.conn = conn
	t.adapterPath = adapterPath
	t.registered = true
	t.setStateLocked(StateDiscoverable)
	t.mu.Unlock()

	sysutil.LogSugar.Infow("📡 HID profile registered, adapter discoverable",
		"adapter", string(adapterPath), "name", t.cfg.DeviceName)
	return nil
}

func (t *linuxTransport) Send(r hidreport.Report) {
	t.mu.Lock()
	q := t.queue
	connected := t.state == StateConnected
	t.mu.Unlock()
	if !connected || q == nil {
		return
	}
	q.push(r)
}

func (t *linuxTransport) States() <-chan State {
	return t.states
}

func (t *linuxTransport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *linuxTransport) Unregister() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.session != nil {
		t.session.close()
		auditlog.RecordSessionEnd(t.session.ID)
		t.session = nil
	}
	if t.queue != nil {
		t.queue.close()
		t.queue = nil
	}
	if !t.registered {
		t.setStateLocked(StateUnregistered)
		return
	}
	t.registered = false

	// 先撤可发现再撤 profile, 避免撤销间隙里还有新 peer 进来
	if err := setAdapterVisible(t.conn, t.adapterPath, t.cfg.DeviceName, false); err != nil {
		sysutil.LogSugar.Warnw("disable discoverable failed", "error", err)
	}
	manager := t.conn.Object(bluezService, bluezRootPath)
	if err := manager.Call(profileManagerIface+".UnregisterProfile", 0,
		dbus.ObjectPath(profileObjectPath)).Err; err != nil {
		sysutil.LogSugar.Warnw("unregister profile failed", "error", err)
	}
	t.conn.Close()
	t.conn = nil
	t.setStateLocked(StateUnregistered)
	sysutil.LogSugar.Info("HID profile unregistered")
}

// NewConnection bluezd 送来一条新连接, fd 即 interrupt channel
// 同时只允许一个 peer: 已有会话时拒绝并关掉 fd
func (h *profileHandler) NewConnection(device dbus.ObjectPath, fd dbus.UnixFD, props map[string]dbus.Variant) *dbus.Error {
	t := h.t
	file := os.NewFile(uintptr(fd), "hid-interrupt")

	t.mu.Lock()
	if t.session != nil {
		t.mu.Unlock()
		_ = file.Close()
		sysutil.LogSugar.Warnw("second HID connection rejected", "peer", string(device))
		return dbus.NewError("org.bluez.Error.Rejected", []interface{}{"already connected"})
	}
	sess := newHIDSession(string(device), file)
	q := newSendQueue(t.cfg.SendQueueDepth)
	t.session = sess
	t.queue = q
	t.setStateLocked(StateConnected)
	t.mu.Unlock()

	sysutil.LogSugar.Infow("🔗 HID peer connected", "peer", sess.Peer, "session", sess.ID)
	auditlog.RecordSessionStart(sess.ID, sess.Peer)
	go t.writeLoop(sess, q)
	return nil
}

func (h *profileHandler) RequestDisconnection(device dbus.ObjectPath) *dbus.Error {
	sysutil.LogSugar.Infow("HID peer requested disconnect", "peer", string(device))
	h.t.dropSession(string(device))
	return nil
}

func (h *profileHandler) Release() *dbus.Error {
	sysutil.LogSugar.Warn("HID profile released by bluezd")
	h.t.dropSession("")
	return nil
}

// writeLoop 串行消费发送队列, 写失败按配置重试, 耗尽后断开并回到可发现
func (t *linuxTransport) writeLoop(sess *HIDSession, q *sendQueue) {
	for {
		r, ok := q.pop()
		if !ok {
			return
		}
		if err := t.writeWithRetry(sess, r.Data); err != nil {
			sysutil.LogSugar.Warnw("interrupt channel write failed, dropping peer",
				"peer", sess.Peer, "session", sess.ID,
				"error", fmt.Errorf("%w: %v", model.ErrTransportTransient, err))
			t.dropSession(sess.Peer)
			return
		}
	}
}

func (t *linuxTransport) writeWithRetry(sess *HIDSession, frame []byte) error {
	var err error
	for attempt := 0; attempt <= t.cfg.WriteRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(t.cfg.WriteBackoff())
		}
		if err = sess.write(frame); err == nil {
			return nil
		}
	}
	return err
}

// dropSession 关闭当前会话并自动恢复可发现状态; peer 为空表示无条件
// 输入捕获不受影响, 由 coordinator 决定是否停止共享
func (t *linuxTransport) dropSession(peer string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.session == nil || (peer != "" && t.session.Peer != peer) {
		return
	}
	t.session.close()
	auditlog.RecordSessionEnd(t.session.ID)
	t.session = nil
	if t.queue != nil {
		t.queue.close()
		t.queue = nil
	}
	t.setStateLocked(StateDisconnected)

	if t.registered {
		if err := setAdapterVisible(t.conn, t.adapterPath, t.cfg.DeviceName, true); err != nil {
			sysutil.LogSugar.Warnw("re-enable discoverable failed", "error", err)
		}
		t.setStateLocked(StateDiscoverable)
		sysutil.LogSugar.Info("📡 peer gone, adapter discoverable again")
	}
}

func (t *linuxTransport) failRegister() {
	t.mu.Lock()
	t.setStateLocked(StateUnregistered)
	t.mu.Unlock()
}

// setStateLocked 记录状态并非阻塞发布, 调用方持有 t.mu
func (t *linuxTransport) setStateLocked(s State) {
	if t.state == s {
		return
	}
	t.state = s
	select {
	case t.states <- s:
	default:
	}
}

// findAdapter 在 ObjectManager 树里找适配器, 优先匹配配置的名字 (如 hci0)
func findAdapter(conn *dbus.Conn, want string) (dbus.ObjectPath, error) {
	var objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	root := conn.Object(bluezService, "/")
	if err := root.Call(objectManagerIface+".GetManagedObjects", 0).Store(&objects); err != nil {
		return "", fmt.Errorf("enumerate bluez objects: %w", err)
	}

	var first dbus.ObjectPath
	for path, ifaces := range objects {
		if _, ok := ifaces[adapterIface]; !ok {
			continue
		}
		if strings.HasSuffix(string(path), "/"+want) {
			return path, nil
		}
		if first == "" {
			first = path
		}
	}
	if first != "" {
		sysutil.LogSugar.Warnw("configured adapter not found, using first available",
			"want", want, "using", string(first))
		return first, nil
	}
	return "", errors.New("no bluetooth adapter found")
}

// setAdapterVisible 设置别名与可发现/可配对属性
func setAdapterVisible(conn *dbus.Conn, adapter dbus.ObjectPath, alias string, visible bool) error {
	obj := conn.Object(bluezService, adapter)
	set := func(prop string, value interface{}) error {
		return obj.Call(propertiesIface+".Set", 0, adapterIface, prop, dbus.MakeVariant(value)).Err
	}
	if visible {
		if err := set("Alias", alias); err != nil {
			sysutil.LogSugar.Warnw("set adapter alias failed", "error", err)
		}
		if err := set("Pairable", true); err != nil {
			return fmt.Errorf("set pairable: %w", err)
		}
		if err := set("Discoverable", true); err != nil {
			return fmt.Errorf("set discoverable: %w", err)
		}
		return nil
	}
	if err := set("Discoverable", false); err != nil {
		return err
	}
	return set("Pairable", false)
}

// classifyRegisterError 识别 profile 被占用的情形 (典型: bluezd input plugin)
func classifyRegisterError(err error) error {
	var dberr dbus.Error
	if errors.As(err, &dberr) {
		body := strings.ToLower(fmt.Sprint(dberr.Body...))
		if dberr.Name == dbusErrNotPermitted || strings.Contains(body, "already registered") {
			return &model.ProfileConflictError{DBusName: dberr.Name}
		}
		return fmt.Errorf("register profile: %w", err)
	}
	return fmt.Errorf("register profile: %w", err)
}
