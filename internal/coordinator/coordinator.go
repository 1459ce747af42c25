// Package coordinator 驱动共享会话状态机:
// Idle → Starting → Sharing → Stopping → Idle
// 把捕获事件泵进编码器, 再把 report 帧交给 transport
package coordinator

import (
	"fmt"
	"sync"
	"time"

	"easyhid/internal/auditlog"
	"easyhid/internal/bluetooth"
	"easyhid/internal/capture"
	"easyhid/internal/config"
	"easyhid/internal/hidreport"
	"easyhid/internal/model"
	"easyhid/internal/sysutil"
)

type Coordinator struct {
	capturer  capture.Capturer
	transport bluetooth.Transport
	cfg       *config.Config

	mu       sync.Mutex
	phase    model.SharePhase
	stopPump chan struct{}

	changes chan model.StateChange
}

func New(capturer capture.Capturer, transport bluetooth.Transport, cfg *config.Config) *Coordinator {
	return &Coordinator{
		capturer:  capturer,
		transport: transport,
		cfg:       cfg,
		phase:     model.PhaseIdle,
		changes:   make(chan model.StateChange, 8),
	}
}

// Changes 状态变化流, 供 cmd 层观测; 消费慢时丢中间状态
func (c *Coordinator) Changes() <-chan model.StateChange {
	return c.changes
}

// Phase 当前阶段快照
func (c *Coordinator) Phase() model.SharePhase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// validTransition 状态机的唯一真相, 所有阶段变化都要过这里
func validTransition(from, to model.SharePhase) bool {
	switch from {
	case model.PhaseIdle:
		return to == model.PhaseStarting
	case model.PhaseStarting:
		return to == model.PhaseSharing || to == model.PhaseIdle
	case model.PhaseSharing:
		return to == model.PhaseStopping
	case model.PhaseStopping:
		return to == model.PhaseIdle
	}
	return false
}

// Share 启动共享: 并发抓设备 + 注册 profile, 任一失败则回滚另一半
// 只允许从 Idle 发起, 其他阶段返回错误
func (c *Coordinator) Share() error {
	c.mu.Lock()
	if c.phase != model.PhaseIdle {
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("cannot start sharing while %s", phase)
	}
	c.setPhaseLocked(model.PhaseStarting, nil)
	c.mu.Unlock()

	type captureResult struct {
		events <-chan model.RawInputEvent
		err    error
	}
	capCh := make(chan captureResult, 1)
	regCh := make(chan error, 1)
	go func() {
		events, err := c.capturer.Start()
		capCh <- captureResult{events, err}
	}()
	go func() {
		regCh <- c.transport.Register()
	}()

	capRes := <-capCh
	regErr := <-regCh

	if capRes.err != nil || regErr != nil {
		// 成功的那一半要收回去
		if capRes.err == nil {
			c.capturer.Stop()
		}
		if regErr == nil {
			c.transport.Unregister()
		}
		err := capRes.err
		if err == nil {
			err = regErr
		}
		c.mu.Lock()
		c.setPhaseLocked(model.PhaseIdle, err)
		c.mu.Unlock()
		auditlog.RecordPhase("idle", err.Error())
		return err
	}

	stopPump := make(chan struct{})
	c.mu.Lock()
	c.stopPump = stopPump
	c.setPhaseLocked(model.PhaseSharing, nil)
	c.mu.Unlock()

	go c.pump(capRes.events, stopPump)

	auditlog.RecordPhase("sharing", "")
	sysutil.LogSugar.Infow("🛡️ sharing started", "devices", len(c.capturer.Devices()))
	return nil
}

// Stop 优雅停止; 非 Sharing 阶段为 no-op, 重复调用安全
func (c *Coordinator) Stop() {
	c.stop(nil, "operator stop")
}

func (c *Coordinator) stop(cause error, detail string) {
	c.mu.Lock()
	if !validTransition(c.phase, model.PhaseStopping) {
		c.mu.Unlock()
		return
	}
	c.setPhaseLocked(model.PhaseStopping, nil)
	stopPump := c.stopPump
	c.stopPump = nil
	c.mu.Unlock()

	if stopPump != nil {
		close(stopPump)
	}

	// 顺序有讲究: 先还输入给本机, 再撤蓝牙侧
	c.capturer.Stop()
	c.transport.Unregister()

	c.mu.Lock()
	c.setPhaseLocked(model.PhaseIdle, cause)
	c.mu.Unlock()

	auditlog.RecordPhase("idle", detail)
	sysutil.LogSugar.Infow("sharing stopped", "reason", detail)
}

// pump 编码器主循环: 事件即时编码, 位移按节拍批量冲刷
// chord 信号每轮优先检查, 不排在事件队列后面
func (c *Coordinator) pump(events <-chan model.RawInputEvent, stop <-chan struct{}) {
	unmapped := func(code uint16) {
		sysutil.LogSugar.Warnw("key has no HID usage, ignored", "code", code)
		auditlog.RecordUnmappedKey(code)
	}
	enc := hidreport.NewEncoder(unmapped)
	ticker := time.NewTicker(c.cfg.Encoder.FlushInterval())
	defer ticker.Stop()

	for {
		select {
		case <-c.capturer.Chord():
			sysutil.LogSugar.Warn("🛑 emergency stop chord detected")
			go c.stop(nil, "emergency stop")
			return
		case <-stop:
			return
		default:
		}

		select {
		case <-c.capturer.Chord():
			sysutil.LogSugar.Warn("🛑 emergency stop chord detected")
			go c.stop(nil, "emergency stop")
			return
		case <-stop:
			return
		case err := <-c.capturer.Errors():
			sysutil.LogSugar.Errorw("input device lost during session", "error", err)
			go c.stop(err, "device lost")
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			for _, r := range enc.Encode(ev) {
				c.transport.Send(r)
			}
		case <-ticker.C:
			for _, r := range enc.Flush() {
				c.transport.Send(r)
			}
		}
	}
}

// setPhaseLocked 校验并发布阶段变化, 调用方持有 c.mu
func (c *Coordinator) setPhaseLocked(to model.SharePhase, err error) {
	if c.phase == to {
		return
	}
	if !validTransition(c.phase, to) {
		sysutil.LogSugar.Errorw("illegal phase transition dropped",
			"from", c.phase.String(), "to", to.String())
		return
	}
	c.phase = to
	select {
	case c.changes <- model.StateChange{Phase: to, Err: err}:
	default:
	}
}
