// Package bluetooth 通过 BlueZ D-Bus API 把本机注册为 Bluetooth HID 设备,
// 管理连接生命周期并把 report 帧写入 interrupt channel
package bluetooth

import (
	"easyhid/internal/config"
	"easyhid/internal/hidreport"
)

// State transport 状态机:
// Unregistered → Registering → Discoverable → Connected → Disconnected → Discoverable
// Unregister 从任意状态回到 Unregistered
type State uint8

const (
	StateUnregistered State = iota
	StateRegistering
	StateDiscoverable
	StateConnected
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistering:
		return "registering"
	case StateDiscoverable:
		return "discoverable"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// Transport 定义接口
type Transport interface {
	// Register 向蓝牙栈提交 profile 并请求可发现; 成功后进入 Discoverable
	// profile 被其他进程占用时返回 *model.ProfileConflictError, 不自动重试
	Register() error

	// Send 把帧排入发送队列; 背压时按丢弃策略处理 (见 queue.go)
	// 未连接 peer 时帧被丢弃
	Send(r hidreport.Report)

	// States 状态变化流, 供观测; 消费慢时会丢中间状态
	States() <-chan State

	// State 当前状态快照
	State() State

	// Unregister 撤销 profile 注册并断开 peer; 只由 coordinator 在 Stop 时调用; 幂等
	Unregister()
}

func New(cfg config.BluetoothConfig) Transport {
	return newTransport(cfg)
}
