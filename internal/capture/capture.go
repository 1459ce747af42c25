// Package capture 独占抓取物理输入设备, 把 input_event 复用成单一有序事件流,
// 并在旁路通道上发出紧急停止信号
package capture

import (
	"easyhid/internal/config"
	"easyhid/internal/model"
)

// Capturer 定义接口
type Capturer interface {
	// Start 枚举/过滤/抓取设备并启动 reader, 返回 fan-in 事件流
	// 失败返回 model.ErrDeviceUnavailable 或 model.ErrGrabDenied
	Start() (<-chan model.RawInputEvent, error)

	// Chord 紧急停止信号, 旁路高优先级通道, 不经过事件队列
	Chord() <-chan struct{}

	// Errors 会话中途的设备级致命错误 (如设备被拔出)
	Errors() <-chan error

	// Devices 本次会话抓取到的设备, Start 成功后有效
	Devices() []model.DeviceInfo

	// Stop 释放所有 grab 并停止 reader; 幂等, 重复调用是 no-op
	Stop()
}

func New(cfg config.CaptureConfig) Capturer {
	return newCapturer(cfg)
}
