package model

import "time"

// EventKind 按语义分类, 不直接暴露 evdev type/code 组合
type EventKind uint8

const (
	KindKeyDown EventKind = iota
	KindKeyUp
	KindKeyHold // autorepeat, 状态已跟踪, 编码器忽略
	KindRelMove
	KindWheel
	KindButtonDown
	KindButtonUp
)

// RawInputEvent 从被抓取设备解码出的单个 input_event
// 由 reader goroutine 产生一次, 编码器消费一次
type RawInputEvent struct {
	Device    string // /dev/input/eventX
	Kind      EventKind
	Code      uint16 // evdev key/button code, REL_* 轴
	Value     int32
	TimeStamp time.Time
}

// DeviceClass 设备类型 (tagged variant, 不用继承)
type DeviceClass uint8

const (
	ClassKeyboard DeviceClass = iota
	ClassPointer
)

func (c DeviceClass) String() string {
	if c == ClassKeyboard {
		return "keyboard"
	}
	return "pointer"
}

// Capabilities 设备被选中时的 evdev 能力集
type Capabilities struct {
	Keys    bool // 键盘键区 (字母/数字)
	Buttons bool // BTN_LEFT..BTN_MIDDLE
	RelAxes bool // EV_REL 相对轴
}

// DeviceInfo 描述一个被独占抓取的物理输入源
type DeviceInfo struct {
	Path  string
	Name  string // EVIOCGNAME
	Class DeviceClass
	Caps  Capabilities
}
