package model

// InputEventSize input_event 结构体大小 (linux/input.h, x86_64)
/*
struct input_event {
	struct timeval time; // 16 字节
	__u16 type;
	__u16 code;
	__s32 value;
};
*/
const InputEventSize = 24

// evdev event types
const (
	EvSyn uint16 = 0x00
	EvKey uint16 = 0x01
	EvRel uint16 = 0x02
)

// evdev key values
const (
	KeyValueUp   int32 = 0
	KeyValueDown int32 = 1
	KeyValueHold int32 = 2
)

// relative axes
const (
	RelX     uint16 = 0x00
	RelY     uint16 = 0x01
	RelWheel uint16 = 0x08
)

// 紧急停止组合键 (evdev codes): 左Shift + 空格 + 右Shift
const (
	KeyLeftShift  uint16 = 42
	KeySpace      uint16 = 57
	KeyRightShift uint16 = 54
)

// 鼠标按键 (evdev codes)
const (
	BtnLeft   uint16 = 272
	BtnRight  uint16 = 273
	BtnMiddle uint16 = 274
)

// 设备能力探测用的参考键位
const (
	KeyEsc   uint16 = 1
	KeyA     uint16 = 30
	KeyEnter uint16 = 28
)
