package hidreport

// boot protocol 帧大小
const (
	KeyboardReportSize = 8 // modifier + reserved + 6 key slots
	MouseReportSize    = 4 // buttons + dx + dy + wheel
)

// FrameKind 区分帧类型, transport 的丢弃策略依赖它:
// 键盘帧绝不丢, 鼠标帧可丢
type FrameKind uint8

const (
	FrameKeyboard FrameKind = iota
	FrameMouse
)

func (k FrameKind) String() string {
	if k == FrameKeyboard {
		return "keyboard"
	}
	return "mouse"
}

// Report 一个编码完成的 HID report 帧, 原样写入 interrupt channel
type Report struct {
	Kind FrameKind
	Data []byte
}

func keyboardFrame(modifiers uint8, slots [6]uint8) Report {
	data := make([]byte, KeyboardReportSize)
	data[0] = modifiers
	// data[1] reserved
	copy(data[2:], slots[:])
	return Report{Kind: FrameKeyboard, Data: data}
}

func mouseFrame(buttons uint8, dx, dy, wheel int8) Report {
	return Report{
		Kind: FrameMouse,
		Data: []byte{buttons, byte(dx), byte(dy), byte(wheel)},
	}
}
