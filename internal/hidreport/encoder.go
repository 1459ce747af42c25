package hidreport

import "easyhid/internal/model"

// Encoder 把 RawInputEvent 流编码为 boot protocol 帧
// 维护三块状态: 6 个 key slot, modifier 位, 指针累加器
// 单 goroutine 消费, 不加锁 (见并发模型: 单一编码器保证帧序)
type Encoder struct {
	slots     [6]uint8 // 非修饰键 usage, 0 = 空槽
	modifiers uint8
	buttons   uint8

	// 未冲刷的相对位移累加器, clamp 后的余量保留到下一帧
	accX, accY, accWheel int

	// unmapped 键码回调, 可观测性记录, 非致命
	onUnmapped func(code uint16)
}

// NewEncoder onUnmapped 可以为 nil
func NewEncoder(onUnmapped func(code uint16)) *Encoder {
	return &Encoder{onUnmapped: onUnmapped}
}

// Encode 处理一个事件, 返回零个或多个待发送帧
func (e *Encoder) Encode(ev model.RawInputEvent) []Report {
	switch ev.Kind {
	case model.KindKeyDown:
		return e.keyDown(ev.Code)
	case model.KindKeyUp:
		return e.keyUp(ev.Code)
	case model.KindKeyHold:
		// autorepeat: 状态没变, 不发帧
		return nil
	case model.KindButtonDown, model.KindButtonUp:
		return e.button(ev.Code, ev.Kind == model.KindButtonDown)
	case model.KindRelMove:
		e.accumulate(ev.Code, ev.Value)
		return nil
	case model.KindWheel:
		e.accWheel += int(ev.Value)
		return nil
	}
	return nil
}

// Flush 定时冲刷: 把累加器完全排空, 每帧 clamp 到 [-127,127],
// 发出去多少就从累加器里减多少, 余量无损保留
func (e *Encoder) Flush() []Report {
	var out []Report
	for e.accX != 0 || e.accY != 0 || e.accWheel != 0 {
		dx := clampDelta(e.accX)
		dy := clampDelta(e.accY)
		dw := clampDelta(e.accWheel)
		e.accX -= int(dx)
		e.accY -= int(dy)
		e.accWheel -= int(dw)
		out = append(out, mouseFrame(e.buttons, dx, dy, dw))
	}
	return out
}

// Reset 清空全部状态, 会话结束时调用
func (e *Encoder) Reset() {
	e.slots = [6]uint8{}
	e.modifiers = 0
	e.buttons = 0
	e.accX, e.accY, e.accWheel = 0, 0, 0
}

func (e *Encoder) keyDown(code uint16) []Report {
	usage := UsageFor(code)
	if usage == 0 {
		if e.onUnmapped != nil {
			e.onUnmapped(code)
		}
		return nil
	}

	if isModifier(usage) {
		e.modifiers |= modifierBit(usage)
		return e.keyboardThenMotion()
	}

	// 已在槽里 (重复 down) 不改变状态
	for _, s := range e.slots {
		if s == usage {
			return nil
		}
	}
	// 第一个空槽; 6 槽全满时丢弃本次按键 (确定性溢出策略, 不排队)
	for i, s := range e.slots {
		if s == 0 {
			e.slots[i] = usage
			return e.keyboardThenMotion()
		}
	}
	return nil
}

func (e *Encoder) keyUp(code uint16) []Report {
	usage := UsageFor(code)
	if usage == 0 {
		if e.onUnmapped != nil {
			e.onUnmapped(code)
		}
		return nil
	}

	if isModifier(usage) {
		bit := modifierBit(usage)
		// 没按住的修饰键抬起: 状态没变, 不发帧
		if e.modifiers&bit == 0 {
			return nil
		}
		e.modifiers &^= bit
		return e.keyboardThenMotion()
	}

	for i, s := range e.slots {
		if s == usage {
			e.slots[i] = 0
			return e.keyboardThenMotion()
		}
	}
	// 溢出时被丢弃的键, 或从未跟踪的键: no-op
	return nil
}

func (e *Encoder) button(code uint16, pressed bool) []Report {
	bit := ButtonFor(code)
	if bit == 0 {
		if e.onUnmapped != nil {
			e.onUnmapped(code)
		}
		return nil
	}
	if pressed {
		e.buttons |= bit
	} else {
		e.buttons &^= bit
	}
	// 按键变更立即出帧, 顺带冲刷累加的位移
	dx := clampDelta(e.accX)
	dy := clampDelta(e.accY)
	dw := clampDelta(e.accWheel)
	e.accX -= int(dx)
	e.accY -= int(dy)
	e.accWheel -= int(dw)
	out := []Report{mouseFrame(e.buttons, dx, dy, dw)}
	return append(out, e.Flush()...)
}

func (e *Encoder) accumulate(axis uint16, value int32) {
	switch axis {
	case model.RelX:
		e.accX += int(value)
	case model.RelY:
		e.accY += int(value)
	case model.RelWheel:
		e.accWheel += int(value)
	}
}

// 键盘状态变化时先发键盘帧, 再立即冲刷指针累加器
func (e *Encoder) keyboardThenMotion() []Report {
	out := []Report{keyboardFrame(e.modifiers, e.slots)}
	return append(out, e.Flush()...)
}

func clampDelta(v int) int8 {
	if v > 127 {
		return 127
	}
	if v < -127 {
		return -127
	}
	return int8(v)
}
