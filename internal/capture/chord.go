package capture

import "easyhid/internal/model"

// chordTracker 跟踪按住的键集合, 检测紧急停止组合键
// 组合: 左Shift + 空格 + 右Shift 同时按住 (超集匹配, 与按下顺序无关)
// latched 保证一次组合只触发一次, 松开任一成员键后重新武装
type chordTracker struct {
	held    map[uint16]bool
	latched bool
}

func newChordTracker() *chordTracker {
	return &chordTracker{held: make(map[uint16]bool)}
}

// update 同步处理每个 key down/up, 返回 true 表示组合键刚刚形成
func (t *chordTracker) update(code uint16, value int32) bool {
	switch value {
	case model.KeyValueDown:
		t.held[code] = true
	case model.KeyValueUp:
		delete(t.held, code)
	default:
		// autorepeat 不改变集合
		return false
	}

	active := t.held[model.KeyLeftShift] && t.held[model.KeySpace] && t.held[model.KeyRightShift]
	if !active {
		t.latched = false
		return false
	}
	if t.latched {
		return false
	}
	t.latched = true
	return true
}
