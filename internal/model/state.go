package model

// SharePhase 会话阶段, 唯一写者是 coordinator
type SharePhase uint8

const (
	PhaseIdle SharePhase = iota
	PhaseStarting
	PhaseSharing
	PhaseStopping
)

func (p SharePhase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseStarting:
		return "starting"
	case PhaseSharing:
		return "sharing"
	case PhaseStopping:
		return "stopping"
	}
	return "unknown"
}

// StateChange 推送给外部界面的状态流元素
// Err 只在回落到 idle 的致命失败时非空
type StateChange struct {
	Phase SharePhase
	Err   error
}
