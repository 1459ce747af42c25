package bluetooth

import (
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HIDSession 一条已建立的 HID 连接: interrupt channel fd 归本会话所有
type HIDSession struct {
	ID          string // uuid, 审计用
	Peer        string // BlueZ device object path
	ConnectedAt time.Time

	interrupt *os.File
	closeOnce sync.Once
}

func newHIDSession(peer string, interrupt *os.File) *HIDSession {
	return &HIDSession{
		ID:          uuid.New().String(),
		Peer:        peer,
		ConnectedAt: time.Now(),
		interrupt:   interrupt,
	}
}

// write 向 interrupt channel 写一帧原始 report
func (s *HIDSession) write(frame []byte) error {
	_, err := s.interrupt.Write(frame)
	return err
}

// close 幂等关闭 fd
func (s *HIDSession) close() {
	s.closeOnce.Do(func() {
		_ = s.interrupt.Close()
	})
}
