package bluetooth

import (
	"sync"

	"easyhid/internal/hidreport"
)

// sendQueue 有界发送队列, 单生产单消费
// 背压策略: 队列满时先踢掉最老的鼠标帧 (位移可容忍丢失);
// 没有可踢的鼠标帧时, 进来的鼠标帧直接丢, 键盘帧允许临时超深度 —
// 键帧关系到按下/松开配对, 绝不丢
type sendQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	frames []hidreport.Report
	depth  int
	closed bool

	droppedMouse uint64
}

func newSendQueue(depth int) *sendQueue {
	q := &sendQueue{depth: depth}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push 入队, 返回 false 表示该帧被丢弃
func (q *sendQueue) push(r hidreport.Report) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}

	if len(q.frames) >= q.depth {
		if !q.evictOldestMouse() {
			if r.Kind == hidreport.FrameMouse {
				q.droppedMouse++
				return false
			}
			// 全是键盘帧: 键帧不丢, 允许超界
		}
	}

	q.frames = append(q.frames, r)
	q.cond.Signal()
	return true
}

// pop 阻塞等待下一帧; 队列关闭且排空后返回 ok=false
func (q *sendQueue) pop() (hidreport.Report, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.frames) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.frames) == 0 {
		return hidreport.Report{}, false
	}
	r := q.frames[0]
	q.frames = q.frames[1:]
	return r, true
}

// close 唤醒消费者并拒绝后续入队
func (q *sendQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.frames = nil
	q.cond.Broadcast()
}

func (q *sendQueue) dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.droppedMouse
}

// evictOldestMouse 从队头方向找最老的鼠标帧删除, 锁内调用
func (q *sendQueue) evictOldestMouse() bool {
	for i, f := range q.frames {
		if f.Kind == hidreport.FrameMouse {
			q.frames = append(q.frames[:i], q.frames[i+1:]...)
			q.droppedMouse++
			return true
		}
	}
	return false
}
