package bluetooth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easyhid/internal/hidreport"
)

func kbFrame(b byte) hidreport.Report {
	return hidreport.Report{Kind: hidreport.FrameKeyboard, Data: []byte{0, 0, b, 0, 0, 0, 0, 0}}
}

func mouseFrame(dx byte) hidreport.Report {
	return hidreport.Report{Kind: hidreport.FrameMouse, Data: []byte{0, dx, 0, 0}}
}

func TestQueueFIFO(t *testing.T) {
	q := newSendQueue(4)
	require.True(t, q.push(kbFrame(1)))
	require.True(t, q.push(mouseFrame(2)))

	r, ok := q.pop()
	require.True(t, ok)
	assert.Equal(t, hidreport.FrameKeyboard, r.Kind)

	r, ok = q.pop()
	require.True(t, ok)
	assert.Equal(t, hidreport.FrameMouse, r.Kind)
}

func TestQueueFullEvictsOldestMouse(t *testing.T) {
	q := newSendQueue(3)
	require.True(t, q.push(mouseFrame(1)))
	require.True(t, q.push(kbFrame(1)))
	require.True(t, q.push(mouseFrame(2)))

	// 队列已满, 再塞一个键盘帧应挤掉最老的鼠标帧 dx=1
	require.True(t, q.push(kbFrame(2)))
	assert.Equal(t, uint64(1), q.dropped())

	r, _ := q.pop()
	assert.Equal(t, hidreport.FrameKeyboard, r.Kind)
	r, _ = q.pop()
	assert.Equal(t, hidreport.FrameMouse, r.Kind)
	assert.Equal(t, byte(2), r.Data[1])
	r, _ = q.pop()
	assert.Equal(t, hidreport.FrameKeyboard, r.Kind)
}

func TestQueueNeverDropsKeyboard(t *testing.T) {
	q := newSendQueue(2)
	require.True(t, q.push(kbFrame(1)))
	require.True(t, q.push(kbFrame(2)))
	// 满且无鼠标帧可踢: 键盘帧仍然入队
	require.True(t, q.push(kbFrame(3)))
	// 鼠标帧则被丢弃
	require.False(t, q.push(mouseFrame(9)))
	assert.Equal(t, uint64(1), q.dropped())

	for i := byte(1); i <= 3; i++ {
		r, ok := q.pop()
		require.True(t, ok)
		assert.Equal(t, hidreport.FrameKeyboard, r.Kind)
		assert.Equal(t, i, r.Data[2])
	}
}

func TestQueueCloseWakesPop(t *testing.T) {
	q := newSendQueue(2)
	done := make(chan bool, 1)
	go func() {
		_, ok := q.pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.close()

	select {
	case ok := <-done:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after close")
	}

	assert.False(t, q.push(kbFrame(1)))
}
