package liveness

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type liveSettings struct {
	mu sync.Mutex
	s  HeartbeatSettings
}

func (l *liveSettings) get() HeartbeatSettings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.s
}

func (l *liveSettings) set(s HeartbeatSettings) {
	l.mu.Lock()
	l.s = s
	l.mu.Unlock()
}

func fastSettings() *liveSettings {
	return &liveSettings{s: HeartbeatSettings{
		Enabled:  true,
		Respond:  true,
		Interval: 20 * time.Millisecond,
		Timeout:  40 * time.Millisecond,
	}}
}

// ============================================================================
//                              测试用例
// ============================================================================

func TestHeartbeat_Acknowledged(t *testing.T) {
	settings := fastSettings()
	var successes, failures atomic.Int32

	var hb *Heartbeat
	hb = NewHeartbeat(nil, settings.get, HeartbeatHooks{
		Send: func(msg string) error {
			if msg == DefaultHeartbeatRequest {
				// 远端立即应答
				go hb.Process(DefaultHeartbeatResponse)
			}
			return nil
		},
		OnSuccess: func() { successes.Add(1) },
		OnFailure: func(error) { failures.Add(1) },
	})
	hb.Start()
	defer hb.Stop()

	require.Eventually(t, func() bool { return successes.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), failures.Load())
}

func TestHeartbeat_TimeoutReportsOnce(t *testing.T) {
	settings := fastSettings()
	var failures atomic.Int32
	errCh := make(chan error, 4)

	hb := NewHeartbeat(nil, settings.get, HeartbeatHooks{
		Send: func(string) error { return nil },
		OnFailure: func(err error) {
			failures.Add(1)
			errCh <- err
		},
	})
	hb.Start()
	defer hb.Stop()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrHeartbeatTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("心跳超时未上报")
	}

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), failures.Load())
}

func TestHeartbeat_SendError(t *testing.T) {
	errCh := make(chan error, 1)
	hb := NewHeartbeat(nil, fastSettings().get, HeartbeatHooks{
		Send:      func(string) error { return errors.New("broken pipe") },
		OnFailure: func(err error) { errCh <- err },
	})
	hb.Start()
	defer hb.Stop()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, ErrHeartbeatSend)
	case <-time.After(2 * time.Second):
		t.Fatal("发送失败未上报")
	}
}

// TestHeartbeat_LiveReconfigure 配置修改在下一周期生效
func TestHeartbeat_LiveReconfigure(t *testing.T) {
	settings := fastSettings()
	s := settings.get()
	s.Enabled = false
	settings.set(s)

	var sent atomic.Int32
	hb := NewHeartbeat(nil, settings.get, HeartbeatHooks{
		Send: func(string) error {
			sent.Add(1)
			return nil
		},
	})
	hb.Start()
	defer hb.Stop()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), sent.Load(), "禁用时不应发送探测")

	s.Enabled = true
	settings.set(s)
	require.Eventually(t, func() bool { return sent.Load() > 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestHeartbeat_StopPreventsFailure(t *testing.T) {
	var failures atomic.Int32
	hb := NewHeartbeat(nil, fastSettings().get, HeartbeatHooks{
		Send:      func(string) error { return nil },
		OnFailure: func(error) { failures.Add(1) },
	})
	hb.Start()
	hb.Stop()
	hb.Stop()

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), failures.Load())
}

func TestHeartbeat_ProcessRequest(t *testing.T) {
	settings := fastSettings()
	var replies []string
	var requests int

	hb := NewHeartbeat(nil, settings.get, HeartbeatHooks{
		Send: func(msg string) error {
			replies = append(replies, msg)
			return nil
		},
		OnRequest: func() { requests++ },
	})

	assert.True(t, hb.Process(DefaultHeartbeatRequest))
	assert.Equal(t, []string{DefaultHeartbeatResponse}, replies)

	// 关闭应答后仍计数但不回复
	s := settings.get()
	s.Respond = false
	settings.set(s)
	assert.True(t, hb.Process(DefaultHeartbeatRequest))
	assert.Len(t, replies, 1)
	assert.Equal(t, 2, requests)

	assert.True(t, hb.Process(DefaultHeartbeatResponse))
	assert.False(t, hb.Process("hello"))
}

func TestHeartbeatSettings_Defaults(t *testing.T) {
	s := DefaultHeartbeatSettings()
	assert.True(t, s.Enabled)
	assert.Equal(t, DefaultHeartbeatInterval, s.Interval)

	n := HeartbeatSettings{}.normalized()
	assert.Equal(t, DefaultHeartbeatInterval, n.Interval)
	assert.Equal(t, DefaultHeartbeatTimeout, n.Timeout)
}
