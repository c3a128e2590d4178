package liveness

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// ============================================================================
//                              配置
// ============================================================================

const (
	// DefaultHeartbeatRequest 心跳请求载荷
	DefaultHeartbeatRequest = "hb_req"

	// DefaultHeartbeatResponse 心跳应答载荷
	DefaultHeartbeatResponse = "hb_res"

	// DefaultHeartbeatInterval 默认探测间隔
	DefaultHeartbeatInterval = 30 * time.Second

	// DefaultHeartbeatTimeout 默认应答超时
	DefaultHeartbeatTimeout = 5 * time.Second
)

var (
	// ErrHeartbeatTimeout 心跳应答超时
	ErrHeartbeatTimeout = errors.New("heartbeat timeout")

	// ErrHeartbeatSend 心跳请求发送失败
	ErrHeartbeatSend = errors.New("heartbeat send failed")
)

// HeartbeatSettings 心跳配置
type HeartbeatSettings struct {
	// Enabled 是否主动发送探测
	Enabled bool

	// Respond 是否应答远端探测
	Respond bool

	// Interval 探测间隔 T
	Interval time.Duration

	// Timeout 应答超时 T_hb
	Timeout time.Duration
}

// DefaultHeartbeatSettings 返回默认心跳配置
func DefaultHeartbeatSettings() HeartbeatSettings {
	return HeartbeatSettings{
		Enabled:  true,
		Respond:  true,
		Interval: DefaultHeartbeatInterval,
		Timeout:  DefaultHeartbeatTimeout,
	}
}

func (s HeartbeatSettings) normalized() HeartbeatSettings {
	if s.Interval <= 0 {
		s.Interval = DefaultHeartbeatInterval
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultHeartbeatTimeout
	}
	return s
}

// HeartbeatHooks 心跳与所属连接之间的回调
type HeartbeatHooks struct {
	// Send 写出一条控制消息
	Send func(msg string) error

	// OnSuccess 收到应答
	OnSuccess func()

	// OnFailure 探测失败，连接应按传输错误处理；最多调用一次
	OnFailure func(err error)

	// OnRequest 收到远端探测
	OnRequest func()
}

// ============================================================================
//                              Heartbeat 实现
// ============================================================================

// Heartbeat 单条链路的心跳行为
//
// 每个会话创建一个实例；Stop 后不可重启。
type Heartbeat struct {
	clock    clock.Clock
	settings func() HeartbeatSettings
	hooks    HeartbeatHooks

	ack      chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	failOnce sync.Once
}

// NewHeartbeat 创建心跳
func NewHeartbeat(clk clock.Clock, settings func() HeartbeatSettings, hooks HeartbeatHooks) *Heartbeat {
	if clk == nil {
		clk = clock.New()
	}
	return &Heartbeat{
		clock:    clk,
		settings: settings,
		hooks:    hooks,
		ack:      make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
}

// Start 启动探测循环
func (h *Heartbeat) Start() {
	go h.loop()
}

// Stop 停止探测循环，可在回调中调用
func (h *Heartbeat) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
}

// Process 处理入站帧
//
// 心跳请求与应答被消费并返回 true，其他帧返回 false。
func (h *Heartbeat) Process(frame string) bool {
	switch frame {
	case DefaultHeartbeatRequest:
		if h.hooks.OnRequest != nil {
			h.hooks.OnRequest()
		}
		if h.settings().Respond {
			if err := h.hooks.Send(DefaultHeartbeatResponse); err != nil {
				log.Debug("心跳应答发送失败", "err", err)
			}
		}
		return true
	case DefaultHeartbeatResponse:
		select {
		case h.ack <- struct{}{}:
		default:
		}
		return true
	}
	return false
}

func (h *Heartbeat) loop() {
	for {
		s := h.settings().normalized()
		if !h.wait(s.Interval) {
			return
		}

		// 间隔结束后重新读取配置
		s = h.settings().normalized()
		if !s.Enabled {
			continue
		}

		select {
		case <-h.ack:
		default:
		}

		if err := h.hooks.Send(DefaultHeartbeatRequest); err != nil {
			h.fail(fmt.Errorf("%w: %v", ErrHeartbeatSend, err))
			return
		}

		timer := h.clock.Timer(s.Timeout)
		select {
		case <-h.stop:
			timer.Stop()
			return
		case <-h.ack:
			timer.Stop()
			if h.hooks.OnSuccess != nil {
				h.hooks.OnSuccess()
			}
		case <-timer.C:
			h.fail(ErrHeartbeatTimeout)
			return
		}
	}
}

func (h *Heartbeat) wait(d time.Duration) bool {
	timer := h.clock.Timer(d)
	defer timer.Stop()
	select {
	case <-h.stop:
		return false
	case <-timer.C:
		return true
	}
}

func (h *Heartbeat) fail(err error) {
	h.failOnce.Do(func() {
		log.Warn("心跳失败", "err", err)
		if h.hooks.OnFailure != nil {
			h.hooks.OnFailure(err)
		}
	})
}
