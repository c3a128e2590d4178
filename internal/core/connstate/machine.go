package connstate

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/dep2p/go-iotgate/pkg/types"
)

// ============================================================================
//                              事件定义
// ============================================================================

// Event 状态机输入事件
type Event int

const (
	// EventConnect 调用 connect
	EventConnect Event = iota + 1
	// EventEstablished 套接字建立
	EventEstablished
	// EventUnreachable 目标不可达且启用了重连
	EventUnreachable
	// EventConnectFailed 连接失败且未启用重连
	EventConnectFailed
	// EventRetry 重连定时器触发
	EventRetry
	// EventDisconnect 本地调用 disconnect
	EventDisconnect
	// EventRemoteClosed 远端关闭
	EventRemoteClosed
	// EventTransportError 读写失败或心跳超时
	EventTransportError
	// EventClosed 套接字已释放
	EventClosed
)

// AllEvents 按声明顺序列出所有事件
var AllEvents = []Event{
	EventConnect,
	EventEstablished,
	EventUnreachable,
	EventConnectFailed,
	EventRetry,
	EventDisconnect,
	EventRemoteClosed,
	EventTransportError,
	EventClosed,
}

// String 返回事件的字符串表示
func (e Event) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventEstablished:
		return "established"
	case EventUnreachable:
		return "unreachable"
	case EventConnectFailed:
		return "connect_failed"
	case EventRetry:
		return "retry"
	case EventDisconnect:
		return "disconnect"
	case EventRemoteClosed:
		return "remote_closed"
	case EventTransportError:
		return "transport_error"
	case EventClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              转换表
// ============================================================================

var transitions = map[types.ConnectionState]map[Event]types.ConnectionState{
	types.StateDisconnected: {
		EventConnect: types.StateConnecting,
	},
	types.StateConnecting: {
		EventEstablished:   types.StateConnected,
		EventUnreachable:   types.StateWaitingForRemote,
		EventConnectFailed: types.StateDisconnected,
		EventDisconnect:    types.StateDisconnecting,
	},
	types.StateWaitingForRemote: {
		EventRetry:      types.StateConnecting,
		EventDisconnect: types.StateDisconnecting,
	},
	types.StateConnected: {
		EventDisconnect:     types.StateDisconnecting,
		EventRemoteClosed:   types.StateDisconnecting,
		EventTransportError: types.StateDisconnecting,
	},
	types.StateDisconnecting: {
		EventClosed: types.StateDisconnected,
	},
}

// Next 返回 (状态, 事件) 的目标状态，未定义时 ok 为 false
func Next(from types.ConnectionState, ev Event) (to types.ConnectionState, ok bool) {
	to, ok = transitions[from][ev]
	return
}

// ============================================================================
//                              错误定义
// ============================================================================

// ErrInvalidTransition 无效的状态转换
var ErrInvalidTransition = errors.New("invalid state transition")

// TransitionError 描述被拒绝的转换
type TransitionError struct {
	From  types.ConnectionState
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition: %s on %s", e.Event, e.From)
}

// Unwrap 支持 errors.Is(err, ErrInvalidTransition)
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// ============================================================================
//                              状态机
// ============================================================================

// Transition 状态转换记录
type Transition struct {
	From      types.ConnectionState
	To        types.ConnectionState
	Event     Event
	Timestamp time.Time
}

// maxHistory 保留的转换记录数
const maxHistory = 32

// Machine 连接状态机
//
// 并发安全；状态与统计的写入由所属连接串行执行，读取可并发。
// 只记录真实的状态转换：已在连接中时再次 connect 这类空操作由所属连接判断，
// 直接送入状态机会得到 TransitionError。
type Machine struct {
	clock clock.Clock

	mu      sync.RWMutex
	state   types.ConnectionState
	stats   types.ConnectionStats
	history []Transition
}

// New 创建处于 Disconnected 的状态机
func New(clk clock.Clock) *Machine {
	if clk == nil {
		clk = clock.New()
	}
	return &Machine{
		clock: clk,
		state: types.StateDisconnected,
	}
}

// State 返回当前状态
func (m *Machine) State() types.ConnectionState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Fire 执行事件
//
// 未定义的转换返回 *TransitionError，状态不变。
func (m *Machine) Fire(ev Event) (Transition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fireLocked(ev)
}

// FireFrom 仅当当前状态为 from 时执行事件
//
// 用于与并发的 disconnect 竞争的路径（如重连定时器）。
func (m *Machine) FireFrom(from types.ConnectionState, ev Event) (Transition, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return Transition{}, false
	}
	t, err := m.fireLocked(ev)
	return t, err == nil
}

func (m *Machine) fireLocked(ev Event) (Transition, error) {
	to, ok := Next(m.state, ev)
	if !ok {
		return Transition{}, &TransitionError{From: m.state, Event: ev}
	}

	now := m.clock.Now()
	t := Transition{From: m.state, To: to, Event: ev, Timestamp: now}
	m.state = to

	switch {
	case to == types.StateConnected:
		m.stats.LastConnectAt = now
	case to == types.StateDisconnected && ev == EventClosed:
		m.stats.LastDisconnectAt = now
	}

	m.history = append(m.history, t)
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	return t, nil
}

// Can 当前状态下事件是否有定义
func (m *Machine) Can(ev Event) bool {
	_, ok := Next(m.State(), ev)
	return ok
}

// History 返回最近的转换记录
func (m *Machine) History() []Transition {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Transition, len(m.history))
	copy(out, m.history)
	return out
}

// ============================================================================
//                              统计
// ============================================================================

// Stats 返回统计快照
func (m *Machine) Stats() types.ConnectionStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// AddBytesSent 累加发送字节数
func (m *Machine) AddBytesSent(n int) {
	m.mu.Lock()
	m.stats.BytesSent += uint64(n)
	m.mu.Unlock()
}

// AddBytesRecv 累加接收字节数
func (m *Machine) AddBytesRecv(n int) {
	m.mu.Lock()
	m.stats.BytesRecv += uint64(n)
	m.mu.Unlock()
}

// HeartbeatSucceeded 记录心跳成功
func (m *Machine) HeartbeatSucceeded() {
	m.mu.Lock()
	m.stats.LastHeartbeatOK = m.clock.Now()
	m.mu.Unlock()
}

// HeartbeatFailed 记录心跳失败
func (m *Machine) HeartbeatFailed() {
	m.mu.Lock()
	m.stats.LastHeartbeatFail = m.clock.Now()
	m.mu.Unlock()
}

// HeartbeatReceived 记录收到心跳请求
func (m *Machine) HeartbeatReceived() {
	m.mu.Lock()
	m.stats.HeartbeatsRecv++
	m.mu.Unlock()
}
