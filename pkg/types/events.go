package types

import "time"

// ============================================================================
//                              PeerEvent - 连接事件
// ============================================================================

// PeerEventType 连接事件类型
type PeerEventType int

const (
	// EvtConnecting 开始连接
	EvtConnecting PeerEventType = iota + 1
	// EvtWaiting 远端不可达，进入等待重连
	EvtWaiting
	// EvtConnected 连接建立
	EvtConnected
	// EvtDisconnecting 开始断开
	EvtDisconnecting
	// EvtDisconnected 有序断开完成
	EvtDisconnected
	// EvtFailed 异常断开完成
	EvtFailed
)

// String 返回事件类型的字符串表示
func (t PeerEventType) String() string {
	switch t {
	case EvtConnecting:
		return "connecting"
	case EvtWaiting:
		return "waiting"
	case EvtConnected:
		return "connected"
	case EvtDisconnecting:
		return "disconnecting"
	case EvtDisconnected:
		return "disconnected"
	case EvtFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// PeerEvent 单个连接上的状态事件
//
// 同一连接的事件按发生顺序投递，不同连接之间不保证顺序。
type PeerEvent struct {
	// Type 事件类型
	Type PeerEventType

	// Session 连接会话 ID（每次建立连接生成）
	Session string

	// LocalID 本端标识
	LocalID string

	// RemoteID 远端标识
	RemoteID string

	// State 事件发生后的连接状态
	State ConnectionState

	// Reason 断开原因（仅断开事件）
	Reason DisconnectReason

	// Err 导致失败的错误（可选）
	Err error

	// Time 事件时间
	Time time.Time
}

// IsTerminal 是否为断开完成事件
func (e PeerEvent) IsTerminal() bool {
	return e.Type == EvtDisconnected || e.Type == EvtFailed
}
