package types

// ============================================================================
//                              ConnectionState - 连接状态
// ============================================================================

// ConnectionState 单条链路的生命周期状态
type ConnectionState int

const (
	// StateDisconnected 未连接
	StateDisconnected ConnectionState = iota
	// StateConnecting 正在连接
	StateConnecting
	// StateWaitingForRemote 远端不可达，等待重连
	StateWaitingForRemote
	// StateConnected 已连接
	StateConnected
	// StateDisconnecting 正在断开
	StateDisconnecting
)

// AllConnectionStates 按声明顺序列出所有状态
var AllConnectionStates = []ConnectionState{
	StateDisconnected,
	StateConnecting,
	StateWaitingForRemote,
	StateConnected,
	StateDisconnecting,
}

// String 返回状态的字符串表示
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateWaitingForRemote:
		return "waiting_for_remote"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	default:
		return "unknown"
	}
}

// IsConnected 是否处于已连接状态
func (s ConnectionState) IsConnected() bool {
	return s == StateConnected
}

// IsActive 是否处于连接中、等待或已连接（即 connect 为空操作的状态）
func (s ConnectionState) IsActive() bool {
	return s == StateConnecting || s == StateWaitingForRemote || s == StateConnected
}

// ============================================================================
//                              Role - 连接角色
// ============================================================================

// Role 连接角色
type Role int

const (
	// RoleClient 主动发起连接的一方
	RoleClient Role = iota
	// RoleServer 由 Listener 接受的一方
	RoleServer
)

// String 返回角色的字符串表示
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "client"
	case RoleServer:
		return "server"
	default:
		return "unknown"
	}
}

// ============================================================================
//                              DisconnectReason - 断开原因
// ============================================================================

// DisconnectReason 断开原因
//
// 用于区分优雅断开与异常断开：
//   - LocalRequest / RemoteRequest 为有序关闭
//   - 其余原因均视为失败
type DisconnectReason int

const (
	// ReasonNone 尚未断开
	ReasonNone DisconnectReason = iota
	// ReasonLocalRequest 本地调用 Disconnect
	ReasonLocalRequest
	// ReasonRemoteRequest 远端发送 bye 后关闭
	ReasonRemoteRequest
	// ReasonConnectionLost 读写失败或远端未发送 bye 直接关闭
	ReasonConnectionLost
	// ReasonHeartbeatTimeout 心跳超时
	ReasonHeartbeatTimeout
	// ReasonRemoteError 远端协议错误
	ReasonRemoteError
)

// String 返回断开原因的字符串表示
func (r DisconnectReason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonLocalRequest:
		return "local_request"
	case ReasonRemoteRequest:
		return "remote_request"
	case ReasonConnectionLost:
		return "connection_lost"
	case ReasonHeartbeatTimeout:
		return "heartbeat_timeout"
	case ReasonRemoteError:
		return "remote_error"
	default:
		return "unknown"
	}
}

// IsGraceful 是否为有序关闭
func (r DisconnectReason) IsGraceful() bool {
	return r == ReasonLocalRequest || r == ReasonRemoteRequest
}

// ============================================================================
//                              EndpointKind - 路由端点类型
// ============================================================================

// EndpointKind 路由端点变体标识
type EndpointKind int

const (
	// KindLiveObject 在线对象
	KindLiveObject EndpointKind = iota + 1
	// KindLiveService 在线服务
	KindLiveService
	// KindDormantObject 离线（已知）对象
	KindDormantObject
)

// String 返回端点类型的字符串表示
func (k EndpointKind) String() string {
	switch k {
	case KindLiveObject:
		return "live_object"
	case KindLiveService:
		return "live_service"
	case KindDormantObject:
		return "dormant_object"
	default:
		return "unknown"
	}
}

// IsObject 是否为对象端点
func (k EndpointKind) IsObject() bool {
	return k == KindLiveObject || k == KindDormantObject
}
