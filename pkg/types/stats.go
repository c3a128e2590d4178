package types

import "time"

// ============================================================================
//                              ConnectionStats - 连接统计
// ============================================================================

// ConnectionStats 连接统计快照
//
// 由所属连接单调更新，创建后从不重置。
type ConnectionStats struct {
	// LastConnectAt 最近一次进入 Connected 的时间
	LastConnectAt time.Time

	// LastDisconnectAt 最近一次进入 Disconnected 的时间
	LastDisconnectAt time.Time

	// BytesSent 累计发送字节数
	BytesSent uint64

	// BytesRecv 累计接收字节数
	BytesRecv uint64

	// LastHeartbeatOK 最近一次心跳成功时间
	LastHeartbeatOK time.Time

	// LastHeartbeatFail 最近一次心跳失败时间
	LastHeartbeatFail time.Time

	// HeartbeatsRecv 收到的心跳请求数
	HeartbeatsRecv uint64
}

// TotalBytes 返回总传输字节数
func (s ConnectionStats) TotalBytes() uint64 {
	return s.BytesSent + s.BytesRecv
}

// Uptime 返回当前连接的持续时间，未连接时返回 0
func (s ConnectionStats) Uptime(now time.Time) time.Duration {
	if s.LastConnectAt.IsZero() || s.LastDisconnectAt.After(s.LastConnectAt) {
		return 0
	}
	return now.Sub(s.LastConnectAt)
}
