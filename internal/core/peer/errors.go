package peer

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectFailed 连接失败（未启用重连或不可恢复）
	ErrConnectFailed = errors.New("peer: connect failed")

	// ErrConnectCanceled 连接尝试被 Disconnect 取消
	ErrConnectCanceled = errors.New("peer: connect canceled")

	// ErrNotConnected 链路未连接
	ErrNotConnected = errors.New("peer: not connected")

	// ErrSendFailed 写出失败，链路已被强制断开
	ErrSendFailed = errors.New("peer: send failed")

	// ErrNoDialer 服务端角色不能主动连接
	ErrNoDialer = errors.New("peer: no dialer for server-side peer")

	// ErrDisconnecting 链路正在断开
	ErrDisconnecting = errors.New("peer: disconnect in progress")

	// ErrListenerClosed 监听器已关闭
	ErrListenerClosed = errors.New("peer: listener closed")
)

// BindError 监听器启动失败
//
// 属于启动类错误：同步返回给调用方，不自动重试。
type BindError struct {
	Address string
	Err     error
}

func (e *BindError) Error() string {
	return fmt.Sprintf("peer: bind %s: %v", e.Address, e.Err)
}

func (e *BindError) Unwrap() error {
	return e.Err
}
