package broker

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
)

var (
	// ErrPermissionDenied 调用方权限不足
	ErrPermissionDenied = errors.New("broker: permission denied")

	// ErrNotRegistered 目标未注册
	ErrNotRegistered = errors.New("broker: target not registered")

	// ErrNotReachable 目标仅有离线端点且无法投递
	ErrNotReachable = endpoint.ErrNotReachable

	// ErrInvalidEndpoint 端点类型与操作不符
	ErrInvalidEndpoint = errors.New("broker: invalid endpoint kind")
)

// 投递路径
const (
	PathBroadcast = "broadcast"
	PathDirected  = "directed"
	PathToObject  = "to_object"
	PathCatchUp   = "catch_up"
)

// 拒绝原因
const (
	ReasonDenied       = "denied"
	ReasonUnregistered = "unregistered"
	ReasonUnreachable  = "unreachable"
	ReasonTransport    = "transport"
)

// DeliveryError 投递时的传输错误
type DeliveryError struct {
	Path   string
	Target string
	Err    error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("broker: %s delivery to %s failed: %v", e.Path, e.Target, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
