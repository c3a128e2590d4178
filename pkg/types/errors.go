package types

import "errors"

// ============================================================================
//                              权限解析错误
// ============================================================================

var (
	// ErrInvalidPermissionType 无效的权限类型
	ErrInvalidPermissionType = errors.New("invalid permission type")

	// ErrInvalidConnectionClass 无效的连接类型
	ErrInvalidConnectionClass = errors.New("invalid connection class")

	// ErrInvalidPermissionRule 无效的权限规则
	ErrInvalidPermissionRule = errors.New("invalid permission rule")
)
