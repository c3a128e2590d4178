// Package types 定义 go-iotgate 的公共数据结构
//
// 这是整个系统的最底层包，不依赖任何其他内部包。
// 所有类型都是纯值类型，用于在各模块间传递数据。
//
// # 文件组织
//
//   - enums.go      - ConnectionState, Role, DisconnectReason, EndpointKind
//   - permission.go - PermissionType, ConnectionClass, PermissionRule, Grant
//   - ids.go        - 通配符与保留标识
//   - stats.go      - ConnectionStats
//   - events.go     - PeerEvent
//   - errors.go     - 公共错误定义
package types
