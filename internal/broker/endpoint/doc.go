// Package endpoint 定义代理可路由的端点
//
// Endpoint 是带类型标记的单一结构，三种变体：
//
//   - KindLiveObject: 已连接的对象，持有链路，可关联一个离线端点作为回落
//   - KindLiveService: 已连接的服务，持有链路与用户标识
//   - KindDormantObject: 已知但离线的对象，没有链路，可挂接离线投递
//
// 对象端点（在线与离线）共享 ObjectSnapshot，用于向服务推送
// OBJ_INFO / OBJ_STRUCT / OBJ_PERM / SERVICE_PERM / OBJ_DISCONNECTED 消息。
package endpoint

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("broker/endpoint")
