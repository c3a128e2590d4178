// Package store 持久化对象元数据与权限规则
//
// Store 同时实现 PermissionStore、PermissionWriter 与 ObjectStore，
// 底层是 BadgerDB（配置数据目录时落盘，否则为内存模式）。
// 启动时可从 YAML 种子文件导入对象与规则。
package store

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("store")
