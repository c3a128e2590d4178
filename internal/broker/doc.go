// Package broker 在对象与服务之间按权限路由消息
//
// Broker 维护三个独立加锁的注册表：在线对象、在线服务、离线对象。
// 投递时先在锁内查找目标，释放锁后再写链路，慢速对端不会阻塞注册。
//
// 投递路径：
//
//   - SendBroadcast: 对象向所有有权服务扇出，单个失败只记录日志
//   - SendDirected: 对象发往指定服务，权限、注册与传输错误返回调用方
//   - SendToObject: 服务发往对象，区分无权限、未注册与不可达
//
// 服务注册时会补发其有权对象的快照，晚加入的服务与全程在线的服务状态一致。
package broker

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("broker")
