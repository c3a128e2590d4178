// Package peer 实现链路两端：Peer 与 Listener
//
// Peer 由连接状态机、分帧传输和可插拔行为（心跳、自动重连、bye）组成：
//   - 客户端角色：给定已解析的远端地址，通过 Connect/Disconnect 驱动状态机
//   - 服务端角色：由 Listener 接受套接字后创建，复制 Listener 在接受时的行为配置快照
//
// # 投递顺序
//
// 每个 Peer 拥有一个有序派发队列：同一连接的状态事件与入站消息严格按发生顺序
// 交给观察者和消息处理器；不同连接之间不保证顺序。
//
// # 并发模型
//
// 每个会话的读循环、心跳和重连调度各自独立运行，不阻塞其他连接。
// Disconnect 可与进行中的重连并发调用，并确定性地取消待执行的重试。
package peer

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("peer")
