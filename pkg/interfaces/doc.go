// Package interfaces 定义 go-iotgate 的公共接口
//
// 本包只包含网关消费的外部协作方契约，实现位于 internal 下或由部署方提供：
//   - sender.go     - 可投递消息的链路（Peer 实现）
//   - permission.go - 权限规则存储
//   - store.go      - 对象元数据与在线状态存储
package interfaces
