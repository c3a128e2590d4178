// Package recovery 提供自动重连调度
//
// Scheduler 在意外断开或首次连接失败后按可配置延迟安排重试：
//   - 每次安排都重新读取延迟配置
//   - Cancel 确定性地取消尚未执行的重试
//   - 取消后迟到的定时器回调被代际计数丢弃
package recovery

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("recovery")
