// Package liveness 提供链路级存活行为
//
// 包含两种可独立配置的行为：
//   - Heartbeat: 按间隔 T 发送探测，T_hb 内未收到应答即上报失败
//   - Goodbye: 主动关闭前写入保留的 bye 载荷，使远端区分有序关闭与网络故障
//
// 两者的配置都通过函数读取，每个周期重新读取，修改无需重连即可在下一周期生效。
package liveness

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("liveness")
