// Package certsharing 实现证书共享握手
//
// 两个尚未互相信任的端点通过一条短时的 TLS 连接交换各自的证书：
//
//  1. 双方以首次信任（accept-on-first-use）配置建立 TLS 连接
//  2. 双方各自发送本端证书的 DER 字节，仅以分隔符分帧
//  3. 收到的证书以 "proto@remoteID" 为标签加入信任库
//  4. 连接通过 bye 有序关闭
//
// 之后的数据链路是另一条独立连接，使用常规的双向认证配置。
// 握手连接不得承载业务数据。
//
// 握手端口默认为数据端口 + 1，见 SharingAddress。
package certsharing

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("security/certsharing")
