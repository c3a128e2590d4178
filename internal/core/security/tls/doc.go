// Package tls 提供网关链路使用的 TLS 配置
//
// # 特性
//
//   - 自签名 ECDSA P-256 证书，CommonName 为本端标识
//   - 双向认证：对端叶子证书必须存在于信任库中
//   - 首次信任（trust-on-first-use）配置，仅供证书共享握手使用
//
// 证书链与主机名校验被跳过，信任完全由 truststore 决定。
package tls
