// Package security 组装网关的链路安全材料
//
// Identity 汇总本端证书、信任库以及据此构建的 TLS 配置：
//   - 证书来自配置的 cert_file/key_file（不存在时生成并保存），未配置时临时生成
//   - 信任库由 trusted_certs（标签 → PEM 文件）初始化，运行中可由证书共享追加
//   - 服务端配置要求客户端证书，双方叶子证书都必须存在于信任库中
//
// 关闭 TLS 时 Identity 的 TLS 配置为 nil，链路使用明文。
//
// 子包：
//   - tls：证书生成、加载与 TLS 配置构建
//   - truststore：标签到证书的信任库
//   - certsharing：首次信任的证书交换握手
package security
