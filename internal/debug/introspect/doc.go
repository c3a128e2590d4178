// Package introspect 提供本地自省 HTTP 服务
//
// 该服务运行在本地端口，以 JSON 格式输出网关的注册表、链路、指标与信任状态，
// 用于调试和运维排查。默认绑定到 127.0.0.1，不暴露到网络。
//
// # 端点
//
//	GET /debug/introspect             - 完整诊断报告
//	GET /debug/introspect/registry    - 在线对象、休眠对象与服务
//	GET /debug/introspect/connections - 监听地址与链路数
//	GET /debug/introspect/metrics     - 指标快照
//	GET /debug/introspect/trust       - 本端指纹与受信标签
//	GET /debug/introspect/runtime     - Go 运行时信息
//	GET /debug/pprof/*                - Go pprof 端点
//	GET /health                       - 健康检查
//
// # 使用示例
//
//	server := introspect.New(introspect.Config{
//	    Addr:    "127.0.0.1:6060",
//	    Gateway: gw,
//	    Broker:  gw.Broker(),
//	})
//	server.Start(ctx)
//	defer server.Stop()
//
// 通过 config.Diagnostics.EnableIntrospect 配置启用。
package introspect
