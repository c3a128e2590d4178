// Package iotgate 提供物联网对象与服务之间的消息网关
//
// 网关在两个端口上接受长连接：对象端口接入设备（对象），服务端口接入
// 消费方（服务）。每条链路使用可配置分隔符分帧，可选心跳探测、bye
// 优雅断开与双向 TLS。网关按对象的权限规则在两者之间路由消息：
//
//   - 对象广播：投递给所有有权访问该对象的服务
//   - 对象定向：投递给指定服务
//   - 服务请求：投递给指定对象；对象离线时进入离线信箱
//
// 服务接入时立即收到所有可见对象的快照（信息、结构、权限、离线状态）。
//
// # 快速开始
//
//	gw, err := iotgate.New(
//	    iotgate.WithConfigFile("gateway.yaml"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := gw.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer gw.Stop(context.Background())
//
// # 文件组织
//
//   - gateway.go: Gateway 门面与生命周期
//   - options.go: 选项函数
//   - fx.go: Fx 应用组装
//   - version.go: 版本信息
package iotgate
