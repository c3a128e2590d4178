// Package metrics 提供监控指标收集
//
// Collector 同时扮演两个角色：
//   - peer.Observer：按协议统计连接数、断开原因与会话字节数
//   - broker.Reporter：统计注册表规模、投递与拒绝次数
//
// 指标以 Prometheus 格式导出，Server 提供 /metrics 端点。
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	c := metrics.NewCollector(reg, clock.New())
//
//	listener.AddObserver(c)
//	b := broker.New(store, broker.WithReporter(c))
//
//	srv := metrics.NewServer(reg)
//	_ = srv.Start(":9100")
//
// # Fx 模块
//
//	app := fx.New(
//	    metrics.Module,
//	    fx.Invoke(func(c *metrics.Collector) { ... }),
//	)
package metrics

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("metrics")
