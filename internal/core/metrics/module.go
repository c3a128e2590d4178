package metrics

import (
	"context"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/config"
)

// Params Metrics 依赖参数
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	UnifiedCfg *config.Config `optional:"true"`
}

// Result Metrics 模块输出
type Result struct {
	fx.Out

	Collector *Collector
	Registry  *prometheus.Registry
}

// Module 是 metrics 的 Fx 模块
var Module = fx.Module("metrics",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建收集器，配置了监听地址时随生命周期启停 HTTP 端点
func NewFromParams(p Params) Result {
	cfg := config.DefaultMetricsConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Metrics
	}

	reg := prometheus.NewRegistry()
	var c *Collector
	if cfg.Enabled {
		c = NewCollector(reg, clock.New())
	} else {
		// 关闭时仍提供收集器，只是不导出
		c = NewCollector(nil, clock.New())
	}

	if cfg.Enabled && cfg.ListenAddr != "" {
		srv := NewServer(reg)
		p.Lifecycle.Append(fx.Hook{
			OnStart: func(context.Context) error {
				return srv.Start(cfg.ListenAddr)
			},
			OnStop: srv.Stop,
		})
	}
	return Result{Collector: c, Registry: reg}
}
