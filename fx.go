package iotgate

import (
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/broker"
	iconfig "github.com/dep2p/go-iotgate/internal/config"
	"github.com/dep2p/go-iotgate/internal/core/metrics"
	"github.com/dep2p/go-iotgate/internal/core/security"
	"github.com/dep2p/go-iotgate/internal/debug/introspect"
	"github.com/dep2p/go-iotgate/internal/gateway"
	"github.com/dep2p/go-iotgate/internal/store"
)

// buildFxApp 构建 Fx 应用
//
// 加载顺序（按依赖）：
//  1. 配置：config → security
//  2. 数据：store → metrics → broker
//  3. 接入：gateway（信箱、监听器、证书共享）
//  4. 诊断：introspect（仅在配置启用时监听）
func buildFxApp(cfg *config.Config, extra []fx.Option, targets ...any) (*fx.App, error) {
	if err := iconfig.Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	modules := []fx.Option{
		fx.Supply(cfg),

		iconfig.Module,
		security.Module,
		store.Module,
		metrics.Module,

		// 收集器同时作为代理的指标接收方
		fx.Provide(fx.Annotate(
			func(c *metrics.Collector) *metrics.Collector { return c },
			fx.As(new(broker.Reporter)),
		)),
		broker.Module,
		gateway.Module,
		introspect.Module,
	}
	modules = append(modules, extra...)
	modules = append(modules,
		fx.Populate(targets...),
		fx.WithLogger(fxLogger(cfg.Log.FxEvents)),
	)

	app := fx.New(modules...)
	if err := app.Err(); err != nil {
		return nil, err
	}
	return app, nil
}

// fxLogger 默认丢弃 Fx 事件，开启后使用 zap 开发日志
func fxLogger(verbose bool) func() fxevent.Logger {
	return func() fxevent.Logger {
		if !verbose {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}
		l, err := zap.NewDevelopment()
		if err != nil {
			return &fxevent.ZapLogger{Logger: zap.NewNop()}
		}
		return &fxevent.ZapLogger{Logger: l.Named("fx")}
	}
}
