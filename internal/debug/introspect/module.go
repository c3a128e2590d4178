package introspect

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/broker"
	"github.com/dep2p/go-iotgate/internal/core/metrics"
	"github.com/dep2p/go-iotgate/internal/core/security"
	"github.com/dep2p/go-iotgate/internal/gateway"
)

// Module 是自省服务的 Fx 模块
var Module = fx.Module("introspect",
	fx.Provide(NewFromParams),
	fx.Invoke(registerLifecycle),
)

// Params 自省服务依赖参数
type Params struct {
	fx.In

	UnifiedCfg *config.Config     `optional:"true"`
	Gateway    *gateway.Gateway   `optional:"true"`
	Broker     *broker.Broker     `optional:"true"`
	Collector  *metrics.Collector `optional:"true"`
	Identity   *security.Identity `optional:"true"`
}

// Result 自省服务输出
type Result struct {
	fx.Out

	Server *Server `optional:"true"`
}

// ConfigFromUnified 从统一配置创建自省服务配置，禁用时返回 nil
func ConfigFromUnified(cfg *config.Config) *Config {
	if cfg == nil || !cfg.Diagnostics.EnableIntrospect {
		return nil
	}
	addr := cfg.Diagnostics.IntrospectAddr
	if addr == "" {
		addr = DefaultAddr
	}
	return &Config{
		Addr:    addr,
		LocalID: cfg.Identity.ID,
	}
}

// NewFromParams 从参数创建自省服务
func NewFromParams(p Params) Result {
	cfg := ConfigFromUnified(p.UnifiedCfg)
	if cfg == nil {
		return Result{}
	}

	cfg.Gateway = p.Gateway
	cfg.Broker = p.Broker
	cfg.Collector = p.Collector
	cfg.Identity = p.Identity
	return Result{Server: New(*cfg)}
}

func registerLifecycle(lc fx.Lifecycle, server *Server) {
	if server == nil {
		return
	}
	lc.Append(fx.Hook{
		OnStart: server.Start,
		OnStop: func(context.Context) error {
			return server.Stop()
		},
	})
}
