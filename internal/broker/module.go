package broker

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/internal/broker/permission"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
)

// Params Broker 依赖参数
type Params struct {
	fx.In

	Store      interfaces.PermissionStore
	Reporter   Reporter             `optional:"true"`
	Sink       endpoint.OfflineSink `optional:"true"`
	UnifiedCfg *config.Config       `optional:"true"`
}

// Module 是 broker 的 Fx 模块
var Module = fx.Module("broker",
	fx.Provide(NewFromParams),
)

// NewFromParams 从参数创建代理；配置了缓存时包装权限存储
func NewFromParams(p Params) *Broker {
	cfg := config.DefaultBrokerConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Broker
	}

	store := p.Store
	if cfg.PermissionCacheSize > 0 {
		store = permission.NewCachedStore(store, cfg.PermissionCacheSize, cfg.PermissionCacheTTL.Duration())
	}

	opts := []Option{WithReporter(p.Reporter)}
	if p.Sink != nil {
		opts = append(opts, WithOfflineSink(p.Sink))
	}
	return New(store, opts...)
}
