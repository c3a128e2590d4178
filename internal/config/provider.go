package config

import (
	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/core/peer"
)

// ============================================================================
//                              fx 模块
// ============================================================================

// ProviderParams fx 提供者参数
type ProviderParams struct {
	fx.In

	UnifiedCfg *config.Config `optional:"true"`
}

// ProviderResult fx 提供者结果
type ProviderResult struct {
	fx.Out

	Provider   *Provider
	Behaviours peer.Behaviours
}

// ProvideConfig 校验配置并提供运行时参数
func ProvideConfig(p ProviderParams) (ProviderResult, error) {
	provider := NewProvider(p.UnifiedCfg)
	if err := Validate(provider.GetConfig()); err != nil {
		return ProviderResult{}, err
	}
	return ProviderResult{
		Provider:   provider,
		Behaviours: provider.Behaviours(),
	}, nil
}

// Module 是 config 的 Fx 模块
var Module = fx.Module("config",
	fx.Provide(ProvideConfig),
)
