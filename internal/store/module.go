package store

import (
	"context"

	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/store/engine"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
)

// Params Store 依赖参数
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	UnifiedCfg *config.Config `optional:"true"`
}

// Result Store 模块输出
type Result struct {
	fx.Out

	Store       *Store
	Permissions interfaces.PermissionStore
	Writer      interfaces.PermissionWriter
	Objects     interfaces.ObjectStore
}

// Module 是 store 的 Fx 模块
var Module = fx.Module("store",
	fx.Provide(NewFromParams),
)

// NewFromParams 打开存储，并随生命周期启动、导入种子、关闭
func NewFromParams(p Params) (Result, error) {
	cfg := config.DefaultBrokerConfig()
	if p.UnifiedCfg != nil {
		cfg = p.UnifiedCfg.Broker
	}

	engCfg := engine.DefaultConfig(cfg.DataDir)
	engCfg.SyncWrites = cfg.SyncWrites
	s, err := Open(engCfg)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Start(); err != nil {
				return err
			}
			if cfg.SeedFile == "" {
				return nil
			}
			seed, err := LoadSeed(cfg.SeedFile)
			if err != nil {
				return err
			}
			return s.ApplySeed(ctx, seed)
		},
		OnStop: func(context.Context) error {
			log.Info("正在关闭存储")
			return s.Close()
		},
	})

	return Result{Store: s, Permissions: s, Writer: s, Objects: s}, nil
}
