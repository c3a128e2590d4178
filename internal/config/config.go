// Package config 将公开配置拆分为各模块使用的运行时参数
//
// Provider 持有统一的 config.Config，并负责：
//   - 将分帧、心跳、bye、重连、写超时转换为 peer.Behaviours
//   - 将日志配置转换为 logger.FileOptions
//   - 对跨模块的组合做运行时校验（监听端口与证书共享端口不得冲突）
package config

import (
	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/core/liveness"
	"github.com/dep2p/go-iotgate/internal/core/peer"
	"github.com/dep2p/go-iotgate/internal/core/recovery"
	"github.com/dep2p/go-iotgate/internal/util/logger"
)

// Provider 配置提供者
type Provider struct {
	config *config.Config
}

// NewProvider 创建配置提供者，cfg 为 nil 时使用默认配置
func NewProvider(cfg *config.Config) *Provider {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &Provider{config: cfg}
}

// GetConfig 获取完整配置
func (p *Provider) GetConfig() *config.Config {
	return p.config
}

// LocalID 返回网关标识
func (p *Provider) LocalID() string {
	return p.config.Identity.ID
}

// GetTransport 获取传输配置
func (p *Provider) GetTransport() config.TransportConfig {
	return p.config.Transport
}

// GetSecurity 获取安全配置
func (p *Provider) GetSecurity() config.SecurityConfig {
	return p.config.Security
}

// GetBroker 获取代理配置
func (p *Provider) GetBroker() config.BrokerConfig {
	return p.config.Broker
}

// GetMetrics 获取指标配置
func (p *Provider) GetMetrics() config.MetricsConfig {
	return p.config.Metrics
}

// Behaviours 返回链路行为配置
func (p *Provider) Behaviours() peer.Behaviours {
	return BehavioursFrom(p.config)
}

// LogFile 返回日志文件滚动配置
func (p *Provider) LogFile() logger.FileOptions {
	l := p.config.Log
	return logger.FileOptions{
		Path:       l.File,
		MaxSizeMB:  l.MaxSizeMB,
		MaxBackups: l.MaxBackups,
		MaxAgeDays: l.MaxAgeDays,
		Compress:   l.Compress,
		AlsoStderr: true,
	}
}

// BehavioursFrom 将公开配置转换为链路行为配置
func BehavioursFrom(cfg *config.Config) peer.Behaviours {
	b := peer.DefaultBehaviours()
	b.Framing = peer.FramingSettings{
		Delimiter:    cfg.Framing.Delimiter,
		Charset:      cfg.Framing.Charset,
		MaxFrameSize: cfg.Framing.MaxFrameSize,
	}
	b.Heartbeat = liveness.HeartbeatSettings{
		Enabled:  cfg.Heartbeat.Enabled,
		Respond:  cfg.Heartbeat.Respond,
		Interval: cfg.Heartbeat.Interval.Duration(),
		Timeout:  cfg.Heartbeat.Timeout.Duration(),
	}
	b.Bye = liveness.ByeSettings{
		Enabled: cfg.Bye.Enabled,
		Message: cfg.Bye.Message,
	}
	b.Reconnect = recovery.ReconnectSettings{
		Enabled: cfg.Reconnect.Enabled,
		Delay:   cfg.Reconnect.Delay.Duration(),
	}
	if wt := cfg.Transport.WriteTimeout.Duration(); wt > 0 {
		b.WriteTimeout = wt
	}
	return b
}
