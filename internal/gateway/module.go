package gateway

import (
	"context"
	"crypto/x509"

	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/internal/broker"
	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	iconfig "github.com/dep2p/go-iotgate/internal/config"
	"github.com/dep2p/go-iotgate/internal/core/metrics"
	"github.com/dep2p/go-iotgate/internal/core/peer"
	"github.com/dep2p/go-iotgate/internal/core/security"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
)

// Params Gateway 依赖参数
type Params struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Provider   *iconfig.Provider
	Behaviours peer.Behaviours
	Broker     *broker.Broker

	Identity  *security.Identity     `optional:"true"`
	Objects   interfaces.ObjectStore `optional:"true"`
	Mailbox   *endpoint.Mailbox      `optional:"true"`
	Collector *metrics.Collector     `optional:"true"`
}

// MailboxResult 离线信箱同时作为代理的离线投递目标
type MailboxResult struct {
	fx.Out

	Mailbox *endpoint.Mailbox
	Sink    endpoint.OfflineSink
}

// Module 是 gateway 的 Fx 模块
var Module = fx.Module("gateway",
	fx.Provide(
		ProvideMailbox,
		NewFromParams,
	),
)

// ProvideMailbox 提供默认容量的离线信箱
func ProvideMailbox() MailboxResult {
	mb := endpoint.NewMailbox(endpoint.DefaultMailboxSize)
	return MailboxResult{Mailbox: mb, Sink: mb}
}

// NewFromParams 从参数创建网关，并随生命周期启停
func NewFromParams(p Params) *Gateway {
	t := p.Provider.GetTransport()
	cfg := Config{
		LocalID:          p.Provider.LocalID(),
		ObjectListen:     t.ObjectListen,
		ServiceListen:    t.ServiceListen,
		MaxConnections:   t.MaxConnections,
		HandshakeTimeout: t.HandshakeTimeout.Duration(),
		Behaviours:       p.Behaviours,
	}

	if p.Identity != nil && p.Identity.Enabled() {
		cfg.TLS = p.Identity.Server
		if cs := p.Provider.GetSecurity().CertSharing; cs.Enabled {
			cfg.CertSharing = CertSharingConfig{
				Enabled:         true,
				PortOffset:      cs.PortOffset,
				ExchangeTimeout: cs.ExchangeTimeout.Duration(),
				Cert:            p.Identity.Cert,
				Store:           p.Identity.Trust,
				OnTrusted:       trustedHook(p.Collector),
			}
		}
	}

	var opts []Option
	if p.Objects != nil {
		opts = append(opts, WithObjectStore(p.Objects))
	}
	if p.Mailbox != nil {
		opts = append(opts, WithMailbox(p.Mailbox))
	}
	if p.Collector != nil {
		opts = append(opts, WithObservers(p.Collector))
	}
	g := New(cfg, p.Broker, opts...)

	p.Lifecycle.Append(fx.Hook{
		OnStart: g.Start,
		OnStop: func(context.Context) error {
			return g.Stop()
		},
	})
	return g
}

func trustedHook(c *metrics.Collector) func(string, *x509.Certificate) {
	return func(label string, _ *x509.Certificate) {
		log.Info("证书共享完成", "label", label)
		if c != nil {
			c.TrustAdded()
		}
	}
}
