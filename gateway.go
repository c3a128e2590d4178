package iotgate

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/multierr"

	"github.com/dep2p/go-iotgate/config"
	"github.com/dep2p/go-iotgate/internal/broker"
	iconfig "github.com/dep2p/go-iotgate/internal/config"
	"github.com/dep2p/go-iotgate/internal/core/metrics"
	"github.com/dep2p/go-iotgate/internal/core/security"
	"github.com/dep2p/go-iotgate/internal/debug/introspect"
	"github.com/dep2p/go-iotgate/internal/gateway"
	"github.com/dep2p/go-iotgate/internal/util/logger"
)

var log = logger.Logger("iotgate")

const (
	// startTimeout 启动超时
	startTimeout = 30 * time.Second

	// stopTimeout 停止超时
	stopTimeout = 15 * time.Second
)

// Gateway 网关门面
//
// 通过 New 创建，Start 打开监听器，Stop 断开全部链路并释放存储。
// Stop 之后实例不可再次启动。
type Gateway struct {
	cfg *config.Config
	app *fx.App

	gw        *gateway.Gateway
	broker    *broker.Broker
	identity  *security.Identity
	collector *metrics.Collector
	provider  *iconfig.Provider
	diag      *introspect.Server

	logCloser io.Closer

	mu      sync.Mutex
	started bool
	closed  bool
}

// New 创建网关，不打开任何端口
func New(opts ...Option) (*Gateway, error) {
	o := &options{}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	cfg := o.toConfig()

	g := &Gateway{cfg: cfg}
	app, err := buildFxApp(cfg, o.fxOptions,
		&g.gw, &g.broker, &g.identity, &g.collector, &g.provider, &g.diag)
	if err != nil {
		return nil, err
	}
	g.app = app
	g.logCloser = logger.Configure(cfg.Log.Level, g.provider.LogFile())
	return g, nil
}

// Start 启动网关
func (g *Gateway) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if g.started {
		return ErrAlreadyStarted
	}

	startCtx, cancel := context.WithTimeout(ctx, startTimeout)
	defer cancel()

	log.Info("正在启动网关", "id", g.cfg.Identity.ID)
	if err := g.app.Start(startCtx); err != nil {
		log.Error("网关启动失败", "err", err)
		// 启动失败后 fx 已回滚已启动的模块
		g.closed = true
		return multierr.Append(fmt.Errorf("start failed: %w", err), g.logCloser.Close())
	}
	g.started = true

	log.Info("网关已就绪",
		"objects", g.gw.ObjectAddr(),
		"services", g.gw.ServiceAddr(),
		"tls", g.identity.Enabled())
	return nil
}

// Stop 停止网关
func (g *Gateway) Stop(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return ErrClosed
	}
	if !g.started {
		return ErrNotStarted
	}
	g.started = false
	g.closed = true

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()

	err := g.app.Stop(stopCtx)
	log.Info("网关已停止", "err", err)
	return multierr.Append(err, g.logCloser.Close())
}

// ============================================================================
//                              访问器
// ============================================================================

// ID 返回网关标识
func (g *Gateway) ID() string {
	return g.cfg.Identity.ID
}

// Config 返回网关使用的配置副本
func (g *Gateway) Config() *config.Config {
	return config.CloneConfig(g.cfg)
}

// ObjectAddr 返回对象端口实际地址，未启动时为 nil
func (g *Gateway) ObjectAddr() net.Addr {
	return g.gw.ObjectAddr()
}

// ServiceAddr 返回服务端口实际地址，未启动时为 nil
func (g *Gateway) ServiceAddr() net.Addr {
	return g.gw.ServiceAddr()
}

// SharingAddrs 返回证书共享端口地址
func (g *Gateway) SharingAddrs() []net.Addr {
	return g.gw.SharingAddrs()
}

// IntrospectAddr 返回自省服务地址，未启用时为空
func (g *Gateway) IntrospectAddr() string {
	if g.diag == nil {
		return ""
	}
	return g.diag.Addr()
}

// Fingerprint 返回本端证书指纹，未启用 TLS 时为空
func (g *Gateway) Fingerprint() string {
	return g.identity.Fingerprint()
}

// TrustedLabels 返回信任库中的全部标签
func (g *Gateway) TrustedLabels() []string {
	return g.identity.Trust.Labels()
}

// Objects 返回在线对象标识
func (g *Gateway) Objects() []string {
	return g.broker.Objects()
}

// DormantObjects 返回离线对象标识
func (g *Gateway) DormantObjects() []string {
	return g.broker.DormantObjects()
}

// Services 返回在线服务标识
func (g *Gateway) Services() []string {
	return g.broker.Services()
}

// Stats 返回当前指标快照
func (g *Gateway) Stats() metrics.Snapshot {
	return g.collector.Snapshot()
}

// SetBehaviours 按新配置替换后续链路的分帧、心跳、bye 与重连行为
func (g *Gateway) SetBehaviours(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	g.gw.SetBehaviours(iconfig.BehavioursFrom(cfg))
	return nil
}
