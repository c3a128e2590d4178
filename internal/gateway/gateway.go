package gateway

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-iotgate/internal/broker"
	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/internal/core/peer"
	"github.com/dep2p/go-iotgate/internal/core/security/certsharing"
	"github.com/dep2p/go-iotgate/internal/core/security/truststore"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
)

// 链路协议标签，同时用作信任库标签前缀
const (
	ProtoObject  = "OBJ"
	ProtoService = "SRV"
)

var (
	// ErrAlreadyStarted 网关已启动
	ErrAlreadyStarted = errors.New("gateway: already started")

	// ErrNotStarted 网关未启动
	ErrNotStarted = errors.New("gateway: not started")
)

// Config 网关配置
type Config struct {
	// LocalID 网关标识
	LocalID string

	// ObjectListen 对象端口监听地址
	ObjectListen string

	// ServiceListen 服务端口监听地址
	ServiceListen string

	// TLS 数据链路的服务端 TLS 配置，nil 表示明文
	TLS *tls.Config

	// MaxConnections 每个监听器的最大连接数
	MaxConnections int

	// HandshakeTimeout TLS 握手超时
	HandshakeTimeout time.Duration

	// Behaviours 接入链路的行为配置
	Behaviours peer.Behaviours

	// Clock 时钟
	Clock clock.Clock

	// CertSharing 证书共享握手
	CertSharing CertSharingConfig
}

// CertSharingConfig 网关侧证书共享配置
type CertSharingConfig struct {
	Enabled         bool
	PortOffset      int
	ExchangeTimeout time.Duration
	Cert            *tls.Certificate
	Store           *truststore.Store

	// OnTrusted 新证书加入信任库后的回调
	OnTrusted func(label string, cert *x509.Certificate)
}

// Option 网关选项
type Option func(*Gateway)

// WithObjectStore 设置对象元数据存储：启动时恢复离线端点，运行时记录上下线
func WithObjectStore(s interfaces.ObjectStore) Option {
	return func(g *Gateway) { g.objects = s }
}

// WithMailbox 设置离线信箱：离线对象的消息暂存，重新上线后补发
func WithMailbox(m *endpoint.Mailbox) Option {
	return func(g *Gateway) { g.mailbox = m }
}

// WithObservers 追加两个监听器上的连接事件观察者
func WithObservers(obs ...peer.Observer) Option {
	return func(g *Gateway) { g.observers = append(g.observers, obs...) }
}

// ============================================================================
//                              Gateway
// ============================================================================

// Gateway 对象与服务的接入网关
type Gateway struct {
	cfg       Config
	broker    *broker.Broker
	objects   interfaces.ObjectStore
	mailbox   *endpoint.Mailbox
	observers []peer.Observer

	mu       sync.Mutex
	bindings map[string]*endpoint.Endpoint
	objLn    *peer.Listener
	srvLn    *peer.Listener
	sharing  []*certsharing.Server

	started atomic.Bool
}

// New 创建网关
func New(cfg Config, b *broker.Broker, opts ...Option) *Gateway {
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	g := &Gateway{
		cfg:      cfg,
		broker:   b,
		bindings: make(map[string]*endpoint.Endpoint),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Broker 返回网关使用的代理
func (g *Gateway) Broker() *broker.Broker {
	return g.broker
}

// Start 恢复离线端点并打开监听器
//
// 任一监听器绑定失败时关闭已打开的监听器并同步返回错误。
func (g *Gateway) Start(ctx context.Context) error {
	if !g.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	if err := g.restoreDormant(ctx); err != nil {
		g.started.Store(false)
		return err
	}

	var objLn, srvLn *peer.Listener
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		objLn, err = peer.Listen(egCtx, g.listenerConfig(ProtoObject, g.cfg.ObjectListen), g.onObjectFrame)
		return err
	})
	eg.Go(func() error {
		var err error
		srvLn, err = peer.Listen(egCtx, g.listenerConfig(ProtoService, g.cfg.ServiceListen), g.onServiceFrame)
		return err
	})
	if err := eg.Wait(); err != nil {
		g.started.Store(false)
		return multierr.Combine(err, closeListener(objLn), closeListener(srvLn))
	}

	g.mu.Lock()
	g.objLn, g.srvLn = objLn, srvLn
	g.mu.Unlock()

	if g.cfg.CertSharing.Enabled {
		if err := g.startCertSharing(ctx); err != nil {
			return multierr.Append(err, g.Stop())
		}
	}

	log.Info("网关已启动", "objects", objLn.Addr(), "services", srvLn.Addr())
	return nil
}

func closeListener(l *peer.Listener) error {
	if l == nil {
		return nil
	}
	return l.Close()
}

func (g *Gateway) listenerConfig(proto, addr string) peer.ListenerConfig {
	observers := append([]peer.Observer{peer.ObserverFunc(g.onPeerEvent)}, g.observers...)
	return peer.ListenerConfig{
		LocalID:          g.cfg.LocalID,
		Proto:            proto,
		Address:          addr,
		TLS:              g.cfg.TLS,
		MaxConnections:   g.cfg.MaxConnections,
		HandshakeTimeout: g.cfg.HandshakeTimeout,
		Behaviours:       g.cfg.Behaviours,
		Clock:            g.cfg.Clock,
		Observers:        observers,
	}
}

func (g *Gateway) startCertSharing(ctx context.Context) error {
	cs := g.cfg.CertSharing
	for _, l := range []struct {
		proto string
		ln    *peer.Listener
	}{{ProtoObject, g.objLn}, {ProtoService, g.srvLn}} {
		addr, err := certsharing.SharingAddress(l.ln.Addr().String(), cs.PortOffset)
		if err != nil {
			return err
		}
		srv, err := certsharing.NewServer(certsharing.ServerConfig{
			LocalID:         g.cfg.LocalID,
			Proto:           l.proto,
			Address:         addr,
			Cert:            cs.Cert,
			Store:           cs.Store,
			Delimiter:       g.cfg.Behaviours.Framing.Delimiter,
			MaxConnections:  g.cfg.MaxConnections,
			ExchangeTimeout: cs.ExchangeTimeout,
			OnTrusted:       cs.OnTrusted,
		})
		if err != nil {
			return err
		}
		if err := srv.Start(ctx); err != nil {
			return err
		}
		g.mu.Lock()
		g.sharing = append(g.sharing, srv)
		g.mu.Unlock()
	}
	return nil
}

// Stop 关闭证书共享服务与监听器，断开全部链路
func (g *Gateway) Stop() error {
	if !g.started.CompareAndSwap(true, false) {
		return ErrNotStarted
	}

	g.mu.Lock()
	sharing := g.sharing
	objLn, srvLn := g.objLn, g.srvLn
	g.sharing, g.objLn, g.srvLn = nil, nil, nil
	g.mu.Unlock()

	var err error
	for _, s := range sharing {
		err = multierr.Append(err, s.Stop())
	}
	err = multierr.Append(err, closeListener(objLn))
	err = multierr.Append(err, closeListener(srvLn))
	log.Info("网关已停止")
	return err
}

// ObjectAddr 返回对象端口实际地址
func (g *Gateway) ObjectAddr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.objLn == nil {
		return nil
	}
	return g.objLn.Addr()
}

// ServiceAddr 返回服务端口实际地址
func (g *Gateway) ServiceAddr() net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.srvLn == nil {
		return nil
	}
	return g.srvLn.Addr()
}

// SharingAddrs 返回证书共享端口地址（对象、服务）
func (g *Gateway) SharingAddrs() []net.Addr {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]net.Addr, 0, len(g.sharing))
	for _, s := range g.sharing {
		out = append(out, s.Addr())
	}
	return out
}

// Connections 返回当前接入的对象与服务链路数
func (g *Gateway) Connections() (objects, services int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.objLn != nil {
		objects = g.objLn.Len()
	}
	if g.srvLn != nil {
		services = g.srvLn.Len()
	}
	return objects, services
}

// SetBehaviours 替换后续接入链路的行为配置
func (g *Gateway) SetBehaviours(b peer.Behaviours) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg.Behaviours = b
	for _, l := range []*peer.Listener{g.objLn, g.srvLn} {
		if l != nil {
			l.SetBehaviours(b)
		}
	}
}
