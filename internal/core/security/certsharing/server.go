package certsharing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"
	"time"

	"github.com/dep2p/go-iotgate/internal/core/peer"
	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
	"github.com/dep2p/go-iotgate/internal/core/security/truststore"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// DefaultExchangeTimeout 单次握手允许的最长时间
const DefaultExchangeTimeout = 30 * time.Second

// ServerConfig 握手服务端配置
type ServerConfig struct {
	// LocalID 本端标识
	LocalID string

	// Proto 协议名，用于信任库标签
	Proto string

	// Address 监听地址
	Address string

	// Cert 本端证书
	Cert *tls.Certificate

	// Store 接收证书的信任库
	Store *truststore.Store

	// Delimiter 分帧分隔符，为空使用默认值
	Delimiter string

	// MaxConnections 最大并发握手数
	MaxConnections int

	// ExchangeTimeout 单次握手超时，超时后断开
	ExchangeTimeout time.Duration

	// OnTrusted 新证书加入信任库后的回调
	OnTrusted func(label string, cert *x509.Certificate)
}

// Server 证书共享握手的接受方
type Server struct {
	cfg ServerConfig
	ln  *peer.Listener

	mu      sync.Mutex
	pending map[string]*exchange
}

type exchange struct {
	acc   *accumulator
	timer *time.Timer
}

// NewServer 创建握手服务端
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Cert == nil || len(cfg.Cert.Certificate) == 0 {
		return nil, ErrNoCertificate
	}
	if cfg.Store == nil {
		return nil, ErrNoTrustStore
	}
	if cfg.ExchangeTimeout <= 0 {
		cfg.ExchangeTimeout = DefaultExchangeTimeout
	}
	return &Server{cfg: cfg, pending: make(map[string]*exchange)}, nil
}

// Start 绑定地址并开始接受握手
func (s *Server) Start(ctx context.Context) error {
	tlsCfg, err := gatetls.NewConfigBuilder(s.cfg.Cert, s.cfg.Store).BuildFirstUseServerConfig()
	if err != nil {
		return err
	}

	ln, err := peer.Listen(ctx, peer.ListenerConfig{
		LocalID:        s.cfg.LocalID,
		Proto:          s.cfg.Proto,
		Address:        s.cfg.Address,
		TLS:            tlsCfg,
		MaxConnections: s.cfg.MaxConnections,
		Behaviours:     handshakeBehaviours(s.cfg.Delimiter),
		Observers:      []peer.Observer{peer.ObserverFunc(s.onEvent)},
	}, s.onFrame)
	if err != nil {
		return err
	}
	s.ln = ln
	log.Info("证书共享服务已启动", "addr", ln.Addr().String())
	return nil
}

// Addr 返回监听地址，未启动时为 nil
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Stop 关闭监听并断开进行中的握手
func (s *Server) Stop() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) onEvent(p *peer.Peer, ev types.PeerEvent) {
	switch {
	case ev.Type == types.EvtConnected:
		x := &exchange{
			acc:   newAccumulator([]byte(p.Behaviours().Framing.Delimiter)),
			timer: time.AfterFunc(s.cfg.ExchangeTimeout, func() { _ = p.Disconnect() }),
		}
		s.mu.Lock()
		s.pending[p.ID()] = x
		s.mu.Unlock()

		if err := p.SendRaw(s.cfg.Cert.Certificate[0]); err != nil {
			log.Warn("发送本端证书失败", "remote", p.RemoteID(), "err", err)
		}

	case ev.IsTerminal():
		s.mu.Lock()
		x := s.pending[p.ID()]
		delete(s.pending, p.ID())
		s.mu.Unlock()
		if x != nil {
			x.timer.Stop()
		}
	}
}

func (s *Server) onFrame(p *peer.Peer, msg string) {
	s.mu.Lock()
	x := s.pending[p.ID()]
	s.mu.Unlock()
	if x == nil {
		return
	}

	cert, err := x.acc.add(msg)
	if err != nil {
		log.Warn("证书载荷无效", "remote", p.RemoteID(), "err", err)
		_ = p.Disconnect()
		return
	}
	if cert == nil {
		return
	}

	label := types.TrustLabel(s.cfg.Proto, p.RemoteID())
	if err := s.cfg.Store.Add(label, cert); err != nil {
		log.Warn("保存远端证书失败", "label", label, "err", err)
		_ = p.Disconnect()
		return
	}
	log.Info("已信任远端证书", "label", label, "fingerprint", truststore.Fingerprint(cert))
	if s.cfg.OnTrusted != nil {
		s.cfg.OnTrusted(label, cert)
	}
	_ = p.Disconnect()
}
