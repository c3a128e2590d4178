package certsharing

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"time"

	"github.com/dep2p/go-iotgate/internal/core/peer"
	gatetls "github.com/dep2p/go-iotgate/internal/core/security/tls"
	"github.com/dep2p/go-iotgate/internal/core/security/truststore"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// ClientConfig 握手客户端配置
type ClientConfig struct {
	// LocalID 本端标识
	LocalID string

	// RemoteID 远端标识，为空时取远端证书的 CommonName
	RemoteID string

	// Proto 协议名，用于信任库标签
	Proto string

	// Address 握手地址 host:port（通常为数据端口 + 1）
	Address string

	// Cert 本端证书
	Cert *tls.Certificate

	// Store 接收证书的信任库
	Store *truststore.Store

	// Delimiter 分帧分隔符，为空使用默认值
	Delimiter string

	// DialTimeout 拨号超时
	DialTimeout time.Duration
}

// Client 证书共享握手的发起方
type Client struct {
	cfg ClientConfig
}

// NewClient 创建握手客户端
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Cert == nil || len(cfg.Cert.Certificate) == 0 {
		return nil, ErrNoCertificate
	}
	if cfg.Store == nil {
		return nil, ErrNoTrustStore
	}
	return &Client{cfg: cfg}, nil
}

type outcome struct {
	cert *x509.Certificate
	err  error
}

// Share 执行一次握手，返回远端证书
//
// 收到远端证书并加入信任库后，等待远端以 bye 关闭连接，
// 以确保本端证书已被远端接收；ctx 到期时主动断开。
func (c *Client) Share(ctx context.Context) (*x509.Certificate, error) {
	tlsCfg, err := gatetls.NewConfigBuilder(c.cfg.Cert, c.cfg.Store).BuildFirstUseClientConfig()
	if err != nil {
		return nil, err
	}

	b := handshakeBehaviours(c.cfg.Delimiter)
	received := make(chan outcome, 1)
	closed := make(chan struct{})
	var once, closeOnce sync.Once
	deliver := func(o outcome) {
		once.Do(func() { received <- o })
	}

	acc := newAccumulator([]byte(b.Framing.Delimiter))
	p := peer.NewClient(peer.Config{
		LocalID:     c.cfg.LocalID,
		RemoteID:    c.cfg.RemoteID,
		Proto:       c.cfg.Proto,
		Address:     c.cfg.Address,
		TLS:         tlsCfg,
		DialTimeout: c.cfg.DialTimeout,
		Behaviours:  b,
	}, func(_ *peer.Peer, msg string) {
		cert, err := acc.add(msg)
		if err != nil {
			deliver(outcome{err: err})
			return
		}
		if cert != nil {
			deliver(outcome{cert: cert})
		}
	})

	p.AddObserver(peer.ObserverFunc(func(p *peer.Peer, ev types.PeerEvent) {
		switch {
		case ev.Type == types.EvtConnected:
			if err := p.SendRaw(c.cfg.Cert.Certificate[0]); err != nil {
				deliver(outcome{err: err})
			}
		case ev.IsTerminal():
			deliver(outcome{err: ErrNoRemoteCertificate})
			closeOnce.Do(func() { close(closed) })
		}
	}))

	if _, err := p.Connect(ctx); err != nil {
		return nil, err
	}

	var res outcome
	select {
	case res = <-received:
	case <-ctx.Done():
		_ = p.Disconnect()
		return nil, ctx.Err()
	}
	if res.err != nil {
		_ = p.Disconnect()
		return nil, res.err
	}

	remoteID := c.cfg.RemoteID
	if remoteID == "" {
		remoteID = gatetls.IdentityOf(res.cert)
	}
	label := types.TrustLabel(c.cfg.Proto, remoteID)
	if err := c.cfg.Store.Add(label, res.cert); err != nil {
		_ = p.Disconnect()
		return nil, fmt.Errorf("保存远端证书失败: %w", err)
	}
	log.Info("已信任远端证书", "label", label, "fingerprint", truststore.Fingerprint(res.cert))

	select {
	case <-closed:
	case <-ctx.Done():
		log.Debug("等待远端关闭超时，主动断开", "label", label)
		_ = p.Disconnect()
	}
	return res.cert, nil
}
