package peer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	tec "github.com/jbenet/go-temp-err-catcher"
	"go.uber.org/multierr"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/dep2p/go-iotgate/internal/core/connstate"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// DefaultHandshakeTimeout 服务端 TLS 握手超时
const DefaultHandshakeTimeout = 10 * time.Second

// ListenerConfig 监听器配置
type ListenerConfig struct {
	// LocalID 本端标识
	LocalID string

	// Proto 协议名标签
	Proto string

	// Address 监听地址 host:port，端口为 0 时自动分配
	Address string

	// TLS 服务端 TLS 配置，nil 表示明文
	TLS *tls.Config

	// MaxConnections 最大并发连接数，0 表示不限制
	MaxConnections int

	// HandshakeTimeout TLS 握手超时
	HandshakeTimeout time.Duration

	// Behaviours 接受连接时复制给服务端 Peer 的行为配置
	Behaviours Behaviours

	// Clock 时钟
	Clock clock.Clock

	// Observers 初始观察者，接受第一个连接前即已生效
	Observers []Observer
}

// ============================================================================
//                              Listener 实现
// ============================================================================

// Listener 接受入站连接，每个套接字成为一个服务端角色的 Peer
type Listener struct {
	cfg        ListenerConfig
	ln         net.Listener
	behaviours *behaviourSet
	handler    MessageHandler

	observersMu sync.RWMutex
	observers   []Observer

	mu    sync.RWMutex
	peers map[string]*Peer

	closed atomic.Bool
	wg     sync.WaitGroup
}

// Listen 绑定地址并开始接受连接
//
// 绑定失败同步返回 *BindError。
func Listen(ctx context.Context, cfg ListenerConfig, handler MessageHandler) (*Listener, error) {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.Address)
	if err != nil {
		return nil, &BindError{Address: cfg.Address, Err: err}
	}
	if cfg.MaxConnections > 0 {
		ln = netutil.LimitListener(ln, cfg.MaxConnections)
	}

	l := &Listener{
		cfg:        cfg,
		ln:         ln,
		behaviours: newBehaviourSet(cfg.Behaviours),
		handler:    handler,
		observers:  append([]Observer(nil), cfg.Observers...),
		peers:      make(map[string]*Peer),
	}

	l.wg.Add(1)
	go l.acceptLoop()

	log.Info("监听器已启动", "proto", cfg.Proto, "addr", ln.Addr().String(), "tls", cfg.TLS != nil)
	return l, nil
}

// Addr 返回实际监听地址
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// AddObserver 注册观察者，接收所有已接受 Peer 的事件
//
// 同一 Peer 的事件按发生顺序投递。
func (l *Listener) AddObserver(o Observer) {
	l.observersMu.Lock()
	l.observers = append(l.observers, o)
	l.observersMu.Unlock()
}

// Peers 返回当前存活的服务端 Peer
func (l *Listener) Peers() []*Peer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*Peer, 0, len(l.peers))
	for _, p := range l.peers {
		out = append(out, p)
	}
	return out
}

// Len 返回当前存活的 Peer 数
func (l *Listener) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.peers)
}

// SetBehaviours 修改之后接受的连接所使用的行为配置
func (l *Listener) SetBehaviours(b Behaviours) {
	l.behaviours.update(func(cur *Behaviours) { *cur = b })
}

// ============================================================================
//                              接受循环
// ============================================================================

func (l *Listener) acceptLoop() {
	defer l.wg.Done()

	var catcher tec.TempErrCatcher
	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if !l.closed.Load() && catcher.IsTemporary(err) {
				continue
			}
			if !l.closed.Load() {
				log.Error("接受连接失败，监听器停止", "addr", l.Addr().String(), "err", err)
			}
			return
		}

		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			l.handleConn(conn)
		}()
	}
}

func (l *Listener) handleConn(conn net.Conn) {
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
		_ = tcp.SetKeepAlive(true)
	}

	remoteID := conn.RemoteAddr().String()
	if l.cfg.TLS != nil {
		tc := tls.Server(conn, l.cfg.TLS)
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.HandshakeTimeout)
		err := tc.HandshakeContext(ctx)
		cancel()
		if err != nil {
			log.Warn("TLS 握手失败", "remote", remoteID, "err", err)
			_ = conn.Close()
			return
		}
		if certs := tc.ConnectionState().PeerCertificates; len(certs) > 0 && certs[0].Subject.CommonName != "" {
			remoteID = certs[0].Subject.CommonName
		}
		conn = tc
	}

	if l.closed.Load() {
		_ = conn.Close()
		return
	}

	p, err := l.newServerPeer(conn, remoteID)
	if err != nil {
		log.Warn("创建服务端 Peer 失败", "remote", remoteID, "err", err)
		_ = conn.Close()
		return
	}

	// 登记与启动都在 l.mu 内完成，Close 的快照要么包含该 Peer，要么它从未启动
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed.Load() {
		_ = conn.Close()
		return
	}
	l.peers[p.ID()] = p
	s := p.sess
	p.AddObserver(ObserverFunc(l.onPeerEvent))
	p.emit(types.EvtConnected, types.StateConnected, s.id, types.ReasonNone, nil)
	p.startSession(s)
}

// newServerPeer 以接受时的行为快照创建已连接的服务端 Peer
func (l *Listener) newServerPeer(conn net.Conn, remoteID string) (*Peer, error) {
	p := newPeer(types.RoleServer, l.cfg.LocalID, remoteID, l.cfg.Proto, conn.RemoteAddr().String(), l.cfg.Clock, l.behaviours.load())
	p.handler = l.handler

	p.mu.Lock()
	defer p.mu.Unlock()
	s, err := p.newSession(conn)
	if err != nil {
		return nil, err
	}
	if _, err := p.machine.Fire(connstate.EventConnect); err != nil {
		return nil, err
	}
	if _, err := p.machine.Fire(connstate.EventEstablished); err != nil {
		return nil, err
	}
	p.sess = s
	return p, nil
}

func (l *Listener) onPeerEvent(p *Peer, ev types.PeerEvent) {
	if ev.IsTerminal() {
		l.mu.Lock()
		delete(l.peers, p.ID())
		l.mu.Unlock()
	}

	l.observersMu.RLock()
	observers := make([]Observer, len(l.observers))
	copy(observers, l.observers)
	l.observersMu.RUnlock()

	for _, o := range observers {
		o.OnPeerEvent(p, ev)
	}
}

// ============================================================================
//                              关闭
// ============================================================================

// Close 停止接受连接并断开所有已接受的 Peer
func (l *Listener) Close() error {
	l.mu.Lock()
	first := l.closed.CompareAndSwap(false, true)
	l.mu.Unlock()
	if !first {
		return nil
	}

	var errs error
	if err := l.ln.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("关闭监听套接字失败: %w", err))
	}

	var mu sync.Mutex
	var g errgroup.Group
	for _, p := range l.Peers() {
		p := p
		g.Go(func() error {
			if err := p.Disconnect(); err != nil {
				mu.Lock()
				errs = multierr.Append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	l.wg.Wait()

	log.Info("监听器已关闭", "proto", l.cfg.Proto, "addr", l.Addr().String())
	return errs
}
