package peer

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"

	"github.com/dep2p/go-iotgate/internal/core/connstate"
	"github.com/dep2p/go-iotgate/internal/core/liveness"
	"github.com/dep2p/go-iotgate/internal/core/recovery"
	"github.com/dep2p/go-iotgate/internal/util/logger"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// DefaultDialTimeout 默认拨号超时（含 TLS 握手）
const DefaultDialTimeout = 10 * time.Second

// DialFunc 建立到远端的原始连接
type DialFunc func(ctx context.Context) (net.Conn, error)

// Config 客户端 Peer 配置
type Config struct {
	// LocalID 本端标识
	LocalID string

	// RemoteID 远端标识
	RemoteID string

	// Proto 协议名标签，用于日志与信任库标签
	Proto string

	// Address 已解析的远端地址 host:port
	Address string

	// TLS 客户端 TLS 配置，nil 表示明文
	TLS *tls.Config

	// DialTimeout 拨号超时
	DialTimeout time.Duration

	// Dial 自定义拨号函数，设置后忽略 Address/TLS
	Dial DialFunc

	// Behaviours 行为配置
	Behaviours Behaviours

	// Clock 时钟，nil 使用系统时钟
	Clock clock.Clock
}

func (c Config) dialFunc() DialFunc {
	if c.Dial != nil {
		return c.Dial
	}
	nd := &net.Dialer{KeepAlive: 30 * time.Second}
	addr := c.Address
	if c.TLS != nil {
		td := &tls.Dialer{NetDialer: nd, Config: c.TLS}
		return func(ctx context.Context) (net.Conn, error) {
			return td.DialContext(ctx, "tcp", addr)
		}
	}
	return func(ctx context.Context) (net.Conn, error) {
		return nd.DialContext(ctx, "tcp", addr)
	}
}

// ============================================================================
//                              Peer 结构
// ============================================================================

// Peer 一条点对点链路
type Peer struct {
	id          string
	localID     string
	remoteID    string
	proto       string
	address     string
	role        types.Role
	dialTimeout time.Duration
	log         *slog.Logger

	clock      clock.Clock
	machine    *connstate.Machine
	behaviours *behaviourSet
	reconnect  *recovery.Scheduler
	dial       DialFunc
	dispatch   *dispatcher

	handlerMu sync.RWMutex
	handler   MessageHandler

	observersMu sync.RWMutex
	observers   []Observer

	// mu 保护会话、连接代际与拨号取消函数
	mu         sync.Mutex
	sess       *session
	gen        uint64
	cancelDial context.CancelFunc
}

// NewClient 创建客户端角色的 Peer，初始状态为 Disconnected
func NewClient(cfg Config, handler MessageHandler) *Peer {
	p := newPeer(types.RoleClient, cfg.LocalID, cfg.RemoteID, cfg.Proto, cfg.Address, cfg.Clock, cfg.Behaviours)
	p.handler = handler
	p.dial = cfg.dialFunc()
	p.dialTimeout = cfg.DialTimeout
	if p.dialTimeout <= 0 {
		p.dialTimeout = DefaultDialTimeout
	}
	p.reconnect = recovery.NewScheduler(p.clock, p.behaviours.reconnect)
	return p
}

func newPeer(role types.Role, localID, remoteID, proto, address string, clk clock.Clock, b Behaviours) *Peer {
	if clk == nil {
		clk = clock.New()
	}
	p := &Peer{
		id:         uuid.NewString(),
		localID:    localID,
		remoteID:   remoteID,
		proto:      proto,
		address:    address,
		role:       role,
		clock:      clk,
		machine:    connstate.New(clk),
		behaviours: newBehaviourSet(b),
		log:        logger.With("peer", "proto", proto, "remote", remoteID),
	}
	p.dispatch = newDispatcher(p)
	return p
}

// ============================================================================
//                              访问器
// ============================================================================

// ID 返回 Peer 实例的唯一标识
func (p *Peer) ID() string { return p.id }

// LocalID 返回本端标识
func (p *Peer) LocalID() string { return p.localID }

// RemoteID 返回远端标识
func (p *Peer) RemoteID() string { return p.remoteID }

// Proto 返回协议名标签
func (p *Peer) Proto() string { return p.proto }

// Address 返回远端地址
func (p *Peer) Address() string { return p.address }

// Role 返回连接角色
func (p *Peer) Role() types.Role { return p.role }

// State 返回当前连接状态
func (p *Peer) State() types.ConnectionState { return p.machine.State() }

// Stats 返回统计快照
func (p *Peer) Stats() types.ConnectionStats { return p.machine.Stats() }

// History 返回最近的状态转换
func (p *Peer) History() []connstate.Transition { return p.machine.History() }

// IsConnected 是否已连接
func (p *Peer) IsConnected() bool { return p.State().IsConnected() }

// Session 返回当前会话 ID，未连接时为空
func (p *Peer) Session() string {
	if s := p.current(); s != nil {
		return s.id
	}
	return ""
}

// PeerCertificate 返回当前 TLS 会话中对端的叶子证书
func (p *Peer) PeerCertificate() *x509.Certificate {
	s := p.current()
	if s == nil {
		return nil
	}
	tc, ok := s.conn.(*tls.Conn)
	if !ok {
		return nil
	}
	certs := tc.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return nil
	}
	return certs[0]
}

func (p *Peer) current() *session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sess
}

// ============================================================================
//                              处理器与观察者
// ============================================================================

// SetHandler 设置唯一的消息处理器
func (p *Peer) SetHandler(h MessageHandler) {
	p.handlerMu.Lock()
	p.handler = h
	p.handlerMu.Unlock()
}

func (p *Peer) messageHandler() MessageHandler {
	p.handlerMu.RLock()
	defer p.handlerMu.RUnlock()
	return p.handler
}

// AddObserver 注册事件观察者
func (p *Peer) AddObserver(o Observer) {
	p.observersMu.Lock()
	p.observers = append(p.observers, o)
	p.observersMu.Unlock()
}

func (p *Peer) observerSnapshot() []Observer {
	p.observersMu.RLock()
	defer p.observersMu.RUnlock()
	out := make([]Observer, len(p.observers))
	copy(out, p.observers)
	return out
}

// Flush 等待已入队的事件与消息派发完毕
func (p *Peer) Flush() {
	p.dispatch.flush()
}

func (p *Peer) emit(t types.PeerEventType, state types.ConnectionState, sessionID string, reason types.DisconnectReason, err error) {
	ev := types.PeerEvent{
		Type:     t,
		Session:  sessionID,
		LocalID:  p.localID,
		RemoteID: p.remoteID,
		State:    state,
		Reason:   reason,
		Err:      err,
		Time:     p.clock.Now(),
	}
	p.dispatch.push(item{ev: &ev})
}

// ============================================================================
//                              行为配置
// ============================================================================

// Behaviours 返回当前行为配置
func (p *Peer) Behaviours() Behaviours {
	return p.behaviours.load()
}

// SetHeartbeat 修改心跳配置，下一周期生效
func (p *Peer) SetHeartbeat(s liveness.HeartbeatSettings) {
	p.behaviours.update(func(b *Behaviours) { b.Heartbeat = s })
}

// SetBye 修改 bye 配置
func (p *Peer) SetBye(s liveness.ByeSettings) {
	p.behaviours.update(func(b *Behaviours) { b.Bye = s })
}

// SetReconnect 修改重连配置，下一次安排时生效
func (p *Peer) SetReconnect(s recovery.ReconnectSettings) {
	p.behaviours.update(func(b *Behaviours) { b.Reconnect = s })
}

// SetFraming 修改分帧配置，下一次建立连接时生效
func (p *Peer) SetFraming(s FramingSettings) {
	p.behaviours.update(func(b *Behaviours) { b.Framing = s })
}
