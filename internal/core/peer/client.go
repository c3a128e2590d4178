package peer

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/dep2p/go-iotgate/internal/core/connstate"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// ============================================================================
//                              Connect
// ============================================================================

// Connect 建立连接
//
// 已处于 Connecting、WaitingForRemote 或 Connected 时为空操作，返回当前状态。
// 目标不可达且启用重连时进入 WaitingForRemote 并返回 nil 错误，之后自动重试；
// 未启用重连或错误不可恢复（如 TLS 校验失败）时回到 Disconnected 并返回 ErrConnectFailed。
func (p *Peer) Connect(ctx context.Context) (types.ConnectionState, error) {
	p.mu.Lock()
	st := p.machine.State()
	if st.IsActive() {
		p.mu.Unlock()
		return st, nil
	}
	if p.dial == nil {
		p.mu.Unlock()
		return st, ErrNoDialer
	}
	if st == types.StateDisconnecting {
		p.mu.Unlock()
		return st, ErrDisconnecting
	}

	tr, err := p.machine.Fire(connstate.EventConnect)
	if err != nil {
		p.mu.Unlock()
		return st, err
	}
	p.gen++
	gen := p.gen
	p.mu.Unlock()

	p.emit(types.EvtConnecting, tr.To, "", types.ReasonNone, nil)
	return p.attempt(ctx, gen, false)
}

// attempt 在 Connecting 状态下执行一次拨号
//
// background 为 true 表示由重连触发：启用重连时任何失败都继续等待重试。
func (p *Peer) attempt(ctx context.Context, gen uint64, background bool) (types.ConnectionState, error) {
	dctx, cancel := context.WithTimeout(ctx, p.dialTimeout)
	defer cancel()

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return p.State(), ErrConnectCanceled
	}
	p.cancelDial = cancel
	p.mu.Unlock()

	conn, dialErr := p.dial(dctx)

	p.mu.Lock()
	p.cancelDial = nil
	if p.gen != gen || p.machine.State() != types.StateConnecting {
		// Disconnect 在拨号期间发生
		p.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		return p.State(), ErrConnectCanceled
	}

	if dialErr != nil {
		if p.reconnect.Enabled() && (background || isUnreachable(dialErr)) {
			tr, _ := p.machine.Fire(connstate.EventUnreachable)
			p.mu.Unlock()

			p.emit(types.EvtWaiting, tr.To, "", types.ReasonNone, dialErr)
			p.reconnect.ReportFailure(p.address, dialErr)
			p.scheduleRetry(gen)
			return tr.To, nil
		}

		tr, _ := p.machine.Fire(connstate.EventConnectFailed)
		p.mu.Unlock()

		p.log.Warn("连接失败", "addr", p.address, "err", dialErr)
		p.emit(types.EvtFailed, tr.To, "", types.ReasonConnectionLost, dialErr)
		return tr.To, fmt.Errorf("%w: %v", ErrConnectFailed, dialErr)
	}

	s, err := p.newSession(conn)
	if err != nil {
		tr, _ := p.machine.Fire(connstate.EventConnectFailed)
		p.mu.Unlock()
		_ = conn.Close()
		p.emit(types.EvtFailed, tr.To, "", types.ReasonRemoteError, err)
		return tr.To, fmt.Errorf("%w: %v", ErrConnectFailed, err)
	}
	p.sess = s
	tr, _ := p.machine.Fire(connstate.EventEstablished)
	p.mu.Unlock()

	p.reconnect.Reset()
	p.log.Info("连接已建立", "addr", p.address, "session", s.id)
	p.emit(types.EvtConnected, tr.To, s.id, types.ReasonNone, nil)
	p.startSession(s)
	return tr.To, nil
}

func (p *Peer) scheduleRetry(gen uint64) {
	p.reconnect.Schedule(func() { p.retry(gen) })
}

// retry 重连定时器回调
func (p *Peer) retry(gen uint64) {
	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	tr, ok := p.machine.FireFrom(types.StateWaitingForRemote, connstate.EventRetry)
	p.mu.Unlock()
	if !ok {
		return
	}

	p.emit(types.EvtConnecting, tr.To, "", types.ReasonNone, nil)
	_, _ = p.attempt(context.Background(), gen, true)
}

// reconnectNow 非本地断开后立即重新连接
func (p *Peer) reconnectNow(gen uint64) {
	p.mu.Lock()
	if p.gen != gen || p.dial == nil {
		p.mu.Unlock()
		return
	}
	tr, ok := p.machine.FireFrom(types.StateDisconnected, connstate.EventConnect)
	p.mu.Unlock()
	if !ok {
		return
	}

	p.log.Info("链路意外断开，立即重连", "addr", p.address)
	p.emit(types.EvtConnecting, tr.To, "", types.ReasonNone, nil)
	_, _ = p.attempt(context.Background(), gen, true)
}

// isUnreachable 判断拨号错误是否表示目标暂时不可达
func isUnreachable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// ============================================================================
//                              Disconnect
// ============================================================================

// Disconnect 主动断开
//
// 取消待执行的重试和进行中的拨号；已连接时先发送 bye 再关闭。
// 已断开或正在断开时为空操作。
func (p *Peer) Disconnect() error {
	p.mu.Lock()
	p.gen++
	if p.reconnect != nil {
		p.reconnect.Cancel()
	}
	if p.cancelDial != nil {
		p.cancelDial()
		p.cancelDial = nil
	}

	switch st := p.machine.State(); st {
	case types.StateDisconnected, types.StateDisconnecting:
		p.mu.Unlock()
		return nil

	case types.StateConnecting, types.StateWaitingForRemote:
		tr1, _ := p.machine.Fire(connstate.EventDisconnect)
		tr2, _ := p.machine.Fire(connstate.EventClosed)
		p.mu.Unlock()

		p.log.Info("取消连接", "from", st)
		p.emit(types.EvtDisconnecting, tr1.To, "", types.ReasonLocalRequest, nil)
		p.emit(types.EvtDisconnected, tr2.To, "", types.ReasonLocalRequest, nil)
		return nil

	default:
		s := p.sess
		p.mu.Unlock()
		if s != nil {
			p.endSession(s, types.ReasonLocalRequest, nil)
		}
		return nil
	}
}
