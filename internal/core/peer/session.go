package peer

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/dep2p/go-iotgate/internal/core/connstate"
	"github.com/dep2p/go-iotgate/internal/core/framing"
	"github.com/dep2p/go-iotgate/internal/core/liveness"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// session 一次已建立的套接字生命周期
type session struct {
	id    string
	conn  net.Conn
	codec *framing.Codec
	hb    *liveness.Heartbeat

	writeMu sync.Mutex
	ended   atomic.Bool
	endOnce sync.Once
}

// newSession 在持有 p.mu 时调用，不得阻塞
func (p *Peer) newSession(conn net.Conn) (*session, error) {
	codec, err := p.behaviours.codec()
	if err != nil {
		return nil, err
	}
	s := &session{
		id:    uuid.NewString(),
		conn:  conn,
		codec: codec,
	}
	s.hb = liveness.NewHeartbeat(p.clock, p.behaviours.heartbeat, liveness.HeartbeatHooks{
		Send:      func(msg string) error { return p.write(s, msg) },
		OnSuccess: p.machine.HeartbeatSucceeded,
		OnRequest: p.machine.HeartbeatReceived,
		OnFailure: func(err error) {
			p.machine.HeartbeatFailed()
			go p.endSession(s, types.ReasonHeartbeatTimeout, err)
		},
	})
	return s, nil
}

func (p *Peer) startSession(s *session) {
	s.hb.Start()
	go p.readLoop(s)
}

// ============================================================================
//                              读循环
// ============================================================================

func (p *Peer) readLoop(s *session) {
	r := s.codec.NewReader(s.conn)
	delimLen := len(s.codec.Delimiter())
	var bye liveness.ByeTracker

	for {
		frame, err := r.Next()
		if err != nil {
			if s.ended.Load() {
				return
			}
			if bye.GracefulEnd() {
				p.log.Info("远端有序断开", "session", s.id)
				p.endSession(s, types.ReasonRemoteRequest, nil)
				return
			}
			p.log.Warn("连接丢失", "session", s.id, "err", err)
			p.endSession(s, types.ReasonConnectionLost, err)
			return
		}
		p.machine.AddBytesRecv(len(frame) + delimLen)

		msg, err := s.codec.Decode(frame)
		if err != nil {
			p.log.Warn("帧解码失败", "err", err)
			p.endSession(s, types.ReasonRemoteError, err)
			return
		}

		if s.hb.Process(msg) {
			continue
		}
		if bye.Observe(p.behaviours.bye(), msg) {
			continue
		}
		p.dispatch.push(item{msg: msg})
	}
}

// ============================================================================
//                              发送
// ============================================================================

// Send 发送一条消息
//
// 写失败会强制断开链路（启用重连时随即重新连接）并返回 ErrSendFailed。
func (p *Peer) Send(msg string) error {
	s := p.current()
	if s == nil {
		return ErrNotConnected
	}
	data, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	return p.writeFrame(s, data)
}

// SendRaw 发送原始字节帧，不做字符集转换
func (p *Peer) SendRaw(b []byte) error {
	s := p.current()
	if s == nil {
		return ErrNotConnected
	}
	return p.writeFrame(s, s.codec.EncodeRaw(b))
}

// write 控制消息写出（心跳、bye），失败不触发断开
func (p *Peer) write(s *session, msg string) error {
	data, err := s.codec.Encode(msg)
	if err != nil {
		return err
	}
	return p.rawWrite(s, data)
}

func (p *Peer) writeFrame(s *session, data []byte) error {
	if err := p.rawWrite(s, data); err != nil {
		p.endSession(s, types.ReasonConnectionLost, err)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	return nil
}

func (p *Peer) rawWrite(s *session, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if s.ended.Load() {
		return ErrNotConnected
	}
	_ = s.conn.SetWriteDeadline(p.clock.Now().Add(p.behaviours.writeTimeout()))
	n, err := s.conn.Write(data)
	p.machine.AddBytesSent(n)
	return err
}

// ============================================================================
//                              会话结束
// ============================================================================

// endSession 结束会话，每个会话只执行一次
//
// 第一个调用者的原因生效。本地请求时先写出 bye；非本地原因且为客户端时立即重连。
func (p *Peer) endSession(s *session, reason types.DisconnectReason, cause error) {
	s.endOnce.Do(func() {
		local := reason == types.ReasonLocalRequest

		var ev connstate.Event
		switch reason {
		case types.ReasonLocalRequest:
			ev = connstate.EventDisconnect
		case types.ReasonRemoteRequest:
			ev = connstate.EventRemoteClosed
		default:
			ev = connstate.EventTransportError
		}

		// 代际在进入 Disconnecting 时确定，此后的 Disconnect 会使重连失效
		p.mu.Lock()
		var tr connstate.Transition
		owned := p.sess == s
		if owned {
			tr, _ = p.machine.Fire(ev)
		}
		gen := p.gen
		p.mu.Unlock()

		if owned {
			p.emit(types.EvtDisconnecting, tr.To, s.id, reason, cause)
		}

		s.hb.Stop()
		if local {
			liveness.SayGoodbye(p.behaviours.bye(), func(msg string) error { return p.write(s, msg) })
		}
		s.ended.Store(true)
		if err := s.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			p.log.Debug("关闭套接字失败", "err", err)
		}

		p.mu.Lock()
		if owned && p.sess == s {
			tr, _ = p.machine.Fire(connstate.EventClosed)
			p.sess = nil
		}
		p.mu.Unlock()

		if !owned {
			return
		}

		evType := types.EvtFailed
		if reason.IsGraceful() {
			evType = types.EvtDisconnected
		}
		p.log.Info("链路已断开", "session", s.id, "reason", reason)
		p.emit(evType, tr.To, s.id, reason, cause)

		if !local && p.dial != nil && p.reconnect.Enabled() {
			go p.reconnectNow(gen)
		}
	})
}
