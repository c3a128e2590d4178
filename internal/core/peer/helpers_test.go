package peer

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-iotgate/internal/core/liveness"
	"github.com/dep2p/go-iotgate/internal/core/recovery"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// ============================================================================
//                              测试辅助
// ============================================================================

type recorder struct {
	mu     sync.Mutex
	events []types.PeerEvent
	msgs   []string
}

func (r *recorder) OnPeerEvent(_ *Peer, ev types.PeerEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
}

func (r *recorder) handle(_ *Peer, msg string) {
	r.mu.Lock()
	r.msgs = append(r.msgs, msg)
	r.mu.Unlock()
}

func (r *recorder) eventTypes() []types.PeerEventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.PeerEventType, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Type
	}
	return out
}

func (r *recorder) last() (types.PeerEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return types.PeerEvent{}, false
	}
	return r.events[len(r.events)-1], true
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

func (r *recorder) waitTerminal(t *testing.T) types.PeerEvent {
	t.Helper()
	var ev types.PeerEvent
	require.Eventually(t, func() bool {
		last, ok := r.last()
		if ok && last.IsTerminal() {
			ev = last
			return true
		}
		return false
	}, 3*time.Second, 10*time.Millisecond)
	return ev
}

// quietBehaviours 关闭心跳与重连，便于确定性断言
func quietBehaviours() Behaviours {
	b := DefaultBehaviours()
	b.Heartbeat = liveness.HeartbeatSettings{Enabled: false, Respond: true}
	b.Reconnect = recovery.ReconnectSettings{Enabled: false}
	return b
}

// freeAddr 返回一个当前无人监听的本地地址
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func newTestClient(addr string, b Behaviours) (*Peer, *recorder) {
	rec := &recorder{}
	p := NewClient(Config{
		LocalID:     "client",
		RemoteID:    "server",
		Proto:       "test",
		Address:     addr,
		DialTimeout: time.Second,
		Behaviours:  b,
	}, rec.handle)
	p.AddObserver(rec)
	return p, rec
}
