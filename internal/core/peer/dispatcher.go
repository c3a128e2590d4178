package peer

import (
	"sync"

	"github.com/dep2p/go-iotgate/pkg/types"
)

// Observer 连接事件观察者
type Observer interface {
	OnPeerEvent(p *Peer, ev types.PeerEvent)
}

// ObserverFunc 函数形式的观察者
type ObserverFunc func(p *Peer, ev types.PeerEvent)

// OnPeerEvent 实现 Observer
func (f ObserverFunc) OnPeerEvent(p *Peer, ev types.PeerEvent) { f(p, ev) }

// MessageHandler 入站消息处理器
type MessageHandler func(p *Peer, msg string)

// item 派发队列元素，事件或消息二选一
type item struct {
	ev  *types.PeerEvent
	msg string
}

// dispatcher 单连接有序派发队列
//
// 队列无界，入队从不阻塞；同一时刻最多一个 worker 在派发。
type dispatcher struct {
	peer *Peer

	mu      sync.Mutex
	queue   []item
	running bool
	idle    *sync.Cond
}

func newDispatcher(p *Peer) *dispatcher {
	d := &dispatcher{peer: p}
	d.idle = sync.NewCond(&d.mu)
	return d
}

func (d *dispatcher) push(it item) {
	d.mu.Lock()
	d.queue = append(d.queue, it)
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()
	go d.drain()
}

func (d *dispatcher) drain() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.running = false
			d.idle.Broadcast()
			d.mu.Unlock()
			return
		}
		it := d.queue[0]
		d.queue[0] = item{}
		d.queue = d.queue[1:]
		d.mu.Unlock()

		d.deliver(it)
	}
}

func (d *dispatcher) deliver(it item) {
	defer func() {
		if r := recover(); r != nil {
			d.peer.log.Error("派发回调 panic", "panic", r)
		}
	}()

	if it.ev != nil {
		for _, o := range d.peer.observerSnapshot() {
			o.OnPeerEvent(d.peer, *it.ev)
		}
		return
	}
	if h := d.peer.messageHandler(); h != nil {
		h(d.peer, it.msg)
	}
}

// flush 等待队列清空
func (d *dispatcher) flush() {
	d.mu.Lock()
	for d.running {
		d.idle.Wait()
	}
	d.mu.Unlock()
}
