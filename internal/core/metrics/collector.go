package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dep2p/go-iotgate/internal/core/peer"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// Collector 网关指标收集器
type Collector struct {
	peerEvents  *prometheus.CounterVec
	disconnects *prometheus.CounterVec
	connected   *prometheus.GaugeVec
	sessionIO   *prometheus.CounterVec
	registry    *prometheus.GaugeVec
	delivered   *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	trusted     prometheus.Counter

	routed *RateMeter

	mu        sync.Mutex
	live      map[string]int
	sizes     map[types.EndpointKind]int
	delivers  atomic.Uint64
	rejects   atomic.Uint64
	trustAdds atomic.Uint64
}

// NewCollector 创建收集器并注册到 reg
//
// reg 为 nil 时只在内存中计数，不对外导出。
func NewCollector(reg prometheus.Registerer, clk clock.Clock) *Collector {
	c := &Collector{
		peerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotgate",
			Name:      "peer_events_total",
			Help:      "Connection lifecycle events grouped by protocol and event type",
		}, []string{"proto", "event"}),
		disconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotgate",
			Name:      "peer_disconnects_total",
			Help:      "Connection teardowns grouped by protocol and reason",
		}, []string{"proto", "reason"}),
		connected: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "iotgate",
			Name:      "peers_connected",
			Help:      "Currently connected peers grouped by protocol",
		}, []string{"proto"}),
		sessionIO: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotgate",
			Name:      "session_bytes_total",
			Help:      "Bytes transferred by finished sessions grouped by protocol and direction",
		}, []string{"proto", "direction"}),
		registry: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "iotgate",
			Name:      "broker_endpoints",
			Help:      "Registered broker endpoints grouped by kind",
		}, []string{"kind"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotgate",
			Name:      "broker_delivered_total",
			Help:      "Messages delivered by the broker grouped by path",
		}, []string{"path"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "iotgate",
			Name:      "broker_rejected_total",
			Help:      "Messages refused or failed by the broker grouped by path and reason",
		}, []string{"path", "reason"}),
		trusted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "iotgate",
			Name:      "trust_added_total",
			Help:      "Certificates added to the trust store through certificate sharing",
		}),
		routed: NewRateMeter(clk),
		live:   make(map[string]int),
		sizes:  make(map[types.EndpointKind]int),
	}

	if reg != nil {
		reg.MustRegister(
			c.peerEvents,
			c.disconnects,
			c.connected,
			c.sessionIO,
			c.registry,
			c.delivered,
			c.rejected,
			c.trusted,
		)
	}
	return c
}

// ============================================================================
//                              peer.Observer
// ============================================================================

var _ peer.Observer = (*Collector)(nil)

// OnPeerEvent 实现 peer.Observer
func (c *Collector) OnPeerEvent(p *peer.Peer, ev types.PeerEvent) {
	proto := p.Proto()
	c.peerEvents.WithLabelValues(proto, ev.Type.String()).Inc()

	switch {
	case ev.Type == types.EvtConnected:
		c.connected.WithLabelValues(proto).Inc()
		c.mu.Lock()
		c.live[proto]++
		c.mu.Unlock()

	case ev.IsTerminal():
		c.disconnects.WithLabelValues(proto, ev.Reason.String()).Inc()
		if ev.Session == "" {
			// 连接未建立过
			return
		}
		c.connected.WithLabelValues(proto).Dec()
		c.mu.Lock()
		c.live[proto]--
		c.mu.Unlock()

		st := p.Stats()
		c.sessionIO.WithLabelValues(proto, "out").Add(float64(st.BytesSent))
		c.sessionIO.WithLabelValues(proto, "in").Add(float64(st.BytesRecv))
	}
}

// ============================================================================
//                              broker.Reporter
// ============================================================================

// RegistryChanged 记录某类端点注册表的当前规模
func (c *Collector) RegistryChanged(kind types.EndpointKind, size int) {
	c.registry.WithLabelValues(kind.String()).Set(float64(size))
	c.mu.Lock()
	c.sizes[kind] = size
	c.mu.Unlock()
}

// Delivered 记录成功投递的消息数
func (c *Collector) Delivered(path string, n int) {
	if n <= 0 {
		return
	}
	c.delivered.WithLabelValues(path).Add(float64(n))
	c.delivers.Add(uint64(n))
	c.routed.Add(int64(n))
}

// Rejected 记录被拒绝或失败的投递
func (c *Collector) Rejected(path, reason string) {
	c.rejected.WithLabelValues(path, reason).Inc()
	c.rejects.Add(1)
}

// TrustAdded 记录证书共享新增的信任条目
func (c *Collector) TrustAdded() {
	c.trusted.Inc()
	c.trustAdds.Add(1)
}

// ============================================================================
//                              快照
// ============================================================================

// Snapshot 指标快照，供状态查询使用
type Snapshot struct {
	// Connected 按协议统计的当前连接数
	Connected map[string]int

	// Endpoints 按类型统计的注册端点数
	Endpoints map[types.EndpointKind]int

	// Delivered 累计投递数
	Delivered uint64

	// Rejected 累计拒绝数
	Rejected uint64

	// TrustAdded 累计新增信任条目数
	TrustAdded uint64

	// RoutedPerSecond 最近 60 秒平均投递速率
	RoutedPerSecond float64
}

// Snapshot 返回当前指标快照
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	connected := make(map[string]int, len(c.live))
	for k, v := range c.live {
		connected[k] = v
	}
	endpoints := make(map[types.EndpointKind]int, len(c.sizes))
	for k, v := range c.sizes {
		endpoints[k] = v
	}
	c.mu.Unlock()

	return Snapshot{
		Connected:       connected,
		Endpoints:       endpoints,
		Delivered:       c.delivers.Load(),
		Rejected:        c.rejects.Load(),
		TrustAdded:      c.trustAdds.Load(),
		RoutedPerSecond: c.routed.Rate(),
	}
}
