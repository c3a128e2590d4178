package peer

import (
	"sync/atomic"
	"time"

	"github.com/dep2p/go-iotgate/internal/core/framing"
	"github.com/dep2p/go-iotgate/internal/core/liveness"
	"github.com/dep2p/go-iotgate/internal/core/recovery"
)

// DefaultWriteTimeout 单次写出超时
const DefaultWriteTimeout = 10 * time.Second

// FramingSettings 分帧配置，修改在下一次建立连接时生效
type FramingSettings struct {
	Delimiter    string
	Charset      string
	MaxFrameSize int
}

// Behaviours 连接行为配置
type Behaviours struct {
	Framing      FramingSettings
	Heartbeat    liveness.HeartbeatSettings
	Bye          liveness.ByeSettings
	Reconnect    recovery.ReconnectSettings
	WriteTimeout time.Duration
}

// DefaultBehaviours 返回默认行为配置
func DefaultBehaviours() Behaviours {
	return Behaviours{
		Framing: FramingSettings{
			Delimiter:    framing.DefaultDelimiter,
			Charset:      framing.DefaultCharset,
			MaxFrameSize: framing.DefaultMaxFrameSize,
		},
		Heartbeat:    liveness.DefaultHeartbeatSettings(),
		Bye:          liveness.DefaultByeSettings(),
		Reconnect:    recovery.DefaultReconnectSettings(),
		WriteTimeout: DefaultWriteTimeout,
	}
}

// behaviourSet 可在运行时替换的行为配置
//
// 各行为每个周期通过访问器重新读取。
type behaviourSet struct {
	v atomic.Pointer[Behaviours]
}

func newBehaviourSet(b Behaviours) *behaviourSet {
	s := &behaviourSet{}
	s.v.Store(&b)
	return s
}

func (s *behaviourSet) load() Behaviours {
	return *s.v.Load()
}

func (s *behaviourSet) update(fn func(*Behaviours)) {
	for {
		old := s.v.Load()
		next := *old
		fn(&next)
		if s.v.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (s *behaviourSet) heartbeat() liveness.HeartbeatSettings { return s.v.Load().Heartbeat }
func (s *behaviourSet) bye() liveness.ByeSettings             { return s.v.Load().Bye }
func (s *behaviourSet) reconnect() recovery.ReconnectSettings { return s.v.Load().Reconnect }

func (s *behaviourSet) writeTimeout() time.Duration {
	if d := s.v.Load().WriteTimeout; d > 0 {
		return d
	}
	return DefaultWriteTimeout
}

func (s *behaviourSet) codec() (*framing.Codec, error) {
	f := s.v.Load().Framing
	return framing.NewCodecWithLimit(f.Delimiter, f.Charset, f.MaxFrameSize)
}
