package certsharing

import (
	"github.com/dep2p/go-iotgate/internal/core/framing"
	"github.com/dep2p/go-iotgate/internal/core/liveness"
	"github.com/dep2p/go-iotgate/internal/core/peer"
	"github.com/dep2p/go-iotgate/internal/core/recovery"
)

// handshakeBehaviours 握手连接的行为配置
//
// 证书以原始字节传输，字符集固定为 UTF-8 以保证字节不被转换；
// 不做心跳与重连，关闭时发送 bye。
func handshakeBehaviours(delimiter string) peer.Behaviours {
	if delimiter == "" {
		delimiter = framing.DefaultDelimiter
	}
	b := peer.DefaultBehaviours()
	b.Framing = peer.FramingSettings{
		Delimiter:    delimiter,
		Charset:      framing.DefaultCharset,
		MaxFrameSize: maxPayload,
	}
	b.Heartbeat = liveness.HeartbeatSettings{Enabled: false, Respond: false}
	b.Bye = liveness.DefaultByeSettings()
	b.Reconnect = recovery.ReconnectSettings{Enabled: false}
	return b
}
