package liveness

// DefaultByeMessage 默认 bye 载荷
const DefaultByeMessage = "bye"

// ByeSettings 优雅断开配置
type ByeSettings struct {
	// Enabled 是否在主动关闭前发送 bye
	Enabled bool

	// Message bye 载荷，为空时使用 DefaultByeMessage
	Message string
}

// DefaultByeSettings 返回默认配置
func DefaultByeSettings() ByeSettings {
	return ByeSettings{Enabled: true, Message: DefaultByeMessage}
}

// Payload 返回实际使用的 bye 载荷
func (s ByeSettings) Payload() string {
	if s.Message == "" {
		return DefaultByeMessage
	}
	return s.Message
}

// IsBye 判断入站帧是否为 bye
//
// 未启用时不识别，帧按普通消息处理。
func (s ByeSettings) IsBye(frame string) bool {
	return s.Enabled && frame == s.Payload()
}

// SayGoodbye 在启用时写出 bye
//
// 写失败只记录日志，调用方随后仍会关闭套接字。
func SayGoodbye(s ByeSettings, send func(msg string) error) bool {
	if !s.Enabled {
		return false
	}
	if err := send(s.Payload()); err != nil {
		log.Debug("bye 发送失败", "err", err)
		return false
	}
	return true
}

// ByeTracker 跟踪入站 bye 是否紧跟着流结束
type ByeTracker struct {
	seen bool
}

// Observe 记录一帧，返回该帧是否为 bye（bye 帧不应交给业务处理器）
func (t *ByeTracker) Observe(s ByeSettings, frame string) bool {
	if s.IsBye(frame) {
		t.seen = true
		return true
	}
	t.seen = false
	return false
}

// GracefulEnd 流结束时调用，返回远端是否以 bye 有序关闭
func (t *ByeTracker) GracefulEnd() bool {
	return t.seen
}
