package endpoint

import "sync"

// DefaultMailboxSize 每个对象缓存的离线消息上限
const DefaultMailboxSize = 64

// Mailbox 进程内的离线投递
//
// 每个对象最多缓存 size 条消息，超出时丢弃最旧的一条；
// 对象重新上线后由调用方 Drain 取出并补发。
type Mailbox struct {
	size int

	mu    sync.Mutex
	boxes map[string][]string
}

// NewMailbox 创建离线信箱
func NewMailbox(size int) *Mailbox {
	if size <= 0 {
		size = DefaultMailboxSize
	}
	return &Mailbox{size: size, boxes: make(map[string][]string)}
}

var _ OfflineSink = (*Mailbox)(nil)

// Deliver 实现 OfflineSink
func (m *Mailbox) Deliver(objID, msg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	box := append(m.boxes[objID], msg)
	if len(box) > m.size {
		dropped := len(box) - m.size
		box = box[dropped:]
		log.Debug("离线信箱已满，丢弃最旧消息", "obj", objID, "dropped", dropped)
	}
	m.boxes[objID] = box
	return nil
}

// Pending 返回对象待补发的消息数
func (m *Mailbox) Pending(objID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.boxes[objID])
}

// Drain 取出并清空对象的待补发消息
func (m *Mailbox) Drain(objID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.boxes[objID]
	delete(m.boxes, objID)
	return msgs
}
