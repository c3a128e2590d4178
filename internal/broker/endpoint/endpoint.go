package endpoint

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dep2p/go-iotgate/pkg/interfaces"
	"github.com/dep2p/go-iotgate/pkg/types"
)

var (
	// ErrNotReachable 离线对象且没有离线投递
	ErrNotReachable = errors.New("endpoint: object not reachable")

	// ErrNoSender 在线端点缺少链路
	ErrNoSender = errors.New("endpoint: live endpoint without sender")
)

// OfflineSink 离线对象的消息投递（例如云端队列）
type OfflineSink interface {
	Deliver(objID, msg string) error
}

// Endpoint 可路由端点
type Endpoint struct {
	kind  types.EndpointKind
	id    string
	owner string
	user  string

	sender   interfaces.Sender
	snapshot *ObjectSnapshot
	sink     OfflineSink

	// mu 保护 owner 与 dormant
	mu      sync.RWMutex
	dormant *Endpoint

	paused atomic.Bool
}

// NewLiveObject 创建在线对象端点
func NewLiveObject(objID, ownerID string, s interfaces.Sender) *Endpoint {
	return &Endpoint{
		kind:     types.KindLiveObject,
		id:       objID,
		owner:    ownerID,
		sender:   s,
		snapshot: NewObjectSnapshot(objID),
	}
}

// NewLiveService 创建在线服务端点
func NewLiveService(srvID, usrID string, s interfaces.Sender) *Endpoint {
	return &Endpoint{
		kind:   types.KindLiveService,
		id:     srvID,
		user:   usrID,
		sender: s,
	}
}

// NewDormantObject 创建离线对象端点
//
// snap 为 nil 时创建空快照；sink 为 nil 时消息不可投递。
func NewDormantObject(objID, ownerID string, snap *ObjectSnapshot, sink OfflineSink) *Endpoint {
	if snap == nil {
		snap = NewObjectSnapshot(objID)
	}
	return &Endpoint{
		kind:     types.KindDormantObject,
		id:       objID,
		owner:    ownerID,
		snapshot: snap,
		sink:     sink,
	}
}

// Kind 返回端点类型
func (e *Endpoint) Kind() types.EndpointKind { return e.kind }

// ID 返回对象或服务标识
func (e *Endpoint) ID() string { return e.id }

// Owner 返回对象所有者，服务端点为空
func (e *Endpoint) Owner() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.owner
}

// SetOwner 修改对象所有者，离线端点接管在线对象时使用
func (e *Endpoint) SetOwner(ownerID string) {
	e.mu.Lock()
	e.owner = ownerID
	e.mu.Unlock()
}

// User 返回服务的用户标识，对象端点为空
func (e *Endpoint) User() string { return e.user }

// IsObject 是否为对象端点（在线或离线）
func (e *Endpoint) IsObject() bool { return e.kind.IsObject() }

// Snapshot 返回对象快照，服务端点为 nil
func (e *Endpoint) Snapshot() *ObjectSnapshot { return e.snapshot }

// String 返回便于日志的描述
func (e *Endpoint) String() string {
	switch e.kind {
	case types.KindLiveService:
		return fmt.Sprintf("%s(%s/%s)", e.kind, e.id, e.user)
	default:
		return fmt.Sprintf("%s(%s)", e.kind, e.id)
	}
}

// ============================================================================
//                              投递
// ============================================================================

// Send 向端点投递一条消息
//
// 离线对象交给离线投递；未配置时返回 ErrNotReachable。
func (e *Endpoint) Send(msg string) error {
	switch e.kind {
	case types.KindLiveObject, types.KindLiveService:
		if e.sender == nil {
			return ErrNoSender
		}
		return e.sender.Send(msg)
	case types.KindDormantObject:
		if e.sink == nil {
			return ErrNotReachable
		}
		return e.sink.Deliver(e.id, msg)
	default:
		return fmt.Errorf("endpoint: unknown kind %d", e.kind)
	}
}

// ============================================================================
//                              在线/离线配对
// ============================================================================

// Dormant 返回在线对象关联的离线端点
func (e *Endpoint) Dormant() *Endpoint {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dormant
}

// AttachDormant 关联离线端点，仅对在线对象有效
func (e *Endpoint) AttachDormant(d *Endpoint) {
	if e.kind != types.KindLiveObject || d == nil || d.kind != types.KindDormantObject {
		return
	}
	e.mu.Lock()
	e.dormant = d
	e.mu.Unlock()
}

// Pause 暂停离线端点（对象已上线）
func (e *Endpoint) Pause() {
	if e.kind == types.KindDormantObject && !e.paused.Swap(true) {
		log.Debug("离线端点暂停", "obj", e.id)
	}
}

// Resume 恢复离线端点（对象已下线）
func (e *Endpoint) Resume() {
	if e.kind == types.KindDormantObject && e.paused.Swap(false) {
		log.Debug("离线端点恢复", "obj", e.id)
	}
}

// Paused 离线端点是否处于暂停状态
func (e *Endpoint) Paused() bool {
	return e.paused.Load()
}
