package endpoint

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dep2p/go-iotgate/pkg/types"
)

// 推送给服务的对象消息头
const (
	MsgObjInfo         = "OBJ_INFO"
	MsgObjStruct       = "OBJ_STRUCT"
	MsgObjPerm         = "OBJ_PERM"
	MsgServicePerm     = "SERVICE_PERM"
	MsgObjDisconnected = "OBJ_DISCONNECTED"
)

// ObjectSnapshot 对象最近一次上报的信息、结构与权限
//
// 消息格式为 "HEADER <objId>[ 参数]\n<正文>"，正文对代理不透明。
type ObjectSnapshot struct {
	id string

	mu        sync.RWMutex
	info      string
	structure string
	rules     []types.PermissionRule
}

// NewObjectSnapshot 创建空快照
func NewObjectSnapshot(objID string) *ObjectSnapshot {
	return &ObjectSnapshot{id: objID}
}

// ObjectID 返回对象标识
func (s *ObjectSnapshot) ObjectID() string { return s.id }

// SetInfo 更新对象信息
func (s *ObjectSnapshot) SetInfo(info string) {
	s.mu.Lock()
	s.info = info
	s.mu.Unlock()
}

// SetStructure 更新对象结构
func (s *ObjectSnapshot) SetStructure(structure string) {
	s.mu.Lock()
	s.structure = structure
	s.mu.Unlock()
}

// SetPermissions 更新对象权限列表
func (s *ObjectSnapshot) SetPermissions(rules []types.PermissionRule) {
	s.mu.Lock()
	s.rules = append([]types.PermissionRule(nil), rules...)
	s.mu.Unlock()
}

// Info 返回对象信息
func (s *ObjectSnapshot) Info() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Structure 返回对象结构
func (s *ObjectSnapshot) Structure() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.structure
}

// Permissions 返回权限列表副本
func (s *ObjectSnapshot) Permissions() []types.PermissionRule {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.PermissionRule(nil), s.rules...)
}

// CopyFrom 以另一快照的内容覆盖本快照
func (s *ObjectSnapshot) CopyFrom(o *ObjectSnapshot) {
	if o == nil || o == s {
		return
	}
	o.mu.RLock()
	info, structure := o.info, o.structure
	rules := append([]types.PermissionRule(nil), o.rules...)
	o.mu.RUnlock()

	s.mu.Lock()
	s.info, s.structure, s.rules = info, structure, rules
	s.mu.Unlock()
}

// ============================================================================
//                              消息构造
// ============================================================================

// MsgInfo 构造 OBJ_INFO 消息
func (s *ObjectSnapshot) MsgInfo() string {
	return s.msg(MsgObjInfo, "", s.Info())
}

// MsgStruct 构造 OBJ_STRUCT 消息
func (s *ObjectSnapshot) MsgStruct() string {
	return s.msg(MsgObjStruct, "", s.Structure())
}

// MsgPerm 构造 OBJ_PERM 消息，正文为每行一条规则
func (s *ObjectSnapshot) MsgPerm() string {
	return s.msg(MsgObjPerm, "", types.FormatPermissionRules(s.Permissions()))
}

// MsgServicePerm 构造 SERVICE_PERM 消息，告知服务其在对象上的权限
func (s *ObjectSnapshot) MsgServicePerm(g types.Grant) string {
	return s.msg(MsgServicePerm, g.Type.String()+" "+g.Connection.String(), "")
}

// MsgDisconnected 构造 OBJ_DISCONNECTED 消息
func (s *ObjectSnapshot) MsgDisconnected() string {
	return s.msg(MsgObjDisconnected, "", "")
}

func (s *ObjectSnapshot) msg(header, args, body string) string {
	var b strings.Builder
	b.WriteString(header)
	b.WriteByte(' ')
	b.WriteString(s.id)
	if args != "" {
		b.WriteByte(' ')
		b.WriteString(args)
	}
	if body != "" {
		b.WriteByte('\n')
		b.WriteString(body)
	}
	return b.String()
}

// ParseHeader 拆分对象消息的头部，返回消息类型、对象标识与其余参数
func ParseHeader(msg string) (kind, objID string, args []string, err error) {
	head, _, _ := strings.Cut(msg, "\n")
	fields := strings.Fields(head)
	if len(fields) < 2 {
		return "", "", nil, fmt.Errorf("endpoint: malformed object message %q", head)
	}
	return fields[0], fields[1], fields[2:], nil
}
