package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dep2p/go-iotgate/internal/broker"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// 帧头
const (
	HdrHello  = "HELLO"
	HdrInfo   = "INFO"
	HdrStruct = "STRUCT"
	HdrPerms  = "PERMS"
	HdrBcast  = "BCAST"
	HdrTo     = "TO"
	HdrFrom   = "FROM"
	HdrErr    = "ERR"
)

// HELLO 的角色参数
const (
	RoleObject  = "obj"
	RoleService = "srv"
)

// ERR 的类型参数
const (
	ErrKindDenied       = "denied"
	ErrKindUnregistered = "unregistered"
	ErrKindUnreachable  = "unreachable"
	ErrKindDuplicate    = "duplicate"
	ErrKindIdentity     = "identity"
	ErrKindMalformed    = "malformed"
	ErrKindFailed       = "failed"
)

// ErrMalformedFrame 帧格式错误
var ErrMalformedFrame = errors.New("gateway: malformed frame")

// Frame 网关帧
type Frame struct {
	Header string
	Args   []string
	Body   string
}

// ParseFrame 解析帧
func ParseFrame(msg string) (Frame, error) {
	head, body, _ := strings.Cut(msg, "\n")
	fields := strings.Fields(head)
	if len(fields) == 0 {
		return Frame{}, fmt.Errorf("%w: empty header", ErrMalformedFrame)
	}
	return Frame{Header: fields[0], Args: fields[1:], Body: body}, nil
}

// String 编码帧
func (f Frame) String() string {
	var b strings.Builder
	b.WriteString(f.Header)
	for _, a := range f.Args {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	if f.Body != "" {
		b.WriteByte('\n')
		b.WriteString(f.Body)
	}
	return b.String()
}

// arg 返回第 i 个参数，不存在时返回空串
func (f Frame) arg(i int) string {
	if i < len(f.Args) {
		return f.Args[i]
	}
	return ""
}

// permArg 解析第 i 个参数为权限等级，缺省为 None
func (f Frame) permArg(i int) (types.PermissionType, error) {
	s := f.arg(i)
	if s == "" {
		return types.PermNone, nil
	}
	return types.ParsePermissionType(s)
}

// FromFrame 构造转发帧
func FromFrame(srcID, payload string) string {
	return Frame{Header: HdrFrom, Args: []string{srcID}, Body: payload}.String()
}

// ErrFrame 构造拒绝帧
func ErrFrame(kind, id string) string {
	return Frame{Header: HdrErr, Args: []string{kind, id}}.String()
}

// errKind 将代理错误映射为 ERR 类型
func errKind(err error) string {
	switch {
	case errors.Is(err, broker.ErrPermissionDenied):
		return ErrKindDenied
	case errors.Is(err, broker.ErrNotRegistered):
		return ErrKindUnregistered
	case errors.Is(err, broker.ErrNotReachable):
		return ErrKindUnreachable
	default:
		return ErrKindFailed
	}
}
