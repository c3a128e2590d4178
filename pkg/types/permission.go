package types

import (
	"fmt"
	"strings"
)

// ============================================================================
//                              PermissionType - 权限类型
// ============================================================================

// PermissionType 授予的能力等级（全序，升序）
type PermissionType int

const (
	// PermNone 无权限
	PermNone PermissionType = iota
	// PermStatus 可查看状态
	PermStatus
	// PermActions 可执行动作
	PermActions
	// PermCoOwner 共同所有者
	PermCoOwner
)

// String 返回权限类型的字符串表示
func (p PermissionType) String() string {
	switch p {
	case PermNone:
		return "None"
	case PermStatus:
		return "Status"
	case PermActions:
		return "Actions"
	case PermCoOwner:
		return "CoOwner"
	default:
		return "Unknown"
	}
}

// ParsePermissionType 解析权限类型名称（大小写不敏感）
func ParsePermissionType(s string) (PermissionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return PermNone, nil
	case "status":
		return PermStatus, nil
	case "actions":
		return PermActions, nil
	case "coowner":
		return PermCoOwner, nil
	default:
		return PermNone, fmt.Errorf("%w: %q", ErrInvalidPermissionType, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (p PermissionType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (p *PermissionType) UnmarshalText(text []byte) error {
	v, err := ParsePermissionType(string(text))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ============================================================================
//                              ConnectionClass - 连接类型
// ============================================================================

// ConnectionClass 权限适用的链路范围（LocalAndCloud 包含 OnlyLocal）
type ConnectionClass int

const (
	// ConnOnlyLocal 仅本地网络链路
	ConnOnlyLocal ConnectionClass = iota
	// ConnLocalAndCloud 本地及云端链路
	ConnLocalAndCloud
)

// String 返回连接类型的字符串表示
func (c ConnectionClass) String() string {
	switch c {
	case ConnOnlyLocal:
		return "OnlyLocal"
	case ConnLocalAndCloud:
		return "LocalAndCloud"
	default:
		return "Unknown"
	}
}

// ParseConnectionClass 解析连接类型名称（大小写不敏感）
func ParseConnectionClass(s string) (ConnectionClass, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "onlylocal":
		return ConnOnlyLocal, nil
	case "localandcloud":
		return ConnLocalAndCloud, nil
	default:
		return ConnOnlyLocal, fmt.Errorf("%w: %q", ErrInvalidConnectionClass, s)
	}
}

// MarshalText 实现 encoding.TextMarshaler
func (c ConnectionClass) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (c *ConnectionClass) UnmarshalText(text []byte) error {
	v, err := ParseConnectionClass(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ============================================================================
//                              Grant - 已授予权限
// ============================================================================

// Grant 某个主体在某对象上匹配到的最大权限
type Grant struct {
	Type       PermissionType
	Connection ConnectionClass
}

// String 返回授权的字符串表示
func (g Grant) String() string {
	return g.Type.String() + "/" + g.Connection.String()
}

// ============================================================================
//                              PermissionRule - 权限规则
// ============================================================================

// PermissionRule 权限规则
//
// ObjectID 为精确对象标识或 #All；ServiceID 为精确服务标识或 #All；
// UserID 为精确用户标识、#All 或 #Owner。
type PermissionRule struct {
	ID         string          `json:"id,omitempty" yaml:"id,omitempty"`
	ObjectID   string          `json:"obj" yaml:"obj"`
	ServiceID  string          `json:"srv" yaml:"srv"`
	UserID     string          `json:"usr" yaml:"usr"`
	Connection ConnectionClass `json:"conn" yaml:"conn"`
	Type       PermissionType  `json:"type" yaml:"type"`
}

// Grant 返回规则授予的权限
func (r PermissionRule) Grant() Grant {
	return Grant{Type: r.Type, Connection: r.Connection}
}

// String 返回规则的文本形式
//
// 格式: obj=<id>;srv=<id>;usr=<id>;conn=<class>;type=<perm>[;id=<id>]
func (r PermissionRule) String() string {
	s := fmt.Sprintf("obj=%s;srv=%s;usr=%s;conn=%s;type=%s",
		r.ObjectID, r.ServiceID, r.UserID, r.Connection, r.Type)
	if r.ID != "" {
		s += ";id=" + r.ID
	}
	return s
}

// ParsePermissionRule 解析规则的文本形式
func ParsePermissionRule(s string) (PermissionRule, error) {
	var r PermissionRule
	seen := make(map[string]bool)
	for _, field := range strings.Split(strings.TrimSpace(s), ";") {
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return PermissionRule{}, fmt.Errorf("%w: field %q", ErrInvalidPermissionRule, field)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		var err error
		switch key {
		case "id":
			r.ID = value
		case "obj":
			r.ObjectID = value
		case "srv":
			r.ServiceID = value
		case "usr":
			r.UserID = value
		case "conn":
			r.Connection, err = ParseConnectionClass(value)
		case "type":
			r.Type, err = ParsePermissionType(value)
		default:
			return PermissionRule{}, fmt.Errorf("%w: unknown key %q", ErrInvalidPermissionRule, key)
		}
		if err != nil {
			return PermissionRule{}, err
		}
		seen[key] = true
	}
	for _, k := range []string{"obj", "srv", "usr", "conn", "type"} {
		if !seen[k] {
			return PermissionRule{}, fmt.Errorf("%w: missing %q", ErrInvalidPermissionRule, k)
		}
	}
	return r, nil
}

// ParsePermissionRules 解析多行规则文本，忽略空行
func ParsePermissionRules(text string) ([]PermissionRule, error) {
	var rules []PermissionRule
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		r, err := ParsePermissionRule(line)
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}
	return rules, nil
}

// FormatPermissionRules 将规则格式化为多行文本
func FormatPermissionRules(rules []PermissionRule) string {
	lines := make([]string, 0, len(rules))
	for _, r := range rules {
		lines = append(lines, r.String())
	}
	return strings.Join(lines, "\n")
}
