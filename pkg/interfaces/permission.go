package interfaces

import "github.com/dep2p/go-iotgate/pkg/types"

// PermissionStore 权限规则存储（只读）
//
// 规则是外部事实，Broker 只读取和评估，从不修改。
type PermissionStore interface {
	// FindRulesForObject 返回作用于指定对象的全部规则
	FindRulesForObject(objID string) []types.PermissionRule

	// FindRulesForServiceExtended 返回作用于指定服务的全部规则
	//
	// 包含服务模式为 #All 的通配规则。
	FindRulesForServiceExtended(srvID string) []types.PermissionRule
}

// PermissionWriter 可替换对象权限规则的存储
//
// 对象通过网关上报自身权限列表时使用。
type PermissionWriter interface {
	// ReplaceObjectRules 用给定规则替换对象的全部规则
	ReplaceObjectRules(objID string, rules []types.PermissionRule) error
}
