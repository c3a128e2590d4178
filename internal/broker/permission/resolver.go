package permission

import "github.com/dep2p/go-iotgate/pkg/types"

// Object 参与评估的对象
type Object struct {
	ID    string
	Owner string
}

// Service 参与评估的服务
type Service struct {
	ID   string
	User string
}

// ============================================================================
//                              单条规则
// ============================================================================

// Matches 判断规则是否作用于给定的对象与服务
func Matches(r types.PermissionRule, obj Object, srv Service) bool {
	return matchObject(r, obj.ID) && matchService(r, srv.ID) && matchUser(r, obj, srv)
}

func matchObject(r types.PermissionRule, objID string) bool {
	return r.ObjectID == types.WildcardAll || r.ObjectID == objID
}

func matchService(r types.PermissionRule, srvID string) bool {
	return r.ServiceID == types.WildcardAll || r.ServiceID == srvID
}

func matchUser(r types.PermissionRule, obj Object, srv Service) bool {
	switch r.UserID {
	case types.WildcardAll:
		return true
	case types.WildcardOwner:
		if obj.Owner == "" {
			return false
		}
		return obj.Owner == types.AnonymousID || obj.Owner == srv.User
	default:
		return r.UserID == srv.User
	}
}

// MeetsFloor 判断规则是否满足连接类型与权限类型下限
func MeetsFloor(r types.PermissionRule, minConn types.ConnectionClass, minPerm types.PermissionType) bool {
	return r.Connection >= minConn && r.Type >= minPerm
}

// Prefer 判断候选授权是否应替换已有授权
//
// 更宽的连接类型优先；连接类型相同时更高的权限优先；完全相同时保留已有授权。
func Prefer(existing, candidate types.Grant) bool {
	if candidate.Connection != existing.Connection {
		return candidate.Connection > existing.Connection
	}
	return candidate.Type > existing.Type
}

// ============================================================================
//                              批量评估
// ============================================================================

// Resolve 在规则集中为单个配对求授权
func Resolve(rules []types.PermissionRule, obj Object, srv Service,
	minConn types.ConnectionClass, minPerm types.PermissionType) (types.Grant, bool) {

	var (
		best  types.Grant
		found bool
	)
	for _, r := range rules {
		if !MeetsFloor(r, minConn, minPerm) || !Matches(r, obj, srv) {
			continue
		}
		if !found || Prefer(best, r.Grant()) {
			best, found = r.Grant(), true
		}
	}
	return best, found
}

// AllowedServices 以对象为中心：求对象上有授权的服务
//
// rules 应为对象相关的规则（例如 FindRulesForObject 的结果）。
func AllowedServices(rules []types.PermissionRule, obj Object, services []Service,
	minConn types.ConnectionClass, minPerm types.PermissionType) map[string]types.Grant {

	out := make(map[string]types.Grant)
	for _, r := range rules {
		if !MeetsFloor(r, minConn, minPerm) || !matchObject(r, obj.ID) {
			continue
		}
		for _, srv := range services {
			if !matchService(r, srv.ID) || !matchUser(r, obj, srv) {
				continue
			}
			merge(out, srv.ID, r.Grant())
		}
	}
	return out
}

// AllowedObjects 以服务为中心：求服务可访问的对象
//
// rules 应为服务相关的规则（例如 FindRulesForServiceExtended 的结果）；
// objects 为已注册对象，规则引用了未注册对象时跳过。
func AllowedObjects(rules []types.PermissionRule, srv Service, objects []Object,
	minConn types.ConnectionClass, minPerm types.PermissionType) map[string]types.Grant {

	index := make(map[string]Object, len(objects))
	for _, o := range objects {
		index[o.ID] = o
	}

	out := make(map[string]types.Grant)
	for _, r := range rules {
		if !MeetsFloor(r, minConn, minPerm) || !matchService(r, srv.ID) {
			continue
		}
		if r.ObjectID == types.WildcardAll {
			for _, obj := range objects {
				if matchUser(r, obj, srv) {
					merge(out, obj.ID, r.Grant())
				}
			}
			continue
		}
		obj, ok := index[r.ObjectID]
		if !ok {
			log.Debug("规则引用未注册对象，跳过", "obj", r.ObjectID, "srv", srv.ID)
			continue
		}
		if matchUser(r, obj, srv) {
			merge(out, obj.ID, r.Grant())
		}
	}
	return out
}

func merge(out map[string]types.Grant, key string, g types.Grant) {
	if existing, ok := out[key]; !ok || Prefer(existing, g) {
		out[key] = g
	}
}
