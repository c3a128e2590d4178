package broker

import (
	"fmt"

	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/internal/broker/permission"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
	"github.com/dep2p/go-iotgate/pkg/types"
)

func allowedServices(rules []types.PermissionRule, obj *endpoint.Endpoint,
	services []permission.Service, minPerm types.PermissionType) map[string]types.Grant {
	return permission.AllowedServices(rules, asObject(obj), services, types.ConnLocalAndCloud, minPerm)
}

// CheckServicePermission 判断服务在对象上是否持有 minPerm（LocalAndCloud）
func (b *Broker) CheckServicePermission(srvID, objID string, minPerm types.PermissionType) bool {
	srv := b.Service(srvID)
	obj := b.ActiveObject(objID)
	if srv == nil || obj == nil {
		return false
	}
	_, ok := b.grantFor(obj, srv, minPerm)
	return ok
}

// ReplaceObjectPermissions 替换对象的权限规则并通知受影响的服务
//
// 权限存储必须实现 PermissionWriter。对象快照同步更新。
func (b *Broker) ReplaceObjectPermissions(objID string, rules []types.PermissionRule) error {
	w, ok := b.perms.(interfaces.PermissionWriter)
	if !ok {
		return permission.ErrReadOnly
	}
	return b.UpdateObjectPermissions(objID, func() error {
		if err := w.ReplaceObjectRules(objID, rules); err != nil {
			return err
		}
		if obj := b.ActiveObject(objID); obj != nil {
			obj.Snapshot().SetPermissions(rules)
		}
		return nil
	})
}

// UpdateObjectPermissions 在 apply 修改权限前后比较授权并通知服务
//
//   - 新获得 Status 以上授权的服务收到完整快照
//   - 授权变化的服务收到新的 SERVICE_PERM
//   - 失去授权的服务收到 None 授权
//   - CoOwner 服务收到完整权限列表
func (b *Broker) UpdateObjectPermissions(objID string, apply func() error) error {
	obj := b.ActiveObject(objID)
	if obj == nil {
		return fmt.Errorf("%w: object %s", ErrNotRegistered, objID)
	}

	before := b.AllowedServices(obj, types.PermNone)
	if err := apply(); err != nil {
		return err
	}
	after := b.AllowedServices(obj, types.PermNone)

	snap := obj.Snapshot()
	for srvID, g := range after {
		srv := b.Service(srvID)
		if srv == nil {
			continue
		}
		old, had := before[srvID]
		wasEntitled := had && old.Type >= types.PermStatus
		isEntitled := g.Type >= types.PermStatus

		switch {
		case isEntitled && !wasEntitled:
			b.present(obj, srv, g)
			continue
		case !had || old != g:
			b.notify(srv, snap.MsgServicePerm(g))
		}
		if g.Type >= types.PermCoOwner {
			b.notify(srv, snap.MsgPerm())
		}
	}

	for srvID, old := range before {
		if _, still := after[srvID]; still {
			continue
		}
		if srv := b.Service(srvID); srv != nil {
			b.notify(srv, snap.MsgServicePerm(types.Grant{Type: types.PermNone, Connection: old.Connection}))
		}
	}
	log.Info("对象权限已更新", "obj", objID, "before", len(before), "after", len(after))
	return nil
}

func (b *Broker) notify(srv *endpoint.Endpoint, msg string) {
	if err := srv.Send(msg); err != nil {
		log.Warn("权限通知失败", "srv", srv.ID(), "err", err)
		b.reporter.Rejected(PathCatchUp, ReasonTransport)
		return
	}
	b.reporter.Delivered(PathCatchUp, 1)
}
