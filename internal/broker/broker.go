package broker

import (
	"sort"
	"sync"

	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/internal/broker/permission"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// Broker 消息代理
type Broker struct {
	perms    interfaces.PermissionStore
	reporter Reporter
	sink     endpoint.OfflineSink

	objMu   sync.RWMutex
	objects map[string]*endpoint.Endpoint

	srvMu    sync.RWMutex
	services map[string]*endpoint.Endpoint

	dormMu  sync.RWMutex
	dormant map[string]*endpoint.Endpoint
}

// New 创建代理
func New(perms interfaces.PermissionStore, opts ...Option) *Broker {
	b := &Broker{
		perms:    perms,
		reporter: nopReporter{},
		objects:  make(map[string]*endpoint.Endpoint),
		services: make(map[string]*endpoint.Endpoint),
		dormant:  make(map[string]*endpoint.Endpoint),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Permissions 返回代理使用的权限存储
func (b *Broker) Permissions() interfaces.PermissionStore {
	return b.perms
}

// ============================================================================
//                              查询
// ============================================================================

// Object 返回在线对象端点
func (b *Broker) Object(id string) *endpoint.Endpoint {
	b.objMu.RLock()
	defer b.objMu.RUnlock()
	return b.objects[id]
}

// Service 返回在线服务端点
func (b *Broker) Service(id string) *endpoint.Endpoint {
	b.srvMu.RLock()
	defer b.srvMu.RUnlock()
	return b.services[id]
}

// Dormant 返回离线对象端点
func (b *Broker) Dormant(id string) *endpoint.Endpoint {
	b.dormMu.RLock()
	defer b.dormMu.RUnlock()
	return b.dormant[id]
}

// ActiveObject 返回对象当前生效的端点，在线优先
func (b *Broker) ActiveObject(id string) *endpoint.Endpoint {
	if ep := b.Object(id); ep != nil {
		return ep
	}
	return b.Dormant(id)
}

// Objects 返回在线对象标识（排序）
func (b *Broker) Objects() []string {
	b.objMu.RLock()
	defer b.objMu.RUnlock()
	return sortedKeys(b.objects)
}

// Services 返回在线服务标识（排序）
func (b *Broker) Services() []string {
	b.srvMu.RLock()
	defer b.srvMu.RUnlock()
	return sortedKeys(b.services)
}

// DormantObjects 返回离线对象标识（排序）
func (b *Broker) DormantObjects() []string {
	b.dormMu.RLock()
	defer b.dormMu.RUnlock()
	return sortedKeys(b.dormant)
}

func sortedKeys(m map[string]*endpoint.Endpoint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ============================================================================
//                              评估输入
// ============================================================================

// serviceSet 在锁内复制在线服务
func (b *Broker) serviceSet() ([]permission.Service, map[string]*endpoint.Endpoint) {
	b.srvMu.RLock()
	defer b.srvMu.RUnlock()
	list := make([]permission.Service, 0, len(b.services))
	eps := make(map[string]*endpoint.Endpoint, len(b.services))
	for id, ep := range b.services {
		list = append(list, permission.Service{ID: id, User: ep.User()})
		eps[id] = ep
	}
	return list, eps
}

// objectSet 复制全部已知对象，在线端点覆盖同标识的离线端点
func (b *Broker) objectSet() ([]permission.Object, map[string]*endpoint.Endpoint) {
	eps := make(map[string]*endpoint.Endpoint)

	b.dormMu.RLock()
	for id, ep := range b.dormant {
		eps[id] = ep
	}
	b.dormMu.RUnlock()

	b.objMu.RLock()
	for id, ep := range b.objects {
		eps[id] = ep
	}
	b.objMu.RUnlock()

	list := make([]permission.Object, 0, len(eps))
	for id, ep := range eps {
		list = append(list, permission.Object{ID: id, Owner: ep.Owner()})
	}
	return list, eps
}

func asObject(ep *endpoint.Endpoint) permission.Object {
	return permission.Object{ID: ep.ID(), Owner: ep.Owner()}
}

func asService(ep *endpoint.Endpoint) permission.Service {
	return permission.Service{ID: ep.ID(), User: ep.User()}
}

// AllowedServices 返回在对象上满足 LocalAndCloud 与 minPerm 的在线服务授权
func (b *Broker) AllowedServices(obj *endpoint.Endpoint, minPerm types.PermissionType) map[string]types.Grant {
	services, _ := b.serviceSet()
	return allowedServices(b.perms.FindRulesForObject(obj.ID()), obj, services, minPerm)
}

// AllowedObjects 返回服务在已知对象上满足 LocalAndCloud 与 minPerm 的授权
func (b *Broker) AllowedObjects(srv *endpoint.Endpoint, minPerm types.PermissionType) map[string]types.Grant {
	objects, _ := b.objectSet()
	return permission.AllowedObjects(b.perms.FindRulesForServiceExtended(srv.ID()), asService(srv),
		objects, types.ConnLocalAndCloud, minPerm)
}

// grantFor 求单个服务在对象上的授权
func (b *Broker) grantFor(obj, srv *endpoint.Endpoint, minPerm types.PermissionType) (types.Grant, bool) {
	return permission.Resolve(b.perms.FindRulesForObject(obj.ID()), asObject(obj), asService(srv),
		types.ConnLocalAndCloud, minPerm)
}
