package broker

import (
	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/internal/broker/permission"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// ============================================================================
//                              对象
// ============================================================================

// RegisterObject 注册对象端点（在线或离线）
//
// 标识已存在时记录日志并返回 false。在线对象注册后暂停同标识的离线端点，
// 并向所有有权服务推送对象快照。
func (b *Broker) RegisterObject(ep *endpoint.Endpoint) (bool, error) {
	if ep == nil {
		return false, ErrInvalidEndpoint
	}
	switch ep.Kind() {
	case types.KindLiveObject:
		return b.registerLive(ep), nil
	case types.KindDormantObject:
		return b.registerDormant(ep), nil
	default:
		return false, ErrInvalidEndpoint
	}
}

func (b *Broker) registerLive(ep *endpoint.Endpoint) bool {
	b.objMu.Lock()
	if _, exists := b.objects[ep.ID()]; exists {
		b.objMu.Unlock()
		log.Warn("对象已注册，忽略", "obj", ep.ID())
		return false
	}
	b.objects[ep.ID()] = ep
	size := len(b.objects)
	b.objMu.Unlock()
	b.reporter.RegistryChanged(types.KindLiveObject, size)

	if d := b.Dormant(ep.ID()); d != nil {
		d.Pause()
		ep.AttachDormant(d)
	}
	log.Info("对象已注册", "obj", ep.ID(), "owner", ep.Owner())

	for srvID, g := range b.AllowedServices(ep, types.PermStatus) {
		if srv := b.Service(srvID); srv != nil {
			b.present(ep, srv, g)
		}
	}
	return true
}

func (b *Broker) registerDormant(ep *endpoint.Endpoint) bool {
	b.dormMu.Lock()
	if _, exists := b.dormant[ep.ID()]; exists {
		b.dormMu.Unlock()
		log.Warn("离线对象已注册，忽略", "obj", ep.ID())
		return false
	}
	b.dormant[ep.ID()] = ep
	size := len(b.dormant)
	b.dormMu.Unlock()
	b.reporter.RegistryChanged(types.KindDormantObject, size)

	if live := b.Object(ep.ID()); live != nil {
		ep.Pause()
		live.AttachDormant(ep)
	}
	log.Debug("离线对象已注册", "obj", ep.ID())
	return true
}

// DeregisterObject 注销对象端点
//
// 注销在线对象时先通知有权服务对象已断开，再恢复（必要时新建）离线端点，
// 注销后该对象恰有一个生效端点。仅当注册表中是同一端点时才移除。
func (b *Broker) DeregisterObject(ep *endpoint.Endpoint) (bool, error) {
	if ep == nil {
		return false, ErrInvalidEndpoint
	}
	switch ep.Kind() {
	case types.KindLiveObject:
		return b.deregisterLive(ep), nil
	case types.KindDormantObject:
		return b.deregisterDormant(ep), nil
	default:
		return false, ErrInvalidEndpoint
	}
}

func (b *Broker) deregisterLive(ep *endpoint.Endpoint) bool {
	if b.Object(ep.ID()) != ep {
		log.Debug("对象未注册或已被替换，忽略注销", "obj", ep.ID())
		return false
	}

	b.SendBroadcast(ep, ep.Snapshot().MsgDisconnected(), types.PermStatus)

	b.objMu.Lock()
	if b.objects[ep.ID()] != ep {
		b.objMu.Unlock()
		return false
	}
	delete(b.objects, ep.ID())
	size := len(b.objects)
	b.objMu.Unlock()
	b.reporter.RegistryChanged(types.KindLiveObject, size)

	b.dormMu.Lock()
	d, ok := b.dormant[ep.ID()]
	if !ok {
		d = endpoint.NewDormantObject(ep.ID(), ep.Owner(), nil, b.sink)
		b.dormant[ep.ID()] = d
	}
	dsize := len(b.dormant)
	b.dormMu.Unlock()
	if !ok {
		b.reporter.RegistryChanged(types.KindDormantObject, dsize)
	}

	// 离线端点沿用最后一次在线时的所有者
	d.SetOwner(ep.Owner())
	d.Snapshot().CopyFrom(ep.Snapshot())
	d.Resume()
	log.Info("对象已注销，离线端点接管", "obj", ep.ID(), "owner", ep.Owner(), "created", !ok)
	return true
}

func (b *Broker) deregisterDormant(ep *endpoint.Endpoint) bool {
	b.dormMu.Lock()
	if b.dormant[ep.ID()] != ep {
		b.dormMu.Unlock()
		return false
	}
	delete(b.dormant, ep.ID())
	size := len(b.dormant)
	b.dormMu.Unlock()
	b.reporter.RegistryChanged(types.KindDormantObject, size)
	log.Debug("离线对象已移除", "obj", ep.ID())
	return true
}

// ============================================================================
//                              服务
// ============================================================================

// RegisterService 注册服务端点并补发有权对象的快照
//
// 标识已存在时记录日志并返回 false。
func (b *Broker) RegisterService(ep *endpoint.Endpoint) (bool, error) {
	if ep == nil || ep.Kind() != types.KindLiveService {
		return false, ErrInvalidEndpoint
	}

	b.srvMu.Lock()
	if _, exists := b.services[ep.ID()]; exists {
		b.srvMu.Unlock()
		log.Warn("服务已注册，忽略", "srv", ep.ID())
		return false, nil
	}
	b.services[ep.ID()] = ep
	size := len(b.services)
	b.srvMu.Unlock()
	b.reporter.RegistryChanged(types.KindLiveService, size)
	log.Info("服务已注册", "srv", ep.ID(), "usr", ep.User())

	objects, eps := b.objectSet()
	rules := b.perms.FindRulesForServiceExtended(ep.ID())
	allowed := permission.AllowedObjects(rules, asService(ep), objects, types.ConnLocalAndCloud, types.PermStatus)
	for objID, g := range allowed {
		if obj := eps[objID]; obj != nil {
			b.present(obj, ep, g)
		}
	}
	return true, nil
}

// DeregisterService 注销服务端点，仅当注册表中是同一端点时才移除
func (b *Broker) DeregisterService(ep *endpoint.Endpoint) (bool, error) {
	if ep == nil || ep.Kind() != types.KindLiveService {
		return false, ErrInvalidEndpoint
	}

	b.srvMu.Lock()
	if b.services[ep.ID()] != ep {
		b.srvMu.Unlock()
		return false, nil
	}
	delete(b.services, ep.ID())
	size := len(b.services)
	b.srvMu.Unlock()
	b.reporter.RegistryChanged(types.KindLiveService, size)
	log.Info("服务已注销", "srv", ep.ID())
	return true, nil
}

// ============================================================================
//                              快照推送
// ============================================================================

// present 向服务推送对象快照
//
// 顺序：OBJ_INFO、OBJ_STRUCT、OBJ_PERM（仅 CoOwner）、SERVICE_PERM、
// OBJ_DISCONNECTED（仅离线对象）。单条失败记录日志后继续。
func (b *Broker) present(obj, srv *endpoint.Endpoint, g types.Grant) {
	snap := obj.Snapshot()
	msgs := []string{snap.MsgInfo(), snap.MsgStruct()}
	if g.Type >= types.PermCoOwner {
		msgs = append(msgs, snap.MsgPerm())
	}
	msgs = append(msgs, snap.MsgServicePerm(g))
	if obj.Kind() == types.KindDormantObject {
		msgs = append(msgs, snap.MsgDisconnected())
	}

	sent := 0
	for _, m := range msgs {
		if err := srv.Send(m); err != nil {
			log.Warn("推送对象快照失败", "obj", obj.ID(), "srv", srv.ID(), "err", err)
			b.reporter.Rejected(PathCatchUp, ReasonTransport)
			continue
		}
		sent++
	}
	b.reporter.Delivered(PathCatchUp, sent)
}
