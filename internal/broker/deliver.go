package broker

import (
	"errors"
	"fmt"

	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// SendBroadcast 将对象的消息扇出到所有满足 minPerm 的在线服务
//
// 尽力投递：单个服务失败只记录日志，不影响其他服务，也不返回错误。
// 返回成功投递的服务数。
func (b *Broker) SendBroadcast(src *endpoint.Endpoint, payload string, minPerm types.PermissionType) int {
	if src == nil || !src.IsObject() {
		log.Warn("广播来源不是对象端点，丢弃")
		b.reporter.Rejected(PathBroadcast, ReasonUnregistered)
		return 0
	}

	services, eps := b.serviceSet()
	rules := b.perms.FindRulesForObject(src.ID())
	allowed := allowedServices(rules, src, services, minPerm)

	delivered := 0
	for srvID := range allowed {
		srv := eps[srvID]
		if err := srv.Send(payload); err != nil {
			log.Warn("广播投递失败", "obj", src.ID(), "srv", srvID, "err", err)
			b.reporter.Rejected(PathBroadcast, ReasonTransport)
			continue
		}
		delivered++
	}
	b.reporter.Delivered(PathBroadcast, delivered)
	log.Debug("广播完成", "obj", src.ID(), "allowed", len(allowed), "delivered", delivered)
	return delivered
}

// SendDirected 将对象的消息发往指定服务
//
// minPerm 不为 None 时服务必须持有该权限；服务必须已注册；
// 传输错误以 *DeliveryError 返回。
func (b *Broker) SendDirected(src *endpoint.Endpoint, srvID, payload string, minPerm types.PermissionType) error {
	if src == nil || !src.IsObject() {
		return ErrInvalidEndpoint
	}

	srv := b.Service(srvID)
	if srv == nil {
		log.Warn("定向投递目标服务未注册", "obj", src.ID(), "srv", srvID)
		b.reporter.Rejected(PathDirected, ReasonUnregistered)
		return fmt.Errorf("%w: service %s", ErrNotRegistered, srvID)
	}

	if minPerm != types.PermNone {
		if _, ok := b.grantFor(src, srv, minPerm); !ok {
			log.Warn("定向投递权限不足", "obj", src.ID(), "srv", srvID, "min", minPerm)
			b.reporter.Rejected(PathDirected, ReasonDenied)
			return fmt.Errorf("%w: service %s on object %s requires %s", ErrPermissionDenied, srvID, src.ID(), minPerm)
		}
	}

	if err := srv.Send(payload); err != nil {
		b.reporter.Rejected(PathDirected, ReasonTransport)
		return &DeliveryError{Path: PathDirected, Target: srvID, Err: err}
	}
	b.reporter.Delivered(PathDirected, 1)
	return nil
}

// SendToObject 将服务的消息发往对象
//
// 对象未注册返回 ErrNotRegistered；权限不足返回 ErrPermissionDenied；
// 对象离线且无离线投递返回 ErrNotReachable；传输错误以 *DeliveryError 返回。
func (b *Broker) SendToObject(src *endpoint.Endpoint, objID, payload string, minPerm types.PermissionType) error {
	if src == nil || src.Kind() != types.KindLiveService {
		return ErrInvalidEndpoint
	}

	obj := b.ActiveObject(objID)
	if obj == nil {
		b.reporter.Rejected(PathToObject, ReasonUnregistered)
		return fmt.Errorf("%w: object %s", ErrNotRegistered, objID)
	}

	if _, ok := b.grantFor(obj, src, minPerm); !ok {
		log.Info("服务访问对象权限不足", "srv", src.ID(), "obj", objID, "min", minPerm)
		b.reporter.Rejected(PathToObject, ReasonDenied)
		return fmt.Errorf("%w: service %s on object %s requires %s", ErrPermissionDenied, src.ID(), objID, minPerm)
	}

	if err := obj.Send(payload); err != nil {
		if errors.Is(err, endpoint.ErrNotReachable) {
			b.reporter.Rejected(PathToObject, ReasonUnreachable)
			return fmt.Errorf("%w: object %s", ErrNotReachable, objID)
		}
		b.reporter.Rejected(PathToObject, ReasonTransport)
		return &DeliveryError{Path: PathToObject, Target: objID, Err: err}
	}
	b.reporter.Delivered(PathToObject, 1)
	return nil
}
