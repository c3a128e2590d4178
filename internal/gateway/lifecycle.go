package gateway

import (
	"context"

	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/internal/core/peer"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// restoreDormant 为对象存储中的每个已知对象注册离线端点
func (g *Gateway) restoreDormant(ctx context.Context) error {
	if g.objects == nil {
		return nil
	}
	records, err := g.objects.ListObjects(ctx)
	if err != nil {
		return err
	}

	var sink endpoint.OfflineSink
	if g.mailbox != nil {
		sink = g.mailbox
	}
	for _, rec := range records {
		snap := endpoint.NewObjectSnapshot(rec.ID)
		snap.SetInfo(rec.Name)
		snap.SetPermissions(g.broker.Permissions().FindRulesForObject(rec.ID))
		if _, err := g.broker.RegisterObject(endpoint.NewDormantObject(rec.ID, rec.OwnerID, snap, sink)); err != nil {
			return err
		}
		if rec.Online {
			// 上次运行未正常下线
			if err := g.objects.SetOnline(ctx, rec.ID, false, g.cfg.Clock.Now()); err != nil {
				log.Warn("重置对象在线状态失败", "obj", rec.ID, "err", err)
			}
		}
	}
	log.Info("已恢复离线对象", "count", len(records))
	return nil
}

// ============================================================================
//                              绑定
// ============================================================================

func (g *Gateway) bound(p *peer.Peer) *endpoint.Endpoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.bindings[p.ID()]
}

func (g *Gateway) bind(p *peer.Peer, ep *endpoint.Endpoint) {
	g.mu.Lock()
	g.bindings[p.ID()] = ep
	g.mu.Unlock()
}

func (g *Gateway) unbind(p *peer.Peer) *endpoint.Endpoint {
	g.mu.Lock()
	defer g.mu.Unlock()
	ep := g.bindings[p.ID()]
	delete(g.bindings, p.ID())
	return ep
}

// onPeerEvent 链路断开后注销对应端点
func (g *Gateway) onPeerEvent(p *peer.Peer, ev types.PeerEvent) {
	if !ev.IsTerminal() {
		return
	}
	ep := g.unbind(p)
	if ep == nil {
		return
	}

	switch ep.Kind() {
	case types.KindLiveObject:
		if _, err := g.broker.DeregisterObject(ep); err != nil {
			log.Warn("注销对象失败", "obj", ep.ID(), "err", err)
		}
		if g.objects != nil {
			if err := g.objects.SetOnline(context.Background(), ep.ID(), false, ev.Time); err != nil {
				log.Warn("记录对象下线失败", "obj", ep.ID(), "err", err)
			}
		}
	case types.KindLiveService:
		if _, err := g.broker.DeregisterService(ep); err != nil {
			log.Warn("注销服务失败", "srv", ep.ID(), "err", err)
		}
	}
	log.Info("端点已注销", "endpoint", ep, "reason", ev.Reason)
}
