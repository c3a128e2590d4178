package gateway

import (
	"context"

	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/internal/core/peer"
	securitytls "github.com/dep2p/go-iotgate/internal/core/security/tls"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
	"github.com/dep2p/go-iotgate/pkg/types"
)

func reply(p *peer.Peer, msg string) {
	if err := p.Send(msg); err != nil {
		log.Debug("回复失败", "peer", p.RemoteID(), "err", err)
	}
}

func reject(p *peer.Peer, kind, id string) {
	reply(p, ErrFrame(kind, id))
	_ = p.Disconnect()
}

// checkIdentity 使用 TLS 时，HELLO 声明的标识必须与证书身份一致
func checkIdentity(p *peer.Peer, id string) bool {
	cert := p.PeerCertificate()
	if cert == nil {
		return true
	}
	return securitytls.IdentityOf(cert) == id
}

// ============================================================================
//                              对象链路
// ============================================================================

func (g *Gateway) onObjectFrame(p *peer.Peer, msg string) {
	f, err := ParseFrame(msg)
	if err != nil {
		reply(p, ErrFrame(ErrKindMalformed, "-"))
		return
	}

	ep := g.bound(p)
	if ep == nil {
		g.helloObject(p, f)
		return
	}

	snap := ep.Snapshot()
	switch f.Header {
	case HdrInfo:
		snap.SetInfo(f.Body)
		g.broker.SendBroadcast(ep, snap.MsgInfo(), types.PermStatus)

	case HdrStruct:
		snap.SetStructure(f.Body)
		g.broker.SendBroadcast(ep, snap.MsgStruct(), types.PermStatus)

	case HdrPerms:
		rules, err := types.ParsePermissionRules(f.Body)
		if err != nil {
			log.Warn("对象权限列表无效", "obj", ep.ID(), "err", err)
			reply(p, ErrFrame(ErrKindMalformed, ep.ID()))
			return
		}
		if err := g.broker.ReplaceObjectPermissions(ep.ID(), rules); err != nil {
			log.Warn("更新对象权限失败", "obj", ep.ID(), "err", err)
			reply(p, ErrFrame(errKind(err), ep.ID()))
		}

	case HdrBcast:
		perm, err := f.permArg(0)
		if err != nil {
			reply(p, ErrFrame(ErrKindMalformed, ep.ID()))
			return
		}
		g.broker.SendBroadcast(ep, FromFrame(ep.ID(), f.Body), perm)

	case HdrTo:
		srvID := f.arg(0)
		perm, err := f.permArg(1)
		if srvID == "" || err != nil {
			reply(p, ErrFrame(ErrKindMalformed, ep.ID()))
			return
		}
		if err := g.broker.SendDirected(ep, srvID, FromFrame(ep.ID(), f.Body), perm); err != nil {
			log.Info("定向投递被拒绝", "obj", ep.ID(), "srv", srvID, "err", err)
			reply(p, ErrFrame(errKind(err), srvID))
		}

	default:
		reply(p, ErrFrame(ErrKindMalformed, ep.ID()))
	}
}

func (g *Gateway) helloObject(p *peer.Peer, f Frame) {
	objID, owner := f.arg(1), f.arg(2)
	if f.Header != HdrHello || f.arg(0) != RoleObject || objID == "" {
		reject(p, ErrKindMalformed, "-")
		return
	}
	if !checkIdentity(p, objID) {
		log.Warn("对象标识与证书不符", "claimed", objID, "remote", p.RemoteID())
		reject(p, ErrKindIdentity, objID)
		return
	}

	ctx := context.Background()
	var (
		rec    interfaces.ObjectRecord
		stored bool
	)
	if g.objects != nil {
		var err error
		if rec, stored, err = g.objects.GetObject(ctx, objID); err != nil {
			log.Warn("读取对象元数据失败", "obj", objID, "err", err)
		}
		if owner == "" && stored {
			owner = rec.OwnerID
		}
	}

	ep := endpoint.NewLiveObject(objID, owner, p)
	if d := g.broker.Dormant(objID); d != nil {
		ep.Snapshot().CopyFrom(d.Snapshot())
	}
	ok, err := g.broker.RegisterObject(ep)
	if err != nil || !ok {
		reject(p, ErrKindDuplicate, objID)
		return
	}
	g.bind(p, ep)

	// 元数据只在注册成功后写入，被拒绝的 HELLO 不改变存储
	if g.objects != nil {
		if !stored || rec.OwnerID != owner {
			rec.ID, rec.OwnerID = objID, owner
			if err := g.objects.SaveObject(ctx, rec); err != nil {
				log.Warn("保存对象元数据失败", "obj", objID, "err", err)
			}
		}
		if err := g.objects.SetOnline(ctx, objID, true, g.cfg.Clock.Now()); err != nil {
			log.Warn("记录对象上线失败", "obj", objID, "err", err)
		}
	}
	if g.mailbox != nil {
		for _, m := range g.mailbox.Drain(objID) {
			reply(p, m)
		}
	}
	log.Info("对象已接入", "obj", objID, "owner", owner, "remote", p.RemoteID())
}

// ============================================================================
//                              服务链路
// ============================================================================

func (g *Gateway) onServiceFrame(p *peer.Peer, msg string) {
	f, err := ParseFrame(msg)
	if err != nil {
		reply(p, ErrFrame(ErrKindMalformed, "-"))
		return
	}

	ep := g.bound(p)
	if ep == nil {
		g.helloService(p, f)
		return
	}

	switch f.Header {
	case HdrTo:
		objID := f.arg(0)
		perm, err := f.permArg(1)
		if objID == "" || err != nil {
			reply(p, ErrFrame(ErrKindMalformed, ep.ID()))
			return
		}
		if err := g.broker.SendToObject(ep, objID, FromFrame(ep.ID(), f.Body), perm); err != nil {
			log.Info("服务请求被拒绝", "srv", ep.ID(), "obj", objID, "err", err)
			reply(p, ErrFrame(errKind(err), objID))
		}

	default:
		reply(p, ErrFrame(ErrKindMalformed, ep.ID()))
	}
}

func (g *Gateway) helloService(p *peer.Peer, f Frame) {
	srvID, usrID := f.arg(1), f.arg(2)
	if f.Header != HdrHello || f.arg(0) != RoleService || srvID == "" {
		reject(p, ErrKindMalformed, "-")
		return
	}
	if usrID == "" {
		usrID = types.AnonymousID
	}
	if !checkIdentity(p, srvID) {
		log.Warn("服务标识与证书不符", "claimed", srvID, "remote", p.RemoteID())
		reject(p, ErrKindIdentity, srvID)
		return
	}

	ep := endpoint.NewLiveService(srvID, usrID, p)
	// 先绑定再注册：补发的快照写出时链路已可被注销路径找到
	g.bind(p, ep)
	ok, err := g.broker.RegisterService(ep)
	if err != nil || !ok {
		g.unbind(p)
		reject(p, ErrKindDuplicate, srvID)
		return
	}
	log.Info("服务已接入", "srv", srvID, "usr", usrID, "remote", p.RemoteID())
}

var _ interfaces.Sender = (*peer.Peer)(nil)
