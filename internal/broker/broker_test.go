package broker

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/pkg/interfaces/mocks"
	"github.com/dep2p/go-iotgate/pkg/types"
)

const cloud = types.ConnLocalAndCloud

func TestBroker_RegisterIdempotent(t *testing.T) {
	rep := newReporter()
	b := New(newRuleStore(), WithReporter(rep))

	obj := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	ok, err := b.RegisterObject(obj)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = b.RegisterObject(endpoint.NewLiveObject("lamp", "alice", &inbox{}))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Same(t, obj, b.Object("lamp"))

	srv := endpoint.NewLiveService("app", "alice", &inbox{})
	ok, err = b.RegisterService(srv)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = b.RegisterService(endpoint.NewLiveService("app", "bob", &inbox{}))
	assert.False(t, ok)

	// 注销其他实例不影响注册表
	ok, _ = b.DeregisterService(endpoint.NewLiveService("app", "alice", &inbox{}))
	assert.False(t, ok)
	ok, _ = b.DeregisterService(srv)
	assert.True(t, ok)
	ok, _ = b.DeregisterService(srv)
	assert.False(t, ok)

	assert.Equal(t, 1, rep.sizes[types.KindLiveObject])
	assert.Equal(t, 0, rep.sizes[types.KindLiveService])
}

func TestBroker_InvalidKinds(t *testing.T) {
	b := New(newRuleStore())
	srv := endpoint.NewLiveService("app", "alice", &inbox{})
	obj := endpoint.NewLiveObject("lamp", "alice", &inbox{})

	_, err := b.RegisterObject(srv)
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
	_, err = b.RegisterService(obj)
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
	_, err = b.RegisterObject(nil)
	assert.ErrorIs(t, err, ErrInvalidEndpoint)
	assert.ErrorIs(t, b.SendDirected(srv, "app", "x", types.PermNone), ErrInvalidEndpoint)
	assert.ErrorIs(t, b.SendToObject(obj, "lamp", "x", types.PermNone), ErrInvalidEndpoint)
	assert.Zero(t, b.SendBroadcast(srv, "x", types.PermNone))
}

func TestBroker_DormantPairing(t *testing.T) {
	b := New(newRuleStore())

	d := endpoint.NewDormantObject("lamp", "alice", nil, nil)
	ok, err := b.RegisterObject(d)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, d, b.ActiveObject("lamp"))

	live := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	live.Snapshot().SetInfo("v2")
	_, err = b.RegisterObject(live)
	require.NoError(t, err)

	assert.True(t, d.Paused())
	assert.Same(t, d, live.Dormant())
	assert.Same(t, live, b.ActiveObject("lamp"))

	ok, err = b.DeregisterObject(live)
	require.NoError(t, err)
	require.True(t, ok)

	// 恰有一个生效端点：恢复后的离线端点
	assert.Nil(t, b.Object("lamp"))
	assert.Same(t, d, b.ActiveObject("lamp"))
	assert.False(t, d.Paused())
	assert.Equal(t, "v2", d.Snapshot().Info())
}

func TestBroker_DeregisterCreatesDormant(t *testing.T) {
	box := endpoint.NewMailbox(4)
	b := New(newRuleStore(), WithOfflineSink(box))

	live := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	_, _ = b.RegisterObject(live)
	_, _ = b.DeregisterObject(live)

	d := b.Dormant("lamp")
	require.NotNil(t, d)
	assert.Equal(t, "alice", d.Owner())
	assert.False(t, d.Paused())
	assert.Equal(t, []string{"lamp"}, b.DormantObjects())
	assert.Empty(t, b.Objects())

	require.NoError(t, d.Send("queued"))
	assert.Equal(t, 1, box.Pending("lamp"))
}

func TestBroker_DormantTakesLastLiveOwner(t *testing.T) {
	b := New(newRuleStore(
		rule("lamp", "app", types.WildcardOwner, cloud, types.PermActions),
	))
	srv := endpoint.NewLiveService("app", "bob", &inbox{})
	_, _ = b.RegisterService(srv)

	d := endpoint.NewDormantObject("lamp", "alice", nil, nil)
	_, _ = b.RegisterObject(d)
	live := endpoint.NewLiveObject("lamp", "bob", &inbox{})
	_, _ = b.RegisterObject(live)
	require.NoError(t, b.SendToObject(srv, "lamp", "on", types.PermActions))

	ok, err := b.DeregisterObject(live)
	require.NoError(t, err)
	require.True(t, ok)

	require.Same(t, d, b.Dormant("lamp"))
	assert.Equal(t, "bob", d.Owner())

	// 所有者仍有权限，离线且无投递时只是不可达
	err = b.SendToObject(srv, "lamp", "on", types.PermActions)
	assert.ErrorIs(t, err, ErrNotReachable)
	assert.NotErrorIs(t, err, ErrPermissionDenied)
}

func TestBroker_DormantRegisteredAfterLive(t *testing.T) {
	b := New(newRuleStore())
	live := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	_, _ = b.RegisterObject(live)

	d := endpoint.NewDormantObject("lamp", "alice", nil, nil)
	_, _ = b.RegisterObject(d)
	assert.True(t, d.Paused())
	assert.Same(t, d, live.Dormant())
}

func TestBroker_DeregisterNotifiesEntitled(t *testing.T) {
	b := New(newRuleStore(
		rule("lamp", types.WildcardAll, types.WildcardOwner, cloud, types.PermStatus),
	))
	alice, bob := &inbox{}, &inbox{}
	_, _ = b.RegisterService(endpoint.NewLiveService("app", "alice", alice))
	_, _ = b.RegisterService(endpoint.NewLiveService("app2", "bob", bob))

	live := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	_, _ = b.RegisterObject(live)
	alice.reset()

	_, _ = b.DeregisterObject(live)
	assert.Equal(t, []string{"OBJ_DISCONNECTED lamp"}, alice.all())
	assert.Empty(t, bob.all())
}

// 晚注册的服务收到与全程在线服务相同的消息
func TestBroker_CatchUpCompleteness(t *testing.T) {
	store := newRuleStore(
		rule("lamp", types.WildcardAll, types.WildcardOwner, cloud, types.PermCoOwner),
		rule("fan", types.WildcardAll, types.WildcardAll, cloud, types.PermStatus),
		rule("fan", types.WildcardAll, types.WildcardAll, types.ConnOnlyLocal, types.PermActions),
		rule("heater", types.WildcardAll, types.WildcardAll, types.ConnOnlyLocal, types.PermCoOwner),
	)
	b := New(store)

	early := &inbox{}
	_, _ = b.RegisterService(endpoint.NewLiveService("early", "alice", early))

	for _, id := range []string{"lamp", "fan", "heater"} {
		obj := endpoint.NewLiveObject(id, "alice", &inbox{})
		obj.Snapshot().SetInfo("info-" + id)
		obj.Snapshot().SetStructure("struct-" + id)
		_, _ = b.RegisterObject(obj)
	}

	late := &inbox{}
	_, _ = b.RegisterService(endpoint.NewLiveService("late", "alice", late))

	assert.ElementsMatch(t, early.all(), late.all())
	assert.Contains(t, late.all(), "OBJ_INFO lamp\ninfo-lamp")
	assert.Contains(t, late.all(), "SERVICE_PERM lamp CoOwner LocalAndCloud")
	assert.Contains(t, late.all(), "SERVICE_PERM fan Status LocalAndCloud")
	for _, m := range late.all() {
		assert.NotContains(t, m, "heater", "OnlyLocal 授权不推送")
		assert.NotContains(t, m, "OBJ_PERM fan", "Status 授权不推送权限列表")
	}
}

func TestBroker_CatchUpDormant(t *testing.T) {
	b := New(newRuleStore(rule("lamp", types.WildcardAll, types.WildcardAll, cloud, types.PermActions)))
	d := endpoint.NewDormantObject("lamp", "alice", nil, nil)
	d.Snapshot().SetInfo("info")
	_, _ = b.RegisterObject(d)

	srv := &inbox{}
	_, _ = b.RegisterService(endpoint.NewLiveService("app", "bob", srv))
	assert.Equal(t, []string{
		"OBJ_INFO lamp\ninfo",
		"OBJ_STRUCT lamp",
		"SERVICE_PERM lamp Actions LocalAndCloud",
		"OBJ_DISCONNECTED lamp",
	}, srv.all())
}

// 三个服务中一个链路损坏，其余两个仍收到广播
func TestBroker_BroadcastPartialFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	rep := newReporter()
	b := New(newRuleStore(rule("lamp", types.WildcardAll, types.WildcardAll, cloud, types.PermStatus)),
		WithReporter(rep))

	obj := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	_, _ = b.RegisterObject(obj)

	ok := mocks.NewMockSender(ctrl)
	ok.EXPECT().Send("state:on").Return(nil).Times(1)
	ok2 := mocks.NewMockSender(ctrl)
	ok2.EXPECT().Send("state:on").Return(nil).Times(1)
	broken := mocks.NewMockSender(ctrl)
	broken.EXPECT().Send("state:on").Return(errors.New("reset by peer")).Times(1)

	// 注册时的快照推送匹配第二条期望
	for i, s := range []*mocks.MockSender{ok, ok2, broken} {
		s.EXPECT().Send(gomock.Not("state:on")).Return(nil).AnyTimes()
		_, err := b.RegisterService(endpoint.NewLiveService(fmt.Sprintf("srv-%d", i), "u", s))
		require.NoError(t, err)
	}

	n := b.SendBroadcast(obj, "state:on", types.PermStatus)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, rep.rejected[PathBroadcast+"/"+ReasonTransport])
}

func TestBroker_BroadcastRespectsFloor(t *testing.T) {
	b := New(newRuleStore(
		rule("lamp", "viewer", types.WildcardAll, cloud, types.PermStatus),
		rule("lamp", "admin", types.WildcardAll, cloud, types.PermCoOwner),
		rule("lamp", "local", types.WildcardAll, types.ConnOnlyLocal, types.PermCoOwner),
	))
	obj := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	_, _ = b.RegisterObject(obj)

	viewer, admin, local := &inbox{}, &inbox{}, &inbox{}
	_, _ = b.RegisterService(endpoint.NewLiveService("viewer", "u", viewer))
	_, _ = b.RegisterService(endpoint.NewLiveService("admin", "u", admin))
	_, _ = b.RegisterService(endpoint.NewLiveService("local", "u", local))
	viewer.reset()
	admin.reset()
	local.reset()

	assert.Equal(t, 1, b.SendBroadcast(obj, "secret", types.PermActions))
	assert.Equal(t, []string{"secret"}, admin.all())
	assert.Empty(t, viewer.all())
	assert.Empty(t, local.all())
}

func TestBroker_SendDirected(t *testing.T) {
	ctrl := gomock.NewController(t)
	b := New(newRuleStore(rule("lamp", "app", types.WildcardAll, cloud, types.PermStatus)))
	obj := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	_, _ = b.RegisterObject(obj)

	s := mocks.NewMockSender(ctrl)
	s.EXPECT().Send(gomock.Any()).Return(nil).AnyTimes()
	_, _ = b.RegisterService(endpoint.NewLiveService("app", "bob", s))

	require.NoError(t, b.SendDirected(obj, "app", "hi", types.PermStatus))
	assert.ErrorIs(t, b.SendDirected(obj, "app", "hi", types.PermActions), ErrPermissionDenied)
	assert.ErrorIs(t, b.SendDirected(obj, "ghost", "hi", types.PermNone), ErrNotRegistered)

	other := mocks.NewMockSender(ctrl)
	other.EXPECT().Send("hi").Return(errors.New("write: broken pipe"))
	_, _ = b.RegisterService(endpoint.NewLiveService("other", "bob", other))

	// None 不检查权限，传输错误返回调用方
	err := b.SendDirected(obj, "other", "hi", types.PermNone)
	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, PathDirected, de.Path)
	assert.Equal(t, "other", de.Target)
}

func TestBroker_SendToObject(t *testing.T) {
	b := New(newRuleStore(
		rule("lamp", "app", types.WildcardOwner, cloud, types.PermActions),
		rule("fan", "app", types.WildcardAll, cloud, types.PermActions),
	))
	srv := endpoint.NewLiveService("app", "alice", &inbox{})
	_, _ = b.RegisterService(srv)

	assert.ErrorIs(t, b.SendToObject(srv, "lamp", "on", types.PermActions), ErrNotRegistered)

	lamp := &inbox{}
	_, _ = b.RegisterObject(endpoint.NewLiveObject("lamp", "alice", lamp))
	require.NoError(t, b.SendToObject(srv, "lamp", "on", types.PermActions))
	assert.Equal(t, []string{"on"}, lamp.all())

	assert.ErrorIs(t, b.SendToObject(srv, "lamp", "on", types.PermCoOwner), ErrPermissionDenied)

	// 仅离线端点且无离线投递
	_, _ = b.RegisterObject(endpoint.NewDormantObject("fan", "bob", nil, nil))
	err := b.SendToObject(srv, "fan", "on", types.PermActions)
	assert.ErrorIs(t, err, ErrNotReachable)
	assert.NotErrorIs(t, err, ErrPermissionDenied)

	broken := &inbox{fail: true}
	_, _ = b.RegisterObject(endpoint.NewLiveObject("fan", "bob", broken))
	var de *DeliveryError
	require.ErrorAs(t, b.SendToObject(srv, "fan", "on", types.PermActions), &de)
	assert.ErrorIs(t, de, errBroken)
}

func TestBroker_UpdateObjectPermissions(t *testing.T) {
	store := newRuleStore(
		rule("lamp", "viewer", types.WildcardAll, cloud, types.PermStatus),
		rule("lamp", "leaver", types.WildcardAll, cloud, types.PermStatus),
	)
	b := New(store)
	obj := endpoint.NewLiveObject("lamp", "alice", &inbox{})
	obj.Snapshot().SetInfo("info")
	_, _ = b.RegisterObject(obj)

	viewer, leaver, joiner := &inbox{}, &inbox{}, &inbox{}
	_, _ = b.RegisterService(endpoint.NewLiveService("viewer", "u", viewer))
	_, _ = b.RegisterService(endpoint.NewLiveService("leaver", "u", leaver))
	_, _ = b.RegisterService(endpoint.NewLiveService("joiner", "u", joiner))
	viewer.reset()
	leaver.reset()
	joiner.reset()

	next := []types.PermissionRule{
		rule("lamp", "viewer", types.WildcardAll, cloud, types.PermCoOwner),
		rule("lamp", "joiner", types.WildcardAll, cloud, types.PermStatus),
	}
	require.NoError(t, b.ReplaceObjectPermissions("lamp", next))

	assert.Equal(t, []string{
		"SERVICE_PERM lamp CoOwner LocalAndCloud",
		"OBJ_PERM lamp\n" + types.FormatPermissionRules(next),
	}, viewer.all())
	assert.Equal(t, []string{"SERVICE_PERM lamp None LocalAndCloud"}, leaver.all())
	assert.Equal(t, []string{
		"OBJ_INFO lamp\ninfo",
		"OBJ_STRUCT lamp",
		"SERVICE_PERM lamp Status LocalAndCloud",
	}, joiner.all())
	assert.Len(t, obj.Snapshot().Permissions(), 2)

	assert.ErrorIs(t, b.ReplaceObjectPermissions("ghost", nil), ErrNotRegistered)
}

func TestBroker_CheckServicePermission(t *testing.T) {
	b := New(newRuleStore(rule("lamp", "app", "alice", cloud, types.PermActions)))
	_, _ = b.RegisterObject(endpoint.NewLiveObject("lamp", "x", &inbox{}))
	_, _ = b.RegisterService(endpoint.NewLiveService("app", "alice", &inbox{}))

	assert.True(t, b.CheckServicePermission("app", "lamp", types.PermActions))
	assert.False(t, b.CheckServicePermission("app", "lamp", types.PermCoOwner))
	assert.False(t, b.CheckServicePermission("app", "ghost", types.PermNone))
}

func TestBroker_ConcurrentRegistration(t *testing.T) {
	b := New(newRuleStore(rule(types.WildcardAll, types.WildcardAll, types.WildcardAll, cloud, types.PermStatus)))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			ep := endpoint.NewLiveObject(fmt.Sprintf("obj-%d", i), "u", &inbox{})
			_, _ = b.RegisterObject(ep)
			if i%2 == 0 {
				_, _ = b.DeregisterObject(ep)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			_, _ = b.RegisterService(endpoint.NewLiveService(fmt.Sprintf("srv-%d", i), "u", &inbox{}))
		}(i)
	}
	wg.Wait()

	assert.Len(t, b.Objects(), 10)
	assert.Len(t, b.Services(), 20)
	assert.Len(t, b.DormantObjects(), 10)
}
