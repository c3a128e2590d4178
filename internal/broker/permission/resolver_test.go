package permission

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-iotgate/pkg/types"
)

func rule(obj, srv, usr string, conn types.ConnectionClass, perm types.PermissionType) types.PermissionRule {
	return types.PermissionRule{ObjectID: obj, ServiceID: srv, UserID: usr, Connection: conn, Type: perm}
}

func TestMatches_UserPatterns(t *testing.T) {
	srv := Service{ID: "srv", User: "alice"}

	tests := []struct {
		name  string
		usr   string
		owner string
		want  bool
	}{
		{"all", types.WildcardAll, "bob", true},
		{"owner match", types.WildcardOwner, "alice", true},
		{"owner mismatch", types.WildcardOwner, "bob", false},
		{"owner anonymous", types.WildcardOwner, types.AnonymousID, true},
		{"owner empty", types.WildcardOwner, "", false},
		{"exact", "alice", "bob", true},
		{"exact mismatch", "carol", "alice", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rule("obj", types.WildcardAll, tt.usr, types.ConnOnlyLocal, types.PermStatus)
			got := Matches(r, Object{ID: "obj", Owner: tt.owner}, srv)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMatches_ObjectAndService(t *testing.T) {
	obj := Object{ID: "obj", Owner: "alice"}
	srv := Service{ID: "srv", User: "alice"}

	assert.True(t, Matches(rule("obj", "srv", types.WildcardAll, 0, 0), obj, srv))
	assert.True(t, Matches(rule(types.WildcardAll, "srv", types.WildcardAll, 0, 0), obj, srv))
	assert.False(t, Matches(rule("other", "srv", types.WildcardAll, 0, 0), obj, srv))
	assert.False(t, Matches(rule("obj", "other", types.WildcardAll, 0, 0), obj, srv))
}

func TestMeetsFloor(t *testing.T) {
	r := rule("o", "s", "u", types.ConnOnlyLocal, types.PermActions)

	assert.True(t, MeetsFloor(r, types.ConnOnlyLocal, types.PermStatus))
	assert.True(t, MeetsFloor(r, types.ConnOnlyLocal, types.PermActions))
	assert.False(t, MeetsFloor(r, types.ConnOnlyLocal, types.PermCoOwner))
	assert.False(t, MeetsFloor(r, types.ConnLocalAndCloud, types.PermNone))
}

func TestPrefer_ConnectionFirst(t *testing.T) {
	localCo := types.Grant{Type: types.PermCoOwner, Connection: types.ConnOnlyLocal}
	cloudStatus := types.Grant{Type: types.PermStatus, Connection: types.ConnLocalAndCloud}
	cloudActions := types.Grant{Type: types.PermActions, Connection: types.ConnLocalAndCloud}

	assert.True(t, Prefer(localCo, cloudStatus), "更宽的连接类型胜出")
	assert.False(t, Prefer(cloudStatus, localCo))
	assert.True(t, Prefer(cloudStatus, cloudActions), "同连接类型取更高权限")
	assert.False(t, Prefer(cloudActions, cloudStatus))
	assert.False(t, Prefer(cloudActions, cloudActions), "相同授权保留已有")
}

func TestResolve_TieBreak(t *testing.T) {
	obj := Object{ID: "obj", Owner: "alice"}
	srv := Service{ID: "srv", User: "alice"}
	rules := []types.PermissionRule{
		rule("obj", "srv", types.WildcardAll, types.ConnOnlyLocal, types.PermCoOwner),
		rule("obj", types.WildcardAll, types.WildcardOwner, types.ConnLocalAndCloud, types.PermStatus),
		rule("obj", "srv", "alice", types.ConnLocalAndCloud, types.PermActions),
	}

	g, ok := Resolve(rules, obj, srv, types.ConnOnlyLocal, types.PermNone)
	require.True(t, ok)
	assert.Equal(t, types.Grant{Type: types.PermActions, Connection: types.ConnLocalAndCloud}, g)

	// 下限过滤在取优之前
	g, ok = Resolve(rules, obj, srv, types.ConnOnlyLocal, types.PermCoOwner)
	require.True(t, ok)
	assert.Equal(t, types.Grant{Type: types.PermCoOwner, Connection: types.ConnOnlyLocal}, g)

	_, ok = Resolve(rules, obj, srv, types.ConnLocalAndCloud, types.PermCoOwner)
	assert.False(t, ok)
}

func TestAllowedServices(t *testing.T) {
	obj := Object{ID: "lamp", Owner: "alice"}
	services := []Service{
		{ID: "app", User: "alice"},
		{ID: "app2", User: "bob"},
		{ID: "cloud", User: "carol"},
	}
	rules := []types.PermissionRule{
		rule("lamp", types.WildcardAll, types.WildcardOwner, types.ConnLocalAndCloud, types.PermCoOwner),
		rule("lamp", "cloud", types.WildcardAll, types.ConnOnlyLocal, types.PermStatus),
		rule("other", types.WildcardAll, types.WildcardAll, types.ConnLocalAndCloud, types.PermCoOwner),
	}

	got := AllowedServices(rules, obj, services, types.ConnOnlyLocal, types.PermStatus)
	assert.Equal(t, map[string]types.Grant{
		"app":   {Type: types.PermCoOwner, Connection: types.ConnLocalAndCloud},
		"cloud": {Type: types.PermStatus, Connection: types.ConnOnlyLocal},
	}, got)

	got = AllowedServices(rules, obj, services, types.ConnLocalAndCloud, types.PermStatus)
	assert.Len(t, got, 1)
	assert.Contains(t, got, "app")
}

func TestAllowedObjects_SkipsUnregistered(t *testing.T) {
	srv := Service{ID: "app", User: "alice"}
	objects := []Object{{ID: "lamp", Owner: "alice"}, {ID: "fan", Owner: "bob"}}
	rules := []types.PermissionRule{
		rule("lamp", "app", types.WildcardOwner, types.ConnLocalAndCloud, types.PermActions),
		rule("fan", "app", types.WildcardOwner, types.ConnLocalAndCloud, types.PermActions),
		rule("ghost", "app", types.WildcardAll, types.ConnLocalAndCloud, types.PermCoOwner),
		rule(types.WildcardAll, types.WildcardAll, "alice", types.ConnOnlyLocal, types.PermStatus),
	}

	got := AllowedObjects(rules, srv, objects, types.ConnOnlyLocal, types.PermStatus)
	assert.Equal(t, map[string]types.Grant{
		"lamp": {Type: types.PermActions, Connection: types.ConnLocalAndCloud},
		"fan":  {Type: types.PermStatus, Connection: types.ConnOnlyLocal},
	}, got)
}

// 两个方向对同一配对给出相同结论
func TestAllowed_Symmetry(t *testing.T) {
	users := []string{"alice", "bob", types.AnonymousID, ""}
	objects := make([]Object, 0, 8)
	for i := 0; i < 8; i++ {
		objects = append(objects, Object{ID: fmt.Sprintf("obj-%d", i), Owner: users[i%len(users)]})
	}
	services := make([]Service, 0, 6)
	for i := 0; i < 6; i++ {
		services = append(services, Service{ID: fmt.Sprintf("srv-%d", i), User: users[i%2]})
	}

	objPatterns := []string{"obj-0", "obj-1", "obj-3", "obj-6", types.WildcardAll}
	srvPatterns := []string{"srv-0", "srv-2", "srv-5", types.WildcardAll}
	usrPatterns := []string{"alice", "bob", types.WildcardAll, types.WildcardOwner}

	var rules []types.PermissionRule
	n := 0
	for _, o := range objPatterns {
		for _, s := range srvPatterns {
			for _, u := range usrPatterns {
				n++
				if n%3 == 0 {
					continue
				}
				rules = append(rules, rule(o, s, u,
					types.ConnectionClass(n%2), types.PermissionType(n%4)))
			}
		}
	}

	rulesFor := func(pred func(types.PermissionRule) bool) []types.PermissionRule {
		var out []types.PermissionRule
		for _, r := range rules {
			if pred(r) {
				out = append(out, r)
			}
		}
		return out
	}

	for _, minConn := range []types.ConnectionClass{types.ConnOnlyLocal, types.ConnLocalAndCloud} {
		for _, minPerm := range []types.PermissionType{types.PermNone, types.PermStatus, types.PermCoOwner} {
			for _, obj := range objects {
				objRules := rulesFor(func(r types.PermissionRule) bool { return matchObject(r, obj.ID) })
				bySrv := AllowedServices(objRules, obj, services, minConn, minPerm)

				for _, srv := range services {
					srvRules := rulesFor(func(r types.PermissionRule) bool { return matchService(r, srv.ID) })
					byObj := AllowedObjects(srvRules, srv, objects, minConn, minPerm)

					g1, ok1 := bySrv[srv.ID]
					g2, ok2 := byObj[obj.ID]
					require.Equal(t, ok1, ok2, "obj=%s srv=%s conn=%s perm=%s", obj.ID, srv.ID, minConn, minPerm)
					require.Equal(t, g1, g2, "obj=%s srv=%s", obj.ID, srv.ID)
				}
			}
		}
	}
}
