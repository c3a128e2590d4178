package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-iotgate/pkg/types"
)

func TestSnapshot_Messages(t *testing.T) {
	s := NewObjectSnapshot("lamp")
	s.SetInfo("name=Lamp")
	s.SetStructure(`{"root":{}}`)
	s.SetPermissions([]types.PermissionRule{{
		ObjectID: "lamp", ServiceID: types.WildcardAll, UserID: types.WildcardOwner,
		Connection: types.ConnLocalAndCloud, Type: types.PermCoOwner,
	}})

	assert.Equal(t, "OBJ_INFO lamp\nname=Lamp", s.MsgInfo())
	assert.Equal(t, "OBJ_STRUCT lamp\n{\"root\":{}}", s.MsgStruct())
	assert.Equal(t, "OBJ_PERM lamp\nobj=lamp;srv=#All;usr=#Owner;conn=LocalAndCloud;type=CoOwner", s.MsgPerm())
	assert.Equal(t, "SERVICE_PERM lamp Actions OnlyLocal",
		s.MsgServicePerm(types.Grant{Type: types.PermActions, Connection: types.ConnOnlyLocal}))
	assert.Equal(t, "OBJ_DISCONNECTED lamp", s.MsgDisconnected())
}

func TestSnapshot_ParseHeader(t *testing.T) {
	s := NewObjectSnapshot("lamp")
	kind, id, args, err := ParseHeader(s.MsgServicePerm(types.Grant{Type: types.PermStatus}))
	require.NoError(t, err)
	assert.Equal(t, MsgServicePerm, kind)
	assert.Equal(t, "lamp", id)
	assert.Equal(t, []string{"Status", "OnlyLocal"}, args)

	_, _, _, err = ParseHeader("OBJ_INFO")
	assert.Error(t, err)
}

func TestSnapshot_CopyFrom(t *testing.T) {
	src := NewObjectSnapshot("lamp")
	src.SetInfo("i")
	src.SetStructure("s")
	src.SetPermissions([]types.PermissionRule{{ObjectID: "lamp"}})

	dst := NewObjectSnapshot("lamp")
	dst.CopyFrom(src)
	assert.Equal(t, "i", dst.Info())
	assert.Equal(t, "s", dst.Structure())
	assert.Len(t, dst.Permissions(), 1)

	// 副本独立
	src.SetInfo("changed")
	assert.Equal(t, "i", dst.Info())
}
