package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionType_Order(t *testing.T) {
	assert.True(t, PermNone < PermStatus)
	assert.True(t, PermStatus < PermActions)
	assert.True(t, PermActions < PermCoOwner)
	assert.True(t, ConnOnlyLocal < ConnLocalAndCloud)
}

func TestParsePermissionType(t *testing.T) {
	p, err := ParsePermissionType("coowner")
	require.NoError(t, err)
	assert.Equal(t, PermCoOwner, p)

	_, err = ParsePermissionType("root")
	assert.ErrorIs(t, err, ErrInvalidPermissionType)

	_, err = ParseConnectionClass("cloudonly")
	assert.ErrorIs(t, err, ErrInvalidConnectionClass)
}

func TestPermissionRule_TextRoundTrip(t *testing.T) {
	rule := PermissionRule{
		ID:         "r1",
		ObjectID:   "obj-1",
		ServiceID:  WildcardAll,
		UserID:     WildcardOwner,
		Connection: ConnLocalAndCloud,
		Type:       PermActions,
	}

	parsed, err := ParsePermissionRule(rule.String())
	require.NoError(t, err)
	assert.Equal(t, rule, parsed)
}

func TestParsePermissionRule_Invalid(t *testing.T) {
	// 缺少字段
	_, err := ParsePermissionRule("obj=o;srv=s;usr=u;conn=OnlyLocal")
	assert.ErrorIs(t, err, ErrInvalidPermissionRule)

	// 未知字段
	_, err = ParsePermissionRule("obj=o;srv=s;usr=u;conn=OnlyLocal;type=None;x=1")
	assert.ErrorIs(t, err, ErrInvalidPermissionRule)

	// 无效枚举
	_, err = ParsePermissionRule("obj=o;srv=s;usr=u;conn=OnlyLocal;type=Admin")
	assert.ErrorIs(t, err, ErrInvalidPermissionType)
}

func TestParsePermissionRules_Multiline(t *testing.T) {
	text := "obj=o;srv=a;usr=u;conn=OnlyLocal;type=Status\n\nobj=o;srv=b;usr=#All;conn=LocalAndCloud;type=CoOwner\n"
	rules, err := ParsePermissionRules(text)
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, "b", rules[1].ServiceID)
	assert.Equal(t, Grant{Type: PermCoOwner, Connection: ConnLocalAndCloud}, rules[1].Grant())

	again, err := ParsePermissionRules(FormatPermissionRules(rules))
	require.NoError(t, err)
	assert.Equal(t, rules, again)
}

func TestPermissionRule_JSONUsesNames(t *testing.T) {
	data, err := json.Marshal(PermissionRule{ObjectID: "o", ServiceID: "s", UserID: "u", Type: PermStatus})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"Status"`)
	assert.Contains(t, string(data), `"conn":"OnlyLocal"`)

	var r PermissionRule
	require.NoError(t, json.Unmarshal([]byte(`{"obj":"o","srv":"s","usr":"u","conn":"LocalAndCloud","type":"Actions"}`), &r))
	assert.Equal(t, PermActions, r.Type)
	assert.Equal(t, ConnLocalAndCloud, r.Connection)
}

func TestTrustLabel(t *testing.T) {
	assert.Equal(t, "CL@obj-1", TrustLabel("CL", "obj-1"))
}
