package types

import "fmt"

// ============================================================================
//                              通配符与保留标识
// ============================================================================

const (
	// WildcardAll 匹配任意服务或用户
	WildcardAll = "#All"

	// WildcardOwner 仅匹配对象所有者
	WildcardOwner = "#Owner"

	// AnonymousID 匿名所有者标识，所有者为该值时 #Owner 匹配任意用户
	AnonymousID = "00000-00000-00000"
)

// TrustLabel 返回远端证书在信任库中的标签
//
// 格式: <proto>@<remoteID>，例如 "CL@obj-1"
func TrustLabel(proto, remoteID string) string {
	return fmt.Sprintf("%s@%s", proto, remoteID)
}
