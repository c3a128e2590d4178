// Package permission 评估对象与服务之间的访问授权
//
// 规则匹配条件：
//
//   - 对象模式为 #All 或等于对象标识
//   - 服务模式为 #All 或等于服务标识
//   - 用户模式为 #All；或 #Owner 且对象所有者等于服务用户
//     （匿名所有者匹配任意用户，空所有者不匹配任何用户）；或等于服务用户
//
// 满足下限（连接类型与权限类型均不低于要求）的规则中，每个配对只保留一个
// 授权：优先更宽的连接类型，连接类型相同时取更高的权限。
//
// 以对象为中心（AllowedServices）与以服务为中心（AllowedObjects）两个方向
// 对同一配对给出相同结论。
package permission

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("broker/permission")
