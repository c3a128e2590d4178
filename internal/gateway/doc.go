// Package gateway 将对象与服务的链路接入消息代理
//
// 网关开两个监听器：对象端口与服务端口。每条链路的第一帧必须是 HELLO，
// 网关据此创建在线端点并注册到代理；链路断开时注销端点，对象回落到离线端点。
//
// 帧格式为 "HEADER 参数...\n正文"：
//
//	对象 -> 网关   HELLO obj <objId> [ownerId] | INFO | STRUCT | PERMS | BCAST <minPerm> | TO <srvId> <minPerm>
//	服务 -> 网关   HELLO srv <srvId> <usrId> | TO <objId> <minPerm>
//	网关 -> 服务   对象快照消息 | FROM <objId>\n<payload> | ERR <kind> <id>
//	网关 -> 对象   FROM <srvId>\n<payload> | ERR <kind> <id>
//
// 网关只解释身份与权限等级，正文对网关不透明。
package gateway

import "github.com/dep2p/go-iotgate/internal/util/logger"

var log = logger.Logger("gateway")
