package interfaces

//go:generate mockgen -destination=mocks/sender_mock.go -package=mocks github.com/dep2p/go-iotgate/pkg/interfaces Sender

// Sender 可投递已编码消息的链路
//
// Peer 实现该接口；Broker 只通过它写出数据，不关心底层连接细节。
type Sender interface {
	// Send 发送一条消息（不含分隔符）
	//
	// 链路未连接或写失败时返回错误。
	Send(msg string) error
}
