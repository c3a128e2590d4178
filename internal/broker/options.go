package broker

import (
	"github.com/dep2p/go-iotgate/internal/broker/endpoint"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// Reporter 接收代理的运行指标
type Reporter interface {
	// RegistryChanged 注册表规模变化
	RegistryChanged(kind types.EndpointKind, size int)

	// Delivered 某路径成功投递 n 条消息
	Delivered(path string, n int)

	// Rejected 某路径拒绝或投递失败
	Rejected(path, reason string)
}

type nopReporter struct{}

func (nopReporter) RegistryChanged(types.EndpointKind, int) {}
func (nopReporter) Delivered(string, int)                   {}
func (nopReporter) Rejected(string, string)                 {}

// Option 代理选项
type Option func(*Broker)

// WithReporter 设置指标接收方
func WithReporter(r Reporter) Option {
	return func(b *Broker) {
		if r != nil {
			b.reporter = r
		}
	}
}

// WithOfflineSink 设置对象下线时新建离线端点使用的离线投递
func WithOfflineSink(s endpoint.OfflineSink) Option {
	return func(b *Broker) {
		b.sink = s
	}
}
