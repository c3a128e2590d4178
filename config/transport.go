package config

import (
	"errors"
	"time"
)

// TransportConfig 传输配置
//
// 对象与服务分别使用独立的监听端口。
type TransportConfig struct {
	// ObjectListen 对象（设备）接入地址
	// 默认值: "0.0.0.0:7000"
	ObjectListen string `json:"object_listen" yaml:"object_listen"`

	// ServiceListen 服务（应用）接入地址
	// 默认值: "0.0.0.0:7100"
	ServiceListen string `json:"service_listen" yaml:"service_listen"`

	// DialTimeout 主动拨号超时（含 TLS 握手）
	// 默认值: 10s
	DialTimeout Duration `json:"dial_timeout" yaml:"dial_timeout"`

	// HandshakeTimeout 服务端 TLS 握手超时
	// 默认值: 10s
	HandshakeTimeout Duration `json:"handshake_timeout" yaml:"handshake_timeout"`

	// WriteTimeout 单次写出超时
	// 默认值: 10s
	WriteTimeout Duration `json:"write_timeout" yaml:"write_timeout"`

	// MaxConnections 每个监听器的最大并发连接数，0 表示不限制
	MaxConnections int `json:"max_connections" yaml:"max_connections"`
}

// DefaultTransportConfig 返回默认传输配置
func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		ObjectListen:     "0.0.0.0:7000",
		ServiceListen:    "0.0.0.0:7100",
		DialTimeout:      Duration(10 * time.Second),
		HandshakeTimeout: Duration(10 * time.Second),
		WriteTimeout:     Duration(10 * time.Second),
		MaxConnections:   0,
	}
}

// Validate 验证传输配置
func (c TransportConfig) Validate() error {
	if err := validateHostPort("object_listen", c.ObjectListen); err != nil {
		return err
	}
	if err := validateHostPort("service_listen", c.ServiceListen); err != nil {
		return err
	}
	if c.DialTimeout <= 0 {
		return errors.New("dial timeout must be positive")
	}
	if c.HandshakeTimeout <= 0 {
		return errors.New("handshake timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	if c.MaxConnections < 0 {
		return errors.New("max connections must not be negative")
	}
	return nil
}
