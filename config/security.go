package config

import (
	"errors"
	"fmt"
	"time"
)

// SecurityConfig 安全配置
type SecurityConfig struct {
	// EnableTLS 是否在数据链路上启用双向认证 TLS
	// 默认值: true
	EnableTLS bool `json:"enable_tls" yaml:"enable_tls"`

	// CertFile 本端证书 PEM 文件
	// 为空时在内存中生成临时证书
	CertFile string `json:"cert_file" yaml:"cert_file"`

	// KeyFile 本端私钥 PEM 文件
	KeyFile string `json:"key_file" yaml:"key_file"`

	// TrustedCerts 静态信任的证书：标签 -> PEM 文件路径
	TrustedCerts map[string]string `json:"trusted_certs,omitempty" yaml:"trusted_certs,omitempty"`

	// CertSharing 证书共享握手配置
	CertSharing CertSharingConfig `json:"cert_sharing" yaml:"cert_sharing"`
}

// CertSharingConfig 证书共享握手配置
type CertSharingConfig struct {
	// Enabled 是否在数据端口旁开放握手端口
	// 默认值: true
	Enabled bool `json:"enabled" yaml:"enabled"`

	// PortOffset 握手端口相对数据端口的偏移
	// 默认值: 1
	PortOffset int `json:"port_offset" yaml:"port_offset"`

	// ExchangeTimeout 单次握手超时
	// 默认值: 30s
	ExchangeTimeout Duration `json:"exchange_timeout" yaml:"exchange_timeout"`
}

// DefaultSecurityConfig 返回默认安全配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		EnableTLS: true,
		CertSharing: CertSharingConfig{
			Enabled:         true,
			PortOffset:      1,
			ExchangeTimeout: Duration(30 * time.Second),
		},
	}
}

// Validate 验证安全配置
func (c SecurityConfig) Validate() error {
	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("cert_file and key_file must be set together")
	}
	for label, path := range c.TrustedCerts {
		if label == "" || path == "" {
			return fmt.Errorf("invalid trusted cert entry %q=%q", label, path)
		}
	}
	if c.CertSharing.Enabled {
		if !c.EnableTLS {
			return errors.New("cert sharing requires enable_tls")
		}
		if c.CertSharing.PortOffset == 0 {
			return errors.New("cert sharing port offset must not be zero")
		}
		if c.CertSharing.ExchangeTimeout <= 0 {
			return errors.New("cert sharing exchange timeout must be positive")
		}
	}
	return nil
}
