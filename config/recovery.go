package config

import (
	"errors"
	"time"
)

// ReconnectConfig 自动重连配置
type ReconnectConfig struct {
	// Enabled 是否启用自动重连
	// 默认值: true
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Delay 两次尝试之间的延迟，每次安排时重新读取
	// 默认值: 10s
	Delay Duration `json:"delay" yaml:"delay"`
}

// DefaultReconnectConfig 返回默认重连配置
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		Enabled: true,
		Delay:   Duration(10 * time.Second),
	}
}

// Validate 验证重连配置
func (c ReconnectConfig) Validate() error {
	if c.Enabled && c.Delay <= 0 {
		return errors.New("reconnect delay must be positive when enabled")
	}
	return nil
}
