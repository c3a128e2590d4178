package config

import (
	"errors"
	"time"
)

// HeartbeatConfig 心跳配置
//
// 运行时修改在下一个心跳周期生效。
type HeartbeatConfig struct {
	// Enabled 是否主动发送心跳探测
	// 默认值: true
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Respond 是否应答远端探测
	// 默认值: true
	Respond bool `json:"respond" yaml:"respond"`

	// Interval 探测间隔
	// 默认值: 30s
	Interval Duration `json:"interval" yaml:"interval"`

	// Timeout 应答超时
	// 默认值: 5s
	Timeout Duration `json:"timeout" yaml:"timeout"`
}

// DefaultHeartbeatConfig 返回默认心跳配置
func DefaultHeartbeatConfig() HeartbeatConfig {
	return HeartbeatConfig{
		Enabled:  true,
		Respond:  true,
		Interval: Duration(30 * time.Second),
		Timeout:  Duration(5 * time.Second),
	}
}

// Validate 验证心跳配置
func (c HeartbeatConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Interval <= 0 {
		return errors.New("heartbeat interval must be positive")
	}
	if c.Timeout <= 0 {
		return errors.New("heartbeat timeout must be positive")
	}
	return nil
}

// ByeConfig 优雅断开配置
type ByeConfig struct {
	// Enabled 主动关闭前是否发送 bye
	// 默认值: true
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Message bye 载荷
	// 默认值: "bye"
	Message string `json:"message" yaml:"message"`
}

// DefaultByeConfig 返回默认 bye 配置
func DefaultByeConfig() ByeConfig {
	return ByeConfig{Enabled: true, Message: "bye"}
}

// Validate 验证 bye 配置
func (c ByeConfig) Validate() error {
	if c.Enabled && c.Message == "" {
		return errors.New("bye message must not be empty when enabled")
	}
	return nil
}
