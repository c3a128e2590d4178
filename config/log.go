package config

import "errors"

// LogConfig 日志配置
type LogConfig struct {
	// Level 子系统日志级别，格式与 IOTGATE_LOG_LEVEL 相同
	// 例如 "peer=debug,broker=info,warn"
	Level string `json:"level,omitempty" yaml:"level,omitempty"`

	// File 日志文件路径，为空时输出到 stderr
	File string `json:"file,omitempty" yaml:"file,omitempty"`

	// MaxSizeMB 单个日志文件上限
	// 默认值: 100
	MaxSizeMB int `json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups 保留的历史文件数
	// 默认值: 5
	MaxBackups int `json:"max_backups" yaml:"max_backups"`

	// MaxAgeDays 历史文件保留天数
	// 默认值: 30
	MaxAgeDays int `json:"max_age_days" yaml:"max_age_days"`

	// Compress 是否压缩历史文件
	Compress bool `json:"compress" yaml:"compress"`

	// FxEvents 是否输出依赖注入框架的事件日志
	FxEvents bool `json:"fx_events" yaml:"fx_events"`
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
	}
}

// Validate 验证日志配置
func (c LogConfig) Validate() error {
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 || c.MaxAgeDays < 0 {
		return errors.New("log rotation limits must not be negative")
	}
	return nil
}
