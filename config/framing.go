package config

import "errors"

// FramingConfig 分帧配置
type FramingConfig struct {
	// Delimiter 帧分隔符
	// 默认值: "<<EOM>>"，多字符标记可避免与载荷内容碰撞
	Delimiter string `json:"delimiter" yaml:"delimiter"`

	// Charset 字符集（IANA 名称）
	// 默认值: "UTF-8"
	Charset string `json:"charset" yaml:"charset"`

	// MaxFrameSize 单帧最大字节数
	// 默认值: 1MiB
	MaxFrameSize int `json:"max_frame_size" yaml:"max_frame_size"`
}

// DefaultFramingConfig 返回默认分帧配置
func DefaultFramingConfig() FramingConfig {
	return FramingConfig{
		Delimiter:    "<<EOM>>",
		Charset:      "UTF-8",
		MaxFrameSize: 1 << 20,
	}
}

// Validate 验证分帧配置
func (c FramingConfig) Validate() error {
	if c.Delimiter == "" {
		return errors.New("framing delimiter must not be empty")
	}
	if c.Charset == "" {
		return errors.New("framing charset must not be empty")
	}
	if c.MaxFrameSize < 0 {
		return errors.New("max frame size must not be negative")
	}
	return nil
}
