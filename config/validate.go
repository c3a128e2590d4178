package config

import (
	"errors"
	"fmt"
	"net"
)

// ErrNilConfig 配置为 nil
var ErrNilConfig = errors.New("config is nil")

// ValidateAll 校验全部配置段并汇总错误
//
// 与 Config.Validate 不同，不在第一个错误处停止；每个错误带上所在配置段名，
// 便于一次性修正配置文件。
func ValidateAll(c *Config) error {
	if c == nil {
		return ErrNilConfig
	}
	sections := []struct {
		name string
		v    interface{ Validate() error }
	}{
		{"identity", c.Identity},
		{"transport", c.Transport},
		{"framing", c.Framing},
		{"heartbeat", c.Heartbeat},
		{"bye", c.Bye},
		{"reconnect", c.Reconnect},
		{"security", c.Security},
		{"broker", c.Broker},
		{"metrics", c.Metrics},
		{"diagnostics", c.Diagnostics},
		{"log", c.Log},
	}
	var errs []error
	for _, s := range sections {
		if err := s.v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

// MustValidate 校验配置，失败时 panic
//
// 仅用于初始化阶段或测试代码。
func MustValidate(c *Config) {
	if err := ValidateAll(c); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}
}

// validateHostPort 校验 host:port 形式的地址，端口可为 0
func validateHostPort(field, addr string) error {
	if addr == "" {
		return fmt.Errorf("%s must not be empty", field)
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid %s %q: %w", field, addr, err)
	}
	return nil
}
