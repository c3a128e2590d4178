package config

import "errors"

// DefaultGatewayID 默认网关标识
const DefaultGatewayID = "gateway"

// IdentityConfig 身份配置
//
// 网关标识同时作为证书 CommonName 和信任库标签中的远端标识。
type IdentityConfig struct {
	// ID 本端标识
	ID string `json:"id" yaml:"id"`
}

// DefaultIdentityConfig 返回默认身份配置
func DefaultIdentityConfig() IdentityConfig {
	return IdentityConfig{ID: DefaultGatewayID}
}

// Validate 验证身份配置
func (c IdentityConfig) Validate() error {
	if c.ID == "" {
		return errors.New("identity id must not be empty")
	}
	return nil
}

// WithID 设置本端标识
func (c IdentityConfig) WithID(id string) IdentityConfig {
	c.ID = id
	return c
}
