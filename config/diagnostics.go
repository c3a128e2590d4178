package config

// DiagnosticsConfig 本地诊断配置
type DiagnosticsConfig struct {
	// EnableIntrospect 是否开启本地自省 HTTP 服务
	// 默认值: false
	EnableIntrospect bool `json:"enable_introspect" yaml:"enable_introspect"`

	// IntrospectAddr 自省服务监听地址
	// 默认值: 127.0.0.1:6060
	IntrospectAddr string `json:"introspect_addr,omitempty" yaml:"introspect_addr,omitempty"`
}

// DefaultDiagnosticsConfig 返回默认诊断配置
func DefaultDiagnosticsConfig() DiagnosticsConfig {
	return DiagnosticsConfig{IntrospectAddr: "127.0.0.1:6060"}
}

// Validate 验证诊断配置
func (c DiagnosticsConfig) Validate() error {
	if !c.EnableIntrospect || c.IntrospectAddr == "" {
		return nil
	}
	return validateHostPort("diagnostics introspect_addr", c.IntrospectAddr)
}
