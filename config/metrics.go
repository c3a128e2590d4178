package config

// MetricsConfig 指标配置
type MetricsConfig struct {
	// Enabled 是否收集指标
	// 默认值: true
	Enabled bool `json:"enabled" yaml:"enabled"`

	// ListenAddr Prometheus 导出地址，为空时不开放 HTTP 端点
	ListenAddr string `json:"listen_addr,omitempty" yaml:"listen_addr,omitempty"`
}

// DefaultMetricsConfig 返回默认指标配置
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{Enabled: true}
}

// Validate 验证指标配置
func (c MetricsConfig) Validate() error {
	if c.ListenAddr == "" {
		return nil
	}
	return validateHostPort("metrics listen_addr", c.ListenAddr)
}
