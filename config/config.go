// Package config 提供统一的配置管理
//
// 本包采用混合配置模式：
//   - 主 Config 结构体嵌入所有子配置
//   - 每个子配置在独立文件中定义
//   - 支持从 JSON 或 YAML 加载和保存配置
//
// 使用示例：
//
//	// 创建默认配置
//	cfg := config.NewConfig()
//	cfg.Transport.ObjectListen = "0.0.0.0:7000"
//	cfg.Heartbeat.Interval = config.Duration(10 * time.Second)
//
//	// 从文件加载（按扩展名选择 JSON 或 YAML）
//	cfg, err := config.LoadFile("gateway.yaml")
package config

// Config 是网关的完整配置结构
//
// 配置按照功能模块组织：
//   - Identity: 本端标识
//   - Transport: 对象/服务监听地址与连接参数
//   - Framing: 分隔符与字符集
//   - Heartbeat / Bye / Reconnect: 链路行为
//   - Security: 证书、信任库与证书共享
//   - Broker: 权限缓存与种子数据
//   - Metrics: 指标导出
//   - Diagnostics: 本地自省
//   - Log: 日志输出
type Config struct {
	// Identity 身份配置
	Identity IdentityConfig `json:"identity" yaml:"identity"`

	// Transport 传输配置
	Transport TransportConfig `json:"transport" yaml:"transport"`

	// Framing 分帧配置
	Framing FramingConfig `json:"framing" yaml:"framing"`

	// Heartbeat 心跳配置
	Heartbeat HeartbeatConfig `json:"heartbeat" yaml:"heartbeat"`

	// Bye 优雅断开配置
	Bye ByeConfig `json:"bye" yaml:"bye"`

	// Reconnect 自动重连配置
	Reconnect ReconnectConfig `json:"reconnect" yaml:"reconnect"`

	// Security 安全配置
	Security SecurityConfig `json:"security" yaml:"security"`

	// Broker 消息代理配置
	Broker BrokerConfig `json:"broker" yaml:"broker"`

	// Metrics 指标配置
	Metrics MetricsConfig `json:"metrics" yaml:"metrics"`

	// Diagnostics 诊断配置
	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics"`

	// Log 日志配置
	Log LogConfig `json:"log" yaml:"log"`
}

// NewConfig 创建默认配置
//
// 返回的配置使用所有组件的默认值，适用于大多数场景。
func NewConfig() *Config {
	return &Config{
		Identity:    DefaultIdentityConfig(),
		Transport:   DefaultTransportConfig(),
		Framing:     DefaultFramingConfig(),
		Heartbeat:   DefaultHeartbeatConfig(),
		Bye:         DefaultByeConfig(),
		Reconnect:   DefaultReconnectConfig(),
		Security:    DefaultSecurityConfig(),
		Broker:      DefaultBrokerConfig(),
		Metrics:     DefaultMetricsConfig(),
		Diagnostics: DefaultDiagnosticsConfig(),
		Log:         DefaultLogConfig(),
	}
}

// Validate 验证配置的有效性
//
// 检查所有子配置是否有效，返回第一个错误。
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		c.Identity,
		c.Transport,
		c.Framing,
		c.Heartbeat,
		c.Bye,
		c.Reconnect,
		c.Security,
		c.Broker,
		c.Metrics,
		c.Diagnostics,
		c.Log,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}
