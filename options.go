package iotgate

import (
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/dep2p/go-iotgate/config"
)

// Option 用户配置选项函数
type Option func(*options) error

// options 内部选项结构
type options struct {
	// 基础配置，nil 时使用默认配置
	config *config.Config

	// 覆盖项
	id            string
	objectListen  string
	serviceListen string
	dataDir       string
	seedFile      string
	metricsAddr   string
	introspect    string
	logFile       string
	logLevel      string
	enableTLS     *bool
	certSharing   *bool
	heartbeat     *time.Duration

	// 额外的 Fx 选项
	fxOptions []fx.Option
}

// toConfig 合并基础配置与覆盖项
func (o *options) toConfig() *config.Config {
	cfg := config.CloneConfig(o.config)
	if cfg == nil {
		cfg = config.NewConfig()
	}

	if o.id != "" {
		cfg.Identity.ID = o.id
	}
	if o.objectListen != "" {
		cfg.Transport.ObjectListen = o.objectListen
	}
	if o.serviceListen != "" {
		cfg.Transport.ServiceListen = o.serviceListen
	}
	if o.dataDir != "" {
		cfg.Broker.DataDir = o.dataDir
	}
	if o.seedFile != "" {
		cfg.Broker.SeedFile = o.seedFile
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.ListenAddr = o.metricsAddr
	}
	if o.introspect != "" {
		cfg.Diagnostics.EnableIntrospect = true
		cfg.Diagnostics.IntrospectAddr = o.introspect
	}
	if o.logFile != "" {
		cfg.Log.File = o.logFile
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.enableTLS != nil {
		cfg.Security.EnableTLS = *o.enableTLS
		if !*o.enableTLS {
			// 证书共享依赖 TLS
			cfg.Security.CertSharing.Enabled = false
		}
	}
	if o.certSharing != nil {
		cfg.Security.CertSharing.Enabled = *o.certSharing
	}
	if o.heartbeat != nil {
		cfg.Heartbeat.Enabled = *o.heartbeat > 0
		if *o.heartbeat > 0 {
			cfg.Heartbeat.Interval = config.Duration(*o.heartbeat)
		}
	}
	return cfg
}

// ============================================================================
//                              配置来源
// ============================================================================

// WithConfig 使用给定配置作为基础，调用方之后的修改不影响网关
func WithConfig(cfg *config.Config) Option {
	return func(o *options) error {
		if cfg == nil {
			return fmt.Errorf("配置不能为空")
		}
		o.config = cfg
		return nil
	}
}

// WithConfigFile 从 JSON 或 YAML 文件加载基础配置
func WithConfigFile(path string) Option {
	return func(o *options) error {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return err
		}
		o.config = cfg
		return nil
	}
}

// ============================================================================
//                              覆盖项
// ============================================================================

// WithID 设置网关标识
func WithID(id string) Option {
	return func(o *options) error {
		if id == "" {
			return fmt.Errorf("网关标识不能为空")
		}
		o.id = id
		return nil
	}
}

// WithListen 设置对象端口与服务端口的监听地址
func WithListen(objectAddr, serviceAddr string) Option {
	return func(o *options) error {
		o.objectListen = objectAddr
		o.serviceListen = serviceAddr
		return nil
	}
}

// WithDataDir 设置对象与权限数据目录，为空时使用内存存储
func WithDataDir(dir string) Option {
	return func(o *options) error {
		o.dataDir = dir
		return nil
	}
}

// WithSeedFile 设置启动时导入的种子文件
func WithSeedFile(path string) Option {
	return func(o *options) error {
		o.seedFile = path
		return nil
	}
}

// WithMetricsAddr 启用 Prometheus 指标端点
func WithMetricsAddr(addr string) Option {
	return func(o *options) error {
		o.metricsAddr = addr
		return nil
	}
}

// WithIntrospect 在 addr 上开启本地自省 HTTP 服务
func WithIntrospect(addr string) Option {
	return func(o *options) error {
		o.introspect = addr
		return nil
	}
}

// WithLogFile 设置日志文件（按配置滚动）
func WithLogFile(path string) Option {
	return func(o *options) error {
		o.logFile = path
		return nil
	}
}

// WithLogLevel 设置日志级别，格式同 IOTGATE_LOG_LEVEL
func WithLogLevel(levels string) Option {
	return func(o *options) error {
		o.logLevel = levels
		return nil
	}
}

// WithTLS 启用或关闭链路 TLS；关闭时一并关闭证书共享
func WithTLS(enable bool) Option {
	return func(o *options) error {
		o.enableTLS = &enable
		return nil
	}
}

// WithCertSharing 启用或关闭证书共享端口
func WithCertSharing(enable bool) Option {
	return func(o *options) error {
		o.certSharing = &enable
		return nil
	}
}

// WithHeartbeat 设置心跳间隔，0 表示关闭主动探测
func WithHeartbeat(interval time.Duration) Option {
	return func(o *options) error {
		if interval < 0 {
			return fmt.Errorf("心跳间隔不能为负")
		}
		o.heartbeat = &interval
		return nil
	}
}

// WithFxOptions 追加 Fx 选项，用于替换或装饰内部组件
func WithFxOptions(opts ...fx.Option) Option {
	return func(o *options) error {
		o.fxOptions = append(o.fxOptions, opts...)
		return nil
	}
}
