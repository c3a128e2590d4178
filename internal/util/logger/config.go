package logger

import (
	"log/slog"
	"maps"
	"os"
	"strings"
	"sync"
)

// LogFormat 日志输出格式
type LogFormat int

// 输出格式，零值为文本
const (
	FormatText LogFormat = iota
	FormatJSON
)

// Config 日志配置，未单独指定级别的子系统使用 DefaultLevel
type Config struct {
	DefaultLevel    slog.Level
	SubsystemLevels map[string]slog.Level
	Format          LogFormat
	AddSource       bool
}

// LevelForSubsystem 获取指定子系统的日志级别
func (c *Config) LevelForSubsystem(subsystem string) slog.Level {
	if level, ok := c.SubsystemLevels[subsystem]; ok {
		return level
	}
	return c.DefaultLevel
}

func (c *Config) clone() *Config {
	out := *c
	out.SubsystemLevels = maps.Clone(c.SubsystemLevels)
	if out.SubsystemLevels == nil {
		out.SubsystemLevels = make(map[string]slog.Level)
	}
	return &out
}

var (
	envOnce   sync.Once
	envConfig *Config

	// active 由 Configure 设置，优先于环境变量；生效后只读
	configMu sync.RWMutex
	active   *Config
)

// ConfigFromEnv 从环境变量解析配置
//
// 环境变量:
//   - IOTGATE_LOG_LEVEL: 日志级别配置
//     格式: 子系统=级别,子系统=级别,默认级别
//     示例: broker=debug,peer=warn,info
//   - IOTGATE_LOG_FORMAT: text 或 json
//   - IOTGATE_LOG_ADD_SOURCE: true 或 false
//
// 返回值在进程内共享，调用方不得修改。
func ConfigFromEnv() *Config {
	envOnce.Do(func() {
		envConfig = parseConfig()
	})
	return envConfig
}

// current 返回当前生效的配置
func current() *Config {
	configMu.RLock()
	c := active
	configMu.RUnlock()
	if c != nil {
		return c
	}
	return ConfigFromEnv()
}

// overrideLevels 在当前配置上叠加级别字符串并使其生效
func overrideLevels(levels string) *Config {
	configMu.Lock()
	defer configMu.Unlock()

	base := active
	if base == nil {
		base = ConfigFromEnv()
	}
	cfg := base.clone()
	applyLevels(cfg, levels)
	active = cfg
	return cfg
}

// 环境变量名
const (
	envLevel     = "IOTGATE_LOG_LEVEL"
	envFormat    = "IOTGATE_LOG_FORMAT"
	envAddSource = "IOTGATE_LOG_ADD_SOURCE"
)

func parseConfig() *Config {
	cfg := &Config{
		DefaultLevel:    slog.LevelInfo,
		SubsystemLevels: make(map[string]slog.Level),
		AddSource:       true,
	}
	applyLevels(cfg, os.Getenv(envLevel))
	if strings.EqualFold(os.Getenv(envFormat), "json") {
		cfg.Format = FormatJSON
	}
	switch strings.ToLower(os.Getenv(envAddSource)) {
	case "false", "0", "no", "off":
		cfg.AddSource = false
	}
	return cfg
}

// applyLevels 将 "broker=debug,peer=warn,info" 形式的级别串叠加到 cfg
//
// 不带子系统的一项设置默认级别；无法识别的级别被忽略。
func applyLevels(cfg *Config, levels string) {
	for _, item := range strings.Split(levels, ",") {
		sub, name, scoped := strings.Cut(strings.TrimSpace(item), "=")
		if !scoped {
			name, sub = sub, ""
		}
		level, ok := parseLevel(strings.TrimSpace(name))
		switch {
		case !ok:
		case scoped:
			cfg.SubsystemLevels[strings.TrimSpace(sub)] = level
		default:
			cfg.DefaultLevel = level
		}
	}
}

// parseLevel 接受 slog 的级别文本（含 "info+2" 这样的偏移）以及 warning
func parseLevel(name string) (slog.Level, bool) {
	if strings.EqualFold(name, "warning") {
		return slog.LevelWarn, true
	}
	var level slog.Level
	if name == "" || level.UnmarshalText([]byte(name)) != nil {
		return slog.LevelInfo, false
	}
	return level, true
}

// ResetConfig 丢弃 Configure 的覆盖并重新读取环境变量（仅用于测试）
func ResetConfig() {
	configMu.Lock()
	active = nil
	envOnce = sync.Once{}
	envConfig = nil
	configMu.Unlock()
}

