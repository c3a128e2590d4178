package logger

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions 日志文件滚动配置
type FileOptions struct {
	// Path 日志文件路径，为空表示仅输出到 stderr
	Path string

	// MaxSizeMB 单个文件最大大小（MB）
	MaxSizeMB int

	// MaxBackups 保留的旧文件数
	MaxBackups int

	// MaxAgeDays 旧文件保留天数
	MaxAgeDays int

	// Compress 是否压缩旧文件
	Compress bool

	// AlsoStderr 是否同时输出到 stderr
	AlsoStderr bool
}

// Configure 应用运行时日志配置
//
// levels 使用与 IOTGATE_LOG_LEVEL 相同的格式，为空时保持环境变量配置。
// 返回的 io.Closer 用于在退出时关闭日志文件。
func Configure(levels string, file FileOptions) io.Closer {
	if levels != "" {
		cfg := overrideLevels(levels)
		handlers.Range(func(key, value any) bool {
			value.(*subsystemHandler).SetLevel(cfg.LevelForSubsystem(key.(string)))
			return true
		})
	}

	if file.Path == "" {
		return nopCloser{}
	}

	rotator := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
		Compress:   file.Compress,
	}
	var w io.Writer = rotator
	if file.AlsoStderr {
		w = io.MultiWriter(rotator, os.Stderr)
	}
	SetOutput(w)
	GlobalLogger().Info("日志文件已启用", "path", file.Path, "max_size_mb", file.MaxSizeMB)
	return rotator
}

// ParseLevel 解析单个级别名称
func ParseLevel(name string) (slog.Level, bool) {
	return parseLevel(name)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
