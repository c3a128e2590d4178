// Package logger 提供 go-iotgate 的统一日志系统
//
// 基于标准库 log/slog，每个子系统一个 Logger：
//
//	var log = logger.Logger("broker")
//
//	log.Info("服务已注册", "service", srvID, "objects", len(objs))
//
// 级别来自 IOTGATE_LOG_LEVEL（格式 "broker=debug,peer=warn,info"），
// 运行中可由 Configure 覆盖。Configure 同时负责日志文件滚动。
package logger

import (
	"io"
	"log/slog"
	"sync"
)

var (
	// loggers 各子系统的 Logger
	loggers sync.Map // map[string]*slog.Logger

	// handlers 各子系统的根 Handler，用于动态调整级别
	handlers sync.Map // map[string]*subsystemHandler

	globalLogger     *slog.Logger
	globalLoggerOnce sync.Once
)

// Logger 获取指定子系统的 Logger
//
// 同一子系统多次调用返回同一实例。
func Logger(subsystem string) *slog.Logger {
	if l, ok := loggers.Load(subsystem); ok {
		return l.(*slog.Logger)
	}

	h := newHandler(subsystem, current())
	actual, loaded := loggers.LoadOrStore(subsystem, slog.New(h))
	if !loaded {
		handlers.Store(subsystem, h)
	}
	return actual.(*slog.Logger)
}

// GlobalLogger 返回不属于特定子系统时使用的 Logger
func GlobalLogger() *slog.Logger {
	globalLoggerOnce.Do(func() {
		globalLogger = Logger("iotgate")
	})
	return globalLogger
}

// With 返回带预设属性的子系统 Logger
//
//	log := logger.With("peer", "proto", proto, "remote", remoteID)
func With(subsystem string, args ...any) *slog.Logger {
	return Logger(subsystem).With(args...)
}

// SetLevel 动态设置子系统的日志级别
//
// 对该子系统经 With 派生的 Logger 同样生效。
func SetLevel(subsystem string, level slog.Level) {
	if h, ok := handlers.Load(subsystem); ok {
		h.(*subsystemHandler).SetLevel(level)
	}
}

// SetOutput 切换全部 Logger 的输出目标，包括已创建的 Logger
func SetOutput(w io.Writer) {
	output.set(w)
}
