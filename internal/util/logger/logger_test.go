package logger

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutput(t *testing.T) {
	// 创建一个 buffer 来捕获日志输出
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log := Logger("test")
	log.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "subsystem=test")
}

func TestSetOutput_ExistingLogger(t *testing.T) {
	// logger 在切换输出之前创建
	log := Logger("test2")

	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log.Info("after switch", "key", "value")
	assert.Contains(t, buf.String(), "after switch")
}

func TestApplyLevels(t *testing.T) {
	cfg := &Config{DefaultLevel: slog.LevelInfo, SubsystemLevels: map[string]slog.Level{}}
	applyLevels(cfg, "broker=debug, peer=warning ,error, fan=loud,,")

	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("broker"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("peer"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("other"))

	_, scoped := cfg.SubsystemLevels["fan"]
	assert.False(t, scoped)

	_, ok := ParseLevel("verbose")
	assert.False(t, ok)
	level, ok := ParseLevel("info+2")
	assert.True(t, ok)
	assert.Equal(t, slog.LevelInfo+2, level)
}

func TestConfigure_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gate.log")
	closer := Configure("", FileOptions{Path: path, MaxSizeMB: 1})
	defer func() {
		SetOutput(os.Stderr)
		_ = closer.Close()
	}()

	Logger("rotate-test").Warn("写入文件", "n", 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "写入文件")
}

func TestConfigure_Levels(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log := Logger("levels-test")
	closer := Configure("levels-test=error", FileOptions{})
	defer closer.Close()

	log.Warn("应被过滤")
	log.Error("应被输出")
	assert.NotContains(t, buf.String(), "应被过滤")
	assert.Contains(t, buf.String(), "应被输出")

	SetLevel("levels-test", slog.LevelInfo)
}

func TestSetLevel_DerivedLoggers(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	derived := With("derived-test", "remote", "lamp")
	derived.Debug("级别调整前")
	assert.NotContains(t, buf.String(), "级别调整前")

	SetLevel("derived-test", slog.LevelDebug)
	derived.Debug("级别调整后")
	assert.Contains(t, buf.String(), "级别调整后")
	assert.Contains(t, buf.String(), "remote=lamp")
}

func TestConfigure_AppliesToLaterLoggers(t *testing.T) {
	defer ResetConfig()

	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	closer := Configure("later-test=debug", FileOptions{})
	defer closer.Close()

	Logger("later-test").Debug("后创建的 Logger")
	assert.Contains(t, buf.String(), "后创建的 Logger")
	assert.Contains(t, buf.String(), "level=debug")

	// 环境配置未被修改
	assert.NotContains(t, ConfigFromEnv().SubsystemLevels, "later-test")
}
