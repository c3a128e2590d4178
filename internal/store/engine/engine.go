// Package engine 定义网关存储引擎接口
//
// 对象元数据与权限规则都落在同一个键值引擎上，由 kv 包按前缀隔离。
// 所有实现必须保证线程安全；批量写入在 Write 之前对其他操作不可见。
package engine

import (
	"errors"
	"time"
)

// 存储引擎错误
var (
	// ErrNotFound 键不存在
	ErrNotFound = errors.New("storage: key not found")

	// ErrEmptyKey 空键
	ErrEmptyKey = errors.New("storage: empty key")

	// ErrClosed 引擎已关闭
	ErrClosed = errors.New("storage: engine closed")

	// ErrInvalidConfig 无效配置
	ErrInvalidConfig = errors.New("storage: invalid configuration")

	// ErrBatchClosed 批量操作已关闭
	ErrBatchClosed = errors.New("storage: batch closed")
)

// IsNotFound 检查是否为 key not found 错误
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Engine 键值存储引擎
type Engine interface {
	// Get 读取键，不存在时返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 写入键值
	Put(key, value []byte) error

	// Delete 删除键
	Delete(key []byte) error

	// Has 检查键是否存在
	Has(key []byte) (bool, error)

	// NewBatch 创建批量写入
	NewBatch() Batch

	// NewPrefixIterator 创建前缀迭代器，调用方负责 Close
	NewPrefixIterator(prefix []byte) Iterator

	// Start 启动后台任务（值日志回收等）
	Start() error

	// Close 关闭引擎
	Close() error
}

// Batch 批量写入，非线程安全
type Batch interface {
	Put(key, value []byte)
	Delete(key []byte)

	// Write 原子写入全部操作
	Write() error

	// Size 待写入操作数
	Size() int
}

// Iterator 前缀迭代器
//
//	it := eng.NewPrefixIterator(prefix)
//	defer it.Close()
//	for it.First(); it.Valid(); it.Next() {
//	    key, value := it.Key(), it.Value()
//	}
type Iterator interface {
	First() bool
	Next() bool
	Valid() bool

	// Key 返回当前键的副本
	Key() []byte

	// Value 返回当前值的副本
	Value() []byte

	Close()
	Error() error
}

// ============================================================================
//                              配置
// ============================================================================

// Config 存储引擎配置
type Config struct {
	// Path 数据目录；InMemory 为 true 时忽略
	Path string

	// InMemory 纯内存模式，进程退出后数据丢失
	InMemory bool

	// SyncWrites 每次写入同步落盘
	SyncWrites bool

	// GCInterval 值日志回收间隔，0 表示不回收
	GCInterval time.Duration

	// GCDiscardRatio 值日志回收丢弃比例
	GCDiscardRatio float64
}

// DefaultConfig 返回默认配置
//
// path 为空时使用内存模式。
func DefaultConfig(path string) Config {
	return Config{
		Path:           path,
		InMemory:       path == "",
		GCInterval:     10 * time.Minute,
		GCDiscardRatio: 0.5,
	}
}

// Validate 验证配置
func (c Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return ErrInvalidConfig
	}
	if c.GCInterval > 0 && (c.GCDiscardRatio <= 0 || c.GCDiscardRatio >= 1) {
		return ErrInvalidConfig
	}
	return nil
}
