package config

import (
	"errors"
	"time"
)

// BrokerConfig 消息代理配置
type BrokerConfig struct {
	// PermissionCacheSize 权限规则缓存条目数，0 表示不缓存
	// 默认值: 1024
	PermissionCacheSize int `json:"permission_cache_size" yaml:"permission_cache_size"`

	// PermissionCacheTTL 权限规则缓存有效期
	// 默认值: 1m
	PermissionCacheTTL Duration `json:"permission_cache_ttl" yaml:"permission_cache_ttl"`

	// DataDir 对象与权限数据目录，为空时使用内存存储
	DataDir string `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`

	// SyncWrites 每次写入同步落盘
	SyncWrites bool `json:"sync_writes,omitempty" yaml:"sync_writes,omitempty"`

	// SeedFile 启动时导入的 YAML 种子文件（对象与权限规则）
	SeedFile string `json:"seed_file,omitempty" yaml:"seed_file,omitempty"`
}

// DefaultBrokerConfig 返回默认代理配置
func DefaultBrokerConfig() BrokerConfig {
	return BrokerConfig{
		PermissionCacheSize: 1024,
		PermissionCacheTTL:  Duration(time.Minute),
	}
}

// Validate 验证代理配置
func (c BrokerConfig) Validate() error {
	if c.PermissionCacheSize < 0 {
		return errors.New("permission cache size must not be negative")
	}
	if c.PermissionCacheSize > 0 && c.PermissionCacheTTL <= 0 {
		return errors.New("permission cache ttl must be positive when caching is enabled")
	}
	return nil
}
