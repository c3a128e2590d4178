package interfaces

import (
	"context"
	"time"
)

// ObjectRecord 对象元数据
type ObjectRecord struct {
	// ID 对象标识
	ID string `json:"id" yaml:"id"`

	// OwnerID 所有者标识，可为空或匿名标识
	OwnerID string `json:"owner" yaml:"owner"`

	// Name 对象名称
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Online 当前是否在线
	Online bool `json:"online" yaml:"online"`

	// LastSeen 最近一次状态变化时间
	LastSeen time.Time `json:"last_seen,omitempty" yaml:"last_seen,omitempty"`
}

// ObjectStore 对象元数据存储
//
// 启动时用于构造离线端点，运行时记录上下线状态。
type ObjectStore interface {
	// ListObjects 列出所有已知对象
	ListObjects(ctx context.Context) ([]ObjectRecord, error)

	// GetObject 查询对象，不存在时 ok 为 false
	GetObject(ctx context.Context, id string) (rec ObjectRecord, ok bool, err error)

	// SaveObject 新增或更新对象元数据
	SaveObject(ctx context.Context, rec ObjectRecord) error

	// SetOnline 更新对象在线状态
	SetOnline(ctx context.Context, id string, online bool, at time.Time) error
}
