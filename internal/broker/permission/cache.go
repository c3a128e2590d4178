package permission

import (
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/dep2p/go-iotgate/pkg/interfaces"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// 缓存默认参数
const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = time.Minute
)

// ErrReadOnly 底层存储不支持写入
var ErrReadOnly = errors.New("permission: underlying store is read-only")

// CachedStore 带过期 LRU 的权限存储包装
//
// 对象与服务两个方向的查询分别缓存；任何写入都会清空两个缓存，
// 因为一条对象规则可能出现在任意服务的扩展查询结果里。
type CachedStore struct {
	store interfaces.PermissionStore

	byObject  *expirable.LRU[string, []types.PermissionRule]
	byService *expirable.LRU[string, []types.PermissionRule]
}

var (
	_ interfaces.PermissionStore  = (*CachedStore)(nil)
	_ interfaces.PermissionWriter = (*CachedStore)(nil)
)

// NewCachedStore 创建缓存包装
func NewCachedStore(store interfaces.PermissionStore, size int, ttl time.Duration) *CachedStore {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		store:     store,
		byObject:  expirable.NewLRU[string, []types.PermissionRule](size, nil, ttl),
		byService: expirable.NewLRU[string, []types.PermissionRule](size, nil, ttl),
	}
}

// FindRulesForObject 实现 PermissionStore
func (c *CachedStore) FindRulesForObject(objID string) []types.PermissionRule {
	if rules, ok := c.byObject.Get(objID); ok {
		return rules
	}
	rules := c.store.FindRulesForObject(objID)
	c.byObject.Add(objID, rules)
	return rules
}

// FindRulesForServiceExtended 实现 PermissionStore
func (c *CachedStore) FindRulesForServiceExtended(srvID string) []types.PermissionRule {
	if rules, ok := c.byService.Get(srvID); ok {
		return rules
	}
	rules := c.store.FindRulesForServiceExtended(srvID)
	c.byService.Add(srvID, rules)
	return rules
}

// ReplaceObjectRules 实现 PermissionWriter，写入后清空缓存
func (c *CachedStore) ReplaceObjectRules(objID string, rules []types.PermissionRule) error {
	w, ok := c.store.(interfaces.PermissionWriter)
	if !ok {
		return ErrReadOnly
	}
	if err := w.ReplaceObjectRules(objID, rules); err != nil {
		return err
	}
	c.Invalidate()
	return nil
}

// Invalidate 清空全部缓存
func (c *CachedStore) Invalidate() {
	c.byObject.Purge()
	c.byService.Purge()
	log.Debug("权限缓存已清空")
}

// Len 返回两个方向的缓存条目数
func (c *CachedStore) Len() (objects, services int) {
	return c.byObject.Len(), c.byService.Len()
}
