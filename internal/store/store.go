package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dep2p/go-iotgate/internal/store/engine"
	"github.com/dep2p/go-iotgate/internal/store/engine/badger"
	"github.com/dep2p/go-iotgate/internal/store/kv"
	"github.com/dep2p/go-iotgate/pkg/interfaces"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// Store 对象与权限存储
type Store struct {
	eng     engine.Engine
	objects *kv.Bucket[interfaces.ObjectRecord]
	rules   *kv.Bucket[types.PermissionRule]

	// 串行化读改写
	mu sync.Mutex
}

var (
	_ interfaces.PermissionStore  = (*Store)(nil)
	_ interfaces.PermissionWriter = (*Store)(nil)
	_ interfaces.ObjectStore      = (*Store)(nil)
)

// New 在已打开的引擎上创建存储
func New(eng engine.Engine) *Store {
	return &Store{
		eng:     eng,
		objects: kv.NewBucket[interfaces.ObjectRecord](eng, "o/"),
		rules:   kv.NewBucket[types.PermissionRule](eng, "r/"),
	}
}

// Open 打开 BadgerDB 并创建存储
func Open(cfg engine.Config) (*Store, error) {
	eng, err := badger.New(cfg)
	if err != nil {
		return nil, err
	}
	return New(eng), nil
}

// Start 启动底层引擎
func (s *Store) Start() error {
	return s.eng.Start()
}

// Close 关闭底层引擎
func (s *Store) Close() error {
	return s.eng.Close()
}

func validID(id string) error {
	if id == "" || strings.Contains(id, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// ============================================================================
//                              ObjectStore
// ============================================================================

// ListObjects 实现 ObjectStore
func (s *Store) ListObjects(_ context.Context) ([]interfaces.ObjectRecord, error) {
	var (
		out    []interfaces.ObjectRecord
		decErr error
	)
	err := s.objects.Scan("", func(e kv.Entry[interfaces.ObjectRecord]) bool {
		if e.Err != nil {
			decErr = e.Err
			return false
		}
		out = append(out, e.Value)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decErr
}

// GetObject 实现 ObjectStore
func (s *Store) GetObject(_ context.Context, id string) (interfaces.ObjectRecord, bool, error) {
	if err := validID(id); err != nil {
		return interfaces.ObjectRecord{}, false, err
	}
	return s.objects.Get(id)
}

// SaveObject 实现 ObjectStore
func (s *Store) SaveObject(_ context.Context, rec interfaces.ObjectRecord) error {
	if err := validID(rec.ID); err != nil {
		return err
	}
	return s.objects.Put(rec.ID, rec)
}

// SetOnline 实现 ObjectStore；对象不存在时新建记录
func (s *Store) SetOnline(ctx context.Context, id string, online bool, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok, err := s.GetObject(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		rec.ID = id
	}
	rec.Online = online
	rec.LastSeen = at
	return s.objects.Put(id, rec)
}

// ============================================================================
//                              PermissionStore
// ============================================================================

// FindRulesForObject 实现 PermissionStore，包含对象模式为 #All 的规则
func (s *Store) FindRulesForObject(objID string) []types.PermissionRule {
	out := s.scanRules(objID+"/", func(r types.PermissionRule) bool { return r.ObjectID == objID })
	if objID != types.WildcardAll {
		out = append(out, s.scanRules(types.WildcardAll+"/", func(types.PermissionRule) bool { return true })...)
	}
	return out
}

// FindRulesForServiceExtended 实现 PermissionStore，包含服务模式为 #All 的规则
func (s *Store) FindRulesForServiceExtended(srvID string) []types.PermissionRule {
	return s.scanRules("", func(r types.PermissionRule) bool {
		return r.ServiceID == srvID || r.ServiceID == types.WildcardAll
	})
}

// Rules 返回全部规则
func (s *Store) Rules() []types.PermissionRule {
	return s.scanRules("", func(types.PermissionRule) bool { return true })
}

func (s *Store) scanRules(prefix string, keep func(types.PermissionRule) bool) []types.PermissionRule {
	var out []types.PermissionRule
	err := s.rules.Scan(prefix, func(e kv.Entry[types.PermissionRule]) bool {
		if e.Err != nil {
			log.Warn("权限规则解码失败，跳过", "key", e.Key, "err", e.Err)
			return true
		}
		if keep(e.Value) {
			out = append(out, e.Value)
		}
		return true
	})
	if err != nil {
		log.Warn("扫描权限规则失败", "prefix", prefix, "err", err)
	}
	return out
}

// ReplaceObjectRules 实现 PermissionWriter
//
// 规则对象标识为空时补全为 objID；缺少规则标识时分配 UUID。
func (s *Store) ReplaceObjectRules(objID string, rules []types.PermissionRule) error {
	if objID != types.WildcardAll {
		if err := validID(objID); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.rules.Keys(objID + "/")
	if err != nil {
		return err
	}

	b := s.rules.NewBatch()
	for _, k := range old {
		b.Delete(k)
	}
	for _, r := range rules {
		if r.ObjectID == "" {
			r.ObjectID = objID
		}
		if r.ObjectID != objID {
			return fmt.Errorf("%w: %s != %s", ErrRuleObjectMismatch, r.ObjectID, objID)
		}
		if r.ID == "" {
			r.ID = uuid.NewString()
		}
		if err := b.Put(objID+"/"+r.ID, r); err != nil {
			return err
		}
	}
	if err := b.Write(); err != nil {
		return err
	}
	log.Debug("对象权限规则已替换", "obj", objID, "removed", len(old), "added", len(rules))
	return nil
}
