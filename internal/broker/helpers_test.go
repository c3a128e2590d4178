package broker

import (
	"errors"
	"sync"

	"github.com/dep2p/go-iotgate/pkg/types"
)

// ruleStore 测试用权限存储
type ruleStore struct {
	mu    sync.Mutex
	rules []types.PermissionRule
}

func newRuleStore(rules ...types.PermissionRule) *ruleStore {
	return &ruleStore{rules: rules}
}

func (s *ruleStore) FindRulesForObject(objID string) []types.PermissionRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.PermissionRule
	for _, r := range s.rules {
		if r.ObjectID == objID || r.ObjectID == types.WildcardAll {
			out = append(out, r)
		}
	}
	return out
}

func (s *ruleStore) FindRulesForServiceExtended(srvID string) []types.PermissionRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.PermissionRule
	for _, r := range s.rules {
		if r.ServiceID == srvID || r.ServiceID == types.WildcardAll {
			out = append(out, r)
		}
	}
	return out
}

func (s *ruleStore) ReplaceObjectRules(objID string, rules []types.PermissionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rules[:0:0]
	for _, r := range s.rules {
		if r.ObjectID != objID {
			kept = append(kept, r)
		}
	}
	s.rules = append(kept, rules...)
	return nil
}

func rule(obj, srv, usr string, conn types.ConnectionClass, perm types.PermissionType) types.PermissionRule {
	return types.PermissionRule{ObjectID: obj, ServiceID: srv, UserID: usr, Connection: conn, Type: perm}
}

// inbox 记录收到消息的 Sender
type inbox struct {
	mu   sync.Mutex
	msgs []string
	fail bool
}

var errBroken = errors.New("broken link")

func (i *inbox) Send(msg string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.fail {
		return errBroken
	}
	i.msgs = append(i.msgs, msg)
	return nil
}

func (i *inbox) all() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.msgs...)
}

func (i *inbox) reset() {
	i.mu.Lock()
	i.msgs = nil
	i.mu.Unlock()
}

// reporter 记录指标调用
type reporter struct {
	mu        sync.Mutex
	sizes     map[types.EndpointKind]int
	delivered map[string]int
	rejected  map[string]int
}

func newReporter() *reporter {
	return &reporter{
		sizes:     make(map[types.EndpointKind]int),
		delivered: make(map[string]int),
		rejected:  make(map[string]int),
	}
}

func (r *reporter) RegistryChanged(kind types.EndpointKind, size int) {
	r.mu.Lock()
	r.sizes[kind] = size
	r.mu.Unlock()
}

func (r *reporter) Delivered(path string, n int) {
	r.mu.Lock()
	r.delivered[path] += n
	r.mu.Unlock()
}

func (r *reporter) Rejected(path, reason string) {
	r.mu.Lock()
	r.rejected[path+"/"+reason]++
	r.mu.Unlock()
}
