package store

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dep2p/go-iotgate/pkg/interfaces"
	"github.com/dep2p/go-iotgate/pkg/types"
)

// Seed 种子数据
//
//	objects:
//	  - id: lamp
//	    owner: alice
//	rules:
//	  - obj: lamp
//	    srv: "#All"
//	    usr: "#Owner"
//	    conn: LocalAndCloud
//	    type: CoOwner
type Seed struct {
	Objects []interfaces.ObjectRecord `yaml:"objects"`
	Rules   []types.PermissionRule    `yaml:"rules"`
}

// LoadSeed 读取 YAML 种子文件
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed 解析 YAML 种子数据
func ParseSeed(data []byte) (*Seed, error) {
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	return &seed, nil
}

// ApplySeed 导入种子数据
//
// 对象按离线状态保存；规则按对象分组后整体替换该对象的既有规则。
func (s *Store) ApplySeed(ctx context.Context, seed *Seed) error {
	for _, rec := range seed.Objects {
		rec.Online = false
		if err := s.SaveObject(ctx, rec); err != nil {
			return err
		}
	}

	grouped := make(map[string][]types.PermissionRule)
	var order []string
	for _, r := range seed.Rules {
		if _, ok := grouped[r.ObjectID]; !ok {
			order = append(order, r.ObjectID)
		}
		grouped[r.ObjectID] = append(grouped[r.ObjectID], r)
	}
	for _, objID := range order {
		if err := s.ReplaceObjectRules(objID, grouped[objID]); err != nil {
			return fmt.Errorf("seed rules for %s: %w", objID, err)
		}
	}
	log.Info("种子数据已导入", "objects", len(seed.Objects), "rules", len(seed.Rules))
	return nil
}
