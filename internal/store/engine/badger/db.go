// Package badger 提供基于 BadgerDB 的存储引擎实现
//
// 配置了数据目录时持久化到磁盘，否则运行在 Badger 的内存模式。
package badger

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-iotgate/internal/store/engine"
	"github.com/dep2p/go-iotgate/internal/util/logger"
)

var log = logger.Logger("store/badger")

// Engine BadgerDB 存储引擎
type Engine struct {
	db     *badger.DB
	config engine.Config
	closed atomic.Bool

	// 值日志回收协程
	stopGC chan struct{}
	gcDone sync.WaitGroup
}

var _ engine.Engine = (*Engine)(nil)

func openOptions(cfg engine.Config) (badger.Options, error) {
	if cfg.InMemory {
		return badger.DefaultOptions("").WithInMemory(true), nil
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return badger.Options{}, fmt.Errorf("create data dir: %w", err)
	}
	return badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites), nil
}

// New 打开 BadgerDB
func New(cfg engine.Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := openOptions(cfg)
	if err != nil {
		return nil, err
	}
	db, err := badger.Open(opts.WithNumVersionsToKeep(1).WithLogger(badgerLogger{}))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	log.Debug("存储引擎已打开", "path", cfg.Path, "inMemory", cfg.InMemory)
	return &Engine{db: db, config: cfg, stopGC: make(chan struct{})}, nil
}

// badgerLogger 将 badger 日志转到 slog，Info 降为 Debug
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	log.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	log.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	log.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (badgerLogger) Debugf(string, ...interface{}) {}

// Start 启动值日志回收；内存模式下没有值日志
func (e *Engine) Start() error {
	if e.closed.Load() {
		return engine.ErrClosed
	}
	if e.config.GCInterval <= 0 || e.config.InMemory {
		return nil
	}
	e.gcDone.Add(1)
	go e.gcLoop(e.config.GCInterval)
	return nil
}

func (e *Engine) gcLoop(every time.Duration) {
	defer e.gcDone.Done()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-e.stopGC:
			return
		case <-ticker.C:
			// 一次回收一个文件，直到没有可回收的
			n := 0
			for !e.closed.Load() && e.db.RunValueLogGC(e.config.GCDiscardRatio) == nil {
				n++
			}
			if n > 0 {
				log.Debug("值日志回收完成", "files", n)
			}
		}
	}
}

// check 单键操作的公共前置检查
func (e *Engine) check(key []byte) error {
	switch {
	case e.closed.Load():
		return engine.ErrClosed
	case len(key) == 0:
		return engine.ErrEmptyKey
	}
	return nil
}

func (e *Engine) update(key []byte, fn func(*badger.Txn) error) error {
	if err := e.check(key); err != nil {
		return err
	}
	return convertError(e.db.Update(fn))
}

// Get 实现 engine.Engine
func (e *Engine) Get(key []byte) (value []byte, err error) {
	if err := e.check(key); err != nil {
		return nil, err
	}
	err = e.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	return value, convertError(err)
}

// Put 实现 engine.Engine
func (e *Engine) Put(key, value []byte) error {
	return e.update(key, func(txn *badger.Txn) error { return txn.Set(key, value) })
}

// Delete 实现 engine.Engine
func (e *Engine) Delete(key []byte) error {
	return e.update(key, func(txn *badger.Txn) error { return txn.Delete(key) })
}

// Has 实现 engine.Engine
func (e *Engine) Has(key []byte) (bool, error) {
	if err := e.check(key); err != nil {
		return false, err
	}
	err := e.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		return err
	})
	switch err = convertError(err); {
	case err == nil:
		return true, nil
	case engine.IsNotFound(err):
		return false, nil
	default:
		return false, err
	}
}

// NewBatch 实现 engine.Engine
func (e *Engine) NewBatch() engine.Batch {
	return &WriteBatch{owner: e, wb: e.db.NewWriteBatch()}
}

// NewPrefixIterator 实现 engine.Engine
func (e *Engine) NewPrefixIterator(prefix []byte) engine.Iterator {
	return newIterator(e.db, prefix)
}

// Close 停止回收并关闭数据库
func (e *Engine) Close() error {
	if e.closed.Swap(true) {
		return nil
	}
	close(e.stopGC)
	e.gcDone.Wait()
	return e.db.Close()
}

func convertError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return engine.ErrNotFound
	case errors.Is(err, badger.ErrEmptyKey):
		return engine.ErrEmptyKey
	default:
		return err
	}
}
