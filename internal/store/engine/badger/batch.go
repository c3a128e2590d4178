package badger

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-iotgate/internal/store/engine"
)

// WriteBatch 基于 badger.WriteBatch 的批量写入
//
// 单个操作失败会被记住，Write 时取消整批并返回该错误。
type WriteBatch struct {
	owner *Engine
	wb    *badger.WriteBatch
	ops   int
	err   error
	done  bool
}

var _ engine.Batch = (*WriteBatch)(nil)

func (b *WriteBatch) apply(key []byte, op func() error) {
	if b.done || b.err != nil {
		return
	}
	if len(key) == 0 {
		b.err = engine.ErrEmptyKey
		return
	}
	if err := op(); err != nil {
		b.err = convertError(err)
		return
	}
	b.ops++
}

// Put 实现 engine.Batch
func (b *WriteBatch) Put(key, value []byte) {
	b.apply(key, func() error { return b.wb.Set(key, value) })
}

// Delete 实现 engine.Batch
func (b *WriteBatch) Delete(key []byte) {
	b.apply(key, func() error { return b.wb.Delete(key) })
}

// Write 实现 engine.Batch；提交后批量对象不可复用
func (b *WriteBatch) Write() error {
	if b.done {
		return engine.ErrBatchClosed
	}
	b.done = true
	switch {
	case b.owner.closed.Load():
		b.wb.Cancel()
		return engine.ErrClosed
	case b.err != nil:
		b.wb.Cancel()
		log.Debug("批量写入已取消", "ops", b.ops, "err", b.err)
		return b.err
	}
	return convertError(b.wb.Flush())
}

// Size 实现 engine.Batch
func (b *WriteBatch) Size() int {
	return b.ops
}
