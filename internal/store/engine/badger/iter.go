package badger

import (
	"github.com/dgraph-io/badger/v4"

	"github.com/dep2p/go-iotgate/internal/store/engine"
)

// Iterator 只读事务上的前缀游标
type Iterator struct {
	txn    *badger.Txn
	it     *badger.Iterator
	prefix []byte

	// 当前条目，游标越过前缀或已关闭时为 nil
	item *badger.Item
	err  error
}

var _ engine.Iterator = (*Iterator)(nil)

func newIterator(db *badger.DB, prefix []byte) *Iterator {
	txn := db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	return &Iterator{txn: txn, it: txn.NewIterator(opts), prefix: prefix}
}

func (c *Iterator) settle() bool {
	c.item = nil
	if c.txn != nil && c.it.ValidForPrefix(c.prefix) {
		c.item = c.it.Item()
	}
	return c.item != nil
}

// First 实现 engine.Iterator
func (c *Iterator) First() bool {
	if c.txn == nil {
		return false
	}
	c.it.Seek(c.prefix)
	return c.settle()
}

// Next 实现 engine.Iterator
func (c *Iterator) Next() bool {
	if c.item == nil {
		return false
	}
	c.it.Next()
	return c.settle()
}

// Valid 实现 engine.Iterator
func (c *Iterator) Valid() bool {
	return c.item != nil
}

// Key 实现 engine.Iterator
func (c *Iterator) Key() []byte {
	if c.item == nil {
		return nil
	}
	return c.item.KeyCopy(nil)
}

// Value 实现 engine.Iterator；读取失败记入 Error
func (c *Iterator) Value() []byte {
	if c.item == nil {
		return nil
	}
	v, err := c.item.ValueCopy(nil)
	if err != nil && c.err == nil {
		c.err = err
	}
	return v
}

// Close 实现 engine.Iterator，可重复调用
func (c *Iterator) Close() {
	if c.txn == nil {
		return
	}
	c.item = nil
	c.it.Close()
	c.txn.Discard()
	c.txn = nil
}

// Error 实现 engine.Iterator
func (c *Iterator) Error() error {
	return c.err
}
