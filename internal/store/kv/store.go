// Package kv 在存储引擎之上提供带类型的前缀桶
//
// 网关的键空间：
//   - o/<objID>          对象元数据
//   - r/<objID>/<ruleID> 权限规则
//
// 值以 JSON 编码；键为字符串，桶前缀对调用方透明。
package kv

import (
	"encoding/json"
	"fmt"

	"github.com/dep2p/go-iotgate/internal/store/engine"
)

// Bucket 一个前缀下同类型值的集合
type Bucket[T any] struct {
	engine engine.Engine
	prefix string
}

// NewBucket 创建前缀桶
func NewBucket[T any](eng engine.Engine, prefix string) *Bucket[T] {
	return &Bucket[T]{engine: eng, prefix: prefix}
}

func (b *Bucket[T]) key(k string) []byte {
	return []byte(b.prefix + k)
}

// Get 读取并解码，键不存在时 ok 为 false 且 err 为 nil
func (b *Bucket[T]) Get(k string) (v T, ok bool, err error) {
	data, err := b.engine.Get(b.key(k))
	if engine.IsNotFound(err) {
		return v, false, nil
	}
	if err != nil {
		return v, false, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, false, &DecodeError{Key: k, Err: err}
	}
	return v, true, nil
}

// Put 编码并写入
func (b *Bucket[T]) Put(k string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.engine.Put(b.key(k), data)
}

// Delete 删除键，不存在时不报错
func (b *Bucket[T]) Delete(k string) error {
	return b.engine.Delete(b.key(k))
}

// Entry 扫描到的一项
//
// 值无法解码时 Err 为 *DecodeError，Value 为零值。
type Entry[T any] struct {
	Key   string
	Value T
	Err   error
}

// Scan 按键序遍历子前缀 sub 下的条目，回调返回 false 时停止
//
// 解码失败的条目照常交给回调，由调用方决定跳过还是中止。
func (b *Bucket[T]) Scan(sub string, fn func(Entry[T]) bool) error {
	it := b.engine.NewPrefixIterator(b.key(sub))
	defer it.Close()

	for it.First(); it.Valid(); it.Next() {
		e := Entry[T]{Key: string(it.Key()[len(b.prefix):])}
		if err := json.Unmarshal(it.Value(), &e.Value); err != nil {
			e.Err = &DecodeError{Key: e.Key, Err: err}
		}
		if !fn(e) {
			break
		}
	}
	return it.Error()
}

// Keys 返回子前缀下的全部键
func (b *Bucket[T]) Keys(sub string) ([]string, error) {
	it := b.engine.NewPrefixIterator(b.key(sub))
	defer it.Close()

	var keys []string
	for it.First(); it.Valid(); it.Next() {
		keys = append(keys, string(it.Key()[len(b.prefix):]))
	}
	return keys, it.Error()
}

// ============================================================================
//                              批量
// ============================================================================

// Batch 桶内的原子批量写入
type Batch[T any] struct {
	bucket *Bucket[T]
	batch  engine.Batch
}

// NewBatch 创建批量写入
func (b *Bucket[T]) NewBatch() *Batch[T] {
	return &Batch[T]{bucket: b, batch: b.engine.NewBatch()}
}

// Put 添加写入
func (w *Batch[T]) Put(k string, v T) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.batch.Put(w.bucket.key(k), data)
	return nil
}

// Delete 添加删除
func (w *Batch[T]) Delete(k string) {
	w.batch.Delete(w.bucket.key(k))
}

// Size 返回已累积的操作数
func (w *Batch[T]) Size() int {
	return w.batch.Size()
}

// Write 原子提交
func (w *Batch[T]) Write() error {
	return w.batch.Write()
}

// ============================================================================
//                              错误
// ============================================================================

// DecodeError 存储值无法解码
type DecodeError struct {
	Key string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("kv: decode %q: %v", e.Key, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
