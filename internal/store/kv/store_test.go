package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-iotgate/internal/store/engine"
	"github.com/dep2p/go-iotgate/internal/store/engine/badger"
)

type rec struct {
	N int `json:"n"`
}

func newEngine(t *testing.T) engine.Engine {
	t.Helper()
	eng, err := badger.New(engine.DefaultConfig(""))
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })
	return eng
}

func TestBucket_PrefixIsolation(t *testing.T) {
	eng := newEngine(t)
	objs := NewBucket[rec](eng, "o/")
	rules := NewBucket[rec](eng, "r/")

	require.NoError(t, objs.Put("lamp", rec{1}))
	require.NoError(t, rules.Put("lamp", rec{2}))

	raw, err := eng.Get([]byte("o/lamp"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(raw))

	keys, err := objs.Keys("")
	require.NoError(t, err)
	assert.Equal(t, []string{"lamp"}, keys)

	v, ok, err := rules.Get("lamp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, v.N)
}

func TestBucket_GetMissing(t *testing.T) {
	b := NewBucket[rec](newEngine(t), "x/")
	v, ok, err := b.Get("nope")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, v)
}

func TestBucket_Batch(t *testing.T) {
	b := NewBucket[rec](newEngine(t), "x/")

	w := b.NewBatch()
	require.NoError(t, w.Put("a", rec{1}))
	require.NoError(t, w.Put("b", rec{2}))
	assert.Equal(t, 2, w.Size())
	require.NoError(t, w.Write())

	v, ok, err := b.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v.N)

	w = b.NewBatch()
	w.Delete("a")
	require.NoError(t, w.Write())
	_, ok, err = b.Get("a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBucket_ScanReportsDecodeErrors(t *testing.T) {
	eng := newEngine(t)
	b := NewBucket[rec](eng, "r/")
	require.NoError(t, b.Put("lamp/1", rec{1}))
	require.NoError(t, eng.Put([]byte("r/lamp/2"), []byte("{broken")))
	require.NoError(t, b.Put("lamp/3", rec{3}))
	require.NoError(t, b.Put("fan/1", rec{9}))

	var (
		seen   []int
		broken []string
	)
	require.NoError(t, b.Scan("lamp/", func(e Entry[rec]) bool {
		if e.Err != nil {
			var de *DecodeError
			require.ErrorAs(t, e.Err, &de)
			broken = append(broken, de.Key)
			return true
		}
		seen = append(seen, e.Value.N)
		return true
	}))
	assert.Equal(t, []int{1, 3}, seen)
	assert.Equal(t, []string{"lamp/2"}, broken)

	_, _, err := b.Get("lamp/2")
	assert.Error(t, err)
}

func TestBucket_ScanStops(t *testing.T) {
	b := NewBucket[rec](newEngine(t), "x/")
	for i, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Put(k, rec{i}))
	}
	n := 0
	require.NoError(t, b.Scan("", func(Entry[rec]) bool {
		n++
		return n < 2
	}))
	assert.Equal(t, 2, n)
}
