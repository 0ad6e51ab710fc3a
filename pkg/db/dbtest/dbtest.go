// Package dbtest exercises the db.Backend contract. Each adapter package
// runs the suite against its own constructor, so every engine answers the
// same questions the same way.
package dbtest

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eigerco/bramble/pkg/db"
)

// Factory returns a fresh, empty backend for one test. The suite closes it.
type Factory func(t *testing.T) db.Backend

// Run exercises every Backend operation against factory-built backends.
func Run(t *testing.T, factory Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, b db.Backend)
	}{
		{name: "put_get", fn: testPutGet},
		{name: "get_missing", fn: testGetMissing},
		{name: "overwrite", fn: testOverwrite},
		{name: "delete", fn: testDelete},
		{name: "count", fn: testCount},
		{name: "scan_order", fn: testScanOrder},
		{name: "scan_range", fn: testScanRange},
		{name: "scan_empty", fn: testScanEmpty},
		{name: "scan_early_close", fn: testScanEarlyClose},
		{name: "partition_isolation", fn: testPartitionIsolation},
		{name: "drop_partition", fn: testDropPartition},
		{name: "closed", fn: testClosed},
		{name: "cancelled_context", fn: testCancelledContext},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := factory(t)
			defer b.Close()

			tc.fn(t, b)
		})
	}
}

func testPutGet(t *testing.T, b db.Backend) {
	ctx := context.Background()
	key := []byte("test-key")
	value := []byte("test-value")

	err := b.Put(ctx, "main", key, value)
	require.NoError(t, err)

	retrieved, err := b.Get(ctx, "main", key)
	require.NoError(t, err)
	assert.Equal(t, value, retrieved)
}

func testGetMissing(t *testing.T, b db.Backend) {
	ctx := context.Background()

	_, err := b.Get(ctx, "main", []byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	// a partition nothing was ever written to behaves the same
	_, err = b.Get(ctx, "untouched", []byte("non-existent"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func testOverwrite(t *testing.T, b db.Backend) {
	ctx := context.Background()
	key := []byte("counter")

	require.NoError(t, b.Put(ctx, "main", key, []byte("one")))
	require.NoError(t, b.Put(ctx, "main", key, []byte("two")))

	got, err := b.Get(ctx, "main", key)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), got)

	n, err := b.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testDelete(t *testing.T, b db.Backend) {
	ctx := context.Background()
	key := []byte("delete-test")

	require.NoError(t, b.Put(ctx, "main", key, []byte("to-be-deleted")))
	require.NoError(t, b.Delete(ctx, "main", key))

	_, err := b.Get(ctx, "main", key)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// deleting again, or deleting a key that never existed, is a no-op
	assert.NoError(t, b.Delete(ctx, "main", key))
	assert.NoError(t, b.Delete(ctx, "main", []byte("never-existed")))
}

func testCount(t *testing.T, b db.Backend) {
	ctx := context.Background()

	n, err := b.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	for _, k := range []string{"a", "b", "c"} {
		require.NoError(t, b.Put(ctx, "main", []byte(k), []byte("v")))
	}

	n, err = b.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	require.NoError(t, b.Delete(ctx, "main", []byte("b")))

	n, err = b.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testScanOrder(t *testing.T, b db.Backend) {
	ctx := context.Background()

	// inserted out of order, scanned in order
	for _, k := range []string{"f", "a", "c", "e", "b", "d"} {
		require.NoError(t, b.Put(ctx, "main", []byte(k), []byte("v-"+k)))
	}

	iter, err := b.NewIterator(ctx, "main", db.Range{})
	require.NoError(t, err)
	defer iter.Close()

	var keys [][]byte
	for iter.Next() {
		value, err := iter.Value()
		require.NoError(t, err)
		assert.Equal(t, append([]byte("v-"), iter.Key()...), value)
		keys = append(keys, iter.Key())
	}
	require.NoError(t, iter.Err())

	require.Len(t, keys, 6)
	for i := 1; i < len(keys); i++ {
		assert.Equal(t, -1, bytes.Compare(keys[i-1], keys[i]))
	}
}

func testScanRange(t *testing.T, b db.Backend) {
	ctx := context.Background()

	for i := byte(1); i <= 9; i++ {
		require.NoError(t, b.Put(ctx, "main", []byte{i}, []byte{i}))
	}

	tests := []struct {
		name string
		r    db.Range
		want []byte // expected key bytes in order
	}{
		{name: "bounded", r: db.Range{Start: []byte{3}, End: []byte{7}}, want: []byte{3, 4, 5, 6}},
		{name: "from_start", r: db.Range{End: []byte{4}}, want: []byte{1, 2, 3}},
		{name: "to_end", r: db.Range{Start: []byte{7}}, want: []byte{7, 8, 9}},
		{name: "full", r: db.Range{}, want: []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}},
		{name: "empty_window", r: db.Range{Start: []byte{5}, End: []byte{5}}, want: nil},
		{name: "inverted_window", r: db.Range{Start: []byte{7}, End: []byte{3}}, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			iter, err := b.NewIterator(ctx, "main", tc.r)
			require.NoError(t, err)
			defer iter.Close()

			var got []byte
			for iter.Next() {
				key := iter.Key()
				require.Len(t, key, 1)
				got = append(got, key[0])
			}
			require.NoError(t, iter.Err())
			assert.Equal(t, tc.want, got)
		})
	}
}

func testScanEmpty(t *testing.T, b db.Backend) {
	ctx := context.Background()

	iter, err := b.NewIterator(ctx, "untouched", db.Range{})
	require.NoError(t, err)
	defer iter.Close()

	assert.False(t, iter.Next())
	assert.NoError(t, iter.Err())
}

func testScanEarlyClose(t *testing.T, b db.Backend) {
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, b.Put(ctx, "main", []byte(k), []byte("v")))
	}

	iter, err := b.NewIterator(ctx, "main", db.Range{})
	require.NoError(t, err)

	require.True(t, iter.Next())
	require.True(t, iter.Next())
	require.NoError(t, iter.Close())

	// the backend stays usable after an abandoned scan
	require.NoError(t, b.Put(ctx, "main", []byte("f"), []byte("v")))

	n, err := b.Count(ctx, "main")
	require.NoError(t, err)
	assert.Equal(t, 6, n)
}

func testPartitionIsolation(t *testing.T, b db.Backend) {
	ctx := context.Background()
	key := []byte("shared-key")

	require.NoError(t, b.Put(ctx, "left", key, []byte("from-left")))
	require.NoError(t, b.Put(ctx, "right", key, []byte("from-right")))

	got, err := b.Get(ctx, "left", key)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-left"), got)

	got, err = b.Get(ctx, "right", key)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-right"), got)

	require.NoError(t, b.Delete(ctx, "left", key))

	_, err = b.Get(ctx, "left", key)
	assert.ErrorIs(t, err, db.ErrNotFound)

	got, err = b.Get(ctx, "right", key)
	require.NoError(t, err)
	assert.Equal(t, []byte("from-right"), got)
}

func testDropPartition(t *testing.T, b db.Backend) {
	ctx := context.Background()

	for _, k := range []string{"a", "b"} {
		require.NoError(t, b.Put(ctx, "doomed", []byte(k), []byte("v")))
		require.NoError(t, b.Put(ctx, "spared", []byte(k), []byte("v")))
	}

	require.NoError(t, b.DropPartition(ctx, "doomed"))

	n, err := b.Count(ctx, "doomed")
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	_, err = b.Get(ctx, "doomed", []byte("a"))
	assert.ErrorIs(t, err, db.ErrNotFound)

	n, err = b.Count(ctx, "spared")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// dropping a partition that does not exist is a no-op
	assert.NoError(t, b.DropPartition(ctx, "never-created"))
}

func testClosed(t *testing.T, b db.Backend) {
	ctx := context.Background()

	require.NoError(t, b.Put(ctx, "main", []byte("k"), []byte("v")))
	require.NoError(t, b.Close())

	_, err := b.Get(ctx, "main", []byte("k"))
	assert.ErrorIs(t, err, db.ErrClosed)

	assert.ErrorIs(t, b.Put(ctx, "main", []byte("k"), []byte("v")), db.ErrClosed)
	assert.ErrorIs(t, b.Delete(ctx, "main", []byte("k")), db.ErrClosed)

	_, err = b.Count(ctx, "main")
	assert.ErrorIs(t, err, db.ErrClosed)

	_, err = b.NewIterator(ctx, "main", db.Range{})
	assert.ErrorIs(t, err, db.ErrClosed)

	assert.ErrorIs(t, b.DropPartition(ctx, "main"), db.ErrClosed)

	// double close is a no-op
	assert.NoError(t, b.Close())
}

func testCancelledContext(t *testing.T, b db.Backend) {
	ctx := context.Background()
	key := []byte("guarded")

	require.NoError(t, b.Put(ctx, "main", key, []byte("before")))

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	err := b.Put(cancelled, "main", key, []byte("after"))
	assert.ErrorIs(t, err, context.Canceled)

	err = b.Delete(cancelled, "main", key)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = b.Get(cancelled, "main", key)
	assert.ErrorIs(t, err, context.Canceled)

	// the rejected write must not have landed
	got, err := b.Get(ctx, "main", key)
	require.NoError(t, err)
	assert.Equal(t, []byte("before"), got)
}
