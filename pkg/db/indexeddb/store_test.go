//go:build js && wasm

package indexeddb

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/db/dbtest"
)

var dbSerial atomic.Int64

func newTestBackend(t *testing.T) *Backend {
	t.Helper()

	name := fmt.Sprintf("bramble-test-%d", dbSerial.Add(1))
	b, err := New(context.Background(), name)
	require.NoError(t, err)

	t.Cleanup(func() {
		b.Close()
		indexedDB().Call("deleteDatabase", name)
	})
	return b
}

func TestBackendContract(t *testing.T) {
	dbtest.Run(t, func(t *testing.T) db.Backend {
		return newTestBackend(t)
	})
}

func TestLazyStoreCreation(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	// reads on a partition nothing was written to see an empty namespace
	n, err := b.Count(ctx, "later")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NoError(t, b.Delete(ctx, "later", []byte("k")))

	// the first write creates the object store through a version bump
	require.NoError(t, b.Put(ctx, "later", []byte("k"), []byte("v")))

	got, err := b.Get(ctx, "later", []byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), got)
}

func TestScanSpansBatches(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	// enough entries to force several getAll round trips
	total := scanBatch*2 + 17
	for i := 0; i < total; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		require.NoError(t, b.Put(ctx, "main", key, []byte("v")))
	}

	iter, err := b.NewIterator(ctx, "main", db.Range{})
	require.NoError(t, err)
	defer iter.Close()

	seen := 0
	for iter.Next() {
		seen++
	}
	require.NoError(t, iter.Err())
	require.Equal(t, total, seen)
}

func TestScanKeysAreCopies(t *testing.T) {
	ctx := context.Background()
	b := newTestBackend(t)

	// damaging a returned key must not move the resume point of the next
	// batch, or entries after the boundary get skipped
	total := scanBatch + 3
	for i := 0; i < total; i++ {
		key := []byte(fmt.Sprintf("key-%06d", i))
		require.NoError(t, b.Put(ctx, "main", key, []byte("v")))
	}

	iter, err := b.NewIterator(ctx, "main", db.Range{})
	require.NoError(t, err)
	defer iter.Close()

	seen := 0
	for iter.Next() {
		key := iter.Key()
		require.Equal(t, []byte(fmt.Sprintf("key-%06d", seen)), key)
		key[0] ^= 0xff
		seen++
	}
	require.NoError(t, iter.Err())
	require.Equal(t, total, seen)
}
