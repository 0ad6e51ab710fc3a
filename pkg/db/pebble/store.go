//go:build !js

// Package pebble adapts cockroachdb/pebble to the db.Backend interface.
// Every partition lives in one pebble keyspace under the prefix
// `partition || 0x00`, so partition names must not contain NUL bytes.
package pebble

import (
	"context"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/log"
)

// Backend is the native storage engine adapter.
type Backend struct {
	db     *pebble.DB
	write  *pebble.WriteOptions
	mu     sync.RWMutex
	closed bool
}

// New opens the pebble database at path, creating it if needed. With
// durable set, Put and Delete sync the WAL before returning; otherwise
// writes are acknowledged once applied to the memtable.
func New(path string, durable bool) (*Backend, error) {
	pdb, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble at %s: %w", path, err)
	}

	write := pebble.NoSync
	if durable {
		write = pebble.Sync
	}
	log.Backend.Debug().Str("path", path).Bool("durable", durable).Msg("opened pebble database")

	return &Backend{db: pdb, write: write}, nil
}

func (b *Backend) Get(ctx context.Context, partition string, key []byte) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, db.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	value, closer, err := b.db.Get(makeKey(partition, key))
	if err == pebble.ErrNotFound {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get from %q: %w", partition, err)
	}
	defer closer.Close()

	return db.Unframe(value)
}

func (b *Backend) Put(ctx context.Context, partition string, key, value []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return db.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.db.Set(makeKey(partition, key), db.Frame(value), b.write); err != nil {
		return fmt.Errorf("put into %q: %w", partition, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, partition string, key []byte) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return db.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := b.db.Delete(makeKey(partition, key), b.write); err != nil {
		return fmt.Errorf("delete from %q: %w", partition, err)
	}
	return nil
}

func (b *Backend) Count(ctx context.Context, partition string) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return 0, db.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	lower, upper := bounds(partition, db.Range{})
	iter, err := b.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", partition, err)
	}
	defer iter.Close()

	n := 0
	for valid := iter.First(); valid; valid = iter.Next() {
		n++
	}
	if err := iter.Error(); err != nil {
		return 0, fmt.Errorf("count %q: %w", partition, err)
	}
	return n, nil
}

func (b *Backend) DropPartition(ctx context.Context, partition string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return db.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	lower, upper := bounds(partition, db.Range{})
	if err := b.db.DeleteRange(lower, upper, b.write); err != nil {
		return fmt.Errorf("drop %q: %w", partition, err)
	}
	return nil
}

// Close releases the engine. It waits for in-flight operations to finish;
// closing twice is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return b.db.Close()
}

// makeKey prefixes key with the partition namespace.
func makeKey(partition string, key []byte) []byte {
	out := make([]byte, 0, len(partition)+1+len(key))
	out = append(out, partition...)
	out = append(out, 0)
	return append(out, key...)
}

// bounds translates a partition-relative range into absolute engine keys.
func bounds(partition string, r db.Range) (lower, upper []byte) {
	lower = makeKey(partition, r.Start)
	if r.End != nil {
		upper = makeKey(partition, r.End)
	} else {
		upper = db.PrefixRange(makeKey(partition, nil)).End
	}
	return lower, upper
}
