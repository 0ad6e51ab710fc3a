//go:build !js

package pebble

import (
	"context"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/eigerco/bramble/pkg/db"
)

// Iterator walks one partition in ascending key order, stripping the
// partition prefix from returned keys. The context given to NewIterator is
// checked on every advance.
type Iterator struct {
	iter    *pebble.Iterator
	ctx     context.Context
	prefix  int
	started bool
	err     error
}

func (b *Backend) NewIterator(ctx context.Context, partition string, r db.Range) (db.Iterator, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return nil, db.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lower, upper := bounds(partition, r)
	iter, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	if err != nil {
		return nil, fmt.Errorf("iterator for %q: %w", partition, err)
	}
	return &Iterator{iter: iter, ctx: ctx, prefix: len(partition) + 1}, nil
}

func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}
	// Position on the first key before advancing
	if !it.started {
		it.started = true
		return it.iter.First()
	}
	return it.iter.Next()
}

func (it *Iterator) Key() []byte {
	key := it.iter.Key()
	if len(key) < it.prefix {
		return nil
	}
	out := make([]byte, len(key)-it.prefix)
	copy(out, key[it.prefix:])
	return out
}

func (it *Iterator) Value() ([]byte, error) {
	if !it.iter.Valid() {
		return nil, ErrIteratorInvalid
	}

	value, err := it.iter.ValueAndErr()
	if err != nil {
		return nil, fmt.Errorf("iterator value: %w", err)
	}
	return db.Unframe(value)
}

func (it *Iterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.iter.Error()
}

func (it *Iterator) Close() error {
	return it.iter.Close()
}
