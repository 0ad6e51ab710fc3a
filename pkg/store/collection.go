package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/keycodec"
)

var nameRE = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

func checkName(name string) error {
	if !nameRE.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Collection is a named, typed partition of a Store holding records of one
// type. The key extractor derives each record's key, which must stay the
// same for the record's lifetime; storing a changed record under the same
// key is an overwrite. A Collection holds a reference to its Store and must
// not be used after the Store closes.
type Collection[K, V any] struct {
	store *Store
	name  string
	key   func(V) K
}

// NewCollection carves the named collection out of s. The name must match
// [a-z][a-z0-9_]* and K must have a canonical key encoding. The collection's
// partition is created lazily on first write.
func NewCollection[K, V any](s *Store, name string, key func(V) K) (*Collection[K, V], error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	if key == nil {
		return nil, errors.New("store: key extractor must not be nil")
	}
	if err := keycodec.Check[K](); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return &Collection[K, V]{store: s, name: name, key: key}, nil
}

// Name returns the collection name.
func (c *Collection[K, V]) Name() string { return c.name }

// Get returns the record stored under key. Absence is not an error: a
// missing key reports (zero, false, nil).
func (c *Collection[K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	var value V

	kb, err := encodeKey(key)
	if err != nil {
		return value, false, err
	}

	data, err := c.store.backend.Get(ctx, c.name, kb)
	if errors.Is(err, db.ErrNotFound) {
		return value, false, nil
	}
	if err != nil {
		return value, false, fmt.Errorf("get from %q: %w", c.name, err)
	}

	if err := c.store.codec.Unmarshal(data, &value); err != nil {
		var zero V
		return zero, false, fmt.Errorf("get from %q: %w", c.name, err)
	}
	return value, true, nil
}

// Put stores value under the key derived from it, replacing any previous
// record with that key.
func (c *Collection[K, V]) Put(ctx context.Context, value V) error {
	kb, err := encodeKey(c.key(value))
	if err != nil {
		return err
	}
	data, err := c.store.codec.Marshal(value)
	if err != nil {
		return fmt.Errorf("put into %q: %w", c.name, err)
	}

	if err := c.store.backend.Put(ctx, c.name, kb, data); err != nil {
		return fmt.Errorf("put into %q: %w", c.name, err)
	}
	return nil
}

// Delete removes the record stored under key. Deleting an absent key is a
// no-op.
func (c *Collection[K, V]) Delete(ctx context.Context, key K) error {
	kb, err := encodeKey(key)
	if err != nil {
		return err
	}
	if err := c.store.backend.Delete(ctx, c.name, kb); err != nil {
		return fmt.Errorf("delete from %q: %w", c.name, err)
	}
	return nil
}

// Contains reports whether a record is stored under key.
func (c *Collection[K, V]) Contains(ctx context.Context, key K) (bool, error) {
	kb, err := encodeKey(key)
	if err != nil {
		return false, err
	}

	_, err = c.store.backend.Get(ctx, c.name, kb)
	if errors.Is(err, db.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("contains in %q: %w", c.name, err)
	}
	return true, nil
}

// Len returns the number of records in the collection.
func (c *Collection[K, V]) Len(ctx context.Context) (int, error) {
	n, err := c.store.backend.Count(ctx, c.name)
	if err != nil {
		return 0, fmt.Errorf("len of %q: %w", c.name, err)
	}
	return n, nil
}

// List returns the records within r in ascending key order. Records decode
// lazily as the sequence is consumed; see Items for the error contract.
func (c *Collection[K, V]) List(ctx context.Context, r KeyRange[K]) *Items[K, V] {
	bounds, err := r.bounds()
	if err != nil {
		return &Items[K, V]{err: err}
	}
	return c.items(ctx, bounds)
}

// Prefix returns the records whose canonical key encoding begins with the
// encoding of prefix, in ascending key order. Meaningful for string, byte
// and custom keys; for fixed width keys the prefix only ever matches
// itself.
func (c *Collection[K, V]) Prefix(ctx context.Context, prefix K) *Items[K, V] {
	pb, err := encodeKey(prefix)
	if err != nil {
		return &Items[K, V]{err: err}
	}
	return c.items(ctx, db.PrefixRange(pb))
}

func (c *Collection[K, V]) items(ctx context.Context, r db.Range) *Items[K, V] {
	iter, err := c.store.backend.NewIterator(ctx, c.name, r)
	if err != nil {
		return &Items[K, V]{err: fmt.Errorf("list %q: %w", c.name, err)}
	}
	return &Items[K, V]{iter: iter, codec: c.store.codec}
}

// encodeKey translates a typed key into its canonical byte form, tagging
// failures as ErrInvalidKey.
func encodeKey(key any) ([]byte, error) {
	kb, err := keycodec.Encode(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return kb, nil
}
