package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/keycodec"
)

// Entry pairs a record with its primary key in index lookup results.
type Entry[K, V any] struct {
	Key   K
	Value V
}

// Index is a secondary lookup over one field of a collection's records. It
// lives in its own partition named <collection>_index_<field>; each entry's
// key is the encoded field value, a NUL separator and the encoded primary
// key, and its stored bytes are the encoded primary key alone. Entries are
// written by Put and never removed: a lookup skips entries whose primary
// row has since been deleted.
type Index[I, K, V any] struct {
	collection *Collection[K, V]
	partition  string
	extract    func(V) I
}

// NewIndex builds the index of c on the named field, with extract deriving
// the indexed value from a record. The field name must match
// [a-z][a-z0-9_]* and I must have a canonical key encoding.
func NewIndex[I, K, V any](c *Collection[K, V], field string, extract func(V) I) (*Index[I, K, V], error) {
	if err := checkName(field); err != nil {
		return nil, err
	}
	if extract == nil {
		return nil, errors.New("store: index extractor must not be nil")
	}
	if err := keycodec.Check[I](); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndexValue, err)
	}
	return &Index[I, K, V]{
		collection: c,
		partition:  c.name + "_index_" + field,
		extract:    extract,
	}, nil
}

// Put stores value's primary row together with its index entry. The entry
// is written first: a failure in between leaves at most a stale entry,
// which lookups skip.
func (ix *Index[I, K, V]) Put(ctx context.Context, value V) error {
	iv, err := ix.encodeValue(ix.extract(value))
	if err != nil {
		return err
	}
	kb, err := encodeKey(ix.collection.key(value))
	if err != nil {
		return err
	}

	if err := ix.backend().Put(ctx, ix.partition, indexKey(iv, kb), kb); err != nil {
		return fmt.Errorf("index %q: %w", ix.partition, err)
	}
	return ix.collection.Put(ctx, value)
}

// Get returns every record whose indexed field equals value, in ascending
// primary key order.
func (ix *Index[I, K, V]) Get(ctx context.Context, value I) ([]Entry[K, V], error) {
	var entries []Entry[K, V]
	err := ix.scan(ctx, value, func(key K, record V) bool {
		entries = append(entries, Entry[K, V]{Key: key, Value: record})
		return true
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetFirst returns the match with the smallest primary key, if any.
func (ix *Index[I, K, V]) GetFirst(ctx context.Context, value I) (K, V, bool, error) {
	var (
		key    K
		record V
		found  bool
	)
	err := ix.scan(ctx, value, func(k K, v V) bool {
		key, record, found = k, v, true
		return false
	})
	if err != nil {
		var zeroK K
		var zeroV V
		return zeroK, zeroV, false, err
	}
	return key, record, found, nil
}

// scan walks the index entries for value in ascending primary key order,
// fetching each live primary row and handing it to visit until visit
// returns false.
func (ix *Index[I, K, V]) scan(ctx context.Context, value I, visit func(K, V) bool) error {
	iv, err := ix.encodeValue(value)
	if err != nil {
		return err
	}

	iter, err := ix.backend().NewIterator(ctx, ix.partition, db.PrefixRange(indexKey(iv, nil)))
	if err != nil {
		return fmt.Errorf("index %q: %w", ix.partition, err)
	}
	defer iter.Close()

	for iter.Next() {
		kb, err := iter.Value()
		if err != nil {
			return fmt.Errorf("index %q: %w", ix.partition, err)
		}
		var key K
		if err := keycodec.Decode(kb, &key); err != nil {
			return fmt.Errorf("index %q: %w", ix.partition, err)
		}

		record, ok, err := ix.collection.Get(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			// primary row deleted after indexing
			continue
		}
		if !visit(key, record) {
			break
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("index %q: %w", ix.partition, err)
	}
	return nil
}

// encodeValue translates an indexed field value into its canonical byte
// form. Variable width encodings must not contain NUL, which would blur the
// boundary between grouped values in the partition.
func (ix *Index[I, K, V]) encodeValue(value I) ([]byte, error) {
	b, err := keycodec.Encode(value)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIndexValue, err)
	}
	if !keycodec.FixedWidth(value) && bytes.IndexByte(b, 0x00) >= 0 {
		return nil, fmt.Errorf("%w: encoding contains NUL", ErrInvalidIndexValue)
	}
	return b, nil
}

func (ix *Index[I, K, V]) backend() db.Backend {
	return ix.collection.store.backend
}

// indexKey lays out an index entry key as value || 0x00 || primary key, so
// entries group by value and order by primary key within one value. With a
// nil primary key it is the prefix covering all of one value's entries.
func indexKey(value, primary []byte) []byte {
	out := make([]byte, 0, len(value)+1+len(primary))
	out = append(out, value...)
	out = append(out, 0x00)
	return append(out, primary...)
}
