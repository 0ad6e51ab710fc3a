package store

import (
	"github.com/eigerco/bramble/pkg/codec"
	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/keycodec"
)

// Items is the lazy result of List or Prefix. Records decode one at a time
// as the caller advances:
//
//	items := c.List(ctx, store.Full[uint32]())
//	defer items.Close()
//	for items.Next() {
//	    v, err := items.Value()
//	    ...
//	}
//	if err := items.Err(); err != nil { ... }
//
// A record that fails to decode reports its error from Key or Value while
// Next keeps going, so one corrupt record does not hide the rest. Backend
// failures end the sequence and surface from Err. Items must be closed
// after use; dropping a partially consumed sequence is safe.
type Items[K, V any] struct {
	iter  db.Iterator
	codec codec.Codec
	err   error
}

// Next advances to the next record, returning false when the sequence is
// exhausted or a backend failure ends it.
func (it *Items[K, V]) Next() bool {
	if it.iter == nil {
		return false
	}
	return it.iter.Next()
}

// Key decodes the current record's key.
func (it *Items[K, V]) Key() (K, error) {
	var key K
	if it.iter == nil {
		return key, it.err
	}
	if err := keycodec.Decode(it.iter.Key(), &key); err != nil {
		return key, err
	}
	return key, nil
}

// Value decodes the current record. A failure concerns this record only.
func (it *Items[K, V]) Value() (V, error) {
	var value V
	if it.iter == nil {
		return value, it.err
	}

	data, err := it.iter.Value()
	if err != nil {
		return value, err
	}
	if err := it.codec.Unmarshal(data, &value); err != nil {
		var zero V
		return zero, err
	}
	return value, nil
}

// Err reports the failure that ended the sequence, if any.
func (it *Items[K, V]) Err() error {
	if it.err != nil || it.iter == nil {
		return it.err
	}
	return it.iter.Err()
}

// Close releases the underlying iterator.
func (it *Items[K, V]) Close() error {
	if it.iter == nil {
		return nil
	}
	return it.iter.Close()
}
