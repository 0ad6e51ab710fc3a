package db

import "context"

// Backend is the raw byte-keyed storage surface shared by every engine
// adapter. Keys and values are opaque bytes. Partitions are independent
// namespaces created lazily on first write; their names must not contain
// NUL bytes.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, partition string, key []byte) ([]byte, error)
	// Put stores value under key, replacing any previous value.
	Put(ctx context.Context, partition string, key, value []byte) error
	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, partition string, key []byte) error
	// Count returns the number of keys in the partition.
	Count(ctx context.Context, partition string) (int, error)
	// NewIterator scans the partition in ascending key order over r.
	NewIterator(ctx context.Context, partition string, r Range) (Iterator, error)
	// DropPartition removes the partition and everything in it.
	DropPartition(ctx context.Context, partition string) error
	// Close releases the backend. Closing twice is a no-op; operations on
	// a closed backend return ErrClosed.
	Close() error
}

// Iterator provides sequential access over a range of key-value pairs.
// Iterators must be closed after use.
type Iterator interface {
	Next() bool
	Key() []byte
	Value() ([]byte, error)
	Err() error
	Close() error
}

// Range bounds an iteration. Start is inclusive and End exclusive; a nil
// bound leaves that side open.
type Range struct {
	Start []byte
	End   []byte
}

// PrefixRange returns the Range covering every key that begins with prefix.
func PrefixRange(prefix []byte) Range {
	return Range{Start: prefix, End: prefixSuccessor(prefix)}
}

// prefixSuccessor returns the smallest key greater than every key prefixed
// by p, or nil when no such key exists.
func prefixSuccessor(p []byte) []byte {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] != 0xff {
			end := make([]byte, i+1)
			copy(end, p)
			end[i]++
			return end
		}
	}
	return nil
}
