//go:build js && wasm

package indexeddb

import (
	"bytes"
	"context"
	"fmt"
	"syscall/js"

	"github.com/eigerco/bramble/pkg/db"
)

// scanBatch is how many entries one read transaction fetches. Scans resume
// after the last key seen, so an abandoned iterator costs at most one batch.
const scanBatch = 256

// Iterator pages through one object store in ascending key order.
type Iterator struct {
	ctx       context.Context
	backend   *Backend
	partition string
	upper     []byte // exclusive bound, nil when unbounded
	lower     []byte // the next fetch starts here
	lowerOpen bool   // set once a batch has been consumed
	keys      [][]byte
	values    [][]byte
	pos       int
	final     bool // the current batch is the last one
	done      bool
	err       error
}

func (b *Backend) NewIterator(ctx context.Context, partition string, r db.Range) (db.Iterator, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// an empty or inverted window scans nothing; IDBKeyRange.bound cannot
	// express one and throws DataError instead
	if r.End != nil && bytes.Compare(r.Start, r.End) >= 0 {
		return &Iterator{done: true}, nil
	}
	if !hasStore(conn, partition) {
		return &Iterator{done: true}, nil
	}
	return &Iterator{
		ctx:       ctx,
		backend:   b,
		partition: partition,
		lower:     r.Start,
		upper:     r.End,
	}, nil
}

func (it *Iterator) Next() bool {
	if it.err != nil || it.done {
		return false
	}
	if err := it.ctx.Err(); err != nil {
		it.err = err
		return false
	}
	if it.pos+1 < len(it.keys) {
		it.pos++
		return true
	}
	if it.final {
		it.done = true
		return false
	}
	if !it.fetch() {
		it.done = true
		return false
	}
	it.pos = 0
	return true
}

// fetch loads the next batch, remembering the last key so the following
// batch resumes after it.
func (it *Iterator) fetch() bool {
	conn, err := it.backend.connection()
	if err != nil {
		it.err = err
		return false
	}

	var keysReq, valuesReq js.Value
	err = try(func() {
		query := it.query()
		tx := conn.Call("transaction", it.partition, "readonly")
		store := tx.Call("objectStore", it.partition)
		keysReq = store.Call("getAllKeys", query, scanBatch)
		valuesReq = store.Call("getAll", query, scanBatch)
	})
	if err != nil {
		it.err = fmt.Errorf("scan %q: %w", it.partition, err)
		return false
	}

	keys, err := await(it.ctx, keysReq)
	if err != nil {
		it.err = fmt.Errorf("scan %q: %w", it.partition, err)
		return false
	}
	values, err := await(it.ctx, valuesReq)
	if err != nil {
		it.err = fmt.Errorf("scan %q: %w", it.partition, err)
		return false
	}

	n := keys.Length()
	it.keys = it.keys[:0]
	it.values = it.values[:0]
	for i := 0; i < n; i++ {
		it.keys = append(it.keys, toBytes(keys.Index(i)))
		it.values = append(it.values, toBytes(values.Index(i)))
	}
	it.final = n < scanBatch
	if n > 0 {
		it.lower = it.keys[n-1]
		it.lowerOpen = true
	}
	return n > 0
}

// query builds the IDBKeyRange covering the remainder of the scan.
func (it *Iterator) query() js.Value {
	kr := js.Global().Get("IDBKeyRange")
	switch {
	case it.lower == nil && it.upper == nil:
		return js.Null()
	case it.upper == nil:
		return kr.Call("lowerBound", toJS(it.lower), it.lowerOpen)
	case it.lower == nil:
		return kr.Call("upperBound", toJS(it.upper), true)
	default:
		return kr.Call("bound", toJS(it.lower), toJS(it.upper), it.lowerOpen, true)
	}
}

// Key returns a copy: the stored bytes double as the batch resume point,
// so the caller must not be able to reach them.
func (it *Iterator) Key() []byte {
	if it.done || it.pos >= len(it.keys) {
		return nil
	}
	out := make([]byte, len(it.keys[it.pos]))
	copy(out, it.keys[it.pos])
	return out
}

func (it *Iterator) Value() ([]byte, error) {
	if it.done || it.pos >= len(it.values) {
		return nil, ErrIteratorInvalid
	}
	return db.Unframe(it.values[it.pos])
}

func (it *Iterator) Err() error {
	return it.err
}

func (it *Iterator) Close() error {
	it.done = true
	return nil
}
