//go:build js && wasm

// Package indexeddb adapts the browser's IndexedDB to the db.Backend
// interface. Partitions map to object stores one-to-one. Keys are stored
// out of line as Uint8Arrays, which IndexedDB orders bytewise, matching the
// native engine. Object stores can only be created or removed inside a
// versionchange transaction, so those paths close the connection and reopen
// it at the next version.
package indexeddb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"syscall/js"

	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/log"
)

var (
	errAborted         = errors.New("indexeddb: transaction aborted")
	ErrIteratorInvalid = errors.New("indexeddb: iterator is not positioned on a key")
)

// Backend is the browser storage engine adapter.
type Backend struct {
	name   string
	mu     sync.RWMutex
	conn   js.Value
	closed bool
}

// New connects to the IndexedDB database called name, creating it on first
// use.
func New(ctx context.Context, name string) (*Backend, error) {
	conn, err := openDatabase(ctx, name, 0, nil)
	if err != nil {
		return nil, err
	}
	log.Backend.Debug().Str("database", name).Msg("opened indexeddb database")
	return &Backend{name: name, conn: conn}, nil
}

// connection returns the live connection handle.
func (b *Backend) connection() (js.Value, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return js.Value{}, db.ErrClosed
	}
	return b.conn, nil
}

func hasStore(conn js.Value, partition string) bool {
	return conn.Get("objectStoreNames").Call("contains", partition).Bool()
}

func (b *Backend) Get(ctx context.Context, partition string, key []byte) ([]byte, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !hasStore(conn, partition) {
		return nil, db.ErrNotFound
	}

	var req js.Value
	err = try(func() {
		tx := conn.Call("transaction", partition, "readonly")
		req = tx.Call("objectStore", partition).Call("get", toJS(key))
	})
	if err != nil {
		return nil, fmt.Errorf("get from %q: %w", partition, err)
	}

	result, err := await(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get from %q: %w", partition, err)
	}
	if result.IsUndefined() {
		return nil, db.ErrNotFound
	}
	return db.Unframe(toBytes(result))
}

func (b *Backend) Put(ctx context.Context, partition string, key, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.ensureStore(ctx, partition); err != nil {
		return err
	}
	conn, err := b.connection()
	if err != nil {
		return err
	}

	var tx js.Value
	err = try(func() {
		tx = conn.Call("transaction", partition, "readwrite")
		tx.Call("objectStore", partition).Call("put", toJS(db.Frame(value)), toJS(key))
	})
	if err != nil {
		return fmt.Errorf("put into %q: %w", partition, err)
	}
	if err := awaitTx(ctx, tx); err != nil {
		return fmt.Errorf("put into %q: %w", partition, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, partition string, key []byte) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if !hasStore(conn, partition) {
		return nil
	}

	var tx js.Value
	err = try(func() {
		tx = conn.Call("transaction", partition, "readwrite")
		tx.Call("objectStore", partition).Call("delete", toJS(key))
	})
	if err != nil {
		return fmt.Errorf("delete from %q: %w", partition, err)
	}
	if err := awaitTx(ctx, tx); err != nil {
		return fmt.Errorf("delete from %q: %w", partition, err)
	}
	return nil
}

func (b *Backend) Count(ctx context.Context, partition string) (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !hasStore(conn, partition) {
		return 0, nil
	}

	var req js.Value
	err = try(func() {
		tx := conn.Call("transaction", partition, "readonly")
		req = tx.Call("objectStore", partition).Call("count")
	})
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", partition, err)
	}

	result, err := await(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", partition, err)
	}
	return result.Int(), nil
}

func (b *Backend) DropPartition(ctx context.Context, partition string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return db.ErrClosed
	}
	if !hasStore(b.conn, partition) {
		return nil
	}
	return b.reopenLocked(ctx, func(conn js.Value) {
		conn.Call("deleteObjectStore", partition)
	})
}

// Close releases the connection. Closing twice is a no-op.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	return try(func() { b.conn.Call("close") })
}

// ensureStore creates the partition's object store if it is missing.
func (b *Backend) ensureStore(ctx context.Context, partition string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return db.ErrClosed
	}
	if hasStore(b.conn, partition) {
		return nil
	}
	log.Backend.Debug().Str("database", b.name).Str("partition", partition).Msg("creating object store")
	return b.reopenLocked(ctx, func(conn js.Value) {
		conn.Call("createObjectStore", partition)
	})
}

// reopenLocked bumps the database version to run upgrade inside a
// versionchange transaction. Callers hold mu.
func (b *Backend) reopenLocked(ctx context.Context, upgrade func(conn js.Value)) error {
	version := b.conn.Get("version").Int()
	b.conn.Call("close")

	conn, err := openDatabase(ctx, b.name, version+1, upgrade)
	if err != nil {
		// best effort restore of a usable connection
		if restored, rerr := openDatabase(context.Background(), b.name, 0, nil); rerr == nil {
			b.conn = restored
		}
		return err
	}
	b.conn = conn
	return nil
}
