// Package store is the typed surface over the raw storage backends. A Store
// owns one backend connection and one codec for its lifetime; collections
// carve the backend's key space into named, typed partitions.
//
// The same application code runs against the embedded native engine and the
// browser's object store: Open selects the backend and codec for the build
// target, and every operation takes a context and blocks only the calling
// goroutine.
package store

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/eigerco/bramble/pkg/codec"
	"github.com/eigerco/bramble/pkg/db"
	"github.com/eigerco/bramble/pkg/log"
)

// Store is an open connection to one storage location.
type Store struct {
	backend db.Backend
	codec   codec.Codec
	id      string
	closed  atomic.Bool
}

// Only one Store per location identity may be open in a process at a time.
// Natively pebble's directory LOCK file enforces the same rule across
// processes.
var (
	openMu        sync.Mutex
	openLocations = make(map[string]struct{})
)

func claimLocation(id string) error {
	openMu.Lock()
	defer openMu.Unlock()

	if _, taken := openLocations[id]; taken {
		return fmt.Errorf("%w: %s", ErrAlreadyOpen, id)
	}
	openLocations[id] = struct{}{}
	return nil
}

func releaseLocation(id string) {
	if id == "" {
		return
	}
	openMu.Lock()
	defer openMu.Unlock()
	delete(openLocations, id)
}

// OpenWith builds a Store around a caller-supplied backend and codec. The
// location contributes only the open-handle identity; leave it zero for an
// unregistered store. On error the caller keeps ownership of the backend.
func OpenWith(ctx context.Context, loc Location, backend db.Backend, c codec.Codec) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id, err := locationID(loc)
	if err != nil {
		return nil, err
	}
	if id != "" {
		if err := claimLocation(id); err != nil {
			return nil, err
		}
	}
	return &Store{backend: backend, codec: c, id: id}, nil
}

// Close releases the backend connection and the location's open-handle slot.
// Closing twice is a no-op; operations on collections of a closed Store
// return db.ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	releaseLocation(s.id)
	log.Store.Debug().Str("location", s.id).Msg("closed store")
	return s.backend.Close()
}

// DropCollection removes the named collection and all records in it.
// Dropping a collection that was never written is a no-op. Secondary index
// partitions are separate collections and are dropped separately.
func (s *Store) DropCollection(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := s.backend.DropPartition(ctx, name); err != nil {
		return fmt.Errorf("drop collection %q: %w", name, err)
	}
	log.Store.Debug().Str("collection", name).Msg("dropped collection")
	return nil
}
