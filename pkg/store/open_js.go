//go:build js && wasm

package store

import (
	"context"
	"fmt"

	"github.com/eigerco/bramble/pkg/codec"
	"github.com/eigerco/bramble/pkg/db/indexeddb"
	"github.com/eigerco/bramble/pkg/log"
)

// Open connects to the browser database named by loc.Database, creating it
// on first use. Records are encoded as JSON, the host's structured value
// model. Durability is the host's concern and loc.Durability is ignored.
func Open(ctx context.Context, loc Location) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if loc.Database == "" {
		return nil, fmt.Errorf("%w: database is required", ErrInvalidLocation)
	}

	id, err := locationID(loc)
	if err != nil {
		return nil, err
	}
	if err := claimLocation(id); err != nil {
		return nil, err
	}

	backend, err := indexeddb.New(ctx, loc.Database)
	if err != nil {
		releaseLocation(id)
		return nil, err
	}
	log.Store.Debug().Str("database", loc.Database).Msg("opened store")

	return &Store{backend: backend, codec: &codec.JSONCodec{}, id: id}, nil
}

// locationID is the open-handle identity of a browser location: the
// database name.
func locationID(loc Location) (string, error) {
	return loc.Database, nil
}
