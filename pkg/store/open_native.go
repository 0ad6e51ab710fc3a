//go:build !js

package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/eigerco/bramble/pkg/codec"
	"github.com/eigerco/bramble/pkg/db/pebble"
	"github.com/eigerco/bramble/pkg/log"
)

// Open connects to the embedded engine at loc.Path, creating the directory
// on first use. Records are encoded with MessagePack. Writes are durable by
// default; set Durability to async to trade crash safety for throughput.
func Open(ctx context.Context, loc Location) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if loc.Path == "" {
		return nil, fmt.Errorf("%w: path is required", ErrInvalidLocation)
	}
	if err := loc.Durability.validate(); err != nil {
		return nil, err
	}

	id, err := locationID(loc)
	if err != nil {
		return nil, err
	}
	if err := claimLocation(id); err != nil {
		return nil, err
	}

	backend, err := pebble.New(loc.Path, loc.Durability != DurabilityAsync)
	if err != nil {
		releaseLocation(id)
		return nil, err
	}
	log.Store.Debug().Str("path", loc.Path).Msg("opened store")

	return &Store{backend: backend, codec: &codec.MsgpackCodec{}, id: id}, nil
}

// locationID is the open-handle identity of a native location: its absolute
// path, so two spellings of one directory conflict.
func locationID(loc Location) (string, error) {
	if loc.Path == "" {
		return "", nil
	}
	abs, err := filepath.Abs(loc.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	return abs, nil
}
