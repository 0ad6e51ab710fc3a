package store

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Durability selects how the native engine acknowledges writes. It has no
// effect in the browser, where the host flushes on its own schedule.
type Durability string

const (
	// DurabilitySync waits for the write-ahead log to reach stable storage
	// before a write returns. The default.
	DurabilitySync Durability = "sync"
	// DurabilityAsync acknowledges writes once applied in memory.
	DurabilityAsync Durability = "async"
)

func (d Durability) validate() error {
	switch d {
	case "", DurabilitySync, DurabilityAsync:
		return nil
	default:
		return fmt.Errorf("%w: unknown durability %q", ErrInvalidLocation, string(d))
	}
}

// Location names the physical storage a Store opens. Path addresses an
// on-disk directory and applies natively; Database names a browser database
// and applies on js/wasm. Fields for the other target are ignored, so one
// Location can serve both builds. A missing location is created on open.
type Location struct {
	Path       string     `yaml:"path"`
	Database   string     `yaml:"database"`
	Durability Durability `yaml:"durability"`
}

// LocationFromFile reads a Location from a YAML document with the fields
// path, database and durability.
func LocationFromFile(path string) (Location, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Location{}, fmt.Errorf("read location file: %w", err)
	}

	var loc Location
	if err := yaml.Unmarshal(data, &loc); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrInvalidLocation, err)
	}
	if err := loc.Durability.validate(); err != nil {
		return Location{}, err
	}
	return loc, nil
}
