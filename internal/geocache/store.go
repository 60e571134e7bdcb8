// Package geocache is the single source of truth mapping normalized
// addresses to resolved coordinates. Entries persist across runs in a
// durable store loaded at process start; failed resolutions are never
// cached so later runs can retry them.
package geocache

import (
	"context"
	"fmt"

	"github.com/kwparking/parksafe/internal/model"
)

// StorageError reports a cache persistence failure. A load failure is fatal
// for the run; a single write failure degrades the cache to in-memory
// operation and is reported through Degraded and the logs.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("geocache storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Store is the durable backend for geocode entries, keyed by normalized
// address. Implementations must support load-all-on-start and
// upsert-on-write; writes touch single keys only, never read-modify-write
// across unrelated keys.
type Store interface {
	// LoadAll reads every persisted entry.
	LoadAll(ctx context.Context) (map[string]model.GeocodeEntry, error)

	// Upsert inserts or replaces the entry for its address.
	Upsert(ctx context.Context, entry model.GeocodeEntry) error

	// Clear removes all entries, returning the number deleted.
	Clear(ctx context.Context) (int, error)

	Close() error
}
