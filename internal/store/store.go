// Package store defines the interface the rest of the system uses to talk
// to the assignment store, whichever backend (Notion API, local SQLite)
// is configured.
package store

import (
	"context"
	"errors"

	"github.com/duebot/duebot/internal/assignment"
)

// ErrUnavailable wraps network or auth failures from a store backend.
// Callers treat it as non-fatal: the failing row is reported and the batch
// continues.
var ErrUnavailable = errors.New("store unavailable")

// Store is the external document-store collaborator. Implementations do
// not retry; a failed call surfaces to the caller.
type Store interface {
	// Create uploads one assignment record.
	Create(ctx context.Context, a assignment.Assignment) error

	// All fetches every record for building a query snapshot. Records the
	// backend holds in an unreadable shape are skipped, not fatal.
	All(ctx context.Context) ([]assignment.Assignment, error)

	// Keys returns the natural keys of every record currently present,
	// used by the ingestion pipeline's dedup check.
	Keys(ctx context.Context) (map[assignment.Key]struct{}, error)
}

// KeySet builds a key set from a record slice; backends without a cheaper
// native query implement Keys with it.
func KeySet(records []assignment.Assignment) map[assignment.Key]struct{} {
	keys := make(map[assignment.Key]struct{}, len(records))
	for _, a := range records {
		keys[assignment.KeyOf(a)] = struct{}{}
	}
	return keys
}
