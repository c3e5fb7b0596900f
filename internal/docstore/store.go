package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no document exists at (path, id).
var ErrNotFound = errors.New("document not found")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("store closed")

// Store is a document store with a change feed.
//
// Implementations: SQLStore (SQLite or PostgreSQL) and remote.Client.
type Store interface {
	// Set upserts value at (path, id), replacing any previous value.
	Set(ctx context.Context, path Path, id string, value Record) error

	// Get returns the document at (path, id) or ErrNotFound.
	Get(ctx context.Context, path Path, id string) (Record, error)

	// Delete removes the document at (path, id).
	// Returns nil if the document doesn't exist (idempotent).
	Delete(ctx context.Context, path Path, id string) error

	// List returns every document under path in arrival order.
	List(ctx context.Context, path Path) ([]Record, error)

	// Subscribe registers fn for changes under path (the zero Path
	// subscribes to everything). Callbacks for one store are delivered
	// sequentially in commit order. The returned cancel func is idempotent;
	// fn is never called after cancel returns.
	Subscribe(path Path, fn func(Change)) (cancel func())

	// Close releases the store.
	Close() error
}
