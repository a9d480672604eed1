// Package sqlite provides the public API for the SQLite story store.
// This package exposes the factory function for opening a store while
// keeping implementation details internal.
package sqlite

import (
	"context"

	"github.com/mesh-intelligence/stories/internal/sqlite"
	"github.com/mesh-intelligence/stories/pkg/types"
)

// Store is a types.Store that owns a database connection.
type Store interface {
	types.Store
	// Path returns the database file location.
	Path() string
	Close() error
}

// Open opens (creating if needed) the SQLite store under config.DataDir.
//
// Example:
//
//	store, err := sqlite.Open(ctx, types.Config{
//	    DataDir: ".stories-db",
//	    Rules:   types.DefaultRules(),
//	})
//	defer store.Close()
func Open(ctx context.Context, config types.Config) (Store, error) {
	b, err := sqlite.Open(ctx, config)
	if err != nil {
		return nil, err
	}
	return b, nil
}
