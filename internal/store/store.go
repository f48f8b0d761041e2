// Package store defines the reading persistence interface and its SQLite
// and Postgres backends.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/waterlogd/waterlog/internal/types"
	"github.com/waterlogd/waterlog/pkg/config"
)

// ErrNotFound is returned when a reading id does not exist in the store.
var ErrNotFound = errors.New("reading not found")

// ReadingStore is the persistence interface for meter readings. List
// returns readings in chronological order, with insertion order breaking
// timestamp ties, which the stats engine relies on for its bracket
// tie-break.
type ReadingStore interface {
	AddReading(ctx context.Context, r *types.Reading) error
	UpdateReading(ctx context.Context, r *types.Reading) error
	DeleteReading(ctx context.Context, id string) error
	GetReading(ctx context.Context, id string) (*types.Reading, error)
	ListReadings(ctx context.Context) ([]types.Reading, error)
	LatestReading(ctx context.Context) (*types.Reading, error)
	Close() error
}

// New creates the reading store configured by c
func New(c *config.StorageData) (ReadingStore, error) {
	switch c.Backend {
	case "", "sqlite":
		return NewSQLiteStore(c.SQLite.Path)
	case "postgres":
		return NewPostgresStore(c.Postgres.ConnectionString)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s. Use 'sqlite' or 'postgres'", c.Backend)
	}
}
