// Package database provides storage backends for the resource list.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/openverse/openverse/internal/config"
	"github.com/openverse/openverse/internal/model"
)

// ErrNotFound is returned when a resource does not exist.
var ErrNotFound = errors.New("resource not found")

// Store defines the interface for database operations.
// Both SQLite and PostgreSQL implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the database backend ("SQLite" or "PostgreSQL").
	DatabaseType() string

	// SupportsHighConcurrency returns true if the database can handle
	// many concurrent write operations (e.g., PostgreSQL).
	SupportsHighConcurrency() bool

	Ping(ctx context.Context) error

	// ListResources returns every valid resource ordered by source name, then ID.
	ListResources(ctx context.Context) ([]model.Resource, error)
	GetResource(ctx context.Context, id int64) (*model.Resource, error)
	// UpsertResource inserts or updates r and sets r.ID. Without an ID the
	// resource is matched on source name, category and field.
	// The boolean reports whether a new row was created.
	UpsertResource(ctx context.Context, r *model.Resource) (bool, error)
	DeleteResource(ctx context.Context, id int64) error
	CountResources(ctx context.Context) (int, error)
}

// Open opens the backend selected by cfg.
func Open(cfg config.Config) (Store, error) {
	switch cfg.Database.Driver {
	case config.DriverSQLite:
		return New(cfg.Database.Path)
	case config.DriverPostgres:
		return NewPostgres(cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// scanResources reads id, source_name, category, field, link rows.
// Rows that fail validation are logged and skipped.
func scanResources(rows *sql.Rows) ([]model.Resource, error) {
	resources := []model.Resource{}
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		if err := r.Validate(); err != nil {
			log.Warn().Err(err).Int64("id", r.ID).Msg("Skipping invalid resource row")
			continue
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (model.Resource, error) {
	var r model.Resource
	var link sql.NullString
	if err := row.Scan(&r.ID, &r.SourceName, &r.Category, &r.Field, &link); err != nil {
		return r, err
	}
	r.Link = model.NewLink(link.String)
	return r, nil
}

func nullableLink(r *model.Resource) sql.NullString {
	link, ok := r.Link.Get()
	return sql.NullString{String: link, Valid: ok}
}
