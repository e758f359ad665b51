// Package database provides SQLite storage for the resource list.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openverse/openverse/internal/model"
	_ "modernc.org/sqlite"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Ensure DB implements Store interface.
var _ Store = (*DB)(nil)

// New opens or creates an SQLite database at the given path.
func New(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// Every connection to :memory: is a separate database.
	if path == ":memory:" {
		conn.SetMaxOpenConns(1)
	}
	// Enable WAL mode for better concurrency.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// DatabaseType returns the database backend name.
func (db *DB) DatabaseType() string {
	return "SQLite"
}

// SupportsHighConcurrency returns false, SQLite serialises writers.
func (db *DB) SupportsHighConcurrency() bool {
	return false
}

// Ping checks the connection.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS resource (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source_name TEXT NOT NULL,
		category TEXT NOT NULL,
		field TEXT NOT NULL,
		link TEXT,
		UNIQUE(source_name, category, field)
	);
	CREATE INDEX IF NOT EXISTS idx_resource_source_name ON resource(source_name);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// ListResources returns all resources ordered by source name.
func (db *DB) ListResources(ctx context.Context) ([]model.Resource, error) {
	rows, err := db.conn.QueryContext(ctx,
		"SELECT id, source_name, category, field, link FROM resource ORDER BY source_name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResources(rows)
}

// GetResource returns a single resource by ID.
func (db *DB) GetResource(ctx context.Context, id int64) (*model.Resource, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT id, source_name, category, field, link FROM resource WHERE id = ?", id)
	r, err := scanResource(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpsertResource inserts or updates a resource.
func (db *DB) UpsertResource(ctx context.Context, r *model.Resource) (bool, error) {
	link := nullableLink(r)
	if r.ID == 0 {
		err := db.conn.QueryRowContext(ctx,
			"SELECT id FROM resource WHERE source_name = ? AND category = ? AND field = ?",
			r.SourceName, r.Category, r.Field).Scan(&r.ID)
		if errors.Is(err, sql.ErrNoRows) {
			res, err := db.conn.ExecContext(ctx,
				"INSERT INTO resource (source_name, category, field, link) VALUES (?, ?, ?, ?)",
				r.SourceName, r.Category, r.Field, link)
			if err != nil {
				return false, err
			}
			r.ID, err = res.LastInsertId()
			return true, err
		}
		if err != nil {
			return false, err
		}
	}

	res, err := db.conn.ExecContext(ctx,
		"UPDATE resource SET source_name = ?, category = ?, field = ?, link = ? WHERE id = ?",
		r.SourceName, r.Category, r.Field, link, r.ID)
	if err != nil {
		return false, err
	}
	if affected, _ := res.RowsAffected(); affected > 0 {
		return false, nil
	}
	_, err = db.conn.ExecContext(ctx,
		"INSERT INTO resource (id, source_name, category, field, link) VALUES (?, ?, ?, ?, ?)",
		r.ID, r.SourceName, r.Category, r.Field, link)
	return err == nil, err
}

// DeleteResource removes a resource.
func (db *DB) DeleteResource(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, "DELETE FROM resource WHERE id = ?", id)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// CountResources returns the number of stored rows, valid or not.
func (db *DB) CountResources(ctx context.Context) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM resource").Scan(&n)
	return n, err
}
