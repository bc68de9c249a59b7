// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// The collection lives in a single embedded database file, no server to run
// next to the binary. We use modernc.org/sqlite, a pure Go translation of the
// SQLite C code, so the project cross-compiles without CGo.
//
// CONSISTENCY NOTE:
// SQLite commits are immediately visible to subsequent reads on the same
// database. The handlers rely on this: a POST to /add redirects straight to
// /coleccion and the new row must be in that listing. There is no delay or
// retry anywhere between a write and the follow-up read.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
// The driver doesn't export a sentinel for this, so we match the message;
// the constraint name appears after the fixed "UNIQUE constraint failed" text.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// DB wraps a sql.DB connection pool and implements the repository interfaces.
// New creates it, Close releases it; the server owns the lifecycle.
type DB struct {
	conn *sql.DB
}

// New opens (or creates) the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/ludoteca.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (used by the tests)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// sql.Open doesn't touch the file; Ping surfaces a bad path or
	// permissions problem now instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL allows concurrent reads while a write is in flight: one request
	// adding a game must not block another request rendering the listing.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity for games.owner_id → users.id.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
//
// Numeric entity keys come from INTEGER PRIMARY KEY AUTOINCREMENT: the store
// assigns them at insert time and never reuses one after a delete, so a stale
// /del?id= link can never hit a recycled key.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			provider_id TEXT NOT NULL UNIQUE,
			name        TEXT NOT NULL,
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS games (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			title       TEXT NOT NULL,
			developer   TEXT NOT NULL,
			platform    TEXT NOT NULL,
			owner_id    INTEGER NOT NULL REFERENCES users(id),
			rating      INTEGER,
			cover_image BLOB,
			added_date  DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_games_added_date ON games(added_date);
		CREATE INDEX IF NOT EXISTS idx_games_owner_id ON games(owner_id);
	`)
	if err != nil {
		return fmt.Errorf("creating games table: %w", err)
	}

	return nil
}
