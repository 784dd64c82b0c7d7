// Package store persists the media catalog and playlists in sqlite.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQLite database holding catalog objects and playlists
type DB struct {
	conn *sql.DB
	path string
}

// Open opens or creates the database at the given path
func Open(dbPath string) (*DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Immediate transactions take the write lock up front so concurrent
	// writers queue on the busy timeout instead of failing on upgrade.
	conn, err := sql.Open("sqlite3", dbPath+"?_txlock=immediate&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, path: dbPath}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// Path returns the database file path
func (db *DB) Path() string {
	return db.path
}

func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1},
		{2, migrationV2},
	}

	for _, m := range migrations {
		if m.version > currentVersion {
			if _, err := db.conn.Exec(m.sql); err != nil {
				return fmt.Errorf("migration v%d: %w", m.version, err)
			}
			if _, err := db.conn.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
				return fmt.Errorf("recording migration v%d: %w", m.version, err)
			}
		}
	}

	return nil
}

const migrationV1 = `
-- Catalog sources imported from local trees
CREATE TABLE IF NOT EXISTS catalog_sources (
    uuid TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    root TEXT NOT NULL,
    imported_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- One row per object; path is relative to the source root, "" is the root
CREATE TABLE IF NOT EXISTS catalog_objects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    source_uuid TEXT NOT NULL REFERENCES catalog_sources(uuid) ON DELETE CASCADE,
    path TEXT NOT NULL,
    parent TEXT NOT NULL,
    title TEXT NOT NULL,
    mime TEXT NOT NULL,
    uri TEXT,
    UNIQUE(source_uuid, path)
);

CREATE INDEX IF NOT EXISTS idx_objects_parent ON catalog_objects(source_uuid, parent);

CREATE TABLE IF NOT EXISTS playlist_items (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    playlist TEXT NOT NULL,
    position INTEGER NOT NULL,
    object_id TEXT NOT NULL,
    title TEXT NOT NULL,
    added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_playlist_position ON playlist_items(playlist, position);
`

const migrationV2 = `
-- Playlists exist on their own so empty ones survive and carry play flags
CREATE TABLE IF NOT EXISTS playlists (
    name TEXT PRIMARY KEY,
    shuffle INTEGER NOT NULL DEFAULT 0,
    repeat INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

INSERT OR IGNORE INTO playlists (name) SELECT DISTINCT playlist FROM playlist_items;

DROP INDEX IF EXISTS idx_playlist_position;
CREATE UNIQUE INDEX IF NOT EXISTS idx_playlist_position ON playlist_items(playlist, position);

-- Imports write into a staging source and swap it in when complete
ALTER TABLE catalog_sources ADD COLUMN staging INTEGER NOT NULL DEFAULT 0;
`
