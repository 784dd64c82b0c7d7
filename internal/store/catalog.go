package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a catalog object or source does not exist.
var ErrNotFound = errors.New("not found")

// CatalogSource is an imported tree registered as a browsable source.
type CatalogSource struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Root string `json:"root"`
}

// Object is one catalog entry.
type Object struct {
	Path   string // relative to the source root, "" for the root
	Parent string
	Title  string
	MIME   string
	URI    string
}

// UpsertSource records a catalog source, replacing its name and root.
func (db *DB) UpsertSource(s CatalogSource) error {
	_, err := db.conn.Exec(`
		INSERT INTO catalog_sources (uuid, name, root) VALUES (?, ?, ?)
		ON CONFLICT(uuid) DO UPDATE SET
			name = excluded.name,
			root = excluded.root,
			staging = 0,
			imported_at = CURRENT_TIMESTAMP
	`, s.UUID, s.Name, s.Root)
	if err != nil {
		return fmt.Errorf("upserting catalog source: %w", err)
	}
	return nil
}

// BeginStaging registers a hidden source that an import fills before it
// replaces the real one with PromoteStaging.
func (db *DB) BeginStaging(stagingUUID, root string) error {
	_, err := db.conn.Exec(
		"INSERT INTO catalog_sources (uuid, name, root, staging) VALUES (?, ?, ?, 1)",
		stagingUUID, "staging", root)
	if err != nil {
		return fmt.Errorf("creating staging source: %w", err)
	}
	return nil
}

// PromoteStaging replaces the objects of target with those of the staging
// source and drops the staging source, all in one transaction.
func (db *DB) PromoteStaging(stagingUUID string, target CatalogSource) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	steps := []sqlStep{
		{`INSERT INTO catalog_sources (uuid, name, root) VALUES (?, ?, ?)
		  ON CONFLICT(uuid) DO UPDATE SET
			name = excluded.name,
			root = excluded.root,
			staging = 0,
			imported_at = CURRENT_TIMESTAMP`, []any{target.UUID, target.Name, target.Root}},
		{"DELETE FROM catalog_objects WHERE source_uuid = ?", []any{target.UUID}},
		{"UPDATE catalog_objects SET source_uuid = ? WHERE source_uuid = ?", []any{target.UUID, stagingUUID}},
		{"DELETE FROM catalog_sources WHERE uuid = ? AND staging = 1", []any{stagingUUID}},
	}
	for _, s := range steps {
		if _, err := tx.Exec(s.query, s.args...); err != nil {
			tx.Rollback()
			return fmt.Errorf("promoting staged catalog: %w", err)
		}
	}
	return tx.Commit()
}

// StagingSources lists the uuids of staging sources left behind by imports
// that never finished.
func (db *DB) StagingSources() ([]string, error) {
	rows, err := db.conn.Query("SELECT uuid FROM catalog_sources WHERE staging = 1 ORDER BY uuid")
	if err != nil {
		return nil, fmt.Errorf("listing staging sources: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// DeleteSource removes a catalog source and its objects.
func (db *DB) DeleteSource(sourceUUID string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM catalog_objects WHERE source_uuid = ?", sourceUUID); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting catalog objects: %w", err)
	}
	res, err := tx.Exec("DELETE FROM catalog_sources WHERE uuid = ?", sourceUUID)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting catalog source: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: catalog %s", ErrNotFound, sourceUUID)
	}
	return tx.Commit()
}

// CatalogSources lists imported sources ordered by name.
func (db *DB) CatalogSources() ([]CatalogSource, error) {
	rows, err := db.conn.Query("SELECT uuid, name, root FROM catalog_sources WHERE staging = 0 ORDER BY name, uuid")
	if err != nil {
		return nil, fmt.Errorf("listing catalog sources: %w", err)
	}
	defer rows.Close()

	var out []CatalogSource
	for rows.Next() {
		var s CatalogSource
		if err := rows.Scan(&s.UUID, &s.Name, &s.Root); err != nil {
			return nil, fmt.Errorf("scanning catalog source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// DeleteObjects removes every object of a source.
func (db *DB) DeleteObjects(sourceUUID string) error {
	if _, err := db.conn.Exec("DELETE FROM catalog_objects WHERE source_uuid = ?", sourceUUID); err != nil {
		return fmt.Errorf("deleting catalog objects: %w", err)
	}
	return nil
}

// InsertObjects writes a batch of objects in one transaction.
func (db *DB) InsertObjects(sourceUUID string, objs []Object) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	stmt, err := tx.Prepare(`
		INSERT INTO catalog_objects (source_uuid, path, parent, title, mime, uri)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_uuid, path) DO UPDATE SET
			parent = excluded.parent,
			title = excluded.title,
			mime = excluded.mime,
			uri = excluded.uri
	`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range objs {
		if _, err := stmt.Exec(sourceUUID, o.Path, o.Parent, o.Title, o.MIME, o.URI); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting %s: %w", o.Path, err)
		}
	}
	return tx.Commit()
}

// Children returns the children of parent ordered containers first, then
// by title. count <= 0 returns all remaining rows.
func (db *DB) Children(sourceUUID, parent string, skip, count int) ([]Object, error) {
	if count <= 0 {
		count = -1
	}
	rows, err := db.conn.Query(`
		SELECT path, parent, title, mime, COALESCE(uri, '')
		FROM catalog_objects
		WHERE source_uuid = ? AND parent = ? AND path != ''
		ORDER BY CASE WHEN mime = 'x-mafw/container' THEN 0 ELSE 1 END, title, path
		LIMIT ? OFFSET ?
	`, sourceUUID, parent, count, skip)
	if err != nil {
		return nil, fmt.Errorf("querying children: %w", err)
	}
	defer rows.Close()

	var out []Object
	for rows.Next() {
		var o Object
		if err := rows.Scan(&o.Path, &o.Parent, &o.Title, &o.MIME, &o.URI); err != nil {
			return nil, fmt.Errorf("scanning object: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Object looks up one object by path.
func (db *DB) Object(sourceUUID, path string) (*Object, error) {
	var o Object
	err := db.conn.QueryRow(`
		SELECT path, parent, title, mime, COALESCE(uri, '')
		FROM catalog_objects WHERE source_uuid = ? AND path = ?
	`, sourceUUID, path).Scan(&o.Path, &o.Parent, &o.Title, &o.MIME, &o.URI)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("querying object: %w", err)
	}
	return &o, nil
}
