package store

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrPlaylistExists is returned when creating or renaming onto a taken name.
var ErrPlaylistExists = errors.New("playlist already exists")

// maxPosition bounds open-ended position ranges.
const maxPosition = math.MaxInt32

type sqlStep struct {
	query string
	args  []any
}

// PlaylistItem is one entry of a stored playlist.
type PlaylistItem struct {
	Position int       `json:"position"`
	ObjectID string    `json:"object_id"`
	Title    string    `json:"title"`
	AddedAt  time.Time `json:"added_at"`
}

// PlaylistInfo describes a playlist and its play flags.
type PlaylistInfo struct {
	Name    string `json:"name"`
	Shuffle bool   `json:"shuffle"`
	Repeat  bool   `json:"repeat"`
	Items   int    `json:"items"`
}

const playlistInfoQuery = `
	SELECT p.name, p.shuffle, p.repeat, COUNT(i.id)
	FROM playlists p LEFT JOIN playlist_items i ON i.playlist = p.name
`

// Playlists returns every playlist ordered by name.
func (db *DB) Playlists() ([]PlaylistInfo, error) {
	rows, err := db.conn.Query(playlistInfoQuery + " GROUP BY p.name ORDER BY p.name")
	if err != nil {
		return nil, fmt.Errorf("listing playlists: %w", err)
	}
	defer rows.Close()

	var out []PlaylistInfo
	for rows.Next() {
		var p PlaylistInfo
		if err := rows.Scan(&p.Name, &p.Shuffle, &p.Repeat, &p.Items); err != nil {
			return nil, fmt.Errorf("scanning playlist: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Playlist returns one playlist. A name that was never created or
// appended to yields ErrNotFound.
func (db *DB) Playlist(name string) (PlaylistInfo, error) {
	var p PlaylistInfo
	err := db.conn.QueryRow(playlistInfoQuery+" WHERE p.name = ? GROUP BY p.name", name).
		Scan(&p.Name, &p.Shuffle, &p.Repeat, &p.Items)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return p, fmt.Errorf("%w: playlist %s", ErrNotFound, name)
		}
		return p, fmt.Errorf("querying playlist: %w", err)
	}
	return p, nil
}

// CreatePlaylist adds an empty playlist.
func (db *DB) CreatePlaylist(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("playlist name must not be empty")
	}
	res, err := db.conn.Exec("INSERT OR IGNORE INTO playlists (name) VALUES (?)", name)
	if err != nil {
		return fmt.Errorf("creating playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrPlaylistExists, name)
	}
	return nil
}

// DeletePlaylist removes a playlist and its entries.
func (db *DB) DeletePlaylist(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM playlist_items WHERE playlist = ?", name); err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting playlist items: %w", err)
	}
	res, err := tx.Exec("DELETE FROM playlists WHERE name = ?", name)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("deleting playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: playlist %s", ErrNotFound, name)
	}
	return tx.Commit()
}

// RenamePlaylist moves a playlist and its entries to a new name.
func (db *DB) RenamePlaylist(from, to string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("playlist name must not be empty")
	}
	if from == to {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	var taken int
	if err := tx.QueryRow("SELECT COUNT(*) FROM playlists WHERE name = ?", to).Scan(&taken); err != nil {
		tx.Rollback()
		return err
	}
	if taken > 0 {
		tx.Rollback()
		return fmt.Errorf("%w: %s", ErrPlaylistExists, to)
	}
	res, err := tx.Exec("UPDATE playlists SET name = ? WHERE name = ?", to, from)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("renaming playlist: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: playlist %s", ErrNotFound, from)
	}
	if _, err := tx.Exec("UPDATE playlist_items SET playlist = ? WHERE playlist = ?", to, from); err != nil {
		tx.Rollback()
		return fmt.Errorf("renaming playlist items: %w", err)
	}
	return tx.Commit()
}

// SetShuffle stores the shuffle flag, creating the playlist if needed.
func (db *DB) SetShuffle(name string, on bool) error {
	return db.setFlag(name, "shuffle", on)
}

// SetRepeat stores the repeat flag, creating the playlist if needed.
func (db *DB) SetRepeat(name string, on bool) error {
	return db.setFlag(name, "repeat", on)
}

func (db *DB) setFlag(name, column string, on bool) error {
	_, err := db.conn.Exec(`
		INSERT INTO playlists (name, `+column+`) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET `+column+` = excluded.`+column,
		name, on)
	if err != nil {
		return fmt.Errorf("setting %s on %s: %w", column, name, err)
	}
	return nil
}

// Items returns a playlist's entries in order.
func (db *DB) Items(playlist string) ([]PlaylistItem, error) {
	rows, err := db.conn.Query(`
		SELECT position, object_id, title, added_at
		FROM playlist_items WHERE playlist = ? ORDER BY position
	`, playlist)
	if err != nil {
		return nil, fmt.Errorf("listing playlist items: %w", err)
	}
	defer rows.Close()

	var out []PlaylistItem
	for rows.Next() {
		var it PlaylistItem
		if err := rows.Scan(&it.Position, &it.ObjectID, &it.Title, &it.AddedAt); err != nil {
			return nil, fmt.Errorf("scanning playlist item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// Append adds an entry to the end of a playlist, creating the playlist if
// needed, and returns its position.
func (db *DB) Append(playlist, objectID, title string) (int, error) {
	tx, err := db.conn.Begin()
	if err != nil {
		return 0, err
	}
	if _, err := tx.Exec("INSERT OR IGNORE INTO playlists (name) VALUES (?)", playlist); err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("creating playlist: %w", err)
	}
	var pos int
	err = tx.QueryRow(`
		INSERT INTO playlist_items (playlist, position, object_id, title, added_at)
		SELECT ?, COALESCE(MAX(position) + 1, 0), ?, ?, ?
		FROM playlist_items WHERE playlist = ?
		RETURNING position
	`, playlist, objectID, title, time.Now(), playlist).Scan(&pos)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("appending to playlist: %w", err)
	}
	return pos, tx.Commit()
}

// shiftSteps moves the positions in [lo, hi] by delta. Rows pass through
// negative positions first so the unique (playlist, position) index never
// sees two rows on one slot. Position -1 is left free for a parked row.
func shiftSteps(playlist string, lo, hi, delta int) []sqlStep {
	return []sqlStep{
		{"UPDATE playlist_items SET position = -(position + ?) - 2 WHERE playlist = ? AND position >= ? AND position <= ?",
			[]any{delta, playlist, lo, hi}},
		{"UPDATE playlist_items SET position = -position - 2 WHERE playlist = ? AND position <= -2",
			[]any{playlist}},
	}
}

func execSteps(tx *sql.Tx, steps []sqlStep) error {
	for _, s := range steps {
		if _, err := tx.Exec(s.query, s.args...); err != nil {
			return err
		}
	}
	return nil
}

// RemoveAt deletes the entry at position and closes the gap.
func (db *DB) RemoveAt(playlist string, position int) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	res, err := tx.Exec("DELETE FROM playlist_items WHERE playlist = ? AND position = ?", playlist, position)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("removing playlist item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return fmt.Errorf("%w: position %d in %s", ErrNotFound, position, playlist)
	}
	if err := execSteps(tx, shiftSteps(playlist, position+1, maxPosition, -1)); err != nil {
		tx.Rollback()
		return fmt.Errorf("renumbering playlist: %w", err)
	}
	return tx.Commit()
}

// Move relocates the entry at from to position to, shifting the entries
// in between.
func (db *DB) Move(playlist string, from, to int) error {
	if from == to {
		return nil
	}
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	var count int
	if err := tx.QueryRow("SELECT COUNT(*) FROM playlist_items WHERE playlist = ?", playlist).Scan(&count); err != nil {
		tx.Rollback()
		return err
	}
	if from < 0 || from >= count || to < 0 || to >= count {
		tx.Rollback()
		return fmt.Errorf("%w: move %d -> %d in %s (%d items)", ErrNotFound, from, to, playlist, count)
	}

	// Park the moved row at -1 so the shift does not collide with it.
	shift := shiftSteps(playlist, from+1, to, -1)
	if from > to {
		shift = shiftSteps(playlist, to, from-1, 1)
	}
	steps := []sqlStep{{"UPDATE playlist_items SET position = -1 WHERE playlist = ? AND position = ?", []any{playlist, from}}}
	steps = append(steps, shift...)
	steps = append(steps, sqlStep{"UPDATE playlist_items SET position = ? WHERE playlist = ? AND position = -1", []any{to, playlist}})

	if err := execSteps(tx, steps); err != nil {
		tx.Rollback()
		return fmt.Errorf("moving playlist item: %w", err)
	}
	return tx.Commit()
}

// Clear empties a playlist. The playlist itself and its flags remain.
func (db *DB) Clear(playlist string) error {
	if _, err := db.conn.Exec("DELETE FROM playlist_items WHERE playlist = ?", playlist); err != nil {
		return fmt.Errorf("clearing playlist: %w", err)
	}
	return nil
}
