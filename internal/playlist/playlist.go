// Package playlist edits one named playlist kept in the store.
package playlist

import (
	"errors"
	"fmt"

	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/store"
)

// DefaultName is used when no playlist is configured.
const DefaultName = "default"

// Playlist is a named list of object ids.
type Playlist struct {
	db   *store.DB
	name string
}

func New(db *store.DB, name string) *Playlist {
	if name == "" {
		name = DefaultName
	}
	return &Playlist{db: db, name: name}
}

func (p *Playlist) Name() string { return p.name }

// Create adds an empty playlist and binds a Playlist to it.
func Create(db *store.DB, name string) (*Playlist, error) {
	if err := db.CreatePlaylist(name); err != nil {
		return nil, err
	}
	return New(db, name), nil
}

// Switch rebinds p to another playlist. Anyone holding p, such as the
// browser enqueueing into it, follows.
func (p *Playlist) Switch(name string) {
	if name == "" {
		name = DefaultName
	}
	debug.Log("playlist: switching %s -> %s", p.name, name)
	p.name = name
}

// All lists every stored playlist.
func (p *Playlist) All() ([]store.PlaylistInfo, error) {
	return p.db.Playlists()
}

// Info returns the playlist's flags and size. A playlist nobody created
// yet reads as empty with both flags off.
func (p *Playlist) Info() (store.PlaylistInfo, error) {
	info, err := p.db.Playlist(p.name)
	if errors.Is(err, store.ErrNotFound) {
		return store.PlaylistInfo{Name: p.name}, nil
	}
	return info, err
}

func (p *Playlist) SetShuffle(on bool) error { return p.db.SetShuffle(p.name, on) }
func (p *Playlist) SetRepeat(on bool) error  { return p.db.SetRepeat(p.name, on) }

// Rename renames the bound playlist and follows it.
func (p *Playlist) Rename(to string) error {
	if err := p.db.RenamePlaylist(p.name, to); err != nil {
		return err
	}
	p.name = to
	return nil
}

// Delete removes the bound playlist. p stays bound to the name, which
// reads as empty until something is enqueued again.
func (p *Playlist) Delete() error {
	return p.db.DeletePlaylist(p.name)
}

// Enqueue appends an item to the end of the playlist.
func (p *Playlist) Enqueue(objectID, title string) error {
	if _, _, err := objectid.Split(objectID); err != nil {
		return err
	}
	if title == "" {
		title = objectID
	}
	pos, err := p.db.Append(p.name, objectID, title)
	if err != nil {
		return fmt.Errorf("playlist %s: %w", p.name, err)
	}
	debug.Log("playlist %s: %s at %d", p.name, objectID, pos)
	return nil
}

func (p *Playlist) Items() ([]store.PlaylistItem, error) {
	return p.db.Items(p.name)
}

func (p *Playlist) Len() (int, error) {
	items, err := p.db.Items(p.name)
	return len(items), err
}

func (p *Playlist) Remove(position int) error {
	return p.db.RemoveAt(p.name, position)
}

func (p *Playlist) Move(from, to int) error {
	return p.db.Move(p.name, from, to)
}

func (p *Playlist) Clear() error {
	return p.db.Clear(p.name)
}
