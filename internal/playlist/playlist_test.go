package playlist

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/store"
)

func openPlaylist(t *testing.T, name string) *Playlist {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "mtg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, name)
}

func titles(t *testing.T, p *Playlist) []string {
	t.Helper()
	items, err := p.Items()
	require.NoError(t, err)
	var out []string
	for _, it := range items {
		out = append(out, it.Title)
	}
	return out
}

func TestEnqueueAppendsInOrder(t *testing.T) {
	p := openPlaylist(t, "")
	assert.Equal(t, DefaultName, p.Name())

	require.NoError(t, p.Enqueue("music::a.mp3", "A"))
	require.NoError(t, p.Enqueue("music::b.mp3", ""))

	items, err := p.Items()
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Position)
	assert.Equal(t, "music::b.mp3", items[1].Title, "missing title falls back to the object id")
}

func TestEnqueueRejectsBadObjectID(t *testing.T) {
	p := openPlaylist(t, "party")
	err := p.Enqueue("no-separator", "X")
	assert.ErrorIs(t, err, objectid.ErrInvalidObjectID)

	n, err := p.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEditing(t *testing.T) {
	p := openPlaylist(t, "party")
	for _, name := range []string{"a", "b", "c", "d"} {
		require.NoError(t, p.Enqueue("music::"+name, name))
	}

	require.NoError(t, p.Move(0, 3))
	assert.Equal(t, []string{"b", "c", "d", "a"}, titles(t, p))

	require.NoError(t, p.Remove(1))
	assert.Equal(t, []string{"b", "d", "a"}, titles(t, p))

	assert.ErrorIs(t, p.Remove(7), store.ErrNotFound)

	require.NoError(t, p.Clear())
	n, err := p.Len()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestManagement(t *testing.T) {
	p := openPlaylist(t, "party")

	info, err := p.Info()
	require.NoError(t, err)
	assert.Equal(t, store.PlaylistInfo{Name: "party"}, info, "unknown playlists read as empty")

	require.NoError(t, p.Enqueue("music::a", "a"))
	require.NoError(t, p.SetShuffle(true))
	require.NoError(t, p.Rename("fiesta"))
	assert.Equal(t, "fiesta", p.Name())
	assert.Equal(t, []string{"a"}, titles(t, p))

	info, err = p.Info()
	require.NoError(t, err)
	assert.True(t, info.Shuffle)
	assert.False(t, info.Repeat)

	quiet, err := Create(p.db, "quiet")
	require.NoError(t, err)
	_, err = Create(p.db, "quiet")
	assert.ErrorIs(t, err, store.ErrPlaylistExists)

	all, err := quiet.All()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "fiesta", all[0].Name)
	assert.Equal(t, 1, all[0].Items)

	p.Switch("quiet")
	require.NoError(t, p.Enqueue("music::b", "b"))
	assert.Equal(t, []string{"b"}, titles(t, quiet))

	require.NoError(t, p.Delete())
	assert.ErrorIs(t, p.Delete(), store.ErrNotFound)
	all, err = p.All()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "fiesta", all[0].Name)
}
