package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "mtg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenCreatesDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "mtg.db")

	db, err := Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, dbPath, db.Path())
	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestReopenKeepsSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mtg.db")

	db, err := Open(dbPath)
	require.NoError(t, err)
	_, err = db.Append("default", "src::a.mp3", "a")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(dbPath)
	require.NoError(t, err)
	defer db.Close()

	items, err := db.Items("default")
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCatalogChildren(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.UpsertSource(CatalogSource{UUID: "cat", Name: "Catalog", Root: "/media"}))
	require.NoError(t, db.InsertObjects("cat", []Object{
		{Path: "", Parent: "", Title: "Catalog", MIME: "x-mafw/container"},
		{Path: "b.mp3", Parent: "", Title: "b", MIME: "audio/mpeg"},
		{Path: "music", Parent: "", Title: "music", MIME: "x-mafw/container"},
		{Path: "a.ogg", Parent: "", Title: "a", MIME: "audio/ogg"},
		{Path: "music/c.mp3", Parent: "music", Title: "c", MIME: "audio/mpeg"},
	}))

	children, err := db.Children("cat", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, children, 3)
	assert.Equal(t, "music", children[0].Path, "containers sort first")
	assert.Equal(t, "a.ogg", children[1].Path)
	assert.Equal(t, "b.mp3", children[2].Path)

	page, err := db.Children("cat", "", 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "a.ogg", page[0].Path)

	obj, err := db.Object("cat", "music/c.mp3")
	require.NoError(t, err)
	assert.Equal(t, "c", obj.Title)

	_, err = db.Object("cat", "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	sources, err := db.CatalogSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, "Catalog", sources[0].Name)

	require.NoError(t, db.DeleteObjects("cat"))
	children, err = db.Children("cat", "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, children)
}

func playlistIDs(t *testing.T, db *DB, name string) []string {
	t.Helper()
	items, err := db.Items(name)
	require.NoError(t, err)
	ids := make([]string, len(items))
	for i, it := range items {
		assert.Equal(t, i, it.Position)
		ids[i] = it.ObjectID
	}
	return ids
}

func TestPlaylistEditing(t *testing.T) {
	db := openTestDB(t)
	for _, id := range []string{"s::a", "s::b", "s::c", "s::d"} {
		_, err := db.Append("mix", id, id)
		require.NoError(t, err)
	}

	require.NoError(t, db.Move("mix", 0, 2))
	assert.Equal(t, []string{"s::b", "s::c", "s::a", "s::d"}, playlistIDs(t, db, "mix"))

	require.NoError(t, db.Move("mix", 3, 0))
	assert.Equal(t, []string{"s::d", "s::b", "s::c", "s::a"}, playlistIDs(t, db, "mix"))

	require.NoError(t, db.RemoveAt("mix", 1))
	assert.Equal(t, []string{"s::d", "s::c", "s::a"}, playlistIDs(t, db, "mix"))

	assert.ErrorIs(t, db.RemoveAt("mix", 7), ErrNotFound)
	assert.ErrorIs(t, db.Move("mix", 0, 9), ErrNotFound)

	lists, err := db.Playlists()
	require.NoError(t, err)
	assert.Equal(t, []PlaylistInfo{{Name: "mix", Items: 3}}, lists)

	require.NoError(t, db.Clear("mix"))
	assert.Empty(t, playlistIDs(t, db, "mix"))

	info, err := db.Playlist("mix")
	require.NoError(t, err)
	assert.Equal(t, 0, info.Items, "cleared playlists remain")
}

func TestPlaylistMoveEdges(t *testing.T) {
	db := openTestDB(t)
	for _, id := range []string{"s::a", "s::b", "s::c"} {
		_, err := db.Append("mix", id, id)
		require.NoError(t, err)
	}

	require.NoError(t, db.Move("mix", 0, 2))
	assert.Equal(t, []string{"s::b", "s::c", "s::a"}, playlistIDs(t, db, "mix"))
	require.NoError(t, db.Move("mix", 2, 0))
	assert.Equal(t, []string{"s::a", "s::b", "s::c"}, playlistIDs(t, db, "mix"))
	require.NoError(t, db.Move("mix", 1, 1))

	require.NoError(t, db.RemoveAt("mix", 0))
	assert.Equal(t, []string{"s::b", "s::c"}, playlistIDs(t, db, "mix"))
	require.NoError(t, db.RemoveAt("mix", 1))
	assert.Equal(t, []string{"s::b"}, playlistIDs(t, db, "mix"))
}

func TestPlaylistManagement(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.CreatePlaylist("party"))
	assert.ErrorIs(t, db.CreatePlaylist("party"), ErrPlaylistExists)
	assert.Error(t, db.CreatePlaylist("  "))

	_, err := db.Append("party", "s::a", "a")
	require.NoError(t, err)
	require.NoError(t, db.SetShuffle("party", true))
	require.NoError(t, db.SetRepeat("party", true))

	require.NoError(t, db.CreatePlaylist("quiet"))
	assert.ErrorIs(t, db.RenamePlaylist("party", "quiet"), ErrPlaylistExists)
	assert.ErrorIs(t, db.RenamePlaylist("missing", "other"), ErrNotFound)

	require.NoError(t, db.RenamePlaylist("party", "fiesta"))
	info, err := db.Playlist("fiesta")
	require.NoError(t, err)
	assert.Equal(t, PlaylistInfo{Name: "fiesta", Shuffle: true, Repeat: true, Items: 1}, info)
	assert.Equal(t, []string{"s::a"}, playlistIDs(t, db, "fiesta"))
	_, err = db.Playlist("party")
	assert.ErrorIs(t, err, ErrNotFound)

	lists, err := db.Playlists()
	require.NoError(t, err)
	require.Len(t, lists, 2)
	assert.Equal(t, "fiesta", lists[0].Name)
	assert.Equal(t, "quiet", lists[1].Name)

	require.NoError(t, db.DeletePlaylist("fiesta"))
	assert.Empty(t, playlistIDs(t, db, "fiesta"))
	assert.ErrorIs(t, db.DeletePlaylist("fiesta"), ErrNotFound)

	require.NoError(t, db.SetRepeat("fresh", true))
	info, err = db.Playlist("fresh")
	require.NoError(t, err)
	assert.True(t, info.Repeat)
	assert.False(t, info.Shuffle)
}

func TestConcurrentAppendsGetDistinctPositions(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mtg.db")
	first, err := Open(dbPath)
	require.NoError(t, err)
	defer first.Close()
	second, err := Open(dbPath)
	require.NoError(t, err)
	defer second.Close()

	const perWriter = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*perWriter)
	for _, db := range []*DB{first, second} {
		wg.Add(1)
		go func(db *DB) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := db.Append("mix", fmt.Sprintf("s::%d", i), "x"); err != nil {
					errs <- err
				}
			}
		}(db)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	items, err := first.Items("mix")
	require.NoError(t, err)
	require.Len(t, items, 2*perWriter)
	for i, it := range items {
		assert.Equal(t, i, it.Position)
	}
}

func TestStagingPromotion(t *testing.T) {
	db := openTestDB(t)
	target := CatalogSource{UUID: "cat", Name: "Catalog", Root: "/media"}
	require.NoError(t, db.UpsertSource(target))
	require.NoError(t, db.InsertObjects("cat", []Object{{Path: "old.mp3", Title: "old", MIME: "audio/mpeg"}}))

	require.NoError(t, db.BeginStaging("staging-1", "/media"))
	require.NoError(t, db.InsertObjects("staging-1", []Object{{Path: "new.mp3", Title: "new", MIME: "audio/mpeg"}}))

	sources, err := db.CatalogSources()
	require.NoError(t, err)
	assert.Equal(t, []CatalogSource{target}, sources, "staging sources stay hidden")
	staging, err := db.StagingSources()
	require.NoError(t, err)
	assert.Equal(t, []string{"staging-1"}, staging)

	target.Name = "Media"
	require.NoError(t, db.PromoteStaging("staging-1", target))

	children, err := db.Children("cat", "", 0, 0)
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "new.mp3", children[0].Path)

	sources, err = db.CatalogSources()
	require.NoError(t, err)
	assert.Equal(t, []CatalogSource{target}, sources)
	staging, err = db.StagingSources()
	require.NoError(t, err)
	assert.Empty(t, staging)

	require.NoError(t, db.DeleteSource("cat"))
	_, err = db.Object("cat", "new.mp3")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, db.DeleteSource("cat"), ErrNotFound)
}
