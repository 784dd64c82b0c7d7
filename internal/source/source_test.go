package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/store"
)

// collect runs a browse to completion and returns its results.
func collect(t *testing.T, s Source, req BrowseRequest) []BrowseResult {
	t.Helper()
	ch := make(chan BrowseResult, 64)
	_, err := s.Browse(req, func(r BrowseResult) { ch <- r })
	require.NoError(t, err)

	var out []BrowseResult
	for {
		select {
		case r := <-ch:
			out = append(out, r)
			if r.Terminal() {
				return out
			}
		case <-time.After(5 * time.Second):
			t.Fatal("browse did not finish")
		}
	}
}

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "music", "album"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0755))
	for _, f := range []string{"music/b.mp3", "music/a.ogg", "clip.mp4", ".hidden"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("x"), 0644))
	}
	return root
}

func TestFSSourceBrowseStreamsInOrder(t *testing.T) {
	s, err := NewFSSource("Local", makeTree(t), "local")
	require.NoError(t, err)

	results := collect(t, s, BrowseRequest{ObjectID: objectid.Root("local"), Keys: DefaultKeys})
	require.Len(t, results, 3)

	assert.Equal(t, "local::empty", results[0].ObjectID)
	assert.Equal(t, "local::music", results[1].ObjectID)
	assert.Equal(t, "local::clip.mp4", results[2].ObjectID)
	for i, r := range results {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, len(results)-1-i, r.Remaining)
	}
	assert.Equal(t, MIMEContainer, results[0].Metadata[KeyMIME])
	assert.Equal(t, "video/mp4", results[2].Metadata[KeyMIME])
	assert.Equal(t, "clip.mp4", results[2].Metadata[KeyTitle])
}

func TestFSSourceSkipCountAndKeys(t *testing.T) {
	s, err := NewFSSource("Local", makeTree(t), "local")
	require.NoError(t, err)

	results := collect(t, s, BrowseRequest{ObjectID: "local::music", Skip: 1, Count: 1, Keys: []string{KeyTitle}})
	require.Len(t, results, 2)
	assert.Equal(t, "local::music/a.ogg", results[0].ObjectID)
	assert.Equal(t, 0, results[1].Remaining)
	assert.Equal(t, Metadata{KeyTitle: "a.ogg"}, results[0].Metadata)
}

func TestFSSourceEmptyContainerSendsTerminalMarker(t *testing.T) {
	s, err := NewFSSource("Local", makeTree(t), "local")
	require.NoError(t, err)

	results := collect(t, s, BrowseRequest{ObjectID: "local::empty"})
	require.Len(t, results, 1)
	assert.Equal(t, 0, results[0].Remaining)
	assert.Empty(t, results[0].ObjectID)
}

func TestFSSourceBrowseRejections(t *testing.T) {
	s, err := NewFSSource("Local", makeTree(t), "local")
	require.NoError(t, err)
	noop := func(BrowseResult) {}

	_, err = s.Browse(BrowseRequest{ObjectID: "garbage"}, noop)
	assert.ErrorIs(t, err, objectid.ErrInvalidObjectID)

	_, err = s.Browse(BrowseRequest{ObjectID: "other::music"}, noop)
	assert.ErrorIs(t, err, ErrWrongSource)

	_, err = s.Browse(BrowseRequest{ObjectID: "local::missing"}, noop)
	assert.ErrorIs(t, err, ErrNoSuchObject)

	_, err = s.Browse(BrowseRequest{ObjectID: "local::clip.mp4"}, noop)
	assert.ErrorIs(t, err, ErrNotContainer)

	assert.ErrorIs(t, s.CancelBrowse(42), ErrUnknownBrowse)
}

func TestFSSourcePathCannotEscapeRoot(t *testing.T) {
	root := makeTree(t)
	s, err := NewFSSource("Local", filepath.Join(root, "music"), "local")
	require.NoError(t, err)

	results := collect(t, s, BrowseRequest{ObjectID: "local::../.."})
	assert.Equal(t, "local::album", results[0].ObjectID)
}

func TestFSSourceMetadata(t *testing.T) {
	s, err := NewFSSource("Local", makeTree(t), "local")
	require.NoError(t, err)

	type result struct {
		md  Metadata
		err error
	}
	ch := make(chan result, 1)
	s.Metadata("local::music/b.mp3", DefaultKeys, func(_ string, md Metadata, err error) {
		ch <- result{md, err}
	})
	r := <-ch
	require.NoError(t, r.err)
	assert.Equal(t, "b.mp3", r.md[KeyTitle])
	assert.Equal(t, "audio/mpeg", r.md[KeyMIME])

	s.Metadata("local::nope", nil, func(_ string, md Metadata, err error) {
		ch <- result{md, err}
	})
	r = <-ch
	assert.ErrorIs(t, r.err, ErrNoSuchObject)
}

func TestFSSourceDerivesStableUUID(t *testing.T) {
	root := makeTree(t)
	a, err := NewFSSource("", root, "")
	require.NoError(t, err)
	b, err := NewFSSource("", root, "")
	require.NoError(t, err)

	assert.Equal(t, a.UUID(), b.UUID())
	assert.Equal(t, DeriveUUID(a.Root()), a.UUID())
	assert.Equal(t, filepath.Base(root), a.Name())
}

func TestFSSourceWatchReportsContainerChange(t *testing.T) {
	root := makeTree(t)
	s, err := NewFSSource("Local", root, "local")
	require.NoError(t, err)
	defer s.Close()

	changes := make(chan Change, 16)
	require.NoError(t, s.Watch(func(c Change) { changes <- c }))
	collect(t, s, BrowseRequest{ObjectID: "local::music"})

	require.NoError(t, os.WriteFile(filepath.Join(root, "music", "new.mp3"), []byte("x"), 0644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Kind == ContainerChanged && c.ObjectID == "local::music" {
				return
			}
		case <-deadline:
			t.Fatal("no container-changed notification")
		}
	}
}

func TestCatalogSourceBrowse(t *testing.T) {
	db, err := store.Open(filepath.Join(t.TempDir(), "mtg.db"))
	require.NoError(t, err)
	defer db.Close()

	info := store.CatalogSource{UUID: "cat", Name: "Catalog", Root: "/media"}
	require.NoError(t, db.UpsertSource(info))
	require.NoError(t, db.InsertObjects("cat", []store.Object{
		{Path: "music", Parent: "", Title: "music", MIME: MIMEContainer},
		{Path: "music/a.mp3", Parent: "music", Title: "A", MIME: "audio/mpeg", URI: "file:///media/music/a.mp3"},
	}))

	s := NewCatalogSource(db, info)
	results := collect(t, s, BrowseRequest{ObjectID: "cat::music", Keys: DefaultKeys})
	require.Len(t, results, 1)
	assert.Equal(t, "cat::music/a.mp3", results[0].ObjectID)
	assert.Equal(t, "A", results[0].Metadata[KeyTitle])
	assert.Equal(t, "file:///media/music/a.mp3", results[0].Metadata[KeyURI])

	for _, id := range []string{"cat::music/", "cat::/music", "cat::./music"} {
		results = collect(t, s, BrowseRequest{ObjectID: id})
		require.Len(t, results, 1, id)
		assert.Equal(t, "cat::music/a.mp3", results[0].ObjectID, id)
	}

	_, err = s.Browse(BrowseRequest{ObjectID: "cat::music/a.mp3"}, func(BrowseResult) {})
	assert.ErrorIs(t, err, ErrNotContainer)
	_, err = s.Browse(BrowseRequest{ObjectID: "cat::nope"}, func(BrowseResult) {})
	assert.ErrorIs(t, err, ErrNoSuchObject)
}

type stubSource struct{ uuid, name string }

func (s stubSource) UUID() string                                       { return s.uuid }
func (s stubSource) Name() string                                       { return s.name }
func (s stubSource) Browse(BrowseRequest, BrowseFunc) (BrowseID, error) { return 1, nil }
func (s stubSource) CancelBrowse(BrowseID) error                        { return nil }
func (s stubSource) Metadata(string, []string, MetadataFunc)            {}

func TestRegistry(t *testing.T) {
	r := NewRegistry("gnomevfs")

	var events []RegistryEvent
	r.Subscribe(func(ev RegistryEvent) { events = append(events, ev) })

	require.NoError(t, r.Add(stubSource{"b", "Beta"}))
	require.NoError(t, r.Add(stubSource{"a", "Alpha"}))
	require.NoError(t, r.Add(stubSource{"gnomevfs", "Resolver"}))
	assert.ErrorIs(t, r.Add(stubSource{"a", "Again"}), ErrDuplicateSource)

	sources := r.Sources()
	require.Len(t, sources, 2)
	assert.Equal(t, "Alpha", sources[0].Name())
	assert.Equal(t, "Beta", sources[1].Name())

	_, ok := r.Get("gnomevfs")
	assert.True(t, ok, "hidden sources still resolve")
	assert.True(t, r.Hidden("gnomevfs"))

	removed, ok := r.Remove("b")
	require.True(t, ok)
	assert.Equal(t, "Beta", removed.Name())
	_, ok = r.Remove("b")
	assert.False(t, ok)

	require.Len(t, events, 3)
	assert.True(t, events[0].Added)
	assert.False(t, events[2].Added)
	assert.Equal(t, "b", events[2].Source.UUID())
}

func TestFSSourceMetadataReportsEverything(t *testing.T) {
	root := makeTree(t)
	f, err := os.Create(filepath.Join(root, "music", "tone.wav"))
	require.NoError(t, err)
	format := beep.Format{SampleRate: 8000, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(16000), format))
	require.NoError(t, f.Close())

	s, err := NewFSSource("Local", root, "local")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	md, err := FetchMetadata(ctx, s, "local::music/tone.wav", nil)
	require.NoError(t, err)
	assert.Equal(t, "tone.wav", md[KeyTitle])
	assert.Equal(t, "audio/wav", md[KeyMIME])
	assert.Equal(t, "2", md[KeyDuration])
	assert.NotEmpty(t, md[KeySize])
	assert.NotEmpty(t, md[KeyModified])
	assert.Equal(t, []string{KeyTitle, KeyDuration, KeySize, KeyMIME, KeyModified, KeyURI}, md.Keys())

	md, err = FetchMetadata(ctx, s, "local::music/b.mp3", nil)
	require.NoError(t, err)
	_, ok := md[KeyDuration]
	assert.False(t, ok, "undecodable files have no duration")

	md, err = FetchMetadata(ctx, s, "local::music", nil)
	require.NoError(t, err)
	assert.Equal(t, MIMEContainer, md[KeyMIME])
	_, ok = md[KeySize]
	assert.False(t, ok)
}

type silentSource struct{ stubSource }

func (silentSource) Metadata(string, []string, MetadataFunc) {}

func TestFetchMetadataHonoursContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := FetchMetadata(ctx, silentSource{stubSource{"s", "Silent"}}, "s::x", nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
