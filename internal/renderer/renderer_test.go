package renderer

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/tormodhaugland/mtg/internal/store"
)

type memQueue struct {
	name    string
	items   []store.PlaylistItem
	shuffle bool
	repeat  bool
}

func (q *memQueue) Name() string                         { return q.name }
func (q *memQueue) Items() ([]store.PlaylistItem, error) { return q.items, nil }
func (q *memQueue) Info() (store.PlaylistInfo, error) {
	return store.PlaylistInfo{Name: q.name, Shuffle: q.shuffle, Repeat: q.repeat, Items: len(q.items)}, nil
}

func (q *memQueue) set(titles ...string) {
	q.items = nil
	for i, title := range titles {
		q.items = append(q.items, store.PlaylistItem{Position: i, ObjectID: "s::" + title, Title: title})
	}
}

func newQueue(titles ...string) *memQueue {
	q := &memQueue{name: "default"}
	q.set(titles...)
	return q
}

func current(t *testing.T, r *Renderer) string {
	t.Helper()
	st := r.Status()
	require.True(t, st.HasItem)
	return st.Item.Title
}

func TestPlayPauseStop(t *testing.T) {
	r := New(newQueue("a", "b"), rand.New(rand.NewPCG(1, 2)))

	assert.Equal(t, Stopped, r.Status().State)
	assert.ErrorIs(t, r.Pause(), ErrNotPlaying)

	require.NoError(t, r.Play())
	assert.Equal(t, Playing, r.Status().State)
	assert.Equal(t, "a", current(t, r))

	require.NoError(t, r.Toggle())
	assert.Equal(t, Paused, r.Status().State)
	require.NoError(t, r.Toggle())
	assert.Equal(t, Playing, r.Status().State)

	require.NoError(t, r.Next())
	r.Stop()
	assert.Equal(t, Stopped, r.Status().State)
	assert.Equal(t, "b", current(t, r), "stop keeps the current item")
}

func TestEmptyPlaylist(t *testing.T) {
	r := New(newQueue(), nil)
	assert.ErrorIs(t, r.Play(), ErrEmptyPlaylist)
	assert.ErrorIs(t, r.Next(), ErrEmptyPlaylist)
	assert.False(t, r.Status().HasItem)
}

func TestNextPrevWithoutRepeat(t *testing.T) {
	r := New(newQueue("a", "b", "c"), nil)
	require.NoError(t, r.Play())

	require.NoError(t, r.Next())
	require.NoError(t, r.Next())
	assert.Equal(t, "c", current(t, r))
	assert.ErrorIs(t, r.Next(), ErrEndOfPlaylist)
	assert.Equal(t, "c", current(t, r))

	require.NoError(t, r.Prev())
	require.NoError(t, r.Prev())
	assert.ErrorIs(t, r.Prev(), ErrEndOfPlaylist)
	assert.Equal(t, "a", current(t, r))
}

func TestRepeatWraps(t *testing.T) {
	q := newQueue("a", "b")
	q.repeat = true
	r := New(q, nil)
	require.NoError(t, r.Play())

	require.NoError(t, r.Next())
	require.NoError(t, r.Next())
	assert.Equal(t, "a", current(t, r))
	require.NoError(t, r.Prev())
	assert.Equal(t, "b", current(t, r))
	assert.True(t, r.Status().Repeat)
}

func TestGoto(t *testing.T) {
	r := New(newQueue("a", "b", "c"), nil)
	require.NoError(t, r.Goto(2))
	assert.Equal(t, Playing, r.Status().State)
	assert.Equal(t, "c", current(t, r))
	assert.ErrorIs(t, r.Goto(9), ErrNoSuchItem)
}

func TestShuffleKeepsCurrentItem(t *testing.T) {
	q := newQueue("a", "b", "c", "d", "e")
	r := New(q, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, r.Goto(3))

	q.shuffle = true
	require.NoError(t, r.Refresh())
	assert.True(t, r.Status().Shuffle)
	assert.Equal(t, "d", current(t, r))
	assert.Equal(t, Playing, r.Status().State)
}

func TestPlaylistEditsAreFollowed(t *testing.T) {
	q := newQueue("a", "b", "c")
	r := New(q, nil)
	require.NoError(t, r.Goto(2))

	q.set("a", "b")
	require.NoError(t, r.Refresh())
	assert.Equal(t, "b", current(t, r), "removing the current tail clamps to the new last item")

	q.set()
	require.NoError(t, r.Refresh())
	assert.Equal(t, Stopped, r.Status().State)
	assert.False(t, r.Status().HasItem)
}

func TestSwitchingPlaylistStops(t *testing.T) {
	q := newQueue("a", "b")
	r := New(q, nil)
	require.NoError(t, r.Goto(1))

	q.name = "other"
	q.set("x", "y", "z")
	require.NoError(t, r.Refresh())
	assert.Equal(t, Stopped, r.Status().State)
	assert.Equal(t, "other", r.Status().Playlist)
	assert.Equal(t, "x", current(t, r))
}

func TestShuffledOrderVisitsEveryItemOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 30).Draw(t, "n")
		seed := rapid.Uint64().Draw(t, "seed")

		titles := make([]string, n)
		for i := range titles {
			titles[i] = fmt.Sprint(i)
		}
		q := newQueue(titles...)
		q.shuffle = true
		r := New(q, rand.New(rand.NewPCG(seed, seed)))
		if err := r.Play(); err != nil {
			t.Fatalf("play: %v", err)
		}

		seen := map[string]bool{}
		for {
			title := r.Status().Item.Title
			if seen[title] {
				t.Fatalf("%s played twice", title)
			}
			seen[title] = true
			if err := r.Next(); err != nil {
				break
			}
		}
		if len(seen) != n {
			t.Fatalf("visited %d of %d items", len(seen), n)
		}
	})
}
