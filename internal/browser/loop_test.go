package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormodhaugland/mtg/internal/source"
)

func TestLoopDeliversInOrder(t *testing.T) {
	loop := NewLoop(4, 0)
	go func() {
		for i := 0; i < 3; i++ {
			loop.Post(NavigateEvent{Action: NavRefresh, ObjectID: string(rune('a' + i))})
		}
	}()

	var got []string
	err := loop.Run(context.Background(), func(ev Event) bool {
		got = append(got, ev.(NavigateEvent).ObjectID)
		return len(got) == 3
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, got)

	// Posting after the loop stopped must not block.
	loop.Post(TickEvent{})
}

func TestLoopTicks(t *testing.T) {
	loop := NewLoop(1, 5*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := loop.Run(ctx, func(ev Event) bool {
		_, ok := ev.(TickEvent)
		return ok
	})
	assert.NoError(t, err)
}

func TestLoopStopsOnContext(t *testing.T) {
	loop := NewLoop(1, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := loop.Run(ctx, func(Event) bool { return false })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestControllerBrowsesDirectoryThroughLoop(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "album"), 0o755))
	for _, name := range []string{"b.mp3", "a.ogg", filepath.Join("album", "c.flac")} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	fs, err := source.NewFSSource("Music", root, "music")
	require.NoError(t, err)
	defer fs.Close()

	reg := source.NewRegistry()
	require.NoError(t, reg.Add(fs))

	loop := NewLoop(16, 0)
	ctrl := New(reg, Options{Mode: ModeBatched, Post: loop.Post})
	ctrl.ShowSources()
	require.NoError(t, ctrl.Descend("music::"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = loop.Run(ctx, func(ev Event) bool {
		require.NoError(t, ctrl.Dispatch(ev))
		return !ctrl.Busy()
	})
	require.NoError(t, err)

	var ids []string
	for _, r := range ctrl.Model().Rows() {
		ids = append(ids, r.ObjectID)
	}
	assert.Equal(t, []string{"music::album", "music::a.ogg", "music::b.mp3"}, ids)
	row, _ := ctrl.Model().Row(0)
	assert.True(t, row.IsContainer())
}
