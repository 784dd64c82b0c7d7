// Package renderer keeps the transport state of a local renderer playing
// through a playlist: play, pause, stop and stepping between items with
// the playlist's shuffle and repeat flags. It tracks what would be playing;
// decoding and audio output are left to whatever consumes Status.
package renderer

import (
	"errors"
	"math/rand/v2"
	"time"

	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/store"
)

type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "stopped"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "unknown"
	}
}

var (
	ErrEmptyPlaylist = errors.New("playlist is empty")
	ErrNotPlaying    = errors.New("nothing is playing")
	ErrEndOfPlaylist = errors.New("end of playlist")
	ErrNoSuchItem    = errors.New("no such playlist position")
)

// Queue is the playlist a renderer plays through.
type Queue interface {
	Name() string
	Items() ([]store.PlaylistItem, error)
	Info() (store.PlaylistInfo, error)
}

// Status is a snapshot of the renderer.
type Status struct {
	State    State
	Playlist string
	// Item is the current item; it is only meaningful when HasItem is set.
	Item    store.PlaylistItem
	HasItem bool
	Shuffle bool
	Repeat  bool
}

// Renderer walks a Queue. The zero cursor is the first item in play order.
type Renderer struct {
	queue Queue
	rng   *rand.Rand

	state    State
	items    []store.PlaylistItem
	order    []int // playlist positions in play order
	cursor   int
	name     string
	shuffled bool
	repeat   bool
}

// New creates a stopped renderer over q. A nil rng seeds one from the clock.
func New(q Queue, rng *rand.Rand) *Renderer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &Renderer{queue: q, rng: rng}
}

// load refreshes items and flags from the queue. The play order is rebuilt
// when the playlist, its length or its shuffle flag changed; the current
// item keeps playing across a reshuffle.
func (r *Renderer) load() error {
	items, err := r.queue.Items()
	if err != nil {
		return err
	}
	info, err := r.queue.Info()
	if err != nil {
		return err
	}
	name := r.queue.Name()

	switched := name != r.name
	if switched && r.name != "" {
		debug.Log("renderer: playlist %s -> %s, stopping", r.name, name)
		r.state = Stopped
	}
	rebuild := switched || len(items) != len(r.order) || info.Shuffle != r.shuffled

	current := -1
	if !switched && r.cursor < len(r.order) {
		current = r.order[r.cursor]
	}

	r.items = items
	r.name = name
	r.repeat = info.Repeat
	if !rebuild {
		return nil
	}

	r.shuffled = info.Shuffle
	r.order = make([]int, len(items))
	for i := range r.order {
		r.order[i] = i
	}
	if r.shuffled {
		r.rng.Shuffle(len(r.order), func(i, j int) { r.order[i], r.order[j] = r.order[j], r.order[i] })
	}

	r.cursor = 0
	if current >= len(items) {
		current = len(items) - 1
	}
	for i, pos := range r.order {
		if pos == current {
			r.cursor = i
			break
		}
	}
	if len(items) == 0 {
		r.state = Stopped
	}
	return nil
}

// Play starts or resumes playback.
func (r *Renderer) Play() error {
	if err := r.load(); err != nil {
		return err
	}
	if len(r.items) == 0 {
		return ErrEmptyPlaylist
	}
	r.state = Playing
	return nil
}

// Pause holds playback at the current item.
func (r *Renderer) Pause() error {
	if r.state != Playing {
		return ErrNotPlaying
	}
	r.state = Paused
	return nil
}

// Toggle pauses while playing and plays otherwise.
func (r *Renderer) Toggle() error {
	if r.state == Playing {
		return r.Pause()
	}
	return r.Play()
}

// Stop ends playback. The current item is kept for the next Play.
func (r *Renderer) Stop() {
	r.state = Stopped
}

// Next moves to the following item in play order. Past the last item it
// wraps when the playlist repeats and fails otherwise.
func (r *Renderer) Next() error {
	return r.step(1)
}

// Prev moves to the previous item in play order.
func (r *Renderer) Prev() error {
	return r.step(-1)
}

func (r *Renderer) step(delta int) error {
	if err := r.load(); err != nil {
		return err
	}
	n := len(r.order)
	if n == 0 {
		return ErrEmptyPlaylist
	}
	next := r.cursor + delta
	if next < 0 || next >= n {
		if !r.repeat {
			return ErrEndOfPlaylist
		}
		next = (next + n) % n
	}
	r.cursor = next
	return nil
}

// Goto plays the item at a playlist position.
func (r *Renderer) Goto(position int) error {
	if err := r.load(); err != nil {
		return err
	}
	for i, pos := range r.order {
		if pos == position {
			r.cursor = i
			r.state = Playing
			return nil
		}
	}
	return ErrNoSuchItem
}

// Status reports the state as of the last command. Call Refresh first to
// pick up playlist edits made since.
func (r *Renderer) Status() Status {
	st := Status{State: r.state, Playlist: r.name, Shuffle: r.shuffled, Repeat: r.repeat}
	if r.cursor < len(r.order) {
		st.Item = r.items[r.order[r.cursor]]
		st.HasItem = true
	}
	return st
}

// Refresh rereads the playlist without changing the transport state,
// except that a switched or emptied playlist stops.
func (r *Renderer) Refresh() error {
	return r.load()
}
