package source

import (
	"context"
	"sync"
)

// browseTable hands out browse ids and tracks the cancel func of each
// outstanding browse.
type browseTable struct {
	mu     sync.Mutex
	next   BrowseID
	active map[BrowseID]context.CancelFunc
}

// start runs fn on its own goroutine under a fresh browse id.
func (t *browseTable) start(fn func(ctx context.Context, id BrowseID)) BrowseID {
	ctx, cancel := context.WithCancel(context.Background())

	t.mu.Lock()
	if t.active == nil {
		t.active = make(map[BrowseID]context.CancelFunc)
	}
	t.next++
	if t.next == InvalidBrowseID {
		t.next++
	}
	id := t.next
	t.active[id] = cancel
	t.mu.Unlock()

	go func() {
		defer t.finish(id)
		fn(ctx, id)
	}()
	return id
}

func (t *browseTable) cancel(id BrowseID) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	cancel, ok := t.active[id]
	if !ok {
		return ErrUnknownBrowse
	}
	delete(t.active, id)
	cancel()
	return nil
}

func (t *browseTable) finish(id BrowseID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if cancel, ok := t.active[id]; ok {
		cancel()
		delete(t.active, id)
	}
}

func (t *browseTable) cancelAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, cancel := range t.active {
		cancel()
		delete(t.active, id)
	}
}

// stream delivers items as browse results. An empty listing still produces
// one terminal result without an object.
func stream(ctx context.Context, id BrowseID, items []item, keys []string, cb BrowseFunc) {
	if len(items) == 0 {
		if ctx.Err() == nil {
			cb(BrowseResult{ID: id, Remaining: 0})
		}
		return
	}
	for i, it := range items {
		if ctx.Err() != nil {
			return
		}
		cb(BrowseResult{
			ID:        id,
			Index:     i,
			Remaining: len(items) - 1 - i,
			ObjectID:  it.objectID,
			Metadata:  it.md.Only(keys),
		})
	}
}
