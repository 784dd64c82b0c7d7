package browser

import (
	"time"

	"github.com/tormodhaugland/mtg/internal/source"
)

// Event is anything the controller reacts to. The set is closed: only the
// types in this file implement it.
type Event interface {
	event()
}

// NavAction is a user navigation request.
type NavAction int

const (
	NavActivate NavAction = iota // enter a container or enqueue an item
	NavDescend
	NavAscend
	NavHome
	NavRefresh
)

func (a NavAction) String() string {
	switch a {
	case NavActivate:
		return "activate"
	case NavDescend:
		return "descend"
	case NavAscend:
		return "ascend"
	case NavHome:
		return "home"
	case NavRefresh:
		return "refresh"
	default:
		return "unknown"
	}
}

// NavigateEvent asks the controller to move. Row is used by NavActivate,
// ObjectID by NavDescend.
type NavigateEvent struct {
	Action   NavAction
	ObjectID string
	Row      Row
}

// ResultEvent carries one browse callback back to the event loop.
type ResultEvent struct {
	Session *Session
	Result  source.BrowseResult
}

// MetadataEvent carries a refreshed metadata lookup back to the loop.
type MetadataEvent struct {
	ObjectID string
	Metadata source.Metadata
	Err      error
}

// SourceEvent reports a source joining or leaving the registry.
type SourceEvent struct {
	Source source.Source
	Added  bool
}

// ChangeEvent reports a change inside a source.
type ChangeEvent struct {
	Change source.Change
}

// TickEvent drives browse timeouts.
type TickEvent struct {
	Now time.Time
}

func (NavigateEvent) event() {}
func (ResultEvent) event()   {}
func (MetadataEvent) event() {}
func (SourceEvent) event()   {}
func (ChangeEvent) event()   {}
func (TickEvent) event()     {}
