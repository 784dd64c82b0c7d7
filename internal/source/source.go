// Package source defines the media source collaborator that the browser
// talks to, a registry of available sources, and the concrete sources mtg
// ships with: a local directory tree and the sqlite-backed catalog.
//
// Browse results and metadata are delivered through callbacks that run on a
// goroutine owned by the source. Consumers that need single-threaded handling
// must hand the results over to their own event loop.
package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// BrowseID identifies one streamed enumeration within a source.
type BrowseID uint32

// InvalidBrowseID means "no outstanding browse".
const InvalidBrowseID BrowseID = 0

// Metadata keys requested by the browser.
const (
	KeyTitle = "title"
	KeyURI   = "uri"
	KeyMIME  = "mime-type"
)

// Further keys reported by metadata lookups. Duration is in whole seconds.
const (
	KeyAlbum    = "album"
	KeyArtist   = "artist"
	KeyDuration = "duration"
	KeySize     = "filesize"
	KeyModified = "modified"
)

// MIMEContainer is the MIME value of navigable containers.
const MIMEContainer = "x-mafw/container"

// MIMEUnknown is used when a source cannot tell an item's type.
const MIMEUnknown = "unknown"

// DefaultKeys are the metadata keys the browser asks for.
var DefaultKeys = []string{KeyTitle, KeyURI, KeyMIME}

var (
	ErrNoSuchObject     = errors.New("no such object")
	ErrNotContainer     = errors.New("object is not a container")
	ErrUnknownBrowse    = errors.New("unknown browse id")
	ErrWrongSource      = errors.New("object id belongs to another source")
	ErrDuplicateSource  = errors.New("source already registered")
	ErrSourceNotWatched = errors.New("source does not support change notifications")
)

// Metadata holds the values a source reports for one object.
type Metadata map[string]string

// First returns the value for key and whether it was present.
func (m Metadata) First(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// Only returns a copy of m restricted to keys. A nil or empty keys slice
// returns all values.
func (m Metadata) Only(keys []string) Metadata {
	if len(keys) == 0 {
		return m
	}
	out := make(Metadata, len(keys))
	for _, k := range keys {
		if v, ok := m[k]; ok {
			out[k] = v
		}
	}
	return out
}

// leadingKeys are listed before all others, in this order.
var leadingKeys = []string{KeyTitle, KeyAlbum, KeyArtist, KeyDuration}

// Keys returns the keys of m for display: title, album, artist and
// duration first, the rest sorted.
func (m Metadata) Keys() []string {
	out := make([]string, 0, len(m))
	lead := make(map[string]bool, len(leadingKeys))
	for _, k := range leadingKeys {
		lead[k] = true
		if _, ok := m[k]; ok {
			out = append(out, k)
		}
	}
	rest := make([]string, 0, len(m))
	for k := range m {
		if !lead[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// FetchMetadata asks src for the metadata of objectID and waits for the
// answer. nil keys asks for everything the source knows.
func FetchMetadata(ctx context.Context, src Source, objectID string, keys []string) (Metadata, error) {
	type answer struct {
		md  Metadata
		err error
	}
	ch := make(chan answer, 1)
	src.Metadata(objectID, keys, func(_ string, md Metadata, err error) {
		select {
		case ch <- answer{md, err}:
		default:
		}
	})
	select {
	case a := <-ch:
		return a.md, a.err
	case <-ctx.Done():
		return nil, fmt.Errorf("metadata of %s: %w", objectID, ctx.Err())
	}
}

// BrowseRequest describes an enumeration of a container's children.
type BrowseRequest struct {
	ObjectID  string
	Recursive bool
	Filter    string
	Sort      string
	Keys      []string
	Skip      int
	Count     int // 0 means all remaining children
}

// BrowseResult is one streamed browse event. Remaining == 0 marks the last
// event of a browse; that event may carry no object. A non-nil Err ends the
// browse.
type BrowseResult struct {
	ID        BrowseID
	Index     int
	Remaining int
	ObjectID  string
	Metadata  Metadata
	Err       error
}

// Terminal reports whether this is the last event for its browse.
func (r BrowseResult) Terminal() bool {
	return r.Err != nil || r.Remaining == 0
}

// BrowseFunc receives browse results in increasing Index order.
type BrowseFunc func(BrowseResult)

// MetadataFunc receives the result of a metadata request.
type MetadataFunc func(objectID string, md Metadata, err error)

// Source is a provider of a hierarchical content catalog.
type Source interface {
	UUID() string
	Name() string
	// Browse starts enumerating the children of req.ObjectID. A synchronous
	// error means no results will follow.
	Browse(req BrowseRequest, cb BrowseFunc) (BrowseID, error)
	// CancelBrowse stops an outstanding browse. Results already in flight
	// may still be delivered.
	CancelBrowse(id BrowseID) error
	Metadata(objectID string, keys []string, cb MetadataFunc)
}

// ChangeKind tells what changed inside a source.
type ChangeKind int

const (
	ContainerChanged ChangeKind = iota
	MetadataChanged
)

func (k ChangeKind) String() string {
	switch k {
	case ContainerChanged:
		return "container-changed"
	case MetadataChanged:
		return "metadata-changed"
	default:
		return "unknown"
	}
}

// Change is a notification that an object inside a source changed.
type Change struct {
	Kind     ChangeKind
	Source   string
	ObjectID string
}

// Watchable is implemented by sources that report changes to their content.
type Watchable interface {
	Watch(fn func(Change)) error
	Close() error
}

type item struct {
	objectID string
	md       Metadata
}

// window applies skip/count to items.
func window(items []item, skip, count int) []item {
	if skip < 0 {
		skip = 0
	}
	if skip >= len(items) {
		return nil
	}
	items = items[skip:]
	if count > 0 && count < len(items) {
		items = items[:count]
	}
	return items
}

// sortContainersFirst orders containers before items, then by title.
func sortContainersFirst(items []item) {
	sort.SliceStable(items, func(i, j int) bool {
		ci := items[i].md[KeyMIME] == MIMEContainer
		cj := items[j].md[KeyMIME] == MIMEContainer
		if ci != cj {
			return ci
		}
		return items[i].md[KeyTitle] < items[j].md[KeyTitle]
	})
}
