package browser

import (
	"fmt"
	"strings"

	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/source"
)

// Row is one displayed entry. An empty MIME marks a top-level source.
type Row struct {
	Title    string
	ObjectID string
	MIME     string
}

// IsSource reports whether the row is a top-level source entry.
func (r Row) IsSource() bool { return r.MIME == "" }

// IsContainer reports whether the row can be entered: sources and
// containers both qualify.
func (r Row) IsContainer() bool {
	return r.MIME == "" || r.MIME == source.MIMEContainer
}

// RowFromMetadata builds a row from browse metadata, falling back to the
// uri and then the object id for the title.
func RowFromMetadata(objectID string, md source.Metadata) Row {
	if md == nil {
		debug.Log("nil metadata for %s", objectID)
		return Row{Title: objectID, ObjectID: objectID, MIME: source.MIMEUnknown}
	}
	title, ok := md.First(source.KeyTitle)
	if !ok {
		title, ok = md.First(source.KeyURI)
	}
	switch {
	case !ok:
		title = objectID
	case title == "":
		title = "Unknown"
	}
	mime, ok := md.First(source.KeyMIME)
	if !ok || mime == "" {
		mime = source.MIMEUnknown
	}
	return Row{Title: title, ObjectID: objectID, MIME: mime}
}

func sourceRow(s source.Source) Row {
	return Row{Title: s.Name(), ObjectID: objectid.Root(s.UUID())}
}

// Mode selects how browse results reach the visible rows.
type Mode int

const (
	// ModeDirect appends every result to the visible rows immediately.
	ModeDirect Mode = iota
	// ModeBatched stages results and moves them to the visible rows every
	// batch-size results and when the browse ends.
	ModeBatched
	// ModeDetached unbinds the rows from the view for the whole browse and
	// rebinds them when it ends.
	ModeDetached
)

// DefaultBatchSize is the staging flush interval of ModeBatched.
const DefaultBatchSize = 20

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeBatched:
		return "batched"
	case ModeDetached:
		return "detached"
	default:
		return "unknown"
	}
}

// Next cycles through the modes.
func (m Mode) Next() Mode {
	return (m + 1) % 3
}

// ParseMode accepts the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct", "normal":
		return ModeDirect, nil
	case "batched", "cached":
		return ModeBatched, nil
	case "detached":
		return ModeDetached, nil
	default:
		return ModeDirect, fmt.Errorf("unknown model mode %q (want direct, batched or detached)", s)
	}
}

// View displays a Model. Bind and Unbind attach and detach the rows;
// Changed is only called while bound.
type View interface {
	Bind(m *Model)
	Unbind()
	Changed()
}

// Model holds the visible rows and applies the configured Mode to browse
// results.
type Model struct {
	rows      []Row
	staging   []Row
	mode      Mode
	batchSize int
	bound     bool
	inSession bool
	view      View
	flushes   int
}

func NewModel(mode Mode, batchSize int) *Model {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Model{mode: mode, batchSize: batchSize, bound: true}
}

// SetView attaches v, binding it immediately unless a detached browse is
// in progress.
func (m *Model) SetView(v View) {
	m.view = v
	if v != nil && m.bound {
		v.Bind(m)
	}
}

func (m *Model) Mode() Mode      { return m.mode }
func (m *Model) BatchSize() int  { return m.batchSize }
func (m *Model) Bound() bool     { return m.bound }
func (m *Model) Flushes() int    { return m.flushes }
func (m *Model) Len() int        { return len(m.rows) }
func (m *Model) Staged() int     { return len(m.staging) }
func (m *Model) InSession() bool { return m.inSession }

// Rows returns a copy of the visible rows.
func (m *Model) Rows() []Row {
	out := make([]Row, len(m.rows))
	copy(out, m.rows)
	return out
}

// Row returns the visible row at i.
func (m *Model) Row(i int) (Row, bool) {
	if i < 0 || i >= len(m.rows) {
		return Row{}, false
	}
	return m.rows[i], true
}

// Find returns the index of the first visible row with objectID.
func (m *Model) Find(objectID string) (int, bool) {
	for i, r := range m.rows {
		if r.ObjectID == objectID {
			return i, true
		}
	}
	return -1, false
}

// SetMode switches modes. Leaving ModeBatched flushes staged rows; leaving
// ModeDetached in the middle of a browse rebinds the view.
func (m *Model) SetMode(mode Mode) {
	if m.mode == mode {
		return
	}
	if m.mode == ModeBatched {
		m.Flush()
	}
	m.mode = mode
	if mode != ModeDetached {
		m.bind()
	}
}

func (m *Model) changed() {
	if m.bound && m.view != nil {
		m.view.Changed()
	}
}

func (m *Model) bind() {
	if m.bound {
		return
	}
	m.bound = true
	if m.view != nil {
		m.view.Bind(m)
	}
}

func (m *Model) unbind() {
	if !m.bound {
		return
	}
	m.bound = false
	if m.view != nil {
		m.view.Unbind()
	}
}

// BeginSession prepares for a stream of browse results.
func (m *Model) BeginSession() {
	m.inSession = true
	if m.mode == ModeDetached {
		m.unbind()
	}
}

// EndSession moves staged rows to the visible rows and rebinds the view.
// Calling it twice is harmless.
func (m *Model) EndSession() {
	m.Flush()
	m.inSession = false
	m.bind()
}

// AbortSession drops staged rows and rebinds the view.
func (m *Model) AbortSession() {
	m.staging = m.staging[:0]
	m.inSession = false
	m.bind()
}

// Append adds a row. During a batched browse it goes to the staging
// buffer first.
func (m *Model) Append(r Row) {
	if m.mode == ModeBatched && m.inSession {
		m.staging = append(m.staging, r)
		if len(m.staging) >= m.batchSize {
			m.Flush()
		}
		return
	}
	m.rows = append(m.rows, r)
	m.changed()
}

// Flush moves staged rows to the visible rows in one pass.
func (m *Model) Flush() {
	if len(m.staging) == 0 {
		return
	}
	m.rows = append(m.rows, m.staging...)
	m.staging = m.staging[:0]
	m.flushes++
	m.changed()
}

// Update replaces the first row with objectID, visible or staged. It
// reports whether a row was found.
func (m *Model) Update(objectID string, r Row) bool {
	for i := range m.rows {
		if m.rows[i].ObjectID == objectID {
			m.rows[i] = r
			m.changed()
			return true
		}
	}
	for i := range m.staging {
		if m.staging[i].ObjectID == objectID {
			m.staging[i] = r
			return true
		}
	}
	return false
}

// Remove deletes every row with objectID.
func (m *Model) Remove(objectID string) bool {
	removed := false
	keep := m.rows[:0]
	for _, r := range m.rows {
		if r.ObjectID == objectID {
			removed = true
			continue
		}
		keep = append(keep, r)
	}
	m.rows = keep

	staged := m.staging[:0]
	for _, r := range m.staging {
		if r.ObjectID != objectID {
			staged = append(staged, r)
		}
	}
	m.staging = staged

	if removed {
		m.changed()
	}
	return removed
}

// Clear empties both the visible rows and the staging buffer.
func (m *Model) Clear() {
	m.rows = m.rows[:0]
	m.staging = m.staging[:0]
	m.changed()
}
