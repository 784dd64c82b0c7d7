package browser

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tormodhaugland/mtg/internal/source"
	"pgregory.net/rapid"
)

type recordingView struct {
	binds   int
	unbinds int
	changes int
}

func (v *recordingView) Bind(*Model) { v.binds++ }
func (v *recordingView) Unbind()     { v.unbinds++ }
func (v *recordingView) Changed()    { v.changes++ }

func rowsN(n int) []Row {
	rows := make([]Row, n)
	for i := range rows {
		id := fmt.Sprintf("src::item%03d", i)
		rows[i] = Row{Title: id, ObjectID: id, MIME: "audio/mpeg"}
	}
	return rows
}

func TestModelDirectAppendsImmediately(t *testing.T) {
	m := NewModel(ModeDirect, 0)
	v := &recordingView{}
	m.SetView(v)

	m.BeginSession()
	m.Append(Row{ObjectID: "src::a"})
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, 1, v.changes)
	m.EndSession()

	assert.Equal(t, 1, v.binds)
	assert.Zero(t, v.unbinds)
}

func TestModelBatchedFlushesEveryBatch(t *testing.T) {
	m := NewModel(ModeBatched, DefaultBatchSize)
	m.BeginSession()

	for i, r := range rowsN(45) {
		m.Append(r)
		want := ((i + 1) / DefaultBatchSize) * DefaultBatchSize
		require.Equal(t, want, m.Len(), "after %d appends", i+1)
	}
	assert.Equal(t, 5, m.Staged())
	assert.Equal(t, 2, m.Flushes())

	m.EndSession()
	assert.Equal(t, 45, m.Len())
	assert.Zero(t, m.Staged())
}

func TestModelBatchedOutsideSessionIsDirect(t *testing.T) {
	m := NewModel(ModeBatched, DefaultBatchSize)
	m.Append(Row{ObjectID: "src::"})
	assert.Equal(t, 1, m.Len())
}

func TestModelDetachedUnbindsForSession(t *testing.T) {
	m := NewModel(ModeDetached, 0)
	v := &recordingView{}
	m.SetView(v)

	m.BeginSession()
	assert.False(t, m.Bound())
	assert.Equal(t, 1, v.unbinds)

	m.Append(Row{ObjectID: "src::a"})
	m.Append(Row{ObjectID: "src::b"})
	assert.Equal(t, 2, m.Len(), "detached rows are written straight to the model")
	assert.Zero(t, v.changes, "no change notifications while unbound")

	m.EndSession()
	m.EndSession()
	assert.True(t, m.Bound())
	assert.Equal(t, 2, v.binds, "SetView bind plus one rebind")
}

func TestModelSwitchingModeRebinds(t *testing.T) {
	m := NewModel(ModeDetached, 0)
	m.BeginSession()
	require.False(t, m.Bound())

	m.SetMode(ModeDirect)
	assert.True(t, m.Bound())
}

func TestModelLeavingBatchedFlushes(t *testing.T) {
	m := NewModel(ModeBatched, 10)
	m.BeginSession()
	m.Append(Row{ObjectID: "src::a"})
	require.Zero(t, m.Len())

	m.SetMode(ModeDirect)
	assert.Equal(t, 1, m.Len())
}

func TestModelAbortDropsStaged(t *testing.T) {
	m := NewModel(ModeBatched, 10)
	m.BeginSession()
	m.Append(Row{ObjectID: "src::a"})

	m.AbortSession()
	assert.Zero(t, m.Len())
	assert.Zero(t, m.Staged())
	assert.False(t, m.InSession())
}

func TestModelUpdateRemoveClear(t *testing.T) {
	m := NewModel(ModeDirect, 0)
	for _, r := range rowsN(3) {
		m.Append(r)
	}
	m.Append(Row{ObjectID: "src::item001", Title: "dup"})

	ok := m.Update("src::item001", Row{ObjectID: "src::item001", Title: "renamed"})
	assert.True(t, ok)
	r, _ := m.Row(1)
	assert.Equal(t, "renamed", r.Title)
	r, _ = m.Row(3)
	assert.Equal(t, "dup", r.Title, "only the first match is updated")

	assert.False(t, m.Update("src::missing", Row{}))

	assert.True(t, m.Remove("src::item001"))
	assert.Equal(t, 2, m.Len())
	_, found := m.Find("src::item001")
	assert.False(t, found)

	m.Clear()
	assert.Zero(t, m.Len())
}

func TestRowFromMetadata(t *testing.T) {
	tests := []struct {
		name string
		md   source.Metadata
		want Row
	}{
		{"title", source.Metadata{source.KeyTitle: "Song", source.KeyMIME: "audio/mpeg"}, Row{"Song", "s::x", "audio/mpeg"}},
		{"uri fallback", source.Metadata{source.KeyURI: "file:///x"}, Row{"file:///x", "s::x", source.MIMEUnknown}},
		{"empty title", source.Metadata{source.KeyTitle: ""}, Row{"Unknown", "s::x", source.MIMEUnknown}},
		{"no title", source.Metadata{source.KeyMIME: source.MIMEContainer}, Row{"s::x", "s::x", source.MIMEContainer}},
		{"nil", nil, Row{"s::x", "s::x", source.MIMEUnknown}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RowFromMetadata("s::x", tt.md))
		})
	}
}

func TestRowKinds(t *testing.T) {
	assert.True(t, Row{MIME: ""}.IsSource())
	assert.True(t, Row{MIME: ""}.IsContainer())
	assert.True(t, Row{MIME: source.MIMEContainer}.IsContainer())
	assert.False(t, Row{MIME: "audio/mpeg"}.IsContainer())
	assert.False(t, SelectedIsContainer(nil))
}

func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{ModeDirect, ModeBatched, ModeDetached} {
		got, err := ParseMode(mode.String())
		require.NoError(t, err)
		assert.Equal(t, mode, got)
	}
	_, err := ParseMode("sideways")
	assert.Error(t, err)
	assert.Equal(t, ModeDirect, ModeDetached.Next())
}

func TestModesConvergeProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rows := rowsN(rapid.IntRange(0, 120).Draw(t, "rows"))
		batch := rapid.IntRange(1, 50).Draw(t, "batch")

		var results [][]Row
		for _, mode := range []Mode{ModeDirect, ModeBatched, ModeDetached} {
			m := NewModel(mode, batch)
			m.SetView(&recordingView{})
			m.BeginSession()
			for _, r := range rows {
				m.Append(r)
			}
			m.EndSession()
			results = append(results, m.Rows())
		}

		for i := 1; i < len(results); i++ {
			if !reflect.DeepEqual(results[0], results[i]) {
				t.Fatalf("mode %d produced %d rows, direct produced %d", i, len(results[i]), len(results[0]))
			}
		}
		if len(results[0]) != len(rows) {
			t.Fatalf("got %d rows, want %d", len(results[0]), len(rows))
		}
	})
}
