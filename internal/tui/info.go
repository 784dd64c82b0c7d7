package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tormodhaugland/mtg/internal/browser"
	"github.com/tormodhaugland/mtg/internal/source"
)

var infoKeyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Width(12)

// infoMsg carries a finished metadata lookup.
type infoMsg struct {
	objectID string
	md       source.Metadata
	err      error
}

// info is the metadata pane: every key the source reports for the
// selected object.
type info struct {
	timeout  time.Duration
	objectID string
	title    string
	md       source.Metadata
	err      error
	loading  bool
}

// request points the pane at row and returns the lookup to run. A nil src
// means the row's source is gone.
func (i *info) request(row browser.Row, src source.Source) tea.Cmd {
	i.objectID = row.ObjectID
	i.title = row.Title
	i.md = nil
	i.err = nil
	if src == nil {
		i.err = fmt.Errorf("source not available")
		i.loading = false
		return nil
	}
	i.loading = true

	id, timeout := row.ObjectID, i.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		md, err := source.FetchMetadata(ctx, src, id, nil)
		return infoMsg{objectID: id, md: md, err: err}
	}
}

// accept stores a lookup result unless the selection moved on since.
func (i *info) accept(msg infoMsg) bool {
	if msg.objectID != i.objectID {
		return false
	}
	i.md, i.err, i.loading = msg.md, msg.err, false
	return true
}

func (i *info) clear() bool {
	if i.objectID == "" {
		return false
	}
	*i = info{timeout: i.timeout}
	return true
}

func (i *info) render() string {
	if i.objectID == "" {
		return helpStyle.Render("nothing selected")
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(i.title) + "\n")
	sb.WriteString(helpStyle.Render(i.objectID) + "\n\n")
	switch {
	case i.loading:
		sb.WriteString(helpStyle.Render("loading..."))
	case i.err != nil:
		sb.WriteString(messageStyle.Render(i.err.Error()))
	case len(i.md) == 0:
		sb.WriteString(helpStyle.Render("no metadata"))
	default:
		for _, k := range i.md.Keys() {
			sb.WriteString(infoKeyStyle.Render(k) + " " + i.md[k] + "\n")
		}
	}
	return sb.String()
}
