package tui

import (
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/source"
)

// SourceSelectResult holds the picked source.
type SourceSelectResult struct {
	UUID     string
	Name     string
	ObjectID string // root container of the source
	Abort    bool
}

type sourceItem struct {
	uuid string
	name string
}

func (i sourceItem) Title() string       { return i.name }
func (i sourceItem) Description() string { return i.uuid }
func (i sourceItem) FilterValue() string { return i.name }

type sourceSelectModel struct {
	list   list.Model
	result SourceSelectResult
}

func newSourceSelectModel(sources []source.Source) sourceSelectModel {
	items := make([]list.Item, 0, len(sources))
	for _, s := range sources {
		items = append(items, sourceItem{uuid: s.UUID(), name: s.Name()})
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("212"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("241"))

	l := list.New(items, delegate, 60, 15)
	l.Title = "Select Source"
	l.Styles.Title = headerStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	return sourceSelectModel{list: l}
}

func (m sourceSelectModel) Init() tea.Cmd {
	return nil
}

func (m sourceSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width-4, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "ctrl+c", "esc", "q":
			m.result.Abort = true
			return m, tea.Quit

		case "enter":
			if item, ok := m.list.SelectedItem().(sourceItem); ok {
				m.result = SourceSelectResult{
					UUID:     item.uuid,
					Name:     item.name,
					ObjectID: objectid.Root(item.uuid),
				}
				return m, tea.Quit
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m sourceSelectModel) View() string {
	return m.list.View() + "\n" + helpStyle.Render("enter: select • /: search • esc: cancel")
}

// RunSourceSelect lets the user pick one of the registered sources.
func RunSourceSelect(reg *source.Registry) (SourceSelectResult, error) {
	sources := reg.Sources()
	if len(sources) == 0 {
		return SourceSelectResult{Abort: true}, fmt.Errorf("no sources available")
	}

	// Render on stderr so the picked id can be captured from stdout.
	lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(os.Stderr, termenv.WithColorCache(true)))

	m := newSourceSelectModel(sources)
	p := tea.NewProgram(m, tea.WithOutput(os.Stderr))

	finalModel, err := p.Run()
	if err != nil {
		return SourceSelectResult{Abort: true}, err
	}

	return finalModel.(sourceSelectModel).result, nil
}
