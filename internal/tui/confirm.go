package tui

import (
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

var (
	confirmLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	confirmOptStyle   = lipgloss.NewStyle().Padding(0, 2)
	confirmOnStyle    = confirmOptStyle.Background(lipgloss.Color("212")).Foreground(lipgloss.Color("0"))
)

type ConfirmResult struct {
	Confirmed bool
	Aborted   bool
}

// confirmModel asks a yes/no question. Destructive questions default to No.
type confirmModel struct {
	message string
	yes     bool
	result  ConfirmResult
}

func newConfirmModel(message string, defaultYes bool) confirmModel {
	return confirmModel{message: message, yes: defaultYes}
}

func (m confirmModel) Init() tea.Cmd {
	return nil
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch km.String() {
	case "ctrl+c", "esc", "q":
		m.result = ConfirmResult{Aborted: true}
		return m, tea.Quit
	case "left", "right", "tab", "h", "l":
		m.yes = !m.yes
		return m, nil
	case "y", "Y":
		m.yes = true
		m.result.Confirmed = true
		return m, tea.Quit
	case "n", "N":
		m.yes = false
		m.result.Confirmed = false
		return m, tea.Quit
	case "enter":
		m.result.Confirmed = m.yes
		return m, tea.Quit
	}
	return m, nil
}

func (m confirmModel) View() string {
	yes, no := confirmOptStyle, confirmOnStyle
	if m.yes {
		yes, no = confirmOnStyle, confirmOptStyle
	}

	var sb strings.Builder
	sb.WriteString(confirmLabelStyle.Render(m.message) + "\n\n")
	sb.WriteString(fmt.Sprintf("  %s  %s\n\n", yes.Render("Yes"), no.Render("No")))
	sb.WriteString(helpStyle.Render("←/→: select • enter: confirm • y/n • esc: cancel"))
	return sb.String()
}

// RunConfirm asks message on stderr.
func RunConfirm(message string, defaultYes bool) (ConfirmResult, error) {
	lipgloss.SetDefaultRenderer(lipgloss.NewRenderer(os.Stderr, termenv.WithColorCache(true)))

	p := tea.NewProgram(newConfirmModel(message, defaultYes), tea.WithOutput(os.Stderr))
	finalModel, err := p.Run()
	if err != nil {
		return ConfirmResult{Aborted: true}, err
	}
	return finalModel.(confirmModel).result, nil
}
