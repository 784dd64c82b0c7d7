package tui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tormodhaugland/mtg/internal/browser"
	"github.com/tormodhaugland/mtg/internal/debug"
	"github.com/tormodhaugland/mtg/internal/objectid"
	"github.com/tormodhaugland/mtg/internal/playlist"
	"github.com/tormodhaugland/mtg/internal/renderer"
	"github.com/tormodhaugland/mtg/internal/source"
	"github.com/tormodhaugland/mtg/internal/store"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	paneStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	activePane    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("212")).Padding(0, 1)
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	messageStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	pathStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	modeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	loadingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).PaddingLeft(2)
	playlistStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	currentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("212")).Bold(true)
	flagStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const (
	tickInterval    = 500 * time.Millisecond
	messageLifetime = 4 * time.Second
)

// eventMsg carries a browser event into the bubbletea loop.
type eventMsg struct{ ev browser.Event }

type tickMsg time.Time

type rowItem struct {
	row browser.Row
}

func (i rowItem) Title() string {
	switch {
	case i.row.IsSource():
		return "◆ " + i.row.Title
	case i.row.IsContainer():
		return "▸ " + i.row.Title + "/"
	}
	return "  " + i.row.Title
}

func (i rowItem) Description() string {
	if i.row.IsSource() {
		return "source"
	}
	return i.row.MIME
}

func (i rowItem) FilterValue() string { return i.row.Title }

type keyMap struct {
	Open         key.Binding
	Up           key.Binding
	Refresh      key.Binding
	Home         key.Binding
	Mode         key.Binding
	Playlist     key.Binding
	Info         key.Binding
	NextPlaylist key.Binding
	Shuffle      key.Binding
	Repeat       key.Binding
	PlayPause    key.Binding
	Stop         key.Binding
	Next         key.Binding
	Prev         key.Binding
	Quit         key.Binding
}

var keys = keyMap{
	Open:         key.NewBinding(key.WithKeys("enter", "l", "right"), key.WithHelp("enter", "open/add")),
	Up:           key.NewBinding(key.WithKeys("backspace", "h", "left"), key.WithHelp("backspace/h", "up")),
	Refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Home:         key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "sources")),
	Mode:         key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "model mode")),
	Playlist:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "playlist")),
	Info:         key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "info")),
	NextPlaylist: key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "next playlist")),
	Shuffle:      key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "shuffle")),
	Repeat:       key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "repeat")),
	PlayPause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
	Stop:         key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
	Next:         key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "next")),
	Prev:         key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "previous")),
	Quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// sidePane is what the right-hand pane shows.
type sidePane int

const (
	sideNone sidePane = iota
	sidePlaylist
	sideInfo
)

// listView mirrors the display model into the list while it is bound.
type listView struct {
	bound bool
	dirty bool
}

func (v *listView) Bind(*browser.Model) { v.bound, v.dirty = true, true }
func (v *listView) Unbind()             { v.bound = false }
func (v *listView) Changed()            { v.dirty = true }

// status holds the transient message shown under the panes.
type status struct {
	text  string
	until time.Time
	now   func() time.Time
}

func (s *status) set(msg string) {
	s.text = msg
	s.until = s.now().Add(messageLifetime)
}

func (s *status) expire(now time.Time) {
	if s.text != "" && now.After(s.until) {
		s.text = ""
	}
}

// Options configure the browser UI.
type Options struct {
	Registry      *source.Registry
	Playlist      *playlist.Playlist
	Mode          browser.Mode
	BatchSize     int
	BrowseTimeout time.Duration
	// MetadataTimeout bounds the info pane lookup. Defaults to BrowseTimeout.
	MetadataTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Model is the bubbletea model of the browser.
type Model struct {
	ctrl     *browser.Controller
	playlist *playlist.Playlist
	renderer *renderer.Renderer
	view     *listView
	status   *status
	info     info

	list    list.Model
	spinner spinner.Model
	pane    viewport.Model

	side      sidePane
	container string
	width     int
	height    int
}

// New builds the browser model. post must hand events back to the
// program running the model.
func New(opts Options, post func(browser.Event)) *Model {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	st := &status{now: now}

	var enq browser.Enqueuer
	if opts.Playlist != nil {
		enq = opts.Playlist
	}
	ctrl := browser.New(opts.Registry, browser.Options{
		Mode:          opts.Mode,
		BatchSize:     opts.BatchSize,
		BrowseTimeout: opts.BrowseTimeout,
		Post:          post,
		Notify:        st.set,
		Enqueue:       enq,
		Now:           now,
	})

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("212"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("241"))

	l := list.New(nil, delegate, 60, 20)
	l.Title = "Sources"
	l.Styles.Title = headerStyle
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))

	timeout := opts.MetadataTimeout
	if timeout <= 0 {
		timeout = opts.BrowseTimeout
	}
	if timeout <= 0 {
		timeout = browser.DefaultBrowseTimeout
	}

	m := &Model{
		ctrl:     ctrl,
		playlist: opts.Playlist,
		view:     &listView{},
		status:   st,
		info:     info{timeout: timeout},
		list:     l,
		spinner:  sp,
		pane:     viewport.New(40, 20),
	}
	if opts.Playlist != nil {
		m.renderer = renderer.New(opts.Playlist, nil)
	}
	ctrl.Model().SetView(m.view)
	ctrl.ShowSources()
	m.sync()
	return m
}

// Controller exposes the browse controller, mostly for tests.
func (m *Model) Controller() *browser.Controller { return m.ctrl }

func (m *Model) Init() tea.Cmd {
	return tea.Batch(tick(), m.spinner.Tick)
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case eventMsg:
		m.dispatch(msg.ev)
		m.sync()
		return m, m.followSelection()

	case infoMsg:
		if m.info.accept(msg) {
			m.refreshPane()
		}
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		m.dispatch(browser.TickEvent{Now: now})
		m.status.expire(now)
		m.sync()
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit

		case key.Matches(msg, keys.Open):
			if item, ok := m.list.SelectedItem().(rowItem); ok {
				m.dispatch(browser.NavigateEvent{Action: browser.NavActivate, Row: item.row})
				m.refreshPane()
			}
			m.sync()
			return m, m.followSelection()

		case key.Matches(msg, keys.Up):
			if m.list.FilterState() == list.FilterApplied {
				m.list.ResetFilter()
			}
			m.dispatch(browser.NavigateEvent{Action: browser.NavAscend})
			m.sync()
			return m, m.followSelection()

		case key.Matches(msg, keys.Refresh):
			m.dispatch(browser.NavigateEvent{Action: browser.NavRefresh})
			m.sync()
			return m, nil

		case key.Matches(msg, keys.Home):
			m.dispatch(browser.NavigateEvent{Action: browser.NavHome})
			m.sync()
			return m, m.followSelection()

		case key.Matches(msg, keys.Mode):
			mode := m.ctrl.Model().Mode().Next()
			m.ctrl.SetMode(mode)
			m.status.set(fmt.Sprintf("Model mode: %s", mode))
			m.sync()
			return m, nil

		case key.Matches(msg, keys.Playlist):
			m.toggleSide(sidePlaylist)
			return m, nil

		case key.Matches(msg, keys.Info):
			m.toggleSide(sideInfo)
			return m, m.followSelection()

		case m.playlist != nil && key.Matches(msg, keys.NextPlaylist):
			m.nextPlaylist()
			return m, nil

		case m.playlist != nil && key.Matches(msg, keys.Shuffle):
			m.toggleFlag("Shuffle", func(i store.PlaylistInfo) bool { return i.Shuffle }, m.playlist.SetShuffle)
			return m, nil

		case m.playlist != nil && key.Matches(msg, keys.Repeat):
			m.toggleFlag("Repeat", func(i store.PlaylistInfo) bool { return i.Repeat }, m.playlist.SetRepeat)
			return m, nil

		case m.renderer != nil && key.Matches(msg, keys.PlayPause):
			m.transport(m.renderer.Toggle)
			return m, nil

		case m.renderer != nil && key.Matches(msg, keys.Stop):
			m.transport(func() error { m.renderer.Stop(); return nil })
			return m, nil

		case m.renderer != nil && key.Matches(msg, keys.Next):
			m.transport(m.renderer.Next)
			return m, nil

		case m.renderer != nil && key.Matches(msg, keys.Prev):
			m.transport(m.renderer.Prev)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	cmds = append(cmds, cmd, m.followSelection())
	return m, tea.Batch(cmds...)
}

func (m *Model) toggleSide(side sidePane) {
	if m.side == side {
		m.side = sideNone
	} else {
		m.side = side
	}
	m.resize()
	m.refreshPane()
}

// followSelection starts a metadata lookup for the selected row while the
// info pane is open and the selection moved.
func (m *Model) followSelection() tea.Cmd {
	if m.side != sideInfo {
		return nil
	}
	item, ok := m.list.SelectedItem().(rowItem)
	if !ok {
		if m.info.clear() {
			m.refreshPane()
		}
		return nil
	}
	if item.row.ObjectID == m.info.objectID {
		return nil
	}
	src, err := m.ctrl.SourceFor(&item.row)
	if err != nil {
		src = nil
	}
	cmd := m.info.request(item.row, src)
	m.refreshPane()
	return cmd
}

func (m *Model) nextPlaylist() {
	all, err := m.playlist.All()
	if err != nil {
		m.status.set(err.Error())
		return
	}
	if len(all) == 0 {
		m.status.set("No other playlists")
		return
	}
	next := all[0].Name
	for i, p := range all {
		if p.Name == m.playlist.Name() {
			next = all[(i+1)%len(all)].Name
			break
		}
	}
	m.playlist.Switch(next)
	if m.renderer != nil {
		if err := m.renderer.Refresh(); err != nil {
			debug.Log("tui: renderer refresh: %v", err)
		}
	}
	m.status.set("Playlist: " + next)
	m.refreshPane()
}

func (m *Model) toggleFlag(name string, get func(store.PlaylistInfo) bool, set func(bool) error) {
	info, err := m.playlist.Info()
	if err != nil {
		m.status.set(err.Error())
		return
	}
	on := !get(info)
	if err := set(on); err != nil {
		m.status.set(err.Error())
		return
	}
	state := "off"
	if on {
		state = "on"
	}
	m.status.set(fmt.Sprintf("%s %s", name, state))
	m.refreshPane()
}

// transport runs a renderer command and reports where playback stands.
func (m *Model) transport(cmd func() error) {
	if err := cmd(); err != nil {
		m.status.set(err.Error())
		m.refreshPane()
		return
	}
	m.status.set(nowPlaying(m.renderer.Status()))
	m.refreshPane()
}

func nowPlaying(st renderer.Status) string {
	if !st.HasItem {
		return "Stopped"
	}
	switch st.State {
	case renderer.Playing:
		return "▶ " + st.Item.Title
	case renderer.Paused:
		return "⏸ " + st.Item.Title
	}
	return "■ " + st.Item.Title
}

// dispatch hands ev to the controller. Errors have already been shown
// through the status line.
func (m *Model) dispatch(ev browser.Event) {
	if err := m.ctrl.Dispatch(ev); err != nil {
		debug.Log("tui: %T: %v", ev, err)
	}
}

// sync copies the display model into the list when the view is bound and
// something changed.
func (m *Model) sync() {
	top, _ := m.ctrl.Stack().PeekID()
	if top != m.container {
		m.container = top
		m.list.ResetSelected()
		m.list.Title = m.title()
	}
	if !m.view.bound || !m.view.dirty {
		return
	}
	m.view.dirty = false

	rows := m.ctrl.Model().Rows()
	items := make([]list.Item, len(rows))
	for i, r := range rows {
		items[i] = rowItem{row: r}
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
}

func (m *Model) title() string {
	id, ok := m.ctrl.Stack().PeekID()
	if !ok {
		return "Sources"
	}
	uuid, p, err := objectid.Split(id)
	if err != nil {
		return id
	}
	name := uuid
	if src, ok := m.ctrl.Registry().Get(uuid); ok {
		name = src.Name()
	}
	if p == "" {
		return name
	}
	return name + " › " + strings.ReplaceAll(p, "/", " › ")
}

func (m *Model) resize() {
	if m.width == 0 {
		return
	}
	h := m.height - 4
	if m.side != sideNone {
		m.list.SetSize(m.width*2/3-4, h-2)
		m.pane.Width = m.width/3 - 4
		m.pane.Height = h - 2
		return
	}
	m.list.SetSize(m.width-4, h-2)
}

// refreshPane redraws the side pane.
func (m *Model) refreshPane() {
	switch m.side {
	case sidePlaylist:
		m.refreshPlaylist()
	case sideInfo:
		m.pane.SetContent(m.info.render())
		m.pane.GotoTop()
	}
}

func (m *Model) refreshPlaylist() {
	if m.playlist == nil {
		m.pane.SetContent(helpStyle.Render("no playlist"))
		return
	}
	items, err := m.playlist.Items()
	if err != nil {
		m.status.set(err.Error())
		return
	}
	info, err := m.playlist.Info()
	if err != nil {
		m.status.set(err.Error())
		return
	}

	var st renderer.Status
	if m.renderer != nil {
		if err := m.renderer.Refresh(); err != nil {
			debug.Log("tui: renderer refresh: %v", err)
		}
		st = m.renderer.Status()
	}

	var flags []string
	if info.Shuffle {
		flags = append(flags, "shuffle")
	}
	if info.Repeat {
		flags = append(flags, "repeat")
	}

	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Playlist: " + m.playlist.Name()))
	if len(flags) > 0 {
		sb.WriteString(" " + flagStyle.Render("["+strings.Join(flags, ", ")+"]"))
	}
	sb.WriteString("\n\n")
	if len(items) == 0 {
		sb.WriteString(helpStyle.Render("empty"))
	}
	for _, it := range items {
		if st.HasItem && st.State != renderer.Stopped && st.Item.Position == it.Position {
			sb.WriteString(currentStyle.Render(fmt.Sprintf("▶%3d  %s", it.Position+1, it.Title)) + "\n")
			continue
		}
		sb.WriteString(playlistStyle.Render(fmt.Sprintf(" %3d  %s", it.Position+1, it.Title)) + "\n")
	}
	m.pane.SetContent(sb.String())
	m.pane.GotoBottom()
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var body string
	if m.view.bound {
		body = m.list.View()
	} else {
		body = headerStyle.Render(m.list.Title) + "\n" +
			loadingStyle.Render(fmt.Sprintf("%s loading %s", m.spinner.View(), m.ctrl.Model().Mode()))
	}

	h := m.height - 4
	var main string
	if m.side != sideNone {
		left := activePane.Width(m.width*2/3 - 2).Height(h).Render(body)
		right := paneStyle.Width(m.width/3 - 2).Height(h).Render(m.pane.View())
		main = lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	} else {
		main = activePane.Width(m.width - 2).Height(h).Render(body)
	}

	return lipgloss.JoinVertical(lipgloss.Left, main, m.statusLine(), m.helpLine())
}

func (m *Model) statusLine() string {
	parts := []string{pathStyle.Render(m.list.Title), modeStyle.Render(m.ctrl.Model().Mode().String())}
	if m.ctrl.Busy() {
		s := m.ctrl.Current()
		parts = append(parts, fmt.Sprintf("%s %d items", m.spinner.View(), s.Rows()))
	}
	if m.renderer != nil {
		if st := m.renderer.Status(); st.State != renderer.Stopped {
			parts = append(parts, currentStyle.Render(nowPlaying(st)))
		}
	}
	if m.status.text != "" {
		parts = append(parts, messageStyle.Render(m.status.text))
	}
	return strings.Join(parts, "  ")
}

func (m *Model) helpLine() string {
	return helpStyle.Render("enter: open/add • backspace/h: up • r: refresh • g: sources • m: mode • p: playlist • i: info • L: next playlist • S/R: shuffle/repeat • space: play/pause • s: stop • </>: prev/next • q: quit")
}

// sender forwards events to a program that is created after the model.
type sender struct {
	p atomic.Pointer[tea.Program]
}

func (s *sender) post(ev browser.Event) {
	if p := s.p.Load(); p != nil {
		p.Send(eventMsg{ev: ev})
	}
}

// Run starts the full-screen browser.
func Run(opts Options) error {
	s := &sender{}
	m := New(opts, s.post)
	p := tea.NewProgram(m, tea.WithAltScreen())
	s.p.Store(p)

	opts.Registry.Subscribe(func(ev source.RegistryEvent) {
		s.post(browser.SourceEvent{Source: ev.Source, Added: ev.Added})
	})
	if err := opts.Registry.WatchAll(func(c source.Change) {
		s.post(browser.ChangeEvent{Change: c})
	}); err != nil {
		debug.Log("tui: watching sources: %v", err)
	}

	_, err := p.Run()
	return err
}
