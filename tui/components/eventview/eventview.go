// Package eventview is a live, scrollable view of semantic events.
package eventview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/grovetools/notify/internal/hub"
	"github.com/grovetools/notify/pkg/events"
	"github.com/grovetools/notify/tui/theme"
)

// DefaultMaxEntries bounds the retained history.
const DefaultMaxEntries = 5000

// UpdateMsg carries one hub update into the model.
type UpdateMsg hub.Update

// closedMsg is sent once the update channel is closed.
type closedMsg struct{}

type entry struct {
	update hub.Update
}

// Model is the live event view.
type Model struct {
	viewport viewport.Model
	spinner  spinner.Model
	help     help.Model
	keys     KeyMap
	theme    *theme.Theme

	updates <-chan hub.Update
	title   string

	entries    []entry
	maxEntries int
	counts     map[events.Kind]int
	errors     int
	hidden     map[events.Kind]bool

	follow      bool
	ready       bool
	sourceReady bool
	closed      bool
	width       int
	height      int
}

// New creates a view reading from updates. title is shown in the header,
// usually the watched path.
func New(updates <-chan hub.Update, title string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	vp := viewport.New(0, 0)
	// "f" toggles follow mode here.
	vp.KeyMap.PageDown = key.NewBinding(key.WithKeys("pgdown", " "))
	return Model{
		viewport:   vp,
		spinner:    sp,
		help:       help.New(),
		keys:       DefaultKeyMap(),
		theme:      theme.DefaultTheme,
		updates:    updates,
		title:      title,
		maxEntries: DefaultMaxEntries,
		counts:     make(map[events.Kind]int),
		hidden:     make(map[events.Kind]bool),
		follow:     true,
	}
}

func (m Model) waitForUpdate() tea.Cmd {
	if m.updates == nil {
		return nil
	}
	updates := m.updates
	return func() tea.Msg {
		u, ok := <-updates
		if !ok {
			return closedMsg{}
		}
		return UpdateMsg(u)
	}
}

// Init starts the spinner and the first read.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForUpdate())
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.render()

	case UpdateMsg:
		m.apply(hub.Update(msg))
		cmds = append(cmds, m.waitForUpdate())

	case closedMsg:
		m.closed = true

	case spinner.TickMsg:
		if !m.sourceReady && !m.closed {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Follow):
			m.follow = !m.follow
			if m.follow {
				m.viewport.GotoBottom()
			}
		case key.Matches(msg, m.keys.Top):
			m.follow = false
			m.viewport.GotoTop()
		case key.Matches(msg, m.keys.Bottom):
			m.viewport.GotoBottom()
		case key.Matches(msg, m.keys.Clear):
			m.entries = nil
			m.render()
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			m.resize()
			m.render()
		default:
			for _, tg := range m.keys.toggles() {
				if key.Matches(msg, tg.binding) {
					m.hidden[tg.kind] = !m.hidden[tg.kind]
					m.render()
				}
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) apply(u hub.Update) {
	switch u.Type {
	case hub.UpdateReady:
		m.sourceReady = true
	case hub.UpdateClosed:
		m.closed = true
	case hub.UpdateEvent:
		if u.Event == nil {
			return
		}
		m.counts[u.Event.Kind]++
	case hub.UpdateError:
		m.errors++
	}

	if u.Type != hub.UpdateEvent && u.Type != hub.UpdateError && u.Type != hub.UpdateExit && u.Type != hub.UpdateReload {
		return
	}
	m.entries = append(m.entries, entry{update: u})
	if len(m.entries) > m.maxEntries {
		m.entries = m.entries[len(m.entries)-m.maxEntries:]
	}
	m.render()
}

func (m *Model) resize() {
	if m.height == 0 {
		return
	}
	chrome := lipgloss.Height(m.headerView()) + lipgloss.Height(m.footerView())
	m.viewport.Width = m.width
	m.viewport.Height = max(1, m.height-chrome)
}

// render rebuilds the viewport content from the retained entries.
func (m *Model) render() {
	if !m.ready {
		return
	}
	width := max(1, m.viewport.Width-1)
	wrap := lipgloss.NewStyle().Width(width)

	var lines []string
	for _, e := range m.entries {
		line, ok := m.formatEntry(e.update)
		if !ok {
			continue
		}
		lines = append(lines, wrap.Render(line))
	}
	m.viewport.SetContent(strings.Join(lines, "\n"))
	if m.follow {
		m.viewport.GotoBottom()
	}
}

func (m Model) formatEntry(u hub.Update) (string, bool) {
	at := m.theme.Muted.Render(u.At.Format("15:04:05.000"))
	switch u.Type {
	case hub.UpdateEvent:
		if m.hidden[u.Event.Kind] {
			return "", false
		}
		return fmt.Sprintf("%s %s %s", at, theme.Icon(u.Event.Kind), m.theme.RenderEvent(*u.Event)), true
	case hub.UpdateError:
		return fmt.Sprintf("%s %s %v", at, m.theme.Error.Render("error"), u.Err), true
	case hub.UpdateExit:
		if u.Err != nil {
			return fmt.Sprintf("%s %s %v", at, m.theme.Error.Render("exit"), u.Err), true
		}
		return fmt.Sprintf("%s %s", at, m.theme.Warning.Render("source ended")), true
	case hub.UpdateReload:
		return fmt.Sprintf("%s %s", at, m.theme.Info.Render("source restarted")), true
	}
	return "", false
}

func (m Model) headerView() string {
	var status string
	switch {
	case m.closed:
		status = m.theme.Muted.Render("closed")
	case m.sourceReady:
		status = m.theme.Success.Render("watching")
	default:
		status = m.spinner.View() + " " + m.theme.Muted.Render("setting up watches")
	}
	return m.theme.Header.Render("notify") + " " + m.theme.Path.Render(m.title) + "  " + status
}

func (m Model) footerView() string {
	var parts []string
	for _, k := range events.Kinds {
		label := fmt.Sprintf("%s %d", k, m.counts[k])
		if m.hidden[k] {
			parts = append(parts, m.theme.Muted.Render(label))
		} else {
			parts = append(parts, m.theme.Kind(k).Render(label))
		}
	}
	if m.errors > 0 {
		parts = append(parts, m.theme.Error.Render(fmt.Sprintf("errors %d", m.errors)))
	}
	if !m.follow {
		parts = append(parts, m.theme.Warning.Render("paused"))
	}
	return strings.Join(parts, "  ") + "\n" + m.help.View(m.keys)
}

// View renders the header, the event list with its scrollbar and the footer.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	return m.headerView() + "\n" + overlay(&m.viewport, m.theme.Muted) + "\n" + m.footerView()
}

// Counts returns the number of events seen per kind.
func (m Model) Counts() map[events.Kind]int {
	return m.counts
}

// IsFollowing returns whether the view sticks to the newest event.
func (m Model) IsFollowing() bool {
	return m.follow
}
