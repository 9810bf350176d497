// Package tui implements "unitydialog watch", a live view of the parents the
// daemon is dimming and the dialogs attached to them.
package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/1broseidon/unitydialog/internal/dialog"
	"github.com/1broseidon/unitydialog/internal/ipc"
)

// DefaultInterval is how often the daemon is polled.
const DefaultInterval = 500 * time.Millisecond

// Source is the daemon as seen by the watch view. *ipc.Client implements it.
type Source interface {
	GetStatus() (*ipc.StatusData, error)
	ListParents() (*ipc.ParentsData, error)
}

// Run starts the watch view and blocks until the user quits.
func Run(source Source, interval time.Duration) error {
	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("watch requires an interactive terminal (stdin/stdout must be TTYs)")
	}
	_, err := tea.NewProgram(newModel(source, interval), tea.WithAltScreen()).Run()
	return err
}

type tickMsg time.Time

type snapshotMsg struct {
	status  *ipc.StatusData
	parents []dialog.ParentInfo
	err     error
	at      time.Time
}

// model is the root bubbletea model for the watch view.
type model struct {
	source   Source
	interval time.Duration

	status  *ipc.StatusData
	parents []dialog.ParentInfo
	err     error
	updated time.Time

	selected int
	width    int
	height   int
}

func newModel(source Source, interval time.Duration) model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return model{source: source, interval: interval}
}

func (m model) fetch() tea.Cmd {
	source := m.source
	return func() tea.Msg {
		msg := snapshotMsg{at: time.Now()}
		msg.status, msg.err = source.GetStatus()
		if msg.err != nil {
			return msg
		}
		data, err := source.ListParents()
		if err != nil {
			msg.err = err
			return msg
		}
		msg.parents = data.Parents
		return msg
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return m.fetch()
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "up", "k":
			m.moveSelection(-1)
		case "down", "j":
			m.moveSelection(1)
		case "r":
			return m, m.fetch()
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tickMsg:
		return m, m.fetch()

	case snapshotMsg:
		m.apply(msg)
		return m, m.tick()
	}
	return m, nil
}

// apply stores a poll result. The selection follows the selected parent
// when it is still tracked.
func (m *model) apply(msg snapshotMsg) {
	m.err = msg.err
	m.updated = msg.at
	if msg.err != nil {
		m.status = nil
		m.parents = nil
		m.selected = 0
		return
	}

	var prev dialog.ParentInfo
	hadSelection := m.selected < len(m.parents)
	if hadSelection {
		prev = m.parents[m.selected]
	}

	m.status = msg.status
	m.parents = msg.parents
	m.selected = min(m.selected, max(len(m.parents)-1, 0))
	if !hadSelection {
		return
	}
	for i, p := range m.parents {
		if p.ID == prev.ID {
			m.selected = i
			return
		}
	}
}

func (m *model) moveSelection(delta int) {
	if len(m.parents) == 0 {
		return
	}
	m.selected += delta
	if m.selected < 0 {
		m.selected = len(m.parents) - 1
	} else if m.selected >= len(m.parents) {
		m.selected = 0
	}
}

// View implements tea.Model.
func (m model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	statusBar := renderStatusBar(m.status, m.err, m.width)
	helpBar := renderHelpBar(m.width)

	contentHeight := m.height - lipgloss.Height(statusBar) - lipgloss.Height(helpBar)
	if contentHeight < 1 {
		contentHeight = 1
	}

	var content string
	switch {
	case m.err != nil:
		content = lipgloss.NewStyle().Width(m.width).Height(contentHeight).Padding(1, 2).
			Render(errorStyle.Render(m.err.Error()))
	case len(m.parents) == 0:
		content = emptyStyle.Width(m.width).Height(contentHeight).Render("no dialogs open")
	default:
		content = lipgloss.NewStyle().Height(contentHeight).MaxHeight(contentHeight).
			Render(lipgloss.JoinVertical(lipgloss.Left, m.renderTable(), m.renderDetail()))
	}

	return lipgloss.JoinVertical(lipgloss.Left, statusBar, content, helpBar)
}

func (m model) renderTable() string {
	lines := []string{headerStyle.Render(fmt.Sprintf(" %-12s %-10s %-12s %-5s %s", "PARENT", "DIALOGS", "DIM", "INPUT", "CONSTRAINED"))}
	for i, p := range m.parents {
		line := fmt.Sprintf(" %-12s %-10d %-12s %-5s %s",
			windowID(p.ID),
			len(p.Transients),
			dimBar(dimLevel(p)),
			yesNo(p.HasInputPassthrough),
			yesNo(p.Constrained),
		)
		switch {
		case i == m.selected:
			line = selectedRowStyle.Width(m.width).Render(line)
		case len(p.Transients) == 0:
			line = fadingRowStyle.Render(line)
		default:
			line = rowStyle.Render(line)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m model) renderDetail() string {
	if m.selected >= len(m.parents) {
		return ""
	}
	p := m.parents[m.selected]

	var sb strings.Builder
	fmt.Fprintf(&sb, "parent %s  dim %3.0f%%", windowID(p.ID), dimLevel(p)*100)
	if len(p.Transients) == 0 {
		sb.WriteString("\nfading out")
	}
	for _, t := range p.Transients {
		fmt.Fprintf(&sb, "\n└─ %s", windowID(t))
	}
	if !m.updated.IsZero() {
		fmt.Fprintf(&sb, "\nupdated %s", m.updated.Format("15:04:05"))
	}

	width := m.width - 2
	if width < 1 {
		width = 1
	}
	return detailStyle.Width(width).Render(sb.String())
}

func dimLevel(p dialog.ParentInfo) float64 {
	return float64(p.ShadeProgress) / float64(dialog.Opaque)
}

func windowID[T ~uint32](id T) string {
	return fmt.Sprintf("0x%07x", uint32(id))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
