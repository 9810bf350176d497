package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/unitydialog/internal/ipc"
)

var (
	headerStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("250"))
	selectedRowStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	rowStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	fadingRowStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	emptyStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Align(lipgloss.Center, lipgloss.Center)

	detailStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1)
)

const dimBarWidth = 10

// dimBar renders a dim level in [0, 1] as a fixed-width bar.
func dimBar(level float64) string {
	level = min(max(level, 0), 1)
	filled := int(level*dimBarWidth + 0.5)
	return strings.Repeat("█", filled) + strings.Repeat("░", dimBarWidth-filled)
}

// renderStatusBar renders the daemon connection status bar.
func renderStatusBar(status *ipc.StatusData, err error, width int) string {
	var text string
	if err == nil && status != nil {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("●")
		parts := []string{
			dot + " daemon connected",
			fmt.Sprintf("windows:%d", status.Windows),
			fmt.Sprintf("parents:%d", status.Parents),
			fmt.Sprintf("transients:%d", status.Transients),
			fmt.Sprintf("fade:%dms", status.FadeTimeMS),
		}
		if status.SwitchingViewport {
			parts = append(parts, "switching viewport")
		}
		text = strings.Join(parts, "  ")
	} else {
		dot := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("●")
		text = dot + " daemon not running"
	}

	style := lipgloss.NewStyle().
		Width(width).
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("250")).
		Padding(0, 1)
	return style.Render(text)
}

// renderHelpBar renders the bottom help/keybinding bar.
func renderHelpBar(width int) string {
	help := "↑/↓ j/k: select parent  r: refresh  q/ctrl-c: quit"
	style := lipgloss.NewStyle().
		Width(width).
		Foreground(lipgloss.Color("241")).
		Padding(0, 1)
	return style.Render(help)
}
