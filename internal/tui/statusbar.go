package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

type status struct {
	count      int
	noun       string
	scope      string
	filter     string
	searching  bool
	refreshing bool
	loading    bool
}

func renderStatusBar(s status, width int) string {
	scopeStyle := lipgloss.NewStyle().
		Foreground(colorAccent).
		Bold(true)

	left := fmt.Sprintf(" %d %s", s.count, s.noun)
	if s.scope != "" {
		left += " · " + scopeStyle.Render(s.scope)
	}
	if s.filter != "All" && s.filter != "" {
		left += " · " + s.filter
	}
	if s.loading {
		left += " (loading...)"
	}
	if s.refreshing {
		left += " (syncing...)"
	}

	right := " h home  / search  ? help  q quit "
	if s.searching {
		right = " esc clear  enter done "
	}

	gap := width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	bar := left + fmt.Sprintf("%*s", gap, "") + right

	return statusBarStyle.Width(width).Render(bar)
}

func renderBottomBar(hints string, width int) string {
	right := " " + hints + " "

	gap := width - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return statusBarStyle.Width(width).Render(fmt.Sprintf("%*s", gap, "") + right)
}
