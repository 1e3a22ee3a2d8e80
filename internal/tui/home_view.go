package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var asciiLogo = []string{
	`██╗  ██╗██╗   ██╗██████╗ ███████╗██████╗ ██████╗ ███████╗███████╗██╗  ██╗`,
	`██║  ██║╚██╗ ██╔╝██╔══██╗██╔════╝██╔══██╗██╔══██╗██╔════╝██╔════╝██║ ██╔╝`,
	`███████║ ╚████╔╝ ██████╔╝█████╗  ██████╔╝██║  ██║█████╗  ███████╗█████╔╝ `,
	`██╔══██║  ╚██╔╝  ██╔═══╝ ██╔══╝  ██╔══██╗██║  ██║██╔══╝  ╚════██║██╔═██╗ `,
	`██║  ██║   ██║   ██║     ███████╗██║  ██║██████╔╝███████╗███████║██║  ██╗`,
	`╚═╝  ╚═╝   ╚═╝   ╚═╝     ╚══════╝╚═╝  ╚═╝╚═════╝ ╚══════╝╚══════╝╚═╝  ╚═╝`,
}

func renderHomeScreen(width, height int, profile string, updateVersion string) string {
	logoStyle := lipgloss.NewStyle().Foreground(colorAccent)
	keyStyle := lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	labelStyle := lipgloss.NewStyle().Foreground(colorText)

	var lines []string

	// Narrow terminals get the name instead of the logo
	if width >= lipgloss.Width(asciiLogo[0]) {
		for _, l := range asciiLogo {
			lines = append(lines, logoStyle.Render(l))
		}
	} else {
		lines = append(lines, logoStyle.Bold(true).Render("hyperdesk"))
	}
	lines = append(lines, "")
	if profile != "" {
		lines = append(lines, "          "+helpDimStyle.Render("signed in as "+profile))
	}
	lines = append(lines, "")

	lines = append(lines, "          "+keyStyle.Render("[f]")+"  "+labelStyle.Render("Feed"))
	lines = append(lines, "          "+keyStyle.Render("[s]")+"  "+labelStyle.Render("Sites"))
	lines = append(lines, "")
	lines = append(lines, "          "+keyStyle.Render("[q]")+"  "+labelStyle.Render("Quit"))

	// Update notification
	if updateVersion != "" {
		lines = append(lines, "")
		lines = append(lines, "          "+logoStyle.Render("Update available: v"+updateVersion+" → go install github.com/matheuskafuri/hyperdesk@latest"))
	}

	content := strings.Join(lines, "\n")
	contentHeight := strings.Count(content, "\n") + 1

	topPad := (height - contentHeight) / 3
	if topPad < 0 {
		topPad = 0
	}

	// Center horizontally
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top,
		strings.Repeat("\n", topPad)+content)
}
