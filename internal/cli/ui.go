package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/CortexCommittee/consts"
)

var (
	welcomeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#7C3AED")).
			Bold(true).
			Align(lipgloss.Center).
			Width(80)

	taglineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Italic(true).
			Align(lipgloss.Center).
			Width(80).
			MarginBottom(1)

	rosterStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#10B981")).
			Padding(0, 2).
			Width(80)
)

func welcomeBanner() string {
	var b strings.Builder
	b.WriteString(welcomeStyle.Render("C O R T E X   C O M M I T T E E") + "\n")
	b.WriteString(taglineStyle.Render("Multi-agent investment committee powered by Large Language Models") + "\n")
	b.WriteString(rosterStyle.Render("Seated today:\n  " + strings.Join(consts.CommitteeRoster, "\n  ")))
	return b.String()
}
