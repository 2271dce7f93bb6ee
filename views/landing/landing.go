package landing

import (
	"strings"

	"trustchain-tui/helpers"
	"trustchain-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const (
	Title      = "TRUSTCHAIN"
	Tagline    = "Transparency in Every Byte."
	CallToAct  = "Donate Now ➜"
	ConnectMsg = "Please connect your wallet first!"
)

// Render renders the landing page. notice is shown under the call to action,
// typically ConnectMsg after an unauthenticated Enter.
func Render(width int, notice string) string {
	inner := max(0, width-8)
	center := lipgloss.NewStyle().Width(inner).Align(lipgloss.Center)

	title := lipgloss.NewStyle().Bold(true).Render(helpers.FadeString(spaced(Title), styles.FadeFrom, styles.FadeTo))
	tagline := styles.MutedStyle.Italic(true).Render(Tagline)
	button := styles.ActiveButtonStyle.Render(CallToAct)

	lines := []string{
		"",
		center.Render(title),
		"",
		center.Render(tagline),
		"",
		center.Render(button),
	}
	if notice != "" {
		lines = append(lines, "", center.Render(styles.WarnStyle.Render(notice)))
	}
	return strings.Join(lines, "\n")
}

func spaced(s string) string {
	return strings.Join(strings.Split(s, ""), " ")
}

// Nav returns the navigation bar for the landing page
func Nav(width int, connected bool) string {
	hints := []string{styles.Hint("Enter", "donate")}
	if connected {
		hints = append(hints, styles.Hint("p", "profile"), styles.Hint("x", "disconnect"))
	} else {
		hints = append(hints, styles.Hint("c", "connect wallet"))
	}
	hints = append(hints,
		styles.Hint("a", "about"),
		styles.Hint("e", "explorer"),
		styles.Hint("l", "logger"),
		styles.Hint("q", "quit"),
	)
	return styles.NavStyle.Width(width).Render(strings.Join(hints, "   "))
}
