package log

import (
	"fmt"

	"trustchain-tui/styles"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// PanelHeight is the number of viewport lines the panel uses for a screen of
// the given height: at most a third of the screen and never more than 15.
func PanelHeight(screenHeight int) int {
	// header (3), nav (1), title and borders (4), margins (2)
	available := max(5, screenHeight-10)
	return min(available, min(screenHeight/3, 15))
}

// Render renders the log panel. pending is the number of in-flight contract
// writes, shown next to the title.
func Render(width, height int, ready bool, spinnerView string, vp viewport.Model, pending int) string {
	title := lipgloss.NewStyle().
		Foreground(styles.CAccent2).
		Bold(true).
		Render("Log")
	if pending > 0 {
		title += lipgloss.NewStyle().Foreground(styles.CWarn).Render(fmt.Sprintf(" · %d pending tx", pending))
	}

	panelHeight := PanelHeight(height)
	vp.Height = panelHeight

	border := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(styles.CBorder).
		Padding(0, 1).
		Width(max(0, width-2)).
		Height(panelHeight + 2)

	if !ready {
		return border.Render(title + "\n\n" + "initializing...\n" + spinnerView)
	}

	if vp.TotalLineCount() > vp.Height {
		title += styles.MutedStyle.Render(fmt.Sprintf(" [%d%%]", int(vp.ScrollPercent()*100)))
	}
	return border.Render(title + "\n\n" + vp.View())
}
