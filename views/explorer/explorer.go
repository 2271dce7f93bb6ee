package explorer

import (
	"fmt"
	"strings"
	"time"

	"trustchain-tui/contract"
	"trustchain-tui/helpers"
	"trustchain-tui/styles"

	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/common"
)

const Heading = "Global Donations"

// State is everything the explorer shows. Events must already be newest
// first.
type State struct {
	Events   []contract.DonationEvent
	Names    map[common.Address]string
	Selected int
	Loading  bool
	LoadedAt time.Time
	Error    string
	Notice   string
	ShowQR   bool

	// TxURL turns a transaction hash into a block-explorer link.
	TxURL func(hash string) string
}

// Link returns the block-explorer URL of the i-th event.
func (s State) Link(i int) string {
	if i < 0 || i >= len(s.Events) || s.TxURL == nil {
		return ""
	}
	return s.TxURL(s.Events[i].TxHash.Hex())
}

// Row renders one donation line.
func Row(ev contract.DonationEvent, receiverName, link string, selected bool, leftWidth int) string {
	marker := "  "
	nameStyle := lipgloss.NewStyle().Foreground(styles.CText).Bold(true)
	if selected {
		marker = lipgloss.NewStyle().Foreground(styles.CAccent2).Bold(true).Render("▶ ")
		nameStyle = nameStyle.Foreground(styles.CAccent2)
	}

	to := "To: " + helpers.PrefixAddr(ev.Receiver.Hex(), 8)
	if receiverName != "" {
		to += " (" + receiverName + ")"
	}
	amount := lipgloss.NewStyle().Foreground(styles.CAccent).Bold(true).Render("+" + helpers.FormatEther(ev.Amount) + " ETH")
	view := helpers.Hyperlink(link, "View ↗")

	left := marker + nameStyle.Render(ev.DonorName) + "\n  " + styles.MutedStyle.Render(to)
	right := amount + "  " + view
	if !ev.Timestamp.IsZero() {
		right += "\n" + styles.MutedStyle.Render(ev.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, lipgloss.NewStyle().Width(leftWidth).Render(left), right)
}

// Render renders the feed. height bounds the number of rows shown around the
// selection.
func Render(s State, width, height int, spinnerView string) string {
	leftWidth := max(30, min(56, width/2))
	header := styles.TitleStyle.Render(Heading)
	status := styles.MutedStyle.Render(fmt.Sprintf("%d donations · updated %s", len(s.Events), helpers.LoadedAt(s.LoadedAt, s.Loading)))
	lines := []string{header, status, ""}

	if s.Error != "" {
		lines = append(lines, styles.ErrorStyle.Render(s.Error), "")
	}
	if s.Loading && len(s.Events) == 0 {
		lines = append(lines, spinnerView+" Fetching DonationMade events…")
		return strings.Join(lines, "\n")
	}
	if len(s.Events) == 0 {
		lines = append(lines, styles.MutedStyle.Render("No donations yet."))
		return strings.Join(lines, "\n")
	}

	s.Selected = max(0, min(s.Selected, len(s.Events)-1))
	if s.ShowQR {
		link := s.Link(s.Selected)
		lines = append(lines,
			Row(s.Events[s.Selected], s.Names[s.Events[s.Selected].Receiver], link, true, leftWidth),
			"",
			helpers.QRCode(link),
			styles.MutedStyle.Render(link),
		)
		if s.Notice != "" {
			lines = append(lines, "", styles.SuccessStyle.Render(s.Notice))
		}
		return strings.Join(lines, "\n")
	}

	// each row is three lines including the gap
	visible := max(1, (height-4)/3)
	start := 0
	if s.Selected >= visible {
		start = s.Selected - visible + 1
	}
	end := min(len(s.Events), start+visible)
	for i := start; i < end; i++ {
		ev := s.Events[i]
		lines = append(lines, Row(ev, s.Names[ev.Receiver], s.Link(i), i == s.Selected, leftWidth), "")
	}
	if end < len(s.Events) {
		lines = append(lines, styles.MutedStyle.Render(fmt.Sprintf("… %d more", len(s.Events)-end)))
	}
	if s.Notice != "" {
		lines = append(lines, "", styles.SuccessStyle.Render(s.Notice))
	}
	return strings.Join(lines, "\n")
}

// Nav returns the navigation bar for the explorer
func Nav(width int, showQR bool) string {
	var hints []string
	if showQR {
		hints = []string{styles.Hint("Enter", "close QR"), styles.Hint("y", "copy link"), styles.Hint("Esc", "back")}
	} else {
		hints = []string{
			styles.Hint("↑/↓", "select"),
			styles.Hint("Enter", "QR code"),
			styles.Hint("y", "copy link"),
			styles.Hint("r", "refresh"),
			styles.Hint("h", "home"),
			styles.Hint("l", "logger"),
		}
	}
	return styles.NavStyle.Width(width).Render(strings.Join(hints, "   "))
}
