package about

import (
	"strings"

	"trustchain-tui/config"
	"trustchain-tui/styles"

	"github.com/charmbracelet/lipgloss"
)

const (
	Heading = "About TrustChain"
	Mission = "Empowering transparency in charity through Blockchain technology."
)

// Render renders the static about page. contract is the bound contract
// address, network the connected chain and endpoints the configured nodes.
func Render(contract, network string, endpoints []config.RPCUrl) string {
	lines := []string{
		styles.TitleStyle.Render(Heading),
		"",
		Mission,
		"",
		styles.MutedStyle.Render("Every donation is a DonationMade event on-chain. Anyone can verify it"),
		styles.MutedStyle.Render("on a block explorer; nothing is stored by this client that the chain"),
		styles.MutedStyle.Render("does not already hold."),
		"",
		styles.MutedStyle.Render("Contract: ") + contract,
		styles.MutedStyle.Render("Network:  ") + network,
		"",
	}
	return strings.Join(append(lines, renderEndpoints(endpoints)...), "\n")
}

func renderEndpoints(endpoints []config.RPCUrl) []string {
	if len(endpoints) == 0 {
		return []string{styles.MutedStyle.Render("No RPC URLs configured. Set ETH_RPC_URL.")}
	}

	lines := []string{styles.MutedStyle.Render("RPC endpoints:")}
	for _, rpc := range endpoints {
		marker := lipgloss.NewStyle().Foreground(styles.CMuted).Render("○ ")
		nameStyle := lipgloss.NewStyle().Foreground(styles.CText)
		if rpc.Active {
			marker = lipgloss.NewStyle().Foreground(styles.CAccent).Render("● ")
			nameStyle = nameStyle.Foreground(styles.CAccent2).Bold(true)
		}
		lines = append(lines, marker+nameStyle.Render(rpc.Name)+"  "+styles.MutedStyle.Render(rpc.URL))
	}
	return lines
}

// Nav returns the navigation bar for the about page
func Nav(width int) string {
	left := strings.Join([]string{
		styles.Hint("h", "home"),
		styles.Hint("e", "explorer"),
		styles.Hint("l", "logger"),
		styles.Hint("Esc", "back"),
	}, "   ")
	return styles.NavStyle.Width(width).Render(left)
}
