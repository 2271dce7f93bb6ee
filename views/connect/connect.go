package connect

import (
	"strings"

	"trustchain-tui/helpers"
	"trustchain-tui/styles"

	"github.com/charmbracelet/huh"
)

// Temporary form field storage
var (
	TempApproved   bool
	TempPassphrase string
)

// CreateForm creates the account access prompt. A passphrase field is added
// for providers that need one to unlock.
func CreateForm(provider, account string, needsPassphrase bool) *huh.Form {
	TempApproved = false
	TempPassphrase = ""

	fields := []huh.Field{
		huh.NewConfirm().
			Title("Connect " + provider + "?").
			Description("TrustChain requests access to " + helpers.ShortenAddr(account)).
			Affirmative("Connect").
			Negative("Reject").
			Value(&TempApproved),
	}
	if needsPassphrase {
		fields = append(fields, huh.NewInput().
			Title("Passphrase").
			Description("Unlocks the keystore account").
			EchoMode(huh.EchoModePassword).
			Value(&TempPassphrase))
	}

	form := huh.NewForm(huh.NewGroup(fields...)).WithTheme(huh.ThemeCatppuccin())
	form.Init()
	return form
}

// Render renders the prompt panel
func Render(form *huh.Form) string {
	lines := []string{styles.TitleStyle.Render("Connect Wallet"), ""}
	if form != nil {
		lines = append(lines, form.View())
	}
	return strings.Join(lines, "\n")
}

// Nav returns the navigation bar while the prompt is open
func Nav(width int) string {
	hints := []string{
		styles.Hint("←/→", "choose"),
		styles.Hint("Enter", "confirm"),
		styles.Hint("Esc", "cancel"),
	}
	return styles.NavStyle.Width(width).Render(strings.Join(hints, "   "))
}
