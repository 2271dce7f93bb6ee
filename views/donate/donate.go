package donate

import (
	"errors"
	"math/big"
	"strings"

	"trustchain-tui/helpers"
	"trustchain-tui/styles"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// Temporary form field storage
var (
	TempAmount   string
	TempReceiver string
)

// State is everything the donate page shows.
type State struct {
	Connected     bool
	Balance       *big.Int
	BalanceLoaded bool

	Busy   bool
	Status string
	Error  string

	// set once a donation is confirmed
	TxHash    string
	TxURL     string
	Amount    string
	Receiver  string
	CopiedMsg string
}

// CreateForm creates the donation form. A known balance caps the amount.
func CreateForm(balance *big.Int) *huh.Form {
	TempAmount = ""
	TempReceiver = ""

	desc := "Amount in ETH"
	if balance != nil {
		desc = "Available: " + helpers.FormatEtherFixed(balance, 4) + " ETH"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Amount (ETH)").
				Description(desc).
				Placeholder("0.1").
				Value(&TempAmount).
				Validate(func(s string) error { return ValidateAmount(s, balance) }),

			huh.NewInput().
				Title("Receiver").
				Description("Wallet address of the cause (Ctrl+v to paste)").
				Placeholder("0x...").
				CharLimit(42).
				Value(&TempReceiver).
				Validate(func(s string) error {
					if !helpers.IsValidEthAddress(strings.TrimSpace(s)) {
						return errors.New("invalid ethereum address")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// ValidateAmount rejects empty, malformed and non-positive amounts, and
// amounts above balance when balance is known.
func ValidateAmount(s string, balance *big.Int) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("amount is required")
	}
	wei, err := helpers.ParseEther(s)
	if err != nil {
		return errors.New("invalid amount")
	}
	if wei.Sign() <= 0 {
		return errors.New("amount must be greater than 0")
	}
	if balance != nil && wei.Cmp(balance) > 0 {
		return errors.New("amount exceeds balance")
	}
	return nil
}

// Render renders the donate page
func Render(s State, form *huh.Form, spinnerView string) string {
	lines := []string{styles.TitleStyle.Render("Make a Donation"), ""}
	if !s.Connected {
		lines = append(lines, styles.WarnStyle.Render("Please connect your wallet first!"))
		return strings.Join(lines, "\n")
	}

	balance := spinnerView
	if s.BalanceLoaded {
		balance = helpers.FormatEtherFixed(s.Balance, 4) + " ETH"
	}
	lines = append(lines, styles.MutedStyle.Render("Balance: ")+balance, "")

	switch {
	case s.Busy:
		lines = append(lines, spinnerView+" "+s.Status)
	case s.TxHash != "":
		lines = append(lines, renderSuccess(s))
	case form != nil:
		lines = append(lines, form.View())
	}

	if s.Error != "" {
		lines = append(lines, "", styles.ErrorStyle.Render(s.Error))
	}
	return strings.Join(lines, "\n")
}

func renderSuccess(s State) string {
	lines := []string{
		styles.SuccessStyle.Render("Donation confirmed!"),
		"",
		styles.MutedStyle.Render("Sent ") + lipgloss.NewStyle().Bold(true).Render(s.Amount+" ETH") +
			styles.MutedStyle.Render(" to ") + helpers.ShortenAddr(s.Receiver),
		styles.MutedStyle.Render("Tx: ") + helpers.Hyperlink(s.TxURL, helpers.ShortenAddr(s.TxHash)+" ↗"),
		"",
		helpers.QRCode(s.TxURL),
		styles.MutedStyle.Render("Scan to verify on the block explorer"),
	}
	if s.CopiedMsg != "" {
		lines = append(lines, "", styles.SuccessStyle.Render(s.CopiedMsg))
	}
	return strings.Join(lines, "\n")
}

// Nav returns the navigation bar for the donate page
func Nav(width int, s State) string {
	var hints []string
	switch {
	case !s.Connected:
		hints = []string{styles.Hint("c", "connect wallet"), styles.Hint("h", "home")}
	case s.Busy:
		hints = []string{styles.Hint("Esc", "stop waiting")}
	case s.TxHash != "":
		hints = []string{
			styles.Hint("Enter", "new donation"),
			styles.Hint("y", "copy link"),
			styles.Hint("e", "explorer"),
			styles.Hint("h", "home"),
		}
	default:
		hints = []string{
			styles.Hint("Tab", "next field"),
			styles.Hint("Enter", "donate"),
			styles.Hint("Esc", "back"),
		}
	}
	return styles.NavStyle.Width(width).Render(strings.Join(hints, "   "))
}
