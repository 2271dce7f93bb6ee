package profile

import (
	"fmt"
	"math/big"
	"strings"

	"trustchain-tui/contract"
	"trustchain-tui/feed"
	"trustchain-tui/helpers"
	"trustchain-tui/styles"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

const (
	ConnectFirst  = "Please Connect Wallet First."
	FormTitle     = "Create Identity"
	ActivityTitle = "Recent Activity"
)

// TempName stores the registration form value
var TempName string

// State is everything the profile page shows.
type State struct {
	Connected bool
	Address   string

	Loading bool
	Loaded  bool
	User    contract.UserProfile

	Balance       *big.Int
	BalanceLoaded bool
	Summary       feed.Summary
	StatsLoaded   bool

	Busy      bool
	Status    string
	Error     string
	CopiedMsg string
}

// CreateForm creates the registration form
func CreateForm() *huh.Form {
	TempName = ""

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(FormTitle).
				Description("Register a display name. Donations you make will carry it.").
				Placeholder("Your name").
				CharLimit(64).
				Value(&TempName).
				Validate(func(s string) error {
					_, err := contract.ValidateName(s)
					if err != nil {
						return fmt.Errorf("enter a name")
					}
					return nil
				}),
		),
	).WithTheme(huh.ThemeCatppuccin())

	form.Init()
	return form
}

// Render renders the profile page. An account is only shown as registered
// when the contract says so.
func Render(s State, form *huh.Form, spinnerView string) string {
	if !s.Connected {
		return styles.TitleStyle.Render("Profile") + "\n\n" + styles.WarnStyle.Render(ConnectFirst)
	}
	if !s.Loaded {
		lines := []string{styles.TitleStyle.Render("Profile"), ""}
		if s.Error != "" {
			lines = append(lines, styles.ErrorStyle.Render(s.Error))
		} else {
			lines = append(lines, spinnerView+" Loading profile…")
		}
		return strings.Join(lines, "\n")
	}
	if !s.User.IsRegistered {
		return renderRegistration(s, form, spinnerView)
	}
	return renderDashboard(s, spinnerView)
}

func renderRegistration(s State, form *huh.Form, spinnerView string) string {
	lines := []string{
		styles.TitleStyle.Render(FormTitle),
		styles.MutedStyle.Render(s.Address),
		"",
	}
	switch {
	case s.Busy:
		lines = append(lines, spinnerView+" "+s.Status)
	case form != nil:
		lines = append(lines, form.View())
	default:
		lines = append(lines, styles.MutedStyle.Render("Press ")+styles.Key("Enter")+styles.MutedStyle.Render(" to choose a name."))
	}
	if s.Error != "" {
		lines = append(lines, "", styles.ErrorStyle.Render(s.Error))
	}
	return strings.Join(lines, "\n")
}

func renderDashboard(s State, spinnerView string) string {
	name := lipgloss.NewStyle().Bold(true).Render(helpers.FadeString(s.User.Name, "#F25D94", "#EDFF82"))
	balance := spinnerView
	if s.BalanceLoaded {
		balance = helpers.FormatEtherFixed(s.Balance, 4) + " ETH"
	}

	lines := []string{
		styles.TitleStyle.Render("Profile"),
		"",
		name,
		lipgloss.NewStyle().Foreground(styles.CText).Render(s.Address),
		"",
		styles.MutedStyle.Render("Balance:  ") + balance,
	}

	if s.StatsLoaded {
		lines = append(lines,
			styles.MutedStyle.Render("Donated:  ")+lipgloss.NewStyle().Foreground(styles.CSent).Render(helpers.FormatEther(s.Summary.Donated)+" ETH"),
			styles.MutedStyle.Render("Received: ")+lipgloss.NewStyle().Foreground(styles.CAccent).Render(helpers.FormatEther(s.Summary.Received)+" ETH"),
		)
	} else {
		lines = append(lines, styles.MutedStyle.Render("Donated:  ")+spinnerView, styles.MutedStyle.Render("Received: ")+spinnerView)
	}

	lines = append(lines, "", styles.TitleStyle.Render(ActivityTitle))
	switch {
	case !s.StatsLoaded:
		lines = append(lines, spinnerView+" Loading donations…")
	case len(s.Summary.Activity) == 0:
		lines = append(lines, styles.MutedStyle.Render("No donations yet."))
	default:
		for _, a := range s.Summary.Activity {
			lines = append(lines, activityLine(a))
		}
	}

	if s.Error != "" {
		lines = append(lines, "", styles.ErrorStyle.Render(s.Error))
	}
	if s.CopiedMsg != "" {
		lines = append(lines, "", styles.SuccessStyle.Render(s.CopiedMsg))
	}
	return strings.Join(lines, "\n")
}

func activityLine(a feed.Activity) string {
	tag := lipgloss.NewStyle().Bold(true).Width(9)
	amount := helpers.FormatEther(a.Amount) + " ETH"
	if a.Direction == feed.Received {
		tag = tag.Foreground(styles.CAccent)
		amount = "+" + amount
	} else {
		tag = tag.Foreground(styles.CSent)
		amount = "-" + amount
	}
	return tag.Render(a.Direction.String()) + " " +
		lipgloss.NewStyle().Width(24).Render(a.Label) + " " +
		lipgloss.NewStyle().Bold(true).Render(amount)
}

// Nav returns the navigation bar for the profile page
func Nav(width int, s State, formActive bool) string {
	var hints []string
	switch {
	case formActive:
		hints = []string{styles.Hint("Enter", "register"), styles.Hint("Esc", "cancel")}
	case !s.Connected:
		hints = []string{styles.Hint("c", "connect wallet"), styles.Hint("h", "home")}
	case s.Busy:
		hints = []string{styles.Hint("Esc", "stop waiting")}
	case s.Loaded && !s.User.IsRegistered:
		hints = []string{styles.Hint("Enter", "register"), styles.Hint("h", "home"), styles.Hint("d", "donate")}
	default:
		hints = []string{
			styles.Hint("r", "refresh"),
			styles.Hint("y", "copy address"),
			styles.Hint("d", "donate"),
			styles.Hint("h", "home"),
			styles.Hint("x", "disconnect"),
		}
	}
	hints = append(hints, styles.Hint("l", "logger"))
	return styles.NavStyle.Width(width).Render(strings.Join(hints, "   "))
}
