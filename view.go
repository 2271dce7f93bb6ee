package main

import (
	"strings"

	"trustchain-tui/config"
	"trustchain-tui/feed"
	"trustchain-tui/helpers"
	"trustchain-tui/txtask"
	"trustchain-tui/views/about"
	"trustchain-tui/views/connect"
	"trustchain-tui/views/donate"
	"trustchain-tui/views/explorer"
	"trustchain-tui/views/landing"
	logview "trustchain-tui/views/log"
	"trustchain-tui/views/profile"

	"github.com/charmbracelet/lipgloss"
)

// -------------------- VIEW --------------------

func (m model) renderSignDialog() string {
	var (
		dialogBoxStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("#874BFD")).
				Padding(1, 0).
				BorderTop(true).
				BorderLeft(true).
				BorderRight(true).
				BorderBottom(true)

		buttonStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FFF7DB")).
				Background(lipgloss.Color("#888B7E")).
				Padding(0, 3).
				MarginTop(1)

		activeButtonStyle = buttonStyle.
					Foreground(lipgloss.Color("#FFF7DB")).
					Background(lipgloss.Color("#F25D94")).
					MarginRight(2).
					Underline(true)
	)

	var summary string
	switch m.pending.kind {
	case txtask.Register:
		summary = "Sign registerUser(\"" + m.pending.name + "\")?"
	case txtask.Donate:
		summary = "Sign donate(" + helpers.ShortenAddr(m.pending.receiver) + ") sending " + m.pending.amount + " ETH?"
	}
	msg := helpers.FadeString(summary, "#F25D94", "#EDFF82")
	question := lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Render(msg)

	from := ""
	if m.session.Active() {
		from = lipgloss.NewStyle().Width(50).Align(lipgloss.Center).Foreground(cMuted).
			Render("from " + helpers.ShortenAddr(m.session.Address().Hex()) + " · gas is estimated by the node")
	}

	// Apply active style to the selected button
	var okButton, cancelButton string
	if m.signYesSelected {
		okButton = activeButtonStyle.Render("Sign")
		cancelButton = buttonStyle.Render("Reject")
	} else {
		okButton = buttonStyle.MarginRight(2).Render("Sign")
		cancelButton = activeButtonStyle.MarginRight(0).Render("Reject")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Top, okButton, cancelButton)
	ui := lipgloss.JoinVertical(lipgloss.Center, question, from, buttons)

	dialog := dialogBoxStyle.Render(ui)

	// Center the dialog on screen
	return lipgloss.Place(
		m.w, m.h,
		lipgloss.Center, lipgloss.Center,
		dialog,
	)
}

func (m *model) globalHeader() string {
	availableWidth := max(0, m.w-8) // Account for panel padding

	// Page links
	var links []string
	for _, p := range []config.Page{config.PageLanding, config.PageAbout, config.PageExplorer} {
		style := lipgloss.NewStyle().Foreground(cMuted)
		if m.activePage == p {
			style = style.Foreground(cAccent2).Bold(true).Underline(true)
		}
		links = append(links, style.Render(p.String()))
	}
	navDisplay := strings.Join(links, "  ")

	// Account, or a connect hint
	var acctDisplay string
	switch {
	case !m.session.Active():
		label := "Connect Wallet"
		if m.connecting {
			label = m.spin.View() + " Connecting…"
		}
		acctDisplay = lipgloss.NewStyle().Foreground(cAccent).Bold(true).Render(label)
	default:
		name := "Register Now"
		nameStyle := lipgloss.NewStyle().Foreground(cWarn).Bold(true)
		if m.profile.IsRegistered {
			name = m.profile.Name
			nameStyle = nameStyle.Foreground(cAccent2)
		} else if !m.profileLoaded {
			name = m.spin.View()
		}
		acctDisplay = nameStyle.Render(name) + " " +
			lipgloss.NewStyle().Foreground(cText).Render(helpers.FadeString(helpers.ShortenAddr(m.session.Address().Hex()), "#F25D94", "#EDFF82"))
	}

	// RPC Status with green dot
	var statusIcon string
	var statusColor lipgloss.Color
	var statusText string

	if m.rpcURL == "" {
		statusIcon = "○"
		statusColor = lipgloss.Color("#c01c28")
		statusText = "No RPC"
	} else if m.rpcConnecting {
		statusIcon = "○"
		statusColor = lipgloss.Color("#c01c28")
		statusText = "Connecting..."
	} else if !m.rpcConnected {
		statusIcon = "○"
		statusColor = lipgloss.Color("#c01c28")
		statusText = "Connection Failed"
	} else {
		statusIcon = "●"
		statusColor = cAccent
		statusText = m.ethClient.Network()
	}

	rpcDisplay := lipgloss.NewStyle().
		Foreground(statusColor).
		Bold(true).
		Render(statusIcon + " " + statusText)

	// Center title
	titleText := lipgloss.NewStyle().
		Bold(true).
		Render(helpers.FadeString(landing.Title, "#7EE787", "#82CFFD"))

	left := titleText + "  " + navDisplay
	right := acctDisplay + "   " + rpcDisplay

	leftWidth := lipgloss.Width(left)
	rightWidth := lipgloss.Width(right)

	var headerLine string
	if leftWidth+rightWidth+2 > availableWidth {
		// Not enough space, stack vertically
		headerLine = left + "\n" + right
	} else {
		headerLine = left + strings.Repeat(" ", availableWidth-leftWidth-rightWidth) + right
	}

	// Add separator line
	separator := lipgloss.NewStyle().
		Foreground(cBorder).
		Render(strings.Repeat("─", availableWidth))

	return headerLine + "\n" + separator
}

func (m *model) explorerState() explorer.State {
	return explorer.State{
		Events:   feed.Newest(m.snapshot.Donations),
		Names:    m.names,
		Selected: m.explorerIdx,
		Loading:  m.feedLoading,
		LoadedAt: m.feedLoadedAt,
		Error:    m.feedErr,
		Notice:   m.copiedMsg,
		ShowQR:   m.explorerQR,
		TxURL:    m.cfg.Contract.TxURL,
	}
}

func (m *model) profileState() profile.State {
	s := profile.State{
		Connected:     m.session.Active(),
		Loading:       m.profileLoading,
		Loaded:        m.profileLoaded,
		User:          m.profile,
		Balance:       m.balance.Wei,
		BalanceLoaded: m.balanceLoaded,
		StatsLoaded:   m.feedLoaded,
		Busy:          m.task.Busy() && m.task.Kind == txtask.Register,
		Status:        m.taskStatus,
		Error:         m.profileErr,
		CopiedMsg:     m.copiedMsg,
	}
	if s.Connected {
		s.Address = m.session.Address().Hex()
		s.Summary = feed.Summarize(m.snapshot.Donations, m.session.Address())
	}
	if m.profileLoaded && m.balance.ErrMessage != "" && s.Error == "" {
		s.Error = m.balance.ErrMessage
	}
	return s
}

func (m *model) donateState() donate.State {
	s := donate.State{
		Connected:     m.session.Active(),
		Balance:       m.balance.Wei,
		BalanceLoaded: m.balanceLoaded,
		Busy:          m.task.Busy() && m.task.Kind == txtask.Donate,
		Status:        m.taskStatus,
		Error:         m.donateErr,
		TxHash:        m.donateTx,
		Amount:        m.donateAmount,
		Receiver:      m.donateReceiver,
		CopiedMsg:     m.copiedMsg,
	}
	if m.donateTx != "" {
		s.TxURL = m.cfg.Contract.TxURL(m.donateTx)
	}
	return s
}

func (m *model) View() string {
	if m.showSignDialog {
		return m.renderSignDialog()
	}

	// Render global header outside of page content
	headerPanel := panelStyle.Width(max(0, m.w-2)).Render(m.globalHeader())

	var pageContent string
	var nav string

	switch {
	case m.connectForm != nil:
		pageContent = connect.Render(m.connectForm)
		nav = connect.Nav(m.w - 2)

	case m.activePage == config.PageAbout:
		pageContent = about.Render(m.cfg.Contract.Address, m.ethClient.Network(), m.cfg.RPCURLs)
		nav = about.Nav(m.w - 2)

	case m.activePage == config.PageExplorer:
		pageContent = explorer.Render(m.explorerState(), m.w-8, m.h-m.reservedHeight(), m.spin.View())
		nav = explorer.Nav(m.w-2, m.explorerQR)

	case m.activePage == config.PageProfile:
		s := m.profileState()
		pageContent = profile.Render(s, m.profileForm, m.spin.View())
		nav = profile.Nav(m.w-2, s, m.textInputActive())

	case m.activePage == config.PageDonate:
		s := m.donateState()
		pageContent = donate.Render(s, m.donateForm, m.spin.View())
		nav = donate.Nav(m.w-2, s)

	default:
		pageContent = landing.Render(m.w, m.landingNotice)
		nav = landing.Nav(m.w-2, m.session.Active())
	}

	if m.walletErr != "" {
		pageContent += "\n\n" + lipgloss.NewStyle().Foreground(cError).Bold(true).Render(m.walletErr)
	}
	if m.rpcErr != "" && m.activePage != config.PageLanding {
		pageContent += "\n\n" + lipgloss.NewStyle().Foreground(cWarn).Render("RPC: "+m.rpcErr)
	}
	pageContent = panelStyle.Width(max(0, m.w-2)).Render(pageContent)

	sections := []string{headerPanel, pageContent, nav}

	// Render log panel only if enabled
	if m.logEnabled {
		pending := 0
		if m.task.Busy() {
			pending = 1
		}
		sections = append(sections, logview.Render(m.w, m.h, m.logReady, m.logSpinner.View(), m.logViewport, pending))
	}

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

// reservedHeight is the number of lines around the page panel
func (m *model) reservedHeight() int {
	reserved := 12 // header, borders, nav
	if m.logEnabled {
		reserved += logview.PanelHeight(m.h) + 4
	}
	return reserved
}
