package main

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"trustchain-tui/config"
	"trustchain-tui/contract"
	"trustchain-tui/feed"
	"trustchain-tui/helpers"
	"trustchain-tui/rpc"
	"trustchain-tui/txtask"
	"trustchain-tui/views/connect"
	"trustchain-tui/views/donate"
	"trustchain-tui/views/landing"
	logview "trustchain-tui/views/log"
	"trustchain-tui/views/profile"
	"trustchain-tui/wallet"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// -------------------- UPDATE --------------------

// Update implements tea.Model interface and handles all state transitions
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case logInitMsg:
		if !m.logEnabled {
			return m, nil
		}
		// Create logger that writes to our buffer
		m.logger = log.NewWithOptions(m.logBuffer, log.Options{
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
			Prefix:          "",
		})
		// Set log level and styling
		m.logger.SetLevel(log.DebugLevel)
		m.logger.SetStyles(&log.Styles{
			Timestamp: lipgloss.NewStyle().Foreground(cMuted),
			Caller:    lipgloss.NewStyle().Faint(true),
			Prefix:    lipgloss.NewStyle().Bold(true).Foreground(cAccent2),
			Message:   lipgloss.NewStyle().Foreground(cText),
			Key:       lipgloss.NewStyle().Foreground(cAccent),
			Value:     lipgloss.NewStyle().Foreground(cText),
			Separator: lipgloss.NewStyle().Faint(true),
			Levels: map[log.Level]lipgloss.Style{
				log.DebugLevel: lipgloss.NewStyle().Foreground(cMuted).SetString("DEBUG"),
				log.InfoLevel:  lipgloss.NewStyle().Foreground(cAccent2).SetString("INFO"),
				log.WarnLevel:  lipgloss.NewStyle().Foreground(cWarn).SetString("WARN"),
				log.ErrorLevel: lipgloss.NewStyle().Foreground(cError).SetString("ERROR"),
			},
		})
		m.logReady = true
		m.addLog("info", "Logger enabled")
		return m, nil

	case tea.WindowSizeMsg:
		m.w, m.h = msg.Width, msg.Height

		// Only initialize viewport if log is enabled
		if m.logEnabled {
			// Width accounts for border and padding
			m.logViewport.Width = max(0, msg.Width-6)
			m.logViewport.Height = logview.PanelHeight(msg.Height)
			if m.logReady {
				m.updateLogViewport()
			}
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		var cmds []tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)
		// Update log spinner too if log is enabled but not ready
		if m.logEnabled && !m.logReady {
			m.logSpinner, cmd = m.logSpinner.Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)

	case rpcConnectedMsg:
		m.rpcConnecting = false
		if msg.err != nil {
			m.ethClient = nil
			m.rpcConnected = false
			m.rpcErr = msg.err.Error()
			m.addLog("error", fmt.Sprintf("RPC connection failed: `%s`", msg.err.Error()))
			return m, nil
		}
		if err := m.attachBackend(msg.client); err != nil {
			m.rpcErr = err.Error()
			m.addLog("error", "Contract binding failed", "err", err)
			return m, nil
		}
		m.ethClient = msg.client
		m.rpcConnected = true
		m.rpcErr = ""
		m.addLog("success", fmt.Sprintf("RPC connected to `%s`", msg.client.URL), "network", msg.client.Network())
		// history is public, load it before any wallet is connected
		return m, tea.Batch(m.refreshFeed(), m.refreshAccount())

	case walletConnectedMsg:
		m.connecting = false
		if msg.err != nil {
			m.walletErr = errorText(msg.err)
			m.addLog("warning", "Wallet connection failed", "err", msg.err)
			return m, nil
		}
		m.resetAccount()
		m.session = msg.session
		m.walletErr = ""
		m.landingNotice = ""
		m.addLog("success", "Wallet connected", "account", helpers.ShortenAddr(m.session.Address().Hex()))
		if m.activePage == config.PageDonate {
			m.ensureDonateForm()
		}
		return m, m.refreshAccount()

	case profileLoadedMsg:
		if !m.session.Active() || msg.addr != m.session.Address() {
			return m, nil
		}
		m.profileLoading = false
		if msg.err != nil {
			m.profileErr = errorText(msg.err)
			m.addLog("error", "Failed to load profile", "err", msg.err)
			return m, nil
		}
		m.profile = msg.profile
		m.profileLoaded = true
		m.profileErr = ""
		if msg.profile.IsRegistered {
			m.profileForm = nil
			m.addLog("info", fmt.Sprintf("Loaded profile `%s`", msg.profile.Name))
		} else {
			m.addLog("info", "Account is not registered", "account", helpers.ShortenAddr(msg.addr.Hex()))
			m.ensureProfileForm()
		}
		return m, nil

	case balanceLoadedMsg:
		if !m.session.Active() || msg.b.Address != m.session.Address() {
			return m, nil
		}
		m.balance = msg.b
		m.balanceLoaded = true
		if msg.b.ErrMessage != "" {
			m.addLog("error", msg.b.ErrMessage)
		} else {
			m.addLog("debug", "Balance loaded", "eth", helpers.FormatETH(msg.b.Wei))
		}
		// an untouched form is rebuilt so the amount check sees the balance
		if m.donateForm != nil && donate.TempAmount == "" && donate.TempReceiver == "" {
			m.donateForm = donate.CreateForm(m.balanceWei())
		}
		return m, nil

	case feedLoadedMsg:
		m.feedLoading = false
		if msg.err != nil {
			m.feedErr = errorText(msg.err)
			m.addLog("error", "Failed to load donations", "err", msg.err)
		} else {
			m.snapshot = msg.snap
			m.names = feed.Names(msg.snap.Registrations)
			m.feedLoaded = true
			m.feedLoadedAt = time.Now()
			m.feedErr = ""
			if msg.snap.CacheErr != nil {
				m.addLog("warning", "Event cache unavailable, fetched from node", "err", msg.snap.CacheErr)
			}
			m.addLog("info", fmt.Sprintf("Loaded %d donations", len(msg.snap.Donations)), "head", msg.snap.Head)
		}
		if m.feedStale {
			m.feedStale = false
			return m, m.refreshFeed()
		}
		return m, nil

	case txSubmittedMsg:
		if !m.task.Is(msg.id) || !m.task.Busy() {
			m.addLog("debug", "Dropped result of an abandoned transaction")
			return m, nil
		}
		if msg.err != nil {
			m.task = m.task.Finish(msg.id, msg.err)
			m.addLog("error", "Transaction failed", "method", string(m.task.Kind), "err", msg.err)
			m.setWriteError(m.task.Kind, msg.err)
			return m, nil
		}
		m.task = m.task.Submitted(msg.id, msg.tx.Hash())
		m.taskStatus = "Waiting for confirmation of " + helpers.ShortenAddr(msg.tx.Hash().Hex()) + "…"
		m.addLog("info", "Transaction sent", "method", string(m.task.Kind), "hash", msg.tx.Hash().Hex())
		return m, waitReceipt(m.taskCtx, m.taskGW, msg.id, msg.tx)

	case txConfirmedMsg:
		if !m.task.Is(msg.id) || !m.task.Busy() {
			m.addLog("debug", "Dropped receipt of an abandoned transaction")
			return m, nil
		}
		kind := m.task.Kind
		m.task = m.task.Finish(msg.id, msg.err)
		if msg.err != nil {
			m.addLog("error", "Transaction failed", "method", string(kind), "err", msg.err)
			m.setWriteError(kind, msg.err)
			// gas was still spent if it was mined
			return m, m.refreshAccount()
		}
		hash := msg.receipt.TxHash.Hex()
		switch kind {
		case txtask.Register:
			m.profileForm = nil
			m.profileErr = ""
			m.addLog("success", fmt.Sprintf("Registered as `%s`", m.pending.name), "block", msg.receipt.BlockNumber)
		case txtask.Donate:
			m.donateForm = nil
			m.donateErr = ""
			m.donateTx = hash
			m.donateAmount = m.pending.amount
			m.donateReceiver = m.pending.receiver
			m.addLog("success", fmt.Sprintf("Donated %s ETH to `%s`", m.pending.amount, helpers.ShortenAddr(m.pending.receiver)), "hash", hash)
		}
		m.pending = pendingWrite{}
		return m, m.refreshAccount()

	case clipboardCopiedMsg:
		m.copiedMsg = "✓ Copied " + msg.what + " to clipboard"
		return m, clearNotice()

	case clearNoticeMsg:
		m.copiedMsg = ""
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}

	// forms consume their own internal messages
	return m, m.updateActiveForm(msg)
}

// handleKey routes a key press to the dialog, form or page that owns it
func (m *model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+c" {
		m.task = m.task.Cancel()
		return tea.Quit
	}

	if m.showSignDialog {
		return m.updateSignDialog(msg)
	}

	if m.connectForm != nil {
		if msg.String() == "esc" {
			return m.finishConnect(false)
		}
		return m.updateActiveForm(msg)
	}

	if m.task.Busy() && msg.String() == "esc" {
		m.stopWaiting()
		return nil
	}

	if m.textInputActive() {
		if msg.String() == "esc" {
			switch m.activePage {
			case config.PageProfile:
				m.profileForm = nil
			case config.PageDonate:
				m.activePage = config.PageLanding
			}
			return nil
		}
		return m.updateActiveForm(msg)
	}

	// global keys
	switch msg.String() {
	case "q":
		m.task = m.task.Cancel()
		return tea.Quit

	case "l", "L":
		// Toggle logger
		m.logEnabled = !m.logEnabled
		if m.logEnabled {
			if m.w > 0 {
				m.logViewport.Width = m.w - 6
				m.logViewport.Height = logview.PanelHeight(m.h)
			}
			m.logReady = false
			m.saveConfig()
			return tea.Batch(initLogViewport(), m.logSpinner.Tick)
		}
		// Clear logs and de-initialize when disabling
		if m.logBuffer != nil {
			m.logBuffer.Reset()
		}
		m.logger = nil
		m.logReady = false
		m.saveConfig()
		return nil

	case "pageup", "pagedown":
		// Allow scrolling in log viewport when enabled
		if m.logEnabled && m.logReady {
			var cmd tea.Cmd
			m.logViewport, cmd = m.logViewport.Update(msg)
			return cmd
		}
		return nil

	case "h":
		return m.navigate(config.PageLanding)
	case "a":
		return m.navigate(config.PageAbout)
	case "e":
		return m.navigate(config.PageExplorer)
	case "d":
		return m.navigate(config.PageDonate)
	case "p":
		return m.navigate(config.PageProfile)

	case "c":
		return m.startConnect()

	case "x":
		m.disconnect()
		return nil
	}

	// page-specific behavior
	switch m.activePage {

	case config.PageLanding:
		if msg.String() == "enter" {
			if !m.session.Active() {
				m.landingNotice = landing.ConnectMsg
				return nil
			}
			m.landingNotice = ""
			return m.navigate(config.PageDonate)
		}

	case config.PageAbout:
		if msg.String() == "esc" {
			return m.navigate(config.PageLanding)
		}

	case config.PageExplorer:
		events := len(m.snapshot.Donations)
		switch msg.String() {
		case "up", "k":
			if m.explorerIdx > 0 {
				m.explorerIdx--
			}
		case "down", "j":
			if m.explorerIdx < events-1 {
				m.explorerIdx++
			}
		case "enter":
			if events > 0 {
				m.explorerQR = !m.explorerQR
			}
		case "esc":
			if m.explorerQR {
				m.explorerQR = false
				return nil
			}
			return m.navigate(config.PageLanding)
		case "y":
			if link := m.explorerState().Link(m.explorerIdx); link != "" {
				return copyToClipboard(link, "link")
			}
		case "r":
			m.addLog("info", "Refreshing donations")
			return m.refreshFeed()
		}

	case config.PageProfile:
		switch msg.String() {
		case "r":
			m.addLog("info", "Refreshing profile")
			return m.refreshAccount()
		case "y":
			if m.session.Active() {
				return copyToClipboard(m.session.Address().Hex(), "address")
			}
		case "enter":
			m.ensureProfileForm()
		}

	case config.PageDonate:
		switch msg.String() {
		case "enter":
			if m.donateTx != "" {
				m.donateTx = ""
				m.ensureDonateForm()
			}
		case "y":
			if m.donateTx != "" {
				return copyToClipboard(m.cfg.Contract.TxURL(m.donateTx), "link")
			}
		case "esc":
			return m.navigate(config.PageLanding)
		}
	}

	return nil
}

// navigate switches page and prepares what the page needs
func (m *model) navigate(p config.Page) tea.Cmd {
	m.activePage = p
	m.copiedMsg = ""
	switch p {
	case config.PageExplorer:
		m.explorerQR = false
		if !m.feedLoaded {
			return m.refreshFeed()
		}
	case config.PageProfile:
		m.ensureProfileForm()
	case config.PageDonate:
		m.ensureDonateForm()
	}
	return nil
}

// ensureProfileForm opens the registration form when the connected account
// is known to be unregistered
func (m *model) ensureProfileForm() {
	if m.activePage != config.PageProfile || m.profileForm != nil || m.task.Busy() {
		return
	}
	if !m.session.Active() || !m.profileLoaded || m.profile.IsRegistered {
		return
	}
	m.profileForm = profile.CreateForm()
}

// ensureDonateForm opens the donation form for a connected account
func (m *model) ensureDonateForm() {
	if m.donateForm != nil || m.donateTx != "" || m.task.Busy() || !m.session.Active() {
		return
	}
	m.donateForm = donate.CreateForm(m.balanceWei())
}

// balanceWei returns the loaded balance, or nil while it is unknown
func (m *model) balanceWei() *big.Int {
	if !m.balanceLoaded || m.balance.ErrMessage != "" {
		return nil
	}
	return m.balance.Wei
}

// updateActiveForm forwards msg to the form that currently owns input and
// acts on completion
func (m *model) updateActiveForm(msg tea.Msg) tea.Cmd {
	switch {
	case m.connectForm != nil:
		form, cmd := m.connectForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.connectForm = f
			switch f.State {
			case huh.StateCompleted:
				return m.finishConnect(connect.TempApproved)
			case huh.StateAborted:
				return m.finishConnect(false)
			}
		}
		return cmd

	case m.activePage == config.PageProfile && m.profileForm != nil && !m.task.Busy():
		form, cmd := m.profileForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.profileForm = f
			switch f.State {
			case huh.StateCompleted:
				name, err := contract.ValidateName(profile.TempName)
				if err != nil {
					m.profileErr = errorText(err)
					m.profileForm = profile.CreateForm()
					return nil
				}
				m.profileErr = ""
				m.requestSignature(pendingWrite{kind: txtask.Register, name: name})
				return nil
			case huh.StateAborted:
				m.profileForm = nil
			}
		}
		return cmd

	case m.activePage == config.PageDonate && m.donateForm != nil && !m.task.Busy():
		form, cmd := m.donateForm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.donateForm = f
			switch f.State {
			case huh.StateCompleted:
				receiver := strings.TrimSpace(donate.TempReceiver)
				amount := strings.TrimSpace(donate.TempAmount)
				if _, _, err := contract.ValidateDonation(receiver, amount); err != nil {
					m.donateErr = errorText(err)
					m.donateForm = donate.CreateForm(m.balanceWei())
					return nil
				}
				m.donateErr = ""
				m.requestSignature(pendingWrite{kind: txtask.Donate, receiver: receiver, amount: amount})
				return nil
			case huh.StateAborted:
				m.activePage = config.PageLanding
			}
		}
		return cmd
	}
	return nil
}

// -------------------- WALLET --------------------

// startConnect opens the account access prompt
func (m *model) startConnect() tea.Cmd {
	if m.session.Active() {
		m.addLog("info", "Wallet already connected", "account", helpers.ShortenAddr(m.session.Address().Hex()))
		return nil
	}
	if m.connecting {
		return nil
	}
	if m.provider == nil {
		// nothing to prompt for; the connector reports the missing provider
		if m.providerErr != nil && !errors.Is(m.providerErr, contract.ErrProviderMissing) {
			m.walletErr = errorText(m.providerErr)
			m.addLog("error", "Wallet configuration is invalid", "err", m.providerErr)
			return nil
		}
		m.connecting = true
		return connectWallet(m.gateway, wallet.Request{})
	}
	m.walletErr = ""
	m.connectForm = connect.CreateForm(m.provider.Name(), m.provider.Account().Hex(), m.provider.NeedsPassphrase())
	return nil
}

// finishConnect closes the prompt and runs the connector with the answer
func (m *model) finishConnect(approved bool) tea.Cmd {
	m.connectForm = nil
	m.connecting = true
	req := wallet.Request{
		Provider:   m.provider,
		Approved:   approved,
		Passphrase: connect.TempPassphrase,
	}
	connect.TempPassphrase = ""
	m.addLog("info", "Requesting account access", "provider", m.provider.Name())
	return connectWallet(m.gateway, req)
}

// disconnect drops the session. An in-flight write stops being tracked.
func (m *model) disconnect() {
	if !m.session.Active() {
		return
	}
	if m.task.Busy() {
		m.task = m.task.Cancel()
	}
	addr := m.session.Address()
	m.session = wallet.Session{}
	m.resetAccount()
	m.addLog("info", "Wallet disconnected", "account", helpers.ShortenAddr(addr.Hex()))
}

// resetAccount clears everything derived from the connected account
func (m *model) resetAccount() {
	m.profile = contract.UserProfile{}
	m.profileLoaded = false
	m.profileLoading = false
	m.profileErr = ""
	m.profileForm = nil
	m.balance = rpc.AccountBalance{}
	m.balanceLoaded = false
	m.donateForm = nil
	m.donateErr = ""
	m.donateTx = ""
	m.showSignDialog = false
	m.pending = pendingWrite{}
}

// -------------------- WRITES --------------------

// requestSignature shows the signing prompt for w
func (m *model) requestSignature(w pendingWrite) {
	m.pending = w
	m.showSignDialog = true
	m.signYesSelected = true
	m.addLog("info", "Signature requested", "method", string(w.kind))
}

// updateSignDialog handles keys while the signing prompt is open
func (m *model) updateSignDialog(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "left", "right", "tab", "shift+tab", "h", "l":
		m.signYesSelected = !m.signYesSelected
	case "y", "Y":
		return m.confirmSignature()
	case "n", "N", "esc":
		m.rejectSignature()
	case "enter":
		if m.signYesSelected {
			return m.confirmSignature()
		}
		m.rejectSignature()
	}
	return nil
}

// confirmSignature signs and submits the pending write
func (m *model) confirmSignature() tea.Cmd {
	m.showSignDialog = false
	if m.task.Busy() {
		m.addLog("warning", "A transaction is already pending")
		return nil
	}
	gw := m.session.Gateway()
	if gw == nil {
		m.setWriteError(m.pending.kind, fmt.Errorf("%w: connect a wallet first", contract.ErrProviderMissing))
		return nil
	}

	task, ctx := txtask.Start(context.Background(), m.pending.kind)
	m.task = task
	m.taskCtx = ctx
	m.taskGW = gw
	m.taskStatus = "Submitting transaction…"
	m.addLog("info", "Submitting transaction", "method", string(task.Kind), "task", task.ID.String()[:8])
	return submitWrite(ctx, gw, task.ID, m.pending)
}

// rejectSignature declines the pending write
func (m *model) rejectSignature() {
	m.showSignDialog = false
	m.addLog("warning", "Signature rejected", "method", string(m.pending.kind))
	m.setWriteError(m.pending.kind, fmt.Errorf("%w: signature declined", contract.ErrUserRejected))
}

// stopWaiting abandons the in-flight write
func (m *model) stopWaiting() {
	kind := m.task.Kind
	m.task = m.task.Cancel()
	m.addLog("warning", "Stopped waiting for transaction", "hash", m.task.Hash.Hex())
	m.setWriteError(kind, context.Canceled)
}

// setWriteError shows err on the page of the failed write and reopens its form
func (m *model) setWriteError(kind txtask.Kind, err error) {
	text := errorText(err)
	switch kind {
	case txtask.Register:
		m.profileErr = text
		m.profileForm = nil
		m.ensureProfileForm()
	case txtask.Donate:
		m.donateErr = text
		m.donateForm = nil
		m.ensureDonateForm()
	}
}

// errorText turns a classified error into the message shown to the user
func errorText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.Canceled):
		return "Stopped waiting. The transaction may still be mined."
	case errors.Is(err, context.DeadlineExceeded):
		return "The node did not answer in time."
	case errors.Is(err, contract.ErrProviderMissing):
		return "No wallet found. Set TRUSTCHAIN_PRIVATE_KEY or configure a keystore account."
	case errors.Is(err, contract.ErrUserRejected):
		return "Request rejected."
	case errors.Is(err, contract.ErrContractRevert):
		if r := contract.Reason(err); r != "" {
			return "Transaction reverted: " + r
		}
		return "Transaction reverted."
	case errors.Is(err, contract.ErrInputValidation):
		return strings.TrimPrefix(err.Error(), contract.ErrInputValidation.Error()+": ")
	case errors.Is(err, contract.ErrConnection):
		return "Could not connect: " + strings.TrimPrefix(err.Error(), contract.ErrConnection.Error()+": ")
	case errors.Is(err, contract.ErrNetwork):
		return "Network error: " + strings.TrimPrefix(err.Error(), contract.ErrNetwork.Error()+": ")
	}
	return err.Error()
}
