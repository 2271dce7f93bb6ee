package main

import (
	"context"
	"fmt"
	"time"

	"trustchain-tui/config"
	"trustchain-tui/contract"
	"trustchain-tui/feed"
	"trustchain-tui/rpc"
	"trustchain-tui/store"
	"trustchain-tui/txtask"
	"trustchain-tui/wallet"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// -------------------- COMMAND FUNCTIONS --------------------
// Functions that return tea.Cmd for async operations

// readTimeout bounds background reads. Writes and receipt waits have no
// timeout; they end when mined or when the user cancels.
const readTimeout = 20 * time.Second

// connectRPC establishes an RPC connection to the Ethereum node
func connectRPC(url string) tea.Cmd {
	return func() tea.Msg {
		result := rpc.Connect(url)
		return rpcConnectedMsg{client: result.Client, err: result.Error}
	}
}

// initLogViewport initializes the log viewport
func initLogViewport() tea.Cmd {
	return func() tea.Msg {
		return logInitMsg{}
	}
}

// connectWallet runs the connector with the user's answer to the prompt
func connectWallet(gw *contract.Gateway, req wallet.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		s, err := wallet.Connect(ctx, gw, req)
		return walletConnectedMsg{session: s, err: err}
	}
}

// loadProfile reads getUser for addr
func loadProfile(gw *contract.Gateway, addr common.Address) tea.Cmd {
	return func() tea.Msg {
		if gw == nil {
			return profileLoadedMsg{addr: addr, err: fmt.Errorf("%w: not connected to a node", contract.ErrNetwork)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), readTimeout)
		defer cancel()
		p, err := gw.GetUser(ctx, addr)
		return profileLoadedMsg{addr: addr, profile: p, err: err}
	}
}

// loadBalance fetches the native balance of addr
func loadBalance(node rpc.BalanceReader, addr common.Address) tea.Cmd {
	return func() tea.Msg {
		return balanceLoadedMsg{b: rpc.LoadBalanceWithTimeout(node, addr, readTimeout)}
	}
}

// loadFeed syncs the donation history, through the cache when one is open
func loadFeed(gw *contract.Gateway, st *store.Store) tea.Cmd {
	return func() tea.Msg {
		if gw == nil {
			return feedLoadedMsg{err: fmt.Errorf("%w: not connected to a node", contract.ErrNetwork)}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*readTimeout)
		defer cancel()
		snap, err := feed.Sync(ctx, gw, st)
		return feedLoadedMsg{snap: snap, err: err}
	}
}

// submitWrite signs and sends the pending write of task id
func submitWrite(ctx context.Context, gw *contract.Gateway, id uuid.UUID, w pendingWrite) tea.Cmd {
	return func() tea.Msg {
		var (
			tx  *types.Transaction
			err error
		)
		switch w.kind {
		case txtask.Register:
			tx, err = gw.SubmitRegisterUser(ctx, w.name)
		case txtask.Donate:
			tx, err = gw.SubmitDonate(ctx, w.receiver, w.amount)
		default:
			err = fmt.Errorf("unknown write %q", w.kind)
		}
		return txSubmittedMsg{id: id, tx: tx, err: err}
	}
}

// waitReceipt blocks until tx is mined or ctx is cancelled
func waitReceipt(ctx context.Context, gw *contract.Gateway, id uuid.UUID, tx *types.Transaction) tea.Cmd {
	return func() tea.Msg {
		receipt, err := gw.Wait(ctx, tx)
		return txConfirmedMsg{id: id, receipt: receipt, err: err}
	}
}

// copyToClipboard copies text to clipboard
func copyToClipboard(text, what string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return nil
		}
		return clipboardCopiedMsg{what: what}
	}
}

// clearNotice waits 2 seconds then clears copy feedback
func clearNotice() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return clearNoticeMsg{}
	})
}

// -------------------- MODEL HELPER METHODS --------------------

// addLog adds a log entry with timestamp and type
func (m *model) addLog(logType, message string, keyvals ...any) {
	if !m.logEnabled || !m.logReady || m.logger == nil {
		return
	}

	switch logType {
	case "info":
		m.logger.Info(message, keyvals...)
	case "success":
		m.logger.Info("✓ "+message, keyvals...)
	case "error":
		m.logger.Error(message, keyvals...)
	case "warning":
		m.logger.Warn(message, keyvals...)
	case "debug":
		m.logger.Debug(message, keyvals...)
	default:
		m.logger.Print(message, keyvals...)
	}

	m.updateLogViewport()
}

// updateLogViewport refreshes the viewport content with log output
func (m *model) updateLogViewport() {
	if !m.logReady || m.logBuffer == nil {
		return
	}
	m.logViewport.SetContent(m.logBuffer.String())
	m.logViewport.GotoBottom()
}

// refreshAccount reloads everything shown for the connected account: the
// registration, the balance and the donation history the aggregates come
// from.
func (m *model) refreshAccount() tea.Cmd {
	if !m.session.Active() {
		return nil
	}
	addr := m.session.Address()
	m.profileLoading = true
	m.balanceLoaded = false
	return tea.Batch(
		loadProfile(m.gateway, addr),
		loadBalance(m.backend, addr),
		m.refreshFeed(),
	)
}

// refreshFeed starts a history sync. A request made while one is running is
// queued and replayed when it lands.
func (m *model) refreshFeed() tea.Cmd {
	if m.gateway == nil {
		return nil
	}
	if m.feedLoading {
		m.feedStale = true
		return nil
	}
	m.feedLoading = true
	return loadFeed(m.gateway, m.cache)
}

// textInputActive returns true if any form currently owns the keyboard
func (m model) textInputActive() bool {
	if m.connectForm != nil {
		return true
	}
	if m.activePage == config.PageProfile && m.profileForm != nil && !m.task.Busy() {
		return true
	}
	if m.activePage == config.PageDonate && m.donateForm != nil && !m.task.Busy() && m.donateTx == "" {
		return true
	}
	return false
}
