package main

import (
	"context"
	"strings"
	"time"

	"trustchain-tui/config"
	"trustchain-tui/contract"
	"trustchain-tui/feed"
	"trustchain-tui/rpc"
	"trustchain-tui/store"
	"trustchain-tui/styles"
	"trustchain-tui/txtask"
	"trustchain-tui/wallet"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/ethereum/go-ethereum/common"
)

// -------------------- MODEL --------------------

// pendingWrite is a validated write waiting for the user to sign it
type pendingWrite struct {
	kind     txtask.Kind
	name     string
	receiver string
	amount   string
}

// model represents the application state following The Elm Architecture
type model struct {
	w, h int

	activePage config.Page

	cfg        config.Config
	configPath string

	spin spinner.Model

	// node
	rpcURL        string
	ethClient     *rpc.Client
	rpcConnected  bool // true if RPC is successfully connected
	rpcConnecting bool // true if connection attempt is in progress
	rpcErr        string
	backend       contract.Backend
	gateway       *contract.Gateway // read-only binding, no signer
	cache         *store.Store

	// wallet
	provider    wallet.Provider
	providerErr error
	session     wallet.Session
	connectForm *huh.Form
	connecting  bool
	walletErr   string

	// profile
	profile        contract.UserProfile
	profileLoaded  bool
	profileLoading bool
	profileErr     string
	profileForm    *huh.Form

	balance       rpc.AccountBalance
	balanceLoaded bool

	// donation history
	snapshot     feed.Snapshot
	names        map[common.Address]string
	feedLoaded   bool
	feedLoading  bool
	feedStale    bool // a refresh was requested while a sync was running
	feedErr      string
	feedLoadedAt time.Time
	explorerIdx  int
	explorerQR   bool

	landingNotice string

	// donate page
	donateForm     *huh.Form
	donateErr      string
	donateTx       string
	donateAmount   string
	donateReceiver string

	// contract writes
	task            txtask.Task
	taskCtx         context.Context
	taskGW          *contract.Gateway // signing gateway the task was submitted through
	taskStatus      string
	pending         pendingWrite
	showSignDialog  bool
	signYesSelected bool

	// clipboard feedback
	copiedMsg string

	// logger panel
	logEnabled  bool
	logger      *log.Logger
	logBuffer   *strings.Builder
	logViewport viewport.Model
	logReady    bool
	logSpinner  spinner.Model
}

// -------------------- INIT --------------------

// newModel creates a model for cfg. configPath is where logger toggles are
// persisted; an empty path disables saving.
func newModel(cfg config.Config, configPath string) model {
	// spinner
	sp := spinner.New()
	sp.Spinner = spinner.Line
	sp.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	// Initialize log viewport
	vp := viewport.New(0, 20) // Will be resized in Update on first WindowSizeMsg
	vp.Style = lipgloss.NewStyle().
		Foreground(styles.CText).
		Background(styles.CPanel)

	// Initialize log spinner
	logSpin := spinner.New()
	logSpin.Spinner = spinner.Dot
	logSpin.Style = lipgloss.NewStyle().Foreground(styles.CAccent2)

	provider, providerErr := wallet.FromConfig(cfg.Wallet)

	return model{
		activePage:    config.PageLanding,
		cfg:           cfg,
		configPath:    configPath,
		spin:          sp,
		rpcURL:        cfg.ActiveRPC(),
		rpcConnecting: cfg.ActiveRPC() != "",
		provider:      provider,
		providerErr:   providerErr,
		logEnabled:    cfg.Logger,
		logViewport:   vp,
		logBuffer:     &strings.Builder{},
		logSpinner:    logSpin,
	}
}

// attachBackend binds the read-only contract gateway to b
func (m *model) attachBackend(b contract.Backend) error {
	gw, err := contract.New(m.cfg.Contract.Address, b,
		contract.WithStartBlock(m.cfg.Contract.StartBlock),
		contract.WithLogRange(m.cfg.Contract.LogRange),
	)
	if err != nil {
		return err
	}
	m.backend = b
	m.gateway = gw
	return nil
}

// saveConfig persists cfg, ignoring failures like the rest of the settings
// writes.
func (m *model) saveConfig() {
	if m.configPath == "" {
		return
	}
	m.cfg.Logger = m.logEnabled
	_ = config.Save(m.configPath, m.cfg)
}

// Init implements tea.Model interface and returns initial commands
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	if m.logEnabled {
		cmds = append(cmds, initLogViewport(), m.logSpinner.Tick)
	}
	// connect if rpc is set
	if m.rpcURL != "" {
		cmds = append(cmds, connectRPC(m.rpcURL))
	}
	return tea.Batch(cmds...)
}
