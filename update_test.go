package main

import (
	"encoding/hex"
	"math/big"
	"strings"
	"testing"

	"trustchain-tui/config"
	"trustchain-tui/contract/contracttest"
	"trustchain-tui/feed"
	"trustchain-tui/txtask"
	"trustchain-tui/views/landing"
	"trustchain-tui/views/profile"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

var (
	enterKey = tea.KeyMsg{Type: tea.KeyEnter}
	escKey   = tea.KeyMsg{Type: tea.KeyEsc}
)

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// newTestModel returns a model bound to an in-memory chain. withKey configures
// a funded private-key wallet.
func newTestModel(t *testing.T, withKey bool) (*model, *contracttest.Backend, common.Address) {
	t.Helper()
	b := contracttest.NewBackend()
	key, addr := b.NewAccount(ether(10))

	cfg := config.DefaultConfig()
	cfg.RPCURLs = nil
	if withKey {
		cfg.Wallet.PrivateKey = hex.EncodeToString(crypto.FromECDSA(key))
	}
	m := newModel(cfg, "")
	m.w, m.h = 120, 60
	if err := m.attachBackend(b); err != nil {
		t.Fatalf("attachBackend: %v", err)
	}
	return &m, b, addr
}

// drain runs cmd and every command produced by the resulting updates.
func drain(t *testing.T, m *model, cmd tea.Cmd) {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 200 {
			t.Fatal("update loop did not settle")
		}
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := c().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			_, next := m.Update(msg)
			queue = append(queue, next)
		}
	}
}

func press(t *testing.T, m *model, k tea.KeyMsg) {
	t.Helper()
	_, cmd := m.Update(k)
	drain(t, m, cmd)
}

func connectTestWallet(t *testing.T, m *model) {
	t.Helper()
	press(t, m, runeKey("c"))
	if m.connectForm == nil {
		t.Fatal("connect prompt not shown")
	}
	drain(t, m, m.finishConnect(true))
	if !m.session.Active() {
		t.Fatalf("session not active, walletErr = %q", m.walletErr)
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	m, b, _ := newTestModel(t, false)

	press(t, m, runeKey("c"))
	if m.session.Active() {
		t.Fatal("session active without a provider")
	}
	if !strings.Contains(m.walletErr, "No wallet found") {
		t.Errorf("walletErr = %q", m.walletErr)
	}
	if len(b.Sent()) != 0 {
		t.Errorf("sent %d transactions", len(b.Sent()))
	}
}

func TestConnectRejected(t *testing.T) {
	m, _, _ := newTestModel(t, true)

	press(t, m, runeKey("c"))
	press(t, m, escKey)
	if m.session.Active() {
		t.Fatal("session active after rejection")
	}
	if m.walletErr != "Request rejected." {
		t.Errorf("walletErr = %q", m.walletErr)
	}
}

func TestConnectLoadsAccount(t *testing.T) {
	m, _, addr := newTestModel(t, true)
	connectTestWallet(t, m)

	if m.session.Address() != addr {
		t.Errorf("session address = %s, want %s", m.session.Address(), addr)
	}
	if !m.profileLoaded || m.profile.IsRegistered {
		t.Errorf("profile = %+v loaded=%v, want unregistered", m.profile, m.profileLoaded)
	}
	if !m.balanceLoaded || m.balance.Wei.Cmp(ether(10)) != 0 {
		t.Errorf("balance = %v", m.balance.Wei)
	}
	if !m.feedLoaded {
		t.Error("donation history not loaded")
	}
}

func TestLandingDonateRequiresSession(t *testing.T) {
	m, _, _ := newTestModel(t, true)

	press(t, m, enterKey)
	if m.activePage != config.PageLanding {
		t.Errorf("page = %s, want landing", m.activePage)
	}
	if m.landingNotice != landing.ConnectMsg {
		t.Errorf("notice = %q", m.landingNotice)
	}

	connectTestWallet(t, m)
	press(t, m, enterKey)
	if m.activePage != config.PageDonate {
		t.Errorf("page = %s, want donate", m.activePage)
	}
	if m.donateForm == nil {
		t.Error("donate form not opened")
	}
}

func TestUnregisteredProfileShowsForm(t *testing.T) {
	m, _, _ := newTestModel(t, true)
	connectTestWallet(t, m)

	press(t, m, runeKey("p"))
	if m.profileForm == nil {
		t.Fatal("registration form not opened")
	}
	view := m.View()
	if !strings.Contains(view, profile.FormTitle) {
		t.Errorf("view missing %q", profile.FormTitle)
	}
	if strings.Contains(view, profile.ActivityTitle) {
		t.Errorf("unregistered view shows %q", profile.ActivityTitle)
	}
}

func TestProfileRequiresSession(t *testing.T) {
	m, _, _ := newTestModel(t, true)
	press(t, m, runeKey("p"))
	if !strings.Contains(m.View(), profile.ConnectFirst) {
		t.Errorf("view missing %q", profile.ConnectFirst)
	}
}

func TestRegisterFlow(t *testing.T) {
	m, b, _ := newTestModel(t, true)
	connectTestWallet(t, m)
	press(t, m, runeKey("p"))

	m.requestSignature(pendingWrite{kind: txtask.Register, name: "Alice"})
	if !m.showSignDialog {
		t.Fatal("sign dialog not shown")
	}
	press(t, m, enterKey)

	if m.task.State != txtask.Done {
		t.Fatalf("task state = %s, err = %v", m.task.State, m.task.Err)
	}
	if !m.profile.IsRegistered || m.profile.Name != "Alice" {
		t.Errorf("profile = %+v", m.profile)
	}
	if m.profileForm != nil {
		t.Error("registration form still open")
	}
	if len(b.Sent()) != 1 {
		t.Errorf("sent %d transactions, want 1", len(b.Sent()))
	}
	if !strings.Contains(m.View(), profile.ActivityTitle) {
		t.Errorf("registered view missing %q", profile.ActivityTitle)
	}
}

func TestDonateFlow(t *testing.T) {
	m, b, addr := newTestModel(t, true)
	_, bob := b.NewAccount(new(big.Int))
	connectTestWallet(t, m)
	press(t, m, runeKey("d"))

	m.requestSignature(pendingWrite{kind: txtask.Donate, receiver: bob.Hex(), amount: "1.5"})
	press(t, m, runeKey("y"))

	if m.task.State != txtask.Done {
		t.Fatalf("task state = %s, err = %v", m.task.State, m.task.Err)
	}
	if m.donateTx == "" || m.donateErr != "" {
		t.Fatalf("donateTx = %q, donateErr = %q", m.donateTx, m.donateErr)
	}
	if len(m.snapshot.Donations) != 1 {
		t.Fatalf("history has %d donations, want 1", len(m.snapshot.Donations))
	}
	ev := m.snapshot.Donations[0]
	if ev.Donor != addr || ev.Receiver != bob || ev.DonorName != "Anonymous" {
		t.Errorf("event = %+v", ev)
	}
	want := new(big.Int).Sub(ether(10), new(big.Int).Div(ether(3), big.NewInt(2)))
	if m.balance.Wei.Cmp(want) != 0 {
		t.Errorf("balance = %v, want %v", m.balance.Wei, want)
	}
	if !strings.Contains(m.View(), "Donation confirmed!") {
		t.Error("success panel not shown")
	}
}

func TestDonationAfterInFlightSyncIsReloaded(t *testing.T) {
	m, b, addr := newTestModel(t, true)
	_, bob := b.NewAccount(new(big.Int))
	connectTestWallet(t, m)
	press(t, m, runeKey("d"))

	// a sync that read the chain before the donation was mined
	sync := m.refreshFeed()
	if sync == nil {
		t.Fatal("sync not started")
	}
	older := sync()

	m.requestSignature(pendingWrite{kind: txtask.Donate, receiver: bob.Hex(), amount: "1"})
	press(t, m, runeKey("y"))
	if m.task.State != txtask.Done {
		t.Fatalf("task state = %s, err = %v", m.task.State, m.task.Err)
	}
	if !m.feedStale {
		t.Error("refresh during a running sync was not queued")
	}

	drain(t, m, func() tea.Msg { return older })
	if m.feedStale || m.feedLoading {
		t.Errorf("feedStale = %v, feedLoading = %v after sync settled", m.feedStale, m.feedLoading)
	}
	if len(m.snapshot.Donations) != 1 {
		t.Fatalf("history has %d donations, want 1", len(m.snapshot.Donations))
	}
	if sum := feed.Summarize(m.snapshot.Donations, addr); sum.Donated.Cmp(ether(1)) != 0 {
		t.Errorf("donated total = %v, want 1 ETH", sum.Donated)
	}
}

func TestDonateRevertShowsReason(t *testing.T) {
	m, b, _ := newTestModel(t, true)
	connectTestWallet(t, m)
	press(t, m, runeKey("d"))

	m.requestSignature(pendingWrite{kind: txtask.Donate, receiver: common.Address{}.Hex(), amount: "1"})
	press(t, m, enterKey)

	if m.task.State != txtask.Failed {
		t.Fatalf("task state = %s", m.task.State)
	}
	if m.donateErr != "Transaction reverted: Invalid receiver address" {
		t.Errorf("donateErr = %q", m.donateErr)
	}
	if len(b.Sent()) != 0 {
		t.Errorf("sent %d transactions", len(b.Sent()))
	}
	if m.donateForm == nil {
		t.Error("form not reopened after failure")
	}
}

func TestRejectSignatureSendsNothing(t *testing.T) {
	m, b, _ := newTestModel(t, true)
	connectTestWallet(t, m)
	press(t, m, runeKey("d"))
	calls := b.Calls()

	m.requestSignature(pendingWrite{kind: txtask.Donate, receiver: common.Address{1}.Hex(), amount: "1"})
	press(t, m, runeKey("n"))

	if m.showSignDialog {
		t.Error("sign dialog still open")
	}
	if m.donateErr != "Request rejected." {
		t.Errorf("donateErr = %q", m.donateErr)
	}
	if b.Calls() != calls || len(b.Sent()) != 0 {
		t.Errorf("node calls %d -> %d, sent %d", calls, b.Calls(), len(b.Sent()))
	}
}

func TestAbandonedTaskResultsAreDropped(t *testing.T) {
	m, b, _ := newTestModel(t, true)
	connectTestWallet(t, m)
	press(t, m, runeKey("d"))
	b.HoldReceipts = true

	m.requestSignature(pendingWrite{kind: txtask.Donate, receiver: common.Address{1}.Hex(), amount: "1"})
	_, cmd := m.Update(enterKey)
	submitted := cmd()
	first := m.task.ID

	// duplicate confirmation while busy does nothing
	m.requestSignature(pendingWrite{kind: txtask.Donate, receiver: common.Address{2}.Hex(), amount: "1"})
	if _, dup := m.Update(enterKey); dup != nil {
		t.Error("second write started while one is pending")
	}

	press(t, m, escKey)
	if m.task.State != txtask.Failed || !strings.Contains(m.donateErr, "may still be mined") {
		t.Fatalf("state = %s, donateErr = %q", m.task.State, m.donateErr)
	}

	if _, next := m.Update(submitted); next != nil {
		t.Error("abandoned submit result started a receipt wait")
	}
	if m.task.ID != first || m.task.State != txtask.Failed {
		t.Errorf("task changed by stale result: %+v", m.task)
	}
}

func TestExplorerWithoutSession(t *testing.T) {
	m, b, _ := newTestModel(t, false)
	_, alice := b.NewAccount(ether(1))
	_, bob := b.NewAccount(new(big.Int))
	b.EmitDonation(alice, bob, ether(1), "Alice")

	press(t, m, runeKey("e"))
	if m.activePage != config.PageExplorer {
		t.Fatalf("page = %s", m.activePage)
	}
	if len(m.snapshot.Donations) != 1 {
		t.Fatalf("history has %d donations", len(m.snapshot.Donations))
	}
	view := m.View()
	for _, want := range []string{"Global Donations", "Alice", "+1.0 ETH"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestDisconnectClearsAccount(t *testing.T) {
	m, _, _ := newTestModel(t, true)
	connectTestWallet(t, m)

	press(t, m, runeKey("x"))
	if m.session.Active() || m.profileLoaded || m.balanceLoaded {
		t.Errorf("account state kept after disconnect: session=%v profile=%v balance=%v",
			m.session.Active(), m.profileLoaded, m.balanceLoaded)
	}
}
