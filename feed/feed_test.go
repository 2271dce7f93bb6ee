package feed_test

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"trustchain-tui/contract"
	"trustchain-tui/contract/contracttest"
	"trustchain-tui/feed"
	"trustchain-tui/helpers"
	"trustchain-tui/store"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

func ether(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(params.Ether))
}

func newGateway(t *testing.T, b *contracttest.Backend) *contract.Gateway {
	t.Helper()
	gw, err := contract.New(contracttest.ContractAddress, b)
	if err != nil {
		t.Fatal(err)
	}
	return gw
}

func TestAliceDonatesToBob(t *testing.T) {
	b := contracttest.NewBackend()
	aliceKey, alice := b.NewAccount(ether(1))
	_, bob := b.NewAccount(new(big.Int))
	ctx := context.Background()

	gw := newGateway(t, b)
	aliceGw := gw.WithSigner(b.Transactor(aliceKey))
	if _, err := aliceGw.RegisterUser(ctx, "Alice"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	receipt, err := aliceGw.Donate(ctx, bob.Hex(), "0.5")
	if err != nil {
		t.Fatalf("Donate: %v", err)
	}

	snap, err := feed.Sync(ctx, gw, nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	half, _ := helpers.ParseEther("0.5")

	sent := feed.Summarize(snap.Donations, alice)
	if sent.Donated.Cmp(half) < 0 {
		t.Errorf("Alice donated %s, want >= 0.5 ETH", helpers.FormatEther(sent.Donated))
	}
	if len(sent.Activity) == 0 || sent.Activity[0].Direction != feed.Sent ||
		sent.Activity[0].Label != "To: "+helpers.PrefixAddr(bob.Hex(), 6) {
		t.Errorf("Alice activity = %+v", sent.Activity)
	}

	got := feed.Summarize(snap.Donations, bob)
	if got.Received.Cmp(half) < 0 {
		t.Errorf("Bob received %s, want >= 0.5 ETH", helpers.FormatEther(got.Received))
	}
	if len(got.Activity) == 0 || got.Activity[0].Direction != feed.Received || got.Activity[0].Label != "From: Alice" {
		t.Errorf("Bob activity = %+v", got.Activity)
	}

	top := feed.Newest(snap.Donations)[0]
	if top.TxHash != receipt.TxHash {
		t.Errorf("newest event %s, want %s", top.TxHash.Hex(), receipt.TxHash.Hex())
	}
	if "+"+helpers.FormatEther(top.Amount)+" ETH" != "+0.5 ETH" {
		t.Errorf("amount renders as %s", helpers.FormatEther(top.Amount))
	}

	if name := feed.Names(snap.Registrations)[alice]; name != "Alice" {
		t.Errorf("registered name = %q", name)
	}
}

func TestSummarizeMatchesFullHistory(t *testing.T) {
	accounts := []common.Address{
		common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		common.HexToAddress("0x00000000000000000000000000000000000000cc"),
	}
	rng := rand.New(rand.NewSource(1))

	var events []contract.DonationEvent
	for i := 0; i < 200; i++ {
		events = append(events, contract.DonationEvent{
			Donor:       accounts[rng.Intn(len(accounts))],
			Receiver:    accounts[rng.Intn(len(accounts))],
			Amount:      big.NewInt(rng.Int63n(1_000_000) + 1),
			DonorName:   "x",
			TxHash:      common.BigToHash(big.NewInt(int64(i))),
			BlockNumber: uint64(i),
		})
	}

	for _, a := range accounts {
		donated, received := new(big.Int), new(big.Int)
		entries := 0
		for _, ev := range events {
			if ev.Donor == a {
				donated.Add(donated, ev.Amount)
				entries++
			}
			if ev.Receiver == a {
				received.Add(received, ev.Amount)
				entries++
			}
		}

		s := feed.Summarize(events, a)
		if s.Donated.Cmp(donated) != 0 || s.Received.Cmp(received) != 0 {
			t.Errorf("%s: summary %s/%s, want %s/%s", a.Hex(), s.Donated, s.Received, donated, received)
		}
		if len(s.Activity) != entries {
			t.Errorf("%s: %d activity entries, want %d", a.Hex(), len(s.Activity), entries)
		}
		for i := 1; i < len(s.Activity); i++ {
			if s.Activity[i-1].TxHash.Big().Cmp(s.Activity[i].TxHash.Big()) < 0 {
				t.Fatalf("%s: activity not newest first at %d", a.Hex(), i)
			}
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := feed.Summarize(nil, common.Address{})
	if s.Donated.Sign() != 0 || s.Received.Sign() != 0 || len(s.Activity) != 0 {
		t.Errorf("empty summary = %+v", s)
	}
}

func TestNewestIsReverseChainOrder(t *testing.T) {
	b := contracttest.NewBackend()
	a := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	c := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	var hashes []common.Hash
	for i := int64(1); i <= 4; i++ {
		hashes = append(hashes, b.EmitDonation(a, c, ether(i), "Alice"))
	}
	gw := newGateway(t, b)

	first, err := feed.Sync(context.Background(), gw, nil)
	if err != nil {
		t.Fatal(err)
	}
	second, err := feed.Sync(context.Background(), gw, nil)
	if err != nil {
		t.Fatal(err)
	}

	n1, n2 := feed.Newest(first.Donations), feed.Newest(second.Donations)
	if len(n1) != len(hashes) || len(n2) != len(hashes) {
		t.Fatalf("got %d and %d events, want %d", len(n1), len(n2), len(hashes))
	}
	for i := range n1 {
		want := hashes[len(hashes)-1-i]
		if n1[i].TxHash != want || n2[i].TxHash != want {
			t.Errorf("position %d: %s / %s, want %s", i, n1[i].TxHash.Hex(), n2[i].TxHash.Hex(), want.Hex())
		}
	}
	if first.Donations[0].TxHash != hashes[0] {
		t.Error("Newest modified its input")
	}
}

func TestSyncWithCacheIsIncremental(t *testing.T) {
	b := contracttest.NewBackend()
	a := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	c := common.HexToAddress("0x00000000000000000000000000000000000000cc")
	b.EmitDonation(a, c, ether(1), "Alice")
	b.SetUser(c, "Carol")
	gw := newGateway(t, b)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = st.Close() })
	ctx := context.Background()

	snap, err := feed.Sync(ctx, gw, st)
	if err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if len(snap.Donations) != 1 || len(snap.Registrations) != 1 || snap.CacheErr != nil {
		t.Fatalf("first snapshot = %+v", snap)
	}
	cursor, ok, _ := st.Cursor(ctx, gw.Address())
	if !ok || cursor != b.Head() {
		t.Fatalf("cursor = %d (%v), want %d", cursor, ok, b.Head())
	}

	b.EmitDonation(c, a, ether(2), "Carol")
	snap, err = feed.Sync(ctx, gw, st)
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if len(snap.Donations) != 2 {
		t.Fatalf("got %d donations, want 2", len(snap.Donations))
	}
	if snap.Donations[1].DonorName != "Carol" {
		t.Errorf("chain order broken: %+v", snap.Donations)
	}

	// nothing new: same sequence again
	again, err := feed.Sync(ctx, gw, st)
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Donations) != 2 || again.Donations[0].TxHash != snap.Donations[0].TxHash {
		t.Errorf("re-sync changed history: %+v", again.Donations)
	}
}

func TestSyncCacheFailureFallsBack(t *testing.T) {
	b := contracttest.NewBackend()
	b.EmitDonation(common.HexToAddress("0xaa"), common.HexToAddress("0xbb"), ether(1), "Alice")
	gw := newGateway(t, b)

	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	st.Close()

	snap, err := feed.Sync(context.Background(), gw, st)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if snap.CacheErr == nil {
		t.Error("expected cache error to be reported")
	}
	if len(snap.Donations) != 1 {
		t.Errorf("got %d donations, want 1", len(snap.Donations))
	}
}
