package explorer

import (
	"math/big"
	"strings"
	"testing"
	"time"

	"trustchain-tui/contract"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
)

func event(name string, receiver string, eth int64) contract.DonationEvent {
	return contract.DonationEvent{
		DonorName: name,
		Receiver:  common.HexToAddress(receiver),
		Amount:    new(big.Int).Mul(big.NewInt(eth), big.NewInt(params.Ether)),
		Timestamp: time.Unix(1_700_000_000, 0),
	}
}

func TestRowText(t *testing.T) {
	ev := event("Alice", "0x1234567890123456789012345678901234567890", 2)
	out := Row(ev, "", "https://example.org/tx/1", false, 40)
	for _, want := range []string{"Alice", "To: 0x123456…", "+2.0 ETH", "View ↗"} {
		if !strings.Contains(out, want) {
			t.Errorf("Row missing %q in %q", want, out)
		}
	}
}

func TestRenderEmpty(t *testing.T) {
	out := Render(State{}, 100, 30, "")
	if !strings.Contains(out, Heading) || !strings.Contains(out, "No donations yet.") {
		t.Errorf("Render = %q", out)
	}
}

func TestRenderKeepsOrder(t *testing.T) {
	s := State{
		Events: []contract.DonationEvent{
			event("Newest", "0x00000000000000000000000000000000000000aa", 1),
			event("Oldest", "0x00000000000000000000000000000000000000bb", 1),
		},
		TxURL: func(h string) string { return "https://example.org/tx/" + h },
	}
	out := Render(s, 100, 30, "")
	if strings.Index(out, "Newest") > strings.Index(out, "Oldest") {
		t.Error("events not rendered in the given order")
	}
}

func TestLinkOutOfRange(t *testing.T) {
	s := State{TxURL: func(h string) string { return h }}
	if got := s.Link(3); got != "" {
		t.Errorf("Link(3) = %q", got)
	}
}
