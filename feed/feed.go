// Package feed loads the global donation history and derives per-account
// statistics from it.
package feed

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"trustchain-tui/contract"
	"trustchain-tui/helpers"
	"trustchain-tui/store"

	"github.com/ethereum/go-ethereum/common"
)

// Snapshot is the event history as of block Head, in chain order.
type Snapshot struct {
	Donations     []contract.DonationEvent
	Registrations []contract.Registration
	Head          uint64
	// CacheErr is set when the cache could not be used and the history was
	// fetched directly from the node instead.
	CacheErr error
}

// Sync returns the full history. With a store only the blocks after the
// stored cursor are fetched; without one every event since the contract's
// start block is queried.
func Sync(ctx context.Context, gw *contract.Gateway, st *store.Store) (Snapshot, error) {
	if st == nil {
		return fetch(ctx, gw)
	}
	snap, err := syncCached(ctx, gw, st)
	if err == nil {
		return snap, nil
	}
	if ctx.Err() != nil {
		return Snapshot{}, ctx.Err()
	}

	direct, ferr := fetch(ctx, gw)
	if ferr != nil {
		return Snapshot{}, ferr
	}
	direct.CacheErr = err
	return direct, nil
}

func fetch(ctx context.Context, gw *contract.Gateway) (Snapshot, error) {
	head, err := gw.BlockNumber(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	donations, err := gw.QueryDonationEventsRange(ctx, gw.StartBlock(), &head)
	if err != nil {
		return Snapshot{}, err
	}
	regs, err := gw.QueryRegistrationsRange(ctx, gw.StartBlock(), &head)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{Donations: donations, Registrations: regs, Head: head}, nil
}

func syncCached(ctx context.Context, gw *contract.Gateway, st *store.Store) (Snapshot, error) {
	addr := gw.Address()
	cursor, ok, err := st.Cursor(ctx, addr)
	if err != nil {
		return Snapshot{}, err
	}
	head, err := gw.BlockNumber(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	from := gw.StartBlock()
	if ok && cursor+1 > from {
		from = cursor + 1
	}
	if from <= head {
		donations, err := gw.QueryDonationEventsRange(ctx, from, &head)
		if err != nil {
			return Snapshot{}, err
		}
		regs, err := gw.QueryRegistrationsRange(ctx, from, &head)
		if err != nil {
			return Snapshot{}, err
		}
		if err := st.Append(ctx, addr, store.Batch{Donations: donations, Registrations: regs, Through: head}); err != nil {
			return Snapshot{}, fmt.Errorf("cache: %w", err)
		}
	}

	donations, err := st.Donations(ctx, addr)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cache: %w", err)
	}
	regs, err := st.Registrations(ctx, addr)
	if err != nil {
		return Snapshot{}, fmt.Errorf("cache: %w", err)
	}
	return Snapshot{Donations: donations, Registrations: regs, Head: head}, nil
}

// Newest returns a copy of events, latest first.
func Newest(events []contract.DonationEvent) []contract.DonationEvent {
	out := make([]contract.DonationEvent, len(events))
	for i, ev := range events {
		out[len(events)-1-i] = ev
	}
	return out
}

// Names maps each registered address to its most recent name.
func Names(regs []contract.Registration) map[common.Address]string {
	names := make(map[common.Address]string, len(regs))
	for _, r := range regs {
		names[r.User] = r.Name
	}
	return names
}

// Direction of a donation relative to an account.
type Direction int

const (
	Sent Direction = iota
	Received
)

func (d Direction) String() string {
	if d == Received {
		return "RECEIVED"
	}
	return "SENT"
}

// Activity is one line of an account's history.
type Activity struct {
	Direction    Direction
	Counterparty common.Address
	Label        string
	Amount       *big.Int
	TxHash       common.Hash
	Timestamp    time.Time
}

// Summary is the aggregate view of one account.
type Summary struct {
	Donated  *big.Int
	Received *big.Int
	Activity []Activity // newest first
}

// Summarize scans events once. A donation to oneself counts on both sides.
func Summarize(events []contract.DonationEvent, account common.Address) Summary {
	s := Summary{Donated: new(big.Int), Received: new(big.Int)}
	var activity []Activity

	for _, ev := range events {
		amount := ev.Amount
		if amount == nil {
			amount = new(big.Int)
		}
		if ev.Donor == account {
			s.Donated.Add(s.Donated, amount)
			activity = append(activity, Activity{
				Direction:    Sent,
				Counterparty: ev.Receiver,
				Label:        "To: " + helpers.PrefixAddr(ev.Receiver.Hex(), 6),
				Amount:       amount,
				TxHash:       ev.TxHash,
				Timestamp:    ev.Timestamp,
			})
		}
		if ev.Receiver == account {
			s.Received.Add(s.Received, amount)
			activity = append(activity, Activity{
				Direction:    Received,
				Counterparty: ev.Donor,
				Label:        "From: " + ev.DonorName,
				Amount:       amount,
				TxHash:       ev.TxHash,
				Timestamp:    ev.Timestamp,
			})
		}
	}

	s.Activity = make([]Activity, len(activity))
	for i, a := range activity {
		s.Activity[len(activity)-1-i] = a
	}
	return s
}
