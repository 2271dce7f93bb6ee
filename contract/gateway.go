package contract

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"trustchain-tui/helpers"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Backend is everything the gateway needs from a node. *ethclient.Client
// satisfies it.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// Gateway is a typed handle on one TrustChain contract instance. A gateway
// created by New is read-only; WithSigner returns a copy that can send
// transactions on behalf of one account.
type Gateway struct {
	address    common.Address
	abi        abi.ABI
	backend    Backend
	bound      *bind.BoundContract
	startBlock uint64
	logRange   uint64
	opts       *bind.TransactOpts
}

// Option configures a Gateway.
type Option func(*Gateway)

// WithStartBlock sets the first block scanned by the event queries.
func WithStartBlock(n uint64) Option {
	return func(g *Gateway) { g.startBlock = n }
}

// WithLogRange caps the number of blocks covered by one eth_getLogs call.
// Public endpoints often reject wider ranges. Zero queries in one call.
func WithLogRange(n uint64) Option {
	return func(g *Gateway) { g.logRange = n }
}

// New binds the TrustChain ABI to address. The address must be 0x followed by
// exactly 40 hex characters.
func New(address string, backend Backend, opts ...Option) (*Gateway, error) {
	if !helpers.IsValidEthAddress(address) {
		return nil, fmt.Errorf("%w: contract address %q is malformed", ErrInputValidation, address)
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: no backend", ErrConnection)
	}
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("parse abi: %w", err)
	}

	addr := common.HexToAddress(address)
	g := &Gateway{
		address: addr,
		abi:     parsed,
		backend: backend,
		bound:   bind.NewBoundContract(addr, parsed, backend, backend, backend),
	}
	for _, o := range opts {
		o(g)
	}
	return g, nil
}

// WithSigner returns a copy of the gateway whose writes are signed by opts.From.
func (g *Gateway) WithSigner(opts *bind.TransactOpts) *Gateway {
	cp := *g
	cp.opts = opts
	return &cp
}

// Address returns the contract address.
func (g *Gateway) Address() common.Address { return g.address }

// StartBlock returns the first block scanned for events.
func (g *Gateway) StartBlock() uint64 { return g.startBlock }

// Signer returns the account writes are attributed to.
func (g *Gateway) Signer() (common.Address, bool) {
	if g.opts == nil {
		return common.Address{}, false
	}
	return g.opts.From, true
}

// ChainID returns the chain id reported by the node.
func (g *Gateway) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := g.backend.ChainID(ctx)
	if err != nil {
		return nil, Classify(err)
	}
	return id, nil
}

// BlockNumber returns the latest block number.
func (g *Gateway) BlockNumber(ctx context.Context) (uint64, error) {
	n, err := g.backend.BlockNumber(ctx)
	if err != nil {
		return 0, Classify(err)
	}
	return n, nil
}

// Balance returns the native balance of addr in wei.
func (g *Gateway) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	wei, err := g.backend.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, Classify(err)
	}
	return wei, nil
}

// GetUser reads the registration state of user.
func (g *Gateway) GetUser(ctx context.Context, user common.Address) (UserProfile, error) {
	var out []any
	if err := g.bound.Call(&bind.CallOpts{Context: ctx}, &out, MethodGetUser, user); err != nil {
		return UserProfile{}, Classify(err)
	}
	if len(out) != 2 {
		return UserProfile{}, fmt.Errorf("%w: getUser returned %d values", ErrNetwork, len(out))
	}
	name, ok1 := out[0].(string)
	registered, ok2 := out[1].(bool)
	if !ok1 || !ok2 {
		return UserProfile{}, fmt.Errorf("%w: getUser returned unexpected types", ErrNetwork)
	}
	return UserProfile{Name: name, IsRegistered: registered}, nil
}

// ValidateName checks a registration name before any wallet prompt.
func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalidInput("name is required")
	}
	return name, nil
}

// ValidateDonation checks a receiver and a decimal ether amount before any
// wallet prompt and returns the parsed values.
func ValidateDonation(receiver, amountEther string) (common.Address, *big.Int, error) {
	receiver = strings.TrimSpace(receiver)
	wei, err := helpers.ParseEther(amountEther)
	if err != nil {
		return common.Address{}, nil, fmt.Errorf("%w: %w", ErrInputValidation, err)
	}
	if wei.Sign() <= 0 {
		return common.Address{}, nil, invalidInput("amount must be greater than 0")
	}
	if !helpers.IsValidEthAddress(receiver) {
		return common.Address{}, nil, invalidInput("receiver %q is not a valid address", receiver)
	}
	return common.HexToAddress(receiver), wei, nil
}

// SubmitRegisterUser signs and sends registerUser(name) without waiting for it
// to be mined.
func (g *Gateway) SubmitRegisterUser(ctx context.Context, name string) (*types.Transaction, error) {
	name, err := ValidateName(name)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, nil, MethodRegisterUser, name)
}

// SubmitDonate signs and sends donate(receiver) carrying amountEther.
func (g *Gateway) SubmitDonate(ctx context.Context, receiver, amountEther string) (*types.Transaction, error) {
	to, wei, err := ValidateDonation(receiver, amountEther)
	if err != nil {
		return nil, err
	}
	return g.transact(ctx, wei, MethodDonate, to)
}

func (g *Gateway) transact(ctx context.Context, value *big.Int, method string, args ...any) (*types.Transaction, error) {
	if g.opts == nil {
		return nil, fmt.Errorf("%w: connect a wallet to send transactions", ErrProviderMissing)
	}
	opts := *g.opts
	opts.Context = ctx
	opts.Value = value

	tx, err := g.bound.Transact(&opts, method, args...)
	if err != nil {
		return nil, Classify(err)
	}
	return tx, nil
}

// Wait blocks until tx is mined or ctx is done. There is no built-in timeout.
// A mined transaction with a failed status is reported as a revert.
func (g *Gateway) Wait(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	receipt, err := bind.WaitMined(ctx, g.backend, tx)
	if err != nil {
		return nil, Classify(err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, &RevertError{}
	}
	return receipt, nil
}

// RegisterUser submits registerUser(name) and waits for confirmation.
func (g *Gateway) RegisterUser(ctx context.Context, name string) (*types.Receipt, error) {
	tx, err := g.SubmitRegisterUser(ctx, name)
	if err != nil {
		return nil, err
	}
	return g.Wait(ctx, tx)
}

// Donate submits donate(receiver) with amountEther and waits for confirmation.
func (g *Gateway) Donate(ctx context.Context, receiver, amountEther string) (*types.Receipt, error) {
	tx, err := g.SubmitDonate(ctx, receiver, amountEther)
	if err != nil {
		return nil, err
	}
	return g.Wait(ctx, tx)
}

// QueryDonationEvents returns every DonationMade event since the start block in
// chain order.
func (g *Gateway) QueryDonationEvents(ctx context.Context) ([]DonationEvent, error) {
	return g.QueryDonationEventsRange(ctx, g.startBlock, nil)
}

// QueryDonationEventsRange returns DonationMade events in [from, to]. A nil to
// means up to the latest block.
func (g *Gateway) QueryDonationEventsRange(ctx context.Context, from uint64, to *uint64) ([]DonationEvent, error) {
	logs, err := g.filter(ctx, EventDonationMade, from, to)
	if err != nil {
		return nil, err
	}

	events := make([]DonationEvent, 0, len(logs))
	for _, l := range logs {
		var raw donationMadeLog
		if err := g.bound.UnpackLog(&raw, EventDonationMade, l); err != nil {
			return nil, fmt.Errorf("%w: decode %s in %s: %w", ErrNetwork, EventDonationMade, l.TxHash.Hex(), err)
		}
		ev := DonationEvent{
			Donor:       raw.Donor,
			Receiver:    raw.Receiver,
			Amount:      raw.Amount,
			DonorName:   raw.DonorName,
			TxHash:      l.TxHash,
			BlockNumber: l.BlockNumber,
			LogIndex:    l.Index,
		}
		if raw.Timestamp != nil && raw.Timestamp.IsInt64() {
			ev.Timestamp = time.Unix(raw.Timestamp.Int64(), 0)
		}
		events = append(events, ev)
	}
	return events, nil
}

// QueryRegistrations returns every UserRegistered event since the start block
// in chain order.
func (g *Gateway) QueryRegistrations(ctx context.Context) ([]Registration, error) {
	return g.QueryRegistrationsRange(ctx, g.startBlock, nil)
}

// QueryRegistrationsRange returns UserRegistered events in [from, to].
func (g *Gateway) QueryRegistrationsRange(ctx context.Context, from uint64, to *uint64) ([]Registration, error) {
	logs, err := g.filter(ctx, EventUserRegistered, from, to)
	if err != nil {
		return nil, err
	}

	regs := make([]Registration, 0, len(logs))
	for _, l := range logs {
		var raw userRegisteredLog
		if err := g.bound.UnpackLog(&raw, EventUserRegistered, l); err != nil {
			return nil, fmt.Errorf("%w: decode %s in %s: %w", ErrNetwork, EventUserRegistered, l.TxHash.Hex(), err)
		}
		regs = append(regs, Registration{
			User:        raw.UserWallet,
			Name:        raw.Name,
			TxHash:      l.TxHash,
			BlockNumber: l.BlockNumber,
			LogIndex:    l.Index,
		})
	}
	return regs, nil
}

func (g *Gateway) filter(ctx context.Context, event string, from uint64, to *uint64) ([]types.Log, error) {
	ev, ok := g.abi.Events[event]
	if !ok {
		return nil, errors.New("unknown event " + event)
	}
	q := ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		Addresses: []common.Address{g.address},
		Topics:    [][]common.Hash{{ev.ID}},
	}

	var logs []types.Log
	if g.logRange == 0 {
		if to != nil {
			q.ToBlock = new(big.Int).SetUint64(*to)
		}
		got, err := g.backend.FilterLogs(ctx, q)
		if err != nil {
			return nil, Classify(err)
		}
		logs = got
	} else {
		last, err := g.lastBlock(ctx, to)
		if err != nil {
			return nil, err
		}
		for lo := from; lo <= last; {
			hi := min(last, lo+g.logRange-1)
			q.FromBlock = new(big.Int).SetUint64(lo)
			q.ToBlock = new(big.Int).SetUint64(hi)
			got, err := g.backend.FilterLogs(ctx, q)
			if err != nil {
				return nil, Classify(err)
			}
			logs = append(logs, got...)
			if hi == last {
				break
			}
			lo = hi + 1
		}
	}

	kept := make([]types.Log, 0, len(logs))
	for _, l := range logs {
		if !l.Removed {
			kept = append(kept, l)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].BlockNumber != kept[j].BlockNumber {
			return kept[i].BlockNumber < kept[j].BlockNumber
		}
		return kept[i].Index < kept[j].Index
	})
	return kept, nil
}

func (g *Gateway) lastBlock(ctx context.Context, to *uint64) (uint64, error) {
	if to != nil {
		return *to, nil
	}
	return g.BlockNumber(ctx)
}
