// Package contracttest provides an in-memory node that runs a simulation of
// the TrustChain contract. It satisfies contract.Backend so gateways, wallet
// sessions and views can be exercised without a real chain.
package contracttest

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"trustchain-tui/contract"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ContractAddress is where the simulated TrustChain contract lives.
const ContractAddress = "0x89C65b5d710F00B022C6b10524649127F1C763b3"

// SepoliaChainID is the chain id reported by default.
var SepoliaChainID = big.NewInt(11155111)

// revertSelector is the 4-byte selector of Error(string).
var revertSelector = crypto.Keccak256([]byte("Error(string)"))[:4]

// Backend is a single-contract in-memory chain. Every accepted transaction is
// mined immediately into its own block.
type Backend struct {
	mu       sync.Mutex
	chainID  *big.Int
	contract common.Address
	abi      abi.ABI
	signer   types.Signer
	genesis  time.Time

	head     uint64
	users    map[common.Address]contract.UserProfile
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	logs     []types.Log
	receipts map[common.Hash]*types.Receipt
	sent     []*types.Transaction
	calls    int

	// Err, when set, is returned by every node call.
	Err error
	// RevertOnChain mines accepted transactions with a failed status.
	RevertOnChain bool
	// HoldReceipts makes TransactionReceipt report NotFound, as if nothing
	// had been mined yet.
	HoldReceipts bool
	// MaxLogRange, when set, makes FilterLogs reject queries spanning more
	// blocks, like public endpoints do.
	MaxLogRange uint64
	filterCalls int
}

// NewBackend returns an empty chain at block 1 hosting the contract.
func NewBackend() *Backend {
	parsed, err := contract.ParseABI()
	if err != nil {
		panic(err)
	}
	return &Backend{
		chainID:  new(big.Int).Set(SepoliaChainID),
		contract: common.HexToAddress(ContractAddress),
		abi:      parsed,
		signer:   types.LatestSignerForChainID(SepoliaChainID),
		genesis:  time.Unix(1_700_000_000, 0),
		head:     1,
		users:    make(map[common.Address]contract.UserProfile),
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		receipts: make(map[common.Hash]*types.Receipt),
	}
}

// NewAccount generates a key and funds its address with balance wei.
func (b *Backend) NewAccount(balance *big.Int) (*ecdsa.PrivateKey, common.Address) {
	key, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}
	addr := crypto.PubkeyToAddress(key.PublicKey)
	b.SetBalance(addr, balance)
	return key, addr
}

// Transactor returns signing options for key on this chain.
func (b *Backend) Transactor(key *ecdsa.PrivateKey) *bind.TransactOpts {
	opts, err := bind.NewKeyedTransactorWithChainID(key, b.chainID)
	if err != nil {
		panic(err)
	}
	return opts
}

// SetBalance sets the native balance of addr.
func (b *Backend) SetBalance(addr common.Address, wei *big.Int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[addr] = new(big.Int).Set(wei)
}

// SetUser registers name for addr without a transaction, emitting UserRegistered.
func (b *Backend) SetUser(addr common.Address, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.users[addr] = contract.UserProfile{Name: name, IsRegistered: true}
	b.head++
	b.emit(contract.EventUserRegistered, randomHash(), []common.Hash{addrTopic(addr)}, name)
}

// EmitDonation appends a mined DonationMade event without a transaction and
// returns its transaction hash.
func (b *Backend) EmitDonation(donor, receiver common.Address, wei *big.Int, donorName string) common.Hash {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head++
	hash := randomHash()
	b.emit(contract.EventDonationMade, hash, []common.Hash{addrTopic(donor), addrTopic(receiver)},
		wei, donorName, big.NewInt(b.blockTime(b.head).Unix()))
	return hash
}

// Sent returns the transactions accepted so far.
func (b *Backend) Sent() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.sent...)
}

// FilterCalls returns how many eth_getLogs queries the backend has served.
func (b *Backend) FilterCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.filterCalls
}

// Calls returns how many node calls the backend has served.
func (b *Backend) Calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls
}

// Head returns the latest block number.
func (b *Backend) Head() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.head
}

// Release stops withholding receipts.
func (b *Backend) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.HoldReceipts = false
}

func (b *Backend) enter() error {
	b.calls++
	return b.Err
}

func (b *Backend) blockTime(n uint64) time.Time {
	return b.genesis.Add(time.Duration(n) * 12 * time.Second)
}

// emit appends a log for event at the current head. Callers hold b.mu.
func (b *Backend) emit(event string, txHash common.Hash, indexed []common.Hash, data ...any) types.Log {
	ev := b.abi.Events[event]
	packed, err := ev.Inputs.NonIndexed().Pack(data...)
	if err != nil {
		panic(fmt.Sprintf("pack %s: %v", event, err))
	}
	l := types.Log{
		Address:     b.contract,
		Topics:      append([]common.Hash{ev.ID}, indexed...),
		Data:        packed,
		BlockNumber: b.head,
		TxHash:      txHash,
		BlockHash:   common.BigToHash(new(big.Int).SetUint64(b.head)),
		Index:       uint(len(b.logs)),
	}
	b.logs = append(b.logs, l)
	return l
}

// CodeAt implements bind.ContractCaller.
func (b *Backend) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return b.PendingCodeAt(ctx, account)
}

// PendingCodeAt implements bind.ContractTransactor.
func (b *Backend) PendingCodeAt(_ context.Context, account common.Address) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	if account == b.contract {
		return []byte{0x60, 0x80}, nil
	}
	return nil, nil
}

// CallContract implements bind.ContractCaller. Only getUser is readable.
func (b *Backend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	if call.To == nil || *call.To != b.contract || len(call.Data) < 4 {
		return nil, nil
	}
	method, args, err := b.decode(call.Data)
	if err != nil {
		return nil, err
	}
	if method.Name != contract.MethodGetUser {
		return nil, nil
	}
	u := b.users[args[0].(common.Address)]
	return method.Outputs.Pack(u.Name, u.IsRegistered)
}

// HeaderByNumber implements bind.ContractTransactor.
func (b *Backend) HeaderByNumber(_ context.Context, _ *big.Int) (*types.Header, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return &types.Header{
		Number:  new(big.Int).SetUint64(b.head),
		Time:    uint64(b.blockTime(b.head).Unix()),
		BaseFee: big.NewInt(1_000_000_000),
	}, nil
}

// PendingNonceAt implements bind.ContractTransactor.
func (b *Backend) PendingNonceAt(_ context.Context, account common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return 0, err
	}
	return b.nonces[account], nil
}

// SuggestGasPrice implements ethereum.GasPricer.
func (b *Backend) SuggestGasPrice(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return big.NewInt(1_000_000_000), nil
}

// SuggestGasTipCap implements ethereum.GasPricer1559.
func (b *Backend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return big.NewInt(1_000_000_000), nil
}

// EstimateGas implements ethereum.GasEstimator and reports contract reverts the
// way a JSON-RPC node does.
func (b *Backend) EstimateGas(_ context.Context, call ethereum.CallMsg) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return 0, err
	}
	if call.Value != nil && call.Value.Cmp(b.balanceOf(call.From)) > 0 {
		return 0, errors.New("insufficient funds for gas * price + value")
	}
	if call.To == nil || *call.To != b.contract {
		return 21_000, nil
	}
	if reason := b.check(call.From, call.Value, call.Data); reason != "" {
		return 0, newRevertError(reason)
	}
	return 120_000, nil
}

// SendTransaction implements ethereum.TransactionSender. The transaction is
// mined immediately.
func (b *Backend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return err
	}
	from, err := types.Sender(b.signer, tx)
	if err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if tx.Nonce() != b.nonces[from] {
		return fmt.Errorf("nonce too low: have %d, want %d", tx.Nonce(), b.nonces[from])
	}
	b.nonces[from]++
	b.sent = append(b.sent, tx)
	b.head++

	receipt := &types.Receipt{
		Type:        tx.Type(),
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: new(big.Int).SetUint64(b.head),
		GasUsed:     tx.Gas(),
	}
	b.receipts[tx.Hash()] = receipt

	if tx.To() == nil || *tx.To() != b.contract {
		b.transfer(from, *tx.To(), tx.Value())
		return nil
	}
	if b.RevertOnChain || b.check(from, tx.Value(), tx.Data()) != "" {
		receipt.Status = types.ReceiptStatusFailed
		return nil
	}

	method, args, _ := b.decode(tx.Data())
	switch method.Name {
	case contract.MethodRegisterUser:
		name := args[0].(string)
		b.users[from] = contract.UserProfile{Name: name, IsRegistered: true}
		receipt.Logs = append(receipt.Logs, ptr(b.emit(contract.EventUserRegistered, tx.Hash(), []common.Hash{addrTopic(from)}, name)))
	case contract.MethodDonate:
		to := args[0].(common.Address)
		b.transfer(from, to, tx.Value())
		donorName := "Anonymous"
		if u, ok := b.users[from]; ok && u.IsRegistered {
			donorName = u.Name
		}
		receipt.Logs = append(receipt.Logs, ptr(b.emit(contract.EventDonationMade, tx.Hash(),
			[]common.Hash{addrTopic(from), addrTopic(to)},
			new(big.Int).Set(tx.Value()), donorName, big.NewInt(b.blockTime(b.head).Unix()))))
	}
	return nil
}

// TransactionReceipt implements bind.DeployBackend.
func (b *Backend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	r, ok := b.receipts[hash]
	if !ok || b.HoldReceipts {
		return nil, ethereum.NotFound
	}
	return r, nil
}

// FilterLogs implements ethereum.LogFilterer.
func (b *Backend) FilterLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}

	from, to := uint64(0), b.head
	if q.FromBlock != nil {
		from = q.FromBlock.Uint64()
	}
	if q.ToBlock != nil {
		to = q.ToBlock.Uint64()
	}
	b.filterCalls++
	if b.MaxLogRange > 0 && to >= from && to-from+1 > b.MaxLogRange {
		return nil, fmt.Errorf("exceed maximum block range: %d", b.MaxLogRange)
	}

	var out []types.Log
	for _, l := range b.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if len(q.Addresses) > 0 && !containsAddr(q.Addresses, l.Address) {
			continue
		}
		if !matchTopics(q.Topics, l.Topics) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// SubscribeFilterLogs implements ethereum.LogFilterer. Subscriptions are not
// simulated.
func (b *Backend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("contracttest: subscriptions not supported")
}

// BalanceAt returns the simulated native balance.
func (b *Backend) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(b.balanceOf(account)), nil
}

// BlockNumber returns the latest block number.
func (b *Backend) BlockNumber(context.Context) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return 0, err
	}
	return b.head, nil
}

// ChainID returns the simulated chain id.
func (b *Backend) ChainID(context.Context) (*big.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.enter(); err != nil {
		return nil, err
	}
	return new(big.Int).Set(b.chainID), nil
}

// check returns the revert reason a call would produce, or "".
func (b *Backend) check(from common.Address, value *big.Int, data []byte) string {
	method, args, err := b.decode(data)
	if err != nil {
		return "unknown function"
	}
	paid := value != nil && value.Sign() > 0
	switch method.Name {
	case contract.MethodRegisterUser:
		if paid {
			return "registerUser is not payable"
		}
		if args[0].(string) == "" {
			return "Name cannot be empty"
		}
	case contract.MethodDonate:
		if !paid {
			return "Donation amount must be greater than 0"
		}
		if args[0].(common.Address) == (common.Address{}) {
			return "Invalid receiver address"
		}
	}
	return ""
}

func (b *Backend) decode(data []byte) (*abi.Method, []any, error) {
	if len(data) < 4 {
		return nil, nil, errors.New("missing selector")
	}
	method, err := b.abi.MethodById(data[:4])
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, nil, err
	}
	return method, args, nil
}

func (b *Backend) balanceOf(addr common.Address) *big.Int {
	if bal, ok := b.balances[addr]; ok {
		return bal
	}
	return new(big.Int)
}

func (b *Backend) transfer(from, to common.Address, wei *big.Int) {
	if wei == nil || wei.Sign() == 0 {
		return
	}
	b.balances[from] = new(big.Int).Sub(b.balanceOf(from), wei)
	b.balances[to] = new(big.Int).Add(b.balanceOf(to), wei)
}

// revertError mimics the JSON-RPC error a node returns for a reverted call.
type revertError struct {
	reason string
	data   string
}

func newRevertError(reason string) *revertError {
	strType, _ := abi.NewType("string", "", nil)
	packed, err := abi.Arguments{{Type: strType}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return &revertError{reason: reason, data: hexutil.Encode(append(append([]byte{}, revertSelector...), packed...))}
}

func (e *revertError) Error() string          { return "execution reverted: " + e.reason }
func (e *revertError) ErrorCode() int         { return 3 }
func (e *revertError) ErrorData() interface{} { return e.data }

func addrTopic(a common.Address) common.Hash { return common.BytesToHash(a.Bytes()) }

func containsAddr(list []common.Address, a common.Address) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

func matchTopics(want [][]common.Hash, have []common.Hash) bool {
	for i, alternatives := range want {
		if len(alternatives) == 0 {
			continue
		}
		if i >= len(have) {
			return false
		}
		found := false
		for _, h := range alternatives {
			if h == have[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

var hashCounter atomic.Uint64

func randomHash() common.Hash {
	return crypto.Keccak256Hash([]byte(fmt.Sprintf("contracttest-%d", hashCounter.Add(1))))
}

func ptr[T any](v T) *T { return &v }
