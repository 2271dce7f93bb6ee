package rpc

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"trustchain-tui/contract"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Client wraps an Ethereum RPC client
type Client struct {
	*ethclient.Client
	URL   string
	Chain *big.Int // id reported at connect time
}

var _ contract.Backend = (*Client)(nil)

// ConnectResult holds the result of an RPC connection attempt
type ConnectResult struct {
	Client *Client
	Error  error
}

// Connect attempts to connect to an Ethereum RPC endpoint
func Connect(url string) ConnectResult {
	return ConnectWithTimeout(url, 8*time.Second)
}

// ConnectWithTimeout dials url and asks for the chain id, so a result without
// error means the node actually answered.
func ConnectWithTimeout(url string, timeout time.Duration) ConnectResult {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return ConnectResult{Error: fmt.Errorf("%w: dial %s: %w", contract.ErrConnection, url, err)}
	}

	id, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return ConnectResult{Error: fmt.Errorf("%w: chain id from %s: %w", contract.ErrConnection, url, err)}
	}

	return ConnectResult{
		Client: &Client{
			Client: client,
			URL:    url,
			Chain:  id,
		},
	}
}

// Network returns a display name for the connected chain.
func (c *Client) Network() string {
	if c == nil || c.Chain == nil {
		return "offline"
	}
	return ChainName(c.Chain)
}

// ChainName names well-known chain ids.
func ChainName(id *big.Int) string {
	if id == nil {
		return "unknown"
	}
	switch id.Uint64() {
	case 1:
		return "mainnet"
	case 11155111:
		return "sepolia"
	case 17000:
		return "holesky"
	case 31337:
		return "localhost"
	default:
		return "chain " + id.String()
	}
}

// BalanceReader is the part of a node needed to read balances.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// AccountBalance is the native balance of an account at a point in time.
type AccountBalance struct {
	Address    common.Address
	Wei        *big.Int
	LoadedAt   time.Time
	ErrMessage string
}

// LoadBalance fetches the balance of addr.
func LoadBalance(node BalanceReader, addr common.Address) AccountBalance {
	return LoadBalanceWithTimeout(node, addr, 12*time.Second)
}

// LoadBalanceWithTimeout fetches the balance of addr with a custom timeout.
// Failures are reported in ErrMessage; the balance then reads as zero.
func LoadBalanceWithTimeout(node BalanceReader, addr common.Address, timeout time.Duration) AccountBalance {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	b := AccountBalance{
		Address:  addr,
		Wei:      big.NewInt(0),
		LoadedAt: time.Now(),
	}

	if node == nil {
		b.ErrMessage = "No RPC client (set ETH_RPC_URL)."
		return b
	}
	if c, ok := node.(*Client); ok && (c == nil || c.Client == nil) {
		b.ErrMessage = "No RPC client (set ETH_RPC_URL)."
		return b
	}

	wei, err := node.BalanceAt(ctx, addr, nil)
	if err != nil {
		b.ErrMessage = "Failed to load ETH balance."
		return b
	}
	b.Wei = wei
	return b
}
