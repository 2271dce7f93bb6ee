package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"trustchain-tui/helpers"

	"github.com/joho/godotenv"
)

// DefaultContractAddress is the TrustChain deployment the client talks to when
// nothing else is configured.
const DefaultContractAddress = "0x89C65b5d710F00B022C6b10524649127F1C763b3"

// DefaultExplorerTxURL is the block-explorer template for transaction links.
const DefaultExplorerTxURL = "https://sepolia.etherscan.io/tx/%s"

var (
	// ErrInvalidContract is returned by Validate for a malformed contract binding.
	ErrInvalidContract = errors.New("invalid contract configuration")
	// ErrInvalidWallet is returned by Validate for a malformed wallet section.
	ErrInvalidWallet = errors.New("invalid wallet configuration")
)

// Config represents the application configuration
type Config struct {
	RPCURLs   []RPCUrl `json:"rpc_urls"`
	Contract  Contract `json:"contract"`
	Wallet    Wallet   `json:"wallet"`
	CachePath string   `json:"cache_path,omitempty"`
	Logger    bool     `json:"logger"`
}

// RPCUrl represents an RPC endpoint
type RPCUrl struct {
	Name   string `json:"name"`
	URL    string `json:"url"`
	Active bool   `json:"active"`
}

// Contract is the fixed contract binding: address, first block to scan for
// events and the explorer link template.
type Contract struct {
	Address       string `json:"address"`
	StartBlock    uint64 `json:"start_block"`
	LogRange      uint64 `json:"log_range,omitempty"`
	ExplorerTxURL string `json:"explorer_tx_url,omitempty"`
}

// TxURL formats a transaction hash into the block-explorer URL.
func (c Contract) TxURL(txHash string) string {
	tmpl := c.ExplorerTxURL
	if tmpl == "" {
		tmpl = DefaultExplorerTxURL
	}
	return fmt.Sprintf(tmpl, txHash)
}

// Wallet selects the signer. Either a keystore directory plus account, or a raw
// private key which is only ever read from the environment.
type Wallet struct {
	Keystore   string `json:"keystore,omitempty"`
	Account    string `json:"account,omitempty"`
	PrivateKey string `json:"-"`
}

// Save writes the config to the specified path
func Save(path string, cfg Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// DefaultConfig returns a new configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		RPCURLs: []RPCUrl{
			{
				Name:   "Sepolia (publicnode)",
				URL:    "https://ethereum-sepolia-rpc.publicnode.com",
				Active: true,
			},
		},
		Contract: Contract{
			Address:       DefaultContractAddress,
			ExplorerTxURL: DefaultExplorerTxURL,
		},
		Logger: false,
	}
}

// LoadOrCreate loads config from path, or creates a default one if not found
func LoadOrCreate(path string) Config {
	data, err := os.ReadFile(path)
	if err != nil {
		cfg := DefaultConfig()
		_ = Save(path, cfg)
		return cfg
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig()
	}
	if cfg.Contract.Address == "" {
		cfg.Contract.Address = DefaultContractAddress
	}

	return cfg
}

// LoadDotEnv loads .env files from the working directory. Missing files are not
// an error and variables already present in the environment win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

// ApplyEnv overrides config values with TRUSTCHAIN_* / ETH_RPC_URL variables.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if getenv == nil {
		getenv = os.Getenv
	}
	env := func(k string) string { return strings.TrimSpace(getenv(k)) }

	if url := env("ETH_RPC_URL"); url != "" {
		found := false
		for i := range cfg.RPCURLs {
			cfg.RPCURLs[i].Active = cfg.RPCURLs[i].URL == url
			found = found || cfg.RPCURLs[i].Active
		}
		if !found {
			cfg.RPCURLs = append(cfg.RPCURLs, RPCUrl{Name: "ETH_RPC_URL", URL: url, Active: true})
		}
	}
	if v := env("TRUSTCHAIN_CONTRACT"); v != "" {
		cfg.Contract.Address = v
	}
	if v := env("TRUSTCHAIN_START_BLOCK"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Contract.StartBlock = n
		}
	}
	if v := env("TRUSTCHAIN_LOG_RANGE"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Contract.LogRange = n
		}
	}
	if v := env("TRUSTCHAIN_EXPLORER_TX_URL"); v != "" {
		cfg.Contract.ExplorerTxURL = v
	}
	if v := env("TRUSTCHAIN_KEYSTORE"); v != "" {
		cfg.Wallet.Keystore = v
	}
	if v := env("TRUSTCHAIN_ACCOUNT"); v != "" {
		cfg.Wallet.Account = v
	}
	if v := env("TRUSTCHAIN_PRIVATE_KEY"); v != "" {
		cfg.Wallet.PrivateKey = v
	}
	if v := env("TRUSTCHAIN_CACHE"); v != "" {
		cfg.CachePath = v
	}
	return cfg
}

// ActiveRPC returns the URL of the active RPC endpoint, or "" if none is set.
func (c Config) ActiveRPC() string {
	for _, r := range c.RPCURLs {
		if r.Active {
			return r.URL
		}
	}
	return ""
}

// ActiveRPCName returns the display name of the active RPC endpoint.
func (c Config) ActiveRPCName() string {
	for _, r := range c.RPCURLs {
		if r.Active {
			return r.Name
		}
	}
	return ""
}

// Validate checks the contract binding and wallet section. It is called at
// startup so a bad address stops the program before the first contract call.
func (c Config) Validate() error {
	if !helpers.IsValidEthAddress(c.Contract.Address) {
		return fmt.Errorf("%w: contract address %q must be 0x followed by 40 hex characters", ErrInvalidContract, c.Contract.Address)
	}
	if c.Contract.ExplorerTxURL != "" && strings.Count(c.Contract.ExplorerTxURL, "%s") != 1 {
		return fmt.Errorf("%w: explorer_tx_url must contain exactly one %%s", ErrInvalidContract)
	}
	if c.Wallet.Keystore != "" && c.Wallet.Account != "" && !helpers.IsValidEthAddress(c.Wallet.Account) {
		return fmt.Errorf("%w: account %q is not an address", ErrInvalidWallet, c.Wallet.Account)
	}
	return nil
}
