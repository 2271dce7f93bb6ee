// Package wallet turns a configured signing key into an authenticated
// Session bound to the TrustChain contract.
package wallet

import (
	"fmt"
	"math/big"
	"strings"

	"trustchain-tui/config"
	"trustchain-tui/contract"
	"trustchain-tui/helpers"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Provider is a source of signatures for one account.
type Provider interface {
	// Name is shown in the connect dialog.
	Name() string
	Account() common.Address
	// NeedsPassphrase reports whether Transactor expects a passphrase.
	NeedsPassphrase() bool
	// Transactor authorizes the account and returns signing options for chainID.
	Transactor(chainID *big.Int, passphrase string) (*bind.TransactOpts, error)
}

// KeyProvider signs with a raw secp256k1 key.
type KeyProvider struct {
	hexKey  string
	account common.Address
}

// NewKeyProvider parses a hex private key, with or without the 0x prefix.
func NewKeyProvider(hexKey string) (*KeyProvider, error) {
	hexKey = strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", contract.ErrProviderMissing, err)
	}
	return &KeyProvider{hexKey: hexKey, account: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (p *KeyProvider) Name() string            { return "private key" }
func (p *KeyProvider) Account() common.Address { return p.account }
func (p *KeyProvider) NeedsPassphrase() bool   { return false }

func (p *KeyProvider) Transactor(chainID *big.Int, _ string) (*bind.TransactOpts, error) {
	key, err := crypto.HexToECDSA(p.hexKey)
	if err != nil {
		return nil, fmt.Errorf("%w: private key: %w", contract.ErrProviderMissing, err)
	}
	return bind.NewKeyedTransactorWithChainID(key, chainID)
}

// KeystoreProvider signs with an encrypted account from a keystore directory.
// The passphrase is checked on every Transactor call and never cached in the
// keystore.
type KeystoreProvider struct {
	ks      *keystore.KeyStore
	account accounts.Account
}

// NewKeystoreProvider opens dir and looks up account in it.
func NewKeystoreProvider(dir, account string) (*KeystoreProvider, error) {
	if !helpers.IsValidEthAddress(account) {
		return nil, fmt.Errorf("%w: keystore account %q is not an address", contract.ErrProviderMissing, account)
	}
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	acc, err := ks.Find(accounts.Account{Address: common.HexToAddress(account)})
	if err != nil {
		return nil, fmt.Errorf("%w: %s in %s: %w", contract.ErrProviderMissing, account, dir, err)
	}
	return &KeystoreProvider{ks: ks, account: acc}, nil
}

func (p *KeystoreProvider) Name() string            { return "keystore" }
func (p *KeystoreProvider) Account() common.Address { return p.account.Address }
func (p *KeystoreProvider) NeedsPassphrase() bool   { return true }

func (p *KeystoreProvider) Transactor(chainID *big.Int, passphrase string) (*bind.TransactOpts, error) {
	if err := p.ks.Unlock(p.account, passphrase); err != nil {
		return nil, err
	}
	if err := p.ks.Lock(p.account.Address); err != nil {
		return nil, err
	}

	return &bind.TransactOpts{
		From: p.account.Address,
		Signer: func(addr common.Address, tx *types.Transaction) (*types.Transaction, error) {
			if addr != p.account.Address {
				return nil, bind.ErrNotAuthorized
			}
			return p.ks.SignTxWithPassphrase(p.account, passphrase, tx, chainID)
		},
	}, nil
}

// FromConfig picks a provider from the wallet section. A private key wins over
// a keystore.
func FromConfig(w config.Wallet) (Provider, error) {
	switch {
	case w.PrivateKey != "":
		p, err := NewKeyProvider(w.PrivateKey)
		if err != nil {
			return nil, err
		}
		return p, nil
	case w.Keystore != "" && w.Account != "":
		p, err := NewKeystoreProvider(w.Keystore, w.Account)
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: set TRUSTCHAIN_PRIVATE_KEY or a keystore account", contract.ErrProviderMissing)
	}
}
