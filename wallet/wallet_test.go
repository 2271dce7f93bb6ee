package wallet_test

import (
	"context"
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"trustchain-tui/config"
	"trustchain-tui/contract"
	"trustchain-tui/contract/contracttest"
	"trustchain-tui/wallet"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
)

func gateway(t *testing.T, b *contracttest.Backend) *contract.Gateway {
	t.Helper()
	gw, err := contract.New(contracttest.ContractAddress, b)
	if err != nil {
		t.Fatal(err)
	}
	return gw
}

func keyProvider(t *testing.T, b *contracttest.Backend) *wallet.KeyProvider {
	t.Helper()
	key, _ := b.NewAccount(big.NewInt(params.Ether))
	p, err := wallet.NewKeyProvider("0x" + hex.EncodeToString(crypto.FromECDSA(key)))
	if err != nil {
		t.Fatalf("NewKeyProvider: %v", err)
	}
	return p
}

func TestZeroSessionIsAbsent(t *testing.T) {
	var s wallet.Session
	if s.Active() || s.Gateway() != nil {
		t.Error("zero Session should be inactive")
	}
}

func TestConnectWithoutProvider(t *testing.T) {
	b := contracttest.NewBackend()
	s, err := wallet.Connect(context.Background(), gateway(t, b), wallet.Request{Approved: true})
	if !errors.Is(err, contract.ErrProviderMissing) {
		t.Fatalf("Connect error = %v, want ErrProviderMissing", err)
	}
	if s.Active() {
		t.Error("session set after failed connect")
	}
}

func TestConnectRejected(t *testing.T) {
	b := contracttest.NewBackend()
	s, err := wallet.Connect(context.Background(), gateway(t, b), wallet.Request{Provider: keyProvider(t, b)})
	if !errors.Is(err, contract.ErrUserRejected) {
		t.Fatalf("Connect error = %v, want ErrUserRejected", err)
	}
	if s.Active() {
		t.Error("session set after rejection")
	}
}

func TestConnectNodeDown(t *testing.T) {
	b := contracttest.NewBackend()
	p := keyProvider(t, b)
	b.Err = errors.New("dial tcp: connection refused")

	_, err := wallet.Connect(context.Background(), gateway(t, b), wallet.Request{Provider: p, Approved: true})
	if !errors.Is(err, contract.ErrConnection) {
		t.Fatalf("Connect error = %v, want ErrConnection", err)
	}
}

func TestConnectBindsSigner(t *testing.T) {
	b := contracttest.NewBackend()
	p := keyProvider(t, b)
	gw := gateway(t, b)

	s, err := wallet.Connect(context.Background(), gw, wallet.Request{Provider: p, Approved: true})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.Active() || s.Address() != p.Account() {
		t.Fatalf("session = %v/%s, want %s", s.Active(), s.Address().Hex(), p.Account().Hex())
	}
	if signer, ok := s.Gateway().Signer(); !ok || signer != p.Account() {
		t.Errorf("gateway signer = %s, %v", signer.Hex(), ok)
	}
	if _, ok := gw.Signer(); ok {
		t.Error("Connect modified the read-only gateway")
	}

	// writes go out under the session account
	if _, err := s.Gateway().RegisterUser(context.Background(), "Alice"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	u, err := gw.GetUser(context.Background(), p.Account())
	if err != nil || !u.IsRegistered || u.Name != "Alice" {
		t.Errorf("GetUser = %+v, %v", u, err)
	}
}

func TestConnectIsRepeatable(t *testing.T) {
	b := contracttest.NewBackend()
	p := keyProvider(t, b)
	gw := gateway(t, b)
	req := wallet.Request{Provider: p, Approved: true}

	s1, err := wallet.Connect(context.Background(), gw, req)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := wallet.Connect(context.Background(), gw, req)
	if err != nil {
		t.Fatal(err)
	}
	if s1.Address() != s2.Address() {
		t.Errorf("addresses differ: %s vs %s", s1.Address().Hex(), s2.Address().Hex())
	}
}

func TestKeystoreProvider(t *testing.T) {
	dir := t.TempDir()
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	acc, err := ks.NewAccount("correct horse")
	if err != nil {
		t.Fatal(err)
	}

	p, err := wallet.NewKeystoreProvider(dir, acc.Address.Hex())
	if err != nil {
		t.Fatalf("NewKeystoreProvider: %v", err)
	}
	if !p.NeedsPassphrase() || p.Account() != acc.Address {
		t.Fatalf("provider = %s, needs passphrase %v", p.Account().Hex(), p.NeedsPassphrase())
	}

	b := contracttest.NewBackend()
	b.SetBalance(acc.Address, big.NewInt(params.Ether))
	gw := gateway(t, b)

	_, err = wallet.Connect(context.Background(), gw, wallet.Request{Provider: p, Approved: true, Passphrase: "wrong"})
	if !errors.Is(err, contract.ErrUserRejected) {
		t.Fatalf("wrong passphrase error = %v, want ErrUserRejected", err)
	}

	s, err := wallet.Connect(context.Background(), gw, wallet.Request{Provider: p, Approved: true, Passphrase: "correct horse"})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if _, err := s.Gateway().Donate(context.Background(), "0x00000000000000000000000000000000000000bb", "0.1"); err != nil {
		t.Fatalf("Donate: %v", err)
	}
	if len(b.Sent()) != 1 {
		t.Errorf("sent %d transactions, want 1", len(b.Sent()))
	}
}

func TestFromConfig(t *testing.T) {
	if _, err := wallet.FromConfig(config.Wallet{}); !errors.Is(err, contract.ErrProviderMissing) {
		t.Errorf("empty wallet error = %v, want ErrProviderMissing", err)
	}
	if _, err := wallet.FromConfig(config.Wallet{PrivateKey: "nothex"}); !errors.Is(err, contract.ErrProviderMissing) {
		t.Errorf("bad key error = %v, want ErrProviderMissing", err)
	}

	key, _ := crypto.GenerateKey()
	p, err := wallet.FromConfig(config.Wallet{PrivateKey: hex.EncodeToString(crypto.FromECDSA(key))})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if p.Account() != crypto.PubkeyToAddress(key.PublicKey) || p.NeedsPassphrase() {
		t.Errorf("provider = %s (%s)", p.Account().Hex(), p.Name())
	}
}
