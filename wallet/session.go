package wallet

import (
	"context"
	"errors"
	"fmt"

	"trustchain-tui/contract"

	"github.com/ethereum/go-ethereum/common"
)

// Session is an authenticated connection. The zero value is "not connected".
// Sessions are replaced on reconnect, never modified.
type Session struct {
	address common.Address
	gateway *contract.Gateway
}

// Active reports whether the session holds an account.
func (s Session) Active() bool { return s.gateway != nil }

// Address returns the connected account.
func (s Session) Address() common.Address { return s.address }

// Gateway returns the contract gateway signing as Address, or nil.
func (s Session) Gateway() *contract.Gateway { return s.gateway }

// Request is one connect attempt. Approved is the user's answer to the
// permission prompt.
type Request struct {
	Provider   Provider
	Approved   bool
	Passphrase string
}

// Connect authorizes req.Provider and binds gw to its account. Nothing is
// cached between calls: each connect prompts and unlocks again.
func Connect(ctx context.Context, gw *contract.Gateway, req Request) (Session, error) {
	if req.Provider == nil {
		return Session{}, fmt.Errorf("%w: no wallet configured", contract.ErrProviderMissing)
	}
	if !req.Approved {
		return Session{}, fmt.Errorf("%w: account access denied", contract.ErrUserRejected)
	}
	if gw == nil {
		return Session{}, fmt.Errorf("%w: not connected to a node", contract.ErrConnection)
	}

	chainID, err := gw.ChainID(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: chain id: %v", contract.ErrConnection, err)
	}

	opts, err := req.Provider.Transactor(chainID, req.Passphrase)
	if err != nil {
		err = contract.Classify(err)
		if errors.Is(err, contract.ErrUserRejected) || errors.Is(err, contract.ErrProviderMissing) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("%w: %v", contract.ErrConnection, err)
	}

	return Session{address: opts.From, gateway: gw.WithSigner(opts)}, nil
}
