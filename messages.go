package main

import (
	"trustchain-tui/contract"
	"trustchain-tui/feed"
	"trustchain-tui/rpc"
	"trustchain-tui/wallet"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
)

// -------------------- TEA MESSAGES --------------------
// All custom message types for The Elm Architecture

// logInitMsg signals that log viewport should be initialized
type logInitMsg struct{}

// rpcConnectedMsg contains result of RPC connection attempt
type rpcConnectedMsg struct {
	client *rpc.Client
	err    error
}

// walletConnectedMsg is the outcome of a connect request
type walletConnectedMsg struct {
	session wallet.Session
	err     error
}

// profileLoadedMsg contains getUser for addr
type profileLoadedMsg struct {
	addr    common.Address
	profile contract.UserProfile
	err     error
}

// balanceLoadedMsg contains a native balance read
type balanceLoadedMsg struct {
	b rpc.AccountBalance
}

// feedLoadedMsg contains the synced event history
type feedLoadedMsg struct {
	snap feed.Snapshot
	err  error
}

// txSubmittedMsg reports that the signed transaction of task id was sent
type txSubmittedMsg struct {
	id  uuid.UUID
	tx  *types.Transaction
	err error
}

// txConfirmedMsg reports the receipt of task id
type txConfirmedMsg struct {
	id      uuid.UUID
	receipt *types.Receipt
	err     error
}

// clipboardCopiedMsg indicates clipboard copy completed
type clipboardCopiedMsg struct {
	what string
}

// clearNoticeMsg clears transient copy feedback
type clearNoticeMsg struct{}
