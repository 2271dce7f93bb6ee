package contract

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// UserProfile is the typed projection of getUser(address).
type UserProfile struct {
	Name         string
	IsRegistered bool
}

// DonationEvent is a decoded DonationMade log.
type DonationEvent struct {
	Donor       common.Address
	Receiver    common.Address
	Amount      *big.Int // wei
	DonorName   string
	Timestamp   time.Time
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// Registration is a decoded UserRegistered log.
type Registration struct {
	User        common.Address
	Name        string
	TxHash      common.Hash
	BlockNumber uint64
	LogIndex    uint
}

// donationMadeLog and userRegisteredLog mirror the raw event arguments for
// BoundContract.UnpackLog; field names follow the ABI argument names.
type donationMadeLog struct {
	Donor     common.Address
	Receiver  common.Address
	Amount    *big.Int
	DonorName string
	Timestamp *big.Int
}

type userRegisteredLog struct {
	UserWallet common.Address
	Name       string
}
