package contract

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TrustChainABI is the interface of the deployed TrustChain contract.
const TrustChainABI = `[
  {"type":"function","name":"registerUser","stateMutability":"nonpayable",
   "inputs":[{"name":"_name","type":"string"}],"outputs":[]},
  {"type":"function","name":"donate","stateMutability":"payable",
   "inputs":[{"name":"_receiver","type":"address"}],"outputs":[]},
  {"type":"function","name":"getUser","stateMutability":"view",
   "inputs":[{"name":"_user","type":"address"}],
   "outputs":[{"name":"","type":"string"},{"name":"","type":"bool"}]},
  {"type":"event","name":"DonationMade","anonymous":false,
   "inputs":[{"name":"donor","type":"address","indexed":true},
             {"name":"receiver","type":"address","indexed":true},
             {"name":"amount","type":"uint256","indexed":false},
             {"name":"donorName","type":"string","indexed":false},
             {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"UserRegistered","anonymous":false,
   "inputs":[{"name":"userWallet","type":"address","indexed":true},
             {"name":"name","type":"string","indexed":false}]}
]`

// Method and event names used by the gateway.
const (
	MethodRegisterUser = "registerUser"
	MethodDonate       = "donate"
	MethodGetUser      = "getUser"

	EventDonationMade   = "DonationMade"
	EventUserRegistered = "UserRegistered"
)

// ParseABI parses TrustChainABI.
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(TrustChainABI))
}
