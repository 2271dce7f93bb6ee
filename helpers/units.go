package helpers

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// etherDecimals is the number of fractional digits in one ether (1 ether = 1e18 wei).
const etherDecimals = 18

// ErrInvalidAmount is returned when a decimal ether string cannot be converted to wei.
var ErrInvalidAmount = errors.New("invalid amount")

// ParseEther converts a decimal ether string ("0.5", "12", ".25") into wei.
// It never truncates: empty, signed, non-numeric input and more than 18
// fractional digits are rejected.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: amount is required", ErrInvalidAmount)
	}
	if strings.HasPrefix(s, "-") {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrInvalidAmount)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	if len(frac) > etherDecimals {
		return nil, fmt.Errorf("%w: at most %d decimal places", ErrInvalidAmount, etherDecimals)
	}

	digits := strings.TrimLeft(whole+frac+strings.Repeat("0", etherDecimals-len(frac)), "0")
	if digits == "" {
		return new(big.Int), nil
	}
	wei, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return wei, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FormatEther renders wei as an exact decimal ether string with trailing zeros
// trimmed, keeping at least one fractional digit ("1.0", "0.5").
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0.0"
	}
	sign := ""
	v := new(big.Int).Set(wei)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	q, r := new(big.Int).QuoRem(v, big.NewInt(params.Ether), new(big.Int))
	frac := fmt.Sprintf("%018s", r.String())
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		frac = "0"
	}
	return sign + q.String() + "." + frac
}

// FormatEtherFixed renders wei with a fixed number of decimals, e.g. wallet balances.
func FormatEtherFixed(wei *big.Int, decimals int) string {
	if wei == nil {
		wei = new(big.Int)
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.Ether))
	return eth.Text('f', decimals)
}

// FormatETH formats Wei to ETH with proper decimals
func FormatETH(wei *big.Int) string {
	if wei == nil {
		return "0 ETH"
	}
	return FormatEtherFixed(wei, 6) + " ETH"
}
