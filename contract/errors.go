package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
)

// Error taxonomy surfaced to views. Every error returned by the gateway and the
// wallet connector matches exactly one of these with errors.Is, except context
// cancellation which is passed through unchanged.
var (
	ErrProviderMissing = errors.New("no wallet provider configured")
	ErrUserRejected    = errors.New("request rejected by user")
	ErrConnection      = errors.New("wallet connection failed")
	ErrContractRevert  = errors.New("contract reverted")
	ErrNetwork         = errors.New("network error")
	ErrInputValidation = errors.New("invalid input")
)

// RevertError carries the revert reason reported by the contract.
type RevertError struct {
	Reason string
	Cause  error
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return ErrContractRevert.Error()
	}
	return ErrContractRevert.Error() + ": " + e.Reason
}

// Is makes errors.Is(err, ErrContractRevert) hold for any RevertError.
func (e *RevertError) Is(target error) bool { return target == ErrContractRevert }

func (e *RevertError) Unwrap() error { return e.Cause }

// Reason returns the revert reason of err, or "" if err is not a revert.
func Reason(err error) string {
	var re *RevertError
	if errors.As(err, &re) {
		return re.Reason
	}
	return ""
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInputValidation, fmt.Sprintf(format, args...))
}

// Classify maps an error from go-ethereum into the taxonomy. Errors that are
// already classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{ErrProviderMissing, ErrUserRejected, ErrConnection, ErrContractRevert, ErrNetwork, ErrInputValidation} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, keystore.ErrLocked) || errors.Is(err, keystore.ErrDecrypt) {
		return fmt.Errorf("%w: %w", ErrUserRejected, err)
	}

	var de rpc.DataError
	if errors.As(err, &de) {
		if reason, ok := revertReason(de.ErrorData()); ok {
			return &RevertError{Reason: reason, Cause: err}
		}
	}

	msg := err.Error()
	if i := strings.Index(strings.ToLower(msg), "execution reverted"); i >= 0 {
		reason := strings.TrimSpace(strings.TrimPrefix(msg[i+len("execution reverted"):], ":"))
		return &RevertError{Reason: reason, Cause: err}
	}
	return fmt.Errorf("%w: %w", ErrNetwork, err)
}

func revertReason(data any) (string, bool) {
	s, ok := data.(string)
	if !ok {
		return "", false
	}
	raw, err := hexutil.Decode(s)
	if err != nil {
		return "", false
	}
	reason, err := abi.UnpackRevert(raw)
	if err != nil {
		return "", false
	}
	return reason, true
}
