package core

import (
	"errors"
	"fmt"
)

// Failure classes shared by the token ledger and regional governance.
// Operation-specific errors wrap one of these, so callers branch with errors.Is.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrFeeNotPaid        = errors.New("fee not paid")
	ErrJoinDelayActive   = errors.New("join delay active")
	ErrNotAuthorized     = errors.New("not authorized")
	ErrFounderProtected  = errors.New("founder protected")
	ErrOverflow          = errors.New("arithmetic overflow")
)

var (
	ErrAlreadyMember       = fmt.Errorf("%w: account is already a member", ErrAlreadyExists)
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrInvalidInput)
	ErrSelfTransfer        = fmt.Errorf("%w: cannot transfer to self", ErrInvalidInput)
	ErrMemoTooLong         = fmt.Errorf("%w: memo has more than %d bytes", ErrInvalidInput, MaxMemoBytes)
	ErrFounderCannotLeave  = fmt.Errorf("%w: founder cannot leave", ErrFounderProtected)
	ErrCannotRemoveFounder = fmt.Errorf("%w: founder cannot be removed", ErrFounderProtected)
)

// MaxMemoBytes bounds transfer, issue and retire memos.
const MaxMemoBytes = 256

// Kind returns the failure class err belongs to, or nil if it is not one of ours.
func Kind(err error) error {
	for _, kind := range []error{
		ErrInvalidInput,
		ErrNotFound,
		ErrAlreadyExists,
		ErrInsufficientFunds,
		ErrRateLimitExceeded,
		ErrFeeNotPaid,
		ErrJoinDelayActive,
		ErrNotAuthorized,
		ErrFounderProtected,
		ErrOverflow,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
