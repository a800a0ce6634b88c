package domain

import (
	"errors"
	"fmt"
)

// Partnership error taxonomy. Services wrap these with detail via fmt.Errorf("%w: ...")
// so handlers can map them with errors.Is.
var (
	ErrInsufficientCredits = errors.New("Insufficient credits")
	ErrSlotsFull           = fmt.Errorf("%w: all credits are reserved by pending candidatures", ErrInsufficientCredits)
	ErrWindowClosed        = errors.New("Listing is not accepting applications")
	ErrInvalidState        = errors.New("Invalid state")
	ErrUnauthorized        = errors.New("Unauthorized")
	ErrInvariantViolation  = errors.New("Ledger invariant violation")
	ErrStaleThread         = errors.New("Negotiation thread changed, reload and retry")
	ErrMissingReason       = errors.New("A reason is required to contest a payment request")
	ErrInvalidAmount       = errors.New("Amount must be a positive number of cents")
	ErrNotFound            = errors.New("Not found")
	ErrInvalidInput        = errors.New("Invalid input")
)
