package ledger

import "errors"

// Error taxonomy. Every operation aborts atomically on any of these; no
// partial mutation is ever observable.
var (
	// Authorization errors.
	ErrUnauthorized  = errors.New("caller lacks the required role or capability")
	ErrNotOwner      = errors.New("caller does not own the target entity")
	ErrNotRegistered = errors.New("caller is not registered")

	// State errors.
	ErrAlreadyRegistered = errors.New("address already registered")
	ErrAlreadyVerified   = errors.New("collection already verified or rejected")
	ErrAlreadyCompleted  = errors.New("processing batch already completed or cancelled")
	ErrAlreadySold       = errors.New("listing already sold")
	ErrInvalidTransition = errors.New("entity is not in the required state")

	// Validation errors.
	ErrInvalidWeight         = errors.New("weight must be greater than zero")
	ErrInvalidRange          = errors.New("value out of range")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientInventory = errors.New("insufficient processed inventory")

	// Resource errors.
	ErrInsufficientFunds           = errors.New("insufficient token balance")
	ErrInsufficientContractBalance = errors.New("insufficient contract token balance")

	// Not-found errors.
	ErrNotFound = errors.New("entity not found")
)
