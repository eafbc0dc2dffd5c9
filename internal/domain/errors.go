package domain

import "errors"

// Failure classes shared across services, storage, and the API layer.
// Callers match them with errors.Is; anything else is treated as internal.
var (
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrPackageNotBiddable = errors.New("package is not open for bids")
	ErrDuplicateBid       = errors.New("courier already has an active bid on this package")
	ErrNotOwner           = errors.New("actor does not own this resource")
	ErrAlreadyTerminal    = errors.New("resource is already in a terminal state")
	ErrCourierNotEligible = errors.New("courier is not eligible to bid")
	ErrBusy               = errors.New("package is locked by another operation")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
)
