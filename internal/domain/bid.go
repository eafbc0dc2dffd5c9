package domain

import (
	"fmt"
	"time"
)

// States of a single courier bid. Every state except PENDING is final, with
// one carve-out: a SELECTED bid is rejected when the sender cancels the
// package.
type BidStatus string

const (
	BidPending   BidStatus = "PENDING"
	BidSelected  BidStatus = "SELECTED"
	BidRejected  BidStatus = "REJECTED"
	BidWithdrawn BidStatus = "WITHDRAWN"
	BidExpired   BidStatus = "EXPIRED"
)

// Report whether the bid still occupies the courier's one bid slot on the
// package. SELECTED counts: it blocks a second bid by the same courier.
func (s BidStatus) Active() bool {
	return s == BidPending || s == BidSelected
}

// Represents a courier's offer to carry a package for a given price,
// picking it up at the proposed time.
type Bid struct {
	ID         string
	PackageID  string
	CourierID  string
	PriceCents int64
	PickupAt   time.Time
	Status     BidStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Move the bid to a new status and stamp the update time.
func (b *Bid) Transition(to BidStatus, at time.Time) error {
	switch {
	case b.Status == BidPending:
	case b.Status == BidSelected && to == BidRejected:
	default:
		return fmt.Errorf("bid %s is %s: %w", b.ID, b.Status, ErrAlreadyTerminal)
	}
	b.Status = to
	b.UpdatedAt = at
	return nil
}
