package domain

import (
	"fmt"
	"time"
)

// Lifecycle states of a package, from listing to a terminal outcome.
type PackageStatus string

const (
	StatusNew           PackageStatus = "NEW"
	StatusOpenForBids   PackageStatus = "OPEN_FOR_BIDS"
	StatusBidSelected   PackageStatus = "BID_SELECTED"
	StatusPendingPickup PackageStatus = "PENDING_PICKUP"
	StatusInTransit     PackageStatus = "IN_TRANSIT"
	StatusDelivered     PackageStatus = "DELIVERED"
	StatusCanceled      PackageStatus = "CANCELED"
	StatusFailed        PackageStatus = "FAILED"
)

// Allowed status edges. A status missing from the map is terminal.
// Cancellation stops being possible once the package is moving; failure can
// be reported from pickup onward.
var packageTransitions = map[PackageStatus][]PackageStatus{
	StatusNew:           {StatusOpenForBids, StatusCanceled},
	StatusOpenForBids:   {StatusBidSelected, StatusCanceled},
	StatusBidSelected:   {StatusPendingPickup, StatusCanceled},
	StatusPendingPickup: {StatusInTransit, StatusCanceled, StatusFailed},
	StatusInTransit:     {StatusDelivered, StatusFailed},
}

// Report whether the status permits an edge to the given status.
func (s PackageStatus) CanTransition(to PackageStatus) bool {
	for _, next := range packageTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// Report whether the status has no outgoing edges.
func (s PackageStatus) Terminal() bool {
	return len(packageTransitions[s]) == 0
}

// Parse a client-supplied status string.
func ParsePackageStatus(s string) (PackageStatus, error) {
	switch st := PackageStatus(s); st {
	case StatusNew, StatusOpenForBids, StatusBidSelected, StatusPendingPickup,
		StatusInTransit, StatusDelivered, StatusCanceled, StatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown package status %q", ErrInvalidInput, s)
}

// Physical size class of a package.
type SizeClass string

const (
	SizeSmall  SizeClass = "S"
	SizeMedium SizeClass = "M"
	SizeLarge  SizeClass = "L"
)

func ParseSizeClass(s string) (SizeClass, error) {
	switch sc := SizeClass(s); sc {
	case SizeSmall, SizeMedium, SizeLarge:
		return sc, nil
	}
	return "", fmt.Errorf("%w: unknown size class %q", ErrInvalidInput, s)
}

// Represents a single delivery listing posted by a sender.
// Origin and Destination are the pickup and dropoff points. PriceOfferCents
// is the sender's opening offer in minor currency units, zero when the sender
// names no price and lets couriers bid freely. BiddingDeadline is set only
// while the package is OPEN_FOR_BIDS; together with ExtensionsUsed it drives
// the deadline sweep.
type Package struct {
	ID                 string
	SenderID           string
	Origin             Coordinates
	Destination        Coordinates
	OriginAddress      string
	DestinationAddress string
	Size               SizeClass
	WeightKg           float64
	PriceOfferCents    int64
	Status             PackageStatus
	SelectedBidID      *string
	BiddingDeadline    *time.Time
	ExtensionsUsed     int
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Validate the sender-supplied listing fields.
func (p *Package) Validate() error {
	if p.SenderID == "" {
		return fmt.Errorf("%w: sender id cannot be empty", ErrInvalidInput)
	}
	if err := p.Origin.Validate(); err != nil {
		return fmt.Errorf("package origin: %w", err)
	}
	if err := p.Destination.Validate(); err != nil {
		return fmt.Errorf("package destination: %w", err)
	}
	if _, err := ParseSizeClass(string(p.Size)); err != nil {
		return err
	}
	if p.WeightKg <= 0 {
		return fmt.Errorf("%w: weight must be positive, got %.3f", ErrInvalidInput, p.WeightKg)
	}
	if p.PriceOfferCents < 0 {
		return fmt.Errorf("%w: price offer cannot be negative", ErrInvalidInput)
	}
	return nil
}

// Move the package along an allowed edge and stamp the update time.
func (p *Package) Transition(to PackageStatus, at time.Time) error {
	if p.Status.Terminal() {
		return fmt.Errorf("package %s is %s: %w", p.ID, p.Status, ErrAlreadyTerminal)
	}
	if !p.Status.CanTransition(to) {
		return fmt.Errorf("package %s: %s -> %s: %w", p.ID, p.Status, to, ErrInvalidTransition)
	}
	p.Status = to
	p.UpdatedAt = at
	return nil
}

// Report whether bids may be placed on the package at the given instant.
func (p *Package) Biddable(now time.Time) bool {
	return p.Status == StatusOpenForBids && p.BiddingDeadline != nil && now.Before(*p.BiddingDeadline)
}

// Report whether the package carries a bidding deadline that has passed.
func (p *Package) DeadlinePassed(now time.Time) bool {
	return p.BiddingDeadline != nil && !now.Before(*p.BiddingDeadline)
}
