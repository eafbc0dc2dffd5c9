package domain

import "time"

// Kinds of domain events published to the event stream.
type EventKind string

const (
	EventPackageOpened    EventKind = "package.opened"
	EventPackageStatus    EventKind = "package.status_changed"
	EventBidPlaced        EventKind = "bid.placed"
	EventBidWithdrawn     EventKind = "bid.withdrawn"
	EventBidSelected      EventKind = "bid.selected"
	EventBidRejected      EventKind = "bid.rejected"
	EventBidExpired       EventKind = "bid.expired"
	EventDeadlineExtended EventKind = "bidding.deadline_extended"
	EventBiddingReopened  EventKind = "bidding.reopened"
)

// Represents a fact about a package, emitted after the mutation that caused it
// has been persisted. Delivery is best effort; consumers must tolerate gaps.
// Note carries transition-specific detail such as a delivery proof reference
// or a failure reason.
type Event struct {
	ID        string
	Kind      EventKind
	PackageID string
	BidID     string
	ActorID   string
	From      string
	To        string
	Note      string
	Deadline  time.Time
	At        time.Time
}
