package ports

import "context"

// Contract for checking whether a courier account may place bids.
// Eligibility lives in a separate identity system; this boundary keeps the
// marketplace core independent of how accounts are verified.
type CourierDirectory interface {
	IsEligible(ctx context.Context, courierID string) (bool, error)
}
