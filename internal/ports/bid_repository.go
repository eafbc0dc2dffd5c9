package ports

import (
	"context"

	"courier-market-service/internal/domain"
)

// Port: a boundary for storing and retrieving Bid entities.
// Implementations return domain.ErrNotFound for missing IDs.
type BidRepository interface {
	Create(ctx context.Context, bid *domain.Bid) error
	Get(ctx context.Context, id string) (*domain.Bid, error)
	Update(ctx context.Context, bid *domain.Bid) error
	// Return all bids on a package, newest first.
	ListByPackage(ctx context.Context, packageID string) ([]*domain.Bid, error)
	// Report whether the courier holds a PENDING or SELECTED bid on the package.
	HasActiveBid(ctx context.Context, packageID, courierID string) (bool, error)
}
