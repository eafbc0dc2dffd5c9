package ports

import (
	"context"
	"time"

	"courier-market-service/internal/domain"
)

// Port: a boundary for storing and retrieving Package entities.
// Implementations return domain.ErrNotFound for missing IDs.
type PackageRepository interface {
	Create(ctx context.Context, pkg *domain.Package) error
	Get(ctx context.Context, id string) (*domain.Package, error)
	// Persist every mutable field of the package.
	Update(ctx context.Context, pkg *domain.Package) error
	ListByStatus(ctx context.Context, status domain.PackageStatus) ([]*domain.Package, error)
	// Return open packages whose bidding deadline lies at or before now.
	ListOverdueOpen(ctx context.Context, now time.Time) ([]*domain.Package, error)
	// Return open packages still accepting bids at the given instant.
	ListOpenForBidding(ctx context.Context, now time.Time) ([]*domain.Package, error)
}
