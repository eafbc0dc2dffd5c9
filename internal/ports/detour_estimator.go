package ports

import (
	"context"

	"courier-market-service/internal/domain"
)

// Contract for estimating the extra distance a courier travels when serving a
// package from a route. The default implementation is pure great-circle
// geometry; road-network estimators can be swapped in behind this boundary.
type DetourEstimator interface {
	// Return the added kilometres for leaving the start-end path to visit
	// pickup and then dropoff in order.
	EstimateDetourKm(ctx context.Context, start, end, pickup, dropoff domain.Coordinates) (float64, error)
}
