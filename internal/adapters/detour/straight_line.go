package detour

import (
	"context"

	"courier-market-service/internal/domain"
	"courier-market-service/internal/geo"
)

// DetourEstimator on pure great-circle geometry; the default when no
// road-network estimator is configured.
type StraightLine struct{}

func NewStraightLine() StraightLine { return StraightLine{} }

func (StraightLine) EstimateDetourKm(ctx context.Context, start, end, pickup, dropoff domain.Coordinates) (float64, error) {
	return geo.DetourKm(start, end, pickup, dropoff), nil
}
