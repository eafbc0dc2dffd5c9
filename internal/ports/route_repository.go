package ports

import (
	"context"

	"courier-market-service/internal/domain"
)

// Port: a boundary for storing and retrieving courier Route entities.
// Implementations return domain.ErrNotFound for missing IDs.
type RouteRepository interface {
	// Store the route as the courier's active one, deactivating any other
	// active routes of the same courier in the same step.
	CreateActive(ctx context.Context, route *domain.Route) error
	Get(ctx context.Context, id string) (*domain.Route, error)
	Update(ctx context.Context, route *domain.Route) error
	// Return a courier's currently active routes, newest first.
	ListActiveByCourier(ctx context.Context, courierID string) ([]*domain.Route, error)
}
