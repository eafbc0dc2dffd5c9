package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"courier-market-service/internal/domain"
	"courier-market-service/internal/ports"
)

// RouteRegistry manages the routes couriers post for matching. A courier
// has at most one active route; posting a new one retires the previous.
type RouteRegistry struct {
	routes ports.RouteRepository
	log    *zap.SugaredLogger

	now func() time.Time
}

func NewRouteRegistry(routes ports.RouteRepository, log *zap.SugaredLogger) *RouteRegistry {
	return &RouteRegistry{routes: routes, log: log, now: time.Now}
}

type CreateRouteRequest struct {
	CourierID      string
	Start          domain.Coordinates
	End            domain.Coordinates
	MaxDeviationKm float64
	DepartAt       time.Time
}

// CreateRoute activates a new route for the courier and deactivates any
// previous active one in the same step.
func (s *RouteRegistry) CreateRoute(ctx context.Context, req CreateRouteRequest) (*domain.Route, error) {
	if req.DepartAt.IsZero() {
		return nil, fmt.Errorf("create route: %w: departure time is required", domain.ErrInvalidInput)
	}

	now := s.now().UTC()
	route := &domain.Route{
		ID:             uuid.NewString(),
		CourierID:      req.CourierID,
		Start:          req.Start,
		End:            req.End,
		MaxDeviationKm: req.MaxDeviationKm,
		DepartAt:       req.DepartAt,
		Active:         true,
		CreatedAt:      now,
	}
	if err := route.Validate(); err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}

	if err := s.routes.CreateActive(ctx, route); err != nil {
		return nil, fmt.Errorf("create route: %w", err)
	}
	s.log.Infow("route activated",
		"route_id", route.ID,
		"courier_id", route.CourierID,
		"max_deviation_km", route.MaxDeviationKm,
	)
	return route, nil
}

func (s *RouteRegistry) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	return s.routes.Get(ctx, id)
}

// DeactivateRoute takes a courier's route out of the matching pool. Only the
// owning courier may do this; deactivating twice is a no-op.
func (s *RouteRegistry) DeactivateRoute(ctx context.Context, routeID, courierID string) (*domain.Route, error) {
	route, err := s.routes.Get(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("deactivate route %s: %w", routeID, err)
	}
	if route.CourierID != courierID {
		return nil, fmt.Errorf("deactivate route %s: route belongs to another courier: %w", routeID, domain.ErrNotOwner)
	}
	if !route.Active {
		return route, nil
	}

	route.Active = false
	if err := s.routes.Update(ctx, route); err != nil {
		return nil, fmt.Errorf("deactivate route %s: %w", routeID, err)
	}
	s.log.Infow("route deactivated", "route_id", routeID, "courier_id", courierID)
	return route, nil
}

// ActiveRoutesForCourier returns the courier's active routes, newest first.
func (s *RouteRegistry) ActiveRoutesForCourier(ctx context.Context, courierID string) ([]*domain.Route, error) {
	return s.routes.ListActiveByCourier(ctx, courierID)
}
