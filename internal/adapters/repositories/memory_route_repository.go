package repositories

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"courier-market-service/internal/domain"
)

// In-memory implementation of the RouteRepository port.
type MemoryRouteRepository struct {
	mu     sync.RWMutex
	routes map[string]*domain.Route
}

func NewMemoryRouteRepository() *MemoryRouteRepository {
	return &MemoryRouteRepository{routes: make(map[string]*domain.Route)}
}

func (m *MemoryRouteRepository) CreateActive(ctx context.Context, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[route.ID]; ok {
		return fmt.Errorf("create route %s: id already exists", route.ID)
	}
	for _, existing := range m.routes {
		if existing.CourierID == route.CourierID {
			existing.Active = false
		}
	}
	stored := cloneRoute(route)
	stored.Active = true
	m.routes[route.ID] = stored
	return nil
}

func (m *MemoryRouteRepository) Get(ctx context.Context, id string) (*domain.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	route, ok := m.routes[id]
	if !ok {
		return nil, fmt.Errorf("get route %s: %w", id, domain.ErrNotFound)
	}
	return cloneRoute(route), nil
}

func (m *MemoryRouteRepository) Update(ctx context.Context, route *domain.Route) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.routes[route.ID]; !ok {
		return fmt.Errorf("update route %s: %w", route.ID, domain.ErrNotFound)
	}
	m.routes[route.ID] = cloneRoute(route)
	return nil
}

func (m *MemoryRouteRepository) ListActiveByCourier(ctx context.Context, courierID string) ([]*domain.Route, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*domain.Route, 0, 4)
	for _, route := range m.routes {
		if route.CourierID == courierID && route.Active {
			out = append(out, cloneRoute(route))
		}
	}

	slices.SortFunc(out, func(a, b *domain.Route) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	return out, nil
}

func cloneRoute(route *domain.Route) *domain.Route {
	cp := *route
	return &cp
}
