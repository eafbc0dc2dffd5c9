package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"courier-market-service/internal/domain"
	"courier-market-service/internal/geo"
	"courier-market-service/internal/platform/obs"
	"courier-market-service/internal/ports"
)

// Estimator calls may hit an external routing API, so candidates are scored
// with a small bounded fan-out.
const estimateParallelism = 4

// A Match pairs an open listing with the cost a route pays to serve it.
// DistanceFromRouteKm is the pickup's distance to the route corridor;
// EstimatedDetourKm the added travel for taking pickup and dropoff in.
type Match struct {
	Package             *domain.Package
	DistanceFromRouteKm float64
	EstimatedDetourKm   float64
}

// Matcher finds the open listings a courier can serve without straying past
// their route's deviation allowance. Results are computed live on every call;
// the package pool changes too quickly for caching to tell the truth.
type Matcher struct {
	packages  ports.PackageRepository
	routes    ports.RouteRepository
	estimator ports.DetourEstimator
	log       *zap.SugaredLogger

	now func() time.Time
}

func NewMatcher(
	packages ports.PackageRepository,
	routes ports.RouteRepository,
	estimator ports.DetourEstimator,
	log *zap.SugaredLogger,
) *Matcher {
	return &Matcher{
		packages:  packages,
		routes:    routes,
		estimator: estimator,
		log:       log,
		now:       time.Now,
	}
}

// MatchesForRoute ranks the biddable listings a route could serve, cheapest
// detour first. A package qualifies only when both its pickup lies inside
// the route's deviation corridor and the full detour stays within the
// allowance; couriers never see their own listings.
func (m *Matcher) MatchesForRoute(ctx context.Context, routeID string) (res []Match, err error) {
	defer obs.Time(ctx, m.log, "match route")(&err)

	route, err := m.routes.Get(ctx, routeID)
	if err != nil {
		return nil, fmt.Errorf("match route %s: %w", routeID, err)
	}

	open, err := m.packages.ListOpenForBidding(ctx, m.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("match route %s: list open packages: %w", routeID, err)
	}

	type candidate struct {
		pkg      *domain.Package
		corridor float64
	}
	candidates := make([]candidate, 0, len(open))
	for _, pkg := range open {
		if pkg.SenderID == route.CourierID {
			continue
		}
		corridor := geo.CrossTrackKm(pkg.Origin, route.Start, route.End)
		if corridor > route.MaxDeviationKm {
			continue
		}
		candidates = append(candidates, candidate{pkg: pkg, corridor: corridor})
	}

	var (
		mu      sync.Mutex
		matches = make([]Match, 0, len(candidates))
	)
	var g errgroup.Group
	g.SetLimit(estimateParallelism)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			detour, err := m.estimator.EstimateDetourKm(ctx, route.Start, route.End, c.pkg.Origin, c.pkg.Destination)
			if err != nil {
				m.log.Warnw("detour estimate failed, falling back to straight line",
					"route_id", routeID,
					"package_id", c.pkg.ID,
					"error", err,
				)
				detour = geo.DetourKm(route.Start, route.End, c.pkg.Origin, c.pkg.Destination)
			}
			if detour > route.MaxDeviationKm {
				return nil
			}
			mu.Lock()
			matches = append(matches, Match{
				Package:             c.pkg,
				DistanceFromRouteKm: c.corridor,
				EstimatedDetourKm:   detour,
			})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	// Rank by detour, corridor distance, then age. The id comparison makes
	// the order total even for listings created in the same instant.
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(a.EstimatedDetourKm, b.EstimatedDetourKm); c != 0 {
			return c
		}
		if c := cmp.Compare(a.DistanceFromRouteKm, b.DistanceFromRouteKm); c != 0 {
			return c
		}
		if c := a.Package.CreatedAt.Compare(b.Package.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Package.ID, b.Package.ID)
	})
	return matches, nil
}
