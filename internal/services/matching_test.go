package services

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"courier-market-service/internal/domain"
	"courier-market-service/internal/geo"
)

// equatorRoute posts a ~100 km route along the equator for the courier. Test
// packages offset their pickup by fractions of a degree of latitude, so the
// perpendicular distance to the corridor is easy to reason about (1 degree of
// latitude is about 111 km).
func (m *market) equatorRoute(t *testing.T, courierID string, maxDevKm float64) *domain.Route {
	t.Helper()
	route, err := m.registry.CreateRoute(context.Background(), CreateRouteRequest{
		CourierID:      courierID,
		Start:          domain.Coordinates{Lat: 0, Lon: 0},
		End:            domain.Coordinates{Lat: 0, Lon: 0.9},
		MaxDeviationKm: maxDevKm,
		DepartAt:       m.clock.Now().Add(6 * time.Hour),
	})
	if err != nil {
		t.Fatalf("create route: %v", err)
	}
	return route
}

func TestMatchesRankByDetour(t *testing.T) {
	m := newMarket(t)
	route := m.equatorRoute(t, "courier-9", 5)

	dropoff := domain.Coordinates{Lat: 0, Lon: 0.5}
	far := m.openPackageAt(t, "sender-1", domain.Coordinates{Lat: 0.020, Lon: 0.45}, dropoff)
	near := m.openPackageAt(t, "sender-2", domain.Coordinates{Lat: 0.005, Lon: 0.45}, dropoff)
	mid := m.openPackageAt(t, "sender-3", domain.Coordinates{Lat: 0.010, Lon: 0.45}, dropoff)

	matches, err := m.matcher.MatchesForRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 3 {
		t.Fatalf("got %d matches, want 3", len(matches))
	}
	wantOrder := []string{near.ID, mid.ID, far.ID}
	for i, want := range wantOrder {
		if matches[i].Package.ID != want {
			t.Fatalf("match[%d] = %s, want %s", i, matches[i].Package.ID, want)
		}
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].EstimatedDetourKm <= matches[i-1].EstimatedDetourKm {
			t.Fatalf("detours not ascending: %v then %v",
				matches[i-1].EstimatedDetourKm, matches[i].EstimatedDetourKm)
		}
		if matches[i].DistanceFromRouteKm <= matches[i-1].DistanceFromRouteKm {
			t.Fatalf("corridor distances not ascending: %v then %v",
				matches[i-1].DistanceFromRouteKm, matches[i].DistanceFromRouteKm)
		}
	}
}

func TestMatchesBreakTiesByAgeThenID(t *testing.T) {
	m := newMarket(t)
	route := m.equatorRoute(t, "courier-9", 5)

	pickup := domain.Coordinates{Lat: 0.005, Lon: 0.45}
	dropoff := domain.Coordinates{Lat: 0, Lon: 0.5}
	older := m.openPackageAt(t, "sender-1", pickup, dropoff)
	m.clock.Advance(time.Minute)
	newer := m.openPackageAt(t, "sender-2", pickup, dropoff)

	matches, err := m.matcher.MatchesForRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 2 || matches[0].Package.ID != older.ID || matches[1].Package.ID != newer.ID {
		t.Fatalf("tie not broken by age: got %+v", matchIDs(matches))
	}

	// identical inputs must rank identically on every call
	again, err := m.matcher.MatchesForRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("match again: %v", err)
	}
	first, second := matchIDs(matches), matchIDs(again)
	if len(first) != len(second) {
		t.Fatalf("repeat call changed result size: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeat call changed order: %v vs %v", first, second)
		}
	}
}

func TestMatchesRejectPickupsOutsideCorridor(t *testing.T) {
	m := newMarket(t)
	route := m.equatorRoute(t, "courier-9", 5)

	// pickup and dropoff share a spot 8 km off the corridor; the round trip
	// out and back adds only ~1.3 km to a 100 km route, so a detour check
	// alone would admit a package the courier was never meant to see
	offCorridor := domain.Coordinates{Lat: 0.0720, Lon: 0.45}
	m.openPackageAt(t, "sender-1", offCorridor, offCorridor)
	control := m.openPackageAt(t, "sender-2",
		domain.Coordinates{Lat: 0.005, Lon: 0.45}, domain.Coordinates{Lat: 0, Lon: 0.5})

	matches, err := m.matcher.MatchesForRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 || matches[0].Package.ID != control.ID {
		t.Fatalf("got %v, want only %s", matchIDs(matches), control.ID)
	}
	if got := geo.DetourKm(route.Start, route.End, offCorridor, offCorridor); got > route.MaxDeviationKm {
		t.Fatalf("test geometry drifted: detour %v should be under the %v allowance", got, route.MaxDeviationKm)
	}
}

func TestMatchesRejectDetoursOverAllowance(t *testing.T) {
	m := newMarket(t)
	route := m.equatorRoute(t, "courier-9", 5)

	// pickup sits in the corridor but the dropoff is ~55 km off the route
	m.openPackageAt(t, "sender-1",
		domain.Coordinates{Lat: 0.005, Lon: 0.3}, domain.Coordinates{Lat: 0.5, Lon: 0.3})
	control := m.openPackageAt(t, "sender-2",
		domain.Coordinates{Lat: 0.005, Lon: 0.45}, domain.Coordinates{Lat: 0, Lon: 0.5})

	matches, err := m.matcher.MatchesForRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 || matches[0].Package.ID != control.ID {
		t.Fatalf("got %v, want only %s", matchIDs(matches), control.ID)
	}
}

func TestMatchesSkipOwnAndUnbiddableListings(t *testing.T) {
	m := newMarket(t)

	// opened a day early so its bidding window has lapsed by match time
	overdue := m.openPackageAt(t, "sender-1",
		domain.Coordinates{Lat: 0, Lon: 0.2}, domain.Coordinates{Lat: 0, Lon: 0.3})
	m.clock.Advance(25 * time.Hour)

	route := m.equatorRoute(t, "courier-9", 5)
	own := m.openPackageAt(t, "courier-9",
		domain.Coordinates{Lat: 0, Lon: 0.3}, domain.Coordinates{Lat: 0, Lon: 0.4})
	decided := m.openPackageAt(t, "sender-2",
		domain.Coordinates{Lat: 0, Lon: 0.4}, domain.Coordinates{Lat: 0, Lon: 0.5})
	win := m.bid(t, decided.ID, "courier-1", 2000)
	if _, err := m.ledger.SelectBid(context.Background(), win.ID, "sender-2"); err != nil {
		t.Fatalf("select: %v", err)
	}
	control := m.openPackageAt(t, "sender-3",
		domain.Coordinates{Lat: 0, Lon: 0.5}, domain.Coordinates{Lat: 0, Lon: 0.6})

	matches, err := m.matcher.MatchesForRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 || matches[0].Package.ID != control.ID {
		t.Fatalf("got %v, want only %s (overdue %s, own %s, decided %s must be absent)",
			matchIDs(matches), control.ID, overdue.ID, own.ID, decided.ID)
	}
}

type failingEstimator struct{}

func (failingEstimator) EstimateDetourKm(ctx context.Context, start, end, pickup, dropoff domain.Coordinates) (float64, error) {
	return 0, errors.New("routing api down")
}

func TestMatchesFallBackToStraightLineOnEstimatorError(t *testing.T) {
	m := newMarket(t)
	m.matcher.estimator = failingEstimator{}
	route := m.equatorRoute(t, "courier-9", 5)

	pickup := domain.Coordinates{Lat: 0.005, Lon: 0.45}
	dropoff := domain.Coordinates{Lat: 0, Lon: 0.5}
	pkg := m.openPackageAt(t, "sender-1", pickup, dropoff)

	matches, err := m.matcher.MatchesForRoute(context.Background(), route.ID)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(matches) != 1 || matches[0].Package.ID != pkg.ID {
		t.Fatalf("got %v, want %s", matchIDs(matches), pkg.ID)
	}
	want := geo.DetourKm(route.Start, route.End, pickup, dropoff)
	if math.Abs(matches[0].EstimatedDetourKm-want) > 1e-9 {
		t.Fatalf("detour = %v, want straight-line fallback %v", matches[0].EstimatedDetourKm, want)
	}
}

func TestMatchesUnknownRoute(t *testing.T) {
	m := newMarket(t)
	if _, err := m.matcher.MatchesForRoute(context.Background(), "no-such-route"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func matchIDs(matches []Match) []string {
	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.Package.ID
	}
	return ids
}
