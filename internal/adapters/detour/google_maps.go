package detour

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"courier-market-service/internal/domain"
)

// DetourEstimator backed by the Google Maps Directions API. Estimates use
// driven road distance instead of great-circle distance, which matters in
// cities where rivers and highways bend real detours well away from geometry.
type GoogleMapsEstimator struct {
	client *maps.Client
}

func NewGoogleMapsEstimator(apiKey string) (*GoogleMapsEstimator, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create maps client: %w", err)
	}
	return &GoogleMapsEstimator{client: client}, nil
}

func (g *GoogleMapsEstimator) EstimateDetourKm(ctx context.Context, start, end, pickup, dropoff domain.Coordinates) (float64, error) {
	direct, err := g.drivenMeters(ctx, start, end, nil)
	if err != nil {
		return 0, fmt.Errorf("estimate detour: direct leg: %w", err)
	}

	withStops, err := g.drivenMeters(ctx, start, end, []domain.Coordinates{pickup, dropoff})
	if err != nil {
		return 0, fmt.Errorf("estimate detour: stopover legs: %w", err)
	}

	km := float64(withStops-direct) / 1000.0
	if km < 0 {
		// routing quirks can make the stopover path marginally shorter
		return 0, nil
	}
	return km, nil
}

func (g *GoogleMapsEstimator) drivenMeters(ctx context.Context, origin, destination domain.Coordinates, stops []domain.Coordinates) (int, error) {
	req := &maps.DirectionsRequest{
		Origin:      latLng(origin),
		Destination: latLng(destination),
		Mode:        maps.TravelModeDriving,
	}
	for _, stop := range stops {
		req.Waypoints = append(req.Waypoints, latLng(stop))
	}

	routes, _, err := g.client.Directions(ctx, req)
	if err != nil {
		return 0, fmt.Errorf("maps directions: %w", err)
	}
	if len(routes) == 0 || len(routes[0].Legs) == 0 {
		return 0, errors.New("maps directions: no route found")
	}

	meters := 0
	for _, leg := range routes[0].Legs {
		meters += leg.Distance.Meters
	}
	return meters, nil
}

func latLng(c domain.Coordinates) string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}
