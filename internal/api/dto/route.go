package dto

import "time"

type CreateRouteRequest struct {
	CourierID      string      `json:"courier_id"`
	Start          Coordinates `json:"start"`
	End            Coordinates `json:"end"`
	MaxDeviationKm float64     `json:"max_deviation_km"`
	DepartAt       time.Time   `json:"depart_at"`
}

type DeactivateRouteRequest struct {
	CourierID string `json:"courier_id"`
}

type RouteResponse struct {
	ID             string      `json:"id"`
	CourierID      string      `json:"courier_id"`
	Start          Coordinates `json:"start"`
	End            Coordinates `json:"end"`
	MaxDeviationKm float64     `json:"max_deviation_km"`
	DepartAt       time.Time   `json:"depart_at"`
	Active         bool        `json:"active"`
	CreatedAt      time.Time   `json:"created_at"`
}

type MatchResponse struct {
	Package             PackageResponse `json:"package"`
	DistanceFromRouteKm float64         `json:"distance_from_route_km"`
	EstimatedDetourKm   float64         `json:"estimated_detour_km"`
}

type ListMatchesResponse struct {
	Matches []MatchResponse `json:"matches"`
}
