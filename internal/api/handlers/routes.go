package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"courier-market-service/internal/api/dto"
	"courier-market-service/internal/domain"
	"courier-market-service/internal/services"
)

// RouteHandler exposes the courier-facing route endpoints, including the
// matching feed that shows which open packages a route could serve.
type RouteHandler struct {
	Registry *services.RouteRegistry
	Matcher  *services.Matcher
	Log      *zap.SugaredLogger
}

func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRouteRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	route, err := h.Registry.CreateRoute(r.Context(), services.CreateRouteRequest{
		CourierID:      req.CourierID,
		Start:          domain.Coordinates{Lat: req.Start.Lat, Lon: req.Start.Lon},
		End:            domain.Coordinates{Lat: req.End.Lat, Lon: req.End.Lon},
		MaxDeviationKm: req.MaxDeviationKm,
		DepartAt:       req.DepartAt,
	})
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusCreated, routeResponse(route))
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	route, err := h.Registry.GetRoute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, routeResponse(route))
}

func (h *RouteHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	var req dto.DeactivateRouteRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	route, err := h.Registry.DeactivateRoute(r.Context(), chi.URLParam(r, "id"), req.CourierID)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, routeResponse(route))
}

// Matches ranks the open packages this route could serve, cheapest detour
// first. Computed live on every call.
func (h *RouteHandler) Matches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.Matcher.MatchesForRoute(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	res := dto.ListMatchesResponse{Matches: make([]dto.MatchResponse, 0, len(matches))}
	for _, match := range matches {
		res.Matches = append(res.Matches, dto.MatchResponse{
			Package:             packageResponse(match.Package),
			DistanceFromRouteKm: match.DistanceFromRouteKm,
			EstimatedDetourKm:   match.EstimatedDetourKm,
		})
	}
	writeJSON(w, r, h.Log, http.StatusOK, res)
}

func routeResponse(route *domain.Route) dto.RouteResponse {
	return dto.RouteResponse{
		ID:             route.ID,
		CourierID:      route.CourierID,
		Start:          dto.Coordinates{Lat: route.Start.Lat, Lon: route.Start.Lon},
		End:            dto.Coordinates{Lat: route.End.Lat, Lon: route.End.Lon},
		MaxDeviationKm: route.MaxDeviationKm,
		DepartAt:       route.DepartAt,
		Active:         route.Active,
		CreatedAt:      route.CreatedAt,
	}
}
