package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"courier-market-service/internal/api/dto"
	"courier-market-service/internal/domain"
	"courier-market-service/internal/services"
)

// PackageHandler exposes the package endpoints, from creating a listing
// through the delivery lifecycle actions.
type PackageHandler struct {
	Lifecycle *services.PackageLifecycle
	Log       *zap.SugaredLogger
}

func (h *PackageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePackageRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	pkg, err := h.Lifecycle.CreatePackage(r.Context(), services.CreatePackageRequest{
		SenderID:           req.SenderID,
		Origin:             domain.Coordinates{Lat: req.Origin.Lat, Lon: req.Origin.Lon},
		OriginAddress:      req.OriginAddress,
		Destination:        domain.Coordinates{Lat: req.Destination.Lat, Lon: req.Destination.Lon},
		DestinationAddress: req.DestinationAddress,
		Size:               domain.SizeClass(req.Size),
		WeightKg:           req.WeightKg,
		PriceOfferCents:    req.PriceOfferCents,
	})
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusCreated, packageResponse(pkg))
}

func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	pkg, err := h.Lifecycle.GetPackage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, packageResponse(pkg))
}

// List returns packages by status. Without a status filter it shows the
// market: everything currently open for bids.
func (h *PackageHandler) List(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("status")
	status := domain.StatusOpenForBids
	if raw != "" {
		parsed, err := domain.ParsePackageStatus(raw)
		if err != nil {
			respondError(w, r, h.Log, err)
			return
		}
		status = parsed
	}

	pkgs, err := h.Lifecycle.ListByStatus(r.Context(), status)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	res := dto.ListPackagesResponse{Packages: make([]dto.PackageResponse, 0, len(pkgs))}
	for _, pkg := range pkgs {
		res.Packages = append(res.Packages, packageResponse(pkg))
	}
	writeJSON(w, r, h.Log, http.StatusOK, res)
}

func (h *PackageHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req dto.CancelPackageRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	pkg, err := h.Lifecycle.Cancel(r.Context(), chi.URLParam(r, "id"), req.SenderID)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, packageResponse(pkg))
}

func (h *PackageHandler) SchedulePickup(w http.ResponseWriter, r *http.Request) {
	var req dto.SchedulePickupRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	pkg, err := h.Lifecycle.SchedulePickup(r.Context(), chi.URLParam(r, "id"), req.CourierID)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, packageResponse(pkg))
}

func (h *PackageHandler) ConfirmPickup(w http.ResponseWriter, r *http.Request) {
	var req dto.ConfirmPickupRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	pkg, err := h.Lifecycle.ConfirmPickup(r.Context(), chi.URLParam(r, "id"), req.CourierID)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, packageResponse(pkg))
}

func (h *PackageHandler) Delivered(w http.ResponseWriter, r *http.Request) {
	var req dto.DeliveredRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	pkg, err := h.Lifecycle.MarkDelivered(r.Context(), chi.URLParam(r, "id"), req.ProofReference)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, packageResponse(pkg))
}

func (h *PackageHandler) Failed(w http.ResponseWriter, r *http.Request) {
	var req dto.FailedRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	pkg, err := h.Lifecycle.MarkFailed(r.Context(), chi.URLParam(r, "id"), req.ActorID, req.Reason)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, packageResponse(pkg))
}

func packageResponse(pkg *domain.Package) dto.PackageResponse {
	return dto.PackageResponse{
		ID:                 pkg.ID,
		SenderID:           pkg.SenderID,
		Origin:             dto.Coordinates{Lat: pkg.Origin.Lat, Lon: pkg.Origin.Lon},
		OriginAddress:      pkg.OriginAddress,
		Destination:        dto.Coordinates{Lat: pkg.Destination.Lat, Lon: pkg.Destination.Lon},
		DestinationAddress: pkg.DestinationAddress,
		Size:               string(pkg.Size),
		WeightKg:           pkg.WeightKg,
		PriceOfferCents:    pkg.PriceOfferCents,
		Status:             string(pkg.Status),
		SelectedBidID:      pkg.SelectedBidID,
		BiddingDeadline:    pkg.BiddingDeadline,
		ExtensionsUsed:     pkg.ExtensionsUsed,
		CreatedAt:          pkg.CreatedAt,
		UpdatedAt:          pkg.UpdatedAt,
	}
}
