package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"courier-market-service/internal/api/dto"
	"courier-market-service/internal/domain"
	"courier-market-service/internal/services"
)

// BidHandler exposes the bid book: couriers place and withdraw offers,
// senders inspect them and pick a winner.
type BidHandler struct {
	Ledger *services.BidLedger
	Log    *zap.SugaredLogger
}

// Place records a courier's offer on the package in the path.
func (h *BidHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBidRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	bid, err := h.Ledger.PlaceBid(r.Context(), services.PlaceBidRequest{
		PackageID:  chi.URLParam(r, "id"),
		CourierID:  req.CourierID,
		PriceCents: req.PriceCents,
		PickupAt:   req.PickupAt,
	})
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusCreated, bidResponse(bid))
}

// ListForPackage returns every bid on the package, newest first.
func (h *BidHandler) ListForPackage(w http.ResponseWriter, r *http.Request) {
	bids, err := h.Ledger.ListBids(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	res := dto.ListBidsResponse{Bids: make([]dto.BidResponse, 0, len(bids))}
	for _, bid := range bids {
		res.Bids = append(res.Bids, bidResponse(bid))
	}
	writeJSON(w, r, h.Log, http.StatusOK, res)
}

func (h *BidHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req dto.WithdrawBidRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	bid, err := h.Ledger.WithdrawBid(r.Context(), chi.URLParam(r, "id"), req.CourierID)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, bidResponse(bid))
}

func (h *BidHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req dto.SelectBidRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}
	bid, err := h.Ledger.SelectBid(r.Context(), chi.URLParam(r, "id"), req.SenderID)
	if err != nil {
		respondError(w, r, h.Log, err)
		return
	}
	writeJSON(w, r, h.Log, http.StatusOK, bidResponse(bid))
}

func bidResponse(bid *domain.Bid) dto.BidResponse {
	return dto.BidResponse{
		ID:         bid.ID,
		PackageID:  bid.PackageID,
		CourierID:  bid.CourierID,
		PriceCents: bid.PriceCents,
		PickupAt:   bid.PickupAt,
		Status:     string(bid.Status),
		CreatedAt:  bid.CreatedAt,
		UpdatedAt:  bid.UpdatedAt,
	}
}
