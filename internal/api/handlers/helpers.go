package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"courier-market-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnw("encode response", "method", r.Method, "path", r.URL.Path, "error", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger, status int, msg string) {
	writeJSON(w, r, log, status, map[string]string{"error": msg})
}

// decodeStrict parses the request body into v, rejecting unknown fields and
// trailing content so client typos fail loudly instead of half-applying.
func decodeStrict(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

// respondError translates a service failure into a status code and a stable
// message. Unrecognized errors are logged and reported as a plain 500 so
// internals never leak to clients.
func respondError(w http.ResponseWriter, r *http.Request, log *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, r, log, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, log, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrNotOwner):
		writeError(w, r, log, http.StatusForbidden, "actor does not own this resource")
	case errors.Is(err, domain.ErrCourierNotEligible):
		writeError(w, r, log, http.StatusForbidden, "courier is not eligible to bid")
	case errors.Is(err, domain.ErrPackageNotBiddable):
		writeError(w, r, log, http.StatusConflict, "package is not open for bids")
	case errors.Is(err, domain.ErrDuplicateBid):
		writeError(w, r, log, http.StatusConflict, "courier already has an active bid on this package")
	case errors.Is(err, domain.ErrAlreadyTerminal):
		writeError(w, r, log, http.StatusConflict, "already settled")
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, r, log, http.StatusConflict, "conflicts with current package status")
	case errors.Is(err, domain.ErrBusy):
		w.Header().Set("Retry-After", "1")
		writeError(w, r, log, http.StatusLocked, "package is busy, retry shortly")
	default:
		log.Errorw("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, r, log, http.StatusInternalServerError, "internal server error")
	}
}
