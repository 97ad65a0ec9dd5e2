// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/convergehq/converge/internal/domain/rating"
)

// RaterDependencies defines the interface for rater reliability operations.
type RaterDependencies interface {
	UpdateRaterReliability(ctx context.Context, raterID string, alpha float64) (rating.RaterReliability, error)
}

// RatersHandler handles rater reliability requests.
type RatersHandler struct {
	deps RaterDependencies
}

// NewRatersHandler creates a new raters handler.
func NewRatersHandler(deps RaterDependencies) *RatersHandler {
	return &RatersHandler{deps: deps}
}

// reliabilityRequest mirrors the request schema for
// PUT /raters/{rater}/reliability.
type reliabilityRequest struct {
	Alpha float64 `json:"alpha"`
}

// HandleReliability handles PUT /raters/{rater}/reliability requests.
// Alphas outside the allowed range are clamped, not rejected.
func (h *RatersHandler) HandleReliability(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_reliability"
	if r.Method != http.MethodPut {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/raters/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "reliability" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	raterID := parts[0]

	var req reliabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	rr, err := h.deps.UpdateRaterReliability(r.Context(), raterID, req.Alpha)
	if err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, "invalid_alpha", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rr)
}
