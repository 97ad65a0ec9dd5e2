// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/convergehq/converge/internal/domain/rating"
)

// RatingDependencies defines the interface for rating operations.
type RatingDependencies interface {
	SubmitRating(ctx context.Context, raterID, rateeID, projectID string, scores map[rating.Category]float64) (rating.Record, error)
	GlobalRating(ctx context.Context, rateeID string) (rating.GlobalRating, error)
	RatingSummary(ctx context.Context, rateeID string) (rating.Summary, error)
}

// RatingsHandler handles rating submission and reporting requests.
type RatingsHandler struct {
	deps RatingDependencies
}

// NewRatingsHandler creates a new ratings handler.
func NewRatingsHandler(deps RatingDependencies) *RatingsHandler {
	return &RatingsHandler{deps: deps}
}

// ratingRequest mirrors the request schema for POST /ratings.
type ratingRequest struct {
	RaterID   string             `json:"rater_id"`
	RateeID   string             `json:"ratee_id"`
	ProjectID string             `json:"project_id"`
	Scores    map[string]float64 `json:"scores"`
}

func (r ratingRequest) validate() error {
	switch {
	case strings.TrimSpace(r.RaterID) == "":
		return errors.New("missing rater_id")
	case strings.TrimSpace(r.RateeID) == "":
		return errors.New("missing ratee_id")
	case strings.TrimSpace(r.ProjectID) == "":
		return errors.New("missing project_id")
	case len(r.Scores) == 0:
		return errors.New("missing scores")
	}
	if r.RaterID == r.RateeID {
		return errors.New("rater and ratee must differ")
	}
	return nil
}

// HandleSubmit handles POST /ratings requests.
func (h *RatingsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_rating"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	scores := make(map[rating.Category]float64, len(req.Scores))
	for name, score := range req.Scores {
		scores[rating.Category(name)] = score
	}

	rec, err := h.deps.SubmitRating(r.Context(), req.RaterID, req.RateeID, req.ProjectID, scores)
	if err != nil {
		if isValidation(err) {
			writeError(w, http.StatusBadRequest, "invalid_rating", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// HandleRatee handles GET /ratings/{ratee}/summary and
// GET /ratings/{ratee}/global requests.
func (h *RatingsHandler) HandleRatee(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_ratings"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/ratings/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	rateeID, view := parts[0], parts[1]

	switch view {
	case "summary":
		summary, err := h.deps.RatingSummary(r.Context(), rateeID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, summary)
	case "global":
		global, err := h.deps.GlobalRating(r.Context(), rateeID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
			return
		}
		writeJSON(w, http.StatusOK, global)
	default:
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
	}
}
