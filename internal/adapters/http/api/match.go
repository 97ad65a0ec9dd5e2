// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/convergehq/converge/internal/domain/model"
)

// MatchDependencies defines the interface for match operations.
type MatchDependencies interface {
	Match(ctx context.Context, projectID string, topN int) ([]model.MatchResult, error)
}

// MatchHandler handles match requests.
type MatchHandler struct {
	deps    MatchDependencies
	maxTopN int
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(deps MatchDependencies, maxTopN int) *MatchHandler {
	return &MatchHandler{deps: deps, maxTopN: maxTopN}
}

// matchRequest mirrors the request schema for POST /match.
type matchRequest struct {
	ProjectID string `json:"project_id"`
	TopN      int    `json:"top_n"`
}

func (m matchRequest) validate() error {
	if strings.TrimSpace(m.ProjectID) == "" {
		return errors.New("missing project_id")
	}
	if m.TopN < 0 {
		return errors.New("top_n must not be negative")
	}
	return nil
}

// matchResponse is the body returned by POST /match.
type matchResponse struct {
	ProjectID string              `json:"project_id"`
	Results   []model.MatchResult `json:"results"`
}

// HandleMatch handles POST /match requests. A top_n of zero selects the
// server default.
func (h *MatchHandler) HandleMatch(w http.ResponseWriter, r *http.Request) {
	const op = "api.match"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req matchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if req.TopN > h.maxTopN {
		writeError(w, http.StatusBadRequest, "top_n_exceeded", NewKind(op, ErrBadRequest))
		return
	}

	results, err := h.deps.Match(r.Context(), req.ProjectID, req.TopN)
	if err != nil {
		if isNotFound(err) {
			writeError(w, http.StatusNotFound, "not_found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, matchResponse{ProjectID: req.ProjectID, Results: results})
}
