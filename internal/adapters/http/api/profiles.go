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

// ProfileDependencies defines the interface for registry operations.
type ProfileDependencies interface {
	RegisterCandidate(ctx context.Context, profile model.CandidateProfile) error
	RegisterProject(ctx context.Context, req model.ProjectRequirement) error
}

// ProfilesHandler handles candidate and project registration requests.
type ProfilesHandler struct {
	deps ProfileDependencies
}

// NewProfilesHandler creates a new profiles handler.
func NewProfilesHandler(deps ProfileDependencies) *ProfilesHandler {
	return &ProfilesHandler{deps: deps}
}

type registeredResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

// HandlePostCandidate handles POST /candidates requests. Re-posting an id
// replaces the stored profile and re-embeds it.
func (h *ProfilesHandler) HandlePostCandidate(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_candidate"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var profile model.CandidateProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(profile.ID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing id")))
		return
	}

	if err := h.deps.RegisterCandidate(r.Context(), profile); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, registeredResponse{Status: "registered", ID: profile.ID})
}

// HandlePostProject handles POST /projects requests.
func (h *ProfilesHandler) HandlePostProject(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_project"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req model.ProjectRequirement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing id")))
		return
	}

	if err := h.deps.RegisterProject(r.Context(), req); err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, registeredResponse{Status: "registered", ID: req.ID})
}
