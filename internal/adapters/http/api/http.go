// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/convergehq/converge/internal/adapters/repository"
	"github.com/convergehq/converge/internal/domain/model"
	"github.com/convergehq/converge/internal/domain/rating"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Match ranks the candidate pool against a registered project.
	Match(ctx context.Context, projectID string, topN int) ([]model.MatchResult, error)

	// Registry operations.
	RegisterCandidate(ctx context.Context, profile model.CandidateProfile) error
	RegisterProject(ctx context.Context, req model.ProjectRequirement) error

	// Rating operations.
	SubmitRating(ctx context.Context, raterID, rateeID, projectID string, scores map[rating.Category]float64) (rating.Record, error)
	GlobalRating(ctx context.Context, rateeID string) (rating.GlobalRating, error)
	RatingSummary(ctx context.Context, rateeID string) (rating.Summary, error)
	UpdateRaterReliability(ctx context.Context, raterID string, alpha float64) (rating.RaterReliability, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	matchHandler    *MatchHandler
	ratingsHandler  *RatingsHandler
	ratersHandler   *RatersHandler
	profilesHandler *ProfilesHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxTopN int) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		matchHandler:    NewMatchHandler(deps, maxTopN),
		ratingsHandler:  NewRatingsHandler(deps),
		ratersHandler:   NewRatersHandler(deps),
		profilesHandler: NewProfilesHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/match", MetricsMiddleware(s.matchHandler.HandleMatch, "match"))
	mux.HandleFunc("/ratings", MetricsMiddleware(s.ratingsHandler.HandleSubmit, "ratings"))
	mux.HandleFunc("/ratings/", MetricsMiddleware(s.ratingsHandler.HandleRatee, "ratings_by_ratee"))
	mux.HandleFunc("/raters/", MetricsMiddleware(s.ratersHandler.HandleReliability, "rater_reliability"))
	mux.HandleFunc("/candidates", MetricsMiddleware(s.profilesHandler.HandlePostCandidate, "candidates"))
	mux.HandleFunc("/projects", MetricsMiddleware(s.profilesHandler.HandlePostProject, "projects"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// isNotFound translates upstream not-found sentinels to 404.
func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrCandidateNotFound) ||
		errors.Is(err, repository.ErrProjectNotFound) ||
		errors.Is(err, rating.ErrRaterNotFound)
}

// isValidation translates domain validation sentinels to 400.
func isValidation(err error) bool {
	return errors.Is(err, rating.ErrUnknownCategory) ||
		errors.Is(err, rating.ErrScoreOutOfRange)
}
