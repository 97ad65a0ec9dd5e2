package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/convergehq/converge/internal/adapters/http/api"
	"github.com/convergehq/converge/internal/adapters/repository"
	"github.com/convergehq/converge/internal/domain/model"
	"github.com/convergehq/converge/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

// Mock implementations for testing
type mockService struct {
	matchResults []model.MatchResult
	matchErr     error
	matchedTopN  int

	registerErr error
	candidates  []model.CandidateProfile
	projects    []model.ProjectRequirement

	submitRec   rating.Record
	submitErr   error
	global      rating.GlobalRating
	globalErr   error
	summary     rating.Summary
	summaryErr  error
	reliability rating.RaterReliability
	relErr      error
}

func (m *mockService) Match(ctx context.Context, projectID string, topN int) ([]model.MatchResult, error) {
	m.matchedTopN = topN
	if m.matchErr != nil {
		return nil, m.matchErr
	}
	return m.matchResults, nil
}

func (m *mockService) RegisterCandidate(ctx context.Context, profile model.CandidateProfile) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.candidates = append(m.candidates, profile)
	return nil
}

func (m *mockService) RegisterProject(ctx context.Context, req model.ProjectRequirement) error {
	if m.registerErr != nil {
		return m.registerErr
	}
	m.projects = append(m.projects, req)
	return nil
}

func (m *mockService) SubmitRating(ctx context.Context, raterID, rateeID, projectID string, scores map[rating.Category]float64) (rating.Record, error) {
	if m.submitErr != nil {
		return rating.Record{}, m.submitErr
	}
	return m.submitRec, nil
}

func (m *mockService) GlobalRating(ctx context.Context, rateeID string) (rating.GlobalRating, error) {
	if m.globalErr != nil {
		return rating.GlobalRating{}, m.globalErr
	}
	return m.global, nil
}

func (m *mockService) RatingSummary(ctx context.Context, rateeID string) (rating.Summary, error) {
	if m.summaryErr != nil {
		return rating.Summary{}, m.summaryErr
	}
	return m.summary, nil
}

func (m *mockService) UpdateRaterReliability(ctx context.Context, raterID string, alpha float64) (rating.RaterReliability, error) {
	if m.relErr != nil {
		return rating.RaterReliability{}, m.relErr
	}
	return m.reliability, nil
}

type mockStatsProvider struct {
	stats map[string]interface{}
}

func (m *mockStatsProvider) GetStats() map[string]interface{} {
	return m.stats
}

// Local types for testing
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type registeredResponse struct {
	Status string `json:"status"`
	ID     string `json:"id"`
}

type matchResponse struct {
	ProjectID string              `json:"project_id"`
	Results   []model.MatchResult `json:"results"`
}

func TestServer_Register(t *testing.T) {
	Convey("Given a new API server", t, func() {
		deps := &mockService{}
		statsProvider := &mockStatsProvider{}
		server := api.NewServer(deps, statsProvider, 100)
		mux := http.NewServeMux()

		Convey("When registering routes", func() {
			server.Register(context.Background(), mux)

			Convey("Then health endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/healthz", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And stats endpoint should be accessible", func() {
				req := httptest.NewRequest("GET", "/stats", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})

			Convey("And match endpoint should reject empty requests", func() {
				req := httptest.NewRequest("POST", "/match", strings.NewReader(`{}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And ratings endpoint should reject empty requests", func() {
				req := httptest.NewRequest("POST", "/ratings", strings.NewReader(`{}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})

			Convey("And candidates endpoint should be accessible", func() {
				req := httptest.NewRequest("POST", "/candidates", strings.NewReader(`{"id":"cand-1","name":"Ada"}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusCreated)
			})

			Convey("And projects endpoint should be accessible", func() {
				req := httptest.NewRequest("POST", "/projects", strings.NewReader(`{"id":"proj-1","title":"Pipeline"}`))
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusCreated)
			})

			Convey("And root endpoint should catch everything else", func() {
				req := httptest.NewRequest("GET", "/unknown", nil)
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestMatchHandler_HandleMatch(t *testing.T) {
	Convey("Given a match handler", t, func() {
		deps := &mockService{
			matchResults: []model.MatchResult{
				{CandidateID: "cand-1", Name: "Ada", FinalScore: 0.8123},
				{CandidateID: "cand-2", Name: "Grace", FinalScore: 0.7011},
			},
		}
		handler := api.NewMatchHandler(deps, 100)

		Convey("When handling a valid POST request", func() {
			body := `{"project_id": "proj-1", "top_n": 2}`
			req := httptest.NewRequest("POST", "/match", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return the ranked results", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response matchResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.ProjectID, ShouldEqual, "proj-1")
				So(len(response.Results), ShouldEqual, 2)
				So(response.Results[0].CandidateID, ShouldEqual, "cand-1")
				So(deps.matchedTopN, ShouldEqual, 2)
			})
		})

		Convey("When top_n is omitted", func() {
			body := `{"project_id": "proj-1"}`
			req := httptest.NewRequest("POST", "/match", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then the server default is requested", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.matchedTopN, ShouldEqual, 0)
			})
		})

		Convey("When project_id is missing", func() {
			body := `{"top_n": 5}`
			req := httptest.NewRequest("POST", "/match", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When top_n exceeds the configured maximum", func() {
			body := `{"project_id": "proj-1", "top_n": 500}`
			req := httptest.NewRequest("POST", "/match", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request with a distinct code", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "top_n_exceeded")
			})
		})

		Convey("When handling an invalid JSON request", func() {
			req := httptest.NewRequest("POST", "/match", strings.NewReader(`{invalid`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the project is unknown", func() {
			deps.matchErr = fmt.Errorf("lookup: %w", repository.ErrProjectNotFound)
			body := `{"project_id": "ghost"}`
			req := httptest.NewRequest("POST", "/match", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When matching fails", func() {
			deps.matchErr = fmt.Errorf("pool saturated")
			body := `{"project_id": "proj-1"}`
			req := httptest.NewRequest("POST", "/match", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When handling a non-POST request", func() {
			req := httptest.NewRequest("GET", "/match", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleMatch(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRatingsHandler_HandleSubmit(t *testing.T) {
	Convey("Given a ratings handler", t, func() {
		deps := &mockService{
			submitRec: rating.Record{
				ID:             "rec-1",
				RaterID:        "alice",
				RateeID:        "bob",
				ProjectID:      "proj-1",
				RawRating:      4.5,
				RaterAlpha:     1.0,
				AdjustedRating: 4.5,
			},
		}
		handler := api.NewRatingsHandler(deps)

		validBody := `{
			"rater_id": "alice",
			"ratee_id": "bob",
			"project_id": "proj-1",
			"scores": {"technical": 4.5, "overall": 4.0}
		}`

		Convey("When handling a valid POST request", func() {
			req := httptest.NewRequest("POST", "/ratings", strings.NewReader(validBody))
			w := httptest.NewRecorder()

			Convey("Then it should return the created record", func() {
				handler.HandleSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusCreated)

				var response rating.Record
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.ID, ShouldEqual, "rec-1")
				So(response.AdjustedRating, ShouldEqual, 4.5)
			})
		})

		Convey("When rater and ratee are the same", func() {
			body := `{"rater_id": "alice", "ratee_id": "alice", "project_id": "proj-1", "scores": {"overall": 4.0}}`
			req := httptest.NewRequest("POST", "/ratings", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When scores are missing", func() {
			body := `{"rater_id": "alice", "ratee_id": "bob", "project_id": "proj-1"}`
			req := httptest.NewRequest("POST", "/ratings", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the domain rejects a category", func() {
			deps.submitErr = fmt.Errorf("submit: %w", rating.ErrUnknownCategory)
			req := httptest.NewRequest("POST", "/ratings", strings.NewReader(validBody))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request with a rating code", func() {
				handler.HandleSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)

				var response errorResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Code, ShouldEqual, "invalid_rating")
			})
		})

		Convey("When the store fails", func() {
			deps.submitErr = fmt.Errorf("disk full")
			req := httptest.NewRequest("POST", "/ratings", strings.NewReader(validBody))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When handling a non-POST request", func() {
			req := httptest.NewRequest("GET", "/ratings", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleSubmit(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRatingsHandler_HandleRatee(t *testing.T) {
	Convey("Given a ratings handler", t, func() {
		deps := &mockService{
			summary: rating.Summary{
				RateeID:      "bob",
				TotalRatings: 3,
				Global:       rating.GlobalRating{Value: 3.875, ProjectsRated: 2, TotalRatings: 3},
			},
			global: rating.GlobalRating{Value: 3.875, ProjectsRated: 2, TotalRatings: 3},
		}
		handler := api.NewRatingsHandler(deps)

		Convey("When requesting a summary", func() {
			req := httptest.NewRequest("GET", "/ratings/bob/summary", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return the full summary", func() {
				handler.HandleRatee(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response rating.Summary
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.RateeID, ShouldEqual, "bob")
				So(response.TotalRatings, ShouldEqual, 3)
			})
		})

		Convey("When requesting the global rating", func() {
			req := httptest.NewRequest("GET", "/ratings/bob/global", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return the Bayesian aggregate", func() {
				handler.HandleRatee(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response rating.GlobalRating
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Value, ShouldEqual, 3.875)
				So(response.ProjectsRated, ShouldEqual, 2)
			})
		})

		Convey("When requesting an unknown view", func() {
			req := httptest.NewRequest("GET", "/ratings/bob/history", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleRatee(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the ratee segment is empty", func() {
			req := httptest.NewRequest("GET", "/ratings//summary", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleRatee(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When handling a non-GET request", func() {
			req := httptest.NewRequest("POST", "/ratings/bob/summary", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleRatee(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestRatersHandler_HandleReliability(t *testing.T) {
	Convey("Given a raters handler", t, func() {
		deps := &mockService{
			reliability: rating.RaterReliability{RaterID: "carol", Alpha: 0.8, RatingsGiven: 4},
		}
		handler := api.NewRatersHandler(deps)

		Convey("When handling a valid PUT request", func() {
			req := httptest.NewRequest("PUT", "/raters/carol/reliability", strings.NewReader(`{"alpha": 0.8}`))
			w := httptest.NewRecorder()

			Convey("Then it should return the updated reliability", func() {
				handler.HandleReliability(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response rating.RaterReliability
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.RaterID, ShouldEqual, "carol")
				So(response.Alpha, ShouldEqual, 0.8)
			})
		})

		Convey("When the path has the wrong shape", func() {
			req := httptest.NewRequest("PUT", "/raters/carol/alpha", strings.NewReader(`{"alpha": 0.8}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleReliability(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When handling an invalid JSON request", func() {
			req := httptest.NewRequest("PUT", "/raters/carol/reliability", strings.NewReader(`{invalid`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandleReliability(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the update fails", func() {
			deps.relErr = fmt.Errorf("store closed")
			req := httptest.NewRequest("PUT", "/raters/carol/reliability", strings.NewReader(`{"alpha": 0.8}`))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandleReliability(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When handling a non-PUT request", func() {
			req := httptest.NewRequest("GET", "/raters/carol/reliability", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandleReliability(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestProfilesHandler(t *testing.T) {
	Convey("Given a profiles handler", t, func() {
		deps := &mockService{}
		handler := api.NewProfilesHandler(deps)

		Convey("When posting a valid candidate", func() {
			body := `{
				"id": "cand-1",
				"name": "Ada",
				"skills": {"languages": ["go"], "frameworks": [], "tools": [], "domain_skills": ["distributed"]},
				"experience": "advanced",
				"availability": "high"
			}`
			req := httptest.NewRequest("POST", "/candidates", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return registered status", func() {
				handler.HandlePostCandidate(w, req)
				So(w.Code, ShouldEqual, http.StatusCreated)

				var response registeredResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.Status, ShouldEqual, "registered")
				So(response.ID, ShouldEqual, "cand-1")
				So(len(deps.candidates), ShouldEqual, 1)
				So(deps.candidates[0].Name, ShouldEqual, "Ada")
			})
		})

		Convey("When posting a candidate without an id", func() {
			req := httptest.NewRequest("POST", "/candidates", strings.NewReader(`{"name": "Ada"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return bad request status", func() {
				handler.HandlePostCandidate(w, req)
				So(w.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When posting a valid project", func() {
			body := `{"id": "proj-1", "title": "Data pipeline", "type": "startup", "required_skills": ["go", "kafka"], "team_size": 3}`
			req := httptest.NewRequest("POST", "/projects", strings.NewReader(body))
			w := httptest.NewRecorder()

			Convey("Then it should return registered status", func() {
				handler.HandlePostProject(w, req)
				So(w.Code, ShouldEqual, http.StatusCreated)

				var response registeredResponse
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response.ID, ShouldEqual, "proj-1")
				So(len(deps.projects), ShouldEqual, 1)
			})
		})

		Convey("When registration fails", func() {
			deps.registerErr = fmt.Errorf("embedding backend unavailable")
			req := httptest.NewRequest("POST", "/candidates", strings.NewReader(`{"id": "cand-1"}`))
			w := httptest.NewRecorder()

			Convey("Then it should return internal server error", func() {
				handler.HandlePostCandidate(w, req)
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When handling a non-POST request", func() {
			req := httptest.NewRequest("GET", "/candidates", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return not found status", func() {
				handler.HandlePostCandidate(w, req)
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestHealthHandler_HandleHealth(t *testing.T) {
	Convey("Given a health handler", t, func() {
		handler := api.NewHealthHandler()

		Convey("When handling health check request", func() {
			req := httptest.NewRequest("GET", "/healthz", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return OK status", func() {
				handler.HandleHealth(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)
			})
		})
	})
}

func TestStatsHandler_HandleStats(t *testing.T) {
	Convey("Given a stats handler", t, func() {
		mockStats := &mockStatsProvider{
			stats: map[string]interface{}{
				"candidates": 12,
				"projects":   3,
			},
		}
		handler := api.NewStatsHandler(mockStats)

		Convey("When handling stats request", func() {
			req := httptest.NewRequest("GET", "/stats", nil)
			w := httptest.NewRecorder()

			Convey("Then it should return stats", func() {
				handler.HandleStats(w, req)
				So(w.Code, ShouldEqual, http.StatusOK)

				var response map[string]interface{}
				err := json.NewDecoder(w.Body).Decode(&response)
				So(err, ShouldBeNil)
				So(response["candidates"], ShouldEqual, 12)
				So(response["projects"], ShouldEqual, 3)
			})
		})
	})
}
