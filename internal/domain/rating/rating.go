// Package rating implements peer-rating submission, rater-reliability
// adjustment, per-project aggregation and the Bayesian-smoothed global
// rating consumed by the trust layer.
package rating

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Category identifies one axis of a peer evaluation. The set is closed and
// each category carries a fixed weight; weights sum to 1.0.
type Category string

const (
	CategoryTechnical     Category = "technical"
	CategoryReliability   Category = "reliability"
	CategoryCommunication Category = "communication"
	CategoryInitiative    Category = "initiative"
	CategoryOverall       Category = "overall"
)

var categoryWeights = map[Category]float64{
	CategoryTechnical:     0.30,
	CategoryReliability:   0.25,
	CategoryCommunication: 0.20,
	CategoryInitiative:    0.15,
	CategoryOverall:       0.10,
}

// Categories returns the closed category set.
func Categories() []Category {
	return []Category{
		CategoryTechnical,
		CategoryReliability,
		CategoryCommunication,
		CategoryInitiative,
		CategoryOverall,
	}
}

// Raw category scores are bounded to [1, 5].
const (
	minScore = 1.0
	maxScore = 5.0
)

// Rater reliability coefficient bounds; new raters start at 1.0.
const (
	alphaFloor   = 0.7
	alphaCeiling = 1.0
	alphaInitial = 1.0
)

// Bayesian smoothing constants for the global rating: prior mean and prior
// confidence weight.
const (
	priorMean       = 3.5
	priorConfidence = 5.0
)

// Record is one peer-to-peer evaluation. Records are append-only and never
// mutated after creation; (rater, ratee, project, sequence) is unique.
type Record struct {
	ID             string               `json:"id"`
	RaterID        string               `json:"rater_id"`
	RateeID        string               `json:"ratee_id"`
	ProjectID      string               `json:"project_id"`
	Sequence       int                  `json:"sequence"`
	CategoryScores map[Category]float64 `json:"category_scores"`
	RawRating      float64              `json:"raw_rating"`
	RaterAlpha     float64              `json:"rater_alpha"`
	AdjustedRating float64              `json:"adjusted_rating"`
	CreatedAt      time.Time            `json:"created_at"`
}

// RaterReliability tracks a rater's coefficient. Mutated in place as new
// calibration information arrives; never deleted.
type RaterReliability struct {
	RaterID      string    `json:"rater_id"`
	Alpha        float64   `json:"alpha"`
	RatingsGiven int       `json:"ratings_given"`
	CreatedAt    time.Time `json:"created_at"`
}

// GlobalRating is the Bayesian-smoothed aggregate for a ratee.
type GlobalRating struct {
	Value         float64 `json:"value"`
	ProjectsRated int     `json:"projects_rated"`
	TotalRatings  int     `json:"total_ratings"`
}

// CategoryStats summarizes one category across all ratings received.
type CategoryStats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Count   int     `json:"count"`
}

// RaterDetail is one rater's contribution inside a project summary.
type RaterDetail struct {
	RaterID        string  `json:"rater_id"`
	AdjustedRating float64 `json:"adjusted_rating"`
	RaterAlpha     float64 `json:"rater_alpha"`
}

// ProjectSummary is the per-project breakdown for a ratee.
type ProjectSummary struct {
	Rating float64       `json:"rating"`
	Raters int           `json:"raters"`
	Detail []RaterDetail `json:"detail"`
}

// Summary is the full reporting view for a ratee. It is not consumed by the
// matching pipeline.
type Summary struct {
	RateeID      string                     `json:"ratee_id"`
	TotalRatings int                        `json:"total_ratings"`
	Categories   map[Category]CategoryStats `json:"categories"`
	Projects     map[string]ProjectSummary  `json:"projects"`
	Global       GlobalRating               `json:"global"`
}

// Store is the durable state behind the engine. Implementations must make
// SubmitRating atomic per rater: the read of the current alpha and the
// append of the new record may not interleave with another submission for
// the same rater.
type Store interface {
	// SubmitRating runs build under the rater's lock with the rater's
	// current alpha (initialized at 1.0 for new raters), appends the built
	// record, and bumps the rater's given-ratings count.
	SubmitRating(ctx context.Context, raterID string, build func(alpha float64) (Record, error)) (Record, error)

	// RatingsByRatee returns every record a ratee has received, in append order.
	RatingsByRatee(ctx context.Context, rateeID string) ([]Record, error)

	// Rater returns the reliability entry for a rater. ErrRaterNotFound if unknown.
	Rater(ctx context.Context, raterID string) (RaterReliability, error)

	// UpdateRater applies fn to the rater's entry (initialized at 1.0 if new)
	// under the rater's lock and persists the result.
	UpdateRater(ctx context.Context, raterID string, fn func(*RaterReliability)) (RaterReliability, error)
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithClock overrides the time source used for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine exposes the rating operations over an injected store.
type Engine struct {
	store Store
	now   func() time.Time
}

// New creates an Engine backed by store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Submit validates the category scores, computes the weighted raw and
// alpha-adjusted ratings, and appends the record. Validation fully precedes
// persistence: nothing is written when a category is unknown or a score is
// outside [1, 5].
func (e *Engine) Submit(ctx context.Context, raterID, rateeID, projectID string, scores map[Category]float64) (Record, error) {
	if err := validateScores(scores); err != nil {
		return Record{}, err
	}

	raw := rawRating(scores)

	return e.store.SubmitRating(ctx, raterID, func(alpha float64) (Record, error) {
		return Record{
			ID:             uuid.New().String(),
			RaterID:        raterID,
			RateeID:        rateeID,
			ProjectID:      projectID,
			CategoryScores: scores,
			RawRating:      raw,
			RaterAlpha:     alpha,
			AdjustedRating: round3(alpha * raw),
			CreatedAt:      e.now(),
		}, nil
	})
}

// UpdateRaterReliability stores a new coefficient for a rater, clamped to
// [0.7, 1.0], and increments the rater's rating count. How the proposed
// value is computed is the calibration process's business, not ours.
func (e *Engine) UpdateRaterReliability(ctx context.Context, raterID string, alpha float64) (RaterReliability, error) {
	clamped := math.Max(alphaFloor, math.Min(alphaCeiling, alpha))
	return e.store.UpdateRater(ctx, raterID, func(rr *RaterReliability) {
		rr.Alpha = clamped
		rr.RatingsGiven++
	})
}

// RaterReliability returns the current coefficient for a rater.
func (e *Engine) RaterReliability(ctx context.Context, raterID string) (RaterReliability, error) {
	return e.store.Rater(ctx, raterID)
}

// ProjectRating averages the adjusted ratings a ratee received on one
// project. ErrNoRatings when the pair has no records.
func (e *Engine) ProjectRating(ctx context.Context, rateeID, projectID string) (float64, int, error) {
	records, err := e.store.RatingsByRatee(ctx, rateeID)
	if err != nil {
		return 0, 0, err
	}

	var sum float64
	count := 0
	for _, r := range records {
		if r.ProjectID == projectID {
			sum += r.AdjustedRating
			count++
		}
	}
	if count == 0 {
		return 0, 0, fmt.Errorf("%w: ratee %s project %s", ErrNoRatings, rateeID, projectID)
	}
	return round3(sum / float64(count)), count, nil
}

// Global computes the Bayesian-smoothed global rating:
//
//	global = (C*mu + sum of per-project averages) / (C + P)
//
// Multiple raters on the same project contribute one averaged value. A
// ratee with no rated projects gets exactly the prior mean.
func (e *Engine) Global(ctx context.Context, rateeID string) (GlobalRating, error) {
	records, err := e.store.RatingsByRatee(ctx, rateeID)
	if err != nil {
		return GlobalRating{}, err
	}
	return globalFromRecords(records), nil
}

// Summarize builds the reporting view: per-category stats, per-project
// breakdowns with rater detail, and the global aggregate.
func (e *Engine) Summarize(ctx context.Context, rateeID string) (Summary, error) {
	records, err := e.store.RatingsByRatee(ctx, rateeID)
	if err != nil {
		return Summary{}, err
	}

	s := Summary{
		RateeID:      rateeID,
		TotalRatings: len(records),
		Categories:   make(map[Category]CategoryStats),
		Projects:     make(map[string]ProjectSummary),
		Global:       globalFromRecords(records),
	}

	for _, cat := range Categories() {
		var sum, minV, maxV float64
		count := 0
		for _, r := range records {
			score, ok := r.CategoryScores[cat]
			if !ok {
				continue
			}
			if count == 0 || score < minV {
				minV = score
			}
			if count == 0 || score > maxV {
				maxV = score
			}
			sum += score
			count++
		}
		if count > 0 {
			s.Categories[cat] = CategoryStats{
				Average: round3(sum / float64(count)),
				Min:     minV,
				Max:     maxV,
				Count:   count,
			}
		}
	}

	for _, r := range records {
		ps := s.Projects[r.ProjectID]
		ps.Raters++
		ps.Detail = append(ps.Detail, RaterDetail{
			RaterID:        r.RaterID,
			AdjustedRating: r.AdjustedRating,
			RaterAlpha:     r.RaterAlpha,
		})
		s.Projects[r.ProjectID] = ps
	}
	for id, ps := range s.Projects {
		var sum float64
		for _, d := range ps.Detail {
			sum += d.AdjustedRating
		}
		ps.Rating = round3(sum / float64(ps.Raters))
		s.Projects[id] = ps
	}

	return s, nil
}

func validateScores(scores map[Category]float64) error {
	for cat, score := range scores {
		if _, ok := categoryWeights[cat]; !ok {
			return fmt.Errorf("%w: %q", ErrUnknownCategory, cat)
		}
		if score < minScore || score > maxScore {
			return fmt.Errorf("%w: %s=%v", ErrScoreOutOfRange, cat, score)
		}
	}
	return nil
}

// rawRating is the weighted sum over the fixed categories; categories absent
// from the submission contribute nothing.
func rawRating(scores map[Category]float64) float64 {
	var raw float64
	for cat, score := range scores {
		raw += categoryWeights[cat] * score
	}
	return round3(raw)
}

func globalFromRecords(records []Record) GlobalRating {
	byProject := make(map[string][]float64)
	for _, r := range records {
		byProject[r.ProjectID] = append(byProject[r.ProjectID], r.AdjustedRating)
	}

	if len(byProject) == 0 {
		return GlobalRating{Value: priorMean, ProjectsRated: 0, TotalRatings: 0}
	}

	var sum float64
	for _, adjusted := range byProject {
		var projectSum float64
		for _, a := range adjusted {
			projectSum += a
		}
		sum += round3(projectSum / float64(len(adjusted)))
	}

	p := float64(len(byProject))
	return GlobalRating{
		Value:         round3((priorConfidence*priorMean + sum) / (priorConfidence + p)),
		ProjectsRated: len(byProject),
		TotalRatings:  len(records),
	}
}

func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
