// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/convergehq/converge/internal/adapters/embedding"
	jobqueue "github.com/convergehq/converge/internal/adapters/mq/queue"
	workerpool "github.com/convergehq/converge/internal/adapters/mq/worker"
	"github.com/convergehq/converge/internal/adapters/repository"
	"github.com/convergehq/converge/internal/domain/model"
	"github.com/convergehq/converge/internal/domain/rating"
	"github.com/convergehq/converge/internal/domain/scoring"
	"github.com/convergehq/converge/internal/domain/semantic"
	"github.com/convergehq/converge/pkg/logger"
	"github.com/convergehq/converge/pkg/metrics"
)

// evaluator implements workerpool.Matcher: gate first, and only compose
// the full score for candidates that clear it.
type evaluator struct{}

func (evaluator) Match(ctx context.Context, j workerpool.Job) (model.MatchResult, bool, error) {
	verdict, err := semantic.Gate(j.ProjectEmbedding, j.CandidateEmbedding)
	if err != nil {
		return model.MatchResult{}, false, fmt.Errorf("gate candidate %s: %w", j.Candidate.ID, err)
	}
	if !verdict.Passes {
		return model.MatchResult{}, false, nil
	}
	return scoring.Compose(j.Project, j.Candidate, verdict, j.GlobalRating), true, nil
}

// matchRun collects the outcomes of one fan-out.
type matchRun struct {
	mu        sync.Mutex
	remaining int
	hits      []scoredHit
	done      chan struct{}
}

type scoredHit struct {
	index  int
	result model.MatchResult
}

// Service implements the API dependencies for the matching system.
type Service struct {
	mu sync.RWMutex

	// Core components
	profiles *repository.ProfileStore
	ratings  *repository.RatingStore
	engine   *rating.Engine
	embedder embedding.Embedder
	jobQueue jobqueue.Queue
	pool     *workerpool.Pool

	// Configuration
	workerCount  int
	queueSize    int
	defaultTopN  int
	maxTopN      int
	embeddingDim int
	ratingsPath  string
	profilesPath string
	matchTimeout time.Duration

	// In-flight match runs keyed by run id.
	runs sync.Map

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the job queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDefaultTopN sets the result count used when a request does not ask
// for one.
func WithDefaultTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.defaultTopN = n
		}
	}
}

// WithMaxTopN caps the requested result count.
func WithMaxTopN(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxTopN = n
		}
	}
}

// WithEmbedder injects the embedder used for profiles and projects.
func WithEmbedder(e embedding.Embedder) Option {
	return func(s *Service) {
		if e != nil {
			s.embedder = e
		}
	}
}

// WithEmbeddingDimension sets the vector length of the default hash
// embedder. Ignored when an embedder is injected.
func WithEmbeddingDimension(dim int) Option {
	return func(s *Service) {
		if dim > 0 {
			s.embeddingDim = dim
		}
	}
}

// WithRatingsPath sets the rating snapshot file.
func WithRatingsPath(path string) Option {
	return func(s *Service) {
		s.ratingsPath = path
	}
}

// WithProfilesPath sets the profile snapshot file.
func WithProfilesPath(path string) Option {
	return func(s *Service) {
		s.profilesPath = path
	}
}

// WithMatchTimeout bounds how long a match run may take.
func WithMatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.matchTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:  runtime.NumCPU() * 4,
		queueSize:    100000,
		defaultTopN:  5,
		maxTopN:      100,
		embeddingDim: 256,
		matchTimeout: 30 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting matching service...")

	profiles, err := repository.NewProfileStore(repository.WithProfilePath(s.profilesPath))
	if err != nil {
		return fmt.Errorf("open profile store: %w", err)
	}
	s.profiles = profiles

	ratings, err := repository.NewRatingStore(repository.WithRatingPath(s.ratingsPath))
	if err != nil {
		return fmt.Errorf("open rating store: %w", err)
	}
	s.ratings = ratings
	s.engine = rating.New(ratings)

	if s.embedder == nil {
		s.embedder = embedding.NewHashEmbedder(embedding.WithDimension(s.embeddingDim))
	}

	s.jobQueue = jobqueue.NewInMemoryQueue(
		jobqueue.WithCapacity(s.queueSize),
		jobqueue.WithBufferSize(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.jobQueue, evaluator{}, s)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "matching service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("candidates", s.profiles.CandidateCount(ctx)),
		logger.Int("projects", s.profiles.ProjectCount(ctx)),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping matching service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "matching service stopped")
}

// Deliver implements workerpool.Sink. Outcomes for unknown runs are
// dropped; that happens when a run already timed out and unregistered
// itself.
func (s *Service) Deliver(ctx context.Context, runID string, index int, result model.MatchResult, matched bool) {
	v, ok := s.runs.Load(runID)
	if !ok {
		return
	}
	run := v.(*matchRun)

	run.mu.Lock()
	defer run.mu.Unlock()

	if run.remaining == 0 {
		return
	}
	if matched {
		run.hits = append(run.hits, scoredHit{index: index, result: result})
	}
	run.remaining--
	if run.remaining == 0 {
		close(run.done)
	}
}

// Match ranks the candidate pool against a registered project and returns
// the top N results. topN <= 0 selects the configured default; requests
// above the configured maximum are capped.
func (s *Service) Match(ctx context.Context, projectID string, topN int) ([]model.MatchResult, error) {
	if !s.running() {
		return nil, ErrNotStarted
	}

	start := time.Now()
	defer func() {
		metrics.RecordMatchRunDuration(float64(time.Since(start).Milliseconds()))
	}()
	metrics.RecordMatchRun()

	if topN <= 0 {
		topN = s.defaultTopN
	}
	if topN > s.maxTopN {
		topN = s.maxTopN
	}

	project, err := s.profiles.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}

	candidates := s.profiles.Candidates(ctx)
	if len(candidates) == 0 {
		return []model.MatchResult{}, nil
	}

	runID := uuid.New().String()
	run := &matchRun{
		remaining: len(candidates),
		done:      make(chan struct{}),
	}
	s.runs.Store(runID, run)
	defer s.runs.Delete(runID)

	for i, cand := range candidates {
		global, err := s.engine.Global(ctx, cand.Profile.ID)
		if err != nil {
			s.logger.Warn(ctx, "global rating lookup failed, skipping candidate",
				logger.String("candidateID", cand.Profile.ID),
				logger.Error(err),
			)
			s.Deliver(ctx, runID, i, model.MatchResult{}, false)
			continue
		}

		ok := s.jobQueue.Enqueue(ctx, jobqueue.Job{
			RunID:              runID,
			Index:              i,
			Project:            project.Requirement,
			ProjectEmbedding:   project.Embedding,
			Candidate:          cand.Profile,
			CandidateEmbedding: cand.Embedding,
			GlobalRating:       global.Value,
		})
		if !ok {
			s.logger.Warn(ctx, "job queue rejected candidate",
				logger.String("candidateID", cand.Profile.ID),
			)
			s.Deliver(ctx, runID, i, model.MatchResult{}, false)
		}
	}

	select {
	case <-run.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.matchTimeout):
		return nil, ErrMatchTimeout
	}

	run.mu.Lock()
	hits := make([]scoredHit, len(run.hits))
	copy(hits, run.hits)
	run.mu.Unlock()

	// Restore pool order before ranking so the stable sort breaks ties
	// by original iteration order.
	sort.Slice(hits, func(i, j int) bool { return hits[i].index < hits[j].index })
	results := make([]model.MatchResult, len(hits))
	for i, h := range hits {
		results[i] = h.result
	}

	return scoring.Rank(results, topN), nil
}

// running reports whether Start has completed.
func (s *Service) running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// RegisterCandidate embeds the profile and stores it. Re-registering an id
// replaces the profile and its embedding wholesale.
func (s *Service) RegisterCandidate(ctx context.Context, profile model.CandidateProfile) error {
	if !s.running() {
		return ErrNotStarted
	}
	vec, err := s.embedder.Embed(ctx, embedding.CandidateText(profile))
	if err != nil {
		return fmt.Errorf("embed candidate %s: %w", profile.ID, err)
	}
	return s.profiles.PutCandidate(ctx, profile, vec)
}

// RegisterProject embeds the requirement and stores it.
func (s *Service) RegisterProject(ctx context.Context, req model.ProjectRequirement) error {
	if !s.running() {
		return ErrNotStarted
	}
	vec, err := s.embedder.Embed(ctx, embedding.ProjectText(req))
	if err != nil {
		return fmt.Errorf("embed project %s: %w", req.ID, err)
	}
	return s.profiles.PutProject(ctx, req, vec)
}

// SubmitRating records a multi-category peer rating.
func (s *Service) SubmitRating(ctx context.Context, raterID, rateeID, projectID string, scores map[rating.Category]float64) (rating.Record, error) {
	if !s.running() {
		return rating.Record{}, ErrNotStarted
	}
	rec, err := s.engine.Submit(ctx, raterID, rateeID, projectID, scores)
	if err != nil {
		return rating.Record{}, err
	}
	metrics.RecordRatingSubmitted()
	return rec, nil
}

// GlobalRating returns the Bayesian global rating for a candidate.
func (s *Service) GlobalRating(ctx context.Context, rateeID string) (rating.GlobalRating, error) {
	if !s.running() {
		return rating.GlobalRating{}, ErrNotStarted
	}
	return s.engine.Global(ctx, rateeID)
}

// RatingSummary returns per-category and per-project rating detail.
func (s *Service) RatingSummary(ctx context.Context, rateeID string) (rating.Summary, error) {
	if !s.running() {
		return rating.Summary{}, ErrNotStarted
	}
	return s.engine.Summarize(ctx, rateeID)
}

// UpdateRaterReliability sets a rater's credibility weight, clamped to the
// allowed range.
func (s *Service) UpdateRaterReliability(ctx context.Context, raterID string, alpha float64) (rating.RaterReliability, error) {
	if !s.running() {
		return rating.RaterReliability{}, ErrNotStarted
	}
	return s.engine.UpdateRaterReliability(ctx, raterID, alpha)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"defaultTopN": s.defaultTopN,
	}

	if s.started {
		stats["queueLength"] = s.jobQueue.Len(ctx)
		stats["candidates"] = s.profiles.CandidateCount(ctx)
		stats["projects"] = s.profiles.ProjectCount(ctx)
		stats["ratings"] = s.ratings.Count(ctx)
	}

	return stats
}
