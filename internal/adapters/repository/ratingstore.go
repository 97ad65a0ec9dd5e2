package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/convergehq/converge/internal/domain/rating"
	"github.com/convergehq/converge/pkg/metrics"
)

// RatingStore implements rating.Store with an append-only record log and a
// rater-reliability table, optionally snapshotted to a JSON file so state
// survives restarts.
//
// Concurrency: every rater has a dedicated mutex so the read of the current
// alpha and the append of the new record form one critical section per
// rater. The store-wide RWMutex only guards the maps and the snapshot write.
type RatingStore struct {
	mu      sync.RWMutex
	records []rating.Record
	raters  map[string]rating.RaterReliability
	byRatee map[string][]int

	raterLocks sync.Map // rater id -> *sync.Mutex

	path string
}

// ratingSnapshot is the on-disk shape of the store.
type ratingSnapshot struct {
	Records []rating.Record                     `json:"records"`
	Raters  map[string]rating.RaterReliability `json:"raters"`
}

// NewRatingStore creates a rating store, loading the snapshot file when one
// is configured and already exists.
func NewRatingStore(opts ...RatingOption) (*RatingStore, error) {
	s := &RatingStore{
		raters:  make(map[string]rating.RaterReliability),
		byRatee: make(map[string][]int),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.path != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("load rating snapshot: %w", err)
		}
	}

	return s, nil
}

func (s *RatingStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap ratingSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	s.records = snap.Records
	if snap.Raters != nil {
		s.raters = snap.Raters
	}
	for i, r := range s.records {
		s.byRatee[r.RateeID] = append(s.byRatee[r.RateeID], i)
	}
	return nil
}

// persist writes the snapshot atomically. Must be called with s.mu held.
func (s *RatingStore) persist() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(ratingSnapshot{Records: s.records, Raters: s.raters}, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *RatingStore) raterLock(raterID string) *sync.Mutex {
	lock, _ := s.raterLocks.LoadOrStore(raterID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// SubmitRating builds a record with the rater's current alpha and appends
// it, all under the rater's lock so concurrent submissions for the same
// rater cannot lose an update.
func (s *RatingStore) SubmitRating(ctx context.Context, raterID string, build func(alpha float64) (rating.Record, error)) (rating.Record, error) {
	lock := s.raterLock(raterID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.RLock()
	rr, ok := s.raters[raterID]
	s.mu.RUnlock()
	if !ok {
		rr = rating.RaterReliability{RaterID: raterID, Alpha: 1.0, CreatedAt: time.Now()}
	}

	rec, err := build(rr.Alpha)
	if err != nil {
		return rating.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Sequence = len(s.records)
	s.records = append(s.records, rec)
	s.byRatee[rec.RateeID] = append(s.byRatee[rec.RateeID], len(s.records)-1)

	rr.RatingsGiven++
	s.raters[raterID] = rr

	if err := s.persist(); err != nil {
		return rating.Record{}, fmt.Errorf("persist rating snapshot: %w", err)
	}

	metrics.UpdateRatingsStored(len(s.records))
	return rec, nil
}

// RatingsByRatee returns every record the ratee received, in append order.
func (s *RatingStore) RatingsByRatee(ctx context.Context, rateeID string) ([]rating.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	indices := s.byRatee[rateeID]
	out := make([]rating.Record, 0, len(indices))
	for _, i := range indices {
		out = append(out, s.records[i])
	}
	return out, nil
}

// Rater returns the reliability entry for a rater.
func (s *RatingStore) Rater(ctx context.Context, raterID string) (rating.RaterReliability, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rr, ok := s.raters[raterID]
	if !ok {
		return rating.RaterReliability{}, rating.ErrRaterNotFound
	}
	return rr, nil
}

// UpdateRater applies fn under the rater's lock, initializing new raters at
// alpha 1.0, and persists the result.
func (s *RatingStore) UpdateRater(ctx context.Context, raterID string, fn func(*rating.RaterReliability)) (rating.RaterReliability, error) {
	lock := s.raterLock(raterID)
	lock.Lock()
	defer lock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rr, ok := s.raters[raterID]
	if !ok {
		rr = rating.RaterReliability{RaterID: raterID, Alpha: 1.0, CreatedAt: time.Now()}
	}
	fn(&rr)
	s.raters[raterID] = rr

	if err := s.persist(); err != nil {
		return rating.RaterReliability{}, fmt.Errorf("persist rating snapshot: %w", err)
	}
	return rr, nil
}

// Count returns the number of stored rating records.
func (s *RatingStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
