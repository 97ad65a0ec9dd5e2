package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/convergehq/converge/internal/domain/model"
	"github.com/convergehq/converge/pkg/metrics"
)

// CandidateRecord pairs a candidate profile with its embedding.
type CandidateRecord struct {
	Profile   model.CandidateProfile `json:"profile"`
	Embedding model.EmbeddingVector  `json:"embedding"`
}

// ProjectRecord pairs a project requirement with its embedding.
type ProjectRecord struct {
	Requirement model.ProjectRequirement `json:"requirement"`
	Embedding   model.EmbeddingVector    `json:"embedding"`
}

// ProfileStore keeps candidate and project records keyed by id, optionally
// snapshotted to a JSON file. Puts replace the stored record wholesale,
// which is exactly the re-embed/reprocess semantics the pipeline needs.
type ProfileStore struct {
	mu         sync.RWMutex
	candidates map[string]CandidateRecord
	projects   map[string]ProjectRecord

	path string
}

type profileSnapshot struct {
	Candidates map[string]CandidateRecord `json:"candidates"`
	Projects   map[string]ProjectRecord   `json:"projects"`
}

// NewProfileStore creates a profile store, loading the snapshot file when
// one is configured and already exists.
func NewProfileStore(opts ...ProfileOption) (*ProfileStore, error) {
	s := &ProfileStore{
		candidates: make(map[string]CandidateRecord),
		projects:   make(map[string]ProjectRecord),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.path != "" {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("load profile snapshot: %w", err)
		}
	}

	return s, nil
}

func (s *ProfileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}

	var snap profileSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if snap.Candidates != nil {
		s.candidates = snap.Candidates
	}
	if snap.Projects != nil {
		s.projects = snap.Projects
	}
	return nil
}

// persist writes the snapshot atomically. Must be called with s.mu held.
func (s *ProfileStore) persist() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(profileSnapshot{Candidates: s.candidates, Projects: s.projects}, "", "  ")
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

// PutCandidate stores or replaces a candidate and its embedding.
func (s *ProfileStore) PutCandidate(ctx context.Context, profile model.CandidateProfile, embedding model.EmbeddingVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.candidates[profile.ID] = CandidateRecord{Profile: profile, Embedding: embedding}
	if err := s.persist(); err != nil {
		return fmt.Errorf("persist profile snapshot: %w", err)
	}
	metrics.UpdateCandidatesRegistered(len(s.candidates))
	return nil
}

// Candidate returns one candidate record by id.
func (s *ProfileStore) Candidate(ctx context.Context, id string) (CandidateRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.candidates[id]
	if !ok {
		return CandidateRecord{}, fmt.Errorf("%w: %s", ErrCandidateNotFound, id)
	}
	return rec, nil
}

// Candidates returns the whole pool sorted by id so matching runs see a
// deterministic iteration order.
func (s *ProfileStore) Candidates(ctx context.Context) []CandidateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]CandidateRecord, 0, len(s.candidates))
	for _, rec := range s.candidates {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Profile.ID < out[j].Profile.ID
	})
	return out
}

// PutProject stores or replaces a project requirement and its embedding.
func (s *ProfileStore) PutProject(ctx context.Context, req model.ProjectRequirement, embedding model.EmbeddingVector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.projects[req.ID] = ProjectRecord{Requirement: req, Embedding: embedding}
	if err := s.persist(); err != nil {
		return fmt.Errorf("persist profile snapshot: %w", err)
	}
	metrics.UpdateProjectsRegistered(len(s.projects))
	return nil
}

// Project returns one project record by id.
func (s *ProfileStore) Project(ctx context.Context, id string) (ProjectRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.projects[id]
	if !ok {
		return ProjectRecord{}, fmt.Errorf("%w: %s", ErrProjectNotFound, id)
	}
	return rec, nil
}

// CandidateCount returns the number of stored candidates.
func (s *ProfileStore) CandidateCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.candidates)
}

// ProjectCount returns the number of stored projects.
func (s *ProfileStore) ProjectCount(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.projects)
}
