package testmatch

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/convergehq/converge/pkg/logger"
	"github.com/google/uuid"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	profileTypeDivisor = 6
)

// Constants for profile archetype cases.
const (
	caseStrongBackend  = 0
	caseStrongData     = 1
	caseFrontend       = 2
	caseGeneralist     = 3
	caseJunior         = 4
	caseUnrelatedField = 5
)

var (
	backendLanguages  = []string{"go", "rust", "java"}
	dataLanguages     = []string{"python", "scala", "sql"}
	frontendLanguages = []string{"typescript", "javascript"}
	backendTools      = []string{"kafka", "postgres", "redis", "docker", "kubernetes"}
	dataTools         = []string{"spark", "airflow", "postgres", "s3"}
	frontendTools     = []string{"react", "webpack", "figma"}
	unrelatedSkills   = []string{"watercolor", "ceramics", "gardening"}

	experienceLevels   = []string{"beginner", "intermediate", "advanced"}
	availabilityLevels = []string{"low", "medium", "high"}
)

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

// getRandomInt returns a random int in [0, max) using crypto/rand.
func getRandomInt(max int64) int {
	n, _ := rand.Int(rand.Reader, big.NewInt(max))
	return int(n.Int64())
}

// pickSome returns a random non-empty subset of the given options.
func pickSome(options []string) []string {
	count := 1 + getRandomInt(int64(len(options)))
	picked := make([]string, 0, count)
	seen := make(map[string]bool, count)
	for len(picked) < count {
		option := options[getRandomInt(int64(len(options)))]
		if !seen[option] {
			seen[option] = true
			picked = append(picked, option)
		}
	}
	return picked
}

// generateCandidates creates the specified number of candidates with unique IDs.
func generateCandidates(ctx context.Context, config *Config, stats *Stats) ([]Candidate, error) {
	logger.Get().Info(ctx, "generating candidates with unique IDs", logger.Int("numCandidates", config.NumCandidates))

	candidates := make([]Candidate, config.NumCandidates)

	// Pre-allocate candidate IDs to ensure uniqueness
	candidateIDs := make([]string, config.NumCandidates)
	for i := 0; i < config.NumCandidates; i++ {
		candidateIDs[i] = uuid.New().String()
	}

	// Generate candidates concurrently
	type candidateResult struct {
		index     int
		candidate Candidate
		err       error
	}

	resultChan := make(chan candidateResult, config.NumCandidates)

	// Use worker pool for candidate generation
	workerCount := minInt(config.Workers, config.NumCandidates)
	candidatesPerWorker := config.NumCandidates / workerCount

	for worker := 0; worker < workerCount; worker++ {
		start := worker * candidatesPerWorker
		end := start + candidatesPerWorker
		if worker == workerCount-1 {
			end = config.NumCandidates // Last worker gets remaining candidates
		}

		go func(start, end int) {
			for i := start; i < end; i++ {
				select {
				case <-ctx.Done():
					resultChan <- candidateResult{index: i, err: ctx.Err()}
					return
				default:
					candidate := generateSingleCandidate(i, candidateIDs[i])
					resultChan <- candidateResult{index: i, candidate: candidate, err: nil}
				}
			}
		}(start, end)
	}

	// Collect results
	for i := 0; i < config.NumCandidates; i++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during candidate generation: %w", ctx.Err())
		case result := <-resultChan:
			if result.err != nil {
				return nil, fmt.Errorf("failed to generate candidate %d: %w", result.index, result.err)
			}
			candidates[result.index] = result.candidate
		}
	}

	stats.CandidatesGenerated = len(candidates)
	logger.Get().Info(ctx, "generated candidates successfully", logger.Int("count", len(candidates)))

	return candidates, nil
}

// generateSingleCandidate creates a single candidate with the given index and ID.
func generateSingleCandidate(index int, candidateID string) Candidate {
	name := "candidate-" + strconv.Itoa(index)
	completed := getRandomInt(20)
	dropped := getRandomInt(4)

	archetype := getRandomInt(profileTypeDivisor)
	switch archetype {
	case caseStrongBackend:
		return Candidate{
			ID:   candidateID,
			Name: name,
			Skills: SkillSet{
				Languages:    pickSome(backendLanguages),
				Tools:        pickSome(backendTools),
				DomainSkills: []string{"distributed systems", "streaming"},
			},
			Experience:   "advanced",
			DomainExp:    map[string]string{"backend": "advanced"},
			Availability: availabilityLevels[getRandomInt(3)],
			Reputation:   Reputation{CompletedProjects: completed, DroppedProjects: dropped},
		}
	case caseStrongData:
		return Candidate{
			ID:   candidateID,
			Name: name,
			Skills: SkillSet{
				Languages:    pickSome(dataLanguages),
				Tools:        pickSome(dataTools),
				DomainSkills: []string{"data pipelines", "etl"},
			},
			Experience:   experienceLevels[1+getRandomInt(2)],
			DomainExp:    map[string]string{"data": "intermediate"},
			Availability: availabilityLevels[getRandomInt(3)],
			Reputation:   Reputation{CompletedProjects: completed, DroppedProjects: dropped},
		}
	case caseFrontend:
		return Candidate{
			ID:   candidateID,
			Name: name,
			Skills: SkillSet{
				Languages:    pickSome(frontendLanguages),
				Frameworks:   []string{"react"},
				Tools:        pickSome(frontendTools),
				DomainSkills: []string{"web interfaces"},
			},
			Experience:   experienceLevels[getRandomInt(3)],
			Availability: availabilityLevels[getRandomInt(3)],
			Reputation:   Reputation{CompletedProjects: completed, DroppedProjects: dropped},
		}
	case caseGeneralist:
		return Candidate{
			ID:   candidateID,
			Name: name,
			Skills: SkillSet{
				Languages:    append(pickSome(backendLanguages), pickSome(frontendLanguages)...),
				Tools:        pickSome(backendTools),
				DomainSkills: []string{"backend services"},
			},
			Experience:   "intermediate",
			Availability: availabilityLevels[getRandomInt(3)],
			Reputation:   Reputation{CompletedProjects: completed, DroppedProjects: dropped},
		}
	case caseJunior:
		return Candidate{
			ID:   candidateID,
			Name: name,
			Skills: SkillSet{
				Languages: []string{backendLanguages[getRandomInt(3)]},
			},
			Experience:   "beginner",
			Availability: availabilityLevels[getRandomInt(3)],
			Reputation:   Reputation{CompletedProjects: getRandomInt(3), DroppedProjects: getRandomInt(2)},
		}
	default:
		// Unrelated profiles should be gated out by the relevance check
		return Candidate{
			ID:   candidateID,
			Name: name,
			Skills: SkillSet{
				DomainSkills: pickSome(unrelatedSkills),
			},
			Experience:   experienceLevels[getRandomInt(3)],
			Availability: availabilityLevels[getRandomInt(3)],
			Reputation:   Reputation{CompletedProjects: completed, DroppedProjects: dropped},
		}
	}
}

// generateProject creates the project the pool is matched against.
func generateProject() Project {
	return Project{
		ID:             "proj-" + uuid.New().String(),
		Title:          "realtime analytics pipeline for distributed event streams",
		Type:           "startup",
		RequiredSkills: []string{"go", "kafka", "postgres"},
		TeamSize:       4,
	}
}

// generateRatings creates peer ratings between random pool members.
func generateRatings(config *Config, candidates []Candidate, projectID string) []Rating {
	ratings := make([]Rating, 0, config.NumRatings)
	for i := 0; i < config.NumRatings; i++ {
		rater := candidates[getRandomInt(int64(len(candidates)))]
		ratee := candidates[getRandomInt(int64(len(candidates)))]
		if rater.ID == ratee.ID {
			continue
		}
		base := 2.0 + getRandomFloat()*3.0
		ratings = append(ratings, Rating{
			RaterID:   rater.ID,
			RateeID:   ratee.ID,
			ProjectID: projectID,
			Scores: map[string]float64{
				"technical":     clampScore(base + getRandomFloat() - 0.5),
				"reliability":   clampScore(base + getRandomFloat() - 0.5),
				"communication": clampScore(base + getRandomFloat() - 0.5),
				"initiative":    clampScore(base + getRandomFloat() - 0.5),
				"overall":       clampScore(base),
			},
		})
	}
	return ratings
}

// clampScore keeps generated scores inside the 1..5 rating scale.
func clampScore(s float64) float64 {
	if s < 1.0 {
		return 1.0
	}
	if s > 5.0 {
		return 5.0
	}
	return s
}

// minInt returns the minimum of two integers.
func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
