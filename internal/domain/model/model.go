// Package model contains domain models passed between layers.
package model

import "strings"

// EmbeddingVector is an ordered, fixed-length sequence of floats produced by
// an embedding adapter. Dimensionality is fixed per deployment; re-embedding
// an entity replaces the vector wholesale.
type EmbeddingVector []float64

// ExperienceLevel is an ordered enum: beginner < intermediate < advanced.
type ExperienceLevel string

const (
	ExperienceBeginner     ExperienceLevel = "beginner"
	ExperienceIntermediate ExperienceLevel = "intermediate"
	ExperienceAdvanced     ExperienceLevel = "advanced"
)

// Value returns the ordinal position of the level (beginner=1 .. advanced=3).
// Unknown levels are treated as intermediate.
func (e ExperienceLevel) Value() int {
	switch ExperienceLevel(strings.ToLower(string(e))) {
	case ExperienceBeginner:
		return 1
	case ExperienceIntermediate:
		return 2
	case ExperienceAdvanced:
		return 3
	default:
		return 2
	}
}

// Availability captures how much time a candidate can commit.
type Availability string

const (
	AvailabilityLow    Availability = "low"
	AvailabilityMedium Availability = "medium"
	AvailabilityHigh   Availability = "high"
)

// ProjectType classifies a project; it determines the preferred experience
// set and the capability/trust blend weight.
type ProjectType string

const (
	ProjectHackathon  ProjectType = "hackathon"
	ProjectResearch   ProjectType = "research"
	ProjectStartup    ProjectType = "startup"
	ProjectOpenSource ProjectType = "open_source"
)

// SkillSet groups a candidate's skills by category, as produced by the
// resume parsing adapter.
type SkillSet struct {
	Languages    []string `json:"languages"`
	Frameworks   []string `json:"frameworks"`
	Tools        []string `json:"tools"`
	DomainSkills []string `json:"domain_skills"`
}

// All flattens every category into a single list.
func (s SkillSet) All() []string {
	out := make([]string, 0, len(s.Languages)+len(s.Frameworks)+len(s.Tools)+len(s.DomainSkills))
	out = append(out, s.Languages...)
	out = append(out, s.Frameworks...)
	out = append(out, s.Tools...)
	out = append(out, s.DomainSkills...)
	return out
}

// ReputationSignals carries the counts backing the reliability score.
type ReputationSignals struct {
	CompletedProjects int `json:"completed_projects"`
	DroppedProjects   int `json:"dropped_projects"`
}

// CandidateProfile holds the attributes relevant to matching. It is owned by
// the candidate and rewritten whenever the source resume is reprocessed.
type CandidateProfile struct {
	ID               string                     `json:"id"`
	Name             string                     `json:"name"`
	Skills           SkillSet                   `json:"skills"`
	Experience       ExperienceLevel            `json:"experience"`
	DomainExperience map[string]ExperienceLevel `json:"domain_experience,omitempty"`
	Availability     Availability               `json:"availability"`
	Reputation       ReputationSignals          `json:"reputation"`
}

// ProjectRequirement is a project's matching contract. Immutable per matching
// run; a new parse creates a new version.
type ProjectRequirement struct {
	ID             string      `json:"id"`
	Title          string      `json:"title"`
	Type           ProjectType `json:"type"`
	RequiredSkills []string    `json:"required_skills"`
	TeamSize       int         `json:"team_size"`
}

// CapabilityBreakdown exposes the capability composite and its sub-scores.
type CapabilityBreakdown struct {
	Score      float64 `json:"score"`
	Semantic   float64 `json:"semantic"`
	Skills     float64 `json:"skills"`
	Experience float64 `json:"experience"`
}

// TrustBreakdown exposes the trust composite and its sub-scores.
type TrustBreakdown struct {
	Score           float64 `json:"score"`
	Rating          float64 `json:"rating"`
	Reliability     float64 `json:"reliability"`
	CompletionRatio float64 `json:"completion_ratio"`
}

// MatchResult is the per-candidate output of a matching run. It is computed
// per request and not persisted.
type MatchResult struct {
	CandidateID   string              `json:"candidate_id"`
	Name          string              `json:"name"`
	FinalScore    float64             `json:"final_score"`
	Alpha         float64             `json:"alpha"`
	SemanticLabel string              `json:"semantic_label"`
	Capability    CapabilityBreakdown `json:"capability"`
	Trust         TrustBreakdown      `json:"trust"`
}
