// Package scoring computes the two-layer match score: a capability and
// alignment layer over semantic/skill/experience signals, and a trust and
// execution layer over rating/reliability signals, blended per project type.
package scoring

import (
	"math"
	"sort"
	"strings"

	"github.com/convergehq/converge/internal/domain/model"
	"github.com/convergehq/converge/internal/domain/semantic"
)

// Capability layer weights (sum to 1.0).
const (
	semanticWeight   = 0.45
	skillsWeight     = 0.35
	experienceWeight = 0.20
)

// Trust layer weights (sum to 1.0).
const (
	ratingWeight      = 0.55
	reliabilityWeight = 0.45
)

// Reliability constants: completion-ratio epsilon, the confidence constant t
// in gamma = 1 - e^(-n/t), and the prior for unproven candidates.
const (
	completionEpsilon  = 1e-6
	confidenceConstant = 3.0
	reliabilityPrior   = 0.6
)

// neutralRatingScore is used when the global rating carries the "no data"
// sentinel value of 0.
const neutralRatingScore = 0.5

// Experience alignment scores by distance from the nearest preferred level.
const (
	alignedScore  = 1.0
	adjacentScore = 0.7
	distantScore  = 0.3
)

// defaultAlpha blends capability vs trust for unknown project types.
const defaultAlpha = 0.65

// preferredExperience maps each project type to the experience levels it
// wants. Alignment is closeness to these, not seniority.
var preferredExperience = map[model.ProjectType][]model.ExperienceLevel{
	model.ProjectHackathon:  {model.ExperienceBeginner, model.ExperienceIntermediate},
	model.ProjectResearch:   {model.ExperienceIntermediate, model.ExperienceAdvanced},
	model.ProjectStartup:    {model.ExperienceIntermediate, model.ExperienceAdvanced},
	model.ProjectOpenSource: {model.ExperienceBeginner, model.ExperienceIntermediate},
}

// alphaByType is the capability share of the final blend per project type.
var alphaByType = map[model.ProjectType]float64{
	model.ProjectHackathon:  0.65,
	model.ProjectResearch:   0.70,
	model.ProjectStartup:    0.65,
	model.ProjectOpenSource: 0.60,
}

// availabilitySignal maps availability to its reliability contribution.
var availabilitySignal = map[model.Availability]float64{
	model.AvailabilityLow:    0.3,
	model.AvailabilityMedium: 0.6,
	model.AvailabilityHigh:   1.0,
}

// SkillMatch scores the overlap between required and possessed skills.
// Matching is case-insensitive and exact; no fuzzy credit. An empty
// requirement list is trivially satisfied.
func SkillMatch(required []string, skills model.SkillSet) float64 {
	if len(required) == 0 {
		return 1.0
	}

	have := make(map[string]struct{})
	for _, s := range skills.All() {
		have[strings.ToLower(s)] = struct{}{}
	}

	want := make(map[string]struct{})
	for _, s := range required {
		want[strings.ToLower(s)] = struct{}{}
	}

	matched := 0
	for s := range want {
		if _, ok := have[s]; ok {
			matched++
		}
	}
	return math.Min(1.0, float64(matched)/float64(len(want)))
}

// ExperienceAlignment scores how close a candidate's level is to the
// project type's preferred set: 1.0 in-set, 0.7 one level away, 0.3 further.
func ExperienceAlignment(projectType model.ProjectType, level model.ExperienceLevel) float64 {
	preferred, ok := preferredExperience[projectType]
	if !ok {
		preferred = []model.ExperienceLevel{model.ExperienceIntermediate}
	}

	normalized := model.ExperienceLevel(strings.ToLower(string(level)))
	for _, p := range preferred {
		if normalized == p {
			return alignedScore
		}
	}

	minDist := math.MaxInt32
	for _, p := range preferred {
		if d := abs(normalized.Value() - p.Value()); d < minDist {
			minDist = d
		}
	}
	switch {
	case minDist == 0:
		return alignedScore
	case minDist == 1:
		return adjacentScore
	default:
		return distantScore
	}
}

// Capability combines the semantic, skill and experience sub-scores into the
// capability and alignment layer.
func Capability(similarity float64, req model.ProjectRequirement, cand model.CandidateProfile) model.CapabilityBreakdown {
	skills := SkillMatch(req.RequiredSkills, cand.Skills)
	experience := ExperienceAlignment(req.Type, cand.Experience)

	composite := semanticWeight*similarity + skillsWeight*skills + experienceWeight*experience

	return model.CapabilityBreakdown{
		Score:      round4(clamp01(composite)),
		Semantic:   round4(similarity),
		Skills:     round4(skills),
		Experience: round4(experience),
	}
}

// Reliability scores execution dependability from the completion ratio and
// availability, blended against a prior by a confidence factor that grows
// with the number of observed projects.
func Reliability(completed, dropped int, availability model.Availability) float64 {
	a, ok := availabilitySignal[model.Availability(strings.ToLower(string(availability)))]
	if !ok {
		a = availabilitySignal[model.AvailabilityMedium]
	}

	ratio := CompletionRatio(completed, dropped)
	base := 0.7*ratio + 0.3*a

	n := float64(completed + dropped)
	gamma := 1.0 - math.Exp(-n/confidenceConstant)

	return round4(clamp01(gamma*base + (1.0-gamma)*reliabilityPrior))
}

// CompletionRatio is Pc / (Pc + Pd + eps); the epsilon keeps a zero-history
// candidate at ~0 instead of dividing by zero.
func CompletionRatio(completed, dropped int) float64 {
	return float64(completed) / (float64(completed) + float64(dropped) + completionEpsilon)
}

// RatingSubScore normalizes a 1-5 global rating onto [0,1]. A rating of
// exactly 0 is the "no rating data" sentinel and maps to neutral 0.5.
func RatingSubScore(globalRating float64) float64 {
	if globalRating == 0 {
		return neutralRatingScore
	}
	return clamp01((globalRating - 1.0) / 4.0)
}

// Trust combines the rating and reliability sub-scores into the trust and
// execution layer.
func Trust(globalRating float64, cand model.CandidateProfile) model.TrustBreakdown {
	rating := RatingSubScore(globalRating)
	reliability := Reliability(cand.Reputation.CompletedProjects, cand.Reputation.DroppedProjects, cand.Availability)

	composite := ratingWeight*rating + reliabilityWeight*reliability

	return model.TrustBreakdown{
		Score:           round4(clamp01(composite)),
		Rating:          round4(rating),
		Reliability:     reliability,
		CompletionRatio: round4(CompletionRatio(cand.Reputation.CompletedProjects, cand.Reputation.DroppedProjects)),
	}
}

// Alpha returns the capability share of the final blend for a project type.
func Alpha(projectType model.ProjectType) float64 {
	if a, ok := alphaByType[projectType]; ok {
		return a
	}
	return defaultAlpha
}

// Final blends capability against trust with the project-type alpha.
func Final(capability, trust float64, projectType model.ProjectType) float64 {
	a := Alpha(projectType)
	return round4(clamp01(a*capability + (1.0-a)*trust))
}

// Compose runs the full scoring pipeline for one gated candidate and returns
// the match result with every sub-score exposed.
func Compose(req model.ProjectRequirement, cand model.CandidateProfile, verdict semantic.Verdict, globalRating float64) model.MatchResult {
	capability := Capability(verdict.Similarity, req, cand)
	trust := Trust(globalRating, cand)

	return model.MatchResult{
		CandidateID:   cand.ID,
		Name:          cand.Name,
		FinalScore:    Final(capability.Score, trust.Score, req.Type),
		Alpha:         Alpha(req.Type),
		SemanticLabel: string(verdict.Label),
		Capability:    capability,
		Trust:         trust,
	}
}

// Rank sorts results descending by final score (stable, so ties keep their
// original iteration order) and truncates to topN.
func Rank(results []model.MatchResult, topN int) []model.MatchResult {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].FinalScore > results[j].FinalScore
	})
	if topN > 0 && len(results) > topN {
		results = results[:topN]
	}
	return results
}

func clamp01(x float64) float64 {
	return math.Max(0.0, math.Min(1.0, x))
}

func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
