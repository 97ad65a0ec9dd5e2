// Package embedding turns candidate profiles and project requirements into
// vectors the semantic gate can compare.
package embedding

import (
	"context"
	"sort"
	"strings"

	"github.com/convergehq/converge/internal/domain/model"
)

// Embedder produces a vector for a piece of profile or requirement text.
type Embedder interface {
	Embed(ctx context.Context, text string) (model.EmbeddingVector, error)
	Dimension() int
}

// CandidateText flattens a candidate profile into the text that gets
// embedded. Skills and domain experience carry most of the signal, so
// they all go in.
func CandidateText(p model.CandidateProfile) string {
	parts := make([]string, 0, 8)
	if p.Name != "" {
		parts = append(parts, p.Name)
	}
	parts = append(parts, string(p.Experience)+" developer")
	if all := p.Skills.All(); len(all) > 0 {
		parts = append(parts, "skills: "+strings.Join(all, ", "))
	}
	if len(p.DomainExperience) > 0 {
		// Sorted so the same profile always renders the same text.
		domains := make([]string, 0, len(p.DomainExperience))
		for domain := range p.DomainExperience {
			domains = append(domains, domain)
		}
		sort.Strings(domains)
		parts = append(parts, "domains: "+strings.Join(domains, ", "))
	}
	return strings.Join(parts, ". ")
}

// ProjectText flattens a project requirement into embeddable text.
func ProjectText(r model.ProjectRequirement) string {
	parts := make([]string, 0, 4)
	if r.Title != "" {
		parts = append(parts, r.Title)
	}
	if r.Type != "" {
		parts = append(parts, string(r.Type)+" project")
	}
	if len(r.RequiredSkills) > 0 {
		parts = append(parts, "requires: "+strings.Join(r.RequiredSkills, ", "))
	}
	return strings.Join(parts, ". ")
}
