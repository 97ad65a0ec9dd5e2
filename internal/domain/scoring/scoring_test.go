package scoring_test

import (
	"testing"

	"github.com/convergehq/converge/internal/domain/model"
	"github.com/convergehq/converge/internal/domain/scoring"
	"github.com/convergehq/converge/internal/domain/semantic"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSkillMatch(t *testing.T) {
	Convey("Given the skill match scorer", t, func() {
		Convey("When the required list is empty", func() {
			score := scoring.SkillMatch(nil, model.SkillSet{Languages: []string{"go", "rust"}})
			Convey("Then any candidate trivially satisfies it", func() {
				So(score, ShouldEqual, 1.0)
			})
		})

		Convey("When casing differs between requirement and skills", func() {
			skills := model.SkillSet{Languages: []string{"python"}}
			score := scoring.SkillMatch([]string{"Python", "Go"}, skills)
			Convey("Then matching is case-insensitive and partial", func() {
				So(score, ShouldEqual, 0.5)
			})
		})

		Convey("When skills are spread across categories", func() {
			skills := model.SkillSet{
				Languages:    []string{"Go"},
				Frameworks:   []string{"React"},
				Tools:        []string{"Docker"},
				DomainSkills: []string{"NLP"},
			}
			score := scoring.SkillMatch([]string{"go", "react", "docker", "nlp"}, skills)
			So(score, ShouldEqual, 1.0)
		})

		Convey("When there is no overlap at all", func() {
			score := scoring.SkillMatch([]string{"haskell"}, model.SkillSet{Languages: []string{"go"}})
			So(score, ShouldEqual, 0.0)
		})

		Convey("When related but inexact names are offered", func() {
			score := scoring.SkillMatch([]string{"postgresql"}, model.SkillSet{Tools: []string{"postgres"}})
			Convey("Then no fuzzy credit is given", func() {
				So(score, ShouldEqual, 0.0)
			})
		})
	})
}

func TestExperienceAlignment(t *testing.T) {
	Convey("Given the experience alignment scorer", t, func() {
		Convey("When a beginner applies to a research project", func() {
			score := scoring.ExperienceAlignment(model.ProjectResearch, model.ExperienceBeginner)
			Convey("Then one level from intermediate scores 0.7", func() {
				So(score, ShouldEqual, 0.7)
			})
		})

		Convey("When the level is inside the preferred set", func() {
			So(scoring.ExperienceAlignment(model.ProjectHackathon, model.ExperienceBeginner), ShouldEqual, 1.0)
			So(scoring.ExperienceAlignment(model.ProjectResearch, model.ExperienceAdvanced), ShouldEqual, 1.0)
		})

		Convey("When an advanced candidate applies to a hackathon", func() {
			score := scoring.ExperienceAlignment(model.ProjectHackathon, model.ExperienceAdvanced)
			Convey("Then seniority does not help; distance does", func() {
				So(score, ShouldEqual, 0.7)
			})
		})

		Convey("When the project type is unknown", func() {
			Convey("Then intermediate is treated as preferred", func() {
				So(scoring.ExperienceAlignment("consulting", model.ExperienceIntermediate), ShouldEqual, 1.0)
				So(scoring.ExperienceAlignment("consulting", model.ExperienceBeginner), ShouldEqual, 0.7)
			})
		})
	})
}

func TestCapability(t *testing.T) {
	Convey("Given the capability layer", t, func() {
		req := model.ProjectRequirement{Type: model.ProjectHackathon, RequiredSkills: []string{"go"}}
		cand := model.CandidateProfile{
			Skills:     model.SkillSet{Languages: []string{"go"}},
			Experience: model.ExperienceBeginner,
		}

		Convey("When every sub-score is perfect", func() {
			b := scoring.Capability(1.0, req, cand)
			So(b.Score, ShouldEqual, 1.0)
			So(b.Semantic, ShouldEqual, 1.0)
			So(b.Skills, ShouldEqual, 1.0)
			So(b.Experience, ShouldEqual, 1.0)
		})

		Convey("When the semantic score is partial", func() {
			b := scoring.Capability(0.5, req, cand)
			Convey("Then the weighted sum is 0.45*0.5 + 0.35 + 0.20", func() {
				So(b.Score, ShouldEqual, 0.775)
			})
		})

		Convey("When sub-scores are exposed for explainability", func() {
			b := scoring.Capability(0.42, req, cand)
			So(b.Semantic, ShouldEqual, 0.42)
			So(b.Skills, ShouldEqual, 1.0)
			So(b.Experience, ShouldEqual, 1.0)
		})
	})
}

func TestReliability(t *testing.T) {
	Convey("Given the reliability scorer", t, func() {
		Convey("When a candidate has no project history", func() {
			score := scoring.Reliability(0, 0, model.AvailabilityMedium)
			Convey("Then confidence is zero and the prior wins exactly", func() {
				So(score, ShouldEqual, 0.6)
			})
		})

		Convey("When availability is unrecognized", func() {
			Convey("Then it defaults to medium", func() {
				So(scoring.Reliability(0, 0, "sometimes"), ShouldEqual, 0.6)
			})
		})

		Convey("When history is long and fully completed", func() {
			score := scoring.Reliability(30, 0, model.AvailabilityHigh)
			Convey("Then the observed signal dominates the prior", func() {
				So(score, ShouldBeGreaterThan, 0.95)
				So(score, ShouldBeLessThanOrEqualTo, 1.0)
			})
		})

		Convey("When history is long and mostly dropped", func() {
			score := scoring.Reliability(1, 9, model.AvailabilityLow)
			So(score, ShouldBeLessThan, 0.3)
		})

		Convey("When more history accumulates with the same ratio", func() {
			few := scoring.Reliability(1, 1, model.AvailabilityMedium)
			many := scoring.Reliability(10, 10, model.AvailabilityMedium)
			Convey("Then the estimate moves further from the prior", func() {
				diffFew := few - 0.6
				diffMany := many - 0.6
				So(absf(diffMany), ShouldBeGreaterThan, absf(diffFew))
			})
		})
	})
}

func TestTrust(t *testing.T) {
	Convey("Given the trust layer", t, func() {
		cand := model.CandidateProfile{
			Availability: model.AvailabilityMedium,
			Reputation:   model.ReputationSignals{},
		}

		Convey("When the candidate has no rating data", func() {
			b := scoring.Trust(0, cand)
			Convey("Then the rating sub-score is neutral 0.5", func() {
				So(b.Rating, ShouldEqual, 0.5)
				So(b.Reliability, ShouldEqual, 0.6)
				So(b.Score, ShouldEqual, 0.545) // 0.55*0.5 + 0.45*0.6
			})
		})

		Convey("When the candidate is rated 5.0", func() {
			b := scoring.Trust(5.0, cand)
			So(b.Rating, ShouldEqual, 1.0)
		})

		Convey("When the candidate is rated 1.0", func() {
			b := scoring.Trust(1.0, cand)
			So(b.Rating, ShouldEqual, 0.0)
		})

		Convey("When the candidate is rated 3.5", func() {
			b := scoring.Trust(3.5, cand)
			So(b.Rating, ShouldEqual, 0.625)
		})

		Convey("When the completion ratio is reported", func() {
			cand.Reputation = model.ReputationSignals{CompletedProjects: 3, DroppedProjects: 1}
			b := scoring.Trust(4.0, cand)
			So(b.CompletionRatio, ShouldAlmostEqual, 0.75, 1e-3)
		})
	})
}

func TestFinal(t *testing.T) {
	Convey("Given the final ranking composer", t, func() {
		Convey("When blending for a hackathon", func() {
			final := scoring.Final(0.8, 0.6, model.ProjectHackathon)
			Convey("Then 0.65*0.8 + 0.35*0.6 = 0.73", func() {
				So(final, ShouldEqual, 0.73)
			})
		})

		Convey("When blending for research", func() {
			final := scoring.Final(0.8, 0.6, model.ProjectResearch)
			So(final, ShouldEqual, 0.74)
		})

		Convey("When blending for open source", func() {
			final := scoring.Final(0.8, 0.6, model.ProjectOpenSource)
			So(final, ShouldEqual, 0.72)
		})

		Convey("When the project type is unknown", func() {
			Convey("Then the default alpha 0.65 applies", func() {
				So(scoring.Final(0.8, 0.6, "festival"), ShouldEqual, 0.73)
			})
		})
	})
}

func TestCompose(t *testing.T) {
	Convey("Given the full per-candidate pipeline", t, func() {
		req := model.ProjectRequirement{
			ID:             "proj-1",
			Type:           model.ProjectHackathon,
			RequiredSkills: []string{"go", "react"},
		}
		cand := model.CandidateProfile{
			ID:           "cand-1",
			Name:         "Asha",
			Skills:       model.SkillSet{Languages: []string{"Go"}},
			Experience:   model.ExperienceIntermediate,
			Availability: model.AvailabilityHigh,
		}
		verdict := semantic.Verdict{Passes: true, Similarity: 0.6, Label: semantic.LabelStrong}

		Convey("When composing a match result", func() {
			res := scoring.Compose(req, cand, verdict, 0)

			So(res.CandidateID, ShouldEqual, "cand-1")
			So(res.SemanticLabel, ShouldEqual, "strong")
			So(res.Alpha, ShouldEqual, 0.65)
			// capability: 0.45*0.6 + 0.35*0.5 + 0.20*1.0 = 0.645
			So(res.Capability.Score, ShouldEqual, 0.645)
			// reliability with no history = prior 0.6; availability does not
			// matter at zero confidence. trust = 0.55*0.5 + 0.45*0.6 = 0.545
			So(res.Trust.Score, ShouldEqual, 0.545)
			// final = 0.65*0.645 + 0.35*0.545
			So(res.FinalScore, ShouldEqual, 0.61)
			So(res.FinalScore, ShouldBeLessThanOrEqualTo, 1.0)
		})
	})
}

func TestRank(t *testing.T) {
	Convey("Given a pool of scored candidates", t, func() {
		results := []model.MatchResult{
			{CandidateID: "a", FinalScore: 0.50},
			{CandidateID: "b", FinalScore: 0.90},
			{CandidateID: "c", FinalScore: 0.50},
			{CandidateID: "d", FinalScore: 0.73},
		}

		Convey("When ranking with a generous topN", func() {
			ranked := scoring.Rank(results, 10)
			Convey("Then ordering is descending and ties keep input order", func() {
				So(len(ranked), ShouldEqual, 4)
				So(ranked[0].CandidateID, ShouldEqual, "b")
				So(ranked[1].CandidateID, ShouldEqual, "d")
				So(ranked[2].CandidateID, ShouldEqual, "a")
				So(ranked[3].CandidateID, ShouldEqual, "c")
			})
		})

		Convey("When topN is smaller than the pool", func() {
			ranked := scoring.Rank(results, 2)
			So(len(ranked), ShouldEqual, 2)
			So(ranked[0].CandidateID, ShouldEqual, "b")
		})

		Convey("When topN exceeds the pool", func() {
			ranked := scoring.Rank(results[:3], 5)
			Convey("Then exactly the pool size is returned", func() {
				So(len(ranked), ShouldEqual, 3)
			})
		})
	})
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
