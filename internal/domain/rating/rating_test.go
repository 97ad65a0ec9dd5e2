package rating_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/convergehq/converge/internal/domain/rating"
	. "github.com/smartystreets/goconvey/convey"
)

// memStore is a minimal in-memory Store for engine tests.
type memStore struct {
	mu      sync.Mutex
	records []rating.Record
	raters  map[string]rating.RaterReliability
}

func newMemStore() *memStore {
	return &memStore{raters: make(map[string]rating.RaterReliability)}
}

func (m *memStore) SubmitRating(ctx context.Context, raterID string, build func(alpha float64) (rating.Record, error)) (rating.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rr, ok := m.raters[raterID]
	if !ok {
		rr = rating.RaterReliability{RaterID: raterID, Alpha: 1.0, CreatedAt: time.Now()}
	}

	rec, err := build(rr.Alpha)
	if err != nil {
		return rating.Record{}, err
	}
	rec.Sequence = len(m.records)
	m.records = append(m.records, rec)

	rr.RatingsGiven++
	m.raters[raterID] = rr
	return rec, nil
}

func (m *memStore) RatingsByRatee(ctx context.Context, rateeID string) ([]rating.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []rating.Record
	for _, r := range m.records {
		if r.RateeID == rateeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memStore) Rater(ctx context.Context, raterID string) (rating.RaterReliability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rr, ok := m.raters[raterID]
	if !ok {
		return rating.RaterReliability{}, rating.ErrRaterNotFound
	}
	return rr, nil
}

func (m *memStore) UpdateRater(ctx context.Context, raterID string, fn func(*rating.RaterReliability)) (rating.RaterReliability, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rr, ok := m.raters[raterID]
	if !ok {
		rr = rating.RaterReliability{RaterID: raterID, Alpha: 1.0, CreatedAt: time.Now()}
	}
	fn(&rr)
	m.raters[raterID] = rr
	return rr, nil
}

func fullScores(technical, reliab, comm, initiative, overall float64) map[rating.Category]float64 {
	return map[rating.Category]float64{
		rating.CategoryTechnical:     technical,
		rating.CategoryReliability:   reliab,
		rating.CategoryCommunication: comm,
		rating.CategoryInitiative:    initiative,
		rating.CategoryOverall:       overall,
	}
}

func TestSubmit(t *testing.T) {
	Convey("Given a rating engine over a fresh store", t, func() {
		store := newMemStore()
		engine := rating.New(store)
		ctx := context.Background()

		Convey("When a full five-category rating is submitted", func() {
			rec, err := engine.Submit(ctx, "alice", "bob", "proj-1", fullScores(5, 4, 5, 4, 5))

			So(err, ShouldBeNil)
			So(rec.RaterID, ShouldEqual, "alice")
			So(rec.RateeID, ShouldEqual, "bob")
			So(rec.Sequence, ShouldEqual, 0)
			Convey("Then the raw rating is the weighted category sum", func() {
				// 0.30*5 + 0.25*4 + 0.20*5 + 0.15*4 + 0.10*5 = 4.6
				So(rec.RawRating, ShouldEqual, 4.6)
			})
			Convey("And a new rater starts at alpha 1.0", func() {
				So(rec.RaterAlpha, ShouldEqual, 1.0)
				So(rec.AdjustedRating, ShouldEqual, 4.6)
			})
		})

		Convey("When a category key is unknown", func() {
			scores := fullScores(5, 4, 5, 4, 5)
			scores["punctuality"] = 3

			_, err := engine.Submit(ctx, "alice", "bob", "proj-1", scores)

			Convey("Then validation fails and nothing is persisted", func() {
				So(errors.Is(err, rating.ErrUnknownCategory), ShouldBeTrue)
				received, _ := store.RatingsByRatee(ctx, "bob")
				So(received, ShouldBeEmpty)
				_, raterErr := store.Rater(ctx, "alice")
				So(errors.Is(raterErr, rating.ErrRaterNotFound), ShouldBeTrue)
			})
		})

		Convey("When a score is outside [1,5]", func() {
			_, low := engine.Submit(ctx, "alice", "bob", "proj-1", fullScores(0.5, 4, 5, 4, 5))
			_, high := engine.Submit(ctx, "alice", "bob", "proj-1", fullScores(5, 4, 5, 4, 5.5))

			So(errors.Is(low, rating.ErrScoreOutOfRange), ShouldBeTrue)
			So(errors.Is(high, rating.ErrScoreOutOfRange), ShouldBeTrue)
			received, _ := store.RatingsByRatee(ctx, "bob")
			So(received, ShouldBeEmpty)
		})

		Convey("When the rater's alpha has been reduced", func() {
			_, err := engine.UpdateRaterReliability(ctx, "carol", 0.8)
			So(err, ShouldBeNil)

			rec, err := engine.Submit(ctx, "carol", "bob", "proj-1", fullScores(5, 5, 5, 5, 5))
			So(err, ShouldBeNil)
			Convey("Then the adjusted rating is alpha times raw", func() {
				So(rec.RawRating, ShouldEqual, 5.0)
				So(rec.RaterAlpha, ShouldEqual, 0.8)
				So(rec.AdjustedRating, ShouldEqual, 4.0)
			})
		})

		Convey("When sequential submissions arrive", func() {
			r1, _ := engine.Submit(ctx, "alice", "bob", "proj-1", fullScores(4, 4, 4, 4, 4))
			r2, _ := engine.Submit(ctx, "dave", "bob", "proj-1", fullScores(3, 3, 3, 3, 3))
			Convey("Then sequence numbers keep records unique", func() {
				So(r1.Sequence, ShouldNotEqual, r2.Sequence)
			})
		})
	})
}

func TestUpdateRaterReliability(t *testing.T) {
	Convey("Given the rater reliability contract", t, func() {
		engine := rating.New(newMemStore())
		ctx := context.Background()

		Convey("When the proposed alpha is inside the band", func() {
			rr, err := engine.UpdateRaterReliability(ctx, "alice", 0.85)
			So(err, ShouldBeNil)
			So(rr.Alpha, ShouldEqual, 0.85)
			So(rr.RatingsGiven, ShouldEqual, 1)
		})

		Convey("When the proposed alpha is below the floor", func() {
			rr, err := engine.UpdateRaterReliability(ctx, "alice", 0.2)
			So(err, ShouldBeNil)
			Convey("Then it is clamped to 0.7", func() {
				So(rr.Alpha, ShouldEqual, 0.7)
			})
		})

		Convey("When the proposed alpha exceeds the ceiling", func() {
			rr, err := engine.UpdateRaterReliability(ctx, "alice", 1.4)
			So(err, ShouldBeNil)
			So(rr.Alpha, ShouldEqual, 1.0)
		})
	})
}

func TestProjectRating(t *testing.T) {
	Convey("Given ratings from multiple raters on one project", t, func() {
		engine := rating.New(newMemStore())
		ctx := context.Background()

		_, err := engine.Submit(ctx, "alice", "bob", "proj-1", fullScores(5, 5, 5, 5, 5))
		So(err, ShouldBeNil)
		_, err = engine.Submit(ctx, "carol", "bob", "proj-1", fullScores(4, 4, 4, 4, 4))
		So(err, ShouldBeNil)

		Convey("When aggregating that project", func() {
			avg, count, err := engine.ProjectRating(ctx, "bob", "proj-1")
			So(err, ShouldBeNil)
			So(count, ShouldEqual, 2)
			So(avg, ShouldEqual, 4.5)
		})

		Convey("When aggregating a project with no ratings", func() {
			_, _, err := engine.ProjectRating(ctx, "bob", "proj-404")
			So(errors.Is(err, rating.ErrNoRatings), ShouldBeTrue)
		})
	})
}

func TestGlobal(t *testing.T) {
	Convey("Given the Bayesian global rating", t, func() {
		engine := rating.New(newMemStore())
		ctx := context.Background()

		Convey("When a candidate has never been rated", func() {
			g, err := engine.Global(ctx, "newcomer")
			So(err, ShouldBeNil)
			Convey("Then the prior mean applies exactly", func() {
				So(g.Value, ShouldEqual, 3.5)
				So(g.ProjectsRated, ShouldEqual, 0)
				So(g.TotalRatings, ShouldEqual, 0)
			})
		})

		Convey("When one project averages 4.5", func() {
			_, err := engine.Submit(ctx, "alice", "bob", "proj-1", fullScores(5, 5, 5, 5, 5))
			So(err, ShouldBeNil)
			_, err = engine.Submit(ctx, "carol", "bob", "proj-1", fullScores(4, 4, 4, 4, 4))
			So(err, ShouldBeNil)

			g, err := engine.Global(ctx, "bob")
			So(err, ShouldBeNil)
			Convey("Then global = (5*3.5 + 4.5) / 6", func() {
				So(g.Value, ShouldEqual, 3.667)
				So(g.ProjectsRated, ShouldEqual, 1)
				So(g.TotalRatings, ShouldEqual, 2)
			})
		})

		Convey("When ratings span several projects", func() {
			for _, proj := range []string{"proj-1", "proj-2", "proj-3"} {
				_, err := engine.Submit(ctx, "alice", "bob", proj, fullScores(5, 5, 5, 5, 5))
				So(err, ShouldBeNil)
			}

			g, err := engine.Global(ctx, "bob")
			So(err, ShouldBeNil)
			Convey("Then each project contributes one averaged value", func() {
				// (5*3.5 + 15) / (5 + 3) = 32.5 / 8
				So(g.Value, ShouldEqual, 4.063)
				So(g.ProjectsRated, ShouldEqual, 3)
			})
		})
	})
}

func TestSummarize(t *testing.T) {
	Convey("Given a rated candidate", t, func() {
		engine := rating.New(newMemStore())
		ctx := context.Background()

		_, err := engine.Submit(ctx, "alice", "bob", "proj-1", fullScores(5, 4, 5, 4, 5))
		So(err, ShouldBeNil)
		_, err = engine.Submit(ctx, "carol", "bob", "proj-1", fullScores(3, 3, 4, 3, 4))
		So(err, ShouldBeNil)

		Convey("When summarizing", func() {
			s, err := engine.Summarize(ctx, "bob")
			So(err, ShouldBeNil)

			So(s.RateeID, ShouldEqual, "bob")
			So(s.TotalRatings, ShouldEqual, 2)

			Convey("Then category stats cover average, min and max", func() {
				tech := s.Categories[rating.CategoryTechnical]
				So(tech.Average, ShouldEqual, 4.0)
				So(tech.Min, ShouldEqual, 3.0)
				So(tech.Max, ShouldEqual, 5.0)
				So(tech.Count, ShouldEqual, 2)
			})

			Convey("And the project breakdown lists each rater", func() {
				ps := s.Projects["proj-1"]
				So(ps.Raters, ShouldEqual, 2)
				So(len(ps.Detail), ShouldEqual, 2)
			})

			Convey("And the global aggregate rides along", func() {
				So(s.Global.TotalRatings, ShouldEqual, 2)
				So(s.Global.ProjectsRated, ShouldEqual, 1)
			})
		})

		Convey("When summarizing an unrated candidate", func() {
			s, err := engine.Summarize(ctx, "ghost")
			So(err, ShouldBeNil)
			So(s.TotalRatings, ShouldEqual, 0)
			So(s.Global.Value, ShouldEqual, 3.5)
		})
	})
}
