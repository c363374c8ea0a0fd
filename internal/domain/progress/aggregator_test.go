package progress_test

import (
	"context"
	"os"
	"testing"

	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/internal/domain/progress"
	"github.com/promptarena/verdict/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func seedAssignments(store *repository.MemoryStore, recs ...*model.JudgeAssignment) {
	batch := repository.Batch{Put: recs}
	if err := store.Apply(context.Background(), "comp-1", batch); err != nil {
		panic(err)
	}
}

func assignment(judgeID string, assigned, reviewed int) *model.JudgeAssignment {
	return &model.JudgeAssignment{
		CompetitionID:             "comp-1",
		JudgeID:                   judgeID,
		SubmissionsByChallenge:    map[string][]string{"ch1": make([]string, assigned)},
		AssignedCountsByChallenge: map[string]int{"ch1": assigned},
		AssignedCountTotal:        assigned,
		ReviewedCount:             reviewed,
		CompletedChallenges:       map[string]int{"ch1": reviewed},
	}
}

func TestComputeProgress(t *testing.T) {
	ctx := context.Background()

	Convey("Given a competition with no assignment records", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		agg := progress.NewAggregator(store, store)

		Convey("When progress is computed", func() {
			report, err := agg.ComputeProgress(ctx, "comp-1")

			Convey("Then an empty judge pool is never fully judged", func() {
				So(err, ShouldBeNil)
				So(report.HasJudges, ShouldBeFalse)
				So(report.AllCompleted, ShouldBeFalse)
				So(report.Judges, ShouldBeEmpty)
			})

			Convey("And the cached flag stays unset", func() {
				comp, err := store.GetCompetition(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(comp.AllJudgeEvaluated, ShouldBeFalse)
			})
		})
	})

	Convey("Given judges at mixed completion", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		seedAssignments(store,
			assignment("judgeA", 4, 4),
			assignment("judgeB", 3, 1),
		)
		agg := progress.NewAggregator(store, store)

		Convey("When progress is computed", func() {
			report, err := agg.ComputeProgress(ctx, "comp-1")
			So(err, ShouldBeNil)

			Convey("Then the overall verdict is incomplete", func() {
				So(report.HasJudges, ShouldBeTrue)
				So(report.AllCompleted, ShouldBeFalse)
			})

			Convey("And per-judge rows carry counts and ratios", func() {
				So(report.Judges, ShouldHaveLength, 2)
				So(report.Judges[0].JudgeID, ShouldEqual, "judgeA")
				So(report.Judges[0].Complete, ShouldBeTrue)
				So(report.Judges[0].Ratio, ShouldEqual, 1.0)
				So(report.Judges[1].JudgeID, ShouldEqual, "judgeB")
				So(report.Judges[1].Complete, ShouldBeFalse)
				So(report.Judges[1].Ratio, ShouldAlmostEqual, 1.0/3.0, 1e-9)
			})
		})
	})

	Convey("Given every judge has finished", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		seedAssignments(store,
			assignment("judgeA", 2, 2),
			assignment("judgeB", 5, 5),
		)
		agg := progress.NewAggregator(store, store)

		Convey("When progress is computed", func() {
			report, err := agg.ComputeProgress(ctx, "comp-1")
			So(err, ShouldBeNil)
			So(report.AllCompleted, ShouldBeTrue)

			Convey("Then the all-judge-evaluated flag is persisted", func() {
				comp, err := store.GetCompetition(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(comp.AllJudgeEvaluated, ShouldBeTrue)
			})
		})
	})

	Convey("Given a judge with zero assignments", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		seedAssignments(store, assignment("judgeZ", 0, 0))
		agg := progress.NewAggregator(store, store)

		Convey("When progress is computed", func() {
			report, err := agg.ComputeProgress(ctx, "comp-1")
			So(err, ShouldBeNil)

			Convey("Then the ratio is zero, not a division error", func() {
				So(report.Judges[0].Ratio, ShouldEqual, 0.0)
				So(report.Judges[0].Complete, ShouldBeFalse)
				So(report.AllCompleted, ShouldBeFalse)
			})
		})
	})

	Convey("An empty competition id is rejected", t, func() {
		store := repository.NewMemoryStore()
		agg := progress.NewAggregator(store, store)
		_, err := agg.ComputeProgress(ctx, "")
		So(err, ShouldWrap, progress.ErrInvalidInput)
	})
}

func TestRecordReview(t *testing.T) {
	ctx := context.Background()

	Convey("Given a judge with a three-submission assignment", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		rec := assignment("judgeA", 3, 0)
		rec.CompletedChallenges = map[string]int{}
		seedAssignments(store, rec)
		agg := progress.NewAggregator(store, store)

		Convey("When reviews are recorded one by one", func() {
			So(agg.RecordReview(ctx, "comp-1", "judgeA", "ch1"), ShouldBeNil)
			So(agg.RecordReview(ctx, "comp-1", "judgeA", "ch1"), ShouldBeNil)

			Convey("Then the counters advance", func() {
				got, err := store.Get(ctx, "comp-1", "judgeA")
				So(err, ShouldBeNil)
				So(got.ReviewedCount, ShouldEqual, 2)
				So(got.CompletedChallenges["ch1"], ShouldEqual, 2)
			})

			Convey("And recording past the assignment is refused", func() {
				So(agg.RecordReview(ctx, "comp-1", "judgeA", "ch1"), ShouldBeNil)
				err := agg.RecordReview(ctx, "comp-1", "judgeA", "ch1")
				So(err, ShouldWrap, progress.ErrAlreadyComplete)

				got, err := store.Get(ctx, "comp-1", "judgeA")
				So(err, ShouldBeNil)
				So(got.ReviewedCount, ShouldEqual, 3)
			})
		})

		Convey("When the challenge was never assigned to the judge", func() {
			err := agg.RecordReview(ctx, "comp-1", "judgeA", "ch9")
			So(err, ShouldWrap, progress.ErrNotAssigned)
		})

		Convey("When the judge has no assignment record", func() {
			err := agg.RecordReview(ctx, "comp-1", "ghost", "ch1")
			So(err, ShouldWrap, progress.ErrNotAssigned)
		})

		Convey("When ids are missing", func() {
			So(agg.RecordReview(ctx, "", "judgeA", "ch1"), ShouldWrap, progress.ErrInvalidInput)
			So(agg.RecordReview(ctx, "comp-1", "", "ch1"), ShouldWrap, progress.ErrInvalidInput)
			So(agg.RecordReview(ctx, "comp-1", "judgeA", ""), ShouldWrap, progress.ErrInvalidInput)
		})
	})
}
