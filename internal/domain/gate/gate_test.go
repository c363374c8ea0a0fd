package gate_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/gate"
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

// fakeEvaluation is a scripted stand-in for the external pipeline.
type fakeEvaluation struct {
	status    string
	statusErr error

	generateErr   error
	generateCalls int
}

func (f *fakeEvaluation) Status(ctx context.Context, competitionID string) (string, error) {
	return f.status, f.statusErr
}

func (f *fakeEvaluation) GenerateLeaderboard(ctx context.Context, competitionID string) error {
	f.generateCalls++
	return f.generateErr
}

var superadmin = gate.Actor{ID: "admin-1", Role: gate.RoleSuperadmin}

func seedJudge(store *repository.MemoryStore, judgeID string, assigned, reviewed int) {
	err := store.Apply(context.Background(), "comp-1", repository.Batch{Put: []*model.JudgeAssignment{{
		CompetitionID:             "comp-1",
		JudgeID:                   judgeID,
		SubmissionsByChallenge:    map[string][]string{"ch1": make([]string, assigned)},
		AssignedCountsByChallenge: map[string]int{"ch1": assigned},
		AssignedCountTotal:        assigned,
		ReviewedCount:             reviewed,
		CompletedChallenges:       map[string]int{"ch1": reviewed},
	}}})
	if err != nil {
		panic(err)
	}
}

func TestGateGenerate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a competition ready for generation", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		seedJudge(store, "judgeA", 3, 3)
		eval := &fakeEvaluation{status: gate.EvaluationStatusCompleted}
		g := gate.New(store, progress.NewAggregator(store, store), eval)

		Convey("When a superadmin requests generation", func() {
			outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{})

			So(err, ShouldBeNil)
			So(outcome.State, ShouldEqual, gate.StateGenerated)
			So(eval.generateCalls, ShouldEqual, 1)

			Convey("Then success is recorded on the competition", func() {
				comp, err := store.GetCompetition(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(comp.HasFinalLeaderboard, ShouldBeTrue)
			})

			Convey("And a repeat without confirmation is refused", func() {
				outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{})
				So(err, ShouldBeNil)
				So(outcome.State, ShouldEqual, gate.StateAlreadyGenerated)
				So(eval.generateCalls, ShouldEqual, 1)
			})

			Convey("And a confirmed regeneration goes through", func() {
				outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{ConfirmRegenerate: true})
				So(err, ShouldBeNil)
				So(outcome.State, ShouldEqual, gate.StateGenerated)
				So(eval.generateCalls, ShouldEqual, 2)
			})
		})

		Convey("When the actor lacks the superadmin role", func() {
			outcome, err := g.Generate(ctx, "comp-1", gate.Actor{ID: "judge-9", Role: "judge"}, gate.Options{})

			So(err, ShouldBeNil)
			So(outcome.State, ShouldEqual, gate.StateNotAuthorized)
			So(eval.generateCalls, ShouldEqual, 0)
		})
	})

	Convey("Given no judges are assigned", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		eval := &fakeEvaluation{status: gate.EvaluationStatusCompleted}
		g := gate.New(store, progress.NewAggregator(store, store), eval)

		Convey("Then the default is a refusal", func() {
			outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{})
			So(err, ShouldBeNil)
			So(outcome.State, ShouldEqual, gate.StateNoJudgesAssigned)
		})

		Convey("And the explicit override proceeds", func() {
			outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{AllowNoJudges: true})
			So(err, ShouldBeNil)
			So(outcome.State, ShouldEqual, gate.StateGenerated)
		})
	})

	Convey("Given a judge with unfinished reviews", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		seedJudge(store, "judgeA", 3, 1)
		eval := &fakeEvaluation{status: gate.EvaluationStatusCompleted}
		g := gate.New(store, progress.NewAggregator(store, store), eval)

		Convey("Then the stop is hard: no override applies", func() {
			outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{
				AllowNoJudges:     true,
				ConfirmRegenerate: true,
			})
			So(err, ShouldBeNil)
			So(outcome.State, ShouldEqual, gate.StateJudgesIncomplete)
			So(eval.generateCalls, ShouldEqual, 0)
		})
	})

	Convey("Given automated evaluation has not finished", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		seedJudge(store, "judgeA", 2, 2)
		eval := &fakeEvaluation{status: "running"}
		g := gate.New(store, progress.NewAggregator(store, store), eval)

		Convey("Then generation is blocked regardless of overrides", func() {
			outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{
				AllowNoJudges:     true,
				ConfirmRegenerate: true,
			})
			So(err, ShouldBeNil)
			So(outcome.State, ShouldEqual, gate.StateEvaluationIncomplete)
			So(outcome.Reason, ShouldContainSubstring, "running")
		})
	})

	Convey("Given the cached all-judge-evaluated flag is set", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1", AllJudgeEvaluated: true})
		// an unfinished judge record that a recompute would flag
		seedJudge(store, "judgeA", 3, 0)
		eval := &fakeEvaluation{status: gate.EvaluationStatusCompleted}
		g := gate.New(store, progress.NewAggregator(store, store), eval)

		Convey("Then the judge check is skipped on the cached verdict", func() {
			outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{})
			So(err, ShouldBeNil)
			So(outcome.State, ShouldEqual, gate.StateGenerated)
		})
	})

	Convey("Given collaborator failures", t, func() {
		store := repository.NewMemoryStore()
		store.PutCompetition(&model.Competition{ID: "comp-1"})
		seedJudge(store, "judgeA", 1, 1)

		Convey("An unknown competition is an error, not a refusal", func() {
			eval := &fakeEvaluation{status: gate.EvaluationStatusCompleted}
			g := gate.New(store, progress.NewAggregator(store, store), eval)
			_, err := g.Generate(ctx, "ghost", superadmin, gate.Options{})
			So(err, ShouldWrap, repository.ErrNotFound)
		})

		Convey("A status query failure surfaces as an error", func() {
			eval := &fakeEvaluation{statusErr: errors.New("pipeline unreachable")}
			g := gate.New(store, progress.NewAggregator(store, store), eval)
			_, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{})
			So(err, ShouldNotBeNil)
		})

		Convey("A generation failure leaves the competition unmarked", func() {
			eval := &fakeEvaluation{status: gate.EvaluationStatusCompleted, generateErr: errors.New("boom")}
			g := gate.New(store, progress.NewAggregator(store, store), eval)
			outcome, err := g.Generate(ctx, "comp-1", superadmin, gate.Options{})
			So(err, ShouldNotBeNil)
			So(outcome.State, ShouldEqual, gate.StateReady)

			comp, err := store.GetCompetition(ctx, "comp-1")
			So(err, ShouldBeNil)
			So(comp.HasFinalLeaderboard, ShouldBeFalse)
		})
	})
}
