// Package gate sequences final leaderboard generation: automated
// evaluation must be finished and every assigned judge done before the
// external generation endpoint may be invoked.
package gate

import (
	"context"
	"fmt"

	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/progress"
	"github.com/promptarena/verdict/pkg/logger"
	"github.com/promptarena/verdict/pkg/metrics"
)

// State is the gate's verdict for one generation request.
type State string

// Gate states, in check order. The first failing check wins.
const (
	StateNotAuthorized        State = "NOT_AUTHORIZED"
	StateNoJudgesAssigned     State = "NO_JUDGES_ASSIGNED"
	StateJudgesIncomplete     State = "JUDGES_INCOMPLETE"
	StateEvaluationIncomplete State = "EVALUATION_INCOMPLETE"
	StateAlreadyGenerated     State = "ALREADY_GENERATED"
	StateReady                State = "READY"
	StateGenerated            State = "GENERATED"
)

// RoleSuperadmin is the only role allowed through the gate.
const RoleSuperadmin = "superadmin"

// EvaluationStatusCompleted is the terminal pipeline status the gate
// requires before generation.
const EvaluationStatusCompleted = "completed"

// Actor is the verified identity performing the request, resolved by auth
// middleware upstream of this package.
type Actor struct {
	ID   string
	Role string
}

// Options carries the operator's explicit overrides for the two soft
// stops. Neither hard stop can be overridden.
type Options struct {
	// AllowNoJudges proceeds despite an empty judge pool. Some
	// competitions run without human judges; skipping the judge check
	// must be an intentional decision, never a silent default.
	AllowNoJudges bool

	// ConfirmRegenerate overwrites an already generated final
	// leaderboard.
	ConfirmRegenerate bool
}

// Outcome reports where the request landed. Err-free outcomes in a
// non-GENERATED state are refusals, not failures.
type Outcome struct {
	State  State  `json:"state"`
	Reason string `json:"reason,omitempty"`
}

// ProgressReporter is the aggregator the gate recomputes with when the
// cached flag is unset.
type ProgressReporter interface {
	ComputeProgress(ctx context.Context, competitionID string) (progress.Report, error)
}

// EvaluationService is the external pipeline consulted for automated
// scoring status and invoked for final generation.
type EvaluationService interface {
	Status(ctx context.Context, competitionID string) (string, error)
	GenerateLeaderboard(ctx context.Context, competitionID string) error
}

// Gate evaluates the sequencing policy for one competition per call.
type Gate struct {
	competitions repository.CompetitionStore
	reporter     ProgressReporter
	evaluation   EvaluationService
	log          logger.Logger
}

// Option applies a configuration option to the Gate.
type Option func(*Gate)

// WithLogger sets a custom logger for the gate.
func WithLogger(log logger.Logger) Option {
	return func(g *Gate) {
		if log != nil {
			g.log = log
		}
	}
}

// New creates a gate over the given collaborators.
func New(competitions repository.CompetitionStore, reporter ProgressReporter, evaluation EvaluationService, opts ...Option) *Gate {
	g := &Gate{
		competitions: competitions,
		reporter:     reporter,
		evaluation:   evaluation,
		log:          logger.Get().Named("gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate runs the ordered checks and, when every one passes, invokes the
// external generation endpoint and records success on the competition.
// Checks short-circuit: the outcome names the first one that failed.
func (g *Gate) Generate(ctx context.Context, competitionID string, actor Actor, opts Options) (Outcome, error) {
	if actor.Role != RoleSuperadmin {
		return g.halt(ctx, StateNotAuthorized, "generation requires the superadmin role")
	}

	comp, err := g.competitions.GetCompetition(ctx, competitionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load competition: %w", err)
	}

	// The cached flag only short-circuits the judge check when true;
	// false always triggers a live recomputation so a stale cache cannot
	// block a finished competition.
	if !comp.AllJudgeEvaluated {
		report, err := g.reporter.ComputeProgress(ctx, competitionID)
		if err != nil {
			return Outcome{}, fmt.Errorf("recompute judge progress: %w", err)
		}
		switch {
		case !report.HasJudges && !opts.AllowNoJudges:
			return g.halt(ctx, StateNoJudgesAssigned, "no judges are assigned; pass the override to proceed without human review")
		case report.HasJudges && !report.AllCompleted:
			return g.halt(ctx, StateJudgesIncomplete, "one or more judges have unfinished reviews")
		}
	}

	status, err := g.evaluation.Status(ctx, competitionID)
	if err != nil {
		return Outcome{}, fmt.Errorf("query evaluation status: %w", err)
	}
	if status != EvaluationStatusCompleted {
		return g.halt(ctx, StateEvaluationIncomplete, fmt.Sprintf("automated evaluation is %q, not completed", status))
	}

	if comp.HasFinalLeaderboard && !opts.ConfirmRegenerate {
		return g.halt(ctx, StateAlreadyGenerated, "a final leaderboard exists; confirm regeneration to overwrite")
	}

	// Every check has passed; the request is READY. The state only
	// surfaces when the external invocation itself fails.
	if err := g.evaluation.GenerateLeaderboard(ctx, competitionID); err != nil {
		metrics.RecordGateOutcome(string(StateReady))
		return Outcome{State: StateReady}, fmt.Errorf("generate leaderboard: %w", err)
	}
	if err := g.competitions.SetHasFinalLeaderboard(ctx, competitionID, true); err != nil {
		return Outcome{State: StateReady}, fmt.Errorf("record generated leaderboard: %w", err)
	}

	metrics.RecordGateOutcome(string(StateGenerated))
	g.log.Info(ctx, "final leaderboard generated",
		logger.String("competition", competitionID),
		logger.String("actor", actor.ID),
		logger.Bool("regenerated", comp.HasFinalLeaderboard),
	)
	return Outcome{State: StateGenerated}, nil
}

func (g *Gate) halt(ctx context.Context, state State, reason string) (Outcome, error) {
	metrics.RecordGateOutcome(string(state))
	g.log.Info(ctx, "generation halted",
		logger.String("state", string(state)),
		logger.String("reason", reason),
	)
	return Outcome{State: state, Reason: reason}, nil
}
