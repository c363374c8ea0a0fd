// Package progress aggregates judge review completion for a competition
// and maintains the cached all-judges-evaluated flag. It also owns the
// review-recording write path that advances the completion counters.
package progress

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/pkg/logger"
	"github.com/promptarena/verdict/pkg/metrics"
)

// ChallengeProgress is one (completed, assigned) pair for a judge.
type ChallengeProgress struct {
	ChallengeID string `json:"challenge_id"`
	Completed   int    `json:"completed"`
	Assigned    int    `json:"assigned"`
}

// JudgeProgress reports one judge's completion state.
type JudgeProgress struct {
	JudgeID       string              `json:"judge_id"`
	ReviewedCount int                 `json:"reviewed_count"`
	AssignedCount int                 `json:"assigned_count"`
	Ratio         float64             `json:"ratio"`
	Complete      bool                `json:"complete"`
	Challenges    []ChallengeProgress `json:"challenges"`
}

// Report is the aggregate verdict for a competition.
//
// HasJudges false means no assignment records exist, which is distinct
// from every judge being done: an empty judge pool is never "fully
// judged" and AllCompleted stays false.
type Report struct {
	HasJudges    bool            `json:"has_judges"`
	AllCompleted bool            `json:"all_completed"`
	Judges       []JudgeProgress `json:"judges"`
}

// Aggregator computes progress reports from assignment records.
type Aggregator struct {
	assignments  repository.AssignmentStore
	competitions repository.CompetitionStore
	log          logger.Logger
}

// Option applies a configuration option to the Aggregator.
type Option func(*Aggregator)

// WithLogger sets a custom logger for the aggregator.
func WithLogger(log logger.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// NewAggregator creates a progress aggregator over the given stores.
func NewAggregator(assignments repository.AssignmentStore, competitions repository.CompetitionStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		assignments:  assignments,
		competitions: competitions,
		log:          logger.Get().Named("progress"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ComputeProgress reads every assignment record and derives per-judge and
// overall completion. Completion compares integer counts, never a computed
// percentage, so rounding cannot produce a false verdict.
//
// When the verdict flips to all-complete the competition's cached flag is
// persisted true. The flag is one-way: it is never reset here.
func (a *Aggregator) ComputeProgress(ctx context.Context, competitionID string) (Report, error) {
	if competitionID == "" {
		return Report{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}
	metrics.RecordProgressCheck()

	records, err := a.assignments.List(ctx, competitionID)
	if err != nil {
		return Report{}, fmt.Errorf("list assignments: %w", err)
	}
	if len(records) == 0 {
		return Report{HasJudges: false, AllCompleted: false, Judges: []JudgeProgress{}}, nil
	}

	report := Report{HasJudges: true, AllCompleted: true}
	for _, rec := range records {
		jp := judgeProgress(rec)
		if !jp.Complete {
			report.AllCompleted = false
		}
		report.Judges = append(report.Judges, jp)
	}

	if report.AllCompleted {
		if err := a.competitions.SetAllJudgeEvaluated(ctx, competitionID, true); err != nil {
			// The verdict itself is still valid; the cache write is retried
			// on the next check.
			a.log.Warn(ctx, "failed to persist all-judge-evaluated flag",
				logger.String("competition", competitionID), logger.Error(err))
		}
	}
	return report, nil
}

// RecordReview advances a judge's counters after one completed review. The
// overall count never exceeds the assigned total and the per-challenge
// count never exceeds that challenge's assignment.
func (a *Aggregator) RecordReview(ctx context.Context, competitionID, judgeID, challengeID string) error {
	if competitionID == "" || judgeID == "" || challengeID == "" {
		return fmt.Errorf("%w: competition, judge and challenge ids are required", ErrInvalidInput)
	}
	err := a.assignments.Update(ctx, competitionID, judgeID, func(rec *model.JudgeAssignment) error {
		assigned, ok := rec.AssignedCountsByChallenge[challengeID]
		if !ok {
			return fmt.Errorf("%w: challenge %s not assigned to judge %s", ErrNotAssigned, challengeID, judgeID)
		}
		if rec.CompletedChallenges == nil {
			rec.CompletedChallenges = make(map[string]int)
		}
		if rec.CompletedChallenges[challengeID] >= assigned {
			return fmt.Errorf("%w: challenge %s already fully reviewed", ErrAlreadyComplete, challengeID)
		}
		rec.CompletedChallenges[challengeID]++
		if rec.ReviewedCount < rec.AssignedCountTotal {
			rec.ReviewedCount++
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: judge %s", ErrNotAssigned, judgeID)
		}
		return err
	}
	metrics.RecordReviewRecorded()
	return nil
}

func judgeProgress(rec *model.JudgeAssignment) JudgeProgress {
	jp := JudgeProgress{
		JudgeID:       rec.JudgeID,
		ReviewedCount: rec.ReviewedCount,
		AssignedCount: rec.AssignedCountTotal,
		Complete:      rec.Complete(),
	}
	// Zero assigned reports 0%, not a division by zero and not 100%.
	if rec.AssignedCountTotal > 0 {
		jp.Ratio = float64(rec.ReviewedCount) / float64(rec.AssignedCountTotal)
	}
	for _, challengeID := range sortedChallenges(rec.AssignedCountsByChallenge) {
		jp.Challenges = append(jp.Challenges, ChallengeProgress{
			ChallengeID: challengeID,
			Completed:   rec.CompletedChallenges[challengeID],
			Assigned:    rec.AssignedCountsByChallenge[challengeID],
		})
	}
	return jp
}

func sortedChallenges(counts map[string]int) []string {
	out := make([]string, 0, len(counts))
	for c := range counts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
