package distribution

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/pkg/logger"
	"github.com/promptarena/verdict/pkg/metrics"
)

// Default executor configuration constants.
const (
	defaultLeaseTTL = 30 * time.Second
)

// Result summarizes one distribution run for operator feedback.
type Result struct {
	RunID          string `json:"run_id"`
	RequestedCount int    `json:"requested_count"`
	AssignedCount  int    `json:"assigned_count"`
	JudgesWritten  int    `json:"judges_written"`
	JudgesDeleted  int    `json:"judges_deleted"`
}

// Executor persists distribution plans. Each run replaces the assignment
// state wholesale: judges absent from the new plan lose their record,
// challenges absent from a judge's new plan lose their keys.
type Executor struct {
	assignments repository.AssignmentStore
	submissions repository.SubmissionStore
	leases      repository.LeaseStore
	leaseTTL    time.Duration
	log         logger.Logger
}

// Option applies a configuration option to the Executor.
type Option func(*Executor)

// WithLeaseTTL sets how long a distribution lease is held before a stalled
// run's lease may be reclaimed.
func WithLeaseTTL(ttl time.Duration) Option {
	return func(e *Executor) {
		if ttl > 0 {
			e.leaseTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the executor.
func WithLogger(log logger.Logger) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// NewExecutor creates a distribution executor over the given stores.
func NewExecutor(assignments repository.AssignmentStore, submissions repository.SubmissionStore, leases repository.LeaseStore, opts ...Option) *Executor {
	e := &Executor{
		assignments: assignments,
		submissions: submissions,
		leases:      leases,
		leaseTTL:    defaultLeaseTTL,
		log:         logger.Get().Named("distribution"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Distribute slices buckets per the desired matrix and applies the result
// as one atomic batch. buckets may be nil, in which case every submission
// for the competition is read back and re-bucketed.
//
// An advisory lease serializes concurrent runs for the same competition;
// a held lease fails the run with ErrDistributionInProgress.
func (e *Executor) Distribute(ctx context.Context, competitionID string, matrix Matrix, buckets map[string][]string) (Result, error) {
	if competitionID == "" {
		return Result{}, fmt.Errorf("%w: competition id is required", ErrInvalidMatrix)
	}
	if err := matrix.Validate(); err != nil {
		return Result{}, err
	}

	runID := uuid.NewString()
	start := time.Now()

	lease, err := e.leases.Acquire(ctx, competitionID, runID, e.leaseTTL)
	if err != nil {
		if errors.Is(err, repository.ErrLeaseHeld) {
			return Result{}, fmt.Errorf("%w: %s", ErrDistributionInProgress, competitionID)
		}
		return Result{}, fmt.Errorf("acquire lease: %w", err)
	}
	defer func() {
		// The release must run even when the caller's context is already
		// canceled, or the competition stays locked until the TTL expires.
		if rerr := e.leases.Release(context.WithoutCancel(ctx), competitionID, lease.Owner); rerr != nil {
			e.log.Warn(ctx, "lease release failed", logger.String("competition", competitionID), logger.Error(rerr))
		}
	}()

	if buckets == nil {
		buckets, err = e.deriveBuckets(ctx, competitionID)
		if err != nil {
			return Result{}, err
		}
	}

	existing, err := e.assignments.List(ctx, competitionID)
	if err != nil {
		return Result{}, fmt.Errorf("list assignments: %w", err)
	}
	existingByJudge := make(map[string]*model.JudgeAssignment, len(existing))
	for _, rec := range existing {
		existingByJudge[rec.JudgeID] = rec
	}

	plan := BuildPlan(buckets, matrix)
	batch := e.buildBatch(competitionID, plan, existingByJudge)

	if err := e.assignments.Apply(ctx, competitionID, batch); err != nil {
		metrics.RecordDistributionError()
		return Result{}, fmt.Errorf("apply assignment batch: %w", err)
	}

	result := Result{
		RunID:          runID,
		RequestedCount: plan.Requested,
		AssignedCount:  plan.Assigned,
		JudgesWritten:  len(batch.Put),
		JudgesDeleted:  len(batch.Delete),
	}

	metrics.RecordDistributionRun()
	metrics.RecordAssignedSubmissions(result.AssignedCount)
	metrics.RecordAssignmentWrites(result.JudgesWritten)
	metrics.RecordAssignmentDeletes(result.JudgesDeleted)
	metrics.RecordDistributionDuration(float64(time.Since(start).Microseconds()) / 1000.0)

	e.log.Info(ctx, "distribution applied",
		logger.String("competition", competitionID),
		logger.String("run", runID),
		logger.Int("requested", result.RequestedCount),
		logger.Int("assigned", result.AssignedCount),
		logger.Int("written", result.JudgesWritten),
		logger.Int("deleted", result.JudgesDeleted),
	)
	if result.AssignedCount < result.RequestedCount {
		e.log.Warn(ctx, "requested counts exceeded bucket sizes; tail slices truncated",
			logger.String("competition", competitionID),
			logger.Int("shortfall", result.RequestedCount-result.AssignedCount),
		)
	}
	return result, nil
}

// buildBatch turns a plan into the full overwrite batch. Every judge in the
// plan or with an existing record is accounted for: zero totals become
// deletes, everything else a wholesale put. Completed-challenge counters
// survive for challenges still assigned, capped at the new assigned count,
// and the review total is recomputed as their sum.
func (e *Executor) buildBatch(competitionID string, plan Plan, existing map[string]*model.JudgeAssignment) repository.Batch {
	var batch repository.Batch

	judgeSet := make(map[string]struct{}, len(plan.Judges)+len(existing))
	for j := range plan.Judges {
		judgeSet[j] = struct{}{}
	}
	for j := range existing {
		judgeSet[j] = struct{}{}
	}
	judgeIDs := make([]string, 0, len(judgeSet))
	for j := range judgeSet {
		judgeIDs = append(judgeIDs, j)
	}
	sort.Strings(judgeIDs)

	for _, judgeID := range judgeIDs {
		jp := plan.Judges[judgeID]
		prev := existing[judgeID]

		if jp == nil || jp.Total == 0 {
			if prev != nil {
				batch.Delete = append(batch.Delete, judgeID)
			}
			continue
		}

		rec := &model.JudgeAssignment{
			CompetitionID:             competitionID,
			JudgeID:                   judgeID,
			SubmissionsByChallenge:    jp.SubmissionsByChallenge,
			AssignedCountsByChallenge: jp.CountsByChallenge,
			AssignedCountTotal:        jp.Total,
			CompletedChallenges:       make(map[string]int),
		}
		if prev != nil {
			// The review total is rebuilt from the surviving per-challenge
			// counters, never copied. A judge handed entirely new work must
			// read as not started, or the progress aggregator would declare
			// the competition judged with zero reviews against the current
			// assignments.
			for challengeID, done := range prev.CompletedChallenges {
				assigned, ok := jp.CountsByChallenge[challengeID]
				if !ok {
					continue // stale challenge key, dropped with its assignment
				}
				if done > assigned {
					done = assigned
				}
				rec.CompletedChallenges[challengeID] = done
				rec.ReviewedCount += done
			}
		}
		batch.Put = append(batch.Put, rec)
	}
	return batch
}

// deriveBuckets is the fallback path when the caller has no pool output:
// every submission for the competition is read and grouped by challenge.
func (e *Executor) deriveBuckets(ctx context.Context, competitionID string) (map[string][]string, error) {
	subs, err := e.submissions.All(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("derive buckets: %w", err)
	}
	buckets := make(map[string][]string)
	for _, s := range subs {
		buckets[s.ChallengeID] = append(buckets[s.ChallengeID], s.ID)
	}
	for _, list := range buckets {
		sort.Strings(list)
	}
	return buckets, nil
}
