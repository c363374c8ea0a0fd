// Package repository defines the document-store ports backing the judging
// workflow and an in-memory implementation of them.
package repository

import (
	"context"
	"time"

	"github.com/promptarena/verdict/internal/domain/model"
)

// MaxMembershipIDs caps the number of participant IDs a single membership
// query may carry, mirroring the backing store's "in" filter limit.
const MaxMembershipIDs = 10

// RankingStore reads the standings produced by the evaluation pipeline.
type RankingStore interface {
	// TopN returns up to n entries ordered by score descending, rank
	// ascending as the tiebreak. An empty result is not an error.
	TopN(ctx context.Context, competitionID string, n int) ([]model.LeaderboardEntry, error)
}

// SubmissionStore reads submissions keyed by participantID_challengeID.
type SubmissionStore interface {
	// ByParticipants returns submissions whose participant is in ids.
	// Returns ErrTooManyIDs when len(ids) exceeds MaxMembershipIDs.
	ByParticipants(ctx context.Context, competitionID string, ids []string) ([]model.Submission, error)

	// All returns every submission for the competition.
	All(ctx context.Context, competitionID string) ([]model.Submission, error)
}

// Batch carries the full set of assignment mutations for one distribution
// run. Apply is all-or-nothing: readers never observe a partial overwrite.
type Batch struct {
	Put    []*model.JudgeAssignment
	Delete []string // judge IDs whose record is removed
}

// AssignmentStore persists per-judge assignment records.
type AssignmentStore interface {
	// List returns every assignment record for the competition.
	List(ctx context.Context, competitionID string) ([]*model.JudgeAssignment, error)

	// Get returns the record for one judge, or ErrNotFound.
	Get(ctx context.Context, competitionID, judgeID string) (*model.JudgeAssignment, error)

	// Apply atomically applies all puts and deletes in the batch.
	Apply(ctx context.Context, competitionID string, batch Batch) error

	// Update runs fn against the current record for a judge and persists
	// the result. Used by the review-recording path.
	Update(ctx context.Context, competitionID, judgeID string, fn func(*model.JudgeAssignment) error) error
}

// CompetitionStore reads and mutates competition documents.
type CompetitionStore interface {
	GetCompetition(ctx context.Context, competitionID string) (*model.Competition, error)

	// SetDistributionConfig persists the operator's topN / maxPerJudge.
	SetDistributionConfig(ctx context.Context, competitionID string, topN, maxPerJudge int) error

	// SetAllJudgeEvaluated flips the cached aggregator verdict.
	SetAllJudgeEvaluated(ctx context.Context, competitionID string, v bool) error

	// SetHasFinalLeaderboard records that generation succeeded.
	SetHasFinalLeaderboard(ctx context.Context, competitionID string, v bool) error
}

// Lease is an advisory, expiring per-competition lock guarding
// distribution runs against concurrent writers.
type Lease struct {
	CompetitionID string
	Owner         string
	ExpiresAt     time.Time
}

// LeaseStore hands out advisory distribution leases.
type LeaseStore interface {
	// Acquire grants the lease to owner for ttl, or returns ErrLeaseHeld
	// while another owner holds an unexpired lease.
	Acquire(ctx context.Context, competitionID, owner string, ttl time.Duration) (Lease, error)

	// Release frees the lease if owner still holds it.
	Release(ctx context.Context, competitionID, owner string) error
}
