// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// SubmissionStatus enumerates the lifecycle states of a submission.
type SubmissionStatus string

// Submission status values.
const (
	SubmissionDraft     SubmissionStatus = "draft"
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionEvaluated SubmissionStatus = "evaluated"
)

// Competition is the root document for one contest.
type Competition struct {
	ID   string
	Name string

	// TopN bounds the qualifying pool for judge distribution.
	TopN int
	// MaxPerJudge is the operator hint used when a new matrix is drafted.
	MaxPerJudge int

	// AllJudgeEvaluated caches the aggregator's last all-clear verdict.
	// It is only ever flipped from false to true; staleness is covered by
	// recomputing whenever the flag reads false.
	AllJudgeEvaluated   bool
	HasFinalLeaderboard bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LeaderboardEntry is one row of the ranked standings. Rank is 1-based and
// unique within a competition. Owned by the external evaluation pipeline;
// read-only here.
type LeaderboardEntry struct {
	ParticipantID string  `json:"participant_id"`
	Rank          int     `json:"rank"`
	TotalScore    float64 `json:"total_score"`
}

// Submission is one participant's answer to one challenge.
type Submission struct {
	ID            string           `json:"id"`
	ParticipantID string           `json:"participant_id"`
	ChallengeID   string           `json:"challenge_id"`
	Content       string           `json:"content"`
	Status        SubmissionStatus `json:"status"`
}

// SubmissionID builds the canonical participantID_challengeID key.
func SubmissionID(participantID, challengeID string) string {
	return participantID + "_" + challengeID
}

// SplitSubmissionID recovers the participant and challenge parts of a
// submission key. Participant IDs never contain underscores; challenge IDs
// may, so the split happens at the first underscore.
func SplitSubmissionID(id string) (participantID, challengeID string, err error) {
	i := strings.Index(id, "_")
	if i <= 0 || i == len(id)-1 {
		return "", "", fmt.Errorf("malformed submission id %q", id)
	}
	return id[:i], id[i+1:], nil
}

// JudgeAssignment is the persisted per-judge review workload for one
// competition. Created and overwritten wholesale by the distribution
// executor; deleted when a run leaves the judge with nothing assigned.
type JudgeAssignment struct {
	CompetitionID string
	JudgeID       string

	// SubmissionsByChallenge holds the ordered submission IDs the judge
	// must review, keyed by challenge.
	SubmissionsByChallenge map[string][]string

	// AssignedCountsByChallenge mirrors len(SubmissionsByChallenge[c]).
	AssignedCountsByChallenge map[string]int

	// AssignedCountTotal always equals the sum of AssignedCountsByChallenge.
	AssignedCountTotal int

	// ReviewedCount is monotonically non-decreasing and maintained by the
	// review-recording path.
	ReviewedCount int

	// CompletedChallenges counts finished reviews per challenge.
	CompletedChallenges map[string]int

	UpdatedAt time.Time
}

// Clone returns a deep copy so store snapshots cannot be mutated by callers.
func (a *JudgeAssignment) Clone() *JudgeAssignment {
	if a == nil {
		return nil
	}
	c := *a
	c.SubmissionsByChallenge = make(map[string][]string, len(a.SubmissionsByChallenge))
	for k, v := range a.SubmissionsByChallenge {
		c.SubmissionsByChallenge[k] = append([]string(nil), v...)
	}
	c.AssignedCountsByChallenge = make(map[string]int, len(a.AssignedCountsByChallenge))
	for k, v := range a.AssignedCountsByChallenge {
		c.AssignedCountsByChallenge[k] = v
	}
	c.CompletedChallenges = make(map[string]int, len(a.CompletedChallenges))
	for k, v := range a.CompletedChallenges {
		c.CompletedChallenges[k] = v
	}
	return &c
}

// Complete reports whether the judge has reviewed everything assigned.
// Counts are compared as integers; ratios are for display only.
func (a *JudgeAssignment) Complete() bool {
	return a.AssignedCountTotal > 0 && a.ReviewedCount >= a.AssignedCountTotal
}
