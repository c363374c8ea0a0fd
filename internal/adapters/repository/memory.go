package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/pkg/metrics"
)

// MemoryStore is the in-process document store. One RWMutex covers every
// collection so an assignment batch is atomic with respect to readers,
// matching the backing store's batched-write guarantee.
type MemoryStore struct {
	mu sync.RWMutex

	competitions map[string]*model.Competition
	rankings     map[string][]model.LeaderboardEntry // competitionID -> entries
	submissions  map[string]map[string]model.Submission
	assignments  map[string]map[string]*model.JudgeAssignment
	leases       map[string]Lease

	now func() time.Time
}

// Compile-time port checks.
var (
	_ RankingStore     = (*MemoryStore)(nil)
	_ SubmissionStore  = (*MemoryStore)(nil)
	_ AssignmentStore  = (*MemoryStore)(nil)
	_ CompetitionStore = (*MemoryStore)(nil)
	_ LeaseStore       = (*MemoryStore)(nil)
)

// NewMemoryStore creates an empty store with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		competitions: make(map[string]*model.Competition),
		rankings:     make(map[string][]model.LeaderboardEntry),
		submissions:  make(map[string]map[string]model.Submission),
		assignments:  make(map[string]map[string]*model.JudgeAssignment),
		leases:       make(map[string]Lease),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PutCompetition seeds or replaces a competition document.
func (s *MemoryStore) PutCompetition(c *model.Competition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.competitions[c.ID] = &cp
}

// PutRanking seeds the standings for a competition.
func (s *MemoryStore) PutRanking(competitionID string, entries []model.LeaderboardEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rankings[competitionID] = append([]model.LeaderboardEntry(nil), entries...)
}

// PutSubmissions seeds submissions for a competition.
func (s *MemoryStore) PutSubmissions(competitionID string, subs []model.Submission) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.submissions[competitionID]
	if m == nil {
		m = make(map[string]model.Submission, len(subs))
		s.submissions[competitionID] = m
	}
	for _, sub := range subs {
		if sub.ID == "" {
			sub.ID = model.SubmissionID(sub.ParticipantID, sub.ChallengeID)
		}
		m[sub.ID] = sub
	}
}

// TopN implements RankingStore.
func (s *MemoryStore) TopN(ctx context.Context, competitionID string, n int) ([]model.LeaderboardEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ranking query: %w", err)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := append([]model.LeaderboardEntry(nil), s.rankings[competitionID]...)
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalScore != entries[j].TotalScore {
			return entries[i].TotalScore > entries[j].TotalScore
		}
		return entries[i].Rank < entries[j].Rank
	})
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

// ByParticipants implements SubmissionStore. The id limit is enforced here
// even though the in-memory store could ignore it, so callers chunk the
// same way they must against the real backend.
func (s *MemoryStore) ByParticipants(ctx context.Context, competitionID string, ids []string) ([]model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submission query: %w", err)
	}
	if len(ids) > MaxMembershipIDs {
		return nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyIDs, len(ids), MaxMembershipIDs)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(msSince(start)) }()

	member := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		member[id] = struct{}{}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Submission
	for _, sub := range s.submissions[competitionID] {
		if _, ok := member[sub.ParticipantID]; ok {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// All implements SubmissionStore.
func (s *MemoryStore) All(ctx context.Context, competitionID string) ([]model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submission scan: %w", err)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreQueryLatency(msSince(start)) }()

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Submission, 0, len(s.submissions[competitionID]))
	for _, sub := range s.submissions[competitionID] {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// List implements AssignmentStore.
func (s *MemoryStore) List(ctx context.Context, competitionID string) ([]*model.JudgeAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assignment list: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.JudgeAssignment, 0, len(s.assignments[competitionID]))
	for _, a := range s.assignments[competitionID] {
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].JudgeID < out[j].JudgeID })
	return out, nil
}

// Get implements AssignmentStore.
func (s *MemoryStore) Get(ctx context.Context, competitionID, judgeID string) (*model.JudgeAssignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("assignment get: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[competitionID][judgeID]
	if !ok {
		return nil, fmt.Errorf("judge %s: %w", judgeID, ErrNotFound)
	}
	return a.Clone(), nil
}

// Apply implements AssignmentStore. Puts and deletes land under one lock
// acquisition: readers observe either the whole batch or none of it.
func (s *MemoryStore) Apply(ctx context.Context, competitionID string, batch Batch) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("assignment batch: %w", err)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreUpdateLatency(msSince(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	coll := s.assignments[competitionID]
	if coll == nil {
		coll = make(map[string]*model.JudgeAssignment)
		s.assignments[competitionID] = coll
	}
	now := s.now()
	for _, a := range batch.Put {
		cp := a.Clone()
		cp.CompetitionID = competitionID
		cp.UpdatedAt = now
		coll[cp.JudgeID] = cp
	}
	for _, judgeID := range batch.Delete {
		delete(coll, judgeID)
	}
	return nil
}

// Update implements AssignmentStore.
func (s *MemoryStore) Update(ctx context.Context, competitionID, judgeID string, fn func(*model.JudgeAssignment) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("assignment update: %w", err)
	}
	start := time.Now()
	defer func() { metrics.RecordStoreUpdateLatency(msSince(start)) }()

	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assignments[competitionID][judgeID]
	if !ok {
		return fmt.Errorf("judge %s: %w", judgeID, ErrNotFound)
	}
	cp := a.Clone()
	if err := fn(cp); err != nil {
		return err
	}
	cp.UpdatedAt = s.now()
	s.assignments[competitionID][judgeID] = cp
	return nil
}

// Get implements CompetitionStore.
func (s *MemoryStore) GetCompetition(ctx context.Context, competitionID string) (*model.Competition, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("competition get: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.competitions[competitionID]
	if !ok {
		return nil, fmt.Errorf("competition %s: %w", competitionID, ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

// SetDistributionConfig implements CompetitionStore.
func (s *MemoryStore) SetDistributionConfig(ctx context.Context, competitionID string, topN, maxPerJudge int) error {
	return s.mutateCompetition(ctx, competitionID, func(c *model.Competition) {
		c.TopN = topN
		c.MaxPerJudge = maxPerJudge
	})
}

// SetAllJudgeEvaluated implements CompetitionStore.
func (s *MemoryStore) SetAllJudgeEvaluated(ctx context.Context, competitionID string, v bool) error {
	return s.mutateCompetition(ctx, competitionID, func(c *model.Competition) {
		c.AllJudgeEvaluated = v
	})
}

// SetHasFinalLeaderboard implements CompetitionStore.
func (s *MemoryStore) SetHasFinalLeaderboard(ctx context.Context, competitionID string, v bool) error {
	return s.mutateCompetition(ctx, competitionID, func(c *model.Competition) {
		c.HasFinalLeaderboard = v
	})
}

func (s *MemoryStore) mutateCompetition(ctx context.Context, competitionID string, fn func(*model.Competition)) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("competition update: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.competitions[competitionID]
	if !ok {
		return fmt.Errorf("competition %s: %w", competitionID, ErrNotFound)
	}
	fn(c)
	c.UpdatedAt = s.now()
	return nil
}

// Acquire implements LeaseStore.
func (s *MemoryStore) Acquire(ctx context.Context, competitionID, owner string, ttl time.Duration) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return Lease{}, fmt.Errorf("lease acquire: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if cur, ok := s.leases[competitionID]; ok && cur.Owner != owner && cur.ExpiresAt.After(now) {
		metrics.RecordLeaseContention()
		return Lease{}, fmt.Errorf("competition %s: %w", competitionID, ErrLeaseHeld)
	}
	lease := Lease{CompetitionID: competitionID, Owner: owner, ExpiresAt: now.Add(ttl)}
	s.leases[competitionID] = lease
	metrics.RecordLeaseAcquired()
	return lease, nil
}

// Release implements LeaseStore. Releasing a lease you no longer hold is a
// no-op rather than an error: the lease may have expired and been taken.
func (s *MemoryStore) Release(ctx context.Context, competitionID, owner string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("lease release: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.leases[competitionID]; ok && cur.Owner == owner {
		delete(s.leases, competitionID)
	}
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000.0
}
