// Package pool resolves the qualifying submission pool for a competition:
// the top-N ranked participants and their submissions grouped into ordered
// per-challenge buckets.
package pool

import (
	"context"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/promptarena/verdict/internal/adapters/repository"
	"github.com/promptarena/verdict/internal/domain/model"
	"github.com/promptarena/verdict/pkg/logger"
)

// Default fan-out bound for chunked membership queries.
const defaultQueryParallelism = 4

// Buckets maps challenge ID to the ordered submission IDs eligible for
// distribution. Each list is sorted lexicographically so repeated reads of
// the same pool slice identically.
type Buckets map[string][]string

// Pool is the result of one read: the qualifying participants in rank
// order and their submissions bucketed by challenge.
type Pool struct {
	ParticipantIDs   []string
	Buckets          Buckets
	SubmissionsTotal int
}

// Reader reads the ranking and submission stores.
type Reader struct {
	rankings    repository.RankingStore
	submissions repository.SubmissionStore
	parallelism int
	log         logger.Logger
}

// Option applies a configuration option to the Reader.
type Option func(*Reader)

// WithParallelism bounds the number of concurrent membership queries.
func WithParallelism(n int) Option {
	return func(r *Reader) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

// WithLogger sets a custom logger for the reader.
func WithLogger(log logger.Logger) Option {
	return func(r *Reader) {
		if log != nil {
			r.log = log
		}
	}
}

// NewReader creates a pool reader over the given stores.
func NewReader(rankings repository.RankingStore, submissions repository.SubmissionStore, opts ...Option) *Reader {
	r := &Reader{
		rankings:    rankings,
		submissions: submissions,
		parallelism: defaultQueryParallelism,
		log:         logger.Get().Named("pool"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadPool resolves the top-N participants and groups their submissions by
// challenge. An empty qualifier set is a valid "nothing to distribute"
// state and returns an empty pool, not an error.
func (r *Reader) ReadPool(ctx context.Context, competitionID string, topN int) (Pool, error) {
	if competitionID == "" {
		return Pool{}, fmt.Errorf("%w: competition id is required", ErrInvalidInput)
	}
	if topN <= 0 {
		return Pool{}, fmt.Errorf("%w: topN must be positive, got %d", ErrInvalidInput, topN)
	}

	entries, err := r.rankings.TopN(ctx, competitionID, topN)
	if err != nil {
		return Pool{}, fmt.Errorf("read rankings: %w", err)
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ParticipantID)
	}
	if len(ids) == 0 {
		r.log.Debug(ctx, "no qualifying participants",
			logger.String("competition", competitionID),
			logger.Int("topN", topN),
		)
		return Pool{ParticipantIDs: []string{}, Buckets: Buckets{}}, nil
	}

	subs, err := r.fetchByParticipants(ctx, competitionID, ids)
	if err != nil {
		return Pool{}, err
	}

	pool := Pool{
		ParticipantIDs:   ids,
		Buckets:          bucketize(subs),
		SubmissionsTotal: len(subs),
	}
	r.log.Debug(ctx, "pool resolved",
		logger.String("competition", competitionID),
		logger.Int("participants", len(ids)),
		logger.Int("submissions", len(subs)),
		logger.Int("challenges", len(pool.Buckets)),
	)
	return pool, nil
}

// fetchByParticipants issues one membership query per chunk of at most
// MaxMembershipIDs participant IDs, fanned out with bounded parallelism
// and joined before results merge.
func (r *Reader) fetchByParticipants(ctx context.Context, competitionID string, ids []string) ([]model.Submission, error) {
	chunks := chunkIDs(ids, repository.MaxMembershipIDs)
	results := make([][]model.Submission, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)
	for i, chunk := range chunks {
		g.Go(func() error {
			subs, err := r.submissions.ByParticipants(gctx, competitionID, chunk)
			if err != nil {
				return fmt.Errorf("membership query (chunk %d): %w", i, err)
			}
			results[i] = subs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var merged []model.Submission
	for _, subs := range results {
		merged = append(merged, subs...)
	}
	return merged, nil
}

// bucketize groups submissions by challenge and sorts each bucket by
// submission ID for deterministic slicing.
func bucketize(subs []model.Submission) Buckets {
	buckets := make(Buckets)
	for _, s := range subs {
		buckets[s.ChallengeID] = append(buckets[s.ChallengeID], s.ID)
	}
	for _, list := range buckets {
		sort.Strings(list)
	}
	return buckets
}

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []string, size int) [][]string {
	var chunks [][]string
	for len(ids) > size {
		chunks = append(chunks, ids[:size])
		ids = ids[size:]
	}
	if len(ids) > 0 {
		chunks = append(chunks, ids)
	}
	return chunks
}
