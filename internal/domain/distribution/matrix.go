// Package distribution assigns submission buckets to judges: it builds the
// current challenge/judge count matrix, slices buckets deterministically
// against a desired matrix, and persists the result as a full overwrite of
// the per-judge assignment records.
package distribution

import (
	"context"
	"fmt"
	"sort"

	"github.com/promptarena/verdict/internal/adapters/repository"
)

// Matrix maps challenge ID -> judge ID -> desired assignment count.
type Matrix map[string]map[string]int

// Challenges returns the challenge IDs in sorted order. All slicing walks
// challenges and judges in sorted order so a run is reproducible; Go map
// iteration order would not be.
func (m Matrix) Challenges() []string {
	out := make([]string, 0, len(m))
	for c := range m {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Judges returns the judge IDs for one challenge in sorted order.
func (m Matrix) Judges(challengeID string) []string {
	out := make([]string, 0, len(m[challengeID]))
	for j := range m[challengeID] {
		out = append(out, j)
	}
	sort.Strings(out)
	return out
}

// Validate rejects nil matrices and negative counts before any I/O.
func (m Matrix) Validate() error {
	if m == nil {
		return fmt.Errorf("%w: assignment matrix is required", ErrInvalidMatrix)
	}
	for c, judges := range m {
		if c == "" {
			return fmt.Errorf("%w: empty challenge id", ErrInvalidMatrix)
		}
		for j, n := range judges {
			if j == "" {
				return fmt.Errorf("%w: empty judge id in challenge %s", ErrInvalidMatrix, c)
			}
			if n < 0 {
				return fmt.Errorf("%w: negative count %d for judge %s in challenge %s", ErrInvalidMatrix, n, j, c)
			}
		}
	}
	return nil
}

// Builder reconstructs the currently persisted matrix for display and
// reconciliation. It performs no writes.
type Builder struct {
	assignments repository.AssignmentStore
}

// NewBuilder creates a matrix builder over the assignment store.
func NewBuilder(assignments repository.AssignmentStore) *Builder {
	return &Builder{assignments: assignments}
}

// CurrentMatrix accumulates challenge/judge counts from every assignment
// record. A competition with no records yields an empty matrix.
func (b *Builder) CurrentMatrix(ctx context.Context, competitionID string) (Matrix, error) {
	records, err := b.assignments.List(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	matrix := make(Matrix)
	for _, rec := range records {
		for challengeID, subs := range rec.SubmissionsByChallenge {
			row := matrix[challengeID]
			if row == nil {
				row = make(map[string]int)
				matrix[challengeID] = row
			}
			row[rec.JudgeID] += len(subs)
		}
	}
	return matrix, nil
}
