package distribution

import "sort"

// JudgePlan is the computed workload for one judge in a run.
type JudgePlan struct {
	JudgeID                string
	SubmissionsByChallenge map[string][]string
	CountsByChallenge      map[string]int
	Total                  int
}

// Plan is the full outcome of slicing buckets against a desired matrix.
// Judges with a zero total are present with Total == 0 so the executor can
// translate them into record deletions.
type Plan struct {
	Judges map[string]*JudgePlan

	// Requested is the sum of all matrix counts; Assigned is what the
	// buckets could actually cover. Assigned < Requested means one or
	// more challenges ran out of submissions and the tail slices were
	// truncated.
	Requested int
	Assigned  int
}

// JudgeIDs returns the planned judge IDs in sorted order.
func (p Plan) JudgeIDs() []string {
	out := make([]string, 0, len(p.Judges))
	for j := range p.Judges {
		out = append(out, j)
	}
	sort.Strings(out)
	return out
}

// BuildPlan slices each challenge's bucket into contiguous, non-overlapping
// runs per judge. Challenges and judges are walked in sorted order and each
// judge consumes the next count unconsumed IDs, so two runs over the same
// buckets and matrix produce identical assignments and no submission is
// handed to two judges for the same challenge.
//
// When requested counts exceed the bucket size the tail slices come up
// short or empty; the shortfall is reported via Requested vs Assigned
// rather than raised as an error.
func BuildPlan(buckets map[string][]string, matrix Matrix) Plan {
	plan := Plan{Judges: make(map[string]*JudgePlan)}

	judgeFor := func(id string) *JudgePlan {
		jp := plan.Judges[id]
		if jp == nil {
			jp = &JudgePlan{
				JudgeID:                id,
				SubmissionsByChallenge: make(map[string][]string),
				CountsByChallenge:      make(map[string]int),
			}
			plan.Judges[id] = jp
		}
		return jp
	}

	for _, challengeID := range matrix.Challenges() {
		bucket := buckets[challengeID]
		cursor := 0
		for _, judgeID := range matrix.Judges(challengeID) {
			count := matrix[challengeID][judgeID]
			if count == 0 {
				// Still materialize the judge so an explicit zero row
				// translates into stale-key removal downstream.
				judgeFor(judgeID)
				continue
			}
			plan.Requested += count

			end := cursor + count
			if end > len(bucket) {
				end = len(bucket)
			}
			var slice []string
			if cursor < end {
				slice = append([]string(nil), bucket[cursor:end]...)
			}
			cursor = end

			jp := judgeFor(judgeID)
			if len(slice) > 0 {
				jp.SubmissionsByChallenge[challengeID] = slice
				jp.CountsByChallenge[challengeID] = len(slice)
				jp.Total += len(slice)
				plan.Assigned += len(slice)
			}
		}
	}
	return plan
}
