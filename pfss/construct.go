package pfss

import (
	"math/rand"
	"sort"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/solverctx"
)

// InitialPermutation returns the job order that NEH construction (and so
// ILS) starts from: jobs ordered by decreasing mean processing
// time (ties broken by job id for determinism), the construction rule named
// in spec §4.5.
//
// Complexity: O(n log n).
func InitialPermutation(inst *instance.Instance) []instance.JobID {
	n := inst.NumberOfJobs()
	perm := make([]instance.JobID, n)
	for j := 0; j < n; j++ {
		perm[j] = j
	}
	sort.SliceStable(perm, func(i, k int) bool {
		ji, jk := perm[i], perm[k]
		mi, mk := inst.Job(ji).MeanProcessingTime, inst.Job(jk).MeanProcessingTime
		if mi != mk {
			return mi > mk
		}

		return ji < jk
	})

	return perm
}

// partialMakespan returns the makespan of scheduling perm (a subsequence of
// jobs, not necessarily all of them) as a standalone permutation flow shop:
// the same forward recurrence Tableau.RecomputeForwardFrom uses, but usable
// on a partial job list since NEH construction and destruction/reconstruction
// need to rank candidate insertions before the full permutation exists.
//
// Complexity: O(len(perm)·m).
func partialMakespan(inst *instance.Instance, perm []instance.JobID) int64 {
	m := inst.NumberOfMachines()
	row := make([]int64, m)
	for _, job := range perm {
		next := make([]int64, m)
		next[0] = row[0] + inst.ProcessingTime(job, 0, 0)
		for i := 1; i < m; i++ {
			base := row[i]
			if next[i-1] > base {
				base = next[i-1]
			}
			next[i] = base + inst.ProcessingTime(job, i, 0)
		}
		row = next
	}
	if m == 0 {
		return 0
	}

	return row[m-1]
}

// bestInsertion scans every insertion position for job among the other
// already-placed jobs and returns the position (in the resulting list) and
// makespan that minimizes the partial schedule's makespan. Used by NEH-style
// greedy construction and by destruction/reconstruction (ils.go).
//
// Complexity: O(len(placed)²·m) per call (len(placed)+1 candidate positions,
// each evaluated in O(len(placed)·m)).
func bestInsertion(inst *instance.Instance, placed []instance.JobID, job instance.JobID) (int, int64) {
	bestPos := 0
	var bestMakespan int64 = -1
	candidate := make([]instance.JobID, len(placed)+1)
	for pos := 0; pos <= len(placed); pos++ {
		copy(candidate[:pos], placed[:pos])
		candidate[pos] = job
		copy(candidate[pos+1:], placed[pos:])

		mk := partialMakespan(inst, candidate)
		if bestMakespan == -1 || mk < bestMakespan {
			bestMakespan = mk
			bestPos = pos
		}
	}

	return bestPos, bestMakespan
}

// NEHConstruct builds a permutation with the classic NEH scheme: jobs are
// considered in InitialPermutation order and each is inserted at the
// position, among all positions in the partial sequence built so far, that
// minimizes the partial makespan.
//
// Complexity: O(n³·m) (n bestInsertion calls).
func NEHConstruct(inst *instance.Instance) []instance.JobID {
	order := InitialPermutation(inst)
	if len(order) == 0 {
		return order
	}
	placed := []instance.JobID{order[0]}
	for _, job := range order[1:] {
		pos, _ := bestInsertion(inst, placed, job)
		next := make([]instance.JobID, 0, len(placed)+1)
		next = append(next, placed[:pos]...)
		next = append(next, job)
		next = append(next, placed[pos:]...)
		placed = next
	}

	return placed
}

// NEHConstructWithLocalSearch builds the initial PFSS permutation the way
// spec §4.5 actually specifies: jobs are considered in InitialPermutation
// order and each is inserted at its best position via bestInsertion, which
// replays the partial sequence for every candidate position and does not use
// the tableau, with block-move local search run on the partial tableau after
// EVERY insertion
// rather than once at the end, grounded in the original solver's
// per-insertion add_job(...); local_search(...) construction loop. Once the
// timer is exhausted, remaining jobs are appended via bestInsertion without
// further local search so construction always finishes with a full,
// feasible permutation.
//
// Complexity: O(n³·m) for the insertions alone, plus whatever local search
// spends at each of the n-1 intermediate sizes.
func NEHConstructWithLocalSearch(inst *instance.Instance, params Params, ctx *solverctx.Context, rng *rand.Rand) (*Tableau, error) {
	order := InitialPermutation(inst)
	if len(order) == 0 {
		return NewTableau(inst, order)
	}

	placed := []instance.JobID{order[0]}
	for _, job := range order[1:] {
		pos, _ := bestInsertion(inst, placed, job)
		next := make([]instance.JobID, 0, len(placed)+1)
		next = append(next, placed[:pos]...)
		next = append(next, job)
		next = append(next, placed[pos:]...)
		placed = next

		if ctx.Timer.NeedsToEnd() {
			continue
		}
		tb, err := NewPartialTableau(inst, placed)
		if err != nil {
			return nil, err
		}
		localSearch(tb, params, ctx, rng)
		placed = tb.Permutation()
	}

	return NewTableau(inst, placed)
}
