// Package pfss implements the permutation flow-shop (PFSS) makespan solver:
// an incrementally-maintained forward/backward completion-time tableau
// (this file), an iterated local search built on it (ils.go, population.go,
// construct.go).
//
// Design mirrors the teacher pack's tsp package: a dedicated engine struct
// instead of closures (explicit dependencies, predictable hot-path state),
// strict sentinel errors, deterministic loops with pre-declared indices, and
// doc comments naming complexity (see tsp/bb.go, tsp/two_opt.go).
package pfss

import (
	"errors"

	"github.com/fontanf/shopschedulingsolver/instance"
)

// Sentinel errors for the PFSS tableau and local search.
var (
	// ErrNotPermutationFlowShop indicates the instance does not satisfy
	// permutation ⇒ flow_shop (spec §3 invariant); PFSS algorithms require it.
	ErrNotPermutationFlowShop = errors.New("pfss: instance is not a permutation flow shop")

	// ErrInvalidPermutation indicates perm is not a permutation of [0, n).
	ErrInvalidPermutation = errors.New("pfss: invalid permutation")
)

// Tableau maintains the forward (F) and backward (R) completion-time grids
// for a permutation π over m machines, per spec §4.4:
//
//	F[pos][i] = completion time of job π_{pos−1} on machine i, given that
//	            jobs π₀..π_{pos−1} have been scheduled; F[0][i] = 0.
//	R[k][i]   = completion time contributed by machine i if the suffix
//	            π_k..π_{n-1} were scheduled alone, accumulated with machines
//	            visited in REVERSE order (i = m-1 down to 0); R[n][i] = 0.
//
// R's reversed machine order is what makes the split identity hold: for
// every split position k, max_i(F[k][i] + R[k][i]) equals the permutation's
// true makespan (this is the classic Taillard accelerated-insertion tail
// array, not a plain mirrored copy of F's recurrence — see
// EvaluateBlockMoves, which is the whole reason R is maintained).
//
// Both grids are sized (n+1)×m. Tableau owns the processing-time lookups
// (p(job, machine) = instance alternative 0 of operation `machine`, since a
// permutation flow shop instance guarantees operation i uses machine i).
type Tableau struct {
	inst *instance.Instance
	n    int
	m    int

	perm  []instance.JobID // current permutation, length n
	posOf []int            // inverse index: job -> position (sized to inst's total job count)

	F [][]int64 // (n+1) x m
	R [][]int64 // (n+1) x m
}

// p returns the processing time of job on machine (alternative 0 of
// operation `machine`, valid only for permutation flow-shop instances).
func (tb *Tableau) p(job instance.JobID, machine instance.MachineID) int64 {
	return tb.inst.ProcessingTime(job, machine, 0)
}

// NewTableau validates that inst is usable for PFSS (permutation ⇒
// flow_shop) and returns a Tableau built from the given initial
// permutation. perm must be a permutation of [0, inst.NumberOfJobs()).
//
// Complexity: O(n·m).
func NewTableau(inst *instance.Instance, perm []instance.JobID) (*Tableau, error) {
	if !inst.FlowShop() {
		return nil, ErrNotPermutationFlowShop
	}
	total := inst.NumberOfJobs()
	if err := validateFullPermutation(perm, total); err != nil {
		return nil, err
	}

	return newTableau(inst, perm, total)
}

// NewPartialTableau is NewTableau generalized to a permutation covering only
// a SUBSET of inst's jobs: len(perm) may be less than inst.NumberOfJobs().
// Used by NEH construction (construct.go) to run local search on the
// growing prefix after every single-job insertion, per spec §4.5 ("insert
// them one at a time at the best position via tableau, running local search
// after each insertion"), rather than only once the full permutation exists.
//
// perm must still be duplicate-free and every job must be a valid job id of
// inst; it need not cover every job. All Tableau methods operate on
// len(perm) as "n" regardless of how many jobs inst actually has.
//
// Complexity: O(s·m) where s = len(perm).
func NewPartialTableau(inst *instance.Instance, perm []instance.JobID) (*Tableau, error) {
	if !inst.FlowShop() {
		return nil, ErrNotPermutationFlowShop
	}
	total := inst.NumberOfJobs()
	if err := validatePartialPermutation(perm, total); err != nil {
		return nil, err
	}

	return newTableau(inst, perm, total)
}

func newTableau(inst *instance.Instance, perm []instance.JobID, totalJobs int) (*Tableau, error) {
	n := len(perm)
	m := inst.NumberOfMachines()

	tb := &Tableau{
		inst:  inst,
		n:     n,
		m:     m,
		perm:  append([]instance.JobID(nil), perm...),
		posOf: make([]int, totalJobs),
		F:     makeGrid(n+1, m),
		R:     makeGrid(n+1, m),
	}
	for i := range tb.posOf {
		tb.posOf[i] = -1
	}
	for pos, job := range tb.perm {
		tb.posOf[job] = pos
	}
	tb.RecomputeForwardFrom(0)
	tb.RecomputeBackwardFrom(n)

	return tb, nil
}

func makeGrid(rows, cols int) [][]int64 {
	g := make([][]int64, rows)
	for i := range g {
		g[i] = make([]int64, cols)
	}

	return g
}

// validateFullPermutation requires perm to cover every job in [0, n) exactly
// once.
func validateFullPermutation(perm []instance.JobID, n int) error {
	if len(perm) != n {
		return ErrInvalidPermutation
	}

	return validatePartialPermutation(perm, n)
}

// validatePartialPermutation requires perm to be duplicate-free and every
// entry to be a valid job id in [0, n); it need not cover every job.
func validatePartialPermutation(perm []instance.JobID, n int) error {
	seen := make([]bool, n)
	for _, job := range perm {
		if job < 0 || int(job) >= n || seen[job] {
			return ErrInvalidPermutation
		}
		seen[job] = true
	}

	return nil
}

// Permutation returns a copy of the current permutation.
func (tb *Tableau) Permutation() []instance.JobID {
	return append([]instance.JobID(nil), tb.perm...)
}

// Len returns the number of jobs currently placed in the tableau (equal to
// inst.NumberOfJobs() for a Tableau built by NewTableau; possibly smaller
// for one built by NewPartialTableau).
func (tb *Tableau) Len() int { return tb.n }

// Makespan returns F[n][m-1], the tableau's cached makespan.
func (tb *Tableau) Makespan() int64 { return tb.F[tb.n][tb.m-1] }

// RecomputeForwardFrom recomputes F[pos..n] using the current permutation,
// reusing F[pos-1] (assumed already valid). Passing 0 recomputes the whole
// grid.
//
// Recurrence: F[pos][0] = F[pos-1][0] + p(π_{pos-1}, 0);
//
//	F[pos][i] = max(F[pos-1][i], F[pos][i-1]) + p(π_{pos-1}, i).
//
// Complexity: O((n-pos)·m).
func (tb *Tableau) RecomputeForwardFrom(pos int) {
	if pos == 0 {
		for i := 0; i < tb.m; i++ {
			tb.F[0][i] = 0
		}
		pos = 1
	}
	for q := pos; q <= tb.n; q++ {
		job := tb.perm[q-1]
		tb.F[q][0] = tb.F[q-1][0] + tb.p(job, 0)
		for i := 1; i < tb.m; i++ {
			prev := tb.F[q-1][i]
			left := tb.F[q][i-1]
			base := prev
			if left > base {
				base = left
			}
			tb.F[q][i] = base + tb.p(job, i)
		}
	}
}

// RecomputeBackwardFrom recomputes R[0..q] using the current permutation.
// R[k][i] is the tail value of the suffix π_k..π_{n-1}, accumulated with
// machines visited in REVERSE order (i = m-1 downto 0) — the mirror image of
// F's machine order, not a copy of it. Passing n recomputes the whole grid.
//
// Recurrence: R[n][i] = 0;
//
//	R[k][m-1]   = R[k+1][m-1] + p(π_k, m-1);
//	R[k][i]     = max(R[k+1][i], R[k][i+1]) + p(π_k, i)   for i = m-2..0.
//
// This reversed machine order is what makes max_i(F[k][i]+R[k][i]) equal the
// true makespan at every split k (spec §4.4's invariant) — using F's own
// machine order here (i increasing from R[k][i-1]) silently breaks that
// identity at interior splits even though endpoints still happen to match.
//
// Complexity: O(q·m).
func (tb *Tableau) RecomputeBackwardFrom(q int) {
	if q == tb.n {
		for i := 0; i < tb.m; i++ {
			tb.R[tb.n][i] = 0
		}
		q = tb.n - 1
	}
	last := tb.m - 1
	for k := q; k >= 0; k-- {
		job := tb.perm[k]
		tb.R[k][last] = tb.R[k+1][last] + tb.p(job, last)
		for i := last - 1; i >= 0; i-- {
			next := tb.R[k+1][i]
			right := tb.R[k][i+1]
			base := next
			if right > base {
				base = right
			}
			tb.R[k][i] = base + tb.p(job, i)
		}
	}
}

// SetPermutation replaces the current permutation and fully rebuilds F, R.
// Use RecomputeForwardFrom/RecomputeBackwardFrom after a localized in-place
// edit (see ApplyBlockMove) instead, to avoid the full O(n·m) rebuild.
//
// Complexity: O(n·m).
func (tb *Tableau) SetPermutation(perm []instance.JobID) error {
	if err := validateFullPermutation(perm, tb.n); err != nil {
		return err
	}
	copy(tb.perm, perm)
	for pos, job := range tb.perm {
		tb.posOf[job] = pos
	}
	tb.RecomputeForwardFrom(0)
	tb.RecomputeBackwardFrom(tb.n)

	return nil
}

// candidateBlockPermutation returns the permutation obtained by removing
// the s jobs at posOld and reinserting them (in original relative order) so
// that the block's first job ends up at position posNew in the resulting
// (n-long) sequence. posNew is expressed in the post-removal index space
// (0 ≤ posNew ≤ n-s).
func (tb *Tableau) candidateBlockPermutation(posOld, size, posNew int) []instance.JobID {
	block := append([]instance.JobID(nil), tb.perm[posOld:posOld+size]...)
	rest := tb.restSequence(posOld, size)

	out := make([]instance.JobID, 0, tb.n)
	out = append(out, rest[:posNew]...)
	out = append(out, block...)
	out = append(out, rest[posNew:]...)

	return out
}

// restSequence returns the permutation with the size jobs starting at
// posOld removed, length tb.n-size.
func (tb *Tableau) restSequence(posOld, size int) []instance.JobID {
	rest := make([]instance.JobID, 0, tb.n-size)
	rest = append(rest, tb.perm[:posOld]...)
	rest = append(rest, tb.perm[posOld+size:]...)

	return rest
}

// forwardRowsOf returns the (len(seq)+1) x m forward completion-time rows
// for seq scheduled alone from time 0, in F's machine order (i increasing).
// row[0] is all zero.
func (tb *Tableau) forwardRowsOf(seq []instance.JobID) [][]int64 {
	rows := makeGrid(len(seq)+1, tb.m)
	for q := 1; q <= len(seq); q++ {
		job := seq[q-1]
		rows[q][0] = rows[q-1][0] + tb.p(job, 0)
		for i := 1; i < tb.m; i++ {
			base := rows[q-1][i]
			if rows[q][i-1] > base {
				base = rows[q][i-1]
			}
			rows[q][i] = base + tb.p(job, i)
		}
	}

	return rows
}

// backwardRowsOf returns the (len(seq)+1) x m tail rows for seq, built with
// R's reversed machine order (i decreasing) so that for any split t,
// max_i(row[i] + backwardRowsOf(seq)[t][i]) gives the true makespan of
// row's sequence followed by seq[t:], where row is the forward completion
// row entering position t. row[len(seq)] is all zero.
func (tb *Tableau) backwardRowsOf(seq []instance.JobID) [][]int64 {
	rows := makeGrid(len(seq)+1, tb.m)
	last := tb.m - 1
	for k := len(seq) - 1; k >= 0; k-- {
		job := seq[k]
		rows[k][last] = rows[k+1][last] + tb.p(job, last)
		for i := last - 1; i >= 0; i-- {
			base := rows[k+1][i]
			if rows[k][i+1] > base {
				base = rows[k][i+1]
			}
			rows[k][i] = base + tb.p(job, i)
		}
	}

	return rows
}

// EvaluateBlockMoves returns, for every post-removal insertion position
// posNew in [0, n-size], the makespan that would result from moving the
// block of `size` jobs starting at posOld there, without mutating the
// tableau. Per spec §4.4, this is the tableau's accelerated sweep: the
// "rest" sequence (permutation with the block removed) is forward- and
// tail-summarized ONCE, each candidate posNew then costs only O(size·m) to
// evaluate by chaining the block's own jobs onto the forward row and
// combining with the precomputed tail row via the F+R split identity,
// instead of replaying the whole suffix per candidate.
//
// Complexity: O(n·m) for the two summaries plus O(size·m) per posNew, so
// O(n·size·m) for the whole sweep.
func (tb *Tableau) EvaluateBlockMoves(posOld, size int) []int64 {
	rest := tb.restSequence(posOld, size)
	block := tb.perm[posOld : posOld+size]

	e := tb.forwardRowsOf(rest)
	r := tb.backwardRowsOf(rest)

	out := make([]int64, len(rest)+1)
	for t := 0; t <= len(rest); t++ {
		row := e[t]
		for _, job := range block {
			next := make([]int64, tb.m)
			next[0] = row[0] + tb.p(job, 0)
			for i := 1; i < tb.m; i++ {
				base := row[i]
				if next[i-1] > base {
					base = next[i-1]
				}
				next[i] = base + tb.p(job, i)
			}
			row = next
		}

		var best int64
		for i := 0; i < tb.m; i++ {
			if cand := row[i] + r[t][i]; cand > best {
				best = cand
			}
		}
		out[t] = best
	}

	return out
}

// EvaluateBlockMove returns the makespan that would result from moving the
// block of `size` jobs starting at posOld to post-removal position posNew,
// without mutating the tableau. It is a thin wrapper over EvaluateBlockMoves
// for callers that only need a single candidate; callers evaluating a whole
// neighborhood of posNew values for the same (posOld, size) should call
// EvaluateBlockMoves directly to amortize the sweep.
//
// Complexity: O(n·size·m), the cost of the full sweep.
func (tb *Tableau) EvaluateBlockMove(posOld, size, posNew int) int64 {
	return tb.EvaluateBlockMoves(posOld, size)[posNew]
}

// ApplyBlockMove mutates the tableau in place: removes the block of `size`
// jobs at posOld and reinserts it at post-removal position posNew, then
// incrementally recomputes F from the first changed position and R from the
// last changed position.
//
// Complexity: O(n·m) worst case (a move can touch any suffix), O(m·(n+size))
// typical when posOld and posNew are close.
func (tb *Tableau) ApplyBlockMove(posOld, size, posNew int) {
	candidate := tb.candidateBlockPermutation(posOld, size, posNew)
	changedFrom := posOld
	if posNew < changedFrom {
		changedFrom = posNew
	}
	changedTo := posOld
	if posNew > changedTo {
		changedTo = posNew
	}
	changedTo += size - 1
	copy(tb.perm, candidate)
	for pos, job := range tb.perm {
		tb.posOf[job] = pos
	}
	tb.RecomputeForwardFrom(changedFrom)
	tb.RecomputeBackwardFrom(changedTo)
}
