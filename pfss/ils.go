package pfss

import (
	"math/rand"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/solution"
	"github.com/fontanf/shopschedulingsolver/solverctx"
)

// Params configures the PFSS iterated local search, composed into a
// solverctx.Params by the CLI/driver layer.
type Params struct {
	solverctx.Params

	// MaxBlockSize caps the block-move neighborhood size s (spec §4.5 names
	// s ∈ {1,2,3,4}).
	MaxBlockSize int

	// DestructionSize is the number of jobs removed and reinserted per ILS
	// iteration when local search reaches a local optimum.
	DestructionSize int

	// MaxIterationsWithoutImprovement stops the search after this many
	// consecutive non-improving outer iterations (0 = unbounded, rely on
	// ctx.Timer instead).
	MaxIterationsWithoutImprovement int
}

// DefaultParams returns the spec-named defaults: block sizes 1..4,
// destruction size 4.
func DefaultParams() Params {
	return Params{MaxBlockSize: 4, DestructionSize: 4, MaxIterationsWithoutImprovement: 0}
}

// solutionFromTableau builds a solution.Solution from a tableau's current
// permutation via solution.Builder.FromPermutation.
func solutionFromTableau(inst *instance.Instance, tb *Tableau) *solution.Solution {
	sb, err := solution.NewBuilder(inst)
	if err != nil {
		solverctx.Panic("pfss", "solution builder rejected instance accepted by tableau", map[string]any{"error": err.Error()})
	}
	if err := sb.FromPermutation(tb.Permutation()); err != nil {
		solverctx.Panic("pfss", "FromPermutation rejected tableau permutation", map[string]any{"error": err.Error()})
	}

	return sb.Build()
}

// localSearch hill-climbs tb's permutation via block moves, per spec §4.5:
// block sizes 1..params.MaxBlockSize are searched smallest-first, and the
// first size at which a strict improvement exists is applied immediately,
// restarting the whole sweep from size 1 (rather than scanning every size
// and taking one global best move per outer iteration). Within a size, the
// source and target positions are each visited in an independent random
// shuffle (rng), and the best strict improvement across that size's
// (posOld, posNew) pairs wins, ties broken by shuffle order. Loops until no
// block size yields an improving move.
//
// Complexity per outer iteration: O(n²·m) worst case (every size scanned
// once before an improving move is found at the largest size); each size
// costs n-size+1 EvaluateBlockMoves sweeps of O(n·size·m), so even a round
// that improves at size 1 costs O(n²·m).
func localSearch(tb *Tableau, params Params, ctx *solverctx.Context, rng *rand.Rand) {
	n := tb.n
	for {
		if ctx.Timer.NeedsToEnd() {
			return
		}

		improvedThisRound := false
		for size := 1; size <= params.MaxBlockSize && size <= n; size++ {
			if ctx.Timer.NeedsToEnd() {
				return
			}

			current := tb.Makespan()
			bestGain := int64(0)
			bestPosOld, bestPosNew := -1, -1

			posOlds := rng.Perm(n - size + 1)
			posNews := rng.Perm(n - size + 1)
			for _, posOld := range posOlds {
				moves := tb.EvaluateBlockMoves(posOld, size)
				for _, posNew := range posNews {
					if posNew == posOld {
						continue
					}
					gain := current - moves[posNew]
					if gain > bestGain {
						bestGain = gain
						bestPosOld, bestPosNew = posOld, posNew
					}
				}
			}

			if bestGain > 0 {
				tb.ApplyBlockMove(bestPosOld, size, bestPosNew)
				improvedThisRound = true
				break
			}
		}

		if !improvedThisRound {
			return
		}
	}
}

// destructAndReconstruct removes a contiguous block of DestructionSize jobs,
// starting at a random position, from tb's permutation and reinserts each,
// in a random order, at its best-makespan position (greedy NEH-style
// reinsertion), mutating tb in place.
func destructAndReconstruct(inst *instance.Instance, tb *Tableau, params Params, rng *rand.Rand) {
	n := tb.n
	d := params.DestructionSize
	if d <= 0 || d >= n {
		return
	}
	perm := tb.Permutation()
	start := rng.Intn(n - d + 1)

	removed := append([]instance.JobID(nil), perm[start:start+d]...)
	rest := append(append([]instance.JobID(nil), perm[:start]...), perm[start+d:]...)
	rng.Shuffle(len(removed), func(i, j int) { removed[i], removed[j] = removed[j], removed[i] })

	for _, job := range removed {
		pos, _ := bestInsertion(inst, rest, job)
		next := make([]instance.JobID, 0, len(rest)+1)
		next = append(next, rest[:pos]...)
		next = append(next, job)
		next = append(next, rest[pos:]...)
		rest = next
	}

	if err := tb.SetPermutation(rest); err != nil {
		solverctx.Panic("pfss", "reconstructed permutation rejected by tableau", map[string]any{"error": err.Error()})
	}
}

// Run is the PFSS iterated local search algorithm (spec §4.5): construct an
// initial permutation via NEH, improve it with block-move local search to a
// local optimum, then repeatedly destroy-and-reconstruct a small block and
// re-optimize, keeping a diversity-preserving population of the best
// permutations seen and reporting every improving solution via ctx.
//
// Run implements solverctx.Algorithm's signature so it can be registered in
// the CLI's algorithm dispatch table.
func Run(inst *instance.Instance, sctxParams solverctx.Params, ctx *solverctx.Context) (solverctx.Output, error) {
	params := DefaultParams()
	params.Params = sctxParams
	return RunWithParams(inst, params, ctx)
}

// RunWithParams is Run with explicit PFSS-specific parameters (block size,
// destruction size, stall limit), used directly by tests and by callers
// that need finer control than the Algorithm-shaped Run provides.
func RunWithParams(inst *instance.Instance, params Params, ctx *solverctx.Context) (solverctx.Output, error) {
	if !inst.FlowShop() || !inst.Permutation() {
		return solverctx.Output{}, ErrNotPermutationFlowShop
	}

	rng := rand.New(rand.NewSource(params.Seed))
	tb, err := NEHConstructWithLocalSearch(inst, params, ctx, rng)
	if err != nil {
		return solverctx.Output{}, err
	}
	ctx.UpdateSolution(solutionFromTableau(inst, tb), "nehinitial")

	pop := NewPopulation()
	pop.Offer(tb.Permutation(), tb.Makespan())

	stall := 0
	for !ctx.Timer.NeedsToEnd() {
		if params.MaxIterationsWithoutImprovement > 0 && stall >= params.MaxIterationsWithoutImprovement {
			break
		}

		base := pop.Best()
		if base == nil {
			base = tb.Permutation()
		}
		if err := tb.SetPermutation(base); err != nil {
			solverctx.Panic("pfss", "population member rejected by tableau", map[string]any{"error": err.Error()})
		}

		destructAndReconstruct(inst, tb, params, rng)
		localSearch(tb, params, ctx, rng)

		improved := ctx.UpdateSolution(solutionFromTableau(inst, tb), "ils")
		pop.Offer(tb.Permutation(), tb.Makespan())

		if improved {
			stall = 0
		} else {
			stall++
		}
	}

	return ctx.Best(), nil
}
