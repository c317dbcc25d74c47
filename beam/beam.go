// Package beam implements bidirectional beam search over partial
// permutation flow-shop schedules (spec §4.6): at each depth, nodes grow
// either a forward partial sequence (jobs assigned from the front) or a
// backward one (from the back), guided by a priority function that mixes
// the exact partial bound with per-machine idle-time signals, with the
// branching direction chosen adaptively and the beam width deepened
// iteratively until the time budget is exhausted.
//
// Grounded on the teacher pack's Branch & Bound engine shape
// (tsp/bb.go: explicit engine struct, priority-ordered frontier, admissible
// lower bound pruning) generalized from one complete bound to PFSS's two
// half-permutation bounds, and on the original solver's
// BranchingSchemeBidirectional (tree_search_pfss_makespan.cpp /
// tree_search_pfss_tft.cpp): per-machine time_forward/time_backward/
// remaining_processing_time/idle_time state, the five named guide
// functions, and the viable-candidate-count direction heuristic.
package beam

import (
	"sort"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/pfss"
	"github.com/fontanf/shopschedulingsolver/solution"
	"github.com/fontanf/shopschedulingsolver/solverctx"
)

// GuideFunc scores a partial node for frontier ordering: lower is "more
// promising". alpha is depth/n (spec §4.6's guide blending factor) and
// incumbentBound is the best complete solution's objective value found so
// far (nil before any leaf has been reached).
type GuideFunc func(n *Node, inst *instance.Instance, alpha float64, incumbentBound *int64) float64

// machineState is one machine's running aggregate for a node, per spec
// §4.6: completion time of the forward prefix and backward suffix, total
// remaining processing time over unscheduled jobs, and cumulative idle
// time charged to each direction.
type machineState struct {
	TimeForward             int64
	TimeBackward            int64
	RemainingProcessingTime int64
	IdleTimeForward         int64
	IdleTimeBackward        int64
}

// Node is one partial schedule in the beam: a set of jobs already placed at
// the front (Forward) and/or back (Backward) of the final permutation, plus
// the per-machine state and guide value used to order and prune the
// frontier.
type Node struct {
	Forward  []instance.JobID
	Backward []instance.JobID
	Placed   []bool // length n, true if job is in Forward or Backward

	Machines []machineState

	// IdleTime is the cumulative idle time charged across every machine and
	// both directions so far (spec §4.6's node->idle_time).
	IdleTime int64
	// WeightedIdleTime accumulates, at every extension step and machine, the
	// ratio of that machine's idle time to its busy time on whichever side
	// was just extended plus the already-settled ratio on the other side
	// (spec §4.6's node->weighted_idle_time; mirrors the original's
	// per-step accumulation exactly so guides 3/4 reproduce its behavior).
	WeightedIdleTime float64
	// Bound is the node's admissible lower bound on the final objective
	// (makespan, or the amortized total-flow-time bound for single
	// direction search).
	Bound int64
	Guide float64

	Depth int // number of jobs placed so far

	// CreatedForward records which direction produced this node, needed by
	// chooseDirection's "alternate the parent's direction" tie-break, which
	// inspects the grandparent's choice (this node's own CreatedForward,
	// since that IS the direction its parent decided for all its children).
	CreatedForward bool
}

// remainingCount returns the number of unplaced jobs.
func (n *Node) remainingCount() int {
	c := 0
	for _, p := range n.Placed {
		if !p {
			c++
		}
	}

	return c
}

// Params configures the beam search.
type Params struct {
	solverctx.Params

	// InitialBeamWidth is the frontier size at the first iterative-deepening
	// round; it doubles each round that fails to prove optimality in time.
	InitialBeamWidth int

	// MaxBeamWidth caps the doubling (0 = unbounded, rely on the timer).
	MaxBeamWidth int

	// Guide selects the scoring function; valid values 0..4 per spec §4.6.
	Guide int
}

// DefaultParams returns InitialBeamWidth=10, Guide=3 (spec §4.6's default:
// bound blended with weighted idle time).
func DefaultParams() Params {
	return Params{InitialBeamWidth: 10, MaxBeamWidth: 0, Guide: 3}
}

func p(inst *instance.Instance, job instance.JobID, machine instance.MachineID) int64 {
	return inst.ProcessingTime(job, machine, 0)
}

// rootNode returns the empty node for an n-job instance: remaining
// processing time seeded from every job's alternative-0 time on each
// machine, bound seeded from the last-machine total (spec §4.6 "Root").
func rootNode(inst *instance.Instance) *Node {
	m := inst.NumberOfMachines()
	n := inst.NumberOfJobs()
	machines := make([]machineState, m)
	for job := 0; job < n; job++ {
		for i := 0; i < m; i++ {
			machines[i].RemainingProcessingTime += p(inst, job, i)
		}
	}
	var bound int64
	for job := 0; job < n; job++ {
		bound += p(inst, job, m-1)
	}

	return &Node{
		Placed:   make([]bool, n),
		Machines: machines,
		Bound:    bound,
	}
}

// forwardBoundForCandidate computes the forward-extension lower bound for
// placing job next, without mutating node, mirroring the original's
// direction-choice per-candidate scan.
func forwardBoundForCandidate(inst *instance.Instance, node *Node, job instance.JobID) int64 {
	m := inst.NumberOfMachines()
	p0 := p(inst, job, 0)
	tPrec := node.Machines[0].TimeForward + p0
	bf := tPrec + (node.Machines[0].RemainingProcessingTime - p0) + node.Machines[0].TimeBackward
	for i := 1; i < m; i++ {
		pi := p(inst, job, i)
		var t int64
		if tPrec > node.Machines[i].TimeForward {
			t = tPrec + pi
		} else {
			t = node.Machines[i].TimeForward + pi
		}
		if cand := t + (node.Machines[i].RemainingProcessingTime - pi) + node.Machines[i].TimeBackward; cand > bf {
			bf = cand
		}
		tPrec = t
	}

	return bf
}

// backwardBoundForCandidate is forwardBoundForCandidate's mirror image,
// scanning machines from the last to the first.
func backwardBoundForCandidate(inst *instance.Instance, node *Node, job instance.JobID) int64 {
	m := inst.NumberOfMachines()
	last := m - 1
	pLast := p(inst, job, last)
	tPrec := node.Machines[last].TimeBackward + pLast
	bb := node.Machines[last].TimeForward + (node.Machines[last].RemainingProcessingTime - pLast) + tPrec
	for i := m - 2; i >= 0; i-- {
		pi := p(inst, job, i)
		var t int64
		if tPrec > node.Machines[i].TimeBackward {
			t = tPrec + pi
		} else {
			t = node.Machines[i].TimeBackward + pi
		}
		if cand := node.Machines[i].TimeForward + (node.Machines[i].RemainingProcessingTime - pi) + t; cand > bb {
			bb = cand
		}
		tPrec = t
	}

	return bb
}

// chooseDirection implements spec §4.6's adaptive direction heuristic:
// forward at depth 0, backward at depth 1, then whichever direction leaves
// fewer still-viable candidate jobs (not dominated in bound by
// incumbentBound), breaking ties by larger summed bound, then by
// alternating the grandparent's choice.
func chooseDirection(inst *instance.Instance, node *Node, incumbentBound *int64) bool {
	if node.Depth == 0 {
		return true
	}
	if node.Depth == 1 {
		return false
	}

	var nForward, nBackward int
	var boundForwardSum, boundBackwardSum int64
	for job := 0; job < len(node.Placed); job++ {
		if node.Placed[job] {
			continue
		}
		bf := forwardBoundForCandidate(inst, node, job)
		if incumbentBound == nil || bf < *incumbentBound {
			nForward++
			boundForwardSum += bf
		}
		bb := backwardBoundForCandidate(inst, node, job)
		if incumbentBound == nil || bb < *incumbentBound {
			nBackward++
			boundBackwardSum += bb
		}
	}

	switch {
	case nForward < nBackward:
		return true
	case nForward > nBackward:
		return false
	case boundForwardSum > boundBackwardSum:
		return true
	case boundForwardSum < boundBackwardSum:
		return false
	default:
		return !node.CreatedForward
	}
}

// makeForwardChild extends node by placing job next at the front. When
// tftAmortized is true, Bound is overridden by spec §4.6's single-direction
// amortized formula for TotalFlowTime instead of the bidirectional makespan
// bound.
func makeForwardChild(inst *instance.Instance, node *Node, job instance.JobID, tftAmortized bool, n int) *Node {
	m := inst.NumberOfMachines()
	child := &Node{
		Placed:         append([]bool(nil), node.Placed...),
		Forward:        append(append([]instance.JobID(nil), node.Forward...), job),
		Backward:       append([]instance.JobID(nil), node.Backward...),
		Machines:       make([]machineState, m),
		Depth:          node.Depth + 1,
		CreatedForward: true,
		IdleTime:       node.IdleTime,

		WeightedIdleTime: node.WeightedIdleTime,
	}
	child.Placed[job] = true

	p0 := p(inst, job, 0)
	tPrec := node.Machines[0].TimeForward + p0
	remaining0 := node.Machines[0].RemainingProcessingTime - p0
	child.Machines[0] = machineState{
		TimeForward:             tPrec,
		TimeBackward:            node.Machines[0].TimeBackward,
		RemainingProcessingTime: remaining0,
		IdleTimeForward:         node.Machines[0].IdleTimeForward,
		IdleTimeBackward:        node.Machines[0].IdleTimeBackward,
	}
	child.Bound = tPrec + remaining0 + node.Machines[0].TimeBackward
	if node.Machines[0].TimeBackward == 0 {
		child.WeightedIdleTime += 1
	} else {
		child.WeightedIdleTime += float64(node.Machines[0].IdleTimeBackward) / float64(node.Machines[0].TimeBackward)
	}

	for i := 1; i < m; i++ {
		pi := p(inst, job, i)
		machineIdle := node.Machines[i].IdleTimeForward
		var t int64
		if tPrec > node.Machines[i].TimeForward {
			idle := tPrec - node.Machines[i].TimeForward
			t = tPrec + pi
			machineIdle += idle
			child.IdleTime += idle
		} else {
			t = node.Machines[i].TimeForward + pi
		}
		remaining := node.Machines[i].RemainingProcessingTime - pi
		child.Machines[i] = machineState{
			TimeForward:             t,
			TimeBackward:            node.Machines[i].TimeBackward,
			RemainingProcessingTime: remaining,
			IdleTimeForward:         machineIdle,
			IdleTimeBackward:        node.Machines[i].IdleTimeBackward,
		}
		if t == 0 {
			child.WeightedIdleTime += 1
		} else {
			child.WeightedIdleTime += float64(machineIdle) / float64(t)
		}
		if node.Machines[i].TimeBackward == 0 {
			child.WeightedIdleTime += 1
		} else {
			child.WeightedIdleTime += float64(node.Machines[i].IdleTimeBackward) / float64(node.Machines[i].TimeBackward)
		}
		if bcand := t + remaining + node.Machines[i].TimeBackward; bcand > child.Bound {
			child.Bound = bcand
		}
		tPrec = t
	}

	if tftAmortized {
		last := m - 1
		child.Bound = node.Bound + int64(n-node.Depth)*(tPrec-node.Machines[last].TimeForward) - p(inst, job, last)
	}

	return child
}

// makeBackwardChild is makeForwardChild's mirror image: extends node by
// placing job next at the back, scanning machines from last to first.
func makeBackwardChild(inst *instance.Instance, node *Node, job instance.JobID) *Node {
	m := inst.NumberOfMachines()
	child := &Node{
		Placed:         append([]bool(nil), node.Placed...),
		Forward:        append([]instance.JobID(nil), node.Forward...),
		Backward:       append([]instance.JobID{job}, node.Backward...),
		Machines:       make([]machineState, m),
		Depth:          node.Depth + 1,
		CreatedForward: false,
		IdleTime:       node.IdleTime,

		WeightedIdleTime: node.WeightedIdleTime,
	}
	child.Placed[job] = true

	last := m - 1
	pLast := p(inst, job, last)
	tPrec := node.Machines[last].TimeBackward + pLast
	remainingLast := node.Machines[last].RemainingProcessingTime - pLast
	child.Machines[last] = machineState{
		TimeForward:             node.Machines[last].TimeForward,
		TimeBackward:            tPrec,
		RemainingProcessingTime: remainingLast,
		IdleTimeForward:         node.Machines[last].IdleTimeForward,
		IdleTimeBackward:        node.Machines[last].IdleTimeBackward,
	}
	child.Bound = node.Machines[last].TimeForward + remainingLast + tPrec
	if node.Machines[last].TimeForward == 0 {
		child.WeightedIdleTime += 1
	} else {
		child.WeightedIdleTime += float64(node.Machines[last].IdleTimeForward) / float64(node.Machines[last].TimeForward)
	}

	for i := m - 2; i >= 0; i-- {
		pi := p(inst, job, i)
		machineIdle := node.Machines[i].IdleTimeBackward
		var t int64
		if tPrec > node.Machines[i].TimeBackward {
			idle := tPrec - node.Machines[i].TimeBackward
			t = tPrec + pi
			machineIdle += idle
			child.IdleTime += idle
		} else {
			t = node.Machines[i].TimeBackward + pi
		}
		remaining := node.Machines[i].RemainingProcessingTime - pi
		child.Machines[i] = machineState{
			TimeForward:             node.Machines[i].TimeForward,
			TimeBackward:            t,
			RemainingProcessingTime: remaining,
			IdleTimeForward:         node.Machines[i].IdleTimeForward,
			IdleTimeBackward:        machineIdle,
		}
		if node.Machines[i].TimeForward == 0 {
			child.WeightedIdleTime += 1
		} else {
			child.WeightedIdleTime += float64(node.Machines[i].IdleTimeForward) / float64(node.Machines[i].TimeForward)
		}
		if t == 0 {
			child.WeightedIdleTime += 1
		} else {
			child.WeightedIdleTime += float64(machineIdle) / float64(t)
		}
		if bcand := node.Machines[i].TimeForward + remaining + t; bcand > child.Bound {
			child.Bound = bcand
		}
		tPrec = t
	}

	return child
}

// Guides implements the five guide functions named in spec §4.6, where
// alpha = depth/n:
//
//	0: bound.
//	1: total idle time.
//	2: alpha·bound + (1-alpha)·idle·n/m.
//	3: alpha·bound + (1-alpha)·weighted_idle·bound (default).
//	4: adaptive blend using the current best bound when a complete
//	   solution is already known, otherwise the same shape as guide 3
//	   with alpha/1-alpha swapped against weighted_idle alone.
var Guides = [5]GuideFunc{
	func(n *Node, inst *instance.Instance, alpha float64, incumbentBound *int64) float64 {
		return float64(n.Bound)
	},
	func(n *Node, inst *instance.Instance, alpha float64, incumbentBound *int64) float64 {
		return float64(n.IdleTime)
	},
	func(n *Node, inst *instance.Instance, alpha float64, incumbentBound *int64) float64 {
		m := inst.NumberOfMachines()
		return alpha*float64(n.Bound) + (1-alpha)*float64(n.IdleTime)*float64(inst.NumberOfJobs())/float64(m)
	},
	func(n *Node, inst *instance.Instance, alpha float64, incumbentBound *int64) float64 {
		return alpha*float64(n.Bound) + (1-alpha)*n.WeightedIdleTime*float64(n.Bound)
	},
	func(n *Node, inst *instance.Instance, alpha float64, incumbentBound *int64) float64 {
		var a1, a2 float64
		if incumbentBound != nil && *incumbentBound != n.Bound {
			a1 = float64(*incumbentBound) / float64(*incumbentBound-n.Bound)
			a2 = float64(*incumbentBound-n.Bound) / float64(*incumbentBound)
		} else {
			a1 = 1 - alpha
			a2 = alpha
		}

		return a1*float64(n.Bound) + a2*n.WeightedIdleTime
	},
}

// isLeaf reports whether every job has been placed.
func isLeaf(n *Node) bool { return n.remainingCount() == 0 }

// leafPermutation concatenates Forward and Backward into a full
// permutation; Backward is already stored back-to-front (see
// makeBackwardChild).
func leafPermutation(n *Node) []instance.JobID {
	out := make([]instance.JobID, 0, len(n.Forward)+len(n.Backward))
	out = append(out, n.Forward...)
	out = append(out, n.Backward...)

	return out
}

// leafMakespan replays a leaf's full permutation through the plain forward
// recurrence: the authoritative makespan, independent of whether the
// permutation was assembled from one or both directions.
func leafMakespan(inst *instance.Instance, n *Node) int64 {
	m := inst.NumberOfMachines()
	row := make([]int64, m)
	for _, job := range leafPermutation(n) {
		next := make([]int64, m)
		next[0] = row[0] + p(inst, job, 0)
		for i := 1; i < m; i++ {
			base := row[i]
			if next[i-1] > base {
				base = next[i-1]
			}
			next[i] = base + p(inst, job, i)
		}
		row = next
	}

	return row[m-1]
}

// Run is the bidirectional beam search algorithm for PFSS makespan (spec
// §4.6). For the TotalFlowTime objective, spec §4.6 mandates a
// single-direction (forward-only) scheme, since partial flow time cannot be
// bounded symmetrically from the back; Run detects the objective and forces
// forward branching, with the amortized bound formula, in that case.
func Run(inst *instance.Instance, sctxParams solverctx.Params, ctx *solverctx.Context) (solverctx.Output, error) {
	params := DefaultParams()
	params.Params = sctxParams

	return RunWithParams(inst, params, ctx)
}

// objectiveValue returns sol's value for inst's declared objective, the
// metric this search tracks as its incumbent bound.
func objectiveValue(inst *instance.Instance, sol *solution.Solution) int64 {
	if inst.Objective() == instance.TotalFlowTime {
		return sol.TotalFlowTime()
	}

	return sol.Makespan()
}

// RunWithParams is Run with explicit beam-search parameters.
func RunWithParams(inst *instance.Instance, params Params, ctx *solverctx.Context) (solverctx.Output, error) {
	if !inst.FlowShop() || !inst.Permutation() {
		return solverctx.Output{}, pfss.ErrNotPermutationFlowShop
	}
	guideIdx := params.Guide
	if guideIdx < 0 || guideIdx >= len(Guides) {
		guideIdx = 3
	}
	guide := Guides[guideIdx]
	singleDirection := inst.Objective() == instance.TotalFlowTime

	width := params.InitialBeamWidth
	if width <= 0 {
		width = 10
	}

	var incumbent *int64
	if best := ctx.Best(); best.Solution != nil {
		v := objectiveValue(inst, best.Solution)
		incumbent = &v
	}

	for !ctx.Timer.NeedsToEnd() {
		leaf, proved := runOnePass(inst, params, guide, singleDirection, width, ctx, &incumbent)
		if leaf != nil {
			sb, err := solution.NewBuilder(inst)
			if err != nil {
				return solverctx.Output{}, err
			}
			if err := sb.FromPermutation(leafPermutation(leaf)); err == nil {
				sol := sb.Build()
				ctx.UpdateSolution(sol, "beam")
				v := objectiveValue(inst, sol)
				if incumbent == nil || v < *incumbent {
					incumbent = &v
				}
			}
		}
		if proved {
			break
		}
		if params.MaxBeamWidth > 0 && width >= params.MaxBeamWidth {
			break
		}
		width *= 2
	}

	return ctx.Best(), nil
}

// runOnePass runs one iterative-deepening round at a fixed beam width,
// returning the best leaf found and whether the frontier was exhausted
// without being truncated (a proxy for "proved optimal at this width": if
// the frontier never exceeded width, beam search degenerates to exhaustive
// search and the result is exact). Children whose bound cannot beat
// *incumbent are pruned before joining the next frontier, per spec §4.6
// ("prune children dominated in bound by the current best complete
// solution").
func runOnePass(inst *instance.Instance, params Params, guide GuideFunc, singleDirection bool, width int, ctx *solverctx.Context, incumbent **int64) (*Node, bool) {
	n := inst.NumberOfJobs()
	frontier := []*Node{rootNode(inst)}
	var bestLeaf *Node
	var bestMakespan int64 = -1
	exact := true

	for len(frontier) > 0 {
		if ctx.Timer.NeedsToEnd() {
			return bestLeaf, false
		}

		var nextFrontier []*Node
		for _, node := range frontier {
			if isLeaf(node) {
				mk := leafMakespan(inst, node)
				if bestMakespan == -1 || mk < bestMakespan {
					bestMakespan = mk
					bestLeaf = node
				}
				continue
			}

			forward := singleDirection || chooseDirection(inst, node, *incumbent)
			alpha := float64(node.Depth+1) / float64(n)
			for job := 0; job < len(node.Placed); job++ {
				if node.Placed[job] {
					continue
				}
				var child *Node
				if forward {
					child = makeForwardChild(inst, node, job, singleDirection, n)
				} else {
					child = makeBackwardChild(inst, node, job)
				}
				if *incumbent != nil && child.Bound >= **incumbent {
					continue
				}
				child.Guide = guide(child, inst, alpha, *incumbent)
				nextFrontier = append(nextFrontier, child)
			}
		}

		if len(nextFrontier) > width {
			exact = false
			sort.SliceStable(nextFrontier, func(i, j int) bool {
				return nextFrontier[i].Guide < nextFrontier[j].Guide
			})
			nextFrontier = nextFrontier[:width]
		}
		frontier = nextFrontier
	}

	return bestLeaf, exact
}
