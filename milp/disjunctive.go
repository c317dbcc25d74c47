// Package milp builds sparsemat.Model instances encoding the disjunctive
// (this file) and positional (positional.go) MILP formulations of spec.md
// §4.7/§4.8, consumed by an milpsolver.Backend.
package milp

import (
	"errors"
	"fmt"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/milp/sparsemat"
)

// ErrInvalidConfig indicates an unsupported instance/formulation
// combination (spec §7 kind 2), e.g. positional MILP on a non-PFSS
// instance.
var ErrInvalidConfig = errors.New("milp: invalid configuration")

// bigM returns a safe big-M constant: the sum, over every operation, of its
// largest alternative processing time, plus one, large enough to slacken any disjunctive/precedence pair.
func bigM(inst *instance.Instance) float64 {
	var sum int64
	for j := 0; j < inst.NumberOfJobs(); j++ {
		for _, op := range inst.Job(j).Operations {
			var maxP int64
			for _, alt := range op.Alternatives {
				if alt.ProcessingTime > maxP {
					maxP = alt.ProcessingTime
				}
			}
			sum += maxP
		}
	}

	return float64(sum) + 1
}

// disjBuilder accumulates the disjunctive model's variables, grounded on
// spec.md §4.7's variable table.
type disjBuilder struct {
	inst     *instance.Instance
	m        *sparsemat.Model
	bigM     float64
	openShop bool

	// co[j][o] = completion-time variable index of (job j, operation o).
	co [][]int
	// x[j][o][a] = alternative-selection binary index (flexible only).
	x [][][]int
	// p[j][o] = processing-time variable index (flexible or blocking only).
	p [][]int
	// ck[j][o][a] = per-alternative completion-time index (flexible only);
	// 0 whenever the alternative isn't selected.
	ck [][][]int
	// psum[j] = Σ_o p[j][o], index or -1 (created for (blocking or
	// flexible) ∧ open shop).
	psum []int
	// cj[j] = open-shop flow-time variable index, or -1.
	cj []int
	// t[j] = tardiness variable index, or -1 (created iff objective is
	// TotalTardiness).
	t []int
	// s[j] = job start variable index, or -1 (created for (no_wait or
	// blocking) ∧ open shop).
	s []int
	// sm[machine] = no-idle slack variable index, present only for
	// no_idle machines when the instance is mixed_no_idle.
	sm map[instance.MachineID]int
	// pmsum[machine] = selected total processing time on machine, present
	// only when mixed_no_idle ∧ flexible.
	pmsum map[instance.MachineID]int

	cmax int // -1 if not created
}

// BuildDisjunctive constructs the disjunctive MILP model for inst, per
// spec.md §4.7. It creates only the variable/constraint families the
// instance's flags require, as the spec's variable table specifies.
//
// Complexity: O(total alternatives + machines·jobs²) for the pairwise
// machine-disjunction rows.
func BuildDisjunctive(inst *instance.Instance) (*sparsemat.Model, error) {
	db := &disjBuilder{
		inst:     inst,
		m:        sparsemat.NewModel("disjunctive"),
		bigM:     bigM(inst),
		openShop: inst.OperationsArbitraryOrder(),
		sm:       make(map[instance.MachineID]int),
		pmsum:    make(map[instance.MachineID]int),
		cmax:     -1,
	}
	db.createVariables()
	db.createConstraints()

	return db.m, nil
}

func (db *disjBuilder) createVariables() {
	n := db.inst.NumberOfJobs()
	db.co = make([][]int, n)
	db.x = make([][][]int, n)
	db.p = make([][]int, n)
	db.ck = make([][][]int, n)
	db.psum = make([]int, n)
	db.cj = make([]int, n)
	db.t = make([]int, n)
	db.s = make([]int, n)
	for j := range db.psum {
		db.psum[j], db.cj[j], db.t[j], db.s[j] = -1, -1, -1, -1
	}

	for j := 0; j < n; j++ {
		ops := db.inst.Job(j).Operations
		db.co[j] = make([]int, len(ops))
		db.x[j] = make([][]int, len(ops))
		db.p[j] = make([]int, len(ops))
		db.ck[j] = make([][]int, len(ops))
		var prefixMin int64

		for o, op := range ops {
			minP := op.Alternatives[0].ProcessingTime
			for _, alt := range op.Alternatives {
				if alt.ProcessingTime < minP {
					minP = alt.ProcessingTime
				}
			}
			prefixMin += minP

			db.co[j][o] = db.m.AddVariable(sparsemat.Variable{
				Name: fmt.Sprintf("co_%d_%d", j, o), Kind: sparsemat.Integer,
				LowerBound: float64(prefixMin), UpperBound: db.bigM,
			})

			if db.inst.Flexible() {
				db.x[j][o] = make([]int, len(op.Alternatives))
				db.ck[j][o] = make([]int, len(op.Alternatives))
				for a := range op.Alternatives {
					db.x[j][o][a] = db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("x_%d_%d_%d", j, o, a), Kind: sparsemat.Binary})
					db.ck[j][o][a] = db.m.AddVariable(sparsemat.Variable{
						Name: fmt.Sprintf("ck_%d_%d_%d", j, o, a), Kind: sparsemat.Integer,
						LowerBound: 0, UpperBound: db.bigM,
					})
				}
			}
			if db.inst.Flexible() || db.inst.Blocking() {
				db.p[j][o] = db.m.AddVariable(sparsemat.Variable{
					Name: fmt.Sprintf("p_%d_%d", j, o), Kind: sparsemat.Integer,
					LowerBound: float64(minP), UpperBound: db.bigM,
				})
			}
		}

		if (db.inst.Blocking() || db.inst.Flexible()) && db.openShop {
			db.psum[j] = db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("psum_%d", j), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: db.bigM})
		}
		if (db.inst.NoWait() || db.inst.Blocking()) && db.openShop {
			db.s[j] = db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("s_%d", j), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: db.bigM})
		}
		if db.inst.Objective() == instance.TotalFlowTime && db.openShop {
			db.cj[j] = db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("cj_%d", j), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: db.bigM})
		}
		if db.inst.Objective() == instance.TotalTardiness {
			db.t[j] = db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("t_%d", j), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: db.bigM})
		}
	}

	if db.inst.MixedNoIdle() {
		for i := 0; i < db.inst.NumberOfMachines(); i++ {
			if !db.inst.Machine(i).NoIdle {
				continue
			}
			db.sm[i] = db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("sm_%d", i), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: db.bigM})
			if db.inst.Flexible() {
				db.pmsum[i] = db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("pmsum_%d", i), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: db.bigM})
			}
		}
	}

	db.createObjective()
}

// createObjective wires the model's minimization objective per spec.md
// §4.7: "minimize cmax, or Σ wⱼ·coⱼ,o_last (flow time, flow shop), or
// Σ wⱼ·cjⱼ (flow time, open shop), or Σ wⱼ·tⱼ." Throughput has no MILP
// objective term: spec §9's documented convention counts every job that
// completes, and a feasible disjunctive model always schedules every job
// to completion, so Throughput is a constant for any feasible solution —
// the model below is built objective-free (a feasibility search) in that
// case, which already finds the one value Throughput can take.
func (db *disjBuilder) createObjective() {
	switch db.inst.Objective() {
	case instance.Makespan:
		db.cmax = db.m.AddVariable(sparsemat.Variable{Name: "cmax", Kind: sparsemat.Integer, LowerBound: 0, UpperBound: db.bigM})
		db.m.SetObjectiveCoeff(db.cmax, 1)
	case instance.TotalFlowTime:
		for j := 0; j < db.inst.NumberOfJobs(); j++ {
			w := float64(db.inst.Job(j).Weight)
			if db.openShop {
				_ = db.m.SetObjectiveCoeff(db.cj[j], w)
			} else {
				lastOp := len(db.inst.Job(j).Operations) - 1
				_ = db.m.SetObjectiveCoeff(db.co[j][lastOp], w)
			}
		}
	case instance.TotalTardiness:
		for j := 0; j < db.inst.NumberOfJobs(); j++ {
			_ = db.m.SetObjectiveCoeff(db.t[j], float64(db.inst.Job(j).Weight))
		}
	case instance.Throughput:
		// No objective terms: see doc comment above.
	}
}

func (db *disjBuilder) addRow(name string, coeffs map[int]float64, sense sparsemat.RowSense, rhs float64) {
	_, _ = db.m.AddRow(sparsemat.Row{Name: name, Coeffs: coeffs, Sense: sense, RHS: rhs})
}

func (db *disjBuilder) createConstraints() {
	n := db.inst.NumberOfJobs()

	for j := 0; j < n; j++ {
		ops := db.inst.Job(j).Operations
		for o, op := range ops {
			// Alternative selection (flexible).
			if db.inst.Flexible() {
				coeffs := make(map[int]float64, len(op.Alternatives))
				for a := range op.Alternatives {
					coeffs[db.x[j][o][a]] = 1
				}
				db.addRow(fmt.Sprintf("altsel_%d_%d", j, o), coeffs, sparsemat.EQ, 1)

				// p[j,o] = Σ_a p(j,o,a)·x[j,o,a]
				pCoeffs := map[int]float64{db.p[j][o]: -1}
				for a, alt := range op.Alternatives {
					pCoeffs[db.x[j][o][a]] = float64(alt.ProcessingTime)
				}
				db.addRow(fmt.Sprintf("pdef_%d_%d", j, o), pCoeffs, sparsemat.EQ, 0)

				// ck[j,o,a] <= M·x[j,o,a]; co[j,o] = Σ_a ck[j,o,a].
				coCoeffs := map[int]float64{db.co[j][o]: -1}
				for a := range op.Alternatives {
					db.addRow(fmt.Sprintf("ckcap_%d_%d_%d", j, o, a), map[int]float64{db.ck[j][o][a]: 1, db.x[j][o][a]: -db.bigM}, sparsemat.LE, 0)
					coCoeffs[db.ck[j][o][a]] = 1
				}
				db.addRow(fmt.Sprintf("codef_%d_%d", j, o), coCoeffs, sparsemat.EQ, 0)
			}

			// co[j,o] >= p[j,o] (or the single processing time when no
			// per-operation p variable exists).
			if db.inst.Flexible() || db.inst.Blocking() {
				db.addRow(fmt.Sprintf("copmin_%d_%d", j, o), map[int]float64{db.co[j][o]: 1, db.p[j][o]: -1}, sparsemat.GE, 0)
			} else {
				db.addRow(fmt.Sprintf("copmin_%d_%d", j, o), map[int]float64{db.co[j][o]: 1}, sparsemat.GE, float64(op.Alternatives[0].ProcessingTime))
			}

			// Job precedence (non-open-shop): co[j,o+1] - co[j,o] >= p(j,o+1),
			// equality under no_wait or blocking.
			if !db.openShop && o+1 < len(ops) {
				sense := sparsemat.GE
				if db.inst.NoWait() || db.inst.Blocking() {
					sense = sparsemat.EQ
				}
				rhsVar := map[int]float64{db.co[j][o+1]: 1, db.co[j][o]: -1}
				if db.inst.Flexible() || db.inst.Blocking() {
					rhsVar[db.p[j][o+1]] = -1
					db.addRow(fmt.Sprintf("prec_%d_%d", j, o), rhsVar, sense, 0)
				} else {
					db.addRow(fmt.Sprintf("prec_%d_%d", j, o), rhsVar, sense, float64(ops[o+1].Alternatives[0].ProcessingTime))
				}
			}

			// Makespan row trigger.
			isLastOp := o == len(ops)-1
			if db.cmax >= 0 && (db.openShop || isLastOp) {
				db.addRow(fmt.Sprintf("cmaxdef_%d_%d", j, o), map[int]float64{db.cmax: 1, db.co[j][o]: -1}, sparsemat.GE, 0)
			}

			// Flow time (open shop): cj[j] >= co[j,o].
			if db.cj[j] >= 0 {
				db.addRow(fmt.Sprintf("cjdef_%d_%d", j, o), map[int]float64{db.cj[j]: 1, db.co[j][o]: -1}, sparsemat.GE, 0)
			}

			// Tardiness: t[j] >= co[j,o_last] - d[j] (non-open shop), or
			// t[j] >= co[j,o] - d[j] for every o (open shop). Jobs without
			// a due date (DueDate == -1) never generate a row, leaving
			// t[j] at its lower bound of 0.
			if db.t[j] >= 0 && (db.openShop || isLastOp) {
				d := db.inst.Job(j).DueDate
				if d >= 0 {
					db.addRow(fmt.Sprintf("tard_%d_%d", j, o), map[int]float64{db.t[j]: 1, db.co[j][o]: -1}, sparsemat.GE, -float64(d))
				}
			}
		}

		db.createJobStartWindow(j)
	}

	db.createMachineDisjunctions()
	db.createJobDisjunctionsOpenShop()
	db.createNoIdleConstraints()
}

// createJobStartWindow adds spec.md §4.7's "job start / blocking window"
// rows for job j, gated on (no_wait or blocking) ∧ open shop: every
// operation's window [s[j], s[j]+Σp] must contain it.
func (db *disjBuilder) createJobStartWindow(j int) {
	if db.s[j] < 0 {
		return
	}
	ops := db.inst.Job(j).Operations

	var psumConst int64
	for o := range ops {
		if db.psum[j] >= 0 {
			continue
		}
		psumConst += ops[o].Alternatives[0].ProcessingTime
	}

	for o := range ops {
		// s[j] <= co[j,o] - p[j,o]
		coeffs := map[int]float64{db.s[j]: 1, db.co[j][o]: -1}
		if db.psum[j] >= 0 {
			coeffs[db.p[j][o]] = 1
		} else {
			db.addRow(fmt.Sprintf("sstart_%d_%d", j, o), coeffs, sparsemat.LE, -float64(ops[o].Alternatives[0].ProcessingTime))

			continue
		}
		db.addRow(fmt.Sprintf("sstart_%d_%d", j, o), coeffs, sparsemat.LE, 0)
	}

	// co[j,o] - s[j] <= Σ_o' p[j,o'] for every o.
	for o := range ops {
		coeffs := map[int]float64{db.co[j][o]: 1, db.s[j]: -1}
		rhs := float64(psumConst)
		if db.psum[j] >= 0 {
			coeffs[db.psum[j]] = -1
			rhs = 0
		}
		db.addRow(fmt.Sprintf("swindow_%d_%d", j, o), coeffs, sparsemat.LE, rhs)
	}

	if db.psum[j] >= 0 {
		coeffs := map[int]float64{db.psum[j]: -1}
		for o := range ops {
			coeffs[db.p[j][o]] = 1
		}
		db.addRow(fmt.Sprintf("psumdef_%d", j), coeffs, sparsemat.EQ, 0)
	}
}

// createMachineDisjunctions adds the big-M pairwise-ordering rows for every
// pair of operations sharing a machine (spec.md §4.7 "Machine disjunction"),
// including the flexible alternative-selection relaxation and the blocking
// processing-time correction.
//
// The flexible relaxation is realized as 2·bigM·(1-x₁)+2·bigM·(1-x₂) added
// to the constraint's left side (spec.md's "2M(1-x_{j1}-x_{j2})" compressed
// into one term isn't strong enough to fully relax a pair when only one
// alternative is selected; the two-term form here guarantees the row is
// slack whenever either x is 0, since 2·bigM dominates co's full range).
func (db *disjBuilder) createMachineDisjunctions() {
	type ref struct {
		job, op, alt int
	}
	refsByMachine := make(map[instance.MachineID][]ref)
	for j := 0; j < db.inst.NumberOfJobs(); j++ {
		for o, op := range db.inst.Job(j).Operations {
			for a, alt := range op.Alternatives {
				refsByMachine[alt.MachineID] = append(refsByMachine[alt.MachineID], ref{j, o, a})
			}
		}
	}

	for machine, refs := range refsByMachine {
		for i1 := 0; i1 < len(refs); i1++ {
			for i2 := i1 + 1; i2 < len(refs); i2++ {
				r1, r2 := refs[i1], refs[i2]
				if r1.job == r2.job {
					continue // same-job ordering handled by precedence rows
				}
				y := db.m.AddVariable(sparsemat.Variable{
					Name: fmt.Sprintf("y_%d_%d_%d_%d_%d", machine, r1.job, r1.op, r2.job, r2.op), Kind: sparsemat.Binary,
				})
				p2 := db.inst.Job(r2.job).Operations[r2.op].Alternatives[r2.alt].ProcessingTime
				p1 := db.inst.Job(r1.job).Operations[r1.op].Alternatives[r1.alt].ProcessingTime

				x1, x2 := -1, -1
				if db.inst.Flexible() {
					x1, x2 = db.x[r1.job][r1.op][r1.alt], db.x[r2.job][r2.op][r2.alt]
				}

				// co1 - co2 + M*y >= p2  (job1 after job2 when y=0)
				row1 := map[int]float64{db.co[r1.job][r1.op]: 1, db.co[r2.job][r2.op]: -1, y: db.bigM}
				rhs1 := float64(p2)
				if x1 >= 0 {
					row1[x1] -= 2 * db.bigM
					row1[x2] -= 2 * db.bigM
					rhs1 -= 4 * db.bigM
				}
				if db.inst.Blocking() {
					row1[db.p[r1.job][r1.op]] += 1
				}
				db.addRow(fmt.Sprintf("disj1_%d_%d_%d_%d_%d", machine, r1.job, r1.op, r2.job, r2.op), row1, sparsemat.GE, rhs1)

				// co2 - co1 + M*(1-y) >= p1  <=>  co2 - co1 - M*y >= p1 - M
				row2 := map[int]float64{db.co[r2.job][r2.op]: 1, db.co[r1.job][r1.op]: -1, y: -db.bigM}
				rhs2 := float64(p1) - db.bigM
				if x1 >= 0 {
					row2[x1] -= 2 * db.bigM
					row2[x2] -= 2 * db.bigM
					rhs2 -= 4 * db.bigM
				}
				if db.inst.Blocking() {
					row2[db.p[r2.job][r2.op]] += 1
				}
				db.addRow(fmt.Sprintf("disj2_%d_%d_%d_%d_%d", machine, r1.job, r1.op, r2.job, r2.op), row2, sparsemat.GE, rhs2)
			}
		}
	}
}

// createJobDisjunctionsOpenShop adds the within-job pairwise-ordering rows
// required when operations_arbitrary_order holds (spec.md §4.7 "Job
// disjunction").
func (db *disjBuilder) createJobDisjunctionsOpenShop() {
	if !db.openShop {
		return
	}
	for j := 0; j < db.inst.NumberOfJobs(); j++ {
		ops := db.inst.Job(j).Operations
		for o1 := 0; o1 < len(ops); o1++ {
			for o2 := o1 + 1; o2 < len(ops); o2++ {
				z := db.m.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("z_%d_%d_%d", j, o1, o2), Kind: sparsemat.Binary})
				p1 := ops[o1].Alternatives[0].ProcessingTime
				p2 := ops[o2].Alternatives[0].ProcessingTime

				db.addRow(
					fmt.Sprintf("jobdisj1_%d_%d_%d", j, o1, o2),
					map[int]float64{db.co[j][o1]: 1, db.co[j][o2]: -1, z: db.bigM},
					sparsemat.GE, float64(p2),
				)
				db.addRow(
					fmt.Sprintf("jobdisj2_%d_%d_%d", j, o1, o2),
					map[int]float64{db.co[j][o2]: 1, db.co[j][o1]: -1, z: -db.bigM},
					sparsemat.GE, float64(p1)-db.bigM,
				)
			}
		}
	}
}

// createNoIdleConstraints adds spec.md §4.7's "No-idle" rows for every
// no_idle machine when the instance is mixed_no_idle: sm[i] bounds the
// machine's single idle-free start time from both sides, using the p and x
// variables and pmsum[i] when flexible (since which operations land on
// machine i is then a decision)
// or the static per-alternative processing time otherwise.
func (db *disjBuilder) createNoIdleConstraints() {
	if !db.inst.MixedNoIdle() {
		return
	}

	type ref struct {
		job, op, alt int
	}
	refsByMachine := make(map[instance.MachineID][]ref)
	for j := 0; j < db.inst.NumberOfJobs(); j++ {
		for o, op := range db.inst.Job(j).Operations {
			for a, alt := range op.Alternatives {
				refsByMachine[alt.MachineID] = append(refsByMachine[alt.MachineID], ref{j, o, a})
			}
		}
	}

	for i, sm := range db.sm {
		refs := refsByMachine[i]
		if !db.inst.Flexible() {
			var pmsumConst int64
			for _, r := range refs {
				pmsumConst += db.inst.Job(r.job).Operations[r.op].Alternatives[r.alt].ProcessingTime
			}
			for _, r := range refs {
				p := db.inst.Job(r.job).Operations[r.op].Alternatives[r.alt].ProcessingTime
				db.addRow(fmt.Sprintf("noidlelo_%d_%d_%d", i, r.job, r.op), map[int]float64{sm: 1, db.co[r.job][r.op]: -1}, sparsemat.LE, -float64(p))
				db.addRow(fmt.Sprintf("noidlehi_%d_%d_%d", i, r.job, r.op), map[int]float64{sm: 1, db.co[r.job][r.op]: -1}, sparsemat.GE, -float64(pmsumConst))
			}

			continue
		}

		pmsum := db.pmsum[i]
		pmsumCoeffs := map[int]float64{pmsum: -1}
		for _, r := range refs {
			x := db.x[r.job][r.op][r.alt]
			p := db.inst.Job(r.job).Operations[r.op].Alternatives[r.alt].ProcessingTime
			pmsumCoeffs[x] = float64(p)

			// sm[i] <= co[j,o] - p[j,o] + M(1-x) (only binding when selected)
			db.addRow(
				fmt.Sprintf("noidlelo_%d_%d_%d", i, r.job, r.op),
				map[int]float64{sm: 1, db.co[r.job][r.op]: -1, db.p[r.job][r.op]: 1, x: db.bigM},
				sparsemat.LE, db.bigM,
			)
			// sm[i] >= co[j,o] - pmsum[i] - M(1-x)
			db.addRow(
				fmt.Sprintf("noidlehi_%d_%d_%d", i, r.job, r.op),
				map[int]float64{sm: 1, db.co[r.job][r.op]: -1, pmsum: 1, x: -db.bigM},
				sparsemat.GE, -db.bigM,
			)
		}
		db.addRow(fmt.Sprintf("pmsumdef_%d", i), pmsumCoeffs, sparsemat.EQ, 0)
	}
}
