package milp

import (
	"fmt"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/milp/sparsemat"
)

// BuildPositional constructs the positional MILP model for a permutation
// flow-shop instance, per spec.md §4.8. It returns ErrInvalidConfig for any
// instance that is not both FlowShop and Permutation, the combination the
// positional formulation assumes (each machine processes positions, not
// jobs directly, since every job visits every machine in the same order).
//
// Complexity: O(n²+n·m) variables (n² assignment binaries), O(n·m)
// constraints.
func BuildPositional(inst *instance.Instance) (*sparsemat.Model, error) {
	if !inst.FlowShop() || !inst.Permutation() {
		return nil, ErrInvalidConfig
	}

	n := inst.NumberOfJobs()
	m := inst.NumberOfMachines()
	model := sparsemat.NewModel("positional")
	bm := bigM(inst)

	// x[j][k]: job j assigned to position k.
	x := make([][]int, n)
	for j := 0; j < n; j++ {
		x[j] = make([]int, n)
		for k := 0; k < n; k++ {
			x[j][k] = model.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("x_%d_%d", j, k), Kind: sparsemat.Binary})
		}
	}

	// co[i][k], p[i][k]: completion/processing time of the job at position k
	// on machine i.
	co := make([][]int, m)
	pVar := make([][]int, m)
	for i := 0; i < m; i++ {
		co[i] = make([]int, n)
		pVar[i] = make([]int, n)
		for k := 0; k < n; k++ {
			co[i][k] = model.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("co_%d_%d", i, k), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: bm})
			pVar[i][k] = model.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("p_%d_%d", i, k), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: bm})
		}
	}

	var dVar []int
	var tVar []int
	if inst.Objective() == instance.TotalTardiness {
		dVar = make([]int, n)
		tVar = make([]int, n)
		for k := 0; k < n; k++ {
			dVar[k] = model.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("d_%d", k), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: bm})
			tVar[k] = model.AddVariable(sparsemat.Variable{Name: fmt.Sprintf("t_%d", k), Kind: sparsemat.Integer, LowerBound: 0, UpperBound: bm})
			model.SetObjectiveCoeff(tVar[k], 1)
		}
	}

	var cmax int
	if inst.Objective() == instance.Makespan {
		cmax = model.AddVariable(sparsemat.Variable{Name: "cmax", Kind: sparsemat.Integer, LowerBound: 0, UpperBound: bm})
		model.SetObjectiveCoeff(cmax, 1)
	}

	// Assignment: every job gets exactly one position, every position gets
	// exactly one job.
	for j := 0; j < n; j++ {
		coeffs := make(map[int]float64, n)
		for k := 0; k < n; k++ {
			coeffs[x[j][k]] = 1
		}
		model.AddRow(sparsemat.Row{Name: fmt.Sprintf("assignjob_%d", j), Coeffs: coeffs, Sense: sparsemat.EQ, RHS: 1})
	}
	for k := 0; k < n; k++ {
		coeffs := make(map[int]float64, n)
		for j := 0; j < n; j++ {
			coeffs[x[j][k]] = 1
		}
		model.AddRow(sparsemat.Row{Name: fmt.Sprintf("assignpos_%d", k), Coeffs: coeffs, Sense: sparsemat.EQ, RHS: 1})
	}

	blockingEquality := inst.Blocking()

	// p[i][k] = Σⱼ p(j,i)·x[j,k] (equality except blocking, which uses ≥,
	// per spec.md §4.8).
	for i := 0; i < m; i++ {
		for k := 0; k < n; k++ {
			coeffs := map[int]float64{pVar[i][k]: -1}
			for j := 0; j < n; j++ {
				coeffs[x[j][k]] = float64(inst.ProcessingTime(j, i, 0))
			}
			sense := sparsemat.EQ
			if blockingEquality {
				sense = sparsemat.GE
				for key := range coeffs {
					coeffs[key] = -coeffs[key]
				}
			}
			model.AddRow(sparsemat.Row{Name: fmt.Sprintf("pdef_%d_%d", i, k), Coeffs: coeffs, Sense: sense, RHS: 0})
		}
	}

	// d[k] = Σⱼ dⱼ·x[j,k] (only when TotalTardiness).
	if dVar != nil {
		for k := 0; k < n; k++ {
			coeffs := map[int]float64{dVar[k]: -1}
			for j := 0; j < n; j++ {
				due := inst.Job(j).DueDate
				if due == -1 {
					due = 0
				}
				coeffs[x[j][k]] = float64(due)
			}
			model.AddRow(sparsemat.Row{Name: fmt.Sprintf("ddef_%d", k), Coeffs: coeffs, Sense: sparsemat.EQ, RHS: 0})
		}
	}

	noWaitOrBlocking := inst.NoWait() || inst.Blocking()

	// Intra-job precedence: co[i][k] >= co[i-1][k] + p[i][k] (equality under
	// no_wait or blocking).
	for i := 1; i < m; i++ {
		for k := 0; k < n; k++ {
			sense := sparsemat.GE
			if noWaitOrBlocking {
				sense = sparsemat.EQ
			}
			model.AddRow(sparsemat.Row{
				Name:   fmt.Sprintf("jobprec_%d_%d", i, k),
				Coeffs: map[int]float64{co[i][k]: 1, co[i-1][k]: -1, pVar[i][k]: -1},
				Sense:  sense, RHS: 0,
			})
		}
	}
	// co[i][0] >= p[i][0] for the first position on every machine.
	for i := 0; i < m; i++ {
		model.AddRow(sparsemat.Row{Name: fmt.Sprintf("copmin_%d", i), Coeffs: map[int]float64{co[i][0]: 1, pVar[i][0]: -1}, Sense: sparsemat.GE, RHS: 0})
	}

	// Intra-machine precedence: co[i][k] >= co[i][k-1] + p[i][k] (equality
	// when machine no_idle).
	for i := 0; i < m; i++ {
		noIdle := inst.Machine(i).NoIdle
		for k := 1; k < n; k++ {
			sense := sparsemat.GE
			if noIdle {
				sense = sparsemat.EQ
			}
			model.AddRow(sparsemat.Row{
				Name:   fmt.Sprintf("machineprec_%d_%d", i, k),
				Coeffs: map[int]float64{co[i][k]: 1, co[i][k-1]: -1, pVar[i][k]: -1},
				Sense:  sense, RHS: 0,
			})
		}
	}

	if inst.Objective() == instance.Makespan {
		model.AddRow(sparsemat.Row{Name: "cmaxdef", Coeffs: map[int]float64{cmax: 1, co[m-1][n-1]: -1}, Sense: sparsemat.GE, RHS: 0})
	}

	if tVar != nil {
		for k := 0; k < n; k++ {
			model.AddRow(sparsemat.Row{
				Name:   fmt.Sprintf("tardef_%d", k),
				Coeffs: map[int]float64{tVar[k]: 1, co[m-1][k]: -1, dVar[k]: 1},
				Sense:  sparsemat.GE, RHS: 0,
			})
		}
	}

	return model, nil
}
