package milp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontanf/shopschedulingsolver/instance"
)

func buildFlowShop3x2(t *testing.T) *instance.Instance {
	t.Helper()
	b := instance.NewBuilder()
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)
	b.SetPermutation(true)
	p := [][2]int64{{3, 2}, {1, 4}, {2, 1}}
	for _, row := range p {
		job := b.AddJob()
		for m := 0; m < 2; m++ {
			op, err := b.AddOperation(job)
			require.NoError(t, err)
			require.NoError(t, b.AddAlternative(job, op, m, row[m]))
		}
	}
	ins, err := b.Build()
	require.NoError(t, err)

	return ins
}

func buildOpenShop(t *testing.T) *instance.Instance {
	t.Helper()
	b := instance.NewBuilder()
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)
	b.SetOperationsArbitraryOrder(true)
	p := [][2]int64{{3, 2}, {1, 4}}
	for _, row := range p {
		job := b.AddJob()
		for m := 0; m < 2; m++ {
			op, err := b.AddOperation(job)
			require.NoError(t, err)
			require.NoError(t, b.AddAlternative(job, op, m, row[m]))
		}
	}
	ins, err := b.Build()
	require.NoError(t, err)

	return ins
}

func TestBuildDisjunctive_FlowShop(t *testing.T) {
	ins := buildFlowShop3x2(t)
	model, err := BuildDisjunctive(ins)
	require.NoError(t, err)
	assert.Greater(t, model.NumVars(), 0)
	assert.Greater(t, model.NumRows(), 0)
}

func TestBuildDisjunctive_OpenShop(t *testing.T) {
	ins := buildOpenShop(t)
	model, err := BuildDisjunctive(ins)
	require.NoError(t, err)
	assert.Greater(t, model.NumVars(), 0)
	assert.Greater(t, model.NumRows(), 0)
}

func TestBuildPositional_FlowShop(t *testing.T) {
	ins := buildFlowShop3x2(t)
	model, err := BuildPositional(ins)
	require.NoError(t, err)
	// n=3 jobs, m=2 machines: 9 assignment vars + 2*3*2 co/p vars + 1 cmax.
	assert.Equal(t, 9+12+1, model.NumVars())
	assert.Greater(t, model.NumRows(), 0)
}

func TestBuildPositional_RejectsOpenShop(t *testing.T) {
	ins := buildOpenShop(t)
	_, err := BuildPositional(ins)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func buildFlexibleJobShop(t *testing.T, objective instance.Objective) *instance.Instance {
	t.Helper()
	b := instance.NewBuilder()
	b.SetObjective(objective)
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)

	j0 := b.AddJob()
	op0, err := b.AddOperation(j0)
	require.NoError(t, err)
	require.NoError(t, b.AddAlternative(j0, op0, 0, 3))
	require.NoError(t, b.AddAlternative(j0, op0, 1, 5))
	require.NoError(t, b.SetJobDueDate(j0, 4))
	require.NoError(t, b.SetJobWeight(j0, 2))

	j1 := b.AddJob()
	op1, err := b.AddOperation(j1)
	require.NoError(t, err)
	require.NoError(t, b.AddAlternative(j1, op1, 0, 2))
	require.NoError(t, b.AddAlternative(j1, op1, 1, 1))
	require.NoError(t, b.SetJobDueDate(j1, 10))

	ins, err := b.Build()
	require.NoError(t, err)
	require.True(t, ins.Flexible())

	return ins
}

func TestBuildDisjunctive_FlexibleMakespanWiresCmax(t *testing.T) {
	ins := buildFlexibleJobShop(t, instance.Makespan)
	model, err := BuildDisjunctive(ins)
	require.NoError(t, err)
	assert.Greater(t, model.NumVars(), 0)
	assert.Len(t, model.Objective, 1)
}

func TestBuildDisjunctive_TotalTardinessWiresTVariables(t *testing.T) {
	ins := buildFlexibleJobShop(t, instance.TotalTardiness)
	model, err := BuildDisjunctive(ins)
	require.NoError(t, err)
	// One t[j] objective coefficient per job, weighted.
	assert.Len(t, model.Objective, ins.NumberOfJobs())
}

func TestBuildDisjunctive_ThroughputHasNoObjectiveTerms(t *testing.T) {
	ins := buildFlexibleJobShop(t, instance.Throughput)
	model, err := BuildDisjunctive(ins)
	require.NoError(t, err)
	assert.Empty(t, model.Objective)
	assert.Greater(t, model.NumRows(), 0)
}

func TestBuildDisjunctive_OpenShopFlowTimeWiresCj(t *testing.T) {
	b := instance.NewBuilder()
	b.SetObjective(instance.TotalFlowTime)
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)
	b.SetOperationsArbitraryOrder(true)
	p := [][2]int64{{3, 2}, {1, 4}}
	for _, row := range p {
		job := b.AddJob()
		for m := 0; m < 2; m++ {
			op, err := b.AddOperation(job)
			require.NoError(t, err)
			require.NoError(t, b.AddAlternative(job, op, m, row[m]))
		}
	}
	ins, err := b.Build()
	require.NoError(t, err)

	model, err := BuildDisjunctive(ins)
	require.NoError(t, err)
	assert.Len(t, model.Objective, ins.NumberOfJobs())
}
