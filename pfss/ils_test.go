package pfss

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/solverctx"
)

func TestNEHConstruct_FeasibleOptimalOnScenario1(t *testing.T) {
	ins := buildFlowShop3x2(t)
	perm := NEHConstruct(ins)
	tb, err := NewTableau(ins, perm)
	require.NoError(t, err)
	assert.Equal(t, int64(8), tb.Makespan())
}

func TestRunWithParams_FindsOptimum(t *testing.T) {
	ins := buildFlowShop3x2(t)
	var buf bytes.Buffer
	ctx := solverctx.NewContext(solverctx.NewTimer(context.Background(), 200*time.Millisecond), nil, 0, &buf)

	params := DefaultParams()
	params.Seed = 1
	params.MaxIterationsWithoutImprovement = 10

	out, err := RunWithParams(ins, params, ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Solution)
	assert.True(t, out.Solution.Feasible())
	assert.Equal(t, int64(8), out.Solution.Makespan())
}

func TestRun_RejectsNonPFSSInstance(t *testing.T) {
	b := instance.NewBuilder()
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)
	b.SetOperationsArbitraryOrder(true)
	job := b.AddJob()
	op, err := b.AddOperation(job)
	require.NoError(t, err)
	require.NoError(t, b.AddAlternative(job, op, 0, 3))
	ins, err := b.Build()
	require.NoError(t, err)

	var buf bytes.Buffer
	ctx := solverctx.NewContext(solverctx.NewTimer(context.Background(), 0), nil, 0, &buf)
	_, err = Run(ins, solverctx.Params{}, ctx)
	assert.ErrorIs(t, err, ErrNotPermutationFlowShop)
}
