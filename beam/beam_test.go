package beam

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

func TestRunWithParams_FindsOptimalMakespan(t *testing.T) {
	ins := buildFlowShop3x2(t)
	var buf bytes.Buffer
	ctx := solverctx.NewContext(solverctx.NewTimer(context.Background(), 500*time.Millisecond), nil, 0, &buf)

	params := DefaultParams()
	params.InitialBeamWidth = 2 // force truncation so both directions are exercised
	out, err := RunWithParams(ins, params, ctx)
	require.NoError(t, err)
	require.NotNil(t, out.Solution)
	assert.True(t, out.Solution.Feasible())
	assert.Equal(t, int64(8), out.Solution.Makespan())
}

func TestRunWithParams_AllGuidesProduceFeasibleSolutions(t *testing.T) {
	ins := buildFlowShop3x2(t)
	for g := 0; g < len(Guides); g++ {
		var buf bytes.Buffer
		ctx := solverctx.NewContext(solverctx.NewTimer(context.Background(), 200*time.Millisecond), nil, 0, &buf)
		params := DefaultParams()
		params.Guide = g
		params.InitialBeamWidth = 3
		out, err := RunWithParams(ins, params, ctx)
		require.NoError(t, err)
		require.NotNil(t, out.Solution, "guide %d", g)
		assert.True(t, out.Solution.Feasible(), "guide %d", g)
	}
}
