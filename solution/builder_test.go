package solution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontanf/shopschedulingsolver/instance"
)

// buildFlowShop constructs the 3-job x 2-machine flow shop from spec
// scenario 1: p = [[3,2],[1,4],[2,1]], objective Makespan.
func buildFlowShop(t *testing.T) *instance.Instance {
	t.Helper()
	b := instance.NewBuilder()
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)
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

func TestFromPermutation_Makespan(t *testing.T) {
	ins := buildFlowShop(t)

	sb, err := NewBuilder(ins)
	require.NoError(t, err)
	require.NoError(t, sb.FromPermutation([]instance.JobID{1, 0, 2}))
	sol := sb.Build()

	assert.True(t, sol.Feasible())
	assert.Equal(t, int64(8), sol.Makespan())
	assert.Equal(t, 0, sol.NumberOfMachineOverlaps())
	assert.Equal(t, 0, sol.NumberOfJobOverlaps())
}

func TestAppendOperation_SortIdempotent(t *testing.T) {
	ins := buildFlowShop(t)
	sb, err := NewBuilder(ins)
	require.NoError(t, err)

	// Append out of order on purpose.
	_, err = sb.AppendOperation(0, 1, 0, 5)
	require.NoError(t, err)
	_, err = sb.AppendOperation(0, 0, 0, 2)
	require.NoError(t, err)
	_, err = sb.AppendOperation(1, 0, 0, 0)
	require.NoError(t, err)
	_, err = sb.AppendOperation(1, 1, 0, 1)
	require.NoError(t, err)
	_, err = sb.AppendOperation(2, 0, 0, 1)
	require.NoError(t, err)
	_, err = sb.AppendOperation(2, 1, 0, 7)
	require.NoError(t, err)

	sb.SortMachines()
	sb.SortJobs()
	first := sb.Build()

	sb.SortMachines()
	sb.SortJobs()
	second := sb.Build()

	assert.Equal(t, first.Makespan(), second.Makespan())
	for m := 0; m < ins.NumberOfMachines(); m++ {
		assert.Equal(t, first.MachineOperations(m), second.MachineOperations(m))
	}
}

func TestStrictlyBetter(t *testing.T) {
	ins := buildFlowShop(t)

	mk := func(order []instance.JobID) *Solution {
		sb, err := NewBuilder(ins)
		require.NoError(t, err)
		require.NoError(t, sb.FromPermutation(order))

		return sb.Build()
	}

	best := mk([]instance.JobID{1, 0, 2})
	worse := mk([]instance.JobID{0, 1, 2})

	assert.True(t, best.StrictlyBetter(worse))
	assert.False(t, worse.StrictlyBetter(best))
	assert.True(t, best.StrictlyBetter(nil))
}
