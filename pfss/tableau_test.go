package pfss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontanf/shopschedulingsolver/instance"
)

// buildFlowShop3x2 mirrors the solution package's scenario-1 fixture:
// p = [[3,2],[1,4],[2,1]].
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

func TestTableau_MakespanMatchesJohnson(t *testing.T) {
	ins := buildFlowShop3x2(t)
	tb, err := NewTableau(ins, []instance.JobID{1, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(8), tb.Makespan())
}

func TestTableau_EvaluateBlockMoveMatchesRebuild(t *testing.T) {
	ins := buildFlowShop3x2(t)
	tb, err := NewTableau(ins, []instance.JobID{0, 1, 2})
	require.NoError(t, err)

	// Move the single job at position 0 to position 2 (post-removal index).
	evaluated := tb.EvaluateBlockMove(0, 1, 2)

	rebuilt, err := NewTableau(ins, []instance.JobID{1, 2, 0})
	require.NoError(t, err)
	assert.Equal(t, rebuilt.Makespan(), evaluated)
}

func TestTableau_ApplyBlockMoveConsistentWithEvaluate(t *testing.T) {
	ins := buildFlowShop3x2(t)
	tb, err := NewTableau(ins, []instance.JobID{0, 1, 2})
	require.NoError(t, err)

	want := tb.EvaluateBlockMove(1, 1, 0)
	tb.ApplyBlockMove(1, 1, 0)
	assert.Equal(t, want, tb.Makespan())
	assert.Equal(t, []instance.JobID{1, 0, 2}, tb.Permutation())
}

func TestTableau_ForwardBackwardAgreeOnMakespan(t *testing.T) {
	ins := buildFlowShop3x2(t)
	tb, err := NewTableau(ins, []instance.JobID{1, 0, 2})
	require.NoError(t, err)

	for k := 0; k <= len(tb.Permutation()); k++ {
		var best int64
		for i := 0; i < ins.NumberOfMachines(); i++ {
			if cand := tb.F[k][i] + tb.R[k][i]; cand > best {
				best = cand
			}
		}
		assert.Equal(t, tb.Makespan(), best, "split at position %d", k)
	}
}

func TestTableau_EvaluateBlockMovesMatchesSingleCandidate(t *testing.T) {
	ins := buildFlowShop3x2(t)
	tb, err := NewTableau(ins, []instance.JobID{0, 1, 2})
	require.NoError(t, err)

	all := tb.EvaluateBlockMoves(0, 1)
	for posNew := 0; posNew < len(all); posNew++ {
		assert.Equal(t, all[posNew], tb.EvaluateBlockMove(0, 1, posNew), "posNew %d", posNew)
	}
}

func TestTableau_InvalidPermutation(t *testing.T) {
	ins := buildFlowShop3x2(t)
	_, err := NewTableau(ins, []instance.JobID{0, 0, 2})
	assert.ErrorIs(t, err, ErrInvalidPermutation)
}
