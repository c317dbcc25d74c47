package milpsolver

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontanf/shopschedulingsolver/milp/sparsemat"
)

func TestNoopBackend_AlwaysUnavailable(t *testing.T) {
	var b NoopBackend
	assert.ErrorIs(t, b.Load(nil), ErrSolverUnavailable)
	assert.ErrorIs(t, b.Solve(), ErrSolverUnavailable)
	_, err := b.GetSolution()
	assert.ErrorIs(t, err, ErrSolverUnavailable)
	_, err = b.GetBound()
	assert.ErrorIs(t, err, ErrSolverUnavailable)
	assert.ErrorIs(t, b.WriteMPS("x"), ErrSolverUnavailable)
	assert.NoError(t, b.Close())
}

func TestProcessBackend_LoadWritesAndCloseRemoves(t *testing.T) {
	model := sparsemat.NewModel("test")
	v := model.AddVariable(sparsemat.Variable{Name: "x", Kind: sparsemat.Binary})
	_, err := model.AddRow(sparsemat.Row{Name: "r", Coeffs: map[int]float64{v: 1}, Sense: sparsemat.EQ, RHS: 1})
	require.NoError(t, err)

	pb := NewProcessBackend("/bin/true")
	require.NoError(t, pb.Load(model))
	require.NotEmpty(t, pb.mpsPath)

	_, statErr := os.Stat(pb.mpsPath)
	require.NoError(t, statErr)

	require.NoError(t, pb.Close())
	_, statErr = os.Stat(pb.mpsPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestProcessBackend_SolveWithoutLoadErrors(t *testing.T) {
	pb := NewProcessBackend("/bin/true")
	assert.Error(t, pb.Solve())
}
