package sparsemat

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_DenseRoundTrip(t *testing.T) {
	m := NewModel("test")
	v0 := m.AddVariable(Variable{Name: "x0", Kind: Continuous})
	v1 := m.AddVariable(Variable{Name: "x1", Kind: Continuous})
	_, err := m.AddRow(Row{Name: "r0", Coeffs: map[int]float64{v0: 1, v1: -2}, Sense: LE, RHS: 5})
	require.NoError(t, err)

	d, err := m.Dense()
	require.NoError(t, err)
	assert.Equal(t, 1, d.Rows())
	assert.Equal(t, 2, d.Cols())
	c0, err := d.At(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.0, c0)
	c1, err := d.At(0, 1)
	require.NoError(t, err)
	assert.Equal(t, -2.0, c1)
}

func TestModel_AddRowRejectsUnknownVariable(t *testing.T) {
	m := NewModel("test")
	_, err := m.AddRow(Row{Name: "bad", Coeffs: map[int]float64{0: 1}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestModel_WriteMPS(t *testing.T) {
	m := NewModel("demo")
	v0 := m.AddVariable(Variable{Name: "y", Kind: Binary})
	require.NoError(t, m.SetObjectiveCoeff(v0, 1))
	_, err := m.AddRow(Row{Name: "r0", Coeffs: map[int]float64{v0: 1}, Sense: EQ, RHS: 1})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, m.WriteMPS(&buf))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "NAME          demo\n"))
	assert.Contains(t, out, "ROWS")
	assert.Contains(t, out, " E  r0")
	assert.Contains(t, out, "COLUMNS")
	assert.Contains(t, out, "ENDATA")
}
