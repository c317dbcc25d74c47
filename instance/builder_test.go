package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_FlowShop(t *testing.T) {
	b := NewBuilder()
	b.SetObjective(Makespan)
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)

	// 3 jobs x 2 machines flow shop, p = [[3,2],[1,4],[2,1]].
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
	assert.True(t, ins.FlowShop())
	assert.False(t, ins.Flexible())
	assert.Equal(t, 6, ins.NumberOfOperations())
	assert.Equal(t, 3, ins.NumberOfJobs())
	assert.Equal(t, 2, ins.NumberOfMachines())
	assert.Len(t, ins.MachineOperations(0), 3)
	assert.Equal(t, int64(3), ins.ProcessingTime(0, 0, 0))
}

func TestBuilder_Flexible(t *testing.T) {
	b := NewBuilder()
	_, err := b.SetNumberOfMachines(2)
	require.NoError(t, err)

	j0 := b.AddJob()
	op0, _ := b.AddOperation(j0)
	require.NoError(t, b.AddAlternative(j0, op0, 0, 3))
	require.NoError(t, b.AddAlternative(j0, op0, 1, 5))

	ins, err := b.Build()
	require.NoError(t, err)
	assert.True(t, ins.Flexible())
	assert.False(t, ins.FlowShop())
}

func TestBuilder_InvalidArguments(t *testing.T) {
	b := NewBuilder()
	_, err := b.SetNumberOfMachines(0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = b.SetNumberOfMachines(2)
	require.NoError(t, err)
	job := b.AddJob()
	op, _ := b.AddOperation(job)

	assert.ErrorIs(t, b.AddAlternative(job, op, 0, 0), ErrInvalidArgument)
	assert.ErrorIs(t, b.AddAlternative(job, op, -1, 5), ErrInvalidArgument)
	assert.ErrorIs(t, b.AddAlternative(job, op, 5, 5), ErrInvalidArgument)
	assert.ErrorIs(t, b.SetJobDueDate(job, -2), ErrInvalidArgument)
}

func TestBuilder_NotBuilt(t *testing.T) {
	b := NewBuilder()
	_, err := b.Build()
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestParseObjective(t *testing.T) {
	cases := map[string]Objective{
		"makespan":         Makespan,
		"Total Flow Time":  TotalFlowTime,
		"tft":              TotalFlowTime,
		"throughput":       Throughput,
		"total_tardiness":  TotalTardiness,
		"TT":               TotalTardiness,
	}
	for in, want := range cases {
		got, err := ParseObjective(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseObjective("bogus")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
