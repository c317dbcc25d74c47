package instanceio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/solution"
)

func TestReadFlowShop(t *testing.T) {
	input := "3 2\n3 1 2\n2 4 1\n"
	b, err := ReadFlowShop(strings.NewReader(input))
	require.NoError(t, err)
	ins, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, 3, ins.NumberOfJobs())
	assert.Equal(t, 2, ins.NumberOfMachines())
	assert.Equal(t, instance.Makespan, ins.Objective())
	assert.True(t, ins.FlowShop())
	assert.Equal(t, int64(3), ins.ProcessingTime(0, 0, 0))
	assert.Equal(t, int64(2), ins.ProcessingTime(0, 1, 0))
	assert.Equal(t, int64(1), ins.ProcessingTime(1, 0, 0))
}

func TestReadValladaFlowShop(t *testing.T) {
	input := "2 2\n0 3 1 2\n0 1 1 4\n10 20\n"
	b, err := ReadValladaFlowShop(strings.NewReader(input))
	require.NoError(t, err)
	ins, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, instance.TotalTardiness, ins.Objective())
	assert.Equal(t, int64(10), ins.Job(0).DueDate)
	assert.Equal(t, int64(20), ins.Job(1).DueDate)
}

func TestReadJobShop(t *testing.T) {
	input := "2 2\n0 3 1 2\n1 1 0 4\n"
	b, err := ReadJobShop(strings.NewReader(input))
	require.NoError(t, err)
	ins, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 2, ins.NumberOfJobs())
	assert.False(t, ins.FlowShop()) // job 1 visits machine 1 before machine 0
}

func TestReadFlexibleJobShop(t *testing.T) {
	input := "1 2 0\n1\n2 1 3 2 5\n"
	b, err := ReadFlexibleJobShop(strings.NewReader(input))
	require.NoError(t, err)
	ins, err := b.Build()
	require.NoError(t, err)
	assert.True(t, ins.Flexible())
	assert.Equal(t, int64(3), ins.ProcessingTime(0, 0, 0))
	assert.Equal(t, int64(5), ins.ProcessingTime(0, 0, 1))
}

func TestReadWritePermutation(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePermutation(&buf, []instance.JobID{2, 0, 1}))
	perm, err := ReadPermutation(strings.NewReader(buf.String()))
	require.NoError(t, err)
	assert.Equal(t, []instance.JobID{2, 0, 1}, perm)
}

func TestReadJSON_RoundTrip(t *testing.T) {
	doc := `{
  "objective": "makespan",
  "machines": [{}, {}],
  "jobs": [
    {"operations": [{"alternatives": [{"machine": 0, "processing_time": 3}]}, {"alternatives": [{"machine": 1, "processing_time": 2}]}]}
  ]
}`
	b, err := ReadJSON(strings.NewReader(doc))
	require.NoError(t, err)
	ins, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, 1, ins.NumberOfJobs())

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, ins))
	b2, err := ReadJSON(&buf)
	require.NoError(t, err)
	ins2, err := b2.Build()
	require.NoError(t, err)
	assert.Equal(t, ins.NumberOfJobs(), ins2.NumberOfJobs())
	assert.Equal(t, ins.ProcessingTime(0, 0, 0), ins2.ProcessingTime(0, 0, 0))
}

func TestReadJSON_RejectsMissingRequiredField(t *testing.T) {
	_, err := ReadJSON(strings.NewReader(`{"machines": []}`))
	assert.Error(t, err)
}

func TestSolutionJSON_RoundTrip(t *testing.T) {
	ib := instance.NewBuilder()
	_, err := ib.SetNumberOfMachines(1)
	require.NoError(t, err)
	job := ib.AddJob()
	op, err := ib.AddOperation(job)
	require.NoError(t, err)
	require.NoError(t, ib.AddAlternative(job, op, 0, 4))
	ins, err := ib.Build()
	require.NoError(t, err)

	sb, err := solution.NewBuilder(ins)
	require.NoError(t, err)
	_, err = sb.AppendOperation(0, 0, 0, 0)
	require.NoError(t, err)
	sol := sb.Build()

	var buf bytes.Buffer
	require.NoError(t, WriteSolutionJSON(&buf, sol))

	sb2, err := ReadSolutionJSON(&buf, ins)
	require.NoError(t, err)
	assert.NotNil(t, sb2)
}
