package solverctx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/solution"
)

func TestTimer_NoDeadline(t *testing.T) {
	tm := NewTimer(context.Background(), 0)
	assert.False(t, tm.NeedsToEnd())
	assert.Equal(t, time.Duration(1<<63-1), tm.RemainingTime())
}

func TestTimer_Deadline(t *testing.T) {
	tm := NewTimer(context.Background(), time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	assert.True(t, tm.NeedsToEnd())
	assert.Equal(t, time.Duration(0), tm.RemainingTime())
}

func TestTimer_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	tm := NewTimer(ctx, 0)
	assert.False(t, tm.NeedsToEnd())
	cancel()
	assert.True(t, tm.NeedsToEnd())
}

func makeSingleMachineInstance(t *testing.T) *instance.Instance {
	t.Helper()
	b := instance.NewBuilder()
	_, err := b.SetNumberOfMachines(1)
	require.NoError(t, err)
	job := b.AddJob()
	op, err := b.AddOperation(job)
	require.NoError(t, err)
	require.NoError(t, b.AddAlternative(job, op, 0, 5))
	ins, err := b.Build()
	require.NoError(t, err)

	return ins
}

func TestContext_UpdateSolutionMonotonic(t *testing.T) {
	ins := makeSingleMachineInstance(t)
	var buf bytes.Buffer
	var calls int
	ctx := NewContext(NewTimer(context.Background(), 0), func(solverctx Output) { calls++ }, 1, &buf)

	sb, err := solution.NewBuilder(ins)
	require.NoError(t, err)
	_, err = sb.AppendOperation(0, 0, 0, 0)
	require.NoError(t, err)
	sol := sb.Build()

	assert.True(t, ctx.UpdateSolution(sol, "test"))
	assert.False(t, ctx.UpdateSolution(sol, "test")) // not strictly better than itself
	assert.Equal(t, 1, calls)
	assert.Same(t, sol, ctx.Best().Solution)
}

func TestContext_UpdateBoundsMonotonic(t *testing.T) {
	var buf bytes.Buffer
	ctx := NewContext(NewTimer(context.Background(), 0), nil, 0, &buf)

	assert.True(t, ctx.UpdateLowerBound(3, "root"))
	assert.False(t, ctx.UpdateLowerBound(3, "root"))
	assert.False(t, ctx.UpdateLowerBound(2, "root"))
	assert.True(t, ctx.UpdateLowerBound(4, "root"))

	assert.True(t, ctx.UpdateUpperBound(10, "heuristic"))
	assert.False(t, ctx.UpdateUpperBound(10, "heuristic"))
	assert.True(t, ctx.UpdateUpperBound(8, "heuristic"))
}
