package pfss

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fontanf/shopschedulingsolver/instance"
)

func TestNeighbourDistance_IdenticalPermutationsAreZero(t *testing.T) {
	perm := []instance.JobID{0, 1, 2, 3}
	assert.Equal(t, 0, neighbourDistance(perm, append([]instance.JobID(nil), perm...)))
}

func TestNeighbourDistance_ReversalCountsBothSidesPerJob(t *testing.T) {
	// [0,1,2] vs [2,1,0]: job 1 has the same two neighbours but on opposite
	// sides, and sides are compared, so it contributes 2; jobs 0 and 2 each
	// flip from a real neighbour to a sentinel on one side and vice versa on
	// the other, contributing 2 each (d = 6).
	a := []instance.JobID{0, 1, 2}
	b := []instance.JobID{2, 1, 0}
	d := neighbourDistance(a, b)
	assert.Greater(t, d, 0)
	assert.Equal(t, d, neighbourDistance(b, a))
}

func TestNeighbourDistance_EndSentinelsDistinctFromJobs(t *testing.T) {
	// A job that is first in a but interior in b must register a left-side
	// mismatch (sentinelStart vs a real job id).
	a := []instance.JobID{0, 1, 2}
	b := []instance.JobID{1, 0, 2}
	leftA, rightA := neighboursOf(a, 3)
	leftB, rightB := neighboursOf(b, 3)
	assert.Equal(t, sentinelStart, leftA[0])
	assert.NotEqual(t, sentinelStart, leftB[0])
	assert.NotEqual(t, leftA[0], leftB[0])
	_ = rightA
	_ = rightB
}

func TestPopulation_OfferFillsToMinSizeUnconditionally(t *testing.T) {
	p := NewPopulation()
	p.MinSize = 2
	assert.True(t, p.Offer([]instance.JobID{0, 1, 2}, 10))
	assert.True(t, p.Offer([]instance.JobID{2, 1, 0}, 20))
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, []instance.JobID{0, 1, 2}, p.Best())
}
