package pfss

import (
	"sort"

	"github.com/fontanf/shopschedulingsolver/instance"
)

// Population maintains the diversity-preserving pool of candidate
// permutations used by Run's destruction/reconstruction loop (spec §4.5):
// between MinSize and MaxSize members, the EliteSize best always retained,
// new members admitted only if they are not too close (by neighbour-mismatch
// distance, see neighbourDistance) to their ClosestNeighbors nearest existing
// members unless they also improve on the pool's worst member.
type Population struct {
	MinSize          int
	MaxSize          int
	EliteSize        int
	ClosestNeighbors int

	members []member
}

type member struct {
	perm     []instance.JobID
	makespan int64
}

// NewPopulation returns a Population with the defaults named in spec §4.5:
// min_size=20, max_size=40, elite=10, closest_neighbors=3.
func NewPopulation() *Population {
	return &Population{MinSize: 20, MaxSize: 40, EliteSize: 10, ClosestNeighbors: 3}
}

// Len returns the current number of members.
func (p *Population) Len() int { return len(p.members) }

// Best returns the permutation with the lowest makespan (population is kept
// sorted by makespan ascending after every mutation).
func (p *Population) Best() []instance.JobID {
	if len(p.members) == 0 {
		return nil
	}

	return append([]instance.JobID(nil), p.members[0].perm...)
}

// Sentinels for the start/end of a permutation, used by neighbourOf so a
// job at either end still has a well-defined (and mismatch-comparable)
// neighbour distinct from any real job id.
const (
	sentinelStart instance.JobID = -1
	sentinelEnd   instance.JobID = -2
)

// neighboursOf returns, indexed by job id, each job's left and right
// neighbour in perm (sentinelStart/sentinelEnd at the respective end).
func neighboursOf(perm []instance.JobID, n int) (left, right []instance.JobID) {
	left = make([]instance.JobID, n)
	right = make([]instance.JobID, n)
	for pos, job := range perm {
		if pos == 0 {
			left[job] = sentinelStart
		} else {
			left[job] = perm[pos-1]
		}
		if pos == len(perm)-1 {
			right[job] = sentinelEnd
		} else {
			right[job] = perm[pos+1]
		}
	}

	return left, right
}

// neighbourDistance counts, for each job, mismatches of its left and right
// neighbours between a and b (spec §4.5's population diversity metric,
// grounded on the original solver's distance_callback): a job whose left
// neighbour differs between the two permutations contributes 1, and
// likewise for its right neighbour, so the maximum possible distance is
// 2·len(a). Start/end sentinels are distinct from any job id so a job at an
// end of one permutation and in the middle of the other still registers a
// mismatch.
func neighbourDistance(a, b []instance.JobID) int {
	n := len(a)
	leftA, rightA := neighboursOf(a, n)
	leftB, rightB := neighboursOf(b, n)

	d := 0
	for job := 0; job < n; job++ {
		if leftA[job] != leftB[job] {
			d++
		}
		if rightA[job] != rightB[job] {
			d++
		}
	}

	return d
}

func (p *Population) sort() {
	sort.SliceStable(p.members, func(i, j int) bool {
		return p.members[i].makespan < p.members[j].makespan
	})
}

// averageDistanceToClosest returns the mean neighbourDistance from perm to
// its ClosestNeighbors nearest members currently in the pool.
func (p *Population) averageDistanceToClosest(perm []instance.JobID) float64 {
	if len(p.members) == 0 {
		return 0
	}
	dists := make([]int, len(p.members))
	for i, m := range p.members {
		dists[i] = neighbourDistance(perm, m.perm)
	}
	sort.Ints(dists)
	k := p.ClosestNeighbors
	if k > len(dists) {
		k = len(dists)
	}
	var sum int
	for i := 0; i < k; i++ {
		sum += dists[i]
	}

	return float64(sum) / float64(k)
}

// Offer proposes perm/makespan for admission. Below MinSize, every proposal
// is admitted unconditionally (build the pool up first). At or above
// MinSize, a proposal is admitted if it improves on the current worst
// member, or if its average neighbourDistance to its ClosestNeighbors
// nearest members is greater than zero ("quality-or-diversity" acceptance);
// the diversity of existing members, elite or not, is not compared.
// Admission beyond MaxSize evicts the single worst member, which lies
// outside the elite band whenever MaxSize > EliteSize.
func (p *Population) Offer(perm []instance.JobID, makespan int64) bool {
	m := member{perm: append([]instance.JobID(nil), perm...), makespan: makespan}

	if len(p.members) < p.MinSize {
		p.members = append(p.members, m)
		p.sort()

		return true
	}

	worst := p.members[len(p.members)-1].makespan
	diverseEnough := p.averageDistanceToClosest(perm) > 0
	if makespan >= worst && !diverseEnough {
		return false
	}

	p.members = append(p.members, m)
	p.sort()
	if len(p.members) > p.MaxSize {
		// Evict the current worst member outside the elite band.
		p.members = p.members[:len(p.members)-1]
	}

	return true
}
