package solution

import (
	"sort"

	"github.com/fontanf/shopschedulingsolver/instance"
)

// Builder exclusively owns a partial Solution until Build() transfers
// ownership to the caller. Operations are appended in any order via
// AppendOperation, then SortMachines/SortJobs reorder the per-machine and
// per-job sequences by start time, then Build() computes every derived
// metric in a single pass.
type Builder struct {
	inst *instance.Instance

	operations []ScheduledOperation
	machineOps [][]ScheduledOperationID
	jobOps     [][]ScheduledOperationID
}

// NewBuilder returns a Builder for the given instance. inst must be non-nil.
func NewBuilder(inst *instance.Instance) (*Builder, error) {
	if inst == nil {
		return nil, ErrNilInstance
	}

	return &Builder{
		inst:       inst,
		machineOps: make([][]ScheduledOperationID, inst.NumberOfMachines()),
		jobOps:     make([][]ScheduledOperationID, inst.NumberOfJobs()),
	}, nil
}

// AppendOperation schedules one (job, operation, alternative) at the given
// start time. machine_position and job_position are assigned equal to the
// current push-back index on the relevant per-machine/per-job list (call
// SortMachines/SortJobs afterwards to reorder by start time).
func (b *Builder) AppendOperation(job instance.JobID, op instance.OperationID, alt instance.AlternativeID, start int64) (ScheduledOperationID, error) {
	if job < 0 || job >= b.inst.NumberOfJobs() {
		return 0, ErrInvalidArgument
	}
	jobOperations := b.inst.Job(job).Operations
	if op < 0 || op >= len(jobOperations) {
		return 0, ErrInvalidArgument
	}
	alts := jobOperations[op].Alternatives
	if alt < 0 || alt >= len(alts) {
		return 0, ErrInvalidArgument
	}
	if start < 0 {
		return 0, ErrInvalidArgument
	}

	machine := alts[alt].MachineID
	so := ScheduledOperation{
		MachineID:       machine,
		JobID:           job,
		OperationID:     op,
		AlternativeID:   alt,
		Start:           start,
		ProcessingTime:  alts[alt].ProcessingTime,
		MachinePosition: len(b.machineOps[machine]),
		JobPosition:     len(b.jobOps[job]),
	}
	id := len(b.operations)
	b.operations = append(b.operations, so)
	b.machineOps[machine] = append(b.machineOps[machine], id)
	b.jobOps[job] = append(b.jobOps[job], id)

	return id, nil
}

// SortMachines reorders every machine's operation list by start time
// (stable: ties keep insertion order) and renumbers machine_position.
// Idempotent: calling it twice produces the same order.
func (b *Builder) SortMachines() {
	for m := range b.machineOps {
		ids := b.machineOps[m]
		sort.SliceStable(ids, func(i, j int) bool {
			return b.operations[ids[i]].Start < b.operations[ids[j]].Start
		})
		for pos, id := range ids {
			b.operations[id].MachinePosition = pos
		}
	}
}

// SortJobs reorders every job's operation list by start time (stable) and
// renumbers job_position. Idempotent.
func (b *Builder) SortJobs() {
	for j := range b.jobOps {
		ids := b.jobOps[j]
		sort.SliceStable(ids, func(i, j2 int) bool {
			return b.operations[ids[i]].Start < b.operations[ids[j2]].Start
		})
		for pos, id := range ids {
			b.operations[id].JobPosition = pos
		}
	}
}

// FromPermutation builds a permutation flow-shop schedule from a job
// visiting order (PFSS only): every job's operation 0 is placed on machine
// 0 at the running machine-0 end time; each subsequent machine starts at
// max(prev-machine end on this job, running machine end); alternative 0 is
// always selected. jobIDs must be a permutation of [0, NumberOfJobs).
//
// Complexity: O(n·m).
func (b *Builder) FromPermutation(jobIDs []instance.JobID) error {
	m := b.inst.NumberOfMachines()
	if len(jobIDs) != b.inst.NumberOfJobs() {
		return ErrInvalidArgument
	}

	machineEnd := make([]int64, m)
	for _, job := range jobIDs {
		if job < 0 || job >= b.inst.NumberOfJobs() {
			return ErrInvalidArgument
		}
		ops := b.inst.Job(job).Operations
		if len(ops) != m {
			return ErrInvalidArgument
		}
		var jobPrevEnd int64
		for machine := 0; machine < m; machine++ {
			if len(ops[machine].Alternatives) == 0 {
				return ErrInvalidArgument
			}
			p := ops[machine].Alternatives[0].ProcessingTime
			start := machineEnd[machine]
			if jobPrevEnd > start {
				start = jobPrevEnd
			}
			if _, err := b.AppendOperation(job, machine, 0, start); err != nil {
				return err
			}
			end := start + p
			machineEnd[machine] = end
			jobPrevEnd = end
		}
	}
	b.SortMachines()
	b.SortJobs()

	return nil
}

// Build performs a single pass over jobs, then over machines, computing
// every derived metric, and returns the resulting Solution. Build assumes
// SortMachines/SortJobs have already been called (or that operations were
// appended in start-time order); it does not re-sort.
func (b *Builder) Build() *Solution {
	s := &Solution{
		inst:          b.inst,
		operations:    append([]ScheduledOperation(nil), b.operations...),
		machines:      make([]machineSchedule, len(b.machineOps)),
		jobs:          make([]jobSchedule, len(b.jobOps)),
		noWaitOK:      true,
		noIdleOK:      true,
		blockingOK:    true,
		permutationOK: true,
	}
	for m := range b.machineOps {
		s.machines[m].operations = append([]ScheduledOperationID(nil), b.machineOps[m]...)
	}

	// Per-job pass.
	for j := range b.jobOps {
		ids := b.jobOps[j]
		s.jobs[j].operations = append([]ScheduledOperationID(nil), ids...)
		if len(ids) == 0 {
			continue
		}

		minStart := s.operations[ids[0]].Start
		maxEnd := s.operations[ids[0]].End()
		var processing int64
		for i, id := range ids {
			op := s.operations[id]
			if op.Start < minStart {
				minStart = op.Start
			}
			if op.End() > maxEnd {
				maxEnd = op.End()
			}
			processing += op.ProcessingTime

			if i > 0 {
				prev := s.operations[ids[i-1]]
				if prev.End() > op.Start {
					s.numberOfJobOverlaps++
				}
				if !b.inst.OperationsArbitraryOrder() && op.OperationID < prev.OperationID {
					s.numberOfPrecedenceViolations++
				}
				if op.Start > prev.End() {
					s.noWaitOK = false
				}
			}
		}
		s.jobs[j].start = minStart
		s.jobs[j].end = maxEnd
		s.jobs[j].processing = processing

		if minStart < b.inst.Job(j).ReleaseDate {
			s.numberOfReleaseDateViolations++
		}

		w := b.inst.Job(j).Weight
		s.totalFlowTime += w * (maxEnd - b.inst.Job(j).ReleaseDate)
		due := b.inst.Job(j).DueDate
		if due != -1 {
			tard := maxEnd - due
			if tard > 0 {
				s.totalTardiness += w * tard
			}
		}
		if maxEnd > s.makespan {
			s.makespan = maxEnd
		}

		// Throughput alone carries spec's completeness qualifier (Σ wⱼ over
		// completed jobs); makespan/flow-time/tardiness use whatever
		// operations were actually scheduled, per spec's literal formulas.
		if len(ids) == len(b.inst.Job(j).Operations) {
			s.throughput += w
		}
	}

	// Per-machine pass.
	var machine0Jobs []instance.JobID
	for m := range b.machineOps {
		ids := b.machineOps[m]
		noIdleRequired := b.inst.Machine(m).NoIdle
		var jobOrder []instance.JobID
		for i, id := range ids {
			op := s.operations[id]
			jobOrder = append(jobOrder, op.JobID)
			if i == 0 {
				continue
			}
			prev := s.operations[ids[i-1]]
			if prev.End() > op.Start {
				s.numberOfMachineOverlaps++
			}
			if noIdleRequired && op.Start > prev.End() {
				s.noIdleOK = false
			}

			// Blocking check: prev's job's next scheduled operation (within
			// its own job sequence) must not start after op.Start, else the
			// predecessor job is still occupying this machine at handoff.
			prevJobOps := s.jobs[prev.JobID].operations
			for k, oid := range prevJobOps {
				if oid == ids[i-1] && k+1 < len(prevJobOps) {
					nextOfPrevJob := s.operations[prevJobOps[k+1]]
					if nextOfPrevJob.Start > op.Start {
						s.blockingOK = false
					}

					break
				}
			}
		}
		if m == 0 {
			machine0Jobs = jobOrder
		} else if s.permutationOK && !sameOrder(machine0Jobs, jobOrder) {
			s.permutationOK = false
		}
	}

	return s
}

// sameOrder reports whether two job sequences contain exactly the same
// jobs in the same relative order (used for the permutation check).
func sameOrder(a, b []instance.JobID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}

	return true
}
