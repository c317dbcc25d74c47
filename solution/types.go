// Package solution defines the Solution model: a set of scheduled
// operations plus the per-job, per-machine, and global metrics derived from
// them by SolutionBuilder.Build(). A Solution holds a read-only
// back-reference to the Instance it schedules but never mutates it.
package solution

import (
	"errors"

	"github.com/fontanf/shopschedulingsolver/instance"
)

// Sentinel errors for solution construction.
var (
	// ErrInvalidArgument indicates an out-of-range or malformed argument
	// passed to SolutionBuilder.
	ErrInvalidArgument = errors.New("solution: invalid argument")

	// ErrNilInstance indicates a SolutionBuilder was created with a nil
	// instance.
	ErrNilInstance = errors.New("solution: nil instance")
)

// ScheduledOperationID indexes into Solution.operations.
type ScheduledOperationID = int

// ScheduledOperation is one operation placed on the schedule.
type ScheduledOperation struct {
	MachineID      instance.MachineID
	JobID          instance.JobID
	OperationID    instance.OperationID
	AlternativeID  instance.AlternativeID
	Start          int64
	ProcessingTime int64

	// MachinePosition is this operation's rank among operations scheduled on
	// the same machine (0-based, after sorting by start).
	MachinePosition int
	// JobPosition is this operation's rank among operations scheduled for
	// the same job (0-based, after sorting by start).
	JobPosition int
}

// End returns Start + ProcessingTime.
func (so ScheduledOperation) End() int64 { return so.Start + so.ProcessingTime }

// machineSchedule is the per-machine derived view.
type machineSchedule struct {
	operations []ScheduledOperationID
}

// jobSchedule is the per-job derived view.
type jobSchedule struct {
	operations []ScheduledOperationID // ordered by job_position, index == operation_id for convenience where dense
	start      int64
	end        int64
	processing int64
}

// Solution is the immutable (from the caller's perspective) result of
// SolutionBuilder.Build(). Fields are accessed through getters; nothing
// exported allows external mutation of internal slices.
type Solution struct {
	inst *instance.Instance

	operations []ScheduledOperation

	machines []machineSchedule
	jobs     []jobSchedule

	numberOfReleaseDateViolations int
	numberOfJobOverlaps           int
	numberOfMachineOverlaps       int
	numberOfPrecedenceViolations  int

	noWaitOK      bool
	noIdleOK      bool
	blockingOK    bool
	permutationOK bool

	makespan        int64
	totalFlowTime   int64
	throughput      int64
	totalTardiness  int64
}

// Instance returns the instance this solution schedules.
func (s *Solution) Instance() *instance.Instance { return s.inst }

// NumberOfOperations returns the number of scheduled operations.
func (s *Solution) NumberOfOperations() int { return len(s.operations) }

// Operation returns the scheduled operation with the given id.
func (s *Solution) Operation(id ScheduledOperationID) ScheduledOperation { return s.operations[id] }

// MachineOperations returns the scheduled-operation ids on a machine, in
// machine-position order.
func (s *Solution) MachineOperations(m instance.MachineID) []ScheduledOperationID {
	return s.machines[m].operations
}

// JobOperations returns the scheduled-operation ids of a job, in
// job-position order.
func (s *Solution) JobOperations(j instance.JobID) []ScheduledOperationID {
	return s.jobs[j].operations
}

// JobStart returns the start time of a job (min op.start).
func (s *Solution) JobStart(j instance.JobID) int64 { return s.jobs[j].start }

// JobEnd returns the end time of a job (max op.end).
func (s *Solution) JobEnd(j instance.JobID) int64 { return s.jobs[j].end }

// JobProcessingTime returns the sum of processing times of a job's
// scheduled operations.
func (s *Solution) JobProcessingTime(j instance.JobID) int64 { return s.jobs[j].processing }

// NumberOfReleaseDateViolations returns the count of jobs whose schedule
// starts before their release date.
func (s *Solution) NumberOfReleaseDateViolations() int { return s.numberOfReleaseDateViolations }

// NumberOfJobOverlaps returns the count of overlapping consecutive
// operations within the same job's schedule.
func (s *Solution) NumberOfJobOverlaps() int { return s.numberOfJobOverlaps }

// NumberOfMachineOverlaps returns the count of overlapping consecutive
// operations on the same machine.
func (s *Solution) NumberOfMachineOverlaps() int { return s.numberOfMachineOverlaps }

// NumberOfPrecedenceViolations returns the count of job-internal precedence
// violations (ignored when the instance is an open shop).
func (s *Solution) NumberOfPrecedenceViolations() int { return s.numberOfPrecedenceViolations }

// NoWait reports whether the no-wait property holds.
func (s *Solution) NoWait() bool { return s.noWaitOK }

// NoIdle reports whether the no-idle property holds.
func (s *Solution) NoIdle() bool { return s.noIdleOK }

// Blocking reports whether the blocking property holds.
func (s *Solution) Blocking() bool { return s.blockingOK }

// Permutation reports whether the permutation property holds.
func (s *Solution) Permutation() bool { return s.permutationOK }

// Makespan returns max over jobs of job end time.
func (s *Solution) Makespan() int64 { return s.makespan }

// TotalFlowTime returns Σ wⱼ(endⱼ − rⱼ).
func (s *Solution) TotalFlowTime() int64 { return s.totalFlowTime }

// Throughput returns Σ wⱼ over completed jobs (a static quantity, see
// GLOSSARY / spec §9 open question — not a per-unit-time rate).
func (s *Solution) Throughput() int64 { return s.throughput }

// TotalTardiness returns Σ wⱼ·max(0, endⱼ − dⱼ) over jobs with a due date.
func (s *Solution) TotalTardiness() int64 { return s.totalTardiness }

// Feasible reports whether every violation counter is zero, every
// constraint flag required by the instance holds, and every operation of
// the instance has been scheduled.
func (s *Solution) Feasible() bool {
	if s.numberOfReleaseDateViolations != 0 ||
		s.numberOfJobOverlaps != 0 ||
		s.numberOfMachineOverlaps != 0 ||
		s.numberOfPrecedenceViolations != 0 {
		return false
	}
	if s.inst.NoWait() && !s.noWaitOK {
		return false
	}
	if (s.inst.NoIdle() || s.inst.MixedNoIdle()) && !s.noIdleOK {
		return false
	}
	if s.inst.Blocking() && !s.blockingOK {
		return false
	}
	if s.inst.Permutation() && !s.permutationOK {
		return false
	}

	return len(s.operations) == s.inst.NumberOfOperations()
}

// objectiveValue returns the metric relevant to the instance's objective.
func (s *Solution) objectiveValue() int64 {
	switch s.inst.Objective() {
	case instance.TotalFlowTime:
		return s.totalFlowTime
	case instance.Throughput:
		return s.throughput
	case instance.TotalTardiness:
		return s.totalTardiness
	default: // instance.Makespan
		return s.makespan
	}
}

// StrictlyBetter reports whether s is strictly better than other under the
// active objective: infeasible always loses to feasible; among equally
// feasible solutions, strict '<' on the objective metric wins (except
// Throughput, which is maximized: strict '>' wins).
func (s *Solution) StrictlyBetter(other *Solution) bool {
	if other == nil {
		return true
	}
	sf, of := s.Feasible(), other.Feasible()
	if sf != of {
		return sf
	}
	if !sf {
		return false
	}
	if s.inst.Objective() == instance.Throughput {
		return s.objectiveValue() > other.objectiveValue()
	}

	return s.objectiveValue() < other.objectiveValue()
}
