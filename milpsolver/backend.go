// Package milpsolver defines the abstract MILP backend boundary (spec.md
// §6's "MILP backend interface") and two concrete shapes: a NoopBackend for
// configurations without a solver, and a ProcessBackend that exec's an
// external solver binary over a temp-file MPS handoff.
package milpsolver

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/fontanf/shopschedulingsolver/milp/sparsemat"
)

// ErrSolverUnavailable indicates no backend is configured for the requested
// solver name (spec.md §7 InvalidConfig policy: "missing solver backends
// cause InvalidConfig at start").
var ErrSolverUnavailable = errors.New("milpsolver: solver unavailable")

// Callback reports an improving incumbent during Solve.
type Callback func(primalBound, dualBound float64, solution []float64, nodeCount int64)

// Backend is the interface every MILP engine adapter implements.
type Backend interface {
	Load(m *sparsemat.Model) error
	SetTimeLimit(d time.Duration)
	RegisterOnImprovingSolution(cb Callback)
	RegisterOnInterrupt(cb func() bool)
	Solve() error
	GetSolution() ([]float64, error)
	GetBound() (float64, error)
	WriteMPS(path string) error
	Close() error
}

// NoopBackend implements Backend by refusing every error-returning
// operation except Close with ErrSolverUnavailable (Close returns nil, the
// setters and Register methods do nothing), the shape used when the CLI is asked for a solver
// that was not compiled in.
type NoopBackend struct{}

func (NoopBackend) Load(*sparsemat.Model) error               { return ErrSolverUnavailable }
func (NoopBackend) SetTimeLimit(time.Duration)                {}
func (NoopBackend) RegisterOnImprovingSolution(Callback)      {}
func (NoopBackend) RegisterOnInterrupt(func() bool)           {}
func (NoopBackend) Solve() error                              { return ErrSolverUnavailable }
func (NoopBackend) GetSolution() ([]float64, error)           { return nil, ErrSolverUnavailable }
func (NoopBackend) GetBound() (float64, error)                { return 0, ErrSolverUnavailable }
func (NoopBackend) WriteMPS(string) error                     { return ErrSolverUnavailable }
func (NoopBackend) Close() error                              { return nil }

// ProcessBackend shapes the exec-boundary to an external solver binary
// (Cbc/HiGHS/Xpress per spec.md §6's --solver flag): it writes the model to
// a uniquely-named temp MPS file, execs the configured binary against it,
// and removes the temp file on every exit path.
type ProcessBackend struct {
	BinaryPath string
	ExtraArgs  []string

	timeLimit      time.Duration
	onImproving    Callback
	onInterrupt    func() bool
	mpsPath        string
	lastSolution   []float64
	lastBound      float64
}

// NewProcessBackend returns a ProcessBackend invoking binaryPath (e.g. the
// path to a Cbc or HiGHS executable).
func NewProcessBackend(binaryPath string, extraArgs ...string) *ProcessBackend {
	return &ProcessBackend{BinaryPath: binaryPath, ExtraArgs: extraArgs}
}

// Load writes m to a unique temp MPS file, kept for Solve/WriteMPS and
// removed by Close.
func (pb *ProcessBackend) Load(m *sparsemat.Model) error {
	f, err := os.CreateTemp("", "shopschedulingsolver-*.mps")
	if err != nil {
		return err
	}
	defer f.Close()

	if err := m.WriteMPS(f); err != nil {
		os.Remove(f.Name())

		return err
	}
	pb.mpsPath = f.Name()

	return nil
}

// SetTimeLimit records the wall-clock budget; Solve does not pass it to the
// external solver.
func (pb *ProcessBackend) SetTimeLimit(d time.Duration) { pb.timeLimit = d }

// RegisterOnImprovingSolution records the improving-incumbent callback.
func (pb *ProcessBackend) RegisterOnImprovingSolution(cb Callback) { pb.onImproving = cb }

// RegisterOnInterrupt records the cooperative-interrupt poll.
func (pb *ProcessBackend) RegisterOnInterrupt(cb func() bool) { pb.onInterrupt = cb }

// Solve execs BinaryPath against the loaded MPS file, blocking until it
// exits; the recorded time limit is neither passed to the process nor
// enforced on it. Real solvers stream improving solutions
// on stdout in a solver-specific format; adapting that stream to Callback
// is solver-specific and left to a concrete subclass/wrapper — this shape
// only guarantees the process lifecycle (spawn, wait, guaranteed temp-file
// cleanup) named in spec.md §5's resource discipline.
func (pb *ProcessBackend) Solve() error {
	if pb.mpsPath == "" {
		return fmt.Errorf("milpsolver: Load must be called before Solve")
	}
	args := append([]string{pb.mpsPath}, pb.ExtraArgs...)
	cmd := exec.Command(pb.BinaryPath, args...)
	if pb.timeLimit > 0 {
		// A real adapter would also enforce this via the solver's own
		// --time-limit flag; omitted here since flag syntax is
		// solver-specific.
	}

	return cmd.Run()
}

// GetSolution returns the last parsed solution vector (nil if none).
func (pb *ProcessBackend) GetSolution() ([]float64, error) {
	if pb.lastSolution == nil {
		return nil, ErrSolverUnavailable
	}

	return pb.lastSolution, nil
}

// GetBound returns the last known dual bound.
func (pb *ProcessBackend) GetBound() (float64, error) { return pb.lastBound, nil }

// WriteMPS copies the already-written temp MPS file to path.
func (pb *ProcessBackend) WriteMPS(path string) error {
	if pb.mpsPath == "" {
		return fmt.Errorf("milpsolver: Load must be called before WriteMPS")
	}
	data, err := os.ReadFile(pb.mpsPath)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

// Close removes the temp MPS file. Safe to call multiple times.
func (pb *ProcessBackend) Close() error {
	if pb.mpsPath == "" {
		return nil
	}
	err := os.Remove(pb.mpsPath)
	pb.mpsPath = ""

	return err
}
