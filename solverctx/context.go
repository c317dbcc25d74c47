// Package solverctx implements the algorithm framework shared by every
// solver in this module: timing/cancellation, the improving-solution and
// lower/upper-bound callback stream, verbosity-gated progress logging, and
// the common Algorithm contract. It mirrors the cooperative-cancellation
// idiom used for context.Context plumbing across the teacher pack (e.g.
// dfs.WithCancelContext) and the log/slog structured-logging idiom used in
// KhryptorGraphics-OllamaMax/main.go.
package solverctx

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/fontanf/shopschedulingsolver/instance"
	"github.com/fontanf/shopschedulingsolver/solution"
)

// Sentinel errors for the algorithm framework.
var (
	// ErrInterrupted indicates cooperative cancellation via the timer or an
	// external signal. It is returned cleanly with the best-known result.
	ErrInterrupted = errors.New("solverctx: interrupted")

	// ErrInvalidConfig indicates an unknown algorithm name, unknown solver,
	// or an unsupported combination of algorithm and instance flags.
	ErrInvalidConfig = errors.New("solverctx: invalid configuration")
)

// InvariantViolationError is raised for InternalInvariantViolation
// conditions (spec §7 kind 5): a tableau/solution disagreement, an
// unexpected position index, or a wrong objective computation. It carries
// enough context for post-mortem diagnosis and is always fatal (panicked),
// never returned as a normal error, since it indicates a bug rather than
// bad input.
type InvariantViolationError struct {
	Component string
	Detail    string
	Context   map[string]any
}

func (e *InvariantViolationError) Error() string {
	return "solverctx: invariant violation in " + e.Component + ": " + e.Detail
}

// Panic raises an InvariantViolationError as a panic, the mandated response
// to an InternalInvariantViolation (spec §7 policy: "invariant violations
// raise fatal errors immediately").
func Panic(component, detail string, context map[string]any) {
	panic(&InvariantViolationError{Component: component, Detail: detail, Context: context})
}

// Timer exposes cooperative cancellation built on a context.Context plus an
// optional deadline. NeedsToEnd is polled at the ILS and beam-search
// suspension points (after each outer ILS iteration, between beam-search
// depths/widths); the MILP path does not poll it.
type Timer struct {
	ctx      context.Context
	start    time.Time
	deadline time.Time // zero value means "no deadline"
}

// NewTimer returns a Timer bound to ctx (use context.Background() for no
// external cancellation) with an optional wall-clock limit. A zero or
// negative limit means "no limit".
func NewTimer(ctx context.Context, limit time.Duration) *Timer {
	if ctx == nil {
		ctx = context.Background()
	}
	t := &Timer{ctx: ctx, start: time.Now()}
	if limit > 0 {
		t.deadline = t.start.Add(limit)
	}

	return t
}

// NeedsToEnd reports whether the timer's context was cancelled or its
// deadline has passed.
func (t *Timer) NeedsToEnd() bool {
	select {
	case <-t.ctx.Done():
		return true
	default:
	}
	if !t.deadline.IsZero() && time.Now().After(t.deadline) {
		return true
	}

	return false
}

// RemainingTime returns the time left before the deadline, or the largest
// representable duration if no deadline was set.
func (t *Timer) RemainingTime() time.Duration {
	if t.deadline.IsZero() {
		return time.Duration(1<<63 - 1)
	}
	remaining := time.Until(t.deadline)
	if remaining < 0 {
		return 0
	}

	return remaining
}

// ElapsedTime returns the time elapsed since the timer was created.
func (t *Timer) ElapsedTime() time.Duration { return time.Since(t.start) }

// Output bundles the current best-known Solution together with timing and
// optional objective-specific bounds, per spec §4.3.
type Output struct {
	Solution   *solution.Solution
	Time       time.Duration
	LowerBound *float64
	UpperBound *float64
}

// Callback is invoked synchronously on the algorithm's goroutine whenever
// the best-known Output improves.
type Callback func(Output)

// Params carries algorithm-agnostic knobs read by the CLI/driver layer and
// passed through to a specific algorithm's own Params type via composition.
type Params struct {
	Seed    int64
	Verbosity int
}

// Context composes the timer, callback, verbosity, and progress writer that
// every Algorithm receives. It owns the single best-known Output and
// mediates every update through UpdateSolution/UpdateLowerBound/
// UpdateUpperBound so that improving solutions and monotonic bounds flow
// strictly as described in spec §5 ("Ordering").
type Context struct {
	Timer     *Timer
	Callback  Callback
	Verbosity int

	logger *slog.Logger
	out    Output
}

// NewContext returns a Context writing human-readable progress to w at
// verbosity level v (0 = silent).
func NewContext(timer *Timer, cb Callback, verbosity int, w io.Writer) *Context {
	if cb == nil {
		cb = func(Output) {}
	}
	level := slog.LevelWarn
	if verbosity > 0 {
		level = slog.LevelInfo
	}

	return &Context{
		Timer:     timer,
		Callback:  cb,
		Verbosity: verbosity,
		logger:    slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})),
	}
}

// Best returns the current best-known Output.
func (c *Context) Best() Output { return c.out }

// UpdateSolution atomically replaces the best known solution iff sol is
// strictly better than the current one, fires Callback, and logs at info
// level. Returns whether the update was accepted.
func (c *Context) UpdateSolution(sol *solution.Solution, label string) bool {
	if sol == nil || !sol.StrictlyBetter(c.out.Solution) {
		return false
	}
	c.out.Solution = sol
	c.out.Time = c.Timer.ElapsedTime()
	c.logger.Info("new solution", "label", label, "makespan", sol.Makespan(), "feasible", sol.Feasible())
	c.Callback(c.out)

	return true
}

// UpdateLowerBound monotonically raises the lower bound toward the
// objective (minimization: the bound may only increase). Returns whether
// the update was accepted.
func (c *Context) UpdateLowerBound(v float64, label string) bool {
	if c.out.LowerBound != nil && v <= *c.out.LowerBound {
		return false
	}
	bound := v
	c.out.LowerBound = &bound
	c.logger.Info("lower bound", "label", label, "bound", v)
	c.Callback(c.out)

	return true
}

// UpdateUpperBound monotonically lowers the upper bound. Returns whether
// the update was accepted.
func (c *Context) UpdateUpperBound(v float64, label string) bool {
	if c.out.UpperBound != nil && v >= *c.out.UpperBound {
		return false
	}
	bound := v
	c.out.UpperBound = &bound
	c.logger.Info("upper bound", "label", label, "bound", v)
	c.Callback(c.out)

	return true
}

// Algorithm is the common contract every solver in this module implements:
// (Instance, Params, Context) → best Output found (or an error). Per
// DESIGN NOTES §9, composition happens via a small dispatch table at the
// CLI layer rather than a runtime-polymorphic interface hierarchy.
type Algorithm func(ins *instance.Instance, params Params, ctx *Context) (Output, error)
