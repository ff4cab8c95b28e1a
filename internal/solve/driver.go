// Package solve drives the black-box convex solver: one invocation per
// (problem, scenario) pair, with its outcome recorded rather than
// raised, per the engine's "solver non-optimal statuses are never
// raised" propagation policy.
package solve

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cvxlab/internal/catalog"
	"cvxlab/internal/cverrors"
)

// Status is the outcome of one solver invocation.
type Status string

const (
	StatusOptimal     Status = "optimal"
	StatusInfeasible  Status = "infeasible"
	StatusUnbounded   Status = "unbounded"
	StatusError       Status = "error"
	StatusNotAttempted Status = "not_attempted"
)

// IsOptimal reports whether the coupling loop treats this
// invocation as having produced usable endogenous values.
func (s Status) IsOptimal() bool { return s == StatusOptimal }

// Solver is the out-of-scope collaborator: given a problem key and
// scenario index, it builds and solves the concrete convex program and
// reports its terminal status. Building the actual cvxpy-equivalent
// expression tree is the symbolic-expression layer, not this package's
// concern.
type Solver interface {
	Solve(ctx context.Context, problem catalog.ProblemKey, scenario int, opts map[string]any) (Status, error)
}

// Driver wraps a Solver with per-invocation timeout handling and a
// status ledger the Coupling Loop and Operational Surface both query.
type Driver struct {
	solver  Solver
	timeout time.Duration

	mu       sync.Mutex
	statuses map[string]Status
}

// NewDriver wraps solver with a timeout bound on every invocation; zero
// means no additional timeout beyond ctx's own deadline.
func NewDriver(solver Solver, timeout time.Duration) *Driver {
	return &Driver{solver: solver, timeout: timeout, statuses: map[string]Status{}}
}

// Invoke calls the solver once and records its status. A solver error
// (as opposed to a non-optimal status) is still wrapped and returned:
// the driver only swallows *statuses*, never failures to run at all.
func (d *Driver) Invoke(ctx context.Context, problem catalog.ProblemKey, scenario int, opts map[string]any) (Status, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	status, err := d.solver.Solve(ctx, problem, scenario, opts)
	if err != nil {
		d.record(problem, scenario, StatusError)
		return StatusError, cverrors.Wrap(cverrors.KindOperational, err, "solving problem %s scenario %d", problem, scenario)
	}

	d.record(problem, scenario, status)
	return status, nil
}

// StatusOf returns the last recorded status for a (problem, scenario)
// pair.
func (d *Driver) StatusOf(problem catalog.ProblemKey, scenario int) (Status, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.statuses[key(problem, scenario)]
	return s, ok
}

func (d *Driver) record(problem catalog.ProblemKey, scenario int, status Status) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.statuses[key(problem, scenario)] = status
}

func key(problem catalog.ProblemKey, scenario int) string {
	return fmt.Sprintf("%s#%d", problem, scenario)
}
