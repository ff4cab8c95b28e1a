// Package coupling implements the block Gauss-Seidel coupling loop: a
// fixed-point iteration over a subproblem set, with crash-safe
// backup/restore of the store around each scenario.
package coupling

import (
	"context"
	"fmt"

	"cvxlab/internal/catalog"
	"cvxlab/internal/config"
	"cvxlab/internal/cverrors"
	"cvxlab/internal/solve"
	"cvxlab/internal/store"
)

// ProblemRunner binds one problem's exogenous/endogenous data to the
// store for a given scenario; the Coupling Loop only orchestrates when
// these happen, not how.
type ProblemRunner interface {
	PushExogenous(ctx context.Context, problem catalog.ProblemKey, scenario int) error
	PullEndogenous(ctx context.Context, problem catalog.ProblemKey, scenario int) error
}

// Outcome reports how one scenario's coupling loop ended.
type Outcome struct {
	Converged  bool
	Iterations int
	MaxDiff    float64
}

// Loop runs the block Gauss-Seidel iteration for a single scenario over
// an ordered sequence of problems. OpenSnapshot opens a second,
// independent handle onto a named snapshot file in the same store
// directory, used to diff the "previous" iteration's values against the
// live store without disturbing the live connection.
type Loop struct {
	Store            store.Store
	OpenSnapshot     func(fileName string) (store.Store, error)
	Driver           *solve.Driver
	Config           *config.Config
	Runner           ProblemRunner
	Problems         []catalog.ProblemKey
	EndogenousTables []string
	SolverOpts       map[string]any
}

// Run executes the loop for one scenario index, backing the store up
// before iterating and restoring it on every exit path (Decision 3: a
// non-optimal status at any iteration, the first included, aborts the
// rest of that iteration's exports and fails the scenario; the guard
// then restores the pre-loop store).
func (l *Loop) Run(ctx context.Context, scenario int) (Outcome, error) {
	backupName := fmt.Sprintf("backup_%d.sqlite", scenario)
	guard, err := Acquire(l.Store, backupName)
	if err != nil {
		return Outcome{}, err
	}
	defer guard.Release()

	previousName := fmt.Sprintf("previous_%d.sqlite", scenario)

	var outcome Outcome
	for iter := 1; iter <= l.Config.MaxIterationsCoupling; iter++ {
		outcome.Iterations = iter

		if iter >= 2 {
			if err := l.Store.Backup(previousName); err != nil {
				return outcome, err
			}
		}

		aborted, err := l.runIteration(ctx, scenario, iter)
		if err != nil {
			l.Store.Delete(previousName)
			return outcome, err
		}
		if aborted {
			l.Store.Delete(previousName)
			return outcome, cverrors.Operational("scenario %d: non-optimal subproblem status at iteration %d aborted the scenario", scenario, iter)
		}

		if iter >= 2 {
			prev, err := l.OpenSnapshot(previousName)
			if err != nil {
				l.Store.Delete(previousName)
				return outcome, err
			}
			diffs, err := l.Store.RelativeDiff(ctx, l.EndogenousTables, prev, l.Config.RoundingDigitsRelativeDiff)
			prev.Close()
			l.Store.Delete(previousName)
			if err != nil {
				return outcome, err
			}
			max := 0.0
			for _, d := range diffs {
				if d > max {
					max = d
				}
			}
			outcome.MaxDiff = max
			if max <= l.Config.ToleranceCouplingConvergence {
				outcome.Converged = true
				return outcome, nil
			}
		}
	}

	return outcome, nil
}

func (l *Loop) runIteration(ctx context.Context, scenario, iter int) (aborted bool, err error) {
	for _, p := range l.Problems {
		if iter >= 2 {
			if err := l.Runner.PushExogenous(ctx, p, scenario); err != nil {
				return false, err
			}
		}

		status, err := l.Driver.Invoke(ctx, p, scenario, l.SolverOpts)
		if err != nil {
			return false, err
		}
		if !status.IsOptimal() {
			return true, nil
		}

		if err := l.Runner.PullEndogenous(ctx, p, scenario); err != nil {
			return false, err
		}
	}
	return false, nil
}
