// Package config holds the single explicit configuration struct threaded
// through Model construction, rather than reaching for globals.
package config

import "time"

// Config collects every tunable governing coupling convergence, results
// checking, store batching, and solver defaults.
type Config struct {
	// ToleranceCouplingConvergence bounds the relative difference (per
	// endogenous table, max over elements) below which the coupling loop
	// declares convergence for a scenario.
	ToleranceCouplingConvergence float64
	// MaxIterationsCoupling caps the block Gauss-Seidel loop per scenario.
	MaxIterationsCoupling int
	// ToleranceResultsCheck is the configured results-check tolerance.
	// CheckResults takes its tolerance as an argument and does not read
	// this field.
	ToleranceResultsCheck float64
	// RoundingDigitsRelativeDiff controls the precision RelativeDiff
	// rounds to before comparing against a tolerance.
	RoundingDigitsRelativeDiff int
	// SparseZeroRatioThreshold is the configured fraction of zero entries
	// at which a constant/parameter tensor counts as sparse. No engine
	// code reads it, and no tensor is flagged sparse.
	SparseZeroRatioThreshold float64
	// StoreBatchSize bounds how many rows the Table Store Adapter writes
	// per BulkUpsert transaction.
	StoreBatchSize int
	// DefaultSolver names a default solver. Model.Run does not read it:
	// the solver used is the one given to NewModel, or the one passed to
	// Run when that is non-nil.
	DefaultSolver string
	// AllowNoneValues, when true, lets exogenous NULLs pass through
	// InitializeProblems instead of raising MissingDataError.
	AllowNoneValues bool
	// IntegerVariables maps related table names to an integer flag. The
	// materializer does not read it: a decision tensor is
	// integer-constrained exactly when its DataTable's own `integer` flag
	// is set.
	IntegerVariables map[string]bool

	// SolveTimeout bounds a single solver invocation; zero means no
	// timeout is applied by the driver (the solver may still respect one
	// passed via SolverOptions).
	SolveTimeout time.Duration
}

// NewDefaultConfig returns the default configuration.
func NewDefaultConfig() *Config {
	return &Config{
		ToleranceCouplingConvergence: 0.01,
		MaxIterationsCoupling:        20,
		ToleranceResultsCheck:        0.02,
		RoundingDigitsRelativeDiff:   5,
		SparseZeroRatioThreshold:     0.3,
		StoreBatchSize:               1000,
		DefaultSolver:                "",
		AllowNoneValues:              false,
		IntegerVariables:             map[string]bool{},
	}
}
