// Package cvxlab is the model compilation and execution engine: it
// loads a model's sets/tables/variables/problems, materializes
// per-variable tensor bindings, binds relational store rows to those
// tensors, and runs the block Gauss-Seidel coupling loop to convergence
// over every scenario.
package cvxlab

import (
	"context"
	"fmt"

	"cvxlab/internal/audit"
	"cvxlab/internal/catalog"
	"cvxlab/internal/config"
	"cvxlab/internal/coordinate"
	"cvxlab/internal/coupling"
	"cvxlab/internal/cverrors"
	"cvxlab/internal/databind"
	"cvxlab/internal/events"
	"cvxlab/internal/materialize"
	"cvxlab/internal/solve"
	"cvxlab/internal/store"
)

// lifecycle tracks which operational stage the model has reached, so
// out-of-order calls raise KindOperational instead of touching nil
// state.
type lifecycle int

const (
	stageNew lifecycle = iota
	stageCoordinatesLoaded
	stageStructureInitialized
	stageProblemsInitialized
)

// Model is the single caller-facing façade over every core component.
// It owns the Registry (immutable after Validate), the store handle,
// every variable's binding dataframes, and the coupling machinery.
type Model struct {
	cfg *config.Config
	reg *catalog.Registry

	storeDir  string
	storeFile string
	store     store.Store

	scenarios *coordinate.ScenarioTable
	bindings  map[catalog.VariableID]*materialize.VariableBinding

	driver *solve.Driver
	bus    events.Bus
	audit  audit.Logger

	stage  lifecycle
	status map[string]string // scenario key -> last outcome, for RunStatus
}

// NewModel constructs a Model with the given solver and configuration;
// the store directory and file are fixed later by
// InitializeBlankDataStructure, once coordinates are loaded. A nil bus
// defaults to events.NoopBus; a nil logger defaults to an AsyncLogger
// over the standard printSink.
func NewModel(cfg *config.Config, solver solve.Solver, bus events.Bus, logger audit.Logger) *Model {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if bus == nil {
		bus = events.NoopBus{}
	}
	if logger == nil {
		logger = audit.NewAsyncLogger(nil)
	}
	return &Model{
		cfg:    cfg,
		reg:    catalog.NewRegistry(),
		driver: solve.NewDriver(solver, cfg.SolveTimeout),
		bus:    bus,
		audit:  logger,
		status: map[string]string{},
	}
}

// Registry exposes the loaded catalog; used by internal/api's read-only
// inspector routes.
func (m *Model) Registry() *catalog.Registry { return m.reg }

// LoadModelCoordinates ingests src into the catalog, validates it, and
// builds the scenario table. Must be called exactly once, before any
// other Model method.
func (m *Model) LoadModelCoordinates(src catalog.SetupSource) error {
	if m.stage != stageNew {
		return cverrors.Operational("LoadModelCoordinates called out of order: model already initialized")
	}
	if err := m.reg.Load(src); err != nil {
		return err
	}
	if err := m.reg.Validate(); err != nil {
		return err
	}
	if err := m.checkVariableCoherence(); err != nil {
		return err
	}
	scenarios, err := coordinate.BuildScenarioTable(m.reg)
	if err != nil {
		return err
	}
	m.scenarios = scenarios
	m.stage = stageCoordinatesLoaded
	return nil
}

// checkVariableCoherence resolves every variable's rows/cols/intra/inter
// partition, aggregating a Settings error for each one that resolves to
// an empty axis after filtering. Run eagerly here, at coordinate-load
// time, rather than deferred to InitializeProblems: the catalog package
// cannot perform this check itself (it needs coordinate.ResolveVariable's
// resolved partition, and coordinate already imports catalog), and
// deferring it would mean it only fires per-variable on the first
// MaterializeVariable failure instead of being raised once for every
// offending variable.
func (m *Model) checkVariableCoherence() error {
	var agg cverrors.Aggregate
	for _, vid := range m.reg.AllVariables() {
		coordinate.ResolveVariable(m.reg, vid, &agg)
	}
	return agg.Err()
}

// ScenarioTable exposes the built scenario table; used by internal/api.
func (m *Model) ScenarioTable() (*coordinate.ScenarioTable, error) {
	if m.stage < stageCoordinatesLoaded {
		return nil, cverrors.Operational("ScenarioTable called before LoadModelCoordinates")
	}
	return m.scenarios, nil
}

// InitializeBlankDataStructure opens the store file (creating it if
// absent) and creates every set and data table's schema, with no rows
// yet populated beyond set lookup tables.
func (m *Model) InitializeBlankDataStructure(ctx context.Context, storeDir, storeFile string) error {
	if m.stage != stageCoordinatesLoaded {
		return cverrors.Operational("InitializeBlankDataStructure called out of order")
	}
	s, err := store.Open(storeDir, storeFile, m.cfg.StoreBatchSize, 0)
	if err != nil {
		return err
	}
	m.storeDir, m.storeFile, m.store = storeDir, storeFile, s

	for _, sid := range m.reg.AllSets() {
		if err := store.CreateSetTable(ctx, m.store, m.reg.Set(sid)); err != nil {
			return err
		}
	}
	for _, tid := range m.reg.AllTables() {
		if err := store.CreateDataTable(ctx, m.store, m.reg.Table(tid)); err != nil {
			return err
		}
	}

	m.stage = stageStructureInitialized
	return nil
}

// LoadExogenousDataToStore bulk-upserts externally supplied rows for a
// named table (exogenous or constant) into the store; the caller owns
// parsing whatever external representation those rows came from.
func (m *Model) LoadExogenousDataToStore(ctx context.Context, tableName string, rows []store.Row) error {
	if m.stage < stageStructureInitialized {
		return cverrors.Operational("LoadExogenousDataToStore called before InitializeBlankDataStructure")
	}
	return m.store.BulkUpsert(ctx, tableName, rows)
}

// InitializeProblems materializes every variable's ConvexTensor(s) and
// binding dataframe(s) and pushes exogenous values into them from the
// store; constant tensors keep the values their generator produced.
// force re-materializes even if problems were already
// initialized; allowNone overrides Config.AllowNoneValues for this call.
func (m *Model) InitializeProblems(ctx context.Context, force bool, allowNone *bool) error {
	if m.stage < stageStructureInitialized {
		return cverrors.Operational("InitializeProblems called before InitializeBlankDataStructure")
	}
	if m.stage == stageProblemsInitialized && !force {
		return cverrors.Operational("InitializeProblems already run; pass force=true to rebuild")
	}

	allow := m.cfg.AllowNoneValues
	if allowNone != nil {
		allow = *allowNone
	}

	bindings := map[catalog.VariableID]*materialize.VariableBinding{}
	for _, tid := range m.reg.AllTables() {
		tableBindings, err := materialize.MaterializeTable(m.reg, tid)
		if err != nil {
			return err
		}
		table := m.reg.Table(tid)

		for _, vid := range m.reg.VariablesOf(tid) {
			vb := tableBindings[vid]
			bindings[vid] = vb

			if vb.IsTypeSplit() {
				for p, bt := range vb.PerProblem {
					if catalog.IsExogenous(table.TypeFor(p)) {
						if err := databind.PushExogenous(ctx, m.store, table.Name, bt, allow); err != nil {
							return err
						}
					}
				}
				continue
			}
			if catalog.IsExogenous(table.Type) {
				if err := databind.PushExogenous(ctx, m.store, table.Name, vb.Single, allow); err != nil {
					return err
				}
			}
		}
	}

	m.bindings = bindings
	m.stage = stageProblemsInitialized
	m.audit.Log(audit.TypeProblemsInitialized, -1, "", fmt.Sprintf("%d variables materialized", len(bindings)))
	return nil
}

// Run executes every scenario. integrated=true runs the block
// Gauss-Seidel coupling loop (internal/coupling.Loop) per scenario;
// integrated=false invokes every problem once per scenario with no
// endogenous exchange between subproblems, matching the non-coupled
// single-pass path.
func (m *Model) Run(ctx context.Context, solver solve.Solver, integrated bool, solverOpts map[string]any) error {
	if m.stage != stageProblemsInitialized {
		return cverrors.Operational("Run called before InitializeProblems")
	}
	if solver != nil {
		m.driver = solve.NewDriver(solver, m.cfg.SolveTimeout)
	}

	problems := m.reg.ProblemKeys()
	endoTables := m.endogenousTableNames()

	for scenario := 0; scenario < m.scenarios.Len(); scenario++ {
		runner := &modelRunner{m: m, scenario: scenario}

		if !integrated {
			for _, p := range problems {
				status, err := m.driver.Invoke(ctx, p, scenario, solverOpts)
				if err != nil {
					m.markFailed(scenario, err)
					return err
				}
				m.audit.Log(audit.TypeSolverInvoked, scenario, string(p), string(status))
				if status.IsOptimal() {
					if err := runner.PullEndogenous(ctx, p, scenario); err != nil {
						return err
					}
				}
			}
			m.status[scenarioKey(scenario)] = "completed"
			continue
		}

		loop := &coupling.Loop{
			Store: m.store,
			OpenSnapshot: func(fileName string) (store.Store, error) {
				return store.Open(m.storeDir, fileName, m.cfg.StoreBatchSize, 0)
			},
			Driver:           m.driver,
			Config:           m.cfg,
			Runner:           runner,
			Problems:         problems,
			EndogenousTables: endoTables,
			SolverOpts:       solverOpts,
		}

		outcome, err := loop.Run(ctx, scenario)
		if err != nil {
			m.markFailed(scenario, err)
			m.audit.Log(audit.TypeScenarioFailed, scenario, "", err.Error())
			return err
		}
		if !outcome.Converged {
			m.audit.Log(audit.TypeIterationCapHit, scenario, "", fmt.Sprintf("max diff %.6g after %d iterations", outcome.MaxDiff, outcome.Iterations))
		} else {
			m.audit.Log(audit.TypeScenarioConverged, scenario, "", fmt.Sprintf("%d iterations", outcome.Iterations))
		}

		// The coupling loop restores the pre-loop store on every exit,
		// including a successful convergence; the converged in-memory
		// tensor values are re-exported here as the separate final
		// export step.
		for _, p := range problems {
			if err := runner.PullEndogenous(ctx, p, scenario); err != nil {
				return err
			}
		}
		m.status[scenarioKey(scenario)] = "converged"
	}

	return nil
}

// LoadResultsToStore re-exports every endogenous binding's current
// tensor values to the store for the given scenarios (or every scenario
// if scenarios is nil), independent of a Run call; useful after
// recomputing tensors out of band.
func (m *Model) LoadResultsToStore(ctx context.Context, scenarios []int) error {
	if m.stage != stageProblemsInitialized {
		return cverrors.Operational("LoadResultsToStore called before InitializeProblems")
	}
	if scenarios == nil {
		for i := 0; i < m.scenarios.Len(); i++ {
			scenarios = append(scenarios, i)
		}
	}
	runner := &modelRunner{m: m}
	for _, scenario := range scenarios {
		runner.scenario = scenario
		for _, p := range m.reg.ProblemKeys() {
			if err := runner.PullEndogenous(ctx, p, scenario); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReinitializeStore closes the current store handle and reopens a fresh
// file at the same path, discarding all rows. InitializeProblems must be
// re-run afterward before Run.
func (m *Model) ReinitializeStore(ctx context.Context) error {
	if m.stage < stageStructureInitialized {
		return cverrors.Operational("ReinitializeStore called before InitializeBlankDataStructure")
	}
	if err := m.store.Close(); err != nil {
		return err
	}
	if err := m.store.Delete(m.storeFile); err != nil {
		return err
	}
	m.stage = stageCoordinatesLoaded
	return m.InitializeBlankDataStructure(ctx, m.storeDir, m.storeFile)
}

// CheckResults compares the live store against a reference store file
// (e.g. a known-good snapshot checked into a regression fixture),
// reporting the per-table max relative diff over every endogenous table
// and whether every one is within tolerance.
func (m *Model) CheckResults(ctx context.Context, referenceStoreFile string, tolerance float64) (bool, map[string]float64, error) {
	if m.stage != stageProblemsInitialized {
		return false, nil, cverrors.Operational("CheckResults called before InitializeProblems")
	}
	ref, err := store.Open(m.storeDir, referenceStoreFile, m.cfg.StoreBatchSize, 0)
	if err != nil {
		return false, nil, err
	}
	defer ref.Close()

	diffs, err := m.store.RelativeDiff(ctx, m.endogenousTableNames(), ref, m.cfg.RoundingDigitsRelativeDiff)
	if err != nil {
		return false, nil, err
	}
	ok := true
	for _, d := range diffs {
		if d > tolerance {
			ok = false
		}
	}
	return ok, diffs, nil
}

// Set returns the resolved item list of a named set, for caller
// inspection.
func (m *Model) Set(name string) ([]string, error) {
	sid, ok := m.reg.SetIDByKey(catalog.NormalizeKey(name))
	if !ok {
		return nil, cverrors.Settings("no such set %q", name)
	}
	return m.reg.Set(sid).Items, nil
}

// Variable returns the binding dataframe for a named variable,
// resolved for a given problem key (ignored for non-type-split
// variables).
func (m *Model) Variable(name string, problem catalog.ProblemKey) (*materialize.BindingTable, error) {
	if m.stage < stageProblemsInitialized {
		return nil, cverrors.Operational("Variable called before InitializeProblems")
	}
	vid, ok := m.reg.VariableIDByName(name)
	if !ok {
		return nil, cverrors.Settings("no such variable %q", name)
	}
	vb := m.bindings[vid]
	return vb.TableFor(problem), nil
}

// RunStatus reports the last recorded outcome per scenario, for
// internal/api's status route.
func (m *Model) RunStatus() map[string]string {
	out := make(map[string]string, len(m.status))
	for k, v := range m.status {
		out[k] = v
	}
	return out
}

func (m *Model) markFailed(scenario int, err error) {
	m.status[scenarioKey(scenario)] = "failed: " + err.Error()
}

func (m *Model) endogenousTableNames() []string {
	var out []string
	for _, tid := range m.reg.AllTables() {
		t := m.reg.Table(tid)
		if t.IsTypeSplit() {
			for _, p := range t.ProblemKeys() {
				if t.IsEndogenousFor(p) {
					out = append(out, t.Name)
					break
				}
			}
			continue
		}
		if t.Type == catalog.TypeEndogenous {
			out = append(out, t.Name)
		}
	}
	return out
}

func scenarioKey(scenario int) string { return fmt.Sprintf("scenario_%d", scenario) }

// modelRunner implements coupling.ProblemRunner over the Model's
// variable bindings, resolving which tables are exogenous/endogenous
// for each problem key on every call rather than precomputing a static
// plan, since a type-split table's effective type depends on problem.
type modelRunner struct {
	m        *Model
	scenario int
}

func (r *modelRunner) PushExogenous(ctx context.Context, problem catalog.ProblemKey, scenario int) error {
	for _, vid := range r.m.reg.AllVariables() {
		v := r.m.reg.Variable(vid)
		table := r.m.reg.Table(v.RelatedTable)
		t := table.TypeFor(problem)
		if !catalog.IsExogenous(t) {
			continue
		}
		vb := r.m.bindings[vid]
		bt := vb.TableFor(problem)
		if bt == nil {
			continue
		}
		if err := databind.PushExogenous(ctx, r.m.store, table.Name, bt, r.m.cfg.AllowNoneValues); err != nil {
			return err
		}
	}
	return nil
}

func (r *modelRunner) PullEndogenous(ctx context.Context, problem catalog.ProblemKey, scenario int) error {
	for _, vid := range r.m.reg.AllVariables() {
		v := r.m.reg.Variable(vid)
		table := r.m.reg.Table(v.RelatedTable)
		if !table.IsEndogenousFor(problem) {
			continue
		}
		vb := r.m.bindings[vid]
		bt := vb.TableFor(problem)
		if bt == nil {
			continue
		}
		if err := databind.PullEndogenous(ctx, r.m.store, table.Name, bt); err != nil {
			return err
		}
	}
	return nil
}
