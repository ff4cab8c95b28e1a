package coupling

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cvxlab/internal/catalog"
	"cvxlab/internal/config"
	"cvxlab/internal/solve"
	"cvxlab/internal/store"
)

type mockRunner struct {
	mock.Mock
}

func (m *mockRunner) PushExogenous(ctx context.Context, problem catalog.ProblemKey, scenario int) error {
	args := m.Called(ctx, problem, scenario)
	return args.Error(0)
}

func (m *mockRunner) PullEndogenous(ctx context.Context, problem catalog.ProblemKey, scenario int) error {
	args := m.Called(ctx, problem, scenario)
	return args.Error(0)
}

type stepSolver struct {
	mock.Mock
}

func (s *stepSolver) Solve(ctx context.Context, problem catalog.ProblemKey, scenario int, opts map[string]any) (solve.Status, error) {
	args := s.Called(ctx, problem, scenario, opts)
	return args.Get(0).(solve.Status), args.Error(1)
}

func openLoopStore(t *testing.T) (*store.SQLiteStore, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := store.Open(dir, "live.sqlite", 10, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.CreateTable(context.Background(), "x", []store.ColumnSpec{
		{Name: "R_Name", SQLType: "TEXT", Key: true},
		{Name: "value", SQLType: "REAL"},
	}, nil))
	return s, dir
}

func TestLoopConvergesWhenDiffBelowTolerance(t *testing.T) {
	ctx := context.Background()
	s, dir := openLoopStore(t)
	require.NoError(t, s.BulkUpsert(ctx, "x", []store.Row{{Coordinates: map[string]string{"R_Name": "r1"}, Value: func() *float64 { v := 1.0; return &v }()}}))

	solver := &stepSolver{}
	solver.On("Solve", mock.Anything, catalog.ProblemKey("P1"), 0, mock.Anything).Return(solve.StatusOptimal, nil)
	driver := solve.NewDriver(solver, 0)

	runner := &mockRunner{}
	runner.On("PushExogenous", mock.Anything, catalog.ProblemKey("P1"), 0).Return(nil)
	runner.On("PullEndogenous", mock.Anything, catalog.ProblemKey("P1"), 0).Return(nil)

	loop := &Loop{
		Store: s,
		OpenSnapshot: func(fileName string) (store.Store, error) {
			return store.Open(dir, fileName, 10, 0)
		},
		Driver:           driver,
		Config:           config.NewDefaultConfig(),
		Runner:           runner,
		Problems:         []catalog.ProblemKey{"P1"},
		EndogenousTables: []string{"x"},
	}

	outcome, err := loop.Run(ctx, 0)
	require.NoError(t, err)
	assert.True(t, outcome.Converged)
	assert.Equal(t, 2, outcome.Iterations)
}

func TestLoopRestoresStoreOnAbort(t *testing.T) {
	ctx := context.Background()
	s, dir := openLoopStore(t)
	require.NoError(t, s.BulkUpsert(ctx, "x", []store.Row{{Coordinates: map[string]string{"R_Name": "r1"}, Value: func() *float64 { v := 1.0; return &v }()}}))

	solver := &stepSolver{}
	solver.On("Solve", mock.Anything, catalog.ProblemKey("P1"), 0, mock.Anything).
		Return(solve.StatusOptimal, nil).Once()
	solver.On("Solve", mock.Anything, catalog.ProblemKey("P1"), 0, mock.Anything).
		Return(solve.StatusInfeasible, nil)
	driver := solve.NewDriver(solver, 0)

	runner := &mockRunner{}
	runner.On("PushExogenous", mock.Anything, catalog.ProblemKey("P1"), 0).Return(nil)
	runner.On("PullEndogenous", mock.Anything, catalog.ProblemKey("P1"), 0).Return(nil)

	cfg := config.NewDefaultConfig()
	cfg.MaxIterationsCoupling = 5

	loop := &Loop{
		Store: s,
		OpenSnapshot: func(fileName string) (store.Store, error) {
			return store.Open(dir, fileName, 10, 0)
		},
		Driver:           driver,
		Config:           cfg,
		Runner:           runner,
		Problems:         []catalog.ProblemKey{"P1"},
		EndogenousTables: []string{"x"},
	}

	_, err := loop.Run(ctx, 0)
	assert.Error(t, err)

	out, err := s.SelectWhere(ctx, "x", nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 1.0, *out[0].Value)
}
