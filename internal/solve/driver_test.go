package solve

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cvxlab/internal/catalog"
)

type mockSolver struct {
	mock.Mock
}

func (m *mockSolver) Solve(ctx context.Context, problem catalog.ProblemKey, scenario int, opts map[string]any) (Status, error) {
	args := m.Called(ctx, problem, scenario, opts)
	return args.Get(0).(Status), args.Error(1)
}

func TestInvokeRecordsStatus(t *testing.T) {
	solver := &mockSolver{}
	solver.On("Solve", mock.Anything, catalog.ProblemKey("P1"), 0, mock.Anything).Return(StatusOptimal, nil)

	d := NewDriver(solver, 0)
	status, err := d.Invoke(context.Background(), "P1", 0, nil)
	require.NoError(t, err)
	assert.True(t, status.IsOptimal())

	got, ok := d.StatusOf("P1", 0)
	require.True(t, ok)
	assert.Equal(t, StatusOptimal, got)
}

func TestInvokeWrapsSolverError(t *testing.T) {
	solver := &mockSolver{}
	solver.On("Solve", mock.Anything, catalog.ProblemKey("P1"), 0, mock.Anything).Return(StatusError, errors.New("boom"))

	d := NewDriver(solver, 0)
	status, err := d.Invoke(context.Background(), "P1", 0, nil)
	assert.Error(t, err)
	assert.Equal(t, StatusError, status)

	got, ok := d.StatusOf("P1", 0)
	require.True(t, ok)
	assert.Equal(t, StatusError, got)
}

func TestInvokeRecordsNonOptimalWithoutError(t *testing.T) {
	solver := &mockSolver{}
	solver.On("Solve", mock.Anything, catalog.ProblemKey("P1"), 1, mock.Anything).Return(StatusInfeasible, nil)

	d := NewDriver(solver, 0)
	status, err := d.Invoke(context.Background(), "P1", 1, nil)
	require.NoError(t, err)
	assert.False(t, status.IsOptimal())
}
