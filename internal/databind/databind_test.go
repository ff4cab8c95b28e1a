package databind

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvxlab/internal/catalog"
	"cvxlab/internal/materialize"
	"cvxlab/internal/store"
	"cvxlab/internal/tensor"
)

func lpRegistry(t *testing.T) *catalog.Registry {
	t.Helper()
	src := &catalog.InMemorySource{
		Sets: map[string]catalog.RawSet{
			"R": {Items: []string{"r1", "r2"}},
			"P": {Items: []string{"p1", "p2", "p3"}},
		},
		Tables: map[string]catalog.RawTable{
			"a": {
				Type:        "exogenous",
				Coordinates: []string{"R", "P"},
				VariablesInfo: map[string]catalog.RawVariable{
					"a": {
						Coordinates: map[string]catalog.RawCoordinateSpec{
							"R": {Role: "rows"},
							"P": {Role: "cols"},
						},
					},
				},
			},
			"x": {
				Type:        "endogenous",
				Coordinates: []string{"R", "P"},
				VariablesInfo: map[string]catalog.RawVariable{
					"x": {
						Coordinates: map[string]catalog.RawCoordinateSpec{
							"R": {Role: "rows"},
							"P": {Role: "cols"},
						},
					},
				},
			},
		},
		ProblemsM: map[catalog.ProblemKey]catalog.RawProblem{},
	}
	reg := catalog.NewRegistry()
	require.NoError(t, reg.Load(src))
	require.NoError(t, reg.Validate())
	return reg
}

func setUpStore(t *testing.T, reg *catalog.Registry) store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(t.TempDir(), "test.sqlite", 100, 0)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	for _, sid := range reg.AllSets() {
		require.NoError(t, store.CreateSetTable(ctx, s, reg.Set(sid)))
	}
	for _, tid := range reg.AllTables() {
		require.NoError(t, store.CreateDataTable(ctx, s, reg.Table(tid)))
	}
	return s
}

func valuePtr(v float64) *float64 { return &v }

func TestPushExogenousAssignsTensorFromStoreRows(t *testing.T) {
	ctx := context.Background()
	reg := lpRegistry(t)
	s := setUpStore(t, reg)

	require.NoError(t, s.BulkUpsert(ctx, "a", []store.Row{
		{Coordinates: map[string]string{"R_Name": "r1", "P_Name": "p1"}, Value: valuePtr(1)},
		{Coordinates: map[string]string{"R_Name": "r1", "P_Name": "p2"}, Value: valuePtr(2)},
		{Coordinates: map[string]string{"R_Name": "r1", "P_Name": "p3"}, Value: valuePtr(3)},
		{Coordinates: map[string]string{"R_Name": "r2", "P_Name": "p1"}, Value: valuePtr(4)},
		{Coordinates: map[string]string{"R_Name": "r2", "P_Name": "p2"}, Value: valuePtr(5)},
		{Coordinates: map[string]string{"R_Name": "r2", "P_Name": "p3"}, Value: valuePtr(6)},
	}))

	vid, _ := reg.VariableIDByName("a")
	vb, err := materialize.MaterializeVariable(reg, vid)
	require.NoError(t, err)

	require.NoError(t, PushExogenous(ctx, s, "a", vb.Single, false))

	assert.Equal(t, [][]float64{{1, 2, 3}, {4, 5, 6}}, vb.Single.Rows[0].Tensor.ReadValue())
}

func TestPushExogenousRejectsNullWithoutAllowNoneOrBlankFill(t *testing.T) {
	ctx := context.Background()
	reg := lpRegistry(t)
	s := setUpStore(t, reg)

	require.NoError(t, s.BulkUpsert(ctx, "a", []store.Row{
		{Coordinates: map[string]string{"R_Name": "r1", "P_Name": "p1"}, Value: nil},
	}))

	vid, _ := reg.VariableIDByName("a")
	vb, err := materialize.MaterializeVariable(reg, vid)
	require.NoError(t, err)

	err = PushExogenous(ctx, s, "a", vb.Single, false)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "a")
}

func TestPushExogenousAggregatesNullRowsAndTruncatesAtFive(t *testing.T) {
	ctx := context.Background()
	reg := lpRegistry(t)
	s := setUpStore(t, reg)

	var rows []store.Row
	for _, r := range []string{"r1", "r2"} {
		for _, p := range []string{"p1", "p2", "p3"} {
			rows = append(rows, store.Row{Coordinates: map[string]string{"R_Name": r, "P_Name": p}, Value: nil})
		}
	}
	require.NoError(t, s.BulkUpsert(ctx, "a", rows))

	vid, _ := reg.VariableIDByName("a")
	vb, err := materialize.MaterializeVariable(reg, vid)
	require.NoError(t, err)

	err = PushExogenous(ctx, s, "a", vb.Single, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "total 6")
}

func TestPushExogenousAllowsNullWhenAllowNoneIsSet(t *testing.T) {
	ctx := context.Background()
	reg := lpRegistry(t)
	s := setUpStore(t, reg)

	require.NoError(t, s.BulkUpsert(ctx, "a", []store.Row{
		{Coordinates: map[string]string{"R_Name": "r1", "P_Name": "p1"}, Value: nil},
	}))

	vid, _ := reg.VariableIDByName("a")
	vb, err := materialize.MaterializeVariable(reg, vid)
	require.NoError(t, err)

	assert.NoError(t, PushExogenous(ctx, s, "a", vb.Single, true))
}

func TestPullEndogenousWritesTensorValuesToStore(t *testing.T) {
	ctx := context.Background()
	reg := lpRegistry(t)
	s := setUpStore(t, reg)

	vid, _ := reg.VariableIDByName("x")
	vb, err := materialize.MaterializeVariable(reg, vid)
	require.NoError(t, err)

	// Binding rows of an endogenous variable are read-only views, so the
	// values are set on a root decision tensor and viewed through a slice.
	root := tensor.NewDecision(2, 3, false)
	require.NoError(t, root.AssignValue([][]float64{{7, 8, 9}, {10, 11, 12}}))
	vb.Single.Rows[0].Tensor = root.SliceRows([]int{0, 1})
	require.NoError(t, PullEndogenous(ctx, s, "x", vb.Single))

	out, err := s.SelectWhere(ctx, "x", map[string]string{"R_Name": "r1", "P_Name": "p2"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, 8.0, *out[0].Value)
}
