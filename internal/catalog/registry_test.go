package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalSource() *InMemorySource {
	return &InMemorySource{
		Sets: map[string]RawSet{
			"R": {Items: []string{"r1", "r2"}},
			"P": {Items: []string{"p1", "p2", "p3"}},
		},
		Tables: map[string]RawTable{
			"a": {
				Type:        "exogenous",
				Coordinates: []string{"R", "P"},
				VariablesInfo: map[string]RawVariable{
					"a": {
						Coordinates: map[string]RawCoordinateSpec{
							"R": {Role: "rows"},
							"P": {Role: "cols"},
						},
					},
				},
			},
		},
		ProblemsM: map[ProblemKey]RawProblem{},
	}
}

func TestLoadAssignsHeadersAndForeignKeys(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Load(minimalSource()))

	tid, ok := reg.TableIDByName("a")
	require.True(t, ok)
	table := reg.Table(tid)

	require.Len(t, table.ForeignKeys, 2)
	assert.Equal(t, "_set_R", table.ForeignKeys[0].RefTable)
	assert.Equal(t, "name", table.ForeignKeys[0].RefColumn)
	assert.Equal(t, "R_Name", table.ForeignKeys[0].Column)
}

func TestLoadRejectsCopyFromCycle(t *testing.T) {
	reg := NewRegistry()
	src := &InMemorySource{
		Sets: map[string]RawSet{
			"A": {CopyFrom: "B"},
			"B": {CopyFrom: "A"},
		},
		Tables:    map[string]RawTable{},
		ProblemsM: map[ProblemKey]RawProblem{},
	}
	require.NoError(t, reg.Load(src))

	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "copy_from cycle")
}

func TestValidateRejectsUnknownGenerator(t *testing.T) {
	reg := NewRegistry()
	src := &InMemorySource{
		Sets: map[string]RawSet{"R": {Items: []string{"r1", "r2"}}},
		Tables: map[string]RawTable{
			"c": {
				Type:        "constant",
				Coordinates: []string{"R"},
				VariablesInfo: map[string]RawVariable{
					"c": {
						Value: "not_a_real_generator",
						Coordinates: map[string]RawCoordinateSpec{
							"R": {Role: "rows"},
						},
					},
				},
			},
		},
		ProblemsM: map[ProblemKey]RawProblem{},
	}
	require.NoError(t, reg.Load(src))
	err := reg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown constant generator")
}

func TestCopyFromInheritsItemsAndFilters(t *testing.T) {
	reg := NewRegistry()
	src := &InMemorySource{
		Sets: map[string]RawSet{
			"Base":  {Items: []string{"x1", "x2"}, Filters: map[string][]string{"odd": {"x1"}}},
			"Alias": {CopyFrom: "Base"},
		},
		Tables:    map[string]RawTable{},
		ProblemsM: map[ProblemKey]RawProblem{},
	}
	require.NoError(t, reg.Load(src))
	require.NoError(t, reg.Validate())

	sid, ok := reg.SetIDByKey("alias")
	require.True(t, ok)
	s := reg.Set(sid)
	assert.Equal(t, []string{"x1", "x2"}, s.Items)
	assert.Equal(t, []string{"x1"}, s.Filters["odd"])
}
