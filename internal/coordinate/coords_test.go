package coordinate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvxlab/internal/catalog"
)

func twoVariableTableSource() *catalog.InMemorySource {
	return &catalog.InMemorySource{
		Sets: map[string]catalog.RawSet{
			"R": {Items: []string{"r1", "r2"}},
			"G": {
				Items: []string{"g1", "g2", "g3"},
				Filters: map[string][]string{
					"peak":    {"g1", "g2"},
					"offpeak": {"g2", "g3"},
				},
			},
		},
		Tables: map[string]catalog.RawTable{
			"y": {
				Type:        "endogenous",
				Coordinates: []string{"R", "G"},
				VariablesInfo: map[string]catalog.RawVariable{
					"y_peak": {
						Coordinates: map[string]catalog.RawCoordinateSpec{
							"R": {Role: "rows"},
							"G": {Filter: "peak"},
						},
					},
					"y_offpeak": {
						Coordinates: map[string]catalog.RawCoordinateSpec{
							"R": {Role: "rows"},
							"G": {Filter: "offpeak"},
						},
					},
				},
			},
		},
		ProblemsM: map[catalog.ProblemKey]catalog.RawProblem{"P1": {}},
	}
}

func TestCoordinatesDataFrameExcludesShapeDimsAndUnionsFilters(t *testing.T) {
	reg := loadedRegistry(t, twoVariableTableSource())
	tid, ok := reg.TableIDByName("y")
	require.True(t, ok)

	df, err := CoordinatesDataFrame(reg, tid)
	require.NoError(t, err)

	assert.Equal(t, []string{"G"}, df.Coordinates)
	var items []string
	for _, row := range df.Rows {
		items = append(items, row[0])
	}
	// Variables are visited in name order ("y_offpeak" before "y_peak"),
	// so the union is seeded by offpeak's items (g2, g3) before peak
	// contributes its own unseen item (g1).
	assert.Equal(t, []string{"g2", "g3", "g1"}, items)
}

func TestCoordinatesDataFrameIndexOfFindsAndMissesTuples(t *testing.T) {
	reg := loadedRegistry(t, twoVariableTableSource())
	tid, _ := reg.TableIDByName("y")

	df, err := CoordinatesDataFrame(reg, tid)
	require.NoError(t, err)

	idx, ok := df.IndexOf([]string{"g2"})
	require.True(t, ok)
	assert.Equal(t, "g2", df.Rows[idx][0])

	_, ok = df.IndexOf([]string{"nope"})
	assert.False(t, ok)
}

func TestCoordinatesDataFrameWithNoHierarchyDimsHasOneRow(t *testing.T) {
	reg := loadedRegistry(t, minimalLPSource())
	tid, _ := reg.TableIDByName("a")

	df, err := CoordinatesDataFrame(reg, tid)
	require.NoError(t, err)
	assert.Equal(t, 1, df.Len())
	assert.Empty(t, df.Coordinates)
}
