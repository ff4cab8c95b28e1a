package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionAssignAndReadRoundTrips(t *testing.T) {
	d := NewDecision(2, 3, false)
	matrix := [][]float64{{1, 2, 3}, {4, 5, 6}}
	require.NoError(t, d.AssignValue(matrix))
	assert.Equal(t, matrix, d.ReadValue())
}

func TestConstantRejectsAssignValue(t *testing.T) {
	c, err := NewConstant([][]float64{{1, 2}, {3, 4}})
	require.NoError(t, err)
	err = c.AssignValue([][]float64{{0, 0}, {0, 0}})
	assert.Error(t, err)
}

func TestNewConstantRejectsRaggedRows(t *testing.T) {
	_, err := NewConstant([][]float64{{1, 2}, {3}})
	assert.Error(t, err)
}

func TestSliceRowsViewsParentData(t *testing.T) {
	table := NewDecision(4, 2, false)
	require.NoError(t, table.AssignValue([][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}))

	view := table.SliceRows([]int{1, 3})
	rows, cols := view.Shape()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, [][]float64{{2, 2}, {4, 4}}, view.ReadValue())
}

func TestSliceRowsOfASliceAddressesRootParentDirectly(t *testing.T) {
	table := NewDecision(4, 1, false)
	require.NoError(t, table.AssignValue([][]float64{{10}, {20}, {30}, {40}}))

	mid := table.SliceRows([]int{1, 2, 3})
	// A slice-of-a-slice never chains through mid: its row indexes are
	// resolved against the table-level root, not against mid's own order.
	leaf := mid.SliceRows([]int{0, 2})

	assert.Equal(t, [][]float64{{10}, {30}}, leaf.ReadValue())
}

func TestSliceRowsCannotBeAssigned(t *testing.T) {
	table := NewDecision(2, 1, false)
	view := table.SliceRows([]int{0})
	err := view.AssignValue([][]float64{{1}})
	assert.Error(t, err)
}

func TestAssignValueRejectsShapeMismatch(t *testing.T) {
	d := NewDecision(2, 2, false)
	err := d.AssignValue([][]float64{{1, 2, 3}, {4, 5, 6}})
	assert.Error(t, err)
}
