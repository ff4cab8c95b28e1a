// Package materialize is the Problem Materializer: for every variable it
// builds the per-scenario dataframe mapping coordinate combinations to
// ConvexTensor slots, plus a filter dictionary identifying which store
// rows feed each slot.
package materialize

import (
	"cvxlab/internal/catalog"
	"cvxlab/internal/tensor"
)

// BindingRow is one row of a variable's binding dataframe: the ordered
// hierarchy labels that identify it (sets_parsing_hierarchy order), the
// tensor slot it is bound to, and the store filter dictionary that
// selects its backing rows.
type BindingRow struct {
	HierarchyLabels []string
	Tensor          tensor.ConvexTensor
	Filter          map[string]string
}

// BindingTable is one variable's binding dataframe. RowColumn/ColColumn
// name the store columns carrying the variable's row/column shape
// dimensions ("" if that axis does not exist, i.e. the variable is a
// vector or scalar on that axis); RowsOrder/ColsOrder are the declared
// item orders a pulled or pushed matrix is reindexed to.
type BindingTable struct {
	Rows      []BindingRow
	RowColumn string
	ColColumn string
	RowsOrder []string
	ColsOrder []string
	BlankFill *float64
}

// VariableBinding is a tagged union: a variable is bound either as a
// Single table-wide dataframe, or as one dataframe PerProblem for a
// type-split variable. Exactly one of the two fields is non-nil.
type VariableBinding struct {
	Single     *BindingTable
	PerProblem map[catalog.ProblemKey]*BindingTable
}

// IsTypeSplit reports which arm of the union is populated.
func (b *VariableBinding) IsTypeSplit() bool { return b.PerProblem != nil }

// TableFor returns the binding dataframe effective for a given problem
// key (ignored when Single is populated).
func (b *VariableBinding) TableFor(p catalog.ProblemKey) *BindingTable {
	if b.Single != nil {
		return b.Single
	}
	return b.PerProblem[p]
}
