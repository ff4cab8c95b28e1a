package catalog

// TableType classifies a DataTable's relationship to the solver: a
// constant is computed once at build time, an exogenous table is fed from
// the store before each solve, an endogenous table is written back by the
// Solver Driver after each solve.
type TableType string

const (
	TypeConstant   TableType = "constant"
	TypeExogenous  TableType = "exogenous"
	TypeEndogenous TableType = "endogenous"
)

// ColumnHeader describes one column the Table Store Adapter materializes
// for a set or DataTable: its store column name and SQL column type.
type ColumnHeader struct {
	SetKey   string
	Column   string
	SQLType  string
}

// ForeignKey references a coordinate column back to the set table's name
// column, enforced by the Table Store Adapter at write time.
type ForeignKey struct {
	Column     string
	RefTable   string
	RefColumn  string
}

// DataTable is a relational tensor keyed by an ordered coordinate tuple
// drawn from set keys. A table is either uniformly typed, or
// "type-split": TypeByProblem holds a type per ProblemKey and Type is
// left empty.
type DataTable struct {
	Name        string
	Description string
	Type        TableType            // empty if TypeByProblem is set
	TypeByProblem map[ProblemKey]TableType
	Integer     bool
	Coordinates []string // ordered set keys
	VariablesInfo map[string]VariableSpec

	// Derived, filled in by the Index/Registry during completion.
	TableHeaders       []ColumnHeader // leading id, one per coordinate in Coordinates order, trailing values
	CoordinatesHeaders []ColumnHeader // subset of TableHeaders mapping coords to name columns
	ForeignKeys        []ForeignKey
}

// IsTypeSplit reports whether this table's type varies by problem key.
func (t *DataTable) IsTypeSplit() bool { return len(t.TypeByProblem) > 0 }

// TypeFor returns the table's type, resolving the per-problem mapping for
// type-split tables.
func (t *DataTable) TypeFor(p ProblemKey) TableType {
	if t.IsTypeSplit() {
		return t.TypeByProblem[p]
	}
	return t.Type
}

// IsEndogenousFor reports whether the table is endogenous (or type-split
// and endogenous) for problem key p. Non-type-split tables ignore p.
func (t *DataTable) IsEndogenousFor(p ProblemKey) bool {
	return t.TypeFor(p) == TypeEndogenous
}

// ProblemKeys returns the declared problem keys of a type-split table, or
// nil for a uniformly typed table.
func (t *DataTable) ProblemKeys() []ProblemKey {
	if !t.IsTypeSplit() {
		return nil
	}
	keys := make([]ProblemKey, 0, len(t.TypeByProblem))
	for k := range t.TypeByProblem {
		keys = append(keys, k)
	}
	return keys
}
