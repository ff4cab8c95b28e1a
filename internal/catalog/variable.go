package catalog

// DimRole marks a coordinate as the variable's row axis or column axis.
// A coordinate with no DimRole is either intra- or inter-problem,
// depending on whether its underlying Set is split_problem.
type DimRole string

const (
	RoleNone DimRole = ""
	RoleRows DimRole = "rows"
	RoleCols DimRole = "cols"
)

// CoordinateSpec is the per-coordinate declaration for one variable: an
// optional shape role (rows/cols) and an optional named filter restricting
// which items of that set's dimension contribute to the variable.
type CoordinateSpec struct {
	Role   DimRole
	Filter string // names a Set.Filters key; "" means unfiltered
}

// VariableSpec is the raw, as-ingested declaration of a Variable before
// coordinate resolution: one "variables_info" entry for a table.
type VariableSpec struct {
	Symbol      string
	Value       string             // constant-generator tag; constants only
	BlankFill   *float64           // exogenous default fill; exogenous only
	Coordinates map[string]CoordinateSpec // set key -> declaration
}

// Variable is a typed view over exactly one DataTable. Rows/Cols/Intra/
// Inter are the resolved coordinate-role partition; they are populated
// by the coordinate package, not the Registry.
type Variable struct {
	Name         string
	Symbol       string
	RelatedTable TableID
	Spec         VariableSpec

	// Resolved by the Coordinate Engine (internal/coordinate).
	RowsSet  SetID // NoSet if the variable has no row axis (length-1 axis)
	ColsSet  SetID // NoSet if the variable has no column axis
	Intra    []SetID
	Inter    []SetID
}

// TypeFor resolves this variable's type by delegating to its table (types
// live on the table, not the variable, except that a type-split table may
// answer differently per problem key).
func (v *Variable) TypeFor(p ProblemKey, reg *Registry) TableType {
	return reg.Table(v.RelatedTable).TypeFor(p)
}

// IsConstant/IsExogenous report the variable's (non-type-split) kind
// against a resolved TableType, used once a ProblemKey context has
// already narrowed a type-split table to a concrete type.
func IsConstant(t TableType) bool   { return t == TypeConstant }
func IsExogenous(t TableType) bool  { return t == TypeExogenous }
func IsEndogenous(t TableType) bool { return t == TypeEndogenous }
