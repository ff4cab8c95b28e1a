package catalog

// SetupSource is the source-agnostic ingestion contract: three raw
// mappings produced by a collaborator that is out of scope here (a
// spreadsheet or YAML loader). The Registry consumes whatever implements
// this interface.
type SetupSource interface {
	StructureSets() (map[string]RawSet, error)
	StructureVariables() (map[string]RawTable, error)
	Problems() (map[ProblemKey]RawProblem, error)
}

// RawSet is the as-ingested shape of one structure_sets entry.
type RawSet struct {
	Description  string
	SplitProblem bool
	CopyFrom     string
	Items        []string
	Filters      map[string][]string
	Aggregations []string
}

// RawTable is the as-ingested shape of one structure_variables entry.
type RawTable struct {
	Description   string
	Type          string                       // set XOR TypeByProblem
	TypeByProblem map[ProblemKey]string
	Integer       bool
	Coordinates   []string
	VariablesInfo map[string]RawVariable
}

// RawVariable is the as-ingested shape of one variables_info entry.
type RawVariable struct {
	Symbol      string
	Value       string
	BlankFill   *float64
	Coordinates map[string]RawCoordinateSpec
}

// RawCoordinateSpec is the as-ingested per-coordinate declaration.
type RawCoordinateSpec struct {
	Role   string // "rows", "cols", or ""
	Filter string
}

// RawProblem is the as-ingested shape of one problem entry. Expressions
// and Objective are opaque to the core: they are consumed by the
// out-of-scope symbolic-expression parser/validator, not by the engine.
type RawProblem struct {
	Description string
	Objective   any
	Expressions []any
}

// InMemorySource is a trivial SetupSource backed by already-parsed Go
// values, useful for tests and for callers that build the model
// programmatically instead of from files.
type InMemorySource struct {
	Sets      map[string]RawSet
	Tables    map[string]RawTable
	ProblemsM map[ProblemKey]RawProblem
}

func (s *InMemorySource) StructureSets() (map[string]RawSet, error)       { return s.Sets, nil }
func (s *InMemorySource) StructureVariables() (map[string]RawTable, error) { return s.Tables, nil }
func (s *InMemorySource) Problems() (map[ProblemKey]RawProblem, error)    { return s.ProblemsM, nil }
