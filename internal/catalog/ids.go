package catalog

// SetID, TableID and VariableID are small integer handles into the
// Registry's arena vectors. Cross-references between variables, tables and
// sets are indices, not pointers, which is what keeps the catalog free of
// cycles: dependency only ever flows variable -> table -> set.
type SetID int
type TableID int
type VariableID int

// ProblemKey names a symbolic subproblem, e.g. "P1". Type-split tables and
// variables are keyed by ProblemKey.
type ProblemKey string

const invalidID = -1

// Valid reports whether id refers to an entry in the arena (as opposed to
// the -1 unset sentinel below; the zero value 0 is a valid handle).
func (id SetID) Valid() bool      { return id != invalidID }
func (id TableID) Valid() bool    { return id != invalidID }
func (id VariableID) Valid() bool { return id != invalidID }

// NoSet, NoTable and NoVariable are the sentinel "unset" handles.
const (
	NoSet      SetID      = invalidID
	NoTable    TableID    = invalidID
	NoVariable VariableID = invalidID
)
