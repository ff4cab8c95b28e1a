package coordinate

import (
	"cvxlab/internal/catalog"
)

// DataFrame is a coordinates_dataframe: one row per hierarchy (non-shape)
// coordinate tuple, with values naming the item selected on that row for
// each coordinate key, in sets_parsing_hierarchy order (inter-problem
// sets first, then intra-problem sets) to line up with
// ResolvedVariable.Hierarchy.
type DataFrame struct {
	Coordinates []string // set keys, in hierarchy order
	Rows        [][]string

	index map[string]int // lazily built by IndexOf
}

// Len reports the number of coordinate tuples.
func (d *DataFrame) Len() int { return len(d.Rows) }

// IndexOf returns the row position of a hierarchy label tuple (in
// Coordinates order), or false if the tuple is not present. Used to map
// one variable's own hierarchy combination back onto its absolute
// position within the shared table-level join, since a variable may
// filter a hierarchy dimension down to a subset of the table-wide union.
func (d *DataFrame) IndexOf(labels []string) (int, bool) {
	if d.index == nil {
		d.index = make(map[string]int, len(d.Rows))
		for i, row := range d.Rows {
			d.index[tupleKey(row)] = i
		}
	}
	idx, ok := d.index[tupleKey(labels)]
	return idx, ok
}

// CoordinatesDataFrame enumerates the Cartesian product of a table's
// hierarchy (non-shape) coordinate sets — every table coordinate no
// variable rooted on the table assigns a rows/cols role to — restricted
// per-dimension to the union of filters any such variable declares,
// deduplicated preserving first-seen order. If no variable rooted on the
// table restricts a dimension, that dimension is unfiltered (its full
// item list is used).
//
// This is the join step that feeds the table-level shared decision
// tensor: every endogenous (or type-split endogenous) variable rooted on
// the same table reads and writes the same underlying tensor, sliced by
// its own row position in this dataframe, rather than each allocating a
// private one.
func CoordinatesDataFrame(reg *catalog.Registry, tableID catalog.TableID) (*DataFrame, error) {
	table := reg.Table(tableID)
	varIDs := reg.VariablesOf(tableID)

	shapeDims := map[string]bool{}
	for _, vid := range varIDs {
		v := reg.Variable(vid)
		for key, cs := range v.Spec.Coordinates {
			if cs.Role == catalog.RoleRows || cs.Role == catalog.RoleCols {
				shapeDims[catalog.NormalizeKey(key)] = true
			}
		}
	}

	var inter, intra []string
	for _, coordKey := range table.Coordinates {
		nk := catalog.NormalizeKey(coordKey)
		if shapeDims[nk] {
			continue
		}
		setID, ok := reg.SetIDByKey(coordKey)
		if !ok {
			return nil, errSetNotFound(coordKey)
		}
		if reg.Set(setID).SplitProblem {
			inter = append(inter, coordKey)
		} else {
			intra = append(intra, coordKey)
		}
	}
	hierarchyCoords := append(append([]string(nil), inter...), intra...)

	axes := make([][]string, len(hierarchyCoords))
	for i, coordKey := range hierarchyCoords {
		setID, _ := reg.SetIDByKey(coordKey)
		axes[i] = dimensionItems(reg, setID, coordKey, varIDs)
	}

	combos, err := MaterializeCombos(axes, 0)
	if err != nil {
		return nil, err
	}
	// A table with no hierarchy dimensions still has exactly one row: the
	// whole shared tensor.
	if len(hierarchyCoords) == 0 {
		combos = []Combo{{}}
	}

	seen := map[string]bool{}
	rows := make([][]string, 0, len(combos))
	for _, c := range combos {
		key := tupleKey(c.Labels)
		if seen[key] {
			continue
		}
		seen[key] = true
		rows = append(rows, c.Labels)
	}

	return &DataFrame{Coordinates: hierarchyCoords, Rows: rows}, nil
}

// dimensionItems computes the item list eligible for one coordinate
// dimension of a table, given every variable rooted on it. A variable
// that does not declare coordKey, or declares it with no filter, makes
// the dimension unfiltered (full item list) regardless of what other
// variables declare: the union of an unfiltered set with anything is the
// full set.
func dimensionItems(reg *catalog.Registry, setID catalog.SetID, coordKey string, varIDs []catalog.VariableID) []string {
	set := reg.Set(setID)
	nk := catalog.NormalizeKey(coordKey)

	anyFiltersDeclared := false
	unfiltered := false
	union := map[string]bool{}
	var order []string

	for _, vid := range varIDs {
		v := reg.Variable(vid)
		cs, declared := v.Spec.Coordinates[nk]
		if !declared || cs.Filter == "" {
			unfiltered = true
			continue
		}
		anyFiltersDeclared = true
		for _, item := range set.FilterItems(cs.Filter) {
			if !union[item] {
				union[item] = true
				order = append(order, item)
			}
		}
	}

	if unfiltered || !anyFiltersDeclared || len(varIDs) == 0 {
		return set.Items
	}
	return order
}

func tupleKey(labels []string) string {
	// Tuples are short (one item per coordinate); a simple separator join
	// is sufficient and avoids pulling in a hashing dependency for what is
	// an in-memory dedup key.
	out := make([]byte, 0, 32)
	for i, l := range labels {
		if i > 0 {
			out = append(out, '\x1f')
		}
		out = append(out, l...)
	}
	return string(out)
}

func errSetNotFound(key string) error {
	return &coordError{msg: "coordinate set not registered: " + key}
}

type coordError struct{ msg string }

func (e *coordError) Error() string { return e.msg }
