package coordinate

import (
	"cvxlab/internal/catalog"
	"cvxlab/internal/cverrors"
)

// ResolvedVariable is the rows/cols/intra/inter partition of one
// Variable's table coordinates, each already reduced to its filtered
// item list, plus the deterministic row-index order (Hierarchy) used
// downstream: inter-problem sets first, then intra-problem sets.
type ResolvedVariable struct {
	VariableID catalog.VariableID

	RowsSet   catalog.SetID
	RowItems  []string // nil if the variable has no row axis (length-1 axis)
	ColsSet   catalog.SetID
	ColItems  []string // nil if the variable has no column axis

	Intra []DimBinding
	Inter []DimBinding

	// Hierarchy lists Intra and Inter dimensions in sets_parsing_hierarchy
	// order (inter first, intra second); it is the row index order of the
	// variable's binding dataframe built downstream by the Problem
	// Materializer.
	Hierarchy []DimBinding
}

// DimBinding names one non-shape coordinate dimension of a variable and
// its resolved (filtered) item list.
type DimBinding struct {
	SetID SetID
	Key   string
	Items []string
}

type SetID = catalog.SetID

// ResolveVariable computes the rows/cols/intra/inter partition for one
// variable and appends a Settings error to agg if, after filtering, any
// declared dimension resolves to an empty item list.
func ResolveVariable(reg *catalog.Registry, vid catalog.VariableID, agg *cverrors.Aggregate) ResolvedVariable {
	v := reg.Variable(vid)
	table := reg.Table(v.RelatedTable)

	out := ResolvedVariable{VariableID: vid, RowsSet: catalog.NoSet, ColsSet: catalog.NoSet}

	for _, coordKey := range table.Coordinates {
		nk := catalog.NormalizeKey(coordKey)
		setID, ok := reg.SetIDByKey(nk)
		if !ok {
			continue // already reported by catalog.Validate's check 1
		}
		set := reg.Set(setID)
		cs := v.Spec.Coordinates[nk]
		items := set.FilterItems(cs.Filter)

		switch cs.Role {
		case catalog.RoleRows:
			out.RowsSet = setID
			out.RowItems = items
			if len(items) == 0 {
				agg.Addf(cverrors.KindSettings, "variable %q: row dimension %q is empty after filtering", v.Name, nk)
			}
		case catalog.RoleCols:
			out.ColsSet = setID
			out.ColItems = items
			if len(items) == 0 {
				agg.Addf(cverrors.KindSettings, "variable %q: column dimension %q is empty after filtering", v.Name, nk)
			}
		default:
			binding := DimBinding{SetID: setID, Key: nk, Items: items}
			if len(items) == 0 {
				agg.Addf(cverrors.KindSettings, "variable %q: dimension %q is empty after filtering", v.Name, nk)
			}
			if set.SplitProblem {
				out.Inter = append(out.Inter, binding)
			} else {
				out.Intra = append(out.Intra, binding)
			}
		}
	}

	out.Hierarchy = make([]DimBinding, 0, len(out.Inter)+len(out.Intra))
	out.Hierarchy = append(out.Hierarchy, out.Inter...)
	out.Hierarchy = append(out.Hierarchy, out.Intra...)

	return out
}

// ShapeSize returns (|rows|, |cols|) for a resolved variable. An axis
// with no declared set has length 1.
func (rv *ResolvedVariable) ShapeSize() (int, int) {
	rows := 1
	if rv.RowsSet.Valid() {
		rows = len(rv.RowItems)
	}
	cols := 1
	if rv.ColsSet.Valid() {
		cols = len(rv.ColItems)
	}
	return rows, cols
}

// IsSquare reports whether the variable's row set equals its column set,
// which downstream constant generators use to decide eligibility for
// e.g. the identity generator.
func (rv *ResolvedVariable) IsSquare() bool {
	return rv.RowsSet.Valid() && rv.RowsSet == rv.ColsSet
}
