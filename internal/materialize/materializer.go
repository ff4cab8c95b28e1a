package materialize

import (
	"cvxlab/internal/catalog"
	"cvxlab/internal/coordinate"
	"cvxlab/internal/cverrors"
	"cvxlab/internal/tensor"
)

// MaterializeVariable builds one variable's binding dataframe(s) by
// materializing its whole owning table and returning this variable's
// share of the result.
func MaterializeVariable(reg *catalog.Registry, vid catalog.VariableID) (*VariableBinding, error) {
	v := reg.Variable(vid)
	bindings, err := MaterializeTable(reg, v.RelatedTable)
	if err != nil {
		return nil, err
	}
	return bindings[vid], nil
}

// MaterializeTable builds the binding dataframe(s) for every variable
// rooted on table. An endogenous (or type-split endogenous) table
// allocates a single decision tensor per problem key shared by every
// variable rooted on it — sized by the table-level hierarchy join
// (coordinate.CoordinatesDataFrame) over the union of those variables'
// own coordinate filters — rather than one private tensor per variable:
// two variables rooted on the same table are two named views over the
// same underlying decision cells, so they must read and write the same
// tensor. Exogenous variables still each get their own parameter
// tensors, and constants their own generated values, since those are not
// shared state.
func MaterializeTable(reg *catalog.Registry, tableID catalog.TableID) (map[catalog.VariableID]*VariableBinding, error) {
	table := reg.Table(tableID)
	varIDs := reg.VariablesOf(tableID)
	coordCols := columnForSetID(reg, table)

	df, err := coordinate.CoordinatesDataFrame(reg, tableID)
	if err != nil {
		return nil, err
	}

	resolved := make(map[catalog.VariableID]coordinate.ResolvedVariable, len(varIDs))
	var agg cverrors.Aggregate
	for _, vid := range varIDs {
		resolved[vid] = coordinate.ResolveVariable(reg, vid, &agg)
	}
	if err := agg.Err(); err != nil {
		return nil, err
	}

	rows, cols, err := tableShape(table, varIDs, resolved)
	if err != nil {
		return nil, err
	}

	out := make(map[catalog.VariableID]*VariableBinding, len(varIDs))

	if table.IsTypeSplit() {
		shared := map[catalog.ProblemKey]tensor.ConvexTensor{}
		for _, p := range table.ProblemKeys() {
			if catalog.IsEndogenous(table.TypeByProblem[p]) {
				shared[p] = tensor.NewDecision(len(df.Rows)*rows, cols, table.Integer)
			}
		}
		for _, vid := range varIDs {
			v := reg.Variable(vid)
			r := resolved[vid]
			perProblem := map[catalog.ProblemKey]*BindingTable{}
			for _, p := range table.ProblemKeys() {
				t := v.TypeFor(p, reg)
				bt, err := buildBindingTable(v, &r, rows, cols, t, coordCols, df, shared[p])
				if err != nil {
					return nil, err
				}
				perProblem[p] = bt
			}
			out[vid] = &VariableBinding{PerProblem: perProblem}
		}
		return out, nil
	}

	var shared tensor.ConvexTensor
	if catalog.IsEndogenous(table.Type) {
		shared = tensor.NewDecision(len(df.Rows)*rows, cols, table.Integer)
	}
	for _, vid := range varIDs {
		v := reg.Variable(vid)
		r := resolved[vid]
		t := v.TypeFor("", reg)
		bt, err := buildBindingTable(v, &r, rows, cols, t, coordCols, df, shared)
		if err != nil {
			return nil, err
		}
		out[vid] = &VariableBinding{Single: bt}
	}
	return out, nil
}

// tableShape picks the row/column shape every variable rooted on table
// must agree on: the shared decision tensor has one physical shape, so
// sibling variables cannot disagree on rows/cols.
func tableShape(
	table *catalog.DataTable,
	varIDs []catalog.VariableID,
	resolved map[catalog.VariableID]coordinate.ResolvedVariable,
) (int, int, error) {
	rows, cols := 1, 1
	set := false
	for _, vid := range varIDs {
		r := resolved[vid]
		vr, vc := r.ShapeSize()
		if !set {
			rows, cols, set = vr, vc, true
			continue
		}
		if vr != rows || vc != cols {
			return 0, 0, cverrors.Settings(
				"table %q: variables declare inconsistent row/column shapes (%dx%d vs %dx%d)",
				table.Name, rows, cols, vr, vc)
		}
	}
	return rows, cols, nil
}

func buildBindingTable(
	v *catalog.Variable,
	resolved *coordinate.ResolvedVariable,
	rows, cols int,
	t catalog.TableType,
	coordCols map[catalog.SetID]string,
	df *coordinate.DataFrame,
	shared tensor.ConvexTensor,
) (*BindingTable, error) {
	axes := make([][]string, len(resolved.Hierarchy))
	for i, dim := range resolved.Hierarchy {
		axes[i] = dim.Items
	}
	combos, err := coordinate.MaterializeCombos(axes, 0)
	if err != nil {
		return nil, err
	}
	// A hierarchy-less variable (no intra/inter dims) still has exactly
	// one binding row: the whole table-level tensor.
	if len(resolved.Hierarchy) == 0 {
		combos = []coordinate.Combo{{}}
	}

	bt := &BindingTable{
		Rows:      make([]BindingRow, 0, len(combos)),
		RowsOrder: resolved.RowItems,
		ColsOrder: resolved.ColItems,
		BlankFill: v.Spec.BlankFill,
	}
	if col, ok := coordCols[resolved.RowsSet]; ok {
		bt.RowColumn = col
	}
	if col, ok := coordCols[resolved.ColsSet]; ok {
		bt.ColColumn = col
	}

	for _, combo := range combos {
		filter := map[string]string{}
		for i, dim := range resolved.Hierarchy {
			if col, ok := coordCols[dim.SetID]; ok {
				filter[col] = combo.Labels[i]
			}
		}

		var ct tensor.ConvexTensor
		switch {
		case catalog.IsConstant(t):
			ct, err = tensor.Generate(v.Spec.Value, rows, cols)
			if err != nil {
				return nil, err
			}
		case catalog.IsExogenous(t):
			ct = tensor.NewParameter(rows, cols)
		case catalog.IsEndogenous(t):
			h, ok := df.IndexOf(combo.Labels)
			if !ok {
				return nil, cverrors.Settings(
					"variable %q: hierarchy combination %v not present in table-level coordinates join",
					v.Name, combo.Labels)
			}
			rowIdx := make([]int, rows)
			for i := range rowIdx {
				rowIdx[i] = h*rows + i
			}
			ct = shared.SliceRows(rowIdx)
		default:
			return nil, cverrors.Settings("variable %q: unresolved table type for binding", v.Name)
		}

		bt.Rows = append(bt.Rows, BindingRow{
			HierarchyLabels: append([]string(nil), combo.Labels...),
			Tensor:          ct,
			Filter:          filter,
		})
	}
	return bt, nil
}

// columnForSetID maps each coordinate set of table to its store column
// name, so binding filters can be expressed in store terms directly.
func columnForSetID(reg *catalog.Registry, table *catalog.DataTable) map[catalog.SetID]string {
	out := map[catalog.SetID]string{}
	for _, h := range table.CoordinatesHeaders {
		if sid, ok := reg.SetIDByKey(h.SetKey); ok {
			out[sid] = h.Column
		}
	}
	return out
}
