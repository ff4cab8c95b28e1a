package databind

import (
	"context"

	"cvxlab/internal/materialize"
	"cvxlab/internal/store"
)

// PullEndogenous writes every row of binding's current tensor values
// back to the store, one store row per (hierarchy row, shape cell).
func PullEndogenous(ctx context.Context, s store.Store, tableName string, binding *materialize.BindingTable) error {
	rowLabels := binding.RowsOrder
	if len(rowLabels) == 0 {
		rowLabels = []string{"_"}
	}
	colLabels := binding.ColsOrder
	if len(colLabels) == 0 {
		colLabels = []string{"_"}
	}

	var rows []store.Row
	for _, br := range binding.Rows {
		matrix := br.Tensor.ReadValue()
		for ri, rLabel := range rowLabels {
			for ci, cLabel := range colLabels {
				coords := make(map[string]string, len(br.Filter)+2)
				for k, v := range br.Filter {
					coords[k] = v
				}
				if binding.RowColumn != "" {
					coords[binding.RowColumn] = rLabel
				}
				if binding.ColColumn != "" {
					coords[binding.ColColumn] = cLabel
				}
				value := matrix[ri][ci]
				rows = append(rows, store.Row{Coordinates: coords, Value: &value})
			}
		}
	}

	return s.BulkUpsert(ctx, tableName, rows)
}
