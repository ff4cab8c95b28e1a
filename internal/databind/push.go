// Package databind binds relational store rows to ConvexTensor slots:
// PushExogenous reads store rows into parameter/constant tensors before
// a solve, PullEndogenous writes a solved decision tensor's values back
// to the store.
package databind

import (
	"context"
	"fmt"
	"math"
	"strings"

	"cvxlab/internal/cverrors"
	"cvxlab/internal/materialize"
	"cvxlab/internal/store"
)

// maxReportedNullRows caps how many (table, id) pairs a null-value error
// lists before falling back to a "total N" summary.
const maxReportedNullRows = 5

// PushExogenous refreshes every row of binding from the store: for each
// row it selects the matching rows via its filter dictionary, reshapes
// them into the row's declared (rows, cols) order, and assigns the
// result to its tensor. If allowNone is false and the variable has no
// blank_fill configured, every null value anywhere in tableName is
// rejected up front, listing the offending (table, id) pairs rather than
// stopping at the first one found. If allowNone is true and there is no
// blank_fill, null or absent cells are set to NaN.
func PushExogenous(ctx context.Context, s store.Store, tableName string, binding *materialize.BindingTable, allowNone bool) error {
	if !allowNone && binding.BlankFill == nil {
		if err := rejectNullRows(ctx, s, tableName); err != nil {
			return err
		}
	}

	fill := binding.BlankFill
	if fill == nil && allowNone {
		nan := math.NaN()
		fill = &nan
	}

	for i := range binding.Rows {
		row := &binding.Rows[i]

		storeRows, err := s.SelectWhere(ctx, tableName, row.Filter)
		if err != nil {
			return err
		}

		triples := make([]triple, 0, len(storeRows))
		for _, sr := range storeRows {
			if sr.Value == nil {
				continue
			}
			rLabel := shapeLabel(sr.Coordinates, binding.RowColumn)
			cLabel := shapeLabel(sr.Coordinates, binding.ColColumn)
			triples = append(triples, triple{row: rLabel, col: cLabel, value: *sr.Value})
		}

		matrix, err := Reshape(triples, binding.RowsOrder, binding.ColsOrder, fill)
		if err != nil {
			return err
		}
		if err := row.Tensor.AssignValue(matrix); err != nil {
			return err
		}
	}
	return nil
}

// rejectNullRows queries every null value currently in tableName and, if
// any exist, builds one aggregated error naming the table and row ids,
// truncated to maxReportedNullRows with a total count appended.
func rejectNullRows(ctx context.Context, s store.Store, tableName string) error {
	ids, err := s.NullRows(ctx, tableName)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	shown := ids
	if len(shown) > maxReportedNullRows {
		shown = shown[:maxReportedNullRows]
	}
	pairs := make([]string, 0, len(shown))
	for _, id := range shown {
		pairs = append(pairs, fmt.Sprintf("(%s, %d)", tableName, id))
	}

	msg := fmt.Sprintf("null value with no blank_fill configured for %s", strings.Join(pairs, ", "))
	if len(ids) > len(shown) {
		msg = fmt.Sprintf("%s (total %d)", msg, len(ids))
	}
	return cverrors.MissingData("%s", msg)
}

// shapeLabel returns the row's label on a shape axis, or the constant
// placeholder "_" for a variable with no such axis (scalar dimension).
func shapeLabel(coords map[string]string, column string) string {
	if column == "" {
		return "_"
	}
	return coords[column]
}

type triple struct {
	row, col string
	value    float64
}
