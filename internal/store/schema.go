package store

import (
	"context"

	"cvxlab/internal/catalog"
)

// SetTableName mirrors catalog's internal set-table naming so the store
// package can create set tables without reaching into catalog
// internals.
func SetTableName(setKey string) string {
	return "_set_" + upperASCII(catalog.NormalizeKey(setKey))
}

func upperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

// CreateSetTable materializes one index domain as a lookup table (id,
// name, value) that coordinate columns of data tables foreign-key into;
// value holds the item's position in the set.
func CreateSetTable(ctx context.Context, s Store, set *catalog.Set) error {
	name := SetTableName(set.Key)
	if err := s.CreateTable(ctx, name, []ColumnSpec{
		{Name: "id", SQLType: "INTEGER PRIMARY KEY"},
		{Name: "name", SQLType: "TEXT", Key: true},
		{Name: "value", SQLType: "REAL"},
	}, nil); err != nil {
		return err
	}
	rows := make([]Row, len(set.Items))
	for i, item := range set.Items {
		v := float64(i)
		rows[i] = Row{Coordinates: map[string]string{"name": item}, Value: &v}
	}
	return s.BulkUpsert(ctx, name, rows)
}

// CreateDataTable materializes one DataTable's schema: one TEXT column
// per coordinate (foreign-keyed to that coordinate's set table) plus the
// value column, all derived from the table's already-completed headers.
func CreateDataTable(ctx context.Context, s Store, t *catalog.DataTable) error {
	headers := make([]ColumnSpec, 0, len(t.TableHeaders))
	for _, h := range t.TableHeaders {
		switch h.Column {
		case "id":
			headers = append(headers, ColumnSpec{Name: h.Column, SQLType: h.SQLType})
		case "values":
			headers = append(headers, ColumnSpec{Name: "value", SQLType: h.SQLType})
		default:
			headers = append(headers, ColumnSpec{Name: h.Column, SQLType: h.SQLType, Key: true})
		}
	}

	fks := make([]ForeignKeySpec, 0, len(t.ForeignKeys))
	for _, fk := range t.ForeignKeys {
		fks = append(fks, ForeignKeySpec{Column: fk.Column, RefTable: fk.RefTable, RefColumn: "name"})
	}

	return s.CreateTable(ctx, t.Name, headers, fks)
}
