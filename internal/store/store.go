// Package store implements the Table Store Adapter: a thin typed
// interface over an on-disk SQLite file with column-filtered reads,
// batched writes, file-granularity backup/restore/rename, and
// tolerance-based equality comparison between two store files.
package store

import "context"

// Row is one record of a data table: the autoincrement id, one string
// label per coordinate column (column name -> item label), and the
// value column. Value is nil when the cell holds SQL NULL.
type Row struct {
	ID          int64
	Coordinates map[string]string
	Value       *float64
}

// Store is the contract the rest of the engine depends on; Coordinate
// Engine, Problem Materializer and Data Binder never see a raw
// *sql.DB.
type Store interface {
	// CreateTable creates name if it does not already exist, with the
	// given column headers (in order) and foreign keys. A UNIQUE
	// constraint is placed over the columns marked Key so BulkUpsert can
	// use a natural-key upsert.
	CreateTable(ctx context.Context, name string, headers []ColumnSpec, foreignKeys []ForeignKeySpec) error

	// BulkUpsert inserts or updates rows in name, batched in groups of
	// at most the adapter's configured batch size. Rows are matched by
	// their coordinate columns, not by ID.
	BulkUpsert(ctx context.Context, name string, rows []Row) error

	// SelectWhere returns every row of name whose coordinate columns
	// match equalityFilters (column -> single required label). A nil or
	// empty filter returns every row.
	SelectWhere(ctx context.Context, name string, equalityFilters map[string]string) ([]Row, error)

	// NullRows returns the ids of every row of name whose value column
	// is NULL.
	NullRows(ctx context.Context, name string) ([]int64, error)

	// RelativeDiff computes, for each named table, the maximum
	// element-wise relative difference between this store and other,
	// aligned by coordinate tuple and rounded to roundingDigits.
	RelativeDiff(ctx context.Context, tableNames []string, other Store, roundingDigits int) (map[string]float64, error)

	// EqualWithinTolerance reports whether every table known to this
	// store is within tolerance of other's corresponding table, per
	// RelativeDiff.
	EqualWithinTolerance(ctx context.Context, other Store, tolerance float64, roundingDigits int) (bool, error)

	// Backup, Restore, Delete and Rename operate at file granularity on
	// snapshot names relative to the adapter's base directory; they do
	// not touch individual tables.
	Backup(name string) error
	Restore(name string) error
	Delete(name string) error
	Rename(oldName, newName string) error

	Close() error
}

// ColumnSpec is one column of a CreateTable call.
type ColumnSpec struct {
	Name    string
	SQLType string
	// Key marks a coordinate column; these participate in the table's
	// natural-key UNIQUE constraint used by BulkUpsert.
	Key bool
}

// ForeignKeySpec references another table's column by name.
type ForeignKeySpec struct {
	Column    string
	RefTable  string
	RefColumn string
}
