package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"cvxlab/internal/cverrors"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore is the production Store implementation: a single SQLite
// file under dir, opened through modernc.org/sqlite (pure Go, no cgo).
type SQLiteStore struct {
	dir       string
	fileName  string
	db        *sql.DB
	batchSize int
	timeout   time.Duration

	tables map[string][]ColumnSpec // created-table schema cache, for EqualWithinTolerance
}

// Open creates or opens the SQLite file dir/fileName. batchSize bounds
// how many rows BulkUpsert writes per transaction; timeout bounds each
// query/exec call.
func Open(dir, fileName string, batchSize int, timeout time.Duration) (*SQLiteStore, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	path := filepath.Join(dir, fileName)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindOperational, err, "opening store file %s", path)
	}
	db.SetMaxOpenConns(1) // SQLite: one writer at a time, keep it simple and serialized.

	if _, err := db.Exec(`PRAGMA foreign_keys = ON`); err != nil {
		return nil, cverrors.Wrap(cverrors.KindOperational, err, "enabling foreign_keys pragma")
	}

	return &SQLiteStore{
		dir:       dir,
		fileName:  fileName,
		db:        db,
		batchSize: batchSize,
		timeout:   timeout,
		tables:    map[string][]ColumnSpec{},
	}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func validIdentifier(name string) error {
	if !identifierRe.MatchString(name) {
		return cverrors.Settings("invalid SQL identifier %q", name)
	}
	return nil
}

func (s *SQLiteStore) CreateTable(ctx context.Context, name string, headers []ColumnSpec, foreignKeys []ForeignKeySpec) error {
	if err := validIdentifier(name); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var cols []string
	var keyCols []string
	for _, h := range headers {
		if err := validIdentifier(h.Name); err != nil {
			return err
		}
		cols = append(cols, fmt.Sprintf("%q %s", h.Name, h.SQLType))
		if h.Key {
			keyCols = append(keyCols, fmt.Sprintf("%q", h.Name))
		}
	}
	for _, fk := range foreignKeys {
		if err := validIdentifier(fk.Column); err != nil {
			return err
		}
		if err := validIdentifier(fk.RefTable); err != nil {
			return err
		}
		if err := validIdentifier(fk.RefColumn); err != nil {
			return err
		}
		cols = append(cols, fmt.Sprintf("FOREIGN KEY(%q) REFERENCES %q(%q)", fk.Column, fk.RefTable, fk.RefColumn))
	}
	if len(keyCols) > 0 {
		cols = append(cols, fmt.Sprintf("UNIQUE(%s)", strings.Join(keyCols, ", ")))
	}

	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %q (%s)`, name, strings.Join(cols, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "create_table %s", name)
	}

	s.tables[name] = headers
	return nil
}

func (s *SQLiteStore) BulkUpsert(ctx context.Context, name string, rows []Row) error {
	if err := validIdentifier(name); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	headers := s.tables[name]
	var keyCols []string
	for _, h := range headers {
		if h.Key {
			keyCols = append(keyCols, h.Name)
		}
	}

	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := s.upsertBatch(ctx, name, keyCols, rows[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) upsertBatch(ctx context.Context, name string, keyCols []string, rows []Row) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "bulk_upsert %s: begin", name)
	}
	defer tx.Rollback()

	colNames := append(append([]string{}, keyCols...), "value")
	placeholders := make([]string, len(colNames))
	for i := range placeholders {
		placeholders[i] = "?"
	}
	conflictCols := make([]string, len(keyCols))
	for i, c := range keyCols {
		conflictCols[i] = fmt.Sprintf("%q", c)
	}

	quoted := make([]string, len(colNames))
	for i, c := range colNames {
		quoted[i] = fmt.Sprintf("%q", c)
	}

	stmtSQL := fmt.Sprintf(
		`INSERT INTO %q (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET "value" = excluded."value"`,
		name, strings.Join(quoted, ", "), strings.Join(placeholders, ", "), strings.Join(conflictCols, ", "),
	)
	stmt, err := tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "bulk_upsert %s: prepare", name)
	}
	defer stmt.Close()

	for _, row := range rows {
		args := make([]any, 0, len(keyCols)+1)
		for _, c := range keyCols {
			args = append(args, row.Coordinates[c])
		}
		if row.Value == nil {
			args = append(args, nil)
		} else {
			args = append(args, *row.Value)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return cverrors.Wrap(cverrors.KindOperational, err, "bulk_upsert %s: exec", name)
		}
	}

	if err := tx.Commit(); err != nil {
		return cverrors.Wrap(cverrors.KindOperational, err, "bulk_upsert %s: commit", name)
	}
	return nil
}

func (s *SQLiteStore) SelectWhere(ctx context.Context, name string, equalityFilters map[string]string) ([]Row, error) {
	if err := validIdentifier(name); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	headers := s.tables[name]
	var keyCols []string
	for _, h := range headers {
		if h.Key {
			keyCols = append(keyCols, h.Name)
		}
	}

	selectCols := append([]string{"id"}, keyCols...)
	selectCols = append(selectCols, "value")
	quoted := make([]string, len(selectCols))
	for i, c := range selectCols {
		quoted[i] = fmt.Sprintf("%q", c)
	}

	query := fmt.Sprintf(`SELECT %s FROM %q`, strings.Join(quoted, ", "), name)

	var args []any
	if len(equalityFilters) > 0 {
		keys := make([]string, 0, len(equalityFilters))
		for k := range equalityFilters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var clauses []string
		for _, k := range keys {
			if err := validIdentifier(k); err != nil {
				return nil, err
			}
			clauses = append(clauses, fmt.Sprintf("%q = ?", k))
			args = append(args, equalityFilters[k])
		}
		query += " WHERE " + strings.Join(clauses, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindOperational, err, "select_where %s", name)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		scanDest := make([]any, len(selectCols))
		var id int64
		scanDest[0] = &id
		coordVals := make([]sql.NullString, len(keyCols))
		for i := range keyCols {
			scanDest[1+i] = &coordVals[i]
		}
		var value sql.NullFloat64
		scanDest[len(scanDest)-1] = &value

		if err := rows.Scan(scanDest...); err != nil {
			return nil, cverrors.Wrap(cverrors.KindOperational, err, "select_where %s: scan", name)
		}

		r := Row{ID: id, Coordinates: make(map[string]string, len(keyCols))}
		for i, c := range keyCols {
			r.Coordinates[c] = coordVals[i].String
		}
		if value.Valid {
			v := value.Float64
			r.Value = &v
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, cverrors.Wrap(cverrors.KindOperational, err, "select_where %s: rows", name)
	}
	return out, nil
}

func (s *SQLiteStore) NullRows(ctx context.Context, name string) ([]int64, error) {
	if err := validIdentifier(name); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT "id" FROM %q WHERE "value" IS NULL`, name))
	if err != nil {
		return nil, cverrors.Wrap(cverrors.KindOperational, err, "null_rows %s", name)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, cverrors.Wrap(cverrors.KindOperational, err, "null_rows %s: scan", name)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) RelativeDiff(ctx context.Context, tableNames []string, other Store, roundingDigits int) (map[string]float64, error) {
	out := make(map[string]float64, len(tableNames))
	for _, name := range tableNames {
		mine, err := s.SelectWhere(ctx, name, nil)
		if err != nil {
			return nil, err
		}
		// A handle freshly opened on a snapshot file has no cached schema
		// for name; give it this store's, so both sides select and align
		// rows by the same coordinate columns.
		if o, ok := other.(*SQLiteStore); ok {
			if _, known := o.tables[name]; !known {
				o.tables[name] = s.tables[name]
			}
		}
		theirs, err := other.SelectWhere(ctx, name, nil)
		if err != nil {
			return nil, err
		}
		out[name] = maxRelativeDiff(mine, theirs, roundingDigits)
	}
	return out, nil
}

func (s *SQLiteStore) EqualWithinTolerance(ctx context.Context, other Store, tolerance float64, roundingDigits int) (bool, error) {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	diffs, err := s.RelativeDiff(ctx, names, other, roundingDigits)
	if err != nil {
		return false, err
	}
	for _, d := range diffs {
		if d > tolerance {
			return false, nil
		}
	}
	return true, nil
}

// maxRelativeDiff aligns two row sets by coordinate tuple and returns the
// maximum element-wise relative difference, rounded to roundingDigits.
// A row present on one side and missing on the other counts as maximally
// different (1.0); the comparison never silently ignores a key mismatch.
func maxRelativeDiff(a, b []Row, roundingDigits int) float64 {
	const eps = 1e-12

	index := func(rows []Row) map[string]*float64 {
		m := make(map[string]*float64, len(rows))
		for _, r := range rows {
			m[coordKey(r.Coordinates)] = r.Value
		}
		return m
	}

	ma := index(a)
	mb := index(b)

	keys := map[string]bool{}
	for k := range ma {
		keys[k] = true
	}
	for k := range mb {
		keys[k] = true
	}

	max := 0.0
	for k := range keys {
		va, oka := ma[k]
		vb, okb := mb[k]
		if !oka || !okb || va == nil || vb == nil {
			if (oka && !okb) || (!oka && okb) {
				max = 1.0
			}
			continue
		}
		diff := math.Abs(*va - *vb)
		denom := math.Max(math.Max(math.Abs(*va), math.Abs(*vb)), eps)
		rel := diff / denom
		if rel > max {
			max = rel
		}
	}

	scale := math.Pow(10, float64(roundingDigits))
	return math.Round(max*scale) / scale
}

func coordKey(coords map[string]string) string {
	keys := make([]string, 0, len(coords))
	for k := range coords {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(coords[k])
		b.WriteByte('\x1f')
	}
	return b.String()
}
