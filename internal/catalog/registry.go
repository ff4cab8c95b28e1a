package catalog

import (
	"sort"

	"cvxlab/internal/cverrors"
)

// Registry is the in-memory catalog: three arena vectors holding Sets,
// DataTables and Variables, addressed by small integer handles, plus
// name-to-handle indexes. It is built once by Load, then frozen by
// Validate; nothing below this package mutates it afterward except
// tensor/value assignment, which lives outside the catalog entirely.
type Registry struct {
	sets      []Set
	setByKey  map[string]SetID

	tables     []DataTable
	tableByName map[string]TableID

	variables     []Variable
	variableByName map[string]VariableID
	// variablesByTable indexes variable handles by their owning table,
	// preserving declaration order (used by the Problem Materializer).
	variablesByTable map[TableID][]VariableID

	problems map[ProblemKey]RawProblem

	// loadErrors accumulates structural failures (e.g. copy_from cycles)
	// discovered while building the arena, so they surface through
	// Validate's aggregate instead of failing Load eagerly.
	loadErrors []error
}

func NewRegistry() *Registry {
	return &Registry{
		setByKey:         map[string]SetID{},
		tableByName:      map[string]TableID{},
		variableByName:   map[string]VariableID{},
		variablesByTable: map[TableID][]VariableID{},
		problems:         map[ProblemKey]RawProblem{},
	}
}

// Load ingests a SetupSource into the arena form, resolving copy_from
// chains on sets and completing each DataTable's derived attributes. It
// does not validate coherence; call Validate afterward.
func (r *Registry) Load(src SetupSource) error {
	rawSets, err := src.StructureSets()
	if err != nil {
		return cverrors.Wrap(cverrors.KindSettings, err, "loading structure_sets")
	}
	rawTables, err := src.StructureVariables()
	if err != nil {
		return cverrors.Wrap(cverrors.KindSettings, err, "loading structure_variables")
	}
	rawProblems, err := src.Problems()
	if err != nil {
		return cverrors.Wrap(cverrors.KindSettings, err, "loading problem")
	}

	r.loadSets(rawSets)
	if err := r.loadTables(rawTables); err != nil {
		return err
	}
	for k, v := range rawProblems {
		r.problems[k] = v
	}
	return nil
}

func (r *Registry) loadSets(raw map[string]RawSet) {
	// First pass: allocate handles for every set so copy_from can forward-
	// reference a set declared later in the map.
	for key := range raw {
		nk := NormalizeKey(key)
		if _, ok := r.setByKey[nk]; ok {
			continue
		}
		id := SetID(len(r.sets))
		r.sets = append(r.sets, Set{Key: nk})
		r.setByKey[nk] = id
	}

	// Second pass: populate fields, resolving copy_from transitively with
	// cycle detection; a set that copies from itself, directly or
	// transitively, is rejected rather than looping forever.
	resolved := map[string]bool{}
	resolving := map[string]bool{}

	var resolve func(key string) error
	resolve = func(key string) error {
		nk := NormalizeKey(key)
		if resolved[nk] {
			return nil
		}
		if resolving[nk] {
			return cverrors.Settings("copy_from cycle detected at set %q", nk)
		}
		resolving[nk] = true
		defer delete(resolving, nk)
		// cycle detection: resolving[nk] stays true for the duration of
		// this call, so a self-referencing copy_from chain trips the
		// check above before it recurses forever.

		rs, ok := raw[lookupOriginalKey(raw, nk)]
		if !ok {
			return cverrors.Settings("set %q referenced but not declared", nk)
		}

		s := Set{
			Key:          nk,
			Description:  rs.Description,
			Items:        append([]string(nil), rs.Items...),
			Filters:      copyFilters(rs.Filters),
			Aggregations: append([]string(nil), rs.Aggregations...),
			SplitProblem: rs.SplitProblem,
			CopyFrom:     rs.CopyFrom,
		}

		if rs.CopyFrom != "" {
			srcKey := NormalizeKey(rs.CopyFrom)
			if err := resolve(srcKey); err != nil {
				return err
			}
			src := r.sets[r.setByKey[srcKey]]
			if len(s.Items) == 0 {
				s.Items = append([]string(nil), src.Items...)
			}
			if len(s.Filters) == 0 {
				s.Filters = copyFilters(src.Filters)
			}
		}

		r.sets[r.setByKey[nk]] = s
		resolved[nk] = true
		return nil
	}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := resolve(key); err != nil {
			r.loadErrors = append(r.loadErrors, err)
		}
	}
}

func lookupOriginalKey(raw map[string]RawSet, normalized string) string {
	for k := range raw {
		if NormalizeKey(k) == normalized {
			return k
		}
	}
	return normalized
}

func copyFilters(in map[string][]string) map[string][]string {
	out := make(map[string][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func (r *Registry) loadTables(raw map[string]RawTable) error {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names) // deterministic handle assignment

	for _, name := range names {
		rt := raw[name]
		table := DataTable{
			Name:          name,
			Description:   rt.Description,
			Integer:       rt.Integer,
			Coordinates:   append([]string(nil), rt.Coordinates...),
			VariablesInfo: map[string]VariableSpec{},
		}
		if len(rt.TypeByProblem) > 0 {
			table.TypeByProblem = map[ProblemKey]TableType{}
			for k, v := range rt.TypeByProblem {
				table.TypeByProblem[k] = TableType(v)
			}
		} else {
			table.Type = TableType(rt.Type)
		}

		r.completeTableHeaders(&table)

		tid := TableID(len(r.tables))
		r.tables = append(r.tables, table)
		r.tableByName[name] = tid

		varNames := make([]string, 0, len(rt.VariablesInfo))
		for vn := range rt.VariablesInfo {
			varNames = append(varNames, vn)
		}
		sort.Strings(varNames)

		for _, vn := range varNames {
			rv := rt.VariablesInfo[vn]
			spec := VariableSpec{
				Symbol:      rv.Symbol,
				Value:       rv.Value,
				BlankFill:   rv.BlankFill,
				Coordinates: map[string]CoordinateSpec{},
			}
			for ck, cs := range rv.Coordinates {
				spec.Coordinates[NormalizeKey(ck)] = CoordinateSpec{
					Role:   DimRole(cs.Role),
					Filter: cs.Filter,
				}
			}
			r.tables[tid].VariablesInfo[vn] = spec

			vid := VariableID(len(r.variables))
			r.variables = append(r.variables, Variable{
				Name:         vn,
				Symbol:       spec.Symbol,
				RelatedTable: tid,
				Spec:         spec,
				RowsSet:      NoSet,
				ColsSet:      NoSet,
			})
			r.variableByName[vn] = vid
			r.variablesByTable[tid] = append(r.variablesByTable[tid], vid)
		}
	}
	return nil
}

// completeTableHeaders derives table_headers, coordinates_headers and
// foreign_keys: a synthetic leading "id" column, then one TEXT name
// column per coordinate set (FK to that set's table) in Coordinates
// order, then a trailing "values" column.
func (r *Registry) completeTableHeaders(t *DataTable) {
	t.TableHeaders = make([]ColumnHeader, 0, len(t.Coordinates)+1)
	t.CoordinatesHeaders = make([]ColumnHeader, 0, len(t.Coordinates))
	t.ForeignKeys = make([]ForeignKey, 0, len(t.Coordinates))

	t.TableHeaders = append(t.TableHeaders, ColumnHeader{Column: "id", SQLType: "INTEGER PRIMARY KEY"})

	for _, coordKey := range t.Coordinates {
		nk := NormalizeKey(coordKey)
		col := ColumnHeader{SetKey: nk, Column: nameColumn(nk), SQLType: "TEXT"}
		t.TableHeaders = append(t.TableHeaders, col)
		t.CoordinatesHeaders = append(t.CoordinatesHeaders, col)
		t.ForeignKeys = append(t.ForeignKeys, ForeignKey{
			Column:    col.Column,
			RefTable:  setTableName(nk),
			RefColumn: "name",
		})
	}
	t.TableHeaders = append(t.TableHeaders, ColumnHeader{Column: "values", SQLType: "REAL"})
}

// nameColumn and setTableName give the store schema its column and
// table naming: "<Key>_Name" columns, "_set_<KEY>" tables.
func nameColumn(setKey string) string { return capitalize(setKey) + "_Name" }
func setTableName(setKey string) string {
	return "_set_" + upper(setKey)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

// --- accessors -------------------------------------------------------

func (r *Registry) Set(id SetID) *Set             { return &r.sets[id] }
func (r *Registry) Table(id TableID) *DataTable   { return &r.tables[id] }
func (r *Registry) Variable(id VariableID) *Variable { return &r.variables[id] }

func (r *Registry) SetIDByKey(key string) (SetID, bool) {
	id, ok := r.setByKey[NormalizeKey(key)]
	return id, ok
}

func (r *Registry) TableIDByName(name string) (TableID, bool) {
	id, ok := r.tableByName[name]
	return id, ok
}

func (r *Registry) VariableIDByName(name string) (VariableID, bool) {
	id, ok := r.variableByName[name]
	return id, ok
}

func (r *Registry) VariablesOf(t TableID) []VariableID { return r.variablesByTable[t] }

func (r *Registry) AllSets() []SetID {
	ids := make([]SetID, len(r.sets))
	for i := range r.sets {
		ids[i] = SetID(i)
	}
	return ids
}

func (r *Registry) AllTables() []TableID {
	ids := make([]TableID, len(r.tables))
	for i := range r.tables {
		ids[i] = TableID(i)
	}
	return ids
}

func (r *Registry) AllVariables() []VariableID {
	ids := make([]VariableID, len(r.variables))
	for i := range r.variables {
		ids[i] = VariableID(i)
	}
	return ids
}

func (r *Registry) Problem(key ProblemKey) (RawProblem, bool) {
	p, ok := r.problems[key]
	return p, ok
}

func (r *Registry) ProblemKeys() []ProblemKey {
	keys := make([]ProblemKey, 0, len(r.problems))
	for k := range r.problems {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func (r *Registry) SetName(id SetID) string {
	if !id.Valid() {
		return ""
	}
	return r.sets[id].Key
}
