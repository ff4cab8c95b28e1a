package catalog

import (
	"cvxlab/internal/cverrors"
	"cvxlab/internal/tensor"
)

// Validate runs every structural coherence check over the loaded
// catalog, aggregating every failure into a single error instead of
// stopping at the first one found.
func (r *Registry) Validate() error {
	var agg cverrors.Aggregate

	for _, err := range r.loadErrors {
		agg.Add(err)
	}

	r.validateSets(&agg)
	r.validateTables(&agg)

	return agg.Err()
}

func (r *Registry) validateSets(agg *cverrors.Aggregate) {
	for i := range r.sets {
		s := &r.sets[i]

		seen := map[string]bool{}
		for _, item := range s.Items {
			if seen[item] {
				agg.Addf(cverrors.KindSettings, "set %q: duplicate item %q", s.Key, item)
			}
			seen[item] = true
		}

		items := s.ItemSet()
		for filterKey, values := range s.Filters {
			for _, v := range values {
				if _, ok := items[v]; !ok {
					agg.Addf(cverrors.KindSettings,
						"set %q: filter %q references item %q not in items", s.Key, filterKey, v)
				}
			}
		}
	}
}

func (r *Registry) validateTables(agg *cverrors.Aggregate) {
	for ti := range r.tables {
		t := &r.tables[ti]

		if t.IsTypeSplit() {
			declared := r.ProblemKeys()
			declaredSet := map[ProblemKey]bool{}
			for _, k := range declared {
				declaredSet[k] = true
			}
			for k := range t.TypeByProblem {
				if !declaredSet[k] {
					agg.Addf(cverrors.KindSettings,
						"table %q: type-split mapping references undeclared problem key %q", t.Name, k)
				}
			}
			for _, k := range declared {
				if _, ok := t.TypeByProblem[k]; !ok {
					agg.Addf(cverrors.KindSettings,
						"table %q: type-split mapping missing entry for declared problem key %q", t.Name, k)
				}
			}
		}

		// Check 1: every coordinate is a registered set.
		coordSetIDs := make([]SetID, 0, len(t.Coordinates))
		interSets := map[SetID]bool{}
		for _, coordKey := range t.Coordinates {
			id, ok := r.SetIDByKey(coordKey)
			if !ok {
				agg.Addf(cverrors.KindSettings, "table %q: coordinate %q is not a registered set", t.Name, coordKey)
				continue
			}
			coordSetIDs = append(coordSetIDs, id)
			if r.sets[id].SplitProblem {
				interSets[id] = true
			}
		}

		// Check 2: endogenous/type-split tables include every inter-problem
		// set in their coordinates.
		needsAllInter := t.IsTypeSplit()
		for k := range t.TypeByProblem {
			if t.TypeByProblem[k] == TypeEndogenous {
				needsAllInter = true
			}
		}
		if t.Type == TypeEndogenous {
			needsAllInter = true
		}
		if needsAllInter {
			for _, sid := range r.AllSets() {
				if r.sets[sid].SplitProblem && !interSets[sid] {
					agg.Addf(cverrors.KindSettings,
						"table %q: missing inter-problem set %q in coordinates (required for endogenous/type-split tables)",
						t.Name, r.sets[sid].Key)
				}
			}
		}

		// Check 3: exogenous tables are not integer.
		isExogenousAnywhere := t.Type == TypeExogenous
		for _, ty := range t.TypeByProblem {
			if ty == TypeExogenous {
				isExogenousAnywhere = true
			}
		}
		if isExogenousAnywhere && t.Integer {
			agg.Addf(cverrors.KindSettings, "table %q: exogenous table cannot be declared integer", t.Name)
		}

		r.validateVariablesOfTable(t, agg)
	}
}

func (r *Registry) validateVariablesOfTable(t *DataTable, agg *cverrors.Aggregate) {
	for name, spec := range t.VariablesInfo {
		// Check 5: value (constant tag) only on constant-type tables.
		if spec.Value != "" {
			isConstantAnywhere := t.Type == TypeConstant
			for _, ty := range t.TypeByProblem {
				if ty == TypeConstant {
					isConstantAnywhere = true
				}
			}
			if !isConstantAnywhere {
				agg.Addf(cverrors.KindSettings,
					"variable %q: 'value' constant tag only valid on constant-type tables", name)
			}
			if !tensor.KnownGenerators(spec.Value) {
				agg.Addf(cverrors.KindSettings, "variable %q: unknown constant generator %q", name, spec.Value)
			}
		}

		// Check 6: blank_fill only on exogenous.
		if spec.BlankFill != nil {
			isExogenousAnywhere := t.Type == TypeExogenous
			for _, ty := range t.TypeByProblem {
				if ty == TypeExogenous {
					isExogenousAnywhere = true
				}
			}
			if !isExogenousAnywhere {
				agg.Addf(cverrors.KindSettings,
					"variable %q: 'blank_fill' only valid on exogenous variables", name)
			}
		}

		// Check 4: each per-coordinate declaration names a valid shape
		// dimension and/or a valid filter whose key/values exist.
		for coordKey, cs := range spec.Coordinates {
			sid, ok := r.SetIDByKey(coordKey)
			if !ok {
				agg.Addf(cverrors.KindSettings,
					"variable %q: dimension declaration references unregistered set %q", name, coordKey)
				continue
			}
			isTableCoord := false
			for _, tc := range t.Coordinates {
				if NormalizeKey(tc) == NormalizeKey(coordKey) {
					isTableCoord = true
				}
			}
			if !isTableCoord {
				agg.Addf(cverrors.KindSettings,
					"variable %q: dimension declaration references %q which is not a coordinate of table %q",
					name, coordKey, t.Name)
				continue
			}
			if cs.Role != RoleNone && cs.Role != RoleRows && cs.Role != RoleCols {
				agg.Addf(cverrors.KindSettings, "variable %q: invalid role %q for dimension %q", name, cs.Role, coordKey)
			}
			if cs.Filter != "" {
				if _, ok := r.sets[sid].Filters[cs.Filter]; !ok {
					agg.Addf(cverrors.KindSettings,
						"variable %q: dimension %q references undeclared filter %q", name, coordKey, cs.Filter)
				}
			}
		}
	}
}
