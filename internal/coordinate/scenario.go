package coordinate

import (
	"sort"

	"cvxlab/internal/catalog"
)

// ScenarioTable is the Cartesian product of every inter-problem set's
// items: one row per scenario, one column per inter-problem set.
type ScenarioTable struct {
	Sets []catalog.SetID
	Rows [][]string
}

// Len reports the number of scenarios.
func (s *ScenarioTable) Len() int { return len(s.Rows) }

// Labels returns the scenario's item for a given inter-problem set, or
// "" if that set is not part of the table.
func (s *ScenarioTable) Labels(row int, setID catalog.SetID) string {
	for i, sid := range s.Sets {
		if sid == setID {
			return s.Rows[row][i]
		}
	}
	return ""
}

// BuildScenarioTable enumerates every scenario: the Cartesian product of
// the items of every set with split_problem set, ordered by set key for
// a stable, reproducible scenario index.
func BuildScenarioTable(reg *catalog.Registry) (*ScenarioTable, error) {
	allSets := reg.AllSets()
	interSets := make([]catalog.SetID, 0, len(allSets))
	for _, sid := range allSets {
		if reg.Set(sid).SplitProblem {
			interSets = append(interSets, sid)
		}
	}
	sort.Slice(interSets, func(i, j int) bool {
		return reg.Set(interSets[i]).Key < reg.Set(interSets[j]).Key
	})

	if len(interSets) == 0 {
		return &ScenarioTable{Sets: nil, Rows: [][]string{{}}}, nil
	}

	axes := make([][]string, len(interSets))
	for i, sid := range interSets {
		axes[i] = reg.Set(sid).Items
	}

	combos, err := MaterializeCombos(axes, 0)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, len(combos))
	for i, c := range combos {
		rows[i] = c.Labels
	}

	return &ScenarioTable{Sets: interSets, Rows: rows}, nil
}
