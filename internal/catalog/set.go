package catalog

import "strings"

// Set is an index domain identified by a case-insensitive key. It holds an
// ordered list of distinct item labels, named sub-list filters over those
// items, opaque aggregation labels, and the split_problem flag that marks
// it as an inter-problem set.
type Set struct {
	Key            string
	Description    string
	Items          []string
	Filters        map[string][]string
	Aggregations   []string
	SplitProblem   bool
	CopyFrom       string // raw, pre-resolution; "" if absent
}

// NormalizeKey lower-cases a set key so lookups are case-insensitive.
func NormalizeKey(key string) string { return strings.ToLower(key) }

// ItemSet returns Items as a lookup set, used by filter/membership checks.
func (s *Set) ItemSet() map[string]struct{} {
	out := make(map[string]struct{}, len(s.Items))
	for _, it := range s.Items {
		out[it] = struct{}{}
	}
	return out
}

// FilterItems returns the items selected by a named filter, or all items
// if filterKey is empty (no filter applied on that dimension).
func (s *Set) FilterItems(filterKey string) []string {
	if filterKey == "" {
		return s.Items
	}
	return s.Filters[filterKey]
}
