package slot

import (
	"sort"

	"github.com/cyp0633/libslots/datetime"
)

// Indexed pairs a slot with its position in the ungrouped collection.
type Indexed struct {
	Slot  Slot
	Index int
}

// MonthGroups maps "YYYY-MM" keys to the slots starting in that month.
type MonthGroups map[string][]Indexed

// GroupByMonth buckets slots by the calendar month of their start. Slots keep
// their original index and relative order.
func GroupByMonth(cal datetime.Calendar, slots []Slot) MonthGroups {
	groups := MonthGroups{}
	for i, s := range slots {
		key := datetime.MonthKey(cal, s.Start())
		groups[key] = append(groups[key], Indexed{Slot: s, Index: i})
	}
	return groups
}

// Keys returns the month keys in ascending order.
func (g MonthGroups) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Flatten concatenates the groups month by month.
func (g MonthGroups) Flatten() []Indexed {
	var out []Indexed
	for _, k := range g.Keys() {
		out = append(out, g[k]...)
	}
	return out
}
