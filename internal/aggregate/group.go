// Package aggregate groups report entries and computes subtotals over them.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Group is one bucket of entries sharing a key, in the order they were added.
type Group[K comparable, E any] struct {
	Key     K
	Entries []E
}

// Count returns the number of entries in the group.
func (g *Group[K, E]) Count() int { return len(g.Entries) }

// Sum totals a money projection over the group's entries.
func (g *Group[K, E]) Sum(proj func(E) decimal.Decimal) decimal.Decimal {
	return Sum(g.Entries, proj)
}

// Grouping is an ordered map from key to group. Keys keep first-seen order
// until SortKeys is called.
type Grouping[K comparable, E any] struct {
	groups []*Group[K, E]
	index  map[K]int
}

// By partitions entries by keyFn. Each entry lands in exactly one group.
func By[K comparable, E any](entries []E, keyFn func(E) K) *Grouping[K, E] {
	g := &Grouping[K, E]{index: make(map[K]int)}
	for _, e := range entries {
		g.Add(keyFn(e), e)
	}
	return g
}

// Add appends an entry to the group for key, creating it when new.
func (g *Grouping[K, E]) Add(key K, entry E) {
	if g.index == nil {
		g.index = make(map[K]int)
	}
	i, ok := g.index[key]
	if !ok {
		i = len(g.groups)
		g.index[key] = i
		g.groups = append(g.groups, &Group[K, E]{Key: key})
	}
	g.groups[i].Entries = append(g.groups[i].Entries, entry)
}

// Groups returns the groups in their current order.
func (g *Grouping[K, E]) Groups() []*Group[K, E] { return g.groups }

// Len is the number of distinct keys.
func (g *Grouping[K, E]) Len() int { return len(g.groups) }

// Keys returns the keys in their current order.
func (g *Grouping[K, E]) Keys() []K {
	keys := make([]K, len(g.groups))
	for i, grp := range g.groups {
		keys[i] = grp.Key
	}
	return keys
}

// Get looks up the group for key.
func (g *Grouping[K, E]) Get(key K) (*Group[K, E], bool) {
	i, ok := g.index[key]
	if !ok {
		return nil, false
	}
	return g.groups[i], true
}

// SortKeys reorders groups by key. The sort is stable so equal keys under
// less keep their first-seen order.
func (g *Grouping[K, E]) SortKeys(less func(a, b K) bool) *Grouping[K, E] {
	sort.SliceStable(g.groups, func(i, j int) bool { return less(g.groups[i].Key, g.groups[j].Key) })
	for i, grp := range g.groups {
		g.index[grp.Key] = i
	}
	return g
}

// SortEntries orders the entries inside every group.
func (g *Grouping[K, E]) SortEntries(less func(a, b E) bool) *Grouping[K, E] {
	for _, grp := range g.groups {
		entries := grp.Entries
		sort.SliceStable(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
	}
	return g
}

// Total sums a projection across every group.
func (g *Grouping[K, E]) Total(proj func(E) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, grp := range g.groups {
		total = total.Add(grp.Sum(proj))
	}
	return total
}

// Count totals the entry count across every group.
func (g *Grouping[K, E]) Count() int {
	n := 0
	for _, grp := range g.groups {
		n += grp.Count()
	}
	return n
}

// Sum totals proj over entries.
func Sum[E any](entries []E, proj func(E) decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(proj(e))
	}
	return total
}

// Count counts entries matching pred; a nil pred counts all of them.
func Count[E any](entries []E, pred func(E) bool) int {
	if pred == nil {
		return len(entries)
	}
	n := 0
	for _, e := range entries {
		if pred(e) {
			n++
		}
	}
	return n
}
