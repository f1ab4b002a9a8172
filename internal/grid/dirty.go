package grid

import (
	"maps"
	"sort"
)

// DirtyTracker holds the ids of rows that differ from the clean baseline.
type DirtyTracker struct {
	ids map[string]struct{}
}

// NewDirtyTracker returns an empty tracker.
func NewDirtyTracker() *DirtyTracker {
	return &DirtyTracker{ids: make(map[string]struct{})}
}

// MarkRowDirty adds id to the set.
func (d *DirtyTracker) MarkRowDirty(id string) {
	d.ids[id] = struct{}{}
}

// ClearDirtyRows removes ids from the set.
func (d *DirtyTracker) ClearDirtyRows(ids ...string) {
	for _, id := range ids {
		delete(d.ids, id)
	}
}

// ClearAllDirty empties the set.
func (d *DirtyTracker) ClearAllDirty() {
	clear(d.ids)
}

// IsDirty reports whether id is in the set.
func (d *DirtyTracker) IsDirty(id string) bool {
	_, ok := d.ids[id]
	return ok
}

// Len returns the number of dirty rows.
func (d *DirtyTracker) Len() int {
	return len(d.ids)
}

// IDs returns the dirty row ids, sorted.
func (d *DirtyTracker) IDs() []string {
	ids := make([]string, 0, len(d.ids))
	for id := range d.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// identityKey reads the identity column as a number.
func identityKey(row Row, identity string) (float64, bool) {
	if identity == "" {
		return 0, false
	}
	return parseNumber(row.Cells[identity])
}

func indexByIdentity(rows []Row, identity string, key float64) int {
	for i, r := range rows {
		if k, ok := identityKey(r, identity); ok && k == key {
			return i
		}
	}
	return -1
}

// MatchBaseline returns the index of the baseline entry for row: the entry
// with the same row id, else the first entry with the same identity value.
// Returns -1 when nothing matches. Duplicate identity values resolve to the
// first entry.
func MatchBaseline(row Row, baseline []Row, identity string) int {
	for i, b := range baseline {
		if b.ID == row.ID {
			return i
		}
	}
	if key, ok := identityKey(row, identity); ok {
		return indexByIdentity(baseline, identity, key)
	}
	return -1
}

// ReconcileStats counts what Reconcile did.
type ReconcileStats struct {
	Refreshed int // Clean rows overwritten from the baseline
	Protected int // Dirty rows left untouched
	Appended  int // Baseline entries with no current row
}

// Reconcile overlays a refreshed baseline on current rows. Clean rows take
// their matched baseline cells (keeping their own row id), dirty rows are
// left as they are, unmatched baseline entries are appended and current
// rows missing from the baseline are kept.
func Reconcile(current, baseline []Row, dirty *DirtyTracker, identity string) ([]Row, ReconcileStats) {
	var stats ReconcileStats
	used := make([]bool, len(baseline))
	out := make([]Row, 0, len(current)+len(baseline))

	for _, row := range current {
		bi := MatchBaseline(row, baseline, identity)
		if bi < 0 {
			out = append(out, row)
			continue
		}
		used[bi] = true

		if dirty.IsDirty(row.ID) {
			stats.Protected++
			out = append(out, row)
			continue
		}
		if maps.Equal(row.Cells, baseline[bi].Cells) {
			out = append(out, row)
			continue
		}
		out = append(out, Row{ID: row.ID, Cells: maps.Clone(baseline[bi].Cells)})
		stats.Refreshed++
	}

	for i, b := range baseline {
		if used[i] {
			continue
		}
		out = append(out, b.Clone())
		stats.Appended++
	}
	return out, stats
}
