package grid

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDirtyTracker(t *testing.T) {
	d := NewDirtyTracker()
	d.MarkRowDirty("b")
	d.MarkRowDirty("a")
	d.MarkRowDirty("a")

	if diff := cmp.Diff([]string{"a", "b"}, d.IDs()); diff != "" {
		t.Errorf("IDs() mismatch (-want +got):\n%s", diff)
	}

	d.ClearDirtyRows("a", "missing")
	if d.IsDirty("a") || !d.IsDirty("b") || d.Len() != 1 {
		t.Errorf("after ClearDirtyRows: IDs() = %v, want [b]", d.IDs())
	}

	d.ClearAllDirty()
	if d.Len() != 0 {
		t.Errorf("Len() = %d after ClearAllDirty, want 0", d.Len())
	}
}

func TestMatchBaseline(t *testing.T) {
	baseline := []Row{
		{ID: "b1", Cells: map[string]string{"id": "1"}},
		{ID: "b2", Cells: map[string]string{"id": "2"}},
		{ID: "b3", Cells: map[string]string{"id": "2"}},
	}

	tests := []struct {
		name string
		row  Row
		want int
	}{
		{"row id first", Row{ID: "b2", Cells: map[string]string{"id": "1"}}, 1},
		{"identity fallback", Row{ID: "x", Cells: map[string]string{"id": "1.0"}}, 0},
		{"duplicate identity takes first", Row{ID: "x", Cells: map[string]string{"id": "2"}}, 1},
		{"no match", Row{ID: "x", Cells: map[string]string{"id": "9"}}, -1},
		{"non-numeric identity", Row{ID: "x", Cells: map[string]string{"id": "abc"}}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchBaseline(tt.row, baseline, "id"); got != tt.want {
				t.Errorf("MatchBaseline() = %d, want %d", got, tt.want)
			}
		})
	}

	if got := MatchBaseline(Row{ID: "x", Cells: map[string]string{"id": "1"}}, baseline, ""); got != -1 {
		t.Errorf("MatchBaseline() without identity = %d, want -1", got)
	}
}

func TestReconcile(t *testing.T) {
	current := []Row{
		{ID: "r1", Cells: map[string]string{"id": "1", "v": "dirty"}},
		{ID: "r2", Cells: map[string]string{"id": "2", "v": "old"}},
		{ID: "r3", Cells: map[string]string{"id": "3", "v": "same"}},
		{ID: "local", Cells: map[string]string{"id": "", "v": "kept"}},
	}
	baseline := []Row{
		{ID: "n1", Cells: map[string]string{"id": "1", "v": "server"}},
		{ID: "n2", Cells: map[string]string{"id": "2", "v": "new"}},
		{ID: "n3", Cells: map[string]string{"id": "3", "v": "same"}},
		{ID: "n4", Cells: map[string]string{"id": "4", "v": "added"}},
	}
	dirty := NewDirtyTracker()
	dirty.MarkRowDirty("r1")

	got, stats := Reconcile(current, baseline, dirty, "id")

	want := []Row{
		{ID: "r1", Cells: map[string]string{"id": "1", "v": "dirty"}},
		{ID: "r2", Cells: map[string]string{"id": "2", "v": "new"}},
		{ID: "r3", Cells: map[string]string{"id": "3", "v": "same"}},
		{ID: "local", Cells: map[string]string{"id": "", "v": "kept"}},
		{ID: "n4", Cells: map[string]string{"id": "4", "v": "added"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Reconcile() rows mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(ReconcileStats{Refreshed: 1, Protected: 1, Appended: 1}, stats); diff != "" {
		t.Errorf("Reconcile() stats mismatch (-want +got):\n%s", diff)
	}

	// The refreshed row must not share its cell map with the baseline.
	got[1].Cells["v"] = "mutated"
	if baseline[1].Cells["v"] != "new" {
		t.Error("Reconcile() aliased baseline cells")
	}
}
