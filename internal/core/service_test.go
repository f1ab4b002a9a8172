package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/JonMunkholm/pastegrid/internal/grid"
)

// ---- Fixtures ----

type fakeStore struct {
	mu       sync.Mutex
	records  []grid.Record
	applied  [][]grid.Record
	inserted [][]grid.Record

	loadErr  error
	writeErr error

	// When set, Apply and Insert signal started and wait for release.
	started chan struct{}
	release chan struct{}
}

func (f *fakeStore) Load(_ context.Context, _ TableDefinition) ([]grid.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]grid.Record, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeStore) Apply(ctx context.Context, _ TableDefinition, recs []grid.Record) error {
	return f.write(ctx, &f.applied, recs)
}

func (f *fakeStore) Insert(ctx context.Context, _ TableDefinition, recs []grid.Record) error {
	return f.write(ctx, &f.inserted, recs)
}

func (f *fakeStore) write(ctx context.Context, dst *[][]grid.Record, recs []grid.Record) error {
	if f.started != nil {
		f.started <- struct{}{}
		select {
		case <-f.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	*dst = append(*dst, recs)
	return nil
}

func registerWords(t *testing.T) {
	t.Helper()
	Clear()
	t.Cleanup(Clear)
	Register(TableDefinition{
		Info: TableInfo{Key: "words", Group: "Vocabulary", Label: "Words"},
		Columns: []grid.Column{
			{ID: "id", Type: grid.CellNumber, ReadOnly: true},
			{ID: "term", Type: grid.CellText, Required: true},
			{ID: "level", Type: grid.CellNumber, Min: grid.Bound(1), Max: grid.Bound(5)},
		},
		RowSchema:      func(grid.Record) []grid.FieldError { return nil },
		IdentityColumn: "id",
	})
}

func seedWords() []grid.Record {
	return []grid.Record{
		{"id": float64(1), "term": "apple", "level": float64(2)},
		{"id": float64(2), "term": "pear", "level": float64(3)},
	}
}

func newTestService(t *testing.T, store *fakeStore) *Service {
	t.Helper()
	registerWords(t)
	return NewService(store, Options{})
}

func openSession(t *testing.T, svc *Service, mode Mode) SessionSnapshot {
	t.Helper()
	snap, err := svc.OpenSession(context.Background(), "words", mode)
	if err != nil {
		t.Fatalf("OpenSession(%s) error = %v", mode, err)
	}
	return snap
}

func rowByTerm(t *testing.T, snap SessionSnapshot, term string) grid.Row {
	t.Helper()
	for _, r := range snap.Rows {
		if r.Cells["term"] == term {
			return r
		}
	}
	t.Fatalf("no row with term %q in %v", term, snap.Rows)
	return grid.Row{}
}

// ---- Opening sessions ----

func TestOpenSession(t *testing.T) {
	t.Run("create session starts with only the ghost row", func(t *testing.T) {
		svc := newTestService(t, &fakeStore{})
		snap := openSession(t, svc, ModeCreate)

		if len(snap.Rows) != 1 || !snap.Rows[0].IsGhost() {
			t.Fatalf("Rows = %v, want only the ghost row", snap.Rows)
		}
		var ids []string
		for _, c := range snap.Columns {
			ids = append(ids, c.ID)
		}
		if diff := cmp.Diff([]string{"term", "level"}, ids); diff != "" {
			t.Errorf("create columns mismatch (-want +got):\n%s", diff)
		}
		if snap.SaveEnabled {
			t.Error("SaveEnabled = true for an empty create session")
		}
		if svc.SessionCount() != 1 {
			t.Errorf("SessionCount = %d, want 1", svc.SessionCount())
		}
	})

	t.Run("edit session loads the source records", func(t *testing.T) {
		svc := newTestService(t, &fakeStore{records: seedWords()})
		snap := openSession(t, svc, ModeEdit)

		if len(snap.Rows) != 2 {
			t.Fatalf("len(Rows) = %d, want 2", len(snap.Rows))
		}
		if got := rowByTerm(t, snap, "pear").Cells["level"]; got != "3" {
			t.Errorf("pear level = %q, want %q", got, "3")
		}
		if snap.HasUnsavedChanges {
			t.Error("freshly loaded session reports unsaved changes")
		}
	})

	t.Run("unknown table", func(t *testing.T) {
		svc := newTestService(t, &fakeStore{})
		_, err := svc.OpenSession(context.Background(), "nope", ModeCreate)
		if !errors.Is(err, ErrUnknownTable) {
			t.Errorf("error = %v, want ErrUnknownTable", err)
		}
	})

	t.Run("invalid mode", func(t *testing.T) {
		svc := newTestService(t, &fakeStore{})
		_, err := svc.OpenSession(context.Background(), "words", Mode("append"))
		if !errors.Is(err, ErrInvalidMode) {
			t.Errorf("error = %v, want ErrInvalidMode", err)
		}
	})

	t.Run("load failure", func(t *testing.T) {
		loadErr := errors.New("connection refused")
		svc := newTestService(t, &fakeStore{loadErr: loadErr})
		_, err := svc.OpenSession(context.Background(), "words", ModeEdit)
		if !errors.Is(err, loadErr) {
			t.Errorf("error = %v, want wrapped load error", err)
		}
		if svc.SessionCount() != 0 {
			t.Errorf("SessionCount = %d, want 0", svc.SessionCount())
		}
	})
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{in: "create", want: ModeCreate},
		{in: " Edit ", want: ModeEdit},
		{in: "delete", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

// ---- Create sessions ----

func TestService_CreatePasteAndSave(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)
	snap := openSession(t, svc, ModeCreate)

	snap, res, err := svc.Paste(snap.ID, "plum\t3\nfig\t4")
	if err != nil {
		t.Fatalf("Paste() error = %v", err)
	}
	if res.Kind != grid.PasteTable || res.Created != 2 {
		t.Errorf("PasteResult = %+v, want table paste creating 2 rows", res)
	}
	if len(snap.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3 (two rows plus ghost)", len(snap.Rows))
	}
	if !snap.SaveEnabled {
		t.Fatal("SaveEnabled = false after a valid paste")
	}

	result, err := svc.Save(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if result.Saved != 2 {
		t.Errorf("Saved = %d, want 2", result.Saved)
	}

	want := [][]grid.Record{{
		{"term": "plum", "level": float64(3)},
		{"term": "fig", "level": float64(4)},
	}}
	if diff := cmp.Diff(want, store.inserted); diff != "" {
		t.Errorf("inserted records mismatch (-want +got):\n%s", diff)
	}
	if len(result.Snapshot.Rows) != 1 || !result.Snapshot.Rows[0].IsGhost() {
		t.Errorf("after save Rows = %v, want only the ghost row", result.Snapshot.Rows)
	}
	if len(store.applied) != 0 {
		t.Errorf("applied = %v, want no updates from a create session", store.applied)
	}
}

func TestService_SaveBlockedByValidation(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(t, store)
	snap := openSession(t, svc, ModeCreate)

	if _, _, err := svc.Paste(snap.ID, "\t9"); err != nil {
		t.Fatalf("Paste() error = %v", err)
	}
	snap, _ = svc.Snapshot(snap.ID)
	if snap.Validation.IsValid {
		t.Fatal("Validation.IsValid = true, want false for empty term and level 9")
	}

	_, err := svc.Save(context.Background(), snap.ID)
	var verr *grid.RowValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Save() error = %v, want *grid.RowValidationError", err)
	}
	if !errors.Is(err, grid.ErrInvalidRows) {
		t.Error("error does not unwrap to ErrInvalidRows")
	}
	if len(store.inserted) != 0 {
		t.Errorf("store received %d inserts, want 0", len(store.inserted))
	}
}

func TestService_NothingToSave(t *testing.T) {
	svc := newTestService(t, &fakeStore{records: seedWords()})
	snap := openSession(t, svc, ModeEdit)

	if _, err := svc.Save(context.Background(), snap.ID); !errors.Is(err, grid.ErrNothingToSave) {
		t.Errorf("Save() error = %v, want ErrNothingToSave", err)
	}
}

func TestService_PasteTooLarge(t *testing.T) {
	registerWords(t)
	svc := NewService(&fakeStore{}, Options{Grid: GridDefaults{MaxPasteBytes: 8}})
	snap := openSession(t, svc, ModeCreate)

	if _, _, err := svc.Paste(snap.ID, "123456789"); !errors.Is(err, ErrPasteTooLarge) {
		t.Errorf("Paste() error = %v, want ErrPasteTooLarge", err)
	}
	if _, err := svc.Import(snap.ID, strings.Repeat("x", 9)); !errors.Is(err, ErrPasteTooLarge) {
		t.Errorf("Import() error = %v, want ErrPasteTooLarge", err)
	}
}

func TestService_ImportAndReset(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	snap := openSession(t, svc, ModeCreate)

	snap, err := svc.Import(snap.ID, "Level,Term\n2,kiwi\n5,lime")
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(snap.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(snap.Rows))
	}
	if got := rowByTerm(t, snap, "lime").Cells["level"]; got != "5" {
		t.Errorf("lime level = %q, want %q", got, "5")
	}

	snap, err = svc.Reset(snap.ID)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if len(snap.Rows) != 1 || snap.HasUnsavedChanges {
		t.Errorf("after Reset Rows = %v, HasUnsavedChanges = %v", snap.Rows, snap.HasUnsavedChanges)
	}
}

// ---- Edit sessions ----

func TestService_EditAndSave(t *testing.T) {
	store := &fakeStore{records: seedWords()}
	svc := newTestService(t, store)
	snap := openSession(t, svc, ModeEdit)
	apple := rowByTerm(t, snap, "apple")

	snap, err := svc.UpdateCell(snap.ID, apple.ID, "term", "Apple")
	if err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}
	if diff := cmp.Diff([]string{apple.ID}, snap.DirtyRowIDs); diff != "" {
		t.Errorf("DirtyRowIDs mismatch (-want +got):\n%s", diff)
	}

	result, err := svc.Save(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	want := [][]grid.Record{{{"id": float64(1), "term": "Apple", "level": float64(2)}}}
	if diff := cmp.Diff(want, store.applied); diff != "" {
		t.Errorf("applied records mismatch (-want +got):\n%s", diff)
	}
	if result.Snapshot.HasUnsavedChanges || len(result.Snapshot.DirtyRowIDs) != 0 {
		t.Errorf("after save DirtyRowIDs = %v, want none", result.Snapshot.DirtyRowIDs)
	}
	if len(store.inserted) != 0 {
		t.Errorf("inserted = %v, want no inserts from an edit session", store.inserted)
	}
}

func TestService_SingleWritePath(t *testing.T) {
	store := &fakeStore{records: seedWords()}
	svc := newTestService(t, store)
	snap := openSession(t, svc, ModeEdit)

	sess, err := svc.session(snap.ID)
	if err != nil {
		t.Fatalf("session() error = %v", err)
	}
	apple := rowByTerm(t, snap, "apple")
	if _, err := svc.UpdateCell(snap.ID, apple.ID, "term", "Apple"); err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}

	sess.mu.Lock()
	err = sess.edit.ApplyChanges(context.Background())
	sess.mu.Unlock()
	if !errors.Is(err, grid.ErrNoPersistence) {
		t.Errorf("engine ApplyChanges() error = %v, want ErrNoPersistence", err)
	}
	if len(store.applied) != 0 {
		t.Errorf("applied = %v, want nothing written outside Save", store.applied)
	}
}

func TestService_EditRevertClearsDirty(t *testing.T) {
	svc := newTestService(t, &fakeStore{records: seedWords()})
	snap := openSession(t, svc, ModeEdit)
	pear := rowByTerm(t, snap, "pear")

	if _, err := svc.UpdateCell(snap.ID, pear.ID, "level", "4"); err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}
	snap, err := svc.UpdateCell(snap.ID, pear.ID, "level", "3")
	if err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}
	if snap.HasUnsavedChanges {
		t.Errorf("DirtyRowIDs = %v after reverting the edit, want none", snap.DirtyRowIDs)
	}
}

func TestService_UpdateReadOnlyCell(t *testing.T) {
	svc := newTestService(t, &fakeStore{records: seedWords()})
	snap := openSession(t, svc, ModeEdit)

	_, err := svc.UpdateCell(snap.ID, snap.Rows[0].ID, "id", "9")
	if !errors.Is(err, grid.ErrReadOnlyColumn) {
		t.Errorf("UpdateCell() error = %v, want ErrReadOnlyColumn", err)
	}
}

func TestService_EditTablePasteByIdentity(t *testing.T) {
	svc := newTestService(t, &fakeStore{records: seedWords()})
	snap := openSession(t, svc, ModeEdit)

	snap, res, err := svc.Paste(snap.ID, "id\tterm\n2\tPear\n7\tghost")
	if err != nil {
		t.Fatalf("Paste() error = %v", err)
	}
	if res.Kind != grid.PasteTable || len(res.Touched) != 1 {
		t.Errorf("PasteResult = %+v, want one touched row", res)
	}
	if len(snap.Rows) != 2 {
		t.Errorf("len(Rows) = %d, want 2 (edit paste never adds rows)", len(snap.Rows))
	}
	pear := rowByTerm(t, snap, "Pear")
	if diff := cmp.Diff([]string{pear.ID}, snap.DirtyRowIDs); diff != "" {
		t.Errorf("DirtyRowIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestService_ActiveCellPaste(t *testing.T) {
	svc := newTestService(t, &fakeStore{records: seedWords()})
	snap := openSession(t, svc, ModeEdit)
	apple := rowByTerm(t, snap, "apple")

	snap, err := svc.SetActiveCell(snap.ID, apple.ID, "term")
	if err != nil {
		t.Fatalf("SetActiveCell() error = %v", err)
	}
	if snap.ActiveCell == nil || snap.ActiveCell.RowID != apple.ID {
		t.Fatalf("ActiveCell = %v, want %s/term", snap.ActiveCell, apple.ID)
	}

	snap, res, err := svc.Paste(snap.ID, "banana")
	if err != nil {
		t.Fatalf("Paste() error = %v", err)
	}
	if res.Kind != grid.PasteSingle {
		t.Errorf("Kind = %v, want single", res.Kind)
	}
	rowByTerm(t, snap, "banana")

	snap, err = svc.ClearActiveCell(snap.ID)
	if err != nil {
		t.Fatalf("ClearActiveCell() error = %v", err)
	}
	if snap.ActiveCell != nil {
		t.Errorf("ActiveCell = %v after clear, want nil", snap.ActiveCell)
	}
}

func TestService_SaveFailureKeepsRowsDirty(t *testing.T) {
	writeErr := errors.New("duplicate key value violates unique constraint")
	store := &fakeStore{records: seedWords(), writeErr: writeErr}
	svc := newTestService(t, store)
	snap := openSession(t, svc, ModeEdit)
	apple := rowByTerm(t, snap, "apple")

	if _, err := svc.UpdateCell(snap.ID, apple.ID, "level", "5"); err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}
	_, err := svc.Save(context.Background(), snap.ID)
	if !errors.Is(err, writeErr) {
		t.Fatalf("Save() error = %v, want wrapped store error", err)
	}
	if got := MapError(err).Code; got != "DB001" {
		t.Errorf("MapError code = %q, want DB001", got)
	}

	snap, _ = svc.Snapshot(snap.ID)
	if diff := cmp.Diff([]string{apple.ID}, snap.DirtyRowIDs); diff != "" {
		t.Errorf("DirtyRowIDs mismatch (-want +got):\n%s", diff)
	}
	if snap.Saving {
		t.Error("Saving = true after a failed save")
	}

	// Retry succeeds once the store recovers.
	store.mu.Lock()
	store.writeErr = nil
	store.mu.Unlock()
	if _, err := svc.Save(context.Background(), snap.ID); err != nil {
		t.Errorf("retry Save() error = %v", err)
	}
}

func TestService_EditDuringSave(t *testing.T) {
	store := &fakeStore{
		records: seedWords(),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	svc := newTestService(t, store)
	snap := openSession(t, svc, ModeEdit)
	apple := rowByTerm(t, snap, "apple")
	pear := rowByTerm(t, snap, "pear")

	if _, err := svc.UpdateCell(snap.ID, apple.ID, "level", "4"); err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := svc.Save(context.Background(), snap.ID)
		done <- err
	}()

	select {
	case <-store.started:
	case <-time.After(time.Second):
		t.Fatal("save never reached the store")
	}

	// The session stays editable while the store call runs.
	mid, err := svc.UpdateCell(snap.ID, pear.ID, "term", "Pear")
	if err != nil {
		t.Fatalf("UpdateCell() during save error = %v", err)
	}
	if !mid.Saving {
		t.Error("Saving = false while the store call is in flight")
	}
	if _, err := svc.Save(context.Background(), snap.ID); !errors.Is(err, grid.ErrSaveInProgress) {
		t.Errorf("second Save() error = %v, want ErrSaveInProgress", err)
	}

	close(store.release)
	if err := <-done; err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	after, _ := svc.Snapshot(snap.ID)
	if diff := cmp.Diff([]string{pear.ID}, after.DirtyRowIDs); diff != "" {
		t.Errorf("DirtyRowIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestService_Refresh(t *testing.T) {
	store := &fakeStore{records: seedWords()}
	svc := newTestService(t, store)
	snap := openSession(t, svc, ModeEdit)
	apple := rowByTerm(t, snap, "apple")

	if _, err := svc.UpdateCell(snap.ID, apple.ID, "term", "Apfel"); err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}

	store.mu.Lock()
	store.records = []grid.Record{
		{"id": float64(1), "term": "apple", "level": float64(1)},
		{"id": float64(2), "term": "pear", "level": float64(5)},
		{"id": float64(3), "term": "quince", "level": float64(2)},
	}
	store.mu.Unlock()

	snap, err := svc.Refresh(context.Background(), snap.ID)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if len(snap.Rows) != 3 {
		t.Fatalf("len(Rows) = %d, want 3", len(snap.Rows))
	}
	if got := rowByTerm(t, snap, "Apfel").Cells["level"]; got != "2" {
		t.Errorf("dirty row level = %q, want the user's row untouched (%q)", got, "2")
	}
	if got := rowByTerm(t, snap, "pear").Cells["level"]; got != "5" {
		t.Errorf("clean row level = %q, want refreshed %q", got, "5")
	}
	rowByTerm(t, snap, "quince")
}

func TestService_RefreshRequiresEditSession(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	snap := openSession(t, svc, ModeCreate)

	if _, err := svc.Refresh(context.Background(), snap.ID); !errors.Is(err, ErrNotEditSession) {
		t.Errorf("Refresh() error = %v, want ErrNotEditSession", err)
	}
}

func TestService_DiscardChanges(t *testing.T) {
	svc := newTestService(t, &fakeStore{records: seedWords()})
	snap := openSession(t, svc, ModeEdit)
	apple := rowByTerm(t, snap, "apple")

	if _, err := svc.UpdateCell(snap.ID, apple.ID, "term", "Apfel"); err != nil {
		t.Fatalf("UpdateCell() error = %v", err)
	}
	snap, err := svc.Reset(snap.ID)
	if err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	rowByTerm(t, snap, "apple")
	if snap.HasUnsavedChanges {
		t.Error("HasUnsavedChanges = true after discarding")
	}
}

// ---- Session lifecycle ----

func TestService_CloseSession(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	snap := openSession(t, svc, ModeCreate)

	if err := svc.CloseSession(snap.ID); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if _, err := svc.Snapshot(snap.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Snapshot() error = %v, want ErrSessionNotFound", err)
	}
	if err := svc.CloseSession(snap.ID); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("second CloseSession() error = %v, want ErrSessionNotFound", err)
	}
}

func TestService_ListTables(t *testing.T) {
	svc := newTestService(t, &fakeStore{})
	Register(TableDefinition{
		Info:      TableInfo{Key: "cards", Group: "Quizzing"},
		Columns:   []grid.Column{{ID: "front"}},
		RowSchema: func(grid.Record) []grid.FieldError { return nil },
	})

	got := svc.ListTables()
	want := []TableInfo{
		{Key: "cards", Group: "Quizzing", Label: "cards"},
		{Key: "words", Group: "Vocabulary", Label: "Words"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ListTables() mismatch (-want +got):\n%s", diff)
	}
	if groups := svc.ListTablesByGroup(); len(groups["Quizzing"]) != 1 {
		t.Errorf("ListTablesByGroup()[Quizzing] = %v, want one table", groups["Quizzing"])
	}
}
