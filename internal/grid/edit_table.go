package grid

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
)

// EditConfig configures an EditTable.
type EditConfig struct {
	Columns   []Column
	RowSchema RowSchema

	// IdentityColumn names the column holding the numeric domain id. It is
	// used to match rows to the baseline when row ids differ and to merge
	// table-scoped pastes. May be empty, in which case table-scoped pastes fail
	// and refreshed records are matched to the previous baseline by position.
	IdentityColumn string

	Apply  ApplyFunc
	Logger *slog.Logger
}

// EditTable bulk-edits existing records against a clean baseline.
type EditTable struct {
	table
	identity string
	apply    ApplyFunc
	baseline []Row
	dirty    *DirtyTracker
}

// NewEditTable returns a table showing source.
func NewEditTable(cfg EditConfig, source []Record) (*EditTable, error) {
	base, err := newTable(cfg.Columns, cfg.RowSchema, false, cfg.Logger)
	if err != nil {
		return nil, err
	}
	if cfg.IdentityColumn != "" {
		if _, ok := base.rows.Column(cfg.IdentityColumn); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownIdentity, cfg.IdentityColumn)
		}
	}

	t := &EditTable{
		table:    base,
		identity: cfg.IdentityColumn,
		apply:    cfg.Apply,
		dirty:    NewDirtyTracker(),
	}
	t.baseline = MapDomainToRows(source, cfg.Columns)
	t.rows.Reset(t.baseline)
	return t, nil
}

// IdentityColumn returns the configured identity column id.
func (t *EditTable) IdentityColumn() string { return t.identity }

// Baseline returns the clean baseline rows. Callers must not modify the result.
func (t *EditTable) Baseline() []Row { return t.baseline }

// refreshDirty recomputes the dirty flag of each row id against the baseline.
func (t *EditTable) refreshDirty(ids ...string) {
	for _, id := range ids {
		row, ok := t.rows.Row(id)
		if !ok {
			t.dirty.ClearDirtyRows(id)
			continue
		}
		bi := MatchBaseline(row, t.baseline, t.identity)
		if bi >= 0 && maps.Equal(row.Cells, t.baseline[bi].Cells) {
			t.dirty.ClearDirtyRows(id)
			continue
		}
		t.dirty.MarkRowDirty(id)
	}
}

func (t *EditTable) allRowIDs() []string {
	rows := t.rows.Rows()
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// UpdateCell writes one cell. Editing a row back to its baseline values
// clears its dirty flag.
func (t *EditTable) UpdateCell(rowID, columnID, value string) (string, error) {
	id, err := t.rows.UpdateCell(rowID, columnID, value)
	if err != nil {
		return "", err
	}
	t.refreshDirty(id)
	return id, nil
}

// HandlePaste applies clipboard text. It never adds rows.
func (t *EditTable) HandlePaste(ev PasteEvent) (PasteResult, error) {
	res, err := t.paste.PasteEdit(t.rows, ev, t.identity)
	if err != nil {
		return res, err
	}
	t.refreshDirty(res.Touched...)
	for _, id := range res.IdentityChanged {
		t.dirty.MarkRowDirty(id)
	}
	t.logger.Debug("paste applied", "mode", "edit", "kind", res.Kind.String(),
		"touched", len(res.Touched), "identity_changed", len(res.IdentityChanged))
	return res, nil
}

// SetSource installs refreshed source records as the new baseline. Clean
// rows take the new values; dirty rows are left untouched, and any dirty row
// that now equals its baseline entry is cleared.
func (t *EditTable) SetSource(records []Record) ReconcileStats {
	t.baseline = t.stableIDs(records, MapDomainToRows(records, t.Columns()))
	rows, stats := Reconcile(t.rows.Rows(), t.baseline, t.dirty, t.identity)
	t.rows.Replace(rows)
	t.refreshDirty(t.dirty.IDs()...)

	t.logger.Debug("baseline refreshed",
		"refreshed", stats.Refreshed,
		"protected", stats.Protected,
		"appended", stats.Appended,
		"dirty", t.dirty.Len(),
	)
	return stats
}

// stableIDs gives refreshed baseline rows the ids of the previous baseline
// entries at the same position when there is no identity column to match on.
// Records carrying their own RowIDKey keep it.
func (t *EditTable) stableIDs(records []Record, rows []Row) []Row {
	if t.identity != "" {
		return rows
	}
	for i := range rows {
		if i >= len(t.baseline) {
			break
		}
		if _, ok := records[i][RowIDKey].(string); ok {
			continue
		}
		rows[i].ID = t.baseline[i].ID
	}
	return rows
}

// DiscardChanges restores the baseline and clears every dirty flag.
func (t *EditTable) DiscardChanges() {
	t.rows.Reset(t.baseline)
	t.dirty.ClearAllDirty()
	t.paste.ClearActiveCell()
}

// ImportData replaces all rows with records and recomputes dirtiness
// against the current baseline.
func (t *EditTable) ImportData(records []Record) {
	t.rows.Replace(MapDomainToRows(records, t.Columns()))
	t.dirty.ClearAllDirty()
	t.paste.ClearActiveCell()
	t.refreshDirty(t.allRowIDs()...)
}

// HasUnsavedChanges reports whether any row is dirty.
func (t *EditTable) HasUnsavedChanges() bool { return t.dirty.Len() > 0 }

// IsSaveEnabled reports whether ApplyChanges would be attempted.
func (t *EditTable) IsSaveEnabled() bool {
	return !t.saving && t.dirty.Len() > 0 && t.ValidationState().IsValid
}

// DirtyRowIDs returns the dirty row ids, sorted.
func (t *EditTable) DirtyRowIDs() []string { return t.dirty.IDs() }

// IsDirty reports whether the row is dirty.
func (t *EditTable) IsDirty(rowID string) bool { return t.dirty.IsDirty(rowID) }

// PrepareSave validates the table and maps the dirty rows, in row order, to
// partial records.
func (t *EditTable) PrepareSave() (*PendingSave, error) {
	if err := t.beginSave(); err != nil {
		return nil, err
	}
	if t.dirty.Len() == 0 {
		return nil, ErrNothingToSave
	}
	if state := t.ValidationState(); !state.IsValid {
		return nil, &RowValidationError{Errors: state.Errors}
	}

	p := &PendingSave{}
	for _, row := range t.rows.Rows() {
		if !t.dirty.IsDirty(row.ID) {
			continue
		}
		p.rows = append(p.rows, row)
		p.RowIDs = append(p.RowIDs, row.ID)
		p.Records = append(p.Records, MapRowToDomain(row, t.Columns()))
	}
	t.saving = true
	return p, nil
}

// FinishSave ends a save. On success the saved snapshots become baseline
// entries, so rows not edited during the save turn clean. On failure every
// row stays dirty.
func (t *EditTable) FinishSave(p *PendingSave, applyErr error) error {
	if err := t.endSave(p, applyErr); err != nil {
		return err
	}

	next := make([]Row, len(t.baseline), len(t.baseline)+len(p.rows))
	copy(next, t.baseline)
	for _, saved := range p.rows {
		entry := saved.Clone()
		if bi := MatchBaseline(saved, next, t.identity); bi >= 0 {
			entry.ID = next[bi].ID
			next[bi] = entry
			continue
		}
		next = append(next, entry)
	}
	t.baseline = next
	t.refreshDirty(p.RowIDs...)
	return nil
}

// ApplyChanges validates, hands the dirty rows' partial records to the apply
// function and reconciles the result. On failure the rows stay dirty and the
// error is returned; no retry is attempted.
func (t *EditTable) ApplyChanges(ctx context.Context) error {
	if t.apply == nil {
		return ErrNoPersistence
	}
	p, err := t.PrepareSave()
	if err != nil {
		return err
	}
	return t.FinishSave(p, t.apply(ctx, p.Records))
}
