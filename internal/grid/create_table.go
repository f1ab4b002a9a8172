package grid

import (
	"context"
	"log/slog"
	"maps"
)

// CreateConfig configures a CreateTable.
type CreateConfig struct {
	Columns   []Column
	RowSchema RowSchema
	Insert    ApplyFunc // Optional; SaveData only returns records when nil
	Logger    *slog.Logger
}

// CreateTable builds new records. Its rows always end with one ghost row.
type CreateTable struct {
	table
	insert  ApplyFunc
	initial []Row
}

// NewCreateTable returns a table seeded with initial (may be empty). It fails
// with ErrNoSchema when neither a column schema nor a row schema is configured.
func NewCreateTable(cfg CreateConfig, initial []Record) (*CreateTable, error) {
	base, err := newTable(cfg.Columns, cfg.RowSchema, true, cfg.Logger)
	if err != nil {
		return nil, err
	}
	t := &CreateTable{table: base, insert: cfg.Insert}
	if len(initial) > 0 {
		t.initial = MapDomainToRows(initial, cfg.Columns)
		t.rows.Reset(t.initial)
	}
	return t, nil
}

// UpdateCell writes one cell and returns the written row's id, which differs
// from rowID when the ghost row was promoted.
func (t *CreateTable) UpdateCell(rowID, columnID, value string) (string, error) {
	return t.rows.UpdateCell(rowID, columnID, value)
}

// HandlePaste applies clipboard text at the active cell or table-wide.
func (t *CreateTable) HandlePaste(ev PasteEvent) (PasteResult, error) {
	res, err := t.paste.PasteCreate(t.rows, ev)
	if err != nil {
		return res, err
	}
	t.logger.Debug("paste applied", "mode", "create", "kind", res.Kind.String(),
		"touched", len(res.Touched), "created", res.Created)
	return res, nil
}

// ResetTable discards every row, leaving only a fresh ghost row.
func (t *CreateTable) ResetTable() {
	t.rows.Replace(nil)
	t.paste.ClearActiveCell()
	t.initial = nil
}

// ImportData replaces all rows with records.
func (t *CreateTable) ImportData(records []Record) {
	t.rows.Replace(MapDomainToRows(records, t.Columns()))
	t.paste.ClearActiveCell()
}

// HasUnsavedChanges reports whether the data rows differ from the initial snapshot.
func (t *CreateTable) HasUnsavedChanges() bool {
	data := t.rows.DataRows()
	if len(data) != len(t.initial) {
		return true
	}
	for i := range data {
		if !maps.Equal(data[i].Cells, t.initial[i].Cells) {
			return true
		}
	}
	return false
}

// IsSaveEnabled reports whether SaveData would be attempted.
func (t *CreateTable) IsSaveEnabled() bool {
	return !t.saving && len(t.rows.DataRows()) > 0 && t.ValidationState().IsValid
}

// PrepareSave validates and maps every data row and marks the table as saving.
func (t *CreateTable) PrepareSave() (*PendingSave, error) {
	if err := t.beginSave(); err != nil {
		return nil, err
	}
	data := t.rows.DataRows()
	if len(data) == 0 {
		return nil, ErrNothingToSave
	}
	recs, err := MapRowsToDomainValidated(t.rows.Rows(), t.validator)
	if err != nil {
		return nil, err
	}

	p := &PendingSave{Records: recs}
	for _, row := range data {
		p.RowIDs = append(p.RowIDs, row.ID)
		p.rows = append(p.rows, row)
	}
	t.saving = true
	return p, nil
}

// FinishSave ends a save. On success the saved rows are removed; rows added
// while the save was in flight stay. On failure nothing changes.
func (t *CreateTable) FinishSave(p *PendingSave, applyErr error) error {
	if err := t.endSave(p, applyErr); err != nil {
		return err
	}
	saved := make(map[string]bool, len(p.RowIDs))
	for _, id := range p.RowIDs {
		saved[id] = true
	}
	keep := make([]Row, 0)
	for _, row := range t.rows.DataRows() {
		if !saved[row.ID] {
			keep = append(keep, row)
		}
	}
	t.rows.Replace(keep)
	t.paste.ClearActiveCell()
	t.initial = nil
	return nil
}

// SaveData validates, maps and (when configured) inserts every data row, then
// clears them from the table. It returns the saved records.
func (t *CreateTable) SaveData(ctx context.Context) ([]Record, error) {
	p, err := t.PrepareSave()
	if err != nil {
		return nil, err
	}
	var applyErr error
	if t.insert != nil {
		applyErr = t.insert(ctx, p.Records)
	}
	if err := t.FinishSave(p, applyErr); err != nil {
		return nil, err
	}
	return p.Records, nil
}
