package grid

import (
	"fmt"
	"log/slog"
)

// table holds what both controllers share.
type table struct {
	rows      *RowSet
	paste     PasteCoordinator
	validator *Validator
	saving    bool
	logger    *slog.Logger
}

func newTable(cols []Column, rowSchema RowSchema, ghost bool, logger *slog.Logger) (table, error) {
	if err := validateColumns(cols); err != nil {
		return table{}, err
	}
	v, err := NewValidator(cols, rowSchema)
	if err != nil {
		return table{}, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return table{
		rows:      NewRowSet(cols, ghost),
		validator: v,
		logger:    logger,
	}, nil
}

// Columns returns the column definitions.
func (t *table) Columns() []Column { return t.rows.Columns() }

// Rows returns the current rows. The slice is replaced, never modified, on change.
func (t *table) Rows() []Row { return t.rows.Rows() }

// Version increases whenever rows change.
func (t *table) Version() uint64 { return t.rows.Version() }

// SetActiveCell records the focused cell used to anchor pastes.
func (t *table) SetActiveCell(rowID, columnID string) { t.paste.SetActiveCell(rowID, columnID) }

// ClearActiveCell makes the next paste table-scoped.
func (t *table) ClearActiveCell() { t.paste.ClearActiveCell() }

// ActiveCell returns the focused cell, if any.
func (t *table) ActiveCell() (ActiveCell, bool) { return t.paste.ActiveCell() }

// Saving reports whether a save is between PrepareSave and FinishSave.
func (t *table) Saving() bool { return t.saving }

// ValidationState validates every row except the ghost row.
func (t *table) ValidationState() ValidationState {
	return t.validator.ComputeState(t.rows.Rows(), GhostRowID)
}

// PendingSave is a save between PrepareSave and FinishSave.
type PendingSave struct {
	Records []Record // Mapped records handed to persistence
	RowIDs  []string // Source row of each record
	rows    []Row
}

func (t *table) beginSave() error {
	if t.saving {
		return ErrSaveInProgress
	}
	return nil
}

func (t *table) endSave(p *PendingSave, applyErr error) error {
	t.saving = false
	if applyErr != nil {
		t.logger.Warn("save failed, rows remain unsaved", "rows", len(p.RowIDs), "error", applyErr)
		return fmt.Errorf("apply changes: %w", applyErr)
	}
	t.logger.Debug("save applied", "rows", len(p.RowIDs))
	return nil
}
