package core

import (
	"context"
	"sync"
	"time"

	"github.com/JonMunkholm/pastegrid/internal/grid"
)

// gridTable is what a session needs from either engine controller.
type gridTable interface {
	Columns() []grid.Column
	Rows() []grid.Row
	Version() uint64
	UpdateCell(rowID, columnID, value string) (string, error)
	HandlePaste(ev grid.PasteEvent) (grid.PasteResult, error)
	ImportData(records []grid.Record)
	SetActiveCell(rowID, columnID string)
	ClearActiveCell()
	ActiveCell() (grid.ActiveCell, bool)
	ValidationState() grid.ValidationState
	HasUnsavedChanges() bool
	IsSaveEnabled() bool
	Saving() bool
	PrepareSave() (*grid.PendingSave, error)
	FinishSave(p *grid.PendingSave, applyErr error) error
}

var (
	_ gridTable = (*grid.CreateTable)(nil)
	_ gridTable = (*grid.EditTable)(nil)
)

// Session is one user's editing state for one table. Every engine call
// happens under mu; the engine itself does no locking.
type Session struct {
	ID   string
	Def  TableDefinition
	Mode Mode

	mu       sync.Mutex
	table    gridTable
	create   *grid.CreateTable // set in ModeCreate
	edit     *grid.EditTable   // set in ModeEdit
	lastUsed time.Time
}

// persist returns the store call matching the session mode. It is the only
// write path; the engine tables are opened without persistence functions.
func (s *Session) persist(store Store) func(context.Context, TableDefinition, []grid.Record) error {
	if s.Mode == ModeEdit {
		return store.Apply
	}
	return store.Insert
}

// reset restores the session's starting rows. Caller holds mu.
func (s *Session) reset() {
	if s.edit != nil {
		s.edit.DiscardChanges()
		return
	}
	s.create.ResetTable()
}

func (s *Session) dirtyRowIDs() []string {
	if s.edit != nil {
		return s.edit.DirtyRowIDs()
	}
	return []string{}
}

// snapshot captures the session. Caller holds mu.
func (s *Session) snapshot() SessionSnapshot {
	snap := SessionSnapshot{
		ID:                s.ID,
		Table:             s.Def.Info,
		Mode:              s.Mode,
		Version:           s.table.Version(),
		Columns:           columnViews(s.table.Columns()),
		Rows:              s.table.Rows(),
		Validation:        s.table.ValidationState(),
		DirtyRowIDs:       s.dirtyRowIDs(),
		HasUnsavedChanges: s.table.HasUnsavedChanges(),
		SaveEnabled:       s.table.IsSaveEnabled(),
		Saving:            s.table.Saving(),
	}
	if ac, ok := s.table.ActiveCell(); ok {
		snap.ActiveCell = &ac
	}
	return snap
}

func (s *Session) touch(now time.Time) {
	s.lastUsed = now
}
