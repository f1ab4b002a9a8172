package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/pastegrid/internal/grid"
)

// Mode selects the editing workflow of a session.
type Mode string

const (
	ModeCreate Mode = "create" // Build new records, ghost row at the end
	ModeEdit   Mode = "edit"   // Bulk-edit existing records
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCreate:
		return ModeCreate, nil
	case ModeEdit:
		return ModeEdit, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// TableInfo contains display information about a table.
type TableInfo struct {
	Key   string `json:"key"`   // Unique identifier: "vocabulary"
	Group string `json:"group"` // Menu group: "Vocabulary", "Quizzing"
	Label string `json:"label"` // Display name: "Words"
}

// TableDefinition contains everything needed to edit a table.
type TableDefinition struct {
	Info      TableInfo
	Columns   []grid.Column
	RowSchema grid.RowSchema

	// IdentityColumn is the numeric primary key column. Edit sessions match
	// rows by it; create sessions leave it out so the database assigns it.
	IdentityColumn string

	DBTable   string
	DBColumns map[string]string // Column id -> database column, when not derivable
}

// DBColumn returns the database column for a column id.
func (t TableDefinition) DBColumn(id string) string {
	if c, ok := t.DBColumns[id]; ok && c != "" {
		return c
	}
	return toDBColumnName(id)
}

// Column returns the column definition with id.
func (t TableDefinition) Column(id string) (grid.Column, bool) {
	for _, c := range t.Columns {
		if c.ID == id {
			return c, true
		}
	}
	return grid.Column{}, false
}

// CreateColumns returns the columns shown when creating records: every
// column except the identity column.
func (t TableDefinition) CreateColumns() []grid.Column {
	cols := make([]grid.Column, 0, len(t.Columns))
	for _, c := range t.Columns {
		if c.ID == t.IdentityColumn {
			continue
		}
		cols = append(cols, c)
	}
	return cols
}

// toDBColumnName converts a column id to a database column name.
// "Next Review" -> "next_review"
// "part_of_speech" -> "part_of_speech" (no change if already snake_case)
func toDBColumnName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// Store loads and persists records for a table.
type Store interface {
	// Load returns the current records, ordered by identity.
	Load(ctx context.Context, def TableDefinition) ([]grid.Record, error)
	// Apply writes partial records; each must carry the identity value.
	Apply(ctx context.Context, def TableDefinition, records []grid.Record) error
	// Insert creates new records.
	Insert(ctx context.Context, def TableDefinition, records []grid.Record) error
}

// GridDefaults fill column formats that a table definition leaves unset.
type GridDefaults struct {
	DateLayout    string
	BoolFormat    grid.BoolFormat
	Separator     string
	MaxPasteBytes int
}

// apply returns a copy of cols with unset formats filled in.
func (d GridDefaults) apply(cols []grid.Column) []grid.Column {
	out := make([]grid.Column, len(cols))
	for i, c := range cols {
		switch c.Type {
		case grid.CellDate:
			if c.Date.Display == "" {
				c.Date.Display = d.DateLayout
			}
		case grid.CellBoolean:
			if c.BoolFormat == "" {
				c.BoolFormat = d.BoolFormat
			}
		case grid.CellMultiSelect:
			if c.Separator == "" {
				c.Separator = d.Separator
			}
		}
		out[i] = c
	}
	return out
}

// ColumnView is the serializable part of a column definition.
type ColumnView struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Type     grid.CellType `json:"type"`
	Required bool          `json:"required"`
	Editable bool          `json:"editable"`
	Options  []string      `json:"options,omitempty"`
	Min      *float64      `json:"min,omitempty"`
	Max      *float64      `json:"max,omitempty"`
}

func columnViews(cols []grid.Column) []ColumnView {
	views := make([]ColumnView, len(cols))
	for i, c := range cols {
		views[i] = ColumnView{
			ID:       c.ID,
			Label:    c.DisplayLabel(),
			Type:     c.Type,
			Required: c.Required,
			Editable: c.Editable(),
			Options:  c.Options,
			Min:      c.Min,
			Max:      c.Max,
		}
	}
	return views
}

// SessionSnapshot is a consistent view of one session.
type SessionSnapshot struct {
	ID                string               `json:"id"`
	Table             TableInfo            `json:"table"`
	Mode              Mode                 `json:"mode"`
	Version           uint64               `json:"version"`
	Columns           []ColumnView         `json:"columns"`
	Rows              []grid.Row           `json:"rows"`
	Validation        grid.ValidationState `json:"validation"`
	DirtyRowIDs       []string             `json:"dirtyRowIds"`
	ActiveCell        *grid.ActiveCell     `json:"activeCell,omitempty"`
	HasUnsavedChanges bool                 `json:"hasUnsavedChanges"`
	SaveEnabled       bool                 `json:"saveEnabled"`
	Saving            bool                 `json:"saving"`
}

// SaveResult reports a completed save.
type SaveResult struct {
	Saved    int             `json:"saved"`
	Snapshot SessionSnapshot `json:"snapshot"`
}
