// Package grid implements the tabular paste-editing engine.
//
// A table is a list of rows whose cells are always canonical strings. Typed
// access goes through the mapper (MapDomainToRow / MapRowToDomain), so every
// other component can compare, diff and paste plain strings.
//
// # Workflows
//
// Two controllers compose the engine:
//
//   - [CreateTable] builds new records. The table always ends with a single
//     ghost row; editing or pasting into it turns it into a real row and a new
//     ghost row is appended.
//   - [EditTable] bulk-edits existing records. Rows are compared against a
//     clean baseline built from the source records; changed rows are tracked
//     as dirty and survive baseline refreshes untouched.
//
// # Paste
//
// Clipboard text is parsed as CSV or TSV ([DetectDelimiter]). With an active
// cell the paste is anchored there (single value or block); without one the
// first row may be a header ([DetectHeaderRow]) and rows are merged wholesale.
//
// The engine is synchronous and does no locking. Callers that share a table
// across goroutines must serialize access themselves.
package grid

import (
	"context"
	"errors"
	"fmt"
	"maps"
)

// GhostRowID is the fixed id of the trailing placeholder row in create tables.
const GhostRowID = "__ghost__"

// RowErrorKey is the column key used for row-level validation errors that
// cannot be attributed to a single column.
const RowErrorKey = "_row"

var (
	ErrNoSchema        = errors.New("no column schema or row schema configured")
	ErrDuplicateColumn = errors.New("duplicate column id")
	ErrUnknownIdentity = errors.New("identity column not found")
	ErrRowNotFound     = errors.New("row not found")
	ErrColumnNotFound  = errors.New("column not found")
	ErrReadOnlyColumn  = errors.New("column is read-only")
	ErrInvalidRows     = errors.New("rows failed validation")
	ErrNothingToSave   = errors.New("no unsaved changes")
	ErrSaveInProgress  = errors.New("save already in progress")
	ErrNoPersistence   = errors.New("no apply function configured")
)

// CellType identifies how a column's canonical string is parsed and validated.
type CellType int

const (
	CellText CellType = iota
	CellNumber
	CellBoolean
	CellDate
	CellSelect
	CellMultiSelect
	CellReadOnly
)

func (t CellType) String() string {
	switch t {
	case CellText:
		return "text"
	case CellNumber:
		return "number"
	case CellBoolean:
		return "boolean"
	case CellDate:
		return "date"
	case CellSelect:
		return "select"
	case CellMultiSelect:
		return "multi-select"
	case CellReadOnly:
		return "read-only"
	default:
		return "unknown"
	}
}

// MarshalText encodes the type by name for JSON snapshots.
func (t CellType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// BoolFormat selects the canonical spelling of boolean cells.
type BoolFormat string

const (
	BoolAuto      BoolFormat = "auto"
	BoolTrueFalse BoolFormat = "true-false"
	BoolYesNo     BoolFormat = "yes-no"
	BoolOneZero   BoolFormat = "1-0"
	BoolYN        BoolFormat = "y-n"
)

// DateFormats holds Go time layouts for a date column.
type DateFormats struct {
	Display string   // Canonical cell layout (default "2006-01-02")
	Input   []string // Extra layouts accepted when parsing cells
	Output  string   // If set, domain values are strings in this layout instead of time.Time
}

// DefaultDateLayout is the canonical ISO date layout.
const DefaultDateLayout = "2006-01-02"

func (d DateFormats) display() string {
	if d.Display == "" {
		return DefaultDateLayout
	}
	return d.Display
}

// DefaultSeparator joins multi-select values.
const DefaultSeparator = ","

// Column defines one field of a table. ID must be unique within the table and
// Type must not change once the column is in use.
type Column struct {
	ID       string
	Label    string
	Type     CellType
	Required bool
	ReadOnly bool

	Min *float64 // CellNumber lower bound
	Max *float64 // CellNumber upper bound

	BoolFormat BoolFormat
	Date       DateFormats
	Options    []string // CellSelect / CellMultiSelect
	Separator  string   // CellMultiSelect (default ",")

	// Validate is a custom rule run on the canonical string after the built-in checks.
	Validate func(value string) error

	// Schema validates the column's converted value; nil is passed for absent cells.
	Schema FieldSchema
}

// Editable reports whether paste and cell edits may write to the column.
func (c Column) Editable() bool {
	return !c.ReadOnly && c.Type != CellReadOnly
}

// DisplayLabel returns Label, falling back to ID.
func (c Column) DisplayLabel() string {
	if c.Label != "" {
		return c.Label
	}
	return c.ID
}

func (c Column) separator() string {
	if c.Separator == "" {
		return DefaultSeparator
	}
	return c.Separator
}

// Bound returns a pointer for Column.Min / Column.Max.
func Bound(v float64) *float64 {
	return &v
}

// Row is one grid row. Cells holds an entry for every column.
type Row struct {
	ID    string            `json:"id"`
	Cells map[string]string `json:"cells"`
}

// IsGhost reports whether r is the create-mode placeholder row.
func (r Row) IsGhost() bool {
	return r.ID == GhostRowID
}

// Clone returns a copy with its own cell map.
func (r Row) Clone() Row {
	return Row{ID: r.ID, Cells: maps.Clone(r.Cells)}
}

// Blank reports whether every cell is empty.
func (r Row) Blank() bool {
	for _, v := range r.Cells {
		if v != "" {
			return false
		}
	}
	return true
}

// NewBlankRow returns a row with an empty cell for every column.
func NewBlankRow(id string, cols []Column) Row {
	cells := make(map[string]string, len(cols))
	for _, c := range cols {
		cells[c.ID] = ""
	}
	return Row{ID: id, Cells: cells}
}

// Record is a typed domain entity keyed by column id.
type Record map[string]any

// ApplyFunc persists mapped records. It is the engine's only outbound call.
type ApplyFunc func(ctx context.Context, records []Record) error

// ActiveCell points at the focused cell. It only routes paste events.
type ActiveCell struct {
	RowID    string `json:"rowId"`
	ColumnID string `json:"columnId"`
}

// PasteEvent carries raw clipboard text.
type PasteEvent struct {
	Text string
}

func validateColumns(cols []Column) error {
	seen := make(map[string]bool, len(cols))
	for _, c := range cols {
		if seen[c.ID] {
			return fmt.Errorf("%w: %q", ErrDuplicateColumn, c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}
