package grid

// validation.go checks rows before they leave the engine.
//
// Validation happens at two levels:
//  1. Cell rules: required, type, bounds, options, then the column's custom
//     Validate func. The first failing rule wins.
//  2. Schemas: the column's FieldSchema on its converted value, and the
//     table's RowSchema on the whole mapped record.
//
// Errors are keyed by row id then column id. The state is always recomputed
// from rows and never cached.

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// FieldSchema validates one converted cell value. value is nil when the
// cell is absent.
type FieldSchema func(value any) error

// RowSchema validates a mapped record and returns one error per failing field.
// Errors with an empty or unknown Field are attributed to RowErrorKey.
type RowSchema func(rec Record) []FieldError

// FieldError is a single row-schema failure.
type FieldError struct {
	Field   string
	Message string
}

// ValidationState is the validity of a table. Errors maps row id to column id
// to message.
type ValidationState struct {
	IsValid bool                         `json:"isValid"`
	Errors  map[string]map[string]string `json:"errors"`
}

// ErrorCount returns the number of failing cells.
func (s ValidationState) ErrorCount() int {
	n := 0
	for _, cols := range s.Errors {
		n += len(cols)
	}
	return n
}

// RowValidationError is returned when a save is blocked by invalid rows.
type RowValidationError struct {
	Errors map[string]map[string]string
}

func (e *RowValidationError) Error() string {
	ids := make([]string, 0, len(e.Errors))
	for id := range e.Errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return fmt.Sprintf("%s: %d row(s) invalid (%s)", ErrInvalidRows, len(ids), strings.Join(ids, ", "))
}

func (e *RowValidationError) Unwrap() error {
	return ErrInvalidRows
}

// ValidateCell checks a canonical cell string against the column's rules.
// Returns nil if valid.
func ValidateCell(value string, col Column) error {
	s := strings.TrimSpace(value)
	if s == "" {
		if col.Required {
			return errors.New("required field is empty")
		}
		return nil
	}

	switch col.Type {
	case CellNumber:
		f, ok := parseNumber(s)
		if !ok {
			return errors.New("invalid number format")
		}
		if col.Min != nil && f < *col.Min {
			return fmt.Errorf("must be at least %s", formatNumber(*col.Min))
		}
		if col.Max != nil && f > *col.Max {
			return fmt.Errorf("must be at most %s", formatNumber(*col.Max))
		}
	case CellBoolean:
		if _, ok := parseBool(s); !ok {
			return errors.New("must be yes/no, true/false, or 1/0")
		}
	case CellDate:
		if _, ok := parseDate(s, col.Date); !ok {
			return fmt.Errorf("invalid date format (use %s)", col.Date.display())
		}
	case CellSelect:
		if len(col.Options) > 0 && !hasOption(s, col.Options) {
			return fmt.Errorf("value must be one of: %s", strings.Join(col.Options, ", "))
		}
	case CellMultiSelect:
		if len(col.Options) > 0 {
			for _, part := range splitMulti(s, col) {
				if !hasOption(part, col.Options) {
					return fmt.Errorf("invalid option %q (allowed: %s)", part, strings.Join(col.Options, ", "))
				}
			}
		}
	case CellText, CellReadOnly:
	}

	if col.Validate != nil {
		return col.Validate(value)
	}
	return nil
}

func hasOption(s string, options []string) bool {
	for _, opt := range options {
		if strings.EqualFold(opt, s) {
			return true
		}
	}
	return false
}

// Validator composes cell rules, column schemas and a row schema.
type Validator struct {
	columns   []Column
	known     map[string]bool
	rowSchema RowSchema
}

// NewValidator fails with ErrNoSchema unless at least one column has a
// Schema or rowSchema is set.
func NewValidator(cols []Column, rowSchema RowSchema) (*Validator, error) {
	hasSchema := rowSchema != nil
	known := make(map[string]bool, len(cols))
	for _, c := range cols {
		known[c.ID] = true
		if c.Schema != nil {
			hasSchema = true
		}
	}
	if !hasSchema {
		return nil, ErrNoSchema
	}
	return &Validator{columns: cols, known: known, rowSchema: rowSchema}, nil
}

// ValidateRow returns column id to message for every failing cell of row.
// It returns nil for a valid row.
func (v *Validator) ValidateRow(row Row) map[string]string {
	rec := MapRowToDomain(row, v.columns)
	errs := make(map[string]string)

	for _, col := range v.columns {
		if err := ValidateCell(row.Cells[col.ID], col); err != nil {
			errs[col.ID] = err.Error()
			continue
		}
		if col.Schema != nil {
			if err := col.Schema(rec[col.ID]); err != nil {
				errs[col.ID] = err.Error()
			}
		}
	}

	if v.rowSchema != nil {
		for _, fe := range v.rowSchema(rec) {
			key := fe.Field
			if !v.known[key] {
				key = RowErrorKey
			}
			if _, exists := errs[key]; exists {
				continue
			}
			errs[key] = fe.Message
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ComputeState validates rows, skipping any id in exclude.
func (v *Validator) ComputeState(rows []Row, exclude ...string) ValidationState {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	errs := make(map[string]map[string]string)
	for _, row := range rows {
		if skip[row.ID] {
			continue
		}
		if rowErrs := v.ValidateRow(row); rowErrs != nil {
			errs[row.ID] = rowErrs
		}
	}
	return ValidationState{IsValid: len(errs) == 0, Errors: errs}
}
