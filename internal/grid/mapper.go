package grid

import (
	"github.com/google/uuid"
)

// RowIDKey is the record key carrying a row id through domain round-trips.
const RowIDKey = "_rowId"

// newRowID generates row identities. Tests may replace it.
var newRowID = func() string {
	return uuid.NewString()
}

// MapDomainToRow flattens a record into a grid row. Missing and nil fields
// become empty cells. The record's RowIDKey is reused when present.
func MapDomainToRow(rec Record, cols []Column) Row {
	id, _ := rec[RowIDKey].(string)
	if id == "" {
		id = newRowID()
	}

	cells := make(map[string]string, len(cols))
	for _, col := range cols {
		v, ok := rec[col.ID]
		if !ok || v == nil {
			cells[col.ID] = ""
			continue
		}
		cells[col.ID] = ToCellString(v, col)
	}
	return Row{ID: id, Cells: cells}
}

// MapRowToDomain parses a row into a partial record. Keys whose converted
// value is nil are omitted so untouched domain fields are not overwritten.
func MapRowToDomain(row Row, cols []Column) Record {
	rec := make(Record, len(cols))
	for _, col := range cols {
		v := ToDomainValue(row.Cells[col.ID], col)
		if v == nil {
			continue
		}
		rec[col.ID] = v
	}
	return rec
}

// MapDomainToRows maps a batch of records.
func MapDomainToRows(recs []Record, cols []Column) []Row {
	rows := make([]Row, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, MapDomainToRow(rec, cols))
	}
	return rows
}

// MapRowsToDomain maps a batch of rows, skipping the ghost row.
func MapRowsToDomain(rows []Row, cols []Column) []Record {
	recs := make([]Record, 0, len(rows))
	for _, row := range rows {
		if row.IsGhost() {
			continue
		}
		recs = append(recs, MapRowToDomain(row, cols))
	}
	return recs
}

// MapRowsToDomainValidated maps rows after checking them with v. It fails
// with a *RowValidationError when any non-ghost row is invalid.
func MapRowsToDomainValidated(rows []Row, v *Validator) ([]Record, error) {
	state := v.ComputeState(rows, GhostRowID)
	if !state.IsValid {
		return nil, &RowValidationError{Errors: state.Errors}
	}
	return MapRowsToDomain(rows, v.columns), nil
}
