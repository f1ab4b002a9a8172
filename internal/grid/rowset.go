package grid

import (
	"fmt"
	"strings"
)

// RowSet owns the mutable row list of one table.
//
// Mutations are copy-on-write: the slice and the touched row are replaced,
// so a slice previously returned by Rows is never modified. Version is bumped
// on every change.
//
// With a ghost row enabled the list always ends with exactly one row whose id
// is GhostRowID.
type RowSet struct {
	columns  []Column
	colIndex map[string]int
	rows     []Row
	ghost    bool
	version  uint64
}

// NewRowSet returns an empty row set, holding just a ghost row when ghost is true.
func NewRowSet(cols []Column, ghost bool) *RowSet {
	idx := make(map[string]int, len(cols))
	for i, c := range cols {
		idx[c.ID] = i
	}
	rs := &RowSet{columns: cols, colIndex: idx, ghost: ghost}
	rs.Replace(nil)
	return rs
}

// Columns returns the column definitions.
func (rs *RowSet) Columns() []Column { return rs.columns }

// Rows returns the current rows. Callers must not modify the result.
func (rs *RowSet) Rows() []Row { return rs.rows }

// Len returns the number of rows, ghost included.
func (rs *RowSet) Len() int { return len(rs.rows) }

// Version increases on every mutation.
func (rs *RowSet) Version() uint64 { return rs.version }

// HasGhost reports whether the set keeps a trailing ghost row.
func (rs *RowSet) HasGhost() bool { return rs.ghost }

// DataRows returns the rows without the ghost row.
func (rs *RowSet) DataRows() []Row {
	if rs.ghost && len(rs.rows) > 0 {
		return rs.rows[:len(rs.rows)-1]
	}
	return rs.rows
}

// IndexOf returns the position of the row with id, or -1.
func (rs *RowSet) IndexOf(id string) int {
	for i, r := range rs.rows {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// Row returns the row with id.
func (rs *RowSet) Row(id string) (Row, bool) {
	if i := rs.IndexOf(id); i >= 0 {
		return rs.rows[i], true
	}
	return Row{}, false
}

// Column returns the column definition with id.
func (rs *RowSet) Column(id string) (Column, bool) {
	i, ok := rs.colIndex[id]
	if !ok {
		return Column{}, false
	}
	return rs.columns[i], true
}

func (rs *RowSet) columnIndex(id string) int {
	if i, ok := rs.colIndex[id]; ok {
		return i
	}
	return -1
}

// UpdateCell normalizes value and writes it to one cell. It returns the id of
// the written row: writing a non-blank value into the ghost row turns it into
// a real row with a fresh id and appends a new ghost row.
func (rs *RowSet) UpdateCell(rowID, columnID, value string) (string, error) {
	idx := rs.IndexOf(rowID)
	if idx < 0 {
		return "", fmt.Errorf("%w: %s", ErrRowNotFound, rowID)
	}
	col, ok := rs.Column(columnID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}
	if !col.Editable() {
		return "", fmt.Errorf("%w: %s", ErrReadOnlyColumn, columnID)
	}

	v := Normalize(value, col)
	row := rs.rows[idx]

	if row.IsGhost() {
		if strings.TrimSpace(v) == "" {
			return GhostRowID, nil
		}
		promoted := row.Clone()
		promoted.ID = newRowID()
		promoted.Cells[columnID] = v

		next := make([]Row, 0, len(rs.rows)+1)
		next = append(next, rs.rows[:idx]...)
		next = append(next, promoted)
		next = append(next, rs.rows[idx+1:]...)
		rs.Replace(next)
		return promoted.ID, nil
	}

	if row.Cells[columnID] == v {
		return rowID, nil
	}

	updated := row.Clone()
	updated.Cells[columnID] = v
	rs.setRow(idx, updated)
	return rowID, nil
}

// setRow replaces the row at idx without touching other rows.
func (rs *RowSet) setRow(idx int, row Row) {
	next := make([]Row, len(rs.rows))
	copy(next, rs.rows)
	next[idx] = row
	rs.rows = next
	rs.version++
}

// Replace installs rows as the new list. Ghost rows in rows are dropped and,
// for ghost sets, one fresh ghost row is appended. Missing cells are filled
// with empty strings.
func (rs *RowSet) Replace(rows []Row) {
	next := make([]Row, 0, len(rows)+1)
	for _, r := range rows {
		if r.IsGhost() {
			continue
		}
		next = append(next, rs.complete(r))
	}
	if rs.ghost {
		next = append(next, NewBlankRow(GhostRowID, rs.columns))
	}
	rs.rows = next
	rs.version++
}

// Reset discards all rows and installs a copy of baseline.
func (rs *RowSet) Reset(baseline []Row) {
	rows := make([]Row, len(baseline))
	for i, r := range baseline {
		rows[i] = r.Clone()
	}
	rs.Replace(rows)
}

// complete ensures every column has a cell.
func (rs *RowSet) complete(r Row) Row {
	if len(r.Cells) >= len(rs.columns) {
		missing := false
		for _, c := range rs.columns {
			if _, ok := r.Cells[c.ID]; !ok {
				missing = true
				break
			}
		}
		if !missing {
			return r
		}
	}
	out := r.Clone()
	if out.Cells == nil {
		out.Cells = make(map[string]string, len(rs.columns))
	}
	for _, c := range rs.columns {
		if _, ok := out.Cells[c.ID]; !ok {
			out.Cells[c.ID] = ""
		}
	}
	return out
}
