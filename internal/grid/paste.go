package grid

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// PasteKind tells how a paste event was applied.
type PasteKind int

const (
	PasteIgnored PasteKind = iota
	PasteSingle            // plain value into the active cell
	PasteBlock             // grid anchored at the active cell
	PasteTable             // no active cell: header/positional merge
)

func (k PasteKind) String() string {
	switch k {
	case PasteSingle:
		return "single"
	case PasteBlock:
		return "block"
	case PasteTable:
		return "table"
	default:
		return "ignored"
	}
}

// PasteResult describes the rows a paste wrote to.
type PasteResult struct {
	Kind            PasteKind
	Touched         []string // Row ids whose cells changed
	IdentityChanged []string // Edit mode: rows whose identity value changed
	Created         int      // Create mode: rows added, ghost promotion included
}

// PasteCoordinator routes paste events. It owns the active cell, which is
// only used to pick the paste anchor.
type PasteCoordinator struct {
	active *ActiveCell
}

// SetActiveCell records the focused cell.
func (p *PasteCoordinator) SetActiveCell(rowID, columnID string) {
	p.active = &ActiveCell{RowID: rowID, ColumnID: columnID}
}

// ClearActiveCell forgets the focused cell; later pastes are table-scoped.
func (p *PasteCoordinator) ClearActiveCell() {
	p.active = nil
}

// ActiveCell returns the focused cell, if any.
func (p *PasteCoordinator) ActiveCell() (ActiveCell, bool) {
	if p.active == nil {
		return ActiveCell{}, false
	}
	return *p.active, true
}

// hasDelimiter reports whether text must be parsed as a block.
func hasDelimiter(text string) bool {
	return strings.ContainsAny(text, "\t\n\r,")
}

// PasteCreate applies ev to a create-mode row set. Block pastes grow the
// table past its end; the ghost row is promoted when the block reaches it.
func (p *PasteCoordinator) PasteCreate(rs *RowSet, ev PasteEvent) (PasteResult, error) {
	if ev.Text == "" {
		return PasteResult{Kind: PasteIgnored}, nil
	}
	if p.active == nil {
		return p.tablePasteCreate(rs, ev.Text), nil
	}
	if !hasDelimiter(ev.Text) {
		return p.singlePaste(rs, ev.Text)
	}

	parsed := ParseDelimited(ev.Text)
	if len(parsed) == 0 {
		return PasteResult{Kind: PasteIgnored}, nil
	}
	anchorRow, anchorCol, err := p.anchor(rs)
	if err != nil {
		return PasteResult{}, err
	}

	cols := rs.Columns()
	data := slices.Clone(rs.DataRows())
	ghostIdx := -1
	var ghostRow Row
	if rs.HasGhost() {
		ghostIdx = len(data)
		ghostRow = rs.Rows()[ghostIdx]
	}

	res := PasteResult{Kind: PasteBlock}
	promotedAnchor := ""
	ghostUsed := false

	for r, values := range parsed {
		t := anchorRow + r
		var row Row
		created := false
		fromGhost := false
		switch {
		case t < len(data):
			row = data[t].Clone()
		case t == ghostIdx && !ghostUsed:
			row = ghostRow.Clone()
			row.ID = newRowID()
			created, fromGhost = true, true
		default:
			row = NewBlankRow(newRowID(), cols)
			created = true
		}

		if !writeCells(row, values, cols, anchorCol) {
			continue
		}

		if created {
			data = append(data, row)
			res.Created++
			if fromGhost {
				ghostUsed = true
				if r == 0 {
					promotedAnchor = row.ID
				}
			}
		} else {
			data[t] = row
		}
		res.Touched = append(res.Touched, row.ID)
	}

	if len(res.Touched) == 0 {
		return PasteResult{Kind: PasteIgnored}, nil
	}
	rs.Replace(data)
	if promotedAnchor != "" {
		p.active.RowID = promotedAnchor
	}
	return res, nil
}

// PasteEdit applies ev to an edit-mode row set. It never adds rows: block
// rows past the end are dropped, and table-scoped rows are matched to
// existing rows by the numeric identity column.
func (p *PasteCoordinator) PasteEdit(rs *RowSet, ev PasteEvent, identity string) (PasteResult, error) {
	if ev.Text == "" {
		return PasteResult{Kind: PasteIgnored}, nil
	}
	if p.active == nil {
		return tablePasteEdit(rs, ev.Text, identity)
	}
	if !hasDelimiter(ev.Text) {
		return p.singlePaste(rs, ev.Text)
	}

	parsed := ParseDelimited(ev.Text)
	if len(parsed) == 0 {
		return PasteResult{Kind: PasteIgnored}, nil
	}
	anchorRow, anchorCol, err := p.anchor(rs)
	if err != nil {
		return PasteResult{}, err
	}

	cols := rs.Columns()
	data := slices.Clone(rs.Rows())
	res := PasteResult{Kind: PasteBlock}

	for r, values := range parsed {
		t := anchorRow + r
		if t >= len(data) {
			break
		}
		before := data[t]
		if before.IsGhost() {
			continue
		}
		row := before.Clone()
		if !writeCells(row, values, cols, anchorCol) || maps.Equal(row.Cells, before.Cells) {
			continue
		}
		data[t] = row
		res.Touched = append(res.Touched, row.ID)

		oldKey, oldOK := identityKey(before, identity)
		newKey, newOK := identityKey(row, identity)
		if identity != "" && (oldOK != newOK || oldKey != newKey) {
			res.IdentityChanged = append(res.IdentityChanged, row.ID)
		}
	}

	if len(res.Touched) == 0 {
		return PasteResult{Kind: PasteBlock}, nil
	}
	rs.Replace(data)
	return res, nil
}

func (p *PasteCoordinator) singlePaste(rs *RowSet, text string) (PasteResult, error) {
	before, _ := rs.Row(p.active.RowID)
	id, err := rs.UpdateCell(p.active.RowID, p.active.ColumnID, text)
	if err != nil {
		return PasteResult{}, err
	}

	res := PasteResult{Kind: PasteSingle}
	if id == GhostRowID {
		return res, nil
	}
	if id != p.active.RowID {
		res.Created = 1
		p.active.RowID = id
	}
	after, _ := rs.Row(id)
	if res.Created == 1 || !maps.Equal(before.Cells, after.Cells) {
		res.Touched = []string{id}
	}
	return res, nil
}

func (p *PasteCoordinator) anchor(rs *RowSet) (int, int, error) {
	row := rs.IndexOf(p.active.RowID)
	if row < 0 {
		return 0, 0, fmt.Errorf("paste anchor: %w: %s", ErrRowNotFound, p.active.RowID)
	}
	col := rs.columnIndex(p.active.ColumnID)
	if col < 0 {
		return 0, 0, fmt.Errorf("paste anchor: %w: %s", ErrColumnNotFound, p.active.ColumnID)
	}
	return row, col, nil
}

// writeCells writes values into row starting at column anchorCol. Columns
// past the end and read-only columns are skipped. Reports whether any cell
// was written.
func writeCells(row Row, values []string, cols []Column, anchorCol int) bool {
	wrote := false
	for c, v := range values {
		ci := anchorCol + c
		if ci >= len(cols) {
			break
		}
		col := cols[ci]
		if !col.Editable() {
			continue
		}
		row.Cells[col.ID] = Normalize(v, col)
		wrote = true
	}
	return wrote
}

// tablePasteCreate appends every parsed row before the ghost row.
func (p *PasteCoordinator) tablePasteCreate(rs *RowSet, text string) PasteResult {
	conv := ConvertToRows(ParseDelimited(text), rs.Columns())
	if len(conv.Rows) == 0 {
		return PasteResult{Kind: PasteIgnored}
	}

	readOnly := make([]string, 0)
	for _, c := range rs.Columns() {
		if !c.Editable() {
			readOnly = append(readOnly, c.ID)
		}
	}

	data := slices.Clone(rs.DataRows())
	res := PasteResult{Kind: PasteTable}
	for _, row := range conv.Rows {
		for _, id := range readOnly {
			row.Cells[id] = ""
		}
		data = append(data, row)
		res.Touched = append(res.Touched, row.ID)
		res.Created++
	}
	rs.Replace(data)
	return res
}

// tablePasteEdit merges parsed rows into existing rows with the same identity
// value. Existing row ids are kept; rows without a match are dropped.
func tablePasteEdit(rs *RowSet, text, identity string) (PasteResult, error) {
	if identity == "" {
		return PasteResult{}, fmt.Errorf("table paste: %w", ErrUnknownIdentity)
	}
	conv := ConvertToRows(ParseDelimited(text), rs.Columns())
	if len(conv.Rows) == 0 {
		return PasteResult{Kind: PasteIgnored}, nil
	}

	data := slices.Clone(rs.Rows())
	res := PasteResult{Kind: PasteTable}
	for _, pasted := range conv.Rows {
		key, ok := identityKey(pasted, identity)
		if !ok {
			continue
		}
		idx := indexByIdentity(data, identity, key)
		if idx < 0 {
			continue
		}

		existing := data[idx]
		merged := existing.Clone()
		for _, id := range conv.Mapped {
			col, _ := rs.Column(id)
			if !col.Editable() {
				continue
			}
			merged.Cells[id] = pasted.Cells[id]
		}
		if maps.Equal(merged.Cells, existing.Cells) {
			continue
		}
		data[idx] = merged
		if !slices.Contains(res.Touched, merged.ID) {
			res.Touched = append(res.Touched, merged.ID)
		}
	}

	if len(res.Touched) > 0 {
		rs.Replace(data)
	}
	return res, nil
}
