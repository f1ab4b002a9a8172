package grid

import (
	"fmt"
	"strings"
	"testing"
)

// ============================================================================
// Fixtures
// ============================================================================

func benchColumns() []Column {
	return []Column{
		{ID: "id", Type: CellNumber, ReadOnly: true},
		{ID: "term", Label: "Term", Type: CellText, Required: true},
		{ID: "level", Label: "Level", Type: CellNumber, Min: Bound(1), Max: Bound(5)},
		{ID: "mastered", Label: "Mastered", Type: CellBoolean, BoolFormat: BoolYesNo},
		{ID: "due", Label: "Due", Type: CellDate},
		{ID: "tags", Label: "Tags", Type: CellMultiSelect},
	}
}

func benchSchema(Record) []FieldError { return nil }

// generatePaste builds tab-separated clipboard text with a header row.
func generatePaste(rows int) string {
	var sb strings.Builder
	sb.WriteString("Term\tLevel\tMastered\tDue\tTags\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "word%d\t%d\tyes\t2026-01-%02d\tnoun, food\n", i, i%5+1, i%28+1)
	}
	return sb.String()
}

func benchSource(rows int) []Record {
	recs := make([]Record, rows)
	for i := range recs {
		recs[i] = Record{"id": float64(i + 1), "term": fmt.Sprintf("word%d", i), "level": float64(i%5 + 1)}
	}
	return recs
}

// ============================================================================
// Parsing Benchmarks
// ============================================================================

// BenchmarkParseDelimited benchmarks clipboard parsing, the first step of
// every multi-cell paste.
func BenchmarkParseDelimited(b *testing.B) {
	for _, n := range []int{10, 1000} {
		text := generatePaste(n)
		csvText := strings.ReplaceAll(text, "\t", ",")

		b.Run(fmt.Sprintf("TSV_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				ParseDelimited(text)
			}
		})
		b.Run(fmt.Sprintf("CSV_%d", n), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				ParseDelimited(csvText)
			}
		})
	}
}

// BenchmarkConvertToRows benchmarks header detection and row building.
func BenchmarkConvertToRows(b *testing.B) {
	parsed := ParseDelimited(generatePaste(500))
	cols := benchColumns()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ConvertToRows(parsed, cols)
	}
}

// ============================================================================
// Validation Benchmarks
// ============================================================================

// BenchmarkValidateCell benchmarks single cell validation per type.
func BenchmarkValidateCell(b *testing.B) {
	cols := benchColumns()
	values := map[string]string{
		"term":     "casa",
		"level":    "3",
		"mastered": "yes",
		"due":      "2026-01-05",
		"tags":     "noun,food",
	}

	for _, c := range cols[1:] {
		b.Run(c.ID, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				ValidateCell(values[c.ID], c)
			}
		})
	}
}

// BenchmarkComputeState benchmarks full-table validation, which runs after
// every mutation.
func BenchmarkComputeState(b *testing.B) {
	cols := benchColumns()
	v, err := NewValidator(cols, benchSchema)
	if err != nil {
		b.Fatal(err)
	}
	rows := MapDomainToRows(benchSource(1000), cols)

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		v.ComputeState(rows)
	}
}

// ============================================================================
// Paste Benchmarks
// ============================================================================

// BenchmarkCreateTablePaste benchmarks a table paste into a fresh create table.
func BenchmarkCreateTablePaste(b *testing.B) {
	text := generatePaste(200)
	cols := benchColumns()[1:]

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		t, err := NewCreateTable(CreateConfig{Columns: cols, RowSchema: benchSchema}, nil)
		if err != nil {
			b.Fatal(err)
		}
		if _, err := t.HandlePaste(PasteEvent{Text: text}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkEditTablePaste benchmarks identity-matched pastes over a loaded
// baseline, including dirty tracking.
func BenchmarkEditTablePaste(b *testing.B) {
	cols := benchColumns()
	source := benchSource(1000)

	var sb strings.Builder
	sb.WriteString("id\tLevel\n")
	for i := 0; i < 1000; i += 10 {
		fmt.Fprintf(&sb, "%d\t%d\n", i+1, (i+2)%5+1)
	}
	text := sb.String()

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		t, err := NewEditTable(EditConfig{Columns: cols, RowSchema: benchSchema, IdentityColumn: "id"}, source)
		if err != nil {
			b.Fatal(err)
		}
		b.StartTimer()
		if _, err := t.HandlePaste(PasteEvent{Text: text}); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkUpdateCellParallel benchmarks single cell edits on independent
// tables, one per goroutine.
func BenchmarkUpdateCellParallel(b *testing.B) {
	cols := benchColumns()
	source := benchSource(100)

	b.RunParallel(func(pb *testing.PB) {
		t, err := NewEditTable(EditConfig{Columns: cols, RowSchema: benchSchema, IdentityColumn: "id"}, source)
		if err != nil {
			b.Error(err)
			return
		}
		rowID := t.Rows()[0].ID
		n := 0
		for pb.Next() {
			n++
			t.UpdateCell(rowID, "level", fmt.Sprint(n%5+1))
		}
	})
}
