package grid

// delimited.go parses clipboard text into a 2-D grid of strings.
//
// Clipboard data from spreadsheets is usually TSV; hand-written or exported
// text is often CSV. Detection is deliberately simple:
//  1. Any tab means TSV (even if commas are present)
//  2. Otherwise a double quote or a comma means CSV
//  3. Otherwise TSV (single column, one value per line)

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Delimiter is the detected clipboard format.
type Delimiter int

const (
	DelimiterTSV Delimiter = iota
	DelimiterCSV
)

func (d Delimiter) String() string {
	if d == DelimiterCSV {
		return "csv"
	}
	return "tsv"
}

// DetectDelimiter picks CSV or TSV for text.
func DetectDelimiter(text string) Delimiter {
	if strings.Contains(text, "\t") {
		return DelimiterTSV
	}
	if strings.ContainsAny(text, `",`) {
		return DelimiterCSV
	}
	return DelimiterTSV
}

// ParseDelimited detects the delimiter and parses text.
func ParseDelimited(text string) [][]string {
	if DetectDelimiter(text) == DelimiterCSV {
		return ParseCSV(text)
	}
	return ParseTSV(text)
}

// ParseCSV parses text line by line. Inside quotes "" is a literal quote and
// commas do not split. Fields are trimmed; blank and all-empty lines are dropped.
func ParseCSV(text string) [][]string {
	var out [][]string
	for _, line := range splitLines(text) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := parseCSVLine(line)
		if allEmpty(fields) {
			continue
		}
		out = append(out, fields)
	}
	return out
}

func parseCSVLine(line string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"' && inQuotes && i+1 < len(line) && line[i+1] == '"':
			current.WriteByte('"')
			i++
		case ch == '"':
			inQuotes = !inQuotes
		case ch == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(ch)
		}
	}
	return append(fields, strings.TrimSpace(current.String()))
}

// ParseTSV splits lines on tabs. Rows made only of empty cells are dropped.
func ParseTSV(text string) [][]string {
	var out [][]string
	for _, line := range splitLines(text) {
		cells := strings.Split(line, "\t")
		if allEmpty(cells) {
			continue
		}
		out = append(out, cells)
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.Split(text, "\n")
}

func allEmpty(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// DetectHeaderRow decides whether firstRow holds column labels. It counts
// cells matching a column label (or id) case-insensitively; when the count
// reaches half of min(len(firstRow), len(cols)) the row is a header and the
// returned map sends cell index to column id.
func DetectHeaderRow(firstRow []string, cols []Column) (map[int]string, bool) {
	fold := cases.Fold()

	byLabel := make(map[string]string, len(cols)*2)
	for _, c := range cols {
		byLabel[fold.String(c.ID)] = c.ID
	}
	for _, c := range cols {
		if c.Label != "" {
			byLabel[fold.String(strings.TrimSpace(c.Label))] = c.ID
		}
	}

	mapping := make(map[int]string)
	assigned := make(map[string]bool)
	for i, cell := range firstRow {
		id, ok := byLabel[fold.String(strings.TrimSpace(cell))]
		if !ok || assigned[id] {
			continue
		}
		mapping[i] = id
		assigned[id] = true
	}

	n := min(len(firstRow), len(cols))
	matches := len(mapping)
	if matches == 0 || float64(matches) < float64(n)/2 {
		return nil, false
	}
	return mapping, true
}

// Conversion is the result of ConvertToRows.
type Conversion struct {
	Rows           []Row
	HeaderDetected bool
	Mapped         []string // Column ids that received pasted data, in column order
}

// ConvertToRows turns parsed clipboard data into fresh rows. The first row is
// used as a header when DetectHeaderRow accepts it; otherwise cell i maps to
// column i. Every column gets a cell, every value is normalized and every row
// gets a new id.
func ConvertToRows(parsed [][]string, cols []Column) Conversion {
	if len(parsed) == 0 {
		return Conversion{}
	}

	mapping, header := DetectHeaderRow(parsed[0], cols)
	data := parsed
	if header {
		data = parsed[1:]
	} else {
		width := 0
		for _, r := range parsed {
			width = max(width, len(r))
		}
		mapping = make(map[int]string, width)
		for i := 0; i < width && i < len(cols); i++ {
			mapping[i] = cols[i].ID
		}
	}

	byID := make(map[string]Column, len(cols))
	for _, c := range cols {
		byID[c.ID] = c
	}

	rows := make([]Row, 0, len(data))
	for _, record := range data {
		row := NewBlankRow(newRowID(), cols)
		for i, value := range record {
			id, ok := mapping[i]
			if !ok {
				continue
			}
			row.Cells[id] = Normalize(value, byID[id])
		}
		rows = append(rows, row)
	}

	order := make(map[string]int, len(cols))
	for i, c := range cols {
		order[c.ID] = i
	}
	mapped := make([]string, 0, len(mapping))
	for _, id := range mapping {
		mapped = append(mapped, id)
	}
	sort.Slice(mapped, func(i, j int) bool { return order[mapped[i]] < order[mapped[j]] })

	return Conversion{Rows: rows, HeaderDetected: header, Mapped: mapped}
}
