package grid

// convert.go converts between canonical cell strings and typed domain values.
//
// User-entered text is messy:
//   - Several date spellings (US, EU, ISO, two-digit years)
//   - Currency symbols, thousands separators and accounting negatives
//   - Many boolean spellings (yes/no, true/false, 1/0, y/n)
//
// Normalize collapses every accepted spelling to one canonical string per
// column type. Unparseable input is kept (trimmed) so validation can flag it
// instead of the conversion failing.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
// Years that would land more than this many years in the future are moved
// to the previous century.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006", "January 2, 2006",
		"20060102",
		time.RFC3339,
	}
)

// Normalize maps raw cell text to the column's canonical string.
// It is idempotent: Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string, col Column) string {
	switch col.Type {
	case CellText, CellReadOnly:
		return raw
	case CellNumber:
		return normalizeNumber(raw)
	case CellBoolean:
		return normalizeBool(raw, col.BoolFormat)
	case CellDate:
		return normalizeDate(raw, col.Date)
	case CellSelect:
		return matchOption(strings.TrimSpace(raw), col.Options)
	case CellMultiSelect:
		return strings.Join(splitMulti(raw, col), col.separator())
	default:
		return raw
	}
}

// ToDomainValue parses a canonical cell string into its typed value.
//
// Empty strings give nil for every type except CellBoolean, where empty
// parses to false. Unparseable numbers, booleans and dates give nil.
func ToDomainValue(canonical string, col Column) any {
	s := strings.TrimSpace(canonical)

	switch col.Type {
	case CellBoolean:
		if s == "" {
			return false
		}
		if b, ok := parseBool(s); ok {
			return b
		}
		return nil
	case CellNumber:
		if s == "" {
			return nil
		}
		f, ok := parseNumber(s)
		if !ok {
			return nil
		}
		return f
	case CellDate:
		if s == "" {
			return nil
		}
		t, ok := parseDate(s, col.Date)
		if !ok {
			return nil
		}
		if col.Date.Output != "" {
			return t.UTC().Format(col.Date.Output)
		}
		return t
	case CellMultiSelect:
		parts := splitMulti(s, col)
		if len(parts) == 0 {
			return nil
		}
		return parts
	case CellText, CellSelect, CellReadOnly:
		if canonical == "" {
			return nil
		}
		return canonical
	default:
		if canonical == "" {
			return nil
		}
		return canonical
	}
}

// ToCellString formats a domain value as the column's canonical string.
func ToCellString(v any, col Column) string {
	if v == nil {
		return ""
	}

	switch col.Type {
	case CellBoolean:
		if b, ok := v.(bool); ok {
			return formatBool(b, col.BoolFormat)
		}
	case CellNumber:
		if f, ok := toFloat(v); ok {
			return formatNumber(f)
		}
	case CellDate:
		switch t := v.(type) {
		case time.Time:
			if t.IsZero() {
				return ""
			}
			return t.UTC().Format(col.Date.display())
		case *time.Time:
			if t == nil || t.IsZero() {
				return ""
			}
			return t.UTC().Format(col.Date.display())
		}
	case CellMultiSelect:
		switch vals := v.(type) {
		case []string:
			return Normalize(strings.Join(vals, col.separator()), col)
		case []any:
			parts := make([]string, len(vals))
			for i, p := range vals {
				parts[i] = fmt.Sprint(p)
			}
			return Normalize(strings.Join(parts, col.separator()), col)
		}
	}

	if s, ok := v.(string); ok {
		return Normalize(s, col)
	}
	return Normalize(fmt.Sprint(v), col)
}

// normalizeNumber canonicalizes by round-tripping through float64.
func normalizeNumber(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	f, ok := parseNumber(s)
	if !ok {
		return s
	}
	return formatNumber(f)
}

// parseNumber accepts currency symbols, thousands separators and the
// accounting format "(123.45)" for negatives.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "") // Euro
	s = strings.ReplaceAll(s, "£", "") // Pound
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if isNegative {
		f = -f
	}
	return f, true
}

func formatNumber(f float64) string {
	if f == 0 {
		return "0" // also folds -0
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}

// parseBool accepts true/false, yes/no, t/f, y/n and 1/0 in any case.
func parseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

func normalizeBool(raw string, format BoolFormat) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	b, ok := parseBool(s)
	if !ok {
		return s
	}
	return formatBool(b, format)
}

func formatBool(b bool, format BoolFormat) string {
	switch format {
	case BoolYesNo:
		if b {
			return "yes"
		}
		return "no"
	case BoolOneZero:
		if b {
			return "1"
		}
		return "0"
	case BoolYN:
		if b {
			return "y"
		}
		return "n"
	default:
		if b {
			return "true"
		}
		return "false"
	}
}

func normalizeDate(raw string, formats DateFormats) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}
	t, ok := parseDate(s, formats)
	if !ok {
		return s
	}
	return t.UTC().Format(formats.display())
}

// parseDate tries the display layout, the configured input and output
// layouts, then the common fallbacks. All parsing happens in UTC.
func parseDate(s string, formats DateFormats) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	layouts := make([]string, 0, 2+len(formats.Input)+len(fourDigitYearLayouts))
	layouts = append(layouts, formats.display())
	layouts = append(layouts, formats.Input...)
	if formats.Output != "" {
		layouts = append(layouts, formats.Output)
	}
	layouts = append(layouts, fourDigitYearLayouts...)

	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}

	pivotYear := time.Now().UTC().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return t, true
		}
	}

	return time.Time{}, false
}

// matchOption returns the option spelled as configured when s matches it
// case-insensitively, otherwise s unchanged.
func matchOption(s string, options []string) string {
	for _, opt := range options {
		if strings.EqualFold(opt, s) {
			return opt
		}
	}
	return s
}

// splitMulti splits on the column separator, trims, drops empty segments
// and canonicalizes each segment against the option list.
func splitMulti(raw string, col Column) []string {
	parts := strings.Split(raw, col.separator())
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, matchOption(p, col.Options))
	}
	return out
}
