package dataset

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Columns coerced right after loading.
const (
	timestampColumn = "DateTimeOfCall"
	yearColumn      = "year"
)

// ParseNumber parses a plain decimal or scientific number. Surrounding
// whitespace is ignored; NaN and infinities are rejected.
func ParseNumber(s string) (float64, bool) {
	raw := strings.ReplaceAll(s, "\u00A0", " ")
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// ParseTime tries the timestamp layouts commonly found in incident exports.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	layouts := []string{
		time.RFC3339Nano, time.RFC3339,
		"2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02T15:04:05", "2006-01-02",
		"01/02/2006 15:04:05", "01/02/2006 15:04", "01/02/2006",
		"1/2/2006 15:04:05", "1/2/2006 15:04",
		"02 Jan 2006 15:04:05", "02 Jan 2006 15:04", "02-Jan-2006 15:04:05",
		"2006/01/02 15:04:05", "2006/01/02",
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CoerceSemantic parses DateTimeOfCall as a timestamp and year as a number.
// Values that fail to parse become null and are counted in Table.Coercions.
func CoerceSemantic(t *Table) *Table {
	tsIdx, hasTS := t.Index(timestampColumn)
	yIdx, hasYear := t.Index(yearColumn)
	if !hasTS && !hasYear {
		return t
	}
	var tsBad, yBad int
	rows := make([][]Value, t.NumRows())
	for i := range rows {
		src := t.Row(i)
		row := make([]Value, len(src))
		copy(row, src)
		if hasTS {
			v, ok := toTime(row[tsIdx])
			if !ok {
				tsBad++
			}
			row[tsIdx] = v
		}
		if hasYear {
			v, ok := toNumber(row[yIdx])
			if !ok {
				yBad++
			}
			row[yIdx] = v
		}
		rows[i] = row
	}
	out := NewTable(t.Name, t.columns, rows)
	out.Coercions = append(out.Coercions, t.Coercions...)
	if tsBad > 0 {
		out.Coercions = append(out.Coercions, Coercion{Column: timestampColumn, Invalid: tsBad})
	}
	if yBad > 0 {
		out.Coercions = append(out.Coercions, Coercion{Column: yearColumn, Invalid: yBad})
	}
	return out
}

// toTime reports ok=false only when a non-null value was nulled.
func toTime(v Value) (Value, bool) {
	switch v.Kind() {
	case KindNull, KindTime:
		return v, true
	case KindString:
		s, _ := v.Text()
		if t, ok := ParseTime(s); ok {
			return TimeValue(t).withRaw(strings.TrimSpace(s)), true
		}
	}
	return NullValue(), false
}

func toNumber(v Value) (Value, bool) {
	switch v.Kind() {
	case KindNull, KindNumber:
		return v, true
	case KindString:
		s, _ := v.Text()
		if f, ok := ParseNumber(s); ok {
			return NumberValue(f).withRaw(strings.TrimSpace(s)), true
		}
	}
	return NullValue(), false
}
