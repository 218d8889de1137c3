package analysis

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/schema"
)

// Row is one group of an aggregate result.
type Row struct {
	Key    dataset.Value
	Label  string
	Count  int
	Median float64
	P90    float64
}

// MarshalJSON writes NaN statistics as null.
func (r Row) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Key    string   `json:"key"`
		Count  int      `json:"count"`
		Median *float64 `json:"median"`
		P90    *float64 `json:"p90"`
	}{r.Label, r.Count, nullable(r.Median), nullable(r.P90)})
}

func nullable(f float64) *float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

// Aggregate groups t by groupBy and summarises measure per group. Groups
// appear in first-appearance order and null group values are skipped. Count
// is the number of distinct non-null IncidentNumber values when that column
// exists, otherwise the number of rows. Median and P90 are NaN when the group
// has no numeric measure values or the measure column is absent.
func Aggregate(t *dataset.Table, groupBy, measure string) ([]Row, error) {
	gIdx, ok := t.Index(groupBy)
	if !ok {
		return nil, &MissingColumnError{Column: groupBy}
	}
	mIdx, hasMeasure := t.Index(measure)
	idIdx, hasID := t.Index(schema.IncidentNumber)

	type acc struct {
		key    dataset.Value
		rows   int
		ids    map[string]struct{}
		values []float64
	}
	var order []*acc
	groups := map[string]*acc{}
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		gv := row[gIdx]
		if gv.IsNull() {
			continue
		}
		k := gv.Key()
		a, ok := groups[k]
		if !ok {
			a = &acc{key: gv, ids: map[string]struct{}{}}
			groups[k] = a
			order = append(order, a)
		}
		a.rows++
		if hasID && !row[idIdx].IsNull() {
			a.ids[row[idIdx].Key()] = struct{}{}
		}
		if hasMeasure {
			if f, ok := row[mIdx].Float(); ok {
				a.values = append(a.values, f)
			}
		}
	}

	out := make([]Row, 0, len(order))
	for _, a := range order {
		r := Row{Key: a.key, Label: a.key.String(), Count: a.rows, Median: math.NaN(), P90: math.NaN()}
		if hasID {
			r.Count = len(a.ids)
		}
		if len(a.values) > 0 {
			sort.Float64s(a.values)
			r.Median = sortedQuantile(a.values, 0.5)
			r.P90 = sortedQuantile(a.values, 0.9)
		}
		out = append(out, r)
	}
	return out, nil
}

// SortByKey orders rows ascending by key: numbers numerically, timestamps
// chronologically, anything else by its text.
func SortByKey(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool { return lessKey(rows[i].Key, rows[j].Key) })
}

// SortByMedian orders rows ascending by median with NaN last; ties are
// broken by key.
func SortByMedian(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Median, rows[j].Median
		an, bn := math.IsNaN(a), math.IsNaN(b)
		switch {
		case an && bn:
			return lessKey(rows[i].Key, rows[j].Key)
		case an:
			return false
		case bn:
			return true
		case a != b:
			return a < b
		}
		return lessKey(rows[i].Key, rows[j].Key)
	})
}

func lessKey(a, b dataset.Value) bool {
	if af, ok := a.Float(); ok {
		if bf, ok := b.Float(); ok {
			return af < bf
		}
	}
	if at, ok := a.Time(); ok {
		if bt, ok := b.Time(); ok {
			return at.Before(bt)
		}
	}
	if a.Kind() != b.Kind() {
		return a.Kind() < b.Kind()
	}
	return a.Key() < b.Key()
}

// Weekdays is the canonical day order.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// OrderWeekdays sorts rows Monday to Sunday when every key is a canonical
// day name. Otherwise rows are left as they are.
func OrderWeekdays(rows []Row) {
	pos := make(map[string]int, len(Weekdays))
	for i, d := range Weekdays {
		pos[d] = i
	}
	for _, r := range rows {
		if _, ok := pos[r.Key.Key()]; !ok {
			return
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return pos[rows[i].Key.Key()] < pos[rows[j].Key.Key()] })
}

// Labels returns the row labels in order.
func Labels(rows []Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Label
	}
	return out
}

// FormatMinutes renders a statistic with one decimal, or "n/a" for NaN.
func FormatMinutes(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return strconv.FormatFloat(f, 'f', 1, 64)
}
