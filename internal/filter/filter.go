package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/schema"
)

// DefaultRecentYears is how many of the latest years are selected by default.
const DefaultRecentYears = 3

// Facet is one independent filter dimension.
type Facet string

const (
	FacetYear    Facet = "year"
	FacetType    Facet = "type"
	FacetBorough Facet = "borough"
)

// Facets lists every facet in display order.
var Facets = []Facet{FacetYear, FacetType, FacetBorough}

// Column returns the table column a facet filters on.
func (f Facet) Column() string {
	switch f {
	case FacetYear:
		return schema.Year
	case FacetType:
		return schema.IncidentGroup
	case FacetBorough:
		return schema.Borough
	default:
		return ""
	}
}

// ParseFacet accepts a facet name case-insensitively.
func ParseFacet(s string) (Facet, error) {
	switch Facet(strings.ToLower(strings.TrimSpace(s))) {
	case FacetYear, "years":
		return FacetYear, nil
	case FacetType, "types", "group", "incidentgroup":
		return FacetType, nil
	case FacetBorough, "boroughs":
		return FacetBorough, nil
	}
	return "", fmt.Errorf("unknown facet %q (use year, type or borough)", s)
}

// Options are the sorted distinct values observed in the loaded table.
type Options struct {
	Years    []float64 `json:"years"`
	Types    []string  `json:"types"`
	Boroughs []string  `json:"boroughs"`
}

// Selection holds the allowed values per facet. Empty means no restriction.
type Selection struct {
	Years    []float64 `json:"years"`
	Types    []string  `json:"types"`
	Boroughs []string  `json:"boroughs"`
}

// IsEmpty reports whether no facet restricts rows.
func (s Selection) IsEmpty() bool {
	return len(s.Years) == 0 && len(s.Types) == 0 && len(s.Boroughs) == 0
}

// State is the per-session filter context. Selections always stay within
// the options of the table the state was built from.
type State struct {
	options     Options
	selection   Selection
	recentYears int
}

// NewState computes options from t and applies the defaults.
func NewState(t *dataset.Table, recentYears int) *State {
	if recentYears <= 0 {
		recentYears = DefaultRecentYears
	}
	s := &State{recentYears: recentYears}
	for _, v := range t.Distinct(schema.Year) {
		if f, ok := v.Float(); ok {
			s.options.Years = append(s.options.Years, f)
		}
	}
	sort.Float64s(s.options.Years)
	s.options.Types = distinctKeys(t, schema.IncidentGroup)
	s.options.Boroughs = distinctKeys(t, schema.Borough)
	s.Reset()
	return s
}

func distinctKeys(t *dataset.Table, col string) []string {
	var out []string
	for _, v := range t.Distinct(col) {
		out = append(out, v.Key())
	}
	sort.Strings(out)
	return out
}

// Options returns a copy of the available values.
func (s *State) Options() Options {
	return Options{
		Years:    append([]float64(nil), s.options.Years...),
		Types:    append([]string(nil), s.options.Types...),
		Boroughs: append([]string(nil), s.options.Boroughs...),
	}
}

// Selection returns a copy of the current selection.
func (s *State) Selection() Selection {
	return Selection{
		Years:    append([]float64(nil), s.selection.Years...),
		Types:    append([]string(nil), s.selection.Types...),
		Boroughs: append([]string(nil), s.selection.Boroughs...),
	}
}

// Reset restores defaults: the most recent years ascending, every type and
// every borough.
func (s *State) Reset() {
	years := s.options.Years
	if len(years) > s.recentYears {
		years = years[len(years)-s.recentYears:]
	}
	s.selection = Selection{
		Years:    append([]float64(nil), years...),
		Types:    append([]string(nil), s.options.Types...),
		Boroughs: append([]string(nil), s.options.Boroughs...),
	}
}

// SetYears replaces the year selection. Values not in the options are
// dropped and returned.
func (s *State) SetYears(years []float64) (rejected []float64) {
	allowed := make(map[float64]struct{}, len(s.options.Years))
	for _, y := range s.options.Years {
		allowed[y] = struct{}{}
	}
	seen := map[float64]struct{}{}
	var keep []float64
	for _, y := range years {
		if _, ok := allowed[y]; !ok {
			rejected = append(rejected, y)
			continue
		}
		if _, dup := seen[y]; dup {
			continue
		}
		seen[y] = struct{}{}
		keep = append(keep, y)
	}
	sort.Float64s(keep)
	s.selection.Years = keep
	return rejected
}

// SetTypes replaces the incident type selection.
func (s *State) SetTypes(types []string) (rejected []string) {
	s.selection.Types, rejected = clamp(types, s.options.Types)
	return rejected
}

// SetBoroughs replaces the borough selection.
func (s *State) SetBoroughs(boroughs []string) (rejected []string) {
	s.selection.Boroughs, rejected = clamp(boroughs, s.options.Boroughs)
	return rejected
}

// Set replaces one facet's selection from text values, as received from
// flags or form fields.
func (s *State) Set(f Facet, values []string) (rejected []string, err error) {
	switch f {
	case FacetYear:
		years := make([]float64, 0, len(values))
		for _, v := range values {
			y, ok := dataset.ParseNumber(v)
			if !ok {
				rejected = append(rejected, v)
				continue
			}
			years = append(years, y)
		}
		for _, y := range s.SetYears(years) {
			rejected = append(rejected, FormatYear(y))
		}
		return rejected, nil
	case FacetType:
		return s.SetTypes(values), nil
	case FacetBorough:
		return s.SetBoroughs(values), nil
	}
	return nil, fmt.Errorf("unknown facet %q", f)
}

func clamp(values, options []string) (keep, rejected []string) {
	allowed := make(map[string]struct{}, len(options))
	for _, o := range options {
		allowed[o] = struct{}{}
	}
	seen := map[string]struct{}{}
	for _, v := range values {
		if _, ok := allowed[v]; !ok {
			rejected = append(rejected, v)
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		keep = append(keep, v)
	}
	sort.Strings(keep)
	return keep, rejected
}

// Apply keeps rows that satisfy every non-empty facet selection. A null or
// missing value never matches a non-empty selection. With nothing selected
// the input table is returned as is.
func (s *State) Apply(t *dataset.Table) *dataset.Table {
	return s.selection.Apply(t)
}

// Apply filters t by the selection.
func (sel Selection) Apply(t *dataset.Table) *dataset.Table {
	if sel.IsEmpty() {
		return t
	}
	type check struct {
		idx     int
		present bool
		allowed map[string]struct{}
	}
	var checks []check
	add := func(col string, keys []string) {
		if len(keys) == 0 {
			return
		}
		idx, ok := t.Index(col)
		set := make(map[string]struct{}, len(keys))
		for _, k := range keys {
			set[k] = struct{}{}
		}
		checks = append(checks, check{idx: idx, present: ok, allowed: set})
	}
	years := make([]string, len(sel.Years))
	for i, y := range sel.Years {
		years[i] = dataset.NumberValue(y).Key()
	}
	add(schema.Year, years)
	add(schema.IncidentGroup, sel.Types)
	add(schema.Borough, sel.Boroughs)

	return t.Filter(func(row []dataset.Value) bool {
		for _, c := range checks {
			if !c.present {
				return false
			}
			v := row[c.idx]
			if v.IsNull() {
				return false
			}
			if _, ok := c.allowed[v.Key()]; !ok {
				return false
			}
		}
		return true
	})
}

// FormatYear renders a year without a fractional part when it has none.
func FormatYear(y float64) string {
	return strconv.FormatFloat(y, 'f', -1, 64)
}

// Labels renders one facet's selection as text.
func (sel Selection) Labels(f Facet) []string {
	switch f {
	case FacetYear:
		out := make([]string, len(sel.Years))
		for i, y := range sel.Years {
			out[i] = FormatYear(y)
		}
		return out
	case FacetType:
		return sel.Types
	case FacetBorough:
		return sel.Boroughs
	}
	return nil
}

// Summarize labels a selection for compact display: "All" when empty, the
// values themselves when there are at most three, otherwise a count.
func Summarize(values []string) string {
	switch {
	case len(values) == 0:
		return "All"
	case len(values) <= 3:
		return strings.Join(values, ", ")
	default:
		return fmt.Sprintf("%d selected", len(values))
	}
}
