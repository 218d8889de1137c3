package analysis

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/schema"
)

// KPIs are the headline figures of a filtered table.
type KPIs struct {
	Incidents          int
	MedianResponse     float64
	P90Response        float64
	MedianMobilisation float64
	MedianTravel       float64
	Rows               int
}

// MarshalJSON writes NaN figures as null.
func (k KPIs) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Incidents          int      `json:"incidents"`
		MedianResponse     *float64 `json:"median_response_min"`
		P90Response        *float64 `json:"p90_response_min"`
		MedianMobilisation *float64 `json:"median_mobilisation_min"`
		MedianTravel       *float64 `json:"median_travel_min"`
		Rows               int      `json:"rows"`
	}{k.Incidents, nullable(k.MedianResponse), nullable(k.P90Response),
		nullable(k.MedianMobilisation), nullable(k.MedianTravel), k.Rows})
}

// ComputeKPIs summarises t. Figures for absent columns are NaN.
func ComputeKPIs(t *dataset.Table) KPIs {
	k := KPIs{Rows: t.NumRows(), Incidents: t.NumRows()}
	if t.Has(schema.IncidentNumber) {
		k.Incidents = len(t.Distinct(schema.IncidentNumber))
	}
	resp := numbers(t, schema.ResponseTime)
	k.MedianResponse = Quantile(resp, 0.5)
	k.P90Response = Quantile(resp, 0.9)
	k.MedianMobilisation = Median(numbers(t, schema.MobilisationTime))
	k.MedianTravel = Median(numbers(t, schema.TravelTime))
	return k
}

func numbers(t *dataset.Table, col string) []float64 {
	vals, ok := t.Column(col)
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if f, ok := v.Float(); ok {
			out = append(out, f)
		}
	}
	return out
}

// ViewName identifies a grouped view of the dashboard.
type ViewName string

const (
	ViewMonthly  ViewName = "monthly"
	ViewBoroughs ViewName = "boroughs"
	ViewGroups   ViewName = "groups"
	ViewHours    ViewName = "hours"
	ViewWeekdays ViewName = "weekdays"
)

// ViewDef describes how a view groups, which columns it needs and how its
// rows are ordered.
type ViewDef struct {
	Name     ViewName
	Title    string
	GroupBy  string
	Measure  string
	Requires []string
	Order    func([]Row)
}

// Views lists every grouped view in display order.
var Views = []ViewDef{
	{Name: ViewMonthly, Title: "Monthly trends", GroupBy: schema.Month, Measure: schema.ResponseTime,
		Requires: []string{schema.Month}, Order: SortByKey},
	{Name: ViewBoroughs, Title: "Borough comparison", GroupBy: schema.Borough, Measure: schema.ResponseTime,
		Requires: []string{schema.Borough, schema.ResponseTime}, Order: SortByMedian},
	{Name: ViewGroups, Title: "Incident group comparison", GroupBy: schema.IncidentGroup, Measure: schema.ResponseTime,
		Requires: []string{schema.IncidentGroup, schema.ResponseTime}, Order: SortByMedian},
	{Name: ViewHours, Title: "By hour of day", GroupBy: schema.Hour, Measure: schema.ResponseTime,
		Requires: []string{schema.Hour, schema.ResponseTime}, Order: SortByKey},
	{Name: ViewWeekdays, Title: "By day of week", GroupBy: schema.DayOfWeek, Measure: schema.ResponseTime,
		Requires: []string{schema.DayOfWeek, schema.ResponseTime}, Order: OrderWeekdays},
}

// LookupView finds a view by name.
func LookupView(name string) (ViewDef, error) {
	for _, v := range Views {
		if string(v.Name) == name {
			return v, nil
		}
	}
	return ViewDef{}, fmt.Errorf("unknown view %q", name)
}

// Compute aggregates t for the view. A missing required column yields a
// *MissingColumnError naming the view.
func (d ViewDef) Compute(t *dataset.Table) ([]Row, error) {
	for _, c := range d.Requires {
		if !t.Has(c) {
			return nil, &MissingColumnError{View: d.Title, Column: c}
		}
	}
	rows, err := Aggregate(t, d.GroupBy, d.Measure)
	if err != nil {
		var mc *MissingColumnError
		if errors.As(err, &mc) {
			mc.View = d.Title
		}
		return nil, err
	}
	if d.Order != nil {
		d.Order(rows)
	}
	return rows, nil
}

func mustView(name ViewName) ViewDef {
	v, err := LookupView(string(name))
	if err != nil {
		panic(err)
	}
	return v
}

// MonthlyTrend groups by month, ordered by month.
func MonthlyTrend(t *dataset.Table) ([]Row, error) { return mustView(ViewMonthly).Compute(t) }

// ByBorough groups by borough, ordered by median response.
func ByBorough(t *dataset.Table) ([]Row, error) { return mustView(ViewBoroughs).Compute(t) }

// ByIncidentGroup groups by incident group, ordered by median response.
func ByIncidentGroup(t *dataset.Table) ([]Row, error) { return mustView(ViewGroups).Compute(t) }

// ByHour groups by hour of day, ordered by hour.
func ByHour(t *dataset.Table) ([]Row, error) { return mustView(ViewHours).Compute(t) }

// ByWeekday groups by day of week, Monday first when names are canonical.
func ByWeekday(t *dataset.Table) ([]Row, error) { return mustView(ViewWeekdays).Compute(t) }

// HasMedians reports whether any row carries a median.
func HasMedians(rows []Row) bool {
	for _, r := range rows {
		if !math.IsNaN(r.Median) {
			return true
		}
	}
	return false
}
