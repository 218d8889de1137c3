package dashboard

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/lfbdash-cli/internal/analysis"
	"github.com/KaramelBytes/lfbdash-cli/internal/config"
	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/KaramelBytes/lfbdash-cli/internal/filter"
	"github.com/KaramelBytes/lfbdash-cli/internal/geo"
	"github.com/KaramelBytes/lfbdash-cli/internal/schema"
)

// Settings are the business defaults of the dashboard.
type Settings struct {
	RecentYears int
	BBox        geo.BBox
	EnforceBBox bool
	Limits      geo.Limits
	Seed        int64
	ExportFile  string
}

// DefaultSettings mirror the config defaults.
func DefaultSettings() Settings {
	return Settings{
		RecentYears: filter.DefaultRecentYears,
		BBox:        geo.DefaultBBox(),
		EnforceBBox: true,
		Limits:      geo.DefaultLimits(),
		ExportFile:  "lfb_filtered.csv",
	}
}

// SettingsFromConfig builds settings from loaded configuration. A nil config
// yields the defaults.
func SettingsFromConfig(c *config.Global) Settings {
	s := DefaultSettings()
	if c == nil {
		return s
	}
	s.RecentYears = c.RecentYears
	s.BBox = geo.BBox{MinLat: c.BBoxMinLat, MaxLat: c.BBoxMaxLat, MinLon: c.BBoxMinLon, MaxLon: c.BBoxMaxLon}
	s.EnforceBBox = c.EnforceBBox
	s.Limits = geo.Limits{Min: c.MapSampleMin, Max: c.MapSampleMax, Step: c.MapSampleStep, Default: c.MapSampleDefault}
	s.Seed = c.SampleSeed
	if c.ExportFile != "" {
		s.ExportFile = c.ExportFile
	}
	return s
}

// MapOptions are the user's map controls. SampleSize 0 selects the default.
type MapOptions struct {
	EnforceBBox bool `json:"enforce_bbox"`
	SampleSize  int  `json:"sample_size"`
}

// Section is one computed grouped view.
type Section struct {
	Name  analysis.ViewName `json:"name"`
	Title string            `json:"title"`
	Rows  []analysis.Row    `json:"rows"`
}

// Skip records a view that could not be computed.
type Skip struct {
	Name   analysis.ViewName `json:"name"`
	Title  string            `json:"title"`
	Reason string            `json:"reason"`
}

// MapView is the cleaned and sampled point set.
type MapView struct {
	geo.Result
	Sample      []geo.Point `json:"sample"`
	SampleSize  int         `json:"sample_size"`
	EnforceBBox bool        `json:"enforce_bbox"`
	BBox        geo.BBox    `json:"bbox"`
}

// View is the full output of one pipeline pass.
type View struct {
	Source    string             `json:"source,omitempty"`
	Dataset   string             `json:"dataset"`
	TotalRows int                `json:"total_rows"`
	Options   filter.Options     `json:"options"`
	Selection filter.Selection   `json:"selection"`
	KPIs      analysis.KPIs      `json:"kpis"`
	Sections  []Section          `json:"sections"`
	Skipped   []Skip             `json:"skipped,omitempty"`
	Map       *MapView           `json:"map,omitempty"`
	MapError  string             `json:"map_error,omitempty"`
	Coercions []dataset.Coercion `json:"coercions,omitempty"`
	Notes     []string           `json:"notes,omitempty"`

	// Filtered is the table after filters, used for export and charts.
	Filtered *dataset.Table `json:"-"`
}

// Section returns the computed rows of a view, or a *MissingColumnError
// when the view was skipped.
func (v *View) Section(name analysis.ViewName) ([]analysis.Row, error) {
	for _, s := range v.Sections {
		if s.Name == name {
			return s.Rows, nil
		}
	}
	def, err := analysis.LookupView(string(name))
	if err != nil {
		return nil, err
	}
	// Recompute to surface the precise missing column.
	return def.Compute(v.Filtered)
}

// Build runs filter, KPIs, grouped views and map cleaning over t. It never
// fails as a whole: a view that cannot be computed is listed in Skipped.
func Build(t *dataset.Table, state *filter.State, mo MapOptions, s Settings) *View {
	filtered := state.Apply(t)
	v := &View{
		Dataset:   t.Name,
		TotalRows: t.NumRows(),
		Options:   state.Options(),
		Selection: state.Selection(),
		KPIs:      analysis.ComputeKPIs(filtered),
		Coercions: t.Coercions,
		Filtered:  filtered,
	}
	for _, def := range analysis.Views {
		rows, err := def.Compute(filtered)
		if err != nil {
			v.Skipped = append(v.Skipped, Skip{Name: def.Name, Title: def.Title, Reason: err.Error()})
			continue
		}
		v.Sections = append(v.Sections, Section{Name: def.Name, Title: def.Title, Rows: rows})
	}

	if missing := schema.Detect(t.Columns()).Missing(); len(missing) > 0 {
		v.Notes = append(v.Notes, "Columns not found: "+strings.Join(missing, ", "))
	}

	coords := schema.DetectCoordinates(filtered.Columns())
	if !coords.OK() {
		v.MapError = "No coordinate columns found"
	} else {
		res, err := geo.Clean(filtered, coords.Lat, coords.Lon, geo.Options{EnforceBBox: mo.EnforceBBox, BBox: s.BBox})
		var mc *geo.MissingColumnError
		switch {
		case errors.As(err, &mc):
			v.MapError = mc.Error()
		case err != nil:
			v.MapError = err.Error()
		default:
			mv := &MapView{Result: res, EnforceBBox: mo.EnforceBBox, BBox: s.BBox}
			if res.Valid > 0 {
				mv.SampleSize = geo.ClampSampleSize(mo.SampleSize, res.Valid, s.Limits)
				mv.Sample = geo.Sample(res.Points, mv.SampleSize, s.Seed)
			} else {
				v.Notes = append(v.Notes, "No usable coordinates after cleaning/filters; try turning off the bounding box.")
			}
			v.Map = mv
		}
	}
	for _, c := range t.Coercions {
		v.Notes = append(v.Notes, fmt.Sprintf("%d %s values could not be parsed and were treated as missing", c.Invalid, c.Column))
	}
	return v
}
