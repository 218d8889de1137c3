package geo

import (
	"math/rand"
	"strings"

	"github.com/KaramelBytes/lfbdash-cli/internal/analysis"
	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/paulmach/orb"
)

// MissingColumnError is returned when a coordinate column is absent.
type MissingColumnError = analysis.MissingColumnError

// Point is a cleaned latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Orb converts p to an orb point (x = longitude, y = latitude).
func (p Point) Orb() orb.Point { return orb.Point{p.Lon, p.Lat} }

// BBox is an inclusive latitude/longitude rectangle.
type BBox struct {
	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

// DefaultBBox covers Greater London.
func DefaultBBox() BBox {
	return BBox{MinLat: 51.2, MaxLat: 51.8, MinLon: -0.6, MaxLon: 0.3}
}

// Bound converts b to an orb.Bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.MinLon, b.MinLat}, Max: orb.Point{b.MaxLon, b.MaxLat}}
}

// Contains reports whether p lies inside b, edges included.
func (b BBox) Contains(p Point) bool { return b.Bound().Contains(p.Orb()) }

// Options control cleaning.
type Options struct {
	EnforceBBox bool
	BBox        BBox
}

// Result is the outcome of Clean. Total counts every row considered and
// equals Valid + Invalid + OutOfBounds.
type Result struct {
	Points      []Point `json:"-"`
	Total       int     `json:"total"`
	Valid       int     `json:"valid"`
	Invalid     int     `json:"invalid"`
	OutOfBounds int     `json:"out_of_bounds"`
	LatColumn   string  `json:"lat_column"`
	LonColumn   string  `json:"lon_column"`
}

var sentinels = map[string]struct{}{"NULL": {}, "null": {}, "": {}}

// Clean reads latCol and lonCol as coordinates. Sentinel strings become
// null, text that is not a number becomes null, points outside the box are
// dropped when enforcing it, and rows with a null coordinate are dropped.
func Clean(t *dataset.Table, latCol, lonCol string, opts Options) (Result, error) {
	res := Result{LatColumn: latCol, LonColumn: lonCol}
	latIdx, ok := t.Index(latCol)
	if !ok {
		return res, &MissingColumnError{View: "Map", Column: latCol}
	}
	lonIdx, ok := t.Index(lonCol)
	if !ok {
		return res, &MissingColumnError{View: "Map", Column: lonCol}
	}
	bound := opts.BBox.Bound()
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		res.Total++
		lat, okLat := coordinate(row[latIdx])
		lon, okLon := coordinate(row[lonIdx])
		if !okLat || !okLon {
			res.Invalid++
			continue
		}
		p := Point{Lat: lat, Lon: lon}
		if opts.EnforceBBox && !bound.Contains(p.Orb()) {
			res.OutOfBounds++
			continue
		}
		res.Points = append(res.Points, p)
	}
	res.Valid = len(res.Points)
	return res, nil
}

func coordinate(v dataset.Value) (float64, bool) {
	if f, ok := v.Float(); ok {
		return f, true
	}
	s, ok := v.Text()
	if !ok {
		return 0, false
	}
	if _, null := sentinels[strings.TrimSpace(s)]; null {
		return 0, false
	}
	return dataset.ParseNumber(s)
}

// Sample returns at most n points chosen by a seeded reservoir sample. The
// same inputs always produce the same sample. When n covers every point the
// points are returned in their original order.
func Sample(points []Point, n int, seed int64) []Point {
	if n <= 0 {
		return nil
	}
	if n >= len(points) {
		return append([]Point(nil), points...)
	}
	r := rand.New(rand.NewSource(seed))
	out := make([]Point, n)
	copy(out, points[:n])
	for i := n; i < len(points); i++ {
		if j := r.Intn(i + 1); j < n {
			out[j] = points[i]
		}
	}
	return out
}

// Limits bound the map sample size.
type Limits struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Step    int `json:"step"`
	Default int `json:"default"`
}

// DefaultLimits allow 500 to 20000 points in steps of 500, 3000 by default.
func DefaultLimits() Limits {
	return Limits{Min: 500, Max: 20000, Step: 500, Default: 3000}
}

// ClampSampleSize snaps a requested sample size onto the limits. A request of
// zero or less selects min(Default, available).
func ClampSampleSize(requested, available int, l Limits) int {
	v := requested
	if v <= 0 {
		v = l.Default
		if available < v {
			v = available
		}
	}
	if l.Step > 0 && v > l.Min {
		v = l.Min + ((v-l.Min+l.Step/2)/l.Step)*l.Step
	}
	if v < l.Min {
		v = l.Min
	}
	if l.Max > 0 && v > l.Max {
		v = l.Max
	}
	return v
}
