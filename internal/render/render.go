package render

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/KaramelBytes/lfbdash-cli/internal/analysis"
	"github.com/KaramelBytes/lfbdash-cli/internal/geo"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

// Metric selects the value plotted for each aggregate row.
type Metric int

const (
	MetricIncidents Metric = iota
	MetricMedian
)

func (m Metric) String() string {
	if m == MetricMedian {
		return "Median response (min)"
	}
	return "Incidents"
}

func (m Metric) value(r analysis.Row) float64 {
	if m == MetricMedian {
		return r.Median
	}
	return float64(r.Count)
}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    3,
	}
}

// yRange starts at zero and leaves headroom above the largest value.
func yRange(values []float64) *chart.ContinuousRange {
	top := 0.0
	for _, v := range values {
		if v > top {
			top = v
		}
	}
	if top <= 0 {
		top = 1
	}
	return &chart.ContinuousRange{Min: 0, Max: top * 1.1}
}

// TrendChart draws rows in order as a line chart PNG. Rows whose metric is
// NaN are left out.
func TrendChart(rows []analysis.Row, m Metric) ([]byte, error) {
	var xs, ys []float64
	var ticks []chart.Tick
	for _, r := range rows {
		y := m.value(r)
		if math.IsNaN(y) {
			continue
		}
		x := float64(len(xs))
		xs = append(xs, x)
		ys = append(ys, y)
		ticks = append(ticks, chart.Tick{Value: x, Label: r.Label})
	}
	if len(xs) == 0 {
		return nil, ErrNoData
	}
	if len(xs) == 1 {
		// A single point has no extent on the x axis.
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}
	ch := chart.Chart{
		Title:      "Monthly trends: " + m.String(),
		Height:     400,
		Width:      900,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "month", Ticks: ticks},
		YAxis:      chart.YAxis{Name: m.String(), Range: yRange(ys)},
		Series: []chart.Series{
			chart.ContinuousSeries{Name: m.String(), XValues: xs, YValues: ys, Style: lineStyle(chart.ColorRed)},
		},
	}
	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render trend chart: %w", err)
	}
	return buf.Bytes(), nil
}

// BarChart draws the median of each row as a bar chart PNG.
func BarChart(title string, rows []analysis.Row) ([]byte, error) {
	var bars []chart.Value
	var values []float64
	for _, r := range rows {
		if math.IsNaN(r.Median) {
			continue
		}
		bars = append(bars, chart.Value{Label: r.Label, Value: r.Median})
		values = append(values, r.Median)
	}
	if len(bars) == 0 {
		return nil, ErrNoData
	}
	width := 80 + 60*len(bars)
	if width < 400 {
		width = 400
	}
	bc := chart.BarChart{
		Title:      title,
		Height:     420,
		Width:      width,
		BarWidth:   40,
		Background: chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}},
		YAxis:      chart.YAxis{Name: "Median response (min)", Range: yRange(values)},
		Bars:       bars,
	}
	var buf bytes.Buffer
	if err := bc.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render bar chart: %w", err)
	}
	return buf.Bytes(), nil
}

// MapPlot draws points as a longitude/latitude scatter PNG. When bbox is
// non-nil the axes are fixed to it.
func MapPlot(points []geo.Point, bbox *geo.BBox) ([]byte, error) {
	if len(points) == 0 {
		return nil, ErrNoData
	}
	p := plot.New()
	p.Title.Text = "Incident map (sampled)"
	p.Title.TextStyle.Font.Size = vg.Points(14)
	p.X.Label.Text = "Longitude"
	p.Y.Label.Text = "Latitude"

	xys := make(plotter.XYs, len(points))
	for i, pt := range points {
		xys[i].X = pt.Lon
		xys[i].Y = pt.Lat
	}
	scatter, err := plotter.NewScatter(xys)
	if err != nil {
		return nil, fmt.Errorf("scatter: %w", err)
	}
	scatter.GlyphStyle.Radius = vg.Points(2)
	scatter.GlyphStyle.Color = color.RGBA{R: 220, G: 38, B: 38, A: 255}
	p.Add(plotter.NewGrid(), scatter)
	if bbox != nil {
		p.X.Min, p.X.Max = bbox.MinLon, bbox.MaxLon
		p.Y.Min, p.Y.Max = bbox.MinLat, bbox.MaxLat
	}

	wt, err := p.WriterTo(8*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("map writer: %w", err)
	}
	var buf bytes.Buffer
	if _, err := wt.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}
	return buf.Bytes(), nil
}
