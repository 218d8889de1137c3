package geo

import (
	"testing"

	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coords(pairs ...[2]dataset.Value) *dataset.Table {
	rows := make([][]dataset.Value, len(pairs))
	for i, p := range pairs {
		rows[i] = []dataset.Value{p[0], p[1]}
	}
	return dataset.NewTable("coords", []string{"Latitude", "lng"}, rows)
}

func TestCleanDropsInvalid(t *testing.T) {
	s, n := dataset.StringValue, dataset.NumberValue
	tbl := coords(
		[2]dataset.Value{s("51.5"), s("bad")},
		[2]dataset.Value{s("99"), s("0")},
		[2]dataset.Value{s("NULL"), s("-0.1")},
		[2]dataset.Value{s(" 51.51 "), s("-0.12")},
		[2]dataset.Value{n(51.2), n(0.3)},
		[2]dataset.Value{dataset.NullValue(), n(0)},
	)

	res, err := Clean(tbl, "Latitude", "lng", Options{EnforceBBox: true, BBox: DefaultBBox()})
	require.NoError(t, err)
	assert.Equal(t, 6, res.Total)
	assert.Equal(t, 2, res.Valid)
	assert.Equal(t, 3, res.Invalid)
	assert.Equal(t, 1, res.OutOfBounds)
	assert.Equal(t, []Point{{Lat: 51.51, Lon: -0.12}, {Lat: 51.2, Lon: 0.3}}, res.Points, "box edges are inclusive")

	res, err = Clean(tbl, "Latitude", "lng", Options{BBox: DefaultBBox()})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Valid, "lat 99 kept without the box")
	assert.Equal(t, 0, res.OutOfBounds)
}

func TestCleanMissingColumn(t *testing.T) {
	_, err := Clean(coords(), "lat", "lng", Options{})
	var mc *MissingColumnError
	require.ErrorAs(t, err, &mc)
	assert.Equal(t, "lat", mc.Column)
}

func TestSampleDeterministic(t *testing.T) {
	pts := make([]Point, 100)
	for i := range pts {
		pts[i] = Point{Lat: 51 + float64(i)/1000, Lon: 0}
	}
	a := Sample(pts, 10, 0)
	b := Sample(pts, 10, 0)
	require.Len(t, a, 10)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, Sample(pts, 10, 42))

	all := Sample(pts, 500, 0)
	assert.Equal(t, pts, all)
	assert.Empty(t, Sample(pts, 0, 0))
}

func TestClampSampleSize(t *testing.T) {
	l := DefaultLimits()
	assert.Equal(t, 3000, ClampSampleSize(0, 10000, l))
	assert.Equal(t, 1000, ClampSampleSize(0, 1000, l))
	assert.Equal(t, 500, ClampSampleSize(0, 120, l))
	assert.Equal(t, 20000, ClampSampleSize(50000, 100, l))
	assert.Equal(t, 1500, ClampSampleSize(1400, 100, l))
	assert.Equal(t, 500, ClampSampleSize(10, 100, l))
}

func TestBBoxBound(t *testing.T) {
	b := DefaultBBox()
	assert.True(t, b.Contains(Point{Lat: 51.8, Lon: -0.6}))
	assert.False(t, b.Contains(Point{Lat: 51.81, Lon: 0}))
	assert.Equal(t, -0.6, b.Bound().Min.X())
	assert.Equal(t, 51.8, b.Bound().Max.Y())
}
