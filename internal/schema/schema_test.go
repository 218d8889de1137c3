package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCoordinates(t *testing.T) {
	cases := []struct {
		name    string
		columns []string
		want    Coordinates
	}{
		{"short", []string{"a", "lat", "lon"}, Coordinates{Lat: "lat", Lon: "lon", LatFound: true, LonFound: true}},
		{"case and spaces", []string{" Latitude ", "LNG"}, Coordinates{Lat: " Latitude ", Lon: "LNG", LatFound: true, LonFound: true}},
		{"first wins", []string{"long", "Latitude", "lat", "Longitude"}, Coordinates{Lat: "Latitude", Lon: "long", LatFound: true, LonFound: true}},
		{"none", []string{"x", "latency", "lonely"}, Coordinates{}},
		{"lat only", []string{"LAT"}, Coordinates{Lat: "LAT", LatFound: true}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DetectCoordinates(tc.columns)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, got, DetectCoordinates(tc.columns), "detection is deterministic")
		})
	}
	assert.False(t, DetectCoordinates([]string{"lat"}).OK())
}

func TestDetect(t *testing.T) {
	s := Detect([]string{"Borough", "response_time_min", "month", "Lon", "lat"})
	assert.True(t, s.Has(Borough, ResponseTime))
	assert.False(t, s.Has(Borough, IncidentNumber))
	assert.True(t, s.Coordinates.OK())
	assert.Contains(t, s.Missing(), IncidentGroup)
	assert.NotContains(t, s.Missing(), Month)
}
