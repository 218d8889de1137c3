package schema

import "strings"

// Semantic column names recognised in incident datasets.
const (
	IncidentNumber   = "IncidentNumber"
	IncidentGroup    = "IncidentGroup"
	Borough          = "Borough"
	DateTimeOfCall   = "DateTimeOfCall"
	Year             = "year"
	Month            = "month"
	Hour             = "hour"
	DayOfWeek        = "dow"
	ResponseTime     = "response_time_min"
	MobilisationTime = "mobilisation_time_min"
	TravelTime       = "travel_time_min"
)

// Semantic lists the recognised columns in display order.
var Semantic = []string{
	IncidentNumber, IncidentGroup, Borough, DateTimeOfCall, Year, Month, Hour,
	DayOfWeek, ResponseTime, MobilisationTime, TravelTime,
}

var (
	latAliases = map[string]struct{}{"lat": {}, "latitude": {}}
	lonAliases = map[string]struct{}{"lon": {}, "lng": {}, "long": {}, "longitude": {}}
)

// Coordinates holds the detected latitude and longitude column names.
type Coordinates struct {
	Lat      string
	Lon      string
	LatFound bool
	LonFound bool
}

// OK reports whether both coordinate columns were found.
func (c Coordinates) OK() bool { return c.LatFound && c.LonFound }

// DetectCoordinates matches column names against the latitude and longitude
// aliases, case-insensitively and ignoring surrounding whitespace. The first
// matching column in order wins. Cell contents are never inspected.
func DetectCoordinates(columns []string) Coordinates {
	var c Coordinates
	for _, col := range columns {
		low := strings.ToLower(strings.TrimSpace(col))
		if _, ok := latAliases[low]; ok && !c.LatFound {
			c.Lat, c.LatFound = col, true
		}
		if _, ok := lonAliases[low]; ok && !c.LonFound {
			c.Lon, c.LonFound = col, true
		}
	}
	return c
}

// Schema records which semantic columns a table carries.
type Schema struct {
	Present     map[string]bool
	Coordinates Coordinates
}

// Detect inspects column names only.
func Detect(columns []string) Schema {
	s := Schema{Present: make(map[string]bool, len(Semantic))}
	for _, c := range columns {
		for _, name := range Semantic {
			if c == name {
				s.Present[name] = true
			}
		}
	}
	s.Coordinates = DetectCoordinates(columns)
	return s
}

// Has reports whether every named column is present.
func (s Schema) Has(names ...string) bool {
	for _, n := range names {
		if !s.Present[n] {
			return false
		}
	}
	return true
}

// Missing lists the semantic columns absent from the table.
func (s Schema) Missing() []string {
	var out []string
	for _, name := range Semantic {
		if !s.Present[name] {
			out = append(out, name)
		}
	}
	return out
}
