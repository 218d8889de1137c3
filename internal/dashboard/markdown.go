package dashboard

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/lfbdash-cli/internal/analysis"
	"github.com/KaramelBytes/lfbdash-cli/internal/filter"
	"github.com/charmbracelet/lipgloss"
)

// Markdown renders the view as a sectioned text report.
func (v *View) Markdown() string {
	var b strings.Builder
	b.WriteString("# London Fire Brigade: Response Times\n\n")
	if v.Source != "" {
		b.WriteString(fmt.Sprintf("Loaded from %s\n", v.Source))
	}
	parts := make([]string, len(filter.Facets))
	for i, f := range filter.Facets {
		parts[i] = fmt.Sprintf("%s %s", facetTitle[f], filter.Summarize(v.Selection.Labels(f)))
	}
	b.WriteString("Filters: " + strings.Join(parts, " | ") + "\n\n")

	b.WriteString("[KPIS]\n")
	k := v.KPIs
	b.WriteString(fmt.Sprintf("- Incidents: %s\n", thousands(k.Incidents)))
	b.WriteString(fmt.Sprintf("- Median response (min): %s\n", analysis.FormatMinutes(k.MedianResponse)))
	b.WriteString(fmt.Sprintf("- 90th pct response (min): %s\n", analysis.FormatMinutes(k.P90Response)))
	b.WriteString(fmt.Sprintf("- Median mobilisation (min): %s\n", analysis.FormatMinutes(k.MedianMobilisation)))
	b.WriteString(fmt.Sprintf("- Median travel (min): %s\n", analysis.FormatMinutes(k.MedianTravel)))
	b.WriteString(fmt.Sprintf("Filtered rows: %s of %s\n\n", thousands(k.Rows), thousands(v.TotalRows)))

	sections := []struct {
		header string
		views  []analysis.ViewName
	}{
		{"[MONTHLY TRENDS]", []analysis.ViewName{analysis.ViewMonthly}},
		{"[BOROUGHS]", []analysis.ViewName{analysis.ViewBoroughs}},
		{"[INCIDENT GROUPS]", []analysis.ViewName{analysis.ViewGroups}},
		{"[TIME OF DAY]", []analysis.ViewName{analysis.ViewHours, analysis.ViewWeekdays}},
	}
	for _, sec := range sections {
		b.WriteString(sec.header + "\n")
		for _, name := range sec.views {
			v.writeSection(&b, name)
		}
		b.WriteString("\n")
	}

	b.WriteString("[MAP]\n")
	switch {
	case v.MapError != "":
		b.WriteString(v.MapError + "\n")
	case v.Map != nil:
		m := v.Map
		b.WriteString(fmt.Sprintf("Detected columns: latitude %s, longitude %s | Valid points: %s/%s\n",
			m.LatColumn, m.LonColumn, thousands(m.Valid), thousands(m.Total)))
		if m.EnforceBBox {
			b.WriteString(fmt.Sprintf("Bounding box: %.2f ≤ lat ≤ %.2f, %.2f ≤ lon ≤ %.2f (%s outside)\n",
				m.BBox.MinLat, m.BBox.MaxLat, m.BBox.MinLon, m.BBox.MaxLon, thousands(m.OutOfBounds)))
		}
		if m.Valid > 0 {
			b.WriteString(fmt.Sprintf("Sampled points: %s (max %s)\n", thousands(len(m.Sample)), thousands(m.SampleSize)))
		}
	}
	b.WriteString("\n")

	b.WriteString("[NOTES]\n")
	b.WriteString("KPIs = Response (Arrival − Call), Mobilisation (Mobilised − Call), Travel (Arrival − Mobilised).\n")
	for _, s := range v.Skipped {
		b.WriteString(fmt.Sprintf("- %s skipped: %s\n", s.Title, s.Reason))
	}
	for _, n := range v.Notes {
		b.WriteString("- " + n + "\n")
	}
	return b.String()
}

func (v *View) writeSection(b *strings.Builder, name analysis.ViewName) {
	for _, s := range v.Sections {
		if s.Name != name {
			continue
		}
		b.WriteString(fmt.Sprintf("%s\n", s.Title))
		b.WriteString("| key | incidents | median (min) | p90 (min) |\n|---|---:|---:|---:|\n")
		for _, r := range s.Rows {
			b.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", safeCell(r.Label), r.Count,
				analysis.FormatMinutes(r.Median), analysis.FormatMinutes(r.P90)))
		}
		return
	}
	for _, s := range v.Skipped {
		if s.Name == name {
			b.WriteString(fmt.Sprintf("%s: not available (%s)\n", s.Title, s.Reason))
		}
	}
}

var facetTitle = map[filter.Facet]string{
	filter.FacetYear:    "Year",
	filter.FacetType:    "Incident type",
	filter.FacetBorough: "Borough",
}

// Preview renders the first n rows of the filtered table as a Markdown table.
func (v *View) Preview(n int) string {
	if v.Filtered == nil || n <= 0 {
		return ""
	}
	head := v.Filtered.Head(n)
	cols := head.Columns()
	var b strings.Builder
	b.WriteString(fmt.Sprintf("[DATA] first %s of %s filtered rows\n", thousands(head.NumRows()), thousands(v.Filtered.NumRows())))
	b.WriteString("| " + strings.Join(cols, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat("---|", len(cols)) + "\n")
	cells := make([]string, len(cols))
	for i := 0; i < head.NumRows(); i++ {
		for j, val := range head.Row(i) {
			cells[j] = safeCell(val.String())
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func safeCell(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }

// thousands formats n with comma separators.
func thousands(n int) string {
	s := fmt.Sprintf("%d", n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	if neg {
		return "-" + s
	}
	return s
}

var (
	cardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#1f2937")).
			Padding(0, 1).
			Width(29)
	cardTitle = lipgloss.NewStyle().Foreground(lipgloss.Color("#94a3b8"))
	cardValue = lipgloss.NewStyle().Bold(true)
)

// KPICards renders the KPIs as a row of bordered terminal cards.
func KPICards(k analysis.KPIs) string {
	cards := []struct{ title, value string }{
		{"Incidents", thousands(k.Incidents)},
		{"Median response (min)", analysis.FormatMinutes(k.MedianResponse)},
		{"90th pct response (min)", analysis.FormatMinutes(k.P90Response)},
		{"Median mobilisation (min)", analysis.FormatMinutes(k.MedianMobilisation)},
		{"Median travel (min)", analysis.FormatMinutes(k.MedianTravel)},
	}
	rendered := make([]string, len(cards))
	for i, c := range cards {
		rendered[i] = cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, cardTitle.Render(c.title), cardValue.Render(c.value)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}
