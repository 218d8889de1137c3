package filter

import (
	"testing"

	"github.com/KaramelBytes/lfbdash-cli/internal/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func incidents(t *testing.T) *dataset.Table {
	t.Helper()
	y := func(f float64) dataset.Value { return dataset.NumberValue(f) }
	s := dataset.StringValue
	return dataset.NewTable("incidents", []string{"year", "IncidentGroup", "Borough"}, [][]dataset.Value{
		{y(2019), s("Fire"), s("CAMDEN")},
		{y(2020), s("Fire"), s("HACKNEY")},
		{y(2021), s("False Alarm"), s("CAMDEN")},
		{y(2022), s("Special Service"), s("ISLINGTON")},
		{y(2023), s("Fire"), dataset.NullValue()},
		{dataset.NullValue(), s("Fire"), s("CAMDEN")},
	})
}

func TestNewStateOptionsAndDefaults(t *testing.T) {
	st := NewState(incidents(t), 3)
	opts := st.Options()
	assert.Equal(t, []float64{2019, 2020, 2021, 2022, 2023}, opts.Years)
	assert.Equal(t, []string{"False Alarm", "Fire", "Special Service"}, opts.Types)
	assert.Equal(t, []string{"CAMDEN", "HACKNEY", "ISLINGTON"}, opts.Boroughs)

	sel := st.Selection()
	assert.Equal(t, []float64{2021, 2022, 2023}, sel.Years)
	assert.Equal(t, opts.Types, sel.Types)
	assert.Equal(t, opts.Boroughs, sel.Boroughs)
}

func TestDefaultsWithFewerYears(t *testing.T) {
	tbl := dataset.NewTable("t", []string{"year"}, [][]dataset.Value{
		{dataset.NumberValue(2022)}, {dataset.NumberValue(2021)},
	})
	st := NewState(tbl, 3)
	assert.Equal(t, []float64{2021, 2022}, st.Selection().Years)
	assert.Equal(t, 2, st.Apply(tbl).NumRows())
}

func TestApplyIdentityWhenEmpty(t *testing.T) {
	tbl := incidents(t)
	st := NewState(tbl, 3)
	st.SetYears(nil)
	st.SetTypes(nil)
	st.SetBoroughs(nil)
	assert.Same(t, tbl, st.Apply(tbl))
}

func TestDefaultSelectsMostRecentYears(t *testing.T) {
	tbl := incidents(t)
	st := NewState(tbl, 3)
	out := st.Apply(tbl)
	// 2023 has a null borough, so the all-borough default excludes it.
	require.Equal(t, 2, out.NumRows())
	for i := 0; i < out.NumRows(); i++ {
		y, _ := out.Get(i, "year").Float()
		assert.Contains(t, []float64{2021, 2022, 2023}, y)
	}
}

func TestApplyAndsFacetsAndNullsNeverMatch(t *testing.T) {
	tbl := incidents(t)
	st := NewState(tbl, 3)
	st.SetYears(nil)
	st.SetBoroughs(nil)
	st.SetTypes([]string{"Fire"})
	assert.Equal(t, 4, st.Apply(tbl).NumRows())

	st.SetBoroughs([]string{"CAMDEN"})
	assert.Equal(t, 2, st.Apply(tbl).NumRows())

	st.SetYears([]float64{2019})
	out := st.Apply(tbl)
	require.Equal(t, 1, out.NumRows())
	assert.Equal(t, "CAMDEN", out.Get(0, "Borough").String())
}

func TestMissingColumnWithSelection(t *testing.T) {
	tbl := dataset.NewTable("t", []string{"Borough"}, [][]dataset.Value{{dataset.StringValue("CAMDEN")}})
	sel := Selection{Types: []string{"Fire"}}
	assert.Equal(t, 0, sel.Apply(tbl).NumRows())

	// Options are empty for absent columns, so a state never restricts them.
	st := NewState(tbl, 3)
	assert.Equal(t, []string{"Fire"}, st.SetTypes([]string{"Fire"}))
	assert.Equal(t, 1, st.Apply(tbl).NumRows())
}

func TestSettersClampToOptions(t *testing.T) {
	st := NewState(incidents(t), 3)
	rejected := st.SetBoroughs([]string{"HACKNEY", "WESTMINSTER", "HACKNEY"})
	assert.Equal(t, []string{"WESTMINSTER"}, rejected)
	assert.Equal(t, []string{"HACKNEY"}, st.Selection().Boroughs)

	assert.Equal(t, []float64{1999}, st.SetYears([]float64{2020, 1999}))
	assert.Equal(t, []float64{2020}, st.Selection().Years)

	// Other facets are untouched.
	assert.Len(t, st.Selection().Types, 3)

	rej, err := st.Set(FacetYear, []string{"2021", "abc", "1990"})
	require.NoError(t, err)
	assert.Equal(t, []string{"abc", "1990"}, rej)
	assert.Equal(t, []float64{2021}, st.Selection().Years)
}

func TestReset(t *testing.T) {
	st := NewState(incidents(t), 2)
	st.SetTypes([]string{"Fire"})
	st.SetYears([]float64{2019})
	st.Reset()
	sel := st.Selection()
	assert.Equal(t, []float64{2022, 2023}, sel.Years)
	assert.Len(t, sel.Types, 3)
	assert.Len(t, sel.Boroughs, 3)
}

func TestParseFacet(t *testing.T) {
	f, err := ParseFacet(" Borough ")
	require.NoError(t, err)
	assert.Equal(t, FacetBorough, f)
	assert.Equal(t, "IncidentGroup", FacetType.Column())
	_, err = ParseFacet("station")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, "All", Summarize(nil))
	assert.Equal(t, "2021, 2022", Summarize(Selection{Years: []float64{2021, 2022}}.Labels(FacetYear)))
	assert.Equal(t, "4 selected", Summarize([]string{"a", "b", "c", "d"}))
}
