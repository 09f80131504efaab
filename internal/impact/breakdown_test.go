package impact

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactcli/internal/dataset"
)

func pivotMapping(t *testing.T) ComparisonMapping {
	t.Helper()
	mappings, err := ResolveMappings(Declaration{IDColumn: "ID", Rows: []MappingRow{
		{Item: "Premium", Stage: 1, File: "a", Column: "p1"},
		{Item: "Premium", Stage: 2, File: "a", Column: "p2"},
	}}, Options{})
	require.NoError(t, err)
	return mappings[0]
}

// pivotTable has 3 regions x 2 channels with 2 entities per combination,
// appended in scrambled order.
func pivotTable(t *testing.T) *dataset.Table {
	t.Helper()
	rows := [][]string{
		{"E01", "C", "Y", "10", "11"},
		{"E02", "A", "Y", "20", "22"},
		{"E03", "B", "X", "30", "27"},
		{"E04", "A", "X", "40", "44"},
		{"E05", "C", "X", "50", "50"},
		{"E06", "B", "Y", "60", "66"},
		{"E07", "A", "X", "70", "77"},
		{"E08", "C", "Y", "80", "88"},
		{"E09", "B", "X", "90", "99"},
		{"E10", "A", "Y", "100", "110"},
		{"E11", "B", "Y", "110", "121"},
		{"E12", "C", "X", "120", "132"},
	}
	return mustTable(t, []string{"ID", "Region", "Channel", "Premium_1", "Premium_2"}, rows...)
}

func rowSignature(r BreakdownRow) string {
	return fmt.Sprintf("%s%v", r.Label(), r.KeyText())
}

func TestBuildBreakdown_TwoDimensions(t *testing.T) {
	b, err := BuildBreakdown(pivotTable(t), pivotMapping(t), []string{"Region", "Channel"}, SeriesPrimary)
	require.NoError(t, err)
	require.Len(t, b.Rows, 10)
	assert.Empty(t, b.Warnings)

	var got []string
	for _, r := range b.Rows {
		got = append(got, rowSignature(r))
	}
	want := []string{
		"leaf[A X]", "leaf[A Y]", "subtotal-level-1[A]",
		"leaf[B X]", "leaf[B Y]", "subtotal-level-1[B]",
		"leaf[C X]", "leaf[C Y]", "subtotal-level-1[C]",
		"grand-total[]",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("row order mismatch (-want +got):\n%s", diff)
	}

	// A/X holds E04 and E07
	ax := b.Rows[0].Totals
	assert.Equal(t, 2, ax.Count)
	assert.Equal(t, 110.0, ax.Start)
	assert.Equal(t, 121.0, ax.End)
	assert.InDelta(t, 0.1, ax.DiffPercent.Value, 1e-12)

	grand := b.GrandTotal()
	assert.Equal(t, RowGrandTotal, grand.Kind)
	assert.Equal(t, 12, grand.Totals.Count)
	assert.Equal(t, 780.0, grand.Totals.Start)
}

func TestBuildBreakdown_Invariants(t *testing.T) {
	dims := [][]string{{"Region"}, {"Region", "Channel"}, {"Channel", "Region"}, {"Region", "Channel", "ID"}}
	for _, d := range dims {
		t.Run(fmt.Sprint(d), func(t *testing.T) {
			b, err := BuildBreakdown(pivotTable(t), pivotMapping(t), d, SeriesPrimary)
			require.NoError(t, err)

			for _, r := range b.Rows {
				assert.Equal(t, r.Totals.End-r.Totals.Start, r.Totals.Diff)
			}
			assert.Equal(t, 12, b.GrandTotal().Totals.Count)
			assertChildrenSumToParent(t, b)
		})
	}
}

// assertChildrenSumToParent checks every subtotal and the grand total against
// the rows one level below it that precede it.
func assertChildrenSumToParent(t *testing.T, b *Breakdown) {
	t.Helper()
	n := len(b.Dimensions)
	level := func(r BreakdownRow) int {
		if r.Kind == RowLeaf {
			return n
		}
		return r.Level
	}
	for i, parent := range b.Rows {
		if parent.Kind == RowLeaf {
			continue
		}
		var count int
		var start float64
		for j := i - 1; j >= 0; j-- {
			child := b.Rows[j]
			if level(child) <= parent.Level {
				break
			}
			if level(child) == parent.Level+1 {
				count += child.Totals.Count
				start += child.Totals.Start
			}
		}
		assert.Equal(t, parent.Totals.Count, count, "row %d %s", i, rowSignature(parent))
		assert.InDelta(t, parent.Totals.Start, start, 1e-9)
	}
}

func TestBuildBreakdown_NumericAndNullKeys(t *testing.T) {
	tbl := mustTable(t, []string{"ID", "Band", "Premium_1", "Premium_2"},
		[]string{"1", "100", "1", "2"},
		[]string{"2", "", "1", "2"},
		[]string{"3", "9", "1", "2"},
		[]string{"4", "10", "1", "2"},
		[]string{"5", "", "1", ""},
	)
	b, err := BuildBreakdown(tbl, pivotMapping(t), []string{"Band"}, "")
	require.NoError(t, err)
	assert.Equal(t, SeriesPrimary, b.Series)

	var got []string
	for _, r := range b.Rows {
		got = append(got, rowSignature(r))
	}
	assert.Equal(t, []string{"leaf[9]", "leaf[10]", "leaf[100]", "leaf[]", "grand-total[]"}, got)

	nulls := b.Rows[3].Totals
	assert.Equal(t, 2, nulls.Count)
	assert.Equal(t, 2.0, nulls.Start)
	assert.Equal(t, 2.0, nulls.End, "null stage values add nothing")
	assert.Equal(t, 5, b.GrandTotal().Totals.Count)
}

func TestBuildBreakdown_ZeroBase(t *testing.T) {
	tbl := mustTable(t, []string{"ID", "Region", "Premium_1", "Premium_2"},
		[]string{"1", "A", "0", "5"},
	)
	b, err := BuildBreakdown(tbl, pivotMapping(t), []string{"Region"}, SeriesPrimary)
	require.NoError(t, err)
	assert.True(t, b.Rows[0].Totals.DiffPercent.ZeroBase)
	assert.Equal(t, 5.0, b.Rows[0].Totals.Diff)
}

func TestBuildBreakdown_ClipsDimensions(t *testing.T) {
	tbl := pivotTable(t)
	b, err := BuildBreakdown(tbl, pivotMapping(t), []string{"Region", "Channel", "ID", "Premium_1"}, SeriesPrimary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Region", "Channel", "ID"}, b.Dimensions)
	require.Len(t, b.Warnings, 1)
	assert.Contains(t, b.Warnings[0], "Premium_1")
}

func TestBuildBreakdown_Errors(t *testing.T) {
	tests := []struct {
		name      string
		dims      []string
		series    Series
		wantField string
	}{
		{name: "no dimensions", dims: nil, wantField: "dimensions"},
		{name: "unknown dimension", dims: []string{"Product"}, wantField: "dimensions"},
		{name: "repeated dimension", dims: []string{"Region", "Region"}, wantField: "dimensions"},
		{name: "renewal without renewal data", dims: []string{"Region"}, series: SeriesRenewal, wantField: "series"},
		{name: "unknown series", dims: []string{"Region"}, series: "forecast", wantField: "series"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildBreakdown(pivotTable(t), pivotMapping(t), tt.dims, tt.series)
			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.wantField, qe.Field)
		})
	}
}

func TestBuildBreakdown_Renewal(t *testing.T) {
	merged, mappings := scenarioMerged(t)
	b, err := BuildBreakdown(merged, mappings[0], []string{"Region"}, SeriesRenewal)
	require.NoError(t, err)
	assert.Equal(t, SeriesRenewal, b.Series)

	grand := b.GrandTotal().Totals
	assert.Equal(t, 100.0, grand.Start)
	assert.Equal(t, 120.0, grand.End)
}
