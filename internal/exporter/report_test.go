package exporter

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"impactcli/internal/dataset"
	"impactcli/internal/impact"
	"impactcli/internal/shared/testutil"
)

func mustTable(t *testing.T, columns []string, rows ...[]string) *dataset.Table {
	t.Helper()
	tbl, err := dataset.New(columns...)
	require.NoError(t, err)
	for _, r := range rows {
		vals := make([]dataset.Value, len(r))
		for i, s := range r {
			vals[i] = dataset.Parse(s)
		}
		require.NoError(t, tbl.Append(vals...))
	}
	return tbl
}

// runFixture analyses three entities over two stages: E1 grows by half, E2
// starts from zero and E3 has no final value.
func runFixture(t *testing.T) (*impact.Result, *impact.Breakdown) {
	t.Helper()
	ctx := context.Background()
	engine := impact.NewEngine(testutil.Logger(t))

	res, err := engine.Run(ctx, impact.Input{
		Declaration: impact.Declaration{
			IDColumn: "ID",
			Rows: []impact.MappingRow{
				{Item: "Premium", Stage: 1, StageName: "Base", File: "a.csv", Column: "prem"},
				{Item: "Premium", Stage: 2, StageName: "Final", File: "b.csv", Column: "prem"},
			},
		},
		Sources: []impact.Source{
			{Name: "a.csv", Table: mustTable(t, []string{"ID", "Region", "prem"},
				[]string{"E1", "North", "100"},
				[]string{"E2", "South", "0"},
				[]string{"E3", "North", "50"},
			)},
			{Name: "b.csv", Table: mustTable(t, []string{"ID", "prem"},
				[]string{"E1", "150"},
				[]string{"E2", "5"},
				[]string{"E3", ""},
			)},
		},
		Bands: []impact.Band{
			{Lower: -1, Upper: 0, Name: "down"},
			{Lower: 0, Upper: 0.5, Name: "up"},
		},
	})
	require.NoError(t, err)

	b, err := engine.Breakdown(ctx, res.Merged, res.Mappings, impact.BreakdownRequest{
		Item:       "Premium",
		Dimensions: []string{"Region"},
	})
	require.NoError(t, err)
	return res, b
}

// column returns the cells of one named column below the header
func column(t *testing.T, records [][]string, name string) []string {
	t.Helper()
	for i, h := range records[0] {
		if h == name {
			out := make([]string, 0, len(records)-1)
			for _, r := range records[1:] {
				out = append(out, r[i])
			}
			return out
		}
	}
	t.Fatalf("column %q not in %v", name, records[0])
	return nil
}

func TestReporter_WriteCSV(t *testing.T) {
	res, b := runFixture(t)
	dir := t.TempDir()
	reporter := NewReporter(dir, testutil.Logger(t))

	paths, err := reporter.WriteCSV(context.Background(), Report{Result: res, Breakdowns: []*impact.Breakdown{b}})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, MergedFile),
		filepath.Join(dir, DistributionFile),
		filepath.Join(dir, SummaryFile),
		filepath.Join(dir, "breakdown_Premium.csv"),
	}, paths)

	t.Run("merged", func(t *testing.T) {
		records := readCSV(t, paths[0])
		wantHeader := []string{
			"ID", "Region", "Premium_1", "Premium_2",
			"diff_Premium_step_0", "percent_diff_Premium_step_0",
			"diff_Premium_step_1", "percent_diff_Premium_step_1",
			"band_Premium_step_0", "band_Premium_step_1",
		}
		if diff := cmp.Diff(wantHeader, records[0]); diff != "" {
			t.Errorf("merged header mismatch (-want +got):\n%s", diff)
		}
		assert.Equal(t, []string{"E1", "E2", "E3"}, column(t, records, "ID"))
		assert.Equal(t, []string{"50", "5", ""}, column(t, records, "diff_Premium_step_0"))
		assert.Equal(t, []string{"0.5", impact.ZeroBaseSentinel, ""}, column(t, records, "percent_diff_Premium_step_0"))
		assert.Equal(t, []string{"up", "", ""}, column(t, records, "band_Premium_step_0"))
	})

	t.Run("distribution", func(t *testing.T) {
		records := readCSV(t, paths[1])
		require.Len(t, records, 1+2*3, "two steps of three bands each")
		assert.Equal(t, []string{"0", "0", "0", "1", "1", "1"}, column(t, records, "step"))
		assert.Equal(t, []string{"down", "up", impact.Unbanded, "down", "up", impact.Unbanded}, column(t, records, "band"))
		assert.Equal(t, []string{"0", "1", "0", "0", "1", "0"}, column(t, records, "count"))
		assert.Equal(t, []string{"0", "1", "0", "0", "1", "0"}, column(t, records, "proportion"))
		assert.Equal(t, "1", column(t, records, "zero_base")[0])
		assert.Equal(t, "1", column(t, records, "missing")[0])
		assert.Equal(t, "3", column(t, records, "total")[0])
	})

	t.Run("summary", func(t *testing.T) {
		records := readCSV(t, paths[2])
		require.Len(t, records, 3)
		assert.Equal(t, []string{"Premium", "Premium"}, column(t, records, "item"))
		assert.Equal(t, []string{"Base", "Final"}, column(t, records, "stage_name"))
		assert.Equal(t, []string{"150", "155"}, column(t, records, "value_total"))
		assert.Equal(t, []string{"0", "5"}, column(t, records, "value_diff"))
	})

	t.Run("breakdown", func(t *testing.T) {
		records := readCSV(t, paths[3])
		assert.Equal(t, []string{"row_kind", "Region", "start", "end", "entity_count", "diff", "diff_percent"}, records[0])
		assert.Equal(t, []string{"leaf", "leaf", "grand-total"}, column(t, records, "row_kind"))
		assert.Equal(t, []string{"North", "South", ""}, column(t, records, "Region"))
		assert.Equal(t, []string{"2", "1", "3"}, column(t, records, "entity_count"))
		assert.Equal(t, []string{"0", impact.ZeroBaseSentinel}, column(t, records, "diff_percent")[:2])
	})
}

func TestReporter_WriteWorkbook(t *testing.T) {
	res, b := runFixture(t)
	dir := t.TempDir()
	reporter := NewReporter(dir, testutil.Logger(t))

	path, err := reporter.WriteWorkbook(context.Background(), Report{Result: res, Breakdowns: []*impact.Breakdown{b}})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, WorkbookFile), path)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Merged", "Distribution", "Summary", "Breakdown Premium"}, f.GetSheetList())

	rows, err := f.GetRows("Merged")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, []string{"E1", "North", "100", "150"}, rows[1][:4])

	cellType, err := f.GetCellType("Merged", "C2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeSharedString, cellType, "numbers are stored as numbers")

	pct, err := f.GetCellValue("Merged", "F3")
	require.NoError(t, err)
	assert.Equal(t, impact.ZeroBaseSentinel, pct)

	rows, err = f.GetRows("Breakdown Premium")
	require.NoError(t, err)
	assert.Equal(t, "grand-total", rows[len(rows)-1][0])
}

func TestReporter_Errors(t *testing.T) {
	reporter := NewReporter(t.TempDir(), nil)

	_, err := reporter.WriteCSV(context.Background(), Report{})
	assert.Error(t, err)
	_, err = reporter.WriteWorkbook(context.Background(), Report{})
	assert.Error(t, err)

	res, _ := runFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reporter.WriteCSV(ctx, Report{Result: res})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = reporter.WriteWorkbook(ctx, Report{Result: res})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBreakdownFile(t *testing.T) {
	assert.Equal(t, "breakdown_Premium.csv", BreakdownFile("Premium", impact.SeriesPrimary))
	assert.Equal(t, "breakdown_Gross_Premium_rn.csv", BreakdownFile("Gross Premium", impact.SeriesRenewal))
	assert.Equal(t, "breakdown_a_b.csv", BreakdownFile("a/b", ""))
}

func TestSheetName(t *testing.T) {
	used := map[string]bool{}
	assert.Equal(t, "Breakdown a_b", sheetName("Breakdown a/b", used))
	assert.Equal(t, "Breakdown a_b 2", sheetName("Breakdown a:b", used))

	long := sheetName("Breakdown Gross Written Premium Before Tax", used)
	assert.Len(t, []rune(long), maxSheetName)
	again := sheetName("Breakdown Gross Written Premium Before Tax", used)
	assert.Len(t, []rune(again), maxSheetName)
	assert.NotEqual(t, long, again)
}
