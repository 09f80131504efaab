package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"

	"impactcli/internal/dataset"
	"impactcli/internal/impact"
)

// Report file names inside the output directory
const (
	MergedFile       = "merged_data.csv"
	DistributionFile = "band_distribution.csv"
	SummaryFile      = "stage_summary.csv"
	WorkbookFile     = "impact_report.xlsx"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// BreakdownFile names the breakdown report of an Item
func BreakdownFile(item string, series impact.Series) string {
	name := "breakdown_" + unsafeFileChars.ReplaceAllString(item, "_")
	if series == impact.SeriesRenewal {
		name += "_rn"
	}
	return name + ".csv"
}

// Sheet is one tabular report. Cells hold nil, string, int, float64,
// dataset.Value or impact.Ratio.
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]any
}

// Report is everything written for one analysis run
type Report struct {
	Result     *impact.Result
	Breakdowns []*impact.Breakdown
}

// MergedSheet is the merged dataset with the difference columns of every
// step and a band label column per step series. A delta that cannot be
// banded under the run's basis gets an empty label.
func MergedSheet(res *impact.Result) (Sheet, error) {
	table, err := res.Differences.AppendColumns(res.Merged)
	if err != nil {
		return Sheet{}, fmt.Errorf("failed to append difference columns: %w", err)
	}

	type bandSeries struct {
		column string
		deltas []impact.Delta
	}
	var series []bandSeries
	for _, item := range res.Differences.Items {
		for _, sd := range item.Steps {
			series = append(series, bandSeries{impact.BandColumn(item.Item, sd.Step.Number, false), sd.Primary})
			if sd.Renewal != nil {
				series = append(series, bandSeries{impact.BandColumn(item.Item, sd.Step.Number, true), sd.Renewal})
			}
		}
	}

	basis := res.Distribution.Basis
	sheet := Sheet{Name: "Merged", Headers: table.Columns()}
	for _, s := range series {
		sheet.Headers = append(sheet.Headers, s.column)
	}
	sheet.Rows = make([][]any, table.Len())
	for i := range sheet.Rows {
		row := make([]any, 0, len(sheet.Headers))
		for _, v := range table.Row(i) {
			row = append(row, v)
		}
		for _, s := range series {
			if v, ok := s.deltas[i].Banded(basis); ok {
				row = append(row, res.Bands.Classify(v))
			} else {
				row = append(row, nil)
			}
		}
		sheet.Rows[i] = row
	}
	return sheet, nil
}

// DistributionSheet lists the band counts of every Item, step and series in
// band order
func DistributionSheet(dist *impact.DistributionSummary) Sheet {
	sheet := Sheet{
		Name: "Distribution",
		Headers: []string{
			"item", "step", "step_name", "series", "band", "rank", "count", "proportion",
			"defined", "zero_base", "missing", "total",
		},
	}
	add := func(item string, step impact.Step, series impact.Series, sd *impact.SeriesDistribution) {
		for _, bc := range sd.Bands {
			sheet.Rows = append(sheet.Rows, []any{
				item, step.Number, step.Name, string(series), bc.Band, bc.Rank, bc.Count, bc.Proportion,
				sd.Defined, sd.ZeroBase, sd.Missing, sd.Total,
			})
		}
	}
	for _, item := range dist.Items {
		for i := range item.Steps {
			sd := &item.Steps[i]
			add(item.Item, sd.Step, impact.SeriesPrimary, &sd.Primary)
			if sd.Renewal != nil {
				add(item.Item, sd.Step, impact.SeriesRenewal, sd.Renewal)
			}
		}
	}
	return sheet
}

// SummarySheet lists the stage waterfall of every Item
func SummarySheet(summaries []impact.ItemSummary) Sheet {
	sheet := Sheet{
		Name: "Summary",
		Headers: []string{
			"item", "series", "stage", "stage_name", "column",
			"value_total", "value_diff", "value_total_percent", "value_diff_percent",
		},
	}
	add := func(item string, series impact.Series, totals []impact.StageTotal) {
		for _, st := range totals {
			sheet.Rows = append(sheet.Rows, []any{
				item, string(series), st.Stage, st.StageName, st.Column,
				st.ValueTotal, st.ValueDiff, st.ValueTotalPercent, st.ValueDiffPercent,
			})
		}
	}
	for _, s := range summaries {
		add(s.Item, impact.SeriesPrimary, s.Primary)
		add(s.Item, impact.SeriesRenewal, s.Renewal)
	}
	return sheet
}

// BreakdownSheet lists the rows of a breakdown in reading order. Subtotal and
// grand total rows leave their deeper dimension cells empty.
func BreakdownSheet(b *impact.Breakdown) Sheet {
	name := "Breakdown " + b.Item
	if b.Series == impact.SeriesRenewal {
		name += " rn"
	}
	sheet := Sheet{Name: name, Headers: []string{"row_kind"}}
	sheet.Headers = append(sheet.Headers, b.Dimensions...)
	sheet.Headers = append(sheet.Headers, "start", "end", "entity_count", "diff", "diff_percent")

	for _, r := range b.Rows {
		row := make([]any, 0, len(sheet.Headers))
		row = append(row, r.Label())
		for i := range b.Dimensions {
			if i < len(r.Keys) {
				row = append(row, r.Keys[i])
			} else {
				row = append(row, dataset.Null())
			}
		}
		row = append(row, r.Totals.Start, r.Totals.End, r.Totals.Count, r.Totals.Diff, r.Totals.DiffPercent)
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}

// Reporter writes the reports of an analysis run into one output directory
type Reporter struct {
	csv    *CSVWriter
	dir    string
	logger *slog.Logger
}

// NewReporter creates a reporter writing under outputDir
func NewReporter(outputDir string, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		csv:    NewCSVWriter(outputDir, logger),
		dir:    outputDir,
		logger: logger.With(slog.String("component", "reporter")),
	}
}

// Sheets builds every report sheet in workbook order
func (r *Reporter) Sheets(rep Report) ([]Sheet, error) {
	if rep.Result == nil {
		return nil, fmt.Errorf("report has no analysis result")
	}
	merged, err := MergedSheet(rep.Result)
	if err != nil {
		return nil, err
	}
	sheets := []Sheet{
		merged,
		DistributionSheet(rep.Result.Distribution),
		SummarySheet(rep.Result.Summary),
	}
	for _, b := range rep.Breakdowns {
		sheets = append(sheets, BreakdownSheet(b))
	}
	return sheets, nil
}

// WriteCSV writes one CSV file per sheet and returns their paths
func (r *Reporter) WriteCSV(ctx context.Context, rep Report) ([]string, error) {
	if rep.Result == nil {
		return nil, fmt.Errorf("report has no analysis result")
	}
	merged, err := MergedSheet(rep.Result)
	if err != nil {
		return nil, err
	}
	mergedPath, err := r.streamSheet(ctx, MergedFile, merged)
	if err != nil {
		return nil, err
	}
	paths := []string{mergedPath}

	files := []struct {
		name  string
		sheet Sheet
	}{
		{DistributionFile, DistributionSheet(rep.Result.Distribution)},
		{SummaryFile, SummarySheet(rep.Result.Summary)},
	}
	for _, b := range rep.Breakdowns {
		files = append(files, struct {
			name  string
			sheet Sheet
		}{BreakdownFile(b.Item, b.Series), BreakdownSheet(b)})
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return paths, err
		}
		records := make([][]string, len(f.sheet.Rows))
		for i, row := range f.sheet.Rows {
			records[i] = formatRecord(row)
		}
		path, err := r.csv.WriteSimpleCSV(f.name, f.sheet.Headers, records)
		if err != nil {
			return paths, fmt.Errorf("failed to write %s: %w", f.name, err)
		}
		paths = append(paths, path)
	}

	r.logger.InfoContext(ctx, "reports written",
		slog.String("output_dir", r.dir),
		slog.Int("files", len(paths)))
	return paths, nil
}

// streamSheet writes a large sheet row by row, checking for cancellation
// between chunks
func (r *Reporter) streamSheet(ctx context.Context, name string, sheet Sheet) (string, error) {
	sw, err := r.csv.CreateStreamWriter(name, sheet.Headers)
	if err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	for i, row := range sheet.Rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				sw.Close()
				return "", err
			}
		}
		if err := sw.WriteRecord(formatRecord(row)); err != nil {
			sw.Close()
			return "", fmt.Errorf("failed to write %s row %d: %w", name, i+1, err)
		}
	}
	if err := sw.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}
	return sw.Path(), nil
}
