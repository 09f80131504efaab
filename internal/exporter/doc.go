// Package exporter writes the reports of an analysis run.
//
// CSVWriter is the low-level writer: UTF-8 BOM for Excel compatibility,
// relative paths resolved under a base directory, and a StreamWriter for
// large datasets.
//
// Reporter turns an impact.Result into report sheets and writes them either
// as one CSV file per sheet or as a single xlsx workbook:
//
//	merged_data.csv        merged dataset, difference columns, band labels
//	band_distribution.csv  band counts per Item, step and series in band order
//	stage_summary.csv      stage waterfall per Item and series
//	breakdown_<item>.csv   breakdown rows in reading order with their row kind
//
// Undefined relative changes are written as impact.ZeroBaseSentinel and null
// cells as empty fields.
//
// Example usage:
//
//	reporter := exporter.NewReporter(cfg.Analysis.OutputDir, logger)
//	paths, err := reporter.WriteCSV(ctx, exporter.Report{Result: result})
//	workbook, err := reporter.WriteWorkbook(ctx, exporter.Report{Result: result})
package exporter
