package services

import (
	"path/filepath"
	"testing"

	"impactcli/internal/config"
	"impactcli/internal/shared/testutil"
)

// writeFixture lays out a declaration workbook and two quarterly CSV sources.
// P4 is missing from q2 and P2 is duplicated there.
func writeFixture(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	mapping := testutil.WriteWorkbook(t, dir, "mapping.xlsx", map[string][][]any{
		"input": {
			{"Item", "Stage", "StageName", "File", "Column", "ID"},
			{"Premium", 1, "Q1", "q1.csv", "prem", "PolicyID"},
			{"Premium", 2, "Q2", "q2.csv", "prem", "PolicyID"},
			{"Claims", 1, "Q1", "q1.csv", "clm", "PolicyID"},
			{"Claims", 2, "Q2", "q2.csv", "clm", "PolicyID"},
		},
		"band": {
			{"From", "To", "Name"},
			{"", 0, "Decrease"},
			{0, 0.05, "Flat"},
			{0.05, "", "Increase"},
		},
	})
	testutil.WriteCSV(t, dir, "q1.csv", [][]string{
		{"PolicyID", "Region", "prem", "clm"},
		{"P1", "North", "100", "10"},
		{"P2", "South", "200", "0"},
		{"P3", "North", "50", "20"},
		{"P4", "East", "80", "5"},
	})
	testutil.WriteCSV(t, dir, "q2.csv", [][]string{
		{"PolicyID", "Channel", "prem", "clm"},
		{"P1", "Agent", "110", "12"},
		{"P2", "Broker", "180", "5"},
		{"P2", "Broker", "999", "999"},
		{"P3", "Agent", "50", "30"},
	})

	cfg := config.Default()
	cfg.BaseDir = dir
	cfg.Analysis.MappingFile = mapping
	cfg.Analysis.OutputDir = filepath.Join(dir, "output")
	return cfg
}
