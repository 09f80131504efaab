package impact

import (
	"testing"

	"github.com/stretchr/testify/require"

	"impactcli/internal/dataset"
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

// scenarioBands are the three bands used throughout the package tests
func scenarioBands() []Band {
	return []Band{
		{Lower: -1, Upper: 0, Name: "neg"},
		{Lower: 0, Upper: 0.1, Name: "small+"},
		{Lower: 0.1, Upper: 1, Name: "big+"},
	}
}

// scenarioDeclaration declares 2 Items over 3 stages, deliberately unsorted.
// Only Premium carries renewal columns.
func scenarioDeclaration() Declaration {
	return Declaration{
		IDColumn: "ID",
		Rows: []MappingRow{
			{Item: "Premium", Stage: 1, StageName: "Base", File: "base.csv", Column: "prem", RNColumn: "prem_rn"},
			{Item: "Claims", Stage: 1, StageName: "Base", File: "base.csv", Column: "clm"},
			{Item: "Premium", Stage: 3, StageName: "Final", File: "final.csv", Column: "prem", RNColumn: "prem_rn"},
			{Item: "Premium", Stage: 2, StageName: "Rerated", File: "mid.csv", Column: "prem", RNColumn: "prem_rn"},
			{Item: "Claims", Stage: 2, StageName: "Rerated", File: "mid.csv", Column: "clm"},
			{Item: "Claims", Stage: 3, StageName: "Final", File: "final.csv", Column: "clm"},
		},
	}
}

func scenarioOptions() Options {
	return Options{
		Renewal:      true,
		RenewalItems: map[string]bool{"Claims": false},
		Workers:      2,
	}
}

// scenarioSources holds 4 matched entities. P5 exists only in the base file
// and P2 is duplicated in the mid file.
func scenarioSources(t *testing.T) []Source {
	t.Helper()
	base := mustTable(t, []string{"ID", "Region", "prem", "clm", "prem_rn"},
		[]string{"P1", "North", "100", "0", "10"},
		[]string{"P2", "South", "200", "10", "20"},
		[]string{"P3", "North", "50", "20", "30"},
		[]string{"P4", "South", "80", "40", "40"},
		[]string{"P5", "East", "1", "1", "1"},
	)
	mid := mustTable(t, []string{"ID", "Channel", "prem", "clm", "prem_rn"},
		[]string{"P1", "Agent", "104", "10", "15"},
		[]string{"P2", "Broker", "180", "10", "20"},
		[]string{"P2", "Broker", "999", "999", "999"},
		[]string{"P3", "Agent", "60", "15", "30"},
		[]string{"P4", "Direct", "80", "50", "40"},
	)
	final := mustTable(t, []string{"ID", "Region", "Note", "prem", "clm", "prem_rn"},
		[]string{"P4", "South", "", "400", "45", "40"},
		[]string{"P1", "North", "vip", "120", "20", "30"},
		[]string{"P2", "South", "", "190", "10", "20"},
		[]string{"P3", "North", "", "45", "", "30"},
	)
	return []Source{
		{Name: "base.csv", Table: base},
		{Name: "mid.csv", Table: mid},
		{Name: "final.csv", Table: final},
	}
}

func scenarioMerged(t *testing.T) (*dataset.Table, []ComparisonMapping) {
	t.Helper()
	opts := scenarioOptions()
	mappings, err := ResolveMappings(scenarioDeclaration(), opts)
	require.NoError(t, err)
	merged, _, err := Merge(scenarioSources(t), "ID", mappings, opts)
	require.NoError(t, err)
	return merged, mappings
}
