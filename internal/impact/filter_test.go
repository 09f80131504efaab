package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFilters(t *testing.T) {
	merged, _ := scenarioMerged(t)

	tests := []struct {
		name    string
		filters []Filter
		wantIDs []string
	}{
		{
			name:    "no filters",
			wantIDs: []string{"P1", "P2", "P3", "P4"},
		},
		{
			name:    "empty values keep everything",
			filters: []Filter{{Column: "Region"}},
			wantIDs: []string{"P1", "P2", "P3", "P4"},
		},
		{
			name:    "single value",
			filters: []Filter{{Column: "Region", Values: []string{"North"}}},
			wantIDs: []string{"P1", "P3"},
		},
		{
			name: "filters combine",
			filters: []Filter{
				{Column: "Region", Values: []string{"North", "South"}},
				{Column: "Channel", Values: []string{"Agent"}},
			},
			wantIDs: []string{"P1", "P3"},
		},
		{
			name:    "NA selects nulls",
			filters: []Filter{{Column: "Note", Values: []string{NALabel}}},
			wantIDs: []string{"P2", "P3", "P4"},
		},
		{
			name:    "NA with a value",
			filters: []Filter{{Column: "Note", Values: []string{"vip", NALabel}}},
			wantIDs: []string{"P1", "P2", "P3", "P4"},
		},
		{
			name:    "no match",
			filters: []Filter{{Column: "Channel", Values: []string{"Online"}}},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ApplyFilters(merged, tt.filters)
			require.NoError(t, err)
			ids, err := out.Column("ID")
			require.NoError(t, err)
			got := make([]string, len(ids))
			for i, v := range ids {
				got[i] = v.Text()
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestApplyFilters_UnknownColumn(t *testing.T) {
	merged, _ := scenarioMerged(t)
	_, err := ApplyFilters(merged, []Filter{{Column: "Product", Values: []string{"x"}}})
	assert.True(t, IsQueryError(err))
}

func TestFilterOptions(t *testing.T) {
	merged, _ := scenarioMerged(t)
	opts, err := FilterOptions(merged, []string{"Region", "Channel", "Note"})
	require.NoError(t, err)

	assert.Equal(t, []FilterOption{
		{Column: "Region", Values: []string{"North", "South"}},
		{Column: "Channel", Values: []string{"Agent", "Broker", "Direct"}},
		{Column: "Note", Values: []string{"vip", NALabel}},
	}, opts)

	_, err = FilterOptions(merged, []string{"Product"})
	assert.True(t, IsQueryError(err))
}
