package impact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarizeStages(t *testing.T) {
	merged, mappings := scenarioMerged(t)
	summary, err := SummarizeStages(merged, mappings)
	require.NoError(t, err)
	require.Len(t, summary, 2)

	premium := summary[0]
	assert.Equal(t, "Premium", premium.Item)
	require.Len(t, premium.Primary, 3)

	totals := []float64{430, 424, 755}
	diffs := []float64{0, -6, 331}
	for i, st := range premium.Primary {
		assert.Equal(t, i+1, st.Stage)
		assert.InDelta(t, totals[i], st.ValueTotal, 1e-9)
		assert.InDelta(t, diffs[i], st.ValueDiff, 1e-9)
		assert.InDelta(t, totals[i]/430, st.ValueTotalPercent.Value, 1e-12)
		assert.InDelta(t, diffs[i]/430, st.ValueDiffPercent.Value, 1e-12)
	}
	assert.Equal(t, "Rerated", premium.Primary[1].StageName)
	assert.Equal(t, "Premium_3", premium.Primary[2].Column)
	require.Len(t, premium.Renewal, 3)
	assert.InDelta(t, 120.0, premium.Renewal[2].ValueTotal, 1e-9)

	claims := summary[1]
	assert.Nil(t, claims.Renewal)
	assert.InDelta(t, 75.0, claims.Primary[2].ValueTotal, 1e-9, "null stage value skipped")

	// the waterfall adds up to the last stage
	var sum float64
	for _, st := range premium.Primary {
		sum += st.ValueDiff
	}
	assert.InDelta(t, premium.Primary[2].ValueTotal, premium.Primary[0].ValueTotal+sum, 1e-9)
}

func TestSummarizeStages_ZeroBase(t *testing.T) {
	tbl := mustTable(t, []string{"ID", "Premium_1", "Premium_2"},
		[]string{"1", "0", "5"},
	)
	summary, err := SummarizeStages(tbl, []ComparisonMapping{pivotMapping(t)})
	require.NoError(t, err)

	stages := summary[0].Primary
	assert.True(t, stages[0].ValueTotalPercent.ZeroBase)
	assert.True(t, stages[1].ValueDiffPercent.ZeroBase)
	assert.Equal(t, 5.0, stages[1].ValueDiff)
}
