package impact

import (
	"fmt"

	"impactcli/internal/dataset"
)

// StageTotal is one bar of the stage waterfall of an Item
type StageTotal struct {
	Stage      int     `json:"stage"`
	StageName  string  `json:"stage_name"`
	Column     string  `json:"column"`
	ValueTotal float64 `json:"value_total"`
	// ValueDiff is the change from the previous stage, 0 for the first stage
	ValueDiff float64 `json:"value_diff"`
	// ValueTotalPercent is ValueTotal over the first stage total
	ValueTotalPercent Ratio `json:"value_total_percent"`
	// ValueDiffPercent is ValueDiff over the first stage total
	ValueDiffPercent Ratio `json:"value_diff_percent"`
}

// ItemSummary is the stage waterfall of one Item
type ItemSummary struct {
	Item    string       `json:"item"`
	Primary []StageTotal `json:"primary"`
	Renewal []StageTotal `json:"renewal,omitempty"`
}

// SummarizeStages totals every stage column of every Item over the merged
// dataset. Null stage values are skipped.
func SummarizeStages(merged *dataset.Table, mappings []ComparisonMapping) ([]ItemSummary, error) {
	out := make([]ItemSummary, 0, len(mappings))
	for _, m := range mappings {
		primary, err := stageTotals(merged, m.Stages)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", m.Item, err)
		}
		s := ItemSummary{Item: m.Item, Primary: primary}
		if m.HasRenewal() {
			if s.Renewal, err = stageTotals(merged, m.RenewalStages); err != nil {
				return nil, fmt.Errorf("summarize %s renewal: %w", m.Item, err)
			}
		}
		out = append(out, s)
	}
	return out, nil
}

func stageTotals(merged *dataset.Table, bindings []StageBinding) ([]StageTotal, error) {
	totals := make([]StageTotal, len(bindings))
	for i, b := range bindings {
		values, err := merged.Column(b.RenamedColumn)
		if err != nil {
			return nil, err
		}
		var sum float64
		for _, v := range values {
			if f, ok := v.Float(); ok {
				sum += f
			}
		}
		totals[i] = StageTotal{Stage: b.Index, StageName: b.Name, Column: b.RenamedColumn, ValueTotal: sum}
	}
	if len(totals) == 0 {
		return totals, nil
	}
	base := totals[0].ValueTotal
	for i := range totals {
		totals[i].ValueTotalPercent = Share(totals[i].ValueTotal, base)
		if i == 0 {
			continue
		}
		totals[i].ValueDiff = totals[i].ValueTotal - totals[i-1].ValueTotal
		totals[i].ValueDiffPercent = Share(totals[i].ValueDiff, base)
	}
	return totals, nil
}
