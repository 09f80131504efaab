package impact

import (
	"fmt"
	"sort"
	"strings"
)

// ResolveMappings turns a flat declaration into one ComparisonMapping per
// Item, in first-appearance order. Rows need not be sorted by stage.
func ResolveMappings(decl Declaration, opts Options) ([]ComparisonMapping, error) {
	if len(decl.Rows) == 0 {
		return nil, &MappingError{Reason: "declaration has no rows"}
	}
	if strings.TrimSpace(decl.IDColumn) == "" {
		return nil, &MappingError{Reason: "entity ID column is not declared"}
	}

	var order []string
	byItem := make(map[string][]MappingRow)
	for i, row := range decl.Rows {
		if err := validateRow(i, row); err != nil {
			return nil, err
		}
		if _, ok := byItem[row.Item]; !ok {
			order = append(order, row.Item)
		}
		byItem[row.Item] = append(byItem[row.Item], row)
	}

	mappings := make([]ComparisonMapping, 0, len(order))
	for _, item := range order {
		m, err := resolveItem(item, byItem[item], opts)
		if err != nil {
			return nil, err
		}
		mappings = append(mappings, m)
	}
	return mappings, nil
}

func validateRow(i int, row MappingRow) error {
	switch {
	case strings.TrimSpace(row.Item) == "":
		return &MappingError{Stage: row.Stage, Reason: fmt.Sprintf("row %d has no item", i+1)}
	case row.Stage < 1:
		return &MappingError{Item: row.Item, Reason: fmt.Sprintf("row %d has stage %d, stages start at 1", i+1, row.Stage)}
	case strings.TrimSpace(row.File) == "":
		return &MappingError{Item: row.Item, Stage: row.Stage, Reason: "no source file"}
	case strings.TrimSpace(row.Column) == "":
		return &MappingError{Item: row.Item, Stage: row.Stage, Reason: "no source column"}
	}
	return nil
}

func resolveItem(item string, rows []MappingRow, opts Options) (ComparisonMapping, error) {
	sorted := make([]MappingRow, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Stage < sorted[j].Stage })

	for i, row := range sorted {
		want := i + 1
		if row.Stage == want {
			continue
		}
		if i > 0 && row.Stage == sorted[i-1].Stage {
			return ComparisonMapping{}, &MappingError{Item: item, Stage: row.Stage, Reason: "stage declared more than once"}
		}
		return ComparisonMapping{}, &MappingError{Item: item, Stage: want, Reason: "stage is missing, stages must be contiguous from 1"}
	}
	if len(sorted) < 2 {
		return ComparisonMapping{}, &MappingError{Item: item, Reason: "at least 2 stages are required"}
	}

	renewal := opts.RenewalFor(item)
	m := ComparisonMapping{
		Item:   item,
		Stages: make([]StageBinding, len(sorted)),
	}
	if renewal {
		m.RenewalStages = make([]StageBinding, len(sorted))
	}
	for i, row := range sorted {
		name := row.StageName
		if name == "" {
			name = fmt.Sprintf("Stage %d", row.Stage)
		}
		m.Stages[i] = StageBinding{
			Index:          row.Stage,
			Name:           name,
			SourceFile:     row.File,
			OriginalColumn: row.Column,
			RenamedColumn:  StageColumn(item, row.Stage),
		}
		if !renewal {
			continue
		}
		if strings.TrimSpace(row.RNColumn) == "" {
			return ComparisonMapping{}, &MappingError{Item: item, Stage: row.Stage, Reason: "renewal is enabled but the stage has no renewal column"}
		}
		m.RenewalStages[i] = StageBinding{
			Index:          row.Stage,
			Name:           name,
			SourceFile:     row.File,
			OriginalColumn: row.RNColumn,
			RenamedColumn:  RenewalStageColumn(item, row.Stage),
		}
	}
	m.Steps = buildSteps(m.Stages, opts.overallStepName())
	return m, nil
}

// buildSteps derives step 0 (last vs first) followed by the adjacent steps
func buildSteps(stages []StageBinding, overall string) []Step {
	n := len(stages)
	steps := make([]Step, 0, n)
	steps = append(steps, Step{Number: 0, Name: overall, From: 1, To: n})
	for k := 1; k < n; k++ {
		steps = append(steps, Step{Number: k, Name: stages[k].Name, From: k, To: k + 1})
	}
	return steps
}
