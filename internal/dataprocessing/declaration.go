package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"impactcli/internal/dataset"
	"impactcli/internal/impact"
)

// declarationColumns holds the positions of the mapping sheet columns; -1 is absent
type declarationColumns struct {
	item      int
	stage     int
	stageName int
	file      int
	column    int
	rnColumn  int
	id        int
}

// findDeclarationColumns locates columns by normalised header name
func findDeclarationColumns(header []string) declarationColumns {
	cols := declarationColumns{item: -1, stage: -1, stageName: -1, file: -1, column: -1, rnColumn: -1, id: -1}
	for i, name := range header {
		switch normalizeHeader(name) {
		case "item":
			cols.item = i
		case "stage":
			cols.stage = i
		case "stagename":
			cols.stageName = i
		case "file", "filepath":
			cols.file = i
		case "column":
			cols.column = i
		case "rncolumn", "renewalcolumn":
			cols.rnColumn = i
		case "id", "idcolumn":
			cols.id = i
		}
	}
	return cols
}

func normalizeHeader(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(name)
}

// LoadDeclaration reads the mapping sheet. The entity ID column is taken from
// the ID cells, which must agree wherever they are filled in.
func (l *Loader) LoadDeclaration(ctx context.Context, path, sheet string) (impact.Declaration, error) {
	table, err := l.LoadTable(ctx, path, sheet)
	if err != nil {
		return impact.Declaration{}, fmt.Errorf("failed to load declaration: %w", err)
	}

	cols := findDeclarationColumns(table.Columns())
	required := []struct {
		name string
		idx  int
	}{{"Item", cols.item}, {"Stage", cols.stage}, {"File", cols.file}, {"Column", cols.column}, {"ID", cols.id}}
	for _, r := range required {
		if r.idx < 0 {
			return impact.Declaration{}, &impact.MappingError{Reason: fmt.Sprintf("declaration sheet has no %s column", r.name)}
		}
	}

	var decl impact.Declaration
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		item := cellText(row, cols.item)

		stage, err := stageNumber(row[cols.stage])
		if err != nil {
			return impact.Declaration{}, &impact.MappingError{Item: item, Reason: fmt.Sprintf("row %d: %v", i+2, err)}
		}

		if id := cellText(row, cols.id); id != "" {
			if decl.IDColumn != "" && decl.IDColumn != id {
				return impact.Declaration{}, &impact.MappingError{
					Item:   item,
					Stage:  stage,
					Reason: fmt.Sprintf("conflicting ID columns %q and %q", decl.IDColumn, id),
				}
			}
			decl.IDColumn = id
		}

		decl.Rows = append(decl.Rows, impact.MappingRow{
			Item:      item,
			Stage:     stage,
			StageName: cellText(row, cols.stageName),
			File:      cellText(row, cols.file),
			Column:    cellText(row, cols.column),
			RNColumn:  cellText(row, cols.rnColumn),
		})
	}

	if decl.IDColumn == "" {
		return impact.Declaration{}, &impact.MappingError{Reason: "no entity ID column declared"}
	}

	l.logger.InfoContext(ctx, "declaration loaded",
		slog.String("file", path),
		slog.Int("rows", len(decl.Rows)),
		slog.String("id_column", decl.IDColumn),
		slog.Int("sources", len(decl.Files())))
	return decl, nil
}

// stageNumber accepts whole numbers, including the 1.0 spreadsheets produce
func stageNumber(v dataset.Value) (int, error) {
	if v.IsNull() {
		return 0, fmt.Errorf("stage is blank")
	}
	f, ok := v.Float()
	if !ok || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("stage %q is not a whole number", v.Text())
	}
	return int(f), nil
}

// cellText returns the text of a cell or "" for an absent column
func cellText(row []dataset.Value, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx].Text())
}
