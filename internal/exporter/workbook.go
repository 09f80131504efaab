package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// maxSheetName is the Excel limit on worksheet names
const maxSheetName = 31

var sheetNameReplacer = strings.NewReplacer(
	":", "_", "\\", "_", "/", "_", "?", "_", "*", "_", "[", "(", "]", ")",
)

// sheetName makes a report name acceptable to Excel and unique within the
// workbook
func sheetName(name string, used map[string]bool) string {
	base := []rune(sheetNameReplacer.Replace(name))
	if len(base) > maxSheetName {
		base = base[:maxSheetName]
	}
	candidate := string(base)
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := []rune(fmt.Sprintf(" %d", n))
		keep := base
		if len(keep)+len(suffix) > maxSheetName {
			keep = keep[:maxSheetName-len(suffix)]
		}
		candidate = string(keep) + string(suffix)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// WriteWorkbook writes every report sheet into a single xlsx file and returns
// its path. Numeric cells are stored as numbers.
func (r *Reporter) WriteWorkbook(ctx context.Context, rep Report) (string, error) {
	sheets, err := r.Sheets(rep)
	if err != nil {
		return "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return "", fmt.Errorf("failed to create header style: %w", err)
	}

	used := make(map[string]bool, len(sheets))
	for i, sheet := range sheets {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := sheetName(sheet.Name, used)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return "", fmt.Errorf("failed to name sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return "", fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
		if err := writeSheet(f, name, sheet, headerStyle); err != nil {
			return "", fmt.Errorf("failed to write sheet %s: %w", name, err)
		}
	}

	path := filepath.Join(r.dir, WorkbookFile)
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save workbook: %w", err)
	}

	r.logger.InfoContext(ctx, "workbook written",
		slog.String("file_path", path),
		slog.Int("sheets", len(sheets)))
	return path, nil
}

func writeSheet(f *excelize.File, name string, sheet Sheet, headerStyle int) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return err
	}

	header := make([]interface{}, len(sheet.Headers))
	for i, h := range sheet.Headers {
		header[i] = excelize.Cell{StyleID: headerStyle, Value: h}
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for i, row := range sheet.Rows {
		cells := make([]interface{}, len(row))
		for j, v := range row {
			cells[j] = workbookCell(v)
		}
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(axis, cells); err != nil {
			return err
		}
	}
	return sw.Flush()
}
