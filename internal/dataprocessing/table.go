package dataprocessing

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"impactcli/internal/dataset"
	apierrors "impactcli/internal/errors"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Loader reads tabular files into datasets
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger.With(slog.String("component", "loader"))}
}

// LoadTable reads one sheet of an xlsx workbook, or a CSV file, into a table.
// An empty sheet name selects the first sheet; it is ignored for CSV.
func (l *Loader) LoadTable(ctx context.Context, path, sheet string) (*dataset.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := l.readRows(path, sheet)
	if err != nil {
		return nil, err
	}

	table, err := buildTable(rows)
	if err != nil {
		return nil, apierrors.NewParsingError(fmt.Sprintf("failed to read table from %s", filepath.Base(path)), err).
			WithContext("file", path)
	}

	l.logger.DebugContext(ctx, "table loaded",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("columns", len(table.Columns())),
		slog.Int("rows", table.Len()))
	return table, nil
}

// readRows returns the raw cell text of a file, dispatching on its extension
func (l *Loader) readRows(path, sheet string) ([][]string, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return readWorkbookRows(path, sheet)
	case ".csv":
		return readCSVRows(path)
	default:
		return nil, apierrors.NewParsingError(fmt.Sprintf("unsupported file type %q", ext), nil).
			WithContext("file", path)
	}
}

func readWorkbookRows(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if sheet == "" {
		if len(sheets) == 0 {
			return nil, apierrors.NewParsingError("workbook has no sheets", nil).WithContext("file", path)
		}
		sheet = sheets[0]
	}

	found := false
	for _, name := range sheets {
		if name == sheet {
			found = true
			break
		}
	}
	if !found {
		return nil, apierrors.NewNotFoundError(fmt.Sprintf("sheet %q", sheet)).
			WithContext("file", path).
			WithContext("sheets", sheets)
	}

	// Raw values keep numbers free of display formatting such as thousands separators
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apierrors.NewParsingError(fmt.Sprintf("failed to read sheet %q", sheet), err).
			WithContext("file", path)
	}
	return rows, nil
}

func readCSVRows(path string) ([][]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, openError(path, err)
	}
	content = bytes.TrimPrefix(content, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apierrors.NewParsingError("failed to read CSV records", err).WithContext("file", path)
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func openError(path string, err error) error {
	if errors.Is(err, os.ErrNotExist) {
		return apierrors.NewNotFoundError(fmt.Sprintf("file %s", filepath.Base(path))).WithContext("file", path)
	}
	return apierrors.NewStorageError(fmt.Sprintf("failed to open %s", filepath.Base(path)), err).
		WithContext("file", path)
}

// buildTable types raw rows. The first non-blank row is the header; later
// blank rows are dropped and short rows are padded with nulls.
func buildTable(rows [][]string) (*dataset.Table, error) {
	start := 0
	for start < len(rows) && blankRow(rows[start]) {
		start++
	}
	if start == len(rows) {
		return nil, errors.New("no header row")
	}

	header := cleanHeader(rows[start])
	table, err := dataset.New(header...)
	if err != nil {
		return nil, err
	}

	for i, row := range rows[start+1:] {
		if blankRow(row) {
			continue
		}
		if len(row) > len(header) && !blankRow(row[len(header):]) {
			return nil, fmt.Errorf("row %d has %d cells for %d columns", start+i+2, len(row), len(header))
		}
		values := make([]dataset.Value, len(header))
		for c := range header {
			if c < len(row) {
				values[c] = dataset.Parse(row[c])
			}
		}
		if err := table.Append(values...); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// cleanHeader trims names and labels blank header cells by position
func cleanHeader(row []string) []string {
	// Trailing blank cells are formatting, not columns
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}

	header := make([]string, end)
	for i, name := range row[:end] {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		header[i] = name
	}
	return header
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
