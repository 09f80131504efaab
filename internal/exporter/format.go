package exporter

import (
	"fmt"
	"strconv"

	"impactcli/internal/dataset"
	"impactcli/internal/impact"
)

// formatFloat formats a float64 at full precision without exponent notation
func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// formatRatio writes the zero-base sentinel for undefined ratios
func formatRatio(r impact.Ratio) string {
	if r.ZeroBase {
		return impact.ZeroBaseSentinel
	}
	return formatFloat(r.Value)
}

// formatCell renders one report cell as CSV text. Nulls become empty fields.
func formatCell(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return c
	case int:
		return strconv.Itoa(c)
	case float64:
		return formatFloat(c)
	case dataset.Value:
		return c.Text()
	case impact.Ratio:
		return formatRatio(c)
	default:
		return fmt.Sprint(c)
	}
}

// workbookCell converts a report cell into a value excelize stores natively,
// so numbers stay numeric in the workbook
func workbookCell(v any) any {
	switch c := v.(type) {
	case dataset.Value:
		if c.IsNull() {
			return nil
		}
		if c.Kind() == dataset.KindNumber {
			f, _ := c.Float()
			return f
		}
		return c.Text()
	case impact.Ratio:
		if c.ZeroBase {
			return impact.ZeroBaseSentinel
		}
		return c.Value
	default:
		return c
	}
}

func formatRecord(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		out[i] = formatCell(v)
	}
	return out
}
