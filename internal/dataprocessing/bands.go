package dataprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"impactcli/internal/dataset"
	"impactcli/internal/impact"
)

// LoadBands reads the band sheet in declared order. Columns are From, To and
// Name; a blank From is -Inf and a blank To is +Inf. The bands are not
// validated here, impact.NewBandScheme does that.
func (l *Loader) LoadBands(ctx context.Context, path, sheet string) ([]impact.Band, error) {
	table, err := l.LoadTable(ctx, path, sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to load bands: %w", err)
	}

	from, to, name := -1, -1, -1
	for i, col := range table.Columns() {
		switch normalizeHeader(col) {
		case "from", "lower":
			from = i
		case "to", "upper":
			to = i
		case "name", "band":
			name = i
		}
	}
	if from < 0 || to < 0 || name < 0 {
		return nil, fmt.Errorf("%w: band sheet needs From, To and Name columns", impact.ErrInvalidBands)
	}

	bands := make([]impact.Band, 0, table.Len())
	for i := 0; i < table.Len(); i++ {
		row := table.Row(i)
		label := cellText(row, name)

		lower, err := bound(row[from], math.Inf(-1))
		if err != nil {
			return nil, fmt.Errorf("%w: band %q From: %v", impact.ErrInvalidBands, label, err)
		}
		upper, err := bound(row[to], math.Inf(1))
		if err != nil {
			return nil, fmt.Errorf("%w: band %q To: %v", impact.ErrInvalidBands, label, err)
		}

		bands = append(bands, impact.Band{Lower: lower, Upper: upper, Name: label})
	}

	l.logger.DebugContext(ctx, "bands loaded", slog.String("file", path), slog.Int("bands", len(bands)))
	return bands, nil
}

func bound(v dataset.Value, open float64) (float64, error) {
	if v.IsNull() {
		return open, nil
	}
	f, ok := v.Float()
	if !ok {
		return 0, fmt.Errorf("%q is not a number", v.Text())
	}
	return f, nil
}
