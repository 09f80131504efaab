package impact

import (
	"fmt"
	"sort"
	"strings"

	"impactcli/internal/dataset"
)

// MaxDimensions is the deepest supported breakdown
const MaxDimensions = 3

// Series selects the primary or renewal stage columns
type Series string

const (
	SeriesPrimary Series = "primary"
	SeriesRenewal Series = "renewal"
)

// RowKind tags a breakdown row
type RowKind uint8

const (
	RowLeaf RowKind = iota
	RowSubtotal
	RowGrandTotal
)

// String returns the kind name
func (k RowKind) String() string {
	switch k {
	case RowLeaf:
		return "leaf"
	case RowSubtotal:
		return "subtotal"
	case RowGrandTotal:
		return "grand_total"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name
func (k RowKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Aggregate sums the first and last stage over a group of entities
type Aggregate struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Count       int     `json:"entity_count"`
	Diff        float64 `json:"diff"`
	DiffPercent Ratio   `json:"diff_percent"`
}

// BreakdownRow is one leaf, subtotal or grand total row
type BreakdownRow struct {
	Kind   RowKind         `json:"kind"`
	Level  int             `json:"level"`
	Keys   []dataset.Value `json:"keys"`
	Totals Aggregate       `json:"totals"`
}

// Label renders the row kind as shown in reports
func (r BreakdownRow) Label() string {
	switch r.Kind {
	case RowSubtotal:
		return fmt.Sprintf("subtotal-level-%d", r.Level)
	case RowGrandTotal:
		return "grand-total"
	default:
		return "leaf"
	}
}

// KeyText renders the row keys, null keys as the empty string
func (r BreakdownRow) KeyText() []string {
	out := make([]string, len(r.Keys))
	for i, k := range r.Keys {
		out[i] = k.Text()
	}
	return out
}

// Breakdown is a pivot of one Item's first-to-last stage change over up to
// MaxDimensions segment columns. Rows are in reading order: children before
// their subtotal, grand total last.
type Breakdown struct {
	Item       string         `json:"item"`
	Series     Series         `json:"series"`
	Dimensions []string       `json:"dimensions"`
	Rows       []BreakdownRow `json:"rows"`
	Warnings   []string       `json:"warnings,omitempty"`
}

// GrandTotal returns the last row
func (b *Breakdown) GrandTotal() BreakdownRow {
	return b.Rows[len(b.Rows)-1]
}

// ClipDimensions keeps the first MaxDimensions dimensions
func ClipDimensions(dims []string) ([]string, []string) {
	if len(dims) <= MaxDimensions {
		return dims, nil
	}
	warning := fmt.Sprintf("breakdown limited to %d dimensions, ignoring %s",
		MaxDimensions, strings.Join(dims[MaxDimensions:], ", "))
	return dims[:MaxDimensions], []string{warning}
}

type partial struct {
	start float64
	end   float64
	count int
}

func (p partial) plus(o partial) partial {
	return partial{start: p.start + o.start, end: p.end + o.end, count: p.count + o.count}
}

func (p partial) aggregate() Aggregate {
	return Aggregate{
		Start:       p.start,
		End:         p.end,
		Count:       p.count,
		Diff:        p.end - p.start,
		DiffPercent: RelativeChange(p.start, p.end),
	}
}

type leaf struct {
	keys [MaxDimensions]dataset.Value
	sums partial
}

// BuildBreakdown groups the merged dataset by the dimensions and sums the
// first and last stage of the Item. Null stage values add nothing to the sums
// but the entity is still counted; null dimension values form their own group
// sorted last.
func BuildBreakdown(merged *dataset.Table, m ComparisonMapping, dims []string, series Series) (*Breakdown, error) {
	dims, warnings := ClipDimensions(dims)
	if len(dims) == 0 {
		return nil, &QueryError{Field: "dimensions", Reason: "at least one dimension is required"}
	}
	seen := make(map[string]struct{}, len(dims))
	for _, d := range dims {
		if _, dup := seen[d]; dup {
			return nil, &QueryError{Field: "dimensions", Reason: fmt.Sprintf("dimension %q repeated", d)}
		}
		seen[d] = struct{}{}
		if !merged.Has(d) {
			return nil, &QueryError{Field: "dimensions", Reason: fmt.Sprintf("unknown column %q", d)}
		}
	}

	var bindings []StageBinding
	switch series {
	case SeriesPrimary, "":
		series = SeriesPrimary
		bindings = m.Stages
	case SeriesRenewal:
		if !m.HasRenewal() {
			return nil, &QueryError{Field: "series", Reason: fmt.Sprintf("item %q has no renewal series", m.Item)}
		}
		bindings = m.RenewalStages
	default:
		return nil, &QueryError{Field: "series", Reason: fmt.Sprintf("unknown series %q", series)}
	}
	if len(bindings) < 2 {
		return nil, &QueryError{Field: "item", Reason: fmt.Sprintf("item %q has fewer than 2 stages", m.Item)}
	}
	startCol := bindings[0].RenamedColumn
	endCol := bindings[len(bindings)-1].RenamedColumn
	if !merged.Has(startCol) || !merged.Has(endCol) {
		return nil, &QueryError{Field: "item", Reason: fmt.Sprintf("item %q is not in the merged dataset", m.Item)}
	}

	groups := make(map[[MaxDimensions]dataset.Value]*leaf)
	for r := 0; r < merged.Len(); r++ {
		var key [MaxDimensions]dataset.Value
		for i, d := range dims {
			key[i] = merged.Value(r, d)
		}
		g, ok := groups[key]
		if !ok {
			g = &leaf{keys: key}
			groups[key] = g
		}
		if v, ok := merged.Float(r, startCol); ok {
			g.sums.start += v
		}
		if v, ok := merged.Float(r, endCol); ok {
			g.sums.end += v
		}
		g.sums.count++
	}

	leaves := make([]*leaf, 0, len(groups))
	for _, g := range groups {
		leaves = append(leaves, g)
	}
	n := len(dims)
	sort.Slice(leaves, func(i, j int) bool {
		for d := 0; d < n; d++ {
			if c := dataset.Compare(leaves[i].keys[d], leaves[j].keys[d]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	rows := make([]BreakdownRow, 0, 2*len(leaves)+1)
	grand := rollup(leaves, 0, n, &rows)
	rows = append(rows, BreakdownRow{Kind: RowGrandTotal, Level: 0, Keys: []dataset.Value{}, Totals: grand.aggregate()})

	return &Breakdown{
		Item:       m.Item,
		Series:     series,
		Dimensions: append([]string(nil), dims...),
		Rows:       rows,
		Warnings:   warnings,
	}, nil
}

// rollup emits the rows of sorted leaves sharing a prefix of length depth,
// each group's children before its subtotal, and returns their total.
func rollup(leaves []*leaf, depth, n int, out *[]BreakdownRow) partial {
	var total partial
	for i := 0; i < len(leaves); {
		j := i + 1
		for j < len(leaves) && leaves[j].keys[depth].Equal(leaves[i].keys[depth]) {
			j++
		}
		var sub partial
		if depth == n-1 {
			sub = leaves[i].sums
			*out = append(*out, BreakdownRow{Kind: RowLeaf, Level: n, Keys: keySlice(leaves[i].keys, n), Totals: sub.aggregate()})
		} else {
			sub = rollup(leaves[i:j], depth+1, n, out)
			*out = append(*out, BreakdownRow{Kind: RowSubtotal, Level: depth + 1, Keys: keySlice(leaves[i].keys, depth+1), Totals: sub.aggregate()})
		}
		total = total.plus(sub)
		i = j
	}
	return total
}

func keySlice(keys [MaxDimensions]dataset.Value, n int) []dataset.Value {
	out := make([]dataset.Value, n)
	copy(out, keys[:n])
	return out
}
