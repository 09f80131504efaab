package impact

import (
	"fmt"
	"sort"

	"impactcli/internal/dataset"
)

// NALabel selects rows whose segment value is null
const NALabel = "NA"

// Filter keeps rows whose column value is one of Values. An empty Values
// list keeps every row.
type Filter struct {
	Column string   `json:"column" yaml:"column" validate:"required"`
	Values []string `json:"values" yaml:"values"`
}

// FilterOption lists the selectable values of one segment column
type FilterOption struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

// ApplyFilters returns the rows of t matching every filter. Values are
// matched on their text form; NALabel matches null cells.
func ApplyFilters(t *dataset.Table, filters []Filter) (*dataset.Table, error) {
	type compiled struct {
		column string
		values map[string]struct{}
		na     bool
	}
	active := make([]compiled, 0, len(filters))
	for _, f := range filters {
		if !t.Has(f.Column) {
			return nil, &QueryError{Field: "filters", Reason: fmt.Sprintf("unknown column %q", f.Column)}
		}
		if len(f.Values) == 0 {
			continue
		}
		c := compiled{column: f.Column, values: make(map[string]struct{}, len(f.Values))}
		for _, v := range f.Values {
			if v == NALabel {
				c.na = true
			}
			c.values[v] = struct{}{}
		}
		active = append(active, c)
	}
	if len(active) == 0 {
		return t, nil
	}

	keep := make([]int, 0, t.Len())
rows:
	for r := 0; r < t.Len(); r++ {
		for _, c := range active {
			v := t.Value(r, c.column)
			if v.IsNull() {
				if !c.na {
					continue rows
				}
				continue
			}
			if _, ok := c.values[v.Text()]; !ok {
				continue rows
			}
		}
		keep = append(keep, r)
	}
	return t.Select(keep), nil
}

// FilterOptions lists the distinct values of each column in natural order,
// with NALabel last when the column has nulls.
func FilterOptions(t *dataset.Table, columns []string) ([]FilterOption, error) {
	out := make([]FilterOption, 0, len(columns))
	for _, col := range columns {
		values, err := t.Column(col)
		if err != nil {
			return nil, &QueryError{Field: "filters", Reason: fmt.Sprintf("unknown column %q", col)}
		}
		seen := make(map[string]struct{})
		var distinct []dataset.Value
		hasNull := false
		for _, v := range values {
			if v.IsNull() {
				hasNull = true
				continue
			}
			if _, ok := seen[v.Text()]; ok {
				continue
			}
			seen[v.Text()] = struct{}{}
			distinct = append(distinct, v)
		}
		sort.SliceStable(distinct, func(i, j int) bool { return dataset.Compare(distinct[i], distinct[j]) < 0 })
		opt := FilterOption{Column: col, Values: make([]string, 0, len(distinct)+1)}
		for _, v := range distinct {
			opt.Values = append(opt.Values, v.Text())
		}
		if hasNull {
			opt.Values = append(opt.Values, NALabel)
		}
		out = append(out, opt)
	}
	return out, nil
}
