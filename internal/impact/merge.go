package impact

import (
	"fmt"

	"impactcli/internal/dataset"
)

// Source is one loaded input table, named by the file the declaration uses
type Source struct {
	Name  string
	Table *dataset.Table
}

// MergeStats describes what the merge discarded
type MergeStats struct {
	// Duplicates is the number of repeated entity IDs dropped per source
	Duplicates map[string]int `json:"duplicates"`
	// Unmatched is the number of entities of the first mapped source absent
	// from at least one other mapped source
	Unmatched int `json:"unmatched"`
	// Entities is the number of rows in the merged dataset
	Entities int `json:"entities"`
	// Segments are the kept non-comparison columns in output order
	Segments []string `json:"segments"`
}

type mergeSource struct {
	name  string
	table *dataset.Table
	rows  map[string]int
}

// Merge joins the sources into one row per entity present in every source the
// mappings reference. Comparison columns are taken only from their designated
// source and renamed; segment columns are taken from the first source that
// has a non-null value for the entity.
func Merge(sources []Source, idColumn string, mappings []ComparisonMapping, opts Options) (*dataset.Table, MergeStats, error) {
	stats := MergeStats{Duplicates: make(map[string]int)}
	if len(sources) == 0 {
		return nil, stats, &MergeError{Reason: "no sources supplied"}
	}

	prepared := make([]*mergeSource, 0, len(sources))
	byName := make(map[string]*mergeSource, len(sources))
	for _, src := range sources {
		if _, dup := byName[src.Name]; dup {
			return nil, stats, &MergeError{Source: src.Name, Reason: "source supplied more than once"}
		}
		ms, dropped, err := prepareSource(src, idColumn)
		if err != nil {
			return nil, stats, err
		}
		stats.Duplicates[src.Name] = dropped
		prepared = append(prepared, ms)
		byName[src.Name] = ms
	}

	comparison := make(map[string]struct{})
	referenced := make(map[string]struct{})
	var bindings []itemBinding
	for _, m := range mappings {
		for _, renewal := range []bool{false, true} {
			for _, b := range m.Bindings(renewal) {
				src, ok := byName[b.SourceFile]
				if !ok {
					return nil, stats, &MergeError{Source: b.SourceFile, Item: m.Item, Stage: b.Index, Reason: "mapping references a source that was not supplied"}
				}
				if !src.table.Has(b.OriginalColumn) {
					return nil, stats, &MergeError{Source: b.SourceFile, Item: m.Item, Stage: b.Index, Column: b.OriginalColumn, Reason: "mapped column not found in source"}
				}
				comparison[b.OriginalColumn] = struct{}{}
				referenced[b.SourceFile] = struct{}{}
				bindings = append(bindings, itemBinding{source: src, binding: b})
			}
		}
	}

	var mapped []*mergeSource
	for _, src := range prepared {
		if _, ok := referenced[src.name]; ok {
			mapped = append(mapped, src)
		}
	}
	if len(mapped) == 0 {
		mapped = prepared[:1]
	}

	segments, err := segmentColumns(prepared, idColumn, comparison, opts.SegmentColumns)
	if err != nil {
		return nil, stats, err
	}
	stats.Segments = segments

	columns := make([]string, 0, 1+len(segments)+len(bindings))
	columns = append(columns, idColumn)
	columns = append(columns, segments...)
	for _, ib := range bindings {
		columns = append(columns, ib.binding.RenamedColumn)
	}
	out, err := dataset.New(columns...)
	if err != nil {
		return nil, stats, &MergeError{Reason: fmt.Sprintf("merged columns collide: %v", err)}
	}

	first := mapped[0]
	for r := 0; r < first.table.Len(); r++ {
		id := first.table.Value(r, idColumn)
		key := id.Text()
		if first.rows[key] != r {
			continue
		}
		if !presentInAll(key, mapped[1:]) {
			stats.Unmatched++
			continue
		}
		row := make([]dataset.Value, 0, len(columns))
		row = append(row, id)
		for _, seg := range segments {
			row = append(row, segmentValue(prepared, key, seg))
		}
		for _, ib := range bindings {
			row = append(row, ib.source.table.Value(ib.source.rows[key], ib.binding.OriginalColumn))
		}
		if err := out.Append(row...); err != nil {
			return nil, stats, fmt.Errorf("append merged row: %w", err)
		}
	}
	stats.Entities = out.Len()
	return out, stats, nil
}

type itemBinding struct {
	source  *mergeSource
	binding StageBinding
}

func prepareSource(src Source, idColumn string) (*mergeSource, int, error) {
	if src.Table == nil {
		return nil, 0, &MergeError{Source: src.Name, Reason: "source has no table"}
	}
	if !src.Table.Has(idColumn) {
		return nil, 0, &MergeError{Source: src.Name, Column: idColumn, Reason: "entity ID column not found"}
	}
	deduped, dropped, err := src.Table.DedupBy(idColumn)
	if err != nil {
		return nil, 0, fmt.Errorf("dedup %s: %w", src.Name, err)
	}
	rows := make(map[string]int, deduped.Len())
	for r := 0; r < deduped.Len(); r++ {
		id := deduped.Value(r, idColumn)
		if id.IsNull() {
			return nil, 0, &MergeError{Source: src.Name, Column: idColumn, Reason: fmt.Sprintf("row %d has no entity ID", r+1)}
		}
		key := id.Text()
		if _, dup := rows[key]; dup {
			// 1 and "1" dedup separately but key the same
			dropped++
			continue
		}
		rows[key] = r
	}
	return &mergeSource{name: src.Name, table: deduped, rows: rows}, dropped, nil
}

func segmentColumns(sources []*mergeSource, idColumn string, comparison map[string]struct{}, declared []string) ([]string, error) {
	available := make(map[string]struct{})
	var all []string
	for _, src := range sources {
		for _, c := range src.table.Columns() {
			if c == idColumn {
				continue
			}
			if _, ok := comparison[c]; ok {
				continue
			}
			if _, seen := available[c]; seen {
				continue
			}
			available[c] = struct{}{}
			all = append(all, c)
		}
	}
	if len(declared) == 0 {
		return all, nil
	}

	kept := make([]string, 0, len(declared))
	seen := make(map[string]struct{}, len(declared))
	for _, c := range declared {
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		if _, ok := available[c]; !ok {
			return nil, &MergeError{Column: c, Reason: "declared segment column not found in any source"}
		}
		kept = append(kept, c)
	}
	return kept, nil
}

func presentInAll(key string, sources []*mergeSource) bool {
	for _, src := range sources {
		if _, ok := src.rows[key]; !ok {
			return false
		}
	}
	return true
}

func segmentValue(sources []*mergeSource, key, column string) dataset.Value {
	for _, src := range sources {
		r, ok := src.rows[key]
		if !ok || !src.table.Has(column) {
			continue
		}
		if v := src.table.Value(r, column); !v.IsNull() {
			return v
		}
	}
	return dataset.Null()
}
