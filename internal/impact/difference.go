package impact

import (
	"fmt"

	"impactcli/internal/dataset"
)

// ZeroBaseSentinel is written in place of a relative difference whose lower
// stage value is zero
const ZeroBaseSentinel = "#DIV/0!"

// DeltaStatus classifies one per-row difference
type DeltaStatus uint8

const (
	// DeltaDefined has both absolute and relative change
	DeltaDefined DeltaStatus = iota
	// DeltaZeroBase has an absolute change; the relative change is undefined
	DeltaZeroBase
	// DeltaMissing has a null or non-numeric stage value
	DeltaMissing
)

// String returns the status name
func (s DeltaStatus) String() string {
	switch s {
	case DeltaDefined:
		return "defined"
	case DeltaZeroBase:
		return "zero_base"
	case DeltaMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Delta is the difference between two stage values of one row
type Delta struct {
	Abs    float64
	Pct    float64
	Status DeltaStatus
}

// NewDelta compares a lower and a higher stage value
func NewDelta(lower, higher dataset.Value) Delta {
	lo, okLo := lower.Float()
	hi, okHi := higher.Float()
	if !okLo || !okHi {
		return Delta{Status: DeltaMissing}
	}
	if lo == 0 {
		return Delta{Abs: hi - lo, Status: DeltaZeroBase}
	}
	return Delta{Abs: hi - lo, Pct: hi/lo - 1, Status: DeltaDefined}
}

// AbsValue renders the absolute difference as a cell
func (d Delta) AbsValue() dataset.Value {
	if d.Status == DeltaMissing {
		return dataset.Null()
	}
	return dataset.Number(d.Abs)
}

// PctValue renders the relative difference as a cell
func (d Delta) PctValue() dataset.Value {
	switch d.Status {
	case DeltaDefined:
		return dataset.Number(d.Pct)
	case DeltaZeroBase:
		return dataset.String(ZeroBaseSentinel)
	default:
		return dataset.Null()
	}
}

// Banded returns the value classified under basis. It reports false for
// missing deltas, and for zero-base deltas under the percent basis.
func (d Delta) Banded(basis BandBasis) (float64, bool) {
	switch {
	case d.Status == DeltaMissing:
		return 0, false
	case basis == BasisAbsolute:
		return d.Abs, true
	case d.Status == DeltaZeroBase:
		return 0, false
	default:
		return d.Pct, true
	}
}

// StepDeltas holds the per-row deltas of one step. Renewal is nil when the
// Item has no renewal series.
type StepDeltas struct {
	Step    Step
	Primary []Delta
	Renewal []Delta
}

// ItemDifferences holds every step of one Item
type ItemDifferences struct {
	Item  string
	Steps []StepDeltas
}

// DifferenceSet holds the differences of every Item, aligned with the rows of
// the merged dataset it was computed from.
type DifferenceSet struct {
	Rows  int
	Items []ItemDifferences
}

// Item looks up the differences of one Item
func (d *DifferenceSet) Item(name string) (*ItemDifferences, bool) {
	for i := range d.Items {
		if d.Items[i].Item == name {
			return &d.Items[i], true
		}
	}
	return nil, false
}

// ComputeDifferences computes every step of every Item sequentially.
// Engine.Run does the same work in parallel.
func ComputeDifferences(merged *dataset.Table, mappings []ComparisonMapping) (*DifferenceSet, error) {
	set := &DifferenceSet{Rows: merged.Len(), Items: make([]ItemDifferences, 0, len(mappings))}
	for _, m := range mappings {
		item, err := ComputeItemDifferences(merged, m)
		if err != nil {
			return nil, err
		}
		set.Items = append(set.Items, item)
	}
	return set, nil
}

// ComputeItemDifferences computes step 0 then steps 1..S-1 of one Item. The
// renewal series is computed from renewal columns only.
func ComputeItemDifferences(merged *dataset.Table, m ComparisonMapping) (ItemDifferences, error) {
	out := ItemDifferences{Item: m.Item, Steps: make([]StepDeltas, 0, len(m.Steps))}
	for _, step := range m.Steps {
		sd := StepDeltas{Step: step}
		primary, err := stepSeries(merged, m, step, false)
		if err != nil {
			return ItemDifferences{}, err
		}
		sd.Primary = primary
		if m.HasRenewal() {
			renewal, err := stepSeries(merged, m, step, true)
			if err != nil {
				return ItemDifferences{}, err
			}
			sd.Renewal = renewal
		}
		out.Steps = append(out.Steps, sd)
	}
	return out, nil
}

func stepSeries(merged *dataset.Table, m ComparisonMapping, step Step, renewal bool) ([]Delta, error) {
	lowerCol, higherCol := m.StepColumns(step, renewal)
	lower, err := merged.Column(lowerCol)
	if err != nil {
		return nil, fmt.Errorf("item %s step %d: %w", m.Item, step.Number, err)
	}
	higher, err := merged.Column(higherCol)
	if err != nil {
		return nil, fmt.Errorf("item %s step %d: %w", m.Item, step.Number, err)
	}
	deltas := make([]Delta, len(lower))
	for r := range lower {
		deltas[r] = NewDelta(lower[r], higher[r])
	}
	return deltas, nil
}

// AppendColumns materialises the differences as diff_ and percent_diff_
// columns on a copy of the merged dataset.
func (d *DifferenceSet) AppendColumns(merged *dataset.Table) (*dataset.Table, error) {
	if merged.Len() != d.Rows {
		return nil, fmt.Errorf("difference set has %d rows, dataset has %d", d.Rows, merged.Len())
	}
	out := merged.Clone()
	for _, item := range d.Items {
		for _, sd := range item.Steps {
			if err := appendSeries(out, item.Item, sd.Step.Number, sd.Primary, false); err != nil {
				return nil, err
			}
			if sd.Renewal != nil {
				if err := appendSeries(out, item.Item, sd.Step.Number, sd.Renewal, true); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

func appendSeries(t *dataset.Table, item string, step int, deltas []Delta, renewal bool) error {
	abs := make([]dataset.Value, len(deltas))
	pct := make([]dataset.Value, len(deltas))
	for i, d := range deltas {
		abs[i] = d.AbsValue()
		pct[i] = d.PctValue()
	}
	if err := t.AddColumn(DiffColumn(item, step, renewal), abs); err != nil {
		return fmt.Errorf("add difference column: %w", err)
	}
	if err := t.AddColumn(PercentDiffColumn(item, step, renewal), pct); err != nil {
		return fmt.Errorf("add percent difference column: %w", err)
	}
	return nil
}
