package impact

// BandCount is the number of defined deltas in one band
type BandCount struct {
	Band       string  `json:"band"`
	Rank       int     `json:"rank"`
	Count      int     `json:"count"`
	Proportion float64 `json:"proportion"`
}

// SeriesDistribution is the band histogram of one series of one step.
// Bands lists every declared band, zero counts included, then Unbanded.
type SeriesDistribution struct {
	Bands    []BandCount `json:"bands"`
	Total    int         `json:"total"`
	Defined  int         `json:"defined"`
	ZeroBase int         `json:"zero_base"`
	Missing  int         `json:"missing"`
}

// Count returns the count of a band by name
func (sd SeriesDistribution) Count(band string) int {
	for _, bc := range sd.Bands {
		if bc.Band == band {
			return bc.Count
		}
	}
	return 0
}

// StepDistribution holds the distributions of one step
type StepDistribution struct {
	Step    Step                `json:"step"`
	Primary SeriesDistribution  `json:"primary"`
	Renewal *SeriesDistribution `json:"renewal,omitempty"`
}

// ItemDistribution holds every step distribution of one Item
type ItemDistribution struct {
	Item  string             `json:"item"`
	Steps []StepDistribution `json:"steps"`
}

// DistributionSummary is the band distribution of every Item and step
type DistributionSummary struct {
	BandOrder []string           `json:"band_order"`
	Basis     BandBasis          `json:"basis"`
	Items     []ItemDistribution `json:"items"`
}

// Item looks up the distribution of one Item
func (d *DistributionSummary) Item(name string) (*ItemDistribution, bool) {
	for i := range d.Items {
		if d.Items[i].Item == name {
			return &d.Items[i], true
		}
	}
	return nil, false
}

// Distribute classifies every step of every Item sequentially
func Distribute(diffs *DifferenceSet, scheme *BandScheme, opts Options) *DistributionSummary {
	basis := opts.basis()
	out := &DistributionSummary{
		BandOrder: scheme.Order(),
		Basis:     basis,
		Items:     make([]ItemDistribution, 0, len(diffs.Items)),
	}
	for _, item := range diffs.Items {
		out.Items = append(out.Items, DistributeItem(item, scheme, basis))
	}
	return out
}

// DistributeItem classifies every step of one Item
func DistributeItem(item ItemDifferences, scheme *BandScheme, basis BandBasis) ItemDistribution {
	out := ItemDistribution{Item: item.Item, Steps: make([]StepDistribution, 0, len(item.Steps))}
	for _, sd := range item.Steps {
		step := StepDistribution{
			Step:    sd.Step,
			Primary: DistributeSeries(sd.Primary, scheme, basis),
		}
		if sd.Renewal != nil {
			renewal := DistributeSeries(sd.Renewal, scheme, basis)
			step.Renewal = &renewal
		}
		out.Steps = append(out.Steps, step)
	}
	return out
}

// DistributeSeries builds the histogram of one delta series. Missing deltas
// never count toward the denominator; zero-base deltas are excluded only when
// classifying the relative change.
func DistributeSeries(deltas []Delta, scheme *BandScheme, basis BandBasis) SeriesDistribution {
	counts := make([]int, scheme.Len()+1)
	sd := SeriesDistribution{Total: len(deltas)}
	for _, d := range deltas {
		v, ok := d.Banded(basis)
		switch {
		case ok:
		case d.Status == DeltaMissing:
			sd.Missing++
			continue
		default:
			sd.ZeroBase++
			continue
		}
		sd.Defined++
		counts[scheme.Rank(scheme.Classify(v))]++
	}

	order := scheme.Order()
	sd.Bands = make([]BandCount, len(order))
	for i, name := range order {
		bc := BandCount{Band: name, Rank: i, Count: counts[i]}
		if sd.Defined > 0 {
			bc.Proportion = float64(counts[i]) / float64(sd.Defined)
		}
		sd.Bands[i] = bc
	}
	return sd
}
