package impact

import (
	"fmt"
	"runtime"
)

// DefaultOverallStepName names step 0 when Options does not
const DefaultOverallStepName = "Overall"

// BandBasis selects which difference series is classified into bands
type BandBasis string

const (
	// BasisPercent classifies the relative change (higher/lower - 1)
	BasisPercent BandBasis = "percent"
	// BasisAbsolute classifies the absolute change (higher - lower)
	BasisAbsolute BandBasis = "absolute"
)

// Valid reports whether the basis is known
func (b BandBasis) Valid() bool {
	return b == BasisPercent || b == BasisAbsolute
}

// Options is the immutable per-call configuration of the engine. It is
// passed by value into every component so one Engine can serve concurrent
// requests with different flag combinations.
type Options struct {
	// Renewal enables the renewal twin series globally
	Renewal bool `json:"renewal" yaml:"renewal"`
	// RenewalItems overrides Renewal per Item; false disables it for that Item
	RenewalItems map[string]bool `json:"renewal_items,omitempty" yaml:"renewal_items"`
	// SegmentColumns restricts the kept non-comparison columns; empty keeps all
	SegmentColumns []string `json:"segment_columns,omitempty" yaml:"segment_columns"`
	// OverallStepName is the display name of step 0
	OverallStepName string `json:"overall_step_name,omitempty" yaml:"overall_step_name"`
	// BandBasis selects the classified series, percent by default
	BandBasis BandBasis `json:"band_basis,omitempty" yaml:"band_basis"`
	// Workers bounds per-Item parallelism, NumCPU by default
	Workers int `json:"workers,omitempty" yaml:"workers"`
}

// RenewalFor reports whether the renewal series is enabled for an Item
func (o Options) RenewalFor(item string) bool {
	if !o.Renewal {
		return false
	}
	if enabled, ok := o.RenewalItems[item]; ok {
		return enabled
	}
	return true
}

func (o Options) overallStepName() string {
	if o.OverallStepName == "" {
		return DefaultOverallStepName
	}
	return o.OverallStepName
}

func (o Options) basis() BandBasis {
	if o.BandBasis == "" {
		return BasisPercent
	}
	return o.BandBasis
}

func (o Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

// MappingRow is one row of the declaration table: the column holding one
// stage of one Item in one source file.
type MappingRow struct {
	Item      string `json:"item"`
	Stage     int    `json:"stage"`
	StageName string `json:"stage_name"`
	File      string `json:"file"`
	Column    string `json:"column"`
	RNColumn  string `json:"rn_column,omitempty"`
}

// Declaration is the flat comparison declaration as loaded from configuration
type Declaration struct {
	IDColumn string       `json:"id_column"`
	Rows     []MappingRow `json:"rows"`
}

// Files returns the distinct source files in first-declared order
func (d Declaration) Files() []string {
	seen := make(map[string]struct{})
	var files []string
	for _, r := range d.Rows {
		if _, ok := seen[r.File]; ok || r.File == "" {
			continue
		}
		seen[r.File] = struct{}{}
		files = append(files, r.File)
	}
	return files
}

// StageBinding binds one stage of an Item to a source column and its
// canonical name in the merged dataset.
type StageBinding struct {
	Index          int    `json:"index"`
	Name           string `json:"name"`
	SourceFile     string `json:"source_file"`
	OriginalColumn string `json:"original_column"`
	RenamedColumn  string `json:"renamed_column"`
}

// Step is a comparison between two stages. Step 0 compares the last stage
// with the first; step k compares stage k+1 with stage k.
type Step struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	From   int    `json:"from_stage"`
	To     int    `json:"to_stage"`
}

// ComparisonMapping is the resolved structure of one Item
type ComparisonMapping struct {
	Item          string         `json:"item"`
	Stages        []StageBinding `json:"stages"`
	RenewalStages []StageBinding `json:"renewal_stages,omitempty"`
	Steps         []Step         `json:"steps"`
}

// HasRenewal reports whether the Item carries a renewal twin series
func (m ComparisonMapping) HasRenewal() bool {
	return len(m.RenewalStages) > 0
}

// Bindings returns the primary or renewal stage bindings
func (m ComparisonMapping) Bindings(renewal bool) []StageBinding {
	if renewal {
		return m.RenewalStages
	}
	return m.Stages
}

// StepColumns returns the lower and higher renamed columns of a step
func (m ComparisonMapping) StepColumns(step Step, renewal bool) (lower, higher string) {
	b := m.Bindings(renewal)
	return b[step.From-1].RenamedColumn, b[step.To-1].RenamedColumn
}

// StageColumn names the merged column of an Item stage
func StageColumn(item string, stage int) string {
	return fmt.Sprintf("%s_%d", item, stage)
}

// RenewalStageColumn names the merged renewal column of an Item stage
func RenewalStageColumn(item string, stage int) string {
	return fmt.Sprintf("%s_%d_rn", item, stage)
}

// DiffColumn names the absolute difference column of a step
func DiffColumn(item string, step int, renewal bool) string {
	name := fmt.Sprintf("diff_%s_step_%d", item, step)
	if renewal {
		name += "_rn"
	}
	return name
}

// PercentDiffColumn names the relative difference column of a step
func PercentDiffColumn(item string, step int, renewal bool) string {
	name := fmt.Sprintf("percent_diff_%s_step_%d", item, step)
	if renewal {
		name += "_rn"
	}
	return name
}

// BandColumn names the band label column of a step in exported reports
func BandColumn(item string, step int, renewal bool) string {
	name := fmt.Sprintf("band_%s_step_%d", item, step)
	if renewal {
		name += "_rn"
	}
	return name
}

// Ratio is a quotient that may be undefined because its denominator is zero.
// A zero-base ratio is never coerced to 0.
type Ratio struct {
	Value    float64 `json:"value"`
	ZeroBase bool    `json:"zero_base"`
}

// RelativeChange returns higher/lower - 1
func RelativeChange(lower, higher float64) Ratio {
	if lower == 0 {
		return Ratio{ZeroBase: true}
	}
	return Ratio{Value: higher/lower - 1}
}

// Share returns num/den
func Share(num, den float64) Ratio {
	if den == 0 {
		return Ratio{ZeroBase: true}
	}
	return Ratio{Value: num / den}
}
