package impact

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"impactcli/internal/dataset"
)

const tracerName = "impactcli/internal/impact"

// Input is everything one analysis run needs
type Input struct {
	Declaration Declaration
	Sources     []Source
	Bands       []Band
	Options     Options
}

// Analysis is the result of the difference, distribution and summary phases
// over one merged dataset
type Analysis struct {
	Differences  *DifferenceSet
	Distribution *DistributionSummary
	Summary      []ItemSummary
}

// Result is the outcome of a full run
type Result struct {
	Analysis
	Mappings []ComparisonMapping
	Bands    *BandScheme
	Merged   *dataset.Table
	Stats    MergeStats
	Options  Options
	Duration time.Duration
}

// Mapping looks up the resolved mapping of an Item
func (r *Result) Mapping(item string) (ComparisonMapping, bool) {
	return FindMapping(r.Mappings, item)
}

// FindMapping looks up the mapping of an Item
func FindMapping(mappings []ComparisonMapping, item string) (ComparisonMapping, bool) {
	for _, m := range mappings {
		if m.Item == item {
			return m, true
		}
	}
	return ComparisonMapping{}, false
}

// BreakdownRequest selects one breakdown of a merged dataset
type BreakdownRequest struct {
	Item       string   `json:"item" validate:"required"`
	Dimensions []string `json:"dimensions" validate:"required,min=1"`
	Series     Series   `json:"series,omitempty" validate:"omitempty,oneof=primary renewal"`
	Filters    []Filter `json:"filters,omitempty" validate:"dive"`
}

// Engine runs the analysis pipeline. It holds no per-run state and is safe
// for concurrent use.
type Engine struct {
	logger *slog.Logger
	tracer trace.Tracer
}

// NewEngine creates an engine
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger.With(slog.String("component", "impact_engine")),
		tracer: otel.Tracer(tracerName),
	}
}

// Run resolves, merges and analyses the input
func (e *Engine) Run(ctx context.Context, in Input) (*Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "impact.Run")
	defer span.End()

	res, err := e.run(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		e.logger.ErrorContext(ctx, "analysis failed", slog.String("error", err.Error()))
		return nil, err
	}
	res.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("impact.items", len(res.Mappings)),
		attribute.Int("impact.entities", res.Merged.Len()),
	)
	e.logger.InfoContext(ctx, "analysis completed",
		slog.Int("items", len(res.Mappings)),
		slog.Int("entities", res.Merged.Len()),
		slog.Int("unmatched", res.Stats.Unmatched),
		slog.Duration("duration", res.Duration))
	return res, nil
}

func (e *Engine) run(ctx context.Context, in Input) (*Result, error) {
	if in.Options.BandBasis != "" && !in.Options.BandBasis.Valid() {
		return nil, fmt.Errorf("unknown band basis %q", in.Options.BandBasis)
	}
	scheme, err := NewBandScheme(in.Bands)
	if err != nil {
		return nil, err
	}

	_, span := e.tracer.Start(ctx, "impact.ResolveMappings")
	mappings, err := ResolveMappings(in.Declaration, in.Options)
	span.End()
	if err != nil {
		return nil, err
	}
	e.logger.DebugContext(ctx, "mappings resolved", slog.Int("items", len(mappings)))

	_, span = e.tracer.Start(ctx, "impact.Merge")
	merged, stats, err := Merge(in.Sources, in.Declaration.IDColumn, mappings, in.Options)
	span.End()
	if err != nil {
		return nil, err
	}
	for source, dropped := range stats.Duplicates {
		if dropped > 0 {
			e.logger.WarnContext(ctx, "duplicate entity IDs dropped",
				slog.String("source", source), slog.Int("dropped", dropped))
		}
	}

	analysis, err := e.Analyze(ctx, merged, mappings, scheme, in.Options)
	if err != nil {
		return nil, err
	}
	return &Result{
		Analysis: *analysis,
		Mappings: mappings,
		Bands:    scheme,
		Merged:   merged,
		Stats:    stats,
		Options:  in.Options,
	}, nil
}

// Analyze computes differences, distributions and stage totals of an already
// merged dataset. Per-Item work runs on at most opts.Workers goroutines and
// results keep declaration order.
func (e *Engine) Analyze(ctx context.Context, merged *dataset.Table, mappings []ComparisonMapping, scheme *BandScheme, opts Options) (*Analysis, error) {
	ctx, span := e.tracer.Start(ctx, "impact.Analyze")
	defer span.End()

	basis := opts.basis()
	items := make([]ItemDifferences, len(mappings))
	dists := make([]ItemDistribution, len(mappings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers())
	for i, m := range mappings {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			diffs, err := ComputeItemDifferences(merged, m)
			if err != nil {
				return err
			}
			items[i] = diffs
			dists[i] = DistributeItem(diffs, scheme, basis)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute differences: %w", err)
	}

	summary, err := SummarizeStages(merged, mappings)
	if err != nil {
		return nil, err
	}
	return &Analysis{
		Differences: &DifferenceSet{Rows: merged.Len(), Items: items},
		Distribution: &DistributionSummary{
			BandOrder: scheme.Order(),
			Basis:     basis,
			Items:     dists,
		},
		Summary: summary,
	}, nil
}

// Breakdown builds the breakdown of one Item over an optionally filtered
// merged dataset
func (e *Engine) Breakdown(ctx context.Context, merged *dataset.Table, mappings []ComparisonMapping, req BreakdownRequest) (*Breakdown, error) {
	ctx, span := e.tracer.Start(ctx, "impact.Breakdown")
	defer span.End()
	span.SetAttributes(attribute.String("impact.item", req.Item))

	m, ok := FindMapping(mappings, req.Item)
	if !ok {
		return nil, &QueryError{Field: "item", Reason: fmt.Sprintf("unknown item %q", req.Item)}
	}
	rows, err := ApplyFilters(merged, req.Filters)
	if err != nil {
		return nil, err
	}
	b, err := BuildBreakdown(rows, m, req.Dimensions, req.Series)
	if err != nil {
		return nil, err
	}
	for _, w := range b.Warnings {
		e.logger.WarnContext(ctx, w, slog.String("item", req.Item))
	}
	return b, nil
}
