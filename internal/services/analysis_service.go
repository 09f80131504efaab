package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"impactcli/internal/config"
	"impactcli/internal/dataprocessing"
	"impactcli/internal/dataset"
	apperrors "impactcli/internal/errors"
	"impactcli/internal/exporter"
	"impactcli/internal/impact"
	"impactcli/internal/infrastructure"
	"impactcli/internal/validation"
)

// Run triggers
const (
	TriggerCLI     = "cli"
	TriggerHTTP    = "http"
	TriggerStartup = "startup"
)

// Run is one successful analysis held in memory
type Run struct {
	ID        string
	StartedAt time.Time
	Trigger   string
	IDColumn  string
	Result    *impact.Result
	Warnings  []string
}

// RunSummary describes a run without its data
type RunSummary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	Trigger    string           `json:"trigger"`
	DurationMS int64            `json:"duration_ms"`
	Items      []string         `json:"items"`
	Entities   int              `json:"entities"`
	Unmatched  int              `json:"unmatched"`
	Duplicates map[string]int   `json:"duplicates"`
	Segments   []string         `json:"segments"`
	BandOrder  []string         `json:"band_order"`
	Basis      impact.BandBasis `json:"basis"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// Summary describes the run
func (r *Run) Summary() RunSummary {
	res := r.Result
	items := make([]string, len(res.Mappings))
	for i, m := range res.Mappings {
		items[i] = m.Item
	}
	return RunSummary{
		RunID:      r.ID,
		StartedAt:  r.StartedAt,
		Trigger:    r.Trigger,
		DurationMS: res.Duration.Milliseconds(),
		Items:      items,
		Entities:   res.Merged.Len(),
		Unmatched:  res.Stats.Unmatched,
		Duplicates: res.Stats.Duplicates,
		Segments:   res.Stats.Segments,
		BandOrder:  res.Distribution.BandOrder,
		Basis:      res.Distribution.Basis,
		Warnings:   r.Warnings,
	}
}

// DifferencePage is a window of the per-entity differences of one Item
type DifferencePage struct {
	Item    string            `json:"item"`
	Total   int               `json:"total"`
	Offset  int               `json:"offset"`
	Limit   int               `json:"limit"`
	Columns []string          `json:"columns"`
	Rows    [][]dataset.Value `json:"rows"`
}

// AnalysisService runs the configured analysis and answers queries over the
// last successful run. Queries never reload source files.
type AnalysisService struct {
	cfg       config.AnalysisConfig
	sourceDir string
	loader    *dataprocessing.Loader
	files     *validation.FileValidator
	engine    *impact.Engine
	metrics   *infrastructure.AnalysisMetrics
	logger    *slog.Logger

	running atomic.Bool
	mu      sync.RWMutex
	current *Run
}

// NewAnalysisService creates the service for one configuration. metrics may
// be nil.
func NewAnalysisService(cfg *config.Config, metrics *infrastructure.AnalysisMetrics, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnalysisService{
		cfg:       cfg.Analysis,
		sourceDir: cfg.SourceDir(),
		loader:    dataprocessing.NewLoader(logger),
		files:     validation.NewFileValidator(logger),
		engine:    impact.NewEngine(logger),
		metrics:   metrics,
		logger:    logger.With(slog.String("component", "analysis_service")),
	}
}

// LoadInput reads the declaration, band table and source files
func (s *AnalysisService) LoadInput(ctx context.Context) (impact.Input, error) {
	decl, err := s.loader.LoadDeclaration(ctx, s.cfg.MappingFile, s.cfg.InputSheet)
	if err != nil {
		return impact.Input{}, fmt.Errorf("failed to load declaration: %w", err)
	}
	bands, err := s.loader.LoadBands(ctx, s.cfg.MappingFile, s.cfg.BandSheet)
	if err != nil {
		return impact.Input{}, fmt.Errorf("failed to load bands: %w", err)
	}
	sources, err := s.loader.LoadSources(ctx, decl, s.sourceDir, s.cfg.DataSheet)
	if err != nil {
		return impact.Input{}, err
	}
	return impact.Input{
		Declaration: decl,
		Sources:     sources,
		Bands:       bands,
		Options:     s.cfg.Options(),
	}, nil
}

// Validation describes a declaration and band table that resolved cleanly
type Validation struct {
	IDColumn     string   `json:"id_column"`
	Items        []string `json:"items"`
	Renewal      []string `json:"renewal_items"`
	BandOrder    []string `json:"band_order"`
	Sources      []string `json:"sources"`
	MissingFiles []string `json:"missing_files,omitempty"`
}

// Validate resolves the declaration and band table without reading any
// source data. Declared source files that are missing, unreadable or in an
// unsupported format are reported in MissingFiles and turn the result into a
// not-found error.
func (s *AnalysisService) Validate(ctx context.Context) (*Validation, error) {
	decl, err := s.loader.LoadDeclaration(ctx, s.cfg.MappingFile, s.cfg.InputSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to load declaration: %w", err)
	}
	mappings, err := impact.ResolveMappings(decl, s.cfg.Options())
	if err != nil {
		return nil, err
	}
	bands, err := s.loader.LoadBands(ctx, s.cfg.MappingFile, s.cfg.BandSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to load bands: %w", err)
	}
	scheme, err := impact.NewBandScheme(bands)
	if err != nil {
		return nil, err
	}

	v := &Validation{
		IDColumn:  decl.IDColumn,
		BandOrder: scheme.Order(),
		Sources:   decl.Files(),
	}
	for _, m := range mappings {
		v.Items = append(v.Items, m.Item)
		if m.HasRenewal() {
			v.Renewal = append(v.Renewal, m.Item)
		}
	}
	v.MissingFiles = s.files.ValidateSources(s.sourceDir, v.Sources)

	s.logger.InfoContext(ctx, "declaration validated",
		slog.Int("items", len(v.Items)),
		slog.Int("bands", scheme.Len()),
		slog.Int("missing_files", len(v.MissingFiles)))
	if len(v.MissingFiles) > 0 {
		return v, apperrors.NewNotFoundError(fmt.Sprintf("source files %v", v.MissingFiles))
	}
	return v, nil
}

// Run loads the inputs, runs the engine and makes the result current.
// Configured filters scope the whole run. A failed run leaves the previous
// result in place.
func (s *AnalysisService) Run(ctx context.Context, trigger string) (*Run, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	ctx = infrastructure.EnsureTraceID(ctx)
	start := time.Now()
	run, err := s.run(ctx, trigger)
	rows := 0
	if run != nil {
		rows = run.Result.Merged.Len()
	}
	infrastructure.RecordAnalysisRun(ctx, s.metrics, trigger, time.Since(start), rows, err)
	if err != nil {
		s.logger.ErrorContext(ctx, "analysis run failed",
			slog.String("trigger", trigger),
			slog.String("error", err.Error()))
		return nil, err
	}

	s.mu.Lock()
	s.current = run
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "analysis run completed",
		slog.String("run_id", run.ID),
		slog.String("trigger", trigger),
		slog.Int("entities", rows),
		slog.Int("warnings", len(run.Warnings)))
	return run, nil
}

func (s *AnalysisService) run(ctx context.Context, trigger string) (*Run, error) {
	startedAt := time.Now()
	in, err := s.LoadInput(ctx)
	if err != nil {
		return nil, err
	}
	infrastructure.AddSpanEvent(ctx, "inputs loaded",
		attribute.Int("sources", len(in.Sources)),
		attribute.Int("bands", len(in.Bands)))

	res, err := s.engine.Run(ctx, in)
	if err != nil {
		return nil, err
	}

	var warnings []string
	sources := make([]string, 0, len(res.Stats.Duplicates))
	for source := range res.Stats.Duplicates {
		sources = append(sources, source)
	}
	sort.Strings(sources)
	for _, source := range sources {
		if dropped := res.Stats.Duplicates[source]; dropped > 0 {
			warnings = append(warnings, fmt.Sprintf("%d duplicate entity IDs dropped from %s", dropped, source))
		}
	}
	if res.Stats.Unmatched > 0 {
		warnings = append(warnings, fmt.Sprintf("%d entities are not present in every source", res.Stats.Unmatched))
	}

	if len(s.cfg.Filters) > 0 {
		rows, err := impact.ApplyFilters(res.Merged, s.cfg.Filters)
		if err != nil {
			return nil, fmt.Errorf("configured filters: %w", err)
		}
		analysis, err := s.engine.Analyze(ctx, rows, res.Mappings, res.Bands, res.Options)
		if err != nil {
			return nil, err
		}
		if excluded := res.Merged.Len() - rows.Len(); excluded > 0 {
			warnings = append(warnings, fmt.Sprintf("%d entities excluded by configured filters", excluded))
		}
		res.Merged = rows
		res.Analysis = *analysis
	}

	return &Run{
		ID:        uuid.NewString(),
		StartedAt: startedAt,
		Trigger:   trigger,
		IDColumn:  in.Declaration.IDColumn,
		Result:    res,
		Warnings:  warnings,
	}, nil
}

// Current returns the last successful run
func (s *AnalysisService) Current() (*Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil, ErrNoAnalysis
	}
	return s.current, nil
}

// Loaded reports whether a run is available
func (s *AnalysisService) Loaded() bool {
	_, err := s.Current()
	return err == nil
}

// FilterOptions lists the selectable values of the given columns. No
// columns means every segment column of the run.
func (s *AnalysisService) FilterOptions(ctx context.Context, columns []string) ([]impact.FilterOption, error) {
	run, err := s.Current()
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		columns = run.Result.Stats.Segments
	}
	opts, err := impact.FilterOptions(run.Result.Merged, columns)
	if err != nil {
		infrastructure.RecordAnalysisError(ctx, s.metrics, "filters", err)
		return nil, err
	}
	return opts, nil
}

// analyze returns the analysis of the current run restricted by filters
func (s *AnalysisService) analyze(ctx context.Context, operation string, filters []impact.Filter) (*impact.Analysis, error) {
	run, err := s.Current()
	if err != nil {
		return nil, err
	}
	res := run.Result
	if len(filters) == 0 {
		return &res.Analysis, nil
	}
	rows, err := impact.ApplyFilters(res.Merged, filters)
	if err != nil {
		infrastructure.RecordAnalysisError(ctx, s.metrics, operation, err)
		return nil, err
	}
	analysis, err := s.engine.Analyze(ctx, rows, res.Mappings, res.Bands, res.Options)
	if err != nil {
		infrastructure.RecordAnalysisError(ctx, s.metrics, operation, err)
		return nil, err
	}
	return analysis, nil
}

// Distribution returns the band distribution over the filtered run
func (s *AnalysisService) Distribution(ctx context.Context, filters []impact.Filter) (*impact.DistributionSummary, error) {
	analysis, err := s.analyze(ctx, "distribution", filters)
	if err != nil {
		return nil, err
	}
	return analysis.Distribution, nil
}

// Summary returns the stage waterfalls over the filtered run
func (s *AnalysisService) Summary(ctx context.Context, filters []impact.Filter) ([]impact.ItemSummary, error) {
	analysis, err := s.analyze(ctx, "summary", filters)
	if err != nil {
		return nil, err
	}
	return analysis.Summary, nil
}

// Breakdown builds one breakdown over the current run
func (s *AnalysisService) Breakdown(ctx context.Context, req impact.BreakdownRequest) (*impact.Breakdown, error) {
	run, err := s.Current()
	if err != nil {
		return nil, err
	}
	b, err := s.engine.Breakdown(ctx, run.Result.Merged, run.Result.Mappings, req)
	if err != nil {
		infrastructure.RecordAnalysisError(ctx, s.metrics, "breakdown", err)
		return nil, err
	}
	infrastructure.RecordBreakdown(ctx, s.metrics, string(b.Series), len(b.Dimensions))
	return b, nil
}

// ConfiguredBreakdowns builds the configured breakdown of every Item and
// series. It returns nothing when no breakdown dimensions are configured.
func (s *AnalysisService) ConfiguredBreakdowns(ctx context.Context) ([]*impact.Breakdown, error) {
	run, err := s.Current()
	if err != nil {
		return nil, err
	}
	dims, warnings := s.cfg.BreakdownDimensions()
	for _, w := range warnings {
		s.logger.WarnContext(ctx, w)
	}
	if len(dims) == 0 {
		return nil, nil
	}

	var out []*impact.Breakdown
	for _, m := range run.Result.Mappings {
		series := []impact.Series{impact.SeriesPrimary}
		if m.HasRenewal() {
			series = append(series, impact.SeriesRenewal)
		}
		for _, sr := range series {
			b, err := s.Breakdown(ctx, impact.BreakdownRequest{Item: m.Item, Dimensions: dims, Series: sr})
			if err != nil {
				return nil, fmt.Errorf("breakdown of %s: %w", m.Item, err)
			}
			out = append(out, b)
		}
	}
	return out, nil
}

// Differences returns a window of the per-entity differences of one Item:
// the ID column, the Item's stage columns and its difference columns.
func (s *AnalysisService) Differences(ctx context.Context, item string, offset, limit int) (*DifferencePage, error) {
	run, err := s.Current()
	if err != nil {
		return nil, err
	}
	res := run.Result
	m, ok := res.Mapping(item)
	if !ok {
		return nil, &impact.QueryError{Field: "item", Reason: fmt.Sprintf("unknown item %q", item)}
	}
	diffs, ok := res.Differences.Item(item)
	if !ok {
		return nil, apperrors.NewNotFoundError("differences of " + item)
	}

	total := res.Merged.Len()
	if offset > total {
		offset = total
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}
	window := make([]int, 0, end-offset)
	for i := offset; i < end; i++ {
		window = append(window, i)
	}

	columns := []string{run.IDColumn}
	for _, b := range m.Stages {
		columns = append(columns, b.RenamedColumn)
	}
	for _, b := range m.RenewalStages {
		columns = append(columns, b.RenamedColumn)
	}
	base := res.Merged.Select(window)
	page := &DifferencePage{Item: item, Total: total, Offset: offset, Limit: limit}
	page.Rows = make([][]dataset.Value, len(window))
	for i := range window {
		for _, c := range columns {
			page.Rows[i] = append(page.Rows[i], base.Value(i, c))
		}
	}

	add := func(name string, deltas []impact.Delta, pct bool) {
		page.Columns = append(page.Columns, name)
		for i, r := range window {
			v := deltas[r].AbsValue()
			if pct {
				v = deltas[r].PctValue()
			}
			page.Rows[i] = append(page.Rows[i], v)
		}
	}
	page.Columns = append(page.Columns, columns...)
	for _, sd := range diffs.Steps {
		add(impact.DiffColumn(item, sd.Step.Number, false), sd.Primary, false)
		add(impact.PercentDiffColumn(item, sd.Step.Number, false), sd.Primary, true)
		if sd.Renewal != nil {
			add(impact.DiffColumn(item, sd.Step.Number, true), sd.Renewal, false)
			add(impact.PercentDiffColumn(item, sd.Step.Number, true), sd.Renewal, true)
		}
	}
	return page, nil
}

// Export writes the reports of the current run and returns the written
// paths. An empty dir means the configured output directory; a relative dir
// is placed under it.
func (s *AnalysisService) Export(ctx context.Context, dir string, workbook bool) ([]string, error) {
	run, err := s.Current()
	if err != nil {
		return nil, err
	}
	dir = config.ResolvePath(s.cfg.OutputDir, dir)
	if dir == "" {
		dir = s.cfg.OutputDir
	}
	breakdowns, err := s.ConfiguredBreakdowns(ctx)
	if err != nil {
		return nil, err
	}

	reporter := exporter.NewReporter(dir, s.logger)
	report := exporter.Report{Result: run.Result, Breakdowns: breakdowns}
	paths, err := reporter.WriteCSV(ctx, report)
	if err != nil {
		infrastructure.RecordAnalysisError(ctx, s.metrics, "export", err)
		return nil, apperrors.NewStorageError("failed to write reports", err).WithContext("output_dir", dir)
	}
	if workbook {
		path, err := reporter.WriteWorkbook(ctx, report)
		if err != nil {
			infrastructure.RecordAnalysisError(ctx, s.metrics, "export", err)
			return nil, apperrors.NewStorageError("failed to write workbook", err).WithContext("output_dir", dir)
		}
		paths = append(paths, path)
	}
	return paths, nil
}
