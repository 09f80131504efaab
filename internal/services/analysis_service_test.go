package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactcli/internal/dataset"
	apperrors "impactcli/internal/errors"
	"impactcli/internal/exporter"
	"impactcli/internal/impact"
	"impactcli/internal/infrastructure"
	"impactcli/internal/shared/testutil"
)

func newTestService(t *testing.T) *AnalysisService {
	t.Helper()
	return NewAnalysisService(writeFixture(t), nil, testutil.Logger(t))
}

func TestAnalysisService_NoAnalysis(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Current()
	assert.ErrorIs(t, err, ErrNoAnalysis)
	assert.False(t, svc.Loaded())

	_, err = svc.Distribution(ctx, nil)
	assert.ErrorIs(t, err, ErrNoAnalysis)
	_, err = svc.Summary(ctx, nil)
	assert.ErrorIs(t, err, ErrNoAnalysis)
	_, err = svc.FilterOptions(ctx, nil)
	assert.ErrorIs(t, err, ErrNoAnalysis)
	_, err = svc.Breakdown(ctx, impact.BreakdownRequest{Item: "Premium", Dimensions: []string{"Region"}})
	assert.ErrorIs(t, err, ErrNoAnalysis)
	_, err = svc.Differences(ctx, "Premium", 0, 10)
	assert.ErrorIs(t, err, ErrNoAnalysis)
	_, err = svc.Export(ctx, t.TempDir(), false)
	assert.ErrorIs(t, err, ErrNoAnalysis)
}

func TestAnalysisService_Run(t *testing.T) {
	svc := newTestService(t)

	run, err := svc.Run(context.Background(), TriggerCLI)
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "PolicyID", run.IDColumn)

	summary := run.Summary()
	assert.Equal(t, TriggerCLI, summary.Trigger)
	assert.Equal(t, []string{"Premium", "Claims"}, summary.Items)
	assert.Equal(t, 3, summary.Entities)
	assert.Equal(t, 1, summary.Unmatched)
	assert.Equal(t, 1, summary.Duplicates["q2.csv"])
	assert.Equal(t, []string{"Region", "Channel"}, summary.Segments)
	assert.Equal(t, []string{"Decrease", "Flat", "Increase", impact.Unbanded}, summary.BandOrder)
	assert.Equal(t, impact.BasisPercent, summary.Basis)
	assert.Equal(t, []string{
		"1 duplicate entity IDs dropped from q2.csv",
		"1 entities are not present in every source",
	}, summary.Warnings)

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Same(t, run, current)
	assert.True(t, svc.Loaded())
}

func TestAnalysisService_RunKeepsPreviousOnFailure(t *testing.T) {
	cfg := writeFixture(t)
	svc := NewAnalysisService(cfg, nil, testutil.Logger(t))
	ctx := context.Background()

	first, err := svc.Run(ctx, TriggerHTTP)
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.BaseDir, "q2.csv")))
	_, err = svc.Run(ctx, TriggerHTTP)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "q2.csv")

	current, err := svc.Current()
	require.NoError(t, err)
	assert.Equal(t, first.ID, current.ID)
}

func TestAnalysisService_RunInProgress(t *testing.T) {
	svc := newTestService(t)
	svc.running.Store(true)

	_, err := svc.Run(context.Background(), TriggerHTTP)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestAnalysisService_Validate(t *testing.T) {
	cfg := writeFixture(t)
	svc := NewAnalysisService(cfg, nil, testutil.Logger(t))
	ctx := context.Background()

	v, err := svc.Validate(ctx)
	require.NoError(t, err)
	assert.Equal(t, "PolicyID", v.IDColumn)
	assert.Equal(t, []string{"Premium", "Claims"}, v.Items)
	assert.Empty(t, v.Renewal)
	assert.Equal(t, []string{"Decrease", "Flat", "Increase", impact.Unbanded}, v.BandOrder)
	assert.Equal(t, []string{"q1.csv", "q2.csv"}, v.Sources)
	assert.False(t, svc.Loaded(), "validation does not run the analysis")

	require.NoError(t, os.Remove(filepath.Join(cfg.BaseDir, "q2.csv")))
	v, err = svc.Validate(ctx)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeNotFound, appErr.Type)
	assert.Equal(t, []string{"q2.csv"}, v.MissingFiles)
}

func TestAnalysisService_ConfiguredFilters(t *testing.T) {
	cfg := writeFixture(t)
	cfg.Analysis.Filters = []impact.Filter{{Column: "Region", Values: []string{"North"}}}
	svc := NewAnalysisService(cfg, nil, testutil.Logger(t))

	run, err := svc.Run(context.Background(), TriggerCLI)
	require.NoError(t, err)
	assert.Equal(t, 2, run.Result.Merged.Len())
	assert.Equal(t, 2, run.Result.Differences.Rows)
	assert.Contains(t, run.Warnings, "1 entities excluded by configured filters")

	cfg.Analysis.Filters = []impact.Filter{{Column: "Product", Values: []string{"Motor"}}}
	_, err = NewAnalysisService(cfg, nil, nil).Run(context.Background(), TriggerCLI)
	assert.True(t, impact.IsQueryError(err))
}

func TestAnalysisService_Queries(t *testing.T) {
	providers, err := infrastructure.InitializeOTel(infrastructure.DefaultOTelConfig(), testutil.Logger(t))
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())
	metrics, err := infrastructure.CreateAnalysisMetrics(providers.Meter)
	require.NoError(t, err)

	svc := NewAnalysisService(writeFixture(t), metrics, testutil.Logger(t))
	ctx := context.Background()
	_, err = svc.Run(ctx, TriggerHTTP)
	require.NoError(t, err)

	t.Run("filter options", func(t *testing.T) {
		opts, err := svc.FilterOptions(ctx, nil)
		require.NoError(t, err)
		want := []impact.FilterOption{
			{Column: "Region", Values: []string{"North", "South"}},
			{Column: "Channel", Values: []string{"Agent", "Broker"}},
		}
		if diff := cmp.Diff(want, opts); diff != "" {
			t.Errorf("filter options mismatch (-want +got):\n%s", diff)
		}

		_, err = svc.FilterOptions(ctx, []string{"Product"})
		assert.True(t, impact.IsQueryError(err))
	})

	t.Run("distribution", func(t *testing.T) {
		all, err := svc.Distribution(ctx, nil)
		require.NoError(t, err)
		premium, ok := all.Item("Premium")
		require.True(t, ok)
		overall := premium.Steps[0].Primary
		assert.Equal(t, 1, overall.Count("Decrease"))
		assert.Equal(t, 1, overall.Count("Flat"))
		assert.Equal(t, 1, overall.Count("Increase"))

		claims, _ := all.Item("Claims")
		assert.Equal(t, 1, claims.Steps[0].Primary.ZeroBase)

		north, err := svc.Distribution(ctx, []impact.Filter{{Column: "Region", Values: []string{"North"}}})
		require.NoError(t, err)
		premium, _ = north.Item("Premium")
		assert.Equal(t, 0, premium.Steps[0].Primary.Count("Decrease"))
		assert.Equal(t, 2, premium.Steps[0].Primary.Defined)

		_, err = svc.Distribution(ctx, []impact.Filter{{Column: "Product", Values: []string{"x"}}})
		assert.True(t, impact.IsQueryError(err))
	})

	t.Run("summary", func(t *testing.T) {
		summaries, err := svc.Summary(ctx, nil)
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "Premium", summaries[0].Item)
		assert.Equal(t, 350.0, summaries[0].Primary[0].ValueTotal)
		assert.Equal(t, 340.0, summaries[0].Primary[1].ValueTotal)
		assert.Equal(t, -10.0, summaries[0].Primary[1].ValueDiff)
	})

	t.Run("breakdown", func(t *testing.T) {
		b, err := svc.Breakdown(ctx, impact.BreakdownRequest{Item: "Premium", Dimensions: []string{"Region"}})
		require.NoError(t, err)
		labels := make([]string, len(b.Rows))
		for i, r := range b.Rows {
			labels[i] = r.Label()
		}
		assert.Equal(t, []string{"leaf", "leaf", "grand-total"}, labels)
		assert.Equal(t, 3, b.GrandTotal().Totals.Count)

		_, err = svc.Breakdown(ctx, impact.BreakdownRequest{Item: "Expenses", Dimensions: []string{"Region"}})
		assert.True(t, impact.IsQueryError(err))
	})

	t.Run("differences", func(t *testing.T) {
		page, err := svc.Differences(ctx, "Premium", 1, 1)
		require.NoError(t, err)
		assert.Equal(t, 3, page.Total)
		assert.Equal(t, []string{
			"PolicyID", "Premium_1", "Premium_2",
			"diff_Premium_step_0", "percent_diff_Premium_step_0",
			"diff_Premium_step_1", "percent_diff_Premium_step_1",
		}, page.Columns)
		require.Len(t, page.Rows, 1)
		assert.Equal(t, dataset.String("P2"), page.Rows[0][0])
		assert.Equal(t, dataset.Number(-20), page.Rows[0][3])

		claims, err := svc.Differences(ctx, "Claims", 0, 0)
		require.NoError(t, err)
		require.Len(t, claims.Rows, 3)
		assert.Equal(t, dataset.String(impact.ZeroBaseSentinel), claims.Rows[1][4])

		past, err := svc.Differences(ctx, "Claims", 10, 5)
		require.NoError(t, err)
		assert.Empty(t, past.Rows)

		_, err = svc.Differences(ctx, "Expenses", 0, 5)
		assert.True(t, impact.IsQueryError(err))
	})
}

func TestAnalysisService_Export(t *testing.T) {
	cfg := writeFixture(t)
	cfg.Analysis.Breakdown = []string{"Region"}
	svc := NewAnalysisService(cfg, nil, testutil.Logger(t))
	ctx := context.Background()
	_, err := svc.Run(ctx, TriggerCLI)
	require.NoError(t, err)

	paths, err := svc.Export(ctx, "", true)
	require.NoError(t, err)

	out := cfg.Analysis.OutputDir
	assert.Equal(t, []string{
		filepath.Join(out, exporter.MergedFile),
		filepath.Join(out, exporter.DistributionFile),
		filepath.Join(out, exporter.SummaryFile),
		filepath.Join(out, "breakdown_Premium.csv"),
		filepath.Join(out, "breakdown_Claims.csv"),
		filepath.Join(out, exporter.WorkbookFile),
	}, paths)
	for _, p := range paths {
		assert.FileExists(t, p)
	}

	custom := t.TempDir()
	paths, err = svc.Export(ctx, custom, false)
	require.NoError(t, err)
	assert.Len(t, paths, 5)
	assert.Equal(t, custom, filepath.Dir(paths[0]))

	paths, err = svc.Export(ctx, "review", false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "review", exporter.MergedFile), paths[0])
}

func TestAnalysisService_ExportFailure(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	_, err := svc.Run(ctx, TriggerCLI)
	require.NoError(t, err)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err = svc.Export(ctx, filepath.Join(blocker, "out"), false)
	require.Error(t, err)
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.ErrTypeStorage, appErr.Type)
	assert.Contains(t, err.Error(), "failed to write reports")
}
