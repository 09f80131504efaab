package http

import (
	"context"

	"impactcli/internal/impact"
	"impactcli/internal/services"
)

// AnalysisServiceInterface defines the analysis operations exposed over HTTP
type AnalysisServiceInterface interface {
	Run(ctx context.Context, trigger string) (*services.Run, error)
	Current() (*services.Run, error)
	FilterOptions(ctx context.Context, columns []string) ([]impact.FilterOption, error)
	Distribution(ctx context.Context, filters []impact.Filter) (*impact.DistributionSummary, error)
	Summary(ctx context.Context, filters []impact.Filter) ([]impact.ItemSummary, error)
	Breakdown(ctx context.Context, req impact.BreakdownRequest) (*impact.Breakdown, error)
	Differences(ctx context.Context, item string, offset, limit int) (*services.DifferencePage, error)
	Export(ctx context.Context, dir string, workbook bool) ([]string, error)
}

var _ AnalysisServiceInterface = (*services.AnalysisService)(nil)
