// Package services implements the business logic layer between the HTTP
// handlers and the analysis engine.
//
// # AnalysisService
//
// AnalysisService loads the declaration workbook, the band table and the
// source files named by the declaration, runs impact.Engine and keeps the
// last successful run in memory behind a sync.RWMutex. Queries (filter
// options, filtered distributions and stage summaries, breakdowns,
// difference pages) are answered from that run without reloading files.
// Only one run executes at a time; a failed run keeps the previous result.
//
//	svc := services.NewAnalysisService(cfg, metrics, logger)
//	run, err := svc.Run(ctx, services.TriggerCLI)
//	paths, err := svc.Export(ctx, "", true)
//
// Queries issued before the first run return ErrNoAnalysis, an
// errors.AppError of type CONFLICT.
//
// # HealthService
//
// HealthService reports liveness, version information and readiness: the
// declaration workbook must be readable and the output directory writable.
package services
