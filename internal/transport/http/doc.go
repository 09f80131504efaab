// Package http implements the HTTP handlers of the impact analysis service.
// Handlers stay thin: they decode and validate requests, call the analysis
// or health service and render the result.
//
// # Endpoints
//
// AnalysisHandler is mounted under /api/analysis:
//
//	GET  /              summary of the loaded run
//	POST /run           reload the inputs and rerun the analysis
//	GET  /filters       selectable values of segment columns (?columns=a,b)
//	GET  /differences   paged per-entity differences (?item=&offset=&limit=)
//	POST /distribution  band distribution, optionally filtered
//	POST /summary       stage totals, optionally filtered
//	POST /breakdown     hierarchical breakdown of one Item
//	POST /export        write CSV reports and optionally the workbook
//
// HealthHandler is mounted under /healthz with /ready, /live and /version.
//
// # Responses
//
// Successful responses use the envelope
//
//	{"status": "success", "data": ..., "count": N}
//
// and failures are RFC 7807 problem documents rendered by
// errors.ErrorHandler. Engine errors keep their context, so a bad breakdown
// dimension answers
//
//	{
//	    "type": "/errors/analysis/query",
//	    "title": "Invalid Analysis Query",
//	    "status": 400,
//	    "detail": "query dimensions: unknown column \"Product\"",
//	    "instance": "/api/analysis/breakdown",
//	    "field": "dimensions"
//	}
//
// # Testing
//
// Handlers depend on AnalysisServiceInterface so tests can substitute a
// testify mock and drive the routes with httptest.
package http
