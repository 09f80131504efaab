package services

import (
	apperrors "impactcli/internal/errors"
)

// Analysis service errors
var (
	// ErrNoAnalysis is returned by queries before the first successful run
	ErrNoAnalysis = apperrors.NewConflictError("no analysis loaded; run the analysis first")

	// ErrRunInProgress is returned when a run is requested while another is active
	ErrRunInProgress = apperrors.NewConflictError("an analysis run is already in progress")
)
