package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"impactcli/internal/validation"
)

// HealthService provides health check functionality
type HealthService struct {
	version     string
	buildTime   string
	mappingFile string
	outputDir   string
	analysis    *AnalysisService
	files       *validation.FileValidator
	startTime   time.Time
	logger      *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service. analysis may be nil.
func NewHealthService(version, buildTime, mappingFile, outputDir string, analysis *AnalysisService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:     version,
		buildTime:   buildTime,
		mappingFile: mappingFile,
		outputDir:   outputDir,
		analysis:    analysis,
		files:       validation.NewFileValidator(logger),
		startTime:   time.Now(),
		logger:      logger.With(slog.String("component", "health_service")),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	hs.logger.DebugContext(ctx, "health check",
		slog.String("uptime", time.Since(hs.startTime).String()))

	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
	}
}

// ReadinessCheck reports whether the configured inputs and output directory
// are usable and whether an analysis is loaded
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   hs.version,
		Services: map[string]ServiceHealth{
			"declaration": hs.checkDeclaration(),
			"output":      hs.checkOutputDir(),
			"analysis":    hs.checkAnalysis(),
		},
	}

	for name, sh := range status.Services {
		// an unloaded analysis is a normal state for a fresh server
		if name == "analysis" {
			continue
		}
		if sh.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.WarnContext(ctx, "service not ready",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":    hs.version,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     time.Since(hs.startTime).Seconds(),
		"start_time": hs.startTime.Format(time.RFC3339),
	}
	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	return result
}

func (hs *HealthService) checkDeclaration() ServiceHealth {
	if err := hs.files.ValidateSource(hs.mappingFile); err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("declaration workbook unavailable: %v", err)}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkOutputDir() ServiceHealth {
	if err := hs.files.ValidateOutputDirectory(hs.outputDir); err != nil {
		return ServiceHealth{Status: "not_ready", Message: err.Error()}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkAnalysis() ServiceHealth {
	if hs.analysis == nil {
		return ServiceHealth{Status: "not_ready", Message: "analysis service not initialized"}
	}
	run, err := hs.analysis.Current()
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: "no analysis loaded"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("run %s", run.ID)}
}
