package app

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	"impactcli/internal/config"
	"impactcli/internal/errors"
	"impactcli/internal/infrastructure"
	customMiddleware "impactcli/internal/middleware"
	"impactcli/internal/services"
	handlers "impactcli/internal/transport/http"
)

// BuildTime is set at link time with
// -ldflags "-X impactcli/internal/app.BuildTime=..."
var BuildTime string

// Application represents the main application container
type Application struct {
	Config        *config.Config
	Router        *chi.Mux
	Server        *http.Server
	Logger        *slog.Logger
	Services      *ServiceContainer
	OTelProviders *infrastructure.OTelProviders

	errorHandler *errors.ErrorHandler
	listener     net.Listener
	serverErr    chan error
}

// ServiceContainer holds all application services
type ServiceContainer struct {
	Analysis *services.AnalysisService
	Health   *services.HealthService
}

// NewApplication creates a new application instance with dependency injection.
// It initializes the process-wide logger from cfg.Logging.
func NewApplication(cfg *config.Config) (*Application, error) {
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return newApplication(cfg, logger)
}

func newApplication(cfg *config.Config, logger *slog.Logger) (*Application, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("Application starting",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.String("mapping_file", cfg.Analysis.MappingFile),
		slog.String("output_dir", cfg.Analysis.OutputDir))

	otelProviders, err := infrastructure.InitializeOTel(infrastructure.NewOTelConfig(cfg.Metrics), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	app := &Application{
		Config:        cfg,
		Logger:        logger,
		OTelProviders: otelProviders,
		errorHandler:  errors.NewErrorHandler(logger, cfg.Logging.Development),
		serverErr:     make(chan error, 1),
	}

	if err := app.initializeServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.setupRouter()
	app.createServer()

	return app, nil
}

// initializeServices initializes all application services
func (a *Application) initializeServices() error {
	metrics, err := infrastructure.CreateAnalysisMetrics(a.OTelProviders.Meter)
	if err != nil {
		return fmt.Errorf("failed to create analysis metrics: %w", err)
	}

	analysis := services.NewAnalysisService(a.Config, metrics, a.Logger)
	health := services.NewHealthService(
		config.AppVersion,
		BuildTime,
		a.Config.Analysis.MappingFile,
		a.Config.Analysis.OutputDir,
		analysis,
		a.Logger,
	)

	a.Services = &ServiceContainer{
		Analysis: analysis,
		Health:   health,
	}
	return nil
}

// setupRouter configures the HTTP router with all routes.
// Ordering: RequestID → RealIP → OTel → error logging → recovery → headers.
func (a *Application) setupRouter() {
	r := chi.NewRouter()

	r.Use(customMiddleware.RequestID)
	r.Use(customMiddleware.RealIP)

	otelMiddleware, err := customMiddleware.NewOTelMiddleware(a.OTelProviders)
	if err != nil {
		a.Logger.Error("Failed to create OpenTelemetry middleware", slog.String("error", err.Error()))
	} else {
		r.Use(otelMiddleware.Handler)
	}

	r.Use(errors.NewErrorMiddleware(a.errorHandler, a.Logger).Handler)
	r.Use(errors.RecoveryMiddleware(a.errorHandler))
	r.Use(customMiddleware.SecurityHeaders)

	if a.Config.Security.EnableCORS {
		r.Use(customMiddleware.CORS(a.getCORSConfig()))
	}

	if a.Config.Security.RateLimit.Enabled {
		r.Use(customMiddleware.NewRateLimiter(
			a.Config.Security.RateLimit.RPS,
			a.Config.Security.RateLimit.Burst,
			a.Logger,
			a.errorHandler,
		).Handler)
	}

	r.NotFound(a.errorHandler.NotFound)
	r.MethodNotAllowed(a.errorHandler.MethodNotAllowed)

	a.setupAPIRoutes(r)

	healthHandler := handlers.NewHealthHandler(a.Services.Health, a.Logger)
	r.Mount(config.HealthEndpoint, healthHandler.Routes())

	if a.OTelProviders.PrometheusHTTP != nil {
		r.Handle(config.MetricsEndpoint, a.OTelProviders.PrometheusHTTP)
	}

	a.Router = r
}

// setupAPIRoutes configures API endpoints
func (a *Application) setupAPIRoutes(r chi.Router) {
	r.Route(config.APIBasePath, func(r chi.Router) {
		r.Use(customMiddleware.JSONContent)
		r.Use(customMiddleware.Timeout(a.Config.Server.RequestTimeout, a.Logger))
		r.Use(customMiddleware.ContentTypeValidator(a.errorHandler, "application/json"))

		analysisHandler := handlers.NewAnalysisHandler(a.Services.Analysis, a.Logger, a.errorHandler)
		r.Mount("/analysis", analysisHandler.Routes())
	})
}

// getCORSConfig returns CORS configuration from the security settings
func (a *Application) getCORSConfig() customMiddleware.CORSConfig {
	cfg := customMiddleware.CORSConfig{
		AllowedOrigins: a.Config.Security.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Content-Type",
			customMiddleware.RequestIDHeader,
		},
		ExposedHeaders: []string{customMiddleware.RequestIDHeader},
		MaxAge:         300,
		Logger:         a.Logger,
	}

	a.Logger.Info("CORS configured", slog.Any("allowed_origins", cfg.AllowedOrigins))
	return cfg
}

// createServer creates the HTTP server
func (a *Application) createServer() {
	a.Server = &http.Server{
		Addr:           fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:        a.Router,
		ReadTimeout:    a.Config.Server.ReadTimeout,
		WriteTimeout:   a.Config.Server.WriteTimeout,
		IdleTimeout:    a.Config.Server.IdleTimeout,
		MaxHeaderBytes: a.Config.Server.MaxHeaderBytes,
	}
}

// Addr returns the address the server listens on once started
func (a *Application) Addr() string {
	if a.listener == nil {
		return a.Server.Addr
	}
	return a.listener.Addr().String()
}

// Start binds the listener, serves in the background and loads the initial
// analysis. A failed initial run is logged; the API stays up so the inputs
// can be fixed and the run retried.
func (a *Application) Start(ctx context.Context, cancel context.CancelFunc) error {
	a.Logger.InfoContext(ctx, "Starting application",
		slog.String("name", config.AppName),
		slog.String("version", config.AppVersion),
		slog.Int("port", a.Config.Server.Port),
		slog.String("level", a.Config.Logging.Level))

	ln, err := net.Listen("tcp", a.Server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", a.Server.Addr, err)
	}
	a.listener = ln

	go func() {
		if err := a.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
			a.Logger.ErrorContext(ctx, "Server error", slog.String("error", err.Error()))
			a.serverErr <- err
			// Signal shutdown through context instead of os.Exit
			cancel()
		}
	}()

	a.performStartupHealthCheck(ctx)

	go func() {
		if _, err := a.Services.Analysis.Run(ctx, services.TriggerStartup); err != nil {
			a.Logger.WarnContext(ctx, "Initial analysis failed",
				slog.String("error", err.Error()),
				slog.String("retry", "POST "+config.AnalysisEndpoint+"/run"))
		}
	}()

	a.Logger.InfoContext(ctx, "Application started successfully",
		slog.String("address", a.Addr()))
	return nil
}

// Stop gracefully stops the application
func (a *Application) Stop(ctx context.Context) error {
	a.Logger.InfoContext(ctx, "Shutting down application")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.Config.Server.ShutdownTimeout)
	defer cancel()

	if err := a.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	a.Close(shutdownCtx)
	a.Logger.InfoContext(ctx, "Application shutdown complete")
	return nil
}

// Close releases the telemetry providers and the log file. Batch commands
// call it directly; Stop calls it after the server has drained.
func (a *Application) Close(ctx context.Context) {
	if a.OTelProviders != nil {
		if err := a.OTelProviders.Shutdown(ctx); err != nil {
			a.Logger.ErrorContext(ctx, "Error shutting down OpenTelemetry", slog.String("error", err.Error()))
		}
	}
	if err := infrastructure.CloseLogFile(); err != nil {
		a.Logger.ErrorContext(ctx, "Error closing log file", slog.String("error", err.Error()))
	}
}

// Run serves until interrupted or until ctx is cancelled
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	if err := a.Start(ctx, cancel); err != nil {
		return err
	}

	var serveErr error
	select {
	case sig := <-sigChan:
		a.Logger.InfoContext(ctx, "Received interrupt signal", slog.String("signal", sig.String()))
	case serveErr = <-a.serverErr:
	case <-ctx.Done():
	}

	if err := a.Stop(context.Background()); err != nil {
		return err
	}
	return serveErr
}

// RunBatch runs the analysis once and writes the reports to outDir, or to
// the configured output directory when outDir is empty
func (a *Application) RunBatch(ctx context.Context, outDir string, workbook bool) (*services.Run, []string, error) {
	run, err := a.Services.Analysis.Run(ctx, services.TriggerCLI)
	if err != nil {
		return nil, nil, err
	}
	paths, err := a.Services.Analysis.Export(ctx, outDir, workbook)
	if err != nil {
		return run, nil, err
	}
	a.Logger.InfoContext(ctx, "Batch analysis complete",
		slog.String("run_id", run.ID),
		slog.Int("files", len(paths)))
	return run, paths, nil
}

// Validate resolves the declaration and band table without running
func (a *Application) Validate(ctx context.Context) (*services.Validation, error) {
	return a.Services.Analysis.Validate(ctx)
}

// performStartupHealthCheck logs readiness problems without failing startup
func (a *Application) performStartupHealthCheck(ctx context.Context) {
	status := a.Services.Health.ReadinessCheck(ctx)
	if status.Status == "ready" {
		a.Logger.InfoContext(ctx, "Startup health check passed")
		return
	}
	for name, sh := range status.Services {
		if sh.Status != "ready" && name != "analysis" {
			a.Logger.WarnContext(ctx, "Startup health check warning",
				slog.String("service", name),
				slog.String("message", sh.Message))
		}
	}
}
