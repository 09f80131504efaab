package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"impactcli/internal/impact"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Security SecurityConfig `yaml:"security" envconfig:"SECURITY"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Metrics  MetricsConfig  `yaml:"metrics" envconfig:"METRICS"`

	// BaseDir is the directory relative paths were resolved against
	BaseDir string `yaml:"-" ignored:"true"`
}

// AnalysisConfig describes one impact analysis: where the declaration lives
// and how the engine should treat it.
type AnalysisConfig struct {
	MappingFile     string           `yaml:"mapping_file" envconfig:"MAPPING_FILE" validate:"required"`
	InputSheet      string           `yaml:"input_sheet" envconfig:"INPUT_SHEET" validate:"required"`
	BandSheet       string           `yaml:"band_sheet" envconfig:"BAND_SHEET" validate:"required"`
	DataSheet       string           `yaml:"data_sheet" envconfig:"DATA_SHEET"`
	OutputDir       string           `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
	Renewal         bool             `yaml:"renewal" envconfig:"RENEWAL"`
	RenewalItems    map[string]bool  `yaml:"renewal_items" envconfig:"RENEWAL_ITEMS"`
	Segments        []string         `yaml:"segments" envconfig:"SEGMENTS"`
	Filters         []impact.Filter  `yaml:"filters" ignored:"true" validate:"dive"`
	Breakdown       []string         `yaml:"breakdown" envconfig:"BREAKDOWN" validate:"unique"`
	OverallStepName string           `yaml:"overall_step_name" envconfig:"OVERALL_STEP_NAME"`
	BandBasis       impact.BandBasis `yaml:"band_basis" envconfig:"BAND_BASIS" validate:"oneof=percent absolute"`
	Workers         int              `yaml:"workers" envconfig:"WORKERS" validate:"gte=0"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" validate:"gt=0"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" validate:"gt=0"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxHeaderBytes  int           `yaml:"max_header_bytes" envconfig:"MAX_HEADER_BYTES"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RequestTimeout  time.Duration `yaml:"request_timeout" envconfig:"REQUEST_TIMEOUT" validate:"gt=0"`
}

// SecurityConfig contains security-related configuration
type SecurityConfig struct {
	AllowedOrigins []string        `yaml:"allowed_origins" envconfig:"ALLOWED_ORIGINS"`
	EnableCORS     bool            `yaml:"enable_cors" envconfig:"ENABLE_CORS"`
	RateLimit      RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS" validate:"gte=0"`
	Burst   int     `yaml:"burst" envconfig:"BURST" validate:"gte=0"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format      string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	Output      string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath    string `yaml:"file_path" envconfig:"FILE_PATH"`
	Development bool   `yaml:"development" envconfig:"DEVELOPMENT"`
}

// MetricsConfig controls the OpenTelemetry providers
type MetricsConfig struct {
	ServiceName   string  `yaml:"service_name" envconfig:"SERVICE_NAME" validate:"required"`
	Environment   string  `yaml:"environment" envconfig:"ENVIRONMENT"`
	EnableMetrics bool    `yaml:"enable_metrics" envconfig:"ENABLE_METRICS"`
	EnableTracing bool    `yaml:"enable_tracing" envconfig:"ENABLE_TRACING"`
	TraceExporter string  `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" validate:"oneof=stdout none"`
	SampleRatio   float64 `yaml:"sample_ratio" envconfig:"SAMPLE_RATIO" validate:"gte=0,lte=1"`
}

// Load builds the configuration for the given YAML file. Defaults are
// applied first, the file on top, and IMPACT_* environment variables last.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	// Only variables that are set override; none of the fields carry
	// envconfig defaults.
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	base := "."
	if path != "" {
		base = filepath.Dir(path)
	}
	if err := cfg.resolvePaths(base); err != nil {
		return nil, fmt.Errorf("failed to resolve paths: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays the YAML file onto cfg
func loadFromFile(filePath string, cfg *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

var validate = validator.New()

// Validate checks the struct tags of the whole configuration
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Security.EnableCORS && len(c.Security.AllowedOrigins) == 0 {
		return fmt.Errorf("at least one allowed origin must be specified")
	}
	return nil
}

// Options converts the analysis section into engine options
func (a AnalysisConfig) Options() impact.Options {
	return impact.Options{
		Renewal:         a.Renewal,
		RenewalItems:    a.RenewalItems,
		SegmentColumns:  a.Segments,
		OverallStepName: a.OverallStepName,
		BandBasis:       a.BandBasis,
		Workers:         a.Workers,
	}
}

// BreakdownDimensions returns the configured breakdown dimensions clipped
// to the supported depth, with a warning for every dropped dimension.
func (a AnalysisConfig) BreakdownDimensions() ([]string, []string) {
	return impact.ClipDimensions(a.Breakdown)
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			InputSheet: DefaultInputSheet,
			BandSheet:  DefaultBandSheet,
			OutputDir:  DefaultOutputDir,
			BandBasis:  impact.BasisPercent,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			MaxHeaderBytes:  1 << 20, // 1MB
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  2 * time.Minute,
		},
		Security: SecurityConfig{
			AllowedOrigins: []string{"http://localhost:8080"},
			EnableCORS:     true,
			RateLimit: RateLimitConfig{
				Enabled: true,
				RPS:     100,
				Burst:   50,
			},
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Metrics: MetricsConfig{
			ServiceName:   AppName,
			Environment:   "development",
			EnableMetrics: true,
			EnableTracing: false,
			TraceExporter: "none",
			SampleRatio:   1.0,
		},
	}
}
