package config

// Application constants
const (
	// Application Info
	AppName    = "impactcli"
	AppVersion = "1.0.0"

	// EnvPrefix namespaces every environment override, e.g. IMPACT_SERVER_PORT
	EnvPrefix = "IMPACT"

	// Declaration workbook
	DefaultInputSheet = "input"
	DefaultBandSheet  = "band"

	// File Paths (relative to the config file)
	DefaultOutputDir = "output"
	DefaultLogFile   = "logs/impact.log"

	// API Endpoints
	APIBasePath      = "/api"
	AnalysisEndpoint = "/api/analysis"
	HealthEndpoint   = "/healthz"
	MetricsEndpoint  = "/metrics"
)
