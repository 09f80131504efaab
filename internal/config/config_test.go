package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"impactcli/internal/impact"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "impact.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// TestLoad tests the Load function with various scenarios
func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		body        string
		wantErr     string
		validateCfg func(*testing.T, *Config, string)
	}{
		{
			name: "defaults under a minimal file",
			body: "analysis:\n  mapping_file: mapping.xlsx\n",
			validateCfg: func(t *testing.T, cfg *Config, dir string) {
				assert.Equal(t, filepath.Join(dir, "mapping.xlsx"), cfg.Analysis.MappingFile)
				assert.Equal(t, DefaultInputSheet, cfg.Analysis.InputSheet)
				assert.Equal(t, DefaultBandSheet, cfg.Analysis.BandSheet)
				assert.Equal(t, filepath.Join(dir, DefaultOutputDir), cfg.Analysis.OutputDir)
				assert.Equal(t, impact.BasisPercent, cfg.Analysis.BandBasis)

				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 1048576, cfg.Server.MaxHeaderBytes)
				assert.True(t, cfg.Security.RateLimit.Enabled)
				assert.Equal(t, 100.0, cfg.Security.RateLimit.RPS)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, filepath.Join(dir, DefaultLogFile), cfg.Logging.FilePath)
				assert.Equal(t, AppName, cfg.Metrics.ServiceName)
				assert.Equal(t, dir, cfg.BaseDir)
			},
		},
		{
			name: "file values",
			body: `analysis:
  mapping_file: /abs/mapping.xlsx
  input_sheet: decl
  renewal: true
  renewal_items:
    Claims: false
  segments: [Region]
  breakdown: [Region, Channel]
  filters:
    - column: Region
      values: [North, NA]
  band_basis: absolute
  workers: 3
server:
  port: 9090
  read_timeout: 5s
`,
			validateCfg: func(t *testing.T, cfg *Config, dir string) {
				a := cfg.Analysis
				assert.Equal(t, "/abs/mapping.xlsx", a.MappingFile)
				assert.Equal(t, "decl", a.InputSheet)
				assert.True(t, a.Renewal)
				assert.Equal(t, map[string]bool{"Claims": false}, a.RenewalItems)
				assert.Equal(t, []string{"Region", "Channel"}, a.Breakdown)
				assert.Equal(t, []impact.Filter{{Column: "Region", Values: []string{"North", "NA"}}}, a.Filters)
				assert.Equal(t, impact.BasisAbsolute, a.BandBasis)
				assert.Equal(t, 3, a.Workers)
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 60*time.Second, cfg.Server.WriteTimeout, "untouched default")
			},
		},
		{
			name: "environment overrides file",
			env: map[string]string{
				"IMPACT_SERVER_PORT":            "7070",
				"IMPACT_ANALYSIS_RENEWAL":       "true",
				"IMPACT_ANALYSIS_RENEWAL_ITEMS": "Premium:true,Claims:false",
				"IMPACT_LOGGING_LEVEL":          "debug",
			},
			body: "analysis:\n  mapping_file: mapping.xlsx\n  renewal: false\nserver:\n  port: 9090\n",
			validateCfg: func(t *testing.T, cfg *Config, dir string) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.True(t, cfg.Analysis.Renewal)
				assert.Equal(t, map[string]bool{"Premium": true, "Claims": false}, cfg.Analysis.RenewalItems)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:    "missing mapping file",
			body:    "server:\n  port: 9090\n",
			wantErr: "MappingFile",
		},
		{
			name:    "unknown band basis",
			body:    "analysis:\n  mapping_file: m.xlsx\n  band_basis: median\n",
			wantErr: "BandBasis",
		},
		{
			name:    "filter without column",
			body:    "analysis:\n  mapping_file: m.xlsx\n  filters:\n    - values: [x]\n",
			wantErr: "Column",
		},
		{
			name:    "repeated breakdown dimension",
			body:    "analysis:\n  mapping_file: m.xlsx\n  breakdown: [Region, Region]\n",
			wantErr: "Breakdown",
		},
		{
			name:    "invalid port",
			body:    "analysis:\n  mapping_file: m.xlsx\nserver:\n  port: 70000\n",
			wantErr: "Port",
		},
		{
			name:    "malformed yaml",
			body:    "analysis: [",
			wantErr: "failed to load config from file",
		},
		{
			name:    "malformed env",
			env:     map[string]string{"IMPACT_SERVER_PORT": "eighty"},
			body:    "analysis:\n  mapping_file: m.xlsx\n",
			wantErr: "failed to load config from env",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeConfig(t, tt.body)

			cfg, err := Load(path)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg, filepath.Dir(path))
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("IMPACT_ANALYSIS_MAPPING_FILE", "/data/mapping.xlsx")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/data/mapping.xlsx", cfg.Analysis.MappingFile)
	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, wd, cfg.SourceDir())
	assert.Equal(t, "/data", (&Config{Analysis: AnalysisConfig{MappingFile: "/data/mapping.xlsx"}}).SourceDir())
}

func TestAnalysisConfig_Options(t *testing.T) {
	a := AnalysisConfig{
		Renewal:         true,
		RenewalItems:    map[string]bool{"Claims": false},
		Segments:        []string{"Region"},
		OverallStepName: "Total",
		BandBasis:       impact.BasisAbsolute,
		Workers:         4,
	}
	opts := a.Options()
	assert.Equal(t, impact.Options{
		Renewal:         true,
		RenewalItems:    map[string]bool{"Claims": false},
		SegmentColumns:  []string{"Region"},
		OverallStepName: "Total",
		BandBasis:       impact.BasisAbsolute,
		Workers:         4,
	}, opts)
	assert.True(t, opts.RenewalFor("Premium"))
	assert.False(t, opts.RenewalFor("Claims"))
}

func TestAnalysisConfig_BreakdownDimensions(t *testing.T) {
	tests := []struct {
		name         string
		breakdown    []string
		wantDims     []string
		wantWarnings int
	}{
		{name: "none", breakdown: nil, wantDims: nil},
		{name: "within limit", breakdown: []string{"A", "B", "C"}, wantDims: []string{"A", "B", "C"}},
		{name: "clipped", breakdown: []string{"A", "B", "C", "D"}, wantDims: []string{"A", "B", "C"}, wantWarnings: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dims, warnings := AnalysisConfig{Breakdown: tt.breakdown}.BreakdownDimensions()
			assert.Equal(t, tt.wantDims, dims)
			assert.Len(t, warnings, tt.wantWarnings)
		})
	}
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		name string
		base string
		path string
		want string
	}{
		{name: "empty stays empty", base: "/cfg", path: "", want: ""},
		{name: "absolute unchanged", base: "/cfg", path: "/data/x.csv", want: "/data/x.csv"},
		{name: "relative joined", base: "/cfg", path: "in/x.csv", want: "/cfg/in/x.csv"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, filepath.FromSlash(tt.want), ResolvePath(tt.base, filepath.FromSlash(tt.path)))
		})
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mapping.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	assert.True(t, FileExists(path))
	assert.False(t, FileExists(dir), "directories are not files")
	assert.False(t, FileExists(filepath.Join(dir, "absent.xlsx")))
}
