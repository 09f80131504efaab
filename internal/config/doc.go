// Package config provides configuration management for the impact CLI and
// server. It handles loading configuration from multiple sources, validation,
// and converts the analysis section into engine options.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. The YAML configuration file given on the command line
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern IMPACT_<SECTION>_<FIELD>:
//
//	IMPACT_ANALYSIS_MAPPING_FILE=/data/mapping.xlsx
//	IMPACT_ANALYSIS_RENEWAL=true
//	IMPACT_ANALYSIS_RENEWAL_ITEMS=Claims:false
//	IMPACT_SERVER_PORT=8080
//	IMPACT_LOGGING_LEVEL=debug
//
// Breakdown filters can only be set in the YAML file.
//
// # Example
//
//	analysis:
//	  mapping_file: mapping.xlsx
//	  input_sheet: input
//	  band_sheet: band
//	  output_dir: out
//	  renewal: true
//	  renewal_items:
//	    Claims: false
//	  breakdown: [Region, Channel]
//	  filters:
//	    - column: Region
//	      values: [North]
//	  band_basis: percent
//
// # Paths
//
// Relative paths in the file are resolved against the directory holding
// the file, so a configuration can travel with its workbooks. Source files
// named inside the declaration resolve the same way (see Config.SourceDir).
//
// # Validation
//
// All configuration is validated at load time with go-playground/validator
// struct tags. The mapping file is the only required setting.
package config
