// Command impact compares policy datasets across stages and reports how each
// entity moved.
//
//	impact run --config impact.yaml [--out dir] [--xlsx]
//	impact serve --config impact.yaml
//	impact validate --config impact.yaml
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"impactcli/internal/app"
	"impactcli/internal/config"
	apperrors "impactcli/internal/errors"
	"impactcli/internal/impact"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 when the declaration or the source data cannot be analysed,
// 1 for every other failure.
func exitCode(err error) int {
	if impact.IsMappingError(err) || impact.IsMergeError(err) {
		return 2
	}
	return 1
}

// newRootCmd builds the command tree. Every subcommand shares --config; an
// empty path configures from IMPACT_* environment variables alone.
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "impact",
		Short:         "Stage impact analysis for insurance policy datasets",
		Long:          "Merge policy datasets observed at several stages, compute per-policy differences, band them and summarise the movement.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the YAML config file")

	root.AddCommand(
		newRunCmd(&configFile),
		newServeCmd(&configFile),
		newValidateCmd(&configFile),
		newVersionCmd(),
	)
	return root
}

// loadApplication loads the config and builds the application
func loadApplication(configFile string) (*app.Application, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid configuration", err)
	}
	application, err := app.NewApplication(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize application: %w", err)
	}
	return application, nil
}

func newRunCmd(configFile *string) *cobra.Command {
	var (
		outDir   string
		workbook bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the analysis once and write the reports",
		Long: `Run loads the declaration, band table and source files, runs the
analysis and writes the merged data, band distribution, stage summary and
configured breakdowns as CSV. --xlsx also writes a workbook with the same
sheets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if outDir != "" {
				abs, err := filepath.Abs(outDir)
				if err != nil {
					return fmt.Errorf("invalid output directory: %w", err)
				}
				outDir = abs
			}

			application, err := loadApplication(*configFile)
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			run, paths, err := application.RunBatch(cmd.Context(), outDir, workbook)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			summary := run.Summary()
			fmt.Fprintf(w, "run %s: %d entities, items %s\n",
				summary.RunID, summary.Entities, strings.Join(summary.Items, ", "))
			printList(w, "warning", summary.Warnings)
			printList(w, "wrote", paths)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: analysis.output_dir)")
	cmd.Flags().BoolVar(&workbook, "xlsx", false, "Also write the xlsx workbook report")
	return cmd
}

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API",
		Long: `Serve starts the HTTP API under /api/analysis with /healthz and
/metrics, loads the analysis in the background and stops gracefully on
SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApplication(*configFile)
			if err != nil {
				return err
			}
			return application.Run(cmd.Context())
		},
	}
}

func newValidateCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the declaration and band table without running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := loadApplication(*configFile)
			if err != nil {
				return err
			}
			defer application.Close(context.Background())

			v, err := application.Validate(cmd.Context())
			w := cmd.OutOrStdout()
			if v != nil {
				fmt.Fprintf(w, "id column: %s\n", v.IDColumn)
				fmt.Fprintf(w, "items: %s\n", strings.Join(v.Items, ", "))
				if len(v.Renewal) > 0 {
					fmt.Fprintf(w, "renewal: %s\n", strings.Join(v.Renewal, ", "))
				}
				fmt.Fprintf(w, "bands: %s\n", strings.Join(v.BandOrder, ", "))
				printList(w, "missing", v.MissingFiles)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(w, "declaration ok")
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "%s %s\n", config.AppName, config.AppVersion)
			if app.BuildTime != "" {
				fmt.Fprintf(w, "built: %s\n", app.BuildTime)
			}
			fmt.Fprintf(w, "go: %s %s/%s\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}

func printList(w io.Writer, label string, values []string) {
	for _, v := range values {
		fmt.Fprintf(w, "%s: %s\n", label, v)
	}
}
