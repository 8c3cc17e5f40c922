package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ibge-localidades-etl/internal/app"
	"github.com/couchcryptid/ibge-localidades-etl/internal/config"
	"github.com/couchcryptid/ibge-localidades-etl/internal/observability"
)

var (
	outputDir string
	cfg       *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "localidades",
	Short: "localidades exports IBGE states and municipalities to CSV and JSON.",
	Long: "localidades fetches the lists of Brazilian states and municipalities published by IBGE,\n" +
		"normalizes them and writes states.csv, states.json, cities.csv and cities.json\n" +
		"(or states_and_cities.json for the unified variant). Without a subcommand the\n" +
		"bundle variant runs.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		if outputDir != "" {
			loaded.OutputDir = outputDir
		}
		cfg = loaded
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVariant(cmd.Context(), app.VariantBundle)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output-dir", "o", "", "directory for output files (overrides OUTPUT_DIR)")
	for _, v := range app.Variants {
		rootCmd.AddCommand(variantCmd(v))
	}
	rootCmd.AddCommand(validateCmd)
}

// ExecuteContext runs the command selected by the process arguments and
// returns its error after printing it to stderr. Exiting is left to main.
func ExecuteContext(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return err
}

func runVariant(ctx context.Context, v app.Variant) error {
	logger := observability.NewLogger(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	return app.New(cfg, logger, metrics, os.Stdout).Run(ctx, v)
}
