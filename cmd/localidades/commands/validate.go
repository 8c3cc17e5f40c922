package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/couchcryptid/ibge-localidades-etl/internal/app"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the integrity of previously written output files.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return app.Validate(cfg.OutputDir, os.Stdout)
	},
}
