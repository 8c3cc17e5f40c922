package commands

import (
	"github.com/spf13/cobra"

	"github.com/couchcryptid/ibge-localidades-etl/internal/app"
)

var variantDescriptions = map[app.Variant]string{
	app.VariantBundle:  "States from the cidades JS bundle, cities from the anniversaries API.",
	app.VariantAPI:     "States from the estados API, cities from the anniversaries API.",
	app.VariantHTML:    "States and cities scraped from the cidades HTML pages.",
	app.VariantUnified: "States with nested cities from the municipios API (states_and_cities.json).",
}

func variantCmd(v app.Variant) *cobra.Command {
	return &cobra.Command{
		Use:   string(v),
		Short: variantDescriptions[v],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVariant(cmd.Context(), v)
		},
	}
}
