// Command localidades downloads the IBGE lists of Brazilian states and
// municipalities and writes them as CSV and JSON files.
//
// Usage:
//
//	localidades            # bundle variant
//	localidades api
//	localidades html
//	localidades unified
//	localidades validate --output-dir ./out
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/ibge-localidades-etl/cmd/localidades/commands"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := commands.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
