// Package main provides the entry point for the jawiki-corpus command line tool.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "jawiki_corpus",
	Short: "Build a tokenized corpus and fastText vectors from Japanese Wikipedia",
	Long: `jawiki_corpus downloads a Japanese Wikipedia dump, extracts its articles with wikiextractor,
segments them into space-separated tokens and trains fastText vectors on the result.

Configuration can be loaded from a JSON file using --config. Command-line flags override config file values.`,
	SilenceUsage: true,
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	// Interrupts cancel the running stage, which removes its partial output.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
