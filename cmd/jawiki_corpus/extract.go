package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jawiki-corpus/internal/pipeline"
)

var extractCommand = &cobra.Command{
	Use:   "extract",
	Short: "Extract articles from a downloaded dump with wikiextractor",
	Long: `Runs wikiextractor on the dump, keeping links as anchors and writing JSON lines
into jawiki_<version>/ in the work directory. Skipped when that directory exists.`,
	RunE: runExtractCmd,
}

func init() {
	addExtractFlags(extractCommand.Flags())
	addWorkerFlags(extractCommand.Flags())
	rootCmd.AddCommand(extractCommand)
}

func runExtractCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return e.withVersion(ctx, func(r *pipeline.Runner, version string) error {
		return r.Extract(ctx, version)
	})
}
