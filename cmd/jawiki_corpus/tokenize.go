package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jawiki-corpus/internal/pipeline"
)

var tokenizeCommand = &cobra.Command{
	Use:   "tokenize",
	Short: "Segment the extracted articles into a space-separated corpus",
	Long: `Resolves anchors to article titles, optionally replaces titles in running text by
their canonical form, splits sentences and segments them with a morphological analyzer,
keeping every title as a single token. One sentence is written per line to
jawiki_<version>.txt (jawiki_orig_<version>.txt with --base), with a JSON manifest next to it.`,
	RunE: runTokenizeCmd,
}

func init() {
	addTokenizeFlags(tokenizeCommand.Flags())
	addWorkerFlags(tokenizeCommand.Flags())
	rootCmd.AddCommand(tokenizeCommand)
}

func runTokenizeCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return e.withVersion(ctx, func(r *pipeline.Runner, version string) error {
		_, err := r.Tokenize(ctx, version)
		return err
	})
}
