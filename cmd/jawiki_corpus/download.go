package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jawiki-corpus/internal/pipeline"
)

var downloadCommand = &cobra.Command{
	Use:   "download",
	Short: "Download a Japanese Wikipedia articles dump",
	Long: `Finds the newest dump (or the one named by --version) on the dump mirror whose
pages-articles-multistream file is published, and downloads it into the work directory.
Nothing is downloaded when the dump or its extracted tree is already present.`,
	RunE: runDownloadCmd,
}

func init() {
	addDownloadFlags(downloadCommand.Flags())
	rootCmd.AddCommand(downloadCommand)
}

func runDownloadCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return e.withRunner(ctx, func(r *pipeline.Runner) error {
		_, err := r.Download(ctx)
		return err
	})
}
