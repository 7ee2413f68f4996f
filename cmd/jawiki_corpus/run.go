package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jawiki-corpus/internal/pipeline"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline end-to-end",
	Long: `Orchestrates the entire corpus build: download -> extract -> titles -> tokenize -> train.
Every stage is skipped when its output already exists, so an interrupted run can be resumed.

Configuration can be loaded from a JSON file using --config. Command-line arguments override config file values.`,
	RunE: runPipelineCmd,
}

var runSkipTrain bool

func init() {
	fs := runCommand.Flags()
	addDownloadFlags(fs)
	addExtractFlags(fs)
	addWorkerFlags(fs)
	addTokenizeFlags(fs)
	addTrainFlags(fs)
	fs.BoolVar(&runSkipTrain, "skip-train", false, "Stop after the corpus is written")
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return e.withRunner(ctx, func(r *pipeline.Runner) error {
		return r.Run(ctx, pipeline.RunOptions{SkipTrain: runSkipTrain})
	})
}
