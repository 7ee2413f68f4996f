package main

import (
	"github.com/spf13/cobra"

	"github.com/jonathan/jawiki-corpus/internal/pipeline"
)

var trainCommand = &cobra.Command{
	Use:   "train",
	Short: "Train fastText vectors on the corpus",
	Long: `Runs fasttext on the corpus of the selected version, writing
fasttext_jawiki_<version>.bin and .vec into the work directory. Skipped when the model exists.`,
	RunE: runTrainCmd,
}

func init() {
	addTrainFlags(trainCommand.Flags())
	addWorkerFlags(trainCommand.Flags())
	trainCommand.Flags().BoolVarP(&flagValues.BaseForm, "base", "b", false, "Train on the base-form corpus")
	trainCommand.Flags().BoolVarP(&flagValues.Compress, "compress", "z", false, "Read the xz-compressed corpus")
	rootCmd.AddCommand(trainCommand)
}

func runTrainCmd(cmd *cobra.Command, _ []string) error {
	e, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	return e.withVersion(ctx, func(r *pipeline.Runner, version string) error {
		return r.Train(ctx, version)
	})
}
